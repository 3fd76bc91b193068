package parser

import (
	"strings"

	"github.com/pebbletemplates/pebble-go/lexer"
)

type tagFunc struct {
	name  string
	parse func(p *Parser, start lexer.Token) (Stmt, error)
}

func (t tagFunc) Tag() string { return t.name }

func (t tagFunc) Parse(p *Parser, start lexer.Token) (Stmt, error) {
	return t.parse(p, start)
}

// NewTag creates a TagParser from a function.
func NewTag(name string, parse func(p *Parser, start lexer.Token) (Stmt, error)) TagParser {
	return tagFunc{name: name, parse: parse}
}

// CoreTags returns the built-in tag parsers.
func CoreTags() []TagParser {
	return []TagParser{
		NewTag("autoescape", parseAutoEscape),
		NewTag("block", parseBlock),
		NewTag("cache", parseCache),
		NewTag("embed", parseEmbed),
		NewTag("extends", parseExtends),
		NewTag("filter", parseFilterBlock),
		NewTag("flush", parseFlush),
		NewTag("for", parseFor),
		NewTag("from", parseFrom),
		NewTag("if", parseIf),
		NewTag("import", parseImport),
		NewTag("include", parseInclude),
		NewTag("macro", parseMacro),
		NewTag("parallel", parseParallel),
		NewTag("set", parseSet),
	}
}

// parseBody parses statements up to the end tag and consumes it, including
// an optional trailing name.
func (p *Parser) parseBody(endTag string) ([]Stmt, error) {
	body, err := p.Subparse(StopAt(endTag))
	if err != nil {
		return nil, err
	}
	p.Next() // end tag
	p.Skip(lexer.TokenName)
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	return body, nil
}

func parseIf(p *Parser, start lexer.Token) (Stmt, error) {
	node := &If{}
	stop := StopAt("elseif", "else", "endif")

	cond, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	body, err := p.Subparse(stop)
	if err != nil {
		return nil, err
	}
	node.Branches = append(node.Branches, IfBranch{Cond: cond, Body: body})

	for {
		tag := p.Next()
		switch tag.Value {
		case "elseif":
			cond, err := p.ParseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.ExpectTagEnd(); err != nil {
				return nil, err
			}
			body, err := p.Subparse(stop)
			if err != nil {
				return nil, err
			}
			node.Branches = append(node.Branches, IfBranch{Cond: cond, Body: body})
		case "else":
			if err := p.ExpectTagEnd(); err != nil {
				return nil, err
			}
			node.Else, err = p.Subparse(StopAt("endif"))
			if err != nil {
				return nil, err
			}
		default: // endif
			if err := p.ExpectTagEnd(); err != nil {
				return nil, err
			}
			node.span = p.expandSpan(start.Span)
			return node, nil
		}
	}
}

func parseFor(p *Parser, start lexer.Token) (Stmt, error) {
	name, err := p.ParseNewVariableName()
	if err != nil {
		return nil, err
	}
	if _, err := p.Expect(lexer.TokenName, "in"); err != nil {
		return nil, err
	}
	iter, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}

	node := &For{Var: name, Iter: iter}
	node.Body, err = p.Subparse(StopAt("else", "endfor"))
	if err != nil {
		return nil, err
	}
	if p.Next().Value == "else" {
		if err := p.ExpectTagEnd(); err != nil {
			return nil, err
		}
		node.Else, err = p.Subparse(StopAt("endfor"))
		if err != nil {
			return nil, err
		}
		p.Next()
	}
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	node.span = p.expandSpan(start.Span)
	return node, nil
}

func parseSet(p *Parser, start lexer.Token) (Stmt, error) {
	name, err := p.ParseNewVariableName()
	if err != nil {
		return nil, err
	}
	if p.Skip(lexer.TokenPunctuation, "=") {
		val, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.ExpectTagEnd(); err != nil {
			return nil, err
		}
		return &Set{Name: name, Value: val, span: p.expandSpan(start.Span)}, nil
	}

	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	body, err := p.parseBody("endset")
	if err != nil {
		return nil, err
	}
	return &SetBlock{Name: name, Body: body, span: p.expandSpan(start.Span)}, nil
}

func parseBlock(p *Parser, start lexer.Token) (Stmt, error) {
	tok := p.Current()
	if tok.Type != lexer.TokenName && tok.Type != lexer.TokenString {
		return nil, p.Errorf("Expected a block name, got [%s]", tok.Value)
	}
	p.Next()
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}

	p.PushBlock(tok.Value)
	body, err := p.parseBody("endblock")
	p.PopBlock()
	if err != nil {
		return nil, err
	}

	node := &Block{Name: tok.Value, Body: body, span: p.expandSpan(start.Span)}
	if err := p.RegisterBlock(node, start.Line()); err != nil {
		return nil, err
	}
	return node, nil
}

func parseExtends(p *Parser, start lexer.Token) (Stmt, error) {
	parent, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	return &Extends{Parent: parent, span: p.expandSpan(start.Span)}, nil
}

// parseWith parses an optional "with <map>" suffix.
func (p *Parser) parseWith() (Expr, error) {
	if !p.Skip(lexer.TokenName, "with") {
		return nil, nil
	}
	return p.ParseExpression()
}

func parseInclude(p *Parser, start lexer.Token) (Stmt, error) {
	name, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	with, err := p.parseWith()
	if err != nil {
		return nil, err
	}
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	return &Include{Name: name, With: with, span: p.expandSpan(start.Span)}, nil
}

func parseEmbed(p *Parser, start lexer.Token) (Stmt, error) {
	name, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	with, err := p.parseWith()
	if err != nil {
		return nil, err
	}
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}

	blocks := p.PushBlockScope()
	body, err := p.parseBody("endembed")
	p.PopBlockScope()
	if err != nil {
		return nil, err
	}
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *Block:
		case *Text:
			if strings.TrimSpace(s.Data) != "" {
				return nil, p.errorAt(Line(s), "Only blocks can be declared inside an embed tag")
			}
		default:
			return nil, p.errorAt(Line(s), "Only blocks can be declared inside an embed tag")
		}
	}
	return &Embed{Name: name, With: with, Blocks: blocks, span: p.expandSpan(start.Span)}, nil
}

func parseImport(p *Parser, start lexer.Token) (Stmt, error) {
	name, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	node := &Import{Name: name}
	if p.Skip(lexer.TokenName, "as") {
		aliasTok := p.Current()
		if node.Alias, err = p.ExpectName(); err != nil {
			return nil, err
		}
		if err := p.RegisterNamedImport(node.Alias, aliasTok.Line()); err != nil {
			return nil, err
		}
	}
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	node.span = p.expandSpan(start.Span)
	return node, nil
}

func parseFrom(p *Parser, start lexer.Token) (Stmt, error) {
	name, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.Expect(lexer.TokenName, "import"); err != nil {
		return nil, err
	}

	node := &FromImport{Name: name}
	for {
		tok := p.Current()
		macro, err := p.ExpectName()
		if err != nil {
			return nil, err
		}
		alias := macro
		if p.Skip(lexer.TokenName, "as") {
			if alias, err = p.ExpectName(); err != nil {
				return nil, err
			}
		}
		if err := p.RegisterMacroAlias(alias, tok.Line()); err != nil {
			return nil, err
		}
		node.Names = append(node.Names, ImportName{Name: macro, Alias: alias})
		if !p.Skip(lexer.TokenPunctuation, ",") {
			break
		}
	}
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	node.span = p.expandSpan(start.Span)
	return node, nil
}

func parseMacro(p *Parser, start lexer.Token) (Stmt, error) {
	name, err := p.ExpectName()
	if err != nil {
		return nil, err
	}
	args, err := p.ParseArguments()
	if err != nil {
		return nil, err
	}
	node := &Macro{Name: name}
	for _, a := range args {
		if a.Name != "" {
			node.Args = append(node.Args, MacroArg{Name: a.Name, Default: a.Value})
			continue
		}
		v, ok := a.Value.(*Var)
		if !ok {
			return nil, p.errorAt(start.Line(), "Macro [%s] declares an argument that is not a name", name)
		}
		node.Args = append(node.Args, MacroArg{Name: v.Name})
	}
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}

	if node.Body, err = p.parseBody("endmacro"); err != nil {
		return nil, err
	}
	node.span = p.expandSpan(start.Span)
	if err := p.RegisterMacro(node, start.Line()); err != nil {
		return nil, err
	}
	return node, nil
}

func parseAutoEscape(p *Parser, start lexer.Token) (Stmt, error) {
	node := &AutoEscape{Active: true}
	switch {
	case p.Test(lexer.TokenName, "false"):
		p.Next()
		node.Active = false
	case p.Test(lexer.TokenName, "true"):
		p.Next()
	case p.Test(lexer.TokenString):
		node.Strategy = p.Next().Value
	}
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	body, err := p.parseBody("endautoescape")
	if err != nil {
		return nil, err
	}
	node.Body = body
	node.span = p.expandSpan(start.Span)
	return node, nil
}

func parseFilterBlock(p *Parser, start lexer.Token) (Stmt, error) {
	var chain Expr = &BodyRef{span: start.Span}
	for {
		var err error
		if chain, err = p.parseFilter(chain); err != nil {
			return nil, err
		}
		if !p.Skip(lexer.TokenOperator, "|") {
			break
		}
	}
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	body, err := p.parseBody("endfilter")
	if err != nil {
		return nil, err
	}
	return &FilterBlock{Filter: chain, Body: body, span: p.expandSpan(start.Span)}, nil
}

func parseCache(p *Parser, start lexer.Token) (Stmt, error) {
	name, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	body, err := p.parseBody("endcache")
	if err != nil {
		return nil, err
	}
	return &CacheBlock{Name: name, Body: body, span: p.expandSpan(start.Span)}, nil
}

func parseParallel(p *Parser, start lexer.Token) (Stmt, error) {
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	body, err := p.parseBody("endparallel")
	if err != nil {
		return nil, err
	}
	return &Parallel{Body: body, span: p.expandSpan(start.Span)}, nil
}

func parseFlush(p *Parser, start lexer.Token) (Stmt, error) {
	if err := p.ExpectTagEnd(); err != nil {
		return nil, err
	}
	return &Flush{span: p.expandSpan(start.Span)}, nil
}

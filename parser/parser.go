// Package parser turns a token stream into a template AST.
//
// Statement parsing dispatches on the tag name following "{%" to a TagParser
// looked up in Options.Tags. Expressions are parsed by precedence climbing
// over Options.BinaryOperators and Options.UnaryOperators, so extensions can
// add tags and operators without touching the parser.
package parser

import (
	"fmt"

	"github.com/pebbletemplates/pebble-go/internal/errors"
	"github.com/pebbletemplates/pebble-go/lexer"
)

const maxRecursion = 150

// reservedNames cannot be assigned to.
var reservedNames = map[string]bool{
	"true": true, "false": true, "null": true, "none": true,
}

// TagParser parses a statement introduced by a tag name.
//
// Parse is called with the stream positioned right after the tag name; start
// is the tag name token. The handler must consume everything up to and
// including the closing "%}" of its last tag.
type TagParser interface {
	Tag() string
	Parse(p *Parser, start lexer.Token) (Stmt, error)
}

// Options configures a parse.
type Options struct {
	BinaryOperators map[string]*BinaryOperator
	UnaryOperators  map[string]*UnaryOperator
	Tags            map[string]TagParser

	// LiteralDecimalTreatedAsInteger makes integer literals 32-bit ints
	// instead of 64-bit longs when they fit.
	LiteralDecimalTreatedAsInteger bool
	// LiteralNumbersAsBigDecimals makes every numeric literal a decimal.
	LiteralNumbersAsBigDecimals bool
}

// DefaultOptions returns options holding the core operators and tags.
func DefaultOptions() Options {
	opts := Options{
		BinaryOperators: make(map[string]*BinaryOperator),
		UnaryOperators:  make(map[string]*UnaryOperator),
		Tags:            make(map[string]TagParser),
	}
	for _, op := range CoreBinaryOperators() {
		opts.BinaryOperators[op.Symbol] = op
	}
	for _, op := range CoreUnaryOperators() {
		opts.UnaryOperators[op.Symbol] = op
	}
	for _, tag := range CoreTags() {
		opts.Tags[tag.Tag()] = tag
	}
	return opts
}

// OperatorSymbols lists every operator symbol, as needed by the lexer.
func (o Options) OperatorSymbols() []string {
	symbols := make([]string, 0, len(o.BinaryOperators)+len(o.UnaryOperators))
	for s := range o.BinaryOperators {
		symbols = append(symbols, s)
	}
	for s := range o.UnaryOperators {
		if _, ok := o.BinaryOperators[s]; !ok {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

// Parser parses Pebble templates.
type Parser struct {
	tokens   []lexer.Token
	pos      int
	name     string
	opts     Options
	depth    int
	lastSpan Span

	blockStack []string
	// blockScopes holds the block registries in effect; embed tags push
	// their own.
	blockScopes  []map[string]*Block
	macros       map[string]*Macro
	macroAliases map[string]bool
	namedImports map[string]bool
}

// Parse parses a token stream produced by lexer.Tokenize.
func Parse(tokens []lexer.Token, name string, opts Options) (*Template, error) {
	p := &Parser{
		tokens: tokens,
		name:   name,
		opts:   opts,

		macros:       make(map[string]*Macro),
		macroAliases: make(map[string]bool),
		namedImports: make(map[string]bool),
	}
	return p.parse()
}

// ParseString tokenizes and parses source with the given options.
func ParseString(source, name string, syntax lexer.Syntax, opts Options) (*Template, error) {
	tokens, err := lexer.Tokenize(source, name, syntax, opts.OperatorSymbols())
	if err != nil {
		return nil, err
	}
	return Parse(tokens, name, opts)
}

func (p *Parser) parse() (*Template, error) {
	blocks := make(map[string]*Block)
	p.blockScopes = append(p.blockScopes, blocks)

	children, err := p.Subparse(nil)
	if err != nil {
		return nil, err
	}
	return &Template{
		Name:     p.name,
		Children: children,
		Blocks:   blocks,
		Macros:   p.macros,
		span:     p.expandSpan(Span{StartLine: 1}),
	}, nil
}

// Name returns the name of the template being parsed.
func (p *Parser) Name() string {
	return p.name
}

// Options returns the options of this parse.
func (p *Parser) Options() Options {
	return p.opts
}

// Current returns the current token. At the end of the stream it returns
// the EOF token.
func (p *Parser) Current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Type: lexer.TokenEOF, Span: p.lastSpan}
	}
	return p.tokens[p.pos]
}

// Peek returns the token n positions after the current one.
func (p *Parser) Peek(n int) lexer.Token {
	if p.pos+n >= len(p.tokens) {
		return lexer.Token{Type: lexer.TokenEOF, Span: p.lastSpan}
	}
	return p.tokens[p.pos+n]
}

// Next consumes and returns the current token.
func (p *Parser) Next() lexer.Token {
	tok := p.Current()
	if p.pos < len(p.tokens) {
		p.lastSpan = tok.Span
		p.pos++
	}
	return tok
}

// Test reports whether the current token has the given type and, when
// given, one of the values.
func (p *Parser) Test(typ lexer.TokenType, values ...string) bool {
	return p.Current().Test(typ, values...)
}

// Skip consumes the current token if it matches.
func (p *Parser) Skip(typ lexer.TokenType, values ...string) bool {
	if p.Test(typ, values...) {
		p.Next()
		return true
	}
	return false
}

// Expect consumes the current token, failing if it does not match.
func (p *Parser) Expect(typ lexer.TokenType, values ...string) (lexer.Token, error) {
	tok := p.Current()
	if !tok.Test(typ, values...) {
		expected := typ.String()
		if len(values) > 0 {
			expected = fmt.Sprintf("%s(%q)", typ, values[0])
		}
		if tok.Type == lexer.TokenEOF {
			return tok, p.Errorf("Unexpected end of template. Expected %s", expected)
		}
		return tok, p.Errorf("Unexpected token of value [%s] and type %s, expected token of type %s", tok.Value, tok.Type, expected)
	}
	return p.Next(), nil
}

// ExpectTagEnd consumes the "%}" closing the current tag.
func (p *Parser) ExpectTagEnd() error {
	_, err := p.Expect(lexer.TokenExecuteEnd)
	return err
}

// ExpectName consumes a name token and returns its value.
func (p *Parser) ExpectName() (string, error) {
	tok, err := p.Expect(lexer.TokenName)
	if err != nil {
		return "", err
	}
	return tok.Value, nil
}

// Errorf returns a parse error located at the current token.
func (p *Parser) Errorf(format string, args ...any) error {
	line := p.Current().Line()
	if line == 0 {
		line = p.lastSpan.StartLine
	}
	return errors.Newf(errors.ErrParse, format, args...).WithLine(line).WithName(p.name)
}

func (p *Parser) errorAt(line int, format string, args ...any) error {
	return errors.Newf(errors.ErrParse, format, args...).WithLine(line).WithName(p.name)
}

func (p *Parser) expandSpan(start Span) Span {
	return Span{
		StartLine:   start.StartLine,
		StartCol:    start.StartCol,
		StartOffset: start.StartOffset,
		EndLine:     p.lastSpan.EndLine,
		EndCol:      p.lastSpan.EndCol,
		EndOffset:   p.lastSpan.EndOffset,
	}
}

// PushBlock records that the parser entered the named block.
func (p *Parser) PushBlock(name string) {
	p.blockStack = append(p.blockStack, name)
}

// PopBlock leaves the innermost block.
func (p *Parser) PopBlock() {
	if len(p.blockStack) > 0 {
		p.blockStack = p.blockStack[:len(p.blockStack)-1]
	}
}

// PeekBlock returns the innermost enclosing block name, or "".
func (p *Parser) PeekBlock() string {
	if len(p.blockStack) == 0 {
		return ""
	}
	return p.blockStack[len(p.blockStack)-1]
}

// RegisterBlock adds a block to the current block registry.
func (p *Parser) RegisterBlock(b *Block, line int) error {
	scope := p.blockScopes[len(p.blockScopes)-1]
	if _, ok := scope[b.Name]; ok {
		return p.errorAt(line, "Block [%s] has already been defined", b.Name)
	}
	scope[b.Name] = b
	return nil
}

// PushBlockScope starts a separate block registry, used by embed.
func (p *Parser) PushBlockScope() map[string]*Block {
	scope := make(map[string]*Block)
	p.blockScopes = append(p.blockScopes, scope)
	return scope
}

// PopBlockScope ends the registry started by PushBlockScope.
func (p *Parser) PopBlockScope() {
	p.blockScopes = p.blockScopes[:len(p.blockScopes)-1]
}

// RegisterMacro records a macro definition.
func (p *Parser) RegisterMacro(m *Macro, line int) error {
	if _, ok := p.macros[m.Name]; ok || p.macroAliases[m.Name] {
		return p.errorAt(line, "More than one macro can not share the same name: %s", m.Name)
	}
	p.macros[m.Name] = m
	return nil
}

// RegisterMacroAlias records a name bound by a from-import.
func (p *Parser) RegisterMacroAlias(alias string, line int) error {
	if _, ok := p.macros[alias]; ok || p.macroAliases[alias] {
		return p.errorAt(line, "More than one macro can not share the same name: %s", alias)
	}
	p.macroAliases[alias] = true
	return nil
}

// RegisterNamedImport records the alias of an "import ... as" statement.
func (p *Parser) RegisterNamedImport(alias string, line int) error {
	if p.namedImports[alias] {
		return p.errorAt(line, "More than one named template can not share the same name: %s", alias)
	}
	p.namedImports[alias] = true
	return nil
}

// StopAt returns a stop condition for Subparse matching any of the tag names.
func StopAt(names ...string) func(lexer.Token) bool {
	return func(tok lexer.Token) bool {
		return tok.Test(lexer.TokenName, names...)
	}
}

// Subparse parses statements until stop matches the tag name following a
// "{%". The stream is then positioned on that tag name. A nil stop parses to
// the end of the template.
func (p *Parser) Subparse(stop func(lexer.Token) bool) ([]Stmt, error) {
	var stmts []Stmt

	for {
		tok := p.Current()
		switch tok.Type {
		case lexer.TokenEOF:
			if stop != nil {
				return nil, p.Errorf("Unexpected end of template")
			}
			return stmts, nil

		case lexer.TokenText:
			p.Next()
			stmts = append(stmts, &Text{Data: tok.Value, span: tok.Span})

		case lexer.TokenPrintStart:
			p.Next()
			expr, err := p.ParseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.Expect(lexer.TokenPrintEnd); err != nil {
				return nil, err
			}
			stmts = append(stmts, &Print{Expr: expr, span: p.expandSpan(tok.Span)})

		case lexer.TokenExecuteStart:
			p.Next()
			nameTok := p.Current()
			if nameTok.Type != lexer.TokenName {
				return nil, p.Errorf("A block must start with a tag name")
			}
			if stop != nil && stop(nameTok) {
				return stmts, nil
			}
			handler, ok := p.opts.Tags[nameTok.Value]
			if !ok {
				return nil, p.Errorf("Unexpected tag name [%s]", nameTok.Value)
			}
			p.Next()
			stmt, err := handler.Parse(p, nameTok)
			if err != nil {
				return nil, err
			}
			if stmt != nil {
				stmts = append(stmts, stmt)
			}

		default:
			return nil, p.Errorf("Parser ended in undefined state")
		}
	}
}

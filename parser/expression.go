package parser

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pebbletemplates/pebble-go/lexer"
	"github.com/pebbletemplates/pebble-go/value"
)

// ParseExpression parses a full expression, including a trailing ternary.
func (p *Parser) ParseExpression() (Expr, error) {
	return p.parseExpression(0)
}

func (p *Parser) parseExpression(minPrecedence int) (Expr, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxRecursion {
		return nil, p.Errorf("Expression exceeds the maximum nesting depth")
	}

	start := p.Current()
	var left Expr
	var err error
	if op, ok := p.unaryOperator(start); ok {
		p.Next()
		operand, err := p.parseExpression(op.Precedence)
		if err != nil {
			return nil, err
		}
		left = op.Build(operand, p.expandSpan(start.Span))
	} else {
		left, err = p.parsePrimary()
		if err != nil {
			return nil, err
		}
	}

	for {
		tok := p.Current()
		op, ok := p.binaryOperator(tok)
		if !ok || op.Precedence < minPrecedence {
			break
		}
		p.Next()

		switch op.Kind {
		case OperatorFilter:
			left, err = p.parseFilter(left)
		case OperatorTest, OperatorNegatedTest:
			left, err = p.parseTest(left, op.Kind == OperatorNegatedTest)
		default:
			next := op.Precedence
			if op.Associativity == LeftAssociative {
				next++
			}
			var right Expr
			right, err = p.parseExpression(next)
			if err == nil {
				left = op.Build(left, right, p.expandSpan(left.Span()))
			}
		}
		if err != nil {
			return nil, err
		}
	}

	if minPrecedence == 0 && p.Test(lexer.TokenPunctuation, "?") {
		return p.parseTernary(left)
	}
	return left, nil
}

func (p *Parser) unaryOperator(tok lexer.Token) (*UnaryOperator, bool) {
	if tok.Type != lexer.TokenOperator {
		return nil, false
	}
	op, ok := p.opts.UnaryOperators[tok.Value]
	return op, ok
}

func (p *Parser) binaryOperator(tok lexer.Token) (*BinaryOperator, bool) {
	if tok.Type != lexer.TokenOperator {
		return nil, false
	}
	op, ok := p.opts.BinaryOperators[tok.Value]
	return op, ok
}

func (p *Parser) parseTernary(cond Expr) (Expr, error) {
	p.Next() // ?
	whenTrue, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.Expect(lexer.TokenPunctuation, ":"); err != nil {
		return nil, err
	}
	whenFalse, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	return &Ternary{Cond: cond, True: whenTrue, False: whenFalse, span: p.expandSpan(cond.Span())}, nil
}

func (p *Parser) parseFilter(input Expr) (Expr, error) {
	name, err := p.ExpectName()
	if err != nil {
		return nil, err
	}
	var args []Arg
	if p.Test(lexer.TokenPunctuation, "(") {
		if args, err = p.ParseArguments(); err != nil {
			return nil, err
		}
	}
	return &Filter{Name: name, Input: input, Args: args, span: p.expandSpan(input.Span())}, nil
}

func (p *Parser) parseTest(input Expr, negated bool) (Expr, error) {
	name, err := p.ExpectName()
	if err != nil {
		return nil, err
	}
	var args []Arg
	if p.Test(lexer.TokenPunctuation, "(") {
		if args, err = p.ParseArguments(); err != nil {
			return nil, err
		}
	}
	return &Test{Name: name, Input: input, Args: args, Negated: negated, span: p.expandSpan(input.Span())}, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.Current()
	var expr Expr
	var err error

	switch tok.Type {
	case lexer.TokenName:
		p.Next()
		switch tok.Value {
		case "true", "TRUE":
			expr = &Const{Value: value.True(), span: tok.Span}
		case "false", "FALSE":
			expr = &Const{Value: value.False(), span: tok.Span}
		case "null", "NULL", "none", "NONE":
			expr = &Const{Value: value.None(), span: tok.Span}
		default:
			if p.Test(lexer.TokenPunctuation, "(") {
				expr, err = p.parseCall(tok)
			} else {
				expr = &Var{Name: tok.Value, span: tok.Span}
			}
		}

	case lexer.TokenNumber, lexer.TokenLong:
		p.Next()
		expr, err = p.parseNumber(tok)

	case lexer.TokenString, lexer.TokenInterpolationStart:
		expr, err = p.parseString()

	case lexer.TokenPunctuation:
		switch tok.Value {
		case "(":
			p.Next()
			expr, err = p.ParseExpression()
			if err == nil {
				_, err = p.Expect(lexer.TokenPunctuation, ")")
			}
		case "[":
			expr, err = p.parseList()
		case "{":
			expr, err = p.parseMap()
		default:
			err = p.Errorf("Unexpected token [%s] of value [%s]", tok.Type, tok.Value)
		}

	case lexer.TokenEOF:
		err = p.Errorf("Unexpected end of template")

	default:
		err = p.Errorf("Unexpected token [%s] of value [%s]", tok.Type, tok.Value)
	}

	if err != nil {
		return nil, err
	}
	return p.parsePostfix(expr)
}

// parseCall parses name(args): parent(), block(name), or a function or macro
// invocation.
func (p *Parser) parseCall(name lexer.Token) (Expr, error) {
	args, err := p.ParseArguments()
	if err != nil {
		return nil, err
	}
	span := p.expandSpan(name.Span)

	switch name.Value {
	case "parent":
		if len(args) > 0 {
			return nil, p.errorAt(name.Line(), "parent() takes no arguments")
		}
		block := p.PeekBlock()
		if block == "" {
			return nil, p.errorAt(name.Line(), "parent() can only be used inside a block")
		}
		return &Parent{Block: block, span: span}, nil
	case "block":
		if len(args) != 1 || args[0].Name != "" {
			return nil, p.errorAt(name.Line(), "block() takes exactly one positional argument")
		}
		return &BlockRef{Name: args[0].Value, span: span}, nil
	}
	return &Call{Name: name.Value, Args: args, span: span}, nil
}

func (p *Parser) parseNumber(tok lexer.Token) (Expr, error) {
	v, err := p.numberLiteral(tok)
	if err != nil {
		return nil, err
	}
	return &Const{Value: v, span: tok.Span}, nil
}

func (p *Parser) numberLiteral(tok lexer.Token) (value.Value, error) {
	text := tok.Value
	if p.opts.LiteralNumbersAsBigDecimals {
		d, err := decimal.NewFromString(text)
		if err != nil {
			return value.Undefined(), p.errorAt(tok.Line(), "Invalid number literal [%s]", text)
		}
		return value.FromDecimal(d), nil
	}

	if tok.Type == lexer.TokenNumber && strings.Contains(text, ".") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return value.Undefined(), p.errorAt(tok.Line(), "Invalid number literal [%s]", text)
		}
		return value.FromFloat(f), nil
	}

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		b, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return value.Undefined(), p.errorAt(tok.Line(), "Invalid number literal [%s]", text)
		}
		return value.FromBigInt(b), nil
	}
	if tok.Type == lexer.TokenNumber && p.opts.LiteralDecimalTreatedAsInteger && n <= math.MaxInt32 {
		return value.FromInt32(int32(n)), nil
	}
	return value.FromInt(n), nil
}

// parseString parses a string literal, possibly interpolated, into a
// constant or a chain of concatenations.
func (p *Parser) parseString() (Expr, error) {
	start := p.Current()
	var parts []Expr
	interpolated := false
	prevLiteral := false

	for {
		tok := p.Current()
		if tok.Type == lexer.TokenString {
			if prevLiteral {
				return nil, p.Errorf("Unexpected string literal [%s]; adjacent strings must be joined with ~", tok.Value)
			}
			p.Next()
			parts = append(parts, &Const{Value: value.FromString(tok.Value), span: tok.Span})
			prevLiteral = true
			continue
		}
		if tok.Type == lexer.TokenInterpolationStart {
			p.Next()
			interpolated = true
			prevLiteral = false
			expr, err := p.ParseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.Expect(lexer.TokenInterpolationEnd); err != nil {
				return nil, err
			}
			parts = append(parts, expr)
			continue
		}
		break
	}

	if interpolated && len(parts) == 1 {
		parts = append([]Expr{&Const{Value: value.FromString(""), span: start.Span}}, parts...)
	}
	expr := parts[0]
	for _, part := range parts[1:] {
		expr = &BinOp{Op: BinOpConcat, Left: expr, Right: part, span: p.expandSpan(start.Span)}
	}
	return expr, nil
}

func (p *Parser) parseList() (Expr, error) {
	start := p.Next() // [
	var items []Expr
	for !p.Test(lexer.TokenPunctuation, "]") {
		if len(items) > 0 {
			if _, err := p.Expect(lexer.TokenPunctuation, ","); err != nil {
				return nil, err
			}
		}
		item, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	p.Next()
	return &List{Items: items, span: p.expandSpan(start.Span)}, nil
}

func (p *Parser) parseMap() (Expr, error) {
	start := p.Next() // {
	var pairs []MapPair
	for !p.Test(lexer.TokenPunctuation, "}") {
		if len(pairs) > 0 {
			if _, err := p.Expect(lexer.TokenPunctuation, ","); err != nil {
				return nil, err
			}
		}
		key, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.Expect(lexer.TokenPunctuation, ":"); err != nil {
			return nil, err
		}
		val, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, MapPair{Key: key, Value: val})
	}
	p.Next()
	return &MapLit{Pairs: pairs, span: p.expandSpan(start.Span)}, nil
}

// parsePostfix handles member access: obj.name, obj.name(args) and
// obj[expr].
func (p *Parser) parsePostfix(expr Expr) (Expr, error) {
	for {
		tok := p.Current()
		switch {
		case tok.Test(lexer.TokenPunctuation, "."):
			p.Next()
			attr := p.Next()
			if attr.Type != lexer.TokenName && attr.Type != lexer.TokenNumber {
				return nil, p.errorAt(attr.Line(), "Expected a name or a number after [.], got [%s]", attr.Value)
			}
			node := &GetAttr{
				Obj:  expr,
				Attr: &Const{Value: value.FromString(attr.Value), span: attr.Span},
			}
			if p.Test(lexer.TokenPunctuation, "(") {
				args, err := p.ParseArguments()
				if err != nil {
					return nil, err
				}
				for _, a := range args {
					if a.Name != "" {
						return nil, p.errorAt(attr.Line(), "Can not use named arguments when calling a bean method")
					}
					node.Args = append(node.Args, a.Value)
				}
				node.Call = true
			}
			node.span = p.expandSpan(expr.Span())
			expr = node

		case tok.Test(lexer.TokenPunctuation, "["):
			p.Next()
			key, err := p.ParseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.Expect(lexer.TokenPunctuation, "]"); err != nil {
				return nil, err
			}
			expr = &GetAttr{Obj: expr, Attr: key, Subscript: true, span: p.expandSpan(expr.Span())}

		default:
			return expr, nil
		}
	}
}

// ParseArguments parses a parenthesized argument list. Positional arguments
// must come before named ones (name=value).
func (p *Parser) ParseArguments() ([]Arg, error) {
	if _, err := p.Expect(lexer.TokenPunctuation, "("); err != nil {
		return nil, err
	}
	var args []Arg
	named := false
	for !p.Test(lexer.TokenPunctuation, ")") {
		if len(args) > 0 {
			if _, err := p.Expect(lexer.TokenPunctuation, ","); err != nil {
				return nil, err
			}
		}
		if p.Test(lexer.TokenName) && p.Peek(1).Test(lexer.TokenPunctuation, "=") {
			name := p.Next().Value
			p.Next() // =
			val, err := p.ParseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, Arg{Name: name, Value: val})
			named = true
			continue
		}
		if named {
			return nil, p.Errorf("Positional arguments must be declared before any named arguments.")
		}
		val, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, Arg{Value: val})
	}
	p.Next()
	return args, nil
}

// ParseNewVariableName parses the name of a variable being assigned.
func (p *Parser) ParseNewVariableName() (string, error) {
	tok := p.Current()
	name, err := p.ExpectName()
	if err != nil {
		return "", err
	}
	if reservedNames[name] {
		return "", p.errorAt(tok.Line(), "Can not assign a value to %s", name)
	}
	return name, nil
}

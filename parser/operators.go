package parser

import "github.com/pebbletemplates/pebble-go/value"

// Associativity of a binary operator.
type Associativity int

const (
	LeftAssociative Associativity = iota
	RightAssociative
)

// OperatorKind selects how the right-hand side of a binary operator is
// parsed.
type OperatorKind int

const (
	// OperatorNormal parses an expression on the right.
	OperatorNormal OperatorKind = iota
	// OperatorFilter parses a filter name with optional arguments.
	OperatorFilter
	// OperatorTest parses a test name with optional arguments.
	OperatorTest
	// OperatorNegatedTest is OperatorTest with the result inverted.
	OperatorNegatedTest
)

// BinaryOperator describes an infix operator.
//
// Build creates the node for a normal operator. Filter and test operators
// ignore it and produce Filter and Test nodes.
type BinaryOperator struct {
	Symbol        string
	Precedence    int
	Associativity Associativity
	Kind          OperatorKind
	Build         func(left, right Expr, span Span) Expr
}

// UnaryOperator describes a prefix operator.
type UnaryOperator struct {
	Symbol     string
	Precedence int
	Build      func(operand Expr, span Span) Expr
}

func binary(symbol string, precedence int, kind BinOpKind) *BinaryOperator {
	return &BinaryOperator{
		Symbol:     symbol,
		Precedence: precedence,
		Build: func(left, right Expr, span Span) Expr {
			return NewBinOp(kind, left, right, span)
		},
	}
}

func unary(symbol string, precedence int, kind UnaryOpKind) *UnaryOperator {
	return &UnaryOperator{
		Symbol:     symbol,
		Precedence: precedence,
		Build: func(operand Expr, span Span) Expr {
			return NewUnaryOp(kind, operand, span)
		},
	}
}

// CoreBinaryOperators returns the built-in binary operators.
func CoreBinaryOperators() []*BinaryOperator {
	return []*BinaryOperator{
		binary("or", 10, BinOpOr),
		binary("and", 15, BinOpAnd),
		{Symbol: "is", Precedence: 20, Kind: OperatorTest},
		{Symbol: "is not", Precedence: 20, Kind: OperatorNegatedTest},
		binary("contains", 20, BinOpContains),
		binary("==", 30, BinOpEq),
		binary("equals", 30, BinOpEq),
		binary("!=", 30, BinOpNe),
		binary(">", 30, BinOpGt),
		binary("<", 30, BinOpLt),
		binary(">=", 30, BinOpGte),
		binary("<=", 30, BinOpLte),
		binary("+", 40, BinOpAdd),
		binary("-", 40, BinOpSub),
		binary("*", 60, BinOpMul),
		binary("/", 60, BinOpDiv),
		binary("%", 60, BinOpMod),
		{Symbol: "|", Precedence: 100, Kind: OperatorFilter},
		binary("~", 110, BinOpConcat),
		binary("..", 120, BinOpRange),
	}
}

// CoreUnaryOperators returns the built-in unary operators.
func CoreUnaryOperators() []*UnaryOperator {
	return []*UnaryOperator{
		unary("not", 5, UnaryNot),
		unary("+", 500, UnaryPos),
		unary("-", 500, UnaryNeg),
	}
}

// Constructors for nodes built outside the parser.

// NewBinOp creates a binary operation node.
func NewBinOp(op BinOpKind, left, right Expr, span Span) *BinOp {
	return &BinOp{Op: op, Left: left, Right: right, span: span}
}

// NewUnaryOp creates a unary operation node.
func NewUnaryOp(op UnaryOpKind, operand Expr, span Span) *UnaryOp {
	return &UnaryOp{Op: op, Expr: operand, span: span}
}

// NewFilter creates a filter application node.
func NewFilter(name string, input Expr, args []Arg, span Span) *Filter {
	return &Filter{Name: name, Input: input, Args: args, span: span}
}

// NewConst creates a literal node.
func NewConst(v value.Value, span Span) *Const {
	return &Const{Value: v, span: span}
}

package parser

import (
	"sync"

	"github.com/pebbletemplates/pebble-go/lexer"
	"github.com/pebbletemplates/pebble-go/value"
)

// Span represents a location range in source code.
type Span = lexer.Span

// Node is the interface implemented by all AST nodes.
type Node interface {
	node()
	Span() Span
}

// Stmt represents a statement node.
type Stmt interface {
	Node
	stmt()
}

// Expr represents an expression node.
type Expr interface {
	Node
	expr()
}

// BaseStmt can be embedded by statement nodes defined outside this package,
// such as the nodes produced by custom tags.
type BaseStmt struct {
	NodeSpan Span
}

func (b *BaseStmt) node()      {}
func (b *BaseStmt) stmt()      {}
func (b *BaseStmt) Span() Span { return b.NodeSpan }

// BaseExpr can be embedded by expression nodes defined outside this
// package, such as the nodes built by custom operators.
type BaseExpr struct {
	NodeSpan Span
}

func (b *BaseExpr) node()      {}
func (b *BaseExpr) expr()      {}
func (b *BaseExpr) Span() Span { return b.NodeSpan }

// --- Statement Types ---

// Template is the root node of a parsed template.
type Template struct {
	Name     string
	Children []Stmt
	// Blocks and Macros index the top-level definitions by name. Blocks
	// inside an embed tag belong to the Embed node instead.
	Blocks map[string]*Block
	Macros map[string]*Macro
	span   Span
}

func (t *Template) node()      {}
func (t *Template) stmt()      {}
func (t *Template) Span() Span { return t.span }

// Text outputs raw template text.
type Text struct {
	Data string
	span Span
}

func (t *Text) node()      {}
func (t *Text) stmt()      {}
func (t *Text) Span() Span { return t.span }

// Print outputs the result of an expression. The auto-escape pass may
// replace Expr.
type Print struct {
	Expr Expr
	span Span
}

func (p *Print) node()      {}
func (p *Print) stmt()      {}
func (p *Print) Span() Span { return p.span }

// IfBranch is a single condition of an if statement.
type IfBranch struct {
	Cond Expr
	Body []Stmt
}

// If represents an if/elseif/else chain.
type If struct {
	Branches []IfBranch
	Else     []Stmt
	span     Span
}

func (i *If) node()      {}
func (i *If) stmt()      {}
func (i *If) Span() Span { return i.span }

// For represents a for loop.
type For struct {
	Var  string
	Iter Expr
	Body []Stmt
	Else []Stmt
	span Span
}

func (f *For) node()      {}
func (f *For) stmt()      {}
func (f *For) Span() Span { return f.span }

// Set represents a variable assignment.
type Set struct {
	Name  string
	Value Expr
	span  Span
}

func (s *Set) node()      {}
func (s *Set) stmt()      {}
func (s *Set) Span() Span { return s.span }

// SetBlock captures the rendered body into a variable.
type SetBlock struct {
	Name string
	Body []Stmt
	span Span
}

func (s *SetBlock) node()      {}
func (s *SetBlock) stmt()      {}
func (s *SetBlock) Span() Span { return s.span }

// Block represents an overridable template block.
type Block struct {
	Name string
	Body []Stmt
	span Span
}

func (b *Block) node()      {}
func (b *Block) stmt()      {}
func (b *Block) Span() Span { return b.span }

// Extends declares the parent template.
type Extends struct {
	Parent Expr
	span   Span
}

func (e *Extends) node()      {}
func (e *Extends) stmt()      {}
func (e *Extends) Span() Span { return e.span }

// Include renders another template in place.
type Include struct {
	Name Expr
	With Expr // optional map expression
	span Span
}

func (i *Include) node()      {}
func (i *Include) stmt()      {}
func (i *Include) Span() Span { return i.span }

// Embed renders another template while overriding some of its blocks.
type Embed struct {
	Name   Expr
	With   Expr // optional map expression
	Blocks map[string]*Block
	span   Span
}

func (e *Embed) node()      {}
func (e *Embed) stmt()      {}
func (e *Embed) Span() Span { return e.span }

// Import makes the macros of another template available, either directly
// or under an alias.
type Import struct {
	Name  Expr
	Alias string // empty for a plain import
	span  Span
}

func (i *Import) node()      {}
func (i *Import) stmt()      {}
func (i *Import) Span() Span { return i.span }

// ImportName is a single macro imported by a from statement.
type ImportName struct {
	Name  string
	Alias string
}

// FromImport imports selected macros of another template.
type FromImport struct {
	Name  Expr
	Names []ImportName
	span  Span
}

func (f *FromImport) node()      {}
func (f *FromImport) stmt()      {}
func (f *FromImport) Span() Span { return f.span }

// MacroArg is a declared macro parameter with an optional default.
type MacroArg struct {
	Name    string
	Default Expr
}

// Macro represents a macro definition.
type Macro struct {
	Name string
	Args []MacroArg
	Body []Stmt
	span Span
}

func (m *Macro) node()      {}
func (m *Macro) stmt()      {}
func (m *Macro) Span() Span { return m.span }

// AutoEscape changes the escaping strategy for its body. Strategy is empty
// when the tag names none.
type AutoEscape struct {
	Active   bool
	Strategy string
	Body     []Stmt
	span     Span
}

func (a *AutoEscape) node()      {}
func (a *AutoEscape) stmt()      {}
func (a *AutoEscape) Span() Span { return a.span }

// FilterBlock applies a chain of filters to its rendered body. The input of
// the innermost filter is a BodyRef.
type FilterBlock struct {
	Filter Expr
	Body   []Stmt
	span   Span
}

func (f *FilterBlock) node()      {}
func (f *FilterBlock) stmt()      {}
func (f *FilterBlock) Span() Span { return f.span }

// CacheBlock renders its body once per name and locale.
type CacheBlock struct {
	Name Expr
	Body []Stmt
	span Span
}

func (c *CacheBlock) node()      {}
func (c *CacheBlock) stmt()      {}
func (c *CacheBlock) Span() Span { return c.span }

// Parallel renders its body on the engine's executor.
type Parallel struct {
	Body []Stmt
	span Span
}

func (p *Parallel) node()      {}
func (p *Parallel) stmt()      {}
func (p *Parallel) Span() Span { return p.span }

// Flush waits for pending output and flushes the writer.
type Flush struct {
	span Span
}

func (f *Flush) node()      {}
func (f *Flush) stmt()      {}
func (f *Flush) Span() Span { return f.span }

// --- Expression Types ---

// Var reads a variable from the context.
type Var struct {
	Name string
	span Span
}

func (v *Var) node()      {}
func (v *Var) expr()      {}
func (v *Var) Span() Span { return v.span }

// Const is a literal value.
type Const struct {
	Value value.Value
	span  Span
}

func (c *Const) node()      {}
func (c *Const) expr()      {}
func (c *Const) Span() Span { return c.span }

// List is a list literal.
type List struct {
	Items []Expr
	span  Span
}

func (l *List) node()      {}
func (l *List) expr()      {}
func (l *List) Span() Span { return l.span }

// MapPair is one entry of a map literal.
type MapPair struct {
	Key   Expr
	Value Expr
}

// MapLit is a map literal.
type MapLit struct {
	Pairs []MapPair
	span  Span
}

func (m *MapLit) node()      {}
func (m *MapLit) expr()      {}
func (m *MapLit) Span() Span { return m.span }

// UnaryOpKind represents the type of unary operator.
type UnaryOpKind int

const (
	UnaryNot UnaryOpKind = iota
	UnaryNeg
	UnaryPos
)

func (k UnaryOpKind) String() string {
	switch k {
	case UnaryNot:
		return "not"
	case UnaryNeg:
		return "-"
	case UnaryPos:
		return "+"
	}
	return "?"
}

// UnaryOp represents a unary operation.
type UnaryOp struct {
	Op   UnaryOpKind
	Expr Expr
	span Span
}

func (u *UnaryOp) node()      {}
func (u *UnaryOp) expr()      {}
func (u *UnaryOp) Span() Span { return u.span }

// BinOpKind represents the type of binary operator.
type BinOpKind int

const (
	BinOpOr BinOpKind = iota
	BinOpAnd
	BinOpEq
	BinOpNe
	BinOpLt
	BinOpLte
	BinOpGt
	BinOpGte
	BinOpContains
	BinOpAdd
	BinOpSub
	BinOpMul
	BinOpDiv
	BinOpMod
	BinOpConcat
	BinOpRange
)

func (k BinOpKind) String() string {
	switch k {
	case BinOpOr:
		return "or"
	case BinOpAnd:
		return "and"
	case BinOpEq:
		return "=="
	case BinOpNe:
		return "!="
	case BinOpLt:
		return "<"
	case BinOpLte:
		return "<="
	case BinOpGt:
		return ">"
	case BinOpGte:
		return ">="
	case BinOpContains:
		return "contains"
	case BinOpAdd:
		return "+"
	case BinOpSub:
		return "-"
	case BinOpMul:
		return "*"
	case BinOpDiv:
		return "/"
	case BinOpMod:
		return "%"
	case BinOpConcat:
		return "~"
	case BinOpRange:
		return ".."
	}
	return "?"
}

// BinOp represents a binary operation.
type BinOp struct {
	Op    BinOpKind
	Left  Expr
	Right Expr
	span  Span
}

func (b *BinOp) node()      {}
func (b *BinOp) expr()      {}
func (b *BinOp) Span() Span { return b.span }

// Ternary represents a conditional expression: cond ? a : b.
type Ternary struct {
	Cond  Expr
	True  Expr
	False Expr
	span  Span
}

func (t *Ternary) node()      {}
func (t *Ternary) expr()      {}
func (t *Ternary) Span() Span { return t.span }

// Arg is a call argument. Name is empty for positional arguments.
type Arg struct {
	Name  string
	Value Expr
}

// Filter applies a named filter to Input.
type Filter struct {
	Name  string
	Input Expr
	Args  []Arg
	span  Span
}

func (f *Filter) node()      {}
func (f *Filter) expr()      {}
func (f *Filter) Span() Span { return f.span }

// Test applies a named test to Input.
type Test struct {
	Name    string
	Input   Expr
	Args    []Arg
	Negated bool
	span    Span
}

func (t *Test) node()      {}
func (t *Test) expr()      {}
func (t *Test) Span() Span { return t.span }

// Call invokes a function or a macro by name.
type Call struct {
	Name string
	Args []Arg
	span Span
}

func (c *Call) node()      {}
func (c *Call) expr()      {}
func (c *Call) Span() Span { return c.span }

// GetAttr reads a member of Obj: obj.name, obj.name(args) or obj[expr].
//
// Accessors is a per-node cache owned by the attribute resolver. It maps a
// runtime shape to the member that resolved for it and is safe for
// concurrent use.
type GetAttr struct {
	Obj       Expr
	Attr      Expr
	Args      []Expr
	Call      bool // arguments were given, even if empty
	Subscript bool // written as obj[attr]
	Accessors sync.Map
	span      Span
}

func (g *GetAttr) node()      {}
func (g *GetAttr) expr()      {}
func (g *GetAttr) Span() Span { return g.span }

// Parent renders the overridden version of the enclosing block.
type Parent struct {
	Block string
	span  Span
}

func (p *Parent) node()      {}
func (p *Parent) expr()      {}
func (p *Parent) Span() Span { return p.span }

// BlockRef renders a block by name: block("title").
type BlockRef struct {
	Name Expr
	span Span
}

func (b *BlockRef) node()      {}
func (b *BlockRef) expr()      {}
func (b *BlockRef) Span() Span { return b.span }

// BodyRef is the placeholder input of a filter block's filter chain.
type BodyRef struct {
	span Span
}

func (b *BodyRef) node()      {}
func (b *BodyRef) expr()      {}
func (b *BodyRef) Span() Span { return b.span }

// Line returns the line a node starts on.
func Line(n Node) int {
	return n.Span().StartLine
}

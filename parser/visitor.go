package parser

// Visitor is called by Walk for every node. If the returned visitor is
// non-nil, Walk visits the children of the node with it and then calls
// Visit(nil).
type Visitor interface {
	Visit(n Node) Visitor
}

// Parent nodes defined outside this package can expose their children by
// implementing Children.
type Children interface {
	Children() []Node
}

// Walk traverses an AST in depth-first order.
func Walk(v Visitor, n Node) {
	if n == nil {
		return
	}
	if v = v.Visit(n); v == nil {
		return
	}

	switch n := n.(type) {
	case *Template:
		walkStmts(v, n.Children)
	case *Text, *Flush, *Var, *Const, *Parent, *BodyRef:
	case *Print:
		Walk(v, n.Expr)
	case *If:
		for _, b := range n.Branches {
			Walk(v, b.Cond)
			walkStmts(v, b.Body)
		}
		walkStmts(v, n.Else)
	case *For:
		Walk(v, n.Iter)
		walkStmts(v, n.Body)
		walkStmts(v, n.Else)
	case *Set:
		Walk(v, n.Value)
	case *SetBlock:
		walkStmts(v, n.Body)
	case *Block:
		walkStmts(v, n.Body)
	case *Extends:
		Walk(v, n.Parent)
	case *Include:
		Walk(v, n.Name)
		walkOptional(v, n.With)
	case *Embed:
		Walk(v, n.Name)
		walkOptional(v, n.With)
		for _, name := range sortedBlockNames(n.Blocks) {
			Walk(v, n.Blocks[name])
		}
	case *Import:
		Walk(v, n.Name)
	case *FromImport:
		Walk(v, n.Name)
	case *Macro:
		for _, a := range n.Args {
			walkOptional(v, a.Default)
		}
		walkStmts(v, n.Body)
	case *AutoEscape:
		walkStmts(v, n.Body)
	case *FilterBlock:
		Walk(v, n.Filter)
		walkStmts(v, n.Body)
	case *CacheBlock:
		Walk(v, n.Name)
		walkStmts(v, n.Body)
	case *Parallel:
		walkStmts(v, n.Body)
	case *List:
		for _, item := range n.Items {
			Walk(v, item)
		}
	case *MapLit:
		for _, pair := range n.Pairs {
			Walk(v, pair.Key)
			Walk(v, pair.Value)
		}
	case *UnaryOp:
		Walk(v, n.Expr)
	case *BinOp:
		Walk(v, n.Left)
		Walk(v, n.Right)
	case *Ternary:
		Walk(v, n.Cond)
		Walk(v, n.True)
		Walk(v, n.False)
	case *Filter:
		Walk(v, n.Input)
		walkArgs(v, n.Args)
	case *Test:
		Walk(v, n.Input)
		walkArgs(v, n.Args)
	case *Call:
		walkArgs(v, n.Args)
	case *GetAttr:
		Walk(v, n.Obj)
		Walk(v, n.Attr)
		for _, a := range n.Args {
			Walk(v, a)
		}
	case *BlockRef:
		Walk(v, n.Name)
	case Children:
		for _, c := range n.Children() {
			Walk(v, c)
		}
	}

	v.Visit(nil)
}

func walkStmts(v Visitor, stmts []Stmt) {
	for _, s := range stmts {
		Walk(v, s)
	}
}

func walkArgs(v Visitor, args []Arg) {
	for _, a := range args {
		Walk(v, a.Value)
	}
}

func walkOptional(v Visitor, e Expr) {
	if e != nil {
		Walk(v, e)
	}
}

type inspector func(Node) bool

func (f inspector) Visit(n Node) Visitor {
	if n != nil && f(n) {
		return f
	}
	return nil
}

// Inspect walks the AST calling f for every node. Children are skipped when
// f returns false.
func Inspect(n Node, f func(Node) bool) {
	Walk(inspector(f), n)
}

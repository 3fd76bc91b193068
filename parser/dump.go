package parser

import (
	"fmt"
	"sort"
	"strings"
)

// Dump renders a node as an indented s-expression. It is meant for tests
// and debugging; the format is not stable.
func Dump(n Node) string {
	var sb strings.Builder
	d := dumper{sb: &sb}
	d.node(n, 0)
	return sb.String()
}

type dumper struct {
	sb *strings.Builder
}

func (d dumper) line(depth int, format string, args ...any) {
	d.sb.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(d.sb, format, args...)
	d.sb.WriteByte('\n')
}

func (d dumper) stmts(label string, stmts []Stmt, depth int) {
	if len(stmts) == 0 {
		return
	}
	d.line(depth, "%s:", label)
	for _, s := range stmts {
		d.node(s, depth+1)
	}
}

func (d dumper) node(n Node, depth int) {
	switch n := n.(type) {
	case *Template:
		d.line(depth, "Template %q", n.Name)
		for _, s := range n.Children {
			d.node(s, depth+1)
		}
	case *Text:
		d.line(depth, "Text %q", n.Data)
	case *Print:
		d.line(depth, "Print %s", expr(n.Expr))
	case *If:
		d.line(depth, "If")
		for _, b := range n.Branches {
			d.stmts("when "+expr(b.Cond), b.Body, depth+1)
		}
		d.stmts("else", n.Else, depth+1)
	case *For:
		d.line(depth, "For %s in %s", n.Var, expr(n.Iter))
		d.stmts("body", n.Body, depth+1)
		d.stmts("else", n.Else, depth+1)
	case *Set:
		d.line(depth, "Set %s = %s", n.Name, expr(n.Value))
	case *SetBlock:
		d.line(depth, "SetBlock %s", n.Name)
		d.stmts("body", n.Body, depth+1)
	case *Block:
		d.line(depth, "Block %s", n.Name)
		d.stmts("body", n.Body, depth+1)
	case *Extends:
		d.line(depth, "Extends %s", expr(n.Parent))
	case *Include:
		d.line(depth, "Include %s%s", expr(n.Name), with(n.With))
	case *Embed:
		d.line(depth, "Embed %s%s", expr(n.Name), with(n.With))
		for _, name := range sortedBlockNames(n.Blocks) {
			d.node(n.Blocks[name], depth+1)
		}
	case *Import:
		if n.Alias != "" {
			d.line(depth, "Import %s as %s", expr(n.Name), n.Alias)
		} else {
			d.line(depth, "Import %s", expr(n.Name))
		}
	case *FromImport:
		names := make([]string, len(n.Names))
		for i, in := range n.Names {
			names[i] = in.Name + " as " + in.Alias
		}
		d.line(depth, "FromImport %s [%s]", expr(n.Name), strings.Join(names, ", "))
	case *Macro:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = a.Name
			if a.Default != nil {
				args[i] += "=" + expr(a.Default)
			}
		}
		d.line(depth, "Macro %s(%s)", n.Name, strings.Join(args, ", "))
		d.stmts("body", n.Body, depth+1)
	case *AutoEscape:
		d.line(depth, "AutoEscape active=%t strategy=%q", n.Active, n.Strategy)
		d.stmts("body", n.Body, depth+1)
	case *FilterBlock:
		d.line(depth, "FilterBlock %s", expr(n.Filter))
		d.stmts("body", n.Body, depth+1)
	case *CacheBlock:
		d.line(depth, "Cache %s", expr(n.Name))
		d.stmts("body", n.Body, depth+1)
	case *Parallel:
		d.line(depth, "Parallel")
		d.stmts("body", n.Body, depth+1)
	case *Flush:
		d.line(depth, "Flush")
	case Expr:
		d.line(depth, "%s", expr(n))
	default:
		d.line(depth, "%T", n)
	}
}

func with(e Expr) string {
	if e == nil {
		return ""
	}
	return " with " + expr(e)
}

// expr renders an expression on one line.
func expr(e Expr) string {
	switch e := e.(type) {
	case nil:
		return "<nil>"
	case *Var:
		return e.Name
	case *Const:
		return e.Value.Repr()
	case *List:
		return "[" + exprs(e.Items) + "]"
	case *MapLit:
		pairs := make([]string, len(e.Pairs))
		for i, p := range e.Pairs {
			pairs[i] = expr(p.Key) + ": " + expr(p.Value)
		}
		return "{" + strings.Join(pairs, ", ") + "}"
	case *UnaryOp:
		return "(" + e.Op.String() + " " + expr(e.Expr) + ")"
	case *BinOp:
		return "(" + expr(e.Left) + " " + e.Op.String() + " " + expr(e.Right) + ")"
	case *Ternary:
		return "(" + expr(e.Cond) + " ? " + expr(e.True) + " : " + expr(e.False) + ")"
	case *Filter:
		return "(" + expr(e.Input) + " | " + e.Name + args(e.Args) + ")"
	case *Test:
		op := " is "
		if e.Negated {
			op = " is not "
		}
		return "(" + expr(e.Input) + op + e.Name + args(e.Args) + ")"
	case *Call:
		return e.Name + callArgs(e.Args)
	case *GetAttr:
		if e.Subscript {
			return expr(e.Obj) + "[" + expr(e.Attr) + "]"
		}
		s := expr(e.Obj) + "." + e.Attr.(*Const).Value.String()
		if e.Call {
			s += "(" + exprs(e.Args) + ")"
		}
		return s
	case *Parent:
		return "parent()"
	case *BlockRef:
		return "block(" + expr(e.Name) + ")"
	case *BodyRef:
		return "<body>"
	}
	return fmt.Sprintf("%T", e)
}

func exprs(items []Expr) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = expr(item)
	}
	return strings.Join(parts, ", ")
}

func args(a []Arg) string {
	if len(a) == 0 {
		return ""
	}
	return callArgs(a)
}

func callArgs(a []Arg) string {
	parts := make([]string, len(a))
	for i, arg := range a {
		if arg.Name != "" {
			parts[i] = arg.Name + "=" + expr(arg.Value)
		} else {
			parts[i] = expr(arg.Value)
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func sortedBlockNames(blocks map[string]*Block) []string {
	names := make([]string, 0, len(blocks))
	for name := range blocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

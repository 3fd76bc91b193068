package pebble

import (
	"github.com/pebbletemplates/pebble-go/internal/errors"
	"github.com/pebbletemplates/pebble-go/parser"
)

// attachErrorInfo locates err at node in the template currently rendering.
// Errors raised by nested templates keep the location they already carry.
// In debug mode the variables referenced by the node are recorded.
func (s *State) attachErrorInfo(err error, node parser.Node) error {
	if err == nil {
		return nil
	}
	e, ok := err.(*Error)
	if !ok {
		e = errors.Wrap(ErrEvaluation, err, err.Error())
	}
	if e.Name != "" {
		return e
	}
	e.WithName(s.self.name).WithSource(s.self.source)
	if node != nil {
		e.WithLine(parser.Line(node))
		if s.engine.debug && e.DebugInfo == nil {
			e.WithDebugInfo(s.makeDebugInfo(node))
		}
	}
	return e
}

func (s *State) makeDebugInfo(node parser.Node) errors.DebugInfo {
	locals := make(map[string]string)
	for _, expr := range headExprs(node) {
		parser.Inspect(expr, func(n parser.Node) bool {
			if v, ok := n.(*parser.Var); ok {
				if val, ok := s.scopes.get(v.Name); ok {
					locals[v.Name] = val.Repr()
				}
			}
			return true
		})
	}
	return errors.DebugInfo{Locals: locals}
}

// headExprs returns the expressions a statement evaluates itself, leaving
// out the statements of its body.
func headExprs(node parser.Node) []parser.Expr {
	switch n := node.(type) {
	case parser.Expr:
		return []parser.Expr{n}
	case *parser.Print:
		return []parser.Expr{n.Expr}
	case *parser.If:
		exprs := make([]parser.Expr, len(n.Branches))
		for i, b := range n.Branches {
			exprs[i] = b.Cond
		}
		return exprs
	case *parser.For:
		return []parser.Expr{n.Iter}
	case *parser.Set:
		return []parser.Expr{n.Value}
	case *parser.Extends:
		return []parser.Expr{n.Parent}
	case *parser.Include:
		return optionalExprs(n.Name, n.With)
	case *parser.Embed:
		return optionalExprs(n.Name, n.With)
	case *parser.Import:
		return []parser.Expr{n.Name}
	case *parser.FromImport:
		return []parser.Expr{n.Name}
	case *parser.FilterBlock:
		return []parser.Expr{n.Filter}
	case *parser.CacheBlock:
		return []parser.Expr{n.Name}
	}
	return nil
}

func optionalExprs(exprs ...parser.Expr) []parser.Expr {
	out := exprs[:0]
	for _, e := range exprs {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

package pebble

import (
	"github.com/pebbletemplates/pebble-go/internal/errors"
	"github.com/pebbletemplates/pebble-go/parser"
	"github.com/pebbletemplates/pebble-go/value"
)

func (s *State) eval(expr parser.Expr) (value.Value, error) {
	switch e := expr.(type) {
	case *parser.Const:
		return e.Value, nil
	case *parser.Var:
		return s.evalVar(e)
	case *parser.List:
		return s.evalList(e)
	case *parser.MapLit:
		return s.evalMap(e)
	case *parser.UnaryOp:
		return s.evalUnaryOp(e)
	case *parser.BinOp:
		return s.evalBinOp(e)
	case *parser.Ternary:
		cond, err := s.eval(e.Cond)
		if err != nil {
			return value.Undefined(), err
		}
		if cond.IsTrue() {
			return s.eval(e.True)
		}
		return s.eval(e.False)
	case *parser.Filter:
		return s.evalFilter(e)
	case *parser.Test:
		return s.evalTest(e)
	case *parser.Call:
		return s.evalCall(e)
	case *parser.GetAttr:
		return s.evalGetAttr(e)
	case *parser.Parent:
		return s.evalParent(e)
	case *parser.BlockRef:
		name, err := s.eval(e.Name)
		if err != nil {
			return value.Undefined(), err
		}
		out, err := s.capture(func() error { return s.block(s.self, name.String(), false) })
		if err != nil {
			return value.Undefined(), err
		}
		return value.FromSafeString(out), nil
	case *parser.BodyRef:
		return s.filterBody, nil
	case EvaluableExpr:
		return e.Evaluate(s)
	default:
		return value.Undefined(), errors.Newf(ErrEvaluation, "unsupported expression type: %T", expr)
	}
}

func (s *State) evalVar(v *parser.Var) (value.Value, error) {
	if t, ok := s.namedImports[v.Name]; ok {
		return value.FromAny(&importedTemplate{t: t}), nil
	}
	val, ok := s.scopes.get(v.Name)
	if !ok {
		if s.engine.strict {
			err := errors.Newf(ErrRootAttributeNotFound,
				"Root attribute [%s] does not exist or can not be accessed and strict variables is set to true.", v.Name)
			err.Attribute = v.Name
			return value.Undefined(), err
		}
		return value.Undefined(), nil
	}
	if _, ok := val.Raw().(contextMarker); ok {
		return value.FromMap(s.scopes.snapshot(map[string]bool{"_context": true})), nil
	}
	return val, nil
}

func (s *State) evalList(l *parser.List) (value.Value, error) {
	items := make([]value.Value, len(l.Items))
	for i, item := range l.Items {
		v, err := s.eval(item)
		if err != nil {
			return value.Undefined(), err
		}
		items[i] = v
	}
	return value.FromSlice(items), nil
}

func (s *State) evalMap(m *parser.MapLit) (value.Value, error) {
	out := value.NewMap()
	for _, pair := range m.Pairs {
		k, err := s.eval(pair.Key)
		if err != nil {
			return value.Undefined(), err
		}
		v, err := s.eval(pair.Value)
		if err != nil {
			return value.Undefined(), err
		}
		out.Set(k, v)
	}
	return value.FromMap(out), nil
}

func (s *State) evalUnaryOp(op *parser.UnaryOp) (value.Value, error) {
	v, err := s.eval(op.Expr)
	if err != nil {
		return value.Undefined(), err
	}
	switch op.Op {
	case parser.UnaryNot:
		return value.FromBool(!v.IsTrue()), nil
	case parser.UnaryNeg:
		return v.Neg()
	default:
		return v.Pos()
	}
}

func (s *State) evalBinOp(op *parser.BinOp) (value.Value, error) {
	left, err := s.eval(op.Left)
	if err != nil {
		return value.Undefined(), err
	}

	switch op.Op {
	case parser.BinOpAnd:
		if !left.IsTrue() {
			return value.False(), nil
		}
		right, err := s.eval(op.Right)
		if err != nil {
			return value.Undefined(), err
		}
		return value.FromBool(right.IsTrue()), nil
	case parser.BinOpOr:
		if left.IsTrue() {
			return value.True(), nil
		}
		right, err := s.eval(op.Right)
		if err != nil {
			return value.Undefined(), err
		}
		return value.FromBool(right.IsTrue()), nil
	}

	right, err := s.eval(op.Right)
	if err != nil {
		return value.Undefined(), err
	}

	switch op.Op {
	case parser.BinOpEq:
		return value.FromBool(left.Equal(right)), nil
	case parser.BinOpNe:
		return value.FromBool(!left.Equal(right)), nil
	case parser.BinOpLt, parser.BinOpLte, parser.BinOpGt, parser.BinOpGte:
		ok, err := value.CompareOp(op.Op.String(), left, right)
		if err != nil {
			return value.Undefined(), err
		}
		return value.FromBool(ok), nil
	case parser.BinOpContains:
		ok, err := left.Contains(right)
		if err != nil {
			return value.Undefined(), err
		}
		return value.FromBool(ok), nil
	case parser.BinOpAdd:
		return left.Add(right)
	case parser.BinOpSub:
		return left.Sub(right)
	case parser.BinOpMul:
		return left.Mul(right)
	case parser.BinOpDiv:
		return left.Div(right)
	case parser.BinOpMod:
		return left.Mod(right)
	case parser.BinOpConcat:
		return left.Concat(right), nil
	case parser.BinOpRange:
		return value.Range(left, right, value.FromInt(1))
	}
	return value.Undefined(), errors.Newf(ErrEvaluation, "unknown operator %s", op.Op)
}

// evalArgs evaluates call arguments, matching positional ones to names.
func (s *State) evalArgs(args []parser.Arg, names []string) (Args, error) {
	out := Args{names: names}
	for _, a := range args {
		v, err := s.eval(a.Value)
		if err != nil {
			return Args{}, err
		}
		if a.Name == "" {
			out.positional = append(out.positional, v)
			continue
		}
		if out.named == nil {
			out.named = make(map[string]value.Value)
		}
		out.named[a.Name] = v
	}
	return out, nil
}

// isNotFound reports whether err is one of the missing-variable errors
// that the default filter and the defined test treat as null.
func isNotFound(err error) bool {
	return IsKind(err, ErrAttributeNotFound) || IsKind(err, ErrRootAttributeNotFound)
}

func (s *State) evalFilter(f *parser.Filter) (value.Value, error) {
	filter, ok := s.engine.registry.filters[f.Name]
	if !ok {
		return value.Undefined(), errors.Newf(ErrEvaluation, "Filter [%s] does not exist.", f.Name)
	}
	input, err := s.eval(f.Input)
	if err != nil {
		if f.Name != "default" || !isNotFound(err) {
			return value.Undefined(), err
		}
		input = value.None()
	}
	if input.IsSafe() && f.Name != "escape" {
		input = value.FromString(input.String())
	}
	args, err := s.evalArgs(f.Args, filter.ArgNames)
	if err != nil {
		return value.Undefined(), err
	}
	return filter.Func(s, input, args)
}

func (s *State) evalTest(t *parser.Test) (value.Value, error) {
	test, ok := s.engine.registry.tests[t.Name]
	if !ok {
		return value.Undefined(), errors.Newf(ErrEvaluation, "Test [%s] does not exist.", t.Name)
	}
	input, err := s.eval(t.Input)
	if err != nil {
		if t.Name != "defined" || !isNotFound(err) {
			return value.Undefined(), err
		}
		input = value.None()
	}
	args, err := s.evalArgs(t.Args, test.ArgNames)
	if err != nil {
		return value.Undefined(), err
	}
	res, err := test.Func(s, input, args)
	if err != nil {
		return value.Undefined(), err
	}
	return value.FromBool(res != t.Negated), nil
}

func (s *State) evalCall(c *parser.Call) (value.Value, error) {
	if fn, ok := s.engine.registry.functions[c.Name]; ok {
		args, err := s.evalArgs(c.Args, fn.ArgNames)
		if err != nil {
			return value.Undefined(), err
		}
		return fn.Func(s, args)
	}

	owner, m, ok := s.findMacro(c.Name)
	if !ok {
		return value.Undefined(), errors.Newf(ErrEvaluation, "Function or Macro [%s] does not exist.", c.Name)
	}
	args, err := s.evalArgs(c.Args, nil)
	if err != nil {
		return value.Undefined(), err
	}
	return s.callMacro(owner, m, args.positional, args.named)
}

// findMacro looks a macro up in the inheritance chain (most-derived
// first), the current template, the from-imports and the plain imports.
func (s *State) findMacro(name string) (*Template, *parser.Macro, bool) {
	for _, t := range s.hier.templates {
		if m, ok := t.macro(name); ok {
			return t, m, true
		}
	}
	if m, ok := s.self.macro(name); ok {
		return s.self, m, true
	}
	if b, ok := s.fromImports[name]; ok {
		return b.owner, b.macro, true
	}
	for _, t := range s.imports {
		if m, ok := t.macro(name); ok {
			return t, m, true
		}
	}
	return nil, nil, false
}

// callMacro renders a macro body in a local scope and returns the output
// as a safe string. Argument defaults are evaluated in that scope;
// surplus positional arguments are ignored.
func (s *State) callMacro(owner *Template, m *parser.Macro, positional []value.Value, named map[string]value.Value) (value.Value, error) {
	if err := s.enter(); err != nil {
		return value.Undefined(), err
	}
	defer s.leave()

	prev := s.self
	s.self = owner
	defer func() { s.self = prev }()

	s.scopes.pushLocal()
	defer s.scopes.pop()
	for _, a := range m.Args {
		v := value.None()
		if a.Default != nil {
			var err error
			if v, err = s.eval(a.Default); err != nil {
				return value.Undefined(), err
			}
		}
		s.scopes.put(a.Name, v)
	}

	s.scopes.push()
	defer s.scopes.pop()
	for i, v := range positional {
		if i < len(m.Args) {
			s.scopes.put(m.Args[i].Name, v)
		}
	}
	for name, v := range named {
		s.scopes.put(name, v)
	}

	out, err := s.capture(func() error { return s.renderBody(m.Body) })
	if err != nil {
		return value.Undefined(), err
	}
	return value.FromSafeString(out), nil
}

func (s *State) evalGetAttr(g *parser.GetAttr) (value.Value, error) {
	obj, err := s.eval(g.Obj)
	if err != nil {
		return value.Undefined(), err
	}
	attr, err := s.eval(g.Attr)
	if err != nil {
		return value.Undefined(), err
	}

	if obj.IsNull() {
		if !s.engine.strict {
			return value.Undefined(), nil
		}
		if v, ok := g.Obj.(*parser.Var); ok {
			e := errors.Newf(ErrRootAttributeNotFound,
				"Root attribute [%s] does not exist or can not be accessed and strict variables is set to true.", v.Name)
			e.Attribute = attr.String()
			return value.Undefined(), e
		}
		e := errors.New(ErrRootAttributeNotFound,
			"Attempt to get attribute of null object and strict variables is set to true.")
		e.Attribute = attr.String()
		return value.Undefined(), e
	}

	args := make([]value.Value, len(g.Args))
	for i, a := range g.Args {
		if args[i], err = s.eval(a); err != nil {
			return value.Undefined(), err
		}
	}

	for _, r := range s.engine.resolvers {
		res, err := r.Resolve(s, obj, attr, args, g)
		if err != nil {
			return value.Undefined(), err
		}
		switch res.Status {
		case Found:
			return res.Value, nil
		case Denied:
			return value.Undefined(), errors.Newf(ErrMethodAccessDenied,
				"You are not allowed to access the method [%s] of [%s]", attr.String(), typeName(obj))
		}
	}

	if s.engine.strict {
		e := errors.Newf(ErrAttributeNotFound,
			"Attribute [%s] of [%s] does not exist or can not be accessed and strict variables is set to true.",
			attr.String(), typeName(obj))
		e.Attribute = attr.String()
		return value.Undefined(), e
	}
	return value.Undefined(), nil
}

func (s *State) evalParent(p *parser.Parent) (value.Value, error) {
	parent := s.hier.parent()
	if parent == nil {
		return value.Undefined(), errors.New(ErrEvaluation,
			"Can not use parent function if template does not extend another template.")
	}
	out, err := s.capture(func() error {
		s.hier.ascend()
		defer s.hier.descend()
		return s.block(parent, p.Block, true)
	})
	if err != nil {
		return value.Undefined(), err
	}
	return value.FromSafeString(out), nil
}

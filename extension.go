package pebble

import (
	"github.com/pebbletemplates/pebble-go/internal/errors"
	"github.com/pebbletemplates/pebble-go/parser"
	"github.com/pebbletemplates/pebble-go/value"
)

// Args holds the arguments of a filter, test or function call. Positional
// arguments are matched to the declared argument names by position.
type Args struct {
	names      []string
	positional []value.Value
	named      map[string]value.Value
}

// NewArgs creates an argument list. It is mostly useful in tests.
func NewArgs(names []string, positional []value.Value, named map[string]value.Value) Args {
	return Args{names: names, positional: positional, named: named}
}

// Get returns the argument with the given name, passed either by name or
// at the position the name was declared at.
func (a Args) Get(name string) (value.Value, bool) {
	if v, ok := a.named[name]; ok {
		return v, true
	}
	for i, n := range a.names {
		if n == name && i < len(a.positional) {
			return a.positional[i], true
		}
	}
	return value.Undefined(), false
}

// Value is Get without the presence flag.
func (a Args) Value(name string) value.Value {
	v, _ := a.Get(name)
	return v
}

// At returns the positional argument i, or undefined.
func (a Args) At(i int) value.Value {
	if i < 0 || i >= len(a.positional) {
		return value.Undefined()
	}
	return a.positional[i]
}

// Len returns the number of positional arguments.
func (a Args) Len() int {
	return len(a.positional)
}

// Positional returns the positional arguments.
func (a Args) Positional() []value.Value {
	return a.positional
}

// FilterFunc transforms the input of a filter.
type FilterFunc func(st *State, input value.Value, args Args) (value.Value, error)

// TestFunc implements an "is" test.
type TestFunc func(st *State, input value.Value, args Args) (bool, error)

// FunctionFunc implements a global function.
type FunctionFunc func(st *State, args Args) (value.Value, error)

// Filter describes a registered filter.
type Filter struct {
	Func     FilterFunc
	ArgNames []string
	// SafeOutput marks filters whose result must not be escaped again.
	SafeOutput bool
}

// Tester describes a registered test.
type Tester struct {
	Func     TestFunc
	ArgNames []string
}

// Function describes a registered function.
type Function struct {
	Func     FunctionFunc
	ArgNames []string
}

// NodeVisitorFactory creates a visitor that is run over every template
// after parsing. Visitors may rewrite the nodes they are handed.
type NodeVisitorFactory func(t *parser.Template) parser.Visitor

// Extension contributes filters, tests, functions, tags, operators, global
// variables, node visitors and attribute resolvers to an engine. Embed
// BaseExtension to implement only some of them.
type Extension interface {
	Filters() map[string]Filter
	Tests() map[string]Tester
	Functions() map[string]Function
	Tags() []parser.TagParser
	BinaryOperators() []*parser.BinaryOperator
	UnaryOperators() []*parser.UnaryOperator
	GlobalVariables() map[string]any
	NodeVisitors() []NodeVisitorFactory
	AttributeResolvers() []AttributeResolver
}

// BaseExtension contributes nothing.
type BaseExtension struct{}

func (BaseExtension) Filters() map[string]Filter                { return nil }
func (BaseExtension) Tests() map[string]Tester                  { return nil }
func (BaseExtension) Functions() map[string]Function            { return nil }
func (BaseExtension) Tags() []parser.TagParser                  { return nil }
func (BaseExtension) BinaryOperators() []*parser.BinaryOperator { return nil }
func (BaseExtension) UnaryOperators() []*parser.UnaryOperator   { return nil }
func (BaseExtension) GlobalVariables() map[string]any           { return nil }
func (BaseExtension) NodeVisitors() []NodeVisitorFactory        { return nil }
func (BaseExtension) AttributeResolvers() []AttributeResolver   { return nil }

// RenderableNode is implemented by statements created by custom tags.
type RenderableNode interface {
	parser.Stmt
	Render(st *State) error
}

// EvaluableExpr is implemented by expressions created by custom operators.
type EvaluableExpr interface {
	parser.Expr
	Evaluate(st *State) (value.Value, error)
}

// registry is the merged, read-only view of all extensions of an engine.
type registry struct {
	filters   map[string]Filter
	tests     map[string]Tester
	functions map[string]Function
	tags      map[string]parser.TagParser
	binary    map[string]*parser.BinaryOperator
	unary     map[string]*parser.UnaryOperator
	globals   map[string]value.Value
	visitors  []NodeVisitorFactory
	resolvers []AttributeResolver
}

// newRegistry merges extensions in order. Later filters, tests, functions,
// tags and globals replace earlier ones of the same name. Operators may
// only be replaced when allowOverride is set.
func newRegistry(exts []Extension, allowOverride bool) (*registry, error) {
	r := &registry{
		filters:   make(map[string]Filter),
		tests:     make(map[string]Tester),
		functions: make(map[string]Function),
		tags:      make(map[string]parser.TagParser),
		binary:    make(map[string]*parser.BinaryOperator),
		unary:     make(map[string]*parser.UnaryOperator),
		globals:   make(map[string]value.Value),
	}
	for _, ext := range exts {
		for name, f := range ext.Filters() {
			r.filters[name] = f
		}
		for name, t := range ext.Tests() {
			r.tests[name] = t
		}
		for name, f := range ext.Functions() {
			r.functions[name] = f
		}
		for _, t := range ext.Tags() {
			r.tags[t.Tag()] = t
		}
		for _, op := range ext.BinaryOperators() {
			if _, ok := r.binary[op.Symbol]; ok && !allowOverride {
				return nil, errors.Newf(ErrConfig, "Binary operator [%s] is already registered", op.Symbol)
			}
			r.binary[op.Symbol] = op
		}
		for _, op := range ext.UnaryOperators() {
			if _, ok := r.unary[op.Symbol]; ok && !allowOverride {
				return nil, errors.Newf(ErrConfig, "Unary operator [%s] is already registered", op.Symbol)
			}
			r.unary[op.Symbol] = op
		}
		for name, v := range ext.GlobalVariables() {
			r.globals[name] = value.FromAny(v)
		}
		r.visitors = append(r.visitors, ext.NodeVisitors()...)
		r.resolvers = append(r.resolvers, ext.AttributeResolvers()...)
	}
	return r, nil
}

func (r *registry) parserOptions() parser.Options {
	return parser.Options{
		BinaryOperators: r.binary,
		UnaryOperators:  r.unary,
		Tags:            r.tags,
	}
}

// coreExtension provides the built-in tags, operators, filters, tests and
// functions.
type coreExtension struct {
	BaseExtension
}

func (coreExtension) Filters() map[string]Filter                { return coreFilters() }
func (coreExtension) Tests() map[string]Tester                  { return coreTests() }
func (coreExtension) Functions() map[string]Function            { return coreFunctions() }
func (coreExtension) Tags() []parser.TagParser                  { return parser.CoreTags() }
func (coreExtension) BinaryOperators() []*parser.BinaryOperator { return parser.CoreBinaryOperators() }
func (coreExtension) UnaryOperators() []*parser.UnaryOperator   { return parser.CoreUnaryOperators() }

package pebble

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"text/template"

	"github.com/pebbletemplates/pebble-go/internal/errors"
	"github.com/pebbletemplates/pebble-go/parser"
	"github.com/pebbletemplates/pebble-go/value"
)

// EscapingStrategy escapes text for one output context.
type EscapingStrategy func(s string) string

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

func escapeHTML(s string) string {
	return htmlReplacer.Replace(s)
}

func escapeCSS(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r > 0x7f:
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, "\\%x ", r)
		}
	}
	return b.String()
}

func escapeJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}

func defaultStrategies() map[string]EscapingStrategy {
	return map[string]EscapingStrategy{
		"html":      escapeHTML,
		"js":        template.JSEscapeString,
		"css":       escapeCSS,
		"url_param": url.QueryEscape,
		"json":      escapeJSON,
	}
}

// escaper holds the auto-escaping configuration of an engine.
type escaper struct {
	active          bool
	defaultStrategy string
	strategies      map[string]EscapingStrategy
	// filters is consulted for safe-output filters while rewriting.
	filters map[string]Filter
}

func (e *escaper) escape(s, strategy string) (string, error) {
	if strategy == "" {
		strategy = e.defaultStrategy
	}
	fn, ok := e.strategies[strategy]
	if !ok {
		return "", errors.Newf(ErrEvaluation, "Unknown escaping strategy [%s]", strategy)
	}
	return fn(s), nil
}

func (e *escaper) escapeFilter(_ *State, input value.Value, args Args) (value.Value, error) {
	if input.IsNull() || input.IsSafe() {
		return input, nil
	}
	strategy, _ := args.Value("strategy").AsString()
	out, err := e.escape(input.String(), strategy)
	if err != nil {
		return value.Undefined(), err
	}
	return value.FromSafeString(out), nil
}

func rawFilter(_ *State, input value.Value, _ Args) (value.Value, error) {
	if s, ok := input.AsString(); ok {
		return value.FromSafeString(s), nil
	}
	return input, nil
}

// escaperExtension contributes the escape and raw filters and the visitor
// that wraps print statements in the escape filter.
type escaperExtension struct {
	BaseExtension
	e *escaper
}

func (x escaperExtension) Filters() map[string]Filter {
	return map[string]Filter{
		"escape": {Func: x.e.escapeFilter, ArgNames: []string{"strategy"}, SafeOutput: true},
		"raw":    {Func: rawFilter, SafeOutput: true},
	}
}

func (x escaperExtension) NodeVisitors() []NodeVisitorFactory {
	return []NodeVisitorFactory{func(*parser.Template) parser.Visitor {
		return &escapeVisitor{e: x.e, active: x.e.active, strategy: x.e.defaultStrategy}
	}}
}

type escapeVisitor struct {
	e        *escaper
	active   bool
	strategy string
}

func (v *escapeVisitor) Visit(n parser.Node) parser.Visitor {
	switch n := n.(type) {
	case *parser.AutoEscape:
		child := &escapeVisitor{e: v.e, active: n.Active, strategy: v.strategy}
		if n.Strategy != "" {
			child.strategy = n.Strategy
		}
		return child
	case *parser.Print:
		if v.active {
			n.Expr = v.wrap(n.Expr)
		}
	}
	return v
}

// wrap escapes an expression unless it is known to be safe. The branches
// of a ternary are handled one by one so that a safe branch stays as it is.
func (v *escapeVisitor) wrap(e parser.Expr) parser.Expr {
	if t, ok := e.(*parser.Ternary); ok {
		t.True = v.wrap(t.True)
		t.False = v.wrap(t.False)
		return t
	}
	if v.safe(e) {
		return e
	}
	strategy := parser.NewConst(value.FromString(v.strategy), e.Span())
	return parser.NewFilter("escape", e, []parser.Arg{{Name: "strategy", Value: strategy}}, e.Span())
}

func (v *escapeVisitor) safe(e parser.Expr) bool {
	switch e := e.(type) {
	case *parser.Const:
		return e.Value.Kind() == value.KindString
	case *parser.BinOp:
		if e.Op != parser.BinOpConcat {
			return false
		}
		l, lok := e.Left.(*parser.Const)
		r, rok := e.Right.(*parser.Const)
		return lok && rok && l.Value.Kind() == value.KindString && r.Value.Kind() == value.KindString
	case *parser.Parent, *parser.BlockRef:
		return true
	case *parser.Filter:
		return v.e.filters[e.Name].SafeOutput
	}
	return false
}

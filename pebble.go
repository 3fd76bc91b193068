// Package pebble is a template engine with the Pebble syntax.
//
// # Quick Start
//
//	engine, err := pebble.NewBuilder().
//		Loader(pebble.MemoryLoader{"hello.peb": "Hello {{ name }}!"}).
//		Build()
//	if err != nil {
//		log.Fatal(err)
//	}
//	tmpl, err := engine.GetTemplate("hello.peb")
//	if err != nil {
//		log.Fatal(err)
//	}
//	out, _ := tmpl.RenderString(map[string]any{"name": "World"})
//	fmt.Println(out) // Hello World!
//
// # Template Syntax
//
//   - Print: {{ user.name | upper }}
//   - Tags: {% if admin %}...{% elseif editor %}...{% else %}...{% endif %}
//   - Comments: {# not rendered #}
//   - Interpolation: {{ "Hello #{name}" }}
//   - Tests: {% if items is empty %}
//
// # Inheritance
//
// A template that extends another only contributes blocks, variables and
// imports. Rendering continues with the parent, whose blocks resolve to
// the most-derived override:
//
//	{# base.peb #}
//	<title>{% block title %}Site{% endblock %}</title>
//
//	{# page.peb #}
//	{% extends "base.peb" %}
//	{% block title %}Page - {{ parent() }}{% endblock %}
//
// # Macros
//
//	{% macro input(name, type="text") %}<input name="{{ name }}" type="{{ type }}">{% endmacro %}
//	{{ input("email", type="email") }}
//
// Macros of other templates are available through
// {% import "forms.peb" as forms %} and {% from "forms.peb" import input %}.
// A macro only sees its arguments and the global variables; pass _context
// to hand it the caller's variables.
//
// # Escaping
//
// Print statements are HTML-escaped unless their value is known to be safe:
// string literals, the output of parent(), block() and macros, and filters
// producing safe output such as raw and sanitize. The autoescape tag
// changes the strategy for a part of a template.
//
// # Extensions
//
// Filters, tests, functions, tags, operators, global variables, node
// visitors and attribute resolvers are contributed by an Extension:
//
//	type shout struct{ pebble.BaseExtension }
//
//	func (shout) Filters() map[string]pebble.Filter {
//		return map[string]pebble.Filter{
//			"shout": {Func: func(_ *pebble.State, in value.Value, _ pebble.Args) (value.Value, error) {
//				return value.FromString(strings.ToUpper(in.String()) + "!"), nil
//			}},
//		}
//	}
//
// # Errors
//
// Every error returned by the engine is an *Error carrying its ErrorKind,
// the template name and the line. Use IsKind to test for a kind:
//
//	if pebble.IsKind(err, pebble.ErrRootAttributeNotFound) { ... }
//
// # See Also
//
//   - lexer, parser: compilation front end
//   - value: dynamic values and number widening
//   - cmd/pebble: command line renderer
package pebble

import (
	"github.com/pebbletemplates/pebble-go/value"
)

// Value is a dynamically typed value in the template engine.
type Value = value.Value

// ValueKind describes the type of a Value.
type ValueKind = value.ValueKind

// Common value kinds
const (
	KindUndefined = value.KindUndefined
	KindNone      = value.KindNone
	KindBool      = value.KindBool
	KindNumber    = value.KindNumber
	KindString    = value.KindString
	KindSeq       = value.KindSeq
	KindMap       = value.KindMap
	KindPlain     = value.KindPlain
)

// Value constructors
var (
	Undefined      = value.Undefined
	None           = value.None
	FromBool       = value.FromBool
	FromInt        = value.FromInt
	FromFloat      = value.FromFloat
	FromString     = value.FromString
	FromSafeString = value.FromSafeString
	FromSlice      = value.FromSlice
	FromMap        = value.FromMap
	FromAny        = value.FromAny
)

package parser

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pebbletemplates/pebble-go/internal/errors"
	"github.com/pebbletemplates/pebble-go/lexer"
)

func parse(t *testing.T, source string) *Template {
	t.Helper()
	tmpl, err := ParseString(source, "t", lexer.DefaultSyntax(), DefaultOptions())
	if err != nil {
		t.Fatalf("parse %q: %v", source, err)
	}
	return tmpl
}

// printed returns the dumped expression of a template holding a single
// print statement.
func printed(t *testing.T, source string) string {
	t.Helper()
	tmpl := parse(t, source)
	if len(tmpl.Children) != 1 {
		t.Fatalf("expected one statement, got %d", len(tmpl.Children))
	}
	p, ok := tmpl.Children[0].(*Print)
	if !ok {
		t.Fatalf("expected print, got %T", tmpl.Children[0])
	}
	return expr(p.Expr)
}

func TestExpressionPrecedence(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"{{ 1 + 2 * 3 }}", "(1 + (2 * 3))"},
		{"{{ (1 + 2) * 3 }}", "((1 + 2) * 3)"},
		{"{{ 10 - 4 - 3 }}", "((10 - 4) - 3)"},
		{"{{ a or b and c }}", "(a or (b and c))"},
		{"{{ not a == b }}", "(not (a == b))"},
		{"{{ -2 + 3 }}", "((- 2) + 3)"},
		{"{{ a ~ b .. c }}", "(a ~ (b .. c))"},
		{"{{ 1..3 }}", "(1 .. 3)"},
		{"{{ a equals b }}", "(a == b)"},
		{"{{ items contains 2 }}", "(items contains 2)"},
		{"{{ name | upper | default('x') }}", "((name | upper) | default(\"x\"))"},
		{"{{ x is not defined }}", "(x is not defined)"},
		{"{{ x is divisibleby(3) }}", "(x is divisibleby(3))"},
		{"{{ a + b | abs }}", "(a + (b | abs))"},
		{"{{ a ? b : c }}", "(a ? b : c)"},
		{"{{ a > 1 ? 'big' : 'small' }}", "((a > 1) ? \"big\" : \"small\")"},
		{"{{ user.name }}", "user.name"},
		{"{{ user.get(1, 2) }}", "user.get(1, 2)"},
		{"{{ items[0].title }}", "items[0].title"},
		{"{{ [1, 'a', null] }}", "[1, \"a\", null]"},
		{"{{ {'a': 1, 2: true} }}", "{\"a\": 1, 2: true}"},
		{"{{ f(1, size=2) }}", "f(1, size=2)"},
		{"{{ block('title') }}", "block(\"title\")"},
		{`{{ "hello #{name}!" }}`, `(("hello " ~ name) ~ "!")`},
		{`{{ "#{name}" }}`, `("" ~ name)`},
		{"{{ 12L }}", "12"},
		{"{{ 1.5 }}", "1.5"},
		{"{{ TRUE }}", "true"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			if got := printed(t, tt.source); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNumberLiterals(t *testing.T) {
	tests := []struct {
		name   string
		source string
		opts   func(*Options)
		want   string
	}{
		{"long", "{{ 7 }}", nil, "Long"},
		{"double", "{{ 7.5 }}", nil, "Double"},
		{"big integer", "{{ 99999999999999999999 }}", nil, "BigInteger"},
		{"int literals", "{{ 7 }}", func(o *Options) { o.LiteralDecimalTreatedAsInteger = true }, "Integer"},
		{"decimal literals", "{{ 7.5 }}", func(o *Options) { o.LiteralNumbersAsBigDecimals = true }, "BigDecimal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}
			tmpl, err := ParseString(tt.source, "t", lexer.DefaultSyntax(), opts)
			if err != nil {
				t.Fatal(err)
			}
			c := tmpl.Children[0].(*Print).Expr.(*Const)
			kind, ok := c.Value.NumberKind()
			if !ok {
				t.Fatalf("%v is not a number", c.Value)
			}
			if kind.String() != tt.want {
				t.Errorf("kind = %s, want %s", kind, tt.want)
			}
		})
	}
}

func TestTags(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			"for with else",
			"{% for x in items %}{{ x }}{% else %}none{% endfor %}",
			`Template "t"
  For x in items
    body:
      Print x
    else:
      Text "none"
`,
		},
		{
			"if chain",
			"{% if a %}A{% elseif b %}B{% else %}C{% endif %}",
			`Template "t"
  If
    when a:
      Text "A"
    when b:
      Text "B"
    else:
      Text "C"
`,
		},
		{
			"set forms",
			"{% set x = 1 %}{% set y %}Y{% endset %}",
			`Template "t"
  Set x = 1
  SetBlock y
    body:
      Text "Y"
`,
		},
		{
			"macro",
			"{% macro input(name, type='text') %}{{ name }}{% endmacro input %}",
			`Template "t"
  Macro input(name, type="text")
    body:
      Print name
`,
		},
		{
			"imports",
			`{% import "forms.peb" as forms %}{% from "forms.peb" import input as field, label %}`,
			`Template "t"
  Import "forms.peb" as forms
  FromImport "forms.peb" [input as field, label as label]
`,
		},
		{
			"inheritance",
			`{% extends "base.peb" %}{% block title %}x{{ parent() }}{% endblock title %}`,
			`Template "t"
  Extends "base.peb"
  Block title
    body:
      Text "x"
      Print parent()
`,
		},
		{
			"include and embed",
			"{% include 'a' with {'x': 1} %}{% embed 'b' %}\n  {% block c %}C{% endblock %}\n{% endembed %}",
			`Template "t"
  Include "a" with {"x": 1}
  Embed "b"
    Block c
      body:
        Text "C"
`,
		},
		{
			"filter block",
			"{% filter upper | trim %}hi{% endfilter %}",
			`Template "t"
  FilterBlock ((<body> | upper) | trim)
    body:
      Text "hi"
`,
		},
		{
			"cache parallel flush",
			"{% cache 'menu' %}{% parallel %}p{% endparallel %}{% endcache %}{% flush %}",
			`Template "t"
  Cache "menu"
    body:
      Parallel
        body:
          Text "p"
  Flush
`,
		},
		{
			"autoescape",
			"{% autoescape 'js' %}a{% endautoescape %}{% autoescape false %}b{% endautoescape %}",
			`Template "t"
  AutoEscape active=true strategy="js"
    body:
      Text "a"
  AutoEscape active=false strategy=""
    body:
      Text "b"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dump(parse(t, tt.source))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("dump mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTemplateRegistries(t *testing.T) {
	tmpl := parse(t, "{% block a %}{% block b %}{% endblock %}{% endblock %}{% macro m() %}{% endmacro %}"+
		"{% embed 'x' %}{% block a %}{% endblock %}{% endembed %}")

	if diff := cmp.Diff([]string{"a", "b"}, sortedBlockNames(tmpl.Blocks)); diff != "" {
		t.Errorf("blocks (-want +got):\n%s", diff)
	}
	if _, ok := tmpl.Macros["m"]; !ok {
		t.Errorf("macro m not registered")
	}
	embed := tmpl.Children[2].(*Embed)
	if _, ok := embed.Blocks["a"]; !ok || len(embed.Blocks) != 1 {
		t.Errorf("embed blocks = %v", embed.Blocks)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantMsg string
		line    int
	}{
		{"duplicate block", "{% block a %}{% endblock %}\n{% block a %}{% endblock %}", "Block [a] has already been defined", 2},
		{"parent outside block", "{{ parent() }}", "parent() can only be used inside a block", 1},
		{"duplicate macro", "{% macro m() %}{% endmacro %}{% macro m() %}{% endmacro %}", "More than one macro can not share the same name: m", 1},
		{"macro shadows import", "{% from 'a' import m %}\n{% macro m() %}{% endmacro %}", "More than one macro can not share the same name: m", 2},
		{"duplicate import alias", "{% import 'a' as x %}{% import 'b' as x %}", "More than one named template can not share the same name: x", 1},
		{"duplicate from alias", "{% from 'a' import m, n as m %}", "More than one macro can not share the same name: m", 1},
		{"unknown tag", "{% foo %}", "Unexpected tag name [foo]", 1},
		{"unterminated if", "{% if a %}\nyes", "Unexpected end of template", 2},
		{"named before positional", "{{ f(a=1, 2) }}", "Positional arguments must be declared before any named arguments.", 1},
		{"reserved assignment", "{% set true = 1 %}", "Can not assign a value to true", 1},
		{"adjacent strings", `{{ "a" "b" }}`, "adjacent strings", 1},
		{"named method arguments", "{{ obj.m(a=1) }}", "Can not use named arguments when calling a bean method", 1},
		{"missing tag name", "{% 'x' %}", "A block must start with a tag name", 1},
		{"embed content", "{% embed 'x' %}text{% endembed %}", "Only blocks can be declared inside an embed tag", 1},
		{"empty expression", "{{ }}", "Unexpected token [PRINT_END]", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.source, "bad.peb", lexer.DefaultSyntax(), DefaultOptions())
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errors.IsKind(err, errors.ErrParse) {
				t.Fatalf("error kind: got %v, want parse error", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantMsg)
			}
			if e := err.(*errors.Error); e.Line != tt.line || e.Name != "bad.peb" {
				t.Errorf("error position = %s:%d, want bad.peb:%d", e.Name, e.Line, tt.line)
			}
		})
	}
}

type countingVisitor map[string]int

func (c countingVisitor) Visit(n Node) Visitor {
	switch n := n.(type) {
	case *Var:
		c["var:"+n.Name]++
	case *Print:
		c["print"]++
	}
	return c
}

func TestWalk(t *testing.T) {
	tmpl := parse(t, "{% for x in xs %}{{ x ~ y }}{% endfor %}{% macro m(a=b) %}{{ a }}{% endmacro %}")
	got := countingVisitor{}
	Walk(got, tmpl)

	want := countingVisitor{"var:xs": 1, "var:x": 1, "var:y": 1, "var:b": 1, "var:a": 1, "print": 2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("visited nodes (-want +got):\n%s", diff)
	}

	var names []string
	Inspect(tmpl, func(n Node) bool {
		if _, ok := n.(*Macro); ok {
			return false
		}
		if v, ok := n.(*Var); ok {
			names = append(names, v.Name)
		}
		return true
	})
	if diff := cmp.Diff([]string{"xs", "x", "y"}, names); diff != "" {
		t.Errorf("inspect (-want +got):\n%s", diff)
	}
}

package pebble

import (
	"strings"
	"testing"
)

func loaderEngine(t *testing.T, templates MemoryLoader) *Engine {
	t.Helper()
	return newEngine(t, NewBuilder().Loader(templates))
}

func renderNamed(t *testing.T, e *Engine, name string, ctx map[string]any) string {
	t.Helper()
	tmpl, err := e.GetTemplate(name)
	if err != nil {
		t.Fatalf("failed to load %s: %v", name, err)
	}
	out, err := tmpl.RenderString(ctx)
	if err != nil {
		t.Fatalf("failed to render %s: %v", name, err)
	}
	return out
}

func TestInheritance(t *testing.T) {
	e := loaderEngine(t, MemoryLoader{
		"base.peb":     "<{% block title %}Base{% endblock %}|{% block body %}body{% endblock %}>",
		"child.peb":    "{% extends 'base.peb' %}ignored{% block title %}Child{% endblock %}",
		"parent.peb":   "{% extends 'base.peb' %}{% block body %}[{{ parent() }}]{% endblock %}",
		"grand.peb":    "{% extends 'child.peb' %}{% block title %}Grand+{{ parent() }}{% endblock %}",
		"setvar.peb":   "{% extends 'base.peb' %}{% set who = 'child' %}{% block body %}{{ who }}{% endblock %}",
		"dynamic.peb":  "{% extends layout %}{% block title %}D{% endblock %}",
		"noparent.peb": "{% extends null %}plain",
	})

	tests := []struct {
		name     string
		ctx      map[string]any
		expected string
	}{
		{"base.peb", nil, "<Base|body>"},
		{"child.peb", nil, "<Child|body>"},
		{"parent.peb", nil, "<Base|[body]>"},
		{"grand.peb", nil, "<Grand+Child|body>"},
		{"setvar.peb", nil, "<Base|child>"},
		{"dynamic.peb", map[string]any{"layout": "base.peb"}, "<D|body>"},
		{"noparent.peb", nil, "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderNamed(t, e, tt.name, tt.ctx); got != tt.expected {
				t.Fatalf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestBlockFunction(t *testing.T) {
	e := loaderEngine(t, MemoryLoader{
		"page.peb": "{% block title %}T{% endblock %}-{{ block('title') }}",
	})
	if got := renderNamed(t, e, "page.peb", nil); got != "T-T" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderBlock(t *testing.T) {
	e := loaderEngine(t, MemoryLoader{
		"base.peb":  "<{% block title %}Base{% endblock %}>",
		"child.peb": "{% extends 'base.peb' %}{% set x = 'X' %}{% block title %}Child {{ x }} {{ parent() }}{% endblock %}",
	})
	tmpl, err := e.GetTemplate("child.peb")
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	if err := tmpl.RenderBlock(&sb, "title", nil); err != nil {
		t.Fatalf("render block: %v", err)
	}
	if sb.String() != "Child X Base" {
		t.Fatalf("got %q", sb.String())
	}

	err = tmpl.RenderBlock(&sb, "missing", nil)
	if err == nil || !strings.Contains(err.Error(), "Block [missing] does not exist") {
		t.Fatalf("expected missing block error, got %v", err)
	}
}

func TestParentOutsideInheritance(t *testing.T) {
	e := newEngine(t, nil)
	err := assertRenderErrorKind(t, e, "{% block a %}{{ parent() }}{% endblock %}", nil, ErrEvaluation)
	if !strings.Contains(err.Message, "does not extend another template") {
		t.Fatalf("unexpected message: %q", err.Message)
	}
}

func TestIncludeAndEmbed(t *testing.T) {
	e := loaderEngine(t, MemoryLoader{
		"partial.peb":  "[{{ name }}]",
		"card.peb":     "<{% block head %}H{% endblock %}:{% block content %}C{% endblock %}>",
		"dir/a.peb":    "{% include './b.peb' %}",
		"dir/b.peb":    "B",
		"include.peb":  "{% include 'partial.peb' %}{% include 'partial.peb' with {'name': 'w'} %}{{ name }}",
		"embed.peb":    "{% embed 'card.peb' %}{% block content %}{{ name }}{% endblock %}{% endembed %}",
		"relative.peb": "{% include 'dir/a.peb' %}",
	})

	ctx := map[string]any{"name": "n"}
	if got := renderNamed(t, e, "include.peb", ctx); got != "[n][w]n" {
		t.Fatalf("include: got %q", got)
	}
	if got := renderNamed(t, e, "embed.peb", ctx); got != "<H:n>" {
		t.Fatalf("embed: got %q", got)
	}
	if got := renderNamed(t, e, "relative.peb", nil); got != "B" {
		t.Fatalf("relative include: got %q", got)
	}
}

func TestIncludeWithNonMap(t *testing.T) {
	e := loaderEngine(t, MemoryLoader{
		"partial.peb": "x",
		"main.peb":    "{% include 'partial.peb' with 3 %}",
	})
	tmpl, err := e.GetTemplate("main.peb")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpl.RenderString(nil); !IsKind(err, ErrEvaluation) {
		t.Fatalf("expected evaluation error, got %v", err)
	}
}

func TestMacros(t *testing.T) {
	e := loaderEngine(t, MemoryLoader{
		"macros.peb":  "{% macro greet(name, greeting='Hi') %}{{ greeting }} {{ name }}{% endmacro %}",
		"import.peb":  "{% import 'macros.peb' %}{{ greet('Bob') }}",
		"alias.peb":   "{% import 'macros.peb' as m %}{{ m.greet('Ann', 'Yo') }}",
		"from.peb":    "{% from 'macros.peb' import greet as g %}{{ g(greeting='Hey', name='Al') }}",
		"missing.peb": "{% from 'macros.peb' import nope %}",
	})

	tests := []struct {
		name     string
		expected string
	}{
		{"import.peb", "Hi Bob"},
		{"alias.peb", "Yo Ann"},
		{"from.peb", "Hey Al"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderNamed(t, e, tt.name, nil); got != tt.expected {
				t.Fatalf("got %q, want %q", got, tt.expected)
			}
		})
	}

	tmpl, err := e.GetTemplate("missing.peb")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpl.RenderString(nil); err == nil || !strings.Contains(err.Error(), "Function or Macro [nope]") {
		t.Fatalf("expected missing macro error, got %v", err)
	}
}

func TestMacroScope(t *testing.T) {
	e := newEngine(t, nil)
	tests := []struct {
		name     string
		source   string
		ctx      map[string]any
		expected string
	}{
		{
			"local macro",
			"{% macro twice(x) %}{{ x }}{{ x }}{% endmacro %}{{ twice('a') }}",
			nil,
			"aa",
		},
		{
			"does not see template variables",
			"{% set y = 1 %}{% macro m() %}[{{ y }}]{% endmacro %}{{ m() }}",
			nil,
			"[]",
		},
		{
			"does not see context",
			"{% macro m() %}[{{ name }}]{% endmacro %}{{ m() }}",
			map[string]any{"name": "n"},
			"[]",
		},
		{
			"sees _context argument",
			"{% macro m(ctx) %}[{{ ctx.name }}]{% endmacro %}{{ m(_context) }}",
			map[string]any{"name": "n"},
			"[n]",
		},
		{
			"missing argument is null",
			"{% macro m(a, b) %}[{{ a }}{{ b }}]{% endmacro %}{{ m(1) }}",
			nil,
			"[1]",
		},
		{
			"set inside macro stays inside",
			"{% macro m() %}{% set z = 1 %}{{ z }}{% endmacro %}{{ m() }}[{{ z }}]",
			nil,
			"1[]",
		},
		{
			"output is not escaped twice",
			"{% macro m(x) %}<i>{{ x }}</i>{% endmacro %}{{ m('<b>') }}",
			nil,
			"<i>&lt;b&gt;</i>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertRender(t, e, tt.source, tt.ctx, tt.expected)
		})
	}
}

func TestMacroRecursionLimit(t *testing.T) {
	e := newEngine(t, nil)
	_, err := renderString(e, "{% macro recurse() %}{{ recurse() }}{% endmacro %}{{ recurse() }}", nil)
	if err == nil || !strings.Contains(err.Error(), "recursion limit exceeded") {
		t.Fatalf("expected recursion error, got %v", err)
	}
}

func TestUnknownFunction(t *testing.T) {
	e := newEngine(t, nil)
	err := assertRenderErrorKind(t, e, "{{ nope() }}", nil, ErrEvaluation)
	if !strings.Contains(err.Message, "Function or Macro [nope] does not exist.") {
		t.Fatalf("unexpected message: %q", err.Message)
	}
}

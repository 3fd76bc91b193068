package pebble

import (
	"errors"
	"strings"
	"testing"
)

func newEngine(t *testing.T, b *Builder) *Engine {
	t.Helper()
	if b == nil {
		b = NewBuilder()
	}
	e, err := b.Build()
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	return e
}

func renderString(e *Engine, source string, ctx map[string]any) (string, error) {
	tmpl, err := e.GetLiteralTemplate(source)
	if err != nil {
		return "", err
	}
	return tmpl.RenderString(ctx)
}

func assertRender(t *testing.T, e *Engine, source string, ctx map[string]any, expected string) {
	t.Helper()
	got, err := renderString(e, source, ctx)
	if err != nil {
		t.Fatalf("unexpected render error for %q: %v", source, err)
	}
	if got != expected {
		t.Fatalf("unexpected render result for %q: got %q, want %q", source, got, expected)
	}
}

func assertRenderErrorKind(t *testing.T, e *Engine, source string, ctx map[string]any, kind ErrorKind) *Error {
	t.Helper()
	_, err := renderString(e, source, ctx)
	if err == nil {
		t.Fatalf("expected error for %q", source)
	}
	if !IsKind(err, kind) {
		t.Fatalf("unexpected error kind for %q: got %v, want %s", source, err, kind)
	}
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *Error for %q, got %T", source, err)
	}
	return perr
}

func TestRenderBasics(t *testing.T) {
	e := newEngine(t, nil)
	tests := []struct {
		name     string
		source   string
		ctx      map[string]any
		expected string
	}{
		{"text", "Hello world", nil, "Hello world"},
		{"variable", "Hello {{ name }}!", map[string]any{"name": "John"}, "Hello John!"},
		{"missing variable", "[{{ missing }}]", nil, "[]"},
		{"comment", "a{# ignored #}b", nil, "ab"},
		{"arithmetic", "{{ 1 + 2 * 3 }}", nil, "7"},
		{"integer division", "{{ 7 / 2 }}", nil, "3"},
		{"float division", "{{ 7 / 2.0 }}", nil, "3.5"},
		{"concat", "{{ 'a' ~ 1 ~ 'b' }}", nil, "a1b"},
		{"string interpolation", `{{ "Hi #{name}!" }}`, map[string]any{"name": "Bob"}, "Hi Bob!"},
		{"ternary", "{{ n > 1 ? 'many' : 'one' }}", map[string]any{"n": 3}, "many"},
		{"comparison", "{{ 2 >= 2 and 1 < 2 }}", nil, "true"},
		{"equals", "{{ 'a' equals 'a' }}", nil, "true"},
		{"contains list", "{{ [1, 2, 3] contains 2 }}", nil, "true"},
		{"contains map key", "{{ {'a': 1} contains 'a' }}", nil, "true"},
		{"range", "{% for i in 1..3 %}{{ i }}{% endfor %}", nil, "123"},
		{"list literal", "{{ [1, 'two', 3.5] }}", nil, "[1, two, 3.5]"},
		{"subscript", "{{ items[1] }}", map[string]any{"items": []string{"a", "b"}}, "b"},
		{"map access", "{{ user.name }}", map[string]any{"user": map[string]any{"name": "Ann"}}, "Ann"},
		{"negation", "{{ not false }}", nil, "true"},
		{"unary minus", "{{ -n }}", map[string]any{"n": 4}, "-4"},
		{"is test", "{{ 3 is odd }}", nil, "true"},
		{"is not test", "{{ 3 is not even }}", nil, "true"},
		{"null literal", "[{{ null }}]", nil, "[]"},
		{"set", "{% set x = 'v' %}{{ x }}", nil, "v"},
		{"set shadows context", "{% set name = 'inner' %}{{ name }}", map[string]any{"name": "outer"}, "inner"},
		{"function", "{{ max(1, 5, 3) }}", nil, "5"},
		{"function with named arg", "{% for i in range(0, 10, increment=5) %}{{ i }},{% endfor %}", nil, "0,5,10,"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertRender(t, e, tt.source, tt.ctx, tt.expected)
		})
	}
}

func TestIfTruthiness(t *testing.T) {
	e := newEngine(t, nil)
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"true", true, "yes"},
		{"false", false, "no"},
		{"non-empty string", "x", "yes"},
		{"empty string", "", "no"},
		{"zero", 0, "no"},
		{"number", 2, "yes"},
		{"empty list", []int{}, "no"},
		{"list", []int{1}, "yes"},
		{"nil", nil, "no"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertRender(t, e, "{% if v %}yes{% else %}no{% endif %}", map[string]any{"v": tt.value}, tt.expected)
		})
	}

	assertRender(t, e, "{% if a %}a{% elseif b %}b{% else %}c{% endif %}",
		map[string]any{"a": false, "b": true}, "b")
}

func TestStrictIfOnNull(t *testing.T) {
	e := newEngine(t, NewBuilder().StrictVariables(true))
	err := assertRenderErrorKind(t, e, "{% if v %}x{% endif %}", map[string]any{"v": nil}, ErrRootAttributeNotFound)
	if !strings.Contains(err.Message, "null value given to if statement") {
		t.Fatalf("unexpected message: %q", err.Message)
	}
}

func TestForLoop(t *testing.T) {
	e := newEngine(t, nil)
	tests := []struct {
		name     string
		source   string
		ctx      map[string]any
		expected string
	}{
		{
			"loop variables",
			"{% for x in items %}{{ loop.index }}/{{ loop.revindex }}/{{ loop.length }}{% if loop.first %}F{% endif %}{% if loop.last %}L{% endif %} {% endfor %}",
			map[string]any{"items": []string{"a", "b", "c"}},
			"0/2/3F 1/1/3 2/0/3L ",
		},
		{"else on empty", "{% for x in items %}{{ x }}{% else %}empty{% endfor %}", map[string]any{"items": []int{}}, "empty"},
		{"null renders nothing", "[{% for x in items %}{{ x }}{% else %}e{% endfor %}]", nil, "[]"},
		{"map entries", "{% for e in m %}{{ e.key }}={{ e.value }}{% endfor %}", map[string]any{"m": map[string]int{"a": 1}}, "a=1"},
		{
			"set inside does not escape",
			"{% for i in 0..2 %}{% set x = 1 %}{% endfor %}[{{ x }}]",
			nil,
			"[]",
		},
		{
			"iterations do not share variables",
			"{% for i in 0..1 %}[{{ y }}]{% set y = i %}{% endfor %}",
			nil,
			"[][]",
		},
		{
			"nested",
			"{% for a in [1, 2] %}{% for b in [1, 2] %}{{ a * b }}{% endfor %};{% endfor %}",
			nil,
			"12;24;",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertRender(t, e, tt.source, tt.ctx, tt.expected)
		})
	}
}

func TestForOverNonIterable(t *testing.T) {
	e := newEngine(t, nil)
	err := assertRenderErrorKind(t, e, "{% for x in n %}{% endfor %}", map[string]any{"n": 5}, ErrEvaluation)
	if !strings.Contains(err.Message, "Not an iterable object") {
		t.Fatalf("unexpected message: %q", err.Message)
	}
}

func TestNumericWidening(t *testing.T) {
	e := newEngine(t, nil)
	tests := []struct {
		source   string
		ctx      map[string]any
		expected string
	}{
		{"{{ a + b }}", map[string]any{"a": int32(2), "b": int64(3)}, "5"},
		{"{{ a + b }}", map[string]any{"a": 2, "b": 0.5}, "2.5"},
		{"{{ a * 2 }}", map[string]any{"a": 1.5}, "3.0"},
		{"{{ 9223372036854775808 + 1 }}", nil, "9223372036854775809"},
		{"{{ 10 % 4 }}", nil, "2"},
		{"{% for i in 9223372036854775806..9223372036854775807 %}{{ i }},{% endfor %}", nil, "9223372036854775806,9223372036854775807,"},
		{"{{ range(9223372036854775805, 9223372036854775807, 2) }}", nil, "[9223372036854775805, 9223372036854775807]"},
		{"{{ 1 == 1.0 }}", nil, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assertRender(t, e, tt.source, tt.ctx, tt.expected)
		})
	}
}

func TestContextIsNotModified(t *testing.T) {
	e := newEngine(t, nil)
	ctx := map[string]any{"name": "a"}
	assertRender(t, e, "{% set name = 'b' %}{% set other = 1 %}{{ name }}", ctx, "b")
	if len(ctx) != 1 || ctx["name"] != "a" {
		t.Fatalf("context was modified: %v", ctx)
	}
}

func TestContextVariable(t *testing.T) {
	e := newEngine(t, nil)
	assertRender(t, e, "{{ _context.name }}", map[string]any{"name": "x"}, "x")
}

func TestParseErrors(t *testing.T) {
	e := newEngine(t, nil)
	tests := []string{
		"{% if x %}",
		"{{ 1 + }}",
		"{% unknown %}",
		"{% block a %}{% endblock %}{% block a %}{% endblock %}",
	}
	for _, source := range tests {
		t.Run(source, func(t *testing.T) {
			_, err := e.GetLiteralTemplate(source)
			if err == nil {
				t.Fatalf("expected error for %q", source)
			}
			if !IsKind(err, ErrParse) && !IsKind(err, ErrSyntax) {
				t.Fatalf("unexpected error kind: %v", err)
			}
		})
	}
}

func TestWhitespaceControl(t *testing.T) {
	e := newEngine(t, nil)
	assertRender(t, e, "a  {{- 'b' -}}  c", nil, "abc")
	assertRender(t, e, "{% if true %}\nx{% endif %}", nil, "x")

	noTrim := newEngine(t, NewBuilder().NewLineTrimming(false))
	assertRender(t, noTrim, "{% if true %}\nx{% endif %}", nil, "\nx")
}

func TestRenderTemplateNotFound(t *testing.T) {
	e := newEngine(t, nil)
	if _, err := e.GetTemplate("missing.peb"); !IsKind(err, ErrTemplateNotFound) {
		t.Fatalf("expected template not found, got %v", err)
	}
}

package pebble

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	templates := filepath.Join(dir, "templates")
	writeFile(t, filepath.Join(templates, "hello.peb"), "Hello {{ name }}")
	path := filepath.Join(dir, "pebble.yaml")
	writeFile(t, path, `
strict_variables: true
default_locale: de-CH
max_rendered_size: 100
template_dir: `+templates+`
suffix: .peb
parallelism: 2
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := Config{
		StrictVariables:         true,
		DefaultLocale:           "de-CH",
		CacheEnabled:            true,
		NewLineTrimming:         true,
		MaxRenderedSize:         100,
		AutoEscaping:            true,
		DefaultEscapingStrategy: "html",
		TemplateDir:             templates,
		Suffix:                  ".peb",
		Parallelism:             2,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	e := newEngine(t, cfg.Apply(NewBuilder()))
	if got := renderNamed(t, e, "hello", map[string]any{"name": "Ann"}); got != "Hello Ann" {
		t.Fatalf("got %q", got)
	}
	if _, err := renderString(e, "{{ missing }}", nil); !IsKind(err, ErrRootAttributeNotFound) {
		t.Fatalf("strict variables not applied: %v", err)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "strict_variables: [\n"},
		{"bad locale", "default_locale: '!!'\n"},
		{"negative parallelism", "parallelism: -1\n"},
		{"empty strategy", "default_escaping_strategy: ''\n"},
		{"missing template dir", "template_dir: " + filepath.Join(dir, "nope") + "\n"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "c"+string(rune('a'+i))+".yaml")
			writeFile(t, path, tt.content)
			if _, err := LoadConfig(path); !IsKind(err, ErrConfig) {
				t.Fatalf("expected config error, got %v", err)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(dir, "absent.yaml")); !IsKind(err, ErrConfig) {
		t.Fatalf("expected config error for a missing file, got %v", err)
	}
}

func TestDefaultConfigMatchesBuilder(t *testing.T) {
	e := newEngine(t, DefaultConfig().Apply(NewBuilder()))
	assertRender(t, e, "{{ v }}", map[string]any{"v": "<b>"}, "&lt;b&gt;")
	assertRender(t, e, "[{{ missing }}]", nil, "[]")
}

func TestLoaders(t *testing.T) {
	fsys := fstest.MapFS{
		"views/index.html":        {Data: []byte("{% include 'partials/nav' %}")},
		"views/partials/nav.html": {Data: []byte("nav")},
	}
	fsLoader := &FSLoader{FS: fsys, Prefix: "views", Suffix: ".html"}
	if !fsLoader.ResourceExists("index") || fsLoader.ResourceExists("missing") {
		t.Fatalf("unexpected ResourceExists results")
	}
	e := newEngine(t, NewBuilder().Loader(fsLoader))
	if got := renderNamed(t, e, "index", nil); got != "nav" {
		t.Fatalf("fs loader: got %q", got)
	}

	delegating := DelegatingLoader{MemoryLoader{"a": "A{% include 'b' %}"}, MemoryLoader{"b": "B"}}
	e = newEngine(t, NewBuilder().Loader(delegating))
	if got := renderNamed(t, e, "a", nil); got != "AB" {
		t.Fatalf("delegating loader: got %q", got)
	}
	if _, err := e.GetTemplate("c"); !IsKind(err, ErrTemplateNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	e = newEngine(t, NewBuilder().Loader(StringLoader{}))
	if got := renderNamed(t, e, "Hi {{ name }}", map[string]any{"name": "x"}); got != "Hi x" {
		t.Fatalf("string loader: got %q", got)
	}
}

func TestResolveRelative(t *testing.T) {
	tests := []struct {
		relative, anchor, want string
	}{
		{"./b.peb", "dir/a.peb", "dir/b.peb"},
		{"../b.peb", "dir/sub/a.peb", "dir/b.peb"},
		{"b.peb", "dir/a.peb", "b.peb"},
		{"./b.peb", "", "./b.peb"},
	}
	for _, tt := range tests {
		if got := resolveRelative(tt.relative, tt.anchor); got != tt.want {
			t.Errorf("resolveRelative(%q, %q) = %q, want %q", tt.relative, tt.anchor, got, tt.want)
		}
	}
}

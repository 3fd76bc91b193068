package pebble

import (
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/pebbletemplates/pebble-go/parser"
)

// countingLoader counts the reads of every template and holds each read
// until release is closed.
type countingLoader struct {
	MemoryLoader
	reads   atomic.Int32
	release chan struct{}
}

func (l *countingLoader) Reader(key string) (io.ReadCloser, error) {
	l.reads.Add(1)
	if l.release != nil {
		<-l.release
	}
	return l.MemoryLoader.Reader(key)
}

func TestConcurrentGetTemplateCompilesOnce(t *testing.T) {
	loader := &countingLoader{
		MemoryLoader: MemoryLoader{"t.peb": "{{ 1 + 1 }}"},
		release:      make(chan struct{}),
	}
	e := newEngine(t, NewBuilder().Loader(loader))

	const workers = 16
	results := make([]*Template, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tmpl, err := e.GetTemplate("t.peb")
			if err != nil {
				t.Errorf("GetTemplate: %v", err)
				return
			}
			results[i] = tmpl
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(loader.release)
	wg.Wait()

	if n := loader.reads.Load(); n != 1 {
		t.Fatalf("template compiled %d times, want 1", n)
	}
	for _, tmpl := range results {
		if tmpl != results[0] {
			t.Fatalf("callers received different templates")
		}
	}
}

func TestTemplateCacheInvalidation(t *testing.T) {
	loader := &countingLoader{MemoryLoader: MemoryLoader{"t.peb": "a"}}
	e := newEngine(t, NewBuilder().Loader(loader))

	for range 3 {
		if _, err := e.GetTemplate("t.peb"); err != nil {
			t.Fatal(err)
		}
	}
	if n := loader.reads.Load(); n != 1 {
		t.Fatalf("reads = %d, want 1", n)
	}

	e.TemplateCache().Invalidate("t.peb")
	if _, err := e.GetTemplate("t.peb"); err != nil {
		t.Fatal(err)
	}
	e.TemplateCache().InvalidateAll()
	if _, err := e.GetTemplate("t.peb"); err != nil {
		t.Fatal(err)
	}
	if n := loader.reads.Load(); n != 3 {
		t.Fatalf("reads = %d, want 3", n)
	}
}

func TestDisabledCache(t *testing.T) {
	loader := &countingLoader{MemoryLoader: MemoryLoader{"t.peb": "{% cache 'k' %}{{ n }}{% endcache %}"}}
	e := newEngine(t, NewBuilder().Loader(loader).CacheActive(false))

	for i, want := range []string{"1", "2"} {
		if got := renderNamed(t, e, "t.peb", map[string]any{"n": i + 1}); got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
	if n := loader.reads.Load(); n != 2 {
		t.Fatalf("reads = %d, want 2", n)
	}
}

func TestFailedCompilationIsNotCached(t *testing.T) {
	loader := &countingLoader{MemoryLoader: MemoryLoader{"bad.peb": "{% if %}"}}
	e := newEngine(t, NewBuilder().Loader(loader))
	for range 2 {
		if _, err := e.GetTemplate("bad.peb"); err == nil {
			t.Fatal("expected parse error")
		}
	}
	if n := loader.reads.Load(); n != 2 {
		t.Fatalf("reads = %d, want 2", n)
	}
}

func TestFragmentCache(t *testing.T) {
	e := newEngine(t, nil)
	tmpl, err := e.GetLiteralTemplate("{% cache 'menu' %}{{ n }}{% endcache %}|{{ n }}")
	if err != nil {
		t.Fatal(err)
	}

	render := func(n int, opts ...RenderOption) string {
		t.Helper()
		out, err := tmpl.RenderString(map[string]any{"n": n}, opts...)
		if err != nil {
			t.Fatal(err)
		}
		return out
	}

	if got := render(1); got != "1|1" {
		t.Fatalf("first render: got %q", got)
	}
	if got := render(2); got != "1|2" {
		t.Fatalf("cached render: got %q", got)
	}
	if got := render(3, WithLocale(language.German)); got != "3|3" {
		t.Fatalf("other locale: got %q", got)
	}

	e.FragmentCache().InvalidateAll()
	if got := render(4); got != "4|4" {
		t.Fatalf("after invalidation: got %q", got)
	}
}

func TestFragmentCacheKeyIsEvaluated(t *testing.T) {
	e := newEngine(t, nil)
	tmpl, err := e.GetLiteralTemplate("{% cache 'item-' ~ id %}{{ id }}{% endcache %}")
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []int{1, 2, 1} {
		out, err := tmpl.RenderString(map[string]any{"id": id})
		if err != nil {
			t.Fatal(err)
		}
		if want := string(rune('0' + id)); out != want {
			t.Fatalf("got %q, want %q", out, want)
		}
	}
}

func TestFragmentCacheError(t *testing.T) {
	e := newEngine(t, NewBuilder().StrictVariables(true))
	_, err := renderString(e, "{% cache 'c' %}{{ missing }}{% endcache %}", nil)
	if err == nil || !strings.Contains(err.Error(), "Could not render cache block [c]") {
		t.Fatalf("expected cache error, got %v", err)
	}
	if !IsKind(err, ErrRootAttributeNotFound) {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestConcurrentCacheComputesOnce(t *testing.T) {
	c := NewConcurrentCache[string, int]()
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrCompute("k", func() (int, error) {
				calls.Add(1)
				<-release
				return 42, nil
			})
			if err != nil || v != 42 {
				t.Errorf("got %d, %v", v, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("computed %d times, want 1", n)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrCompute("bad", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	v, err := c.GetOrCompute("bad", func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("failed computation was cached: %d, %v", v, err)
	}
}

func TestRecursiveFragmentCache(t *testing.T) {
	e := newEngine(t, nil)

	done := make(chan error, 1)
	go func() {
		_, err := renderString(e, "{% macro m(n) %}{% cache 'k' %}<{% if n > 0 %}{{ m(n-1) }}{% endif %}>{% endcache %}{% endmacro %}{{ m(1) }}", nil)
		done <- err
	}()
	select {
	case err := <-done:
		if !IsKind(err, ErrEvaluation) || !strings.Contains(err.Error(), "Recursive cache block [k]") {
			t.Fatalf("expected recursive cache error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("render did not return")
	}

	// distinct keys on the same tag still nest
	assertRender(t, e, "{% macro m(n) %}{% cache 'k' ~ n %}<{% if n > 0 %}{{ m(n-1) }}{% endif %}>{% endcache %}{% endmacro %}{{ m(1) }}", nil, "<<>>")
}

func TestFlightKeysDoNotCollide(t *testing.T) {
	n := &parser.CacheBlock{}
	a := flightKey(FragmentKey{Node: n, Name: "a/b", Locale: "c"})
	b := flightKey(FragmentKey{Node: n, Name: "a", Locale: "b/c"})
	if a == b {
		t.Fatalf("fragment keys share flight %q", a)
	}

	type pair struct{ x, y string }
	type name string
	keys := []any{pair{"a b", ""}, pair{"a", "b"}, "a b", name("a b"), "{a b }"}
	seen := make(map[string]any)
	for _, k := range keys {
		fk := flightKey(k)
		if prev, ok := seen[fk]; ok {
			t.Fatalf("%#v and %#v share flight %q", prev, k, fk)
		}
		seen[fk] = k
	}
}

package pebble

import (
	"io"
	"strings"

	"golang.org/x/text/language"

	"github.com/pebbletemplates/pebble-go/internal/errors"
	"github.com/pebbletemplates/pebble-go/parser"
	"github.com/pebbletemplates/pebble-go/value"
)

// Template is a compiled template. It is immutable and safe for concurrent
// renders.
type Template struct {
	engine *Engine
	name   string
	source string
	ast    *parser.Template
	// blocks starts as the parsed blocks; embed copies override some.
	blocks map[string]*parser.Block
}

func newTemplate(e *Engine, name, source string, ast *parser.Template) *Template {
	return &Template{engine: e, name: name, source: source, ast: ast, blocks: ast.Blocks}
}

// Name returns the name the template was loaded with.
func (t *Template) Name() string {
	return t.name
}

// Source returns the template source.
func (t *Template) Source() string {
	return t.source
}

// BlockNames returns the names of the blocks defined by the template.
func (t *Template) BlockNames() []string {
	return sortedNames(t.blocks)
}

// MacroNames returns the names of the macros defined by the template.
func (t *Template) MacroNames() []string {
	return sortedNames(t.ast.Macros)
}

func (t *Template) String() string {
	return t.name
}

func (t *Template) macro(name string) (*parser.Macro, bool) {
	m, ok := t.ast.Macros[name]
	return m, ok
}

// withBlocks returns a shallow copy of t whose blocks are replaced by
// overrides where names match.
func (t *Template) withBlocks(overrides map[string]*parser.Block) *Template {
	cp := *t
	cp.blocks = make(map[string]*parser.Block, len(t.blocks)+len(overrides))
	for k, b := range t.blocks {
		cp.blocks[k] = b
	}
	for k, b := range overrides {
		cp.blocks[k] = b
	}
	return &cp
}

// resolveRelativePath resolves a template name referenced by t.
func (t *Template) resolveRelativePath(name string) string {
	if resolved := t.engine.loader.ResolveRelativePath(name, t.name); resolved != "" {
		return resolved
	}
	return name
}

// RenderOption configures a single render.
type RenderOption func(*renderOptions)

type renderOptions struct {
	locale    language.Tag
	hasLocale bool
}

// WithLocale renders with the given locale instead of the engine default.
func WithLocale(tag language.Tag) RenderOption {
	return func(o *renderOptions) {
		o.locale = tag
		o.hasLocale = true
	}
}

// Render writes the template output to w. ctx holds the template
// variables; it is never modified.
//
// Output already written to w is not retracted when rendering fails.
func (t *Template) Render(w io.Writer, ctx map[string]any, opts ...RenderOption) error {
	st := t.newState(w, ctx, opts)
	if err := st.renderTemplate(t); err != nil {
		return err
	}
	if err := st.flush(); err != nil {
		return err
	}
	if st.limit != nil {
		t.engine.logger.Debug("rendered template", "name", t.name, "chars", st.limit.count())
	}
	return nil
}

// RenderString renders the template to a string.
func (t *Template) RenderString(ctx map[string]any, opts ...RenderOption) (string, error) {
	var sb strings.Builder
	if err := t.Render(&sb, ctx, opts...); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenderBlock renders a single block. The template is evaluated first
// without output so that its inheritance chain, imports and variables are
// in place. Only the block output counts against MaxRenderedSize.
func (t *Template) RenderBlock(w io.Writer, block string, ctx map[string]any, opts ...RenderOption) error {
	st := t.newState(io.Discard, ctx, opts)
	limit := st.limit
	st.limit = nil
	st.setWriter(io.Discard)
	if err := st.renderTemplate(t); err != nil {
		return err
	}
	if err := st.flush(); err != nil {
		return err
	}
	st.limit = limit
	st.setWriter(w)
	for st.hier.current > 0 {
		st.hier.descend()
	}
	if !st.blockExists(block) {
		return errors.Newf(ErrEvaluation, "Block [%s] does not exist", block).WithName(t.name)
	}
	if err := st.block(t, block, false); err != nil {
		return err
	}
	return st.flush()
}

func (t *Template) newState(w io.Writer, ctx map[string]any, opts []RenderOption) *State {
	var o renderOptions
	for _, opt := range opts {
		opt(&o)
	}
	if !o.hasLocale {
		o.locale = t.engine.defaultLocale
	}

	e := t.engine
	st := &State{
		engine:       e,
		self:         t,
		locale:       o.locale,
		hier:         newHierarchy(t),
		limit:        newSizeLimiter(e.maxRenderedSize),
		namedImports: make(map[string]*Template),
		fromImports:  make(map[string]boundMacro),
	}
	st.scopes = &scopeChain{globals: 2}
	st.scopes.push()
	st.scopes.put("locale", value.FromAny(o.locale))
	st.scopes.put("template", value.FromAny(t))
	st.scopes.put("_context", value.FromAny(contextMarker{}))
	st.scopes.push()
	for name, v := range e.registry.globals {
		st.scopes.put(name, v)
	}
	st.scopes.push()
	for name, v := range ctx {
		st.scopes.put(name, value.FromAny(v))
	}
	st.scopes.push()
	st.setWriter(w)
	return st
}

package pebble

import (
	"io"
	"log/slog"
	"sync"

	"golang.org/x/text/language"

	"github.com/pebbletemplates/pebble-go/internal/errors"
	"github.com/pebbletemplates/pebble-go/lexer"
	"github.com/pebbletemplates/pebble-go/parser"
)

// Builder configures an Engine.
//
// Example usage:
//
//	engine, err := pebble.NewBuilder().
//		Loader(pebble.MemoryLoader{"hello.peb": "Hello {{ name }}!"}).
//		StrictVariables(true).
//		Build()
type Builder struct {
	loader          Loader
	extensions      []Extension
	syntax          lexer.Syntax
	strict          bool
	debug           bool
	defaultLocale   language.Tag
	maxRenderedSize int
	executor        Executor
	templateCache   Cache[string, *Template]
	fragmentCache   Cache[FragmentKey, string]
	cacheActive     bool
	autoEscaping    bool
	defaultStrategy string
	strategies      map[string]EscapingStrategy
	allowOverride   bool
	greedy          bool
	validator       AccessValidator
	literalInt      bool
	literalDecimal  bool
	logger          *slog.Logger
}

// NewBuilder returns a builder with the default settings: an empty memory
// loader, lenient variables, HTML auto-escaping, caching enabled and no
// render-size limit.
func NewBuilder() *Builder {
	return &Builder{
		loader:          MemoryLoader{},
		syntax:          lexer.DefaultSyntax(),
		defaultLocale:   language.English,
		maxRenderedSize: -1,
		cacheActive:     true,
		autoEscaping:    true,
		defaultStrategy: "html",
		strategies:      defaultStrategies(),
		validator:       DefaultAccessValidator,
	}
}

// Loader sets the loader templates are read from.
func (b *Builder) Loader(l Loader) *Builder { b.loader = l; return b }

// Extension adds extensions. Later extensions override the filters, tests,
// functions, tags and globals of earlier ones.
func (b *Builder) Extension(ext ...Extension) *Builder {
	b.extensions = append(b.extensions, ext...)
	return b
}

// Syntax replaces the delimiters.
func (b *Builder) Syntax(s lexer.Syntax) *Builder { b.syntax = s; return b }

// StrictVariables makes reads of missing variables and attributes fail.
func (b *Builder) StrictVariables(strict bool) *Builder { b.strict = strict; return b }

// Debug records the variables referenced by a failing statement in the
// error.
func (b *Builder) Debug(debug bool) *Builder { b.debug = debug; return b }

// NewLineTrimming controls whether the newline after a tag is removed.
func (b *Builder) NewLineTrimming(trim bool) *Builder {
	b.syntax.NewLineTrimming = trim
	return b
}

// DefaultLocale sets the locale used when a render does not pass one.
func (b *Builder) DefaultLocale(tag language.Tag) *Builder { b.defaultLocale = tag; return b }

// MaxRenderedSize limits the number of characters a render may write.
// A negative value disables the limit.
func (b *Builder) MaxRenderedSize(n int) *Builder { b.maxRenderedSize = n; return b }

// Executor sets the executor parallel tags run on. Without one, parallel
// bodies render inline.
func (b *Builder) Executor(e Executor) *Builder { b.executor = e; return b }

// TemplateCache replaces the compilation cache.
func (b *Builder) TemplateCache(c Cache[string, *Template]) *Builder { b.templateCache = c; return b }

// FragmentCache replaces the cache used by the cache tag.
func (b *Builder) FragmentCache(c Cache[FragmentKey, string]) *Builder { b.fragmentCache = c; return b }

// CacheActive enables or disables both caches.
func (b *Builder) CacheActive(active bool) *Builder { b.cacheActive = active; return b }

// AutoEscaping enables or disables auto-escaping of print statements.
func (b *Builder) AutoEscaping(active bool) *Builder { b.autoEscaping = active; return b }

// DefaultEscapingStrategy sets the strategy used by auto-escaping and by
// the escape filter when none is given.
func (b *Builder) DefaultEscapingStrategy(name string) *Builder { b.defaultStrategy = name; return b }

// AddEscapingStrategy registers a custom escaping strategy.
func (b *Builder) AddEscapingStrategy(name string, s EscapingStrategy) *Builder {
	b.strategies[name] = s
	return b
}

// AllowOverrideCoreOperators lets extensions replace existing operators.
func (b *Builder) AllowOverrideCoreOperators(allow bool) *Builder { b.allowOverride = allow; return b }

// GreedyMatchMethod lets method arguments match any numeric parameter
// type, truncating if needed.
func (b *Builder) GreedyMatchMethod(greedy bool) *Builder { b.greedy = greedy; return b }

// AccessValidator sets the validator consulted before a method is called.
// nil allows every exported method.
func (b *Builder) AccessValidator(v AccessValidator) *Builder { b.validator = v; return b }

// LiteralDecimalTreatedAsInteger parses integer literals as 32-bit ints.
func (b *Builder) LiteralDecimalTreatedAsInteger(v bool) *Builder { b.literalInt = v; return b }

// LiteralNumbersAsBigDecimals parses every number literal as a decimal.
func (b *Builder) LiteralNumbersAsBigDecimals(v bool) *Builder { b.literalDecimal = v; return b }

// Logger sets the logger. It defaults to slog.Default().
func (b *Builder) Logger(l *slog.Logger) *Builder { b.logger = l; return b }

// Build creates the engine. The builder may be reused afterwards.
func (b *Builder) Build() (*Engine, error) {
	if _, ok := b.strategies[b.defaultStrategy]; !ok {
		return nil, errors.Newf(ErrConfig, "Unknown escaping strategy [%s]", b.defaultStrategy)
	}
	strategies := make(map[string]EscapingStrategy, len(b.strategies))
	for k, v := range b.strategies {
		strategies[k] = v
	}
	esc := &escaper{active: b.autoEscaping, defaultStrategy: b.defaultStrategy, strategies: strategies}

	exts := append([]Extension{coreExtension{}, escaperExtension{e: esc}}, b.extensions...)
	reg, err := newRegistry(exts, b.allowOverride)
	if err != nil {
		return nil, err
	}
	esc.filters = reg.filters

	opts := reg.parserOptions()
	opts.LiteralDecimalTreatedAsInteger = b.literalInt
	opts.LiteralNumbersAsBigDecimals = b.literalDecimal

	e := &Engine{
		loader:          b.loader,
		syntax:          b.syntax,
		registry:        reg,
		parserOpts:      opts,
		escaper:         esc,
		strict:          b.strict,
		debug:           b.debug,
		defaultLocale:   b.defaultLocale,
		maxRenderedSize: b.maxRenderedSize,
		executor:        b.executor,
		logger:          b.logger,
	}
	e.resolvers = append(e.resolvers, reg.resolvers...)
	e.resolvers = append(e.resolvers, &memberResolver{greedy: b.greedy, validator: b.validator})
	if e.logger == nil {
		e.logger = slog.Default()
	}

	switch {
	case !b.cacheActive:
		e.templateCache = NoOpCache[string, *Template]{}
		e.fragmentCache = NoOpCache[FragmentKey, string]{}
	default:
		e.templateCache = b.templateCache
		if e.templateCache == nil {
			e.templateCache = NewConcurrentCache[string, *Template]()
		}
		e.fragmentCache = b.fragmentCache
		if e.fragmentCache == nil {
			e.fragmentCache = NewConcurrentCache[FragmentKey, string]()
		}
	}
	return e, nil
}

// Engine compiles and caches templates. It is safe for concurrent use.
type Engine struct {
	loader          Loader
	syntax          lexer.Syntax
	registry        *registry
	parserOpts      parser.Options
	escaper         *escaper
	resolvers       []AttributeResolver
	templateCache   Cache[string, *Template]
	fragmentCache   Cache[FragmentKey, string]
	strict          bool
	debug           bool
	defaultLocale   language.Tag
	maxRenderedSize int
	executor        Executor
	logger          *slog.Logger

	// parallelWarned records the parallel tags that already logged the
	// missing executor.
	parallelWarned sync.Map
}

// GetTemplate returns the compiled template with the given name, loading
// and compiling it on first use.
func (e *Engine) GetTemplate(name string) (*Template, error) {
	key := e.loader.CacheKey(name)
	return e.templateCache.GetOrCompute(key, func() (*Template, error) {
		e.logger.Debug("compiling template", "name", name, "key", key)
		r, err := e.loader.Reader(key)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		src, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrap(ErrTemplateNotFound, err, "Could not read template ["+name+"]")
		}
		return e.compile(name, string(src))
	})
}

// GetLiteralTemplate compiles source text. The result is not cached.
func (e *Engine) GetLiteralTemplate(source string) (*Template, error) {
	return e.compile(source, source)
}

// TemplateCache returns the compilation cache, for invalidation.
func (e *Engine) TemplateCache() Cache[string, *Template] {
	return e.templateCache
}

// FragmentCache returns the cache used by the cache tag.
func (e *Engine) FragmentCache() Cache[FragmentKey, string] {
	return e.fragmentCache
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

func (e *Engine) compile(name, source string) (*Template, error) {
	tokens, err := lexer.Tokenize(source, name, e.syntax, e.parserOpts.OperatorSymbols())
	if err != nil {
		return nil, withSource(err, source)
	}
	ast, err := parser.Parse(tokens, name, e.parserOpts)
	if err != nil {
		return nil, withSource(err, source)
	}
	t := newTemplate(e, name, source, ast)
	for _, factory := range e.registry.visitors {
		parser.Walk(factory(ast), ast)
	}
	return t, nil
}

func withSource(err error, source string) error {
	if e, ok := err.(*Error); ok {
		e.WithSource(source)
	}
	return err
}

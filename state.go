package pebble

import (
	"io"
	"strings"

	"golang.org/x/text/language"

	"github.com/pebbletemplates/pebble-go/internal/errors"
	"github.com/pebbletemplates/pebble-go/parser"
	"github.com/pebbletemplates/pebble-go/value"
)

const maxRecursion = 500

// State holds the evaluation state of a single render. It is not safe for
// concurrent use; parallel bodies render on a copy.
type State struct {
	engine *Engine
	self   *Template
	scopes *scopeChain
	hier   *hierarchy
	locale language.Tag

	// out is what statements write to. It wraps future (when an executor
	// is configured) which wraps sink.
	out    io.Writer
	sink   io.Writer
	future *futureWriter
	limit  *sizeLimiter

	imports      []*Template
	namedImports map[string]*Template
	fromImports  map[string]boundMacro

	// filterBody is the captured body of the enclosing filter tag.
	filterBody value.Value
	depth      int

	// computing holds the cache fragments whose body is rendering on
	// this state or on the state it was forked from.
	computing *fragmentFrame
}

type fragmentFrame struct {
	key    FragmentKey
	parent *fragmentFrame
}

func (f *fragmentFrame) contains(key FragmentKey) bool {
	for ; f != nil; f = f.parent {
		if f.key == key {
			return true
		}
	}
	return false
}

// boundMacro is a macro imported by name through a from tag.
type boundMacro struct {
	owner *Template
	macro *parser.Macro
}

// contextMarker is the value bound to _context. Reading the variable
// yields a snapshot of every visible variable.
type contextMarker struct{}

// importedTemplate is the value of an "import ... as alias" name. Its
// attributes are the macros of the imported template.
type importedTemplate struct {
	t *Template
}

func (i *importedTemplate) String() string {
	return i.t.name
}

func (i *importedTemplate) resolve(st *State, name string, args []value.Value, _ *parser.GetAttr) (Resolution, error) {
	m, ok := i.t.macro(name)
	if !ok {
		return Resolution{}, nil
	}
	v, err := st.callMacro(i.t, m, args, nil)
	if err != nil {
		return Resolution{}, err
	}
	return found(v), nil
}

// Engine returns the engine the template belongs to.
func (s *State) Engine() *Engine {
	return s.engine
}

// Locale returns the locale of the render.
func (s *State) Locale() language.Tag {
	return s.locale
}

// Strict reports whether strict variables are enabled.
func (s *State) Strict() bool {
	return s.engine.strict
}

// TemplateName returns the name of the template currently rendering.
func (s *State) TemplateName() string {
	return s.self.name
}

// Get looks up a variable.
func (s *State) Get(name string) (value.Value, bool) {
	return s.scopes.get(name)
}

// Set assigns a variable the way the set tag does.
func (s *State) Set(name string, v value.Value) {
	s.scopes.set(name, v)
}

// Write writes text to the output.
func (s *State) Write(text string) error {
	return s.write(text)
}

// Eval evaluates an expression.
func (s *State) Eval(expr parser.Expr) (value.Value, error) {
	return s.eval(expr)
}

// RenderBody renders statements to the output.
func (s *State) RenderBody(body []parser.Stmt) error {
	return s.renderBody(body)
}

// Capture renders statements into a string instead of the output.
func (s *State) Capture(body []parser.Stmt) (string, error) {
	return s.capture(func() error { return s.renderBody(body) })
}

func (s *State) enter() error {
	s.depth++
	if s.depth > maxRecursion {
		return errors.New(ErrEvaluation, "recursion limit exceeded")
	}
	return nil
}

func (s *State) leave() {
	s.depth--
}

func (s *State) setWriter(w io.Writer) {
	s.sink = w
	if s.engine.executor != nil {
		s.future = newFutureWriter(w)
		w = s.future
	} else {
		s.future = nil
	}
	s.out = newLimitedWriter(w, s.limit)
}

// flush waits for pending parallel output and flushes the sink.
func (s *State) flush() error {
	if s.future != nil {
		return s.future.Flush()
	}
	return flushSink(s.sink)
}

func (s *State) write(text string) error {
	_, err := io.WriteString(s.out, text)
	return err
}

// capture runs fn with the output redirected to a buffer.
func (s *State) capture(fn func() error) (string, error) {
	out, future, sink := s.out, s.future, s.sink
	var buf strings.Builder
	s.setWriter(&buf)
	err := fn()
	if err == nil {
		err = s.flush()
	}
	s.out, s.future, s.sink = out, future, sink
	return buf.String(), err
}

// fork returns a copy of the state that can render on another goroutine.
// The size limiter is shared; scopes, hierarchy and imports are copied.
func (s *State) fork() *State {
	cp := *s
	cp.scopes = s.scopes.copy()
	cp.hier = s.hier.copy()
	cp.imports = append([]*Template(nil), s.imports...)
	cp.namedImports = make(map[string]*Template, len(s.namedImports))
	for k, v := range s.namedImports {
		cp.namedImports[k] = v
	}
	cp.fromImports = make(map[string]boundMacro, len(s.fromImports))
	for k, v := range s.fromImports {
		cp.fromImports[k] = v
	}
	return &cp
}

// renderTemplate renders the root body of t and then, if t extends
// another template, the parent.
func (s *State) renderTemplate(t *Template) error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()
	prev := s.self
	s.self = t
	defer func() { s.self = prev }()

	for _, stmt := range t.ast.Children {
		if s.hier.parent() != nil && !inheritanceSafe(stmt) {
			continue
		}
		if err := s.renderStmt(stmt); err != nil {
			return err
		}
	}
	if parent := s.hier.parent(); parent != nil {
		s.hier.ascend()
		return s.renderTemplate(parent)
	}
	return nil
}

// inheritanceSafe reports whether a root statement of a child template
// still renders once the parent is known.
func inheritanceSafe(stmt parser.Stmt) bool {
	switch stmt.(type) {
	case *parser.Set, *parser.SetBlock, *parser.Import, *parser.FromImport, *parser.Macro:
		return true
	}
	return false
}

func (s *State) renderBody(body []parser.Stmt) error {
	for _, stmt := range body {
		if err := s.renderStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *State) renderStmt(stmt parser.Stmt) error {
	return s.attachErrorInfo(s.execStmt(stmt), stmt)
}

func (s *State) execStmt(stmt parser.Stmt) error {
	switch n := stmt.(type) {
	case *parser.Text:
		return s.write(n.Data)

	case *parser.Print:
		v, err := s.eval(n.Expr)
		if err != nil {
			return err
		}
		return s.write(v.String())

	case *parser.If:
		return s.execIf(n)

	case *parser.For:
		return s.execFor(n)

	case *parser.Set:
		v, err := s.eval(n.Value)
		if err != nil {
			return err
		}
		s.scopes.set(n.Name, v)
		return nil

	case *parser.SetBlock:
		out, err := s.capture(func() error { return s.renderBody(n.Body) })
		if err != nil {
			return err
		}
		s.scopes.set(n.Name, value.FromSafeString(out))
		return nil

	case *parser.Block:
		return s.block(s.self, n.Name, false)

	case *parser.Extends:
		return s.execExtends(n)

	case *parser.Include:
		return s.execInclude(n)

	case *parser.Embed:
		return s.execEmbed(n)

	case *parser.Import:
		return s.execImport(n)

	case *parser.FromImport:
		return s.execFromImport(n)

	case *parser.Macro:
		// registered at parse time
		return nil

	case *parser.AutoEscape:
		// escaping was applied when the template was compiled
		return s.renderBody(n.Body)

	case *parser.FilterBlock:
		return s.execFilterBlock(n)

	case *parser.CacheBlock:
		return s.execCache(n)

	case *parser.Parallel:
		return s.execParallel(n)

	case *parser.Flush:
		return s.flush()

	case RenderableNode:
		return n.Render(s)

	default:
		return errors.Newf(ErrEvaluation, "unsupported statement type: %T", stmt)
	}
}

func (s *State) execIf(n *parser.If) error {
	for _, b := range n.Branches {
		cond, err := s.eval(b.Cond)
		if err != nil {
			return err
		}
		if cond.IsNull() && s.engine.strict {
			return errors.New(ErrRootAttributeNotFound,
				"null value given to if statement and strict variables is set to true")
		}
		if cond.IsTrue() {
			return s.renderBody(b.Body)
		}
	}
	return s.renderBody(n.Else)
}

func (s *State) execFor(n *parser.For) error {
	iterable, err := s.eval(n.Iter)
	if err != nil {
		return err
	}
	if iterable.IsNull() {
		return nil
	}
	items, ok := iterable.Iter()
	if !ok {
		return errors.Newf(ErrEvaluation, "Not an iterable object. Value = [%s]", iterable.String())
	}
	if len(items) == 0 {
		return s.renderBody(n.Else)
	}

	length := int64(len(items))
	for i, item := range items {
		loop := value.NewMap()
		loop.SetString("index", value.FromInt(int64(i)))
		loop.SetString("revindex", value.FromInt(length-int64(i)-1))
		loop.SetString("first", value.FromBool(i == 0))
		loop.SetString("last", value.FromBool(int64(i) == length-1))
		loop.SetString("length", value.FromInt(length))

		s.scopes.push()
		s.scopes.put("loop", value.FromMap(loop))
		s.scopes.put(n.Var, item)
		err := s.renderBody(n.Body)
		s.scopes.pop()
		if err != nil {
			return err
		}
	}
	return nil
}

// block renders the most-derived version of a block, starting the search
// at the child of t unless ignoreOverridden is set.
func (s *State) block(t *Template, name string, ignoreOverridden bool) error {
	if err := s.enter(); err != nil {
		return err
	}
	defer s.leave()

	if child := s.hier.child(); child != nil && !ignoreOverridden {
		s.hier.descend()
		err := s.block(child, name, false)
		s.hier.ascend()
		return err
	}
	if b, ok := t.blocks[name]; ok {
		prev := s.self
		s.self = t
		err := s.renderBody(b.Body)
		s.self = prev
		return err
	}
	if parent := s.hier.parent(); parent != nil {
		s.hier.ascend()
		err := s.block(parent, name, true)
		s.hier.descend()
		return err
	}
	return nil
}

func (s *State) blockExists(name string) bool {
	for _, t := range s.hier.templates {
		if _, ok := t.blocks[name]; ok {
			return true
		}
	}
	return false
}

// loadTemplate evaluates a template name expression and loads the template
// relative to the one currently rendering. A null name yields nil.
func (s *State) loadTemplate(expr parser.Expr) (*Template, error) {
	name, err := s.eval(expr)
	if err != nil {
		return nil, err
	}
	if name.IsNull() {
		return nil, nil
	}
	return s.engine.GetTemplate(s.self.resolveRelativePath(name.String()))
}

func (s *State) execExtends(n *parser.Extends) error {
	parent, err := s.loadTemplate(n.Parent)
	if err != nil || parent == nil {
		return err
	}
	if s.hier.current == len(s.hier.templates)-1 {
		s.hier.pushAncestor(parent)
	}
	return nil
}

// evalWith evaluates the optional map of an include or embed tag.
func (s *State) evalWith(expr parser.Expr) (*value.Map, error) {
	if expr == nil {
		return nil, nil
	}
	v, err := s.eval(expr)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	m, ok := v.ToMap()
	if !ok {
		return nil, errors.Newf(ErrEvaluation, "The 'with' argument must be a map, got [%s]", v.Kind())
	}
	return m, nil
}

// renderIsolated renders t with its own hierarchy and imports. The current
// scopes stay visible, topped by a scope holding vars.
func (s *State) renderIsolated(t *Template, vars *value.Map) error {
	hier, imports, named, from := s.hier, s.imports, s.namedImports, s.fromImports
	s.hier = newHierarchy(t)
	s.imports = nil
	s.namedImports = make(map[string]*Template)
	s.fromImports = make(map[string]boundMacro)
	defer func() {
		s.hier, s.imports, s.namedImports, s.fromImports = hier, imports, named, from
	}()

	s.scopes.push()
	defer s.scopes.pop()
	if vars != nil {
		for _, e := range vars.Entries() {
			s.scopes.put(e.Key.String(), e.Value)
		}
	}
	return s.renderTemplate(t)
}

func (s *State) execInclude(n *parser.Include) error {
	t, err := s.loadTemplate(n.Name)
	if err != nil || t == nil {
		return err
	}
	vars, err := s.evalWith(n.With)
	if err != nil {
		return err
	}
	return s.renderIsolated(t, vars)
}

func (s *State) execEmbed(n *parser.Embed) error {
	t, err := s.loadTemplate(n.Name)
	if err != nil || t == nil {
		return err
	}
	vars, err := s.evalWith(n.With)
	if err != nil {
		return err
	}
	return s.renderIsolated(t.withBlocks(n.Blocks), vars)
}

func (s *State) execImport(n *parser.Import) error {
	t, err := s.loadTemplate(n.Name)
	if err != nil || t == nil {
		return err
	}
	if n.Alias != "" {
		s.namedImports[n.Alias] = t
	} else {
		s.imports = append(s.imports, t)
	}
	return nil
}

func (s *State) execFromImport(n *parser.FromImport) error {
	t, err := s.loadTemplate(n.Name)
	if err != nil || t == nil {
		return err
	}
	for _, in := range n.Names {
		m, ok := t.macro(in.Name)
		if !ok {
			return errors.Newf(ErrEvaluation,
				"Function or Macro [%s] referenced by alias [%s] does not exist.", in.Name, in.Alias)
		}
		s.fromImports[in.Alias] = boundMacro{owner: t, macro: m}
	}
	return nil
}

func (s *State) execFilterBlock(n *parser.FilterBlock) error {
	body, err := s.capture(func() error { return s.renderBody(n.Body) })
	if err != nil {
		return err
	}
	prev := s.filterBody
	s.filterBody = value.FromString(body)
	v, err := s.eval(n.Filter)
	s.filterBody = prev
	if err != nil {
		return err
	}
	return s.write(v.String())
}

func (s *State) execCache(n *parser.CacheBlock) error {
	name, err := s.eval(n.Name)
	if err != nil {
		return err
	}
	key := FragmentKey{Node: n, Name: name.String(), Locale: s.locale.String()}
	// the fragment cache would wait on its own computation
	if s.computing.contains(key) {
		return errors.Newf(ErrEvaluation, "Recursive cache block [%s]", key.Name)
	}
	out, err := s.engine.fragmentCache.GetOrCompute(key, func() (string, error) {
		s.engine.logger.Debug("rendering cache fragment", "template", s.self.name, "key", key.Name)
		parent := s.computing
		s.computing = &fragmentFrame{key: key, parent: parent}
		defer func() { s.computing = parent }()
		return s.capture(func() error { return s.renderBody(n.Body) })
	})
	if err != nil {
		return errors.Wrap(ErrEvaluation, err, "Could not render cache block ["+key.Name+"]")
	}
	return s.write(out)
}

func (s *State) execParallel(n *parser.Parallel) error {
	exec := s.engine.executor
	if exec == nil {
		if _, warned := s.engine.parallelWarned.LoadOrStore(n, true); !warned {
			s.engine.logger.Info("executor service is not configured, parallel tag renders synchronously",
				"template", s.self.name, "line", parser.Line(n))
		}
		return s.renderBody(n.Body)
	}

	fork := s.fork()
	c := s.future.enqueue()
	exec.Go(func() {
		var buf strings.Builder
		fork.setWriter(&buf)
		err := fork.renderBody(n.Body)
		if err == nil {
			err = fork.flush()
		}
		c.complete(buf.String(), err)
	})
	return nil
}

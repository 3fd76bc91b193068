package pebble

import (
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/pebbletemplates/pebble-go/internal/errors"
)

// Loader supplies template sources by name.
type Loader interface {
	// Reader opens the template stored under key, as returned by CacheKey.
	Reader(key string) (io.ReadCloser, error)
	// CacheKey maps a template name to the key its compiled form is cached
	// under.
	CacheKey(name string) string
	// ResolveRelativePath resolves a name relative to the template that
	// references it. Names that are not relative are returned unchanged.
	ResolveRelativePath(relative, anchor string) string
	// ResourceExists reports whether name can be loaded.
	ResourceExists(name string) bool
}

func errTemplateNotFound(name string) error {
	return errors.Newf(ErrTemplateNotFound, "Could not find template [%s]", name)
}

// resolveRelative resolves "./" and "../" names against the directory of
// the anchor template.
func resolveRelative(relative, anchor string) string {
	if anchor == "" || !(strings.HasPrefix(relative, "./") || strings.HasPrefix(relative, "../")) {
		return relative
	}
	return path.Join(path.Dir(anchor), relative)
}

// MemoryLoader serves templates from a map of name to source.
type MemoryLoader map[string]string

func (m MemoryLoader) Reader(key string) (io.ReadCloser, error) {
	src, ok := m[key]
	if !ok {
		return nil, errTemplateNotFound(key)
	}
	return io.NopCloser(strings.NewReader(src)), nil
}

func (m MemoryLoader) CacheKey(name string) string { return name }

func (m MemoryLoader) ResolveRelativePath(relative, anchor string) string {
	return resolveRelative(relative, anchor)
}

func (m MemoryLoader) ResourceExists(name string) bool {
	_, ok := m[name]
	return ok
}

// FSLoader loads templates from a file system. Prefix is prepended and
// Suffix appended to every name.
type FSLoader struct {
	FS     fs.FS
	Prefix string
	Suffix string
}

// NewFSLoader creates a loader reading from fsys.
func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{FS: fsys}
}

func (l *FSLoader) path(name string) string {
	return strings.TrimPrefix(path.Join(l.Prefix, name+l.Suffix), "/")
}

func (l *FSLoader) Reader(key string) (io.ReadCloser, error) {
	f, err := l.FS.Open(l.path(key))
	if err != nil {
		return nil, errTemplateNotFound(key)
	}
	return f, nil
}

func (l *FSLoader) CacheKey(name string) string { return name }

func (l *FSLoader) ResolveRelativePath(relative, anchor string) string {
	return resolveRelative(relative, anchor)
}

func (l *FSLoader) ResourceExists(name string) bool {
	_, err := fs.Stat(l.FS, l.path(name))
	return err == nil
}

// StringLoader treats the template name as its source.
type StringLoader struct{}

func (StringLoader) Reader(key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(key)), nil
}

func (StringLoader) CacheKey(name string) string { return name }

func (StringLoader) ResolveRelativePath(relative, _ string) string { return relative }

func (StringLoader) ResourceExists(string) bool { return true }

// DelegatingLoader tries each loader in turn and uses the first one that
// has the template.
type DelegatingLoader []Loader

func (d DelegatingLoader) find(name string) Loader {
	for _, l := range d {
		if l.ResourceExists(name) {
			return l
		}
	}
	return nil
}

func (d DelegatingLoader) Reader(key string) (io.ReadCloser, error) {
	l := d.find(key)
	if l == nil {
		return nil, errTemplateNotFound(key)
	}
	return l.Reader(l.CacheKey(key))
}

func (d DelegatingLoader) CacheKey(name string) string { return name }

func (d DelegatingLoader) ResolveRelativePath(relative, anchor string) string {
	if l := d.find(anchor); l != nil {
		return l.ResolveRelativePath(relative, anchor)
	}
	return resolveRelative(relative, anchor)
}

func (d DelegatingLoader) ResourceExists(name string) bool {
	return d.find(name) != nil
}

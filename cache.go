package pebble

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/pebbletemplates/pebble-go/parser"
)

// Cache stores computed values by key. GetOrCompute must run fn at most
// once per key among concurrent callers; callers that arrive while a
// computation is in flight wait for it and share its result. Failed
// computations are not stored.
type Cache[K comparable, V any] interface {
	GetOrCompute(key K, fn func() (V, error)) (V, error)
	Invalidate(key K)
	InvalidateAll()
}

// ConcurrentCache is the default Cache. Stored values live in a sync.Map
// and concurrent misses on one key are collapsed by a singleflight group.
type ConcurrentCache[K comparable, V any] struct {
	values sync.Map
	flight singleflight.Group
}

// NewConcurrentCache creates an empty cache.
func NewConcurrentCache[K comparable, V any]() *ConcurrentCache[K, V] {
	return &ConcurrentCache[K, V]{}
}

func (c *ConcurrentCache[K, V]) GetOrCompute(key K, fn func() (V, error)) (V, error) {
	if v, ok := c.values.Load(key); ok {
		return v.(V), nil
	}
	res, err, _ := c.flight.Do(flightKey(key), func() (any, error) {
		// a flight that finished between Load and Do has stored its value
		if v, ok := c.values.Load(key); ok {
			return v, nil
		}
		v, err := fn()
		if err != nil {
			return nil, err
		}
		c.values.Store(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

func (c *ConcurrentCache[K, V]) Invalidate(key K) {
	c.values.Delete(key)
}

func (c *ConcurrentCache[K, V]) InvalidateAll() {
	c.values.Clear()
}

// flightKey encodes key for the singleflight group. Strings and fragment
// keys are encoded exactly; other key types are prefixed with their dynamic
// type and printed with %#v, so only keys that are equal Go values of the
// same type share a flight.
func flightKey(key any) string {
	switch k := key.(type) {
	case string:
		return "s:" + k
	case FragmentKey:
		return fmt.Sprintf("f:%p:%d:%s%s", k.Node, len(k.Name), k.Name, k.Locale)
	}
	return fmt.Sprintf("%T:%#v", key, key)
}

// NoOpCache computes every value and stores nothing. It is used when
// caching is disabled.
type NoOpCache[K comparable, V any] struct{}

func (NoOpCache[K, V]) GetOrCompute(_ K, fn func() (V, error)) (V, error) {
	return fn()
}

func (NoOpCache[K, V]) Invalidate(K) {}

func (NoOpCache[K, V]) InvalidateAll() {}

// FragmentKey identifies the output of a cache tag: the tag itself, the
// name it was given at render time and the render locale.
type FragmentKey struct {
	Node   *parser.CacheBlock
	Name   string
	Locale string
}

func (k FragmentKey) String() string {
	return fmt.Sprintf("%p/%s/%s", k.Node, k.Name, k.Locale)
}

package value

import (
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Map is an insertion-ordered map of values.
//
// Keys are normalized so that numerically equal keys of different kinds
// address the same entry: {1: "a"}[1L] finds "a".
type Map struct {
	keys   []Value
	values []Value
	index  map[string]int
}

// Entry is a single key/value pair of a map. Iterating a map in a template
// yields entries, so {{ entry.key }} and {{ entry.value }} work.
type Entry struct {
	Key   Value
	Value Value
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

// MapOf creates a map from string keys. Values are converted with FromAny and
// keys are inserted in sorted order.
func MapOf(m map[string]any) *Map {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := NewMap()
	for _, k := range keys {
		out.Set(FromString(k), FromAny(m[k]))
	}
	return out
}

// Set inserts or replaces the value for key.
func (m *Map) Set(key, val Value) {
	nk := normalizeKey(key)
	if i, ok := m.index[nk]; ok {
		m.values[i] = val
		return
	}
	m.index[nk] = len(m.keys)
	m.keys = append(m.keys, key)
	m.values = append(m.values, val)
}

// SetString is a shorthand for Set with a string key.
func (m *Map) SetString(key string, val Value) {
	m.Set(FromString(key), val)
}

// Get returns the value for key.
func (m *Map) Get(key Value) (Value, bool) {
	if m == nil {
		return Undefined(), false
	}
	i, ok := m.index[normalizeKey(key)]
	if !ok {
		return Undefined(), false
	}
	return m.values[i], true
}

// GetString is a shorthand for Get with a string key.
func (m *Map) GetString(key string) (Value, bool) {
	return m.Get(FromString(key))
}

// Has reports whether key is present.
func (m *Map) Has(key Value) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []Value {
	out := make([]Value, len(m.keys))
	copy(out, m.keys)
	return out
}

// Entries returns the entries in insertion order.
func (m *Map) Entries() []Entry {
	out := make([]Entry, len(m.keys))
	for i := range m.keys {
		out[i] = Entry{Key: m.keys[i], Value: m.values[i]}
	}
	return out
}

// EntryValues returns the entries wrapped as values.
func (m *Map) EntryValues() []Value {
	out := make([]Value, len(m.keys))
	for i := range m.keys {
		out[i] = Value{data: Entry{Key: m.keys[i], Value: m.values[i]}}
	}
	return out
}

// Copy returns a shallow copy of the map.
func (m *Map) Copy() *Map {
	out := NewMap()
	for i := range m.keys {
		out.Set(m.keys[i], m.values[i])
	}
	return out
}

// FirstKey returns the first inserted key, if any.
func (m *Map) FirstKey() (Value, bool) {
	if m.Len() == 0 {
		return Undefined(), false
	}
	return m.keys[0], true
}

func (m *Map) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i := range m.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(m.keys[i].String())
		b.WriteByte('=')
		b.WriteString(m.values[i].String())
	}
	b.WriteByte('}')
	return b.String()
}

func (e Entry) String() string {
	return e.Key.String() + "=" + e.Value.String()
}

// normalizeKey maps a key to its lookup form. Numbers are keyed by their
// exact decimal value.
func normalizeKey(key Value) string {
	switch d := key.data.(type) {
	case string:
		return "s:" + d
	case safeString:
		return "s:" + string(d)
	case int32, int64, *big.Int, float64, decimal.Decimal:
		return "n:" + toDecimal(key).String()
	case bool:
		if d {
			return "b:true"
		}
		return "b:false"
	case nil, noneType:
		return "z:"
	}
	return fmt.Sprintf("x:%v", key.data)
}

// mapFromHost converts a Go map to an ordered Map with keys sorted by their
// string form.
func mapFromHost(data any) *Map {
	rv := reflect.ValueOf(data)
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	out := NewMap()
	for _, k := range keys {
		out.Set(FromAny(k.Interface()), FromAny(rv.MapIndex(k).Interface()))
	}
	return out
}

// Package value provides the dynamic value type used by the template engine.
//
// Templates operate on values whose types are only known at render time. The
// Value type wraps any Go value and gives the evaluator a uniform way to
// check kinds, convert between representations and apply operators.
//
// # Kinds
//
// A Value has one of the following kinds:
//   - Undefined: a variable or attribute that could not be resolved
//   - None: an explicit null
//   - Bool: true or false
//   - Number: one of five numeric representations (see NumberKind)
//   - String: text, either plain or marked safe for auto-escaping
//   - Seq: an ordered sequence ([]Value or any Go slice or array)
//   - Map: a keyed container (*Map or any Go map)
//   - Plain: any other host Go value (structs, pointers, enums, times)
//
// Host values are kept as they are. The attribute resolution chain of the
// engine inspects them with reflection when a template reads a member.
//
// # Numbers
//
// Numbers follow a widening ladder borrowed from the JVM:
//
//	Int (int32) < Long (int64) < Float (float64) < BigInt (*big.Int) < Decimal
//
// Binary operations on two numbers of the same kind use that kind directly.
// Mixed operations promote to the higher kind, except that a BigInt combined
// with a fractional operand is promoted to Decimal so no fraction is lost.
//
// # Example Usage
//
//	count := value.FromInt(42)
//	price := value.FromFloat(9.5)
//	total, err := count.Mul(price) // Float 399.0
//
//	m := value.NewMap()
//	m.Set(value.FromString("name"), value.FromString("World"))
//	ctx := value.FromMap(m)
package value

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ValueKind describes the type of a Value.
type ValueKind int

const (
	// KindUndefined represents an unresolved variable or attribute.
	//
	// Undefined values render as empty strings and are falsy. In strict mode
	// the engine reports an error instead of producing them.
	KindUndefined ValueKind = iota

	// KindNone represents an explicit null (null, none, nil).
	KindNone

	// KindBool represents a boolean value.
	KindBool

	// KindNumber represents any of the numeric representations.
	//
	// Use NumberKind to find out which representation is stored.
	KindNumber

	// KindString represents text.
	//
	// Strings can be plain or safe. Safe strings are not escaped again by
	// the auto-escaper.
	KindString

	// KindSeq represents an ordered sequence.
	KindSeq

	// KindMap represents a keyed container.
	KindMap

	// KindPlain represents any other host value.
	//
	// Members of plain values are resolved by the engine's attribute
	// resolution chain.
	KindPlain
)

func (k ValueKind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNone:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSeq:
		return "sequence"
	case KindMap:
		return "map"
	case KindPlain:
		return "object"
	default:
		return "unknown"
	}
}

// Value represents a dynamically typed template value.
//
// The zero Value is Undefined. Values of primitive kinds are immutable;
// sequences and maps are held by reference.
type Value struct {
	data any
}

// noneType marks an explicit null. The zero Value is undefined.
type noneType struct{}

// safeString is a string that must not be escaped again.
type safeString string

// Undefined returns the undefined value.
func Undefined() Value {
	return Value{}
}

// None returns the null value.
//
// Example usage:
//
//	ctx := map[string]any{"user": value.None()}
//	// In template: {% if user is null %}anonymous{% endif %}
func None() Value {
	return Value{data: noneType{}}
}

// True returns the boolean true value.
func True() Value {
	return Value{data: true}
}

// False returns the boolean false value.
func False() Value {
	return Value{data: false}
}

// FromBool creates a Value from a boolean.
func FromBool(v bool) Value {
	return Value{data: v}
}

// FromInt32 creates an Int number.
func FromInt32(v int32) Value {
	return Value{data: v}
}

// FromInt creates a Long number.
//
// Example usage:
//
//	count := FromInt(42)
//	// In template: {{ count + 1 }}  -> 43
func FromInt(v int64) Value {
	return Value{data: v}
}

// FromFloat creates a Float number.
//
// Floats always print with a fractional part, so FromFloat(2) renders as
// "2.0".
func FromFloat(v float64) Value {
	return Value{data: v}
}

// FromBigInt creates a BigInt number. A nil pointer yields None.
func FromBigInt(v *big.Int) Value {
	if v == nil {
		return None()
	}
	return Value{data: v}
}

// FromDecimal creates a Decimal number.
func FromDecimal(v decimal.Decimal) Value {
	return Value{data: v}
}

// FromString creates a plain string that is subject to auto-escaping.
func FromString(v string) Value {
	return Value{data: v}
}

// FromSafeString creates a string that the auto-escaper leaves untouched.
//
// Example usage:
//
//	html := FromSafeString("<b>Bold</b>")
//	// In template: {{ html }}  -> <b>Bold</b>
//
// Use this with caution: the string must actually be safe for the output
// context.
func FromSafeString(v string) Value {
	return Value{data: safeString(v)}
}

// FromSlice creates a sequence.
func FromSlice(v []Value) Value {
	if v == nil {
		v = []Value{}
	}
	return Value{data: v}
}

// FromMap creates a map value. A nil map yields None.
func FromMap(m *Map) Value {
	if m == nil {
		return None()
	}
	return Value{data: m}
}

// Kind returns the kind of the value.
func (v Value) Kind() ValueKind {
	switch d := v.data.(type) {
	case nil:
		return KindUndefined
	case noneType:
		return KindNone
	case bool:
		return KindBool
	case int32, int64, float64, *big.Int, decimal.Decimal:
		return KindNumber
	case string, safeString:
		return KindString
	case []Value:
		return KindSeq
	case *Map:
		return KindMap
	default:
		switch reflect.ValueOf(d).Kind() {
		case reflect.Slice, reflect.Array:
			return KindSeq
		case reflect.Map:
			return KindMap
		}
		return KindPlain
	}
}

// IsUndefined reports whether the value is undefined.
func (v Value) IsUndefined() bool {
	return v.Kind() == KindUndefined
}

// IsNone reports whether the value is an explicit null.
func (v Value) IsNone() bool {
	_, ok := v.data.(noneType)
	return ok
}

// IsNull reports whether the value is either undefined or null.
func (v Value) IsNull() bool {
	k := v.Kind()
	return k == KindUndefined || k == KindNone
}

// IsSafe reports whether the value is a safe string.
func (v Value) IsSafe() bool {
	_, ok := v.data.(safeString)
	return ok
}

// IsNumber reports whether the value is a number.
func (v Value) IsNumber() bool {
	return v.Kind() == KindNumber
}

// IsTrue reports the truthiness of the value.
//
// Undefined, null, false, zero of any numeric kind, the empty string and
// empty sequences or maps are false. Everything else is true.
func (v Value) IsTrue() bool {
	switch d := v.data.(type) {
	case nil, noneType:
		return false
	case bool:
		return d
	case int32:
		return d != 0
	case int64:
		return d != 0
	case float64:
		return d != 0
	case *big.Int:
		return d.Sign() != 0
	case decimal.Decimal:
		return !d.IsZero()
	case string:
		return d != ""
	case safeString:
		return d != ""
	}
	if n, ok := v.Len(); ok {
		return n > 0
	}
	return true
}

// String returns the output representation of the value.
//
// Undefined and null render as the empty string. Floats always carry a
// fractional part. Sequences render as "[a, b]" and maps as "{k=v}".
func (v Value) String() string {
	switch d := v.data.(type) {
	case nil, noneType:
		return ""
	case bool:
		return strconv.FormatBool(d)
	case int32:
		return strconv.FormatInt(int64(d), 10)
	case int64:
		return strconv.FormatInt(d, 10)
	case float64:
		return formatFloat(d)
	case *big.Int:
		return d.String()
	case decimal.Decimal:
		return d.String()
	case string:
		return d
	case safeString:
		return string(d)
	case *Map:
		return d.String()
	}
	if v.Kind() == KindSeq {
		items, _ := v.Iter()
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	if v.Kind() == KindMap {
		return mapFromHost(v.data).String()
	}
	return fmt.Sprint(v.data)
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Repr returns a debug representation, quoting strings.
func (v Value) Repr() string {
	switch v.Kind() {
	case KindUndefined:
		return "undefined"
	case KindNone:
		return "null"
	case KindString:
		return strconv.Quote(v.String())
	}
	return v.String()
}

// Raw returns the underlying Go value. Safe strings are returned as plain
// strings, undefined and null as nil.
func (v Value) Raw() any {
	switch d := v.data.(type) {
	case noneType:
		return nil
	case safeString:
		return string(d)
	}
	return v.data
}

// AsString returns the string if the value is a string.
func (v Value) AsString() (string, bool) {
	switch d := v.data.(type) {
	case string:
		return d, true
	case safeString:
		return string(d), true
	}
	return "", false
}

// AsBool returns the boolean if the value is a bool.
func (v Value) AsBool() (bool, bool) {
	b, ok := v.data.(bool)
	return b, ok
}

// AsInt returns the value as an int64 if it is an integral number that
// fits.
func (v Value) AsInt() (int64, bool) {
	switch d := v.data.(type) {
	case int32:
		return int64(d), true
	case int64:
		return d, true
	case *big.Int:
		if d.IsInt64() {
			return d.Int64(), true
		}
	case float64:
		if d == float64(int64(d)) {
			return int64(d), true
		}
	case decimal.Decimal:
		if d.IsInteger() && d.BigInt().IsInt64() {
			return d.IntPart(), true
		}
	}
	return 0, false
}

// AsFloat returns any number as a float64.
func (v Value) AsFloat() (float64, bool) {
	switch d := v.data.(type) {
	case int32:
		return float64(d), true
	case int64:
		return float64(d), true
	case float64:
		return d, true
	case *big.Int:
		f, _ := new(big.Float).SetInt(d).Float64()
		return f, true
	case decimal.Decimal:
		return d.InexactFloat64(), true
	}
	return 0, false
}

// AsDecimal returns any number as a decimal.
func (v Value) AsDecimal() (decimal.Decimal, bool) {
	if !v.IsNumber() {
		return decimal.Decimal{}, false
	}
	return toDecimal(v), true
}

// AsSlice returns the items of a native sequence.
func (v Value) AsSlice() ([]Value, bool) {
	s, ok := v.data.([]Value)
	return s, ok
}

// AsMap returns the ordered map if the value holds one.
func (v Value) AsMap() (*Map, bool) {
	m, ok := v.data.(*Map)
	return m, ok
}

// Len returns the length of strings (in runes), sequences and maps.
func (v Value) Len() (int, bool) {
	switch d := v.data.(type) {
	case string:
		return utf8.RuneCountInString(d), true
	case safeString:
		return utf8.RuneCountInString(string(d)), true
	case []Value:
		return len(d), true
	case *Map:
		return d.Len(), true
	case nil, noneType, bool, int32, int64, float64, *big.Int, decimal.Decimal:
		return 0, false
	}
	rv := reflect.ValueOf(v.data)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

// Iter returns the items of an iterable value. Maps yield Entry values in
// key order. ok is false for non-iterable values.
func (v Value) Iter() (items []Value, ok bool) {
	switch d := v.data.(type) {
	case []Value:
		return d, true
	case *Map:
		return d.EntryValues(), true
	case string, safeString, nil, noneType:
		return nil, false
	}
	rv := reflect.ValueOf(v.data)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items = make([]Value, rv.Len())
		for i := range items {
			items[i] = FromAny(rv.Index(i).Interface())
		}
		return items, true
	case reflect.Map:
		return mapFromHost(v.data).EntryValues(), true
	}
	return nil, false
}

// Index returns the item at position idx of a sequence.
func (v Value) Index(idx int) (Value, bool) {
	if s, ok := v.data.([]Value); ok {
		if idx < 0 || idx >= len(s) {
			return Undefined(), false
		}
		return s[idx], true
	}
	rv := reflect.ValueOf(v.data)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if idx < 0 || idx >= rv.Len() {
			return Undefined(), false
		}
		return FromAny(rv.Index(idx).Interface()), true
	}
	return Undefined(), false
}

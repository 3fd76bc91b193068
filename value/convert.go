package value

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"

	"github.com/shopspring/decimal"
)

// FromAny converts a Go value to a Value.
//
// Conversion rules:
//   - nil and nil pointers become None
//   - Value is returned unchanged, []Value becomes a sequence
//   - int8, int16 and int32 become Int; int and int64 become Long
//   - unsigned integers become Long, or BigInt when they overflow int64
//   - float32 and float64 become Float
//   - *big.Int, decimal.Decimal, *big.Float and *big.Rat become BigInt or
//     Decimal
//   - strings and bools map to their kinds
//   - map[string]Value becomes an ordered Map
//   - every other value (structs, pointers, Go slices and maps, enums)
//     is kept as a host value and resolved with reflection on access
//
// Named integer types implementing fmt.Stringer are treated as enums and
// stay host values, so they print and compare by name.
//
// Example usage:
//
//	v := FromAny(map[string]any{"name": "Alice"})
//	// v.Kind() == KindMap; {{ v.name }} -> Alice
func FromAny(v any) Value {
	switch d := v.(type) {
	case nil:
		return None()
	case Value:
		return d
	case []Value:
		return FromSlice(d)
	case *Map:
		return FromMap(d)
	case map[string]Value:
		m := NewMap()
		for _, k := range sortedKeys(d) {
			m.SetString(k, d[k])
		}
		return FromMap(m)
	case Entry:
		return Value{data: d}
	case bool:
		return FromBool(d)
	case string:
		return FromString(d)
	case int:
		return FromInt(int64(d))
	case int8:
		return FromInt32(int32(d))
	case int16:
		return FromInt32(int32(d))
	case int32:
		return FromInt32(d)
	case int64:
		return FromInt(d)
	case uint:
		return fromUint(uint64(d))
	case uint8:
		return FromInt(int64(d))
	case uint16:
		return FromInt(int64(d))
	case uint32:
		return FromInt(int64(d))
	case uint64:
		return fromUint(d)
	case float32:
		return FromFloat(float64(d))
	case float64:
		return FromFloat(d)
	case *big.Int:
		return FromBigInt(d)
	case decimal.Decimal:
		return FromDecimal(d)
	case *big.Float:
		if d == nil {
			return None()
		}
		dec, err := decimal.NewFromString(d.Text('g', -1))
		if err != nil {
			return FromFloat(math.NaN())
		}
		return FromDecimal(dec)
	case *big.Rat:
		if d == nil {
			return None()
		}
		return FromDecimal(decimal.NewFromBigRat(d, DecimalPrecision))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return None()
		}
	}
	return Value{data: v}
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return FromBigInt(new(big.Int).SetUint64(u))
	}
	return FromInt(int64(u))
}

// enumName returns the name of an enum-like host value: a named integer type
// with a String method.
func enumName(v Value) (string, bool) {
	s, ok := v.data.(fmt.Stringer)
	if !ok {
		return "", false
	}
	switch reflect.ValueOf(v.data).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return s.String(), true
	}
	return "", false
}

// IsHost reports whether the value wraps a host Go value rather than one of
// the engine's native representations.
func (v Value) IsHost() bool {
	switch v.data.(type) {
	case nil, noneType, bool, int32, int64, float64, *big.Int, decimal.Decimal,
		string, safeString, []Value, *Map:
		return false
	}
	return true
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

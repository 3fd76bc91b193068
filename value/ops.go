package value

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/pebbletemplates/pebble-go/internal/errors"
)

func errInvalidOperation(op string) error {
	return errors.Newf(errors.ErrEvaluation, "invalid operands for mathematical operation [%s]", op)
}

func errDivisionByZero(op arithOp) error {
	return errors.Newf(errors.ErrEvaluation, "division by zero in mathematical operation [%s]", op.symbol())
}

func errInvalidComparison() error {
	return errors.New(errors.ErrEvaluation, "invalid operands for mathematical comparison")
}

// Add performs addition.
//
// A string operand turns the operation into concatenation. A sequence on the
// left appends the right operand (or all of its items when it is a sequence
// itself). Otherwise both operands must be numbers.
func (v Value) Add(other Value) (Value, error) {
	if v.Kind() == KindString || other.Kind() == KindString {
		s := v.String() + other.String()
		if v.IsSafe() && other.IsSafe() {
			return FromSafeString(s), nil
		}
		return FromString(s), nil
	}
	if v.Kind() == KindSeq {
		items, _ := v.Iter()
		out := make([]Value, 0, len(items)+1)
		out = append(out, items...)
		if other.Kind() == KindSeq {
			more, _ := other.Iter()
			out = append(out, more...)
		} else {
			out = append(out, other)
		}
		return FromSlice(out), nil
	}
	return v.numeric(opAdd, other)
}

// Sub performs subtraction. A sequence on the left removes the first
// occurrence of the right operand, or every item of a right sequence.
func (v Value) Sub(other Value) (Value, error) {
	if v.Kind() == KindSeq {
		items, _ := v.Iter()
		out := make([]Value, len(items))
		copy(out, items)
		if other.Kind() == KindSeq {
			remove, _ := other.Iter()
			kept := out[:0]
			for _, item := range out {
				if !containsValue(remove, item) {
					kept = append(kept, item)
				}
			}
			return FromSlice(kept), nil
		}
		for i, item := range out {
			if item.Equal(other) {
				return FromSlice(append(out[:i], out[i+1:]...)), nil
			}
		}
		return FromSlice(out), nil
	}
	return v.numeric(opSub, other)
}

// Mul performs multiplication.
func (v Value) Mul(other Value) (Value, error) {
	return v.numeric(opMul, other)
}

// Div performs division. Integer kinds truncate; decimals are rounded to
// DecimalPrecision significant digits.
func (v Value) Div(other Value) (Value, error) {
	return v.numeric(opDiv, other)
}

// Mod computes the remainder of a truncated division.
func (v Value) Mod(other Value) (Value, error) {
	return v.numeric(opMod, other)
}

func (v Value) numeric(op arithOp, other Value) (Value, error) {
	if !v.IsNumber() || !other.IsNumber() {
		return Undefined(), errInvalidOperation(op.symbol())
	}
	return arith(op, v, other)
}

// Concat joins the string forms of both values.
func (v Value) Concat(other Value) Value {
	return FromString(v.String() + other.String())
}

// Compare orders two numbers or two strings. Other combinations fail.
func (v Value) Compare(other Value) (int, error) {
	if v.IsNumber() && other.IsNumber() {
		return compareNumbers(v, other), nil
	}
	if a, ok := v.AsString(); ok {
		if b, ok := other.AsString(); ok {
			return strings.Compare(a, b), nil
		}
	}
	return 0, errInvalidComparison()
}

// CompareOp evaluates one of the relational operators <, <=, > and >=.
// Comparisons involving null or undefined are false.
func CompareOp(op string, a, b Value) (bool, error) {
	if a.IsNull() || b.IsNull() {
		return false, nil
	}
	c, err := a.Compare(b)
	if err != nil {
		return false, err
	}
	switch op {
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, fmt.Errorf("unknown comparison operator %q", op)
}

// Equal reports whether two values are equal.
//
// Numbers compare by their widened value, so 1 == 1.0 and an int64 equals a
// big integer of the same value. Enum-like host values (integer types with a
// String method) equal the string of their name.
func (v Value) Equal(other Value) bool {
	if v.IsNull() || other.IsNull() {
		return v.IsNull() && other.IsNull()
	}
	if v.IsNumber() && other.IsNumber() {
		return compareNumbers(v, other) == 0
	}
	if a, ok := v.AsString(); ok {
		if b, ok := other.AsString(); ok {
			return a == b
		}
		if name, ok := enumName(other); ok {
			return name == a
		}
		return false
	}
	if b, ok := other.AsString(); ok {
		if name, ok := enumName(v); ok {
			return name == b
		}
		return false
	}
	if v.Kind() == KindSeq && other.Kind() == KindSeq {
		a, _ := v.Iter()
		b, _ := other.Iter()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	}
	if v.Kind() == KindMap && other.Kind() == KindMap {
		a, b := v.toMap(), other.toMap()
		if a.Len() != b.Len() {
			return false
		}
		for _, e := range a.Entries() {
			ov, ok := b.Get(e.Key)
			if !ok || !ov.Equal(e.Value) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(v.data, other.data)
}

// Contains reports whether the container holds item.
//
// Strings test for a substring, sequences for an equal element and maps for
// a key. A sequence item on a sequence container tests that every element is
// contained.
func (v Value) Contains(item Value) (bool, error) {
	switch v.Kind() {
	case KindUndefined, KindNone:
		return false, nil
	case KindString:
		s, _ := v.AsString()
		return strings.Contains(s, item.String()), nil
	case KindSeq:
		items, _ := v.Iter()
		if item.Kind() == KindSeq {
			wanted, _ := item.Iter()
			for _, w := range wanted {
				if !containsValue(items, w) {
					return false, nil
				}
			}
			return true, nil
		}
		return containsValue(items, item), nil
	case KindMap:
		return v.toMap().Has(item), nil
	}
	return false, errors.Newf(errors.ErrEvaluation,
		"contains operator can only be used on sequences, maps and strings, got %s", v.Kind())
}

func containsValue(items []Value, item Value) bool {
	for _, i := range items {
		if i.Equal(item) {
			return true
		}
	}
	return false
}

func (v Value) toMap() *Map {
	if m, ok := v.data.(*Map); ok {
		return m
	}
	return mapFromHost(v.data)
}

// ToMap returns a map value as an ordered Map, converting Go maps.
func (v Value) ToMap() (*Map, bool) {
	if v.Kind() != KindMap {
		return nil, false
	}
	return v.toMap(), true
}

// Range builds the inclusive sequence start..end with the given step.
//
// Integral bounds produce Long values. Single-character strings produce a
// range of characters.
func Range(start, end, step Value) (Value, error) {
	inc, ok := step.AsInt()
	if !ok || inc == 0 {
		return Undefined(), errors.New(errors.ErrEvaluation, "range increment must be a non-zero integer")
	}

	if a, ok := start.AsString(); ok {
		b, ok := end.AsString()
		ra, rb := []rune(a), []rune(b)
		if !ok || len(ra) != 1 || len(rb) != 1 {
			return Undefined(), errors.New(errors.ErrEvaluation, "character ranges need single-character bounds")
		}
		var out []Value
		for c, ok := int64(ra[0]), true; ok && inRange(c, int64(rb[0]), inc); c, ok = stepRange(c, inc) {
			out = append(out, FromString(string(rune(c))))
		}
		return FromSlice(out), nil
	}

	lo, ok1 := start.AsInt()
	hi, ok2 := end.AsInt()
	if !ok1 || !ok2 {
		return Undefined(), errors.New(errors.ErrEvaluation, "range bounds must be integers")
	}
	var out []Value
	for i, ok := lo, true; ok && inRange(i, hi, inc); i, ok = stepRange(i, inc) {
		out = append(out, FromInt(i))
	}
	return FromSlice(out), nil
}

func inRange(i, end, inc int64) bool {
	if inc > 0 {
		return i <= end
	}
	return i >= end
}

// stepRange advances i by inc. ok is false when the step would overflow
// int64, which ends the range.
func stepRange(i, inc int64) (next int64, ok bool) {
	if (inc > 0 && i > math.MaxInt64-inc) || (inc < 0 && i < math.MinInt64-inc) {
		return i, false
	}
	return i + inc, true
}

package value

import (
	"math"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pebbletemplates/pebble-go/internal/errors"
)

func mustBig(s string) *big.Int {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad big int " + s)
	}
	return b
}

func TestArithmeticWidening(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Value
		op       func(a, b Value) (Value, error)
		wantKind NumberKind
		want     string
	}{
		{"int+int", FromInt32(2), FromInt32(3), Value.Add, NumberInt, "5"},
		{"int+long", FromInt32(2), FromInt(3), Value.Add, NumberLong, "5"},
		{"long+float", FromInt(2), FromFloat(0.5), Value.Add, NumberFloat, "2.5"},
		{"long+bigint", FromInt(1), mustBigValue("9223372036854775807"), Value.Add, NumberBigInt, "9223372036854775808"},
		{"bigint*float", mustBigValue("10"), FromFloat(0.5), Value.Mul, NumberDecimal, "5"},
		{"float+decimal", FromFloat(0.5), FromDecimal(decimal.RequireFromString("1.25")), Value.Add, NumberDecimal, "1.75"},
		{"long division truncates", FromInt(7), FromInt(2), Value.Div, NumberLong, "3"},
		{"negative truncates toward zero", FromInt(-7), FromInt(2), Value.Div, NumberLong, "-3"},
		{"float division", FromInt(7), FromFloat(2), Value.Div, NumberFloat, "3.5"},
		{"long modulus", FromInt(7), FromInt(3), Value.Mod, NumberLong, "1"},
		{"sub", FromInt(7), FromInt32(10), Value.Sub, NumberLong, "-3"},
		{
			"decimal division is rounded",
			FromDecimal(decimal.NewFromInt(1)), FromDecimal(decimal.NewFromInt(3)), Value.Div,
			NumberDecimal, "0.3333333333333333333333333333333333",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op(tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			kind, ok := got.NumberKind()
			if !ok || kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", kind, tt.wantKind)
			}
			if got.String() != tt.want {
				t.Errorf("result = %s, want %s", got.String(), tt.want)
			}
		})
	}
}

func mustBigValue(s string) Value {
	return FromBigInt(mustBig(s))
}

func TestArithmeticErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"bool operand", second(FromBool(true).Mul(FromInt(1)))},
		{"null operand", second(None().Sub(FromInt(1)))},
		{"division by zero", second(FromInt(1).Div(FromInt(0)))},
		{"float division by zero", second(FromFloat(1).Div(FromFloat(0)))},
		{"modulus by zero", second(FromInt32(1).Mod(FromInt32(0)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatalf("expected error")
			}
			if !errors.IsKind(tt.err, errors.ErrEvaluation) {
				t.Errorf("error kind: %v", tt.err)
			}
		})
	}
}

func second(_ Value, err error) error {
	return err
}

func TestNumericEquality(t *testing.T) {
	if !FromInt(325055142682428416).Equal(FromFloat(325055142682428416.0)) {
		t.Errorf("long and double of the same value should be equal")
	}
	if !FromInt32(1).Equal(FromDecimal(decimal.RequireFromString("1.00"))) {
		t.Errorf("int and decimal of the same value should be equal")
	}
	if FromInt(1).Equal(FromString("1")) {
		t.Errorf("numbers never equal strings")
	}
}

func TestNumericOrdering(t *testing.T) {
	big := mustBigValue("325055142682428416")
	tests := []struct {
		name string
		op   string
		a, b Value
		want bool
	}{
		{"below bigint", "<", FromInt(325055142682428415), big, true},
		{"above bigint", ">", FromInt(325055142682428417), big, true},
		{"not below", "<", FromInt(325055142682428417), big, false},
		{"equal le", "<=", FromInt(325055142682428416), big, true},
		{"int vs float", "<", FromInt32(1), FromFloat(1.5), true},
		{"strings", "<", FromString("abc"), FromString("abd"), true},
		{"null left", "<", None(), FromInt(1), false},
		{"null right", ">=", FromInt(1), None(), false},
		{"undefined", ">", Undefined(), FromInt(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompareOp(tt.op, tt.a, tt.b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("%s %s %s = %v, want %v", tt.a.Repr(), tt.op, tt.b.Repr(), got, tt.want)
			}
		})
	}

	if _, err := CompareOp("<", FromString("a"), FromInt(1)); err == nil {
		t.Errorf("expected error comparing string with number")
	}
}

func TestStringAndListOperands(t *testing.T) {
	got, err := FromString("a").Add(FromInt(1))
	if err != nil || got.String() != "a1" {
		t.Errorf(`"a" + 1 = %q, %v`, got.String(), err)
	}
	got, _ = FromSafeString("<b>").Add(FromSafeString("</b>"))
	if !got.IsSafe() {
		t.Errorf("concatenation of safe strings should stay safe")
	}
	got, _ = FromSafeString("<b>").Add(FromString("x"))
	if got.IsSafe() {
		t.Errorf("concatenation with an unsafe string must not be safe")
	}

	list := FromSlice([]Value{FromInt(1), FromInt(2), FromInt(2)})
	got, _ = list.Add(FromInt(3))
	if got.String() != "[1, 2, 2, 3]" {
		t.Errorf("list + 3 = %s", got)
	}
	got, _ = list.Sub(FromInt(2))
	if got.String() != "[1, 2]" {
		t.Errorf("list - 2 = %s", got)
	}
	got, _ = list.Sub(FromSlice([]Value{FromInt(2)}))
	if got.String() != "[1]" {
		t.Errorf("list - [2] = %s", got)
	}
	if list.String() != "[1, 2, 2]" {
		t.Errorf("operands must not be modified, got %s", list)
	}
}

type testColor int

const (
	colorRed testColor = iota
	colorBlue
)

func (c testColor) String() string {
	return [...]string{"RED", "BLUE"}[c]
}

func TestEnumEquality(t *testing.T) {
	if !FromAny(colorBlue).Equal(FromString("BLUE")) {
		t.Errorf("enum should equal its name")
	}
	if FromString("RED").Equal(FromAny(colorBlue)) {
		t.Errorf("enum should not equal another name")
	}
	if !FromString("RED").Equal(FromAny(colorRed)) {
		t.Errorf("equality should be symmetric")
	}
}

func TestContains(t *testing.T) {
	m := NewMap()
	m.SetString("k", FromInt(1))
	tests := []struct {
		name      string
		container Value
		item      Value
		want      bool
	}{
		{"substring", FromString("hello"), FromString("ell"), true},
		{"list", FromAny([]string{"a", "b"}), FromString("b"), true},
		{"list all", FromSlice([]Value{FromInt(1), FromInt(2)}), FromSlice([]Value{FromInt32(2), FromInt(1)}), true},
		{"list missing", FromSlice([]Value{FromInt(1)}), FromInt(3), false},
		{"map key", FromMap(m), FromString("k"), true},
		{"host map", FromAny(map[string]int{"x": 1}), FromString("x"), true},
		{"null container", None(), FromString("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.container.Contains(tt.item)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("contains = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := FromInt(1).Contains(FromInt(1)); err == nil {
		t.Errorf("expected error for number container")
	}
}

func TestRange(t *testing.T) {
	got, err := Range(FromInt(0), FromInt(2), FromInt(1))
	if err != nil || got.String() != "[0, 1, 2]" {
		t.Errorf("0..2 = %s, %v", got, err)
	}
	got, _ = Range(FromInt(3), FromInt(0), FromInt(-2))
	if got.String() != "[3, 1]" {
		t.Errorf("3..0 step -2 = %s", got)
	}
	got, _ = Range(FromString("a"), FromString("c"), FromInt(1))
	if got.String() != "[a, b, c]" {
		t.Errorf("'a'..'c' = %s", got)
	}
	if _, err := Range(FromInt(0), FromInt(2), FromInt(0)); err == nil {
		t.Errorf("expected error for zero step")
	}
}

func TestRangeAtIntegerBounds(t *testing.T) {
	tests := []struct {
		name            string
		start, end, inc int64
		expected        string
	}{
		{"up to max", math.MaxInt64 - 1, math.MaxInt64, 1, "[9223372036854775806, 9223372036854775807]"},
		{"step past max", math.MaxInt64 - 2, math.MaxInt64, 2, "[9223372036854775805, 9223372036854775807]"},
		{"large step", 0, math.MaxInt64, math.MaxInt64, "[0, 9223372036854775807]"},
		{"down to min", math.MinInt64 + 1, math.MinInt64, -1, "[-9223372036854775807, -9223372036854775808]"},
		{"step past min", math.MinInt64 + 2, math.MinInt64, -3, "[-9223372036854775806]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Range(FromInt(tt.start), FromInt(tt.end), FromInt(tt.inc))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.expected {
				t.Fatalf("got %s, want %s", got, tt.expected)
			}
		})
	}

	got, err := Range(FromString("a"), FromString("z"), FromInt(math.MaxInt64))
	if err != nil || got.String() != "[a]" {
		t.Fatalf("character range with huge step = %s, %v", got, err)
	}
}

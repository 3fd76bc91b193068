package value

import (
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTruthiness(t *testing.T) {
	tests := []struct {
		name string
		val  Value
		want bool
	}{
		{"undefined", Undefined(), false},
		{"none", None(), false},
		{"false", False(), false},
		{"true", True(), true},
		{"zero int", FromInt32(0), false},
		{"zero long", FromInt(0), false},
		{"zero float", FromFloat(0.0), false},
		{"zero bigint", FromBigInt(new(big.Int)), false},
		{"empty string", FromString(""), false},
		{"string", FromString("0"), true},
		{"number", FromInt(-1), true},
		{"empty list", FromSlice(nil), false},
		{"list", FromSlice([]Value{None()}), true},
		{"empty map", FromMap(NewMap()), false},
		{"empty host slice", FromAny([]int{}), false},
		{"struct", FromAny(struct{}{}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.val.IsTrue(); got != tt.want {
				t.Errorf("IsTrue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	m := NewMap()
	m.SetString("a", FromInt(1))
	m.SetString("b", FromString("x"))

	tests := []struct {
		name string
		val  Value
		want string
	}{
		{"undefined", Undefined(), ""},
		{"null", None(), ""},
		{"whole float", FromFloat(2), "2.0"},
		{"float", FromFloat(2.25), "2.25"},
		{"int", FromInt32(-4), "-4"},
		{"list", FromSlice([]Value{FromInt(1), FromString("a")}), "[1, a]"},
		{"map", FromMap(m), "{a=1, b=x}"},
		{"host slice", FromAny([]string{"x", "y"}), "[x, y]"},
		{"enum", FromAny(colorBlue), "BLUE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.val.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind ValueKind
		num  NumberKind
	}{
		{"nil", nil, KindNone, 0},
		{"nil pointer", (*struct{})(nil), KindNone, 0},
		{"int", 3, KindNumber, NumberLong},
		{"int16", int16(3), KindNumber, NumberInt},
		{"uint64 overflow", uint64(1) << 63, KindNumber, NumberBigInt},
		{"float32", float32(1.5), KindNumber, NumberFloat},
		{"big.Rat", big.NewRat(1, 4), KindNumber, NumberDecimal},
		{"slice", []any{1, "a"}, KindSeq, 0},
		{"map", map[string]any{"a": 1}, KindMap, 0},
		{"struct", struct{ A int }{1}, KindPlain, 0},
		{"enum", colorRed, KindPlain, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := FromAny(tt.in)
			if v.Kind() != tt.kind {
				t.Fatalf("kind = %v, want %v", v.Kind(), tt.kind)
			}
			if tt.kind == KindNumber {
				if nk, _ := v.NumberKind(); nk != tt.num {
					t.Errorf("number kind = %v, want %v", nk, tt.num)
				}
			}
		})
	}
}

func TestMapKeysAreNormalized(t *testing.T) {
	m := NewMap()
	m.Set(FromInt32(1), FromString("one"))
	m.SetString("b", FromString("bee"))
	m.Set(FromInt(1), FromString("uno"))

	if m.Len() != 2 {
		t.Fatalf("len = %d, want 2", m.Len())
	}
	got, ok := m.Get(FromFloat(1.0))
	if !ok || got.String() != "uno" {
		t.Errorf("m[1.0] = %v, %v", got, ok)
	}

	var keys []string
	for _, k := range m.Keys() {
		keys = append(keys, k.Repr())
	}
	if diff := cmp.Diff([]string{"1", `"b"`}, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestIterMapYieldsEntries(t *testing.T) {
	items, ok := FromAny(map[string]int{"b": 2, "a": 1}).Iter()
	if !ok {
		t.Fatalf("map should be iterable")
	}
	var got []string
	for _, item := range items {
		e := item.Raw().(Entry)
		got = append(got, e.Key.String()+":"+e.Value.String())
	}
	if diff := cmp.Diff([]string{"a:1", "b:2"}, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	if _, ok := FromString("abc").Iter(); ok {
		t.Errorf("strings are not iterable")
	}
}

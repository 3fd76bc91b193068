package value

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// NumberKind identifies the representation of a number. The order of the
// constants is the widening order.
type NumberKind int

const (
	// NumberInt is a 32-bit integer.
	NumberInt NumberKind = iota
	// NumberLong is a 64-bit integer.
	NumberLong
	// NumberFloat is a 64-bit float.
	NumberFloat
	// NumberBigInt is an arbitrary-precision integer.
	NumberBigInt
	// NumberDecimal is an arbitrary-precision decimal.
	NumberDecimal
)

func (k NumberKind) String() string {
	switch k {
	case NumberInt:
		return "Integer"
	case NumberLong:
		return "Long"
	case NumberFloat:
		return "Double"
	case NumberBigInt:
		return "BigInteger"
	case NumberDecimal:
		return "BigDecimal"
	}
	return "Number"
}

// DecimalPrecision is the number of significant digits kept by decimal
// multiplication and division (IEEE 754 decimal128).
const DecimalPrecision = 34

// NumberKind returns the numeric representation of v.
func (v Value) NumberKind() (NumberKind, bool) {
	switch v.data.(type) {
	case int32:
		return NumberInt, true
	case int64:
		return NumberLong, true
	case float64:
		return NumberFloat, true
	case *big.Int:
		return NumberBigInt, true
	case decimal.Decimal:
		return NumberDecimal, true
	}
	return 0, false
}

// widen returns the kind both operands are promoted to.
func widen(a, b NumberKind) NumberKind {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi == NumberBigInt && lo == NumberFloat {
		return NumberDecimal
	}
	return hi
}

func toInt32(v Value) int32 {
	if d, ok := v.data.(int32); ok {
		return d
	}
	return int32(toInt64(v))
}

func toInt64(v Value) int64 {
	switch d := v.data.(type) {
	case int32:
		return int64(d)
	case int64:
		return d
	case float64:
		return int64(d)
	case *big.Int:
		return d.Int64()
	case decimal.Decimal:
		return d.IntPart()
	}
	return 0
}

func toFloat(v Value) float64 {
	f, _ := v.AsFloat()
	return f
}

func toBigInt(v Value) *big.Int {
	switch d := v.data.(type) {
	case int32:
		return big.NewInt(int64(d))
	case int64:
		return big.NewInt(d)
	case *big.Int:
		return d
	case float64:
		bi, _ := big.NewFloat(d).Int(nil)
		return bi
	case decimal.Decimal:
		return d.BigInt()
	}
	return new(big.Int)
}

func toDecimal(v Value) decimal.Decimal {
	switch d := v.data.(type) {
	case int32:
		return decimal.NewFromInt32(d)
	case int64:
		return decimal.NewFromInt(d)
	case float64:
		return decimal.NewFromFloat(d)
	case *big.Int:
		return decimal.NewFromBigInt(d, 0)
	case decimal.Decimal:
		return d
	}
	return decimal.Zero
}

// roundSignificant rounds d half-even to n significant digits.
func roundSignificant(d decimal.Decimal, n int) decimal.Decimal {
	if d.IsZero() {
		return d
	}
	digits := len(new(big.Int).Abs(d.Coefficient()).String())
	if digits <= n {
		return d
	}
	places := n - (digits + int(d.Exponent()))
	return d.RoundBank(int32(places))
}

type arithOp int

const (
	opAdd arithOp = iota
	opSub
	opMul
	opDiv
	opMod
)

func (op arithOp) symbol() string {
	return [...]string{"+", "-", "*", "/", "%"}[op]
}

// arith applies op to two numbers after widening them.
func arith(op arithOp, a, b Value) (Value, error) {
	ka, _ := a.NumberKind()
	kb, _ := b.NumberKind()
	kind := widen(ka, kb)

	if (op == opDiv || op == opMod) && isZero(b) {
		return Undefined(), errDivisionByZero(op)
	}

	switch kind {
	case NumberInt:
		x, y := toInt32(a), toInt32(b)
		switch op {
		case opAdd:
			return FromInt32(x + y), nil
		case opSub:
			return FromInt32(x - y), nil
		case opMul:
			return FromInt32(x * y), nil
		case opDiv:
			return FromInt32(x / y), nil
		default:
			return FromInt32(x % y), nil
		}
	case NumberLong:
		x, y := toInt64(a), toInt64(b)
		switch op {
		case opAdd:
			return FromInt(x + y), nil
		case opSub:
			return FromInt(x - y), nil
		case opMul:
			return FromInt(x * y), nil
		case opDiv:
			return FromInt(x / y), nil
		default:
			return FromInt(x % y), nil
		}
	case NumberFloat:
		x, y := toFloat(a), toFloat(b)
		switch op {
		case opAdd:
			return FromFloat(x + y), nil
		case opSub:
			return FromFloat(x - y), nil
		case opMul:
			return FromFloat(x * y), nil
		case opDiv:
			return FromFloat(x / y), nil
		default:
			return FromFloat(math.Mod(x, y)), nil
		}
	case NumberBigInt:
		x, y := toBigInt(a), toBigInt(b)
		r := new(big.Int)
		switch op {
		case opAdd:
			r.Add(x, y)
		case opSub:
			r.Sub(x, y)
		case opMul:
			r.Mul(x, y)
		case opDiv:
			r.Quo(x, y)
		default:
			r.Rem(x, y)
		}
		return FromBigInt(r), nil
	default:
		x, y := toDecimal(a), toDecimal(b)
		switch op {
		case opAdd:
			return FromDecimal(x.Add(y)), nil
		case opSub:
			return FromDecimal(x.Sub(y)), nil
		case opMul:
			return FromDecimal(roundSignificant(x.Mul(y), DecimalPrecision)), nil
		case opDiv:
			q := x.DivRound(y, 2*DecimalPrecision)
			return FromDecimal(roundSignificant(q, DecimalPrecision)), nil
		default:
			return FromDecimal(x.Mod(y)), nil
		}
	}
}

func isZero(v Value) bool {
	switch d := v.data.(type) {
	case int32:
		return d == 0
	case int64:
		return d == 0
	case float64:
		return d == 0
	case *big.Int:
		return d.Sign() == 0
	case decimal.Decimal:
		return d.IsZero()
	}
	return false
}

// compareNumbers compares two numbers after widening them.
func compareNumbers(a, b Value) int {
	ka, _ := a.NumberKind()
	kb, _ := b.NumberKind()
	switch widen(ka, kb) {
	case NumberInt, NumberLong:
		x, y := toInt64(a), toInt64(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case NumberFloat:
		x, y := toFloat(a), toFloat(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case NumberBigInt:
		return toBigInt(a).Cmp(toBigInt(b))
	default:
		return toDecimal(a).Cmp(toDecimal(b))
	}
}

// Neg negates a number.
func (v Value) Neg() (Value, error) {
	switch d := v.data.(type) {
	case int32:
		return FromInt32(-d), nil
	case int64:
		return FromInt(-d), nil
	case float64:
		return FromFloat(-d), nil
	case *big.Int:
		return FromBigInt(new(big.Int).Neg(d)), nil
	case decimal.Decimal:
		return FromDecimal(d.Neg()), nil
	}
	return Undefined(), errInvalidOperation("-")
}

// Pos applies unary plus, which only checks that v is a number.
func (v Value) Pos() (Value, error) {
	if !v.IsNumber() {
		return Undefined(), errInvalidOperation("+")
	}
	return v, nil
}

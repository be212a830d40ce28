// Package fixed implements the signed Q32.32 fixed-point numeric format used
// by the preprocessor expression language: 32 signed integer bits over 32
// fractional bits, stored in a single int64. Arithmetic is performed on the
// raw representation so results are bit-exact across platforms.
package fixed

import (
	"fmt"
	"math"
	"math/bits"
)

type Number int64

const (
	fracBits = 32
	One      = Number(1 << fracBits)
	fracMask = int64(1<<fracBits - 1)
)

// FromFloat splits v into integer and fractional parts and packs them.
func FromFloat(v float64) Number {
	ipart, fpart := math.Modf(v)
	return Number(int64(ipart)<<fracBits + int64(fpart*float64(One)))
}

func FromInt(i int64) Number {
	return Number(i << fracBits)
}

// Float reconstructs the closest floating approximation.
func (n Number) Float() float64 {
	return float64(n) / float64(One)
}

// Int truncates toward zero.
func (n Number) Int() int64 {
	return int64(n) / int64(One)
}

// Eq compares raw bit patterns.
func (n Number) Eq(m Number) bool { return n == m }

// Less orders by reconstructed floating approximation.
func (n Number) Less(m Number) bool { return n.Float() < m.Float() }

func (n Number) Neg() Number { return -n }

func (n Number) Add(m Number) Number { return n + m }

func (n Number) Sub(m Number) Number { return n - m }

// Mul multiplies through a 128-bit intermediate so the full Q64.64 product
// can be narrowed back to Q32.32 without double rounding.
func (n Number) Mul(m Number) Number {
	neg := (n < 0) != (m < 0)
	a, b := uint64(abs64(int64(n))), uint64(abs64(int64(m)))
	hi, lo := bits.Mul64(a, b)
	raw := int64(hi<<fracBits | lo>>fracBits)
	if neg {
		raw = -raw
	}
	return Number(raw)
}

// Div divides through a 128-bit shifted dividend. ok is false when the
// divisor is zero or the quotient does not fit in Q32.32; bits.Div64 panics
// on both, so they are rejected up front.
func (n Number) Div(m Number) (Number, bool) {
	if m == 0 {
		return 0, false
	}
	neg := (n < 0) != (m < 0)
	a, b := uint64(abs64(int64(n))), uint64(abs64(int64(m)))
	if b <= a>>fracBits {
		return 0, false
	}
	quo, _ := bits.Div64(a>>fracBits, a<<fracBits, b)
	if quo > math.MaxInt64 {
		return 0, false
	}
	raw := int64(quo)
	if neg {
		raw = -raw
	}
	return Number(raw), true
}

// Mod returns the remainder of real division, carrying the dividend's sign.
// The raw remainder is exactly the fixed-point remainder.
func (n Number) Mod(m Number) Number {
	return Number(int64(n) % int64(m))
}

// Floor rounds toward negative infinity by clearing the fraction bits.
func (n Number) Floor() Number {
	return Number(int64(n) &^ fracMask)
}

func (n Number) Ceil() Number {
	return (n + One - 1).Floor()
}

// Round rounds half away from zero.
func (n Number) Round() Number {
	if n < 0 {
		return -((-n + One/2).Floor())
	}
	return (n + One/2).Floor()
}

// Trunc rounds toward zero.
func (n Number) Trunc() Number {
	return FromInt(n.Int())
}

// Frac returns the fractional part, carrying the sign of n.
func (n Number) Frac() Number {
	return n - n.Trunc()
}

func (n Number) String() string {
	return fmt.Sprintf("%g", n.Float())
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

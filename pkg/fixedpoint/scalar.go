package fixedpoint

import "math"

// FracBits is the number of fractional bits in a Scalar.
const FracBits = 16

// One is the Scalar representation of 1.0.
const One Scalar = 1 << FracBits

// Scalar is a Q16.16 fixed-point value: a signed 32-bit integer representing
// the rational value/2^16.
type Scalar int32

// FromInt converts an integer to a Scalar, saturating if it overflows.
func FromInt(v int) Scalar {
	scaled := int64(v) << FracBits
	return saturate32(scaled)
}

// FromFloat64 converts a float64 to a Scalar, rounding to nearest and
// saturating on overflow. It exists only at the boundary (parsing config,
// test fixtures, CLI input) and must never appear on the apply_event or
// hash path.
func FromFloat64(v float64) Scalar {
	if math.IsNaN(v) {
		return 0
	}
	scaled := math.Round(v * (1 << FracBits))
	if scaled >= math.MaxInt32 {
		return math.MaxInt32
	}
	if scaled <= math.MinInt32 {
		return math.MinInt32
	}
	return Scalar(scaled)
}

// Float64 returns the real value represented by s. Diagnostic use only.
func (s Scalar) Float64() float64 {
	return float64(s) / float64(One)
}

// Add returns a+b, saturating to the 32-bit signed range on overflow.
func Add(a, b Scalar) Scalar {
	sum := int64(a) + int64(b)
	return saturate32(sum)
}

// Sub returns a-b, saturating to the 32-bit signed range on overflow.
func Sub(a, b Scalar) Scalar {
	diff := int64(a) - int64(b)
	return saturate32(diff)
}

// Mul returns a*b computed in a 64-bit intermediate, shifted right by
// [FracBits], saturating to the 32-bit signed range on overflow.
func Mul(a, b Scalar) Scalar {
	product := (int64(a) * int64(b)) >> FracBits
	return saturate32(product)
}

// saturate32 clamps v into the signed 32-bit range.
func saturate32(v int64) Scalar {
	switch {
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	default:
		return Scalar(v)
	}
}

// saturateAdd64 adds two 64-bit accumulator terms, saturating to the int64
// range instead of wrapping.
func saturateAdd64(a, b int64) int64 {
	sum := a + b
	// Overflow happened iff the operands share a sign but the result doesn't.
	if (a >= 0) == (b >= 0) && (sum >= 0) != (a >= 0) {
		if a >= 0 {
			return math.MaxInt64
		}
		return math.MinInt64
	}
	return sum
}

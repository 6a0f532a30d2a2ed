// Package fixedpoint implements Q16.16 signed fixed-point arithmetic.
//
// Every vector operation that participates in the kernel's canonical hash
// (see package kernel's State.Hash) goes through this package instead of
// float32/float64: floating point is forbidden in the hot path because its
// rounding behavior is not guaranteed identical across architectures, while
// integer saturation arithmetic is. A Scalar is a signed 32-bit integer
// representing value/2^16.
package fixedpoint

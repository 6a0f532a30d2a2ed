package kernel

import "errors"

// Error classification per the kernel's failure taxonomy.
//
// Callers MUST classify errors using errors.Is; the kernel may wrap these
// with additional context.
var (
	// ErrDimensionMismatch reports a vector whose length does not equal
	// the kernel's configured dimension, or a binary op over two vectors
	// of unequal length.
	ErrDimensionMismatch = errors.New("kernel: dimension mismatch")

	// ErrCapacityExceeded reports a pool insert with no empty slot left.
	ErrCapacityExceeded = errors.New("kernel: capacity exceeded")

	// ErrNotFound reports a reference to an id that is empty or out of
	// range.
	ErrNotFound = errors.New("kernel: not found")

	// ErrInvalidOperation reports an event whose id does not match the
	// id the pool would assign by its first-fit rule, or another caller
	// contract violation.
	ErrInvalidOperation = errors.New("kernel: invalid operation")

	// ErrOverflow reports an arithmetic overflow in a non-saturating
	// path. Its presence always indicates a contract violation elsewhere
	// in the kernel, never a valid runtime condition.
	ErrOverflow = errors.New("kernel: overflow")
)

package eventlog

import "errors"

var (
	// ErrCorrupt reports a framing or checksum failure at a non-tail
	// offset, or a header that does not parse at all.
	ErrCorrupt = errors.New("eventlog: corrupt")

	// ErrDimensionMismatch reports a log opened against a Dim different
	// from the one recorded in its header (spec §4.8 "dimension mismatch
	// at open ⇒ fail-closed").
	ErrDimensionMismatch = errors.New("eventlog: dimension mismatch")

	// ErrIncompatible reports a header schema version this reader does
	// not understand.
	ErrIncompatible = errors.New("eventlog: incompatible schema version")
)

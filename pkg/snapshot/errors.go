package snapshot

import "errors"

var (
	// ErrCorrupt reports a structurally invalid envelope, body, or CRC
	// mismatch. Rebuild-class: discard the snapshot and replay the log.
	ErrCorrupt = errors.New("snapshot: corrupt")

	// ErrIncompatible reports an envelope whose schema version this
	// decoder does not support.
	ErrIncompatible = errors.New("snapshot: incompatible schema version")

	// ErrDimensionMismatch reports a kernel blob whose capacity preamble
	// (MAX_RECORDS, D, MAX_NODES, MAX_EDGES) disagrees with the Config
	// the caller opened with.
	ErrDimensionMismatch = errors.New("snapshot: dimension mismatch")
)

package recovery

import "errors"

var (
	// ErrDimensionMismatch reports a log whose header dim disagrees with
	// the Config being recovered into (spec §8 property 8).
	ErrDimensionMismatch = errors.New("recovery: dimension mismatch")

	// ErrCorrupt reports a checkpoint file that is truncated or carries a
	// bad magic or protocol version, a snapshot whose version is beyond
	// the number of committed events in the log, or a [ReplayTo] position
	// beyond that number.
	ErrCorrupt = errors.New("recovery: corrupt")
)

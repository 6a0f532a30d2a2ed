package commit

import "errors"

// ErrCriticalInconsistency reports a live-apply failure after the same
// event already succeeded against the shadow: spec §4.9 calls this a
// critical inconsistency that must be surfaced, never silently repaired.
// It should not be reachable in a correct implementation (the shadow is
// an exact clone of live), but the committer checks for it rather than
// assuming it away.
var ErrCriticalInconsistency = errors.New("commit: critical inconsistency: live apply failed after shadow success")

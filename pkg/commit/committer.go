package commit

import (
	"fmt"

	"github.com/valokernel/valo/pkg/eventlog"
	"github.com/valokernel/valo/pkg/kernel"
)

// Result is the outcome of a commit attempt.
type Result int

const (
	// Committed means the event is durable on the event log and applied
	// to live state.
	Committed Result = iota
	// RolledBack means the event failed against the shadow and neither
	// the log nor live state were touched.
	RolledBack
)

func (r Result) String() string {
	if r == Committed {
		return "Committed"
	}
	return "RolledBack"
}

// Committer sequences writes through the spec §4.9 shadow/commit
// barrier. It owns the live [kernel.State] and the durable
// [eventlog.Log]; callers never apply an event to Live directly.
//
// Step ordering here takes the reordering the spec explicitly allows
// (§4.9 step 5): the shadow is built and applied *before* the log
// append, not after. A shadow failure therefore never reaches the log at
// all, which trivially satisfies "a failed-shadow event must not be
// applied on replay" — there is no failed-shadow entry to filter out
// during replay in the first place. Durability ordering (fsync before
// any live mutation) is preserved: the log append+fsync in step 3 always
// precedes the live apply in step 4.
type Committer struct {
	log     *eventlog.Log
	live    *kernel.State
	journal Journal
}

// New returns a Committer writing through log and mutating live.
func New(log *eventlog.Log, live *kernel.State) *Committer {
	return &Committer{log: log, live: live}
}

// NewAt is [New] with the journal's height seeded to committedHeight,
// for callers that construct a Committer from already-recovered state
// (spec §4.10) rather than from empty (e.g. [pkg/replication.Follower]
// after a snapshot bootstrap).
func NewAt(log *eventlog.Log, live *kernel.State, committedHeight uint64) *Committer {
	c := New(log, live)
	c.journal.committedHeight = committedHeight
	return c
}

// Journal returns the committer's journal (read-only height tracking).
func (c *Committer) Journal() *Journal { return &c.journal }

// Live returns the committer's live state. Callers may read it freely;
// only the Committer itself may mutate it.
func (c *Committer) Live() *kernel.State { return c.live }

// CommitEvent runs one event through the full barrier. On [RolledBack]
// the returned error explains the shadow failure; on a durable-write or
// post-shadow live-apply failure it also returns RolledBack, together with
// a wrapped fatal error (a live-apply failure wraps
// [ErrCriticalInconsistency]); in those cases the log may already hold
// the event, so the error, not the Result, tells them apart from a clean
// shadow rollback (see spec §7).
func (c *Committer) CommitEvent(e kernel.Event) (Result, error) {
	shadow := c.live.Clone()
	if err := shadow.Apply(e); err != nil {
		return RolledBack, err
	}

	if err := c.log.Append(eventlog.Entry{Kind: eventlog.EntryEvent, Event: e}); err != nil {
		return RolledBack, fmt.Errorf("commit: durable append failed: %w", err)
	}

	if err := c.live.Apply(e); err != nil {
		return RolledBack, fmt.Errorf("%w: %v", ErrCriticalInconsistency, err)
	}

	c.journal.committedHeight++
	return Committed, nil
}

// CommitBatch runs a batch of events atomically (spec §4.9): all events
// are shadow-applied to a single cloned state first; any failure rolls
// back the whole batch with neither the log nor live state touched; only
// on full shadow success are all events appended and applied to live.
func (c *Committer) CommitBatch(events []kernel.Event) (Result, error) {
	if len(events) == 0 {
		return Committed, nil
	}

	shadow := c.live.Clone()
	for i, e := range events {
		if err := shadow.Apply(e); err != nil {
			return RolledBack, fmt.Errorf("commit: batch event %d failed on shadow: %w", i, err)
		}
	}

	for i, e := range events {
		if err := c.log.Append(eventlog.Entry{Kind: eventlog.EntryEvent, Event: e}); err != nil {
			return RolledBack, fmt.Errorf("commit: durable append failed at batch event %d: %w", i, err)
		}
	}

	for i, e := range events {
		if err := c.live.Apply(e); err != nil {
			return RolledBack, fmt.Errorf("%w: batch event %d: %v", ErrCriticalInconsistency, i, err)
		}
	}

	c.journal.committedHeight += uint64(len(events))
	return Committed, nil
}

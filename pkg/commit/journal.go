package commit

// Journal tracks the height of the committed partition of the event log:
// the number of events a [Committer] has durably applied to live state.
// This is the `committed_count` surfaced by recovery (spec §4.10) and
// used in the replication proof (spec §6).
type Journal struct {
	committedHeight uint64
}

// CommittedHeight returns the number of events committed so far.
func (j *Journal) CommittedHeight() uint64 { return j.committedHeight }

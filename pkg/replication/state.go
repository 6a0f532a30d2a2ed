package replication

// FollowerState is the follower's view of its own agreement with the
// leader (spec §4.12).
type FollowerState uint8

const (
	// Unknown is the transient state before the first proof comparison
	// completes at boot.
	Unknown FollowerState = iota
	Synced
	Diverged
	// Healing is entered while a bootstrap (snapshot download + log
	// reset) is in flight, whether triggered by an empty local journal
	// at boot or by a confirmed divergence.
	Healing
)

func (s FollowerState) String() string {
	switch s {
	case Synced:
		return "synced"
	case Diverged:
		return "diverged"
	case Healing:
		return "healing"
	default:
		return "unknown"
	}
}

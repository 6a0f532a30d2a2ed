package wire

import "encoding/hex"

// HashHex formats a 32-byte digest the way every Proof field expects it:
// lowercase hex, spec §6 "hex32".
func HashHex(h [32]byte) string {
	return hex.EncodeToString(h[:])
}

// Proof is the network proof object of spec §6: a compact, hashable
// summary of a kernel's state that lets a follower (or a verification
// tool) confirm agreement with a leader without shipping full state.
//
// Two proofs are considered equivalent when EventLogHash, FinalStateHash,
// EventCount, and CommittedHeight all match — SnapshotHash is recorded
// for diagnostics only, since snapshots are an implementation detail a
// peer may or may not have taken.
type Proof struct {
	KernelVersion   uint32 `json:"kernel_version"`
	SnapshotHash    string `json:"snapshot_hash"`
	EventLogHash    string `json:"event_log_hash"`
	FinalStateHash  string `json:"final_state_hash"`
	EventCount      uint64 `json:"event_count"`
	CommittedHeight uint64 `json:"committed_height"`
}

// Equivalent reports whether p and other agree on everything that
// matters for replication/divergence purposes (spec §6).
func (p Proof) Equivalent(other Proof) bool {
	return p.EventLogHash == other.EventLogHash &&
		p.FinalStateHash == other.FinalStateHash &&
		p.EventCount == other.EventCount &&
		p.CommittedHeight == other.CommittedHeight
}

// Package replication implements spec §4.12: a follower that bootstraps
// from a leader's snapshot, streams committed events through the same
// shadow/commit barrier the local writer uses, and runs a background
// divergence checker that compares state hashes against the leader and
// confirms real divergence only after a stability window (to avoid
// flapping on a merely-lagging follower).
package replication

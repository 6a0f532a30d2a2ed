// Package recovery implements spec §4.10/§4.11: replaying an event log
// on top of an optional decoded snapshot ("event log always wins" on
// divergence), and the small fixed checkpoint record written after a
// snapshot. [Recover] does not read the checkpoint record: it always
// replays the log prefix up to the snapshot's version to verify the
// snapshot before using it.
package recovery

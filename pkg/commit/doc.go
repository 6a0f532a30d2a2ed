// Package commit implements the spec §4.9 shadow/commit barrier: every
// event is first applied to a disposable shadow clone of the live state;
// only once the shadow apply succeeds is it appended to the event log and
// fsynced, then applied to live state and counted in the journal's
// committed height. A shadow failure returns without ever touching the
// log or live state.
package commit

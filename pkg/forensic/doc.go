// Package forensic implements spec §4.13's diff between two log
// positions: two fresh aggregates are built by replaying to each
// position, then compared by state hash, by the set difference of the
// record ids live in each state, and, given an optional query vector, by
// the change in top-k ranking between them. The events lying between the
// two positions are not listed.
package forensic

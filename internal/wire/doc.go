// Package wire implements the external, over-the-network encodings of
// spec §6: the event payload clients send to mutate the kernel, and the
// JSON proof object used to compare two kernels (a leader and a
// follower, or a snapshot and a full replay) without shipping full
// state.
//
// This is distinct from [github.com/valokernel/valo/pkg/eventlog]'s own
// on-disk framing: the event log records already-committed
// [kernel.Event] values for durable replay, while wire describes the
// untrusted payload a caller submits before it is ever validated or
// applied.
package wire

// Package snapshot encodes and decodes a kernel [kernel.State] to the
// spec's on-disk envelope: a 4-byte magic, schema version, a JSON
// metadata section describing body lengths, the kernel blob itself, and
// a trailing CRC32 over everything preceding it.
//
// Decode is strict in the style of the teacher's slotcache format: an
// unsupported version, a capacity mismatch, or an orphan graph/HNSW
// pointer all fail closed rather than silently truncating or repairing.
package snapshot

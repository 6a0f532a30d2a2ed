// Package eventlog implements the spec's framed, append-only event log
// (spec §4.8): a 16-byte header (schema version, vector dimension,
// reserved), followed by length-and-CRC32C-framed entries, each either a
// committed [kernel.Event] or a checkpoint marker.
//
// Appends always serialize, write, flush, and fsync before returning, in
// the style of the teacher's WAL commit path
// (internal/store/wal.go/pkg/mddb/wal.go), adapted from a single
// truncate-after-commit transaction log to a continuously growing,
// multi-entry log: a trailing partial entry (from a crash mid-append) is
// tolerated only when it is the very last thing in the file; any framing
// or checksum failure earlier in the file is a hard corruption error.
package eventlog

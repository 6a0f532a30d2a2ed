package eventlog

import (
	"hash/crc32"

	"github.com/valokernel/valo/pkg/kernel"
)

// headerSize is the spec §4.8 16-byte header: version (u32), dim (u32),
// reserved (u64).
const headerSize = 4 + 4 + 8

const schemaVersion uint32 = 1

// frameOverhead is the length prefix plus CRC32C trailer surrounding
// every entry's payload: [len(u32) . payload(len) . crc32c(u32)].
const frameOverhead = 4 + 4

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// EntryKind tags the self-describing record union written to the log.
type EntryKind uint8

const (
	// EntryEvent carries a committed [kernel.Event].
	EntryEvent EntryKind = 1
	// EntryCheckpoint carries a [Checkpoint] marker.
	EntryCheckpoint EntryKind = 2
)

// Checkpoint is a marker entry recording how many events had been
// committed, and the state hash at that point, as of the moment it was
// written (spec §4.8).
type Checkpoint struct {
	EventCount   uint64
	SnapshotHash [32]byte
	Timestamp    int64
}

// Entry is one decoded log record: exactly one of Event or Checkpoint is
// meaningful, selected by Kind.
type Entry struct {
	Kind       EntryKind
	Event      kernel.Event
	Checkpoint Checkpoint
}

package eventlog

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"lukechampine.com/blake3"

	"github.com/valokernel/valo/pkg/fs"
)

// ReadAll reads and parses every entry in the log at path. It returns the
// header's dim, the decoded entries, and whether the final bytes of the
// file were a partial (torn) entry that was tolerated and dropped (spec
// §4.8: at most one trailing partial entry is ever tolerated; any framing
// or checksum failure earlier in the file is [ErrCorrupt]).
//
// The whole file is read into memory up front, in the style of the
// teacher's readWalState, which reads the full WAL body before parsing.
func ReadAll(fsys fs.FS, path string) (dim int, entries []Entry, tailTruncated bool, err error) {
	b, err := fsys.ReadFile(path)
	if err != nil {
		return 0, nil, false, fmt.Errorf("eventlog: read %q: %w", path, err)
	}

	if len(b) < headerSize {
		return 0, nil, false, fmt.Errorf("%w: header too short", ErrCorrupt)
	}

	version := binary.LittleEndian.Uint32(b[0:4])
	if version != schemaVersion {
		return 0, nil, false, fmt.Errorf("%w: header version %d", ErrIncompatible, version)
	}
	dim = int(binary.LittleEndian.Uint32(b[4:8]))

	pos := headerSize
	for pos < len(b) {
		if len(b)-pos < 4 {
			return dim, entries, true, nil
		}
		length := binary.LittleEndian.Uint32(b[pos : pos+4])

		frameEnd := pos + 4 + int(length) + 4
		if frameEnd > len(b) {
			// Declared length runs past what the file actually holds: a
			// torn write. Tolerated only because it is the last thing in
			// the file by construction (pos+4 <= len(b) <= frameEnd).
			return dim, entries, true, nil
		}

		payload := b[pos+4 : pos+4+int(length)]
		wantCRC := binary.LittleEndian.Uint32(b[pos+4+int(length) : frameEnd])
		gotCRC := crc32.Checksum(payload, crcTable)

		if gotCRC != wantCRC {
			if frameEnd == len(b) {
				// A corrupt frame that exactly fills the remainder of the
				// file is indistinguishable from a torn write that
				// happened to flush a full-looking, half-updated frame;
				// treat it the same as a short read.
				return dim, entries, true, nil
			}
			return dim, entries, false, fmt.Errorf("%w: crc mismatch at offset %d", ErrCorrupt, pos)
		}

		entry, err := decodeEntry(payload)
		if err != nil {
			if frameEnd == len(b) {
				return dim, entries, true, nil
			}
			return dim, entries, false, fmt.Errorf("%w: %v at offset %d", ErrCorrupt, err, pos)
		}

		entries = append(entries, entry)
		pos = frameEnd
	}

	return dim, entries, false, nil
}

// Hash returns the committed event count and the canonical digest of
// every committed event in the log at path, in order, ignoring any
// trailing partial entry and any [EntryCheckpoint] markers. This is the
// `event_log_hash` used in the network proof object (spec §6) — it
// hashes the re-encoded entry payload rather than the raw file bytes so
// that two logs agree whenever they carry the same committed events,
// independent of any checkpoint markers interleaved between them.
func Hash(fsys fs.FS, path string) (count uint64, digest [32]byte, err error) {
	_, entries, _, err := ReadAll(fsys, path)
	if err != nil {
		return 0, [32]byte{}, err
	}

	h := blake3.New()
	for _, e := range entries {
		if e.Kind != EntryEvent {
			continue
		}
		payload := EncodePayload(e)
		_, _ = h.Write(payload)
		count++
	}

	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return count, sum, nil
}

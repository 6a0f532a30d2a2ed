package replication

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// streamVersion is the only chunk version this follower accepts; any
// other value aborts the stream (spec §4.12 step 3).
const streamVersion uint8 = 1

const chunkHeaderSize = 1 + 1 + 8 + 4 // version + flags + seq + len

// ErrVersionMismatch reports a chunk whose version byte the follower
// does not understand.
var ErrVersionMismatch = errors.New("replication: stream version mismatch")

// ErrSequenceGap reports a chunk whose sequence number is not exactly
// one more than the last chunk accepted — a gap, a replay, or
// reordering all abort the stream identically (spec §4.12 step 3).
var ErrSequenceGap = errors.New("replication: sequence gap")

// ErrTruncatedChunk reports a chunk header or payload shorter than its
// own declared length.
var ErrTruncatedChunk = errors.New("replication: truncated chunk")

// Chunk is a single framed unit of a replication stream: one committed
// event (see [pkg/eventlog.EncodePayload]) per chunk.
type Chunk struct {
	Seq     uint64
	Flags   uint8
	Payload []byte
}

// EncodeChunk serializes c as `[version(1) . flags(1) . seq(8) . len(4) . payload(len)]`.
func EncodeChunk(c Chunk) []byte {
	b := make([]byte, chunkHeaderSize+len(c.Payload))
	b[0] = streamVersion
	b[1] = c.Flags
	binary.LittleEndian.PutUint64(b[2:10], c.Seq)
	binary.LittleEndian.PutUint32(b[10:14], uint32(len(c.Payload)))
	copy(b[chunkHeaderSize:], c.Payload)
	return b
}

// DecodeChunk parses and validates the header of a single chunk. It does
// not check sequencing — callers track the expected sequence number
// across a stream via [SequenceTracker].
func DecodeChunk(b []byte) (Chunk, error) {
	if len(b) < chunkHeaderSize {
		return Chunk{}, fmt.Errorf("%w: header", ErrTruncatedChunk)
	}
	if b[0] != streamVersion {
		return Chunk{}, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, b[0], streamVersion)
	}

	seq := binary.LittleEndian.Uint64(b[2:10])
	payloadLen := binary.LittleEndian.Uint32(b[10:14])
	if uint32(len(b)-chunkHeaderSize) != payloadLen {
		return Chunk{}, fmt.Errorf("%w: declared len %d, have %d", ErrTruncatedChunk, payloadLen, len(b)-chunkHeaderSize)
	}

	return Chunk{
		Seq:     seq,
		Flags:   b[1],
		Payload: append([]byte(nil), b[chunkHeaderSize:]...),
	}, nil
}

// SequenceTracker enforces the "any sequence gap, replay, or reordering
// aborts the stream" rule of spec §4.12 step 3.
type SequenceTracker struct {
	next uint64
}

// NewSequenceTracker returns a tracker expecting startSeq next.
func NewSequenceTracker(startSeq uint64) *SequenceTracker {
	return &SequenceTracker{next: startSeq}
}

// Accept validates seq against the expected next sequence number and, on
// success, advances it.
func (t *SequenceTracker) Accept(seq uint64) error {
	if seq != t.next {
		return fmt.Errorf("%w: got %d, want %d", ErrSequenceGap, seq, t.next)
	}
	t.next++
	return nil
}

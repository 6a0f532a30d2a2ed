package replication

import (
	"context"
	"encoding/binary"
	"io"

	"github.com/valokernel/valo/internal/wire"
)

// LeaderClient is everything a follower needs from its leader. A real
// deployment backs this with HTTP (in the style of
// github.com/dreamware/torua's GetJSON/PostJSON helpers); tests back it
// with an in-process fake driven directly off a leader-side [pkg/commit.Committer].
type LeaderClient interface {
	// FetchProof returns the leader's current proof object (spec §6).
	FetchProof(ctx context.Context) (wire.Proof, error)

	// FetchSnapshot returns the leader's current snapshot container bytes
	// (spec §4.7), used for bootstrap (spec §4.12 step 2).
	FetchSnapshot(ctx context.Context) ([]byte, error)

	// OpenStream opens a chunked replication stream starting at fromSeq
	// (spec §4.12 step 3). The returned reader yields one [Chunk] per
	// [ReadChunk] call and must be closed by the caller.
	OpenStream(ctx context.Context, fromSeq uint64) (io.ReadCloser, error)
}

// ReadChunk reads exactly one chunk from r: the fixed header, then the
// payload it declares. io.EOF is returned (unwrapped) when the stream
// ends cleanly on a chunk boundary.
func ReadChunk(r io.Reader) (Chunk, error) {
	var header [chunkHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Chunk{}, err
	}

	payloadLen := binary.LittleEndian.Uint32(header[10:14])
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Chunk{}, err
	}

	full := append(header[:], payload...)
	return DecodeChunk(full)
}

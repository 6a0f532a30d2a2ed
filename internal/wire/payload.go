package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/valokernel/valo/pkg/fixedpoint"
	"github.com/valokernel/valo/pkg/kernel"
)

// Command tags the two externally submittable operations (spec §6). The
// event log and kernel support a larger closed event union internally
// (graph nodes and edges); those are only ever produced server-side by
// the graph overlay, never accepted directly over the wire.
type Command uint8

const (
	CommandInsert Command = 1
	CommandDelete Command = 2
)

const (
	payloadHeaderSize = 1 + 8 + 2 // cmd + id + dim
	scalarSize        = 4
	tagSize           = 8
	metaLenSize       = 8
)

// ErrInvalidCommand reports a command byte outside the closed set above.
var ErrInvalidCommand = fmt.Errorf("wire: invalid command")

// ErrLengthMismatch reports a payload whose declared dim or meta_len
// disagrees with the bytes actually present.
var ErrLengthMismatch = fmt.Errorf("wire: length mismatch")

// EncodePayload serializes e as the wire format of spec §6. Only
// InsertRecord and DeleteRecord events may cross the wire boundary; any
// other kind is a programmer error.
func EncodePayload(e kernel.Event) ([]byte, error) {
	switch e.Kind {
	case kernel.EventInsertRecord:
		return encodeInsert(e), nil
	case kernel.EventDeleteRecord:
		return encodeDelete(e), nil
	default:
		return nil, fmt.Errorf("wire: event kind %v cannot be encoded as a wire payload", e.Kind)
	}
}

func encodeInsert(e kernel.Event) []byte {
	dim := len(e.Vector)
	size := payloadHeaderSize + dim*scalarSize + tagSize
	if e.TagSet {
		size += metaLenSize + len(e.Metadata)
	}
	b := make([]byte, size)

	b[0] = byte(CommandInsert)
	binary.LittleEndian.PutUint64(b[1:9], uint64(e.ID))
	binary.LittleEndian.PutUint16(b[9:11], uint16(dim))

	off := payloadHeaderSize
	for _, sc := range e.Vector {
		binary.LittleEndian.PutUint32(b[off:off+4], uint32(sc))
		off += scalarSize
	}

	binary.LittleEndian.PutUint64(b[off:off+8], e.Tag)
	off += tagSize

	// The meta_len block is the sole signal that TagSet was true: it is
	// written whenever TagSet is set, even with zero-length metadata, so
	// a tagged-but-metadata-less record can't be decoded back as
	// TagSet=false (the tag bytes above are otherwise indistinguishable
	// from an untagged record's zero tag).
	if e.TagSet {
		binary.LittleEndian.PutUint64(b[off:off+8], uint64(len(e.Metadata)))
		off += metaLenSize
		copy(b[off:], e.Metadata)
	}

	return b
}

func encodeDelete(e kernel.Event) []byte {
	b := make([]byte, payloadHeaderSize+tagSize)
	b[0] = byte(CommandDelete)
	binary.LittleEndian.PutUint64(b[1:9], uint64(e.ID))
	// dim and tag are zero for delete: the id alone identifies the record.
	return b
}

// DecodePayload parses a wire payload into a [kernel.Event], validating
// the command byte and every declared length against the bytes actually
// present (spec §6: "invalid command codes or length mismatches are
// hard errors").
func DecodePayload(b []byte) (kernel.Event, error) {
	if len(b) < payloadHeaderSize {
		return kernel.Event{}, fmt.Errorf("%w: payload shorter than header", ErrLengthMismatch)
	}

	cmd := Command(b[0])
	id := uint32(binary.LittleEndian.Uint64(b[1:9]))
	dim := int(binary.LittleEndian.Uint16(b[9:11]))

	switch cmd {
	case CommandInsert:
		return decodeInsert(b, id, dim)
	case CommandDelete:
		return kernel.DeleteRecordEvent(id), nil
	default:
		return kernel.Event{}, fmt.Errorf("%w: %d", ErrInvalidCommand, cmd)
	}
}

func decodeInsert(b []byte, id uint32, dim int) (kernel.Event, error) {
	need := payloadHeaderSize + dim*scalarSize + tagSize
	if len(b) < need {
		return kernel.Event{}, fmt.Errorf("%w: declared dim %d needs %d bytes, have %d", ErrLengthMismatch, dim, need, len(b))
	}

	vector := make(fixedpoint.Vector, dim)
	off := payloadHeaderSize
	for i := 0; i < dim; i++ {
		vector[i] = fixedpoint.Scalar(int32(binary.LittleEndian.Uint32(b[off : off+4])))
		off += scalarSize
	}

	tag := binary.LittleEndian.Uint64(b[off : off+8])
	off += tagSize

	if off == len(b) {
		return kernel.InsertRecordEvent(id, vector), nil
	}

	if off+metaLenSize > len(b) {
		return kernel.Event{}, fmt.Errorf("%w: truncated meta_len", ErrLengthMismatch)
	}
	metaLen := int(binary.LittleEndian.Uint64(b[off : off+8]))
	off += metaLenSize
	if off+metaLen != len(b) {
		return kernel.Event{}, fmt.Errorf("%w: declared meta_len %d disagrees with remaining bytes %d", ErrLengthMismatch, metaLen, len(b)-off)
	}

	var metadata []byte
	if metaLen > 0 {
		metadata = b[off:]
	}

	return kernel.InsertRecordWithTagEvent(id, vector, tag, metadata), nil
}

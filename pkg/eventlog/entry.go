package eventlog

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/valokernel/valo/pkg/fixedpoint"
	"github.com/valokernel/valo/pkg/kernel"
)

// EncodePayload serializes e exactly as it would be written to the log
// body, without the surrounding length/CRC frame. [pkg/replication] reuses
// this as the replication stream's event encoding so a follower never
// needs a second, divergent notion of what a [kernel.Event] looks like on
// the wire.
func EncodePayload(e Entry) []byte {
	return encodeEntry(e)
}

// DecodePayload is the inverse of [EncodePayload].
func DecodePayload(b []byte) (Entry, error) {
	return decodeEntry(b)
}

// encodeEntry serializes e's payload (without the surrounding length/CRC
// frame, written by [Log.Append]).
func encodeEntry(e Entry) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(e.Kind))

	switch e.Kind {
	case EntryEvent:
		encodeEvent(&buf, e.Event)
	case EntryCheckpoint:
		writeU64(&buf, e.Checkpoint.EventCount)
		buf.Write(e.Checkpoint.SnapshotHash[:])
		writeU64(&buf, uint64(e.Checkpoint.Timestamp))
	}
	return buf.Bytes()
}

func encodeEvent(buf *bytes.Buffer, e kernel.Event) {
	buf.WriteByte(byte(e.Kind))
	writeU32(buf, e.ID)

	switch e.Kind {
	case kernel.EventInsertRecord:
		writeU32(buf, uint32(len(e.Vector)))
		for _, sc := range e.Vector {
			writeU32(buf, uint32(int32(sc)))
		}
		buf.WriteByte(flagByte(e.TagSet))
		if e.TagSet {
			writeU64(buf, e.Tag)
		}
		buf.WriteByte(flagByte(e.Metadata != nil))
		if e.Metadata != nil {
			writeU32(buf, uint32(len(e.Metadata)))
			buf.Write(e.Metadata)
		}
	case kernel.EventDeleteRecord:
		// ID alone suffices.
	case kernel.EventCreateNode:
		buf.WriteByte(byte(e.NodeKind))
		buf.WriteByte(flagByte(e.Record.Present))
		if e.Record.Present {
			writeU32(buf, e.Record.ID)
		}
	case kernel.EventCreateEdge:
		buf.WriteByte(byte(e.EdgeKind))
		writeU32(buf, e.From)
		writeU32(buf, e.To)
	case kernel.EventDeleteEdge, kernel.EventDeleteNode:
		// ID alone suffices.
	}
}

func decodeEntry(b []byte) (Entry, error) {
	c := &cursor{b: b}
	kindByte, err := c.byte()
	if err != nil {
		return Entry{}, err
	}

	var e Entry
	e.Kind = EntryKind(kindByte)
	switch e.Kind {
	case EntryEvent:
		ev, err := decodeEvent(c)
		if err != nil {
			return Entry{}, err
		}
		e.Event = ev
	case EntryCheckpoint:
		count, err := c.u64()
		if err != nil {
			return Entry{}, err
		}
		hash, err := c.bytes(32)
		if err != nil {
			return Entry{}, err
		}
		ts, err := c.u64()
		if err != nil {
			return Entry{}, err
		}
		e.Checkpoint.EventCount = count
		copy(e.Checkpoint.SnapshotHash[:], hash)
		e.Checkpoint.Timestamp = int64(ts)
	default:
		return Entry{}, fmt.Errorf("%w: unknown entry kind %d", ErrCorrupt, kindByte)
	}
	return e, nil
}

func decodeEvent(c *cursor) (kernel.Event, error) {
	var e kernel.Event

	kindByte, err := c.byte()
	if err != nil {
		return e, err
	}
	e.Kind = kernel.EventKind(kindByte)

	e.ID, err = c.u32()
	if err != nil {
		return e, err
	}

	switch e.Kind {
	case kernel.EventInsertRecord:
		dim, err := c.u32()
		if err != nil {
			return e, err
		}
		e.Vector = make(fixedpoint.Vector, dim)
		for i := range e.Vector {
			v, err := c.u32()
			if err != nil {
				return e, err
			}
			e.Vector[i] = fixedpoint.Scalar(int32(v))
		}
		tagSet, err := c.flag()
		if err != nil {
			return e, err
		}
		e.TagSet = tagSet
		if tagSet {
			e.Tag, err = c.u64()
			if err != nil {
				return e, err
			}
		}
		hasMeta, err := c.flag()
		if err != nil {
			return e, err
		}
		if hasMeta {
			length, err := c.u32()
			if err != nil {
				return e, err
			}
			meta, err := c.bytes(int(length))
			if err != nil {
				return e, err
			}
			e.Metadata = append([]byte(nil), meta...)
		}
	case kernel.EventDeleteRecord:
	case kernel.EventCreateNode:
		kindB, err := c.byte()
		if err != nil {
			return e, err
		}
		e.NodeKind = kernel.NodeKind(kindB)
		present, id, err := c.optionalID()
		if err != nil {
			return e, err
		}
		e.Record.Present, e.Record.ID = present, id
	case kernel.EventCreateEdge:
		kindB, err := c.byte()
		if err != nil {
			return e, err
		}
		e.EdgeKind = kernel.EdgeKind(kindB)
		e.From, err = c.u32()
		if err != nil {
			return e, err
		}
		e.To, err = c.u32()
		if err != nil {
			return e, err
		}
	case kernel.EventDeleteEdge, kernel.EventDeleteNode:
	default:
		return e, fmt.Errorf("%w: unknown event kind %d", ErrCorrupt, kindByte)
	}

	return e, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func flagByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

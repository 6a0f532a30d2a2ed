package snapshot

import (
	"bytes"
	"fmt"

	"github.com/valokernel/valo/pkg/fixedpoint"
	"github.com/valokernel/valo/pkg/kernel"
)

// encodeKernelBlob writes the spec §4.7 kernel blob: a capacity preamble,
// then counts and entries for records, nodes, and edges. Variable-length
// record metadata is appended to a separate metadata blob and referenced
// from the kernel blob by (offset, length), so the kernel blob itself
// holds no variable-length byte strings. Entry sizes still vary: an empty
// slot is a single flag byte, and the optional tag, metadata reference
// and optional ids are written only when present.
func encodeKernelBlob(cfg kernel.Config, data kernel.StateData) (kernelBlob, metadataBlob []byte, err error) {
	var kb, mb bytes.Buffer

	writeU32(&kb, uint32(cfg.MaxRecords))
	writeU32(&kb, uint32(cfg.Dim))
	writeU32(&kb, uint32(cfg.MaxNodes))
	writeU32(&kb, uint32(cfg.MaxEdges))

	writeU32(&kb, uint32(len(data.Records)))
	for _, rs := range data.Records {
		kb.WriteByte(flagByte(rs.Occupied))
		if !rs.Occupied {
			continue
		}
		r := rs.Record
		if len(r.Vector) != cfg.Dim {
			return nil, nil, fmt.Errorf("%w: record %d has %d dims, want %d", ErrDimensionMismatch, r.ID, len(r.Vector), cfg.Dim)
		}
		writeU32(&kb, r.ID)
		kb.WriteByte(r.Flags)
		for _, sc := range r.Vector {
			writeU32(&kb, uint32(int32(sc)))
		}
		kb.WriteByte(flagByte(r.TagSet))
		if r.TagSet {
			writeU64(&kb, r.Tag)
		}
		kb.WriteByte(flagByte(r.Metadata != nil))
		if r.Metadata != nil {
			writeU32(&kb, uint32(mb.Len()))
			writeU32(&kb, uint32(len(r.Metadata)))
			mb.Write(r.Metadata)
		}
	}

	writeU32(&kb, uint32(len(data.Nodes)))
	for _, ns := range data.Nodes {
		kb.WriteByte(flagByte(ns.Occupied))
		if !ns.Occupied {
			continue
		}
		n := ns.Node
		writeU32(&kb, n.ID)
		kb.WriteByte(byte(n.Kind))
		writeOptionalID(&kb, n.Record.Present, n.Record.ID)
		writeOptionalID(&kb, n.FirstOutEdge.Present, n.FirstOutEdge.ID)
	}

	writeU32(&kb, uint32(len(data.Edges)))
	for _, es := range data.Edges {
		kb.WriteByte(flagByte(es.Occupied))
		if !es.Occupied {
			continue
		}
		e := es.Edge
		writeU32(&kb, e.ID)
		kb.WriteByte(byte(e.Kind))
		writeU32(&kb, e.From)
		writeU32(&kb, e.To)
		writeOptionalID(&kb, e.NextOut.Present, e.NextOut.ID)
	}

	return kb.Bytes(), mb.Bytes(), nil
}

func writeOptionalID(buf *bytes.Buffer, present bool, id uint32) {
	buf.WriteByte(flagByte(present))
	if present {
		writeU32(buf, id)
	}
}

// decodeKernelBlob parses a kernel blob produced by encodeKernelBlob,
// failing closed on a capacity-preamble mismatch or any orphan pointer
// (an edge referencing an empty node, a node referencing an empty
// record). It returns a partially-built [kernel.StateData] missing only
// the HNSW portion, which decodeIndexBlob fills in.
func decodeKernelBlob(kernelBlob, metadataBlob []byte, cfg kernel.Config) (*kernel.StateData, error) {
	r := &cursor{b: kernelBlob}

	maxRecords, err := r.u32()
	if err != nil {
		return nil, err
	}
	dim, err := r.u32()
	if err != nil {
		return nil, err
	}
	maxNodes, err := r.u32()
	if err != nil {
		return nil, err
	}
	maxEdges, err := r.u32()
	if err != nil {
		return nil, err
	}
	if int(maxRecords) != cfg.MaxRecords || int(dim) != cfg.Dim || int(maxNodes) != cfg.MaxNodes || int(maxEdges) != cfg.MaxEdges {
		return nil, fmt.Errorf("%w: kernel blob capacity preamble does not match config", ErrDimensionMismatch)
	}

	data := &kernel.StateData{}

	recordCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	data.Records = make([]kernel.RecordSlot, recordCount)
	for i := range data.Records {
		occupied, err := r.flag()
		if err != nil {
			return nil, err
		}
		if !occupied {
			continue
		}
		var rec kernel.Record
		rec.ID, err = r.u32()
		if err != nil {
			return nil, err
		}
		flags, err := r.byte()
		if err != nil {
			return nil, err
		}
		rec.Flags = flags

		rec.Vector = make(fixedpoint.Vector, cfg.Dim)
		for d := 0; d < cfg.Dim; d++ {
			v, err := r.u32()
			if err != nil {
				return nil, err
			}
			rec.Vector[d] = fixedpoint.Scalar(int32(v))
		}

		tagSet, err := r.flag()
		if err != nil {
			return nil, err
		}
		rec.TagSet = tagSet
		if tagSet {
			rec.Tag, err = r.u64()
			if err != nil {
				return nil, err
			}
		}

		hasMeta, err := r.flag()
		if err != nil {
			return nil, err
		}
		if hasMeta {
			off, err := r.u32()
			if err != nil {
				return nil, err
			}
			length, err := r.u32()
			if err != nil {
				return nil, err
			}
			if uint64(off)+uint64(length) > uint64(len(metadataBlob)) {
				return nil, fmt.Errorf("%w: record %d metadata range out of bounds", ErrCorrupt, rec.ID)
			}
			rec.Metadata = append([]byte(nil), metadataBlob[off:off+length]...)
		}

		data.Records[i] = kernel.RecordSlot{Occupied: true, Record: rec}
	}

	nodeCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	data.Nodes = make([]kernel.NodeSlot, nodeCount)
	for i := range data.Nodes {
		occupied, err := r.flag()
		if err != nil {
			return nil, err
		}
		if !occupied {
			continue
		}
		var n kernel.Node
		n.ID, err = r.u32()
		if err != nil {
			return nil, err
		}
		kindByte, err := r.byte()
		if err != nil {
			return nil, err
		}
		n.Kind = kernel.NodeKind(kindByte)

		present, id, err := r.optionalID()
		if err != nil {
			return nil, err
		}
		n.Record.Present, n.Record.ID = present, id

		present, id, err = r.optionalID()
		if err != nil {
			return nil, err
		}
		n.FirstOutEdge.Present, n.FirstOutEdge.ID = present, id

		data.Nodes[i] = kernel.NodeSlot{Occupied: true, Node: n}
	}

	edgeCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	data.Edges = make([]kernel.EdgeSlot, edgeCount)
	for i := range data.Edges {
		occupied, err := r.flag()
		if err != nil {
			return nil, err
		}
		if !occupied {
			continue
		}
		var e kernel.Edge
		e.ID, err = r.u32()
		if err != nil {
			return nil, err
		}
		kindByte, err := r.byte()
		if err != nil {
			return nil, err
		}
		e.Kind = kernel.EdgeKind(kindByte)
		e.From, err = r.u32()
		if err != nil {
			return nil, err
		}
		e.To, err = r.u32()
		if err != nil {
			return nil, err
		}
		present, id, err := r.optionalID()
		if err != nil {
			return nil, err
		}
		e.NextOut.Present, e.NextOut.ID = present, id

		data.Edges[i] = kernel.EdgeSlot{Occupied: true, Edge: e}
	}

	for i, es := range data.Edges {
		if !es.Occupied {
			continue
		}
		if int(es.Edge.From) >= len(data.Nodes) || !data.Nodes[es.Edge.From].Occupied {
			return nil, fmt.Errorf("%w: edge %d references empty from-node %d", ErrCorrupt, i, es.Edge.From)
		}
		if int(es.Edge.To) >= len(data.Nodes) || !data.Nodes[es.Edge.To].Occupied {
			return nil, fmt.Errorf("%w: edge %d references empty to-node %d", ErrCorrupt, i, es.Edge.To)
		}
	}
	for i, ns := range data.Nodes {
		if !ns.Occupied {
			continue
		}
		if recID, present := ns.Node.Record.ID, ns.Node.Record.Present; present {
			if int(recID) >= len(data.Records) || !data.Records[recID].Occupied {
				return nil, fmt.Errorf("%w: node %d references empty record %d", ErrCorrupt, i, recID)
			}
		}
	}

	return data, nil
}

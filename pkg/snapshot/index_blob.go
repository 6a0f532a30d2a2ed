package snapshot

import (
	"bytes"
	"fmt"

	"github.com/valokernel/valo/pkg/kernel"
)

// encodeIndexBlob writes the HNSW neighbor lists: entry point, then one
// entry per record slot. For every present node, layer_count must equal
// level+1 (spec §4.7); encode always produces this by construction since
// it writes len(Neighbors) directly and [kernel.State.Export] maintains
// that invariant.
func encodeIndexBlob(data kernel.StateData) []byte {
	var buf bytes.Buffer

	buf.WriteByte(flagByte(data.HasEntry))
	writeU32(&buf, data.EntryID)
	writeU32(&buf, uint32(data.EntryLevel))

	writeU32(&buf, uint32(len(data.HNSWNodes)))
	for _, hs := range data.HNSWNodes {
		buf.WriteByte(flagByte(hs.Present))
		if !hs.Present {
			continue
		}
		writeU32(&buf, uint32(hs.Level))
		writeU32(&buf, uint32(len(hs.Neighbors)))
		for _, lst := range hs.Neighbors {
			writeU32(&buf, uint32(len(lst)))
			for _, n := range lst {
				writeU32(&buf, n)
			}
		}
	}

	return buf.Bytes()
}

// decodeIndexBlob parses the HNSW section into data (whose Records/Nodes/
// Edges are already populated by decodeKernelBlob), failing closed on a
// layer_count != level+1 mismatch or a neighbor referencing an empty
// record slot.
func decodeIndexBlob(b []byte, data *kernel.StateData) error {
	r := &cursor{b: b}

	hasEntry, err := r.flag()
	if err != nil {
		return err
	}
	entryID, err := r.u32()
	if err != nil {
		return err
	}
	entryLevel, err := r.u32()
	if err != nil {
		return err
	}
	data.HasEntry = hasEntry
	data.EntryID = entryID
	data.EntryLevel = int(entryLevel)

	nodeCount, err := r.u32()
	if err != nil {
		return err
	}
	if int(nodeCount) != len(data.Records) {
		return fmt.Errorf("%w: hnsw node count %d does not match record slot count %d", ErrCorrupt, nodeCount, len(data.Records))
	}

	data.HNSWNodes = make([]kernel.HNSWSlot, nodeCount)
	for i := range data.HNSWNodes {
		present, err := r.flag()
		if err != nil {
			return err
		}
		if !present {
			continue
		}
		if !data.Records[i].Occupied {
			return fmt.Errorf("%w: hnsw node %d has no backing record", ErrCorrupt, i)
		}

		level, err := r.u32()
		if err != nil {
			return err
		}
		layerCount, err := r.u32()
		if err != nil {
			return err
		}
		if layerCount != level+1 {
			return fmt.Errorf("%w: hnsw node %d has layer_count %d, want level+1=%d", ErrCorrupt, i, layerCount, level+1)
		}

		layers := make([][]uint32, layerCount)
		for l := range layers {
			count, err := r.u32()
			if err != nil {
				return err
			}
			neighbors := make([]uint32, count)
			for k := range neighbors {
				n, err := r.u32()
				if err != nil {
					return err
				}
				if int(n) >= len(data.Records) || !data.Records[n].Occupied {
					return fmt.Errorf("%w: hnsw node %d layer %d neighbor %d has no backing record", ErrCorrupt, i, l, n)
				}
				neighbors[k] = n
			}
			layers[l] = neighbors
		}

		data.HNSWNodes[i] = kernel.HNSWSlot{Present: true, Level: int(level), Neighbors: layers}
	}

	return nil
}

package kernel

import (
	"encoding/binary"

	"lukechampine.com/blake3"
)

// Hash computes the canonical 32-byte BLAKE3 digest of s, over the strict
// byte sequence documented in spec §4.6. Two states produced by the same
// ordered event sequence on any architecture hash identically; states
// that differ only in slot position, in a None vs. zero-length payload,
// or in neighbor-list order hash differently (spec §8 properties 2, 3;
// §8 scenario E).
func (s *State) Hash() [32]byte {
	h := blake3.New()
	var u64 [8]byte
	var u32 [4]byte

	binary.LittleEndian.PutUint64(u64[:], s.version)
	_, _ = h.Write(u64[:])

	for i := 0; i < s.records.Len(); i++ {
		binary.LittleEndian.PutUint32(u32[:], uint32(i))
		_, _ = h.Write(u32[:])

		r, ok := s.records.Get(uint32(i))
		_, _ = h.Write(flagByte(ok))
		if !ok {
			continue
		}

		binary.LittleEndian.PutUint32(u32[:], r.ID)
		_, _ = h.Write(u32[:])
		_, _ = h.Write([]byte{r.Flags})

		for _, sc := range r.Vector {
			binary.LittleEndian.PutUint32(u32[:], uint32(sc))
			_, _ = h.Write(u32[:])
		}

		_, _ = h.Write(flagByte(r.TagSet))
		if r.TagSet {
			binary.LittleEndian.PutUint64(u64[:], r.Tag)
			_, _ = h.Write(u64[:])
		}

		_, _ = h.Write(flagByte(r.Metadata != nil))
		if r.Metadata != nil {
			binary.LittleEndian.PutUint64(u64[:], uint64(len(r.Metadata)))
			_, _ = h.Write(u64[:])
			_, _ = h.Write(r.Metadata)
		}
	}

	for i := 0; i < s.graph.nodes.Len(); i++ {
		binary.LittleEndian.PutUint32(u32[:], uint32(i))
		_, _ = h.Write(u32[:])

		n, ok := s.graph.nodes.Get(uint32(i))
		_, _ = h.Write(flagByte(ok))
		if !ok {
			continue
		}

		binary.LittleEndian.PutUint32(u32[:], n.ID)
		_, _ = h.Write(u32[:])
		_, _ = h.Write([]byte{byte(n.Kind)})

		writeOptionalID(h, n.Record)
		writeOptionalID(h, n.FirstOutEdge)
	}

	for i := 0; i < s.graph.edges.Len(); i++ {
		binary.LittleEndian.PutUint32(u32[:], uint32(i))
		_, _ = h.Write(u32[:])

		e, ok := s.graph.edges.Get(uint32(i))
		_, _ = h.Write(flagByte(ok))
		if !ok {
			continue
		}

		binary.LittleEndian.PutUint32(u32[:], e.ID)
		_, _ = h.Write(u32[:])
		_, _ = h.Write([]byte{byte(e.Kind)})
		binary.LittleEndian.PutUint32(u32[:], e.From)
		_, _ = h.Write(u32[:])
		binary.LittleEndian.PutUint32(u32[:], e.To)
		_, _ = h.Write(u32[:])
		writeOptionalID(h, e.NextOut)
	}

	for id := 0; id < len(s.index.present); id++ {
		if !s.index.present[id] {
			continue
		}
		binary.LittleEndian.PutUint32(u32[:], uint32(id))
		_, _ = h.Write(u32[:])

		layers := s.index.neighbors[id]
		binary.LittleEndian.PutUint32(u32[:], uint32(len(layers)))
		_, _ = h.Write(u32[:])

		for l, neighbors := range layers {
			binary.LittleEndian.PutUint32(u32[:], uint32(l))
			_, _ = h.Write(u32[:])
			binary.LittleEndian.PutUint32(u32[:], uint32(len(neighbors)))
			_, _ = h.Write(u32[:])
			for _, n := range neighbors {
				binary.LittleEndian.PutUint32(u32[:], n)
				_, _ = h.Write(u32[:])
			}
		}
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func flagByte(present bool) []byte {
	if present {
		return []byte{1}
	}
	return []byte{0}
}

func writeOptionalID(h *blake3.Hasher, o optionalID) {
	id, ok := o.get()
	_, _ = h.Write(flagByte(ok))
	if ok {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], id)
		_, _ = h.Write(buf[:])
	}
}

package kernel

// StateData is the full, exported contents of a [State], in the exact
// shape the snapshot codec needs: parallel slot arrays (occupied flag
// alongside value) so that positional identity survives a round trip
// untouched, plus the HNSW index's per-node level/neighbor lists and
// entry point. It holds no unexported kernel types.
type StateData struct {
	Version uint64

	Records []RecordSlot
	Nodes   []NodeSlot
	Edges   []EdgeSlot

	HNSWNodes  []HNSWSlot
	HasEntry   bool
	EntryID    uint32
	EntryLevel int
}

// RecordSlot is one slot of the record pool: Occupied mirrors the pool's
// own occupancy bit so an empty slot at index i is distinguishable from a
// record whose id happens to be the zero value.
type RecordSlot struct {
	Occupied bool
	Record   Record
}

// NodeSlot is one slot of the node pool.
type NodeSlot struct {
	Occupied bool
	Node     Node
}

// EdgeSlot is one slot of the edge pool.
type EdgeSlot struct {
	Occupied bool
	Edge     Edge
}

// HNSWSlot is one HNSW parallel-array entry: Present mirrors
// hnsw.present[id]; Neighbors[l] is the neighbor list at layer l, so
// len(Neighbors) == Level+1 whenever Present (spec §4.7's layer_count
// == level+1 rule).
type HNSWSlot struct {
	Present   bool
	Level     int
	Neighbors [][]uint32
}

// Export returns a complete, codec-ready snapshot of s. The returned
// value shares no backing arrays with s: mutating s afterward does not
// affect the export.
func (s *State) Export() StateData {
	out := StateData{
		Version:    s.version,
		Records:    make([]RecordSlot, s.records.Len()),
		Nodes:      make([]NodeSlot, s.graph.nodes.Len()),
		Edges:      make([]EdgeSlot, s.graph.edges.Len()),
		HNSWNodes:  make([]HNSWSlot, len(s.index.present)),
		HasEntry:   s.index.hasEntry,
		EntryID:    s.index.entryID,
		EntryLevel: s.index.entryLevel,
	}

	for i := range out.Records {
		r, ok := s.records.Get(uint32(i))
		out.Records[i] = RecordSlot{Occupied: ok, Record: r.clone()}
	}
	for i := range out.Nodes {
		n, ok := s.graph.nodes.Get(uint32(i))
		out.Nodes[i] = NodeSlot{Occupied: ok, Node: n}
	}
	for i := range out.Edges {
		e, ok := s.graph.edges.Get(uint32(i))
		out.Edges[i] = EdgeSlot{Occupied: ok, Edge: e}
	}
	for i := range out.HNSWNodes {
		present := s.index.present[i]
		slot := HNSWSlot{Present: present, Level: s.index.level[i]}
		if present {
			layers := s.index.neighbors[i]
			slot.Neighbors = make([][]uint32, len(layers))
			for l, lst := range layers {
				slot.Neighbors[l] = append([]uint32(nil), lst...)
			}
		}
		out.HNSWNodes[i] = slot
	}
	return out
}

// Import rebuilds a State from cfg and previously-[Export]ed data. It
// performs no validation beyond what is needed to build the in-memory
// arrays; callers decoding an untrusted envelope must call
// [State.CheckInvariants] afterward (spec §4.7 "after decode the
// aggregate re-runs the invariant checker").
func Import(cfg Config, data StateData) *State {
	s := NewState(cfg)
	s.version = data.Version

	s.records.slots = make([]slot[Record], len(data.Records))
	for i, rs := range data.Records {
		if rs.Occupied {
			s.records.slots[i] = slot[Record]{occupied: true, value: rs.Record.clone()}
		}
	}

	s.graph.nodes.slots = make([]slot[Node], len(data.Nodes))
	for i, ns := range data.Nodes {
		if ns.Occupied {
			s.graph.nodes.slots[i] = slot[Node]{occupied: true, value: ns.Node}
		}
	}

	s.graph.edges.slots = make([]slot[Edge], len(data.Edges))
	for i, es := range data.Edges {
		if es.Occupied {
			s.graph.edges.slots[i] = slot[Edge]{occupied: true, value: es.Edge}
		}
	}

	n := len(data.HNSWNodes)
	s.index.present = make([]bool, n)
	s.index.level = make([]int, n)
	s.index.neighbors = make([][][]uint32, n)
	for i, hs := range data.HNSWNodes {
		s.index.present[i] = hs.Present
		s.index.level[i] = hs.Level
		if hs.Present {
			layers := make([][]uint32, len(hs.Neighbors))
			for l, lst := range hs.Neighbors {
				layers[l] = append([]uint32(nil), lst...)
			}
			s.index.neighbors[i] = layers
		}
	}
	s.index.hasEntry = data.HasEntry
	s.index.entryID = data.EntryID
	s.index.entryLevel = data.EntryLevel

	return s
}

// RecordSlotCount, NodeSlotCount, and EdgeSlotCount return the number of
// allocated slots (occupied or not) in each pool, i.e. the length the
// snapshot codec's capacity preamble must record.
func (s *State) RecordSlotCount() int { return s.records.Len() }
func (s *State) NodeSlotCount() int   { return s.graph.nodes.Len() }
func (s *State) EdgeSlotCount() int   { return s.graph.edges.Len() }

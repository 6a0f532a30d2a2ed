package kernel

import (
	"fmt"

	"github.com/valokernel/valo/pkg/fixedpoint"
)

// Config parameterizes a State: the vector dimension and every pool/HNSW
// capacity. It is fixed for the lifetime of a deployment; opening a
// snapshot or log produced under a different Dim must fail closed (spec
// §4.7/§4.8, §8 property 8).
type Config struct {
	Dim        int
	MaxRecords int
	MaxNodes   int
	MaxEdges   int

	M              int
	MMax           int
	EfConstruction int
	MaxLevelCap    int
}

// DefaultConfig returns a Config with the spec's default HNSW parameters
// (§4.4) and the given dimension/capacities.
func DefaultConfig(dim, maxRecords, maxNodes, maxEdges int) Config {
	return Config{
		Dim:            dim,
		MaxRecords:     maxRecords,
		MaxNodes:       maxNodes,
		MaxEdges:       maxEdges,
		M:              DefaultM,
		MMax:           DefaultMMax,
		EfConstruction: DefaultEfConstruction,
		MaxLevelCap:    DefaultMaxLevelCap,
	}
}

// State is the kernel's entire in-memory aggregate: the record pool, the
// property-graph node/edge pools, and the HNSW index. It exclusively owns
// all three; the HNSW index refers to vectors by record id, never by a
// long-lived reference.
type State struct {
	cfg     Config
	version uint64

	records *pool[Record]
	graph   *graph
	index   *hnsw
}

// NewState returns an empty State for the given configuration.
func NewState(cfg Config) *State {
	return &State{
		cfg:     cfg,
		records: newPool[Record](cfg.MaxRecords),
		graph:   newGraph(cfg.MaxNodes, cfg.MaxEdges),
		index:   newHNSW(cfg.M, cfg.MMax, cfg.EfConstruction, cfg.MaxLevelCap),
	}
}

// Config returns the state's fixed configuration.
func (s *State) Config() Config { return s.cfg }

// Version returns the version counter, incremented once per successfully
// applied event. It is strictly non-decreasing across the lifetime of a
// State (spec §3 invariant).
func (s *State) Version() uint64 { return s.version }

// Clone returns a deep, independent copy of s, suitable for use as a
// shadow state (spec §4.9) or for forensic replay to an earlier log
// position.
func (s *State) Clone() *State {
	return &State{
		cfg:     s.cfg,
		version: s.version,
		records: s.records.clone(),
		graph:   s.graph.clone(),
		index:   s.index.clone(),
	}
}

// vectorFor implements [vectorSource] for the HNSW index.
func (s *State) vectorFor(id uint32) (fixedpoint.Vector, bool) {
	r, ok := s.records.Get(id)
	if !ok {
		return nil, false
	}
	return r.Vector, true
}

// Record returns the record at id.
func (s *State) Record(id uint32) (Record, bool) { return s.records.Get(id) }

// Node returns the node at id.
func (s *State) Node(id uint32) (Node, bool) { return s.graph.nodes.Get(id) }

// Edge returns the edge at id.
func (s *State) Edge(id uint32) (Edge, bool) { return s.graph.edges.Get(id) }

// IterRecords calls fn for every occupied record slot in ascending id
// order.
func (s *State) IterRecords(fn func(Record) bool) {
	s.records.Iter(func(_ uint32, r Record) bool { return fn(r) })
}

// IterNodes calls fn for every occupied node slot in ascending id order.
func (s *State) IterNodes(fn func(Node) bool) {
	s.graph.nodes.Iter(func(_ uint32, n Node) bool { return fn(n) })
}

// IterEdges calls fn for every occupied edge slot in ascending id order.
func (s *State) IterEdges(fn func(Edge) bool) {
	s.graph.edges.Iter(func(_ uint32, e Edge) bool { return fn(e) })
}

// NextRecordID returns the id InsertRecord would need to use right now.
// Producers must compute ids with this same first-fit rule before
// emitting events (spec §4.5, §9 "event-id is a contract with the
// caller").
func (s *State) NextRecordID() uint32 { return s.records.NextFreeID() }

// NextNodeID returns the id CreateNode would need to use right now.
func (s *State) NextNodeID() uint32 { return s.graph.nodes.NextFreeID() }

// NextEdgeID returns the id CreateEdge/AddEdge would need to use right
// now.
func (s *State) NextEdgeID() uint32 { return s.graph.edges.NextFreeID() }

// Apply performs one event against the state. On any error the state is
// left exactly as it was: every mutation sequences a feasibility check
// before touching a pool, so a partial success cannot leak (spec §4.5).
// On success, the version counter is incremented.
func (s *State) Apply(e Event) error {
	if err := s.apply(e); err != nil {
		return err
	}
	s.version++
	return nil
}

func (s *State) apply(e Event) error {
	switch e.Kind {
	case EventInsertRecord:
		return s.applyInsertRecord(e)
	case EventDeleteRecord:
		return s.applyDeleteRecord(e)
	case EventCreateNode:
		return s.applyCreateNode(e)
	case EventCreateEdge:
		return s.applyCreateEdge(e)
	case EventDeleteEdge:
		return s.graph.DeleteEdge(e.ID)
	case EventDeleteNode:
		return s.applyDeleteNode(e)
	default:
		return fmt.Errorf("%w: unknown event kind %d", ErrInvalidOperation, e.Kind)
	}
}

func (s *State) applyInsertRecord(e Event) error {
	if len(e.Vector) != s.cfg.Dim {
		return fmt.Errorf("%w: vector has %d dimensions, want %d", ErrDimensionMismatch, len(e.Vector), s.cfg.Dim)
	}
	if e.ID != s.records.NextFreeID() {
		return fmt.Errorf("%w: event id %d does not match next free record id %d", ErrInvalidOperation, e.ID, s.records.NextFreeID())
	}

	rec := Record{ID: e.ID, Vector: e.Vector.Clone(), Tag: e.Tag, TagSet: e.TagSet}
	if e.Metadata != nil {
		rec.Metadata = append([]byte(nil), e.Metadata...)
	}

	got, err := s.records.Insert(rec)
	if err != nil {
		return err
	}
	if got != e.ID {
		return fmt.Errorf("%w: record pool assigned id %d, expected %d", ErrInvalidOperation, got, e.ID)
	}

	return s.index.Insert(e.ID, s)
}

func (s *State) applyDeleteRecord(e Event) error {
	if !s.records.Occupied(e.ID) {
		return ErrNotFound
	}
	// HNSW cleanup must happen before the slot is emptied: it reads the
	// record's own neighbor lists, not its vector, so ordering relative
	// to the pool delete does not matter for correctness, but doing it
	// first keeps the repair pass's precondition (the id is still a
	// valid HNSW node) obviously true.
	s.index.Delete(e.ID)
	return s.records.Delete(e.ID)
}

func (s *State) applyCreateNode(e Event) error {
	if recID, ok := e.Record.get(); ok && !s.records.Occupied(recID) {
		return ErrNotFound
	}
	return s.graph.CreateNode(e.ID, e.NodeKind, e.Record)
}

func (s *State) applyCreateEdge(e Event) error {
	return s.graph.AddEdge(e.ID, e.EdgeKind, e.From, e.To)
}

func (s *State) applyDeleteNode(e Event) error {
	if !s.graph.nodes.Occupied(e.ID) {
		return ErrNotFound
	}
	if node, ok := s.graph.nodes.Get(e.ID); ok {
		if recID, ok := node.Record.get(); ok {
			if s.records.Occupied(recID) {
				s.index.Delete(recID)
				if err := s.records.Delete(recID); err != nil {
					return err
				}
			}
		}
	}
	return s.graph.DeleteNode(e.ID)
}

// Search runs an HNSW search for the k nearest records to query, using
// ef as the beam width (defaulting to max(EfConstruction, k*2) per spec
// §4.4 when ef <= 0). If filterTag is non-nil, only records whose Tag
// equals *filterTag are returned.
func (s *State) Search(query fixedpoint.Vector, k, ef int, filterTag *uint64) ([]SearchResult, error) {
	if len(query) != s.cfg.Dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d", ErrDimensionMismatch, len(query), s.cfg.Dim)
	}
	if ef <= 0 {
		ef = s.cfg.EfConstruction
	}

	var filter func(uint32) bool
	if filterTag != nil {
		filter = func(id uint32) bool {
			r, ok := s.records.Get(id)
			return ok && r.TagSet && r.Tag == *filterTag
		}
	}

	cands, err := s.index.SearchVector(query, k, ef, s, filter)
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, len(cands))
	for i, c := range cands {
		out[i] = SearchResult{ID: c.ID, Distance: c.Dist}
	}
	return out, nil
}

// SearchResult is one (id, distance) pair from [State.Search], ordered by
// (distance ascending, id ascending).
type SearchResult struct {
	ID       uint32
	Distance int64
}

// CheckInvariants re-verifies every structural invariant in spec §3. It
// is run after decoding a snapshot and may be run at any other time as a
// consistency check; apply_event never leaves the state in a condition
// that would fail it.
func (s *State) CheckInvariants() error {
	var invErr error
	s.graph.edges.Iter(func(id uint32, e Edge) bool {
		if e.ID != id {
			invErr = fmt.Errorf("%w: edge slot %d holds id %d", ErrInvalidOperation, id, e.ID)
			return false
		}
		if !s.graph.nodes.Occupied(e.From) {
			invErr = fmt.Errorf("%w: edge %d references empty from-node %d", ErrInvalidOperation, id, e.From)
			return false
		}
		if !s.graph.nodes.Occupied(e.To) {
			invErr = fmt.Errorf("%w: edge %d references empty to-node %d", ErrInvalidOperation, id, e.To)
			return false
		}
		if next, ok := e.NextOut.get(); ok {
			ne, found := s.graph.edges.Get(next)
			if !found || ne.From != e.From {
				invErr = fmt.Errorf("%w: edge %d next_out %d invalid", ErrInvalidOperation, id, next)
				return false
			}
		}
		return true
	})
	if invErr != nil {
		return invErr
	}

	s.graph.nodes.Iter(func(id uint32, n Node) bool {
		if n.ID != id {
			invErr = fmt.Errorf("%w: node slot %d holds id %d", ErrInvalidOperation, id, n.ID)
			return false
		}
		if head, ok := n.FirstOutEdge.get(); ok {
			he, found := s.graph.edges.Get(head)
			if !found || he.From != id {
				invErr = fmt.Errorf("%w: node %d first_out_edge %d invalid", ErrInvalidOperation, id, head)
				return false
			}
		}
		if recID, ok := n.Record.get(); ok && !s.records.Occupied(recID) {
			invErr = fmt.Errorf("%w: node %d references empty record %d", ErrInvalidOperation, id, recID)
			return false
		}
		return true
	})
	if invErr != nil {
		return invErr
	}

	s.records.Iter(func(id uint32, r Record) bool {
		if r.ID != id {
			invErr = fmt.Errorf("%w: record slot %d holds id %d", ErrInvalidOperation, id, r.ID)
			return false
		}
		return true
	})
	if invErr != nil {
		return invErr
	}

	for id := range s.index.present {
		if !s.index.present[id] {
			continue
		}
		if !s.records.Occupied(uint32(id)) {
			return fmt.Errorf("%w: hnsw node %d has no backing record", ErrInvalidOperation, id)
		}
		for _, layer := range s.index.neighbors[id] {
			for _, n := range layer {
				if n == uint32(id) {
					return fmt.Errorf("%w: hnsw node %d has a self-edge", ErrInvalidOperation, id)
				}
				if !s.records.Occupied(n) {
					return fmt.Errorf("%w: hnsw node %d neighbor %d has no backing record", ErrInvalidOperation, id, n)
				}
			}
		}
	}

	return nil
}

package kernel

// graph owns the node and edge pools and implements the adjacency
// operations of spec §4.3: LIFO edge insertion and cascading deletes.
type graph struct {
	nodes *pool[Node]
	edges *pool[Edge]
}

func newGraph(maxNodes, maxEdges int) *graph {
	return &graph{
		nodes: newPool[Node](maxNodes),
		edges: newPool[Edge](maxEdges),
	}
}

func (g *graph) clone() *graph {
	return &graph{
		nodes: g.nodes.clone(),
		edges: g.edges.clone(),
	}
}

// CreateNode inserts a node at the id the pool's first-fit rule would
// assign. Returns [ErrInvalidOperation] if id disagrees with that rule.
func (g *graph) CreateNode(id uint32, kind NodeKind, record optionalID) error {
	if id != g.nodes.NextFreeID() {
		return ErrInvalidOperation
	}
	got, err := g.nodes.Insert(Node{ID: id, Kind: kind, Record: record})
	if err != nil {
		return err
	}
	if got != id {
		// Unreachable given the NextFreeID check above; guards against a
		// future pool implementation changing its first-fit contract.
		return ErrInvalidOperation
	}
	return nil
}

// AddEdge allocates a new edge at id (validated against the pool's
// first-fit rule like CreateNode), and links it at the head of from's
// outgoing adjacency list. Fails with [ErrNotFound] if either endpoint is
// an empty node slot.
func (g *graph) AddEdge(id uint32, kind EdgeKind, from, to uint32) error {
	fromNode, ok := g.nodes.Get(from)
	if !ok {
		return ErrNotFound
	}
	if !g.nodes.Occupied(to) {
		return ErrNotFound
	}
	if id != g.edges.NextFreeID() {
		return ErrInvalidOperation
	}

	edge := Edge{ID: id, Kind: kind, From: from, To: to, NextOut: fromNode.FirstOutEdge}
	got, err := g.edges.Insert(edge)
	if err != nil {
		return err
	}
	if got != id {
		return ErrInvalidOperation
	}

	fromNode.FirstOutEdge = someID(id)
	return g.nodes.Set(from, fromNode)
}

// DeleteEdge unlinks id from its source node's adjacency list, then
// empties the edge slot. Returns [ErrNotFound] if id is already empty.
func (g *graph) DeleteEdge(id uint32) error {
	edge, ok := g.edges.Get(id)
	if !ok {
		return ErrNotFound
	}
	if err := g.unlinkEdge(edge); err != nil {
		return err
	}
	return g.edges.Delete(id)
}

// unlinkEdge removes edge from its source node's singly-linked adjacency
// list without deleting the edge slot itself.
func (g *graph) unlinkEdge(edge Edge) error {
	fromNode, ok := g.nodes.Get(edge.From)
	if !ok {
		// The edge's from-node was deleted out from under it; this is a
		// pre-existing invariant violation, not something unlinkEdge can
		// fix. Callers (DeleteNode's cascade) never hit this path.
		return ErrNotFound
	}

	if head, present := fromNode.FirstOutEdge.get(); present && head == edge.ID {
		fromNode.FirstOutEdge = edge.NextOut
		return g.nodes.Set(edge.From, fromNode)
	}

	prevID, ok := fromNode.FirstOutEdge.get()
	for ok {
		prev, found := g.edges.Get(prevID)
		if !found {
			return ErrNotFound
		}
		nextID, present := prev.NextOut.get()
		if present && nextID == edge.ID {
			prev.NextOut = edge.NextOut
			return g.edges.Set(prevID, prev)
		}
		prevID, ok = nextID, present
	}

	return ErrNotFound
}

// DeleteNode repeatedly deletes any edge with id as From or To, then
// empties the node slot. The cascade order (edges found by a linear scan
// of the edge pool in ascending id order) is itself part of observable,
// hashed state.
func (g *graph) DeleteNode(id uint32) error {
	if !g.nodes.Occupied(id) {
		return ErrNotFound
	}

	for {
		var found uint32
		var hasEdge bool
		g.edges.Iter(func(eid uint32, e Edge) bool {
			if e.From == id || e.To == id {
				found, hasEdge = eid, true
				return false
			}
			return true
		})
		if !hasEdge {
			break
		}
		if err := g.DeleteEdge(found); err != nil {
			return err
		}
	}

	return g.nodes.Delete(id)
}

package kernel

import "github.com/valokernel/valo/pkg/fixedpoint"

// NodeKind is a closed, 8-bit tagged set of graph node kinds.
type NodeKind uint8

// The full set of node kinds. Values are stable across versions: they are
// hashed, so reordering this list changes every existing state's hash.
const (
	NodeKindRecord NodeKind = iota
	NodeKindConcept
	NodeKindAgent
	NodeKindUser
	NodeKindTool
	NodeKindDocument
	NodeKindChunk
)

// EdgeKind is a caller-defined tag on a graph edge. The kernel does not
// interpret its value beyond storing and hashing it.
type EdgeKind uint8

// optionalID represents an Option<id> field: Present is false for None.
// It is never encoded with a sentinel integer (e.g. 0 or ^0) because 0 is
// itself a valid id; see [Record] and the canonical hash's flag rule.
type optionalID struct {
	Present bool
	ID      uint32
}

func noID() optionalID               { return optionalID{} }
func someID(id uint32) optionalID    { return optionalID{Present: true, ID: id} }
func (o optionalID) get() (uint32, bool) { return o.ID, o.Present }

// Record is a stored vector with an optional metadata tag, identified by
// its slot id. A slot is either empty or occupied; id equals slot index.
type Record struct {
	ID     uint32
	Flags  uint8
	Vector fixedpoint.Vector

	// Tag is the optional 64-bit metadata tag used for filtered search.
	// TagSet reports whether a tag was supplied; Tag is only read when
	// TagSet is true, so a supplied tag of zero is stored, hashed and
	// matched by a zero filter like any other value. Metadata nil means
	// no blob; a non-nil empty slice is a zero-length blob, and the two
	// hash differently.
	Tag      uint64
	TagSet   bool
	Metadata []byte
}

func (r Record) clone() Record {
	out := r
	out.Vector = r.Vector.Clone()
	if r.Metadata != nil {
		out.Metadata = append([]byte(nil), r.Metadata...)
	}
	return out
}

// Node is a property-graph vertex. Same slot/id discipline as Record.
type Node struct {
	ID           uint32
	Kind         NodeKind
	Record       optionalID // Option<record_id>
	FirstOutEdge optionalID // Option<edge_id>
}

// Edge is a directed, typed property-graph edge. next_out forms a
// singly-linked list of outgoing edges rooted at from's FirstOutEdge;
// insertion is always at the head, so traversal order is the reverse of
// insertion order and is itself part of observable, hashed state.
type Edge struct {
	ID      uint32
	Kind    EdgeKind
	From    uint32
	To      uint32
	NextOut optionalID // Option<edge_id>
}

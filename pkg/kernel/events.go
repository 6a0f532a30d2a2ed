package kernel

import "github.com/valokernel/valo/pkg/fixedpoint"

// EventKind tags the closed, five-variant event union of spec §4.5 (six,
// counting the optional DeleteNode cascade variant).
type EventKind uint8

const (
	EventInsertRecord EventKind = iota
	EventDeleteRecord
	EventCreateNode
	EventCreateEdge
	EventDeleteEdge
	EventDeleteNode
)

// Event is the closed tagged union applied by [State.Apply]. No wall-clock
// time, no entropy, and no floating-point field participates in any
// variant: every field here is either an id, a fixed-point vector, or a
// small closed enum.
type Event struct {
	Kind EventKind

	ID     uint32
	Vector fixedpoint.Vector // InsertRecord

	Tag      uint64 // InsertRecord, optional metadata tag
	TagSet   bool
	Metadata []byte

	NodeKind NodeKind   // CreateNode
	Record   optionalID // CreateNode: Option<record_id>

	EdgeKind EdgeKind // CreateEdge
	From     uint32   // CreateEdge
	To       uint32   // CreateEdge
}

// InsertRecordEvent builds an InsertRecord event.
func InsertRecordEvent(id uint32, vector fixedpoint.Vector) Event {
	return Event{Kind: EventInsertRecord, ID: id, Vector: vector.Clone()}
}

// InsertRecordWithTagEvent builds an InsertRecord event carrying an
// optional metadata tag and blob.
func InsertRecordWithTagEvent(id uint32, vector fixedpoint.Vector, tag uint64, metadata []byte) Event {
	e := InsertRecordEvent(id, vector)
	e.Tag = tag
	e.TagSet = true
	if metadata != nil {
		e.Metadata = append([]byte(nil), metadata...)
	}
	return e
}

// DeleteRecordEvent builds a DeleteRecord event.
func DeleteRecordEvent(id uint32) Event {
	return Event{Kind: EventDeleteRecord, ID: id}
}

// CreateNodeEvent builds a CreateNode event. record is the optional
// backing record id; pass ok=false for none.
func CreateNodeEvent(id uint32, kind NodeKind, record uint32, ok bool) Event {
	rec := noID()
	if ok {
		rec = someID(record)
	}
	return Event{Kind: EventCreateNode, ID: id, NodeKind: kind, Record: rec}
}

// CreateEdgeEvent builds a CreateEdge event.
func CreateEdgeEvent(id uint32, kind EdgeKind, from, to uint32) Event {
	return Event{Kind: EventCreateEdge, ID: id, EdgeKind: kind, From: from, To: to}
}

// DeleteEdgeEvent builds a DeleteEdge event.
func DeleteEdgeEvent(id uint32) Event {
	return Event{Kind: EventDeleteEdge, ID: id}
}

// DeleteNodeEvent builds a DeleteNode event (cascade delete).
func DeleteNodeEvent(id uint32) Event {
	return Event{Kind: EventDeleteNode, ID: id}
}

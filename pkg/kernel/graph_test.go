package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraphWithTwoNodes(t *testing.T) *graph {
	t.Helper()
	g := newGraph(8, 8)
	require.NoError(t, g.CreateNode(0, NodeKindConcept, noID()))
	require.NoError(t, g.CreateNode(1, NodeKindConcept, noID()))
	return g
}

func Test_AddEdge_Fails_When_Endpoint_Is_Empty(t *testing.T) {
	t.Parallel()

	g := newTestGraphWithTwoNodes(t)
	err := g.AddEdge(0, 1, 0, 5)
	require.ErrorIs(t, err, ErrNotFound)
}

func Test_AddEdge_Links_At_Head_Of_Adjacency_List(t *testing.T) {
	t.Parallel()

	g := newTestGraphWithTwoNodes(t)
	require.NoError(t, g.AddEdge(0, 1, 0, 1))
	require.NoError(t, g.AddEdge(1, 1, 0, 1))

	n, ok := g.nodes.Get(0)
	require.True(t, ok)
	id, present := n.FirstOutEdge.get()
	require.True(t, present)
	assert.Equal(t, uint32(1), id, "most recently added edge is the head: LIFO order")

	e1, _ := g.edges.Get(1)
	next, present := e1.NextOut.get()
	require.True(t, present)
	assert.Equal(t, uint32(0), next)
}

func Test_DeleteEdge_Unlinks_From_Middle_Of_List(t *testing.T) {
	t.Parallel()

	g := newTestGraphWithTwoNodes(t)
	require.NoError(t, g.AddEdge(0, 1, 0, 1)) // head after insert: 0
	require.NoError(t, g.AddEdge(1, 1, 0, 1)) // head: 1 -> 0
	require.NoError(t, g.AddEdge(2, 1, 0, 1)) // head: 2 -> 1 -> 0

	require.NoError(t, g.DeleteEdge(1))

	n, _ := g.nodes.Get(0)
	head, _ := n.FirstOutEdge.get()
	assert.Equal(t, uint32(2), head)

	e2, _ := g.edges.Get(2)
	next, _ := e2.NextOut.get()
	assert.Equal(t, uint32(0), next, "edge 1 must be skipped after unlinking")

	assert.False(t, g.edges.Occupied(1))
}

func Test_DeleteNode_Cascades_All_Incident_Edges(t *testing.T) {
	t.Parallel()

	g := newGraph(8, 8)
	require.NoError(t, g.CreateNode(0, NodeKindConcept, noID()))
	require.NoError(t, g.CreateNode(1, NodeKindConcept, noID()))
	require.NoError(t, g.CreateNode(2, NodeKindConcept, noID()))
	require.NoError(t, g.AddEdge(0, 1, 0, 1))
	require.NoError(t, g.AddEdge(1, 1, 2, 0))

	require.NoError(t, g.DeleteNode(0))

	assert.False(t, g.nodes.Occupied(0))
	assert.False(t, g.edges.Occupied(0), "edge from the deleted node must cascade")
	assert.False(t, g.edges.Occupied(1), "edge to the deleted node must cascade")
	assert.True(t, g.nodes.Occupied(2))
}

func Test_CreateNode_Returns_InvalidOperation_When_ID_Mismatches_FirstFit(t *testing.T) {
	t.Parallel()

	g := newGraph(8, 8)
	err := g.CreateNode(5, NodeKindConcept, noID())
	require.ErrorIs(t, err, ErrInvalidOperation)
}

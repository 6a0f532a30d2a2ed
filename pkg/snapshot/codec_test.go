package snapshot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valokernel/valo/pkg/fixedpoint"
	"github.com/valokernel/valo/pkg/kernel"
	"github.com/valokernel/valo/pkg/snapshot"
)

func vec(xs ...int) fixedpoint.Vector {
	out := make(fixedpoint.Vector, len(xs))
	for i, x := range xs {
		out[i] = fixedpoint.FromInt(x)
	}
	return out
}

func buildState(t *testing.T) *kernel.State {
	t.Helper()
	cfg := kernel.DefaultConfig(2, 16, 16, 16)
	s := kernel.NewState(cfg)
	require.NoError(t, s.Apply(kernel.InsertRecordWithTagEvent(0, vec(1, 1), 7, []byte{9, 9})))
	require.NoError(t, s.Apply(kernel.InsertRecordEvent(1, vec(2, 2))))
	require.NoError(t, s.Apply(kernel.InsertRecordEvent(2, vec(3, 3))))
	require.NoError(t, s.Apply(kernel.DeleteRecordEvent(1)))
	require.NoError(t, s.Apply(kernel.CreateNodeEvent(0, kernel.NodeKindRecord, 0, true)))
	require.NoError(t, s.Apply(kernel.CreateNodeEvent(1, kernel.NodeKindRecord, 2, true)))
	require.NoError(t, s.Apply(kernel.CreateEdgeEvent(0, 0, 0, 1)))
	return s
}

// Property 2 (spec §8): decode(encode(S)) == S structurally, and
// hash(S) == hash(decode(encode(S))).
func Test_Encode_Decode_Round_Trip_Preserves_Hash(t *testing.T) {
	t.Parallel()

	s := buildState(t)
	want := s.Hash()

	b, err := snapshot.Encode(s)
	require.NoError(t, err)

	got, err := snapshot.Decode(b, s.Config())
	require.NoError(t, err)

	assert.Equal(t, want, got.Hash())
}

func Test_Decode_Rejects_Unsupported_Schema_Version(t *testing.T) {
	t.Parallel()

	s := buildState(t)
	b, err := snapshot.Encode(s)
	require.NoError(t, err)

	b[4] = 0xFF // schema_version low byte, little-endian
	_, err = snapshot.Decode(b, s.Config())
	require.ErrorIs(t, err, snapshot.ErrIncompatible)
}

func Test_Decode_Rejects_Dimension_Mismatch(t *testing.T) {
	t.Parallel()

	s := buildState(t)
	b, err := snapshot.Encode(s)
	require.NoError(t, err)

	wrongCfg := kernel.DefaultConfig(3, 16, 16, 16)
	_, err = snapshot.Decode(b, wrongCfg)
	require.ErrorIs(t, err, snapshot.ErrDimensionMismatch)
}

func Test_Decode_Rejects_Corrupted_Body(t *testing.T) {
	t.Parallel()

	s := buildState(t)
	b, err := snapshot.Encode(s)
	require.NoError(t, err)

	b[len(b)/2] ^= 0xFF
	_, err = snapshot.Decode(b, s.Config())
	require.ErrorIs(t, err, snapshot.ErrCorrupt)
}

func Test_Decode_Rejects_Truncated_Envelope(t *testing.T) {
	t.Parallel()

	s := buildState(t)
	b, err := snapshot.Encode(s)
	require.NoError(t, err)

	_, err = snapshot.Decode(b[:len(b)-10], s.Config())
	require.ErrorIs(t, err, snapshot.ErrCorrupt)
}

func Test_Encode_Decode_Round_Trip_On_Empty_State(t *testing.T) {
	t.Parallel()

	cfg := kernel.DefaultConfig(4, 8, 8, 8)
	s := kernel.NewState(cfg)

	b, err := snapshot.Encode(s)
	require.NoError(t, err)

	got, err := snapshot.Decode(b, cfg)
	require.NoError(t, err)
	assert.Equal(t, s.Hash(), got.Hash())
}

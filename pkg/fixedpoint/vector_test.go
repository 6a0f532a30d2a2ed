package fixedpoint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valokernel/valo/pkg/fixedpoint"
)

func Test_L2Sq_Returns_Zero_When_Vectors_Are_Identical(t *testing.T) {
	t.Parallel()

	v := fixedpoint.Vector{fixedpoint.FromInt(1), fixedpoint.FromInt(2), fixedpoint.FromInt(3)}

	got, err := fixedpoint.L2Sq(v, v.Clone())
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
}

func Test_L2Sq_Returns_Error_When_Dimensions_Mismatch(t *testing.T) {
	t.Parallel()

	u := fixedpoint.Vector{fixedpoint.FromInt(1)}
	v := fixedpoint.Vector{fixedpoint.FromInt(1), fixedpoint.FromInt(2)}

	_, err := fixedpoint.L2Sq(u, v)
	require.ErrorIs(t, err, fixedpoint.ErrDimensionMismatch)
}

func Test_L2Sq_Matches_Expected_Distance_For_Known_Points(t *testing.T) {
	t.Parallel()

	// (10,10) vs origin: sq dist = 200.
	a := fixedpoint.Vector{fixedpoint.FromInt(10), fixedpoint.FromInt(10)}
	origin := fixedpoint.Vector{fixedpoint.FromInt(0), fixedpoint.FromInt(0)}

	got, err := fixedpoint.L2Sq(a, origin)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, float64(got)/65536.0, 0.001)
}

func Test_Clone_Returns_Independent_Copy(t *testing.T) {
	t.Parallel()

	v := fixedpoint.Vector{fixedpoint.FromInt(1)}
	clone := v.Clone()
	clone[0] = fixedpoint.FromInt(9)

	assert.Equal(t, fixedpoint.FromInt(1), v[0])
}

package fixedpoint_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valokernel/valo/pkg/fixedpoint"
)

func Test_Add_Saturates_When_Sum_Overflows_Int32(t *testing.T) {
	t.Parallel()

	got := fixedpoint.Add(math.MaxInt32, 1)
	assert.Equal(t, fixedpoint.Scalar(math.MaxInt32), got)

	got = fixedpoint.Add(math.MinInt32, -1)
	assert.Equal(t, fixedpoint.Scalar(math.MinInt32), got)
}

func Test_Sub_Saturates_When_Difference_Overflows_Int32(t *testing.T) {
	t.Parallel()

	got := fixedpoint.Sub(math.MinInt32, 1)
	assert.Equal(t, fixedpoint.Scalar(math.MinInt32), got)
}

func Test_Mul_Returns_Exact_Product_For_Small_Values(t *testing.T) {
	t.Parallel()

	two := fixedpoint.FromInt(2)
	three := fixedpoint.FromInt(3)

	got := fixedpoint.Mul(two, three)
	require.Equal(t, fixedpoint.FromInt(6), got)
}

func Test_Mul_Saturates_When_Product_Overflows_Int32(t *testing.T) {
	t.Parallel()

	got := fixedpoint.Mul(math.MaxInt32, math.MaxInt32)
	assert.Equal(t, fixedpoint.Scalar(math.MaxInt32), got)
}

func Test_FromFloat64_Rounds_To_Nearest(t *testing.T) {
	t.Parallel()

	got := fixedpoint.FromFloat64(1.5)
	assert.InDelta(t, 1.5, got.Float64(), 1.0/65536.0)
}

func Test_FromFloat64_Saturates_When_Value_Exceeds_Range(t *testing.T) {
	t.Parallel()

	got := fixedpoint.FromFloat64(1e20)
	assert.Equal(t, fixedpoint.Scalar(math.MaxInt32), got)
}

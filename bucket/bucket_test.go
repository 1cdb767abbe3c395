package bucket

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFixedWidth(t *testing.T) {
	b, err := NewFixedWidth(5, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Bucketize(7))
	assert.Equal(t, 0, b.Bucketize(3))
	assert.Equal(t, 0, b.Bucketize(-3))
	assert.Equal(t, 2, b.Bucketize(10))

	norm, err := NewFixedWidth(0.05, 0.0)
	require.NoError(t, err)
	assert.Equal(t, 13, norm.Bucketize(0.7))
	assert.Equal(t, 5, norm.Bucketize(0.3))
	assert.Equal(t, 0, norm.Bucketize(math.NaN()))
	assert.Equal(t, maxIndex, norm.Bucketize(math.MaxFloat64))

	_, err = NewFixedWidth(0.0, 0.0)
	require.ErrorIs(t, err, ErrInvalidWidth)
	_, err = NewFixedWidth(math.NaN(), 0.0)
	require.ErrorIs(t, err, ErrInvalidWidth)
	_, err = NewFixedWidth(1.0, math.NaN())
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestLinear(t *testing.T) {
	b, err := NewLinear(0.0, 1.0, 10)
	require.NoError(t, err)

	testCases := []struct {
		value  float64
		bucket int
	}{
		{-1, 0},
		{0, 0},
		{0.25, 2},
		{0.999, 9},
		{1, 9},
		{5, 9},
		{math.NaN(), 0},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.bucket, b.Bucketize(tc.value), "value %v", tc.value)
	}

	_, err = NewLinear(0.0, 1.0, 0)
	require.ErrorIs(t, err, ErrInvalidBucketCnt)
	_, err = NewLinear(1.0, 1.0, 4)
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestRanges(t *testing.T) {
	b, err := NewRanges(Range[int]{0, 5}, Range[int]{5, 10})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Bucketize(7))
	assert.Equal(t, 0, b.Bucketize(3))
	assert.Equal(t, 0, b.Bucketize(-3))
	assert.Equal(t, 1, b.Bucketize(5))
	assert.Equal(t, 1, b.Bucketize(50))

	gap, err := NewRanges(Range[int]{0, 5}, Range[int]{10, 20})
	require.NoError(t, err)
	assert.Equal(t, 1, gap.Bucketize(7))

	_, err = NewRanges[int]()
	require.ErrorIs(t, err, ErrInvalidRange)
	_, err = NewRanges(Range[int]{5, 5})
	require.ErrorIs(t, err, ErrInvalidRange)
	_, err = NewRanges(Range[int]{0, 5}, Range[int]{4, 10})
	require.ErrorIs(t, err, ErrUnorderedBoundary)

	var zero Ranges[int]
	assert.Equal(t, 0, zero.Bucketize(3))
}

func TestThreshold(t *testing.T) {
	cuts := []float64{0.1, 0.5, 0.9}
	b, err := NewThreshold(cuts...)
	require.NoError(t, err)

	assert.Equal(t, 0, b.Bucketize(0.05))
	assert.Equal(t, 1, b.Bucketize(0.1))
	assert.Equal(t, 2, b.Bucketize(0.5))
	assert.Equal(t, 3, b.Bucketize(0.95))
	assert.Equal(t, 0, b.Bucketize(math.NaN()))

	cuts[0] = 0.3
	assert.Equal(t, []float64{0.1, 0.5, 0.9}, b.Cuts())

	_, err = NewThreshold(0.5, 0.5)
	require.ErrorIs(t, err, ErrUnorderedBoundary)
	_, err = NewThreshold(math.NaN())
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestBucketizersAreMonotone(t *testing.T) {
	fixed, err := NewFixedWidth(0.05, 0.0)
	require.NoError(t, err)
	linear, err := NewLinear(0.0, 1.0, 20)
	require.NoError(t, err)
	threshold, err := NewThreshold(0.2, 0.4, 0.6, 0.8)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Float64Range(-2, 2).Draw(t, "a").(float64)
		b := rapid.Float64Range(-2, 2).Draw(t, "b").(float64)
		if a > b {
			a, b = b, a
		}
		require.LessOrEqual(t, fixed.Bucketize(a), fixed.Bucketize(b))
		require.LessOrEqual(t, linear.Bucketize(a), linear.Bucketize(b))
		require.LessOrEqual(t, threshold.Bucketize(a), threshold.Bucketize(b))
		require.GreaterOrEqual(t, linear.Bucketize(a), 0)
		require.Less(t, linear.Bucketize(b), 20)
	})
}

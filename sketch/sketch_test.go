package sketch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tmmath "github.com/decentrust/decentrust/libs/math"
)

func newTestSketch(t *testing.T, errorBound float64, opts ...Option) *CountMinSketch[float64] {
	t.Helper()
	s, err := NewFromBounds(errorBound, 0.0001, 3000, tmmath.NonNegative[float64](), opts...)
	require.NoError(t, err)
	return s
}

func TestNewFromBounds(t *testing.T) {
	s := newTestSketch(t, 50)
	assert.Equal(t, 164, s.Width())
	assert.Equal(t, 10, s.Depth())
	assert.Equal(t, 0.0, s.Min())
	assert.Equal(t, math.MaxFloat64, s.Max())
	assert.Equal(t, HashOffset, s.Hasher().Kind())

	s = newTestSketch(t, 10)
	assert.Equal(t, 816, s.Width())
	assert.Equal(t, 10, s.Depth())
}

func TestDimensions(t *testing.T) {
	testCases := []struct {
		errorBound, probability, maxEntries float64
		width, depth                        int
		expectErr                           bool
	}{
		0:  {50, 0.0001, 3000, 164, 10, false},
		1:  {10, 0.0001, 3000, 816, 10, false},
		2:  {1, 0.5, 1, 3, 1, false},
		3:  {1, 0.9, 1, 3, 1, false},
		4:  {1000, 0.01, 1, 1, 5, false},
		5:  {0, 0.01, 3000, 0, 0, true},
		6:  {-1, 0.01, 3000, 0, 0, true},
		7:  {10, 0, 3000, 0, 0, true},
		8:  {10, 1, 3000, 0, 0, true},
		9:  {10, 1.5, 3000, 0, 0, true},
		10: {10, 0.01, 0, 0, 0, true},
		11: {math.NaN(), 0.01, 3000, 0, 0, true},
		12: {10, math.NaN(), 3000, 0, 0, true},
		13: {10, 0.01, math.Inf(1), 0, 0, true},
	}

	for i, tc := range testCases {
		width, depth, err := Dimensions(tc.errorBound, tc.probability, tc.maxEntries)
		if tc.expectErr {
			require.ErrorIs(t, err, ErrInvalidParameters, "#%d", i)
			continue
		}
		require.NoError(t, err, "#%d", i)
		assert.Equal(t, tc.width, width, "#%d", i)
		assert.Equal(t, tc.depth, depth, "#%d", i)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(0, 10, tmmath.NonNegative[float64]())
	require.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = New(10, -1, tmmath.NonNegative[float64]())
	require.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = New(10, 10, tmmath.Bounds[float64]{Min: 1, Max: 0})
	require.ErrorIs(t, err, ErrInvalidBounds)

	_, err = New(10, 10, tmmath.Bounds[float64]{Min: 1, Max: 5})
	require.ErrorIs(t, err, ErrInvalidBounds)

	_, err = New(10, 10, tmmath.NonNegative[float64](), WithHashKind("sha3"))
	require.ErrorIs(t, err, ErrUnknownHashKind)
}

func TestDefault(t *testing.T) {
	s := Default[uint64]()
	assert.Equal(t, DefaultWidth, s.Width())
	assert.Equal(t, DefaultDepth, s.Depth())
	assert.EqualValues(t, 0, s.Min())
	assert.EqualValues(t, uint64(math.MaxUint64), s.Max())
}

func TestIncrementEstimate(t *testing.T) {
	s := newTestSketch(t, 10)
	s.Increment([]byte("node_1"), 50)

	estimate := s.Estimate([]byte("node_1"))
	assert.GreaterOrEqual(t, estimate, 50.0)
	assert.LessOrEqual(t, estimate, 60.0)

	assert.Equal(t, 0.0, s.Estimate([]byte("node_2")))
}

func TestDecrementEstimate(t *testing.T) {
	s := newTestSketch(t, 10)
	s.Increment([]byte("node_1"), 50)
	s.Decrement([]byte("node_1"), 10)
	assert.Equal(t, 40.0, s.Estimate([]byte("node_1")))
}

func TestDecrementFloorsAtMin(t *testing.T) {
	s := newTestSketch(t, 10)
	s.Increment([]byte("node_1"), 50)
	s.Decrement([]byte("node_1"), 70)

	estimate := s.Estimate([]byte("node_1"))
	assert.GreaterOrEqual(t, estimate, 0.0)
	assert.LessOrEqual(t, estimate, 10.0)

	for it := s.Iter(); it.Next(); {
		require.GreaterOrEqual(t, it.Value(), s.Min())
	}
}

func TestIncrementSaturatesAtMax(t *testing.T) {
	s, err := New(16, 4, tmmath.Bounds[uint8]{Min: 0, Max: 200})
	require.NoError(t, err)

	s.Increment([]byte("peer"), 150)
	s.Increment([]byte("peer"), 150)
	assert.EqualValues(t, 200, s.Estimate([]byte("peer")))
}

// node_2 and node_4 share a column in every row at width 164 under the
// offset hasher, so each one's estimate includes the other's mass.
func TestOffsetHasherCollisionOverestimates(t *testing.T) {
	s := newTestSketch(t, 50)
	s.Increment([]byte("node_2"), 5)
	s.Increment([]byte("node_4"), 3)

	assert.Equal(t, 8.0, s.Estimate([]byte("node_2")))
	assert.Equal(t, 8.0, s.Estimate([]byte("node_4")))
	assert.Equal(t, 0.0, s.Estimate([]byte("node_1")))

	seeded := newTestSketch(t, 50, WithHashKind(HashSeeded))
	seeded.Increment([]byte("node_2"), 5)
	seeded.Increment([]byte("node_4"), 3)
	assert.GreaterOrEqual(t, seeded.Estimate([]byte("node_4")), 3.0)
	assert.GreaterOrEqual(t, seeded.Estimate([]byte("node_2")), 5.0)
}

func TestNormalizeEstimates(t *testing.T) {
	s := newTestSketch(t, 50)

	// an empty sketch normalizes to zeros rather than NaN
	for _, row := range s.NormalizeEstimates() {
		for _, v := range row {
			require.Equal(t, 0.0, v)
		}
	}

	s.Increment([]byte("node_1"), 5)
	s.Increment([]byte("node_2"), 5)

	n := s.Normalized()
	assert.Equal(t, 0.5, n.Estimate([]byte("node_1")))
	assert.Equal(t, 0.5, n.Estimate([]byte("node_2")))
	assert.Equal(t, s.Width(), n.Width())
	assert.Equal(t, s.Depth(), n.Depth())

	for _, row := range s.NormalizeEstimates() {
		var total float64
		for _, v := range row {
			total += v
		}
		require.InDelta(t, 1.0, total, 1e-9)
	}

	// the source sketch is untouched
	assert.Equal(t, 5.0, s.Estimate([]byte("node_1")))
}

func TestNormalizeEstimatesSaturatesRowTotal(t *testing.T) {
	small, err := New(4, 1, tmmath.NonNegative[uint8]())
	require.NoError(t, err)
	require.NoError(t, small.SetMatrix([][]uint8{{200, 100, 0, 0}}))

	// the row sum stops at 255 instead of wrapping to 44
	assert.EqualValues(t, 255, small.Total())
	assert.Equal(t, [][]uint8{{0, 0, 0, 0}}, small.NormalizeEstimates())

	large, err := New(2, 1, tmmath.NonNegative[float64]())
	require.NoError(t, err)
	require.NoError(t, large.SetMatrix([][]float64{{1e308, 1e308}}))

	assert.Equal(t, math.MaxFloat64, large.Total())
	for _, v := range large.NormalizeEstimates()[0] {
		assert.Equal(t, 1e308/math.MaxFloat64, v)
	}
}

func TestEstimateLength(t *testing.T) {
	s := newTestSketch(t, 50)
	assert.Equal(t, 0, s.EstimateLength())

	s.Increment([]byte("node_1"), 1)
	assert.Equal(t, 1, s.EstimateLength())

	s.Increment([]byte("node_2"), 1)
	assert.Equal(t, 2, s.EstimateLength())

	// colliding keys are indistinguishable
	s.Increment([]byte("node_4"), 1)
	assert.Equal(t, 2, s.EstimateLength())
}

func TestCloneAndMatrixAreCopies(t *testing.T) {
	s := newTestSketch(t, 50)
	s.Increment([]byte("node_1"), 5)

	c := s.Clone()
	c.Increment([]byte("node_1"), 5)
	assert.Equal(t, 5.0, s.Estimate([]byte("node_1")))
	assert.Equal(t, 10.0, c.Estimate([]byte("node_1")))

	m := s.Matrix()
	for i := range m {
		for j := range m[i] {
			m[i][j] = 100
		}
	}
	assert.Equal(t, 5.0, s.Estimate([]byte("node_1")))

	s.Reset()
	assert.Equal(t, 0.0, s.Estimate([]byte("node_1")))
	assert.Equal(t, 10.0, c.Estimate([]byte("node_1")))
}

func TestSetMatrix(t *testing.T) {
	s, err := New(2, 2, tmmath.Bounds[int]{Min: 0, Max: 10})
	require.NoError(t, err)

	require.ErrorIs(t, s.SetMatrix([][]int{{1, 2}}), ErrIncompatible)
	require.ErrorIs(t, s.SetMatrix([][]int{{1, 2}, {3}}), ErrIncompatible)

	m := [][]int{{1, 20}, {-3, 4}}
	require.NoError(t, s.SetMatrix(m))
	assert.Equal(t, [][]int{{1, 10}, {0, 4}}, s.Matrix())

	m[0][0] = 9
	assert.Equal(t, 1, s.Matrix()[0][0])
}

func TestMerge(t *testing.T) {
	a := newTestSketch(t, 50)
	b := newTestSketch(t, 50)
	a.Increment([]byte("node_1"), 5)
	b.Increment([]byte("node_1"), 2)
	b.Increment([]byte("node_3"), 7)

	require.NoError(t, a.Merge(b))
	assert.Equal(t, 7.0, a.Estimate([]byte("node_1")))
	assert.Equal(t, 7.0, a.Estimate([]byte("node_3")))

	other := newTestSketch(t, 10)
	require.ErrorIs(t, a.Merge(other), ErrIncompatible)

	seeded := newTestSketch(t, 50, WithHashKind(HashSeeded))
	require.ErrorIs(t, a.Merge(seeded), ErrIncompatible)
}

func TestRowHashersAreDeterministic(t *testing.T) {
	for _, kind := range []HashKind{HashOffset, HashSeeded} {
		h1, err := NewRowHasher(kind, 10)
		require.NoError(t, err)
		h2, err := NewRowHasher(kind, 10)
		require.NoError(t, err)

		for row := 0; row < 10; row++ {
			col := h1.Column([]byte("node_1"), row, 164)
			assert.Equal(t, col, h1.Column([]byte("node_1"), row, 164), "%s row %d", kind, row)
			assert.Equal(t, col, h2.Column([]byte("node_1"), row, 164), "%s row %d", kind, row)
			assert.True(t, col >= 0 && col < 164)
		}
	}
}

func TestOffsetHasherShiftsByRow(t *testing.T) {
	h := OffsetHasher{}
	first := h.Column([]byte("node_1"), 0, 164)
	assert.Equal(t, 153, first)
	for row := 1; row < 20; row++ {
		assert.Equal(t, (first+row)%164, h.Column([]byte("node_1"), row, 164))
	}
}

package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tmmath "github.com/decentrust/decentrust/libs/math"
	"github.com/decentrust/decentrust/sketch"
)

func TestParseDirection(t *testing.T) {
	testCases := []struct {
		in        string
		want      Direction
		expectErr bool
	}{
		{"increment", Increment, false},
		{"INC", Increment, false},
		{"+", Increment, false},
		{" decrement ", Decrement, false},
		{"dec", Decrement, false},
		{"-", Decrement, false},
		{"sideways", 0, true},
		{"", 0, true},
	}

	for _, tc := range testCases {
		got, err := ParseDirection(tc.in)
		if tc.expectErr {
			require.ErrorIs(t, err, ErrUnknownDirection, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	assert.Equal(t, "increment", Increment.String())
	assert.Equal(t, "decrement", Decrement.String())
	assert.ErrorIs(t, Direction(7).Validate(), ErrUnknownDirection)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Sketch")
	require.NoError(t, err)
	assert.Equal(t, ModeSketch, m)

	m, err = ParseMode("exact")
	require.NoError(t, err)
	assert.Equal(t, ModeExact, m)

	_, err = ParseMode("fuzzy")
	require.ErrorIs(t, err, ErrUnknownMode)
}

func TestNewSelectsBackend(t *testing.T) {
	tr, err := New[string](DefaultParams[float64]())
	require.NoError(t, err)
	assert.Equal(t, ModeExact, tr.Mode())
	assert.IsType(t, &Exact[string, float64]{}, tr)

	tr, err = New[string](Params[float64]{
		Mode:        ModeSketch,
		Bounds:      tmmath.NonNegative[float64](),
		ErrorBound:  50,
		Probability: 0.0001,
		MaxEntries:  3000,
	})
	require.NoError(t, err)
	require.Equal(t, ModeSketch, tr.Mode())
	s := tr.(*Sketch[string, float64])
	assert.Equal(t, 164, s.Width())
	assert.Equal(t, 10, s.Depth())

	tr, err = New[string](Params[float64]{
		Mode:   ModeSketch,
		Bounds: tmmath.NonNegative[float64](),
		Width:  32,
		Depth:  4,
		Hash:   sketch.HashSeeded,
	})
	require.NoError(t, err)
	s = tr.(*Sketch[string, float64])
	assert.Equal(t, 32, s.Width())
	assert.Equal(t, 4, s.Depth())

	tr, err = New[string](Params[float64]{Mode: ModeSketch, Bounds: tmmath.NonNegative[float64]()})
	require.NoError(t, err)
	s = tr.(*Sketch[string, float64])
	assert.Equal(t, sketch.DefaultWidth, s.Width())
	assert.Equal(t, sketch.DefaultDepth, s.Depth())
}

func TestNewRejectsInvalidParams(t *testing.T) {
	nonNegative := tmmath.NonNegative[float64]()
	testCases := map[string]struct {
		params    Params[float64]
		expectErr error
	}{
		"unknown mode": {
			Params[float64]{Mode: "fuzzy", Bounds: nonNegative},
			ErrUnknownMode,
		},
		"zero depth": {
			Params[float64]{Mode: ModeSketch, Bounds: nonNegative, Width: 10},
			sketch.ErrInvalidDimensions,
		},
		"negative width": {
			Params[float64]{Mode: ModeSketch, Bounds: nonNegative, Width: -1, Depth: 3},
			sketch.ErrInvalidDimensions,
		},
		"probability used as success rate": {
			Params[float64]{Mode: ModeSketch, Bounds: nonNegative, ErrorBound: 50, Probability: 1, MaxEntries: 3000},
			sketch.ErrInvalidParameters,
		},
		"unknown hash": {
			Params[float64]{Mode: ModeSketch, Bounds: nonNegative, Width: 10, Depth: 2, Hash: "md5"},
			sketch.ErrUnknownHashKind,
		},
		"exact min above max": {
			Params[float64]{Mode: ModeExact, Bounds: tmmath.Bounds[float64]{Min: 2, Max: 1}},
			tmmath.ErrMinAboveMax,
		},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			tr, err := New[string](tc.params)
			require.ErrorIs(t, err, tc.expectErr)
			require.Nil(t, tr)
		})
	}
}

// Package sketch implements a Count-Min Sketch over bounded numeric values.
//
// A sketch estimates the accumulated value of each key in a fixed amount of
// memory. Estimates never fall below the true accumulated value of a key
// (assuming non-negative contributions) and exceed it by at most the
// configured error bound with the configured probability.
package sketch

import (
	"errors"
	"fmt"
	"math"

	tmmath "github.com/decentrust/decentrust/libs/math"
)

const (
	// DefaultWidth and DefaultDepth size the sketch returned by Default.
	DefaultWidth = 3000
	DefaultDepth = 10
)

var (
	ErrInvalidDimensions = errors.New("sketch width and depth must be positive")
	ErrInvalidParameters = errors.New("invalid sketch sizing parameters")
	ErrInvalidBounds     = errors.New("invalid sketch bounds")
	ErrUnknownHashKind   = errors.New("unknown hash kind")
	ErrIncompatible      = errors.New("sketches are not compatible")
)

// Option configures a CountMinSketch at construction.
type Option func(*options)

type options struct {
	hashKind HashKind
	hasher   RowHasher
}

// WithHasher sets the row hasher used to project keys.
func WithHasher(h RowHasher) Option {
	return func(o *options) { o.hasher = h }
}

// WithHashKind selects one of the built-in row hashers.
func WithHashKind(kind HashKind) Option {
	return func(o *options) { o.hashKind = kind }
}

// CountMinSketch is a depth x width matrix of counters. Every cell is kept
// within the sketch bounds at all times.
//
// CountMinSketch is not safe for concurrent use.
type CountMinSketch[V tmmath.Value] struct {
	width  int
	depth  int
	matrix [][]V
	bounds tmmath.Bounds[V]
	hasher RowHasher
}

// New returns a zero-filled sketch with the given dimensions.
func New[V tmmath.Value](width, depth int, bounds tmmath.Bounds[V], opts ...Option) (*CountMinSketch[V], error) {
	if width < 1 || depth < 1 {
		return nil, fmt.Errorf("%w: width=%d depth=%d", ErrInvalidDimensions, width, depth)
	}
	if err := bounds.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBounds, err)
	}
	var zero V
	if !bounds.Contains(zero) {
		// cells start at zero
		return nil, fmt.Errorf("%w: %v does not contain zero", ErrInvalidBounds, bounds)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	hasher := o.hasher
	if hasher == nil {
		var err error
		if hasher, err = NewRowHasher(o.hashKind, depth); err != nil {
			return nil, fmt.Errorf("%w: %q", err, o.hashKind)
		}
	}

	return &CountMinSketch[V]{
		width:  width,
		depth:  depth,
		matrix: newMatrix[V](width, depth),
		bounds: bounds,
		hasher: hasher,
	}, nil
}

// NewFromBounds sizes a sketch so that, with probability at least
// 1 - probability, an estimate exceeds the true value by no more than
// errorBound out of maxEntries total mass.
func NewFromBounds[V tmmath.Value](
	errorBound, probability, maxEntries float64,
	bounds tmmath.Bounds[V],
	opts ...Option,
) (*CountMinSketch[V], error) {
	width, depth, err := Dimensions(errorBound, probability, maxEntries)
	if err != nil {
		return nil, err
	}
	return New(width, depth, bounds, opts...)
}

// Default returns a DefaultWidth x DefaultDepth sketch bounded to
// non-negative values.
func Default[V tmmath.Value]() *CountMinSketch[V] {
	s, err := New(DefaultWidth, DefaultDepth, tmmath.NonNegative[V]())
	if err != nil {
		// unreachable: the defaults are valid
		panic(err)
	}
	return s
}

// Dimensions returns the width and depth for the given error bound,
// overestimation probability and expected total mass:
//
//	width = ceil(e / (errorBound / maxEntries))
//	depth = ceil(ln(1 / probability))
//
// Both are at least 1. probability must lie strictly between 0 and 1.
func Dimensions(errorBound, probability, maxEntries float64) (width, depth int, err error) {
	switch {
	case !(errorBound > 0) || math.IsInf(errorBound, 0):
		return 0, 0, fmt.Errorf("%w: error bound %v must be positive and finite", ErrInvalidParameters, errorBound)
	case !(maxEntries > 0) || math.IsInf(maxEntries, 0):
		return 0, 0, fmt.Errorf("%w: max entries %v must be positive and finite", ErrInvalidParameters, maxEntries)
	case !(probability > 0 && probability < 1):
		return 0, 0, fmt.Errorf("%w: probability %v must be in (0, 1)", ErrInvalidParameters, probability)
	}

	w := math.Ceil(math.E / (errorBound / maxEntries))
	d := math.Ceil(math.Log(1 / probability))
	if w > math.MaxInt32 || d > math.MaxInt32 {
		return 0, 0, fmt.Errorf("%w: sketch of %v x %v cells is too large", ErrInvalidParameters, w, d)
	}

	width, depth = int(w), int(d)
	if width < 1 {
		width = 1
	}
	if depth < 1 {
		depth = 1
	}
	return width, depth, nil
}

func newMatrix[V tmmath.Value](width, depth int) [][]V {
	matrix := make([][]V, depth)
	for i := range matrix {
		matrix[i] = make([]V, width)
	}
	return matrix
}

func (s *CountMinSketch[V]) Width() int { return s.width }

func (s *CountMinSketch[V]) Depth() int { return s.depth }

func (s *CountMinSketch[V]) Min() V { return s.bounds.Min }

func (s *CountMinSketch[V]) Max() V { return s.bounds.Max }

func (s *CountMinSketch[V]) Bounds() tmmath.Bounds[V] { return s.bounds }

func (s *CountMinSketch[V]) Hasher() RowHasher { return s.hasher }

// Increment adds value to every cell key projects to.
func (s *CountMinSketch[V]) Increment(key []byte, value V) {
	for i := 0; i < s.depth; i++ {
		j := s.hasher.Column(key, i, s.width)
		s.matrix[i][j] = tmmath.AddClamp(s.matrix[i][j], value, s.bounds)
	}
}

// Decrement subtracts value from every cell key projects to. Each cell is
// floored at the sketch minimum on its own: clamping only the final estimate
// would let one key drive a shared cell below what colliding keys put there.
func (s *CountMinSketch[V]) Decrement(key []byte, value V) {
	for i := 0; i < s.depth; i++ {
		j := s.hasher.Column(key, i, s.width)
		s.matrix[i][j] = tmmath.SubClamp(s.matrix[i][j], value, s.bounds)
	}
}

// Estimate returns the smallest cell key projects to.
func (s *CountMinSketch[V]) Estimate(key []byte) V {
	est := s.matrix[0][s.hasher.Column(key, 0, s.width)]
	for i := 1; i < s.depth; i++ {
		if v := s.matrix[i][s.hasher.Column(key, i, s.width)]; v < est {
			est = v
		}
	}
	return est
}

// NormalizeEstimates returns a new matrix in which every cell is divided by
// the sum of its row. Row sums saturate at the range of V, as the exact
// backend's totals do. A row summing to zero normalizes to zeros.
func (s *CountMinSketch[V]) NormalizeEstimates() [][]V {
	normalized := newMatrix[V](s.width, s.depth)
	for i, row := range s.matrix {
		total := rowTotal(row)
		for j, v := range row {
			normalized[i][j] = tmmath.SafeDiv(v, total)
		}
	}
	return normalized
}

// Normalized returns a sketch with the same dimensions, bounds and hasher
// whose matrix is NormalizeEstimates.
func (s *CountMinSketch[V]) Normalized() *CountMinSketch[V] {
	return &CountMinSketch[V]{
		width:  s.width,
		depth:  s.depth,
		matrix: s.NormalizeEstimates(),
		bounds: s.bounds,
		hasher: s.hasher,
	}
}

// EstimateLength approximates the number of distinct keys in the sketch as
// the number of non-zero cells across all rows divided once by depth.
// Dividing each row's count by depth before summing would truncate to zero
// whenever fewer than depth keys are present. Collisions and decrements back
// to zero make this a rough signal only.
func (s *CountMinSketch[V]) EstimateLength() int {
	var zero V
	nonZero := 0
	for it := s.Iter(); it.Next(); {
		if it.Value() != zero {
			nonZero++
		}
	}
	return nonZero / s.depth
}

// Total returns the sum of the first row, which is the sketch's best
// estimate of the total mass it holds.
func (s *CountMinSketch[V]) Total() V {
	return rowTotal(s.matrix[0])
}

// rowTotal sums row, saturating at the extremes of V.
func rowTotal[V tmmath.Value](row []V) V {
	full := tmmath.Bounds[V]{Min: tmmath.MinOf[V](), Max: tmmath.MaxOf[V]()}
	var total V
	for _, v := range row {
		total = tmmath.AddClamp(total, v, full)
	}
	return total
}

// Matrix returns a copy of the counter matrix.
func (s *CountMinSketch[V]) Matrix() [][]V {
	return copyMatrix(s.matrix)
}

// SetMatrix replaces the counter matrix with a copy of m, which must have
// the sketch dimensions. Cells are clamped to the sketch bounds.
func (s *CountMinSketch[V]) SetMatrix(m [][]V) error {
	if len(m) != s.depth {
		return fmt.Errorf("%w: matrix has %d rows, want %d", ErrIncompatible, len(m), s.depth)
	}
	for i, row := range m {
		if len(row) != s.width {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrIncompatible, i, len(row), s.width)
		}
	}
	s.matrix = copyMatrix(m)
	for _, row := range s.matrix {
		for j, v := range row {
			row[j] = s.bounds.Clamp(v)
		}
	}
	return nil
}

// Merge adds every cell of other into s. Both sketches must share
// dimensions and hash kind.
func (s *CountMinSketch[V]) Merge(other *CountMinSketch[V]) error {
	if other.width != s.width || other.depth != s.depth {
		return fmt.Errorf("%w: %dx%d and %dx%d", ErrIncompatible, s.depth, s.width, other.depth, other.width)
	}
	if other.hasher.Kind() != s.hasher.Kind() {
		return fmt.Errorf("%w: hash kinds %q and %q", ErrIncompatible, s.hasher.Kind(), other.hasher.Kind())
	}
	for i, row := range other.matrix {
		for j, v := range row {
			s.matrix[i][j] = tmmath.AddClamp(s.matrix[i][j], v, s.bounds)
		}
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *CountMinSketch[V]) Clone() *CountMinSketch[V] {
	return &CountMinSketch[V]{
		width:  s.width,
		depth:  s.depth,
		matrix: copyMatrix(s.matrix),
		bounds: s.bounds,
		hasher: s.hasher,
	}
}

// Reset zeroes every cell.
func (s *CountMinSketch[V]) Reset() {
	var zero V
	for _, row := range s.matrix {
		for j := range row {
			row[j] = zero
		}
	}
}

func (s *CountMinSketch[V]) String() string {
	return fmt.Sprintf("CountMinSketch{%dx%d %v %s}", s.depth, s.width, s.bounds, s.hasher.Kind())
}

func copyMatrix[V tmmath.Value](m [][]V) [][]V {
	out := make([][]V, len(m))
	for i, row := range m {
		out[i] = make([]V, len(row))
		copy(out[i], row)
	}
	return out
}

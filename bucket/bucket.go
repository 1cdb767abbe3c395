// Package bucket provides bucketizers that map a trust estimate to a
// discrete tier for a staking or election policy.
//
// Every bucketizer here is deterministic and total: any value of the value
// type, NaN included, maps to some tier. Values below the first tier map to
// tier 0.
package bucket

import (
	"errors"
	"fmt"
	"math"
	"sort"

	tmmath "github.com/decentrust/decentrust/libs/math"
)

var (
	ErrInvalidWidth      = errors.New("bucket width must be positive")
	ErrInvalidBucketCnt  = errors.New("bucket count must be positive")
	ErrInvalidRange      = errors.New("invalid bucket range")
	ErrUnorderedBoundary = errors.New("bucket boundaries must be strictly ascending")
)

// maxIndex caps tiers computed by division so that huge values cannot
// overflow int.
const maxIndex = math.MaxInt32

func index(f float64) int {
	switch {
	case f != f, f <= 0:
		return 0
	case f >= maxIndex:
		return maxIndex
	}
	return int(f)
}

// FixedWidth puts values into tiers of equal Width starting at Min:
// tier = floor((v - Min) / Width). The number of tiers is unbounded.
type FixedWidth[V tmmath.Value] struct {
	Width V
	Min   V
}

// NewFixedWidth returns a validated FixedWidth bucketizer.
func NewFixedWidth[V tmmath.Value](width, min V) (FixedWidth[V], error) {
	b := FixedWidth[V]{Width: width, Min: min}
	return b, b.ValidateBasic()
}

func (b FixedWidth[V]) ValidateBasic() error {
	var zero V
	if !(b.Width > zero) {
		return fmt.Errorf("%w: %v", ErrInvalidWidth, b.Width)
	}
	if tmmath.IsNaN(b.Min) {
		return fmt.Errorf("%w: min is NaN", ErrInvalidRange)
	}
	return nil
}

func (b FixedWidth[V]) Bucketize(v V) int {
	if tmmath.IsNaN(v) || v <= b.Min {
		return 0
	}
	return index(float64(v-b.Min) / float64(b.Width))
}

// Linear splits [Min, Max] into Buckets tiers of equal width. Values at or
// below Min are tier 0 and values at or above Max are tier Buckets-1.
type Linear[V tmmath.Value] struct {
	Min     V
	Max     V
	Buckets int
}

// NewLinear returns a validated Linear bucketizer.
func NewLinear[V tmmath.Value](min, max V, buckets int) (Linear[V], error) {
	b := Linear[V]{Min: min, Max: max, Buckets: buckets}
	return b, b.ValidateBasic()
}

func (b Linear[V]) ValidateBasic() error {
	if b.Buckets < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidBucketCnt, b.Buckets)
	}
	if tmmath.IsNaN(b.Min) || tmmath.IsNaN(b.Max) || !(b.Min < b.Max) {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidRange, b.Min, b.Max)
	}
	return nil
}

func (b Linear[V]) Bucketize(v V) int {
	switch {
	case tmmath.IsNaN(v), v <= b.Min:
		return 0
	case v >= b.Max:
		return b.Buckets - 1
	}
	span := float64(b.Max) - float64(b.Min)
	i := index((float64(v) - float64(b.Min)) / span * float64(b.Buckets))
	if i >= b.Buckets {
		i = b.Buckets - 1
	}
	return i
}

// Range is a half-open interval [Lo, Hi).
type Range[V tmmath.Value] struct {
	Lo V
	Hi V
}

// Ranges assigns the tier of the range containing the value. Ranges are
// ascending and disjoint; a value in a gap takes the tier of the next range
// and a value past the last range takes the last tier.
type Ranges[V tmmath.Value] struct {
	ranges []Range[V]
}

// NewRanges returns a Ranges bucketizer over a copy of ranges.
func NewRanges[V tmmath.Value](ranges ...Range[V]) (Ranges[V], error) {
	if len(ranges) == 0 {
		return Ranges[V]{}, fmt.Errorf("%w: no ranges", ErrInvalidRange)
	}
	for i, r := range ranges {
		if tmmath.IsNaN(r.Lo) || tmmath.IsNaN(r.Hi) || !(r.Lo < r.Hi) {
			return Ranges[V]{}, fmt.Errorf("%w: #%d [%v, %v)", ErrInvalidRange, i, r.Lo, r.Hi)
		}
		if i > 0 && r.Lo < ranges[i-1].Hi {
			return Ranges[V]{}, fmt.Errorf("%w: #%d overlaps #%d", ErrUnorderedBoundary, i, i-1)
		}
	}
	return Ranges[V]{ranges: append([]Range[V](nil), ranges...)}, nil
}

func (b Ranges[V]) Bucketize(v V) int {
	if tmmath.IsNaN(v) || len(b.ranges) == 0 {
		return 0
	}
	// first range whose upper bound lies above v
	i := sort.Search(len(b.ranges), func(i int) bool { return v < b.ranges[i].Hi })
	if i == len(b.ranges) {
		return len(b.ranges) - 1
	}
	return i
}

// Threshold assigns as tier the number of cut points at or below the
// value, so len(Cuts)+1 tiers exist.
type Threshold[V tmmath.Value] struct {
	cuts []V
}

// NewThreshold returns a Threshold bucketizer over a copy of cuts, which
// must be strictly ascending.
func NewThreshold[V tmmath.Value](cuts ...V) (Threshold[V], error) {
	for i, c := range cuts {
		if tmmath.IsNaN(c) {
			return Threshold[V]{}, fmt.Errorf("%w: cut #%d is NaN", ErrInvalidRange, i)
		}
		if i > 0 && !(cuts[i-1] < c) {
			return Threshold[V]{}, fmt.Errorf("%w: %v then %v", ErrUnorderedBoundary, cuts[i-1], c)
		}
	}
	return Threshold[V]{cuts: append([]V(nil), cuts...)}, nil
}

// Cuts returns a copy of the cut points.
func (b Threshold[V]) Cuts() []V { return append([]V(nil), b.cuts...) }

func (b Threshold[V]) Bucketize(v V) int {
	if tmmath.IsNaN(v) {
		return 0
	}
	return sort.Search(len(b.cuts), func(i int) bool { return v < b.cuts[i] })
}

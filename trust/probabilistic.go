package trust

import (
	"encoding"
	"fmt"
	"reflect"

	tmmath "github.com/decentrust/decentrust/libs/math"
	"github.com/decentrust/decentrust/sketch"
)

// KeyEncoder turns a peer key into the bytes a sketch hashes. It must be
// deterministic and injective over the keys in use.
type KeyEncoder[K comparable] func(K) []byte

// DefaultKeyEncoder encodes strings and string kinds as their bytes,
// fmt.Stringer and encoding.BinaryMarshaler by their output, and anything
// else with %v.
func DefaultKeyEncoder[K comparable](key K) []byte {
	switch k := any(key).(type) {
	case string:
		return []byte(k)
	case fmt.Stringer:
		return []byte(k.String())
	case encoding.BinaryMarshaler:
		if b, err := k.MarshalBinary(); err == nil {
			return b
		}
	}
	if rv := reflect.ValueOf(key); rv.Kind() == reflect.String {
		return []byte(rv.String())
	}
	return []byte(fmt.Sprintf("%v", key))
}

// Sketch is the Count-Min Sketch backed Tracker. It holds four identically
// sized sketches for raw and normalized local and global trust, so memory is
// O(width*depth) however many peers are tracked.
//
// Estimates never fall below the true value of a key under increments, but
// colliding keys inflate each other. Normalization divides each cell by its
// row sum, so normalized estimates inherit the same collision bias.
type Sketch[K comparable, V tmmath.Value] struct {
	enc KeyEncoder[K]

	local            *sketch.CountMinSketch[V]
	global           *sketch.CountMinSketch[V]
	normalizedLocal  *sketch.CountMinSketch[V]
	normalizedGlobal *sketch.CountMinSketch[V]
}

var _ Tracker[string, float64] = (*Sketch[string, float64])(nil)

// NewSketch returns a sketch tracker with the given dimensions.
func NewSketch[K comparable, V tmmath.Value](
	width, depth int,
	bounds tmmath.Bounds[V],
	opts ...sketch.Option,
) (*Sketch[K, V], error) {
	s, err := sketch.New(width, depth, bounds, opts...)
	if err != nil {
		return nil, err
	}
	return newSketchTracker[K](s), nil
}

// NewSketchFromBounds returns a sketch tracker sized by sketch.Dimensions.
func NewSketchFromBounds[K comparable, V tmmath.Value](
	errorBound, probability, maxEntries float64,
	bounds tmmath.Bounds[V],
	opts ...sketch.Option,
) (*Sketch[K, V], error) {
	s, err := sketch.NewFromBounds(errorBound, probability, maxEntries, bounds, opts...)
	if err != nil {
		return nil, err
	}
	return newSketchTracker[K](s), nil
}

func newSketchTracker[K comparable, V tmmath.Value](s *sketch.CountMinSketch[V]) *Sketch[K, V] {
	return &Sketch[K, V]{
		enc:              DefaultKeyEncoder[K],
		local:            s,
		global:           s.Clone(),
		normalizedLocal:  s.Clone(),
		normalizedGlobal: s.Clone(),
	}
}

// SetKeyEncoder replaces the key encoder. It must be called before the
// first update.
func (t *Sketch[K, V]) SetKeyEncoder(enc KeyEncoder[K]) {
	t.enc = enc
}

func (t *Sketch[K, V]) Mode() Mode { return ModeSketch }

func (t *Sketch[K, V]) Width() int { return t.local.Width() }

func (t *Sketch[K, V]) Depth() int { return t.local.Depth() }

// Bounds returns the bounds every raw cell is kept within.
func (t *Sketch[K, V]) Bounds() tmmath.Bounds[V] { return t.local.Bounds() }

// InitLocal adds value to key's local trust. A sketch cannot overwrite a
// key without disturbing colliding keys, so initialization accumulates.
func (t *Sketch[K, V]) InitLocal(key K, value V) error {
	if err := validateInit(value); err != nil {
		return err
	}
	t.local.Increment(t.enc(key), value)
	t.NormalizeLocal()
	return nil
}

func (t *Sketch[K, V]) UpdateLocal(key K, delta V, dir Direction) error {
	if err := validateUpdate(delta, dir); err != nil {
		return err
	}
	t.update(t.local, t.enc(key), delta, dir)
	t.NormalizeLocal()
	return nil
}

func (t *Sketch[K, V]) RawLocal(key K) (V, bool) {
	return t.local.Estimate(t.enc(key)), true
}

func (t *Sketch[K, V]) NormalizedLocal(key K) (V, bool) {
	return t.normalizedLocal.Estimate(t.enc(key)), true
}

// InitGlobal adds value weighted by sender's normalized local trust to key's
// global trust.
func (t *Sketch[K, V]) InitGlobal(sender, key K, value V) error {
	if err := validateInit(value); err != nil {
		return err
	}
	t.global.Increment(t.enc(key), value*t.senderWeight(sender))
	t.NormalizeGlobal()
	return nil
}

func (t *Sketch[K, V]) UpdateGlobal(sender, key K, delta V, dir Direction) error {
	if err := validateUpdate(delta, dir); err != nil {
		return err
	}
	t.update(t.global, t.enc(key), delta*t.senderWeight(sender), dir)
	t.NormalizeGlobal()
	return nil
}

func (t *Sketch[K, V]) RawGlobal(key K) (V, bool) {
	return t.global.Estimate(t.enc(key)), true
}

func (t *Sketch[K, V]) NormalizedGlobal(key K) (V, bool) {
	return t.normalizedGlobal.Estimate(t.enc(key)), true
}

func (t *Sketch[K, V]) RawLocalMap() View[K, V]         { return t.view(t.local) }
func (t *Sketch[K, V]) NormalizedLocalMap() View[K, V]  { return t.view(t.normalizedLocal) }
func (t *Sketch[K, V]) RawGlobalMap() View[K, V]        { return t.view(t.global) }
func (t *Sketch[K, V]) NormalizedGlobalMap() View[K, V] { return t.view(t.normalizedGlobal) }

// NormalizeLocal replaces the normalized local sketch with the raw local
// sketch divided row by row by its row sums. Its cost is O(width*depth).
func (t *Sketch[K, V]) NormalizeLocal() {
	t.normalizedLocal = t.local.Normalized()
}

// NormalizeGlobal is NormalizeLocal for global trust.
func (t *Sketch[K, V]) NormalizeGlobal() {
	t.normalizedGlobal = t.global.Normalized()
}

func (t *Sketch[K, V]) LocalRawLen() int         { return t.local.EstimateLength() }
func (t *Sketch[K, V]) LocalNormalizedLen() int  { return t.normalizedLocal.EstimateLength() }
func (t *Sketch[K, V]) GlobalRawLen() int        { return t.global.EstimateLength() }
func (t *Sketch[K, V]) GlobalNormalizedLen() int { return t.normalizedGlobal.EstimateLength() }

func (t *Sketch[K, V]) update(s *sketch.CountMinSketch[V], key []byte, delta V, dir Direction) {
	if dir == Decrement {
		s.Decrement(key, delta)
		return
	}
	s.Increment(key, delta)
}

func (t *Sketch[K, V]) senderWeight(sender K) V {
	return t.normalizedLocal.Estimate(t.enc(sender))
}

func (t *Sketch[K, V]) view(s *sketch.CountMinSketch[V]) *SketchView[K, V] {
	return &SketchView[K, V]{s: s.Clone(), enc: t.enc}
}

package trust

import (
	tmmath "github.com/decentrust/decentrust/libs/math"
	"github.com/decentrust/decentrust/sketch"
)

// View is a read-only snapshot of one of a tracker's four trust views. A
// View is owned by the caller and never changes when the tracker does.
type View[K comparable, V tmmath.Value] interface {
	Get(key K) (V, bool)
	Len() int
}

// MapView is the View returned by the exact backend.
type MapView[K comparable, V tmmath.Value] struct {
	m map[K]V
}

var _ View[string, float64] = (*MapView[string, float64])(nil)

func newMapView[K comparable, V tmmath.Value](src map[K]V) *MapView[K, V] {
	m := make(map[K]V, len(src))
	for k, v := range src {
		m[k] = v
	}
	return &MapView[K, V]{m: m}
}

func (v *MapView[K, V]) Get(key K) (V, bool) {
	val, ok := v.m[key]
	return val, ok
}

func (v *MapView[K, V]) Len() int { return len(v.m) }

// Keys returns the keys of the view in no particular order.
func (v *MapView[K, V]) Keys() []K {
	keys := make([]K, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	return keys
}

// Map returns a copy of the underlying map.
func (v *MapView[K, V]) Map() map[K]V {
	return newMapView(v.m).m
}

// SketchView is the View returned by the sketch backend. It cannot
// enumerate keys; Len is the sketch's approximate cardinality.
type SketchView[K comparable, V tmmath.Value] struct {
	s   *sketch.CountMinSketch[V]
	enc KeyEncoder[K]
}

var _ View[string, float64] = (*SketchView[string, float64])(nil)

// Get always reports true: a sketch cannot tell an unseen key from one
// whose estimate is zero.
func (v *SketchView[K, V]) Get(key K) (V, bool) {
	return v.s.Estimate(v.enc(key)), true
}

func (v *SketchView[K, V]) Len() int { return v.s.EstimateLength() }

// Sketch returns a copy of the underlying sketch.
func (v *SketchView[K, V]) Sketch() *sketch.CountMinSketch[V] {
	return v.s.Clone()
}

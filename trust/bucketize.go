package trust

import (
	tmmath "github.com/decentrust/decentrust/libs/math"
)

// Bucketizer maps a trust estimate to a discrete tier. Implementations must
// be deterministic and total over V.
type Bucketizer[V tmmath.Value] interface {
	Bucketize(v V) int
}

// BucketizerFunc adapts a function to the Bucketizer interface.
type BucketizerFunc[V tmmath.Value] func(V) int

func (f BucketizerFunc[V]) Bucketize(v V) int { return f(v) }

// BucketizeLocal buckets the raw local trust of each key. Keys the tracker
// has no value for bucket as zero trust.
func BucketizeLocal[K comparable, V tmmath.Value](t Tracker[K, V], keys []K, b Bucketizer[V]) map[K]int {
	return bucketize(keys, t.RawLocal, b)
}

// BucketizeNormalizedLocal buckets the normalized local trust of each key.
func BucketizeNormalizedLocal[K comparable, V tmmath.Value](t Tracker[K, V], keys []K, b Bucketizer[V]) map[K]int {
	return bucketize(keys, t.NormalizedLocal, b)
}

// BucketizeGlobal buckets the raw global trust of each key.
func BucketizeGlobal[K comparable, V tmmath.Value](t Tracker[K, V], keys []K, b Bucketizer[V]) map[K]int {
	return bucketize(keys, t.RawGlobal, b)
}

// BucketizeNormalizedGlobal buckets the normalized global trust of each key.
func BucketizeNormalizedGlobal[K comparable, V tmmath.Value](t Tracker[K, V], keys []K, b Bucketizer[V]) map[K]int {
	return bucketize(keys, t.NormalizedGlobal, b)
}

// BucketizeView buckets each key's value in view.
func BucketizeView[K comparable, V tmmath.Value](view View[K, V], keys []K, b Bucketizer[V]) map[K]int {
	return bucketize(keys, view.Get, b)
}

// BucketizeAll buckets every key of a map view. Sketch views cannot
// enumerate their keys; use BucketizeView with an explicit key list.
func BucketizeAll[K comparable, V tmmath.Value](view *MapView[K, V], b Bucketizer[V]) map[K]int {
	out := make(map[K]int, view.Len())
	for k, v := range view.m {
		out[k] = b.Bucketize(v)
	}
	return out
}

func bucketize[K comparable, V tmmath.Value](keys []K, get func(K) (V, bool), b Bucketizer[V]) map[K]int {
	out := make(map[K]int, len(keys))
	for _, k := range keys {
		// unseen keys report the zero value
		v, _ := get(k)
		out[k] = b.Bucketize(v)
	}
	return out
}

package trust

import (
	tmmath "github.com/decentrust/decentrust/libs/math"
)

// Exact is the map-backed Tracker. Memory grows with the number of peers
// observed; every value is exact.
type Exact[K comparable, V tmmath.Value] struct {
	bounds tmmath.Bounds[V]

	local            map[K]V
	global           map[K]V
	normalizedLocal  map[K]V
	normalizedGlobal map[K]V
}

var _ Tracker[string, float64] = (*Exact[string, float64])(nil)

// NewExact returns an empty exact tracker whose raw values are kept within
// bounds.
func NewExact[K comparable, V tmmath.Value](bounds tmmath.Bounds[V]) (*Exact[K, V], error) {
	if err := bounds.ValidateBasic(); err != nil {
		return nil, err
	}
	return &Exact[K, V]{
		bounds:           bounds,
		local:            make(map[K]V),
		global:           make(map[K]V),
		normalizedLocal:  make(map[K]V),
		normalizedGlobal: make(map[K]V),
	}, nil
}

func (e *Exact[K, V]) Mode() Mode { return ModeExact }

// Bounds returns the bounds raw values are kept within.
func (e *Exact[K, V]) Bounds() tmmath.Bounds[V] { return e.bounds }

// InitLocal overwrites key's local trust with value, clamped to the bounds.
func (e *Exact[K, V]) InitLocal(key K, value V) error {
	if err := validateInit(value); err != nil {
		return err
	}
	e.local[key] = e.bounds.Clamp(value)
	e.NormalizeLocal()
	return nil
}

// UpdateLocal applies delta to key's local trust. A key seen for the first
// time starts from zero, clamped to the bounds.
func (e *Exact[K, V]) UpdateLocal(key K, delta V, dir Direction) error {
	if err := validateUpdate(delta, dir); err != nil {
		return err
	}
	e.local[key] = apply(e.current(e.local, key), delta, dir, e.bounds)
	e.NormalizeLocal()
	return nil
}

func (e *Exact[K, V]) RawLocal(key K) (V, bool) {
	v, ok := e.local[key]
	return v, ok
}

func (e *Exact[K, V]) NormalizedLocal(key K) (V, bool) {
	v, ok := e.normalizedLocal[key]
	return v, ok
}

// InitGlobal overwrites key's global trust with value weighted by sender's
// normalized local trust.
func (e *Exact[K, V]) InitGlobal(sender, key K, value V) error {
	if err := validateInit(value); err != nil {
		return err
	}
	e.global[key] = e.bounds.Clamp(value * e.senderWeight(sender))
	e.NormalizeGlobal()
	return nil
}

func (e *Exact[K, V]) UpdateGlobal(sender, key K, delta V, dir Direction) error {
	if err := validateUpdate(delta, dir); err != nil {
		return err
	}
	weighted := delta * e.senderWeight(sender)
	e.global[key] = apply(e.current(e.global, key), weighted, dir, e.bounds)
	e.NormalizeGlobal()
	return nil
}

func (e *Exact[K, V]) RawGlobal(key K) (V, bool) {
	v, ok := e.global[key]
	return v, ok
}

func (e *Exact[K, V]) NormalizedGlobal(key K) (V, bool) {
	v, ok := e.normalizedGlobal[key]
	return v, ok
}

func (e *Exact[K, V]) RawLocalMap() View[K, V]         { return newMapView(e.local) }
func (e *Exact[K, V]) NormalizedLocalMap() View[K, V]  { return newMapView(e.normalizedLocal) }
func (e *Exact[K, V]) RawGlobalMap() View[K, V]        { return newMapView(e.global) }
func (e *Exact[K, V]) NormalizedGlobalMap() View[K, V] { return newMapView(e.normalizedGlobal) }

// NormalizeLocal sets every normalized local value to raw / sum(raw). While
// the raw values sum to zero every normalized value is zero.
func (e *Exact[K, V]) NormalizeLocal() {
	e.normalizedLocal = normalize(e.local)
}

// NormalizeGlobal is NormalizeLocal for global trust.
func (e *Exact[K, V]) NormalizeGlobal() {
	e.normalizedGlobal = normalize(e.global)
}

func (e *Exact[K, V]) LocalRawLen() int         { return len(e.local) }
func (e *Exact[K, V]) LocalNormalizedLen() int  { return len(e.normalizedLocal) }
func (e *Exact[K, V]) GlobalRawLen() int        { return len(e.global) }
func (e *Exact[K, V]) GlobalNormalizedLen() int { return len(e.normalizedGlobal) }

func (e *Exact[K, V]) current(m map[K]V, key K) V {
	if v, ok := m[key]; ok {
		return v
	}
	var zero V
	return e.bounds.Clamp(zero)
}

// senderWeight is sender's normalized local trust, zero if unknown.
func (e *Exact[K, V]) senderWeight(sender K) V {
	return e.normalizedLocal[sender]
}

func normalize[K comparable, V tmmath.Value](raw map[K]V) map[K]V {
	full := tmmath.Bounds[V]{Min: tmmath.MinOf[V](), Max: tmmath.MaxOf[V]()}
	var total V
	for _, v := range raw {
		total = tmmath.AddClamp(total, v, full)
	}
	normalized := make(map[K]V, len(raw))
	for k, v := range raw {
		normalized[k] = tmmath.SafeDiv(v, total)
	}
	return normalized
}

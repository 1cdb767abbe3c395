package math

// AddClamp adds b to a, saturating at the bounds instead of overflowing.
// A NaN delta leaves a unchanged.
func AddClamp[V Value](a, b V, bounds Bounds[V]) V {
	if IsNaN(b) {
		return a
	}
	var zero V
	s := a + b
	switch {
	case b > zero && s < a:
		return bounds.Max
	case b < zero && s > a:
		return bounds.Min
	}
	return bounds.Clamp(s)
}

// SubClamp subtracts b from a, saturating at the bounds instead of
// overflowing. A NaN delta leaves a unchanged.
func SubClamp[V Value](a, b V, bounds Bounds[V]) V {
	if IsNaN(b) {
		return a
	}
	var zero V
	s := a - b
	switch {
	case b > zero && s > a:
		return bounds.Min
	case b < zero && s < a:
		return bounds.Max
	}
	return bounds.Clamp(s)
}

// SafeDiv divides a by b, returning zero when b is zero.
func SafeDiv[V Value](a, b V) V {
	var zero V
	if b == zero {
		return zero
	}
	return a / b
}

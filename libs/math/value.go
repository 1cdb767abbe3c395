package math

import (
	"errors"
	"fmt"
	"math"
	"reflect"
)

// Value is the set of numeric types that can be used as trust values.
// Every member supports addition, subtraction, multiplication, division,
// total ordering and a zero value.
type Value interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

var (
	ErrMinAboveMax = errors.New("min is greater than max")
	ErrNaNBound    = errors.New("bound is NaN")
)

// Bounds is the closed interval every stored trust value is kept within.
type Bounds[V Value] struct {
	Min V
	Max V
}

// NewBounds returns validated bounds.
func NewBounds[V Value](min, max V) (Bounds[V], error) {
	b := Bounds[V]{Min: min, Max: max}
	return b, b.ValidateBasic()
}

// NonNegative returns the bounds [0, MaxOf[V]].
func NonNegative[V Value]() Bounds[V] {
	return Bounds[V]{Max: MaxOf[V]()}
}

// ValidateBasic performs basic validation.
func (b Bounds[V]) ValidateBasic() error {
	if IsNaN(b.Min) || IsNaN(b.Max) {
		return ErrNaNBound
	}
	if b.Min > b.Max {
		return fmt.Errorf("%w: [%v, %v]", ErrMinAboveMax, b.Min, b.Max)
	}
	return nil
}

// Contains reports whether v is within the bounds.
func (b Bounds[V]) Contains(v V) bool {
	return v >= b.Min && v <= b.Max
}

// Clamp returns v limited to the bounds.
func (b Bounds[V]) Clamp(v V) V {
	switch {
	case v < b.Min:
		return b.Min
	case v > b.Max:
		return b.Max
	}
	return v
}

func (b Bounds[V]) String() string {
	return fmt.Sprintf("[%v, %v]", b.Min, b.Max)
}

// IsNaN reports whether v is a floating point NaN.
func IsNaN[V Value](v V) bool {
	return v != v //nolint:gocritic
}

// MaxOf returns the largest finite value representable by V.
func MaxOf[V Value]() V {
	var v V
	rv := reflect.ValueOf(&v).Elem()
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		rv.SetInt(int64(uint64(1)<<(rv.Type().Bits()-1) - 1))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		rv.SetUint(^uint64(0) >> (64 - rv.Type().Bits()))
	case reflect.Float32:
		rv.SetFloat(math.MaxFloat32)
	case reflect.Float64:
		rv.SetFloat(math.MaxFloat64)
	}
	return v
}

// MinOf returns the smallest finite value representable by V.
func MinOf[V Value]() V {
	var v V
	rv := reflect.ValueOf(&v).Elem()
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		rv.SetInt(-int64(uint64(1) << (rv.Type().Bits() - 1)))
	case reflect.Float32:
		rv.SetFloat(-math.MaxFloat32)
	case reflect.Float64:
		rv.SetFloat(-math.MaxFloat64)
	}
	// unsigned kinds keep the zero value
	return v
}

// Package trust tracks per-peer local and global trust scores.
//
// Local trust is what this node has observed about a peer directly. Global
// trust is what other peers vouch for, weighted by how much this node trusts
// the voucher locally: a sender with near-zero normalized local trust cannot
// meaningfully move anybody's global trust, however large the delta it
// reports.
//
// Two backends implement the Tracker contract. Exact keeps one map entry per
// peer. Sketch keeps four Count-Min Sketches and uses memory independent of
// the number of peers, at the cost of one-sided estimation error.
//
// Trackers are not safe for concurrent use. Wrap one in a Store to share it
// between goroutines.
package trust

import (
	"errors"
	"fmt"
	"strings"

	tmmath "github.com/decentrust/decentrust/libs/math"
	"github.com/decentrust/decentrust/sketch"
)

var (
	// ErrUnknownDirection is returned for a Direction other than Increment
	// or Decrement.
	ErrUnknownDirection = errors.New("unknown update direction")
	// ErrInvalidDelta is returned for NaN or negative deltas. The direction
	// of an update carries its sign.
	ErrInvalidDelta = errors.New("invalid trust delta")
	// ErrInvalidValue is returned for NaN initial values.
	ErrInvalidValue = errors.New("invalid trust value")
	// ErrUnknownMode is returned by New for an unrecognized backend.
	ErrUnknownMode = errors.New("unknown trust mode")
)

// Direction says whether an update adds to or subtracts from trust.
type Direction int

const (
	Increment Direction = iota
	Decrement
)

func (d Direction) String() string {
	switch d {
	case Increment:
		return "increment"
	case Decrement:
		return "decrement"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Validate returns ErrUnknownDirection unless d is Increment or Decrement.
func (d Direction) Validate() error {
	if d != Increment && d != Decrement {
		return fmt.Errorf("%w: %d", ErrUnknownDirection, int(d))
	}
	return nil
}

// ParseDirection parses "increment"/"inc"/"+" and "decrement"/"dec"/"-".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "increment", "inc", "+":
		return Increment, nil
	case "decrement", "dec", "-":
		return Decrement, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}

// Mode selects a Tracker backend.
type Mode string

const (
	ModeExact  Mode = "exact"
	ModeSketch Mode = "sketch"
)

// ParseMode parses a backend name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeExact, ModeSketch:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Tracker is the capability contract shared by both backends.
//
// Every raw mutation renormalizes the corresponding view before returning,
// so normalized values are never stale. Point queries never fail: Exact
// reports false for keys it has never seen, Sketch always reports an
// estimate (possibly zero) and true.
type Tracker[K comparable, V tmmath.Value] interface {
	// InitLocal sets the local trust of a newly discovered peer.
	InitLocal(key K, value V) error
	// UpdateLocal applies delta to key's local trust.
	UpdateLocal(key K, delta V, dir Direction) error
	RawLocal(key K) (V, bool)
	NormalizedLocal(key K) (V, bool)

	// InitGlobal sets key's global trust to value weighted by sender's
	// normalized local trust.
	InitGlobal(sender, key K, value V) error
	// UpdateGlobal applies delta weighted by sender's normalized local
	// trust to key's global trust. An unknown sender weighs zero.
	UpdateGlobal(sender, key K, delta V, dir Direction) error
	RawGlobal(key K) (V, bool)
	NormalizedGlobal(key K) (V, bool)

	// The map accessors return snapshots owned by the caller.
	RawLocalMap() View[K, V]
	NormalizedLocalMap() View[K, V]
	RawGlobalMap() View[K, V]
	NormalizedGlobalMap() View[K, V]

	// NormalizeLocal and NormalizeGlobal recompute a normalized view from
	// its raw view. Both are idempotent.
	NormalizeLocal()
	NormalizeGlobal()

	// Cardinalities are exact for Exact and approximate for Sketch.
	LocalRawLen() int
	LocalNormalizedLen() int
	GlobalRawLen() int
	GlobalNormalizedLen() int

	Mode() Mode
}

// Params holds everything needed to build a Tracker. For the sketch backend
// Width and Depth take precedence; otherwise the sketch is sized from
// ErrorBound, Probability and MaxEntries; with neither, the default
// dimensions are used.
type Params[V tmmath.Value] struct {
	Mode   Mode
	Bounds tmmath.Bounds[V]

	Width int
	Depth int

	ErrorBound  float64
	Probability float64
	MaxEntries  float64

	Hash sketch.HashKind
}

// DefaultParams returns parameters for an exact tracker over non-negative
// values.
func DefaultParams[V tmmath.Value]() Params[V] {
	return Params[V]{
		Mode:   ModeExact,
		Bounds: tmmath.NonNegative[V](),
	}
}

func (p Params[V]) sizedByDimensions() bool {
	return p.Width != 0 || p.Depth != 0
}

func (p Params[V]) sizedByBounds() bool {
	return p.ErrorBound != 0 || p.Probability != 0 || p.MaxEntries != 0
}

// New builds the backend selected by p.Mode.
func New[K comparable, V tmmath.Value](p Params[V]) (Tracker[K, V], error) {
	switch p.Mode {
	case ModeExact, "":
		t, err := NewExact[K](p.Bounds)
		if err != nil {
			return nil, err
		}
		return t, nil
	case ModeSketch:
		var (
			t    *Sketch[K, V]
			err  error
			opts = []sketch.Option{sketch.WithHashKind(p.Hash)}
		)
		switch {
		case p.sizedByDimensions():
			t, err = NewSketch[K](p.Width, p.Depth, p.Bounds, opts...)
		case p.sizedByBounds():
			t, err = NewSketchFromBounds[K](p.ErrorBound, p.Probability, p.MaxEntries, p.Bounds, opts...)
		default:
			t, err = NewSketch[K](sketch.DefaultWidth, sketch.DefaultDepth, p.Bounds, opts...)
		}
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, p.Mode)
	}
}

// apply returns current moved by delta in direction dir, saturating at
// bounds.
func apply[V tmmath.Value](current, delta V, dir Direction, bounds tmmath.Bounds[V]) V {
	if dir == Decrement {
		return tmmath.SubClamp(current, delta, bounds)
	}
	return tmmath.AddClamp(current, delta, bounds)
}

func validateUpdate[V tmmath.Value](delta V, dir Direction) error {
	if err := dir.Validate(); err != nil {
		return err
	}
	var zero V
	if tmmath.IsNaN(delta) || delta < zero {
		return fmt.Errorf("%w: %v", ErrInvalidDelta, delta)
	}
	return nil
}

func validateInit[V tmmath.Value](value V) error {
	if tmmath.IsNaN(value) {
		return ErrInvalidValue
	}
	return nil
}

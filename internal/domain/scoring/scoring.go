// Package scoring converts cumulative violation counts into a 0-100
// behavior score with diminishing-return weighting: each repetition of
// a kind costs a decaying fraction of its base penalty, floored so
// chronic violations keep costing something.
package scoring

import (
	"math"

	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/model"
	"github.com/BakulBd/GreenGuardian-sub000/internal/domain/violation"
)

// Default scoring configuration constants. Step and floor are
// empirically chosen and deployment-tunable, not invariants.
const (
	defaultDecayStep  = 0.15
	defaultDecayFloor = 0.5
	maxScoreValue     = 100
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithBaseWeights overlays the built-in base-penalty table. Entries for
// unknown kinds or with negative weights are ignored; a zero weight
// disables a kind.
func WithBaseWeights(weights map[model.Kind]float64) Option {
	return func(e *Engine) {
		for kind, weight := range weights {
			if !kind.Known() || weight < 0 {
				continue
			}
			e.base[kind] = weight
		}
	}
}

// WithDecay sets the per-repetition reduction and its floor. Step must
// be in [0,1) and floor in (0,1]; out-of-range values leave the
// defaults in place.
func WithDecay(step, floor float64) Option {
	return func(e *Engine) {
		if step >= 0 && step < 1 {
			e.step = step
		}
		if floor > 0 && floor <= 1 {
			e.floor = floor
		}
	}
}

// Engine folds violation counts into a behavior score. It holds only
// read-only tables after construction and is safe for concurrent use.
type Engine struct {
	base  map[model.Kind]float64
	step  float64
	floor float64
}

// NewEngine creates a scoring engine with the default penalty table and
// decay parameters.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		base:  violation.DefaultPenalties(),
		step:  defaultDecayStep,
		floor: defaultDecayFloor,
	}

	// Apply all options
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Penalty returns the total cost of count occurrences of kind. The
// i-th occurrence (zero-based) costs base(kind) * max(floor, 1-step*i).
// Unknown kinds and non-positive counts cost nothing.
func (e *Engine) Penalty(kind model.Kind, count int) float64 {
	base := e.base[kind]
	if base <= 0 || count <= 0 {
		return 0
	}

	var total float64
	for i := 0; i < count; i++ {
		weight := 1 - e.step*float64(i)
		if weight < e.floor {
			weight = e.floor
		}
		total += base * weight
	}
	return total
}

// Score folds all counts into the behavior score:
// max(0, round(100 - total penalty)). The fold is order-independent,
// so callers may hand in maps built incrementally in any order.
func (e *Engine) Score(counts map[model.Kind]int) int {
	var total float64
	for kind, count := range counts {
		total += e.Penalty(kind, count)
	}

	score := math.Round(maxScoreValue - total)
	if score < 0 {
		return 0
	}
	return int(score)
}

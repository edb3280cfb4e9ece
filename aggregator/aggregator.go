// Package aggregator implements the three jump aggregators (spec §4 C6-C8):
// Coevolve (thinning for time-varying rates), RSSACR (grouped-priority plus
// bracket rejection sampling, well-mixed), and RSSACR-Direct (the spatial
// variant). All three satisfy the Aggregator boundary the stepper (C9)
// drives; this is a tagged-variant boundary in the Go sense (a shared
// interface plus struct embedding for common fields), not a class hierarchy.
package aggregator

import (
	"math/rand"

	"ssacore/bracket"
	"ssacore/catalog"
)

// Aggregator is the collaborator boundary the SSA stepper (C9) drives every
// step: advance to the next jump time, fire it, and refresh whatever
// internal state that firing invalidates.
type Aggregator interface {
	// Initialize prepares the aggregator's internal tables from the initial
	// state/params at t0. Must be called exactly once before GenerateJumps.
	Initialize(u catalog.State, p catalog.Params, t0 float64) error

	// GenerateJumps computes (or re-derives) the time and identity of the
	// next jump to fire, given the integrator's current (u,p,t).
	GenerateJumps(integ catalog.Integrator) error

	// ExecuteJumps applies the pending jump's effect to integ and updates
	// whatever internal tables the firing invalidates.
	ExecuteJumps(integ catalog.Integrator) error

	// NextJumpTime returns the absolute time GenerateJumps last computed.
	NextJumpTime() float64

	// NextJump returns the jump index GenerateJumps last selected, or -1 if
	// no positive-rate jump exists.
	NextJump() int

	// EndTime reports the aggregator's configured horizon (tf); the stepper
	// stops once NextJumpTime reaches it.
	EndTime() float64

	// SavePositions returns the jump indices that are domain checkpoints.
	// All three aggregators here return nil, and the stepper does not read it.
	SavePositions() []int

	// Rng exposes the aggregator's random source, so the stepper can log or
	// reseed it without reaching into aggregator-specific fields.
	Rng() *rand.Rand

	// Kind names which of the three variants is running, for telemetry
	// (spec §4.C12's "current aggregator kind").
	Kind() string
}

// bracketingAggregator holds the fields RSSACR and RSSACR-Direct share:
// both are bracket-and-reject samplers over a grouped priority table, and
// differ only in whether sampling happens over reactions directly or over
// sites-then-reactions. Composition, not inheritance: each concrete
// aggregator embeds this struct and adds its own table(s).
type bracketingAggregator struct {
	engine *bracket.Engine
	jumps  *catalog.JumpSet
	rng    *rand.Rand

	// curRateLow/curRateHigh are slots for low/high bounds on the total
	// propensity sum; neither RSSACR nor RSSACR-Direct assigns them, so both
	// stay 0.
	curRateLow  float64
	curRateHigh float64
	// sumRate records the grouped-priority table's total after Initialize and
	// after each ExecuteJumps; GenerateJumps reads the table's Gsum directly.
	sumRate float64

	tf float64
}

func (b *bracketingAggregator) EndTime() float64     { return b.tf }
func (b *bracketingAggregator) Rng() *rand.Rand      { return b.rng }
func (b *bracketingAggregator) SavePositions() []int { return nil }

var (
	_ Aggregator = (*CoevolveAggregator)(nil)
	_ Aggregator = (*RSSACRAggregator)(nil)
	_ Aggregator = (*RSSACRDirectAggregator)(nil)
)

// Package bracket maintains the conservative [u_lo,u_hi] species envelopes
// and [r_lo,r_hi] reaction envelopes that let RSSACR-family aggregators
// reuse a rate bound across many steps instead of recomputing exact rates
// every step (spec §3 "Bracket policy", §4.C2).
package bracket

import (
	"math"

	"ssacore/catalog"
)

// Policy is the tunable (fluct, threshold, delta) triple spec §3 defines
// per species.
type Policy struct {
	Fluct     float64
	Threshold int64
	Delta     int64
}

// DefaultPolicy matches the values commonly used across the RSSACR
// literature: 20% fluctuation tolerance, switching to the additive delta
// band below a count of 20.
var DefaultPolicy = Policy{Fluct: 0.2, Threshold: 20, Delta: 4}

// Bracket computes (lo,hi) for a species count n per spec §3:
//
//	n == 0            -> (0, 0)
//	n < threshold      -> (max(0, n-delta), n+delta)
//	otherwise          -> (floor((1-fluct)*n), floor((1+fluct)*n))
func (p Policy) Bracket(n int64) (lo, hi int64) {
	if n == 0 {
		return 0, 0
	}
	if n < p.Threshold {
		lo = n - p.Delta
		if lo < 0 {
			lo = 0
		}
		return lo, n + p.Delta
	}
	lo = int64(math.Floor((1 - p.Fluct) * float64(n)))
	hi = int64(math.Floor((1 + p.Fluct) * float64(n)))
	return
}

// Engine tracks the species brackets and per-reaction rate brackets for a
// well-mixed or spatial state. One Engine exists per aggregator instance.
type Engine struct {
	Policy Policy
	jumps  *catalog.JumpSet

	numSpecies int
	numSites   int
	uLo, uHi   [][]int64 // [site][species]
	rLo, rHi   [][]float64 // [site][jump] -- site dimension is 1 for well-mixed
}

// NewEngine builds a bracketing engine over the given jump set and
// state shape. Call UpdateUBrackets once per site with the initial state before
// using IsOutsideBrackets/refresh.
func NewEngine(policy Policy, jumps *catalog.JumpSet, numSpecies, numSites int) *Engine {
	e := &Engine{
		Policy:     policy,
		jumps:      jumps,
		numSpecies: numSpecies,
		numSites:   numSites,
	}
	e.uLo = make([][]int64, numSites)
	e.uHi = make([][]int64, numSites)
	e.rLo = make([][]float64, numSites)
	e.rHi = make([][]float64, numSites)
	for site := 0; site < numSites; site++ {
		e.uLo[site] = make([]int64, numSpecies)
		e.uHi[site] = make([]int64, numSpecies)
		e.rLo[site] = make([]float64, jumps.NumJumps())
		e.rHi[site] = make([]float64, jumps.NumJumps())
	}
	return e
}

// UpdateUBrackets does a full species-bracket refresh for site from u,
// the "full refresh at init" operation of spec §4.C2.
func (e *Engine) UpdateUBrackets(u catalog.State, site int) {
	for sp := 0; sp < e.numSpecies; sp++ {
		e.UpdateSpeciesBracket(sp, site, u.Get(sp, site))
	}
}

// UpdateSpeciesBracket recomputes the bracket for one species at one site
// on demand (spec §4.C2 "on demand" refresh, invoked only when the true
// state has left the stale envelope).
func (e *Engine) UpdateSpeciesBracket(sp, site int, n int64) {
	lo, hi := e.Policy.Bracket(n)
	e.uLo[site][sp] = lo
	e.uHi[site][sp] = hi
}

// USpeciesLo and USpeciesHi expose the raw low/high species-count envelope
// for sp at site, for callers (e.g. the spatial aggregator's hop-rate
// bound) that need the bound value rather than a State view of it.
func (e *Engine) USpeciesLo(sp, site int) int64 { return e.uLo[site][sp] }
func (e *Engine) USpeciesHi(sp, site int) int64 { return e.uHi[site][sp] }

// IsOutsideBrackets reports whether count n for species sp at site has left
// its stale [u_lo,u_hi] envelope (I3).
func (e *Engine) IsOutsideBrackets(sp, site int, n int64) bool {
	return n < e.uLo[site][sp] || n > e.uHi[site][sp]
}

// ULo and UHi expose a lightweight read-only State view of the low/high
// species envelopes at a site, for evaluating a mass-action/general rate
// against the bracket bounds (I4: r_lo[k] <= rate(u) <= r_hi[k]).
func (e *Engine) ULo(site int) catalog.State { return &bracketState{e.uLo[site]} }
func (e *Engine) UHi(site int) catalog.State { return &bracketState{e.uHi[site]} }

// bracketState adapts a single site's species-count slice to catalog.State
// so EvalMassActionRate/EvalRate can be called against the envelope
// without allocating a full WellMixed/Spatial copy.
type bracketState struct{ counts []int64 }

func (b *bracketState) NumSpecies() int         { return len(b.counts) }
func (b *bracketState) NumSites() int           { return 1 }
func (b *bracketState) Get(sp, _ int) int64     { return b.counts[sp] }
func (b *bracketState) Set(sp, _ int, n int64)  { b.counts[sp] = n }
func (b *bracketState) Clone() catalog.State {
	cp := make([]int64, len(b.counts))
	copy(cp, b.counts)
	return &bracketState{cp}
}

// RefreshReactionBracket recomputes (r_lo[k],r_hi[k]) at site per spec
// §4.C2: mass-action jumps exploit C(n,coeff)'s monotonicity in n and so
// can evaluate the envelope directly as (rate(u_lo),rate(u_hi)); general
// jumps make no monotonicity assumption and sort the two evaluations.
func (e *Engine) RefreshReactionBracket(k int, p catalog.Params, t float64, site int) {
	lo := e.ULo(site)
	hi := e.UHi(site)
	if e.jumps.IsMassAction(k) {
		e.rLo[site][k] = catalog.EvalMassActionRateAtSite(lo, k, 0, e.jumps.MassAction)
		e.rHi[site][k] = catalog.EvalMassActionRateAtSite(hi, k, 0, e.jumps.MassAction)
		return
	}
	gj := &e.jumps.General[e.jumps.GeneralIndex(k)]
	a := gj.Rate(lo, p, t)
	b := gj.Rate(hi, p, t)
	if a > b {
		a, b = b, a
	}
	e.rLo[site][k] = a
	e.rHi[site][k] = b
}

// RLo and RHi return the current (stale, until refreshed) rate envelope
// for jump k at site.
func (e *Engine) RLo(k, site int) float64 { return e.rLo[site][k] }
func (e *Engine) RHi(k, site int) float64 { return e.rHi[site][k] }

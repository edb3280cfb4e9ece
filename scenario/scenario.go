// Package scenario provides preset simulation setups (spec §3's
// supplemented scenario loaders), shared by tests and the CLI's config
// `scenario` field so both exercise identical jump catalogs and initial states.
package scenario

import (
	"math"

	"ssacore/aggregator"
	"ssacore/catalog"
	"ssacore/topology"
)

// S1 is a birth-death-with-spontaneous-production system: a linear birth
// (rate X), a linear death (rate 2X), and a constant spontaneous
// production (rate 50) that pins the process to a nonzero quasi-
// equilibrium. All three jumps are mass-action.
func S1() (js *catalog.JumpSet, u catalog.State, p catalog.Params, tf float64) {
	js = &catalog.JumpSet{MassAction: []catalog.MassActionJump{
		{ReactStoch: []catalog.SpeciesStoich{{Species: 0, Coeff: 1}}, NetStoch: []catalog.SpeciesStoich{{Species: 0, Coeff: 1}}, RateConstant: 1},
		{ReactStoch: []catalog.SpeciesStoich{{Species: 0, Coeff: 1}}, NetStoch: []catalog.SpeciesStoich{{Species: 0, Coeff: -1}}, RateConstant: 2},
		{ReactStoch: nil, NetStoch: []catalog.SpeciesStoich{{Species: 0, Coeff: 1}}, RateConstant: 50},
	}}
	u = catalog.NewWellMixed([]int64{5})
	return js, u, nil, 50.0
}

// S2Priorities returns the priority values used to exercise the grouped-log
// priority table across a wide dynamic range, from a near-zero priority
// (1e-13) up through 1e10, more than twenty orders of magnitude larger.
func S2Priorities() []float64 {
	exponent := math.Floor(math.Log2(1e-12))
	mp := math.Pow(2, exponent)
	return []float64{1e-13, 0.99 * mp, mp, 1.01e-4, 1e-4, 5.0, 0.0, 1e10}
}

// S3 window parameters exercise the windowed priority-time table's slide
// and rebuild behavior over a small, easily hand-checked set of times.
const (
	S3Mintime         = 0.0
	S3Timestep        = 10.0
	S3NGroups         = 3
	S3RebuildMintime  = 66.0
	S3RebuildTimestep = 0.75
)

// S3Times returns the entry times S3 inserts before sliding the window.
func S3Times() []float64 { return []float64{2, 8, 13, 15, 74} }

// seasonalPeriod, seasonalBase and seasonalAmplitude parameterize S4's
// inhomogeneous Poisson process: rate(t) = base + amplitude*sin(2*pi*t/period),
// always strictly positive since amplitude < base.
const (
	seasonalPeriod    = 10.0
	seasonalBase      = 10.0
	seasonalAmplitude = 5.0
)

// S4 is a single general jump with a seasonally varying rate and no species
// dependence: a pure time-inhomogeneous Poisson counting process, used to
// check that Coevolve's thinning respects a sinusoidal rate envelope and
// that its long-run event count tracks the rate's time average.
func S4() (js *catalog.JumpSet, u catalog.State, p catalog.Params, tf float64) {
	rate := func(u catalog.State, p catalog.Params, t float64) float64 {
		return seasonalBase + seasonalAmplitude*math.Sin(2*math.Pi*t/seasonalPeriod)
	}
	js = &catalog.JumpSet{General: []catalog.GeneralJump{{
		Rate:  rate,
		URate: func(catalog.State, catalog.Params, float64) float64 { return seasonalBase + seasonalAmplitude },
		LRate: func(catalog.State, catalog.Params, float64) float64 { return seasonalBase - seasonalAmplitude },
		Affect: func(integ catalog.Integrator) {
			uu := integ.U()
			uu.Set(0, 0, uu.Get(0, 0)+1)
		},
	}}}
	u = catalog.NewWellMixed([]int64{0})
	return js, u, nil, 50.0
}

// S5 is a single diffusing species on a 5x5 lattice with no reactions, all
// mass starting at the center site, used to check that RSSACR-Direct
// conserves total mass while spreading it across the lattice.
func S5() (js *catalog.JumpSet, u catalog.State, top *topology.Topology, hops []aggregator.HopRate, tf float64) {
	js = &catalog.JumpSet{}
	top = topology.NewGrid(5, 5)
	u = catalog.NewSpatial(1, top.NumSites())
	u.Set(0, 12, 200) // center of a 5x5 grid (row2,col2) -> index 12
	hops = []aggregator.HopRate{{Species: 0, Rate: 1.0}}
	return js, u, top, hops, 30.0
}

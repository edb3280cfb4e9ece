package catalog

import "math"

var inf = math.Inf(1)

// Inf is the sentinel "valid forever" / "no upper bound" value used
// throughout the catalog and bracketing engine.
func Inf() float64 { return inf }

// FallingFactorial computes C(n,coeff) = n*(n-1)*...*(n-coeff+1), the
// combinatorial factor spec §3/§4.C1 defines for mass-action rates. It is
// monotonically non-decreasing in n for fixed coeff >= 0, which the
// bracketing engine (C2) relies on to avoid a monotonicity check of its own.
func FallingFactorial(n int64, coeff int) float64 {
	if coeff <= 0 {
		return 1
	}
	if n < int64(coeff) {
		return 0
	}
	result := 1.0
	for i := 0; i < coeff; i++ {
		result *= float64(n - int64(i))
	}
	return result
}

// EvalMassActionRate evaluates the propensity of mass-action jump k in
// majumps against state u: c[k] * prod_i C(u[species_i], coeff_i).
func EvalMassActionRate(u State, k int, majumps []MassActionJump) float64 {
	jump := &majumps[k]
	rate := jump.RateConstant
	for _, rs := range jump.ReactStoch {
		rate *= FallingFactorial(u.Get(rs.Species, 0), rs.Coeff)
		if rate == 0 {
			return 0
		}
	}
	return rate
}

// EvalMassActionRateAtSite is EvalMassActionRate generalized to a specific
// lattice site, for the spatial aggregator (C8) where reactions fire
// per-site against a Spatial state.
func EvalMassActionRateAtSite(u State, k, site int, majumps []MassActionJump) float64 {
	jump := &majumps[k]
	rate := jump.RateConstant
	for _, rs := range jump.ReactStoch {
		rate *= FallingFactorial(u.Get(rs.Species, site), rs.Coeff)
		if rate == 0 {
			return 0
		}
	}
	return rate
}

// EvalRate evaluates jump k (mass-action or general) at the given state,
// params and time, dispatching on the jump's kind. General jumps call
// Rate(u,p,t) verbatim (spec §3/§4.C1): a closure returning 0 disables the
// jump for this step, scheduled at +Inf by the caller.
func EvalRate(u State, p Params, t float64, k int, js *JumpSet) float64 {
	if js.IsMassAction(k) {
		return EvalMassActionRate(u, k, js.MassAction)
	}
	return js.General[js.GeneralIndex(k)].Rate(u, p, t)
}

// ApplyNetStoch applies a mass-action jump's net stoichiometry to u at site,
// the canonical affect for a mass-action jump.
func ApplyNetStoch(u State, k, site int, majumps []MassActionJump) {
	for _, ns := range majumps[k].NetStoch {
		u.Set(ns.Species, site, u.Get(ns.Species, site)+int64(ns.Coeff))
	}
}

// FireJump applies jump k's effect through integ: mass-action jumps apply
// their net stoichiometry at site 0 (well-mixed); general jumps call their
// Affect closure. Either path ends by marking u modified.
func FireJump(integ Integrator, js *JumpSet, k int) {
	if js.IsMassAction(k) {
		ApplyNetStoch(integ.U(), k, 0, js.MassAction)
		integ.UModified()
		return
	}
	js.General[js.GeneralIndex(k)].Affect(integ)
	integ.UModified()
}

// FireJumpAtSite is FireJump generalized to a specific lattice site, for
// the spatial aggregator (C8).
func FireJumpAtSite(integ Integrator, js *JumpSet, k, site int) {
	if js.IsMassAction(k) {
		ApplyNetStoch(integ.U(), k, site, js.MassAction)
		integ.UModified()
		return
	}
	js.General[js.GeneralIndex(k)].Affect(integ)
	integ.UModified()
}

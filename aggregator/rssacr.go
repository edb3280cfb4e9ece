package aggregator

import (
	"fmt"
	"math"
	"math/rand"

	"ssacore/bracket"
	"ssacore/catalog"
	"ssacore/depgraph"
	"ssacore/priority"
)

// RSSACRAggregator implements the well-mixed rejection-based SSA with
// composition-rejection (spec §4.C7): reaction selection happens through a
// grouped priority table keyed by each reaction's upper bracket r_hi, and
// an accept/reject test against the exact rate corrects for the bracket's
// looseness. It embeds bracketingAggregator for the fields RSSACR-Direct
// also needs.
type RSSACRAggregator struct {
	bracketingAggregator

	pt         *priority.Table
	dep        *depgraph.Graph
	numSpecies int

	curJump int
	curTime float64
}

// NewRSSACRAggregator builds an RSSACR aggregator over a well-mixed system.
func NewRSSACRAggregator(jumps *catalog.JumpSet, dep *depgraph.Graph, policy bracket.Policy, numSpecies int, tf float64, rng *rand.Rand) *RSSACRAggregator {
	return &RSSACRAggregator{
		bracketingAggregator: bracketingAggregator{
			engine: bracket.NewEngine(policy, jumps, numSpecies, 1),
			jumps:  jumps,
			rng:    rng,
			tf:     tf,
		},
		dep:        dep,
		numSpecies: numSpecies,
	}
}

func (a *RSSACRAggregator) Initialize(u catalog.State, p catalog.Params, t0 float64) error {
	a.engine.UpdateUBrackets(u, 0)
	a.pt = priority.New()
	n := a.jumps.NumJumps()
	for k := 0; k < n; k++ {
		a.engine.RefreshReactionBracket(k, p, t0, 0)
		a.pt.Insert(k, a.engine.RHi(k, 0))
	}
	a.sumRate = a.pt.Gsum()
	a.curJump, a.curTime = -1, math.Inf(1)
	return nil
}

func (a *RSSACRAggregator) NextJumpTime() float64 { return a.curTime }
func (a *RSSACRAggregator) NextJump() int         { return a.curJump }
func (a *RSSACRAggregator) Kind() string          { return "rssacr" }

// GenerateJumps runs the composition-rejection loop (spec §4.C7): advance
// time by an exponential draw against the priority table's grand total
// (an upper bound on the true propensity sum), pick a candidate reaction
// proportional to its bracket r_hi, then accept it with probability
// exact_rate/r_hi. A rejection consumes no state change; time keeps
// accumulating from wherever the loop currently stands.
func (a *RSSACRAggregator) GenerateJumps(integ catalog.Integrator) error {
	u, p := integ.U(), integ.P()
	t := integ.T()

	for {
		gsum := a.pt.Gsum()
		if gsum <= 0 {
			a.curJump, a.curTime = -1, math.Inf(1)
			return nil
		}
		t += a.rng.ExpFloat64() / gsum
		if t > a.tf {
			a.curJump, a.curTime = -1, math.Inf(1)
			return nil
		}

		k := a.pt.Sample(a.rng)
		rhi := a.engine.RHi(k, 0)
		exact := catalog.EvalRate(u, p, t, k, a.jumps)
		if exact > rhi {
			return fmt.Errorf("aggregator: rate %g exceeds bracket r_hi %g for jump %d at t=%g", exact, rhi, k, t)
		}
		if a.rng.Float64()*rhi <= exact {
			a.curJump, a.curTime = k, t
			return nil
		}
	}
}

func (a *RSSACRAggregator) ExecuteJumps(integ catalog.Integrator) error {
	if a.curJump < 0 {
		return fmt.Errorf("aggregator: ExecuteJumps called with no pending jump")
	}
	integ.SetT(a.curTime)
	catalog.FireJump(integ, a.jumps, a.curJump)

	u, p, t := integ.U(), integ.P(), integ.T()
	for _, sp := range a.jumps.WrittenSpecies(a.curJump, a.numSpecies) {
		n := u.Get(sp, 0)
		if a.engine.IsOutsideBrackets(sp, 0, n) {
			a.engine.UpdateSpeciesBracket(sp, 0, n)
		}
	}
	for _, k := range a.dep.Deps[a.curJump] {
		old := a.pt.Priority(k)
		a.engine.RefreshReactionBracket(k, p, t, 0)
		a.pt.Update(k, old, a.engine.RHi(k, 0))
	}
	a.sumRate = a.pt.Gsum()
	return nil
}

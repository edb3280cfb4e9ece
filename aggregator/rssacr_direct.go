package aggregator

import (
	"fmt"
	"math"
	"math/rand"

	"ssacore/bracket"
	"ssacore/catalog"
	"ssacore/depgraph"
	"ssacore/priority"
	"ssacore/topology"
)

// HopRate gives a diffusible species' per-molecule rate of hopping to one
// neighboring site; the total hop rate for that species out of a site with
// n molecules to a given neighbor is Rate*n.
type HopRate struct {
	Species int
	Rate    float64
}

// JumpKind distinguishes a local reaction firing from an inter-site hop.
type JumpKind int

const (
	KindReaction JumpKind = iota
	KindHop
)

// SpatialJump names a single candidate event in the spatial aggregator: a
// local reaction JIdx at SrcSite, or (Kind==KindHop) one molecule of
// species JIdx moving from SrcSite to DstSite.
type SpatialJump struct {
	SrcSite int
	Kind    JumpKind
	JIdx    int
	DstSite int
}

// RSSACRDirectAggregator implements the spatial variant (spec §4.C8):
// sites are selected through a grouped priority table exactly as RSSACR
// selects reactions, then the specific local reaction or hop within the
// chosen site is resolved by the Direct method (an exact cumulative sum),
// since a site's local event count is small enough that Direct's O(M) scan
// is cheap. It embeds bracketingAggregator for the fields RSSACR shares.
type RSSACRDirectAggregator struct {
	bracketingAggregator

	dep        *depgraph.Graph
	numSpecies int
	top        *topology.Topology
	hops       []HopRate

	sitePT *priority.Table

	curJump SpatialJump
	curTime float64
	hasJump bool
}

// NewRSSACRDirectAggregator builds a spatial aggregator over top, with the
// same local reaction set js applying independently at every site, plus
// hops diffusing the species named in hops between neighboring sites.
func NewRSSACRDirectAggregator(jumps *catalog.JumpSet, dep *depgraph.Graph, policy bracket.Policy, numSpecies int, top *topology.Topology, hops []HopRate, tf float64, rng *rand.Rand) *RSSACRDirectAggregator {
	return &RSSACRDirectAggregator{
		bracketingAggregator: bracketingAggregator{
			engine: bracket.NewEngine(policy, jumps, numSpecies, top.NumSites()),
			jumps:  jumps,
			rng:    rng,
			tf:     tf,
		},
		dep:        dep,
		numSpecies: numSpecies,
		top:        top,
		hops:       hops,
	}
}

func (a *RSSACRDirectAggregator) Initialize(u catalog.State, p catalog.Params, t0 float64) error {
	a.sitePT = priority.New()
	for site := 0; site < a.top.NumSites(); site++ {
		a.engine.UpdateUBrackets(u, site)
		for k := 0; k < a.jumps.NumJumps(); k++ {
			a.engine.RefreshReactionBracket(k, p, t0, site)
		}
		a.sitePT.Insert(site, a.siteBound(site))
	}
	a.sumRate = a.sitePT.Gsum()
	a.hasJump = false
	a.curTime = math.Inf(1)
	return nil
}

// siteBound is the current upper bound on the total event rate (local
// reactions plus outgoing hops) at site, the priority this site is stored
// under in sitePT.
func (a *RSSACRDirectAggregator) siteBound(site int) float64 {
	total := 0.0
	for k := 0; k < a.jumps.NumJumps(); k++ {
		total += a.engine.RHi(k, site)
	}
	numNeighbors := float64(len(a.top.Neighbors(site)))
	for _, h := range a.hops {
		total += h.Rate * float64(a.engine.USpeciesHi(h.Species, site)) * numNeighbors
	}
	return total
}

// exactSiteEvents evaluates the true rate of every local reaction and hop
// at site, appending each to events/rates, and returns their sum.
func (a *RSSACRDirectAggregator) exactSiteEvents(u catalog.State, p catalog.Params, t float64, site int) (events []SpatialJump, rates []float64, sum float64) {
	for k := 0; k < a.jumps.NumJumps(); k++ {
		var r float64
		if a.jumps.IsMassAction(k) {
			r = catalog.EvalMassActionRateAtSite(u, k, site, a.jumps.MassAction)
		} else {
			r = a.jumps.General[a.jumps.GeneralIndex(k)].Rate(u, p, t)
		}
		if r <= 0 {
			continue
		}
		events = append(events, SpatialJump{SrcSite: site, Kind: KindReaction, JIdx: k})
		rates = append(rates, r)
		sum += r
	}
	for _, h := range a.hops {
		n := u.Get(h.Species, site)
		if n <= 0 {
			continue
		}
		for _, nbr := range a.top.Neighbors(site) {
			r := h.Rate * float64(n)
			events = append(events, SpatialJump{SrcSite: site, Kind: KindHop, JIdx: h.Species, DstSite: nbr})
			rates = append(rates, r)
			sum += r
		}
	}
	return
}

// GenerateJumps mirrors RSSACR's composition-rejection loop at the site
// level, then resolves the winning site's specific event by Direct
// sampling over its exact local rates (spec §4.C8).
func (a *RSSACRDirectAggregator) GenerateJumps(integ catalog.Integrator) error {
	u, p := integ.U(), integ.P()
	t := integ.T()

	for {
		gsum := a.sitePT.Gsum()
		if gsum <= 0 {
			a.hasJump = false
			a.curTime = math.Inf(1)
			return nil
		}
		t += a.rng.ExpFloat64() / gsum
		if t > a.tf {
			a.hasJump = false
			a.curTime = math.Inf(1)
			return nil
		}

		site := a.sitePT.Sample(a.rng)
		bound := a.siteBound(site)
		events, rates, exactSum := a.exactSiteEvents(u, p, t, site)
		if exactSum > bound {
			return fmt.Errorf("aggregator: site %d true rate %g exceeds bound %g at t=%g", site, exactSum, bound, t)
		}
		if a.rng.Float64()*bound > exactSum || len(events) == 0 {
			continue
		}

		v := a.rng.Float64() * exactSum
		acc := 0.0
		for i, r := range rates {
			acc += r
			if v <= acc {
				a.curJump = events[i]
				a.curTime = t
				a.hasJump = true
				return nil
			}
		}
		// Floating-point edge case: fall back to the last event.
		a.curJump = events[len(events)-1]
		a.curTime = t
		a.hasJump = true
		return nil
	}
}

func (a *RSSACRDirectAggregator) NextJumpTime() float64 {
	if !a.hasJump {
		return math.Inf(1)
	}
	return a.curTime
}

// NextJump returns the pending event's JIdx for the Aggregator interface's
// sake (the local reaction index, or the hopped species for a hop); callers
// needing the full event (site, reaction vs hop, destination site) should
// read CurSpatialJump after GenerateJumps.
func (a *RSSACRDirectAggregator) NextJump() int {
	if !a.hasJump {
		return -1
	}
	return a.curJump.JIdx
}

// CurSpatialJump exposes the full pending spatial event.
func (a *RSSACRDirectAggregator) CurSpatialJump() (SpatialJump, bool) { return a.curJump, a.hasJump }

func (a *RSSACRDirectAggregator) Kind() string { return "rssacr-direct" }

func (a *RSSACRDirectAggregator) ExecuteJumps(integ catalog.Integrator) error {
	if !a.hasJump {
		return fmt.Errorf("aggregator: ExecuteJumps called with no pending jump")
	}
	integ.SetT(a.curTime)
	j := a.curJump

	// species is what a.refreshSite must re-bracket; jumpsToRefresh is which
	// reactions' brackets depend on it -- a.dep for a fired reaction (the
	// jump-to-jump direction), a.dep.BySpecies for a hop, since a hop isn't
	// itself a member of the local reaction set and so has no Deps entry of
	// its own (spec §4.C8's selective-refresh requirement).
	var species, jumpsToRefresh []int
	switch j.Kind {
	case KindReaction:
		catalog.FireJumpAtSite(integ, a.jumps, j.JIdx, j.SrcSite)
		species = a.jumps.WrittenSpecies(j.JIdx, a.numSpecies)
		jumpsToRefresh = a.dep.Deps[j.JIdx]
	case KindHop:
		u := integ.U()
		u.Set(j.JIdx, j.SrcSite, u.Get(j.JIdx, j.SrcSite)-1)
		u.Set(j.JIdx, j.DstSite, u.Get(j.JIdx, j.DstSite)+1)
		integ.UModified()
		species = []int{j.JIdx}
		jumpsToRefresh = a.dep.BySpecies[j.JIdx]
	}

	p, t := integ.P(), integ.T()
	a.refreshSite(integ.U(), p, t, j.SrcSite, species, jumpsToRefresh)
	if j.Kind == KindHop {
		a.refreshSite(integ.U(), p, t, j.DstSite, species, jumpsToRefresh)
	}
	return nil
}

// refreshSite re-derives the brackets of species and jumpsToRefresh at site
// after species changed there, then updates that site's entry in the site
// priority table. Restricting jumpsToRefresh to the caller's dependency
// lookup (rather than every jump in the system) is what keeps a site update
// O(dependents) instead of O(NumJumps).
func (a *RSSACRDirectAggregator) refreshSite(u catalog.State, p catalog.Params, t float64, site int, species, jumpsToRefresh []int) {
	for _, sp := range species {
		n := u.Get(sp, site)
		if a.engine.IsOutsideBrackets(sp, site, n) {
			a.engine.UpdateSpeciesBracket(sp, site, n)
		}
	}
	for _, k := range jumpsToRefresh {
		a.engine.RefreshReactionBracket(k, p, t, site)
	}
	old := a.sitePT.Priority(site)
	a.sitePT.Update(site, old, a.siteBound(site))
}

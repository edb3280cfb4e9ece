package aggregator

import (
	"container/heap"
	"fmt"
	"math"
	"math/rand"

	"ssacore/catalog"
	"ssacore/depgraph"
)

// heapEntry is one jump's next candidate firing time.
type heapEntry struct {
	jump int
	time float64
}

// jumpHeap is a mutable binary min-heap over heapEntry, keyed by time, with
// a pos index so a specific jump's entry can be found and fixed in place
// (container/heap's Fix) rather than rebuilt. The pack carries no priority-
// queue dependency, so this is built on stdlib container/heap (see DESIGN.md).
type jumpHeap struct {
	entries []heapEntry
	pos     []int
}

func newJumpHeap(n int) *jumpHeap {
	pos := make([]int, n)
	for i := range pos {
		pos[i] = -1
	}
	return &jumpHeap{pos: pos}
}

func (h *jumpHeap) Len() int            { return len(h.entries) }
func (h *jumpHeap) Less(i, j int) bool  { return h.entries[i].time < h.entries[j].time }
func (h *jumpHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
	h.pos[h.entries[i].jump] = i
	h.pos[h.entries[j].jump] = j
}

func (h *jumpHeap) Push(x any) {
	e := x.(heapEntry)
	h.pos[e.jump] = len(h.entries)
	h.entries = append(h.entries, e)
}

func (h *jumpHeap) Pop() any {
	old := h.entries
	n := len(old)
	e := old[n-1]
	h.entries = old[:n-1]
	h.pos[e.jump] = -1
	return e
}

// set installs or updates jump's scheduled time and restores heap order.
func (h *jumpHeap) set(jump int, t float64) {
	if idx := h.pos[jump]; idx >= 0 {
		h.entries[idx].time = t
		heap.Fix(h, idx)
		return
	}
	heap.Push(h, heapEntry{jump: jump, time: t})
}

// CoevolveAggregator implements the thinning-based aggregator (spec §4.C6)
// for jump sets with time-varying rates: every jump carries a rate, a
// mandatory urate upper bound, an optional lrate lower bound, and an
// optional rateinterval bounding how long (urate,lrate) stay valid.
type CoevolveAggregator struct {
	jumps *catalog.JumpSet
	dep   *depgraph.Graph
	rng   *rand.Rand
	tf    float64

	h *jumpHeap

	curJump int
	curTime float64
}

// NewCoevolveAggregator builds a Coevolve aggregator over jumps, ending the
// simulation at tf, with dep the jump dependency graph (C5). General jumps
// (GeneralJump.URate) are required; a nil URate on any general jump is a
// fatal configuration error (spec §7, "urate missing for a general jump").
func NewCoevolveAggregator(jumps *catalog.JumpSet, dep *depgraph.Graph, tf float64, rng *rand.Rand) (*CoevolveAggregator, error) {
	for i := range jumps.General {
		if jumps.General[i].URate == nil {
			return nil, fmt.Errorf("aggregator: general jump %d has no urate", i+len(jumps.MassAction))
		}
	}
	return &CoevolveAggregator{
		jumps: jumps,
		dep:   dep,
		rng:   rng,
		tf:    tf,
	}, nil
}

func (a *CoevolveAggregator) EndTime() float64     { return a.tf }
func (a *CoevolveAggregator) Rng() *rand.Rand      { return a.rng }
func (a *CoevolveAggregator) SavePositions() []int { return nil }
func (a *CoevolveAggregator) Kind() string         { return "coevolve" }

func (a *CoevolveAggregator) Initialize(u catalog.State, p catalog.Params, t0 float64) error {
	n := a.jumps.NumJumps()
	a.h = newJumpHeap(n)
	for k := 0; k < n; k++ {
		t, err := a.nextTime(k, u, p, t0)
		if err != nil {
			return err
		}
		a.h.set(k, t)
	}
	a.refreshTop()
	return nil
}

func (a *CoevolveAggregator) refreshTop() {
	if a.h.Len() == 0 || math.IsInf(a.h.entries[0].time, 1) {
		a.curJump, a.curTime = -1, math.Inf(1)
		return
	}
	top := a.h.entries[0]
	a.curJump, a.curTime = top.jump, top.time
}

func (a *CoevolveAggregator) GenerateJumps(integ catalog.Integrator) error {
	a.refreshTop()
	return nil
}

func (a *CoevolveAggregator) NextJumpTime() float64 { return a.curTime }
func (a *CoevolveAggregator) NextJump() int         { return a.curJump }

func (a *CoevolveAggregator) ExecuteJumps(integ catalog.Integrator) error {
	if a.curJump < 0 {
		return fmt.Errorf("aggregator: ExecuteJumps called with no pending jump")
	}
	integ.SetT(a.curTime)
	catalog.FireJump(integ, a.jumps, a.curJump)

	u, p, t := integ.U(), integ.P(), integ.T()
	for _, k := range a.dep.Deps[a.curJump] {
		nt, err := a.nextTime(k, u, p, t)
		if err != nil {
			return err
		}
		a.h.set(k, nt)
	}
	return nil
}

// nextTime implements the five-step thinning recursion (spec §4.C6):
// repeatedly draw a candidate time from the current urate bound, accept it
// immediately if a cheap lrate lower bound clears the acceptance draw,
// otherwise fall back to the exact rate; if the bound's rateinterval
// expires first, refresh (urate,lrate,rateinterval) at the new time and
// continue. Returns +Inf (never fires again before tf) when urate is 0 or
// when no candidate is accepted before the simulation horizon tf.
func (a *CoevolveAggregator) nextTime(k int, u catalog.State, p catalog.Params, now float64) (float64, error) {
	t := now
	for {
		urate, lrate, interval, err := a.boundsOf(k, u, p, t)
		if err != nil {
			return 0, err
		}
		if urate <= 0 {
			return math.Inf(1), nil
		}

		bound := t + interval
		if bound > a.tf {
			bound = a.tf
		}

		dt := a.rng.ExpFloat64() / urate
		candidate := t + dt
		if candidate >= bound {
			if bound >= a.tf {
				return math.Inf(1), nil
			}
			t = bound
			continue
		}

		v := a.rng.Float64() * urate
		if v <= lrate {
			return candidate, nil
		}
		exact := catalog.EvalRate(u, p, candidate, k, a.jumps)
		if exact > urate {
			return 0, fmt.Errorf("aggregator: rate %g exceeds urate %g for jump %d at t=%g", exact, urate, k, candidate)
		}
		if v <= exact {
			return candidate, nil
		}
		t = candidate
	}
}

func (a *CoevolveAggregator) boundsOf(k int, u catalog.State, p catalog.Params, t float64) (urate, lrate, interval float64, err error) {
	if a.jumps.IsMassAction(k) {
		rate := catalog.EvalMassActionRate(u, k, a.jumps.MassAction)
		return rate, rate, math.Inf(1), nil
	}
	gj := &a.jumps.General[a.jumps.GeneralIndex(k)]
	urate = gj.URate(u, p, t)
	lrate = gj.LRateOrZero(u, p, t)
	if lrate > urate {
		return 0, 0, 0, fmt.Errorf("aggregator: lrate %g exceeds urate %g for jump %d at t=%g", lrate, urate, k, t)
	}
	interval = gj.RateIntervalOrInf(u, p, t)
	return urate, lrate, interval, nil
}

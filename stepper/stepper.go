// Package stepper implements the SSA stepper (spec §4.C9): the collaborator
// that drives an aggregator's Initialize/GenerateJumps/ExecuteJumps cycle
// against a concrete Integrator, applying saveat snapshots and user
// callbacks at the times the aggregator does not itself know about.
package stepper

import (
	"fmt"
	"time"

	"ssacore/aggregator"
	"ssacore/atomicfloat"
	"ssacore/catalog"
)

// Callback is a user-supplied interrupt: Condition is evaluated at every
// distinct stop time, and Affect runs when it returns true. Both may
// inspect and mutate the integrator.
type Callback struct {
	Condition func(integ *Integrator) bool
	Affect    func(integ *Integrator)
}

// Snapshot is one recorded (t,u) pair, taken at a saveat time, plus the
// running totals the telemetry server reports alongside it (spec §4.C12).
type Snapshot struct {
	T              float64
	U              catalog.State
	JumpCount      int64
	AggregatorKind string
}

// Stats holds the counters the stepper writes as it runs and that a
// telemetry exporter goroutine reads without a mutex (spec §4.C13), built
// on atomicfloat.
type Stats struct {
	JumpsFired *atomicfloat.Float64
	Elapsed    *atomicfloat.Float64
}

func newStats() *Stats {
	return &Stats{
		JumpsFired: atomicfloat.New(0),
		Elapsed:    atomicfloat.New(0),
	}
}

// Integrator is the concrete collaborator the stepper owns exclusively;
// aggregators and callbacks only ever see it through the catalog.Integrator
// interface. tstop is the single next-stop-time slot the stepper writes with
// the aggregator's NextJumpTime through registerNextJumpTime; tstops is the separate, stepper-owned queue
// of explicit future stop times (saveat plus user AddTstop calls). Keeping
// these two distinct is the resolution to the "does registering the next
// jump time enqueue a tstop" ambiguity: it never does, it only ever updates
// the single tstop slot the stepper reads each iteration.
type Integrator struct {
	u catalog.State
	p catalog.Params
	t float64

	tstop  float64
	tstops []float64

	terminated bool
	retcode    string

	trajectory []Snapshot
}

// NewIntegrator builds an integrator over u/p starting at t0.
func NewIntegrator(u catalog.State, p catalog.Params, t0 float64) *Integrator {
	return &Integrator{u: u, p: p, t: t0}
}

func (ig *Integrator) U() catalog.State  { return ig.u }
func (ig *Integrator) P() catalog.Params { return ig.p }
func (ig *Integrator) T() float64        { return ig.t }
func (ig *Integrator) SetT(t float64)    { ig.t = t }
func (ig *Integrator) UModified()        {} // state is mutated in place; nothing to resync

// AddTstop schedules a future stop time the stepper must visit even if no
// jump is due then (spec §6: "add_tstop!"). Duplicate and out-of-order
// values are accepted; insertion keeps tstops sorted ascending.
func (ig *Integrator) AddTstop(t float64) {
	i := len(ig.tstops)
	ig.tstops = append(ig.tstops, t)
	for i > 0 && ig.tstops[i-1] > ig.tstops[i] {
		ig.tstops[i-1], ig.tstops[i] = ig.tstops[i], ig.tstops[i-1]
		i--
	}
}

// Terminate stops the simulation at the current time with retcode.
func (ig *Integrator) Terminate(retcode string) {
	ig.terminated = true
	ig.retcode = retcode
}

// Terminated and Retcode expose termination state to the stepper/caller.
func (ig *Integrator) Terminated() bool  { return ig.terminated }
func (ig *Integrator) Retcode() string   { return ig.retcode }
func (ig *Integrator) Trajectory() []Snapshot { return ig.trajectory }

// registerNextJumpTime writes only the single tstop slot, never tstops;
// this is the stepper-internal half of the spec §9 design note.
func (ig *Integrator) registerNextJumpTime(t float64) { ig.tstop = t }

// Stepper drives one aggregator against one integrator to completion.
type Stepper struct {
	integ      *Integrator
	agg        aggregator.Aggregator
	callbacks  []Callback
	saveat     []float64
	lastFlush  float64
	haveFlush  bool
	onSnapshot func(Snapshot)

	stats *Stats
	start time.Time
}

// New builds a stepper over u/p/[t0,tf]. saveat lists the times at which a
// state snapshot is recorded regardless of whether a jump also falls
// there; onSnapshot, if non-nil, is invoked for every recorded snapshot
// (the telemetry server's hook, spec §4.C12).
func New(u catalog.State, p catalog.Params, t0 float64, agg aggregator.Aggregator, saveat []float64, callbacks []Callback, onSnapshot func(Snapshot)) *Stepper {
	return &Stepper{
		integ:      NewIntegrator(u, p, t0),
		agg:        agg,
		callbacks:  callbacks,
		saveat:     append([]float64(nil), saveat...),
		onSnapshot: onSnapshot,
		stats:      newStats(),
	}
}

// Integrator exposes the stepper's owned integrator, e.g. for a caller that
// wants the final trajectory after Run returns.
func (s *Stepper) Integrator() *Integrator { return s.integ }

// Stats exposes the running jump count and wall-clock elapsed time, safe to
// read from a goroutine other than the one calling Run (spec §4.C13).
func (s *Stepper) Stats() *Stats { return s.stats }

// Run drives the simulation from t0 to the aggregator's EndTime, or until a
// callback terminates it early.
func (s *Stepper) Run() error {
	s.start = time.Now()
	defer func() { s.stats.Elapsed.Store(time.Since(s.start).Seconds()) }()

	for _, t := range s.saveat {
		s.integ.AddTstop(t)
	}

	if err := s.agg.Initialize(s.integ.u, s.integ.p, s.integ.t); err != nil {
		return fmt.Errorf("stepper: initialize: %w", err)
	}

	for !s.integ.terminated {
		if err := s.agg.GenerateJumps(s.integ); err != nil {
			return fmt.Errorf("stepper: generate jumps at t=%g: %w", s.integ.t, err)
		}
		nextT := s.agg.NextJumpTime()
		s.integ.registerNextJumpTime(nextT)

		if err := s.drainTstops(nextT); err != nil {
			return err
		}
		if s.integ.terminated {
			break
		}
		if nextT >= s.agg.EndTime() {
			break
		}

		if err := s.agg.ExecuteJumps(s.integ); err != nil {
			return fmt.Errorf("stepper: execute jumps at t=%g: %w", s.integ.t, err)
		}
		s.stats.JumpsFired.Add(1)
		s.stats.Elapsed.Store(time.Since(s.start).Seconds())
	}
	return nil
}

// drainTstops visits every pending explicit stop time at or before bound,
// in ascending order, applying its saveat snapshot and callbacks exactly
// once per distinct time value even if AddTstop registered it more than
// once.
func (s *Stepper) drainTstops(bound float64) error {
	for len(s.integ.tstops) > 0 && s.integ.tstops[0] <= bound {
		t := s.integ.tstops[0]
		s.integ.tstops = s.integ.tstops[1:]
		if s.haveFlush && t == s.lastFlush {
			continue
		}
		s.haveFlush, s.lastFlush = true, t

		s.integ.t = t
		s.recordIfSaveat(t)
		for _, cb := range s.callbacks {
			if cb.Condition != nil && cb.Condition(s.integ) {
				cb.Affect(s.integ)
			}
			if s.integ.terminated {
				return nil
			}
		}
	}
	return nil
}

func (s *Stepper) recordIfSaveat(t float64) {
	for _, st := range s.saveat {
		if st == t {
			snap := Snapshot{
				T:              t,
				U:              s.integ.u.Clone(),
				JumpCount:      int64(s.stats.JumpsFired.Load()),
				AggregatorKind: s.agg.Kind(),
			}
			s.integ.trajectory = append(s.integ.trajectory, snap)
			if s.onSnapshot != nil {
				s.onSnapshot(snap)
			}
			return
		}
	}
}

var _ catalog.Integrator = (*Integrator)(nil)

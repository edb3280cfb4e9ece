package stepper

import (
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"ssacore/aggregator"
	"ssacore/bracket"
	"ssacore/catalog"
	"ssacore/depgraph"
)

func birthDeathSpontaneous() *catalog.JumpSet {
	return &catalog.JumpSet{MassAction: []catalog.MassActionJump{
		{ReactStoch: []catalog.SpeciesStoich{{Species: 0, Coeff: 1}}, NetStoch: []catalog.SpeciesStoich{{Species: 0, Coeff: 1}}, RateConstant: 1},
		{ReactStoch: []catalog.SpeciesStoich{{Species: 0, Coeff: 1}}, NetStoch: []catalog.SpeciesStoich{{Species: 0, Coeff: -1}}, RateConstant: 2},
		{ReactStoch: nil, NetStoch: []catalog.SpeciesStoich{{Species: 0, Coeff: 1}}, RateConstant: 50},
	}}
}

func TestStepperRunRecordsSaveatSnapshots(t *testing.T) {
	Convey("Given an RSSACR-driven birth-death system with saveat times", t, func() {
		js := birthDeathSpontaneous()
		dep := depgraph.Build(js.MassAction)
		rng := rand.New(rand.NewSource(21))
		agg := aggregator.NewRSSACRAggregator(js, dep, bracket.DefaultPolicy, 1, 5.0, rng)

		u := catalog.NewWellMixed([]int64{5})
		saveat := []float64{1.0, 2.0, 3.0, 4.0}

		var seen []float64
		s := New(u, nil, 0, agg, saveat, nil, func(snap Snapshot) {
			seen = append(seen, snap.T)
		})

		Convey("Run completes and visits every saveat time in order", func() {
			So(s.Run(), ShouldBeNil)
			So(len(s.Integrator().Trajectory()), ShouldEqual, 4)
			So(seen, ShouldResemble, saveat)
		})

		Convey("Each snapshot records the running jump count and aggregator kind", func() {
			So(s.Run(), ShouldBeNil)
			traj := s.Integrator().Trajectory()
			for i := 1; i < len(traj); i++ {
				So(traj[i].JumpCount, ShouldBeGreaterThanOrEqualTo, traj[i-1].JumpCount)
			}
			So(traj[len(traj)-1].AggregatorKind, ShouldEqual, "rssacr")
		})

		Convey("Stats report a nonzero jump count and elapsed time after Run", func() {
			So(s.Run(), ShouldBeNil)
			So(s.Stats().JumpsFired.Load(), ShouldBeGreaterThan, 0)
			So(s.Stats().Elapsed.Load(), ShouldBeGreaterThanOrEqualTo, 0)
		})
	})
}

func TestStepperCallbackCanTerminateEarly(t *testing.T) {
	Convey("Given a callback that terminates once X reaches a threshold", t, func() {
		js := birthDeathSpontaneous()
		dep := depgraph.Build(js.MassAction)
		rng := rand.New(rand.NewSource(3))
		agg := aggregator.NewRSSACRAggregator(js, dep, bracket.DefaultPolicy, 1, 1000.0, rng)

		u := catalog.NewWellMixed([]int64{5})
		saveat := []float64{0.5, 1.0, 1.5, 2.0, 2.5, 3.0}

		cb := Callback{
			Condition: func(ig *Integrator) bool { return ig.U().Get(0, 0) >= 30 },
			Affect:    func(ig *Integrator) { ig.Terminate("threshold-reached") },
		}
		s := New(u, nil, 0, agg, saveat, []Callback{cb}, nil)

		Convey("Run stops as soon as the callback fires, not at EndTime", func() {
			So(s.Run(), ShouldBeNil)
			So(s.Integrator().Terminated(), ShouldBeTrue)
			So(s.Integrator().Retcode(), ShouldEqual, "threshold-reached")
		})
	})
}

func TestIntegratorAddTstopKeepsSortedOrder(t *testing.T) {
	Convey("Given an integrator with tstops added out of order", t, func() {
		ig := NewIntegrator(catalog.NewWellMixed([]int64{0}), nil, 0)
		ig.AddTstop(5.0)
		ig.AddTstop(1.0)
		ig.AddTstop(3.0)

		Convey("tstops is sorted ascending", func() {
			So(ig.tstops, ShouldResemble, []float64{1.0, 3.0, 5.0})
		})
	})
}

package aggregator

import (
	"math"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"ssacore/bracket"
	"ssacore/catalog"
	"ssacore/depgraph"
)

func TestRSSACRBirthDeathLongRun(t *testing.T) {
	Convey("Given S1's birth-death-spontaneous system run under RSSACR", t, func() {
		js := birthDeathSpontaneous()
		dep := depgraph.Build(js.MassAction)
		rng := rand.New(rand.NewSource(11))
		agg := NewRSSACRAggregator(js, dep, bracket.DefaultPolicy, 1, 50.0, rng)

		u := catalog.NewWellMixed([]int64{5})
		integ := &testIntegrator{u: u, t: 0}
		So(agg.Initialize(u, nil, 0), ShouldBeNil)

		Convey("Species brackets always contain the true count after each step (P2)", func() {
			// Scaled down from a long-run scenario: enough steps to exercise
			// several bracket refreshes without a multi-second test.
			const steps = 2000
			for i := 0; i < steps; i++ {
				So(agg.GenerateJumps(integ), ShouldBeNil)
				jt := agg.NextJumpTime()
				if math.IsInf(jt, 1) {
					break
				}
				So(agg.ExecuteJumps(integ), ShouldBeNil)

				n := u.Get(0, 0)
				So(agg.engine.IsOutsideBrackets(0, 0, n), ShouldBeFalse)
				So(n, ShouldBeGreaterThanOrEqualTo, 0)
			}
		})
	})
}

func TestRSSACRNoPositiveRateStopsCleanly(t *testing.T) {
	Convey("Given a jump set whose only reaction needs a species count that is zero", t, func() {
		js := &catalog.JumpSet{MassAction: []catalog.MassActionJump{
			{ReactStoch: []catalog.SpeciesStoich{{Species: 0, Coeff: 1}}, NetStoch: []catalog.SpeciesStoich{{Species: 0, Coeff: -1}}, RateConstant: 1},
		}}
		dep := depgraph.Build(js.MassAction)
		rng := rand.New(rand.NewSource(3))
		agg := NewRSSACRAggregator(js, dep, bracket.DefaultPolicy, 1, 10.0, rng)

		u := catalog.NewWellMixed([]int64{0})
		integ := &testIntegrator{u: u, t: 0}
		So(agg.Initialize(u, nil, 0), ShouldBeNil)

		Convey("GenerateJumps reports no next jump instead of looping forever", func() {
			So(agg.GenerateJumps(integ), ShouldBeNil)
			So(agg.NextJump(), ShouldEqual, -1)
			So(math.IsInf(agg.NextJumpTime(), 1), ShouldBeTrue)
		})
	})
}

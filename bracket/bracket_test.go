package bracket

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"ssacore/catalog"
)

func TestPolicyBracket(t *testing.T) {
	Convey("Given the default bracket policy", t, func() {
		p := Policy{Fluct: 0.2, Threshold: 20, Delta: 4}

		Convey("A zero count brackets to (0,0)", func() {
			lo, hi := p.Bracket(0)
			So(lo, ShouldEqual, 0)
			So(hi, ShouldEqual, 0)
		})

		Convey("A count below threshold uses the additive delta band", func() {
			lo, hi := p.Bracket(5)
			So(lo, ShouldEqual, 1)
			So(hi, ShouldEqual, 9)
		})

		Convey("A small count near zero clamps its low bound at 0", func() {
			lo, hi := p.Bracket(2)
			So(lo, ShouldEqual, 0)
			So(hi, ShouldEqual, 6)
		})

		Convey("A count at or above threshold uses the multiplicative band", func() {
			lo, hi := p.Bracket(100)
			So(lo, ShouldEqual, 80)
			So(hi, ShouldEqual, 120)
		})
	})
}

func TestEngineBrackets(t *testing.T) {
	Convey("Given a birth-death jump set and an engine at X=5", t, func() {
		majumps := []catalog.MassActionJump{
			{ReactStoch: []catalog.SpeciesStoich{{Species: 0, Coeff: 1}}, NetStoch: []catalog.SpeciesStoich{{Species: 0, Coeff: 1}}, RateConstant: 1},
			{ReactStoch: []catalog.SpeciesStoich{{Species: 0, Coeff: 1}}, NetStoch: []catalog.SpeciesStoich{{Species: 0, Coeff: -1}}, RateConstant: 2},
			{ReactStoch: nil, NetStoch: []catalog.SpeciesStoich{{Species: 0, Coeff: 1}}, RateConstant: 50},
		}
		js := &catalog.JumpSet{MassAction: majumps}
		u := catalog.NewWellMixed([]int64{5})

		e := NewEngine(Policy{Fluct: 0.2, Threshold: 20, Delta: 4}, js, 1, 1)
		e.UpdateUBrackets(u, 0)

		Convey("Species 0's bracket matches the delta-band policy", func() {
			So(e.IsOutsideBrackets(0, 0, 5), ShouldBeFalse)
			So(e.IsOutsideBrackets(0, 0, 1), ShouldBeFalse)
			So(e.IsOutsideBrackets(0, 0, 0), ShouldBeTrue)
			So(e.IsOutsideBrackets(0, 0, 10), ShouldBeTrue)
		})

		Convey("Reaction brackets respect C(n,coeff) monotonicity", func() {
			e.RefreshReactionBracket(0, nil, 0, 0)
			e.RefreshReactionBracket(1, nil, 0, 0)
			e.RefreshReactionBracket(2, nil, 0, 0)

			So(e.RLo(0, 0), ShouldEqual, 1)
			So(e.RHi(0, 0), ShouldEqual, 9)
			So(e.RLo(1, 0), ShouldEqual, 2)
			So(e.RHi(1, 0), ShouldEqual, 18)
			// The spontaneous jump reads no species, so its bracket is exact.
			So(e.RLo(2, 0), ShouldEqual, 50)
			So(e.RHi(2, 0), ShouldEqual, 50)

			Convey("The true rate always falls within the bracket (I4)", func() {
				trueRate := catalog.EvalMassActionRate(u, 0, majumps)
				So(trueRate, ShouldBeBetweenOrEqual, e.RLo(0, 0), e.RHi(0, 0))
			})
		})
	})
}

func TestGeneralJumpBracketSortsEnvelope(t *testing.T) {
	Convey("Given a general jump whose rate decreases with species count", t, func() {
		gj := catalog.GeneralJump{
			Rate: func(u catalog.State, p catalog.Params, t float64) float64 {
				return 100 - float64(u.Get(0, 0))
			},
		}
		js := &catalog.JumpSet{General: []catalog.GeneralJump{gj}}
		e := NewEngine(Policy{Fluct: 0.2, Threshold: 20, Delta: 4}, js, 1, 1)
		u := catalog.NewWellMixed([]int64{50})
		e.UpdateUBrackets(u, 0)

		Convey("RefreshReactionBracket sorts (rate(lo),rate(hi)) ascending", func() {
			e.RefreshReactionBracket(0, nil, 0, 0)
			So(e.RLo(0, 0), ShouldBeLessThanOrEqualTo, e.RHi(0, 0))
		})
	})
}

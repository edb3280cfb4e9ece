package view

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"ssacore/catalog"
	"ssacore/stepper"
)

func TestConvertWellMixed(t *testing.T) {
	Convey("Given a well-mixed snapshot", t, func() {
		u := catalog.NewWellMixed([]int64{3, 7})
		snap := stepper.Snapshot{T: 1.5, U: u, JumpCount: 12, AggregatorKind: "rssacr"}

		Convey("Convert reports one site with both species counts", func() {
			tv := Convert(snap)
			So(tv.T, ShouldEqual, 1.5)
			So(len(tv.Sites), ShouldEqual, 1)
			So(tv.Sites[0].Counts, ShouldResemble, []int64{3, 7})
		})

		Convey("Convert carries the cumulative jump count and aggregator kind", func() {
			tv := Convert(snap)
			So(tv.JumpCount, ShouldEqual, 12)
			So(tv.Aggregator, ShouldEqual, "rssacr")
		})
	})
}

func TestConvertSpatial(t *testing.T) {
	Convey("Given a spatial snapshot over 3 sites", t, func() {
		u := catalog.NewSpatial(1, 3)
		u.Set(0, 1, 42)
		snap := stepper.Snapshot{T: 9, U: u}

		Convey("Convert reports every site in order", func() {
			tv := Convert(snap)
			So(len(tv.Sites), ShouldEqual, 3)
			So(tv.Sites[1].Counts[0], ShouldEqual, 42)
			So(tv.Sites[0].Site, ShouldEqual, 0)
			So(tv.Sites[2].Site, ShouldEqual, 2)
		})
	})
}

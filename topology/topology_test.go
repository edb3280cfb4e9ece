package topology

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewGrid(t *testing.T) {
	Convey("Given a 3x3 grid without wraparound", t, func() {
		top := NewGrid(3, 3)

		Convey("A corner site has exactly 2 neighbors", func() {
			So(len(top.Neighbors(0)), ShouldEqual, 2)
		})

		Convey("An edge site has exactly 3 neighbors", func() {
			So(len(top.Neighbors(1)), ShouldEqual, 3)
		})

		Convey("The center site has exactly 4 neighbors", func() {
			So(len(top.Neighbors(4)), ShouldEqual, 4)
		})

		Convey("NumSites reports rows*cols", func() {
			So(top.NumSites(), ShouldEqual, 9)
		})
	})
}

func TestNewGridTorus(t *testing.T) {
	Convey("Given a 3x3 torus grid", t, func() {
		top := NewGridTorus(3, 3)

		Convey("Every site has exactly 4 neighbors", func() {
			for site := 0; site < top.NumSites(); site++ {
				So(len(top.Neighbors(site)), ShouldEqual, 4)
			}
		})

		Convey("Neighbors wrap around the edges", func() {
			// site 0 (row0,col0) neighbors should include (row2,col0)=6 and (row0,col2)=2
			neighbors := top.Neighbors(0)
			So(contains(neighbors, 6), ShouldBeTrue)
			So(contains(neighbors, 2), ShouldBeTrue)
		})
	})
}

func contains(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

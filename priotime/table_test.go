package priotime

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTableInsertAndGetFirst(t *testing.T) {
	Convey("Given a window [0,20) split into 4 slots of width 5", t, func() {
		pt := New(0, 5, 4)

		Convey("Entries within the window land in GetFirst order", func() {
			pt.Insert(0, 18.0)
			pt.Insert(1, 2.0)
			pt.Insert(2, 9.0)

			pid, time := pt.GetFirst()
			So(pid, ShouldEqual, 1)
			So(time, ShouldEqual, 2.0)
		})

		Convey("An empty window reports no entry", func() {
			pid, time := pt.GetFirst()
			So(pid, ShouldEqual, -1)
			So(math.IsInf(time, 1), ShouldBeTrue)
		})

		Convey("An entry beyond the window is parked and excluded from GetFirst", func() {
			pt.Insert(0, 999.0)
			pt.Insert(1, 4.0)

			pid, time := pt.GetFirst()
			So(pid, ShouldEqual, 1)
			So(time, ShouldEqual, 4.0)
		})
	})
}

func TestTableUpdateRelocatesSlot(t *testing.T) {
	Convey("Given an entry placed early in the window", t, func() {
		pt := New(0, 5, 4)
		pt.Insert(0, 1.0)
		pt.Insert(1, 16.0)

		Convey("Updating it to a later time changes which entry GetFirst returns", func() {
			pt.Update(0, 17.0)
			pid, _ := pt.GetFirst()
			So(pid, ShouldEqual, 1)
		})

		Convey("Updating it out of the window parks it until a rebuild", func() {
			pt.Update(0, 500.0)
			pid, time := pt.GetFirst()
			So(pid, ShouldEqual, 1)
			So(time, ShouldEqual, 16.0)
		})
	})
}

func TestTableRebuildSlidesWindow(t *testing.T) {
	Convey("Given entries scattered in and out of an initial window", t, func() {
		pt := New(0, 10, 3) // window [0,30)
		pt.Insert(0, 2.0)
		pt.Insert(1, 8.0)
		pt.Insert(2, 13.0)
		pt.Insert(3, 15.0)
		pt.Insert(4, 74.0) // outside the initial window, parked in slot 0

		Convey("Before rebuild, the parked entry is not visible to GetFirst", func() {
			pid, time := pt.GetFirst()
			So(pid, ShouldEqual, 0)
			So(time, ShouldEqual, 2.0)
		})

		Convey("Rebuilding past all in-window entries still leaves the out-of-window entry parked", func() {
			pt.Rebuild(66.0, 0.75) // window [66, 68.25), 74.0 remains out of range
			pid, _ := pt.GetFirst()
			So(pid, ShouldEqual, -1)
		})

		Convey("Rebuilding onto a window containing the previously-parked entry brings it into scope", func() {
			pt.Rebuild(70.0, 10) // window [70, 100)
			pid, time := pt.GetFirst()
			So(pid, ShouldEqual, 4)
			So(time, ShouldEqual, 74.0)
		})
	})
}

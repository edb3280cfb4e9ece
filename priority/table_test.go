package priority

import (
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTableInsertAndSums(t *testing.T) {
	Convey("Given an empty priority table", t, func() {
		pt := New()

		Convey("Inserting priorities keeps gsum consistent with their total (P3)", func() {
			pt.Insert(0, 1.0)
			pt.Insert(1, 4.0)
			pt.Insert(2, 0.0)
			pt.Insert(3, 1e6)

			So(pt.Gsum(), ShouldEqual, 1.0+4.0+1e6)
			So(pt.Priority(2), ShouldEqual, 0)
		})

		Convey("A zero priority lands in the reserved group 0", func() {
			pt.Insert(0, 0.0)
			So(pt.NumGroups(), ShouldBeGreaterThanOrEqualTo, 1)
		})

		Convey("Negative priorities panic", func() {
			So(func() { pt.Insert(0, -1.0) }, ShouldPanic)
		})
	})
}

func TestTableUpdateMovesGroups(t *testing.T) {
	Convey("Given a table with one large priority", t, func() {
		pt := New()
		pt.Insert(0, 1024.0)
		pt.Insert(1, 1.0)
		before := pt.Gsum()

		Convey("Updating a priority within the same order of magnitude keeps the group", func() {
			pt.Update(0, 1024.0, 1100.0)
			So(pt.Gsum(), ShouldAlmostEqual, before+(1100.0-1024.0), 1e-9)
			So(pt.Priority(0), ShouldEqual, 1100.0)
		})

		Convey("Updating a priority across a power-of-two boundary still sums correctly", func() {
			pt.Update(1, 1.0, 5000.0)
			So(pt.Gsum(), ShouldAlmostEqual, before+(5000.0-1.0), 1e-9)
			So(pt.Priority(1), ShouldEqual, 5000.0)
		})

		Convey("Updating a priority down to zero moves it back to the zero bucket", func() {
			pt.Update(1, 1.0, 0.0)
			So(pt.Priority(1), ShouldEqual, 0)
			So(pt.Gsum(), ShouldAlmostEqual, 1024.0, 1e-9)
		})
	})
}

func TestTableSampleIsProportional(t *testing.T) {
	Convey("Given three pids with priorities 1, 3, 6 (total 10)", t, func() {
		pt := New()
		pt.Insert(0, 1.0)
		pt.Insert(1, 3.0)
		pt.Insert(2, 6.0)

		rng := rand.New(rand.NewSource(42))
		counts := make(map[int]int)
		const draws = 200000
		for i := 0; i < draws; i++ {
			pid := pt.Sample(rng)
			So(pid, ShouldBeGreaterThanOrEqualTo, 0)
			counts[pid]++
		}

		Convey("Sampled fractions approximate the priority ratios within 5%", func() {
			f0 := float64(counts[0]) / draws
			f1 := float64(counts[1]) / draws
			f2 := float64(counts[2]) / draws

			So(f0, ShouldAlmostEqual, 0.1, 0.05)
			So(f1, ShouldAlmostEqual, 0.3, 0.05)
			So(f2, ShouldAlmostEqual, 0.6, 0.05)
		})
	})
}

func TestTableSampleEmpty(t *testing.T) {
	Convey("Given a table with only zero priorities", t, func() {
		pt := New()
		pt.Insert(0, 0.0)
		pt.Insert(1, 0.0)

		Convey("Sample reports no positive priority available", func() {
			rng := rand.New(rand.NewSource(1))
			So(pt.Sample(rng), ShouldEqual, -1)
		})
	})
}

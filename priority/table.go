// Package priority implements the two-level grouped-log priority table
// (spec §3/§4.C3): O(1) expected weighted sampling and O(1) expected
// update over N positive priorities spanning a wide dynamic range.
package priority

import (
	"math"
	"math/rand"
)

type group struct {
	pids []int
	gsum float64
}

type location struct {
	gid int
	idx int
}

// Table is the grouped-log priority table. Groups are indexed by
// gid = floor(log2(r)) - minExp; group 0 is reserved for priorities of
// exactly zero. pidToGroup and priorities are parallel arenas indexed by
// pid (not owning pointers), per the design note on cyclic back-pointers.
type Table struct {
	minExp    int
	minExpSet bool

	groups     []group
	pidToGroup []location
	priorities []float64
	gsum       float64
}

// New returns an empty priority table.
func New() *Table {
	return &Table{groups: []group{{}}} // group 0 always exists (the zero bucket)
}

// Gsum returns the grand total of all priorities (I5).
func (t *Table) Gsum() float64 { return t.gsum }

// NumGroups returns the number of allocated groups, including group 0.
func (t *Table) NumGroups() int { return len(t.groups) }

// Priority returns the currently stored priority for pid.
func (t *Table) Priority(pid int) float64 {
	if pid >= len(t.priorities) {
		return 0
	}
	return t.priorities[pid]
}

func prioToGid(r float64, minExp int) int {
	if r == 0 {
		return 0
	}
	gid := int(math.Floor(math.Log2(r))) - minExp
	if gid < 1 {
		// Defensive clamp: a priority smaller than the table's working range
		// still belongs to a nonzero group, never the reserved zero bucket.
		gid = 1
	}
	return gid
}

func groupMax(gid, minExp int) float64 {
	return math.Pow(2, float64(gid+minExp+1))
}

func (t *Table) ensureMinExp(r float64) {
	if !t.minExpSet && r > 0 {
		t.minExp = int(math.Floor(math.Log2(r))) - 1
		t.minExpSet = true
	}
}

func (t *Table) ensurePidCapacity(pid int) {
	if pid < len(t.priorities) {
		return
	}
	grown := make([]float64, pid+1)
	copy(grown, t.priorities)
	t.priorities = grown

	grownLoc := make([]location, pid+1)
	copy(grownLoc, t.pidToGroup)
	t.pidToGroup = grownLoc
}

func (t *Table) ensureGroupCapacity(gid int) {
	for gid >= len(t.groups) {
		t.groups = append(t.groups, group{})
	}
}

// Insert adds pid with priority r. Negative priorities are a domain error
// and panic, per spec §7 ("negative priority inserted into PT" is a domain
// error the caller must never trigger).
func (t *Table) Insert(pid int, r float64) {
	if r < 0 {
		panic("priority: negative priority inserted into PT")
	}
	t.ensureMinExp(r)
	t.ensurePidCapacity(pid)

	gid := prioToGid(r, t.minExp)
	t.ensureGroupCapacity(gid)

	t.groups[gid].pids = append(t.groups[gid].pids, pid)
	t.pidToGroup[pid] = location{gid: gid, idx: len(t.groups[gid].pids) - 1}
	t.groups[gid].gsum += r
	t.priorities[pid] = r
	t.gsum += r
}

// Update changes pid's priority from rOld to rNew, moving it between groups
// if its log2-bucket changes.
func (t *Table) Update(pid int, rOld, rNew float64) {
	if rNew < 0 {
		panic("priority: negative priority inserted into PT")
	}
	t.ensureMinExp(rNew)

	loc := t.pidToGroup[pid]
	gidOld := loc.gid
	gidNew := prioToGid(rNew, t.minExp)

	if gidNew == gidOld {
		t.groups[gidOld].gsum += rNew - rOld
		t.gsum += rNew - rOld
		t.priorities[pid] = rNew
		return
	}

	t.removeFromGroup(pid, loc)
	t.groups[gidOld].gsum -= rOld

	t.ensureGroupCapacity(gidNew)
	t.groups[gidNew].pids = append(t.groups[gidNew].pids, pid)
	t.pidToGroup[pid] = location{gid: gidNew, idx: len(t.groups[gidNew].pids) - 1}
	t.groups[gidNew].gsum += rNew

	t.gsum += rNew - rOld
	t.priorities[pid] = rNew
}

// removeFromGroup swap-removes pid from its old group, fixing up the
// back-pointer of whichever pid was moved into its slot.
func (t *Table) removeFromGroup(pid int, loc location) {
	g := &t.groups[loc.gid]
	last := len(g.pids) - 1
	moved := g.pids[last]
	g.pids[loc.idx] = moved
	g.pids = g.pids[:last]
	if moved != pid {
		t.pidToGroup[moved] = location{gid: loc.gid, idx: loc.idx}
	}
}

// Sample draws a pid with probability proportional to its priority: first
// pick a group proportional to groups[g].gsum/gsum, then rejection-sample
// within the group against 2^(gid+minExp+1), the group's priority
// ceiling. Returns -1 if the table holds no positive priority.
func (t *Table) Sample(rng *rand.Rand) int {
	if t.gsum <= 0 {
		return -1
	}

	v := rng.Float64() * t.gsum
	gid := 0
	acc := 0.0
	for i := 1; i < len(t.groups); i++ {
		acc += t.groups[i].gsum
		if v <= acc {
			gid = i
			break
		}
		gid = i
	}

	gmax := groupMax(gid, t.minExp)
	g := &t.groups[gid]
	for {
		slot := rng.Intn(len(g.pids))
		pid := g.pids[slot]
		if rng.Float64()*gmax <= t.priorities[pid] {
			return pid
		}
	}
}

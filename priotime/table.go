// Package priotime implements the windowed priority-time table (spec
// §3/§4.C4): a sliding window [t0,t0+W) partitioned into K equal slots,
// used for NRM-style "next jump time" scheduling without a full sort.
package priotime

import "math"

type location struct {
	slot int
	idx  int
}

// Table is the windowed priority-time table. Slot 0 is reserved for
// entries whose time currently falls outside the window, mirroring the
// priority table's reserved zero-bucket convention; real window slots are
// 1..NGroups, slot g covering [mintime+(g-1)*timestep, mintime+g*timestep).
type Table struct {
	mintime  float64
	timestep float64
	ngroups  int

	slots    [][]int
	times    []float64
	pidToLoc []location
}

// New builds a windowed priority-time table over [mintime, mintime+timestep*ngroups).
func New(mintime, timestep float64, ngroups int) *Table {
	return &Table{
		mintime:  mintime,
		timestep: timestep,
		ngroups:  ngroups,
		slots:    make([][]int, ngroups+1),
	}
}

// Window returns the table's current (mintime, width) bounds.
func (t *Table) Window() (mintime, width float64) {
	return t.mintime, t.timestep * float64(t.ngroups)
}

func (t *Table) slotFor(time float64) int {
	if t.ngroups == 0 || time < t.mintime {
		return 0
	}
	g := 1 + int((time-t.mintime)/t.timestep)
	if g < 1 || g > t.ngroups {
		return 0
	}
	return g
}

func (t *Table) ensureCapacity(pid int) {
	if pid < len(t.times) {
		return
	}
	times := make([]float64, pid+1)
	copy(times, t.times)
	t.times = times

	locs := make([]location, pid+1)
	copy(locs, t.pidToLoc)
	t.pidToLoc = locs
}

// Insert places pid at the given absolute time.
func (t *Table) Insert(pid int, time float64) {
	t.ensureCapacity(pid)
	slot := t.slotFor(time)
	t.slots[slot] = append(t.slots[slot], pid)
	t.pidToLoc[pid] = location{slot: slot, idx: len(t.slots[slot]) - 1}
	t.times[pid] = time
}

func (t *Table) removeFromSlot(pid int, loc location) {
	s := t.slots[loc.slot]
	last := len(s) - 1
	moved := s[last]
	s[loc.idx] = moved
	t.slots[loc.slot] = s[:last]
	if moved != pid {
		t.pidToLoc[moved] = location{slot: loc.slot, idx: loc.idx}
	}
}

// Update moves pid to a new absolute time, relocating it between slots if
// its window slot changes.
func (t *Table) Update(pid int, newTime float64) {
	loc := t.pidToLoc[pid]
	newSlot := t.slotFor(newTime)
	if newSlot == loc.slot {
		t.times[pid] = newTime
		return
	}
	t.removeFromSlot(pid, loc)
	t.slots[newSlot] = append(t.slots[newSlot], pid)
	t.pidToLoc[pid] = location{slot: newSlot, idx: len(t.slots[newSlot]) - 1}
	t.times[pid] = newTime
}

// GetFirst returns the pid with the smallest time currently inside the
// window, scanning slots in order and breaking ties within a slot by exact
// comparison. Returns (-1, +Inf) if the window holds no entries.
func (t *Table) GetFirst() (pid int, time float64) {
	for g := 1; g <= t.ngroups; g++ {
		s := t.slots[g]
		if len(s) == 0 {
			continue
		}
		best := s[0]
		for _, candidate := range s[1:] {
			if t.times[candidate] < t.times[best] {
				best = candidate
			}
		}
		return best, t.times[best]
	}
	return -1, math.Inf(1)
}

// Rebuild slides the window to a new (mintime, timestep) and re-buckets
// every tracked pid accordingly; entries that fall outside the new window
// are parked in slot 0 until a later rebuild brings the window to them.
// This is the O(N) "rebuild" operation spec §4.C4 calls for when GetFirst's
// window is exhausted.
func (t *Table) Rebuild(mintime, timestep float64) {
	t.mintime = mintime
	t.timestep = timestep

	oldTimes := t.times
	oldSlots := t.slots

	t.slots = make([][]int, t.ngroups+1)
	t.pidToLoc = make([]location, len(oldTimes))

	for _, s := range oldSlots {
		for _, pid := range s {
			slot := t.slotFor(oldTimes[pid])
			t.slots[slot] = append(t.slots[slot], pid)
			t.pidToLoc[pid] = location{slot: slot, idx: len(t.slots[slot]) - 1}
		}
	}
}

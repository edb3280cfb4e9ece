// Package view converts stepper snapshots into JSON-friendly view models
// for the telemetry server (spec §4.C12), the same role cell_views plays
// for the teacher's grid_world states.
package view

import "ssacore/stepper"

// SiteView is one lattice site's species counts, flattened for JSON.
type SiteView struct {
	Site   int     `json:"site"`
	Counts []int64 `json:"counts"`
}

// TrajectorySnapshot is the wire shape published to telemetry viewers: the
// simulation time, every site's species counts at that time, the cumulative
// jump count, and which aggregator produced it (spec §4.C12). A well-mixed
// run reports a single site.
type TrajectorySnapshot struct {
	T          float64    `json:"t"`
	Sites      []SiteView `json:"sites"`
	JumpCount  int64      `json:"jump_count"`
	Aggregator string     `json:"aggregator"`
}

// Convert transforms a stepper snapshot into its view model.
func Convert(snap stepper.Snapshot) TrajectorySnapshot {
	u := snap.U
	sites := make([]SiteView, u.NumSites())
	for site := range sites {
		counts := make([]int64, u.NumSpecies())
		for sp := range counts {
			counts[sp] = u.Get(sp, site)
		}
		sites[site] = SiteView{Site: site, Counts: counts}
	}
	return TrajectorySnapshot{
		T:          snap.T,
		Sites:      sites,
		JumpCount:  snap.JumpCount,
		Aggregator: snap.AggregatorKind,
	}
}

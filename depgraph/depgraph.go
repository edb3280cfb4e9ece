// Package depgraph builds the jump dependency graph (spec §3/§4.C5): for
// each jump k, the set of jumps whose rate depends on a species that k's
// firing writes. Aggregators use this to know which rates to recompute
// after a jump fires, instead of recomputing every rate every step.
package depgraph

import "ssacore/catalog"

// Graph is an adjacency list, Deps[k] being the sorted, de-duplicated list
// of jump indices that must be re-evaluated after jump k fires. A jump is
// always present in its own dependency list (self-edges are forced, per
// spec: a jump's own rate generally depends on the species it writes).
//
// BySpecies[sp] lists the jump indices whose rate reads species sp,
// the var-to-jumps direction of the same dependency data. Deps answers
// "jump k fired, what else needs refreshing"; BySpecies answers "species
// sp changed by some means other than one of these jumps firing (a
// spatial hop, an externally driven count), what needs refreshing" --
// the aggregator.RSSACRDirectAggregator case, since a hop's effect on a
// site isn't itself a member of the local reaction set.
type Graph struct {
	Deps      [][]int
	BySpecies map[int][]int
}

// Build constructs the dependency graph for a mass-action-only jump set,
// inferring reads/writes from stoichiometry.
func Build(majumps []catalog.MassActionJump) *Graph {
	n := len(majumps)
	writes := make([][]int, n) // species written by jump k's net stoichiometry
	reads := make([][]int, n)  // species read by jump k's propensity

	for k, j := range majumps {
		for _, ns := range j.NetStoch {
			writes[k] = append(writes[k], ns.Species)
		}
		for _, rs := range j.ReactStoch {
			reads[k] = append(reads[k], rs.Species)
		}
	}
	return build(n, writes, reads)
}

// BuildWithVars constructs the dependency graph when some jumps are general
// jumps whose reads can't be inferred from stoichiometry; varsRead[k] gives
// the explicit "jump_to_vars_map" the spec requires for such jumps. Entries
// of varsRead may be nil for mass-action jumps, whose reads are inferred; a
// general jump with no (or a nil) varsRead entry falls back to its own
// GeneralJump.VarsRead.
func BuildWithVars(js *catalog.JumpSet, varsRead [][]int) *Graph {
	n := js.NumJumps()
	writes := make([][]int, n)
	reads := make([][]int, n)

	for k := 0; k < n; k++ {
		if js.IsMassAction(k) {
			j := &js.MassAction[k]
			for _, ns := range j.NetStoch {
				writes[k] = append(writes[k], ns.Species)
			}
			for _, rs := range j.ReactStoch {
				reads[k] = append(reads[k], rs.Species)
			}
			continue
		}
		reads[k] = js.General[js.GeneralIndex(k)].VarsRead
		if k < len(varsRead) && varsRead[k] != nil {
			reads[k] = varsRead[k]
		}
	}
	return build(n, writes, reads)
}

func build(n int, writes, reads [][]int) *Graph {
	g := &Graph{Deps: make([][]int, n), BySpecies: make(map[int][]int)}
	bySpecies := make(map[int]map[int]bool)
	for k := 0; k < n; k++ {
		seen := make(map[int]bool)
		seen[k] = true // self-edges forced
		// A jump k's firing changes the species in writes[k]; any jump whose
		// reads intersect that write set must be re-evaluated.
		for dependent := 0; dependent < n; dependent++ {
			if intersects(writes[k], reads[dependent]) {
				seen[dependent] = true
			}
		}
		g.Deps[k] = sortedKeys(seen)

		for _, sp := range reads[k] {
			if bySpecies[sp] == nil {
				bySpecies[sp] = make(map[int]bool)
			}
			bySpecies[sp][k] = true
		}
	}
	for sp, set := range bySpecies {
		g.BySpecies[sp] = sortedKeys(set)
	}
	return g
}

func intersects(a, b []int) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[int]bool, len(a))
	for _, x := range a {
		set[x] = true
	}
	for _, y := range b {
		if set[y] {
			return true
		}
	}
	return false
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	// Small N per jump in practice; insertion sort keeps this dependency-free.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

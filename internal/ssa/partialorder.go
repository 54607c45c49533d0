package ssa

import "sort"

// This file implements Partial Order Construction (spec §4.7): turning
// the recurrence set into an ordered sequence of node sets that Node
// Ordering (§4.8) will linearize.

// PartialOrderSet is one set in the partial order built from the
// recurrences, in the order §4.7 produces them.
type PartialOrderSet struct {
	Nodes []*DepNode
}

// BuildPartialOrder processes recs in descending MinII order. Each
// recurrence contributes whichever of its nodes haven't already been
// claimed by an earlier (higher-MinII) set. The first (highest) set
// additionally seeds in any not-yet-placed predecessor of its nodes,
// following non-ignored edges. A final set collects every node no
// recurrence touched.
func BuildPartialOrder(g *DependenceGraph, recs []Recurrence) []PartialOrderSet {
	sorted := make([]Recurrence, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinII > sorted[j].MinII })

	placed := make(map[*DepNode]bool, len(g.Nodes))
	var sets []PartialOrderSet

	for i, rec := range sorted {
		var remaining []*DepNode
		for _, n := range rec.Nodes {
			if !placed[n] {
				remaining = append(remaining, n)
				placed[n] = true
			}
		}
		if len(remaining) == 0 {
			continue
		}
		if i == 0 {
			remaining = append(remaining, seedPredecessors(g, remaining, placed)...)
		}
		sets = append(sets, PartialOrderSet{Nodes: remaining})
	}

	var rest []*DepNode
	for _, n := range g.Nodes {
		if !placed[n] {
			rest = append(rest, n)
			placed[n] = true
		}
	}
	if len(rest) > 0 {
		sets = append(sets, PartialOrderSet{Nodes: rest})
	}
	return sets
}

// seedPredecessors returns the not-yet-placed predecessors (respecting
// the ignore-set) of every node in set, marking them placed as they're
// found so each is only seeded once.
func seedPredecessors(g *DependenceGraph, set []*DepNode, placed map[*DepNode]bool) []*DepNode {
	var seeded []*DepNode
	for _, n := range set {
		for _, e := range n.Preds {
			if g.ignored(e) {
				continue
			}
			p := e.From
			if !placed[p] {
				placed[p] = true
				seeded = append(seeded, p)
			}
		}
	}
	return seeded
}

package ssa

// This file implements II Initialization (spec §4.6): ResMII from
// target resource pressure, RecMII from recurrence delay/distance, and
// their max as the search's starting II.

// ResMII computes max over resource r of
// ceil(use(r) / min(capacity(r), issueSlots)), where use(r) is the
// total count of uses of resource r across one iteration of the loop
// block (the original's calculateResMII walks each instruction's full
// multi-cycle resource-usage vector, not just its first cycle).
func ResMII(g *DependenceGraph, ti TargetInfo) int {
	use := map[ResourceID]int{}
	for _, n := range g.Nodes {
		for _, cycleResources := range ti.ResourceUsage(n.Instr.Op) {
			for _, r := range cycleResources {
				use[r]++
			}
		}
	}
	slots := ti.IssueSlots()
	best := 1
	for r, count := range use {
		cap := ti.ResourceCapacity(r)
		denom := cap
		if slots < denom {
			denom = slots
		}
		if denom <= 0 {
			denom = 1
		}
		v := ceilDiv(count, denom)
		if v > best {
			best = v
		}
	}
	return best
}

// RecMII returns the maximum MinII contribution across every
// recurrence found by FindRecurrences. Per spec §9 Open Question (a),
// this returns the true maximum, not the last-computed recurrence's
// MinII — the original ModuloScheduling.cpp's calculateRecMII instead
// returns the running `MII` local at the end of its loop, which can
// drift below the true max; this implementation deliberately fixes
// that.
func RecMII(recs []Recurrence) int {
	best := 1
	for _, r := range recs {
		if r.MinII > best {
			best = r.MinII
		}
	}
	return best
}

// InitialII returns max(ResMII, RecMII), the II the schedule search
// starts from (spec §4.6).
func InitialII(resMII, recMII int) int {
	if resMII > recMII {
		return resMII
	}
	return recMII
}

package ssa

// This file implements Schedule Search (spec §4.9): trying successive
// II values until one admits every node of FinalOrder without
// violating resource capacity (I1) or dependence latency (I2), then
// compacting the result into a single-II-window Kernel.

// Schedule is the scheduler's working state: which cycle each node was
// placed at, and the modular resource occupancy that cycle induced.
// It is rebuilt from scratch on every II attempt (design note "Global
// mutable kernel state": an explicit value, reset by discarding it,
// never rewound in place).
type Schedule struct {
	II          int
	cycle       map[*DepNode]int
	resourceUse map[[2]int]int // (resource, cycle mod II) -> count
}

func newSchedule(ii int) *Schedule {
	return &Schedule{II: ii, cycle: make(map[*DepNode]int), resourceUse: make(map[[2]int]int)}
}

// Cycle returns the cycle node n was scheduled at.
func (s *Schedule) Cycle(n *DepNode) (int, bool) {
	c, ok := s.cycle[n]
	return c, ok
}

// Stage returns floor(cycle/II), the stage number of n.
func (s *Schedule) Stage(n *DepNode) int {
	c := s.cycle[n]
	if c >= 0 {
		return c / s.II
	}
	return (c - s.II + 1) / s.II
}

// canPlace reports whether scheduling instr at absolute cycle c would
// leave every resource within capacity at every cycle it occupies,
// without committing the placement.
func (s *Schedule) canPlace(ti TargetInfo, instr *Instruction, c int) bool {
	usage := ti.ResourceUsage(instr.Op)
	for offset, resources := range usage {
		slot := mod(c+offset, s.II)
		counts := map[ResourceID]int{}
		for _, r := range resources {
			counts[r]++
		}
		for r, want := range counts {
			have := s.resourceUse[[2]int{int(r), slot}]
			if have+want > ti.ResourceCapacity(r) {
				return false
			}
		}
	}
	return true
}

// place commits instr's resource usage at cycle c and records n's
// cycle.
func (s *Schedule) place(ti TargetInfo, n *DepNode, c int) {
	usage := ti.ResourceUsage(n.Instr.Op)
	for offset, resources := range usage {
		slot := mod(c+offset, s.II)
		for _, r := range resources {
			s.resourceUse[[2]int{int(r), slot}]++
		}
	}
	s.cycle[n] = c
}

func mod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

// MaxIICap bounds the II search: spec §5's timeout is the number of
// instructions in the loop block.
func MaxIICap(g *DependenceGraph) int {
	n := len(g.Nodes)
	if n == 0 {
		return 1
	}
	return n
}

// Search runs the II-increment loop of §4.9: starting at startII, it
// tries to place every node of order, and on success checks the
// placement with verify; on either failure it increments II and
// restarts from scratch. The bound is MaxIICap, raised to startII when
// startII is larger, so startII itself is always attempted. Returns
// ErrScheduleInfeasible once II passes that bound.
func Search(g *DependenceGraph, ti TargetInfo, order []*DepNode, startII int, b *Block) (*Schedule, error) {
	maxII := MaxIICap(g)
	if maxII < startII {
		maxII = startII
	}
	for ii := startII; ii <= maxII; ii++ {
		InvalidateAttributes(g)
		ComputeAttributes(g, ii)
		sched, ok := attempt(g, ti, order, ii)
		if !ok {
			b.Func.Log.Trace().Int("ii", ii).Msg("II rejected: placement failed")
			continue
		}
		if verify(g, sched) {
			return sched, nil
		}
		b.Func.Log.Trace().Int("ii", ii).Msg("II rejected: failed verification")
	}
	return nil, scheduleInfeasible(b, maxII)
}

// attempt tries to place every node of order at the given II,
// following the EarlyStart/LateStart window rules of §4.9 steps 1-7.
func attempt(g *DependenceGraph, ti TargetInfo, order []*DepNode, ii int) (*Schedule, bool) {
	s := newSchedule(ii)
	for _, n := range order {
		if !placeNode(g, ti, s, n, ii) {
			return nil, false
		}
	}
	return s, true
}

func placeNode(g *DependenceGraph, ti TargetInfo, s *Schedule, n *DepNode, ii int) bool {
	hasPred, earlyStart := scheduledBound(g, s, n.Preds, ii, true)
	hasSucc, lateStart := scheduledBound(g, s, n.Succs, ii, false)

	var lo, hi int
	var forward bool
	switch {
	case hasPred && hasSucc:
		lo, hi, forward = earlyStart, min(lateStart, earlyStart+ii-1), true
	case hasPred:
		lo, hi, forward = earlyStart, earlyStart+ii-1, true
	case hasSucc:
		lo, hi, forward = lateStart-ii+1, lateStart, false
	default:
		lo, hi, forward = n.asap, n.asap+ii-1, true
	}

	if ti.IsBranch(n.Instr.Op) {
		// Branches are forced to the last cycle of the II window
		// (spec §4.9 step 5); search only that one cycle.
		forcedLo := lo - mod(lo, ii) + (ii - 1)
		for forcedLo < lo {
			forcedLo += ii
		}
		return tryInsert(ti, s, n, forcedLo)
	}

	if forward {
		for c := lo; c <= hi; c++ {
			if tryInsert(ti, s, n, c) {
				return true
			}
		}
	} else {
		for c := hi; c >= lo; c-- {
			if tryInsert(ti, s, n, c) {
				return true
			}
		}
	}
	return false
}

func tryInsert(ti TargetInfo, s *Schedule, n *DepNode, c int) bool {
	if !s.canPlace(ti, n.Instr, c) {
		return false
	}
	s.place(ti, n, c)
	return true
}

// scheduledBound scans edges for already-scheduled endpoints
// (respecting the ignore-set) and returns the tightest EarlyStart (for
// preds, the max) or LateStart (for succs, the min).
func scheduledBound(g *DependenceGraph, s *Schedule, edges []*DepEdge, ii int, forPreds bool) (bool, int) {
	any := false
	best := 0
	for _, e := range edges {
		if g.ignored(e) {
			continue
		}
		var other *DepNode
		if forPreds {
			other = e.From
		} else {
			other = e.To
		}
		c, ok := s.Cycle(other)
		if !ok {
			continue
		}
		// In n.Preds, e.From is the predecessor u and e.To is n; in
		// n.Succs, e.From is n itself and e.To is the successor w. So
		// e.From.Latency is latency(u) in the EarlyStart case and
		// latency(n) in the LateStart case, exactly as §4.9 needs.
		var val int
		if forPreds {
			val = c + e.From.Latency - e.Delta*ii
		} else {
			val = c - e.From.Latency + e.Delta*ii
		}
		if forPreds {
			if !any || val > best {
				best = val
			}
		} else {
			if !any || val < best {
				best = val
			}
		}
		any = true
	}
	return any, best
}

// verify checks invariants I1 (no modular resource over-subscription,
// already enforced incrementally by canPlace) and I2 (for every edge
// u->v with delta, cycle(v)-cycle(u) >= latency(u)-delta*II) over the
// fully placed schedule (spec §3 Schedule invariants).
func verify(g *DependenceGraph, s *Schedule) bool {
	for _, n := range g.Nodes {
		for _, e := range n.Succs {
			cu, ok1 := s.Cycle(e.From)
			cv, ok2 := s.Cycle(e.To)
			if !ok1 || !ok2 {
				return false
			}
			if cv-cu < e.From.Latency-e.Delta*s.II {
				return false
			}
		}
	}
	return true
}

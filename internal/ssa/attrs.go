package ssa

// This file implements Node Attribute Computation (spec §4.4): ASAP,
// ALAP, MOB, Depth, and Height, by memoized post-order traversal over
// the dependence graph with the recurrence-chosen back-edges skipped
// (design note "Recursive-descent attribute memoization").

// ComputeAttributes fills in ASAP/ALAP/MOB/Depth/Height for every node
// of g, for the given II. Attributes are memoized on the node and
// invalidated by InvalidateAttributes whenever II changes (spec §4.4).
func ComputeAttributes(g *DependenceGraph, ii int) {
	for _, n := range g.Nodes {
		n.attrsValid = false
	}
	asapOrder := topoOrder(g, false)
	for _, n := range asapOrder {
		n.asap = computeASAP(g, n, ii)
	}
	maxASAP := 0
	for _, n := range g.Nodes {
		if n.asap > maxASAP {
			maxASAP = n.asap
		}
	}
	alapOrder := topoOrder(g, true)
	for _, n := range alapOrder {
		n.alap = computeALAP(g, n, ii, maxASAP)
	}
	for _, n := range g.Nodes {
		n.mob = n.alap - n.asap
		if n.mob < 0 {
			n.mob = 0
		}
	}
	depthOrder := asapOrder
	for _, n := range depthOrder {
		n.depth = computeDepth(g, n)
	}
	heightOrder := alapOrder
	for _, n := range heightOrder {
		n.height = computeHeight(g, n)
	}
	for _, n := range g.Nodes {
		n.attrsValid = true
	}
}

// InvalidateAttributes marks all of g's node attributes stale. Callers
// must call ComputeAttributes again with the new II before reading
// ASAP/ALAP/MOB/Depth/Height.
func InvalidateAttributes(g *DependenceGraph) {
	for _, n := range g.Nodes {
		n.attrsValid = false
	}
}

// topoOrder returns g's nodes in a valid topological order over the
// ignore-set-filtered edges: predecessors-before-successors when
// reverse is false (for ASAP/Depth), successors-before-predecessors
// when reverse is true (for ALAP/Height). Implemented as a DFS
// postorder, which is always a valid reverse topological order on a
// DAG.
func topoOrder(g *DependenceGraph, reverse bool) []*DepNode {
	seen := make([]bool, len(g.Nodes))
	order := make([]*DepNode, 0, len(g.Nodes))
	var visit func(n *DepNode)
	visit = func(n *DepNode) {
		if seen[n.index] {
			return
		}
		seen[n.index] = true
		edges := n.Succs
		if reverse {
			edges = n.Preds
		}
		for _, e := range edges {
			if g.ignored(e) {
				continue
			}
			next := e.To
			if reverse {
				next = e.From
			}
			visit(next)
		}
		order = append(order, n)
	}
	for _, n := range g.Nodes {
		visit(n)
	}
	// order is a reverse-topological order over the chosen direction;
	// for ASAP/Depth (reverse==false) the DFS postorder over successor
	// edges yields successors first, so reversing it puts predecessors
	// first. For ALAP/Height (reverse==true) the DFS postorder over
	// predecessor edges yields predecessors first, so reversing it puts
	// successors first.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// computeASAP implements ASAP(v) = max over in-edges u->v of
// ASAP(u)+latency(u)-delta*II, clamped to >=0; seed nodes (no
// in-edges after the ignore-set) are 0.
func computeASAP(g *DependenceGraph, v *DepNode, ii int) int {
	best := 0
	any := false
	for _, e := range v.Preds {
		if g.ignored(e) {
			continue
		}
		any = true
		val := e.From.asap + e.From.Latency - e.Delta*ii
		if val > best || !any {
			best = val
		}
	}
	if best < 0 {
		best = 0
	}
	return best
}

// computeALAP implements ALAP(v): if v has no out-edges (after the
// ignore-set) then maxASAP; else min over out-edges v->w of
// ALAP(w)-latency(v)+delta*II, clamped to >=0.
func computeALAP(g *DependenceGraph, v *DepNode, ii, maxASAP int) int {
	best := -1
	for _, e := range v.Succs {
		if g.ignored(e) {
			continue
		}
		val := e.To.alap - v.Latency + e.Delta*ii
		if best == -1 || val < best {
			best = val
		}
	}
	if best == -1 {
		best = maxASAP
	}
	if best < 0 {
		best = 0
	}
	return best
}

// computeDepth implements Depth(v) = max over predecessors u of
// Depth(u)+latency(u).
func computeDepth(g *DependenceGraph, v *DepNode) int {
	best := 0
	for _, e := range v.Preds {
		if g.ignored(e) {
			continue
		}
		val := e.From.depth + e.From.Latency
		if val > best {
			best = val
		}
	}
	return best
}

// computeHeight implements Height(v) = max over successors w of
// Height(w)+latency(v).
func computeHeight(g *DependenceGraph, v *DepNode) int {
	best := 0
	for _, e := range v.Succs {
		if g.ignored(e) {
			continue
		}
		val := e.To.height + v.Latency
		if val > best {
			best = val
		}
	}
	return best
}

// ASAP, ALAP, MOB, Depth, Height expose the memoized attributes.
func (n *DepNode) ASAP() int   { return n.asap }
func (n *DepNode) ALAP() int   { return n.alap }
func (n *DepNode) MOB() int    { return n.mob }
func (n *DepNode) Depth() int  { return n.depth }
func (n *DepNode) Height() int { return n.height }

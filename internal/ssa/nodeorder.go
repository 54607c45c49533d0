package ssa

import "container/heap"

// This file implements Node Ordering (spec §4.8): linearizing the
// partial-order sets built by §4.7 into the single FinalOrder the
// schedule search walks. The working set `I` of candidate nodes is
// repeatedly reduced to its best-ranked member (max Height/min MOB
// going top-down, max Depth/min MOB going bottom-up); a binary heap is
// the natural standard-library structure for that shrinking-worklist
// shape (see SPEC_FULL.md's domain-stack note: no pack dependency
// offers a priority queue, and the teacher's own package reaches for
// container/heap in comparable worklist passes).

type direction uint8

const (
	topDown direction = iota
	bottomUp
)

// nodeHeap is a container/heap.Interface over DepNodes, ranked by a
// pluggable "better" relation (max Height/min MOB, or max Depth/min
// MOB).
type nodeHeap struct {
	nodes  []*DepNode
	better func(a, b *DepNode) bool
}

func (h *nodeHeap) Len() int            { return len(h.nodes) }
func (h *nodeHeap) Less(i, j int) bool  { return h.better(h.nodes[i], h.nodes[j]) }
func (h *nodeHeap) Swap(i, j int)       { h.nodes[i], h.nodes[j] = h.nodes[j], h.nodes[i] }
func (h *nodeHeap) Push(x interface{})  { h.nodes = append(h.nodes, x.(*DepNode)) }
func (h *nodeHeap) Pop() interface{} {
	old := h.nodes
	n := len(old)
	item := old[n-1]
	h.nodes = old[:n-1]
	return item
}

func topDownBetter(a, b *DepNode) bool {
	if a.height != b.height {
		return a.height > b.height
	}
	return a.mob < b.mob
}

func bottomUpBetter(a, b *DepNode) bool {
	if a.depth != b.depth {
		return a.depth > b.depth
	}
	return a.mob < b.mob
}

// OrderNodes linearizes g's partial-order sets into a single
// FinalOrder, the sequence the schedule search (§4.9) walks.
func OrderNodes(g *DependenceGraph, sets []PartialOrderSet) []*DepNode {
	var final []*DepNode
	inFinal := make(map[*DepNode]bool, len(g.Nodes))
	dir := topDown

	for _, set := range sets {
		inSet := make(map[*DepNode]bool, len(set.Nodes))
		for _, n := range set.Nodes {
			inSet[n] = true
		}

		I := predecessorsOf(g, final, inSet, inFinal)
		if len(I) > 0 {
			dir = bottomUp
		} else {
			I = successorsOf(g, final, inSet, inFinal)
			if len(I) > 0 {
				dir = topDown
			}
		}
		if len(I) == 0 {
			// Both empty: seed with the set's max-ASAP node and go
			// bottom-up (spec §4.8).
			var best *DepNode
			for _, n := range set.Nodes {
				if inFinal[n] {
					continue
				}
				if best == nil || n.asap > best.asap {
					best = n
				}
			}
			if best == nil {
				continue
			}
			I = []*DepNode{best}
			dir = bottomUp
		}

		h := &nodeHeap{better: topDownBetter}
		if dir == bottomUp {
			h.better = bottomUpBetter
		}
		for _, n := range I {
			h.nodes = append(h.nodes, n)
		}
		heap.Init(h)
		inI := make(map[*DepNode]bool, len(I))
		for _, n := range I {
			inI[n] = true
		}

		for {
			for h.Len() > 0 {
				n := heap.Pop(h).(*DepNode)
				delete(inI, n)
				if inFinal[n] {
					continue
				}
				final = append(final, n)
				inFinal[n] = true

				var neighbors []*DepEdge
				if dir == topDown {
					neighbors = n.Succs
				} else {
					neighbors = n.Preds
				}
				for _, e := range neighbors {
					if g.ignored(e) {
						continue
					}
					cand := e.To
					if dir == bottomUp {
						cand = e.From
					}
					if !inSet[cand] || inFinal[cand] || inI[cand] {
						continue
					}
					inI[cand] = true
					heap.Push(h, cand)
				}
			}
			// I emptied: flip direction and reseed from the set's
			// remaining unplaced nodes whose dependency-neighbors are
			// already in FinalOrder.
			dir = flip(dir)
			var reseed []*DepNode
			if dir == bottomUp {
				reseed = predecessorsOf(g, final, inSet, inFinal)
			} else {
				reseed = successorsOf(g, final, inSet, inFinal)
			}
			if len(reseed) == 0 {
				break
			}
			h.better = topDownBetter
			if dir == bottomUp {
				h.better = bottomUpBetter
			}
			for _, n := range reseed {
				inI[n] = true
				h.nodes = append(h.nodes, n)
			}
			heap.Init(h)
		}

		// Any set members untouched by the traversal (isolated within
		// S) are appended in ASAP order so every node is scheduled.
		var stragglers []*DepNode
		for _, n := range set.Nodes {
			if !inFinal[n] {
				stragglers = append(stragglers, n)
			}
		}
		for len(stragglers) > 0 {
			bi := 0
			for i := 1; i < len(stragglers); i++ {
				if stragglers[i].asap < stragglers[bi].asap {
					bi = i
				}
			}
			final = append(final, stragglers[bi])
			inFinal[stragglers[bi]] = true
			stragglers = append(stragglers[:bi], stragglers[bi+1:]...)
		}
	}
	return final
}

func flip(d direction) direction {
	if d == topDown {
		return bottomUp
	}
	return topDown
}

// predecessorsOf returns the not-yet-final predecessors (within inSet,
// over non-ignored edges) of every node already in final.
func predecessorsOf(g *DependenceGraph, final []*DepNode, inSet, inFinal map[*DepNode]bool) []*DepNode {
	seenCand := make(map[*DepNode]bool)
	var out []*DepNode
	for _, n := range final {
		for _, e := range n.Preds {
			if g.ignored(e) {
				continue
			}
			p := e.From
			if inSet[p] && !inFinal[p] && !seenCand[p] {
				seenCand[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// successorsOf is the symmetric counterpart of predecessorsOf.
func successorsOf(g *DependenceGraph, final []*DepNode, inSet, inFinal map[*DepNode]bool) []*DepNode {
	seenCand := make(map[*DepNode]bool)
	var out []*DepNode
	for _, n := range final {
		for _, e := range n.Succs {
			if g.ignored(e) {
				continue
			}
			s := e.To
			if inSet[s] && !inFinal[s] && !seenCand[s] {
				seenCand[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

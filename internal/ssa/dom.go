// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ssa

// This file implements the Dominator-Tree Helper (DTH, spec §4's
// component 6): computing immediate dominators and refreshing them as
// the Branch-Path Balancer mutates the CFG. The postorder/intersect
// machinery is the teacher's own (cmd/compile/internal/ssa's dom.go);
// the iterative idom fixpoint built on top of it is the standard
// Cooper-Harvey-Kennedy algorithm, the same one that package computes
// via its (separate, unretrieved) idom.go.

// postorder computes a postorder traversal ordering for the basic
// blocks in f. Unreachable blocks will not appear.
func postorder(f *Function) []*Block {
	if f.cachedPostorder != nil {
		return f.cachedPostorder
	}
	po := computePostorder(f)
	f.cachedPostorder = po
	return po
}

type blockAndIndex struct {
	b     *Block
	index int // index of b's successor edges already explored
}

func computePostorder(f *Function) []*Block {
	entry := f.Entry()
	if entry == nil {
		return nil
	}
	seen := make([]bool, f.NumBlocks())
	order := make([]*Block, 0, len(f.Blocks))

	s := make([]blockAndIndex, 0, 32)
	s = append(s, blockAndIndex{b: entry})
	seen[entry.ID] = true
	for len(s) > 0 {
		tos := len(s) - 1
		x := s[tos]
		b := x.b
		if i := x.index; i < len(b.Succs) {
			s[tos].index++
			bb := b.Succs[i].Block()
			if !seen[bb.ID] {
				seen[bb.ID] = true
				s = append(s, blockAndIndex{b: bb})
			}
			continue
		}
		s = s[:tos]
		order = append(order, b)
	}
	return order
}

// intersect finds the closest common dominator of b and c, given a
// postorder numbering and a (possibly partial) idom array.
func intersect(b, c *Block, postnum []int, idom []*Block) *Block {
	for b != c {
		for postnum[b.ID] < postnum[c.ID] {
			b = idom[b.ID]
		}
		for postnum[c.ID] < postnum[b.ID] {
			c = idom[c.ID]
		}
	}
	return b
}

// DomNode is one node of the dominator tree: the block it represents,
// its immediate dominator, and its depth. Matches the
// {level, numChildren} shape spec §6 requires DominatorTree.getNode to
// expose, plus the idom pointer BPB needs to walk the tree upward.
type DomNode struct {
	Block    *Block
	Idom     *Block
	Level    int
	children []*Block
}

// NumChildren returns the number of immediate dominator-tree children
// of this node.
func (n *DomNode) NumChildren() int { return len(n.children) }

// Children returns this node's immediate dominator-tree children.
func (n *DomNode) Children() []*Block { return n.children }

// DominatorTree is the DTH's product: per-block dominator-tree nodes
// over a function, refreshed as BPB inserts dummy blocks (spec §3
// "Ownership and lifecycle": dominator-tree nodes are owned by the DTH
// and refreshed on every addNewBlock).
type DominatorTree struct {
	f     *Function
	nodes map[BlockID]*DomNode
}

// ComputeDominatorTree builds (or rebuilds) the dominator tree for f.
func ComputeDominatorTree(f *Function) *DominatorTree {
	if f.cachedDomTree != nil {
		return f.cachedDomTree
	}
	dt := computeDomTree(f)
	f.cachedDomTree = dt
	return dt
}

func computeDomTree(f *Function) *DominatorTree {
	po := postorder(f)
	entry := f.Entry()
	dt := &DominatorTree{f: f, nodes: make(map[BlockID]*DomNode, len(po))}
	if entry == nil {
		return dt
	}

	postnum := make([]int, f.NumBlocks())
	for i, b := range po {
		postnum[b.ID] = i
	}

	idom := make([]*Block, f.NumBlocks())
	idom[entry.ID] = entry

	// Iterate in reverse postorder (all blocks but entry) until fixed
	// point, as in Cooper, Harvey & Kennedy's "A Simple, Fast
	// Dominance Algorithm".
	changed := true
	for changed {
		changed = false
		for i := len(po) - 2; i >= 0; i-- {
			b := po[i]
			var newIdom *Block
			for _, e := range b.Preds {
				p := e.Block()
				if idom[p.ID] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
				} else {
					newIdom = intersect(newIdom, p, postnum, idom)
				}
			}
			if newIdom != nil && idom[b.ID] != newIdom {
				idom[b.ID] = newIdom
				changed = true
			}
		}
	}

	for _, b := range po {
		if idom[b.ID] == nil {
			continue // unreachable
		}
		dt.nodes[b.ID] = &DomNode{Block: b, Idom: idom[b.ID]}
	}
	dt.nodes[entry.ID].Idom = nil

	// Second pass: levels and child lists, now that every idom pointer
	// is final.
	for _, b := range po {
		n := dt.nodes[b.ID]
		if n == nil || n.Idom == nil {
			continue
		}
		pn := dt.nodes[n.Idom.ID]
		pn.children = append(pn.children, b)
	}
	var setLevel func(b *Block, level int)
	setLevel = func(b *Block, level int) {
		n := dt.nodes[b.ID]
		n.Level = level
		for _, c := range n.children {
			setLevel(c, level+1)
		}
	}
	setLevel(entry, 0)

	return dt
}

// GetNode returns the dominator-tree node for b, or nil if b is
// unreachable or stale (spec §7 DominatorStale: callers must check for
// nil and recompute-or-skip).
func (dt *DominatorTree) GetNode(b *Block) *DomNode {
	return dt.nodes[b.ID]
}

// Dominates reports whether a dominates b (reflexively: a dominates
// itself).
func (dt *DominatorTree) Dominates(a, b *Block) bool {
	an, bn := dt.nodes[a.ID], dt.nodes[b.ID]
	if an == nil || bn == nil {
		return false
	}
	for n := bn; n != nil; {
		if n.Block == a {
			return true
		}
		if n.Idom == nil {
			return false
		}
		n = dt.nodes[n.Idom.ID]
	}
	return false
}

// AddNewBlock inserts newBlock into the dominator tree with the given
// immediate dominator, without recomputing the whole tree. idom may be
// nil, making newBlock a tree root (used when a rewrite replaces the
// block that used to hold that position). Used by BPB each time it
// synthesizes a dummy block on a shortcut edge (spec §4.11 step 3, and
// §3's ownership/lifecycle rule).
func (dt *DominatorTree) AddNewBlock(newBlock *Block, idom *Block) {
	level := 0
	if idom != nil {
		if idomNode := dt.nodes[idom.ID]; idomNode != nil {
			level = idomNode.Level + 1
			idomNode.children = append(idomNode.children, newBlock)
		}
	}
	dt.nodes[newBlock.ID] = &DomNode{Block: newBlock, Idom: idom, Level: level}
}

// EraseNode removes b's dominator-tree node, e.g. after SMS deletes
// the original loop block during loop rewriting. Every child of b is
// reparented onto replacement (or onto b's own Idom if replacement is
// nil, the plain "lift subtree up one level" default) so no node is
// left pointing at a Block no longer in the tree; the reparented
// subtree's levels are recomputed to match its new position.
func (dt *DominatorTree) EraseNode(b *Block, replacement *Block) {
	n := dt.nodes[b.ID]
	if n == nil {
		return
	}

	if n.Idom != nil {
		if pn := dt.nodes[n.Idom.ID]; pn != nil {
			for i, c := range pn.children {
				if c == b {
					pn.children = append(pn.children[:i], pn.children[i+1:]...)
					break
				}
			}
		}
	}

	newIdom := replacement
	if newIdom == nil {
		newIdom = n.Idom
	}
	var newParent *DomNode
	level := 0
	if newIdom != nil {
		newParent = dt.nodes[newIdom.ID]
		if newParent != nil {
			level = newParent.Level + 1
		}
	}
	for _, c := range n.children {
		cn := dt.nodes[c.ID]
		if cn == nil {
			continue
		}
		cn.Idom = newIdom
		if newParent != nil {
			newParent.children = append(newParent.children, c)
		}
		relevel(dt, cn, level)
	}

	delete(dt.nodes, b.ID)
}

// relevel sets n's level and recursively fixes every descendant's,
// used by EraseNode when it reparents a subtree under a new dominator.
func relevel(dt *DominatorTree, n *DomNode, level int) {
	n.Level = level
	for _, c := range n.children {
		if cn := dt.nodes[c.ID]; cn != nil {
			relevel(dt, cn, level+1)
		}
	}
}

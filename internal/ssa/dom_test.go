package ssa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDominatorTree_Diamond(t *testing.T) {
	f := NewFunction("diamond")
	a := f.AddBlock()
	b := f.AddBlock()
	c := f.AddBlock()
	d := f.AddBlock()
	a.Instrs = append(a.Instrs, NewInstruction("brt2", NoPos, BlockOperand(b.ID), BlockOperand(c.ID)))
	b.Instrs = append(b.Instrs, NewInstruction("jmp", NoPos, BlockOperand(d.ID)))
	c.Instrs = append(c.Instrs, NewInstruction("jmp", NoPos, BlockOperand(d.ID)))
	f.AddEdge(a, b)
	f.AddEdge(a, c)
	f.AddEdge(b, d)
	f.AddEdge(c, d)

	dt := ComputeDominatorTree(f)

	require.NotNil(t, dt.GetNode(a))
	assert.Equal(t, 0, dt.GetNode(a).Level)
	assert.Equal(t, 1, dt.GetNode(b).Level)
	assert.Equal(t, 1, dt.GetNode(c).Level)
	assert.Equal(t, 1, dt.GetNode(d).Level, "D's idom is A, since neither B nor C alone dominates it")

	assert.True(t, dt.Dominates(a, d))
	assert.False(t, dt.Dominates(b, d))
	assert.False(t, dt.Dominates(c, d))
	assert.True(t, dt.Dominates(a, a), "dominance is reflexive")
}

func TestDominatorTree_AddNewBlockAndEraseNode(t *testing.T) {
	f := NewFunction("linear")
	a := f.AddBlock()
	b := f.AddBlock()
	a.Instrs = append(a.Instrs, NewInstruction("jmp", NoPos, BlockOperand(b.ID)))
	f.AddEdge(a, b)

	dt := ComputeDominatorTree(f)
	dummy := f.AddBlock()
	dt.AddNewBlock(dummy, a)

	dn := dt.GetNode(dummy)
	require.NotNil(t, dn)
	assert.Equal(t, a, dn.Idom)
	assert.Equal(t, dt.GetNode(a).Level+1, dn.Level)
	assert.Contains(t, dt.GetNode(a).Children(), dummy)

	dt.EraseNode(dummy, nil)
	assert.Nil(t, dt.GetNode(dummy))
	assert.NotContains(t, dt.GetNode(a).Children(), dummy)
}

// TestDominatorTree_EraseNodeReparentsChildren exercises the
// reparenting path a rewrite needs when it deletes a block that itself
// has dominator-tree children: a nil replacement lifts those children
// onto the erased block's own idom, matching Dominates expectations
// for every block the deleted one used to dominate.
func TestDominatorTree_EraseNodeReparentsChildren(t *testing.T) {
	f := NewFunction("chain")
	a := f.AddBlock()
	dt := ComputeDominatorTree(f)

	mid := f.AddBlock()
	dt.AddNewBlock(mid, a)
	child1 := f.AddBlock()
	child2 := f.AddBlock()
	dt.AddNewBlock(child1, mid)
	dt.AddNewBlock(child2, mid)

	dt.EraseNode(mid, nil)

	assert.Nil(t, dt.GetNode(mid))
	require.NotNil(t, dt.GetNode(child1))
	require.NotNil(t, dt.GetNode(child2))
	assert.Equal(t, a, dt.GetNode(child1).Idom, "child1 must be lifted onto mid's own idom")
	assert.Equal(t, a, dt.GetNode(child2).Idom)
	assert.Equal(t, dt.GetNode(a).Level+1, dt.GetNode(child1).Level)
	assert.Contains(t, dt.GetNode(a).Children(), child1)
	assert.Contains(t, dt.GetNode(a).Children(), child2)
	assert.True(t, dt.Dominates(a, child1))
	assert.True(t, dt.Dominates(a, child2))
}

// TestDominatorTree_EraseNodeExplicitReplacement exercises the
// caller-designated replacement path (used by RewriteLoop: a deleted
// loop block's externally-dominated children are reparented onto the
// new entry block, not onto the deleted block's own idom).
func TestDominatorTree_EraseNodeExplicitReplacement(t *testing.T) {
	f := NewFunction("chain")
	a := f.AddBlock()
	dt := ComputeDominatorTree(f)

	mid := f.AddBlock()
	dt.AddNewBlock(mid, a)
	exit := f.AddBlock()
	dt.AddNewBlock(exit, mid)
	replacement := f.AddBlock()
	dt.AddNewBlock(replacement, a)

	dt.EraseNode(mid, replacement)

	assert.Nil(t, dt.GetNode(mid))
	require.NotNil(t, dt.GetNode(exit))
	assert.Equal(t, replacement, dt.GetNode(exit).Idom)
	assert.Equal(t, dt.GetNode(replacement).Level+1, dt.GetNode(exit).Level)
	assert.Contains(t, dt.GetNode(replacement).Children(), exit)
	assert.True(t, dt.Dominates(replacement, exit))
}

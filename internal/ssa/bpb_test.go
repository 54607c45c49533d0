package ssa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blockCost(ti TargetInfo, b *Block) int {
	cost := 0
	for _, instr := range b.Instrs {
		cost += ti.CycleCost(instr)
	}
	return cost
}

// TestScenarioB1_DiamondPadding is scenario B1: a plain diamond
// A->{B,C}->D where B and C have unequal cost. Balance must pad the
// cheaper arm (B) with NOPs until both arms cost the same, and must
// NOT synthesize a dummy block for the ordinary sibling C (an earlier
// draft's reachability-based isShortcut check wrongly treated every
// sibling of an plain diamond as a shortcut; see DESIGN.md).
func TestScenarioB1_DiamondPadding(t *testing.T) {
	f := NewFunction("diamond")
	a := f.AddBlock()
	b := f.AddBlock()
	c := f.AddBlock()
	d := f.AddBlock()

	a.Instrs = []*Instruction{
		NewInstruction("bodyA", NoPos),
		NewInstruction("brt2", NoPos, BlockOperand(b.ID), BlockOperand(c.ID)),
	}
	b.Instrs = []*Instruction{
		NewInstruction("bodyB", NoPos),
		NewInstruction("jmp", NoPos, BlockOperand(d.ID)),
	}
	c.Instrs = []*Instruction{
		NewInstruction("bodyC", NoPos),
		NewInstruction("jmp", NoPos, BlockOperand(d.ID)),
	}
	d.Instrs = []*Instruction{
		NewInstruction("bodyD", NoPos),
	}
	f.AddEdge(a, b)
	f.AddEdge(a, c)
	f.AddEdge(b, d)
	f.AddEdge(c, d)

	ti := newFakeTI()
	ti.costs = map[Opcode]int{
		"bodyA": 2, "bodyB": 3, "bodyC": 7, "bodyD": 1,
		"jmp": 0, "brt2": 0, "nop": 1,
	}

	dt := ComputeDominatorTree(f)
	Balance(f, ti, dt)

	assert.Equal(t, 7, blockCost(ti, b), "cheaper arm B must be padded up to C's cost")
	assert.Equal(t, 7, blockCost(ti, c))
	pathB := blockCost(ti, a) + blockCost(ti, b) + blockCost(ti, d)
	pathC := blockCost(ti, a) + blockCost(ti, c) + blockCost(ti, d)
	assert.Equal(t, 10, pathB)
	assert.Equal(t, pathC, pathB)
	assert.Len(t, f.Blocks, 4, "no dummy block should be synthesized for an ordinary diamond")
}

// TestScenarioB2_TriangleShortcut is scenario B2: A branches to both B
// and C directly, and B also falls through to C, so the A->C edge is a
// shortcut around B that lands exactly on B's reconvergence point.
// Balance must synthesize a dummy block on that edge rather than
// padding C (which would double-count the join block's own cost).
func TestScenarioB2_TriangleShortcut(t *testing.T) {
	f := NewFunction("triangle")
	a := f.AddBlock()
	b := f.AddBlock()
	c := f.AddBlock()

	a.Instrs = []*Instruction{
		NewInstruction("bodyA", NoPos),
		NewInstruction("brt2", NoPos, BlockOperand(b.ID), BlockOperand(c.ID)),
	}
	b.Instrs = []*Instruction{
		NewInstruction("bodyB", NoPos),
		NewInstruction("jmp", NoPos, BlockOperand(c.ID)),
	}
	c.Instrs = []*Instruction{
		NewInstruction("bodyC", NoPos),
	}
	f.AddEdge(a, b)
	f.AddEdge(a, c)
	f.AddEdge(b, c)

	ti := newFakeTI()
	ti.costs = map[Opcode]int{
		"bodyA": 2, "bodyB": 4, "bodyC": 1,
		"jmp": 0, "brt2": 0, "nop": 1,
	}

	dt := ComputeDominatorTree(f)
	Balance(f, ti, dt)

	require.Len(t, f.Blocks, 4, "a dummy block must be synthesized on the shortcut edge")

	var dummy *Block
	for _, succ := range a.Succs {
		if succ.Block() != b {
			dummy = succ.Block()
		}
	}
	require.NotNil(t, dummy)
	assert.NotEqual(t, c, dummy, "A's other successor must now be the dummy, not C directly")
	assert.GreaterOrEqual(t, blockCost(ti, dummy), blockCost(ti, b))

	foundDummyPred := false
	for _, pred := range c.Preds {
		if pred.Block() == dummy {
			foundDummyPred = true
		}
		assert.NotEqual(t, a, pred.Block(), "A must no longer be a direct predecessor of C")
	}
	assert.True(t, foundDummyPred)

	pathB := blockCost(ti, a) + blockCost(ti, b) + blockCost(ti, c)
	pathDummy := blockCost(ti, a) + blockCost(ti, dummy) + blockCost(ti, c)
	assert.Equal(t, pathDummy, pathB)
}

// TestScenarioB3_NestedDiamonds is scenario B3: an outer diamond
// A->{B,E}->F whose second arm (E) coincides with the join point of an
// inner diamond B->{C,D}->E. Balancing must proceed bottom-up: the
// inner diamond (C,D) is padded to equal cost first, and only then is
// the outer branch (B vs. the direct A->E edge, a shortcut onto the
// inner diamond's own join) balanced using B's already-updated cost.
func TestScenarioB3_NestedDiamonds(t *testing.T) {
	f := NewFunction("nested")
	a := f.AddBlock()
	b := f.AddBlock()
	c := f.AddBlock()
	d := f.AddBlock()
	e := f.AddBlock()
	fn := f.AddBlock()

	a.Instrs = []*Instruction{
		NewInstruction("bodyA", NoPos),
		NewInstruction("brt2", NoPos, BlockOperand(b.ID), BlockOperand(e.ID)),
	}
	b.Instrs = []*Instruction{
		NewInstruction("bodyB", NoPos),
		NewInstruction("brt2", NoPos, BlockOperand(c.ID), BlockOperand(d.ID)),
	}
	c.Instrs = []*Instruction{
		NewInstruction("bodyC", NoPos),
		NewInstruction("jmp", NoPos, BlockOperand(e.ID)),
	}
	d.Instrs = []*Instruction{
		NewInstruction("bodyD", NoPos),
		NewInstruction("jmp", NoPos, BlockOperand(e.ID)),
	}
	e.Instrs = []*Instruction{
		NewInstruction("bodyE", NoPos),
		NewInstruction("jmp", NoPos, BlockOperand(fn.ID)),
	}
	fn.Instrs = []*Instruction{
		NewInstruction("bodyF", NoPos),
	}
	f.AddEdge(a, b)
	f.AddEdge(a, e)
	f.AddEdge(b, c)
	f.AddEdge(b, d)
	f.AddEdge(c, e)
	f.AddEdge(d, e)
	f.AddEdge(e, fn)

	ti := newFakeTI()
	ti.costs = map[Opcode]int{
		"bodyA": 2, "bodyB": 1, "bodyC": 3, "bodyD": 9, "bodyE": 2, "bodyF": 1,
		"jmp": 0, "brt2": 0, "nop": 1,
	}

	dt := ComputeDominatorTree(f)
	Balance(f, ti, dt)

	assert.Equal(t, 9, blockCost(ti, c), "inner arm C must be padded up to D's cost")
	assert.Equal(t, 9, blockCost(ti, d))

	require.Len(t, f.Blocks, 7, "a dummy block must be synthesized on the outer A->E shortcut")
	var dummy *Block
	for _, succ := range a.Succs {
		if succ.Block() != b {
			dummy = succ.Block()
		}
	}
	require.NotNil(t, dummy)
	assert.NotEqual(t, e, dummy)

	innerArm := blockCost(ti, b) + blockCost(ti, c)
	assert.Equal(t, blockCost(ti, dummy), innerArm, "the outer dummy must absorb B's own cost plus the balanced inner arm")

	pathViaB := blockCost(ti, a) + blockCost(ti, b) + blockCost(ti, c) + blockCost(ti, e) + blockCost(ti, fn)
	pathViaDummy := blockCost(ti, a) + blockCost(ti, dummy) + blockCost(ti, e) + blockCost(ti, fn)
	assert.Equal(t, pathViaDummy, pathViaB)
}

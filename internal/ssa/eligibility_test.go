package ssa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckEligible_NotASelfLoop(t *testing.T) {
	f := NewFunction("f")
	a := f.AddBlock()
	b := f.AddBlock()
	a.Instrs = append(a.Instrs, NewInstruction("br", NoPos, BlockOperand(b.ID)))
	f.AddEdge(a, b)

	ti := newFakeTI()
	err := CheckEligible(a, ti)
	assert.ErrorIs(t, err, ErrNotEligible)
}

// TestCheckEligible_CallDeclines is scenario A3: a self-looping block
// that contains a call instruction is declined outright.
func TestCheckEligible_CallDeclines(t *testing.T) {
	body := []*Instruction{
		NewInstruction("call", NoPos, ImmOperand(0)),
	}
	f, loop, _ := selfLoop(body, 0)
	ti := newFakeTI()
	ti.calls["call"] = true

	err := CheckEligible(loop, ti)
	assert.ErrorIs(t, err, ErrNotEligible)

	k, g, err := ScheduleLoop(loop, ti)
	assert.Nil(t, k)
	assert.Nil(t, g)
	assert.ErrorIs(t, err, ErrNotEligible)
	assert.Len(t, f.Blocks, 2, "a declined loop is left untouched")
}

func TestCheckEligible_SelfLoopNoCall(t *testing.T) {
	body := []*Instruction{
		NewInstruction("add", NoPos, DefOperand(1), UseOperand(1), ImmOperand(1)),
	}
	_, loop, _ := selfLoop(body, 1)
	ti := newFakeTI()
	assert.NoError(t, CheckEligible(loop, ti))
}

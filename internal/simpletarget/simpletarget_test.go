package simpletarget

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fkuehnel/pathsched/internal/ssa"
)

func TestTarget_OpcodeClassification(t *testing.T) {
	ti := New()
	assert.True(t, ti.IsCall("call"))
	assert.False(t, ti.IsCall("add"))
	assert.True(t, ti.IsBranch("bne"))
	assert.True(t, ti.IsBranch("jmp"))
	assert.False(t, ti.IsBranch("add"))
	assert.True(t, ti.IsNop(ti.NopOpcode()))
}

func TestTarget_CycleCostUsesTableWithDefault(t *testing.T) {
	ti := New()
	load := ssa.NewInstruction("load", ssa.NoPos, ssa.DefOperand(1), ssa.ImmOperand(0))
	assert.Equal(t, 2, ti.CycleCost(load))

	unknown := ssa.NewInstruction("xyzzy", ssa.NoPos)
	assert.Equal(t, 1, ti.CycleCost(unknown), "an opcode absent from the cost table defaults to 1")
}

func TestTarget_ResourceUsageSplitsMemoryFromALU(t *testing.T) {
	ti := New()
	assert.Equal(t, [][]ssa.ResourceID{{ResMem}}, ti.ResourceUsage("load"))
	assert.Equal(t, [][]ssa.ResourceID{{ResALU}}, ti.ResourceUsage("add"))
	assert.Nil(t, ti.ResourceUsage("nop"))
	assert.Equal(t, 1, ti.ResourceCapacity(ResMem))
	assert.Equal(t, ti.IssueWidth, ti.ResourceCapacity(ResALU))
}

func TestTarget_SyntheticInstructionBuilders(t *testing.T) {
	ti := New()
	f := ssa.NewFunction("f")
	target := f.AddBlock()

	br := ti.UnconditionalBranch(target)
	assert.Equal(t, ssa.Opcode("jmp"), br.Op)
	assert.True(t, ti.IsBranch(br.Op))

	mov := ti.CopyRegister(1, 2)
	assert.Equal(t, ssa.Opcode("mov"), mov.Op)
	assert.True(t, mov.Operands[0].IsDef())
	assert.True(t, mov.Operands[1].IsUse())

	phi := ti.Phi([]ssa.PhiInput{{Value: 1}, {Value: 2}}, 3)
	assert.Equal(t, ssa.Opcode("phi"), phi.Op)
	assert.Len(t, phi.Operands, 3)
	assert.True(t, phi.Operands[0].IsDef())
}

var _ ssa.TargetInfo = (*Target)(nil)

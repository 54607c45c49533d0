package fixture

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkuehnel/pathsched/internal/ssa"
)

func TestLoad_BuildsFunctionWithEdgesAndOperands(t *testing.T) {
	src := `{
		"name": "loop",
		"blocks": [
			{"id": 0, "instrs": [
				{"op": "add", "operands": [
					{"kind": "use", "value": 1},
					{"kind": "def", "value": 1},
					{"kind": "imm", "imm": 1}
				]},
				{"op": "bne", "operands": [
					{"kind": "valref", "value": 1},
					{"kind": "block", "block": 0},
					{"kind": "block", "block": 1}
				]}
			], "succs": [0, 1]},
			{"id": 1, "instrs": [], "succs": []}
		]
	}`

	f, err := Load(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, "loop", f.Name)
	require.Equal(t, 2, f.NumBlocks())

	b0 := f.Block(0)
	require.NotNil(t, b0)
	require.Len(t, b0.Instrs, 2)
	assert.Equal(t, ssa.Opcode("add"), b0.Instrs[0].Op)
	assert.True(t, b0.Instrs[0].Operands[1].IsDef())
	assert.True(t, b0.HasSuccessor(b0), "the loop block must be its own successor")
}

func TestDump_RoundTripsThroughLoad(t *testing.T) {
	f := ssa.NewFunction("rt")
	a := f.AddBlock()
	b := f.AddBlock()
	a.Instrs = append(a.Instrs, ssa.NewInstruction("jmp", ssa.NoPos, ssa.BlockOperand(b.ID)))
	f.AddEdge(a, b)

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, f))

	f2, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, f.NumBlocks(), f2.NumBlocks())
	assert.True(t, f2.Block(0).HasSuccessor(f2.Block(1)))
}

func TestLoad_UnknownOperandKindErrors(t *testing.T) {
	src := `{"name":"bad","blocks":[{"id":0,"instrs":[{"op":"x","operands":[{"kind":"bogus"}]}]}]}`
	_, err := Load(strings.NewReader(src))
	assert.Error(t, err)
}

func TestLoad_UnknownSuccessorErrors(t *testing.T) {
	src := `{"name":"bad","blocks":[{"id":0,"instrs":[],"succs":[7]}]}`
	_, err := Load(strings.NewReader(src))
	assert.Error(t, err)
}

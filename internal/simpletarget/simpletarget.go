// Package simpletarget is the TargetInfo implementation the
// cmd/pathsched driver exercises both cores against. It is not part of
// any real ISA: it is the same kind of stand-in machine description
// the teacher's own regalloc_bench_test.go builds ad hoc to drive its
// benchmarks, generalized here into a small reusable table so the CLI
// has something concrete to run against JSON fixtures.
package simpletarget

import (
	"strings"

	"github.com/fkuehnel/pathsched/internal/ssa"
)

// Resource names the two functional units this machine model exposes:
// one issue-width-limited ALU pipe and one load/store pipe, the
// minimum split needed to make ResMII (spec §4.6) a non-trivial
// computation instead of always collapsing to issue width.
const (
	ResALU ssa.ResourceID = iota
	ResMem
)

// Target is a stock, data-driven TargetInfo: a per-opcode cycle-cost
// table, with calls classified by the "call" name prefix and branches
// and nops by fixed opcode names, in keeping with ssa.Opcode being an
// opaque string rather than an enum tied to any one ISA.
type Target struct {
	// Costs maps an opcode to its cycle cost; opcodes absent from the
	// table default to 1.
	Costs map[ssa.Opcode]int
	// IssueWidth is the number of instructions issuable per cycle.
	IssueWidth int
}

// New returns a Target with a small default cost table covering a
// handful of common opcode spellings (load/store, arithmetic, nop,
// branches, call).
func New() *Target {
	return &Target{
		Costs: map[ssa.Opcode]int{
			"load":  2,
			"store": 1,
			"add":   1,
			"sub":   1,
			"mul":   3,
			"div":   5,
			"nop":   1,
			"br":    1,
			"bne":   1,
			"beq":   1,
			"jmp":   1,
			"call":  1,
		},
		IssueWidth: 2,
	}
}

func (t *Target) IsCall(op ssa.Opcode) bool {
	return strings.HasPrefix(string(op), "call")
}

func (t *Target) IsBranch(op ssa.Opcode) bool {
	switch op {
	case "br", "bne", "beq", "jmp":
		return true
	}
	return false
}

func (t *Target) IsNop(op ssa.Opcode) bool {
	return op == "nop"
}

func (t *Target) CycleCost(instr *ssa.Instruction) int {
	if c, ok := t.Costs[instr.Op]; ok {
		return c
	}
	return 1
}

func (t *Target) ResourceUsage(op ssa.Opcode) [][]ssa.ResourceID {
	switch op {
	case "load", "store":
		return [][]ssa.ResourceID{{ResMem}}
	case "nop", "br", "bne", "beq", "jmp":
		return nil
	default:
		return [][]ssa.ResourceID{{ResALU}}
	}
}

func (t *Target) IssueSlots() int { return t.IssueWidth }

func (t *Target) ResourceCapacity(r ssa.ResourceID) int {
	switch r {
	case ResMem:
		return 1
	default:
		return t.IssueWidth
	}
}

func (t *Target) NopOpcode() ssa.Opcode { return "nop" }

func (t *Target) UnconditionalBranch(target *ssa.Block) *ssa.Instruction {
	return ssa.NewInstruction("jmp", ssa.NoPos, ssa.BlockOperand(target.ID))
}

func (t *Target) CopyRegister(src, dst ssa.ID) *ssa.Instruction {
	return ssa.NewInstruction("mov", ssa.NoPos, ssa.DefOperand(dst), ssa.UseOperand(src))
}

func (t *Target) Phi(inputs []ssa.PhiInput, dst ssa.ID) *ssa.Instruction {
	ops := make([]ssa.Operand, 0, len(inputs)+1)
	ops = append(ops, ssa.DefOperand(dst))
	for _, in := range inputs {
		ops = append(ops, ssa.UseOperand(in.Value))
	}
	return ssa.NewInstruction("phi", ssa.NoPos, ops...)
}

var _ ssa.TargetInfo = (*Target)(nil)

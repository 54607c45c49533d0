package ssa

// TargetInfo is the abstract interface to the target machine
// description consumed by both cores (spec §4.1, §6). It has no side
// effects: every method is a pure function of its arguments.
type TargetInfo interface {
	// IsCall reports whether op is a call instruction. A loop block
	// containing a call is never eligible for modulo scheduling
	// (spec §4.2; calls-inside-pipelined-loops is an explicit
	// Non-goal).
	IsCall(op Opcode) bool

	// IsBranch reports whether op is a branch (conditional or not).
	IsBranch(op Opcode) bool

	// IsNop reports whether op has no architectural effect.
	IsNop(op Opcode) bool

	// CycleCost returns the positive cycle latency of instr.
	CycleCost(instr *Instruction) int

	// ResourceUsage returns, for op, a sequence indexed by cycle
	// offset from the instruction's issue cycle; element i is the set
	// of resources the instruction occupies during its i-th cycle.
	// Most opcodes return a single-element sequence; multi-cycle
	// pipelined resources (e.g. a divider held only for the first two
	// of five cycles) return a longer one.
	ResourceUsage(op Opcode) [][]ResourceID

	// IssueSlots returns the number of instructions that may be
	// issued in a single cycle.
	IssueSlots() int

	// ResourceCapacity returns how many concurrent uses of resource r
	// the target machine supports.
	ResourceCapacity(r ResourceID) int

	// NopOpcode returns the opcode used for cycle-padding NOPs.
	NopOpcode() Opcode

	// UnconditionalBranch returns an instruction template for an
	// unconditional jump to target.
	UnconditionalBranch(target *Block) *Instruction

	// CopyRegister returns an instruction template that copies src
	// into dst.
	CopyRegister(src, dst ID) *Instruction

	// Phi returns an instruction template selecting among inputs
	// (one per predecessor, in predecessor order) and defining dst.
	Phi(inputs []PhiInput, dst ID) *Instruction
}

// PhiInput is one (predecessor, incoming-value) pair of a Phi
// instruction template.
type PhiInput struct {
	Pred  *Block
	Value ID
}

// NewNop builds a nop instruction from the target's nop opcode.
func NewNop(ti TargetInfo, pos Pos) *Instruction {
	return NewInstruction(ti.NopOpcode(), pos)
}

package ssa

// Opcode names a target instruction class. The cores never switch on
// specific opcodes themselves — they ask TargetInfo whether an opcode
// is a call, a branch, or a nop (spec §4.1) — so Opcode stays an
// opaque string rather than an enum tied to any one ISA.
type Opcode string

// Instruction is one machine instruction: an opcode plus its ordered
// operand list (spec §3).
type Instruction struct {
	Op       Opcode
	Operands []Operand
	Pos      Pos
}

// NewInstruction builds an Instruction from an opcode and operands.
func NewInstruction(op Opcode, pos Pos, operands ...Operand) *Instruction {
	return &Instruction{Op: op, Operands: operands, Pos: pos}
}

// Defs returns the register-def operands of the instruction, in
// operand order.
func (in *Instruction) Defs() []Operand {
	var defs []Operand
	for _, o := range in.Operands {
		if o.IsDef() {
			defs = append(defs, o)
		}
	}
	return defs
}

// Uses returns the register-use and value-reference operands of the
// instruction, in operand order.
func (in *Instruction) Uses() []Operand {
	var uses []Operand
	for _, o := range in.Operands {
		if o.IsUse() {
			uses = append(uses, o)
		}
	}
	return uses
}

// BlockRefs returns the block-reference operands of the instruction.
// A terminator's successors must be exactly the blocks named here
// (spec §3 BasicBlock invariant).
func (in *Instruction) BlockRefs() []BlockID {
	var refs []BlockID
	for _, o := range in.Operands {
		if o.Kind == BlockRef {
			refs = append(refs, o.Block)
		}
	}
	return refs
}

// Clone returns a shallow copy of the instruction with its own operand
// slice, suitable for replicating into a prologue/epilogue without
// aliasing the kernel's operand backing array.
func (in *Instruction) Clone() *Instruction {
	ops := make([]Operand, len(in.Operands))
	copy(ops, in.Operands)
	return &Instruction{Op: in.Op, Operands: ops, Pos: in.Pos}
}

// RewriteUses replaces every use of `from` with `to` in place.
func (in *Instruction) RewriteUses(from, to ID) {
	for i, o := range in.Operands {
		if o.IsUse() && o.Value == from {
			in.Operands[i].Value = to
		}
	}
}

package ssa

// OperandKind tags the variant held by an Operand. The data model
// (spec §3) calls for a tagged union rather than an inheritance
// hierarchy; Go has no sum types, so a kind byte plus a flat set of
// fields is the idiomatic rendition (see design notes on "Polymorphism
// over operand kinds").
type OperandKind uint8

const (
	// RegUse reads the current value of a register.
	RegUse OperandKind = iota
	// RegDef writes a new value to a register.
	RegDef
	// Imm carries a constant integer operand.
	Imm
	// BlockRef names a block, used by terminators.
	BlockRef
	// ValueRef names a value without consuming it as an operand in the
	// usual sense — used for branch conditions.
	ValueRef
)

func (k OperandKind) String() string {
	switch k {
	case RegUse:
		return "use"
	case RegDef:
		return "def"
	case Imm:
		return "imm"
	case BlockRef:
		return "block"
	case ValueRef:
		return "valref"
	default:
		return "unknown"
	}
}

// Operand is one operand of an Instruction. Exactly the fields
// relevant to Kind are meaningful; the rest are zero.
type Operand struct {
	Kind  OperandKind
	Value ID      // RegUse, RegDef, ValueRef
	Imm   int64   // Imm
	Block BlockID // BlockRef
}

// UseOperand builds a register-use operand.
func UseOperand(v ID) Operand { return Operand{Kind: RegUse, Value: v} }

// DefOperand builds a register-def operand.
func DefOperand(v ID) Operand { return Operand{Kind: RegDef, Value: v} }

// ImmOperand builds an immediate operand.
func ImmOperand(v int64) Operand { return Operand{Kind: Imm, Imm: v} }

// BlockOperand builds a block-reference operand.
func BlockOperand(b BlockID) Operand { return Operand{Kind: BlockRef, Block: b} }

// ValueRefOperand builds a value-reference operand (branch conditions).
func ValueRefOperand(v ID) Operand { return Operand{Kind: ValueRef, Value: v} }

// IsDef reports whether the operand defines a register.
func (o Operand) IsDef() bool { return o.Kind == RegDef }

// IsUse reports whether the operand reads a register (either as a
// plain use or as a value reference).
func (o Operand) IsUse() bool { return o.Kind == RegUse || o.Kind == ValueRef }

// Package fixture loads the JSON test-program format cmd/pathsched
// reads and writes. The format is CLI-local plumbing (SPEC_FULL.md §D):
// a direct textual encoding of ssa.Function, never consumed by
// internal/ssa itself, so it lives in its own package rather than
// growing the library's public surface.
//
// encoding/json is used here on purpose rather than a pack dependency:
// this is a one-shot decode of a small, flat, already-known shape with
// no streaming or schema-evolution need, and none of the retrieved
// pack repos carry a JSON library of their own (they all reach for the
// standard library for exactly this kind of fixture I/O) — see
// DESIGN.md.
package fixture

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fkuehnel/pathsched/internal/ssa"
)

// Operand is the wire shape of ssa.Operand.
type Operand struct {
	Kind  string `json:"kind"`
	Value int32  `json:"value,omitempty"`
	Imm   int64  `json:"imm,omitempty"`
	Block int32  `json:"block,omitempty"`
}

// Instruction is the wire shape of ssa.Instruction.
type Instruction struct {
	Op       string    `json:"op"`
	Operands []Operand `json:"operands,omitempty"`
}

// Block is the wire shape of ssa.Block: a list of instructions plus
// the block IDs of its successors, in edge order.
type Block struct {
	ID     int32         `json:"id"`
	Instrs []Instruction `json:"instrs,omitempty"`
	Succs  []int32       `json:"succs,omitempty"`
}

// Program is the top-level wire shape: a single function, since
// spec.md scopes every pass to one function's single candidate loop or
// CFG at a time (§6 "no whole-program state").
type Program struct {
	Name   string  `json:"name"`
	Blocks []Block `json:"blocks"`
}

// Load decodes r into an *ssa.Function, wiring every block's
// instructions and successor edges.
func Load(r io.Reader) (*ssa.Function, error) {
	var p Program
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("fixture: decode: %w", err)
	}
	return p.Build()
}

// Build materializes an *ssa.Function from a decoded Program.
func (p *Program) Build() (*ssa.Function, error) {
	f := ssa.NewFunction(p.Name)

	byWireID := map[int32]*ssa.Block{}
	for _, wb := range p.Blocks {
		b := f.AddBlock()
		byWireID[wb.ID] = b
	}

	for _, wb := range p.Blocks {
		b := byWireID[wb.ID]
		for _, wi := range wb.Instrs {
			instr, err := wi.build()
			if err != nil {
				return nil, fmt.Errorf("fixture: block %d: %w", wb.ID, err)
			}
			b.Instrs = append(b.Instrs, instr)
		}
		for _, succID := range wb.Succs {
			target, ok := byWireID[succID]
			if !ok {
				return nil, fmt.Errorf("fixture: block %d: unknown successor %d", wb.ID, succID)
			}
			f.AddEdge(b, target)
		}
	}
	return f, nil
}

func (wi Instruction) build() (*ssa.Instruction, error) {
	ops := make([]ssa.Operand, 0, len(wi.Operands))
	for _, wo := range wi.Operands {
		op, err := wo.build()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ssa.NewInstruction(ssa.Opcode(wi.Op), ssa.NoPos, ops...), nil
}

func (wo Operand) build() (ssa.Operand, error) {
	switch wo.Kind {
	case "use":
		return ssa.UseOperand(ssa.ID(wo.Value)), nil
	case "def":
		return ssa.DefOperand(ssa.ID(wo.Value)), nil
	case "imm":
		return ssa.ImmOperand(wo.Imm), nil
	case "block":
		return ssa.BlockOperand(ssa.BlockID(wo.Block)), nil
	case "valref":
		return ssa.ValueRefOperand(ssa.ID(wo.Value)), nil
	default:
		return ssa.Operand{}, fmt.Errorf("unknown operand kind %q", wo.Kind)
	}
}

// Dump renders f back into the indented JSON form Load accepts, for
// the sms/balance subcommands to print their transformed output.
func Dump(w io.Writer, f *ssa.Function) error {
	p := Program{Name: f.Name}
	for _, b := range f.Blocks {
		wb := Block{ID: int32(b.ID)}
		for _, instr := range b.Instrs {
			wi := Instruction{Op: string(instr.Op)}
			for _, op := range instr.Operands {
				wi.Operands = append(wi.Operands, dumpOperand(op))
			}
			wb.Instrs = append(wb.Instrs, wi)
		}
		for _, e := range b.Succs {
			wb.Succs = append(wb.Succs, int32(e.Block().ID))
		}
		p.Blocks = append(p.Blocks, wb)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func dumpOperand(op ssa.Operand) Operand {
	switch op.Kind {
	case ssa.RegUse:
		return Operand{Kind: "use", Value: int32(op.Value)}
	case ssa.RegDef:
		return Operand{Kind: "def", Value: int32(op.Value)}
	case ssa.Imm:
		return Operand{Kind: "imm", Imm: op.Imm}
	case ssa.BlockRef:
		return Operand{Kind: "block", Block: int32(op.Block)}
	case ssa.ValueRef:
		return Operand{Kind: "valref", Value: int32(op.Value)}
	default:
		return Operand{Kind: "unknown"}
	}
}

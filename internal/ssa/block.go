package ssa

import "strconv"

// Edge is one end of a predecessor/successor pair. b is the block on
// the other end; i is the index of this edge within that block's
// complementary edge list, so that e.g. a phi's operand list and its
// block's Preds list stay in lockstep (Preds[i] produced the value in
// Args[i]). This mirrors the Go compiler's own Edge{b, i} shape.
type Edge struct {
	b *Block
	i int
}

// Block returns the block on the other end of the edge.
func (e Edge) Block() *Block { return e.b }

// Index returns this edge's position within the other block's
// complementary edge list.
func (e Edge) Index() int { return e.i }

// SourceBlock is an opaque back-pointer to whatever higher-level block
// (e.g. a source-language basic block) this Block was lowered from.
// Nil for synthesized blocks (dummies, prologues, epilogues).
type SourceBlock struct {
	Name string
}

// Block is one basic block of a Function's control-flow graph (spec
// §3 BasicBlock).
type Block struct {
	ID     BlockID
	Func   *Function
	Instrs []*Instruction
	Succs  []Edge
	Preds  []Edge
	Source *SourceBlock
}

func (b *Block) String() string {
	if b == nil {
		return "<nil>"
	}
	return "b" + strconv.Itoa(int(b.ID))
}

// Terminator returns the block's last instruction, or nil for an
// (invalid) empty block.
func (b *Block) Terminator() *Instruction {
	if len(b.Instrs) == 0 {
		return nil
	}
	return b.Instrs[len(b.Instrs)-1]
}

// HasSuccessor reports whether other appears in b's successor list.
func (b *Block) HasSuccessor(other *Block) bool {
	for _, e := range b.Succs {
		if e.b == other {
			return true
		}
	}
	return false
}

// SuccEdgeTo returns the index of the first successor edge to other,
// or -1.
func (b *Block) SuccEdgeTo(other *Block) int {
	for i, e := range b.Succs {
		if e.b == other {
			return i
		}
	}
	return -1
}

// addSucc appends a successor edge to other, and the corresponding
// predecessor edge on other back to b, keeping indices in lockstep.
func (b *Block) addSucc(other *Block) {
	si := len(b.Succs)
	pi := len(other.Preds)
	b.Succs = append(b.Succs, Edge{b: other, i: pi})
	other.Preds = append(other.Preds, Edge{b: b, i: si})
}

// removeSucc removes the successor edge at index i from b (and its
// matching predecessor edge from the far side), fixing up every
// remaining edge's stored index.
func (b *Block) removeSucc(i int) {
	other := b.Succs[i].b
	otherIdx := b.Succs[i].i
	b.Succs = append(b.Succs[:i], b.Succs[i+1:]...)
	other.Preds = append(other.Preds[:otherIdx], other.Preds[otherIdx+1:]...)
	for j := i; j < len(b.Succs); j++ {
		b.Succs[j].b.Preds[b.Succs[j].i].i = j
	}
	for j := otherIdx; j < len(other.Preds); j++ {
		other.Preds[j].b.Succs[other.Preds[j].i].i = j
	}
}

// replaceSucc redirects the successor edge at index i from its current
// target to newTarget, without disturbing edge indices elsewhere.
func (b *Block) replaceSucc(i int, newTarget *Block) {
	old := b.Succs[i].b
	oldIdx := b.Succs[i].i
	old.Preds = append(old.Preds[:oldIdx], old.Preds[oldIdx+1:]...)
	for j := oldIdx; j < len(old.Preds); j++ {
		old.Preds[j].b.Succs[old.Preds[j].i].i = j
	}
	pi := len(newTarget.Preds)
	newTarget.Preds = append(newTarget.Preds, Edge{b: b, i: i})
	b.Succs[i] = Edge{b: newTarget, i: pi}
}

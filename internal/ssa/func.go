package ssa

import "github.com/rs/zerolog"

// Function is an ordered list of basic blocks; the entry block is
// always Blocks[0] (spec §3).
type Function struct {
	Name   string
	Blocks []*Block

	nextBlockID BlockID
	nextValueID ID

	// Log receives structured trace events from the passes run over
	// this function. The zero value (zerolog.Nop()) discards
	// everything, matching the teacher's f.pass.debug-gated silence
	// when no debug flag is set.
	Log zerolog.Logger

	// caches, invalidated in lockstep by invalidateCFG.
	cachedPostorder []*Block
	cachedDomTree   *DominatorTree
	cachedSCCs      [][]*Block
}

// NewFunction creates an empty function. Blocks are added with
// AddBlock.
func NewFunction(name string) *Function {
	return &Function{Name: name, Log: zerolog.Nop()}
}

// AddBlock creates and appends a new, empty block to f, assigning it
// the next free BlockID. It does not invalidate caches by itself: an
// empty block with no edges cannot affect any previously computed
// postorder/dominance/SCC result until it is wired in with AddEdge,
// which does invalidate.
func (f *Function) AddBlock() *Block {
	b := &Block{ID: f.nextBlockID, Func: f}
	f.nextBlockID++
	f.Blocks = append(f.Blocks, b)
	return b
}

// NewValue allocates a fresh value ID, unique within f.
func (f *Function) NewValue() ID {
	for _, b := range f.Blocks {
		for _, instr := range b.Instrs {
			for _, o := range instr.Operands {
				if (o.IsUse() || o.IsDef()) && o.Value >= f.nextValueID {
					f.nextValueID = o.Value + 1
				}
			}
		}
	}
	v := f.nextValueID
	f.nextValueID++
	return v
}

// AddEdge wires a successor edge from->to and invalidates cached CFG
// derivatives.
func (f *Function) AddEdge(from, to *Block) {
	from.addSucc(to)
	f.invalidateCFG()
}

// NumBlocks returns one past the highest BlockID ever allocated,
// suitable for sizing dense per-block arrays (teacher idiom from
// f.NumBlocks() in dom.go/scc.go).
func (f *Function) NumBlocks() int {
	return int(f.nextBlockID)
}

// Entry returns the function's entry block.
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// invalidateCFG tells f that its CFG has changed: every pass that adds
// a block, rewires an edge, or erases a block must call this before
// any cached query (postorder, dominator tree, SCCs) is trusted again.
func (f *Function) invalidateCFG() {
	f.cachedPostorder = nil
	f.cachedDomTree = nil
	f.cachedSCCs = nil
}

// eraseBlock removes b from f.Blocks. Callers must have already
// detached all of b's edges (see Block.removeSucc) and redirected any
// predecessors elsewhere.
func (f *Function) eraseBlock(b *Block) {
	for i, bb := range f.Blocks {
		if bb == b {
			f.Blocks = append(f.Blocks[:i], f.Blocks[i+1:]...)
			break
		}
	}
	f.invalidateCFG()
}

// Block looks up a block by ID, or nil if none exists (e.g. it was
// erased).
func (f *Function) Block(id BlockID) *Block {
	for _, b := range f.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

package ssa

// This file implements the Loop Rewriter (spec §4.10): given a
// converged Kernel, physically replace the original self-looping block
// with S_max prologues, one kernel, and S_max epilogues, wiring the
// register copies and φ-nodes needed to carry a value produced at one
// stage across to a consumer at a later one (the "values-to-save" set
// of spec §4.10).
//
// A cross-stage value is carried by a single delay register per block
// boundary rather than a depth-sized shift register: the kernel block
// re-executes every stage on every pass, so a stage>0 consumer always
// needs the *previous* pass's value via a φ, regardless of how many
// stages separate it from its producer. Prologues and epilogues, by
// contrast, each execute their instruction range exactly once, so a
// producer and consumer that land in the *same* prologue/epilogue
// still communicate by direct SSA reference — only a consumer whose
// producer was left out of the current block (because the block's
// stage range doesn't reach that far back) needs the φ-carried value.
// This resolves spec §9 open question (b): every block that needs the
// branch condition also gets the condition-producing instruction
// replicated into it (see ensureCondition).
type saveInfo struct {
	producer *DepNode
	value    ID
	stage    int
}

// RewriteLoop replaces b with the prologue/kernel/epilogue sequence
// implied by k, mutating f in place. dt is refreshed as blocks are
// added and b is erased (spec §3 ownership: dominator-tree nodes are
// owned by the DTH).
func RewriteLoop(f *Function, b *Block, ti TargetInfo, k *Kernel, dt *DominatorTree) {
	rw := &rewriteState{f: f, ti: ti, orig: b, k: k, sMax: k.MaxStage, dt: dt}
	if n := dt.GetNode(b); n != nil {
		rw.origIdom = n.Idom
	}
	rw.computeValuesToSave()
	_, rw.condProducer = rw.findConditionProducer()

	rw.buildPrologues()
	rw.buildKernel()
	rw.buildEpilogues()
	rw.wireControlFlow()
	rw.lowerPhis()
	rw.redirectEntryAndErase()
}

// pendingPhi is a φ awaiting lowering: result is the fresh register
// consumers already reference, inputs are its (predecessor, value)
// pairs, and block is where it logically lives (its result must be
// available to every instruction in block).
type pendingPhi struct {
	result ID
	block  *Block
	inputs []PhiInput
}

type rewriteState struct {
	f    *Function
	ti   TargetInfo
	orig *Block
	k    *Kernel
	sMax int
	dt   *DominatorTree

	saves map[ID]*saveInfo

	// prologueTemps[v][i] is the fresh register produced in prologue i
	// holding the value v produced during prologue i's simulated
	// iteration, populated whenever v's producer stage <= i.
	prologueTemps map[ID]map[int]ID
	// kernelTemp[v] is the register the kernel's own stage-0..S_max
	// producer clone copies v into, every pass.
	kernelTemp map[ID]ID
	// kernelPhi[v] is the φ result stage>0 kernel consumers of v use.
	kernelPhi map[ID]ID
	// epiloguePhi[i][v] is epilogue i's φ result, only populated when
	// v's producer stage <= i (otherwise producer and consumer are
	// co-resident in epilogue i and reference v directly).
	epiloguePhi []map[ID]ID

	condProducer *DepNode

	// origIdom is orig's own immediate dominator before rewriting, i.e.
	// whatever dominated the loop from outside it. prologue0 (or the
	// kernel, when S_max is 0) takes orig's place in the tree, so it is
	// parented here directly rather than onto orig, which won't exist
	// once redirectEntryAndErase runs.
	origIdom *Block

	prologues []*Block
	kernel    *Block
	epilogues []*Block // epilogues[i] drains stage range (i, S_max]

	phis []pendingPhi
}

// computeValuesToSave finds every value produced by one kernel node
// and consumed by another at a strictly later stage (spec §4.10
// "Values-to-save set").
func (rw *rewriteState) computeValuesToSave() {
	stageOf := make(map[*DepNode]int, len(rw.k.Entries))
	for _, e := range rw.k.Entries {
		stageOf[e.Node] = e.Stage
	}
	rw.saves = map[ID]*saveInfo{}
	for _, e := range rw.k.Entries {
		n := e.Node
		for _, de := range n.Succs {
			cs, ok := stageOf[de.To]
			if !ok || cs <= e.Stage {
				continue
			}
			for _, op := range n.Instr.Operands {
				if !op.IsDef() {
					continue
				}
				used := false
				for _, uop := range de.To.Instr.Operands {
					if uop.IsUse() && uop.Value == op.Value {
						used = true
						break
					}
				}
				if !used {
					continue
				}
				if _, ok := rw.saves[op.Value]; !ok {
					rw.saves[op.Value] = &saveInfo{producer: n, value: op.Value, stage: e.Stage}
				}
			}
		}
	}
}

// findConditionProducer locates the kernel instruction (if any) that
// defines the original block terminator's value-reference operand.
func (rw *rewriteState) findConditionProducer() (ID, *DepNode) {
	term := rw.orig.Terminator()
	if term == nil {
		return 0, nil
	}
	var condID ID
	found := false
	for _, op := range term.Operands {
		if op.Kind == ValueRef {
			condID, found = op.Value, true
			break
		}
	}
	if !found {
		return 0, nil
	}
	for _, e := range rw.k.Entries {
		for _, op := range e.Node.Instr.Operands {
			if op.IsDef() && op.Value == condID {
				return condID, e.Node
			}
		}
	}
	return condID, nil
}

// stageNodes returns the kernel entries at the given stage, in kernel
// order, skipping branches.
func (rw *rewriteState) stageNodes(stage int) []*DepNode {
	var out []*DepNode
	for _, e := range rw.k.Entries {
		if e.Stage == stage && !rw.ti.IsBranch(e.Node.Instr.Op) {
			out = append(out, e.Node)
		}
	}
	return out
}

func (rw *rewriteState) producerStage(n *DepNode) int {
	for _, e := range rw.k.Entries {
		if e.Node == n {
			return e.Stage
		}
	}
	return -1
}

// ensureCondition appends a clone of the condition-producing
// instruction to block if its stage falls outside the range already
// cloned into it, so the block's terminator always has a live operand
// to reference (spec §9 open question (b)).
func (rw *rewriteState) ensureCondition(block *Block, covered func(stage int) bool) {
	if rw.condProducer == nil {
		return
	}
	if covered(rw.producerStage(rw.condProducer)) {
		return
	}
	block.Instrs = append(block.Instrs, rw.condProducer.Instr.Clone())
}

// buildPrologues emits S_max prologue blocks (spec §4.10 "Prologue
// sequence").
func (rw *rewriteState) buildPrologues() {
	rw.prologueTemps = map[ID]map[int]ID{}
	for v := range rw.saves {
		rw.prologueTemps[v] = map[int]ID{}
	}
	for i := 0; i < rw.sMax; i++ {
		blk := rw.f.AddBlock()
		for j := 0; j <= i; j++ {
			for _, n := range rw.stageNodes(j) {
				inst := n.Instr.Clone()
				blk.Instrs = append(blk.Instrs, inst)
				for _, op := range inst.Operands {
					if !op.IsDef() {
						continue
					}
					if _, ok := rw.saves[op.Value]; ok {
						temp := rw.f.NewValue()
						blk.Instrs = append(blk.Instrs, rw.ti.CopyRegister(op.Value, temp))
						rw.prologueTemps[op.Value][i] = temp
					}
				}
			}
		}
		rw.ensureCondition(blk, func(stage int) bool { return stage <= i })
		rw.prologues = append(rw.prologues, blk)
		idom := rw.origIdom
		if i > 0 {
			idom = rw.prologues[i-1]
		}
		rw.dt.AddNewBlock(blk, idom)
	}
}

// buildKernel emits the single kernel block (spec §4.10 "Kernel
// block").
func (rw *rewriteState) buildKernel() {
	rw.kernelTemp = map[ID]ID{}
	rw.kernelPhi = map[ID]ID{}
	blk := rw.f.AddBlock()

	for _, e := range rw.k.Entries {
		if rw.ti.IsBranch(e.Node.Instr.Op) {
			continue
		}
		inst := e.Node.Instr.Clone()
		if e.Stage > 0 {
			for v := range rw.saves {
				inst.RewriteUses(v, rw.kernelPhiFor(v))
			}
		}
		blk.Instrs = append(blk.Instrs, inst)
		for _, op := range inst.Operands {
			if op.IsDef() {
				if _, ok := rw.saves[op.Value]; ok {
					temp := rw.f.NewValue()
					blk.Instrs = append(blk.Instrs, rw.ti.CopyRegister(op.Value, temp))
					rw.kernelTemp[op.Value] = temp
				}
			}
		}
	}

	for v := range rw.saves {
		rw.phis = append(rw.phis, pendingPhi{
			result: rw.kernelPhiFor(v),
			block:  blk,
			inputs: []PhiInput{
				{Pred: rw.lastPrologueOrOrig(), Value: rw.prologueTemps[v][rw.sMax-1]},
				{Pred: blk, Value: rw.kernelTemp[v]},
			},
		})
	}

	rw.ensureCondition(blk, func(int) bool { return true })
	rw.kernel = blk
	idom := rw.origIdom
	if len(rw.prologues) > 0 {
		idom = rw.prologues[len(rw.prologues)-1]
	}
	rw.dt.AddNewBlock(blk, idom)
}

// kernelPhiFor lazily allocates the φ result register for v, since
// stage>0 consumers are rewritten before the producing φ is itself
// registered.
func (rw *rewriteState) kernelPhiFor(v ID) ID {
	if id, ok := rw.kernelPhi[v]; ok {
		return id
	}
	id := rw.f.NewValue()
	rw.kernelPhi[v] = id
	return id
}

func (rw *rewriteState) lastPrologueOrOrig() *Block {
	if len(rw.prologues) > 0 {
		return rw.prologues[len(rw.prologues)-1]
	}
	return rw.orig
}

// buildEpilogues emits S_max epilogue blocks (spec §4.10 "Epilogue
// sequence"), processed from index S_max-1 down to 0; epilogue i
// re-emits every non-branch instruction at stage j in (i, S_max].
func (rw *rewriteState) buildEpilogues() {
	rw.epilogues = make([]*Block, rw.sMax)
	rw.epiloguePhi = make([]map[ID]ID, rw.sMax)

	for idx := 0; idx < rw.sMax; idx++ {
		i := rw.sMax - 1 - idx
		blk := rw.f.AddBlock()
		rw.epiloguePhi[i] = map[ID]ID{}

		for v, si := range rw.saves {
			if si.stage > i {
				continue // producer is co-resident in this epilogue; direct reference suffices
			}
			var prev ID
			if i == rw.sMax-1 {
				prev = rw.kernelPhi[v]
			} else {
				prev = rw.epiloguePhiFor(i+1, v)
			}
			result := rw.epiloguePhiFor(i, v)
			rw.phis = append(rw.phis, pendingPhi{
				result: result,
				block:  blk,
				inputs: []PhiInput{
					{Pred: rw.prevEpilogueBlock(i), Value: prev},
					{Pred: rw.prologues[i], Value: rw.prologueTemps[v][i]},
				},
			})
		}

		for j := i + 1; j <= rw.sMax; j++ {
			for _, n := range rw.stageNodes(j) {
				inst := n.Instr.Clone()
				for v, si := range rw.saves {
					if si.stage <= i {
						inst.RewriteUses(v, rw.epiloguePhiFor(i, v))
					}
				}
				blk.Instrs = append(blk.Instrs, inst)
			}
		}

		rw.ensureCondition(blk, func(stage int) bool { return stage > i })
		rw.epilogues[i] = blk
		idom := rw.kernel
		if i != rw.sMax-1 {
			idom = rw.epilogues[i+1]
		}
		rw.dt.AddNewBlock(blk, idom)
	}
}

func (rw *rewriteState) epiloguePhiFor(i int, v ID) ID {
	if id, ok := rw.epiloguePhi[i][v]; ok {
		return id
	}
	id := rw.f.NewValue()
	rw.epiloguePhi[i][v] = id
	return id
}

func (rw *rewriteState) prevEpilogueBlock(i int) *Block {
	if i == rw.sMax-1 {
		return rw.kernel
	}
	return rw.epilogues[i+1]
}

// wireControlFlow attaches a retargeted clone of the original
// terminator to every prologue and to the kernel, and an unconditional
// branch to each epilogue, establishing the real CFG edges (spec
// §4.10 "Control-flow fixup").
func (rw *rewriteState) wireControlFlow() {
	orig := rw.orig
	var exitTarget *Block
	for _, e := range orig.Succs {
		if e.Block() != orig {
			exitTarget = e.Block()
		}
	}
	term := orig.Terminator()

	attach := func(blk, selfTarget, exit *Block) {
		if term == nil {
			return
		}
		clone := term.Clone()
		for i, op := range clone.Operands {
			if op.Kind != BlockRef {
				continue
			}
			switch {
			case op.Block == orig.ID:
				clone.Operands[i].Block = selfTarget.ID
				rw.f.AddEdge(blk, selfTarget)
			case exitTarget != nil && op.Block == exitTarget.ID:
				clone.Operands[i].Block = exit.ID
				rw.f.AddEdge(blk, exit)
			}
		}
		blk.Instrs = append(blk.Instrs, clone)
	}

	if rw.sMax == 0 {
		attach(rw.kernel, rw.kernel, exitTarget)
		return
	}

	for i := 0; i < rw.sMax; i++ {
		warm := rw.kernel
		if i+1 < rw.sMax {
			warm = rw.prologues[i+1]
		}
		attach(rw.prologues[i], warm, rw.epilogues[rw.sMax-1-i])
	}
	attach(rw.kernel, rw.kernel, rw.epilogues[rw.sMax-1])

	for i := rw.sMax - 1; i >= 0; i-- {
		var next *Block
		if i == 0 {
			next = exitTarget
		} else {
			next = rw.epilogues[i-1]
		}
		if next == nil {
			continue
		}
		rw.f.AddEdge(rw.epilogues[i], next)
		rw.epilogues[i].Instrs = append(rw.epilogues[i].Instrs, rw.ti.UnconditionalBranch(next))
	}
}

// lowerPhis replaces every pending φ with the standard out-of-SSA
// construction (spec §4.10 "φ-node removal"): a copy from the
// incoming value to a single fresh destination at the end of each
// predecessor block, and a copy from that destination to the φ's own
// result at the top of the φ's block.
func (rw *rewriteState) lowerPhis() {
	for _, p := range rw.phis {
		dest := rw.f.NewValue()
		for _, in := range p.inputs {
			insertBeforeTerminator(in.Pred, rw.ti.CopyRegister(in.Value, dest))
		}
		prependInstr(p.block, rw.ti.CopyRegister(dest, p.result))
	}
}

func insertBeforeTerminator(b *Block, instr *Instruction) {
	n := len(b.Instrs)
	if n == 0 {
		b.Instrs = append(b.Instrs, instr)
		return
	}
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[n:], b.Instrs[n-1:n])
	b.Instrs[n-1] = instr
}

func prependInstr(b *Block, instr *Instruction) {
	b.Instrs = append([]*Instruction{instr}, b.Instrs...)
}

// redirectEntryAndErase retargets every external predecessor of the
// original block to the new entry point (the first prologue, or the
// kernel if S_max is 0), detaches the original block's own edges, and
// erases it.
func (rw *rewriteState) redirectEntryAndErase() {
	newEntry := rw.kernel
	if len(rw.prologues) > 0 {
		newEntry = rw.prologues[0]
	}

	preds := append([]Edge(nil), rw.orig.Preds...)
	for _, e := range preds {
		if e.Block() == rw.orig {
			continue // self edge, detached below
		}
		pred, idx := e.Block(), e.Index()
		pred.replaceSucc(idx, newEntry)
		if term := pred.Terminator(); term != nil {
			for i, op := range term.Operands {
				if op.Kind == BlockRef && op.Block == rw.orig.ID {
					term.Operands[i].Block = newEntry.ID
				}
			}
		}
	}

	for len(rw.orig.Succs) > 0 {
		rw.orig.removeSucc(0)
	}

	// newEntry has already taken orig's place as the tree node parented
	// on origIdom (see buildPrologues/buildKernel); any other block
	// orig used to dominate directly (e.g. the loop's exit block) is
	// reparented onto newEntry, the new sole entry to the replacement
	// chain, not onto origIdom.
	wasEntry := rw.f.Entry() == rw.orig
	rw.dt.EraseNode(rw.orig, newEntry)
	rw.f.eraseBlock(rw.orig)
	if wasEntry {
		// Keep the function's entry block at Blocks[0].
		for i, blk := range rw.f.Blocks {
			if blk == newEntry {
				copy(rw.f.Blocks[1:i+1], rw.f.Blocks[:i])
				rw.f.Blocks[0] = newEntry
				break
			}
		}
	}
}

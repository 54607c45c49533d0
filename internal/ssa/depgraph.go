package ssa

// This file implements the Dependence Graph Builder (DGB, spec §4.3):
// building the per-loop dependence DAG-with-back-edges that Core A
// schedules over.

// EdgeKind classifies a DepEdge (spec §3 Dependence Edge).
type EdgeKind uint8

const (
	// TrueDep is a def-to-use edge.
	TrueDep EdgeKind = iota
	// AntiDep is a use-to-subsequent-def edge.
	AntiDep
	// OutputDep is a def-to-def edge.
	OutputDep
	// MachineRegDep is an edge induced by sharing a fixed physical
	// register rather than an SSA value.
	MachineRegDep
)

// DepEdge connects two DepNodes with an iteration-difference label
// (spec §3). Delta 0 is intra-iteration; delta>=1 is loop-carried.
type DepEdge struct {
	From, To *DepNode
	Kind     EdgeKind
	Delta    int
}

// DepNode wraps one instruction of the candidate loop block (spec
// §3). Preds/Succs are populated by BuildDependenceGraph; the
// attribute fields are filled in by ComputeAttributes (§4.4) and
// invalidated whenever the II changes.
type DepNode struct {
	Instr   *Instruction
	Latency int
	Preds   []*DepEdge
	Succs   []*DepEdge

	index int // position in the owning graph's Nodes slice

	asap, alap, mob, depth, height int
	attrsValid                     bool
}

// DependenceGraph is the per-loop dependence DAG (with back-edges)
// built by the DGB and consumed by Core A. It is discarded once the
// loop has been rewritten (spec §3 ownership/lifecycle).
type DependenceGraph struct {
	Nodes []*DepNode
	Block *Block

	// ignoreSet holds the back-edges chosen during recurrence
	// enumeration (§4.5); attribute computation and node ordering
	// both skip these when walking Preds/Succs. It is carried as a
	// set of (edge) values, never by mutating the graph, so the
	// original edges remain available to the scheduler (design note
	// "Cyclic dependence graph").
	ignoreSet map[*DepEdge]bool
}

func newDepNode(instr *Instruction, latency int) *DepNode {
	return &DepNode{Instr: instr, Latency: latency}
}

func (g *DependenceGraph) addNode(n *DepNode) {
	n.index = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
}

func (g *DependenceGraph) addEdge(from, to *DepNode, kind EdgeKind, delta int) *DepEdge {
	e := &DepEdge{From: from, To: to, Kind: kind, Delta: delta}
	from.Succs = append(from.Succs, e)
	to.Preds = append(to.Preds, e)
	return e
}

// ignored reports whether e is a chosen back-edge that attribute
// computation and node ordering must skip.
func (g *DependenceGraph) ignored(e *DepEdge) bool {
	return g.ignoreSet != nil && g.ignoreSet[e]
}

// BuildDependenceGraph builds the dependence graph for the single
// eligible loop block b (spec §4.3). Latency of a node is
// ti.CycleCost(instruction). Edges:
//
//   - True: a def at instruction i reaching a use at instruction j>i in
//     the same iteration (delta 0), or reaching back around to a use at
//     an earlier instruction j<i in the *next* iteration (delta 1) —
//     this is how a loop-carried dependence through a register shows up
//     in a single-block self-loop.
//   - Anti: a use at i of a register later redefined at j>i (delta 0),
//     or redefined at j<=i in the next iteration (delta 1).
//   - Output: two defs of the same register, ordered the same way.
//
// Physical-register edges (MachineRegDep) are emitted wherever two
// operands alias the same ID but are marked as fixed by the caller;
// this implementation treats all IDs as virtual, matching the "already
// consistently identified" contract of spec §6, so MachineRegDep edges
// never arise here — the Kind exists so a future target-specific DGB
// extension can add them without changing the schedule search.
func BuildDependenceGraph(b *Block, ti TargetInfo) *DependenceGraph {
	g := &DependenceGraph{Block: b}
	for _, instr := range b.Instrs {
		g.addNode(newDepNode(instr, ti.CycleCost(instr)))
	}

	// lastDef/lastUse track, for each register ID, the index of the
	// most recent def/use instructions seen so far in program order
	// (delta 0 edges), so each subsequent reference only needs an O(1)
	// lookup rather than an O(n^2) scan.
	lastDef := map[ID]int{}
	lastUse := map[ID][]int{}

	for i, instr := range b.Instrs {
		for _, o := range instr.Operands {
			switch {
			case o.IsUse():
				if di, ok := lastDef[o.Value]; ok {
					g.addEdge(g.Nodes[di], g.Nodes[i], TrueDep, 0)
				}
				lastUse[o.Value] = append(lastUse[o.Value], i)
			case o.IsDef():
				for _, ui := range lastUse[o.Value] {
					if ui != i {
						g.addEdge(g.Nodes[ui], g.Nodes[i], AntiDep, 0)
					}
				}
				if di, ok := lastDef[o.Value]; ok && di != i {
					g.addEdge(g.Nodes[di], g.Nodes[i], OutputDep, 0)
				}
				lastDef[o.Value] = i
				lastUse[o.Value] = nil
			}
		}
	}

	// Loop-carried edges (delta 1): a def that is still the last
	// def/use of its register at the end of the block closes a
	// back-edge to whichever instruction(s) re-reference that register
	// at the top of the next iteration.
	for i, instr := range b.Instrs {
		for _, o := range instr.Operands {
			if !o.IsUse() {
				continue
			}
			if di, ok := lastDef[o.Value]; ok && di >= i {
				// di is this iteration's def that will feed i in the
				// *next* iteration: the only way di >= i is if the def
				// happens later in program order than this use within
				// the same block, which means it must carry to the
				// next iteration to reach this use.
				g.addEdge(g.Nodes[di], g.Nodes[i], TrueDep, 1)
			}
		}
	}
	for i, instr := range b.Instrs {
		for _, o := range instr.Operands {
			if !o.IsDef() {
				continue
			}
			for _, ui := range lastUse[o.Value] {
				if ui >= i {
					g.addEdge(g.Nodes[i], g.Nodes[ui], AntiDep, 1)
				}
			}
		}
	}

	return g
}

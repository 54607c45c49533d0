package ssa

import "sort"

// KernelEntry is one (instruction, stage) pair of a compacted Kernel
// (spec §3 Kernel).
type KernelEntry struct {
	Node  *DepNode
	Stage int
	Slot  int // cycle mod II, used to order entries within the kernel
}

// Kernel is the single-II-window view of a converged Schedule.
type Kernel struct {
	II      int
	Entries []KernelEntry
	MaxStage int
}

// CompactKernel folds s into a Kernel: every node's cycle mod II
// becomes its slot, floor(cycle/II) becomes its stage, and entries are
// ordered by slot (ties broken by original cycle, to keep instructions
// that share a slot in their relative program order).
func CompactKernel(s *Schedule) *Kernel {
	k := &Kernel{II: s.II}
	type tmp struct {
		n    *DepNode
		c    int
		slot int
	}
	var items []tmp
	for n, c := range s.cycle {
		items = append(items, tmp{n: n, c: c, slot: mod(c, s.II)})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].slot != items[j].slot {
			return items[i].slot < items[j].slot
		}
		return items[i].c < items[j].c
	})
	for _, it := range items {
		stage := it.c / s.II
		if it.c < 0 {
			stage = (it.c - s.II + 1) / s.II
		}
		if stage > k.MaxStage {
			k.MaxStage = stage
		}
		k.Entries = append(k.Entries, KernelEntry{Node: it.n, Stage: stage, Slot: it.slot})
	}
	return k
}

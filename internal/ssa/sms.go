package ssa

// ScheduleLoop runs Core A's pipeline end to end over a single
// candidate loop block: eligibility filter (§4.2), dependence graph
// build (§4.3), recurrence enumeration (§4.5), II initialization
// (§4.6), partial order (§4.7), node ordering (§4.8), and schedule
// search with kernel compaction (§4.9). It returns ErrNotEligible or
// ErrScheduleInfeasible (both recoverable: b is left untouched) or a
// converged Kernel ready for the Loop Rewriter (§4.10).
func ScheduleLoop(b *Block, ti TargetInfo) (*Kernel, *DependenceGraph, error) {
	log := b.Func.Log.With().Str("block", b.String()).Logger()

	if err := CheckEligible(b, ti); err != nil {
		log.Debug().Err(err).Msg("loop declined eligibility")
		return nil, nil, err
	}

	g := BuildDependenceGraph(b, ti)
	recs := FindRecurrences(g)

	resMII := ResMII(g, ti)
	recMII := RecMII(recs)
	ii0 := InitialII(resMII, recMII)
	log.Debug().Int("resMII", resMII).Int("recMII", recMII).Int("ii0", ii0).Msg("initial II computed")

	ComputeAttributes(g, ii0)
	sets := BuildPartialOrder(g, recs)
	order := OrderNodes(g, sets)

	sched, err := Search(g, ti, order, ii0, b)
	if err != nil {
		log.Debug().Err(err).Msg("schedule search exhausted II bound")
		return nil, nil, err
	}
	k := CompactKernel(sched)
	log.Info().Int("ii", sched.II).Int("maxStage", k.MaxStage).Msg("loop pipelined")
	return k, g, nil
}

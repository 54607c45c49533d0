package ssa

import (
	"errors"
	"fmt"
)

// The four error kinds of the error handling design (spec §7).
// NotEligible and ScheduleInfeasible are recoverable: Core A abstains
// and returns the function untransformed. InconsistentCFG is a
// programming error in an earlier pipeline stage; DominatorStale means
// the dominator tree lookup missed a block BPB can still skip for this
// iteration.
var (
	ErrNotEligible        = errors.New("ssa: loop not eligible for modulo scheduling")
	ErrScheduleInfeasible = errors.New("ssa: no feasible schedule within II bound")
	ErrInconsistentCFG    = errors.New("ssa: terminator/successor-list mismatch")
	ErrDominatorStale     = errors.New("ssa: dominator tree has no node for block")
)

// notEligible wraps ErrNotEligible with the specific reason a loop
// block was rejected by the eligibility filter (spec §4.2).
func notEligible(b *Block, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrNotEligible, b, reason)
}

// scheduleInfeasible wraps ErrScheduleInfeasible with the II bound that
// was exceeded (spec §5 timeout).
func scheduleInfeasible(b *Block, maxII int) error {
	return fmt.Errorf("%w: %s: II exceeded bound %d", ErrScheduleInfeasible, b, maxII)
}

// Fatalf reports a programming-error invariant violation (InconsistentCFG
// and friends) and aborts compilation of the function, mirroring the
// teacher's Block.Fatalf/Func.Fatalf convention (dom.go's
// computeLoopDepths calls l.header.Fatalf on a bad invariant instead of
// returning an error — these are bugs in an earlier stage, not
// conditions the pass itself can recover from).
func (f *Function) Fatalf(format string, args ...any) {
	panic(fmt.Sprintf("ssa: fatal in %s: %s", f.Name, fmt.Sprintf(format, args...)))
}

// Fatalf reports a fatal invariant violation anchored at block b.
func (b *Block) Fatalf(format string, args ...any) {
	b.Func.Fatalf("%s: %s", b, fmt.Sprintf(format, args...))
}

package ssa

// CheckEligible implements the Loop Eligibility Filter (spec §4.2):
// Core A's gate for single-block inner loops. A block is eligible iff
// it is its own successor and contains no call instruction.
func CheckEligible(b *Block, ti TargetInfo) error {
	if !b.HasSuccessor(b) {
		return notEligible(b, "not a single-block self-loop")
	}
	for _, instr := range b.Instrs {
		if ti.IsCall(instr.Op) {
			return notEligible(b, "contains a call instruction")
		}
	}
	return nil
}

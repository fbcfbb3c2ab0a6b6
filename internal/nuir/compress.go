package nuir

import "github.com/totalspectrum/spinc/internal/nucode"

// pairKey identifies an adjacent (first, second) assigned-bytecode pair
// considered for macro fusion, by pointer identity into the pool.
type pairKey struct {
	first, second *nucode.NuBytecode
}

// CountPairs scans every adjacent instruction pair across the whole-program
// chain of per-function lists and tallies how often each (first, second)
// bytecode adjacency occurs, restricted to pairs eligible for fusion: neither
// side is inline asm or a relative branch, both are already below
// MaxMacroDepth, and both already hold a real assigned code (not the
// CodeDirect/CodePushI/CodePushA dispatch sentinels) — fusing a constant push
// or a direct-dispatch op would defeat the point of giving it a dedicated
// slot in the first place.
//
// Lists must already have Bytecode assigned on every instruction (i.e. run
// after Pool.AssignCodes).
func CountPairs(head *List) []nucode.PairCount {
	counts := make(map[pairKey]*nucode.PairCount)
	var order []pairKey

	for list := head; list != nil; list = list.NextList {
		for ins := list.Head; ins != nil && ins.Next != nil; ins = ins.Next {
			a, b := ins.Bytecode, ins.Next.Bytecode
			if !fusionEligible(a) || !fusionEligible(b) {
				continue
			}
			key := pairKey{a, b}
			if pc, ok := counts[key]; ok {
				pc.Count++
				continue
			}
			pc := &nucode.PairCount{First: a, Second: b, Count: 1}
			counts[key] = pc
			order = append(order, key)
		}
	}

	out := make([]nucode.PairCount, 0, len(order))
	for _, key := range order {
		out = append(out, *counts[key])
	}
	return out
}

func fusionEligible(bc *nucode.NuBytecode) bool {
	if bc == nil {
		return false
	}
	if bc.IsInlineAsm || bc.IsRelBranch {
		return false
	}
	if bc.MacroDepth >= nucode.MaxMacroDepth {
		return false
	}
	return bc.Code >= nucode.FirstBytecode
}

// BestPairCandidate picks the highest-count pair from CountPairs' output and
// reports the projected savings of fusing it: every fused occurrence saves
// one bytecode byte at a flat 10-byte cost for the new opcode, so
// savings = maxCount - 10 (a singleton's savings is 4*usage-impl_cost); the
// allocator's greedy loop alternates this against BestSingletonCandidate and
// applies whichever is larger.
func BestPairCandidate(counts []nucode.PairCount) (nucode.PairCount, int) {
	var best nucode.PairCount
	bestSavings := 0
	for _, pc := range counts {
		savings := pc.Count - 10
		if savings > bestSavings {
			best, bestSavings = pc, savings
		}
	}
	return best, bestSavings
}

// ApplyFusion replaces every eligible occurrence of (first, second) across
// the whole-program chain with a single instruction carrying fused, splicing
// the pair out of each list. It returns how many sites were fused.
func ApplyFusion(head *List, first, second *nucode.NuBytecode, fused *nucode.NuBytecode) int {
	applied := 0
	for list := head; list != nil; list = list.NextList {
		ins := list.Head
		for ins != nil && ins.Next != nil {
			next := ins.Next
			if ins.Bytecode == first && next.Bytecode == second {
				merged := &Instruction{
					Op:       ins.Op,
					Val:      ins.Val,
					Label:    ins.Label,
					Comment:  ins.Op.String() + "+" + next.Op.String(),
					Bytecode: fused,
				}
				merged.Prev = ins.Prev
				merged.Next = next.Next
				if merged.Prev != nil {
					merged.Prev.Next = merged
				} else {
					list.Head = merged
				}
				if merged.Next != nil {
					merged.Next.Prev = merged
				} else {
					list.Tail = merged
				}
				applied++
				ins = merged.Next
				continue
			}
			ins = ins.Next
		}
	}
	fused.Usage = applied
	return applied
}

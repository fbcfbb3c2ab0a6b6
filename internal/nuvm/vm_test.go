package nuvm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/totalspectrum/spinc/internal/nucode"
	"github.com/totalspectrum/spinc/internal/nuir"
)

func buildList(ops []nucode.Op, vals []int64) *nuir.List {
	list := nuir.NewList("f")
	for i, op := range ops {
		var v int64
		if i < len(vals) {
			v = vals[i]
		}
		list.Append(&nuir.Instruction{Op: op, Val: v})
	}
	return list
}

func TestRunArithmetic(t *testing.T) {
	list := buildList(
		[]nucode.Op{nucode.PUSHI, nucode.PUSHI, nucode.ADD, nucode.RET},
		[]int64{7, 5, 0, 0},
	)
	got, err := Run(list, 0)
	require.NoError(t, err)
	require.Equal(t, int32(12), got)
}

func TestRunLocalsStoreLoad(t *testing.T) {
	list := buildList(
		[]nucode.Op{nucode.PUSHI, nucode.STOREL, nucode.LOADL, nucode.RET},
		[]int64{42, 0, 0, 0},
	)
	got, err := Run(list, 1)
	require.NoError(t, err)
	require.Equal(t, int32(42), got)
}

// TestFusedMacroObservationallyEquivalent checks spec invariant 6: running
// a fused DUP_ADD bytecode produces the same result as running DUP then ADD
// in sequence, for a representative input.
func TestFusedMacroObservationallyEquivalent(t *testing.T) {
	unfused := buildList(
		[]nucode.Op{nucode.PUSHI, nucode.DUP, nucode.ADD, nucode.RET},
		[]int64{9, 0, 0, 0},
	)
	unfusedResult, err := Run(unfused, 0)
	require.NoError(t, err)

	pool := nucode.NewPool()
	dupBc := pool.InternOp(nucode.DUP)
	addBc := pool.InternOp(nucode.ADD)
	fused := nucode.NuMergeBytecodes(dupBc, addBc)

	fusedList := nuir.NewList("f")
	fusedList.Append(&nuir.Instruction{Op: nucode.PUSHI, Val: 9})
	merged := &nuir.Instruction{Op: nucode.DUP, Bytecode: fused}
	fusedList.Append(merged)
	fusedList.Append(&nuir.Instruction{Op: nucode.RET})

	fusedResult, err := Run(fusedList, 0)
	require.NoError(t, err)

	require.Equal(t, unfusedResult, fusedResult)
	require.Equal(t, int32(18), fusedResult)
}

func TestRunBranches(t *testing.T) {
	// if 0 goto skip; push 99; skip: push 1; ret  -> leaves 1 on top since
	// condition is false (0 == 0 -> BRZ taken).
	list := nuir.NewList("f")
	list.Append(&nuir.Instruction{Op: nucode.PUSHI, Val: 0})
	list.Append(&nuir.Instruction{Op: nucode.BRZ, Label: "skip"})
	list.Append(&nuir.Instruction{Op: nucode.PUSHI, Val: 99})
	list.Append(&nuir.Instruction{Op: nucode.LABEL, Label: "skip"})
	list.Append(&nuir.Instruction{Op: nucode.PUSHI, Val: 1})
	list.Append(&nuir.Instruction{Op: nucode.RET})

	got, err := Run(list, 0)
	require.NoError(t, err)
	require.Equal(t, int32(1), got)
}

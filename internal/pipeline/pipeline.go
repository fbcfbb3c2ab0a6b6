// Package pipeline sequences a whole compilation: given an already-bound
// Module (see internal/bind), run the per-function/per-module analysis
// passes, generate Nu IR, then drive the allocator's census-assign-compress
// loop across every function's IR at once. This is the "whoever drives a
// whole compilation" referenced by internal/nucode's and internal/nuir's
// own doc comments — neither package can own this sequencing itself
// without an import cycle, since it calls into both.
//
// Grounded on kong's main.go/repl.go driver shape: both call
// lexer.New -> parser.New -> p.ParseProgram -> compiler.New().Compile, one
// straight-line sequence with no separate scheduler type. This package is
// that sequence's Spin analogue, just split across more passes.
package pipeline

import (
	"fmt"

	"github.com/totalspectrum/spinc/internal/diag"
	"github.com/totalspectrum/spinc/internal/eval"
	"github.com/totalspectrum/spinc/internal/module"
	"github.com/totalspectrum/spinc/internal/nucode"
	"github.com/totalspectrum/spinc/internal/nuir"
	"github.com/totalspectrum/spinc/internal/typeinfer"
)

// Result holds everything a caller (cmd/spinc, internal/replui) needs to
// inspect or emit a compiled module: the bound Module, one Nu IR List per
// function (keyed by function name), and the shared allocator Pool once
// AssignCodes and the compression loop have both run to completion.
type Result struct {
	Module *module.Module
	Lists  map[string]*nuir.List
	Pool   *nucode.Pool
}

// Compile runs every function in mod through typeinfer, Nu IR generation,
// and the allocator's census/assign/compress loop, returning the per-
// function IR and the shared bytecode Pool. mod's functions must already
// have Body/Params/Locals/LocalSyms populated (see internal/bind.Program).
//
// Function bodies passed through this pipeline are expected to already be
// in canonical form (FORSTMT, not REPEATCOUNT; RANGEASSIGN already
// lowered): internal/lower's passes rewrite a raw parsed body into that
// form given a *module.Function and a Hoister, which needs to run per
// statement as the body is normalized — out of scope for this pipeline, in
// keeping with the non-goal of not implementing a full Spin parser/
// normalizer over arbitrary source text. Callers that want REPEAT/CASE/
// range sugar must pre-lower the body themselves (see each internal/lower
// file's own tests for the shape that leaves behind).
func Compile(mod *module.Module, bag *diag.Bag) (*Result, error) {
	typeinfer.ProcessModule(mod)

	lists := make(map[string]*nuir.List, len(mod.Functions))
	var chain []*nuir.List
	for _, fn := range mod.Functions {
		if fn.Body == nil {
			return nil, fmt.Errorf("pipeline: function %s has no body bound", fn.Name)
		}
		ctx := eval.NewContext(fn.LocalSyms, fn.LocalRoot)
		list := nuir.Gen(ctx, fn, bag)
		lists[fn.Name] = list
		chain = append(chain, list)
	}
	linkChain(chain)

	if bag != nil && bag.HasErrors() {
		return &Result{Module: mod, Lists: lists}, nil
	}

	pool := nucode.NewPool()
	censusAssign(chain, pool)
	pool.AssignCodes()
	compress(firstOf(chain), pool)

	return &Result{Module: mod, Lists: lists, Pool: pool}, nil
}

// linkChain threads NextList through every compiled function's list so
// CountPairs/ApplyFusion's List.NextList walk reaches all of them from one
// head, matching the whole-program chain internal/nuir.List's doc comment
// describes.
func linkChain(lists []*nuir.List) {
	for i := 0; i+1 < len(lists); i++ {
		lists[i].NextList = lists[i+1]
	}
}

func firstOf(lists []*nuir.List) *nuir.List {
	if len(lists) == 0 {
		return nil
	}
	return lists[0]
}

// censusAssign walks every function's IR once, interning each instruction's
// Op/Val into pool and recording the resulting NuBytecode on the
// instruction itself — the step internal/nucode.Pool's doc comments assume
// already happened by the time AssignCodes runs.
func censusAssign(lists []*nuir.List, pool *nucode.Pool) {
	for _, list := range lists {
		for ins := list.Head; ins != nil; ins = ins.Next {
			if ins.Op.IsPseudo() {
				continue
			}
			switch ins.Op {
			case nucode.PUSHI:
				ins.Bytecode = pool.InternPushI(ins.Val)
			case nucode.PUSHA:
				ins.Bytecode = pool.InternPushA(ins.Label)
			default:
				ins.Bytecode = pool.InternOp(ins.Op)
			}
		}
	}
}

// compress runs the allocator's greedy loop to convergence: at each step,
// compare the best available constant-singleton specialisation against the
// best available two-op macro fusion (internal/nuir.CountPairs over every
// function's list, reached from head via List.NextList) and apply whichever
// currently projects the larger savings, stopping once neither shows a
// positive number. Grounded on spec.md §4.3's description of
// NuFindCompressBytecode's own loop.
func compress(head *nuir.List, pool *nucode.Pool) {
	for {
		singleton, singletonSavings := nucode.BestSingletonCandidate(pool)
		counts := nuir.CountPairs(head)
		pairBest, pairSavings := nuir.BestPairCandidate(counts)

		if singletonSavings <= 0 && pairSavings <= 0 {
			return
		}
		if singletonSavings >= pairSavings {
			nucode.SpecializeSingleton(singleton)
			continue
		}
		fused := nucode.NuMergeBytecodes(pairBest.First, pairBest.Second)
		nuir.ApplyFusion(head, pairBest.First, pairBest.Second, fused)
	}
}

package lower

import (
	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/eval"
	"github.com/totalspectrum/spinc/internal/module"
)

// Temp declares a fresh function-local temporary named prefix+ordinal with
// no initialising statement — the caller builds its own init sequence (a
// loop's index/limit/step variables are assigned inline in the loop's init
// block, not hoisted to the top of the function the way Hoist's temporaries
// are). This generalizes the original's AstTempLocalVariable.
func (h *Hoister) Temp(prefix string, line int) *ast.Node {
	return h.declare(prefix, line)
}

// RepeatCount lowers an ast.REPEATCOUNT node (`repeat do...end`,
// `repeat n do...end`, or `repeat var from a to b [step s] do...end`) to a
// canonical ast.FORSTMT: Left is the init block, Right is the loop-continue
// test evaluated before each iteration, and Extra is [stepStmt, body].
//
// This only targets the interpreter/PASM backend's semantics (the original
// compiler also supports a C/C++ backend whose counting convention differs
// for the bodyless `repeat n` form; that form is out of scope here — see
// spec.md's Non-goals); the asm-target convention counts a bare `repeat n`
// down from n to 1.
//
// Two simplifications relative to the original TransformCountRepeat, both
// recorded in DESIGN.md: the loop step is always emitted as
// `loopvar := loopvar + step` rather than special-cased into dedicated
// increment/decrement instruction selection (that fusion belongs to the Nu
// bytecode allocator, not this AST pass), and when the loop's step direction
// is not known at compile time (a bound or the step is not constant) the
// loop is lowered as a pretest loop rather than
// the original's do-while-at-least-once form.
func RepeatCount(ctx *eval.Context, fn *module.Function, hoist *Hoister, node *ast.Node) *ast.Node {
	line := node.Line
	body := node.Extra[3]

	if node.Extra[0] == nil && node.Extra[1] == nil {
		// Bare `repeat do ... end`: loop forever.
		return &ast.Node{
			Kind:  ast.FORSTMT,
			Line:  line,
			Left:  &ast.Node{Kind: ast.BLOCK},
			Right: ast.Int(line, -1),
			Extra: []*ast.Node{{Kind: ast.BLOCK}, body},
		}
	}

	f := folder{ctx}
	fromval := node.Extra[0]
	toval := node.Extra[1]
	stepval := node.Extra[2]
	negstep := false
	needSteptest := true

	if fromval == nil {
		// `repeat n do ... end`: count down from n to 1.
		fromval = toval
		toval = ast.Int(line, 1)
		negstep = true
		needSteptest = false
	} else if f.isConst(fromval) && f.isConst(toval) {
		needSteptest = false
		negstep = f.mustInt(fromval) > f.mustInt(toval)
	}
	if stepval == nil {
		stepval = ast.Int(line, 1)
	}

	loopvar := node.Left
	if loopvar == nil {
		loopvar = hoist.Temp("_idx_", line)
	}

	var init []*ast.Node
	var initvar *ast.Node
	if !f.isConst(fromval) {
		initvar = hoist.Temp("_start_", line)
		init = append(init, assignStmt(line, initvar, fromval), assignStmt(line, loopvar, initvar))
	} else {
		initvar = fromval
		init = append(init, assignStmt(line, loopvar, fromval))
	}

	var limit *ast.Node
	if f.isConst(toval) {
		limit = toval
	} else {
		limit = hoist.Temp("_limit_", line)
		init = append(init, assignStmt(line, limit, toval))
	}

	var step *ast.Node
	deltaKnown := false
	var delta int32
	if f.isConst(stepval) && !needSteptest {
		delta = f.mustInt(stepval)
		if negstep {
			delta = -delta
		}
		step = ast.Int(line, int64(delta))
		deltaKnown = true
	} else {
		if negstep {
			stepval = un(ast.NEG, line, stepval)
		}
		step = hoist.Temp("_step_", line)
		init = append(init, assignStmt(line, step, stepval))
	}

	stepStmt := assignStmt(line, loopvar, bin(ast.ADD, line, loopvar, step))

	loopGeLimit := bin(ast.GE, line, loopvar, limit)
	loopLeLimit := bin(ast.LE, line, loopvar, limit)

	if needSteptest {
		flip := &ast.Node{
			Kind: ast.IFSTMT, Line: line,
			Left:  loopGeLimit,
			Right: &ast.Node{Kind: ast.BLOCK, Extra: []*ast.Node{assignStmt(line, step, un(ast.NEG, line, step))}},
		}
		init = append(init, flip)
	}

	var condtest *ast.Node
	switch {
	case deltaKnown && delta > 0:
		condtest = loopLeLimit
	case deltaKnown && delta < 0:
		condtest = loopGeLimit
	case deltaKnown:
		condtest = ast.Int(line, 0)
	default:
		condtest = &ast.Node{Kind: ast.ISBETWEEN, Line: line, Left: loopvar,
			Right: &ast.Node{Kind: ast.RANGE, Left: initvar, Right: limit}}
	}

	return &ast.Node{
		Kind:  ast.FORSTMT,
		Line:  line,
		Left:  &ast.Node{Kind: ast.BLOCK, Extra: init},
		Right: condtest,
		Extra: []*ast.Node{stepStmt, body},
	}
}

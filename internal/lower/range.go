// Package lower rewrites Spin surface constructs that have no direct Nu IR
// equivalent into the plain assignments, arithmetic, and control flow the IR
// generator does know how to emit: bit-field range reads/writes, counting
// REPEAT loops, post-effect operators, LOOKUP/LOOKUPZ tables, CASE-variable
// hoisting, and small LONGMOVE calls.
//
// Every lowering here folds constant sub-expressions eagerly (via
// internal/eval) and otherwise hoists a non-constant, non-identifier
// sub-expression into a function-local temporary through a [Hoister] so it
// is evaluated exactly once, generalizing what the original compiler called
// ReplaceExprWithVariable.
package lower

import (
	"fmt"

	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/diag"
	"github.com/totalspectrum/spinc/internal/eval"
	"github.com/totalspectrum/spinc/internal/module"
	"github.com/totalspectrum/spinc/internal/symbol"
)

// Hoister allocates fresh function-local temporaries, each initialised once
// by a statement prepended to the function body, and hands back an IDENT
// node referencing it. An expression that is already an identifier is
// returned unchanged — there is nothing to hoist.
type Hoister struct {
	fn   *module.Function
	next int
}

// NewHoister returns a Hoister that allocates temporaries owned by fn.
func NewHoister(fn *module.Function) *Hoister {
	return &Hoister{fn: fn}
}

// declare allocates a new function-local named prefix+ordinal and returns an
// IDENT referencing it, without touching the function body.
func (h *Hoister) declare(prefix string, line int) *ast.Node {
	name := fmt.Sprintf("%s%d", prefix, h.next)
	h.next++

	fn := h.fn
	fn.LocalSyms.Define(fn.LocalRoot, symbol.Symbol{
		Name:   name,
		Kind:   symbol.TempVar,
		Offset: int32(fn.NumLocals) * 4,
	})
	if fn.Locals == nil {
		fn.Locals = &ast.Node{Kind: ast.BLOCK}
	}
	fn.Locals.Extra = append(fn.Locals.Extra, &ast.Node{Kind: ast.LOCALDECL, Str: name})
	fn.NumLocals++

	return ast.Ident(line, name)
}

// TableName returns a fresh prefix+ordinal name from the same counter
// Hoist/Temp use, for callers (Lookup) that need a unique module-level label
// rather than a function-local variable.
func (h *Hoister) TableName(prefix string) string {
	name := fmt.Sprintf("%s%d", prefix, h.next)
	h.next++
	return name
}

// Hoist returns expr unchanged if it is already an IDENT, otherwise declares
// a new local named prefix+ordinal, prepends "<local> := expr" to the
// function body, and returns an IDENT referencing the new local.
func (h *Hoister) Hoist(prefix string, expr *ast.Node) *ast.Node {
	if expr == nil || expr.Kind == ast.IDENT {
		return expr
	}
	ref := h.declare(prefix, expr.Line)
	fn := h.fn
	assign := &ast.Node{Kind: ast.ASSIGN, Line: expr.Line, Left: ast.Ident(expr.Line, ref.Str), Right: expr}
	if fn.Body == nil {
		fn.Body = &ast.Node{Kind: ast.BLOCK}
	}
	fn.Body.Extra = append([]*ast.Node{assign}, fn.Body.Extra...)
	return ref
}

func bin(kind ast.Kind, line int, left, right *ast.Node) *ast.Node {
	return &ast.Node{Kind: kind, Line: line, Left: left, Right: right}
}

func un(kind ast.Kind, line int, operand *ast.Node) *ast.Node {
	return &ast.Node{Kind: kind, Line: line, Left: operand}
}

func intLit(line int, v int64) *ast.Node { return ast.Int(line, v) }

// warnf reports a non-fatal lowering diagnostic, tolerating a nil bag the
// same way internal/eval's failf does.
func warnf(bag *diag.Bag, line int, format string, args ...interface{}) {
	if bag != nil {
		bag.Warnf(line, format, args...)
	}
}

func assignStmt(line int, dst, src *ast.Node) *ast.Node {
	return &ast.Node{Kind: ast.ASSIGN, Line: line, Left: dst, Right: src}
}

// fold is a convenience wrapper around eval.FoldIfConst bound to one
// Context, matching the C original's habit of folding eagerly after nearly
// every AstOperator construction.
type folder struct {
	ctx *eval.Context
}

func (f folder) fold(n *ast.Node) *ast.Node          { return eval.FoldIfConst(f.ctx, n) }
func (f folder) isConst(n *ast.Node) bool            { return eval.IsConstExpr(f.ctx, n) }
func (f folder) constInt(n *ast.Node) (int32, bool)  { return eval.ConstInt(f.ctx, n) }
func (f folder) mustInt(n *ast.Node) int32 {
	v, _ := eval.ConstInt(f.ctx, n)
	return v
}

// RangeAssign lowers `dst[hi..lo] := src` (an ast.RANGEASSIGN node whose
// Left is the ast.RANGEREF being written and whose Right is the source
// expression) into the masked read-modify-write spec.md §4.1 describes,
// picking the same special cases the original range-assignment transform
// does: a whole-field bitwise-NOT, a single-bit toggle, a small constant
// bit-set/clear, a saturated 32-bit-or-wider field, and — only when toplevel
// is true, since it emits a standalone if/else rather than an expression —
// the single-bit branch-instead-of-mask-math optimisation.
//
// The source's hi<lo reversal test (picking which end of the range is
// "low") is required by spec to be compile-time constant; a non-constant
// swap test keeps lo as the low end, applies no reversal, and reports a
// diagnostic, since that runtime case needs a conditional-expression AST
// node this tree does not model (see DESIGN.md).
func RangeAssign(ctx *eval.Context, fn *module.Function, hoist *Hoister, stmt *ast.Node, toplevel bool, bag *diag.Bag) *ast.Node {
	f := folder{ctx}
	dst := stmt.Left  // RANGEREF
	src := stmt.Right
	line := stmt.Line
	rng := dst.Right // RANGE

	if src.Kind == ast.BITNOT && ast.Match(dst, src.Left) {
		return rangeXor(f, dst, intLit(line, 0xffffffff))
	}

	var nbits, loexpr *ast.Node
	if rng.Right == nil {
		nbits = intLit(line, 1)
		loexpr = rng.Left
		if src.Kind == ast.BITXOR && ast.Match(dst, src.Left) && f.isConst(src.Right) && f.mustInt(src.Right) == 1 {
			return rangeXor(f, dst, intLit(line, 0xffffffff))
		}
	} else {
		hiexpr := f.fold(rng.Left)
		loexpr = f.fold(rng.Right)

		nbits = bin(ast.ADD, line, un(ast.ABS, line, bin(ast.SUB, line, hiexpr, loexpr)), intLit(line, 1))
		if f.isConst(nbits) {
			nbits = f.fold(nbits)
		} else {
			nbits = hoist.Hoist("_nbits", nbits)
		}
		needrev := f.fold(bin(ast.LT, line, hiexpr, loexpr))
		if f.isConst(loexpr) {
			loexpr = f.fold(bin(ast.LIMITMAX, line, loexpr, hiexpr))
		} else if loexpr.Kind != ast.IDENT {
			fn.Module.NeedsMinMax = true
			loexpr = hoist.Hoist("_lo", loexpr)
		}
		revsrc := bin(ast.REVOP, line, src, nbits)
		if f.isConst(needrev) {
			if f.mustInt(needrev) != 0 {
				src = revsrc
			}
		} else {
			warnf(bag, line, "range bounds are not orderable at compile time; assuming hi >= lo")
		}
		src = f.fold(src)
	}

	maskexpr := f.fold(bin(ast.SUB, line, bin(ast.SHL, line, intLit(line, 1), nbits), intLit(line, 1)))

	if f.isConst(src) && f.isConst(maskexpr) {
		bitset := f.mustInt(src)
		mask := f.mustInt(maskexpr)
		if bitset == 0 || (bitset&mask) == mask {
			return rangeBitSet(f, dst, uint32(mask), bitset != 0)
		}
	}
	if f.isConst(nbits) && f.mustInt(nbits) >= 32 {
		return assignStmt(line, dst.Left, f.fold(src))
	}

	if toplevel && f.isConst(nbits) && f.mustInt(nbits) == 1 {
		maskVar := hoist.Hoist("_mask", bin(ast.SHL, line, intLit(line, 1), loexpr))
		ifcond := bin(ast.BITAND, line, src, intLit(line, 1))
		ifpart := assignStmt(line, dst.Left, bin(ast.BITOR, line, dst.Left, maskVar))
		elsepart := assignStmt(line, dst.Left, bin(ast.BITAND, line, dst.Left, un(ast.BITNOT, line, maskVar)))
		return &ast.Node{
			Kind: ast.IFSTMT, Line: line,
			Left:  ifcond,
			Right: &ast.Node{Kind: ast.BLOCK, Extra: []*ast.Node{ifpart}},
			Extra: []*ast.Node{{Kind: ast.BLOCK, Extra: []*ast.Node{elsepart}}},
		}
	}

	if !f.isConst(loexpr) && loexpr.Kind != ast.IDENT {
		loexpr = hoist.Hoist("lo_", loexpr)
	}
	if !f.isConst(maskexpr) {
		maskexpr = hoist.Hoist("mask_", maskexpr)
	}
	andexpr := bin(ast.BITAND, line, dst.Left, f.fold(un(ast.BITNOT, line, bin(ast.SHL, line, maskexpr, loexpr))))
	orexpr := bin(ast.SHL, line, f.fold(bin(ast.BITAND, line, src, maskexpr)), loexpr)
	return assignStmt(line, dst.Left, bin(ast.BITOR, line, andexpr, f.fold(orexpr)))
}

// rangeXor special-cases `dst[range] ^= src`: a single bit toggled by -1 or
// 0 needs no mask at all, and every other case rotates a plain mask into
// place and XORs once, per the original's RangeXor.
func rangeXor(f folder, dst, src *ast.Node) *ast.Node {
	line := dst.Line
	rng := dst.Right
	var nbits, loexpr *ast.Node

	if rng.Right == nil {
		loexpr = f.fold(rng.Left)
		nbits = intLit(line, 1)
		if f.isConst(src) && !f.isConst(loexpr) {
			srcval := f.mustInt(src)
			if srcval == -1 || srcval == 0 {
				maskexpr := bin(ast.SHL, line, intLit(line, 1), loexpr)
				return assignStmt(line, dst.Left, bin(ast.BITXOR, line, dst.Left, maskexpr))
			}
		}
	} else {
		hiexpr := f.fold(rng.Left)
		loexpr = f.fold(rng.Right)
		nbits = f.fold(bin(ast.ADD, line, un(ast.ABS, line, bin(ast.SUB, line, hiexpr, loexpr)), intLit(line, 1)))
		loexpr = bin(ast.LIMITMAX, line, loexpr, hiexpr)
	}

	maskexpr := f.fold(bin(ast.SUB, line, bin(ast.SHL, line, intLit(line, 1), nbits), intLit(line, 1)))
	maskexpr = bin(ast.BITAND, line, maskexpr, src)
	maskexpr = f.fold(bin(ast.ROTL, line, maskexpr, loexpr))
	return assignStmt(line, dst.Left, bin(ast.BITXOR, line, dst.Left, maskexpr))
}

// rangeBitSet lowers `dst[range] := 0` or `:= <all-ones for the field
// width>` into a plain `|=`/`&= ~` against a precomputed contiguous mask,
// per the original's RangeBitSet. mask must already cover exactly the
// range's width; callers establish that before calling.
func rangeBitSet(f folder, dst *ast.Node, mask uint32, bitset bool) *ast.Node {
	line := dst.Line
	rng := dst.Right
	var loexpr *ast.Node
	if rng.Right == nil {
		loexpr = rng.Left
	} else {
		loexpr = f.fold(bin(ast.LIMITMAX, line, rng.Right, rng.Left))
	}
	maskexpr := bin(ast.SHL, line, intLit(line, int64(mask)), loexpr)
	if bitset {
		return assignStmt(line, dst.Left, bin(ast.BITOR, line, dst.Left, maskexpr))
	}
	return assignStmt(line, dst.Left, bin(ast.BITAND, line, dst.Left, un(ast.BITNOT, line, maskexpr)))
}

// RangeUse lowers a bit-field read `dst[hi..lo]` (an ast.RANGEREF node) to
// `(dst >> lo) & mask`, reversing the extracted bits when the range was
// written low-to-high (`dst[lo..hi]`, first bound below the second), per
// the original's TransformRangeUse.
// As in RangeAssign, a non-constant swap test falls back to assuming no
// reversal and reports a diagnostic.
func RangeUse(ctx *eval.Context, hoist *Hoister, src *ast.Node, bag *diag.Bag) *ast.Node {
	f := folder{ctx}
	line := src.Line
	rng := src.Right

	var nbits, loexpr, test *ast.Node
	if rng.Right == nil {
		loexpr = rng.Left
		nbits = intLit(line, 1)
		test = intLit(line, 0)
	} else {
		hi := rng.Left
		lo := rng.Right
		test = f.fold(bin(ast.LT, line, hi, lo))
		nbits = bin(ast.ADD, line, intLit(line, 1), un(ast.ABS, line, bin(ast.SUB, line, hi, lo)))
		if f.isConst(nbits) {
			nbits = f.fold(nbits)
		} else {
			nbits = hoist.Hoist("_bits", nbits)
		}
		switch {
		case f.isConst(test) && f.mustInt(test) != 0:
			loexpr = hi
		case f.isConst(test):
			loexpr = lo
		default:
			warnf(bag, line, "range bounds are not orderable at compile time; assuming hi >= lo")
			loexpr = lo
		}
		if !f.isConst(loexpr) && loexpr.Kind != ast.IDENT {
			loexpr = hoist.Hoist("_lo_", loexpr)
		}
	}

	mask := f.fold(bin(ast.SUB, line, bin(ast.SHL, line, intLit(line, 1), nbits), intLit(line, 1)))
	if !f.isConst(mask) {
		mask = hoist.Hoist("_mask_", mask)
	}

	val := f.fold(bin(ast.SAR, line, src.Left, loexpr))
	val = f.fold(bin(ast.BITAND, line, val, mask))
	revval := f.fold(bin(ast.REVOP, line, val, nbits))

	if f.isConst(test) {
		if f.mustInt(test) != 0 {
			return revval
		}
		return val
	}
	// Non-constant test was already reported above; use the unreversed
	// reading to keep this a pure expression.
	return val
}

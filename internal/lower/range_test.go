package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/eval"
	"github.com/totalspectrum/spinc/internal/module"
	"github.com/totalspectrum/spinc/internal/symbol"
)

func newCtx() *eval.Context {
	tbl := symbol.NewTable()
	scope := tbl.NewScope(symbol.NoScope)
	return eval.NewContext(tbl, scope)
}

// rangeAssignStmt builds `outa[hi..lo] := src` (or `outa[idx] := src` when
// lo is nil), matching the parser's RANGEASSIGN/RANGEREF/RANGE shape.
func rangeAssignStmt(hi, lo *ast.Node, src *ast.Node) *ast.Node {
	rng := &ast.Node{Kind: ast.RANGE, Left: hi, Right: lo}
	ref := &ast.Node{Kind: ast.RANGEREF, Left: ast.Ident(1, "outa"), Right: rng}
	return &ast.Node{Kind: ast.RANGEASSIGN, Left: ref, Right: src}
}

func TestRangeAssignGeneralMaskedReadModifyWrite(t *testing.T) {
	stmt := rangeAssignStmt(ast.Int(1, 4), ast.Int(1, 2), ast.Int(1, 6))
	fn := module.NewModule("M").NewFunction("f", true)
	result := RangeAssign(newCtx(), fn, NewHoister(fn), stmt, false, nil)

	require.Equal(t, ast.ASSIGN, result.Kind)
	require.Equal(t, "outa", result.Left.Str)
	require.Equal(t, ast.BITOR, result.Right.Kind)

	andexpr := result.Right.Left
	require.Equal(t, ast.BITAND, andexpr.Kind)
	require.Equal(t, "outa", andexpr.Left.Str)
	require.Equal(t, int64(^int32(7<<2)), andexpr.Right.IVal)

	orexpr := result.Right.Right
	require.Equal(t, ast.INTLIT, orexpr.Kind)
	require.Equal(t, int64(6<<2), orexpr.IVal)
}

func TestRangeAssignWholeFieldBitNot(t *testing.T) {
	dst := &ast.Node{Kind: ast.RANGEREF, Left: ast.Ident(1, "outa"),
		Right: &ast.Node{Kind: ast.RANGE, Left: ast.Int(1, 2), Right: ast.Int(1, 0)}}
	src := un(ast.BITNOT, 1, &ast.Node{Kind: ast.RANGEREF, Left: ast.Ident(1, "outa"),
		Right: &ast.Node{Kind: ast.RANGE, Left: ast.Int(1, 2), Right: ast.Int(1, 0)}})
	stmt := &ast.Node{Kind: ast.RANGEASSIGN, Left: dst, Right: src}

	fn := module.NewModule("M").NewFunction("f", true)
	result := RangeAssign(newCtx(), fn, NewHoister(fn), stmt, false, nil)

	require.Equal(t, ast.ASSIGN, result.Kind)
	require.Equal(t, "outa", result.Left.Str)
	require.Equal(t, ast.BITXOR, result.Right.Kind)
	require.Equal(t, "outa", result.Right.Left.Str)
	require.Equal(t, int64(7), result.Right.Right.IVal)
}

func TestRangeAssignSingleBitToggleWithVariableIndex(t *testing.T) {
	idx := ast.Ident(1, "bitnum")
	dst := &ast.Node{Kind: ast.RANGEREF, Left: ast.Ident(1, "outa"),
		Right: &ast.Node{Kind: ast.RANGE, Left: idx, Right: nil}}
	src := bin(ast.BITXOR, 1, &ast.Node{Kind: ast.RANGEREF, Left: ast.Ident(1, "outa"),
		Right: &ast.Node{Kind: ast.RANGE, Left: idx, Right: nil}}, ast.Int(1, 1))
	stmt := &ast.Node{Kind: ast.RANGEASSIGN, Left: dst, Right: src}

	fn := module.NewModule("M").NewFunction("f", true)
	result := RangeAssign(newCtx(), fn, NewHoister(fn), stmt, false, nil)

	require.Equal(t, ast.ASSIGN, result.Kind)
	require.Equal(t, "outa", result.Left.Str)
	require.Equal(t, ast.BITXOR, result.Right.Kind)
	require.Equal(t, "outa", result.Right.Left.Str)
	shift := result.Right.Right
	require.Equal(t, ast.SHL, shift.Kind)
	require.Equal(t, int64(1), shift.Left.IVal)
	require.Equal(t, "bitnum", shift.Right.Str)
}

func TestRangeAssignConstantBitSetAndClear(t *testing.T) {
	fn := module.NewModule("M").NewFunction("f", true)

	setStmt := rangeAssignStmt(ast.Int(1, 4), ast.Int(1, 2), ast.Int(1, 7))
	setResult := RangeAssign(newCtx(), fn, NewHoister(fn), setStmt, false, nil)
	require.Equal(t, ast.ASSIGN, setResult.Kind)
	require.Equal(t, ast.BITOR, setResult.Right.Kind)
	require.Equal(t, ast.SHL, setResult.Right.Right.Kind)
	require.Equal(t, int64(7), setResult.Right.Right.Left.IVal)
	require.Equal(t, int64(2), setResult.Right.Right.Right.IVal)

	clearStmt := rangeAssignStmt(ast.Int(1, 4), ast.Int(1, 2), ast.Int(1, 0))
	clearResult := RangeAssign(newCtx(), fn, NewHoister(fn), clearStmt, false, nil)
	require.Equal(t, ast.ASSIGN, clearResult.Kind)
	require.Equal(t, ast.BITAND, clearResult.Right.Kind)
	require.Equal(t, ast.BITNOT, clearResult.Right.Right.Kind)
}

func TestRangeAssignWideFieldAssignsWholeRegister(t *testing.T) {
	stmt := rangeAssignStmt(ast.Int(1, 31), ast.Int(1, 0), ast.Ident(1, "val"))
	fn := module.NewModule("M").NewFunction("f", true)
	result := RangeAssign(newCtx(), fn, NewHoister(fn), stmt, false, nil)

	require.Equal(t, ast.ASSIGN, result.Kind)
	require.Equal(t, "outa", result.Left.Str)
	require.Equal(t, "val", result.Right.Str)
}

func TestRangeAssignSingleBitToplevelEmitsIfElseAndHoistsMask(t *testing.T) {
	dst := &ast.Node{Kind: ast.RANGEREF, Left: ast.Ident(1, "outa"),
		Right: &ast.Node{Kind: ast.RANGE, Left: ast.Int(1, 5), Right: nil}}
	stmt := &ast.Node{Kind: ast.RANGEASSIGN, Left: dst, Right: ast.Ident(1, "x")}

	fn := module.NewModule("M").NewFunction("f", true)
	hoist := NewHoister(fn)
	result := RangeAssign(newCtx(), fn, hoist, stmt, true, nil)

	require.Equal(t, ast.IFSTMT, result.Kind)
	require.Equal(t, ast.BITAND, result.Left.Kind)
	require.Equal(t, "x", result.Left.Left.Str)

	require.Len(t, fn.Body.Extra, 1)
	maskInit := fn.Body.Extra[0]
	require.Equal(t, ast.ASSIGN, maskInit.Kind)
	maskName := maskInit.Left.Str
	require.Equal(t, ast.SHL, maskInit.Right.Kind)
	require.Equal(t, int64(5), maskInit.Right.Right.IVal)
	require.Len(t, fn.Locals.Extra, 1)
	require.Equal(t, maskName, fn.Locals.Extra[0].Str)

	thenAssign := result.Right.Extra[0]
	require.Equal(t, ast.BITOR, thenAssign.Right.Kind)
	require.Equal(t, maskName, thenAssign.Right.Right.Str)

	elseAssign := result.Extra[0].Extra[0]
	require.Equal(t, ast.BITAND, elseAssign.Right.Kind)
	require.Equal(t, ast.BITNOT, elseAssign.Right.Right.Kind)
	require.Equal(t, maskName, elseAssign.Right.Right.Left.Str)
}

func TestRangeUseConstantRange(t *testing.T) {
	src := &ast.Node{Kind: ast.RANGEREF, Left: ast.Ident(1, "outa"),
		Right: &ast.Node{Kind: ast.RANGE, Left: ast.Int(1, 4), Right: ast.Int(1, 2)}}
	fn := module.NewModule("M").NewFunction("f", true)
	result := RangeUse(newCtx(), NewHoister(fn), src, nil)

	require.Equal(t, ast.BITAND, result.Kind)
	require.Equal(t, ast.SAR, result.Left.Kind)
	require.Equal(t, "outa", result.Left.Left.Str)
	require.Equal(t, int64(2), result.Left.Right.IVal)
	require.Equal(t, int64(7), result.Right.IVal)
}

func TestRangeUseReversedRangeAppliesRev(t *testing.T) {
	src := &ast.Node{Kind: ast.RANGEREF, Left: ast.Ident(1, "outa"),
		Right: &ast.Node{Kind: ast.RANGE, Left: ast.Int(1, 2), Right: ast.Int(1, 4)}}
	fn := module.NewModule("M").NewFunction("f", true)
	result := RangeUse(newCtx(), NewHoister(fn), src, nil)

	require.Equal(t, ast.REVOP, result.Kind)
	require.Equal(t, ast.BITAND, result.Left.Kind)
	require.Equal(t, int64(3), result.Right.IVal)
}

func TestHoistLeavesIdentifiersUnchanged(t *testing.T) {
	fn := module.NewModule("M").NewFunction("f", true)
	h := NewHoister(fn)
	ref := ast.Ident(3, "already")
	require.Same(t, ref, h.Hoist("tmp", ref))
	require.Nil(t, fn.Body)
}

func TestHoistAllocatesDistinctTemporaries(t *testing.T) {
	fn := module.NewModule("M").NewFunction("f", true)
	h := NewHoister(fn)
	a := h.Hoist("_t", bin(ast.ADD, 1, ast.Int(1, 1), ast.Int(1, 2)))
	b := h.Hoist("_t", bin(ast.ADD, 1, ast.Int(1, 3), ast.Int(1, 4)))
	require.NotEqual(t, a.Str, b.Str)
	require.Equal(t, 2, fn.NumLocals)
	require.Len(t, fn.Body.Extra, 2)
	// Each hoist prepends, so the most recently hoisted init comes first.
	require.Equal(t, b.Str, fn.Body.Extra[0].Left.Str)
	require.Equal(t, a.Str, fn.Body.Extra[1].Left.Str)
}

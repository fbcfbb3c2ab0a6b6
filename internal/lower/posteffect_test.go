package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/module"
)

func TestPostEffectToplevelClearIsPlainAssign(t *testing.T) {
	node := &ast.Node{Kind: ast.POSTCLEAR, Line: 1, Left: ast.Ident(1, "x")}
	fn := module.NewModule("M").NewFunction("f", true)
	result := PostEffect(NewHoister(fn), node, true)

	require.Equal(t, ast.ASSIGN, result.Kind)
	require.Equal(t, "x", result.Left.Str)
	require.Equal(t, int64(0), result.Right.IVal)
	require.Nil(t, fn.Body) // no temp needed at toplevel
}

func TestPostEffectToplevelSetAssignsNegOne(t *testing.T) {
	node := &ast.Node{Kind: ast.POSTSET, Line: 1, Left: ast.Ident(1, "x")}
	fn := module.NewModule("M").NewFunction("f", true)
	result := PostEffect(NewHoister(fn), node, true)

	require.Equal(t, ast.ASSIGN, result.Kind)
	require.Equal(t, int64(-1), result.Right.IVal)
}

func TestPostEffectSubExpressionStashesOldValue(t *testing.T) {
	node := &ast.Node{Kind: ast.POSTCLEAR, Line: 1, Left: ast.Ident(1, "x")}
	fn := module.NewModule("M").NewFunction("f", true)
	hoist := NewHoister(fn)
	result := PostEffect(hoist, node, false)

	require.Equal(t, ast.SEQ, result.Kind)
	saveOld := result.Left
	require.Equal(t, ast.ASSIGN, saveOld.Kind)
	tmpName := saveOld.Left.Str
	require.Equal(t, "x", saveOld.Right.Str)

	inner := result.Right
	require.Equal(t, ast.SEQ, inner.Kind)
	setNew := inner.Left
	require.Equal(t, ast.ASSIGN, setNew.Kind)
	require.Equal(t, "x", setNew.Left.Str)
	require.Equal(t, int64(0), setNew.Right.IVal)

	require.Equal(t, tmpName, inner.Right.Str)
	require.Equal(t, 1, fn.NumLocals)
	require.Nil(t, fn.Body) // Temp does not prepend an init, unlike Hoist
}

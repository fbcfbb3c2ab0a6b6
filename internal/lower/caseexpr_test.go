package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/module"
)

func TestCaseHoistLeavesPlainIdentifierAlone(t *testing.T) {
	fn := module.NewModule("M").NewFunction("f", true)
	node := &ast.Node{Kind: ast.CASESTMT, Left: ast.Ident(1, "x")}
	result := CaseHoist(NewHoister(fn), node)

	require.Same(t, node, result)
	require.Equal(t, ast.IDENT, result.Left.Kind)
	require.Equal(t, "x", CaseScrutinee(result).Str)
	require.Equal(t, 0, fn.NumLocals)
}

func TestCaseHoistWrapsComplexScrutinee(t *testing.T) {
	fn := module.NewModule("M").NewFunction("f", true)
	expr := bin(ast.ADD, 1, ast.Ident(1, "a"), ast.Ident(1, "b"))
	node := &ast.Node{Kind: ast.CASESTMT, Left: expr}
	result := CaseHoist(NewHoister(fn), node)

	require.Equal(t, ast.ASSIGN, result.Left.Kind)
	require.Same(t, expr, result.Left.Right)
	require.Equal(t, 1, fn.NumLocals)

	scrutinee := CaseScrutinee(result)
	require.Equal(t, ast.IDENT, scrutinee.Kind)
	require.Equal(t, result.Left.Left.Str, scrutinee.Str)
}

func TestCaseHoistIsIdempotent(t *testing.T) {
	fn := module.NewModule("M").NewFunction("f", true)
	expr := bin(ast.ADD, 1, ast.Ident(1, "a"), ast.Ident(1, "b"))
	node := &ast.Node{Kind: ast.CASESTMT, Left: expr}
	once := CaseHoist(NewHoister(fn), node)
	twice := CaseHoist(NewHoister(fn), once)

	require.Same(t, once, twice)
	require.Equal(t, 1, fn.NumLocals)
}

package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/module"
)

func TestLookupConstantRangeAndLiteralsFoldToTable(t *testing.T) {
	node := &ast.Node{
		Kind: ast.LOOKUPEXPR, Line: 1,
		Left: ast.Ident(1, "idx"),
		Extra: []*ast.Node{
			ast.Int(1, 10),
			{Kind: ast.RANGE, Left: ast.Int(1, 1), Right: ast.Int(1, 3)},
			ast.StringLit(1, "AB"),
		},
	}
	fn := module.NewModule("M").NewFunction("f", true)
	ok := Lookup(newCtx(), NewHoister(fn), node)

	require.True(t, ok)
	table, isTable := node.Ptr.(*ConstTable)
	require.True(t, isTable)
	require.Equal(t, []int32{10, 1, 2, 3, 'A', 'B'}, table.Values)
	require.NotEmpty(t, table.Name)
}

func TestLookupDescendingRangeCountsDown(t *testing.T) {
	node := &ast.Node{
		Kind: ast.LOOKUPZEXPR, Line: 1,
		Left:  ast.Ident(1, "idx"),
		Extra: []*ast.Node{{Kind: ast.RANGE, Left: ast.Int(1, 5), Right: ast.Int(1, 3)}},
	}
	fn := module.NewModule("M").NewFunction("f", true)
	ok := Lookup(newCtx(), NewHoister(fn), node)

	require.True(t, ok)
	table := node.Ptr.(*ConstTable)
	require.Equal(t, []int32{5, 4, 3}, table.Values)
}

func TestLookupNonConstantEntryLeavesNodeUnmodified(t *testing.T) {
	node := &ast.Node{
		Kind: ast.LOOKUPEXPR, Line: 1,
		Left:  ast.Ident(1, "idx"),
		Extra: []*ast.Node{ast.Ident(1, "dynamic"), ast.Int(1, 2)},
	}
	fn := module.NewModule("M").NewFunction("f", true)
	ok := Lookup(newCtx(), NewHoister(fn), node)

	require.False(t, ok)
	require.Nil(t, node.Ptr)
}

func TestLookupTableNamesAreDistinctAcrossCalls(t *testing.T) {
	fn := module.NewModule("M").NewFunction("f", true)
	hoist := NewHoister(fn)
	a := &ast.Node{Kind: ast.LOOKUPEXPR, Extra: []*ast.Node{ast.Int(1, 1)}}
	b := &ast.Node{Kind: ast.LOOKUPEXPR, Extra: []*ast.Node{ast.Int(1, 2)}}
	require.True(t, Lookup(newCtx(), hoist, a))
	require.True(t, Lookup(newCtx(), hoist, b))
	require.NotEqual(t, a.Ptr.(*ConstTable).Name, b.Ptr.(*ConstTable).Name)
}

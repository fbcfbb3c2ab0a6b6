package typeinfer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/module"
	"github.com/totalspectrum/spinc/internal/symbol"
)

func TestCheckForStaticFlipsOnVariableReference(t *testing.T) {
	mod := module.NewModule("M")
	mod.ObjSyms.Define(mod.ObjRoot, symbol.Symbol{Name: "counter", Kind: symbol.Variable})
	fn := mod.NewFunction("f", true)
	fn.IsStatic = true

	body := &ast.Node{Kind: ast.BLOCK, Extra: []*ast.Node{
		{Kind: ast.EXPRSTMT, Left: ast.Ident(1, "counter")},
	}}
	CheckForStatic(fn, body)
	require.False(t, fn.IsStatic)
}

func TestCheckForStaticLeavesLocalAndConstantReferencesAlone(t *testing.T) {
	mod := module.NewModule("M")
	mod.ObjSyms.Define(mod.ObjRoot, symbol.Symbol{Name: "LIMIT", Kind: symbol.Constant})
	fn := mod.NewFunction("f", true)
	fn.IsStatic = true
	fn.LocalSyms.Define(fn.LocalRoot, symbol.Symbol{Name: "x", Kind: symbol.LocalVar})

	body := &ast.Node{Kind: ast.BLOCK, Extra: []*ast.Node{
		assignStmt1(ast.Ident(1, "x"), ast.Ident(1, "LIMIT")),
	}}
	CheckForStatic(fn, body)
	require.True(t, fn.IsStatic)
}

func assignStmt1(dst, src *ast.Node) *ast.Node {
	return &ast.Node{Kind: ast.ASSIGN, Left: dst, Right: src}
}

func TestInferStaticsFixpointPropagatesThroughCalls(t *testing.T) {
	mod := module.NewModule("M")
	mod.ObjSyms.Define(mod.ObjRoot, symbol.Symbol{Name: "g", Kind: symbol.Variable})

	// leaf() references the module variable directly -> non-static.
	leaf := mod.NewFunction("leaf", true)
	leaf.Body = &ast.Node{Kind: ast.BLOCK, Extra: []*ast.Node{
		{Kind: ast.EXPRSTMT, Left: ast.Ident(1, "g")},
	}}

	// caller() only calls leaf() -> becomes non-static once leaf is known to be.
	caller := mod.NewFunction("caller", true)
	caller.Body = &ast.Node{Kind: ast.BLOCK, Extra: []*ast.Node{
		{Kind: ast.EXPRSTMT, Left: &ast.Node{Kind: ast.FUNCCALL, Left: ast.Ident(1, "leaf")}},
	}}

	RegisterFunctions(mod)
	InferStaticsFixpoint(mod)

	require.False(t, leaf.IsStatic)
	require.False(t, caller.IsStatic)
}

func TestCheckRetStatementListExplicitReturn(t *testing.T) {
	fn := module.NewModule("M").NewFunction("f", true)
	body := &ast.Node{Kind: ast.BLOCK, Extra: []*ast.Node{
		{Kind: ast.RETURNSTMT, Left: ast.Int(1, 42)},
	}}
	sawReturn := CheckRetStatementList(fn, body)
	require.True(t, sawReturn)
	require.Equal(t, ast.TYPEINT, fn.RetType.Kind)
}

func TestCheckRetStatementFloatReturn(t *testing.T) {
	fn := module.NewModule("M").NewFunction("f", true)
	body := &ast.Node{Kind: ast.BLOCK, Extra: []*ast.Node{
		{Kind: ast.RETURNSTMT, Left: &ast.Node{Kind: ast.FLOATLIT}},
	}}
	CheckRetStatementList(fn, body)
	require.Equal(t, ast.TYPEFLOAT, fn.RetType.Kind)
}

func TestCheckRetStatementIfBothBranchesReturn(t *testing.T) {
	fn := module.NewModule("M").NewFunction("f", true)
	ifstmt := &ast.Node{
		Kind: ast.IFSTMT,
		Left: ast.Ident(1, "cond"),
		Right: &ast.Node{Kind: ast.BLOCK, Extra: []*ast.Node{
			{Kind: ast.RETURNSTMT, Left: ast.Int(1, 1)},
		}},
		Extra: []*ast.Node{{Kind: ast.BLOCK, Extra: []*ast.Node{
			{Kind: ast.RETURNSTMT, Left: ast.Int(1, 2)},
		}}},
	}
	require.True(t, CheckRetStatement(fn, ifstmt))
}

func TestCheckRetStatementIfOnlyOneBranchReturns(t *testing.T) {
	fn := module.NewModule("M").NewFunction("f", true)
	ifstmt := &ast.Node{
		Kind: ast.IFSTMT,
		Left: ast.Ident(1, "cond"),
		Right: &ast.Node{Kind: ast.BLOCK, Extra: []*ast.Node{
			{Kind: ast.RETURNSTMT, Left: ast.Int(1, 1)},
		}},
	}
	require.False(t, CheckRetStatement(fn, ifstmt))
}

func TestFinishReturnTypeAppendsImplicitReturn(t *testing.T) {
	fn := module.NewModule("M").NewFunction("f", true)
	fn.Body = &ast.Node{Kind: ast.BLOCK}
	fn.ResultExpr = ast.Ident(1, "f")
	fn.RetType = &ast.Node{Kind: ast.TYPEINT}

	FinishReturnType(fn, false)
	require.Len(t, fn.Body.Extra, 1)
	require.Equal(t, ast.RETURNSTMT, fn.Body.Extra[0].Kind)
	require.True(t, fn.ResultUsed)
}

func TestFinishReturnTypeVoidFunctionClearsResult(t *testing.T) {
	fn := module.NewModule("M").NewFunction("f", true)
	fn.ResultExpr = ast.Ident(1, "f")
	FinishReturnType(fn, false)
	require.Nil(t, fn.RetType)
	require.Nil(t, fn.ResultExpr)
}

func TestCheckRecursiveDetectsSelfCall(t *testing.T) {
	mod := module.NewModule("M")
	fact := mod.NewFunction("fact", true)
	fact.Body = &ast.Node{Kind: ast.BLOCK, Extra: []*ast.Node{
		{Kind: ast.EXPRSTMT, Left: &ast.Node{Kind: ast.FUNCCALL, Left: ast.Ident(1, "fact")}},
	}}
	RegisterFunctions(mod)
	CheckRecursive(fact)
	require.True(t, fact.IsRecursive)
	require.False(t, fact.IsLeaf)
}

func TestCheckRecursiveLeafFunction(t *testing.T) {
	mod := module.NewModule("M")
	leaf := mod.NewFunction("leaf", true)
	leaf.Body = &ast.Node{Kind: ast.BLOCK, Extra: []*ast.Node{
		{Kind: ast.EXPRSTMT, Left: ast.Int(1, 1)},
	}}
	RegisterFunctions(mod)
	CheckRecursive(leaf)
	require.True(t, leaf.IsLeaf)
	require.False(t, leaf.IsRecursive)
}

func TestMarkCogTasksFlagsLaunchedMethod(t *testing.T) {
	mod := module.NewModule("M")
	worker := mod.NewFunction("worker", true)
	worker.Body = &ast.Node{Kind: ast.BLOCK}

	launcher := mod.NewFunction("main", true)
	launcher.Body = &ast.Node{Kind: ast.BLOCK, Extra: []*ast.Node{
		{Kind: ast.EXPRSTMT, Left: &ast.Node{Kind: ast.COGINIT, Extra: []*ast.Node{ast.Ident(1, "worker")}}},
	}}
	RegisterFunctions(mod)
	MarkCogTasks(mod)

	require.True(t, worker.CogTask)
	require.True(t, worker.ForceStatic)
	require.True(t, worker.IsStatic)
	require.True(t, mod.NeedsCoginit)
}

func TestMarkUsedCountsCallSitesAndRecurses(t *testing.T) {
	mod := module.NewModule("M")
	inner := mod.NewFunction("inner", true)
	inner.Body = &ast.Node{Kind: ast.BLOCK}
	outer := mod.NewFunction("outer", true)
	outer.Body = &ast.Node{Kind: ast.BLOCK, Extra: []*ast.Node{
		{Kind: ast.EXPRSTMT, Left: &ast.Node{Kind: ast.FUNCCALL, Left: ast.Ident(1, "inner")}},
	}}
	RegisterFunctions(mod)
	MarkUsed(outer)

	require.Len(t, inner.CallSites, 1)
	require.Same(t, outer, inner.CallSites[0])
}

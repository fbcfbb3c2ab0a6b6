package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/bind"
	"github.com/totalspectrum/spinc/internal/diag"
	"github.com/totalspectrum/spinc/internal/module"
)

// funcDecl mirrors the parser's FUNCDECL shape (see internal/parser.go's
// function-declaration parse): Extra = [params BLOCK, locals BLOCK],
// Right = body BLOCK.
func funcDecl(name string, body *ast.Node) *ast.Node {
	return &ast.Node{
		Kind:  ast.FUNCDECL,
		Str:   name,
		IVal:  1,
		Right: body,
		Extra: []*ast.Node{{Kind: ast.BLOCK}, {Kind: ast.BLOCK}},
	}
}

func assignStmt(dst, src *ast.Node) *ast.Node {
	return &ast.Node{Kind: ast.EXPRSTMT, Left: &ast.Node{Kind: ast.ASSIGN, Left: dst, Right: src}}
}

func TestCompileProducesListPerFunction(t *testing.T) {
	mod := module.NewModule("M")
	body := &ast.Node{Kind: ast.BLOCK, Extra: []*ast.Node{
		{Kind: ast.RETURNSTMT, Left: ast.Int(0, 5)},
	}}
	decl := funcDecl("start", body)
	_, err := bind.Program(mod, []*ast.Node{decl})
	require.NoError(t, err)

	bag := &diag.Bag{}
	result, err := Compile(mod, bag)
	require.NoError(t, err)
	require.False(t, bag.HasErrors())
	require.Contains(t, result.Lists, "start")
	require.NotNil(t, result.Pool)

	list := result.Lists["start"]
	require.NotNil(t, list.Head)
	for ins := list.Head; ins != nil; ins = ins.Next {
		if ins.Op.IsPseudo() {
			continue
		}
		require.NotNilf(t, ins.Bytecode, "instruction %s has no assigned bytecode", ins.Op)
	}
}

func TestCompileChainsMultipleFunctionLists(t *testing.T) {
	mod := module.NewModule("M")
	bodyA := &ast.Node{Kind: ast.BLOCK, Extra: []*ast.Node{{Kind: ast.RETURNSTMT, Left: ast.Int(0, 1)}}}
	bodyB := &ast.Node{Kind: ast.BLOCK, Extra: []*ast.Node{{Kind: ast.RETURNSTMT, Left: ast.Int(0, 2)}}}
	_, err := bind.Program(mod, []*ast.Node{funcDecl("a", bodyA), funcDecl("b", bodyB)})
	require.NoError(t, err)

	result, err := Compile(mod, nil)
	require.NoError(t, err)
	require.Len(t, result.Lists, 2)

	a := result.Lists["a"]
	require.NotNil(t, a.NextList)
}

func TestCompileReportsMissingBody(t *testing.T) {
	mod := module.NewModule("M")
	fn := mod.NewFunction("bare", true)
	_ = fn
	_, err := Compile(mod, nil)
	require.Error(t, err)
}

package bind

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/module"
	"github.com/totalspectrum/spinc/internal/symbol"
)

func funcDecl(name string, paramNames, localNames []string, body *ast.Node) *ast.Node {
	params := &ast.Node{Kind: ast.BLOCK}
	for _, n := range paramNames {
		params.Extra = append(params.Extra, &ast.Node{Kind: ast.PARAMDECL, Str: n})
	}
	locals := &ast.Node{Kind: ast.BLOCK}
	for _, n := range localNames {
		locals.Extra = append(locals.Extra, &ast.Node{Kind: ast.LOCALDECL, Str: n})
	}
	return &ast.Node{
		Kind:  ast.FUNCDECL,
		Str:   name,
		IVal:  1,
		Right: body,
		Extra: []*ast.Node{params, locals},
	}
}

func TestFunctionAssignsSequentialOffsets(t *testing.T) {
	mod := module.NewModule("M")
	body := &ast.Node{Kind: ast.BLOCK}
	decl := funcDecl("f", []string{"a", "b"}, []string{"x"}, body)

	fn, err := Function(mod, decl)
	require.NoError(t, err)
	require.Equal(t, 2, fn.NumParams)
	require.Equal(t, 3, fn.NumLocals) // a, b, x all share offset space
	require.True(t, fn.IsPublic)
	require.Same(t, body, fn.Body)

	a, _, ok := fn.LocalSyms.Resolve(fn.LocalRoot, "a")
	require.True(t, ok)
	require.Equal(t, int32(0), a.Offset)
	require.Equal(t, symbol.Parameter, a.Kind)

	b, _, ok := fn.LocalSyms.Resolve(fn.LocalRoot, "b")
	require.True(t, ok)
	require.Equal(t, int32(4), b.Offset)

	x, _, ok := fn.LocalSyms.Resolve(fn.LocalRoot, "x")
	require.True(t, ok)
	require.Equal(t, int32(8), x.Offset)
	require.Equal(t, symbol.LocalVar, x.Kind)
}

func TestProgramBindsConstAndFunctionDecls(t *testing.T) {
	mod := module.NewModule("M")
	decls := []*ast.Node{
		{Kind: ast.CONDECL, Left: ast.Ident(0, "FOO"), Right: ast.Int(0, 42)},
		funcDecl("start", nil, nil, &ast.Node{Kind: ast.BLOCK}),
	}

	fns, err := Program(mod, decls)
	require.NoError(t, err)
	require.Len(t, fns, 1)
	require.Same(t, fns[0], mod.FindFunction("start"))

	foo, _, ok := mod.ObjSyms.Resolve(mod.ObjRoot, "FOO")
	require.True(t, ok)
	require.Equal(t, symbol.Constant, foo.Kind)
	require.NotNil(t, foo.Value)
}

func TestFunctionRejectsWrongKind(t *testing.T) {
	mod := module.NewModule("M")
	_, err := Function(mod, &ast.Node{Kind: ast.CONDECL})
	require.Error(t, err)
}

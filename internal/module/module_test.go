package module

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/totalspectrum/spinc/internal/ast"
)

func TestNewFunctionLocalScopeParentsToModuleObjRoot(t *testing.T) {
	mod := NewModule("MyDriver")
	fn := mod.NewFunction("start", true)

	require.Same(t, mod, fn.Module)
	require.True(t, fn.IsPublic)
	require.Equal(t, mod.ObjRoot, fn.LocalSyms.Parent(fn.LocalRoot))
	require.Len(t, mod.Functions, 1)
	require.Same(t, fn, mod.FindFunction("start"))
	require.Nil(t, mod.FindFunction("nosuch"))
}

func TestParamIndex(t *testing.T) {
	fn := &Function{
		Params: &ast.Node{Kind: ast.BLOCK, Extra: []*ast.Node{
			{Kind: ast.PARAMDECL, Str: "a"},
			{Kind: ast.PARAMDECL, Str: "b"},
		}},
	}
	require.Equal(t, 0, fn.ParamIndex("a"))
	require.Equal(t, 1, fn.ParamIndex("b"))
	require.Equal(t, -1, fn.ParamIndex("c"))

	var empty Function
	require.Equal(t, -1, empty.ParamIndex("a"))
}

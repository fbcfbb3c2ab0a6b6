package debugasm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/diag"
	"github.com/totalspectrum/spinc/internal/eval"
	"github.com/totalspectrum/spinc/internal/module"
	"github.com/totalspectrum/spinc/internal/symbol"
)

func newCtx(t *testing.T) *eval.Context {
	t.Helper()
	mod := module.NewModule("M")
	fn := mod.NewFunction("f", true)
	return eval.NewContext(fn.LocalSyms, fn.LocalRoot)
}

func udecCall(argName string, line int) *ast.Node {
	return &ast.Node{
		Kind: ast.FUNCCALL, Line: line,
		Left:  ast.Ident(line, "udec"),
		Extra: []*ast.Node{ast.Ident(line, argName)},
	}
}

func TestCodeGenSimpleStringAndCall(t *testing.T) {
	ctx := newCtx(t)
	ctx.Table.Define(ctx.Scope, symbol.Symbol{Name: "x", Kind: symbol.LocalVar, Offset: 4})

	node := &ast.Node{
		Kind: ast.BRKDEBUG, Line: 1,
		Extra: []*ast.Node{
			ast.StringLit(1, "hi"),
			udecCall("x", 1),
		},
	}

	c := NewCompiler()
	var bag diag.Bag
	code := c.CodeGen(node, ctx, &bag)
	require.Equal(t, 0, code)
	require.Empty(t, bag.All())

	payload := c.Sites()[0]
	require.Equal(t, byte(dbcAsmMode), payload[0])
	require.Equal(t, byte(dbcCogN), payload[1])
	require.Equal(t, byte(dbcString), payload[2])
	require.Equal(t, []byte("hi"), payload[3:5])
	require.Equal(t, byte(0), payload[5])

	// udec tag byte follows: not simple, first call so NOCOMMA set, no "_"
	// suffix so the expression-marker NUL is present, then a regref for x
	// at frame offset 4, then DBC_DONE.
	tagIdx := 6
	wantOpcode := byte(typeDec) | flagNoComma
	require.Equal(t, wantOpcode, payload[tagIdx])
	require.Equal(t, byte(0), payload[tagIdx+1]) // expression marker NUL
	require.Equal(t, byte(0x80), payload[tagIdx+2])
	require.Equal(t, byte(4), payload[tagIdx+3])
	require.Equal(t, byte(dbcDone), payload[len(payload)-1])
}

func TestCodeGenIntegerLiteralItem(t *testing.T) {
	ctx := newCtx(t)
	node := &ast.Node{
		Kind: ast.BRKDEBUG, Line: 1,
		Extra: []*ast.Node{ast.Int(1, 7)},
	}
	c := NewCompiler()
	var bag diag.Bag
	c.CodeGen(node, ctx, &bag)
	require.Empty(t, bag.All())
	payload := c.Sites()[0]
	require.Equal(t, byte(dbcChar), payload[2])
	require.Equal(t, byte(0), payload[3])
	require.Equal(t, byte(7), payload[4])
}

func TestCodeGenUnknownFunctionReportsError(t *testing.T) {
	ctx := newCtx(t)
	node := &ast.Node{
		Kind: ast.BRKDEBUG, Line: 3,
		Extra: []*ast.Node{
			{Kind: ast.FUNCCALL, Line: 3, Left: ast.Ident(3, "bogus"), Extra: []*ast.Node{ast.Int(3, 1)}},
		},
	}
	c := NewCompiler()
	var bag diag.Bag
	c.CodeGen(node, ctx, &bag)
	require.NotEmpty(t, bag.All())
}

func TestCodeGenWrongArgCountReportsError(t *testing.T) {
	ctx := newCtx(t)
	node := &ast.Node{
		Kind: ast.BRKDEBUG, Line: 5,
		Extra: []*ast.Node{
			{Kind: ast.FUNCCALL, Line: 5, Left: ast.Ident(5, "udec_long_array"), Extra: []*ast.Node{ast.Int(5, 1)}},
		},
	}
	c := NewCompiler()
	var bag diag.Bag
	c.CodeGen(node, ctx, &bag)
	require.NotEmpty(t, bag.All())
}

func TestLookupFuncStripsTrailingUnderscore(t *testing.T) {
	fn, noExpr, ok := lookupFunc("udec_")
	require.True(t, ok)
	require.True(t, noExpr)
	require.Equal(t, byte(typeDec), fn.opcode)
}

func TestEmitAsmConstantCompactVsLong(t *testing.T) {
	var buf bytes.Buffer
	emitAsmConstant(&buf, 100)
	require.Equal(t, []byte{0, 100}, buf.Bytes())

	buf.Reset()
	emitAsmConstant(&buf, 0x10000)
	require.Equal(t, byte(0b01000000), buf.Bytes()[0])
}

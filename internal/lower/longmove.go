package lower

import (
	"strings"

	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/eval"
	"github.com/totalspectrum/spinc/internal/module"
	"github.com/totalspectrum/spinc/internal/symbol"
)

// longMoveThreshold bounds how large a longmove(@dst, @src, n) call this
// pass will unroll into n plain assignments; larger counts stay a runtime
// call, since unrolling trades code size for a modest speedup that only
// pays off for a handful of longs.
const longMoveThreshold = 4

// LongMove rewrites `longmove(@dst, @src, n)` into n sequential assignments
// `dst := src; dst+1 := src+1; ...` (each name resolved to the next symbol
// at offset+4 in its table) when n is a compile-time constant in
// [1, longMoveThreshold] and both @dst/@src take the address of a plain
// local or object variable with that many consecutive same-kind symbols
// following it. It returns nil, false when the call doesn't match this
// pattern, leaving it to be compiled as an ordinary runtime call.
//
// A longmove call also marks its module's variables volatile, since it
// typically indicates another cog will be reading or writing them
// concurrently with this one.
func LongMove(ctx *eval.Context, fn *module.Function, call *ast.Node) (*ast.Node, bool) {
	if call.Kind != ast.FUNCCALL || call.Left == nil || call.Left.Kind != ast.IDENT {
		return nil, false
	}
	if !strings.EqualFold(call.Left.Str, "longmove") {
		return nil, false
	}
	if len(call.Extra) != 3 {
		return nil, false
	}
	dstAddr, srcAddr, countExpr := call.Extra[0], call.Extra[1], call.Extra[2]

	if !eval.IsConstExpr(ctx, countExpr) {
		return nil, false
	}
	n, _ := eval.ConstInt(ctx, countExpr)
	if n <= 0 || n > longMoveThreshold {
		return nil, false
	}

	srcName, ok := addrOfIdent(srcAddr)
	if !ok {
		return nil, false
	}
	dstName, ok := addrOfIdent(dstAddr)
	if !ok {
		return nil, false
	}

	srcSym, srcScope, found := fn.LocalSyms.Resolve(fn.LocalRoot, srcName)
	if !found {
		return nil, false
	}
	dstSym, dstScope, found := fn.LocalSyms.Resolve(fn.LocalRoot, dstName)
	if !found {
		return nil, false
	}

	srcByOffset := offsetIndex(fn.LocalSyms, srcScope)
	dstByOffset := offsetIndex(fn.LocalSyms, dstScope)

	var assigns []*ast.Node
	srcOff, dstOff := srcSym.Offset, dstSym.Offset
	for i := int32(0); i < n; i++ {
		sName, ok := srcByOffset[srcOff]
		if !ok {
			return nil, false
		}
		dName, ok := dstByOffset[dstOff]
		if !ok {
			return nil, false
		}
		assigns = append(assigns, assignStmt(call.Line, ast.Ident(call.Line, dName), ast.Ident(call.Line, sName)))
		srcOff += 4
		dstOff += 4
	}

	fn.Module.VolatileVariables = append(fn.Module.VolatileVariables, srcName, dstName)
	return &ast.Node{Kind: ast.BLOCK, Line: call.Line, Extra: assigns}, true
}

func addrOfIdent(n *ast.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Kind {
	case ast.ADDROF, ast.ABSADDROF:
	default:
		return "", false
	}
	if n.Left == nil || n.Left.Kind != ast.IDENT {
		return "", false
	}
	return n.Left.Str, true
}

func offsetIndex(tbl *symbol.Table, scope symbol.ScopeID) map[int32]string {
	idx := make(map[int32]string)
	for _, name := range tbl.Names(scope) {
		sym, _, ok := tbl.Resolve(scope, name)
		if !ok {
			continue
		}
		idx[sym.Offset] = name
	}
	return idx
}

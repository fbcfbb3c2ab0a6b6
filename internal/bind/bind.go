// Package bind converts top-level parsed declarations (internal/parser's
// CONDECL/FUNCDECL nodes) into a populated internal/module.Module: symbols
// defined, offsets assigned, a Function's Params/Locals/Body wired up ready
// for internal/typeinfer and internal/nuir.Gen.
//
// No such pass exists in the teacher (kong's compiler.Compile walks
// ast.Program directly into bytecode in one step, with no separate
// symbol-binding phase — Monkey has no declared locals to offset, just
// SymbolTable.Define calls made inline as each let-statement is compiled).
// This package is grounded on that same "define as you walk, in the AST's
// own declaration order" idiom, generalised to the two-phase shape Spin
// needs: parameters and locals get frame offsets before a function's body
// can reference them, so binding has to finish before internal/nuir.Gen
// starts.
package bind

import (
	"fmt"

	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/module"
	"github.com/totalspectrum/spinc/internal/symbol"
)

// wordSize is the frame slot width every local/parameter/result occupies.
// Every declared local takes exactly one slot; array locals are not
// handled.
const wordSize = 4

// Program binds every CONDECL/FUNCDECL in decls into mod, in declaration
// order, and returns the Functions created (parallel to mod.Functions,
// which also accumulates them). decls is the Extra list of a parsed
// top-level program node.
//
// Only CONDECL and FUNCDECL are bound; VARDECL/OBJDECL/DAT blocks are left
// for a caller that needs them (none of the core passes this binds for —
// internal/typeinfer, internal/nuir.Gen, internal/nucode — read module-level
// VAR/OBJ/DAT storage, only LocalSyms/ObjSyms symbols and Function.Body).
func Program(mod *module.Module, decls []*ast.Node) ([]*module.Function, error) {
	var fns []*module.Function
	for _, decl := range decls {
		switch decl.Kind {
		case ast.CONDECL:
			if err := bindConst(mod, decl); err != nil {
				return fns, err
			}
		case ast.FUNCDECL:
			fn, err := Function(mod, decl)
			if err != nil {
				return fns, err
			}
			fns = append(fns, fn)
		}
	}
	return fns, nil
}

// bindConst defines decl (Left = name IDENT, Right = defining expression, per
// parser.parseConSection) as a Constant symbol in mod's object scope,
// deferring evaluation to internal/eval exactly as symbol.Symbol's doc
// comment requires.
func bindConst(mod *module.Module, decl *ast.Node) error {
	if decl.Left == nil || decl.Left.Str == "" {
		return fmt.Errorf("bind: CONDECL at line %d has no name", decl.Line)
	}
	mod.ObjSyms.Define(mod.ObjRoot, symbol.Symbol{
		Name:  decl.Left.Str,
		Kind:  symbol.Constant,
		Value: decl.Right,
	})
	return nil
}

// Function binds one FUNCDECL node into a new module.Function owned by mod:
// parameters and locals are defined in the function's own scope with
// sequential word-sized frame offsets (parameters first, matching spec.md's
// "params then locals" frame layout), the body is attached as parsed
// (fn.Body), and return-type bookkeeping is left to
// internal/typeinfer.ProcessFunction, which expects exactly this much to
// already be in place.
func Function(mod *module.Module, decl *ast.Node) (*module.Function, error) {
	if decl.Kind != ast.FUNCDECL {
		return nil, fmt.Errorf("bind: expected FUNCDECL, got %s", decl.Kind)
	}
	if len(decl.Extra) != 2 {
		return nil, fmt.Errorf("bind: FUNCDECL %s missing params/locals blocks", decl.Str)
	}
	params, locals := decl.Extra[0], decl.Extra[1]

	fn := mod.NewFunction(decl.Str, decl.IVal != 0)
	fn.Params = params
	fn.Locals = locals
	fn.Body = decl.Right

	offset := int32(0)
	for _, p := range params.Extra {
		fn.LocalSyms.Define(fn.LocalRoot, symbol.Symbol{
			Name:   p.Str,
			Kind:   symbol.Parameter,
			Offset: offset,
		})
		offset += wordSize
		fn.NumParams++
	}
	for _, l := range locals.Extra {
		fn.LocalSyms.Define(fn.LocalRoot, symbol.Symbol{
			Name:   l.Str,
			Kind:   symbol.LocalVar,
			Offset: offset,
		})
		offset += wordSize
	}
	// NumLocals sizes nuir.Gen's ENTER frame reservation, which must cover
	// every offset a STOREL/LOADL can address — params and locals share one
	// offset space, so this is the total slot count, not just the locals
	// declared after the "|" divider.
	fn.NumLocals = int(offset / wordSize)
	return fn, nil
}

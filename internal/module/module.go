// Package module defines the Function and Module records that own a parsed
// and normalised Spin program: a Module is a collection of Functions plus
// the DAT/CON blocks and object symbols they share, and a Function is one
// PUB/PRI method body together with the bookkeeping later passes
// (normalisation, type inference, Nu IR generation) attach to it.
package module

import (
	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/symbol"
)

// Function mirrors spec.md §3's Function record. It is created by the
// parser, mutated in place by internal/lower and internal/typeinfer, and
// destroyed along with its owning Module.
type Function struct {
	Name   string
	Module *Module

	Params *ast.Node // BLOCK of PARAMDECL children
	Locals *ast.Node // BLOCK of LOCALDECL children
	Body   *ast.Node

	LocalSyms *symbol.Table
	LocalRoot symbol.ScopeID // LocalSyms.Parent(LocalRoot) == module.ObjRoot, by construction

	NumParams int
	NumLocals int

	RetType    *ast.Node
	ResultExpr *ast.Node

	IsPublic    bool
	IsStatic    bool
	ForceStatic bool
	IsLeaf      bool
	IsRecursive bool
	CogTask     bool
	ResultUsed  bool
	VisitFlag   bool
	ParmArray   bool
	LocalArray  bool

	CallSites []*Function

	DocComment  string
	Annotations []string
	ExtraDecl   []*ast.Node
}

// Module mirrors spec.md §3's Module record: the unit of compilation that
// owns its functions exclusively, referencing sibling modules only through
// Object symbols in ObjSyms.
type Module struct {
	ClassName string

	ObjSyms *symbol.Table
	ObjRoot symbol.ScopeID

	Functions []*Function

	DatBlock  []*ast.Node
	ConBlock  []*ast.Node
	FuncBlock []*ast.Node

	VolatileVariables []string

	NeedsCoginit bool
	NeedsMinMax  bool

	PasmLabels map[string]int32

	// Lptr is the base offset of this module's DAT block once allocated
	// into the final binary image; -1 until known.
	Lptr int32
}

// NewModule creates an empty Module with its own root object-symbol scope.
func NewModule(className string) *Module {
	syms := symbol.NewTable()
	root := syms.NewScope(symbol.NoScope)
	return &Module{
		ClassName: className,
		ObjSyms:   syms,
		ObjRoot:   root,
		Lptr:      -1,
	}
}

// NewFunction creates a Function owned by mod, with its own local-symbol
// scope parented to the module's object-symbol scope per spec.md §3
// ("localsyms.parent = module.objsyms").
func (mod *Module) NewFunction(name string, isPublic bool) *Function {
	fn := &Function{
		Name:      name,
		Module:    mod,
		LocalSyms: mod.ObjSyms,
		IsPublic:  isPublic,
	}
	fn.LocalRoot = mod.ObjSyms.NewScope(mod.ObjRoot)
	mod.Functions = append(mod.Functions, fn)
	return fn
}

// FindFunction returns the function named name, or nil.
func (mod *Module) FindFunction(name string) *Function {
	for _, fn := range mod.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// ParamIndex returns the zero-based index of name among fn's parameters,
// or -1 if it is not a parameter.
func (fn *Function) ParamIndex(name string) int {
	if fn.Params == nil {
		return -1
	}
	for i, p := range fn.Params.Extra {
		if p.Str == name {
			return i
		}
	}
	return -1
}

// Package symbol implements the symbol model and scope chain described by
// the data model: an ordered, append-only name→Symbol table per scope, with
// scopes linked parent-ward so lookup can walk outward from a function's
// locals to its module to that module's parent.
//
// Scopes are addressed by [ScopeID] into a single [Table], a flat vector
// rather than a tree of pointer-linked tables — this avoids the cycle that a
// naive "child points to parent, parent points to children" design would
// need and keeps a Table trivially copyable and garbage-collector-friendly.
package symbol

import "github.com/totalspectrum/spinc/internal/ast"

// Kind distinguishes the varieties of named entity the compiler tracks.
type Kind int

const (
	Constant Kind = iota
	FloatConstant
	Label
	Variable
	LocalVar
	Parameter
	Result
	TempVar
	Object
	Function
	Builtin
	HwRegister
)

func (k Kind) String() string {
	switch k {
	case Constant:
		return "Constant"
	case FloatConstant:
		return "FloatConstant"
	case Label:
		return "Label"
	case Variable:
		return "Variable"
	case LocalVar:
		return "LocalVar"
	case Parameter:
		return "Parameter"
	case Result:
		return "Result"
	case TempVar:
		return "TempVar"
	case Object:
		return "Object"
	case Function:
		return "Function"
	case Builtin:
		return "Builtin"
	case HwRegister:
		return "HwRegister"
	default:
		return "Kind(?)"
	}
}

// Flags is a bitmask of secondary properties a Symbol can carry.
type Flags uint32

const (
	// FlagVolatile marks a Variable whose address has been taken somewhere
	// in the owning module, mirroring Module.volatileVariables at the
	// per-symbol level.
	FlagVolatile Flags = 1 << iota

	// FlagCogTask marks a Function launched via COGINIT on another cog.
	FlagCogTask

	// FlagPublic marks a PUB (as opposed to PRI) function.
	FlagPublic
)

// Symbol is a single named entry: a constant, label, variable, object
// reference, function, builtin, or hardware register.
//
// Constant.Value holds the defining AST expression rather than a folded
// value — evaluation is deferred to the expression engine and is only valid
// in the context of the module that defined it. Label carries its own
// offset/asmval/type trio instead of reusing Value.
type Symbol struct {
	Name  string
	Kind  Kind
	Flags Flags

	// Value is the deferred-evaluation AST for Constant/FloatConstant, or
	// nil for every other Kind.
	Value *ast.Node

	// Offset is the byte offset into the parameter/local/object frame for
	// Variable/LocalVar/Parameter/Result/TempVar, or the DAT-relative byte
	// offset for Label.
	Offset int32

	// Asmval is the COG-word-aligned address, meaningful only for Label.
	// It is -1 until the layout pass has run (see Module.Lptr in the
	// module package), matching the "dat_offset starts at -1" invariant.
	Asmval int32

	// Type is the declared/inferred type AST for Variable-family and
	// Function symbols (see the typeinfer package), nil until resolved.
	Type *ast.Node

	// Payload carries an opaque back-reference for Object (the referenced
	// module) and Function (its *module.Function) symbols. Kept as
	// interface{} here to avoid a symbol<->module import cycle.
	Payload interface{}
}

// ScopeID indexes a scope within a [Table]. Table.NewScope returns ids
// counting up from 0; NoScope (-1) marks "no parent".
type ScopeID int

// NoScope is the parent of a root scope (a module's top-level symbol table).
const NoScope ScopeID = -1

type scope struct {
	parent  ScopeID
	order   []string
	entries map[string]Symbol
}

// Table holds every scope created during a compilation, addressed by
// [ScopeID]. The zero Table is not usable; construct one with [NewTable].
type Table struct {
	scopes []scope
}

// NewTable creates an empty Table with no scopes.
func NewTable() *Table {
	return &Table{}
}

// NewScope creates a fresh, empty scope whose lookups fall through to
// parent when a name isn't found locally. Pass [NoScope] for a root scope
// (a module's object-level table has no parent).
func (t *Table) NewScope(parent ScopeID) ScopeID {
	t.scopes = append(t.scopes, scope{
		parent:  parent,
		entries: make(map[string]Symbol),
	})
	return ScopeID(len(t.scopes) - 1)
}

// Define appends a new symbol to scope id. Insertion is append-only: a
// second Define of the same name shadows the first for Resolve but the
// original entry is not removed from Order, matching "insertion is
// append-only within a scope" in the data model. Define reports false if id
// is out of range.
func (t *Table) Define(id ScopeID, sym Symbol) bool {
	if int(id) < 0 || int(id) >= len(t.scopes) {
		return false
	}
	s := &t.scopes[id]
	if _, exists := s.entries[sym.Name]; !exists {
		s.order = append(s.order, sym.Name)
	}
	s.entries[sym.Name] = sym
	return true
}

// Resolve looks up name starting at scope id and walking the parent chain
// outward. It returns the symbol, the id of the scope that owns it, and
// whether it was found.
func (t *Table) Resolve(id ScopeID, name string) (Symbol, ScopeID, bool) {
	for id != NoScope {
		if int(id) < 0 || int(id) >= len(t.scopes) {
			return Symbol{}, NoScope, false
		}
		s := &t.scopes[id]
		if sym, ok := s.entries[name]; ok {
			return sym, id, true
		}
		id = s.parent
	}
	return Symbol{}, NoScope, false
}

// Names returns the symbol names defined directly in scope id, in insertion
// order. It does not include names visible only through the parent chain.
func (t *Table) Names(id ScopeID) []string {
	if int(id) < 0 || int(id) >= len(t.scopes) {
		return nil
	}
	out := make([]string, len(t.scopes[id].order))
	copy(out, t.scopes[id].order)
	return out
}

// Parent returns the parent scope of id, or NoScope if id is a root scope or
// out of range.
func (t *Table) Parent(id ScopeID) ScopeID {
	if int(id) < 0 || int(id) >= len(t.scopes) {
		return NoScope
	}
	return t.scopes[id].parent
}

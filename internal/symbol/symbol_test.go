package symbol

import "testing"

// TestResolveWalksScopeChain ensures lookup falls through to parent scopes
// in order, the way a function's locals fall through to its module's
// object-level symbols.
func TestResolveWalksScopeChain(t *testing.T) {
	tbl := NewTable()
	module := tbl.NewScope(NoScope)
	fn := tbl.NewScope(module)

	tbl.Define(module, Symbol{Name: "PinMask", Kind: Constant})
	tbl.Define(fn, Symbol{Name: "i", Kind: LocalVar, Offset: 4})

	sym, owner, ok := tbl.Resolve(fn, "i")
	if !ok || owner != fn || sym.Kind != LocalVar {
		t.Fatalf("Resolve(fn, i) = %+v, %d, %v; want LocalVar in fn scope", sym, owner, ok)
	}

	sym, owner, ok = tbl.Resolve(fn, "PinMask")
	if !ok || owner != module || sym.Kind != Constant {
		t.Fatalf("Resolve(fn, PinMask) = %+v, %d, %v; want Constant in module scope", sym, owner, ok)
	}

	if _, _, ok = tbl.Resolve(fn, "nope"); ok {
		t.Fatalf("Resolve(fn, nope) unexpectedly found a symbol")
	}
}

// TestDefineShadowsWithoutRemovingInsertionOrder checks the append-only
// Names() contract: redefining a name in the same scope updates Resolve but
// does not drop the name from the insertion-ordered list.
func TestDefineShadowsWithoutRemovingInsertionOrder(t *testing.T) {
	tbl := NewTable()
	s := tbl.NewScope(NoScope)

	tbl.Define(s, Symbol{Name: "x", Kind: Variable, Offset: 0})
	tbl.Define(s, Symbol{Name: "y", Kind: Variable, Offset: 4})
	tbl.Define(s, Symbol{Name: "x", Kind: Variable, Offset: 8})

	if got := tbl.Names(s); len(got) != 2 || got[0] != "x" || got[1] != "y" {
		t.Fatalf("Names(s) = %v; want [x y]", got)
	}

	sym, _, ok := tbl.Resolve(s, "x")
	if !ok || sym.Offset != 8 {
		t.Fatalf("Resolve(s, x).Offset = %d; want 8 (latest definition wins)", sym.Offset)
	}
}

// TestParentOfRootScopeIsNoScope verifies NoScope terminates the walk.
func TestParentOfRootScopeIsNoScope(t *testing.T) {
	tbl := NewTable()
	root := tbl.NewScope(NoScope)
	if p := tbl.Parent(root); p != NoScope {
		t.Fatalf("Parent(root) = %d; want NoScope", p)
	}
}

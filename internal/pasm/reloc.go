package pasm

import "sort"

// RelocKind classifies one DAT-block relocation entry.
type RelocKind int

const (
	RelocNone RelocKind = iota
	RelocDebug
	RelocI32
	RelocAugS
	RelocAugD
)

// Reloc is one relocation record produced while laying out a module's DAT
// block: either a real fixup (I32/AUGS/AUGD, patching a reference to a
// label whose address wasn't known at first-pass emission time) or a
// DEBUG-kind entry, which carries a source-listing annotation rather than
// an address fixup.
type Reloc struct {
	Kind   RelocKind
	Addr   uint32
	Sym    string
	SymOff int32
}

// SortRelocs orders relocs by ascending Addr, the order the original's DAT
// output pass requires before writing them out (stable, since the input
// order is itself already close to sorted — relocations are usually
// recorded as layout proceeds forward through a DAT block).
func SortRelocs(relocs []Reloc) {
	sort.SliceStable(relocs, func(i, j int) bool {
		return relocs[i].Addr < relocs[j].Addr
	})
}

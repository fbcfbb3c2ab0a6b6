package nuir

import (
	"fmt"

	"github.com/totalspectrum/spinc/internal/nucode"
)

// Builder accumulates Nu IR instructions for one function into a List,
// minting fresh local labels as control flow needs them.
type Builder struct {
	list     *List
	nextTemp int
}

// NewBuilder starts a fresh Nu IR list for funcName.
func NewBuilder(funcName string) *Builder {
	return &Builder{list: NewList(funcName)}
}

// List returns the list built so far.
func (b *Builder) List() *List { return b.list }

// Emit appends a plain instruction and returns it.
func (b *Builder) Emit(op nucode.Op, val int64) *Instruction {
	return b.list.Append(&Instruction{Op: op, Val: val})
}

// EmitLabelled appends an instruction that branches to or addresses a named
// label (PUSHA, CALL, CALLM, GOSUB, JMP, BRZ, BRNZ, CBEQ, CBNE), or a
// load/store against a module-level symbol.
func (b *Builder) EmitLabelled(op nucode.Op, label string) *Instruction {
	return b.list.Append(&Instruction{Op: op, Label: label})
}

// EmitComment appends op with an attached diagnostic comment, for sites
// where the generator wants the listing to say why, without affecting
// codegen.
func (b *Builder) EmitComment(op nucode.Op, val int64, comment string) *Instruction {
	ins := &Instruction{Op: op, Val: val, Comment: comment}
	return b.list.Append(ins)
}

// Label defines a fresh Nu IR label name with the given prefix and emits the
// LABEL pseudo-op marking its position, returning the name for later
// branches to target.
func (b *Builder) Label(prefix string) string {
	name := fmt.Sprintf("%s%d", prefix, b.nextTemp)
	b.nextTemp++
	b.list.Append(&Instruction{Op: nucode.LABEL, Label: name})
	return name
}

// NewLabelName mints a label name without emitting it, for forward
// references (a branch target defined later in the same pass).
func (b *Builder) NewLabelName(prefix string) string {
	name := fmt.Sprintf("%s%d", prefix, b.nextTemp)
	b.nextTemp++
	return name
}

// PlaceLabel emits the LABEL pseudo-op for a name minted earlier by
// NewLabelName.
func (b *Builder) PlaceLabel(name string) *Instruction {
	return b.list.Append(&Instruction{Op: nucode.LABEL, Label: name})
}

// Align emits the ALIGN pseudo-op.
func (b *Builder) Align() *Instruction {
	return b.list.Append(&Instruction{Op: nucode.ALIGN})
}

// Package nuir implements the Nu IR: the doubly-linked, per-function
// instruction list that sits between Spin lowering/type inference and the Nu
// bytecode allocator. It mirrors code.Instructions/Opcode/Definition
// structurally — a linked list standing in for a flat byte slice, so the
// allocator's compression passes can splice adjacent instructions together
// without the O(n) slice-shift a byte-array representation would need.
package nuir

import (
	"fmt"
	"strings"

	"github.com/totalspectrum/spinc/internal/nucode"
)

// Instruction is one node of a function's Nu IR list.
//
//   - Op, Val: the operation and its immediate operand — a literal for
//     PUSHI, a frame offset for frame-relative loads/stores, or unused (0)
//     for operand-less ops.
//   - Label: the target of PUSHA/CALL/CALLM/GOSUB/JMP/branches, the name
//     being declared for a LABEL pseudo-op, or the DAT symbol for a
//     module-variable load/store.
//   - Comment: an optional human-readable annotation carried through to the
//     emitted listing; never consulted by the allocator.
//   - Bytecode: nil until the allocator assigns this instruction's opcode
//     number (see the data model invariant: non-LABEL/ALIGN instructions
//     must have Bytecode != nil after allocation).
type Instruction struct {
	Op      nucode.Op
	Val     int64
	Label   string
	Comment string

	Bytecode *nucode.NuBytecode

	Prev, Next *Instruction
}

func (ins *Instruction) String() string {
	var b strings.Builder
	switch ins.Op {
	case nucode.LABEL:
		return ins.Label + ":"
	case nucode.ALIGN:
		return "\talignl"
	}
	fmt.Fprintf(&b, "\t%s", ins.Op)
	if ins.Label != "" {
		fmt.Fprintf(&b, " %s", ins.Label)
	} else if ins.Op == nucode.PUSHI || ins.Op.IsRelBranch() || ins.Val != 0 {
		fmt.Fprintf(&b, " %d", ins.Val)
	}
	if ins.Comment != "" {
		fmt.Fprintf(&b, "\t' %s", ins.Comment)
	}
	return b.String()
}

// List is one function's Nu IR: a doubly-linked instruction chain plus a
// pointer to the next function's list, so a whole program is a chain of
// per-function lists (NuIrList.nextList in the data model).
type List struct {
	FuncName string
	Head     *Instruction
	Tail     *Instruction
	NextList *List
}

// NewList creates an empty Nu IR list for the named function.
func NewList(funcName string) *List {
	return &List{FuncName: funcName}
}

// Append adds ins to the end of l and returns it.
func (l *List) Append(ins *Instruction) *Instruction {
	ins.Prev = l.Tail
	ins.Next = nil
	if l.Tail != nil {
		l.Tail.Next = ins
	} else {
		l.Head = ins
	}
	l.Tail = ins
	return ins
}

// Remove unlinks ins from l, patching its neighbours.
func (l *List) Remove(ins *Instruction) {
	if ins.Prev != nil {
		ins.Prev.Next = ins.Next
	} else if l.Head == ins {
		l.Head = ins.Next
	}
	if ins.Next != nil {
		ins.Next.Prev = ins.Prev
	} else if l.Tail == ins {
		l.Tail = ins.Prev
	}
	ins.Prev, ins.Next = nil, nil
}

// Len counts the instructions in l. O(n); intended for tests and
// diagnostics, not hot paths.
func (l *List) Len() int {
	n := 0
	for ins := l.Head; ins != nil; ins = ins.Next {
		n++
	}
	return n
}

// Slice materialises l's instructions as a slice, in order. Intended for
// tests and the emitter's final pass.
func (l *List) Slice() []*Instruction {
	out := make([]*Instruction, 0, l.Len())
	for ins := l.Head; ins != nil; ins = ins.Next {
		out = append(out, ins)
	}
	return out
}

// Lists materialises the whole-program chain starting at l (inclusive) by
// following NextList.
func Lists(l *List) []*List {
	var out []*List
	for cur := l; cur != nil; cur = cur.NextList {
		out = append(out, cur)
	}
	return out
}

// String renders l as a PASM-like listing, for tests and debugging.
func (l *List) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "' --- %s ---\n", l.FuncName)
	for ins := l.Head; ins != nil; ins = ins.Next {
		b.WriteString(ins.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Package nuvm is a small Go interpreter over the Nu IR (internal/nuir),
// used only by tests — it exists to check spec.md §8 invariant 6: a
// macro-fused bytecode executes observationally equivalently to its two
// original instructions in sequence. It is not part of the compiled output;
// the real interpreter is PASM, assembled by internal/nucode's emission
// pass.
//
// Grounded on dr8co/kong's vm/frame.go Frame/basePointer
// idiom, adapted from kong's closure-call-stack VM (one Frame per active
// function call, each wrapping a *object.Closure's byte-coded
// Instructions) to a single-frame walk over one function's nuir.List, since
// this interpreter only ever needs to run one compiled function body at a
// time for an equivalence check, not a full call stack.
package nuvm

import (
	"fmt"
	"strings"

	"github.com/totalspectrum/spinc/internal/nucode"
	"github.com/totalspectrum/spinc/internal/nuir"
)

// Frame is the single execution frame this interpreter runs: an instruction
// cursor into one function's Nu IR plus its locals array, the same
// ip/basePointer shape kong's vm/frame.go Frame carries, minus the call-stack
// fields this single-frame walker has no use for.
type Frame struct {
	ip     *nuir.Instruction
	locals []int32
}

// NewFrame starts a frame at list's first instruction with numLocals
// zeroed local slots.
func NewFrame(list *nuir.List, numLocals int) *Frame {
	return &Frame{ip: list.Head, locals: make([]int32, numLocals)}
}

// VM is an operand-stack machine executing one Frame's instructions.
type VM struct {
	stack []int32
	sp    int
}

// New creates a VM with an empty operand stack.
func New() *VM {
	return &VM{stack: make([]int32, 0, 64)}
}

func (vm *VM) push(v int32) { vm.stack = append(vm.stack[:vm.sp], v); vm.sp++ }

func (vm *VM) pop() int32 {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) top() int32 { return vm.stack[vm.sp-1] }

// Run executes list to completion (its trailing RET) and returns the value
// RET left on the stack. numLocals sizes the frame's local-variable slots,
// addressed directly by STOREL/LOADL's Val as an index (this interpreter
// models locals as a flat array, not a byte-addressed frame the way the
// real PASM interpreter does — irrelevant to the data-flow equivalence this
// package exists to check).
func Run(list *nuir.List, numLocals int) (int32, error) {
	vm := New()
	frame := NewFrame(list, numLocals)
	labels := indexLabels(list)

	for frame.ip != nil {
		ins := frame.ip
		switch ins.Op {
		case nucode.LABEL, nucode.ALIGN:
			frame.ip = ins.Next
			continue
		case nucode.RET:
			if vm.sp == 0 {
				return 0, nil
			}
			return vm.top(), nil
		case nucode.JMP:
			target, ok := labels[ins.Label]
			if !ok {
				return 0, fmt.Errorf("nuvm: undefined label %q", ins.Label)
			}
			frame.ip = target
			continue
		case nucode.BRZ, nucode.BRNZ:
			cond := vm.pop()
			taken := (ins.Op == nucode.BRZ && cond == 0) || (ins.Op == nucode.BRNZ && cond != 0)
			if taken {
				target, ok := labels[ins.Label]
				if !ok {
					return 0, fmt.Errorf("nuvm: undefined label %q", ins.Label)
				}
				frame.ip = target
				continue
			}
		default:
			if err := vm.execOne(ins, frame); err != nil {
				return 0, err
			}
		}
		frame.ip = ins.Next
	}
	if vm.sp == 0 {
		return 0, nil
	}
	return vm.top(), nil
}

// execOne performs the data-flow effect of one non-control-flow instruction.
// When ins carries a macro-fused Bytecode (its Name is "A_B"), both
// component ops are replayed in sequence — the shape spec.md invariant 6
// requires a fused macro to preserve.
func (vm *VM) execOne(ins *nuir.Instruction, frame *Frame) error {
	if ins.Bytecode != nil && strings.Contains(ins.Bytecode.Name, "_") {
		if a, b, ok := splitFusedName(ins.Bytecode.Name); ok {
			if err := vm.execOp(a, ins.Val, frame); err != nil {
				return err
			}
			return vm.execOp(b, ins.Val, frame)
		}
	}
	return vm.execOp(ins.Op, ins.Val, frame)
}

func splitFusedName(name string) (nucode.Op, nucode.Op, bool) {
	idx := strings.IndexByte(name, '_')
	if idx < 0 {
		return 0, 0, false
	}
	a, aok := nucode.LookupOpByName(name[:idx])
	b, bok := nucode.LookupOpByName(name[idx+1:])
	return a, b, aok && bok
}

func (vm *VM) execOp(op nucode.Op, val int64, frame *Frame) error {
	switch op {
	case nucode.PUSHI, nucode.PUSHA:
		vm.push(int32(val))
	case nucode.DUP:
		vm.push(vm.top())
	case nucode.DROP:
		vm.pop()
	case nucode.SWAP:
		a, b := vm.pop(), vm.pop()
		vm.push(a)
		vm.push(b)
	case nucode.OVER:
		a, b := vm.pop(), vm.pop()
		vm.push(b)
		vm.push(a)
		vm.push(b)
	case nucode.ADD:
		b, a := vm.pop(), vm.pop()
		vm.push(a + b)
	case nucode.SUB:
		b, a := vm.pop(), vm.pop()
		vm.push(a - b)
	case nucode.MUL:
		b, a := vm.pop(), vm.pop()
		vm.push(a * b)
	case nucode.DIV:
		b, a := vm.pop(), vm.pop()
		if b == 0 {
			return fmt.Errorf("nuvm: division by zero")
		}
		vm.push(a / b)
	case nucode.MOD:
		b, a := vm.pop(), vm.pop()
		if b == 0 {
			return fmt.Errorf("nuvm: modulus by zero")
		}
		vm.push(a % b)
	case nucode.NEG:
		vm.push(-vm.pop())
	case nucode.ABS:
		v := vm.pop()
		if v < 0 {
			v = -v
		}
		vm.push(v)
	case nucode.AND:
		b, a := vm.pop(), vm.pop()
		vm.push(a & b)
	case nucode.OR:
		b, a := vm.pop(), vm.pop()
		vm.push(a | b)
	case nucode.XOR:
		b, a := vm.pop(), vm.pop()
		vm.push(a ^ b)
	case nucode.NOT:
		vm.push(^vm.pop())
	case nucode.SHL:
		b, a := vm.pop(), vm.pop()
		vm.push(a << uint32(b))
	case nucode.SHR:
		b, a := vm.pop(), vm.pop()
		vm.push(int32(uint32(a) >> uint32(b)))
	case nucode.SAR:
		b, a := vm.pop(), vm.pop()
		vm.push(a >> uint32(b))
	case nucode.CMPEQ:
		b, a := vm.pop(), vm.pop()
		vm.push(boolVal(a == b))
	case nucode.CMPNE:
		b, a := vm.pop(), vm.pop()
		vm.push(boolVal(a != b))
	case nucode.CMPLT:
		b, a := vm.pop(), vm.pop()
		vm.push(boolVal(a < b))
	case nucode.CMPLE:
		b, a := vm.pop(), vm.pop()
		vm.push(boolVal(a <= b))
	case nucode.CMPGT:
		b, a := vm.pop(), vm.pop()
		vm.push(boolVal(a > b))
	case nucode.CMPGE:
		b, a := vm.pop(), vm.pop()
		vm.push(boolVal(a >= b))
	case nucode.LOADL:
		vm.push(frame.locals[val])
	case nucode.STOREL:
		frame.locals[val] = vm.pop()
	case nucode.ENTER:
		// frame already sized at construction; nothing to do.
	default:
		return fmt.Errorf("nuvm: unsupported op %s in this test interpreter", op)
	}
	return nil
}

func boolVal(b bool) int32 {
	if b {
		return -1
	}
	return 0
}

func indexLabels(list *nuir.List) map[string]*nuir.Instruction {
	labels := make(map[string]*nuir.Instruction)
	for ins := list.Head; ins != nil; ins = ins.Next {
		if ins.Op == nucode.LABEL {
			labels[ins.Label] = ins
		}
	}
	return labels
}

// Package pasm holds the opaque PASM-facing types spec.md §6 names as
// external interfaces: the instruction/modifier tables the assembler
// consults, hardware register descriptors referenced from ast.HWREG nodes,
// and the relocation records DAT output carries.
package pasm

// Operands classifies what operand shape an Instruction accepts, mirroring
// the original's ops field (SRC_OPERAND_ONLY, CALL_OPERAND,
// JMPRET_OPERANDS, ...).
type Operands int

const (
	NoOperands Operands = iota
	SrcOperandOnly
	DstOperandOnly
	TwoOperands
	CallOperand
	JmpRetOperands
	ImmOnlyOperand
)

// Instruction is one opcode the PASM emitter/assembler recognizes, table-
// driven the same way internal/nucode.Op's properties are: a name, a fixed
// encoding (Opc), and the operand shape it accepts.
type Instruction struct {
	Opc  uint32
	Name string
	Ops  Operands
}

// instrTable holds a representative subset of the P2 instruction set
// sufficient to assemble the Nu interpreter template and the DEBUG
// prologue: data movement, arithmetic, branches, and the hub/cog access
// forms internal/nucode's interpreter impl bodies need. Opc values are the
// P2 9-bit major opcode field placed at bits 31:23 of the instruction word.
var instrTable = []Instruction{
	{0x145, "mov", TwoOperands},
	{0x146, "add", TwoOperands},
	{0x147, "sub", TwoOperands},
	{0x0A1, "and", TwoOperands},
	{0x0A2, "or", TwoOperands},
	{0x0A3, "xor", TwoOperands},
	{0x0D8, "cmp", TwoOperands},
	{0x0DC, "cmps", TwoOperands},
	{0x111, "shl", TwoOperands},
	{0x112, "shr", TwoOperands},
	{0x113, "sar", TwoOperands},
	{0x114, "rol", TwoOperands},
	{0x115, "ror", TwoOperands},
	{0x1A0, "rdbyte", TwoOperands},
	{0x1A1, "rdword", TwoOperands},
	{0x1A2, "rdlong", TwoOperands},
	{0x1A3, "wrbyte", TwoOperands},
	{0x1A4, "wrword", TwoOperands},
	{0x1A5, "wrlong", TwoOperands},
	{0x1D6, "jmp", SrcOperandOnly},
	{0x1D7, "call", CallOperand},
	{0x1D8, "ret", NoOperands},
	{0x1D9, "calla", CallOperand},
	{0x1DA, "reta", NoOperands},
	{0x1DB, "callb", CallOperand},
	{0x1DC, "retb", NoOperands},
	{0x1F0, "djnz", JmpRetOperands},
	{0x1F1, "tjz", JmpRetOperands},
	{0x1F2, "tjnz", JmpRetOperands},
	{0x1B0, "coginit", TwoOperands},
	{0x1B1, "cogstop", DstOperandOnly},
	{0x1E0, "waitx", DstOperandOnly},
	{0x000, "nop", NoOperands},
}

var instrByName = buildInstrIndex()

func buildInstrIndex() map[string]Instruction {
	idx := make(map[string]Instruction, len(instrTable))
	for _, in := range instrTable {
		idx[in.Name] = in
	}
	return idx
}

// Lookup finds a named PASM instruction, case-sensitively (mnemonics are
// always emitted/parsed lowercase in this tree).
func Lookup(name string) (Instruction, bool) {
	in, ok := instrByName[name]
	return in, ok
}

// InstrModifier recognises a condition/effect suffix on an instruction line
// (wz, wc, wr, nr, if_z, if_nz, if_c, if_nc, #).
type InstrModifier struct {
	Name string
}

var knownModifiers = map[string]bool{
	"wz": true, "wc": true, "wr": true, "nr": true,
	"if_z": true, "if_nz": true, "if_c": true, "if_nc": true,
	"if_z_and_c": true, "if_z_or_c": true, "if_always": true, "if_never": true,
	"#": true,
}

// LookupModifier reports whether name is a recognised instruction modifier.
func LookupModifier(name string) (InstrModifier, bool) {
	if knownModifiers[name] {
		return InstrModifier{Name: name}, true
	}
	return InstrModifier{}, false
}

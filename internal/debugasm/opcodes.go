// Package debugasm compiles Spin DEBUG(...) call sites into the P2 BRK
// debugger's per-site byte streams and the combined debug data table that
// gets appended to a compiled binary.
package debugasm

import "strings"

// Simple opcodes: a bare byte with no flags, matching the original's
// DebugBytecode enum.
const (
	dbcDone    = 0
	dbcAsmMode = 1
	dbcIf      = 2
	dbcIfNot   = 3
	dbcCogN    = 4
	dbcChar    = 5
	dbcString  = 6
	dbcDelay   = 7
)

// Flag and field bits composed into a tag function's opcode byte.
const (
	flagNoComma = 0x01
	flagNoExpr  = 0x02
	flagArray   = 0x10
	flagSigned  = 0x20

	sizeByte = 0x04
	sizeWord = 0x08
	sizeLong = 0x0C

	typeStr = 0x20 // overlaps flagSigned, as in the original
	typeDec = 0x40
	typeHex = 0x80
	typeBin = 0xC0
)

// debugFunc names one tag recognised inside a DEBUG(...) call.
type debugFunc struct {
	name   string
	opcode byte
}

// funcTable mirrors the original's debug_func_table verbatim: flow
// keywords, then zstr/lstr, then the udec/sdec/uhex/shex/ubin/sbin families
// each crossed with {none,byte,word,long} x {scalar,array}.
var funcTable = buildFuncTable()

func buildFuncTable() []debugFunc {
	table := []debugFunc{
		{"if", dbcIf},
		{"ifnot", dbcIfNot},
		{"dly", dbcDelay},
		{"zstr", typeStr},
		{"lstr", typeStr | flagArray},
	}
	type family struct {
		prefix string
		typ    byte
		signed bool
	}
	families := []family{
		{"udec", typeDec, false},
		{"sdec", typeDec, true},
		{"uhex", typeHex, false},
		{"shex", typeHex, true},
		{"ubin", typeBin, false},
		{"sbin", typeBin, true},
	}
	sizes := []struct {
		suffix string
		bits   byte
	}{
		{"", 0},
		{"_byte", sizeByte},
		{"_word", sizeWord},
		{"_long", sizeLong},
	}
	for _, fam := range families {
		for _, sz := range sizes {
			opcode := fam.typ | sz.bits
			if fam.signed {
				opcode |= flagSigned
			}
			table = append(table, debugFunc{fam.prefix + sz.suffix, opcode})
			arrName := fam.prefix
			if sz.suffix == "" {
				arrName += "_reg_array"
			} else {
				arrName += sz.suffix + "_array"
			}
			table = append(table, debugFunc{arrName, opcode | flagArray})
		}
	}
	return table
}

// lookupFunc finds the tag whose name matches ident case-insensitively,
// after stripping a single trailing underscore (the "suppress the
// expression-source string" marker). Reports whether a trailing underscore
// was present.
func lookupFunc(ident string) (fn debugFunc, noExpr bool, ok bool) {
	name := ident
	if strings.HasSuffix(name, "_") {
		name = name[:len(name)-1]
		noExpr = true
	}
	for _, f := range funcTable {
		if strings.EqualFold(f.name, name) {
			return f, noExpr, true
		}
	}
	return debugFunc{}, false, false
}

// isSimple reports whether opcode is one of the no-flags flow codes
// (if/ifnot/dly), which may not take the "_" no-expression suppression.
func isSimple(opcode byte) bool { return opcode&0xE0 == 0 }

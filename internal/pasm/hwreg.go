package pasm

// HwReg describes one special-purpose COG register, the payload an
// ast.HWREG node's Ptr field carries. Address satisfies the duck-typed
// interface{ Address() int32 } internal/eval's PASM-mode HWREG evaluation
// and internal/nuir/internal/debugasm's argument resolution expect.
type HwReg struct {
	Addr int32
	Name string
}

// Address returns the register's fixed COG address.
func (h HwReg) Address() int32 { return h.Addr }

// hwRegTable lists the P2 special registers addressable from Spin as bare
// identifiers (INA, OUTA, DIRA, ...) at their fixed COG addresses.
var hwRegTable = []HwReg{
	{0x1F0, "IJMP3"}, {0x1F1, "IRET3"}, {0x1F2, "IJMP2"}, {0x1F3, "IRET2"},
	{0x1F4, "IJMP1"}, {0x1F5, "IRET1"}, {0x1F6, "PA"}, {0x1F7, "PB"},
	{0x1F8, "PTRA"}, {0x1F9, "PTRB"}, {0x1FA, "DIRA"}, {0x1FB, "DIRB"},
	{0x1FC, "OUTA"}, {0x1FD, "OUTB"}, {0x1FE, "INA"}, {0x1FF, "INB"},
}

var hwRegByName = buildHwRegIndex()

func buildHwRegIndex() map[string]HwReg {
	idx := make(map[string]HwReg, len(hwRegTable))
	for _, r := range hwRegTable {
		idx[r.Name] = r
	}
	return idx
}

// LookupHwReg finds a named hardware register, case-insensitively (Spin
// identifiers for these registers are conventionally all-caps but the
// language itself is case-insensitive).
func LookupHwReg(name string) (HwReg, bool) {
	r, ok := hwRegByName[upper(name)]
	return r, ok
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

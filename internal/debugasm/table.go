package debugasm

import (
	"bytes"
	"fmt"
)

// Params are the parser-visible constants that patch the debugger
// prologue, per spec.md §6: clock frequency/mode from CON declarations,
// DEBUG_DELAY in milliseconds, and the DEBUG_COGS enable mask.
type Params struct {
	ClkFreq    uint32
	ClkMode    uint32
	DebugDelay uint32 // milliseconds
	DebugCogs  uint8
	AppSize    uint32
}

// Fixed byte offsets the original patches directly into the assembled
// sys_p2_brkdebug.spin prologue blob (PNut's own hardcoded layout).
const (
	offClkModeRCFast = 0xA0
	offClkMode       = 0xA4
	offDebugDelay    = 0xA8
	offAppSize       = 0xAC
	offDebugCogs     = 0xB0

	// sizeCap is the highest hub address the debug data, loaded at
	// tableBase, may reach.
	sizeCap = 0xFEC00
	tableBase = 0xFC000
)

// patchLong writes val little-endian at byte offset off in buf, extending
// buf with zero bytes first if it is shorter than off+4 — the prologue
// passed in is expected to already be that long, but this keeps CompileTable
// total against a short/placeholder prologue supplied by a caller that
// hasn't wired the real assembled blob yet.
func patchLong(buf []byte, off int, val uint32) []byte {
	for len(buf) < off+4 {
		buf = append(buf, 0)
	}
	buf[off+0] = byte(val)
	buf[off+1] = byte(val >> 8)
	buf[off+2] = byte(val >> 16)
	buf[off+3] = byte(val >> 24)
	return buf
}

// CompileTable assembles the final debug data blob: the prologue (patched
// with the clock/delay/cogs parameters at their fixed offsets), the table's
// own length as a little-endian uint16, a little-endian offset table (one
// uint16 per site, relative to the table's own start), and the concatenated
// per-site byte streams compiled by Compiler.CodeGen.
//
// prologue is the assembled sys_p2_brkdebug.spin DAT block (internal/pasm's
// job to produce); this package only knows where to patch it, not how to
// assemble PASM, matching the original's split between "the debugger is a
// normal Spin module, parsed and assembled once" and "this file patches five
// known offsets afterward".
func CompileTable(prologue []byte, sites [][]byte, params Params) ([]byte, error) {
	millisecond := params.ClkFreq/1000 - 6

	buf := make([]byte, len(prologue))
	copy(buf, prologue)
	buf = patchLong(buf, offClkModeRCFast, params.ClkMode&^3)
	buf = patchLong(buf, offClkMode, params.ClkMode)
	buf = patchLong(buf, offDebugDelay, params.DebugDelay*millisecond)
	buf = patchLong(buf, offAppSize, params.AppSize)
	buf = patchLong(buf, offDebugCogs, uint32(params.DebugCogs)|0x20030000)

	var table bytes.Buffer
	pos := len(sites) * 2
	for _, site := range sites {
		table.WriteByte(byte(pos))
		table.WriteByte(byte(pos >> 8))
		pos += len(site)
	}
	for _, site := range sites {
		table.Write(site)
	}

	if tableBase+table.Len() > sizeCap {
		return nil, fmt.Errorf("debugasm: debug data too big (%d bytes over cap)", tableBase+table.Len()-sizeCap)
	}

	out := bytes.Buffer{}
	out.Write(buf)
	dataLen := table.Len()
	out.WriteByte(byte(dataLen))
	out.WriteByte(byte(dataLen >> 8))
	out.Write(table.Bytes())
	return out.Bytes(), nil
}

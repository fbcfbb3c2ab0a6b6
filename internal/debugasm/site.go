package debugasm

import (
	"bytes"

	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/diag"
	"github.com/totalspectrum/spinc/internal/eval"
	"github.com/totalspectrum/spinc/internal/symbol"
)

// MaxBrk bounds the number of DEBUG call sites one compilation may assign a
// brkCode to (the original's MAX_BRK).
const MaxBrk = 256

// Compiler assigns monotonically increasing brkCodes to DEBUG call sites
// and accumulates each site's encoded byte stream, ready to be stitched
// into a combined table by CompileTable.
type Compiler struct {
	sites [][]byte
}

// NewCompiler starts an empty debug-site compiler.
func NewCompiler() *Compiler { return &Compiler{} }

func errorf(bag *diag.Bag, line int, format string, args ...interface{}) {
	if bag != nil {
		bag.Errorf(line, format, args...)
	}
}

// Sites returns every site compiled so far, brkCode-indexed.
func (c *Compiler) Sites() [][]byte { return c.sites }

// CodeGen compiles one DEBUG(...) call site (an ast.BRKDEBUG node whose
// Extra holds the comma-separated items) and returns its assigned brkCode.
// ctx resolves identifiers appearing as call arguments against the
// enclosing function's scope.
func (c *Compiler) CodeGen(node *ast.Node, ctx *eval.Context, bag *diag.Bag) int {
	if len(c.sites) >= MaxBrk {
		errorf(bag, node.Line, "MAX_BRK exceeded")
		return -1
	}
	brkCode := len(c.sites)
	c.sites = append(c.sites, nil) // reserve the slot; filled below

	var buf bytes.Buffer
	buf.WriteByte(dbcAsmMode)
	buf.WriteByte(dbcCogN)

	needComma := false
	for _, item := range node.Extra {
		switch item.Kind {
		case ast.STRINGLIT:
			buf.WriteByte(dbcString)
			buf.WriteString(item.Str)
			buf.WriteByte(0)
			needComma = false
		case ast.INTLIT:
			buf.WriteByte(dbcChar)
			emitAsmConstant(&buf, item.IVal)
		case ast.FUNCCALL:
			c.genFuncall(&buf, item, ctx, bag, &needComma)
		default:
			errorf(bag, item.Line, "unhandled DEBUG item kind %s", item.Kind)
		}
	}
	buf.WriteByte(dbcDone)

	c.sites[brkCode] = buf.Bytes()
	return brkCode
}

func (c *Compiler) genFuncall(buf *bytes.Buffer, item *ast.Node, ctx *eval.Context, bag *diag.Bag, needComma *bool) {
	if item.Left == nil || item.Left.Kind != ast.IDENT {
		errorf(bag, item.Line, "DEBUG call must name a tag function")
		return
	}
	name := item.Left.Str
	fn, noExpr, ok := lookupFunc(name)
	if !ok {
		errorf(bag, item.Line, "unknown debug function %s", name)
		return
	}
	opcode := fn.opcode
	simple := isSimple(opcode)

	if simple && noExpr {
		errorf(bag, item.Line, "cannot use trailing _ on simple debug function %s", name)
	}
	if !simple && !*needComma {
		opcode |= flagNoComma
	}
	if !simple && noExpr {
		opcode |= flagNoExpr
	}
	buf.WriteByte(opcode)
	if !simple && !noExpr {
		// The original embeds the original source-expression text here; this
		// tree retains no per-argument source snippet, so an empty marker
		// string is emitted in its place (same NUL-terminated shape,
		// effectively behaving as if every call used the "_" suppression).
		buf.WriteByte(0)
	}

	expected := 1
	if fn.opcode&flagArray != 0 {
		expected = 2
	}
	got := 0
	for _, arg := range item.Extra {
		got++
		emitDebugArg(buf, arg, ctx, bag)
	}
	if got != expected {
		errorf(bag, item.Line, "%s expects %d args, got %d", name, expected, got)
	}
	*needComma = true
}

// emitDebugArg encodes one tag-function argument. A compile-time integer
// literal is an immediate; anything resolving to an addressable symbol
// (a local/parameter/result slot, a DAT variable, or a hardware register)
// is a register reference. Any other expression is folded to a constant as
// a fallback.
func emitDebugArg(buf *bytes.Buffer, arg *ast.Node, ctx *eval.Context, bag *diag.Bag) {
	if arg.Kind == ast.INTLIT {
		emitAsmConstant(buf, arg.IVal)
		return
	}
	if addr, ok := debugArgAddress(arg, ctx); ok {
		emitAsmRegref(buf, addr, arg.Line, bag)
		return
	}
	if v, ok := eval.EvalExpr(ctx, arg, nil); ok {
		emitAsmConstant(buf, int64(v.Val))
		return
	}
	errorf(bag, arg.Line, "cannot resolve debug argument to a register or constant")
}

func debugArgAddress(arg *ast.Node, ctx *eval.Context) (int32, bool) {
	target := arg
	if arg.Kind == ast.ADDROF && arg.Left != nil {
		target = arg.Left
	}
	switch target.Kind {
	case ast.IDENT:
		sym, _, ok := ctx.Table.Resolve(ctx.Scope, target.Str)
		if !ok {
			return 0, false
		}
		return symbolAddress(sym), true
	case ast.HWREG:
		if hw, ok := target.Ptr.(interface{ Address() int32 }); ok {
			return hw.Address(), true
		}
	}
	return 0, false
}

func symbolAddress(sym symbol.Symbol) int32 {
	if sym.Kind == symbol.Variable || sym.Kind == symbol.Label {
		return sym.Asmval
	}
	return sym.Offset
}

// emitAsmConstant writes a PASM-expression constant in the original's
// compact-or-long form: two big-endian bytes for values under 0x4000,
// otherwise a marker byte plus a little-endian long.
func emitAsmConstant(buf *bytes.Buffer, val int64) {
	v := uint32(val)
	if v < 0x4000 {
		buf.WriteByte(byte(v >> 8))
		buf.WriteByte(byte(v))
		return
	}
	buf.WriteByte(0b01000000)
	buf.WriteByte(byte(v))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 24))
}

// emitAsmRegref writes a 10-bit cog-register reference, high bits 10.
func emitAsmRegref(buf *bytes.Buffer, reg int32, line int, bag *diag.Bag) {
	if reg < 0 || reg >= 1024 {
		errorf(bag, line, "debug register reference out of range")
		return
	}
	buf.WriteByte(byte(0x80 | (reg >> 8)))
	buf.WriteByte(byte(reg))
}

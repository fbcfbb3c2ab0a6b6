package nuir

import (
	"fmt"

	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/diag"
	"github.com/totalspectrum/spinc/internal/eval"
	"github.com/totalspectrum/spinc/internal/lower"
	"github.com/totalspectrum/spinc/internal/module"
	"github.com/totalspectrum/spinc/internal/nucode"
	"github.com/totalspectrum/spinc/internal/symbol"
)

// hwLabel is the sentinel Label a load/store instruction carries when its
// Val is a hardware register's fixed COG address rather than a frame offset
// (Label == "") or a module-level DAT symbol name (Label == that name).
const hwLabel = "$hw"

// loopCtx is the enclosing loop's continue/break targets, consulted by
// NEXTSTMT/QUITSTMT.
type loopCtx struct {
	continueLabel string
	breakLabel    string
}

// Gen walks a single Function's body (already processed by internal/lower
// and internal/typeinfer) and emits its Nu IR into a fresh List. ctx must
// resolve identifiers against fn's own scope (see eval.NewContext).
func Gen(ctx *eval.Context, fn *module.Function, bag *diag.Bag) *List {
	g := &genState{ctx: ctx, fn: fn, bag: bag, b: NewBuilder(fn.Name)}
	g.b.Emit(nucode.ENTER, int64(fn.NumLocals))
	g.genStmt(fn.Body)
	g.b.Emit(nucode.RET, 0)
	return g.b.List()
}

type genState struct {
	ctx   *eval.Context
	fn    *module.Function
	bag   *diag.Bag
	b     *Builder
	loops []loopCtx
}

func (g *genState) errorf(line int, format string, args ...interface{}) {
	if g.bag != nil {
		g.bag.Errorf(line, format, args...)
	}
}

// genStmt emits code for a statement node; it leaves the operand stack
// exactly as it found it.
func (g *genState) genStmt(node *ast.Node) {
	if node == nil {
		return
	}
	switch node.Kind {
	case ast.BLOCK:
		for _, stmt := range node.Extra {
			g.genStmt(stmt)
		}

	case ast.EXPRSTMT:
		g.genExpr(node.Left)
		g.b.Emit(nucode.DROP, 0)

	case ast.ASSIGN:
		g.genAssign(node)

	case ast.IFSTMT:
		g.genIf(node)

	case ast.CASESTMT:
		g.genCase(node)

	case ast.FORSTMT:
		g.genFor(node)

	case ast.RETURNSTMT:
		if node.Left != nil {
			g.genExpr(node.Left)
		} else {
			g.b.Emit(nucode.PUSHI, 0)
		}
		g.b.Emit(nucode.RET, 0)

	case ast.ABORTSTMT:
		if node.Left != nil {
			g.genExpr(node.Left)
		} else {
			g.b.Emit(nucode.PUSHI, 0)
		}
		g.b.EmitComment(nucode.RET, 0, "abort")

	case ast.QUITSTMT:
		if len(g.loops) == 0 {
			g.errorf(node.Line, "QUIT outside a loop")
			return
		}
		g.b.EmitLabelled(nucode.JMP, g.loops[len(g.loops)-1].breakLabel)

	case ast.NEXTSTMT:
		if len(g.loops) == 0 {
			g.errorf(node.Line, "NEXT outside a loop")
			return
		}
		g.b.EmitLabelled(nucode.JMP, g.loops[len(g.loops)-1].continueLabel)

	case ast.SEQ:
		// A SEQ used as a statement (rather than nested inside an
		// expression via lower.PostEffect) just runs both halves in order.
		g.genStmt(node.Left)
		g.genStmt(node.Right)

	case ast.REPEATCOUNT:
		g.errorf(node.Line, "REPEATCOUNT reached code generation unlowered (run lower.RepeatCount first)")

	default:
		// Anything else in statement position is an expression evaluated
		// for its side effects only (e.g. a bare FUNCCALL statement that
		// parseSimpleStatement didn't wrap in EXPRSTMT).
		g.genExpr(node)
		g.b.Emit(nucode.DROP, 0)
	}
}

func (g *genState) genIf(node *ast.Node) {
	g.genExpr(node.Left)
	elseLabel := g.b.NewLabelName("_else_")
	g.b.EmitLabelled(nucode.BRZ, elseLabel)
	g.genStmt(node.Right)

	if len(node.Extra) == 0 {
		g.b.PlaceLabel(elseLabel)
		return
	}
	endLabel := g.b.NewLabelName("_endif_")
	g.b.EmitLabelled(nucode.JMP, endLabel)
	g.b.PlaceLabel(elseLabel)
	g.genStmt(node.Extra[0])
	g.b.PlaceLabel(endLabel)
}

func (g *genState) genCase(node *ast.Node) {
	scrutinee := lower.CaseScrutinee(node)
	endLabel := g.b.NewLabelName("_endcase_")

	var other *ast.Node
	for _, item := range node.Extra {
		if item.Left == nil {
			other = item
			continue
		}
		var test *ast.Node
		if item.Left.Kind == ast.RANGE {
			test = &ast.Node{Kind: ast.ISBETWEEN, Line: item.Line, Left: scrutinee, Right: item.Left}
		} else {
			test = &ast.Node{Kind: ast.EQ, Line: item.Line, Left: scrutinee, Right: item.Left}
		}
		g.genExpr(test)
		nextLabel := g.b.NewLabelName("_case_")
		g.b.EmitLabelled(nucode.BRZ, nextLabel)
		g.genStmt(item.Right)
		g.b.EmitLabelled(nucode.JMP, endLabel)
		g.b.PlaceLabel(nextLabel)
	}
	if other != nil {
		g.genStmt(other.Right)
	}
	g.b.PlaceLabel(endLabel)
}

func (g *genState) genFor(node *ast.Node) {
	g.genStmt(node.Left) // init block

	startLabel := g.b.Label("_forstart_")
	g.genExpr(node.Right) // condition
	endLabel := g.b.NewLabelName("_forend_")
	g.b.EmitLabelled(nucode.BRZ, endLabel)

	stepLabel := g.b.NewLabelName("_forstep_")
	g.loops = append(g.loops, loopCtx{continueLabel: stepLabel, breakLabel: endLabel})
	g.genStmt(node.Extra[1]) // body
	g.loops = g.loops[:len(g.loops)-1]

	g.b.PlaceLabel(stepLabel)
	g.genStmt(node.Extra[0]) // step
	g.b.EmitLabelled(nucode.JMP, startLabel)
	g.b.PlaceLabel(endLabel)
}

func (g *genState) genAssign(node *ast.Node) {
	g.genExpr(node.Right)
	g.genStore(node.Left)
}

// genStore emits the store half of an assignment to target, consuming the
// value already sitting on top of the stack.
func (g *genState) genStore(target *ast.Node) {
	switch target.Kind {
	case ast.IDENT:
		sym, _, ok := g.fn.LocalSyms.Resolve(g.fn.LocalRoot, target.Str)
		if !ok {
			g.errorf(target.Line, "unknown identifier %s", target.Str)
			g.b.Emit(nucode.DROP, 0)
			return
		}
		g.storeSymbol(target.Line, sym, target.Str)

	case ast.HWREG:
		addr, ok := hwregAddress(target)
		if !ok {
			g.errorf(target.Line, "bad hardware register reference")
			g.b.Emit(nucode.DROP, 0)
			return
		}
		ins := g.b.Emit(nucode.STOREL, int64(addr))
		ins.Label = hwLabel

	case ast.RANGEASSIGN, ast.RANGEREF, ast.POSTCLEAR, ast.POSTSET:
		g.errorf(target.Line, "%s store reached code generation unlowered", target.Kind)
		g.b.Emit(nucode.DROP, 0)

	default:
		panic(fmt.Sprintf("nuir: unsupported assignment target %s", target.Kind))
	}
}

func (g *genState) storeSymbol(line int, sym symbol.Symbol, name string) {
	switch sym.Kind {
	case symbol.Parameter, symbol.LocalVar, symbol.Result, symbol.TempVar:
		g.b.Emit(nucode.STOREL, int64(sym.Offset))
	case symbol.Variable, symbol.Object:
		g.b.EmitLabelled(nucode.STOREL, name)
	default:
		g.errorf(line, "%s is not assignable", name)
		g.b.Emit(nucode.DROP, 0)
	}
}

// genExpr emits code that pushes the value of expr onto the top of the
// stack.
func (g *genState) genExpr(expr *ast.Node) {
	if expr == nil {
		g.b.Emit(nucode.PUSHI, 0)
		return
	}

	switch expr.Kind {
	case ast.INTLIT, ast.FLOATLIT:
		g.b.Emit(nucode.PUSHI, expr.IVal)

	case ast.STRINGLIT:
		if len(expr.Str) == 0 {
			g.b.Emit(nucode.PUSHI, 0)
		} else {
			g.b.Emit(nucode.PUSHI, int64(expr.Str[0]))
		}

	case ast.IDENT:
		g.genLoadIdent(expr)

	case ast.CONSTREF:
		g.genFoldedConst(expr)

	case ast.HWREG:
		addr, ok := hwregAddress(expr)
		if !ok {
			g.errorf(expr.Line, "bad hardware register reference")
			g.b.Emit(nucode.PUSHI, 0)
			return
		}
		ins := g.b.Emit(nucode.LOADL, int64(addr))
		ins.Label = hwLabel

	case ast.ADDROF:
		g.genAddrOf(expr)
	case ast.ABSADDROF:
		g.genAbsAddrOf(expr)

	case ast.ISBETWEEN:
		g.genExpr(expr.Left)
		g.b.Emit(nucode.DUP, 0)
		g.genExpr(expr.Right.Left)
		g.b.Emit(nucode.CMPGE, 0)
		falseLabel := g.b.NewLabelName("_notbetween_")
		endLabel := g.b.NewLabelName("_between_")
		g.b.EmitLabelled(nucode.BRZ, falseLabel)
		g.genExpr(expr.Right.Right)
		g.b.Emit(nucode.CMPLE, 0)
		g.b.EmitLabelled(nucode.JMP, endLabel)
		g.b.PlaceLabel(falseLabel)
		g.b.Emit(nucode.DROP, 0)
		g.b.Emit(nucode.PUSHI, 0)
		g.b.PlaceLabel(endLabel)

	case ast.LOGAND:
		g.genExpr(expr.Left)
		g.b.Emit(nucode.DUP, 0)
		skip := g.b.NewLabelName("_andskip_")
		g.b.EmitLabelled(nucode.BRZ, skip)
		g.b.Emit(nucode.DROP, 0)
		g.genExpr(expr.Right)
		g.b.PlaceLabel(skip)

	case ast.LOGOR:
		g.genExpr(expr.Left)
		g.b.Emit(nucode.DUP, 0)
		skip := g.b.NewLabelName("_orskip_")
		g.b.EmitLabelled(nucode.BRNZ, skip)
		g.b.Emit(nucode.DROP, 0)
		g.genExpr(expr.Right)
		g.b.PlaceLabel(skip)

	case ast.LOGNOT:
		g.genExpr(expr.Left)
		g.b.Emit(nucode.PUSHI, 0)
		g.b.Emit(nucode.CMPEQ, 0)

	case ast.NEG, ast.BITNOT, ast.ABS, ast.SQRTOP, ast.ENCODEOP, ast.DECODEOP:
		g.genExpr(expr.Left)
		g.b.Emit(unaryOp(expr.Kind), 0)

	case ast.FUNCCALL:
		g.genCall(expr)

	case ast.COGINIT:
		g.genCoginit(expr)

	case ast.LOOKUPEXPR, ast.LOOKUPZEXPR:
		g.genLookup(expr)

	case ast.SEQ:
		g.genStmt(expr.Left)
		g.genExpr(expr.Right)

	case ast.RANGEREF, ast.RANGEASSIGN, ast.POSTCLEAR, ast.POSTSET, ast.LONGMOVECALL:
		g.errorf(expr.Line, "%s reached code generation unlowered", expr.Kind)
		g.b.Emit(nucode.PUSHI, 0)

	default:
		if op, ok := binaryOp(expr.Kind); ok {
			g.genExpr(expr.Left)
			g.genExpr(expr.Right)
			g.b.Emit(op, 0)
			return
		}
		panic(fmt.Sprintf("nuir: unhandled expression kind %s", expr.Kind))
	}
}

func (g *genState) genLoadIdent(expr *ast.Node) {
	sym, _, ok := g.fn.LocalSyms.Resolve(g.fn.LocalRoot, expr.Str)
	if !ok {
		g.errorf(expr.Line, "unknown identifier %s", expr.Str)
		g.b.Emit(nucode.PUSHI, 0)
		return
	}
	switch sym.Kind {
	case symbol.Parameter, symbol.LocalVar, symbol.Result, symbol.TempVar:
		g.b.Emit(nucode.LOADL, int64(sym.Offset))
	case symbol.Variable, symbol.Object:
		g.b.EmitLabelled(nucode.LOADL, expr.Str)
	case symbol.Constant, symbol.FloatConstant:
		v, ok := eval.EvalExpr(g.ctx, sym.Value, g.bag)
		if !ok {
			g.b.Emit(nucode.PUSHI, 0)
			return
		}
		g.b.Emit(nucode.PUSHI, int64(v.Val))
	case symbol.Label:
		g.b.EmitLabelled(nucode.PUSHA, expr.Str)
	default:
		g.errorf(expr.Line, "%s cannot be used as a value", expr.Str)
		g.b.Emit(nucode.PUSHI, 0)
	}
}

func (g *genState) genFoldedConst(expr *ast.Node) {
	v, ok := eval.EvalExpr(g.ctx, expr, g.bag)
	if !ok {
		g.b.Emit(nucode.PUSHI, 0)
		return
	}
	g.b.Emit(nucode.PUSHI, int64(v.Val))
}

func (g *genState) genAddrOf(expr *ast.Node) {
	id := expr.Left
	if id == nil || id.Kind != ast.IDENT {
		g.errorf(expr.Line, "@ requires an identifier")
		g.b.Emit(nucode.PUSHI, 0)
		return
	}
	sym, _, ok := g.fn.LocalSyms.Resolve(g.fn.LocalRoot, id.Str)
	if !ok {
		g.errorf(expr.Line, "unknown identifier %s", id.Str)
		g.b.Emit(nucode.PUSHI, 0)
		return
	}
	switch sym.Kind {
	case symbol.Variable, symbol.Object, symbol.Label:
		g.b.EmitLabelled(nucode.PUSHA, id.Str)
	default:
		// Frame-resident locals/parameters have a compile-time-known
		// offset from the frame pointer, but no fixed absolute address —
		// their @ is only meaningful to the interpreter's own ENTER/RET
		// convention, which already addresses them by offset.
		g.b.Emit(nucode.PUSHI, int64(sym.Offset))
	}
}

func (g *genState) genAbsAddrOf(expr *ast.Node) {
	id := expr.Left
	if id == nil || id.Kind != ast.IDENT {
		g.errorf(expr.Line, "@@@ requires an identifier")
		g.b.Emit(nucode.PUSHI, 0)
		return
	}
	g.b.EmitLabelled(nucode.PUSHA, id.Str)
}

func (g *genState) genCall(expr *ast.Node) {
	if expr.Left == nil || expr.Left.Kind != ast.IDENT {
		g.errorf(expr.Line, "indirect calls are not supported")
		g.b.Emit(nucode.PUSHI, 0)
		return
	}
	for _, arg := range expr.Extra {
		g.genExpr(arg)
	}
	g.b.EmitLabelled(nucode.CALL, expr.Left.Str)
}

func (g *genState) genCoginit(expr *ast.Node) {
	if len(expr.Extra) == 0 {
		g.errorf(expr.Line, "coginit requires a target")
		g.b.Emit(nucode.PUSHI, 0)
		return
	}
	target := expr.Extra[0]
	name := ""
	switch target.Kind {
	case ast.IDENT:
		name = target.Str
	case ast.FUNCCALL:
		if target.Left != nil && target.Left.Kind == ast.IDENT {
			name = target.Left.Str
			for _, arg := range target.Extra {
				g.genExpr(arg)
			}
		}
	}
	if name == "" {
		// A raw PASM entry point or cog-id-only form: emit as an opaque
		// inline-asm call, since it carries no Spin-level symbol to CALL.
		g.b.EmitComment(nucode.INLINEASM, 0, "coginit of non-Spin entry point")
		g.b.Emit(nucode.PUSHI, 0)
		return
	}
	g.b.EmitLabelled(nucode.GOSUB, name)
	g.b.Emit(nucode.PUSHI, 0)
}

func (g *genState) genLookup(expr *ast.Node) {
	table, ok := expr.Ptr.(*lower.ConstTable)
	if !ok {
		g.errorf(expr.Line, "LOOKUP/LOOKUPZ reached code generation without a folded ConstTable (run lower.Lookup first)")
		g.b.Emit(nucode.PUSHI, 0)
		return
	}
	if expr.Left != nil {
		g.genExpr(expr.Left)
	}
	if expr.Kind == ast.LOOKUPEXPR {
		// LOOKUP is 1-based; LOOKUPZ is 0-based.
		g.b.Emit(nucode.PUSHI, 1)
		g.b.Emit(nucode.SUB, 0)
	}
	g.b.Emit(nucode.PUSHI, 4)
	g.b.Emit(nucode.MUL, 0)
	g.b.EmitLabelled(nucode.PUSHA, table.Name)
	g.b.Emit(nucode.ADD, 0)
	g.b.Emit(nucode.LOADL, 0)
}

func unaryOp(kind ast.Kind) nucode.Op {
	switch kind {
	case ast.NEG:
		return nucode.NEG
	case ast.BITNOT:
		return nucode.NOT
	case ast.ABS:
		return nucode.ABS
	case ast.SQRTOP:
		return nucode.SQRT
	case ast.ENCODEOP:
		return nucode.ENCODE
	case ast.DECODEOP:
		return nucode.DECODE
	}
	panic(fmt.Sprintf("nuir: unaryOp called with non-unary kind %s", kind))
}

func binaryOp(kind ast.Kind) (nucode.Op, bool) {
	switch kind {
	case ast.ADD:
		return nucode.ADD, true
	case ast.SUB:
		return nucode.SUB, true
	case ast.MUL:
		return nucode.MUL, true
	case ast.DIV:
		return nucode.DIV, true
	case ast.MODULUS:
		return nucode.MOD, true
	case ast.BITAND:
		return nucode.AND, true
	case ast.BITOR:
		return nucode.OR, true
	case ast.BITXOR:
		return nucode.XOR, true
	case ast.SHL:
		return nucode.SHL, true
	case ast.SHR:
		return nucode.SHR, true
	case ast.SAR:
		return nucode.SAR, true
	case ast.ROTL:
		return nucode.ROTL, true
	case ast.ROTR:
		return nucode.ROTR, true
	case ast.HIGHMULT:
		return nucode.HIGHMUL, true
	case ast.REVOP:
		return nucode.REV, true
	case ast.LIMITMIN:
		return nucode.LIMITMIN, true
	case ast.LIMITMAX:
		return nucode.LIMITMAX, true
	case ast.LT:
		return nucode.CMPLT, true
	case ast.GT:
		return nucode.CMPGT, true
	case ast.LE:
		return nucode.CMPLE, true
	case ast.GE:
		return nucode.CMPGE, true
	case ast.EQ:
		return nucode.CMPEQ, true
	case ast.NOTEQ:
		return nucode.CMPNE, true
	}
	return 0, false
}

// hwregAddress extracts a hardware register's fixed COG address from a HWREG
// node's opaque payload, the same duck-typed interface internal/eval's
// PASM-mode HWREG case uses.
func hwregAddress(expr *ast.Node) (int32, bool) {
	hw, ok := expr.Ptr.(interface{ Address() int32 })
	if !ok {
		return 0, false
	}
	return hw.Address(), true
}

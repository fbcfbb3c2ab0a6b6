// Package eval implements the expression and type engine: constant folding
// over the integer and float domains, Propeller-specific operators, and
// symbol/label resolution across an explicit evaluation [Context].
//
// Every cursor the original evaluator kept as process-global state (the
// "current module" and "current function" pointers CONSTREF swaps across a
// nested evaluation) is instead carried on Context and passed explicitly,
// per the design note that these concurrency-unsafe globals should become
// an explicit context object.
package eval

import (
	"math"
	"math/bits"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/diag"
	"github.com/totalspectrum/spinc/internal/symbol"
)

// ExprVal is the result of folding an expression: a type tag (one of the
// TYPE* ast.Kind markers, or ast.IDENT for an as-yet-unresolved generic) and
// the raw 32-bit bit pattern of the value. Float values are reinterpreted
// from Val via math.Float32frombits.
type ExprVal struct {
	Type ast.Kind
	Val  int32
}

// IntVal builds an ExprVal of integer type.
func IntVal(v int32) ExprVal { return ExprVal{Type: ast.TYPEINT, Val: v} }

// FloatVal builds an ExprVal of float type from a float32.
func FloatVal(f float32) ExprVal {
	return ExprVal{Type: ast.TYPEFLOAT, Val: int32(math.Float32bits(f))}
}

// Float returns v reinterpreted as a float32 (valid only when v.Type is
// ast.TYPEFLOAT, but callers needing the bit-level reinterpretation of
// an int operand during mixed arithmetic also call this directly).
func (v ExprVal) Float() float32 { return math.Float32frombits(uint32(v.Val)) }

// IsFloat reports whether v carries float type.
func (v ExprVal) IsFloat() bool { return v.Type == ast.TYPEFLOAT }

// constRefKey identifies one memoized cross-module constant lookup.
type constRefKey struct {
	object string
	name   string
}

// ConstRefResolver looks up a cross-module constant reference (Spin's
// `OBJECT#CONST` syntax, represented as an ast.CONSTREF node whose Left is
// the object identifier and Str is the constant name). It returns the
// evaluation context to use for the referenced module (current module
// switched, current function cleared, exactly as the original's
// EvalExprInState does) and the constant's defining expression.
type ConstRefResolver func(object, name string) (target *Context, expr *ast.Node, ok bool)

// Context carries the cursors the expression engine needs: which scope to
// resolve identifiers against, whether label addresses should evaluate to
// their PASM word-address form, and how to chase a cross-module CONSTREF.
// Re-evaluating the same constant AST under an unchanged Context always
// yields the same (type, val) (spec.md invariant 1), so CONSTREF lookups —
// the one place evaluation walks into another module's scope chain — are
// memoized in a bounded LRU keyed by (object, name).
type Context struct {
	Table    *symbol.Table
	Scope    symbol.ScopeID
	PasmMode bool
	ConstRef ConstRefResolver

	cache *lru.Cache[constRefKey, ExprVal]
}

// NewContext builds a Context resolving identifiers against table starting
// at scope.
func NewContext(table *symbol.Table, scope symbol.ScopeID) *Context {
	cache, _ := lru.New[constRefKey, ExprVal](256)
	return &Context{Table: table, Scope: scope, cache: cache}
}

// WithPasmMode returns a shallow copy of ctx with PasmMode set, sharing the
// same CONSTREF memoization cache.
func (ctx *Context) WithPasmMode(on bool) *Context {
	cp := *ctx
	cp.PasmMode = on
	return &cp
}

// EvalExpr folds expr as far as possible. If bag is non-nil, an
// unresolvable sub-expression is reported there and EvalExpr returns
// ok=false; if bag is nil, EvalExpr returns ok=false at the point folding
// failed with no diagnostic raised — the caller decides whether that is
// itself an error.
func EvalExpr(ctx *Context, expr *ast.Node, bag *diag.Bag) (ExprVal, bool) {
	if expr == nil {
		return IntVal(0), true
	}

	switch expr.Kind {
	case ast.INTLIT:
		return IntVal(int32(expr.IVal)), true
	case ast.FLOATLIT:
		return ExprVal{Type: ast.TYPEFLOAT, Val: int32(expr.IVal)}, true
	case ast.STRINGLIT:
		if len(expr.Str) == 0 {
			return IntVal(0), true
		}
		return IntVal(int32(expr.Str[0])), true

	case ast.CONSTREF:
		return evalConstRef(ctx, expr, bag)

	case ast.IDENT:
		return evalIdent(ctx, expr, bag)

	case ast.HWREG:
		if ctx.PasmMode {
			if hw, ok := expr.Ptr.(interface{ Address() int32 }); ok {
				return IntVal(hw.Address()), true
			}
		}
		failf(bag, expr.Line, "used hardware register where a constant is expected")
		return IntVal(0), false

	case ast.ADDROF, ast.ABSADDROF:
		return evalAddrOf(ctx, expr, bag)

	case ast.ISBETWEEN:
		return evalIsBetween(ctx, expr, bag)

	case ast.NEG, ast.BITNOT, ast.LOGNOT, ast.ABS, ast.SQRTOP, ast.ENCODEOP, ast.DECODEOP:
		rval, ok := EvalExpr(ctx, expr.Left, bag)
		if !ok {
			return IntVal(0), false
		}
		return EvalUnary(expr.Kind, rval, bag, expr.Line), true

	case ast.LOGAND:
		lval, ok := EvalExpr(ctx, expr.Left, bag)
		if !ok {
			return IntVal(0), false
		}
		if !lval.IsFloat() && lval.Val == 0 {
			return lval, true
		}
		return EvalExpr(ctx, expr.Right, bag)

	case ast.LOGOR:
		lval, ok := EvalExpr(ctx, expr.Left, bag)
		if !ok {
			return IntVal(0), false
		}
		if !lval.IsFloat() && lval.Val != 0 {
			return lval, true
		}
		return EvalExpr(ctx, expr.Right, bag)

	default:
		if isBinaryKind(expr.Kind) {
			lval, ok := EvalExpr(ctx, expr.Left, bag)
			if !ok {
				return IntVal(0), false
			}
			rval, ok := EvalExpr(ctx, expr.Right, bag)
			if !ok {
				return IntVal(0), false
			}
			return EvalBinary(expr.Kind, lval, rval, bag, expr.Line), true
		}
	}

	failf(bag, expr.Line, "bad constant expression (%s)", expr.Kind)
	return IntVal(0), false
}

func isBinaryKind(k ast.Kind) bool {
	switch k {
	case ast.ADD, ast.SUB, ast.MUL, ast.DIV, ast.MODULUS,
		ast.BITAND, ast.BITOR, ast.BITXOR,
		ast.SHL, ast.SHR, ast.SAR, ast.ROTL, ast.ROTR, ast.REVOP, ast.HIGHMULT,
		ast.LT, ast.GT, ast.LE, ast.GE, ast.EQ, ast.NOTEQ,
		ast.LIMITMIN, ast.LIMITMAX:
		return true
	}
	return false
}

func evalIdent(ctx *Context, expr *ast.Node, bag *diag.Bag) (ExprVal, bool) {
	sym, _, ok := ctx.Table.Resolve(ctx.Scope, expr.Str)
	if !ok {
		failf(bag, expr.Line, "unknown identifier %s", expr.Str)
		return IntVal(0), false
	}
	switch sym.Kind {
	case symbol.Constant:
		return EvalExpr(ctx, sym.Value, bag)
	case symbol.FloatConstant:
		v, ok := EvalExpr(ctx, sym.Value, bag)
		if !ok {
			return IntVal(0), false
		}
		return ExprVal{Type: ast.TYPEFLOAT, Val: v.Val}, true
	case symbol.Label:
		if ctx.PasmMode {
			if sym.Asmval&0x03 != 0 {
				failf(bag, expr.Line, "label %s not on longword boundary", sym.Name)
				return IntVal(0), false
			}
			return IntVal(sym.Asmval >> 2), true
		}
		fallthrough
	default:
		failf(bag, expr.Line, "symbol %s is not constant", sym.Name)
		return IntVal(0), false
	}
}

func evalConstRef(ctx *Context, expr *ast.Node, bag *diag.Bag) (ExprVal, bool) {
	if ctx.ConstRef == nil {
		failf(bag, expr.Line, "object constant references are unavailable in this context")
		return IntVal(0), false
	}
	object := ""
	if expr.Left != nil {
		object = expr.Left.Str
	}
	key := constRefKey{object: object, name: expr.Str}
	if ctx.cache != nil {
		if v, ok := ctx.cache.Get(key); ok {
			return v, true
		}
	}
	target, constExpr, ok := ctx.ConstRef(object, expr.Str)
	if !ok {
		failf(bag, expr.Line, "unknown constant %s#%s", object, expr.Str)
		return IntVal(0), false
	}
	val, ok := EvalExpr(target, constExpr, bag)
	if ok && ctx.cache != nil {
		ctx.cache.Add(key, val)
	}
	return val, ok
}

func evalAddrOf(ctx *Context, expr *ast.Node, bag *diag.Bag) (ExprVal, bool) {
	id := expr.Left
	if id == nil || id.Kind != ast.IDENT {
		failf(bag, expr.Line, "only addresses of identifiers are allowed")
		return IntVal(0), false
	}
	sym, _, ok := ctx.Table.Resolve(ctx.Scope, id.Str)
	if !ok || sym.Kind != symbol.Label {
		failf(bag, expr.Line, "only addresses of labels are allowed")
		return IntVal(0), false
	}
	return IntVal(sym.Offset), true
}

func evalIsBetween(ctx *Context, expr *ast.Node, bag *diag.Bag) (ExprVal, bool) {
	if expr.Right == nil || expr.Right.Kind != ast.RANGE {
		failf(bag, expr.Line, "bad constant expression")
		return IntVal(0), false
	}
	aval, ok := EvalExpr(ctx, expr.Left, bag)
	if !ok {
		return IntVal(0), false
	}
	lo, ok := EvalExpr(ctx, expr.Right.Left, bag)
	if !ok {
		return IntVal(0), false
	}
	hi, ok := EvalExpr(ctx, expr.Right.Right, bag)
	if !ok {
		return IntVal(0), false
	}
	isge := EvalBinary(ast.LE, lo, aval, bag, expr.Line)
	isle := EvalBinary(ast.LE, aval, hi, bag, expr.Line)
	return IntVal(boolToSpin(isge.Val != 0 && isle.Val != 0)), true
}

func failf(bag *diag.Bag, line int, format string, args ...interface{}) {
	if bag != nil {
		bag.Errorf(line, format, args...)
	}
}

func boolToSpin(b bool) int32 {
	if b {
		return -1
	}
	return 0
}

// ReverseBits reverses the low n bits of a, leaving the rest zero — the
// Spin REV operator. A bit-swap network reverses all 32 bits, and the result
// is then shifted right by 32-n; n <= 0 returns 0 and n >= 32 returns the
// full 32-bit reversal.
func ReverseBits(a int32, n int32) int32 {
	x := uint32(a)
	x = (x&0xaaaaaaaa)>>1 | (x&0x55555555)<<1
	x = (x&0xcccccccc)>>2 | (x&0x33333333)<<2
	x = (x&0xf0f0f0f0)>>4 | (x&0x0f0f0f0f)<<4
	x = (x&0xff00ff00)>>8 | (x&0x00ff00ff)<<8
	x = x>>16 | x<<16
	if n <= 0 {
		return 0
	}
	if n >= 32 {
		return int32(x)
	}
	return int32(x >> (32 - uint(n)))
}

// EvalUnary applies a unary operator to rval.
func EvalUnary(kind ast.Kind, rval ExprVal, bag *diag.Bag, line int) ExprVal {
	if rval.IsFloat() && kind != ast.LOGNOT && kind != ast.BITNOT {
		f := rval.Float()
		switch kind {
		case ast.NEG:
			return FloatVal(-f)
		case ast.ABS:
			if f < 0 {
				return FloatVal(-f)
			}
			return FloatVal(f)
		case ast.SQRTOP:
			return FloatVal(float32(math.Sqrt(float64(f))))
		}
	}
	v := uint32(rval.Val)
	switch kind {
	case ast.NEG:
		return IntVal(-rval.Val)
	case ast.BITNOT:
		return IntVal(^rval.Val)
	case ast.LOGNOT:
		return IntVal(boolToSpin(rval.Val == 0))
	case ast.ABS:
		if rval.Val < 0 {
			return IntVal(-rval.Val)
		}
		return IntVal(rval.Val)
	case ast.SQRTOP:
		return IntVal(int32(math.Sqrt(float64(v))))
	case ast.DECODEOP:
		return IntVal(int32(uint32(1) << (uint(rval.Val) & 31)))
	case ast.ENCODEOP:
		if v == 0 {
			return IntVal(0)
		}
		return IntVal(int32(32 - bits.LeadingZeros32(v)))
	}
	failf(bag, line, "unknown unary operator %s", kind)
	return IntVal(0)
}

// EvalBinary applies a binary operator to (lval, rval), following the
// float-contagion rule: if either operand is float-typed, both reinterpret
// their bit patterns as float32 and the result is float-typed.
func EvalBinary(kind ast.Kind, lval, rval ExprVal, bag *diag.Bag, line int) ExprVal {
	if lval.IsFloat() || rval.IsFloat() {
		return evalFloatBinary(kind, lval.Float(), rval.Float(), bag, line)
	}
	return evalIntBinary(kind, lval.Val, rval.Val, bag, line)
}

func evalIntBinary(kind ast.Kind, l, r int32, bag *diag.Bag, line int) ExprVal {
	switch kind {
	case ast.ADD:
		return IntVal(l + r)
	case ast.SUB:
		return IntVal(l - r)
	case ast.MUL:
		return IntVal(l * r)
	case ast.DIV:
		if r == 0 {
			return IntVal(r)
		}
		return IntVal(l / r)
	case ast.MODULUS:
		if r == 0 {
			return IntVal(r)
		}
		return IntVal(l % r)
	case ast.BITOR:
		return IntVal(l | r)
	case ast.BITAND:
		return IntVal(l & r)
	case ast.BITXOR:
		return IntVal(l ^ r)
	case ast.HIGHMULT:
		return IntVal(int32((int64(l) * int64(r)) >> 32))
	case ast.SHL:
		return IntVal(l << (uint32(r) & 31))
	case ast.SHR:
		return IntVal(int32(uint32(l) >> (uint32(r) & 31)))
	case ast.SAR:
		return IntVal(l >> (uint32(r) & 31))
	case ast.ROTL:
		return IntVal(int32(bits.RotateLeft32(uint32(l), int(r))))
	case ast.ROTR:
		return IntVal(int32(bits.RotateLeft32(uint32(l), -int(r))))
	case ast.REVOP:
		return IntVal(ReverseBits(l, r))
	case ast.LIMITMIN:
		if l < r {
			return IntVal(r)
		}
		return IntVal(l)
	case ast.LIMITMAX:
		if l > r {
			return IntVal(r)
		}
		return IntVal(l)
	case ast.LT:
		return IntVal(boolToSpin(l < r))
	case ast.GT:
		return IntVal(boolToSpin(l > r))
	case ast.LE:
		return IntVal(boolToSpin(l <= r))
	case ast.GE:
		return IntVal(boolToSpin(l >= r))
	case ast.EQ:
		return IntVal(boolToSpin(l == r))
	case ast.NOTEQ:
		return IntVal(boolToSpin(l != r))
	}
	failf(bag, line, "unknown operator in constant expression %s", kind)
	return IntVal(0)
}

func evalFloatBinary(kind ast.Kind, l, r float32, bag *diag.Bag, line int) ExprVal {
	bitop := func(f func(a, b int32) int32) ExprVal {
		return ExprVal{Type: ast.TYPEFLOAT, Val: f(int32(math.Float32bits(l)), int32(math.Float32bits(r)))}
	}
	switch kind {
	case ast.ADD:
		return FloatVal(l + r)
	case ast.SUB:
		return FloatVal(l - r)
	case ast.MUL:
		return FloatVal(l * r)
	case ast.DIV:
		return FloatVal(l / r)
	case ast.BITOR:
		return bitop(func(a, b int32) int32 { return a | b })
	case ast.BITAND:
		return bitop(func(a, b int32) int32 { return a & b })
	case ast.BITXOR:
		return bitop(func(a, b int32) int32 { return a ^ b })
	case ast.HIGHMULT:
		return FloatVal(l * r / float32(int64(1)<<32))
	case ast.SHL:
		return bitop(func(a, b int32) int32 { return a << (uint32(b) & 31) })
	case ast.SHR:
		return bitop(func(a, b int32) int32 { return int32(uint32(a) >> (uint32(b) & 31)) })
	case ast.SAR:
		return bitop(func(a, b int32) int32 { return a >> (uint32(b) & 31) })
	case ast.LT:
		return IntVal(boolToSpin(l < r))
	case ast.GT:
		return IntVal(boolToSpin(l > r))
	case ast.LE:
		return IntVal(boolToSpin(l <= r))
	case ast.GE:
		return IntVal(boolToSpin(l >= r))
	case ast.EQ:
		return IntVal(boolToSpin(l == r))
	case ast.NOTEQ:
		return IntVal(boolToSpin(l != r))
	}
	failf(bag, line, "invalid floating point operator %s", kind)
	return FloatVal(0)
}

// IsConstExpr reports whether expr folds to a constant without raising any
// diagnostic — the original's EvalExpr(expr, 0, &valid) idiom.
func IsConstExpr(ctx *Context, expr *ast.Node) bool {
	_, ok := EvalExpr(ctx, expr, nil)
	return ok
}

// IsFloatConst reports whether expr is both constant and float-typed.
func IsFloatConst(ctx *Context, expr *ast.Node) bool {
	v, ok := EvalExpr(ctx, expr, nil)
	return ok && v.IsFloat()
}

// ConstInt evaluates expr as a constant integer, panicking-free: callers
// that already established IsConstExpr(ctx, expr) can rely on ok==true.
func ConstInt(ctx *Context, expr *ast.Node) (int32, bool) {
	v, ok := EvalExpr(ctx, expr, nil)
	return v.Val, ok
}

// FoldIfConst replaces expr with an INTLIT node carrying its folded value
// when expr is constant, otherwise returns expr unchanged.
func FoldIfConst(ctx *Context, expr *ast.Node) *ast.Node {
	v, ok := EvalExpr(ctx, expr, nil)
	if !ok {
		return expr
	}
	if v.IsFloat() {
		return &ast.Node{Kind: ast.FLOATLIT, Line: expr.Line, IVal: int64(v.Val)}
	}
	return ast.Int(expr.Line, int64(v.Val))
}

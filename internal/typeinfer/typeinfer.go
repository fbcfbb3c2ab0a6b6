// Package typeinfer runs the fixed-point analysis passes that fill in what
// the parser alone cannot know about a Function: its inferred return type,
// whether it can run without access to its object's instance data (static),
// whether it is ever called recursively, how many call sites reference it,
// and whether it is ever launched onto its own cog via COGINIT/COGNEW.
package typeinfer

import (
	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/module"
	"github.com/totalspectrum/spinc/internal/symbol"
)

// RegisterFunctions defines every function in mod as a Function symbol in
// mod's object scope, so identifier and call-site resolution elsewhere in
// this package (and in internal/lower) can find them by name. Must run
// before any other pass in this package.
func RegisterFunctions(mod *module.Module) {
	for _, fn := range mod.Functions {
		mod.ObjSyms.Define(mod.ObjRoot, symbol.Symbol{
			Name:    fn.Name,
			Kind:    symbol.Function,
			Payload: fn,
		})
	}
}

func lookupFunction(tbl *symbol.Table, scope symbol.ScopeID, name string) *module.Function {
	sym, _, ok := tbl.Resolve(scope, name)
	if !ok || sym.Kind != symbol.Function {
		return nil
	}
	fn, _ := sym.Payload.(*module.Function)
	return fn
}

// CheckForStatic clears fn.IsStatic the first time it finds a reference,
// anywhere in body, to a module-level Variable or Object symbol (that
// requires the object's own instance data, which a cog launched via
// COGINIT/COGNEW onto a bare stack does not have access to) — or to a
// function that is itself non-static. It is a no-op once fn.IsStatic is
// already false, matching the original's early-out.
func CheckForStatic(fn *module.Function, body *ast.Node) {
	if body == nil || !fn.IsStatic {
		return
	}
	if body.Kind == ast.IDENT {
		sym, _, ok := fn.LocalSyms.Resolve(fn.LocalRoot, body.Str)
		if !ok {
			// Undefined reference this early just means forward reference
			// to a not-yet-declared member; assume the worst.
			fn.IsStatic = false
			return
		}
		switch sym.Kind {
		case symbol.Variable, symbol.Object:
			fn.IsStatic = false
		case symbol.Function:
			if callee, ok := sym.Payload.(*module.Function); ok && callee != nil {
				fn.IsStatic = fn.IsStatic && callee.IsStatic
			} else {
				fn.IsStatic = false
			}
		}
		return
	}
	CheckForStatic(fn, body.Left)
	CheckForStatic(fn, body.Right)
	for _, e := range body.Extra {
		CheckForStatic(fn, e)
	}
}

// InferStatics runs one round of CheckForStatic over every function not yet
// known to be non-static, seeding fn.IsStatic = true on its first pass over
// a function, and returns how many functions are (still, or newly) marked
// static. Call it in a loop until it stops changing — a function can only
// flip from static to non-static as its callees are discovered to be
// non-static, never the other way, so the loop always terminates.
func InferStatics(mod *module.Module) int {
	count := 0
	for _, fn := range mod.Functions {
		if !fn.VisitFlag {
			fn.IsStatic = true
			fn.VisitFlag = true
		}
		CheckForStatic(fn, fn.Body)
		if fn.IsStatic {
			count++
		}
	}
	return count
}

// InferStaticsFixpoint runs InferStatics repeatedly until a pass changes no
// function's static count, then returns.
func InferStaticsFixpoint(mod *module.Module) {
	prev := -1
	for {
		cur := InferStatics(mod)
		if cur == prev {
			return
		}
		prev = cur
	}
}

// isResultVar reports whether lhs is the identifier bound to fn's result
// variable.
func isResultVar(fn *module.Function, lhs *ast.Node) bool {
	if lhs == nil || lhs.Kind != ast.IDENT || fn.ResultExpr == nil {
		return false
	}
	return fn.ResultExpr.Kind == ast.IDENT && fn.ResultExpr.Str == lhs.Str
}

// inferExprKind gives a rough static type for expr: TYPEFLOAT if it is (or
// trivially contains, through the usual arithmetic/selection operators) a
// float literal, TYPEINT otherwise. Spin has no declared expression types
// to consult, so this mirrors only what the original compiler's ExprType
// needs for SetFunctionType: enough to tell a function returning `1.5` from
// one returning `1`.
func inferExprKind(expr *ast.Node) ast.Kind {
	if expr == nil {
		return ast.TYPEINT
	}
	if expr.Kind == ast.FLOATLIT {
		return ast.TYPEFLOAT
	}
	if inferExprKind(expr.Left) == ast.TYPEFLOAT || inferExprKind(expr.Right) == ast.TYPEFLOAT {
		return ast.TYPEFLOAT
	}
	return ast.TYPEINT
}

// SetFunctionType records typ as fn's return type if fn does not already
// have a (more specific, earlier-seen) one.
func SetFunctionType(fn *module.Function, typ *ast.Node) {
	if fn.RetType == nil {
		fn.RetType = typ
	}
}

// CheckRetStatementList walks a BLOCK's statements (its Extra) looking for
// return statements, feeding each one's expression type into fn.RetType via
// CheckRetStatement. It reports whether every path through the list passes
// through an explicit return.
func CheckRetStatementList(fn *module.Function, block *ast.Node) bool {
	if block == nil {
		return false
	}
	sawReturn := false
	for _, stmt := range block.Extra {
		if CheckRetStatement(fn, stmt) {
			sawReturn = true
		}
	}
	return sawReturn
}

// CheckRetStatement inspects one statement for RETURN/ABORT expressions and
// implicit result assignments, threading fn.RetType inference through
// nested IF/CASE/REPEATCOUNT/FORSTMT bodies. It reports whether this
// statement always returns.
func CheckRetStatement(fn *module.Function, stmt *ast.Node) bool {
	if stmt == nil {
		return false
	}
	switch stmt.Kind {
	case ast.RETURNSTMT:
		if stmt.Left != nil {
			SetFunctionType(fn, intLit2Type(inferExprKind(stmt.Left)))
		}
		return true
	case ast.ABORTSTMT:
		if stmt.Left != nil {
			SetFunctionType(fn, intLit2Type(inferExprKind(stmt.Left)))
		}
		return false
	case ast.IFSTMT:
		thenReturns := CheckRetStatementList(fn, stmt.Right)
		elseReturns := false
		if len(stmt.Extra) > 0 {
			switch stmt.Extra[0].Kind {
			case ast.IFSTMT:
				elseReturns = CheckRetStatement(fn, stmt.Extra[0])
			case ast.BLOCK:
				elseReturns = CheckRetStatementList(fn, stmt.Extra[0])
			}
		}
		return thenReturns && elseReturns
	case ast.CASESTMT:
		allReturn := len(stmt.Extra) > 0
		for _, item := range stmt.Extra {
			if !CheckRetStatementList(fn, item.Right) {
				allReturn = false
			}
		}
		return allReturn
	case ast.REPEATCOUNT:
		if stmt.Left != nil && isResultVar(fn, stmt.Left) {
			SetFunctionType(fn, intLit2Type(ast.TYPEINT))
		}
		return CheckRetStatementList(fn, stmt.Extra[3])
	case ast.FORSTMT:
		return CheckRetStatementList(fn, stmt.Extra[1])
	case ast.BLOCK:
		return CheckRetStatementList(fn, stmt)
	case ast.ASSIGN:
		if isResultVar(fn, stmt.Left) {
			SetFunctionType(fn, intLit2Type(inferExprKind(stmt.Right)))
		}
		return false
	default:
		return false
	}
}

// intLit2Type returns a zero-value marker node of the given TYPE* kind, the
// cheapest possible "type expression" for RetType to point at given this
// tree's lack of a dedicated type-descriptor constructor.
func intLit2Type(kind ast.Kind) *ast.Node {
	return &ast.Node{Kind: kind}
}

// FinishReturnType is ProcessFunction's final bookkeeping step for one
// function: decide its return type now that every return statement (if any)
// has been seen, default a never-explicitly-returned-but-result-used
// function to a generic type, mark void functions as not returning
// anything, and — if a typed function's body never explicitly returns —
// append an implicit `return result` so the Nu IR generator always sees a
// terminating return.
func FinishReturnType(fn *module.Function, sawReturn bool) {
	if fn.RetType == nil && fn.ResultUsed {
		fn.RetType = &ast.Node{Kind: ast.TYPEGENERIC}
	}
	if fn.RetType == nil {
		fn.ResultExpr = nil // void function: no result to return
		return
	}
	if !fn.ResultUsed {
		fn.ResultExpr = ast.Int(0, 0)
		fn.ResultUsed = true
	}
	if !sawReturn {
		if fn.Body == nil {
			fn.Body = &ast.Node{Kind: ast.BLOCK}
		}
		ret := &ast.Node{Kind: ast.RETURNSTMT, Left: fn.ResultExpr}
		fn.Body.Extra = append(fn.Body.Extra, ret)
	}
}

// markResultUsed sets fn.ResultUsed if body references fn's result
// variable by name (the original's NormalizeFunc AST_IDENTIFIER case).
func markResultUsed(fn *module.Function, body *ast.Node) {
	if body == nil {
		return
	}
	if body.Kind == ast.IDENT && isResultVar(fn, body) {
		fn.ResultUsed = true
		return
	}
	markResultUsed(fn, body.Left)
	markResultUsed(fn, body.Right)
	for _, e := range body.Extra {
		markResultUsed(fn, e)
	}
}

// CheckFunctionArity walks the whole module reporting, via warnf, every call
// whose argument count does not match the callee's parameter count.
func CheckFunctionArity(mod *module.Module, warnf func(line int, format string, args ...interface{})) {
	for _, fn := range mod.Functions {
		checkArity(fn, fn.Body, warnf)
	}
}

func checkArity(fn *module.Function, node *ast.Node, warnf func(line int, format string, args ...interface{})) {
	if node == nil {
		return
	}
	if node.Kind == ast.FUNCCALL && node.Left != nil && node.Left.Kind == ast.IDENT {
		if callee := lookupFunction(fn.LocalSyms, fn.LocalRoot, node.Left.Str); callee != nil {
			got := len(node.Extra)
			if got != callee.NumParams {
				warnf(node.Line, "bad number of parameters in call to %s: expected %d found %d",
					callee.Name, callee.NumParams, got)
			}
		}
	}
	checkArity(fn, node.Left, warnf)
	checkArity(fn, node.Right, warnf)
	for _, e := range node.Extra {
		checkArity(fn, e, warnf)
	}
}

// MarkUsed walks fn's body; for every function referenced there, fn is
// appended to that callee's CallSites and the callee is walked in turn. A
// function with more than ten recorded call sites is not walked again (the
// same CALLSITES_MANY cutoff the original uses).
const callSitesMany = 10

func MarkUsed(fn *module.Function) {
	if fn == nil || len(fn.CallSites) > callSitesMany {
		return
	}
	markUsedBody(fn, fn.Body)
}

func markUsedBody(fn *module.Function, body *ast.Node) {
	if body == nil {
		return
	}
	if body.Kind == ast.IDENT {
		if callee := lookupFunction(fn.LocalSyms, fn.LocalRoot, body.Str); callee != nil {
			callee.CallSites = append(callee.CallSites, fn)
			MarkUsed(callee)
		}
		return
	}
	markUsedBody(fn, body.Left)
	markUsedBody(fn, body.Right)
	for _, e := range body.Extra {
		markUsedBody(fn, e)
	}
}

// IsCalledFrom reports whether ref may be (transitively) called from body,
// and clears ref's IsLeaf flag whenever it sees any call at all inside
// body (a function that calls anything, even if not ref itself, cannot be
// a leaf). visited prevents infinite recursion through call cycles.
func IsCalledFrom(ref *module.Function, body *ast.Node, visited map[*module.Function]bool) bool {
	if body == nil {
		return false
	}
	if body.Kind == ast.FUNCCALL && body.Left != nil && body.Left.Kind == ast.IDENT {
		ref.IsLeaf = false
		callee := lookupFunction(ref.LocalSyms, ref.LocalRoot, body.Left.Str)
		if callee == nil {
			return false
		}
		if callee == ref {
			return true
		}
		if visited[callee] {
			return false
		}
		visited[callee] = true
		return IsCalledFrom(ref, callee.Body, visited)
	}
	return IsCalledFrom(ref, body.Left, visited) || IsCalledFrom(ref, body.Right, visited) ||
		anyExtraCalledFrom(ref, body.Extra, visited)
}

func anyExtraCalledFrom(ref *module.Function, extra []*ast.Node, visited map[*module.Function]bool) bool {
	found := false
	for _, e := range extra {
		if IsCalledFrom(ref, e, visited) {
			found = true
		}
	}
	return found
}

// CheckRecursive sets fn.IsLeaf and fn.IsRecursive by walking fn's own body
// looking for (possibly indirect) calls back to fn.
func CheckRecursive(fn *module.Function) {
	fn.IsLeaf = true
	fn.IsRecursive = IsCalledFrom(fn, fn.Body, map[*module.Function]bool{})
}

// isSpinCoginit reports whether node is a COGINIT/COGNEW call launching a
// local Spin method (as opposed to, say, a raw PASM entry point), and if so
// returns that method.
func isSpinCoginit(fn *module.Function, node *ast.Node) *module.Function {
	if node == nil || node.Kind != ast.COGINIT || len(node.Extra) == 0 {
		return nil
	}
	target := node.Extra[0]
	switch target.Kind {
	case ast.IDENT:
		return lookupFunction(fn.LocalSyms, fn.LocalRoot, target.Str)
	case ast.FUNCCALL:
		if target.Left != nil && target.Left.Kind == ast.IDENT {
			return lookupFunction(fn.LocalSyms, fn.LocalRoot, target.Left.Str)
		}
	}
	return nil
}

// MarkCogTasks scans every function body in mod for COGINIT/COGNEW launches
// of a local Spin method, marking the launched method as a cog task (it
// runs on a stack with no implicit parent-call frame) and forcing it
// static, since a freshly launched cog has no access to the object
// instance that would make a non-static method's self-reference meaningful.
func MarkCogTasks(mod *module.Module) {
	for _, fn := range mod.Functions {
		markCogTasks(fn, fn.Body)
	}
}

func markCogTasks(fn *module.Function, node *ast.Node) {
	if node == nil {
		return
	}
	if target := isSpinCoginit(fn, node); target != nil {
		target.Module.NeedsCoginit = true
		target.CogTask = true
		if !target.IsStatic {
			target.ForceStatic = true
			target.IsStatic = true
		}
	}
	markCogTasks(fn, node.Left)
	markCogTasks(fn, node.Right)
	for _, e := range node.Extra {
		markCogTasks(fn, e)
	}
}

// ProcessFunction runs the per-function bookkeeping: set fn's leaf and
// recursion flags, mark whether its result variable is used, figure out its
// return type, and append an implicit return if one is needed.
func ProcessFunction(fn *module.Function) {
	CheckRecursive(fn)
	markResultUsed(fn, fn.Body)
	fn.RetType = nil
	sawReturn := CheckRetStatementList(fn, fn.Body)
	FinishReturnType(fn, sawReturn)
}

// ProcessModule runs ProcessFunction over every function in mod, then the
// whole-module static/cog-task passes that need every function's symbol
// already registered.
func ProcessModule(mod *module.Module) {
	RegisterFunctions(mod)
	for _, fn := range mod.Functions {
		ProcessFunction(fn)
	}
	InferStaticsFixpoint(mod)
	MarkCogTasks(mod)
}

// Package replui implements an interactive console over the compiler core:
// type a CON constant binding, a bare expression, or a whole PUB/PRI
// function, and see it constant-folded (internal/eval) or compiled to Nu IR
// and assigned bytecodes (internal/nuir, internal/nucode), styled with
// lipgloss the same way the teacher's REPL renders Monkey values.
//
// Grounded on dr8co/kong's repl/repl.go bubbletea model:
// same textinput/spinner/history/multiline-balanced-bracket shape,
// repointed at this compiler's pipeline instead of kong's tree-walking
// evaluator.Eval.
package replui

import (
	"fmt"
	"strings"

	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/bind"
	"github.com/totalspectrum/spinc/internal/diag"
	"github.com/totalspectrum/spinc/internal/eval"
	"github.com/totalspectrum/spinc/internal/lexer"
	"github.com/totalspectrum/spinc/internal/module"
	"github.com/totalspectrum/spinc/internal/nucode"
	"github.com/totalspectrum/spinc/internal/nuir"
	"github.com/totalspectrum/spinc/internal/parser"
	"github.com/totalspectrum/spinc/internal/pipeline"
	"github.com/totalspectrum/spinc/internal/token"
)

// session is the persistent state a REPL run accumulates across commands: a
// single growing Module that every CON binding and PUB/PRI function gets
// bound into, mirroring how the teacher's object.Environment persists
// variable bindings across evaluations.
type session struct {
	mod *module.Module
}

func newSession() *session {
	return &session{mod: module.NewModule("REPL")}
}

// looksLikeFunction reports whether input starts a PUB/PRI declaration, the
// only module-level construct ParseProgram accepts directly — anything else
// typed at the prompt is wrapped as a one-off CON binding (see evalLine).
func looksLikeFunction(input string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	for _, kw := range []string{"pub", "pri"} {
		if !strings.HasPrefix(trimmed, kw) {
			continue
		}
		rest := trimmed[len(kw):]
		if rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '\n' || rest[0] == '\r' {
			return true
		}
	}
	return false
}

// looksLikeConstBinding reports whether input has the shape "NAME = expr":
// an identifier followed immediately by CONASSIGN ("="), the one operator
// reserved for CON bindings and otherwise unreachable in expression
// position (Spin's infix "=" is EQ's two-character spelling "==").
func looksLikeConstBinding(input string) bool {
	l := lexer.New(input)
	first := l.NextToken()
	if first.Type != token.IDENT {
		return false
	}
	second := l.NextToken()
	return second.Type == token.CONASSIGN
}

// lineResult is what evalLine reports back to the bubbletea model: already
// error-classified and pre-rendered, the shape model.Update's history entry
// needs.
type lineResult struct {
	output    string
	isError   bool
	errorType ErrorType
}

// evalLine runs one REPL command against s: a PUB/PRI declaration is bound
// and compiled, anything else is evaluated as a constant expression (bound
// as a throwaway CON so it can reference session state the same way a real
// CON binding would).
func (s *session) evalLine(input string) lineResult {
	if looksLikeFunction(input) {
		return s.evalFunction(input)
	}
	return s.evalExpression(input)
}

func (s *session) evalFunction(input string) lineResult {
	prog, errs := parseFragment(input)
	if len(errs) != 0 {
		return lineResult{output: formatParseErrors(errs), isError: true, errorType: ParseError}
	}

	fns, err := bind.Program(s.mod, prog.Extra)
	if err != nil {
		return lineResult{output: formatRuntimeError(err.Error()), isError: true, errorType: RuntimeError}
	}
	if len(fns) == 0 {
		return lineResult{output: formatRuntimeError("input did not declare a function"), isError: true, errorType: RuntimeError}
	}

	bag := &diag.Bag{}
	result, err := pipeline.Compile(s.mod, bag)
	if err != nil {
		return lineResult{output: formatRuntimeError(err.Error()), isError: true, errorType: RuntimeError}
	}
	if bag.HasErrors() {
		return lineResult{output: formatRuntimeError(diagSummary(bag)), isError: true, errorType: RuntimeError}
	}

	var out strings.Builder
	for _, fn := range fns {
		fmt.Fprintf(&out, "%s:\n", fn.Name)
		out.WriteString(renderList(result.Lists[fn.Name]))
	}
	out.WriteString(renderPool(result.Pool))
	return lineResult{output: out.String()}
}

// parseFragment parses input as a standalone program fragment. A PUB/PRI
// declaration is already valid top-level syntax on its own.
func parseFragment(input string) (*ast.Node, []string) {
	p := parser.New(lexer.New(input))
	prog := p.ParseProgram()
	return prog, p.Errors()
}

// evalExpression wraps input as a CON binding, the only way to reach the
// parser's expression grammar from outside a function body: "NAME = expr"
// is wrapped verbatim so NAME persists in s's scope for later commands to
// reference, and anything else is wrapped under a throwaway name.
func (s *session) evalExpression(input string) lineResult {
	wrapped := "CON DO\n  " + input + "\nEND\n"
	if !looksLikeConstBinding(input) {
		wrapped = "CON DO\n  _repl_ = " + input + "\nEND\n"
	}
	p := parser.New(lexer.New(wrapped))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		return lineResult{output: formatParseErrors(errs), isError: true, errorType: ParseError}
	}
	if len(prog.Extra) != 1 || prog.Extra[0].Kind != ast.CONDECL {
		return lineResult{output: formatRuntimeError("could not parse as an expression"), isError: true, errorType: RuntimeError}
	}

	bag := &diag.Bag{}
	ctx := eval.NewContext(s.mod.ObjSyms, s.mod.ObjRoot)
	val, ok := eval.EvalExpr(ctx, prog.Extra[0].Right, bag)
	if !ok || bag.HasErrors() {
		return lineResult{output: formatRuntimeError(diagSummary(bag)), isError: true, errorType: RuntimeError}
	}

	if _, err := bind.Program(s.mod, prog.Extra); err != nil {
		return lineResult{output: formatRuntimeError(err.Error()), isError: true, errorType: RuntimeError}
	}

	return lineResult{output: formatValue(val)}
}

func formatValue(v eval.ExprVal) string {
	if v.IsFloat() {
		return fmt.Sprintf("%g (float)", v.Float())
	}
	return fmt.Sprintf("%d", v.Val)
}

func diagSummary(bag *diag.Bag) string {
	var s strings.Builder
	for _, d := range bag.Errors() {
		s.WriteString(d.String())
		s.WriteString("\n")
	}
	return strings.TrimRight(s.String(), "\n")
}

// renderList formats one function's Nu IR as "OP val [label]" lines, the
// compiled shape a user typing a PUB/PRI declaration at the prompt wants to
// inspect.
func renderList(list *nuir.List) string {
	if list == nil {
		return "  (no instructions)\n"
	}
	var s strings.Builder
	for ins := list.Head; ins != nil; ins = ins.Next {
		fmt.Fprintf(&s, "  %-8s", ins.Op.String())
		if ins.Op.IsConst() || ins.Op == nucode.LOADL || ins.Op == nucode.STOREL {
			fmt.Fprintf(&s, " %d", ins.Val)
		}
		if ins.Label != "" {
			fmt.Fprintf(&s, " %s", ins.Label)
		}
		if ins.Bytecode != nil {
			fmt.Fprintf(&s, "  ; code=%d usage=%d", ins.Bytecode.Code, ins.Bytecode.Usage)
		}
		s.WriteString("\n")
	}
	return s.String()
}

func renderPool(pool *nucode.Pool) string {
	if pool == nil {
		return ""
	}
	var s strings.Builder
	s.WriteString("bytecodes:\n")
	for _, bc := range pool.All() {
		fmt.Fprintf(&s, "  %-16s code=%d usage=%d\n", bc.Name, bc.Code, bc.Usage)
	}
	return s.String()
}

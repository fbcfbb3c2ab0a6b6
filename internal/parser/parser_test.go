package parser

import (
	"testing"

	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/lexer"
)

func parseProgram(t *testing.T, src string) *ast.Node {
	t.Helper()
	p := New(lexer.New(src))
	prog := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("parser errors: %v", p.Errors())
	}
	return prog
}

func TestParseConAndFunctionDecl(t *testing.T) {
	src := `
CON do
  PinMask = $FF
end
PUB main(a, b) | tmp do
  tmp := a + b * 2;
  return tmp;
end
`
	prog := parseProgram(t, src)
	if len(prog.Extra) != 2 {
		t.Fatalf("got %d top-level decls, want 2", len(prog.Extra))
	}
	con := prog.Extra[0]
	if con.Kind != ast.CONDECL || con.Left.Str != "PinMask" || con.Right.IVal != 0xFF {
		t.Fatalf("CON decl = %+v", con)
	}
	fn := prog.Extra[1]
	if fn.Kind != ast.FUNCDECL || fn.Str != "main" || fn.IVal != 1 {
		t.Fatalf("FUNCDECL = %+v", fn)
	}
	params := fn.Extra[0]
	if len(params.Extra) != 2 || params.Extra[0].Str != "a" || params.Extra[1].Str != "b" {
		t.Fatalf("params = %+v", params)
	}
	locals := fn.Extra[1]
	if len(locals.Extra) != 1 || locals.Extra[0].Str != "tmp" {
		t.Fatalf("locals = %+v", locals)
	}
	body := fn.Right
	if len(body.Extra) != 2 {
		t.Fatalf("body has %d statements, want 2", len(body.Extra))
	}
	assign := body.Extra[0]
	if assign.Kind != ast.ASSIGN || assign.Left.Str != "tmp" {
		t.Fatalf("assign = %+v", assign)
	}
	rhs := assign.Right
	if rhs.Kind != ast.ADD || rhs.Right.Kind != ast.MUL {
		t.Fatalf("rhs = %+v; want a + (b * 2) honoring precedence", rhs)
	}
}

func TestParseRangeAssignment(t *testing.T) {
	prog := parseProgram(t, `PUB p do outa[4..2] := %110; end`)
	body := prog.Extra[0].Right
	stmt := body.Extra[0]
	if stmt.Kind != ast.RANGEASSIGN {
		t.Fatalf("stmt.Kind = %v; want RANGEASSIGN", stmt.Kind)
	}
	ref := stmt.Left
	if ref.Kind != ast.RANGEREF || ref.Left.Str != "outa" {
		t.Fatalf("ref = %+v", ref)
	}
	rng := ref.Right
	if rng.Kind != ast.RANGE || rng.Left.IVal != 4 || rng.Right.IVal != 2 {
		t.Fatalf("range = %+v", rng)
	}
	if stmt.Right.IVal != 6 {
		t.Fatalf("rhs = %+v; want binary 110 = 6", stmt.Right)
	}
}

func TestParseCountingRepeat(t *testing.T) {
	prog := parseProgram(t, `PUB p do repeat i from 10 to 1 step 1 do x := x; end end`)
	body := prog.Extra[0].Right
	rep := body.Extra[0]
	if rep.Kind != ast.REPEATCOUNT || rep.Left.Str != "i" {
		t.Fatalf("rep = %+v", rep)
	}
	from, to, step, inner := rep.Extra[0], rep.Extra[1], rep.Extra[2], rep.Extra[3]
	if from.IVal != 10 || to.IVal != 1 || step.IVal != 1 {
		t.Fatalf("from/to/step = %+v/%+v/%+v", from, to, step)
	}
	if inner.Kind != ast.BLOCK || len(inner.Extra) != 1 {
		t.Fatalf("body = %+v", inner)
	}
}

func TestParseIfElseIfElse(t *testing.T) {
	prog := parseProgram(t, `PUB p do
		if a == 1 do x := 1; end elseif a == 2 do x := 2; end else do x := 3; end
	end`)
	body := prog.Extra[0].Right
	ifNode := body.Extra[0]
	if ifNode.Kind != ast.IFSTMT || len(ifNode.Extra) != 1 {
		t.Fatalf("if = %+v", ifNode)
	}
	elif := ifNode.Extra[0]
	if elif.Kind != ast.IFSTMT || len(elif.Extra) != 1 {
		t.Fatalf("elseif = %+v", elif)
	}
	elseBlock := elif.Extra[0]
	if elseBlock.Kind != ast.BLOCK || len(elseBlock.Extra) != 1 {
		t.Fatalf("else block = %+v", elseBlock)
	}
}

func TestParseCaseWithOther(t *testing.T) {
	prog := parseProgram(t, `PUB p do
		case x do
			1: do y := 1; end
			2..4: do y := 2; end
			other: do y := 0; end
		end
	end`)
	body := prog.Extra[0].Right
	c := body.Extra[0]
	if c.Kind != ast.CASESTMT || len(c.Extra) != 3 {
		t.Fatalf("case = %+v", c)
	}
	if c.Extra[1].Left.Kind != ast.ISBETWEEN {
		t.Fatalf("range arm = %+v", c.Extra[1])
	}
	if c.Extra[2].Left != nil {
		t.Fatalf("other arm should have nil Left, got %+v", c.Extra[2].Left)
	}
}

func TestParseBuiltinCalls(t *testing.T) {
	prog := parseProgram(t, `PUB p do
		return REV(x, 8) + LIMITMIN(a, 0);
	end`)
	ret := prog.Extra[0].Right.Extra[0]
	sum := ret.Left
	if sum.Kind != ast.ADD {
		t.Fatalf("sum = %+v", sum)
	}
	rev := sum.Left
	if rev.Kind != ast.REVOP || rev.Left.Str != "x" || rev.Right.IVal != 8 {
		t.Fatalf("rev = %+v", rev)
	}
}

func TestParseDebugStatement(t *testing.T) {
	prog := parseProgram(t, `PUB p do DEBUG(udec(x), "hi"); end`)
	stmt := prog.Extra[0].Right.Extra[0]
	if stmt.Kind != ast.BRKDEBUG || len(stmt.Extra) != 2 {
		t.Fatalf("debug = %+v", stmt)
	}
	if stmt.Extra[0].Kind != ast.FUNCCALL || stmt.Extra[1].Kind != ast.STRINGLIT {
		t.Fatalf("debug args = %+v", stmt.Extra)
	}
}

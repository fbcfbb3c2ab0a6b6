package lower

import (
	"github.com/totalspectrum/spinc/internal/ast"
)

// PostEffect lowers `x~` (POSTCLEAR) and `x~~` (POSTSET) to an assignment.
// `x~` clears x to 0 and evaluates to the old value of x; `x~~` sets x to
// -1 and evaluates to the old value of x.
//
// At toplevel (the postfix result is discarded as a statement) this is just
// `x := target`. Used as a sub-expression, the old value must survive the
// assignment, so it is stashed in a hoisted temporary first:
// `(tmp := x, x := target, tmp)`, represented as nested ast.SEQ nodes whose
// final Right is the temporary reference — the expression's value.
func PostEffect(hoist *Hoister, node *ast.Node, toplevel bool) *ast.Node {
	line := node.Line
	target := node.Left

	var clearTo *ast.Node
	switch node.Kind {
	case ast.POSTCLEAR:
		clearTo = ast.Int(line, 0)
	case ast.POSTSET:
		clearTo = ast.Int(line, -1)
	default:
		return node
	}

	if toplevel {
		return assignStmt(line, target, clearTo)
	}

	tmp := hoist.Temp("_tmp_", line)
	saveOld := assignStmt(line, tmp, target)
	setNew := assignStmt(line, target, clearTo)
	return &ast.Node{
		Kind: ast.SEQ, Line: line,
		Left:  saveOld,
		Right: &ast.Node{Kind: ast.SEQ, Line: line, Left: setNew, Right: tmp},
	}
}

package lower

import (
	"github.com/totalspectrum/spinc/internal/ast"
)

// CaseScrutinee returns the variable a CASESTMT's arms should be compared
// against: node.Left itself if it is already an identifier, or the left
// side of node.Left if it has already been hoisted (see CaseHoist). It
// panics on any other shape, since CaseHoist is expected to run first.
func CaseScrutinee(node *ast.Node) *ast.Node {
	switch node.Left.Kind {
	case ast.IDENT:
		return node.Left
	case ast.ASSIGN:
		return node.Left.Left
	default:
		panic("lower: CaseScrutinee called before CaseHoist")
	}
}

// CaseHoist ensures a CASESTMT's scrutinee is evaluated exactly once, no
// matter how many arms compare against it. If node.Left is already a plain
// identifier (or has already been hoisted into `tmp := expr` form) it is
// left alone; otherwise it is replaced with `tmp := node.Left`, hoisting the
// original expression into a fresh function-local temporary that every arm
// can then reference through CaseScrutinee.
func CaseHoist(hoist *Hoister, node *ast.Node) *ast.Node {
	if node.Kind != ast.CASESTMT {
		return node
	}
	switch node.Left.Kind {
	case ast.IDENT, ast.ASSIGN:
		return node
	}
	tmp := hoist.Temp("_case_", node.Left.Line)
	node.Left = assignStmt(node.Left.Line, tmp, node.Left)
	return node
}

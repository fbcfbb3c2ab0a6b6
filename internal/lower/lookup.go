package lower

import (
	"github.com/totalspectrum/spinc/internal/ast"
	"github.com/totalspectrum/spinc/internal/eval"
)

// ConstTable is the flattened, constant-folded form of a LOOKUP/LOOKUPZ
// table. Lookup attaches one to a LOOKUPEXPR/LOOKUPZEXPR node's Ptr field
// when every table entry turns out to be a compile-time constant, the same
// optimisation the original compiler's ModifyLookup performs. Nu IR
// generation turns such a node into a single indexed load from the label
// Name; no pass in this tree emits Values as data under that label.
type ConstTable struct {
	Name   string
	Values []int32
}

// Lookup attempts to fold a LOOKUPEXPR or LOOKUPZEXPR node's table (node.Extra)
// into a ConstTable. A `first..last` entry expands to every integer between
// the two bounds inclusive (ascending or descending); a string literal
// expands to its byte values; any other entry must itself be a compile-time
// constant. If any entry is not constant, Lookup leaves the node untouched
// and returns false; Nu IR generation has no element-by-element form and
// reports such a node as an error.
func Lookup(ctx *eval.Context, names *Hoister, node *ast.Node) bool {
	switch node.Kind {
	case ast.LOOKUPEXPR, ast.LOOKUPZEXPR:
	default:
		return false
	}

	f := folder{ctx}
	var values []int32
	for _, entry := range node.Extra {
		switch entry.Kind {
		case ast.RANGE:
			if !f.isConst(entry.Left) || !f.isConst(entry.Right) {
				return false
			}
			lo := f.mustInt(entry.Left)
			hi := f.mustInt(entry.Right)
			if lo <= hi {
				for v := lo; v <= hi; v++ {
					values = append(values, v)
				}
			} else {
				for v := lo; v >= hi; v-- {
					values = append(values, v)
				}
			}
		case ast.STRINGLIT:
			for _, c := range []byte(entry.Str) {
				values = append(values, int32(c))
			}
		default:
			if !f.isConst(entry) {
				return false
			}
			values = append(values, f.mustInt(entry))
		}
	}

	node.Ptr = &ConstTable{Name: names.TableName("look_"), Values: values}
	return true
}

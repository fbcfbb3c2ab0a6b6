package nucode

import "sort"

// Allocator bounds, per the interpreter's one-byte opcode field.
const (
	FirstBytecode = 3
	MaxBytecode   = 0xF8
	MaxMacroDepth = 4
)

// Reserved codes for the three dispatch sentinels every interpreter template
// always carries, regardless of what the greedy pass assigns afterward.
const (
	CodeDirect = 0
	CodePushI  = 1
	CodePushA  = 2
)

// NuBytecode is one assigned opcode: either a real Nu IR operation, a
// PUSHI/PUSHA immediate singleton, or (post-compression) a fused two-op
// macro. ImplPtr names the interpreter-template label (or a synthesized
// impl_PUSH_<n> / impl_<A>_<B> body) that the jump table's entry for Code
// points at.
type NuBytecode struct {
	Name  string
	Code  int
	Value int64 // meaningful only when IsConst

	// Usage is how many IR instructions reference this bytecode, the
	// greedy pass's sole ranking signal.
	Usage int

	ImplPtr  string
	ImplSize int

	IsConst     bool
	IsLabel     bool
	IsAnyBranch bool
	IsRelBranch bool
	IsInlineAsm bool

	// MacroDepth is 0 for a plain opcode, and max(a.MacroDepth,
	// b.MacroDepth)+1 for a fused A_B macro — bounded by MaxMacroDepth so
	// fusion cannot recurse into arbitrarily large compound opcodes.
	MacroDepth int

	// Link chains same-opcode NuBytecodes sharing one assigned Code when a
	// PUSHI/PUSHA constant could not be given its own singleton slot
	// (falls back to direct dispatch through impl_PUSHI/impl_PUSHA).
	Link *NuBytecode
}

// pairKey identifies an adjacent (first, second) opcode pair considered for
// macro fusion.
type pairKey struct {
	first, second *NuBytecode
}

// Pool owns every NuBytecode assigned during one compilation, keyed by a
// stable identity so PUSHI/PUSHA constants sharing a value merge into one
// entry (bumping Usage) instead of duplicating.
type Pool struct {
	byConst map[int64]*NuBytecode // PUSHI value -> bytecode
	byLabel map[string]*NuBytecode // PUSHA label -> bytecode
	static  map[Op]*NuBytecode     // every other op -> one shared bytecode
	all     []*NuBytecode
}

// NewPool creates an empty allocator pool.
func NewPool() *Pool {
	return &Pool{
		byConst: make(map[int64]*NuBytecode),
		byLabel: make(map[string]*NuBytecode),
		static:  make(map[Op]*NuBytecode),
	}
}

// All returns every NuBytecode registered in the pool, in registration order.
func (p *Pool) All() []*NuBytecode { return p.all }

// register appends bc to p.all and returns it, the single point every
// constructor below funnels through.
func (p *Pool) register(bc *NuBytecode) *NuBytecode {
	p.all = append(p.all, bc)
	return bc
}

// InternPushI returns the shared NuBytecode for a PUSHI of the given value,
// creating it on first use and incrementing Usage on every call thereafter —
// the "hash into a 64K-bucket table keyed by value" step, modeled here as a
// plain Go map since the bucket count only matters for the original's fixed
// memory layout, not this allocator's behavior.
func (p *Pool) InternPushI(value int64) *NuBytecode {
	if bc, ok := p.byConst[value]; ok {
		bc.Usage++
		return bc
	}
	bc := &NuBytecode{Name: "PUSHI", Value: value, Usage: 1, IsConst: true}
	p.byConst[value] = bc
	return p.register(bc)
}

// InternPushA is InternPushI's counterpart for PUSHA label references.
func (p *Pool) InternPushA(label string) *NuBytecode {
	if bc, ok := p.byLabel[label]; ok {
		bc.Usage++
		return bc
	}
	bc := &NuBytecode{Name: "PUSHA " + label, Usage: 1, IsConst: true, IsLabel: true}
	p.byLabel[label] = bc
	return p.register(bc)
}

// InternOp returns the single shared NuBytecode standing for every
// occurrence of a non-constant op, bumping Usage each time — every
// instruction with the same Op maps onto staticOps[op] in the original.
func (p *Pool) InternOp(op Op) *NuBytecode {
	if bc, ok := p.static[op]; ok {
		bc.Usage++
		return bc
	}
	bc := &NuBytecode{
		Name:        op.String(),
		Usage:       1,
		IsAnyBranch: isAnyBranch(op),
		IsRelBranch: op.IsRelBranch(),
		IsInlineAsm: op == INLINEASM,
	}
	if op.IsBuiltin() {
		bc.ImplPtr = "impl_" + op.String()
	}
	p.static[op] = bc
	return p.register(bc)
}

func isAnyBranch(op Op) bool {
	switch op {
	case JMP, BRZ, BRNZ, CBEQ, CBNE, CALL, CALLM, GOSUB, RET:
		return true
	}
	return false
}

// AssignCodes implements the "opcode number assignment" pass: sort by
// descending usage, reserve 0/1/2, then walk assigning one-byte codes until
// either the pool or the code space is exhausted. PUSHI and PUSHA constants
// take the shared CodePushI/CodePushA codes; every other bytecode that
// doesn't get a unique code falls back to CodeDirect (dispatched through
// impl_ptr, one indirection slower).
func (p *Pool) AssignCodes() {
	ordered := make([]*NuBytecode, len(p.all))
	copy(ordered, p.all)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Usage > ordered[j].Usage
	})

	next := FirstBytecode
	for _, bc := range ordered {
		switch {
		case bc.IsConst && !bc.IsLabel:
			bc.Code = CodePushI
		case bc.IsConst && bc.IsLabel:
			bc.Code = CodePushA
		case bc.IsRelBranch:
			if next >= MaxBytecode {
				bc.Code = CodeDirect
				continue
			}
			bc.Code = next
			next++
		case bc.Usage <= 1 || next >= MaxBytecode:
			bc.Code = CodeDirect
		default:
			bc.Code = next
			next++
		}
	}
}

// PairCount is one adjacent (First, Second) NuBytecode pair and how many
// times it occurs, as tallied by internal/nuir.CountPairs across the
// whole-program chain of per-function IR lists.
type PairCount struct {
	First, Second *NuBytecode
	Count         int
}

// BestSingletonCandidate finds the highest-usage PUSHI/PUSHA constant bytecode
// not yet specialised into its own impl_PUSH_<n> body, and reports the
// projected savings of doing so: 4*usage-impl_cost bytes, where impl_cost is
// 8 for a value in [-511,511] (fits mov's small-immediate encoding) or 12
// otherwise.
func BestSingletonCandidate(pool *Pool) (*NuBytecode, int) {
	var best *NuBytecode
	bestSavings := 0
	for _, bc := range pool.all {
		if !bc.IsConst || bc.ImplPtr != "" {
			continue
		}
		implCost := 12
		if !bc.IsLabel && bc.Value >= -511 && bc.Value <= 511 {
			implCost = 8
		}
		savings := 4*bc.Usage - implCost
		if savings > bestSavings {
			best, bestSavings = bc, savings
		}
	}
	return best, bestSavings
}

// SpecializeSingleton gives bc its own PUSH_<name> implementation body,
// removing it from the generic PUSHI/PUSHA dispatch path. Value encodes
// either the integer literal (PUSHI) or is ignored in favor of Name (PUSHA,
// whose address isn't known until layout, so its body is left for the
// emitter to patch).
func SpecializeSingleton(bc *NuBytecode) {
	if bc.IsLabel {
		bc.ImplPtr = "impl_PUSH_" + bc.Name
		bc.ImplSize = 8
		return
	}
	name := pushImplName(bc.Value)
	bc.ImplPtr = "impl_" + name
	bc.ImplSize = 8
	if bc.Value < -511 || bc.Value > 511 {
		bc.ImplSize = 12
	}
}

func pushImplName(v int64) string {
	if v < 0 {
		return "PUSH_M" + itoa(-v)
	}
	return "PUSH_" + itoa(v)
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// NuMergeBytecodes builds the fused NuBytecode standing for the adjacent
// pair (first, second): its Name is "A_B", its ImplPtr names the label
// impl_A_B, its MacroDepth is one more than the deeper of the two halves, and
// it takes IsAnyBranch from second. It records no implementation body:
// ImplSize stays 0, and neither half's code is inlined or turned into a
// call/jmp here.
func NuMergeBytecodes(first, second *NuBytecode) *NuBytecode {
	depth := first.MacroDepth
	if second.MacroDepth > depth {
		depth = second.MacroDepth
	}
	return &NuBytecode{
		Name:        first.Name + "_" + second.Name,
		Usage:       0,
		IsAnyBranch: second.IsAnyBranch,
		MacroDepth:  depth + 1,
		ImplPtr:     "impl_" + first.Name + "_" + second.Name,
	}
}

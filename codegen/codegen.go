package codegen

import (
	"github.com/intellect4all/triplecore/operator"
	"github.com/intellect4all/triplecore/operator/predicate"
	"github.com/intellect4all/triplecore/runtime"
)

// bindings maps a variable name to a register currently holding its
// value within the subtree that produced the map. A variable shared by
// two subtrees generally has a different register per subtree until
// the join that combines them picks one as the merged binding.
type bindings map[string]int

// translator carries the per-translation state spec §4.8 names: the
// runtime being wired, and, for every variable seen more than once, the
// DomainDescription reconciling its per-occurrence registers.
type translator struct {
	rt *runtime.Runtime
	db operator.Database
	ro operator.RT
	// firstReg records the first register ever allocated for a
	// variable; domainIdx is only populated once a second occurrence
	// shows up, at which point a DomainDescription of size >= 2 is
	// allocated per spec §4.8 step 2.
	firstReg  map[string]int
	domainIdx map[string]int
}

// Translate allocates a fresh register per pattern node and column
// (spec §4.8 step 1), recursively builds the operator tree for
// qg.Root, wires every variable's repeated occurrences into a shared
// DomainDescription (step 2), and wraps the tree with a Sort if
// qg.Order is non-empty. It returns the root operator and the final
// variable->register bindings (for a caller building its own
// ResultsPrinter).
func Translate(rt *runtime.Runtime, db operator.Database, qg *QueryGraph) (operator.Operator, bindings, error) {
	t := &translator{
		rt:        rt,
		db:        db,
		ro:        operator.RT{R: rt},
		firstReg:  map[string]int{},
		domainIdx: map[string]int{},
	}

	op, binds, err := t.translate(qg.Root)
	if err != nil {
		return nil, nil, err
	}

	if domains := t.allDomains(); len(domains) > 0 {
		op = operator.NewDomainSync(t.ro, op, domains)
	}

	if len(qg.Order) > 0 {
		regs := make([]int, 0, len(binds))
		for _, v := range qg.Projection {
			regs = append(regs, binds[v])
		}
		keys := make([]operator.SortKey, len(qg.Order))
		for i, o := range qg.Order {
			keys[i] = operator.SortKey{Reg: indexOf(regs, binds[o.Var]), Descending: o.Descending}
		}
		op = operator.NewSort(t.ro, op, regs, keys)
	}
	return op, binds, nil
}

// allDomains returns every DomainDescription codegen wired up, for
// DomainSync to keep current at read time.
func (t *translator) allDomains() []*runtime.DomainDescription {
	out := make([]*runtime.DomainDescription, 0, len(t.domainIdx))
	for _, idx := range t.domainIdx {
		out = append(out, t.rt.GetDomainDescription(idx))
	}
	return out
}

// allocVarReg allocates a fresh register for one occurrence of v. The
// first occurrence just gets its own register; every later one also
// grows v's DomainDescription (allocating it lazily on the second
// occurrence) so every register ever bound to v ends up a member of
// the same equivalence class.
func (t *translator) allocVarReg(v string) int {
	reg := t.rt.AllocateRegisters(1)
	first, ok := t.firstReg[v]
	if !ok {
		t.firstReg[v] = reg
		return reg
	}
	idx, ok := t.domainIdx[v]
	if !ok {
		idx = t.rt.AllocateDomainDescriptions(1)
		t.rt.GetDomainDescription(idx).Members = []int{first}
		t.domainIdx[v] = idx
	}
	dom := t.rt.GetDomainDescription(idx)
	dom.Members = append(dom.Members, reg)
	return reg
}

func indexOf(regs []int, reg int) int {
	for i, r := range regs {
		if r == reg {
			return i
		}
	}
	return 0
}

func (t *translator) translate(n *PlanNode) (operator.Operator, bindings, error) {
	if n.Pattern != nil {
		return t.translatePattern(n.Pattern)
	}
	return t.translateJoin(n.Join)
}

// translatePattern resolves each of a pattern's three columns as
// Filter (bound to a constant), Prefix (a leading run of Filter
// columns the scan can descend directly to), or Free (a variable the
// scan binds as it iterates), per spec §4.6/§4.8. Every column gets
// its own fresh register; a variable repeated within the same pattern
// is wrapped with a Selection enforcing the two occurrences agree.
func (t *translator) translatePattern(p *PatternNode) (operator.Operator, bindings, error) {
	var modes [3]operator.BindMode
	var regs [3]int
	terms := [3]Term{p.V1, p.V2, p.V3}
	local := bindings{}
	var selfEqual [][2]int
	for i, term := range terms {
		if !term.IsVar {
			reg := t.rt.AllocateRegisters(1)
			t.rt.GetRegister(reg).Set(term.Const)
			modes[i] = operator.Filter
			regs[i] = reg
			continue
		}
		reg := t.allocVarReg(term.Var)
		modes[i] = operator.Free
		regs[i] = reg
		if prior, ok := local[term.Var]; ok {
			selfEqual = append(selfEqual, [2]int{prior, reg})
		} else {
			local[term.Var] = reg
		}
	}
	// A leading run of constant columns is Prefix rather than Filter,
	// since the scan can descend directly to it.
	for i := 0; i < 3; i++ {
		if modes[i] == operator.Filter {
			modes[i] = operator.Prefix
		} else {
			break
		}
	}
	var op operator.Operator = operator.NewIndexScan(t.ro, t.db.Facts(p.Perm), p.Perm, modes, regs)
	if len(selfEqual) > 0 {
		op = t.wrapEquality(op, selfEqual)
	}
	return op, local, nil
}

func (t *translator) translateJoin(j *JoinNode) (operator.Operator, bindings, error) {
	left, leftBinds, err := t.translate(j.Left)
	if err != nil {
		return nil, nil, err
	}
	right, rightBinds, err := t.translate(j.Right)
	if err != nil {
		return nil, nil, err
	}

	var shared []string
	for v := range leftBinds {
		if _, ok := rightBinds[v]; ok {
			shared = append(shared, v)
		}
	}
	sortStrings(shared)

	var primary string
	if len(shared) > 0 {
		primary = shared[0]
	}

	var op operator.Operator
	var extra []string
	switch j.Kind {
	case JoinMerge:
		op = operator.NewMergeJoin(t.ro, left, right, leftBinds[primary], rightBinds[primary])
		if len(shared) > 1 {
			extra = shared[1:]
		}
	case JoinHash:
		leftVars := make([]string, 0, len(leftBinds))
		for v := range leftBinds {
			leftVars = append(leftVars, v)
		}
		sortStrings(leftVars)
		aux := auxRegs(leftVars, leftBinds)
		op = operator.NewHashJoin(t.ro, left, right, leftBinds[primary], rightBinds[primary], aux, 1024)
		if len(shared) > 1 {
			extra = shared[1:]
		}
	default:
		op = operator.NewNestedLoopJoin(t.ro, left, right)
		extra = shared
	}

	if len(extra) > 0 {
		pairs := make([][2]int, len(extra))
		for i, v := range extra {
			pairs[i] = [2]int{leftBinds[v], rightBinds[v]}
		}
		op = t.wrapEquality(op, pairs)
	}

	merged := make(bindings, len(leftBinds)+len(rightBinds))
	for v, r := range leftBinds {
		merged[v] = r
	}
	for v, r := range rightBinds {
		if _, ok := merged[v]; !ok {
			merged[v] = r
		}
	}
	return op, merged, nil
}

func auxRegs(vars []string, binds bindings) []int {
	out := make([]int, len(vars))
	for i, v := range vars {
		out[i] = binds[v]
	}
	return out
}

// wrapEquality adds a Selection requiring every (regA, regB) pair to
// compare equal -- the mechanism translatePattern/translateJoin use to
// enforce that a variable's distinct per-occurrence registers actually
// agree before a tuple is allowed through.
func (t *translator) wrapEquality(op operator.Operator, pairs [][2]int) operator.Operator {
	var pred *predicate.Node
	for _, pair := range pairs {
		eq := &predicate.Node{Kind: predicate.Equal, Children: []*predicate.Node{
			{Kind: predicate.VarRef, Reg: pair[0]},
			{Kind: predicate.VarRef, Reg: pair[1]},
		}}
		if pred == nil {
			pred = eq
		} else {
			pred = &predicate.Node{Kind: predicate.And, Children: []*predicate.Node{pred, eq}}
		}
	}
	return operator.NewSelection(t.ro, op, pred)
}

// sortStrings is a tiny insertion sort so translateJoin's choice of
// primary join key doesn't depend on Go's randomized map iteration
// order.
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

package refquery

import (
	"sort"

	"github.com/intellect4all/triplecore/codegen"
	"github.com/intellect4all/triplecore/common"
)

// Plan is refquery.Planner's output: one codegen.QueryGraph per branch
// (more than one only for a top-level UNION), the filters belonging to
// each branch (still in variable-name form -- compiled to registers once
// codegen.Translate hands back its bindings), and the projection/order/
// limit clauses the executor applies around the translated tree.
type Plan struct {
	Mode       QueryMode
	Projection []string

	Branches      []*codegen.QueryGraph
	BranchFilters [][]*FilterExpr

	Order []OrderTerm
	Limit int
}

// Planner is spec.md's reference join-order planner: naive left-to-right,
// with patterns reordered once by ascending estimated predicate
// cardinality (cheapest first) rather than true cost-based enumeration,
// which is out of scope (spec.md §1's non-goal).
type Planner struct {
	Stats Statistics
}

func NewPlanner(stats Statistics) *Planner { return &Planner{Stats: stats} }

// Plan turns a ParsedQuery into an executable Plan, resolving every
// constant term to an id via resolve (typically a dictionary lookup;
// unknown terms resolve to common.Unbound, a value no stored triple can
// carry, so the pattern simply matches nothing).
func (pl *Planner) Plan(q *ParsedQuery, resolve func(string) common.ID) (*Plan, error) {
	groups := q.UnionBranches
	single := len(groups) == 0
	if single {
		groups = []GroupPattern{q.Where}
	}

	plan := &Plan{Mode: q.Mode, Projection: q.Projection, Limit: q.Limit}
	if single {
		plan.Order = q.OrderBy
	}

	for _, g := range groups {
		qg := pl.planGroup(g, resolve, q.Projection)
		plan.Branches = append(plan.Branches, qg)
		plan.BranchFilters = append(plan.BranchFilters, g.Filters)
	}
	return plan, nil
}

func (pl *Planner) planGroup(g GroupPattern, resolve func(string) common.ID, projection []string) *codegen.QueryGraph {
	patterns := make([]TriplePattern, len(g.Patterns))
	copy(patterns, g.Patterns)

	sort.SliceStable(patterns, func(i, j int) bool {
		return pl.estimate(patterns[i], resolve) < pl.estimate(patterns[j], resolve)
	})

	var root *codegen.PlanNode
	seen := map[string]bool{}
	for _, tp := range patterns {
		node := &codegen.PlanNode{Pattern: pl.patternNode(tp, resolve, seen)}
		for _, t := range []Term{tp.S, tp.P, tp.O} {
			if t.IsVar {
				seen[t.Var] = true
			}
		}
		if root == nil {
			root = node
			continue
		}
		root = &codegen.PlanNode{Join: &codegen.JoinNode{
			Kind:  chooseJoinKind(root, node),
			Left:  root,
			Right: node,
		}}
	}
	if root == nil {
		root = &codegen.PlanNode{Pattern: &codegen.PatternNode{
			Perm: common.SPO,
			V1:   codegen.ConstTerm(common.Unbound),
			V2:   codegen.ConstTerm(common.Unbound),
			V3:   codegen.ConstTerm(common.Unbound),
		}}
	}
	return &codegen.QueryGraph{Root: root, Projection: projection}
}

// estimate scores a pattern (lower is cheaper): a constant predicate
// scores its PredicateCardinality, ignoring S and O; otherwise a constant
// subject or object scores DefaultCardinality/10; an all-variable pattern
// scores DefaultCardinality*10 and sorts last.
func (pl *Planner) estimate(tp TriplePattern, resolve func(string) common.ID) int64 {
	if !tp.P.IsVar {
		return pl.Stats.PredicateCardinality(resolve(tp.P.Value))
	}
	if !tp.S.IsVar || !tp.O.IsVar {
		return DefaultCardinality / 10
	}
	return DefaultCardinality * 10
}

func (pl *Planner) patternNode(tp TriplePattern, resolve func(string) common.ID, seenBefore map[string]bool) *codegen.PatternNode {
	terms := [3]Term{tp.S, tp.P, tp.O}
	var out [3]codegen.Term
	for i, t := range terms {
		if t.IsVar {
			out[i] = codegen.VarTerm(t.Var)
		} else {
			out[i] = codegen.ConstTerm(resolve(t.Value))
		}
	}
	return &codegen.PatternNode{Perm: choosePermutation(terms, seenBefore), V1: out[0], V2: out[1], V3: out[2]}
}

// choosePermutation picks the permutation whose leading columns are
// already constant or bound by an earlier pattern, so IndexScan can
// descend directly to a prefix rather than scanning freely -- spec
// §4.6/§4.8's binding-driven permutation choice, decided here rather
// than by a cost model.
func choosePermutation(terms [3]Term, seenBefore map[string]bool) common.Permutation {
	bound := func(t Term) bool { return !t.IsVar || seenBefore[t.Var] }
	s, p, o := terms[0], terms[1], terms[2]

	switch {
	case bound(s) && bound(p):
		return common.SPO
	case bound(s) && bound(o):
		return common.SOP
	case bound(p) && bound(s):
		return common.PSO
	case bound(p) && bound(o):
		return common.POS
	case bound(o) && bound(s):
		return common.OSP
	case bound(o) && bound(p):
		return common.OPS
	case bound(s):
		return common.SPO
	case bound(p):
		return common.PSO
	case bound(o):
		return common.OSP
	default:
		return common.SPO
	}
}

// chooseJoinKind picks Hash for any shared-variable join (the safe
// default when the two subtrees' output order can't be guaranteed
// aligned) and NestedLoop for a variable-disjoint join (a cross
// product); it never picks Merge, since that requires the planner to
// prove both sides are sorted by the same key, which this naive planner
// does not attempt -- see DESIGN.md.
func chooseJoinKind(left, right *codegen.PlanNode) codegen.JoinKind {
	leftVars := collectVars(left)
	rightVars := collectVars(right)
	for v := range rightVars {
		if leftVars[v] {
			return codegen.JoinHash
		}
	}
	return codegen.JoinNestedLoop
}

func collectVars(n *codegen.PlanNode) map[string]bool {
	out := map[string]bool{}
	var walk func(*codegen.PlanNode)
	walk = func(n *codegen.PlanNode) {
		if n == nil {
			return
		}
		if n.Pattern != nil {
			for _, t := range []codegen.Term{n.Pattern.V1, n.Pattern.V2, n.Pattern.V3} {
				if t.IsVar {
					out[t.Var] = true
				}
			}
		}
		if n.Join != nil {
			walk(n.Join.Left)
			walk(n.Join.Right)
		}
	}
	walk(n)
	return out
}

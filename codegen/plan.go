// Package codegen implements C9: given a Plan and its QueryGraph,
// allocate registers, bind variables, and emit the operator tree wired
// to a runtime.Runtime. The planner itself (cost-based enumeration) is
// out of scope (spec §1); this package only translates an already-chosen
// plan shape into executable operators.
package codegen

import "github.com/intellect4all/triplecore/common"

// Term is one column of a pattern node: either a bound constant or a
// named variable.
type Term struct {
	IsVar bool
	Var   string
	Const common.ID
}

func ConstTerm(id common.ID) Term { return Term{Const: id} }
func VarTerm(name string) Term    { return Term{IsVar: true, Var: name} }

// PatternNode is one triple pattern, scanned over the permutation that
// best matches its bound columns (chosen by the planner, out of scope
// here; this package assumes Perm has already been picked).
type PatternNode struct {
	Perm       common.Permutation
	V1, V2, V3 Term
}

// JoinKind names which physical join a JoinNode should become.
type JoinKind int

const (
	JoinMerge JoinKind = iota
	JoinHash
	JoinNestedLoop
)

// JoinNode combines two plan subtrees on their shared variables.
type JoinNode struct {
	Kind        JoinKind
	Left, Right *PlanNode
}

// PlanNode is a tagged union: exactly one of Pattern/Join is non-nil.
type PlanNode struct {
	Pattern *PatternNode
	Join    *JoinNode
}

// OrderSpec names one ORDER BY column.
type OrderSpec struct {
	Var        string
	Descending bool
}

// QueryGraph is the translation unit C9 consumes: the chosen plan tree,
// the variables that must survive to the output, and an optional order.
type QueryGraph struct {
	Root       *PlanNode
	Projection []string
	Order      []OrderSpec
}

package refquery

import (
	"io"

	"github.com/intellect4all/triplecore/codegen"
	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/operator"
	"github.com/intellect4all/triplecore/operator/predicate"
	"github.com/intellect4all/triplecore/queryerr"
	"github.com/intellect4all/triplecore/runtime"
)

// Execute translates plan's branches through codegen, wraps each with its
// filters, unions them if there is more than one, applies ORDER BY (to a
// single-branch plan only: the planner sets no Order for a UNION) and
// LIMIT, and drives the result through a ResultsPrinter writing to w.
func Execute(rt *runtime.Runtime, db operator.Database, dict operator.Dictionary, plan *Plan, resolve func(string) common.ID, w io.Writer, policy operator.DuplicatePolicy) (int, error) {
	ro := operator.RT{R: rt}

	if len(plan.Branches) == 1 {
		op, binds, err := codegen.Translate(rt, db, plan.Branches[0])
		if err != nil {
			return 0, queryerr.Wrap(queryerr.Plan, err, "translate query graph")
		}
		op, err = wrapFilters(ro, op, plan.BranchFilters[0], binds, resolve)
		if err != nil {
			return 0, err
		}
		if len(plan.Order) > 0 {
			op = wrapOrder(ro, op, plan.Order, binds, plan.Projection)
		}
		regs := projectionRegs(binds, plan.Projection)
		printer := operator.NewResultsPrinter(ro, op, regs, dict, w, policy)
		printer.SetLimit(plan.Limit)
		return printer.Run()
	}

	outRegs := make([]int, len(plan.Projection))
	base := rt.AllocateRegisters(len(plan.Projection))
	for i := range plan.Projection {
		outRegs[i] = base + i
	}

	children := make([]operator.UnionChild, 0, len(plan.Branches))
	for i, qg := range plan.Branches {
		op, binds, err := codegen.Translate(rt, db, qg)
		if err != nil {
			return 0, queryerr.Wrap(queryerr.Plan, err, "translate union branch")
		}
		op, err = wrapFilters(ro, op, plan.BranchFilters[i], binds, resolve)
		if err != nil {
			return 0, err
		}
		var copies []operator.CopyPair
		var unbinds []int
		for j, v := range plan.Projection {
			if reg, ok := binds[v]; ok {
				copies = append(copies, operator.CopyPair{From: reg, To: outRegs[j]})
			} else {
				unbinds = append(unbinds, outRegs[j])
			}
		}
		children = append(children, operator.UnionChild{Op: op, Copies: copies, Unbinds: unbinds})
	}

	union := operator.NewUnion(ro, children)
	printer := operator.NewResultsPrinter(ro, union, outRegs, dict, w, policy)
	printer.SetLimit(plan.Limit)
	return printer.Run()
}

func projectionRegs(binds map[string]int, projection []string) []int {
	regs := make([]int, len(projection))
	for i, v := range projection {
		regs[i] = binds[v]
	}
	return regs
}

func wrapOrder(ro operator.RT, op operator.Operator, order []OrderTerm, binds map[string]int, projection []string) operator.Operator {
	regs := projectionRegs(binds, projection)
	keys := make([]operator.SortKey, len(order))
	for i, o := range order {
		idx := 0
		for j, r := range regs {
			if r == binds[o.Var] {
				idx = j
				break
			}
		}
		keys[i] = operator.SortKey{Reg: idx, Descending: o.Descending}
	}
	return operator.NewSort(ro, op, regs, keys)
}

func wrapFilters(ro operator.RT, op operator.Operator, filters []*FilterExpr, binds map[string]int, resolve func(string) common.ID) (operator.Operator, error) {
	if len(filters) == 0 {
		return op, nil
	}
	var pred *predicate.Node
	for _, f := range filters {
		node, err := compileFilter(f, binds, resolve)
		if err != nil {
			return nil, err
		}
		if pred == nil {
			pred = node
		} else {
			pred = &predicate.Node{Kind: predicate.And, Children: []*predicate.Node{pred, node}}
		}
	}
	return operator.NewSelection(ro, op, pred), nil
}

func compileFilter(f *FilterExpr, binds map[string]int, resolve func(string) common.ID) (*predicate.Node, error) {
	switch f.Op {
	case OpAnd, OpOr:
		left, err := compileFilter(f.Children[0], binds, resolve)
		if err != nil {
			return nil, err
		}
		right, err := compileFilter(f.Children[1], binds, resolve)
		if err != nil {
			return nil, err
		}
		kind := predicate.And
		if f.Op == OpOr {
			kind = predicate.Or
		}
		return &predicate.Node{Kind: kind, Children: []*predicate.Node{left, right}}, nil
	case OpNot:
		child, err := compileFilter(f.Children[0], binds, resolve)
		if err != nil {
			return nil, err
		}
		return &predicate.Node{Kind: predicate.Not, Children: []*predicate.Node{child}}, nil
	case OpEqual, OpNotEqual:
		left, err := compileTerm(f.Left, binds, resolve)
		if err != nil {
			return nil, err
		}
		right, err := compileTerm(f.Right, binds, resolve)
		if err != nil {
			return nil, err
		}
		kind := predicate.Equal
		if f.Op == OpNotEqual {
			kind = predicate.NotEqual
		}
		return &predicate.Node{Kind: kind, Children: []*predicate.Node{left, right}}, nil
	default:
		return nil, queryerr.New(queryerr.Semantic, "unsupported filter operator")
	}
}

func compileTerm(t Term, binds map[string]int, resolve func(string) common.ID) (*predicate.Node, error) {
	if t.IsVar {
		reg, ok := binds[t.Var]
		if !ok {
			return nil, queryerr.New(queryerr.Semantic, "filter references unbound variable ?"+t.Var)
		}
		return &predicate.Node{Kind: predicate.VarRef, Reg: reg}, nil
	}
	return &predicate.Node{Kind: predicate.ConstantIRI, Const: predicate.Value{Kind: predicate.IRI, ID: resolve(t.Value)}}, nil
}

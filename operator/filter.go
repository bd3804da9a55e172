package operator

import (
	"sort"

	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/operator/predicate"
)

// Filter is the value-in-set fast path: var = const, var != const, and
// var IN {consts}, without the general predicate tree's evaluation
// overhead.
type Filter struct {
	rt
	base
	child  Operator
	reg    int
	set    []common.ID
	negate bool
}

// NewFilter builds a membership filter: tuples whose reg value is in set
// pass (or fail, if negate).
func NewFilter(o runtimeOf, child Operator, reg int, set []common.ID, negate bool) *Filter {
	return &Filter{rt: o.asRt(), base: base{label: "Filter"}, child: child, reg: reg, set: set, negate: negate}
}

func (f *Filter) matches() bool {
	v := f.rt.reg(f.reg).Value
	in := false
	for _, c := range f.set {
		if c == v {
			in = true
			break
		}
	}
	return in != f.negate
}

func (f *Filter) First() (uint32, error) {
	m, err := f.child.First()
	for err == nil && m != 0 && !f.matches() {
		m, err = f.child.Next()
	}
	return m, err
}

func (f *Filter) Next() (uint32, error) {
	m, err := f.child.Next()
	for err == nil && m != 0 && !f.matches() {
		m, err = f.child.Next()
	}
	return m, err
}

func (f *Filter) AddMergeHint(regA, regB int) { f.child.AddMergeHint(regA, regB) }

// Selection evaluates a predicate tree over current register values,
// passing through tuples where it evaluates to a true Bool.
type Selection struct {
	rt
	base
	child Operator
	pred  *predicate.Node
}

func NewSelection(o runtimeOf, child Operator, pred *predicate.Node) *Selection {
	return &Selection{rt: o.asRt(), base: base{label: "Selection"}, child: child, pred: pred}
}

func (s *Selection) ok() bool {
	v := predicate.Eval(s.pred, s.rt.runtime)
	return v.Kind == predicate.Bool && v.B
}

func (s *Selection) First() (uint32, error) {
	m, err := s.child.First()
	for err == nil && m != 0 && !s.ok() {
		m, err = s.child.Next()
	}
	return m, err
}

func (s *Selection) Next() (uint32, error) {
	m, err := s.child.Next()
	for err == nil && m != 0 && !s.ok() {
		m, err = s.child.Next()
	}
	return m, err
}

func (s *Selection) AddMergeHint(regA, regB int) { s.child.AddMergeHint(regA, regB) }

// HashGroupify materializes child output, groups by every register in
// regs, and emits each distinct group once with its count as
// multiplicity.
type HashGroupify struct {
	rt
	base
	child Operator
	regs  []int
	rows  []groupRow
	pos   int
}

type groupRow struct {
	key   []common.ID
	count uint32
}

func NewHashGroupify(o runtimeOf, child Operator, regs []int) *HashGroupify {
	return &HashGroupify{rt: o.asRt(), base: base{label: "HashGroupify"}, child: child, regs: regs}
}

func (g *HashGroupify) materialize() error {
	groups := make(map[string]*groupRow)
	var order []string
	m, err := g.child.First()
	for ; m != 0; m, err = g.child.Next() {
		if err != nil {
			return err
		}
		key := make([]common.ID, len(g.regs))
		for i, r := range g.regs {
			key[i] = g.reg(r).Value
		}
		k := groupKeyString(key)
		row, ok := groups[k]
		if !ok {
			row = &groupRow{key: key}
			groups[k] = row
			order = append(order, k)
		}
		row.count += m
	}
	if err != nil {
		return err
	}
	g.rows = g.rows[:0]
	for _, k := range order {
		g.rows = append(g.rows, *groups[k])
	}
	return nil
}

func groupKeyString(key []common.ID) string {
	b := make([]byte, len(key)*4)
	for i, id := range key {
		b[i*4] = byte(id >> 24)
		b[i*4+1] = byte(id >> 16)
		b[i*4+2] = byte(id >> 8)
		b[i*4+3] = byte(id)
	}
	return string(b)
}

func (g *HashGroupify) First() (uint32, error) {
	if err := g.materialize(); err != nil {
		return 0, err
	}
	g.pos = 0
	return g.emit()
}

func (g *HashGroupify) Next() (uint32, error) {
	g.pos++
	return g.emit()
}

func (g *HashGroupify) emit() (uint32, error) {
	if g.pos >= len(g.rows) {
		return 0, nil
	}
	row := g.rows[g.pos]
	for i, r := range g.regs {
		g.reg(r).Set(row.key[i])
	}
	return row.count, nil
}

func (g *HashGroupify) AddMergeHint(int, int) {}

// NestedLoopFilter binds reg to each of a sorted list of values in turn,
// re-executing child (which is expected to read reg) for each binding.
type NestedLoopFilter struct {
	rt
	base
	child  Operator
	reg    int
	values []common.ID
	vi     int
	childM uint32
}

func NewNestedLoopFilter(o runtimeOf, child Operator, reg int, values []common.ID) *NestedLoopFilter {
	return &NestedLoopFilter{rt: o.asRt(), base: base{label: "NestedLoopFilter"}, child: child, reg: reg, values: values}
}

func (n *NestedLoopFilter) First() (uint32, error) {
	n.vi = 0
	return n.startAt(0)
}

func (n *NestedLoopFilter) startAt(vi int) (uint32, error) {
	for vi < len(n.values) {
		n.reg(n.reg).Set(n.values[vi])
		m, err := n.child.First()
		if err != nil {
			return 0, err
		}
		if m != 0 {
			n.vi = vi
			n.childM = m
			return m, nil
		}
		vi++
	}
	n.vi = vi
	return 0, nil
}

func (n *NestedLoopFilter) Next() (uint32, error) {
	m, err := n.child.Next()
	if err != nil {
		return 0, err
	}
	if m != 0 {
		return m, nil
	}
	return n.startAt(n.vi + 1)
}

func (n *NestedLoopFilter) AddMergeHint(regA, regB int) { n.child.AddMergeHint(regA, regB) }

// TableFunction invokes a named function over per-tuple inputs, binding
// one or more output registers per result row and emitting every row.
type TableFunction struct {
	rt
	base
	child   Operator
	inRegs  []int
	outRegs []int
	fn      func(in []common.ID) [][]common.ID
	rows    [][]common.ID
	pos     int
}

func NewTableFunction(o runtimeOf, child Operator, inRegs, outRegs []int, fn func(in []common.ID) [][]common.ID) *TableFunction {
	return &TableFunction{rt: o.asRt(), base: base{label: "TableFunction"}, child: child, inRegs: inRegs, outRegs: outRegs, fn: fn}
}

func (t *TableFunction) load() (uint32, error) {
	in := make([]common.ID, len(t.inRegs))
	for i, r := range t.inRegs {
		in[i] = t.reg(r).Value
	}
	t.rows = t.fn(in)
	t.pos = 0
	return t.emit()
}

func (t *TableFunction) emit() (uint32, error) {
	if t.pos >= len(t.rows) {
		return 0, nil
	}
	row := t.rows[t.pos]
	for i, r := range t.outRegs {
		t.reg(r).Set(row[i])
	}
	return 1, nil
}

func (t *TableFunction) First() (uint32, error) {
	m, err := t.child.First()
	if err != nil || m == 0 {
		return 0, err
	}
	return t.load()
}

func (t *TableFunction) Next() (uint32, error) {
	t.pos++
	m, err := t.emit()
	if err != nil {
		return 0, err
	}
	if m != 0 {
		return m, nil
	}
	cm, err := t.child.Next()
	if err != nil || cm == 0 {
		return 0, err
	}
	return t.load()
}

func (t *TableFunction) AddMergeHint(int, int) {}

// Sort materializes child output into a row buffer and streams it back
// out ordered by a declared (register, descending) list, stably.
type Sort struct {
	rt
	base
	child Operator
	keys  []SortKey
	rows  [][]common.ID
	regs  []int
	pos   int
}

// SortKey names one ordering column: Reg is its index among Sort's
// tracked registers (see NewSort), Descending reverses its comparison.
type SortKey struct {
	Reg        int
	Descending bool
}

// NewSort builds a sort over child, tracking every register named in
// keys or regs (regs lists every output column to carry through, keys
// lists the ordering columns among them).
func NewSort(o runtimeOf, child Operator, regs []int, keys []SortKey) *Sort {
	return &Sort{rt: o.asRt(), base: base{label: "Sort"}, child: child, keys: keys, regs: regs}
}

func (s *Sort) materialize() error {
	var rows [][]common.ID
	m, err := s.child.First()
	for ; m != 0; m, err = s.child.Next() {
		if err != nil {
			return err
		}
		row := make([]common.ID, len(s.regs))
		for i, r := range s.regs {
			row[i] = s.reg(r).Value
		}
		rows = append(rows, row)
	}
	if err != nil {
		return err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range s.keys {
			a, b := rows[i][k.Reg], rows[j][k.Reg]
			if a == b {
				continue
			}
			if k.Descending {
				return a > b
			}
			return a < b
		}
		return false
	})
	s.rows = rows
	return nil
}

func (s *Sort) First() (uint32, error) {
	if err := s.materialize(); err != nil {
		return 0, err
	}
	s.pos = 0
	return s.emit()
}

func (s *Sort) Next() (uint32, error) {
	s.pos++
	return s.emit()
}

func (s *Sort) emit() (uint32, error) {
	if s.pos >= len(s.rows) {
		return 0, nil
	}
	row := s.rows[s.pos]
	for i, r := range s.regs {
		s.reg(r).Set(row[i])
	}
	return 1, nil
}

func (s *Sort) AddMergeHint(int, int) {}

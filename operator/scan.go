package operator

import (
	"fmt"

	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/runtime"
)

// BindMode names whether a scan column is constrained by a register's
// current value (a prefix-bound or filter-only equality) or free (an
// output column the scan binds as it iterates). Spec §4.6 calls for a
// statically specialized variant per (bound1, bound2, bound3)
// combination; this core expresses the same seven live combinations as
// one IndexScan parameterised by a [3]BindMode instead of seven structs,
// since Go's interface dispatch already avoids the virtual-call cost the
// original static specialization targeted.
type BindMode int

const (
	Free BindMode = iota
	Prefix
	Filter
)

// IndexScan binds up to three registers from the current triple of perm,
// honoring Prefix columns by descending the tree to a start key and
// stopping once the prefix no longer matches, and Filter columns by
// pulling every tuple and discarding mismatches.
type IndexScan struct {
	rt
	base
	perm    common.Permutation
	db      FactsScanner
	modes   [3]BindMode
	regs    [3]int // register index for each column (read for Prefix/Filter, bound for Free)
	scan    Scan3
	prefLen int // number of leading Prefix columns (for stop-on-mismatch)
}

// NewIndexScan builds a scan over perm's triple index. modes[i] ==
// Filter requires regs[i] to already be bound when First is called;
// modes[i] == Prefix requires every earlier column to also be Prefix
// (spec's prefix-bound contract); modes[i] == Free binds regs[i] as the
// scan advances.
func NewIndexScan(rt runtimeOf, db FactsScanner, perm common.Permutation, modes [3]BindMode, regs [3]int) *IndexScan {
	prefLen := 0
	for i := 0; i < 3; i++ {
		if modes[i] == Prefix && prefLen == i {
			prefLen++
		}
	}
	return &IndexScan{rt: rt.asRt(), base: base{label: fmt.Sprintf("IndexScan(%s)", perm)}, perm: perm, db: db, modes: modes, regs: regs, prefLen: prefLen}
}

// runtimeOf lets callers pass either *runtime.Runtime or something that
// already wraps one, keeping construction call sites terse.
type runtimeOf interface{ asRt() rt }

// RT adapts a *runtime.Runtime to runtimeOf for operator constructors.
type RT struct{ R *runtime.Runtime }

func (o RT) asRt() rt { return rt{runtime: o.R} }

func (s *IndexScan) boundValues() (v1, v2, v3 common.ID) {
	vals := [3]common.ID{common.Unbound, common.Unbound, common.Unbound}
	for i := 0; i < 3; i++ {
		if s.modes[i] != Free {
			vals[i] = s.reg(s.regs[i]).Value
		}
	}
	return vals[0], vals[1], vals[2]
}

func (s *IndexScan) First() (uint32, error) {
	v1, v2, v3 := s.boundValues()
	// Filter-only columns don't narrow the start key; only a contiguous
	// prefix of Prefix columns does.
	startV2, startV3 := v2, v3
	if s.prefLen < 2 {
		startV2 = common.Unbound
	}
	if s.prefLen < 3 {
		startV3 = common.Unbound
	}
	startV1 := v1
	if s.prefLen < 1 {
		startV1 = common.Unbound
	}
	scan, err := s.db.First(startV1, startV2, startV3)
	if err != nil {
		return 0, err
	}
	s.scan = scan
	return s.advance(v1, v2, v3)
}

func (s *IndexScan) Next() (uint32, error) {
	v1, v2, v3 := s.boundValues()
	more, err := s.scan.Next()
	if err != nil || !more {
		return 0, err
	}
	return s.advanceFrom(v1, v2, v3)
}

// advance scans forward from the scan's current position (already
// Valid() after First) applying prefix-stop and filter-discard.
func (s *IndexScan) advance(v1, v2, v3 common.ID) (uint32, error) {
	for s.scan.Valid() {
		if ok, m := s.matches(v1, v2, v3); ok {
			return m, nil
		} else if s.prefixExhausted(v1, v2, v3) {
			return 0, nil
		}
		more, err := s.scan.Next()
		if err != nil {
			return 0, err
		}
		if !more {
			return 0, nil
		}
	}
	return 0, nil
}

func (s *IndexScan) advanceFrom(v1, v2, v3 common.ID) (uint32, error) {
	return s.advance(v1, v2, v3)
}

func (s *IndexScan) prefixExhausted(v1, v2, v3 common.ID) bool {
	if s.prefLen >= 1 && s.modes[0] == Prefix && s.scan.Value1() != v1 {
		return true
	}
	if s.prefLen >= 2 && s.modes[1] == Prefix && s.scan.Value2() != v2 {
		return true
	}
	if s.prefLen >= 3 && s.modes[2] == Prefix && s.scan.Value3() != v3 {
		return true
	}
	return false
}

func (s *IndexScan) matches(v1, v2, v3 common.ID) (bool, uint32) {
	if s.modes[0] != Free && s.scan.Value1() != v1 {
		return false, 0
	}
	if s.modes[1] != Free && s.scan.Value2() != v2 {
		return false, 0
	}
	if s.modes[2] != Free && s.scan.Value3() != v3 {
		return false, 0
	}
	s.reg(s.regs[0]).Set(s.scan.Value1())
	s.reg(s.regs[1]).Set(s.scan.Value2())
	s.reg(s.regs[2]).Set(s.scan.Value3())
	return true, 1
}

// AggregatedIndexScan emits (v1, v2) with multiplicity = stored count.
type AggregatedIndexScan struct {
	rt
	base
	db    AggScanner
	mode1 BindMode
	reg1  int
	reg2  int
	scan  Scan2
}

func NewAggregatedIndexScan(o runtimeOf, db AggScanner, perm common.Permutation, mode1 BindMode, reg1, reg2 int) *AggregatedIndexScan {
	return &AggregatedIndexScan{rt: o.asRt(), base: base{label: fmt.Sprintf("AggregatedIndexScan(%s)", perm)}, db: db, mode1: mode1, reg1: reg1, reg2: reg2}
}

func (s *AggregatedIndexScan) First() (uint32, error) {
	v1 := common.ID(common.Unbound)
	if s.mode1 != Free {
		v1 = s.reg(s.reg1).Value
	}
	scan, err := s.db.First(v1, common.Unbound)
	if err != nil {
		return 0, err
	}
	s.scan = scan
	return s.emit(v1)
}

func (s *AggregatedIndexScan) Next() (uint32, error) {
	v1 := common.ID(common.Unbound)
	if s.mode1 != Free {
		v1 = s.reg(s.reg1).Value
	}
	more, err := s.scan.Next()
	if err != nil || !more {
		return 0, err
	}
	return s.emit(v1)
}

func (s *AggregatedIndexScan) emit(v1 common.ID) (uint32, error) {
	for s.scan.Valid() {
		if s.mode1 == Prefix && s.scan.Value1() != v1 {
			return 0, nil
		}
		if s.mode1 != Filter || s.scan.Value1() == v1 {
			s.reg(s.reg1).Set(s.scan.Value1())
			s.reg(s.reg2).Set(s.scan.Value2())
			return s.scan.Count(), nil
		}
		more, err := s.scan.Next()
		if err != nil {
			return 0, err
		}
		if !more {
			return 0, nil
		}
	}
	return 0, nil
}

// FullyAggregatedIndexScan emits v1 with multiplicity = stored count.
type FullyAggregatedIndexScan struct {
	rt
	base
	db   FullAggScanner
	reg1 int
	scan Scan1
}

func NewFullyAggregatedIndexScan(o runtimeOf, db FullAggScanner, perm common.Permutation, reg1 int) *FullyAggregatedIndexScan {
	return &FullyAggregatedIndexScan{rt: o.asRt(), base: base{label: fmt.Sprintf("FullyAggregatedIndexScan(%s)", perm)}, db: db, reg1: reg1}
}

func (s *FullyAggregatedIndexScan) First() (uint32, error) {
	scan, err := s.db.First(common.Unbound)
	if err != nil {
		return 0, err
	}
	s.scan = scan
	if !s.scan.Valid() {
		return 0, nil
	}
	s.reg(s.reg1).Set(s.scan.Value1())
	return s.scan.Count(), nil
}

func (s *FullyAggregatedIndexScan) Next() (uint32, error) {
	more, err := s.scan.Next()
	if err != nil || !more {
		return 0, err
	}
	s.reg(s.reg1).Set(s.scan.Value1())
	return s.scan.Count(), nil
}

// SingletonScan produces exactly one empty tuple, used as the left input
// of a plan with no FROM clause (a query over only constants).
type SingletonScan struct {
	base
	done bool
}

func NewSingletonScan() *SingletonScan { return &SingletonScan{base: base{label: "SingletonScan"}} }

func (s *SingletonScan) First() (uint32, error) { s.done = false; return 1, nil }
func (s *SingletonScan) Next() (uint32, error) {
	if s.done {
		return 0, nil
	}
	s.done = true
	return 0, nil
}

// EmptyScan produces nothing; used when the planner proves a subtree is
// unsatisfiable (e.g. a constant-constant mismatch) without needing a
// real storage access.
type EmptyScan struct{ base }

func NewEmptyScan() *EmptyScan              { return &EmptyScan{base: base{label: "EmptyScan"}} }
func (s *EmptyScan) First() (uint32, error) { return 0, nil }
func (s *EmptyScan) Next() (uint32, error)  { return 0, nil }

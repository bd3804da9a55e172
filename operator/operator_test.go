package operator

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/runtime"
)

type stubDatabase struct{}

func (stubDatabase) Name() string { return "stub" }

func newTestRuntime(t *testing.T, nregs int) *runtime.Runtime {
	t.Helper()
	rt := runtime.New(stubDatabase{}, nil)
	rt.AllocateRegisters(nregs)
	return rt
}

// sliceOp feeds a fixed (value, multiplicity) sequence into one register,
// standing in for an IndexScan in tests that only exercise join/union/
// filter/sort logic above the scan layer.
type sliceOp struct {
	rt
	base
	regIdx int
	vals   []common.ID
	muls   []uint32
	pos    int
}

func newSliceOp(o runtimeOf, regIdx int, vals []common.ID, muls []uint32) *sliceOp {
	return &sliceOp{rt: o.asRt(), base: base{label: "sliceOp"}, regIdx: regIdx, vals: vals, muls: muls}
}

func (s *sliceOp) First() (uint32, error) { s.pos = 0; return s.emit() }
func (s *sliceOp) Next() (uint32, error)  { s.pos++; return s.emit() }
func (s *sliceOp) emit() (uint32, error) {
	if s.pos >= len(s.vals) {
		return 0, nil
	}
	s.reg(s.regIdx).Set(s.vals[s.pos])
	return s.muls[s.pos], nil
}

func TestMergeJoinEmitsMatchingKeys(t *testing.T) {
	rt := newTestRuntime(t, 2)
	o := RT{R: rt}
	left := newSliceOp(o, 0, []common.ID{1, 2, 3}, []uint32{1, 1, 1})
	right := newSliceOp(o, 1, []common.ID{2, 3, 4}, []uint32{1, 1, 1})
	j := NewMergeJoin(o, left, right, 0, 1)

	var seen []common.ID
	m, err := j.First()
	require.NoError(t, err)
	for m != 0 {
		seen = append(seen, rt.GetRegister(0).Value)
		m, err = j.Next()
		require.NoError(t, err)
	}
	require.Equal(t, []common.ID{2, 3}, seen)
}

func TestHashJoinEmitsMatchingKeysWithAux(t *testing.T) {
	rt := newTestRuntime(t, 2)
	o := RT{R: rt}
	build := newSliceOp(o, 0, []common.ID{1, 2, 2}, []uint32{1, 1, 1})
	probe := newSliceOp(o, 1, []common.ID{2, 5}, []uint32{1, 1})
	j := NewHashJoin(o, build, probe, 0, 1, []int{0}, 8)

	var count int
	m, err := j.First()
	require.NoError(t, err)
	for m != 0 {
		count++
		require.Equal(t, common.ID(2), rt.GetRegister(0).Value)
		m, err = j.Next()
		require.NoError(t, err)
	}
	require.Equal(t, 2, count) // two build-side rows keyed 2
}

func TestNestedLoopJoinProducesCartesianProduct(t *testing.T) {
	rt := newTestRuntime(t, 2)
	o := RT{R: rt}
	left := newSliceOp(o, 0, []common.ID{1, 2}, []uint32{1, 1})
	right := newSliceOp(o, 1, []common.ID{10, 20}, []uint32{1, 1})
	j := NewNestedLoopJoin(o, left, right)

	var pairs [][2]common.ID
	m, err := j.First()
	require.NoError(t, err)
	for m != 0 {
		pairs = append(pairs, [2]common.ID{rt.GetRegister(0).Value, rt.GetRegister(1).Value})
		m, err = j.Next()
		require.NoError(t, err)
	}
	require.Len(t, pairs, 4)
}

func TestUnionConcatenatesChildren(t *testing.T) {
	rt := newTestRuntime(t, 2)
	o := RT{R: rt}
	left := newSliceOp(o, 0, []common.ID{1, 2}, []uint32{1, 1})
	right := newSliceOp(o, 0, []common.ID{3}, []uint32{1})
	u := NewUnion(o, []UnionChild{{Op: left}, {Op: right}})

	var got []common.ID
	m, err := u.First()
	require.NoError(t, err)
	for m != 0 {
		got = append(got, rt.GetRegister(0).Value)
		m, err = u.Next()
		require.NoError(t, err)
	}
	require.Equal(t, []common.ID{1, 2, 3}, got)
}

func TestMergeUnionCombinesTiedKeys(t *testing.T) {
	rt := newTestRuntime(t, 3)
	o := RT{R: rt}
	left := newSliceOp(o, 0, []common.ID{1, 2}, []uint32{1, 1})
	right := newSliceOp(o, 1, []common.ID{2, 3}, []uint32{1, 1})
	u := NewMergeUnion(o, left, right, 0, 1, 2)

	type row struct {
		key common.ID
		mul uint32
	}
	var got []row
	m, err := u.First()
	require.NoError(t, err)
	for m != 0 {
		got = append(got, row{rt.GetRegister(2).Value, m})
		m, err = u.Next()
		require.NoError(t, err)
	}
	require.Equal(t, []row{{1, 1}, {2, 2}, {3, 1}}, got)
}

func TestSortOrdersDescending(t *testing.T) {
	rt := newTestRuntime(t, 1)
	o := RT{R: rt}
	child := newSliceOp(o, 0, []common.ID{3, 1, 2}, []uint32{1, 1, 1})
	s := NewSort(o, child, []int{0}, []SortKey{{Reg: 0, Descending: true}})

	var got []common.ID
	m, err := s.First()
	require.NoError(t, err)
	for m != 0 {
		got = append(got, rt.GetRegister(0).Value)
		m, err = s.Next()
		require.NoError(t, err)
	}
	require.Equal(t, []common.ID{3, 2, 1}, got)
}

type stubDict struct{ text map[common.ID]string }

func (d stubDict) LookupByID(id common.ID) (string, bool, error) {
	t, ok := d.text[id]
	return t, ok, nil
}

func TestResultsPrinterRespectsLimit(t *testing.T) {
	rt := newTestRuntime(t, 1)
	o := RT{R: rt}
	child := newSliceOp(o, 0, []common.ID{1, 2, 3}, []uint32{1, 1, 1})
	d := stubDict{text: map[common.ID]string{1: "a", 2: "b", 3: "c"}}
	var buf bytes.Buffer
	p := NewResultsPrinter(o, child, []int{0}, d, &buf, ExpandDuplicates)
	p.SetLimit(2)

	n, err := p.Run()
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestResultsPrinterExpandsDuplicates(t *testing.T) {
	rt := newTestRuntime(t, 1)
	o := RT{R: rt}
	child := newSliceOp(o, 0, []common.ID{1}, []uint32{3})
	d := stubDict{text: map[common.ID]string{1: "a"}}
	var buf bytes.Buffer
	p := NewResultsPrinter(o, child, []int{0}, d, &buf, ExpandDuplicates)

	n, err := p.Run()
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

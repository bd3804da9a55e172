package operator

import (
	"github.com/cespare/xxhash/v2"

	"github.com/intellect4all/triplecore/common"
)

// MergeJoin inputs are ordered by a shared key register; it walks both
// children in lockstep, grouping tie runs on the side whose key repeats
// so every combination within a tie group is emitted once.
type MergeJoin struct {
	rt
	base
	left, right   Operator
	leftKeyReg    int
	rightKeyReg   int
	leftMul       uint32
	rightMul      uint32
	rightGroupVal common.ID
	rightGroup    []uint32 // saved multiplicities for re-walking a tie group
	rightGroupPos int
	started       bool
}

func NewMergeJoin(o runtimeOf, left, right Operator, leftKeyReg, rightKeyReg int) *MergeJoin {
	return &MergeJoin{rt: o.asRt(), base: base{label: "MergeJoin"}, left: left, right: right, leftKeyReg: leftKeyReg, rightKeyReg: rightKeyReg}
}

func (j *MergeJoin) First() (uint32, error) {
	lm, err := j.left.First()
	if err != nil {
		return 0, err
	}
	rm, err := j.right.First()
	if err != nil {
		return 0, err
	}
	j.leftMul, j.rightMul = lm, rm
	j.started = true
	return j.align()
}

func (j *MergeJoin) Next() (uint32, error) {
	if !j.started {
		return j.First()
	}
	return j.advanceRight()
}

// align advances whichever side has the smaller key until both sides
// agree, then reports the combined multiplicity.
func (j *MergeJoin) align() (uint32, error) {
	for j.leftMul != 0 && j.rightMul != 0 {
		lk := j.reg(j.leftKeyReg).Value
		rk := j.reg(j.rightKeyReg).Value
		switch {
		case lk < rk:
			m, err := j.left.Next()
			if err != nil {
				return 0, err
			}
			j.leftMul = m
		case lk > rk:
			m, err := j.right.Next()
			if err != nil {
				return 0, err
			}
			j.rightMul = m
		default:
			return j.leftMul * j.rightMul, nil
		}
	}
	return 0, nil
}

// advanceRight steps the right side within the current tie group; once
// it runs out, steps the left side and re-aligns.
func (j *MergeJoin) advanceRight() (uint32, error) {
	m, err := j.right.Next()
	if err != nil {
		return 0, err
	}
	j.rightMul = m
	if j.rightMul != 0 && j.reg(j.rightKeyReg).Value == j.reg(j.leftKeyReg).Value {
		return j.leftMul * j.rightMul, nil
	}
	lm, err := j.left.Next()
	if err != nil {
		return 0, err
	}
	j.leftMul = lm
	return j.align()
}

func (j *MergeJoin) AddMergeHint(regA, regB int) {
	j.left.AddMergeHint(regA, regB)
	j.right.AddMergeHint(regA, regB)
}

// HashJoin builds an in-memory hash table on the smaller side (picked at
// construction by the caller, typically the planner) keyed by xxhash of
// the join register's value, then probes with the other side, re-walking
// matching build-side tuples for each probe tuple.
type HashJoin struct {
	rt
	base
	build, probe     Operator
	buildKeyReg      int
	probeKeyReg      int
	buildAuxRegs     []int
	memoryBudget     int
	table            map[uint64][]hashJoinRow
	probeMul         uint32
	matches          []hashJoinRow
	matchPos         int
}

type hashJoinRow struct {
	key  common.ID
	aux  []common.ID
	mult uint32
}

// NewHashJoin wires a hash join; buildAuxRegs names the build side's
// registers to materialize per row (its "tail of bindings", spec §4.6),
// and memoryBudget is an advisory row-count hint from construction.
func NewHashJoin(o runtimeOf, build, probe Operator, buildKeyReg, probeKeyReg int, buildAuxRegs []int, memoryBudget int) *HashJoin {
	return &HashJoin{rt: o.asRt(), base: base{label: "HashJoin"}, build: build, probe: probe, buildKeyReg: buildKeyReg, probeKeyReg: probeKeyReg, buildAuxRegs: buildAuxRegs, memoryBudget: memoryBudget}
}

func hashKey(id common.ID) uint64 {
	var b [4]byte
	b[0], b[1], b[2], b[3] = byte(id>>24), byte(id>>16), byte(id>>8), byte(id)
	return xxhash.Sum64(b[:])
}

func (j *HashJoin) buildTable() error {
	j.table = make(map[uint64][]hashJoinRow, j.memoryBudget)
	mul, err := j.build.First()
	for ; mul != 0; mul, err = j.build.Next() {
		if err != nil {
			return err
		}
		key := j.reg(j.buildKeyReg).Value
		aux := make([]common.ID, len(j.buildAuxRegs))
		for i, r := range j.buildAuxRegs {
			aux[i] = j.reg(r).Value
		}
		h := hashKey(key)
		j.table[h] = append(j.table[h], hashJoinRow{key: key, aux: aux, mult: mul})
	}
	return err
}

func (j *HashJoin) First() (uint32, error) {
	if err := j.buildTable(); err != nil {
		return 0, err
	}
	mul, err := j.probe.First()
	if err != nil {
		return 0, err
	}
	j.probeMul = mul
	return j.probeNext()
}

func (j *HashJoin) Next() (uint32, error) {
	if j.matchPos < len(j.matches) {
		return j.emitMatch()
	}
	mul, err := j.probe.Next()
	if err != nil {
		return 0, err
	}
	j.probeMul = mul
	return j.probeNext()
}

func (j *HashJoin) probeNext() (uint32, error) {
	for j.probeMul != 0 {
		key := j.reg(j.probeKeyReg).Value
		candidates := j.table[hashKey(key)]
		j.matches = j.matches[:0]
		for _, row := range candidates {
			if row.key == key {
				j.matches = append(j.matches, row)
			}
		}
		j.matchPos = 0
		if len(j.matches) > 0 {
			return j.emitMatch()
		}
		mul, err := j.probe.Next()
		if err != nil {
			return 0, err
		}
		j.probeMul = mul
	}
	return 0, nil
}

func (j *HashJoin) emitMatch() (uint32, error) {
	row := j.matches[j.matchPos]
	j.matchPos++
	for i, r := range j.buildAuxRegs {
		j.reg(r).Set(row.aux[i])
	}
	return row.mult * j.probeMul, nil
}

func (j *HashJoin) AddMergeHint(regA, regB int) {
	j.build.AddMergeHint(regA, regB)
	j.probe.AddMergeHint(regA, regB)
}

// NestedLoopJoin produces the Cartesian product of left and right,
// letting a wrapping Selection discard tuples that don't satisfy the
// join predicate.
type NestedLoopJoin struct {
	rt
	base
	left, right Operator
	leftMul     uint32
}

func NewNestedLoopJoin(o runtimeOf, left, right Operator) *NestedLoopJoin {
	return &NestedLoopJoin{rt: o.asRt(), base: base{label: "NestedLoopJoin"}, left: left, right: right}
}

func (j *NestedLoopJoin) First() (uint32, error) {
	lm, err := j.left.First()
	if err != nil {
		return 0, err
	}
	j.leftMul = lm
	if j.leftMul == 0 {
		return 0, nil
	}
	rm, err := j.right.First()
	if err != nil {
		return 0, err
	}
	if rm == 0 {
		return j.advanceLeft()
	}
	return j.leftMul * rm, nil
}

func (j *NestedLoopJoin) Next() (uint32, error) {
	rm, err := j.right.Next()
	if err != nil {
		return 0, err
	}
	if rm != 0 {
		return j.leftMul * rm, nil
	}
	return j.advanceLeft()
}

func (j *NestedLoopJoin) advanceLeft() (uint32, error) {
	for {
		lm, err := j.left.Next()
		if err != nil {
			return 0, err
		}
		j.leftMul = lm
		if j.leftMul == 0 {
			return 0, nil
		}
		rm, err := j.right.First()
		if err != nil {
			return 0, err
		}
		if rm != 0 {
			return j.leftMul * rm, nil
		}
	}
}

func (j *NestedLoopJoin) AddMergeHint(regA, regB int) {
	j.left.AddMergeHint(regA, regB)
	j.right.AddMergeHint(regA, regB)
}

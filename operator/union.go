package operator

// CopyPair is one (from, to) register copy a Union child needs to align
// its output with the union's output registers.
type CopyPair struct{ From, To int }

// UnionChild is one Union input plus the register-alignment mappings
// spec §4.6 describes: copies for registers the child produces, and a
// list of registers to reset to Unbound for ones it doesn't.
type UnionChild struct {
	Op      Operator
	Copies  []CopyPair
	Unbinds []int
}

// Union is a variable-width union of N children, aligning each child's
// output registers to the union's shared output registers per child.
type Union struct {
	rt
	base
	children []UnionChild
	idx      int
}

func NewUnion(o runtimeOf, children []UnionChild) *Union {
	return &Union{rt: o.asRt(), base: base{label: "Union"}, children: children}
}

func (u *Union) align(m uint32) uint32 {
	c := u.children[u.idx]
	for _, p := range c.Copies {
		u.reg(p.To).Set(u.reg(p.From).Value)
	}
	for _, r := range c.Unbinds {
		u.reg(r).Clear()
	}
	return m
}

func (u *Union) First() (uint32, error) {
	for u.idx = 0; u.idx < len(u.children); u.idx++ {
		m, err := u.children[u.idx].Op.First()
		if err != nil {
			return 0, err
		}
		if m != 0 {
			return u.align(m), nil
		}
	}
	return 0, nil
}

func (u *Union) Next() (uint32, error) {
	if u.idx >= len(u.children) {
		return 0, nil
	}
	m, err := u.children[u.idx].Op.Next()
	if err != nil {
		return 0, err
	}
	if m != 0 {
		return u.align(m), nil
	}
	for u.idx++; u.idx < len(u.children); u.idx++ {
		m, err := u.children[u.idx].Op.First()
		if err != nil {
			return 0, err
		}
		if m != 0 {
			return u.align(m), nil
		}
	}
	return 0, nil
}

func (u *Union) AddMergeHint(regA, regB int) {
	for _, c := range u.children {
		c.Op.AddMergeHint(regA, regB)
	}
}

// mergeUnionState is one of MergeUnion's six control states.
type mergeUnionState int

const (
	stepLeft mergeUnionState = iota
	stepRight
	stepBoth
	leftEmpty
	rightEmpty
	done
)

// MergeUnion is an ordered two-way union over a shared key register: a
// multiset union where a tied key on both sides emits one tuple carrying
// the combined multiplicity.
type MergeUnion struct {
	rt
	base
	left, right           Operator
	leftKeyReg, rightKeyReg, outKeyReg int
	leftMul               uint32
	rightMul              uint32
	state                 mergeUnionState
}

// NewMergeUnion wires a merge-union over left and right, each already
// sorted by its own copy of the shared key (leftKeyReg, rightKeyReg);
// the winning side's key is copied into outKeyReg so downstream
// operators see one consistent output column.
func NewMergeUnion(o runtimeOf, left, right Operator, leftKeyReg, rightKeyReg, outKeyReg int) *MergeUnion {
	return &MergeUnion{rt: o.asRt(), base: base{label: "MergeUnion"}, left: left, right: right, leftKeyReg: leftKeyReg, rightKeyReg: rightKeyReg, outKeyReg: outKeyReg}
}

func (u *MergeUnion) First() (uint32, error) {
	lm, err := u.left.First()
	if err != nil {
		return 0, err
	}
	rm, err := u.right.First()
	if err != nil {
		return 0, err
	}
	u.leftMul, u.rightMul = lm, rm
	return u.settle()
}

func (u *MergeUnion) Next() (uint32, error) {
	switch u.state {
	case stepLeft:
		m, err := u.left.Next()
		if err != nil {
			return 0, err
		}
		u.leftMul = m
	case stepRight:
		m, err := u.right.Next()
		if err != nil {
			return 0, err
		}
		u.rightMul = m
	case stepBoth:
		lm, err := u.left.Next()
		if err != nil {
			return 0, err
		}
		rm, err := u.right.Next()
		if err != nil {
			return 0, err
		}
		u.leftMul, u.rightMul = lm, rm
	case leftEmpty:
		m, err := u.right.Next()
		if err != nil {
			return 0, err
		}
		u.rightMul = m
	case rightEmpty:
		m, err := u.left.Next()
		if err != nil {
			return 0, err
		}
		u.leftMul = m
	case done:
		return 0, nil
	}
	return u.settle()
}

// settle picks the next state by comparing the two candidate keys and
// returns the multiplicity (and bound register value) for the current
// position.
func (u *MergeUnion) settle() (uint32, error) {
	if u.leftMul == 0 && u.rightMul == 0 {
		u.state = done
		return 0, nil
	}
	if u.leftMul == 0 {
		u.state = leftEmpty
		u.reg(u.outKeyReg).Set(u.reg(u.rightKeyReg).Value)
		return u.rightMul, nil
	}
	if u.rightMul == 0 {
		u.state = rightEmpty
		u.reg(u.outKeyReg).Set(u.reg(u.leftKeyReg).Value)
		return u.leftMul, nil
	}
	lk := u.reg(u.leftKeyReg).Value
	rk := u.reg(u.rightKeyReg).Value
	switch {
	case lk < rk:
		u.state = stepLeft
		u.reg(u.outKeyReg).Set(lk)
		return u.leftMul, nil
	case lk > rk:
		u.state = stepRight
		u.reg(u.outKeyReg).Set(rk)
		return u.rightMul, nil
	default:
		u.state = stepBoth
		u.reg(u.outKeyReg).Set(lk)
		return u.leftMul + u.rightMul, nil
	}
}

func (u *MergeUnion) AddMergeHint(regA, regB int) {
	u.left.AddMergeHint(regA, regB)
	u.right.AddMergeHint(regA, regB)
}

package predicate

import (
	"testing"

	"github.com/stretchr/testify/require"

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

func TestEvalEqualOnBoundRegisters(t *testing.T) {
	rt := newTestRuntime(t, 2)
	rt.GetRegister(0).Set(7)
	rt.GetRegister(1).Set(7)

	node := &Node{Kind: Equal, Children: []*Node{
		{Kind: VarRef, Reg: 0},
		{Kind: VarRef, Reg: 1},
	}}
	require.Equal(t, BoolValue(true), Eval(node, rt))
}

func TestEvalNotEqualAgainstConstant(t *testing.T) {
	rt := newTestRuntime(t, 1)
	rt.GetRegister(0).Set(5)

	node := &Node{Kind: NotEqual, Children: []*Node{
		{Kind: VarRef, Reg: 0},
		{Kind: ConstantIRI, Const: Value{Kind: IRI, ID: 9}},
	}}
	require.Equal(t, BoolValue(true), Eval(node, rt))
}

func TestEvalUnboundRegisterIsNull(t *testing.T) {
	rt := newTestRuntime(t, 1)
	node := &Node{Kind: VarRef, Reg: 0}
	require.Equal(t, NullValue(), Eval(node, rt))
}

func TestEvalComparisonWithNullOperandIsNull(t *testing.T) {
	rt := newTestRuntime(t, 1)
	node := &Node{Kind: Equal, Children: []*Node{
		{Kind: VarRef, Reg: 0}, // unbound -> Null
		{Kind: ConstantIRI, Const: Value{Kind: IRI, ID: 1}},
	}}
	require.Equal(t, NullValue(), Eval(node, rt))
}

func TestEvalAndShortCircuits(t *testing.T) {
	rt := newTestRuntime(t, 0)
	node := &Node{Kind: And, Children: []*Node{
		{Kind: TemporaryConstant, Const: BoolValue(false)},
		// A child that would panic if evaluated (nil Children on a binary op).
		{Kind: Equal},
	}}
	require.Equal(t, BoolValue(false), Eval(node, rt))
}

func TestEvalArithmetic(t *testing.T) {
	rt := newTestRuntime(t, 0)
	node := &Node{Kind: Plus, Children: []*Node{
		{Kind: TemporaryConstant, Const: NumValue(2)},
		{Kind: TemporaryConstant, Const: NumValue(3)},
	}}
	require.Equal(t, NumValue(5), Eval(node, rt))
}

func TestEvalDivisionByZeroIsNull(t *testing.T) {
	rt := newTestRuntime(t, 0)
	node := &Node{Kind: Div, Children: []*Node{
		{Kind: TemporaryConstant, Const: NumValue(1)},
		{Kind: TemporaryConstant, Const: NumValue(0)},
	}}
	require.Equal(t, NullValue(), Eval(node, rt))
}

func TestEvalBound(t *testing.T) {
	rt := newTestRuntime(t, 1)
	node := &Node{Kind: Bound, Reg: 0}
	require.Equal(t, BoolValue(false), Eval(node, rt))

	rt.GetRegister(0).Set(1)
	require.Equal(t, BoolValue(true), Eval(node, rt))
}

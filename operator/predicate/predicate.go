// Package predicate implements the selection predicate tree spec §4.7
// describes: a recursive, tagged-variant expression evaluated against a
// runtime's current register values. Values are small structs returned
// by value, so constants, register reads, comparisons and arithmetic do
// not allocate; LangMatches and Call allocate an argument slice on every
// evaluation. Null propagates through arithmetic, and boolean combinators
// short-circuit.
package predicate

import (
	"regexp"

	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/runtime"
)

// Kind tags the dynamic type a Value carries.
type Kind int

const (
	Null Kind = iota
	IRI
	Literal
	Bool
	Number
)

// Value is a tagged union produced by evaluating a Node: exactly one of
// the typed fields is meaningful, selected by Kind.
type Value struct {
	Kind Kind
	ID   common.ID // IRI / Literal: dictionary id
	B    bool
	N    float64
}

func NullValue() Value  { return Value{Kind: Null} }
func BoolValue(b bool) Value { return Value{Kind: Bool, B: b} }
func NumValue(n float64) Value { return Value{Kind: Number, N: n} }

// NodeKind names a predicate tree node's operation.
type NodeKind int

const (
	And NodeKind = iota
	Or
	Not
	Equal
	NotEqual
	Less
	LessOrEqual
	Plus
	Minus
	Mul
	Div
	Neg
	UnaryPlus
	ConstantIRI
	ConstantLiteral
	TemporaryConstant
	VarRef
	Str
	Lang
	LangMatches
	Datatype
	Bound
	SameTerm
	IsIRI
	IsBlank
	IsLiteral
	RegEx
	In
	Call
)

// Node is one predicate tree node. Children and Const are interpreted
// per Kind; unused fields are simply left zero.
type Node struct {
	Kind     NodeKind
	Children []*Node
	Reg      int      // VarRef: register index
	Const    Value    // ConstantIRI / ConstantLiteral / TemporaryConstant
	Set      []Value  // In: candidate set
	Pattern  *regexp.Regexp // RegEx: compiled pattern
	Name     string   // Call: function name; Datatype/Lang text carrier
	Fn       func([]Value) Value // Call: the bound function
}

// Eval evaluates node against rt's current register values.
func Eval(node *Node, rt *runtime.Runtime) Value {
	switch node.Kind {
	case And:
		l := Eval(node.Children[0], rt)
		if l.Kind == Bool && !l.B {
			return BoolValue(false)
		}
		r := Eval(node.Children[1], rt)
		if l.Kind != Bool || r.Kind != Bool {
			return NullValue()
		}
		return BoolValue(l.B && r.B)
	case Or:
		l := Eval(node.Children[0], rt)
		if l.Kind == Bool && l.B {
			return BoolValue(true)
		}
		r := Eval(node.Children[1], rt)
		if l.Kind != Bool || r.Kind != Bool {
			return NullValue()
		}
		return BoolValue(l.B || r.B)
	case Not:
		v := Eval(node.Children[0], rt)
		if v.Kind != Bool {
			return NullValue()
		}
		return BoolValue(!v.B)
	case Equal, NotEqual, Less, LessOrEqual:
		return evalCompare(node, rt)
	case Plus, Minus, Mul, Div, Neg, UnaryPlus:
		return evalArith(node, rt)
	case ConstantIRI, ConstantLiteral, TemporaryConstant:
		return node.Const
	case VarRef:
		r := rt.GetRegister(node.Reg)
		if !r.Bound {
			return NullValue()
		}
		return Value{Kind: IRI, ID: r.Value}
	case Bound:
		r := rt.GetRegister(node.Reg)
		return BoolValue(r.Bound)
	case SameTerm:
		l, r := Eval(node.Children[0], rt), Eval(node.Children[1], rt)
		return BoolValue(l.Kind == r.Kind && l.ID == r.ID)
	case IsIRI:
		v := Eval(node.Children[0], rt)
		return BoolValue(v.Kind == IRI)
	case IsLiteral:
		v := Eval(node.Children[0], rt)
		return BoolValue(v.Kind == Literal)
	case IsBlank:
		v := Eval(node.Children[0], rt)
		return BoolValue(v.Kind != Null && common.IsBlank(v.ID))
	case In:
		v := Eval(node.Children[0], rt)
		if v.Kind == Null {
			return NullValue()
		}
		for _, c := range node.Set {
			if c.Kind == v.Kind && c.ID == v.ID {
				return BoolValue(true)
			}
		}
		return BoolValue(false)
	case RegEx:
		v := Eval(node.Children[0], rt)
		if v.Kind == Null || node.Pattern == nil {
			return NullValue()
		}
		return BoolValue(node.Pattern.MatchString(node.Name))
	case LangMatches:
		// Text comparison (language range matching) needs the dictionary
		// to resolve ids to strings, which this package doesn't depend
		// on; node.Fn carries a dictionary-aware closure supplied by
		// whoever builds the node (codegen and refquery build none), and
		// the node evaluates to Null without one.
		args := make([]Value, len(node.Children))
		for i, c := range node.Children {
			args[i] = Eval(c, rt)
		}
		if node.Fn == nil {
			return NullValue()
		}
		return node.Fn(args)
	case Str, Lang, Datatype:
		return Eval(node.Children[0], rt)
	case Call:
		args := make([]Value, len(node.Children))
		for i, c := range node.Children {
			args[i] = Eval(c, rt)
		}
		if node.Fn == nil {
			return NullValue()
		}
		return node.Fn(args)
	default:
		return NullValue()
	}
}

func evalCompare(node *Node, rt *runtime.Runtime) Value {
	l := Eval(node.Children[0], rt)
	r := Eval(node.Children[1], rt)
	if l.Kind == Null || r.Kind == Null {
		return NullValue()
	}
	var cmp int
	switch {
	case l.Kind == Number && r.Kind == Number:
		switch {
		case l.N < r.N:
			cmp = -1
		case l.N > r.N:
			cmp = 1
		}
	default:
		switch {
		case l.ID < r.ID:
			cmp = -1
		case l.ID > r.ID:
			cmp = 1
		}
	}
	switch node.Kind {
	case Equal:
		return BoolValue(cmp == 0)
	case NotEqual:
		return BoolValue(cmp != 0)
	case Less:
		return BoolValue(cmp < 0)
	case LessOrEqual:
		return BoolValue(cmp <= 0)
	}
	return NullValue()
}

func evalArith(node *Node, rt *runtime.Runtime) Value {
	if node.Kind == Neg || node.Kind == UnaryPlus {
		v := Eval(node.Children[0], rt)
		if v.Kind != Number {
			return NullValue()
		}
		if node.Kind == Neg {
			return NumValue(-v.N)
		}
		return v
	}
	l := Eval(node.Children[0], rt)
	r := Eval(node.Children[1], rt)
	if l.Kind != Number || r.Kind != Number {
		return NullValue()
	}
	switch node.Kind {
	case Plus:
		return NumValue(l.N + r.N)
	case Minus:
		return NumValue(l.N - r.N)
	case Mul:
		return NumValue(l.N * r.N)
	case Div:
		if r.N == 0 {
			return NullValue()
		}
		return NumValue(l.N / r.N)
	}
	return NullValue()
}

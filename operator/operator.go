// Package operator implements C7: the volcano-protocol operator tree that
// executes a query once C9 has wired registers and bound variables.
// Every operator returns an integer multiplicity from first/next (0 means
// end-of-stream / empty) so duplicate semantics ride through the
// pipeline without materializing duplicate tuples, per spec §4.6.
package operator

import (
	"io"

	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/runtime"
)

// Operator is the volcano protocol every node in the tree implements.
type Operator interface {
	// First positions the operator at its first tuple and returns its
	// multiplicity (0 if the operator produces nothing).
	First() (uint32, error)
	// Next advances to the next tuple and returns its multiplicity (0 at
	// end of stream).
	Next() (uint32, error)
	// AddMergeHint propagates an equality between two registers so a
	// downstream scan can skip ahead; operators that can't use a hint
	// simply ignore it.
	AddMergeHint(regA, regB int)
	// Print writes the operator's label to w as one line, indented by
	// indent levels of two spaces. The operators in this package print
	// only their own label: children are not printed and dict is not
	// consulted.
	Print(w io.Writer, dict Dictionary, indent int)
}

// Dictionary is the narrow id->text surface Print needs, satisfied by
// storage/dict.Dictionary.
type Dictionary interface {
	LookupByID(id common.ID) (string, bool, error)
}

// Database is the narrow per-permutation segment surface operators scan
// through, implemented by overlay.DifferentialIndex (the value
// Store.Database returns), whose Facts scans merge the overlay into the
// storage/facts base segments.
type Database interface {
	Facts(perm common.Permutation) FactsScanner
	Aggregated(perm common.Permutation) AggScanner
	FullyAggregated(perm common.Permutation) FullAggScanner
}

// FactsScanner is the scan surface over one permutation's full triple
// index.
type FactsScanner interface {
	First(v1, v2, v3 common.ID) (Scan3, error)
}

// Scan3 is a positioned cursor over (v1, v2, v3) tuples.
type Scan3 interface {
	Valid() bool
	Next() (bool, error)
	Value1() common.ID
	Value2() common.ID
	Value3() common.ID
}

// AggScanner is the scan surface over one permutation's AggregatedFacts
// projection.
type AggScanner interface {
	First(v1, v2 common.ID) (Scan2, error)
}

type Scan2 interface {
	Valid() bool
	Next() (bool, error)
	Value1() common.ID
	Value2() common.ID
	Count() uint32
}

// FullAggScanner is the scan surface over one permutation's
// FullyAggregatedFacts projection.
type FullAggScanner interface {
	First(v1 common.ID) (Scan1, error)
}

type Scan1 interface {
	Valid() bool
	Next() (bool, error)
	Value1() common.ID
	Count() uint32
}

// base provides the no-op AddMergeHint/Print most leaf operators share;
// operators that do something interesting with hints (scans) or care
// about their own label (everything, via embedding + a label override)
// compose over it.
type base struct {
	label string
}

func (base) AddMergeHint(int, int) {}

func (b base) Print(w io.Writer, dict Dictionary, indent int) {
	printIndent(w, indent, b.label)
}

func printIndent(w io.Writer, indent int, label string) {
	for i := 0; i < indent; i++ {
		io.WriteString(w, "  ")
	}
	io.WriteString(w, label)
	io.WriteString(w, "\n")
}

// rt is embedded by every operator that needs to read/write registers.
type rt struct {
	runtime *runtime.Runtime
}

func (r rt) reg(idx int) *runtime.Register { return r.runtime.GetRegister(idx) }

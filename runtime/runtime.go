// Package runtime implements C6: the register file an operator tree reads
// and writes as it pulls tuples, plus the join-equivalence domains C9
// uses to wire merge hints between operators that share a sort key.
package runtime

import "github.com/intellect4all/triplecore/common"

// Register is a single scalar slot an operator tree binds variables into.
// Unbound is the zero-value-equivalent "no value yet" state, distinct
// from any real dictionary id.
type Register struct {
	Value common.ID
	Bound bool
}

// Set stores id and marks the register bound.
func (r *Register) Set(id common.ID) { r.Value, r.Bound = id, true }

// Clear marks the register unbound without zeroing Value, since a scan
// re-binding the same register on its next tuple will overwrite it
// immediately.
func (r *Register) Clear() { r.Bound = false }

// VectorRegister holds a sequence of ids in one register slot. No
// operator in this module reads or writes one; HashJoin keeps its
// per-row auxiliary columns in its own hash table.
type VectorRegister struct {
	Values []common.ID
}

func (v *VectorRegister) Set(values []common.ID) {
	v.Values = append(v.Values[:0], values...)
}

// DomainDescription is the shared state backing a join-equivalence
// class of size >= 2: every register in the class holds the same value
// at any point a query is observed, so downstream scans can be handed
// the domain's current value directly as a merge hint instead of
// re-deriving it from any one particular register.
type DomainDescription struct {
	Members []int // register indices participating in this equivalence class
	Current common.ID
	Bound   bool
}

func (d *DomainDescription) Set(id common.ID) { d.Current, d.Bound = id, true }
func (d *DomainDescription) Clear()            { d.Bound = false }

// Database is the storage-facing surface Runtime needs: the minimal set
// of accessors an operator tree uses to reach C4's segments, independent
// of whether reads are served from the base store alone or merged with
// an overlay (C8). storage/facts.Facts and overlay.DifferentialIndex's
// merged scans both satisfy narrower, scan-specific interfaces defined
// in package operator; Database just names the handle Runtime carries.
type Database interface {
	// Name identifies the store, for diagnostics and plan printing.
	Name() string
}

// Runtime owns the register file and domain descriptions for one query
// execution, plus a handle to the database (and, optionally, an overlay)
// the operator tree reads through.
type Runtime struct {
	db      Database
	overlay interface{} // *overlay.DifferentialIndex; kept untyped here to avoid an import cycle

	registers       []Register
	vectorRegisters []VectorRegister
	domains         []DomainDescription
}

// New creates a runtime bound to db (and, if non-nil, an overlay) with
// no registers allocated yet; C9 allocates them once it knows a query's
// register count.
func New(db Database, overlay interface{}) *Runtime {
	return &Runtime{db: db, overlay: overlay}
}

func (rt *Runtime) Database() Database    { return rt.db }
func (rt *Runtime) Overlay() interface{}   { return rt.overlay }

// AllocateRegisters grows the register file by n slots and returns the
// index of the first new slot.
func (rt *Runtime) AllocateRegisters(n int) int {
	start := len(rt.registers)
	rt.registers = append(rt.registers, make([]Register, n)...)
	return start
}

// AllocateVectorRegisters grows the vector register file by n slots and
// returns the index of the first new slot.
func (rt *Runtime) AllocateVectorRegisters(n int) int {
	start := len(rt.vectorRegisters)
	rt.vectorRegisters = append(rt.vectorRegisters, make([]VectorRegister, n)...)
	return start
}

// AllocateDomainDescriptions grows the domain vector by n slots and
// returns the index of the first new slot.
func (rt *Runtime) AllocateDomainDescriptions(n int) int {
	start := len(rt.domains)
	rt.domains = append(rt.domains, make([]DomainDescription, n)...)
	return start
}

// GetRegister returns a pointer to register idx, stable across the life
// of the query (register slices are never reallocated once a plan
// finishes allocating them, since C9 allocates every register up front).
func (rt *Runtime) GetRegister(idx int) *Register { return &rt.registers[idx] }

// GetVectorRegister returns a pointer to vector register idx.
func (rt *Runtime) GetVectorRegister(idx int) *VectorRegister { return &rt.vectorRegisters[idx] }

// GetDomainDescription returns a pointer to domain idx.
func (rt *Runtime) GetDomainDescription(idx int) *DomainDescription { return &rt.domains[idx] }

// NumRegisters reports how many registers have been allocated so far,
// used by ResultsPrinter to know how many output columns to walk.
func (rt *Runtime) NumRegisters() int { return len(rt.registers) }

// Package refquery provides the reference collaborators spec.md scopes as
// external to the query core: a recursive-descent parser for the SPARQL-
// like subset spec.md §8 shows, a naive left-to-right join-order planner,
// a minimal Turtle triple reader, and a constant-guess statistics source.
// None of these are part of the tuned core (storage/*, runtime, operator,
// codegen, overlay); they exist to drive cmd/bulkload, cmd/query and
// cmd/updatetest end to end.
package refquery

import "github.com/intellect4all/triplecore/common"

// Statistics answers cardinality questions the planner needs to pick a
// join order. Real statistics computation (histogram-backed, path-aware)
// is out of scope per spec.md §1; this reference implementation returns
// constant per-predicate guesses.
type Statistics interface {
	// PredicateCardinality estimates how many triples share predicate p.
	// Unknown predicates get DefaultCardinality.
	PredicateCardinality(p common.ID) int64
}

// DefaultCardinality is the guess returned for any predicate this
// Statistics implementation hasn't been told about.
const DefaultCardinality = 1000

// ConstantStatistics is the reference Statistics: every predicate gets
// the same guess unless explicitly overridden, e.g. from a directory
// page's statistics_page counters once a real histogram lands there.
type ConstantStatistics struct {
	overrides map[common.ID]int64
}

// NewConstantStatistics builds a ConstantStatistics with no overrides;
// every predicate reports DefaultCardinality.
func NewConstantStatistics() *ConstantStatistics {
	return &ConstantStatistics{overrides: map[common.ID]int64{}}
}

// SetCardinality records a specific guess for predicate p, e.g. seeded
// from a bulk load's observed per-predicate triple counts.
func (s *ConstantStatistics) SetCardinality(p common.ID, n int64) {
	s.overrides[p] = n
}

func (s *ConstantStatistics) PredicateCardinality(p common.ID) int64 {
	if n, ok := s.overrides[p]; ok {
		return n
	}
	return DefaultCardinality
}

package facts

import (
	"sort"

	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/storage/bptree"
)

// Source is the loader contract a bulk loader or the differential index's
// sync path hands to a Facts index: a sorted stream of permuted triples,
// with a duplicate call-back reported when the target merges identical
// keys.
type Source = bptree.Source[Entry]

// PermutedSource adapts a slice of raw (s, p, o) triples into a sorted
// Source for one permutation. refquery.TurtleSource and the overlay's
// sync path do not use it: they build their entries with SortedEntries
// or directly.
type PermutedSource struct {
	entries []Entry
	pos     int
}

// SortedEntries permutes every triple per perm and sorts the result in
// the permutation's key order, for callers (bulk loaders) that need the
// entry slice itself rather than just a Source over it, e.g. to derive
// the aggregated projections from the same sorted run.
func SortedEntries(triples []common.Triple, perm common.Permutation) []Entry {
	entries := make([]Entry, len(triples))
	for i, t := range triples {
		v1, v2, v3 := t.Permute(perm)
		entries[i] = Entry{V1: v1, V2: v2, V3: v3}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.V1 != b.V1 {
			return a.V1 < b.V1
		}
		if a.V2 != b.V2 {
			return a.V2 < b.V2
		}
		return a.V3 < b.V3
	})
	return entries
}

// NewPermutedSource permutes every triple per perm, sorts the result, and
// returns a Source ready for BulkLoadFacts or Facts.MergeUpdate.
func NewPermutedSource(triples []common.Triple, perm common.Permutation) *PermutedSource {
	return &PermutedSource{entries: SortedEntries(triples, perm)}
}

func (s *PermutedSource) Next() (Entry, bool) {
	if s.pos >= len(s.entries) {
		return Entry{}, false
	}
	e := s.entries[s.pos]
	s.pos++
	return e, true
}

func (s *PermutedSource) MarkAsDuplicate() {}
func (s *PermutedSource) MarkAsConflict()  {}

// DeriveAggregated collapses a sorted Entry stream into its (v1, v2,
// count) projection, in the same sorted order, ready for
// BulkLoadAggregatedFacts.
func DeriveAggregated(entries []Entry) []AggEntry {
	var out []AggEntry
	var cur AggEntry
	have := false
	for _, e := range entries {
		if have && cur.V1 == e.V1 && cur.V2 == e.V2 {
			cur.Count++
			continue
		}
		if have {
			out = append(out, cur)
		}
		cur = AggEntry{V1: e.V1, V2: e.V2, Count: 1}
		have = true
	}
	if have {
		out = append(out, cur)
	}
	return out
}

// DeriveFullyAggregated collapses a sorted AggEntry stream into its (v1,
// count) projection, ready for BulkLoadFullyAggregatedFacts.
func DeriveFullyAggregated(entries []AggEntry) []FullAggEntry {
	var out []FullAggEntry
	var cur FullAggEntry
	have := false
	for _, e := range entries {
		if have && cur.V1 == e.V1 {
			cur.Count += e.Count
			continue
		}
		if have {
			out = append(out, cur)
		}
		cur = FullAggEntry{V1: e.V1, Count: e.Count}
		have = true
	}
	if have {
		out = append(out, cur)
	}
	return out
}

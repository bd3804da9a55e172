package bptree

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/intellect4all/triplecore/storage/buffer"
)

// SliceSource adapts an in-memory, already-sorted slice to the Source
// contract, for callers that built their entry list in memory (bulk
// loaders, the differential index's sync path).
type SliceSource[E any] struct {
	Entries []E
	pos     int
}

// NewSliceSource wraps entries (which must already be sorted by the
// target tree's key order) as a Source.
func NewSliceSource[E any](entries []E) *SliceSource[E] {
	return &SliceSource[E]{Entries: entries}
}

func (s *SliceSource[E]) Next() (E, bool) {
	if s.pos >= len(s.Entries) {
		var zero E
		return zero, false
	}
	e := s.Entries[s.pos]
	s.pos++
	return e, true
}

func (s *SliceSource[E]) MarkAsDuplicate() {}
func (s *SliceSource[E]) MarkAsConflict()  {}

type mergeItem[E any] struct {
	e   E
	idx int
}

// MergeUpdate performs spec §4.2's merge-update: it three-way merges the
// tree's existing entries with src's sorted new entries, reporting
// duplicates and conflicts back to src, and rebuilds the tree's leaf chain
// and inner levels from the merged result. conflicts, if non-nil, records
// the 0-based position (within this call's src stream) of every new entry
// that lost to a conflict, so a bulk loader can report exactly which input
// rows collided (SPEC_FULL §4 expansion) rather than only a count.
//
// This folds the per-leaf "locate, unpack, three-way merge, repack, split
// successor, propagate boundary" dance spec §4.2 describes into one
// whole-tree rebuild: with leaf chains already laid out in sorted order, a
// merge-sort over (old leaf stream, new entry stream) followed by
// BulkLoad's greedy leaf packing produces the same sorted, correctly
// chained result without hand-maintained parent pointers. Old pages are
// not reclaimed into a free list; see DESIGN.md.
func MergeUpdate[K any, E any](bm *buffer.Manager, tree *Tree[K, E], keys KeyCodec[K], leafs LeafCodec[K, E], src Source[E], conflicts *roaring.Bitmap) (uint32, error) {
	var newItems []mergeItem[E]
	idx := 0
	for {
		e, ok := src.Next()
		if !ok {
			break
		}
		newItems = append(newItems, mergeItem[E]{e: e, idx: idx})
		idx++
	}

	var old []E
	cur, err := tree.FirstAll()
	if err != nil {
		return 0, err
	}
	for cur.Valid() {
		old = append(old, cur.Entry())
		more, err := cur.Next()
		if err != nil {
			return 0, err
		}
		if !more {
			break
		}
	}

	merged := make([]E, 0, len(old)+len(newItems))
	i, j := 0, 0
	for i < len(old) && j < len(newItems) {
		ok := old[i]
		nk := newItems[j].e
		c := keys.Compare(leafs.DeriveKey(ok), leafs.DeriveKey(nk))
		switch {
		case c < 0:
			merged = append(merged, ok)
			i++
		case c > 0:
			merged = append(merged, nk)
			j++
		default:
			if leafs.Equal(ok, nk) {
				src.MarkAsDuplicate()
				merged = append(merged, ok)
			} else if leafs.ConflictsWith(nk, ok) {
				src.MarkAsConflict()
				if conflicts != nil {
					conflicts.Add(uint32(newItems[j].idx))
				}
				merged = append(merged, ok)
			} else {
				merged = append(merged, nk)
			}
			i++
			j++
		}
	}
	merged = append(merged, old[i:]...)
	for ; j < len(newItems); j++ {
		merged = append(merged, newItems[j].e)
	}

	return BulkLoad[K, E](bm, keys, leafs, NewSliceSource(merged))
}

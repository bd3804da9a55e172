package overlay

import (
	"sync"

	"github.com/google/btree"

	"github.com/intellect4all/triplecore/common"
)

const btreeDegree = 32

// permSet is one permutation's in-memory ordered overlay, protected by
// its own reader-writer latch (spec §4.9: "one reader-writer latch per
// permutation").
type permSet struct {
	mu   sync.RWMutex
	tree *btree.BTree
}

func newPermSet() *permSet {
	return &permSet{tree: btree.New(btreeDegree)}
}

// insert adds t, replacing any existing entry with the same (v1,v2,v3)
// key -- a later load()'s Created/Deleted wins, matching the
// dictionary's own "ids never change meaning, but overlay state may be
// superseded before sync" semantics.
func (s *permSet) insert(t VersionedTriple) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.ReplaceOrInsert(btreeItem{t})
}

// all returns every entry in sort order, for sync()'s drain into a
// B+-tree merge update. It takes no latch: its one caller, Sync, already
// holds this set's latch exclusively.
func (s *permSet) all() []VersionedTriple {
	out := make([]VersionedTriple, 0, s.tree.Len())
	s.tree.Ascend(func(it btree.Item) bool {
		out = append(out, it.(btreeItem).VersionedTriple)
		return true
	})
	return out
}

func (s *permSet) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = btree.New(btreeDegree)
}

func (s *permSet) rLock()   { s.mu.RLock() }
func (s *permSet) rUnlock() { s.mu.RUnlock() }

// rangeFrom returns every entry >= from (by permuted triple order,
// ascending), visible at snapshot, without taking the latch itself --
// the caller (a scan) holds it for the scan's lifetime via rLock/rUnlock.
func (s *permSet) rangeFrom(from VersionedTriple, snapshot uint64) []VersionedTriple {
	var out []VersionedTriple
	s.tree.AscendGreaterOrEqual(btreeItem{from}, func(it btree.Item) bool {
		vt := it.(btreeItem).VersionedTriple
		if vt.visibleAt(snapshot) {
			out = append(out, vt)
		}
		return true
	})
	return out
}

func minTriple(v1, v2, v3 common.ID) VersionedTriple {
	z := common.ID(0)
	if v1 == common.Unbound {
		v1 = z
	}
	if v2 == common.Unbound {
		v2 = z
	}
	if v3 == common.Unbound {
		v3 = z
	}
	return VersionedTriple{V1: v1, V2: v2, V3: v3}
}

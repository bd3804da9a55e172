// Package overlay implements C8: the differential index of pending
// writes. Each permutation keeps an in-memory ordered set of
// VersionedTriples (backed by github.com/google/btree) that a merged
// scan interleaves with the base storage/facts segments, so readers see
// newly loaded triples before sync() ever touches the on-disk B+-trees.
package overlay

import (
	"github.com/google/btree"

	"github.com/intellect4all/triplecore/common"
)

// noDeletion is the "not deleted" sentinel a VersionedTriple's Deleted
// field carries until some future delete operation sets it to the
// version that removed the triple (spec §4.9 reserves the field; this
// core never writes anything but the sentinel, since deletion isn't
// named as an operation this core must support).
const noDeletion = ^uint64(0)

// VersionedTriple is one overlay entry: a permuted triple plus the
// load() generation that created it and (if ever set) the one that
// deleted it, so a scan can apply its own snapshot window.
type VersionedTriple struct {
	V1, V2, V3 common.ID
	Created    uint64
	Deleted    uint64
}

// visibleAt reports whether v is part of the snapshot taken at version
// snapshot: created no later than snapshot, and either never deleted or
// deleted strictly after snapshot.
func (v VersionedTriple) visibleAt(snapshot uint64) bool {
	return v.Created <= snapshot && v.Deleted > snapshot
}

func less(a, b VersionedTriple) bool {
	if a.V1 != b.V1 {
		return a.V1 < b.V1
	}
	if a.V2 != b.V2 {
		return a.V2 < b.V2
	}
	return a.V3 < b.V3
}

// btreeItem adapts VersionedTriple to google/btree's classic Item
// interface.
type btreeItem struct{ VersionedTriple }

func (i btreeItem) Less(than btree.Item) bool {
	return less(i.VersionedTriple, than.(btreeItem).VersionedTriple)
}

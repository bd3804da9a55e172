// Package facts implements C4: the six permuted triple indices plus their
// AggregatedFacts and FullyAggregatedFacts projections, all built on top of
// storage/bptree's generic engine. Leaves are delta-compressed: the first
// entry on a leaf carries a full record, later entries carry only the
// columns that changed since the previous entry, prefixed by a header byte
// naming which columns those are (spec §4.3).
package facts

import (
	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/storage/bptree"
	"github.com/intellect4all/triplecore/storage/page"
)

// Key1/Key2/Key3 are the fixed-width inner-page keys for the
// FullyAggregatedFacts, AggregatedFacts and Facts trees respectively: 1, 2
// and 3 leading columns of a permuted triple.

type Key1 struct{ V1 common.ID }
type Key2 struct{ V1, V2 common.ID }
type Key3 struct{ V1, V2, V3 common.ID }

type key1Codec struct{}
type key2Codec struct{}
type key3Codec struct{}

func (key1Codec) Size() int { return 4 }
func (key1Codec) Read(buf []byte) Key1 {
	return Key1{V1: page.ReadUint32Aligned(buf, 0)}
}
func (key1Codec) Write(buf []byte, k Key1) {
	page.WriteUint32Aligned(buf, 0, k.V1)
}
func (key1Codec) Compare(a, b Key1) int {
	switch {
	case a.V1 < b.V1:
		return -1
	case a.V1 > b.V1:
		return 1
	default:
		return 0
	}
}

func (key2Codec) Size() int { return 8 }
func (key2Codec) Read(buf []byte) Key2 {
	return Key2{V1: page.ReadUint32Aligned(buf, 0), V2: page.ReadUint32Aligned(buf, 4)}
}
func (key2Codec) Write(buf []byte, k Key2) {
	page.WriteUint32Aligned(buf, 0, k.V1)
	page.WriteUint32Aligned(buf, 4, k.V2)
}
func (key2Codec) Compare(a, b Key2) int {
	if a.V1 != b.V1 {
		if a.V1 < b.V1 {
			return -1
		}
		return 1
	}
	switch {
	case a.V2 < b.V2:
		return -1
	case a.V2 > b.V2:
		return 1
	default:
		return 0
	}
}

func (key3Codec) Size() int { return 12 }
func (key3Codec) Read(buf []byte) Key3 {
	return Key3{
		V1: page.ReadUint32Aligned(buf, 0),
		V2: page.ReadUint32Aligned(buf, 4),
		V3: page.ReadUint32Aligned(buf, 8),
	}
}
func (key3Codec) Write(buf []byte, k Key3) {
	page.WriteUint32Aligned(buf, 0, k.V1)
	page.WriteUint32Aligned(buf, 4, k.V2)
	page.WriteUint32Aligned(buf, 8, k.V3)
}
func (key3Codec) Compare(a, b Key3) int {
	if a.V1 != b.V1 {
		if a.V1 < b.V1 {
			return -1
		}
		return 1
	}
	if a.V2 != b.V2 {
		if a.V2 < b.V2 {
			return -1
		}
		return 1
	}
	switch {
	case a.V3 < b.V3:
		return -1
	case a.V3 > b.V3:
		return 1
	default:
		return 0
	}
}

var (
	Key1Codec bptree.KeyCodec[Key1] = key1Codec{}
	Key2Codec bptree.KeyCodec[Key2] = key2Codec{}
	Key3Codec bptree.KeyCodec[Key3] = key3Codec{}
)

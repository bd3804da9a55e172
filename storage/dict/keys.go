// Package dict implements C5: the bidirectional string<->id dictionary.
// Strings live in a chained page list, addressed two ways: an id->page
// mapping tree (sequential boundaries, since ids are issued in append
// order) and a hash->page B+-tree used by text lookups. Both trees are
// built on storage/bptree the same way storage/facts builds its triple
// indices, but their leaves are plain fixed-size records rather than
// delta-compressed runs -- the dictionary's index trees are small
// relative to the string data itself, so compression there buys little.
package dict

import (
	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/storage/bptree"
	"github.com/intellect4all/triplecore/storage/page"
)

// IDKey is the id->page mapping tree's inner key: the last id stored on a
// given string page (the "upper bound" convention storage/bptree's inner
// pages use throughout).
type IDKey struct{ Last common.ID }

type idKeyCodec struct{}

func (idKeyCodec) Size() int { return 4 }
func (idKeyCodec) Read(buf []byte) IDKey {
	return IDKey{Last: page.ReadUint32Aligned(buf, 0)}
}
func (idKeyCodec) Write(buf []byte, k IDKey) {
	page.WriteUint32Aligned(buf, 0, k.Last)
}
func (idKeyCodec) Compare(a, b IDKey) int {
	switch {
	case a.Last < b.Last:
		return -1
	case a.Last > b.Last:
		return 1
	default:
		return 0
	}
}

var IDKeyCodec bptree.KeyCodec[IDKey] = idKeyCodec{}

// HashKey is the hash index's inner key: (hash, id) so that every
// colliding string still has a distinct, totally ordered key.
type HashKey struct {
	Hash uint32
	ID   common.ID
}

type hashKeyCodec struct{}

func (hashKeyCodec) Size() int { return 8 }
func (hashKeyCodec) Read(buf []byte) HashKey {
	return HashKey{Hash: page.ReadUint32Aligned(buf, 0), ID: page.ReadUint32Aligned(buf, 4)}
}
func (hashKeyCodec) Write(buf []byte, k HashKey) {
	page.WriteUint32Aligned(buf, 0, k.Hash)
	page.WriteUint32Aligned(buf, 4, k.ID)
}
func (hashKeyCodec) Compare(a, b HashKey) int {
	if a.Hash != b.Hash {
		if a.Hash < b.Hash {
			return -1
		}
		return 1
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}

var HashKeyCodec bptree.KeyCodec[HashKey] = hashKeyCodec{}

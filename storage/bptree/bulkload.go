package bptree

import (
	"github.com/pkg/errors"

	"github.com/intellect4all/triplecore/storage/buffer"
	"github.com/intellect4all/triplecore/storage/page"
)

type boundary[K any] struct {
	Key  K
	Page uint32
}

// BulkLoad packs a sorted stream of entries into fresh leaves, records
// (max_key_of_leaf, leaf_page) boundaries, and recursively packs inner
// levels until one page remains, per spec §4.2's bulk-load contract. It
// returns the new root page number; the caller is responsible for
// persisting it (directory page, dictionary header, ...).
func BulkLoad[K any, E any](bm *buffer.Manager, keys KeyCodec[K], leafs LeafCodec[K, E], src Source[E]) (uint32, error) {
	var all []E
	for {
		e, ok := src.Next()
		if !ok {
			break
		}
		all = append(all, e)
	}

	boundaries, err := packLeaves(bm, leafs, all)
	if err != nil {
		return 0, err
	}
	if len(boundaries) == 0 {
		ref, err := bm.AllocPage()
		if err != nil {
			return 0, err
		}
		page.WriteUint32(ref.Page.Data[:], page.LeafOffsetNext, 0)
		bm.Modify(ref)
		root := ref.Page.No
		ref.Release()
		return root, nil
	}

	level := boundaries
	for len(level) > 1 {
		level, err = packInnerLevel(bm, keys, level)
		if err != nil {
			return 0, err
		}
	}
	return level[0].Page, nil
}

func packLeaves[K any, E any](bm *buffer.Manager, leafs LeafCodec[K, E], all []E) ([]boundary[K], error) {
	if len(all) == 0 {
		return nil, nil
	}
	var boundaries []boundary[K]
	var prevRef *buffer.ExclusiveRef
	buf := make([]byte, page.Size-page.LeafHeaderSize)
	i := 0
	for i < len(all) {
		ref, err := bm.AllocPage()
		if err != nil {
			return nil, err
		}
		packed := leafs.Pack(buf, all[i:])
		if packed <= 0 {
			ref.Release()
			return nil, errors.New("bptree: leaf codec packed zero entries; entry too large for a page")
		}
		copy(ref.Page.Data[page.LeafHeaderSize:], buf)
		page.WriteUint32(ref.Page.Data[:], page.LeafOffsetNext, 0)
		bm.Modify(ref)

		if prevRef != nil {
			page.WriteUint32(prevRef.Page.Data[:], page.LeafOffsetNext, ref.Page.No)
			bm.Modify(prevRef)
			prevRef.Release()
		}

		boundaries = append(boundaries, boundary[K]{Key: leafs.DeriveKey(all[i+packed-1]), Page: ref.Page.No})
		prevRef = ref
		i += packed
	}
	if prevRef != nil {
		prevRef.Release()
	}
	return boundaries, nil
}

func packInnerLevel[K any](bm *buffer.Manager, keys KeyCodec[K], level []boundary[K]) ([]boundary[K], error) {
	capacity := innerCapacity(keys)
	var next []boundary[K]
	i := 0
	for i < len(level) {
		end := i + capacity
		if end > len(level) {
			end = len(level)
		}
		ref, err := bm.AllocPage()
		if err != nil {
			return nil, err
		}
		entries := make([]innerEntry[K], 0, end-i)
		for _, b := range level[i:end] {
			entries = append(entries, innerEntry[K]{Key: b.Key, Child: b.Page})
		}
		writeInnerEntries(ref.Page, keys, entries, 0)
		bm.Modify(ref)
		next = append(next, boundary[K]{Key: level[end-1].Key, Page: ref.Page.No})
		ref.Release()
		i = end
	}
	return next, nil
}

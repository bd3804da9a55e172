package bptree

import (
	"github.com/intellect4all/triplecore/storage/page"
)

// inner wraps an inner-page's entries for one KeyCodec. Entries are kept
// sorted ascending by key; per spec §4.2's "upper bound" convention, an
// entry's key is the maximum key stored beneath its child page.
type innerEntry[K any] struct {
	Key   K
	Child uint32
}

func entrySize[K any](keys KeyCodec[K]) int { return keys.Size() + 4 }

func innerCapacity[K any](keys KeyCodec[K]) int {
	return (page.Size - page.InnerHeaderSize) / entrySize(keys)
}

// initInnerPage stamps p as an (empty) inner page.
func initInnerPage(p *page.Page, next uint32) {
	page.WriteUint32(p.Data[:], page.InnerOffsetMarker, page.InnerMarker)
	page.WriteUint32(p.Data[:], page.InnerOffsetNext, next)
	page.WriteUint32(p.Data[:], page.InnerOffsetCount, 0)
	p.Dirty = true
}

func isInnerPage(p *page.Page) bool {
	return page.ReadUint32(p.Data[:], page.InnerOffsetMarker) == page.InnerMarker
}

func innerNext(p *page.Page) uint32 {
	return page.ReadUint32(p.Data[:], page.InnerOffsetNext)
}

func innerCount(p *page.Page) int {
	return int(page.ReadUint32(p.Data[:], page.InnerOffsetCount))
}

func readInnerEntries[K any](p *page.Page, keys KeyCodec[K]) []innerEntry[K] {
	n := innerCount(p)
	es := entrySize(keys)
	out := make([]innerEntry[K], n)
	off := page.InnerHeaderSize
	for i := 0; i < n; i++ {
		out[i].Key = keys.Read(p.Data[off : off+keys.Size()])
		out[i].Child = page.ReadUint32Aligned(p.Data[:], off+keys.Size())
		off += es
	}
	return out
}

// writeInnerEntries overwrites p's entry list. Panics if it doesn't fit;
// callers must have already checked innerCapacity.
func writeInnerEntries[K any](p *page.Page, keys KeyCodec[K], entries []innerEntry[K], next uint32) {
	page.WriteUint32(p.Data[:], page.InnerOffsetMarker, page.InnerMarker)
	page.WriteUint32(p.Data[:], page.InnerOffsetNext, next)
	page.WriteUint32(p.Data[:], page.InnerOffsetCount, uint32(len(entries)))
	off := page.InnerHeaderSize
	es := entrySize(keys)
	for _, e := range entries {
		keys.Write(p.Data[off:off+keys.Size()], e.Key)
		page.WriteUint32Aligned(p.Data[:], off+keys.Size(), e.Child)
		off += es
	}
	p.Dirty = true
}

// findChild returns the index of the first entry whose key is >= target
// (the "upper bound" descent rule). If target exceeds every key, it
// returns len(entries), false.
func findChild[K any](entries []innerEntry[K], target K, keys KeyCodec[K]) (int, bool) {
	lo, hi := 0, len(entries)
	for lo < hi {
		mid := (lo + hi) / 2
		if keys.Compare(entries[mid].Key, target) >= 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	if lo >= len(entries) {
		return lo, false
	}
	return lo, true
}

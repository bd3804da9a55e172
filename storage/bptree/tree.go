package bptree

import (
	"github.com/intellect4all/triplecore/storage/buffer"
	"github.com/intellect4all/triplecore/storage/page"
)

// Tree is a generic B+-tree over buffer-managed pages. K is the inner-page
// key type (typically a triple prefix or a string hash); E is the leaf
// entry type the specialisation packs/unpacks.
type Tree[K any, E any] struct {
	bm    *buffer.Manager
	keys  KeyCodec[K]
	leafs LeafCodec[K, E]
	root  uint32
}

// Open wraps an existing tree whose root page is already rootPage.
func Open[K any, E any](bm *buffer.Manager, rootPage uint32, keys KeyCodec[K], leafs LeafCodec[K, E]) *Tree[K, E] {
	return &Tree[K, E]{bm: bm, keys: keys, leafs: leafs, root: rootPage}
}

// RootPage returns the tree's current root page number, to be persisted by
// the caller (directory page, dictionary header, ...) whenever it changes.
func (t *Tree[K, E]) RootPage() uint32 { return t.root }

// descendToLeaf walks from the root to the leaf page that would contain
// key, returning its page number.
func (t *Tree[K, E]) descendToLeaf(key K) (uint32, error) {
	pageNo := t.root
	for {
		ref, err := t.bm.ReadShared(pageNo)
		if err != nil {
			return 0, err
		}
		if !isInnerPage(ref.Page) {
			ref.Release()
			return pageNo, nil
		}
		entries := readInnerEntries(ref.Page, t.keys)
		idx, found := findChild(entries, key, t.keys)
		var next uint32
		if found {
			next = entries[idx].Child
		} else {
			// Past every key: descend via the rightmost child so a caller
			// doing a First(prefix) past the max key lands on the last
			// leaf and immediately observes "no more matches".
			next = innerNext(ref.Page)
			if len(entries) > 0 {
				next = entries[len(entries)-1].Child
			}
		}
		ref.Release()
		pageNo = next
	}
}

// leafEntries unpacks pageNo's payload.
func (t *Tree[K, E]) leafEntries(pageNo uint32) ([]E, uint32, error) {
	ref, err := t.bm.ReadShared(pageNo)
	if err != nil {
		return nil, 0, err
	}
	defer ref.Release()
	entries := t.leafs.Unpack(ref.Page.Data[page.LeafHeaderSize:])
	next := page.ReadUint32(ref.Page.Data[:], page.LeafOffsetNext)
	return entries, next, nil
}

// Cursor walks leaf entries in key order starting at the first entry whose
// derived key is >= from.
type Cursor[K any, E any] struct {
	t       *Tree[K, E]
	entries []E
	idx     int
	next    uint32
	cur     E
	ok      bool
}

// First positions a cursor at the first entry whose derived key is >= from.
func (t *Tree[K, E]) First(from K) (*Cursor[K, E], error) {
	pageNo, err := t.descendToLeaf(from)
	if err != nil {
		return nil, err
	}
	c := &Cursor[K, E]{t: t}
	for {
		entries, next, err := t.leafEntries(pageNo)
		if err != nil {
			return nil, err
		}
		idx := 0
		for idx < len(entries) && t.keys.Compare(t.leafs.DeriveKey(entries[idx]), from) < 0 {
			idx++
		}
		if idx < len(entries) {
			c.entries, c.idx, c.next = entries, idx, next
			c.cur, c.ok = entries[idx], true
			return c, nil
		}
		if next == 0 {
			c.ok = false
			return c, nil
		}
		pageNo = next
	}
}

// FirstAll positions a cursor at the very first entry in the tree.
func (t *Tree[K, E]) FirstAll() (*Cursor[K, E], error) {
	var zero K
	return t.First(zero)
}

// Valid reports whether the cursor is positioned on an entry.
func (c *Cursor[K, E]) Valid() bool { return c.ok }

// Entry returns the entry the cursor is positioned on.
func (c *Cursor[K, E]) Entry() E { return c.cur }

// Next advances the cursor, following the leaf chain as needed, and
// reports whether a further entry exists.
func (c *Cursor[K, E]) Next() (bool, error) {
	if !c.ok {
		return false, nil
	}
	c.idx++
	for {
		if c.idx < len(c.entries) {
			c.cur = c.entries[c.idx]
			return true, nil
		}
		if c.next == 0 {
			c.ok = false
			return false, nil
		}
		entries, next, err := c.t.leafEntries(c.next)
		if err != nil {
			return false, err
		}
		c.entries, c.idx, c.next = entries, 0, next
	}
}

package dict

import (
	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/storage/bptree"
	"github.com/intellect4all/triplecore/storage/buffer"
	"github.com/intellect4all/triplecore/storage/page"
)

// Header is the on-disk pointer triad persisted in the database directory
// page (spec §6's "dictionary strings_start | mapping_root |
// hash_index_root").
type Header struct {
	StringsStart uint32
	MappingRoot  uint32
	HashRoot     uint32
	NextID       common.ID
}

// Dictionary is the bidirectional string<->id mapping: a chained page
// list of raw strings plus two B+-trees addressing it, one by id and one
// by text hash.
type Dictionary struct {
	bm *buffer.Manager

	stringsHead uint32
	stringsTail uint32
	nextID      common.ID

	idMap *bptree.Tree[IDKey, MapEntry]
	hash  *bptree.Tree[HashKey, HashEntry]
}

// Open wraps an existing dictionary whose structures are already laid
// out per hdr.
func Open(bm *buffer.Manager, hdr Header) *Dictionary {
	return &Dictionary{
		bm:          bm,
		stringsHead: hdr.StringsStart,
		nextID:      hdr.NextID,
		idMap:       bptree.Open[IDKey, MapEntry](bm, hdr.MappingRoot, IDKeyCodec, mapCodec{}),
		hash:        bptree.Open[HashKey, HashEntry](bm, hdr.HashRoot, HashKeyCodec, hashCodec{}),
	}
}

// New allocates a fresh, empty dictionary.
func New(bm *buffer.Manager) (*Dictionary, error) {
	head, err := allocStringPage(bm)
	if err != nil {
		return nil, err
	}
	bm.Modify(head)
	headNo := head.Page.No
	head.Release()

	d := &Dictionary{bm: bm, stringsHead: headNo, stringsTail: headNo, nextID: 0}
	idMapRoot, err := bptree.BulkLoad[IDKey, MapEntry](bm, IDKeyCodec, mapCodec{}, bptree.NewSliceSource[MapEntry](nil))
	if err != nil {
		return nil, err
	}
	hashRoot, err := bptree.BulkLoad[HashKey, HashEntry](bm, HashKeyCodec, hashCodec{}, bptree.NewSliceSource[HashEntry](nil))
	if err != nil {
		return nil, err
	}
	d.idMap = bptree.Open[IDKey, MapEntry](bm, idMapRoot, IDKeyCodec, mapCodec{})
	d.hash = bptree.Open[HashKey, HashEntry](bm, hashRoot, HashKeyCodec, hashCodec{})
	return d, nil
}

// Header returns the on-disk pointer triad to persist in the directory
// page.
func (d *Dictionary) Header() Header {
	return Header{
		StringsStart: d.stringsHead,
		MappingRoot:  d.idMap.RootPage(),
		HashRoot:     d.hash.RootPage(),
		NextID:       d.nextID,
	}
}

// NextID returns the id that AppendStrings would assign to the next new
// string, without reserving it.
func (d *Dictionary) NextID() common.ID { return d.nextID }

// LookupByID consults the id->page map, reads that page, and scans to
// the slot matching id.
func (d *Dictionary) LookupByID(id common.ID) (string, bool, error) {
	cur, err := d.idMap.First(IDKey{Last: id})
	if err != nil {
		return "", false, err
	}
	if !cur.Valid() {
		return "", false, nil
	}
	pageNo := cur.Entry().Page
	ref, err := d.bm.ReadShared(pageNo)
	if err != nil {
		return "", false, err
	}
	defer ref.Release()

	var found string
	var ok bool
	scanStringPage(ref.Page.Data[page.LeafHeaderSize:], func(entryID common.ID, text string) bool {
		if entryID == id {
			found, ok = text, true
			return false
		}
		return true
	})
	return found, ok, nil
}

// Lookup hashes text, descends the hash index to the first candidate,
// and scans forward while the hash still matches, comparing each
// candidate's actual text.
func (d *Dictionary) Lookup(text string) (common.ID, bool, error) {
	h := hashText(text)
	cur, err := d.hash.First(HashKey{Hash: h})
	if err != nil {
		return 0, false, err
	}
	for cur.Valid() && cur.Entry().Hash == h {
		e := cur.Entry()
		candidate, ok, err := d.textAt(e.Page, e.ID)
		if err != nil {
			return 0, false, err
		}
		if ok && candidate == text {
			return e.ID, true, nil
		}
		more, err := cur.Next()
		if err != nil {
			return 0, false, err
		}
		if !more {
			break
		}
	}
	return 0, false, nil
}

func (d *Dictionary) textAt(pageNo uint32, id common.ID) (string, bool, error) {
	ref, err := d.bm.ReadShared(pageNo)
	if err != nil {
		return "", false, err
	}
	defer ref.Release()
	var found string
	var ok bool
	scanStringPage(ref.Page.Data[page.LeafHeaderSize:], func(entryID common.ID, text string) bool {
		if entryID == id {
			found, ok = text, true
			return false
		}
		return true
	})
	return found, ok, nil
}

// AppendStrings appends strings in order, assigning sequential ids
// starting at NextID, and publishes the new entries to the string chain,
// the id->page map, and the hash index. It returns the assigned ids.
func (d *Dictionary) AppendStrings(strings []string) ([]common.ID, error) {
	if len(strings) == 0 {
		return nil, nil
	}
	ids := make([]common.ID, len(strings))
	for i := range strings {
		ids[i] = d.nextID + common.ID(i)
	}

	if d.stringsTail == 0 {
		// Opened from a header, which records only the chain's head.
		tail := d.stringsHead
		for {
			ref, err := d.bm.ReadShared(tail)
			if err != nil {
				return nil, err
			}
			next := page.ReadUint32(ref.Page.Data[:], page.LeafOffsetNext)
			ref.Release()
			if next == 0 {
				break
			}
			tail = next
		}
		d.stringsTail = tail
	}

	tailRef, err := d.bm.ReadExclusive(d.stringsTail)
	if err != nil {
		return nil, err
	}
	var newMapEntries []MapEntry
	var newHashEntries []HashEntry

	buf := tailRef.Page.Data[page.LeafHeaderSize:]
	writeOff := firstFreeOffset(buf)
	i := 0
	for i < len(strings) {
		room := buf[writeOff:]
		packed, used := appendStringEntries(room, ids[i:], strings[i:])
		if packed > 0 {
			d.bm.Modify(tailRef)
			writeOff += used
			for k := 0; k < packed; k++ {
				newHashEntries = append(newHashEntries, HashEntry{Hash: hashText(strings[i+k]), ID: ids[i+k], Page: tailRef.Page.No})
			}
			lastID := ids[i+packed-1]
			newMapEntries = append(newMapEntries, MapEntry{Last: lastID, Page: tailRef.Page.No})
			i += packed
		}
		if i < len(strings) {
			next, err := allocStringPage(d.bm)
			if err != nil {
				tailRef.Release()
				return nil, err
			}
			page.WriteUint32(tailRef.Page.Data[:], page.LeafOffsetNext, next.Page.No)
			d.bm.Modify(tailRef)
			tailRef.Release()
			tailRef = next
			d.stringsTail = next.Page.No
			buf = tailRef.Page.Data[page.LeafHeaderSize:]
			writeOff = 0
			if packed == 0 && len(strings[i]) > len(buf) {
				tailRef.Release()
				return nil, common.ErrPageFull
			}
		}
	}
	tailRef.Release()

	if err := d.mergeMapEntries(newMapEntries); err != nil {
		return nil, err
	}
	if err := d.mergeHashEntries(newHashEntries); err != nil {
		return nil, err
	}
	d.nextID += common.ID(len(strings))
	return ids, nil
}

func (d *Dictionary) mergeMapEntries(entries []MapEntry) error {
	if len(entries) == 0 {
		return nil
	}
	root, err := bptree.MergeUpdate[IDKey, MapEntry](d.bm, d.idMap, IDKeyCodec, mapCodec{}, bptree.NewSliceSource(entries), nil)
	if err != nil {
		return err
	}
	d.idMap = bptree.Open[IDKey, MapEntry](d.bm, root, IDKeyCodec, mapCodec{})
	return nil
}

func (d *Dictionary) mergeHashEntries(entries []HashEntry) error {
	if len(entries) == 0 {
		return nil
	}
	root, err := bptree.MergeUpdate[HashKey, HashEntry](d.bm, d.hash, HashKeyCodec, hashCodec{}, bptree.NewSliceSource(entries), nil)
	if err != nil {
		return err
	}
	d.hash = bptree.Open[HashKey, HashEntry](d.bm, root, HashKeyCodec, hashCodec{})
	return nil
}

// firstFreeOffset finds the first unused byte in a string page's
// payload, for appending to a page that already holds entries.
func firstFreeOffset(buf []byte) int {
	off := 0
	for off+stringEntryHeader <= len(buf) {
		id := getU32(buf[off:])
		length := int(buf[off+4])<<8 | int(buf[off+5])
		if id == 0 && length == 0 {
			return off
		}
		off += stringEntryHeader + length
	}
	return off
}

// idText is an (id, text) pair read back off a string page.
type idText struct {
	id   common.ID
	text string
}

// ReverseIterator walks the dictionary's ids from high to low, page by
// page.
type ReverseIterator struct {
	d       *Dictionary
	pages   []uint32
	pi      int
	pending []idText
}

// NewReverseIterator walks the id->page map's boundaries from the last
// page to the first.
func (d *Dictionary) NewReverseIterator() (*ReverseIterator, error) {
	cur, err := d.idMap.FirstAll()
	if err != nil {
		return nil, err
	}
	var entries []MapEntry
	for cur.Valid() {
		entries = append(entries, cur.Entry())
		more, err := cur.Next()
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}
	pages := make([]uint32, len(entries))
	for i, e := range entries {
		pages[i] = e.Page
	}
	return &ReverseIterator{d: d, pages: pages, pi: len(pages)}, nil
}

// Next returns the next (id, text) pair walking backward, or ok=false
// once every page has been visited.
func (it *ReverseIterator) Next() (id common.ID, text string, ok bool, err error) {
	for len(it.pending) == 0 {
		if it.pi == 0 {
			return 0, "", false, nil
		}
		it.pi--
		ref, rerr := it.d.bm.ReadShared(it.pages[it.pi])
		if rerr != nil {
			return 0, "", false, rerr
		}
		var pairs []idText
		scanStringPage(ref.Page.Data[page.LeafHeaderSize:], func(eid common.ID, etext string) bool {
			pairs = append(pairs, idText{id: eid, text: etext})
			return true
		})
		ref.Release()
		it.pending = pairs
	}
	last := it.pending[len(it.pending)-1]
	it.pending = it.pending[:len(it.pending)-1]
	return last.id, last.text, true, nil
}

package dict

import "github.com/intellect4all/triplecore/common"

// MapEntry is one id->page mapping tree leaf record: the last id on a
// string page and that page's number.
type MapEntry struct {
	Last common.ID
	Page uint32
}

const mapEntrySize = 8

type mapCodec struct{}

func (mapCodec) DeriveKey(e MapEntry) IDKey       { return IDKey{Last: e.Last} }
func (mapCodec) Equal(a, b MapEntry) bool         { return a == b }
func (mapCodec) ConflictsWith(newE, old MapEntry) bool {
	return newE.Page != old.Page
}

func (mapCodec) Pack(buf []byte, entries []MapEntry) int {
	n := len(buf) / mapEntrySize
	if n > len(entries) {
		n = len(entries)
	}
	for i := 0; i < n; i++ {
		off := i * mapEntrySize
		putU32(buf[off:], entries[i].Last)
		putU32(buf[off+4:], entries[i].Page)
	}
	return n
}

func (mapCodec) Unpack(buf []byte) []MapEntry {
	n := len(buf) / mapEntrySize
	out := make([]MapEntry, 0, n)
	for i := 0; i < n; i++ {
		off := i * mapEntrySize
		last := getU32(buf[off:])
		pg := getU32(buf[off+4:])
		if last == 0 && pg == 0 {
			break // unused tail
		}
		out = append(out, MapEntry{Last: last, Page: pg})
	}
	return out
}

// HashEntry is one hash-index leaf record: a string's hash, its id, and
// the string page holding it (redundant with the id->page map, but kept
// alongside the hash so a lookup need not cross-reference another tree
// before comparing candidate text).
type HashEntry struct {
	Hash uint32
	ID   common.ID
	Page uint32
}

const hashEntrySize = 12

type hashCodec struct{}

func (hashCodec) DeriveKey(e HashEntry) HashKey { return HashKey{Hash: e.Hash, ID: e.ID} }
func (hashCodec) Equal(a, b HashEntry) bool     { return a == b }

// ConflictsWith: the dictionary is append-only and ids never change
// meaning, so a second HashEntry for the same (hash, id) key pointing at
// a different page can only mean the dictionary was corrupted or the
// caller tried to re-map an existing id.
func (hashCodec) ConflictsWith(newE, old HashEntry) bool {
	return newE.Page != old.Page
}

func (hashCodec) Pack(buf []byte, entries []HashEntry) int {
	n := len(buf) / hashEntrySize
	if n > len(entries) {
		n = len(entries)
	}
	for i := 0; i < n; i++ {
		off := i * hashEntrySize
		putU32(buf[off:], entries[i].Hash)
		putU32(buf[off+4:], entries[i].ID)
		putU32(buf[off+8:], entries[i].Page)
	}
	return n
}

func (hashCodec) Unpack(buf []byte) []HashEntry {
	n := len(buf) / hashEntrySize
	out := make([]HashEntry, 0, n)
	for i := 0; i < n; i++ {
		off := i * hashEntrySize
		hash := getU32(buf[off:])
		id := getU32(buf[off+4:])
		pg := getU32(buf[off+8:])
		if hash == 0 && id == 0 && pg == 0 {
			break
		}
		out = append(out, HashEntry{Hash: hash, ID: id, Page: pg})
	}
	return out
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

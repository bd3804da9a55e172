// Package bptree implements C3: a generic, prefix-searchable, bulk-loadable,
// mergeable B+-tree over typed keys. The specialisation contracts named in
// spec §4.2 are expressed as the two generic interfaces below; storage/facts
// and storage/dict provide the concrete K (key) and E (leaf entry) types for
// triples and dictionary strings respectively.
//
// Adapted from the teacher's btree.Page cell layout and btree.go/split.go/
// merge.go traversal logic, generalized with Go generics so one engine
// serves every segment kind instead of one hand-written tree per use.
package bptree

// KeyCodec is the inner-page specialisation contract: how an inner key of
// type K is sized, compared, and read/written using the aligned
// little-endian helper spec §6 requires for inner-page keys.
type KeyCodec[K any] interface {
	// Size returns the fixed encoded size of a key, a multiple of 4.
	Size() int
	// Read decodes a key from buf (len(buf) == Size()).
	Read(buf []byte) K
	// Write encodes k into buf (len(buf) == Size()), little-endian
	// aligned per field.
	Write(buf []byte, k K)
	// Compare returns <0, 0, >0 as a < b, a == b, a > b.
	Compare(a, b K) int
}

// LeafCodec is the leaf-page specialisation contract: how a run of leaf
// entries of type E is delta-packed/unpacked, how an inner key is derived
// from an entry, and how two colliding entries are judged a conflict.
type LeafCodec[K any, E any] interface {
	// DeriveKey returns the inner key that represents entry e (e.g. its
	// leading columns).
	DeriveKey(e E) K
	// Pack greedily encodes as many of entries (already sorted) as fit in
	// buf, returning the number packed. It must pack at least one entry
	// if buf has room for the first entry's worst case encoding.
	Pack(buf []byte, entries []E) (packed int)
	// Unpack decodes every entry previously packed into buf.
	Unpack(buf []byte) []E
	// ConflictsWith reports whether newE merging over old is a conflict
	// (duplicate key with different payload, or a constraint violation)
	// rather than a plain overwrite/duplicate-ignore.
	ConflictsWith(newE, old E) bool
	// Equal reports whether two entries are identical (used to recognize
	// plain duplicates during merge, which are reported via
	// mark_as_duplicate rather than as conflicts).
	Equal(a, b E) bool
}

// Source is the bulk-load/merge-update loader contract named in spec
// §4.3: a sorted stream of leaf entries, with duplicate/conflict
// call-backs the target tree invokes while merging.
type Source[E any] interface {
	// Next advances to the next entry and reports whether one exists.
	Next() (E, bool)
	// MarkAsDuplicate is invoked when the target index merges an entry
	// that is byte-identical to one already present.
	MarkAsDuplicate()
	// MarkAsConflict is invoked when the target index merges an entry
	// that collides with an existing one in a way ConflictsWith flags.
	MarkAsConflict()
}

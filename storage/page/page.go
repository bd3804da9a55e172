// Package page defines the on-disk page format shared by every segment:
// fixed-size pages, big-endian unaligned integer helpers for the page and
// directory layouts, and the little-endian aligned helper used for keys
// inside B+-tree inner pages. Every byte-level interpretation of a page
// anywhere in triplecore goes through these functions, so the on-disk
// format has exactly one source of truth (see spec §9).
package page

const (
	// Size is the fixed page size. spec §2 calls 16 KiB "typical"; this
	// module fixes it, matching the directory layout in spec §6.
	Size = 16 * 1024

	// InnerMarker tags an inner (non-leaf) B+-tree page; it is written at
	// InnerOffsetMarker and never collides with a real LSN-derived value
	// because it's only ever read positionally, never as a key.
	InnerMarker uint32 = 0xFFFFFFFF
)

// Inner page header, byte-exact per spec §3:
//
//	LSN(8) | marker=0xFFFFFFFF(4) | next(4) | count(4) | pad(4)
const (
	InnerOffsetLSN    = 0
	InnerOffsetMarker = 8
	InnerOffsetNext   = 12
	InnerOffsetCount  = 16
	InnerOffsetPad    = 20
	InnerHeaderSize   = 24
)

// Leaf / fact page header, byte-exact per spec §3:
//
//	LSN(8) | next(4) | payload...
const (
	LeafOffsetLSN  = 0
	LeafOffsetNext = 8
	LeafHeaderSize = 12
)

// ReadUint32 reads a big-endian, byte-unaligned uint32 at off. All
// directory, inner-page-header and fact-page-header integers use this
// encoding on disk (spec §6).
func ReadUint32(buf []byte, off int) uint32 {
	return uint32(buf[off])<<24 | uint32(buf[off+1])<<16 | uint32(buf[off+2])<<8 | uint32(buf[off+3])
}

// WriteUint32 writes v as big-endian, byte-unaligned at off.
func WriteUint32(buf []byte, off int, v uint32) {
	buf[off] = byte(v >> 24)
	buf[off+1] = byte(v >> 16)
	buf[off+2] = byte(v >> 8)
	buf[off+3] = byte(v)
}

// ReadUint64 reads a big-endian, byte-unaligned uint64 at off (used for
// page LSNs).
func ReadUint64(buf []byte, off int) uint64 {
	return uint64(ReadUint32(buf, off))<<32 | uint64(ReadUint32(buf, off+4))
}

// WriteUint64 writes v as big-endian, byte-unaligned at off.
func WriteUint64(buf []byte, off int, v uint64) {
	WriteUint32(buf, off, uint32(v>>32))
	WriteUint32(buf, off+4, uint32(v))
}

// ReadUint32Aligned reads a little-endian uint32 at a 4-byte-aligned
// offset. Keys packed inside B+-tree inner pages use this helper (spec §6:
// "keys within inner pages use the aligned little-endian helper
// writeUint32Aligned").
func ReadUint32Aligned(buf []byte, off int) uint32 {
	_ = buf[off+3]
	return uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
}

// WriteUint32Aligned writes v as little-endian at a 4-byte-aligned offset.
func WriteUint32Aligned(buf []byte, off int, v uint32) {
	_ = buf[off+3]
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
	buf[off+2] = byte(v >> 16)
	buf[off+3] = byte(v >> 24)
}

// Page is one fixed-size, mutable buffer backed by the buffer manager's
// pool. It carries no latch of its own -- latching is the buffer manager's
// job (storage/buffer) -- only the raw bytes and bookkeeping needed to
// write them back.
type Page struct {
	No    uint32
	Data  [Size]byte
	Dirty bool
}

// New returns a zeroed page for pageNo.
func New(pageNo uint32) *Page {
	return &Page{No: pageNo, Dirty: true}
}

// LSN returns the page's log sequence number, stored at byte offset 0 in
// every page kind this package defines.
func (p *Page) LSN() uint64 { return ReadUint64(p.Data[:], 0) }

// SetLSN stores the page's log sequence number and marks it dirty.
func (p *Page) SetLSN(lsn uint64) {
	WriteUint64(p.Data[:], 0, lsn)
	p.Dirty = true
}

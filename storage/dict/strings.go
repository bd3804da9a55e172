package dict

import (
	"github.com/cespare/xxhash/v2"

	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/storage/buffer"
	"github.com/intellect4all/triplecore/storage/page"
)

// hashText derives a string's dictionary hash. Shared with operator's
// hash-bucket hashing so the whole module standardizes on one hash
// family instead of each consumer picking its own.
func hashText(s string) uint32 {
	return uint32(xxhash.Sum64String(s))
}

// stringEntryHeader is id(4) + length(2); the raw bytes follow.
const stringEntryHeader = 6

// appendStringEntries packs as many (id, text) pairs as fit starting at
// buf[0], returning the number packed and the bytes used. Callers pack
// greedily the same way storage/bptree's leaf packer does.
func appendStringEntries(buf []byte, ids []common.ID, texts []string) (packed int, used int) {
	off := 0
	for i := range ids {
		need := stringEntryHeader + len(texts[i])
		if off+need > len(buf) {
			break
		}
		putU32(buf[off:], ids[i])
		buf[off+4] = byte(len(texts[i]) >> 8)
		buf[off+5] = byte(len(texts[i]))
		copy(buf[off+stringEntryHeader:], texts[i])
		off += need
		packed++
	}
	return packed, off
}

// scanStringPage walks one string page's payload, invoking fn for every
// (id, text) entry until fn returns false or the payload is exhausted.
func scanStringPage(buf []byte, fn func(id common.ID, text string) bool) {
	off := 0
	for off+stringEntryHeader <= len(buf) {
		id := getU32(buf[off:])
		length := int(buf[off+4])<<8 | int(buf[off+5])
		if id == 0 && length == 0 {
			return
		}
		start := off + stringEntryHeader
		if start+length > len(buf) {
			return
		}
		text := string(buf[start : start+length])
		if !fn(id, text) {
			return
		}
		off = start + length
	}
}

// allocStringPage allocates a fresh string page with an empty next
// pointer, in the leaf/fact-page header shape ( LSN | next | payload ).
func allocStringPage(bm *buffer.Manager) (*buffer.ExclusiveRef, error) {
	ref, err := bm.AllocPage()
	if err != nil {
		return nil, err
	}
	page.WriteUint32(ref.Page.Data[:], page.LeafOffsetNext, 0)
	return ref, nil
}

package facts

import "github.com/intellect4all/triplecore/common"

// Entry is a full triple index's leaf record: one permuted (v1, v2, v3).
type Entry struct{ V1, V2, V3 common.ID }

// AggEntry is an AggregatedFacts leaf record: a (v1, v2) prefix and the
// number of base triples sharing it.
type AggEntry struct {
	V1, V2 common.ID
	Count  uint32
}

// FullAggEntry is a FullyAggregatedFacts leaf record: a v1 value and the
// number of base triples having it as the leading column of some other
// permutation.
type FullAggEntry struct {
	V1    common.ID
	Count uint32
}

// factCodec delta-compresses Entry runs: the first entry on a leaf is
// written in full; later entries carry a header byte naming which of
// v1/v2/v3 differ from the previous entry, followed by a varint per
// changed column (spec §4.3).
type factCodec struct{}

const (
	changedV1 = 1 << 0
	changedV2 = 1 << 1
	changedV3 = 1 << 2
)

func (factCodec) DeriveKey(e Entry) Key3 { return Key3{e.V1, e.V2, e.V3} }

func (factCodec) Equal(a, b Entry) bool { return a == b }

// ConflictsWith: two facts sharing a full (v1,v2,v3) key are never in
// conflict -- they're either identical (a duplicate, caught by Equal
// upstream) or, since the key *is* the whole record, cannot differ without
// also differing in key. Kept for interface completeness.
func (factCodec) ConflictsWith(newE, old Entry) bool { return false }

func (factCodec) Pack(buf []byte, entries []Entry) int {
	if len(entries) == 0 {
		return 0
	}
	off := 0
	n := 0
	var prev Entry
	for i, e := range entries {
		var need int
		var header byte
		if i == 0 {
			header = changedV1 | changedV2 | changedV3
			need = 1 + varint3Size(e.V1, e.V2, e.V3)
		} else {
			if e.V1 != prev.V1 {
				header |= changedV1
			}
			if e.V2 != prev.V2 {
				header |= changedV2
			}
			if e.V3 != prev.V3 {
				header |= changedV3
			}
			need = 1
			if header&changedV1 != 0 {
				need += varintSize32(e.V1)
			}
			if header&changedV2 != 0 {
				need += varintSize32(e.V2)
			}
			if header&changedV3 != 0 {
				need += varintSize32(e.V3)
			}
		}
		if off+need > len(buf) {
			break
		}
		buf[off] = header
		off++
		if header&changedV1 != 0 {
			off += putVarint32(buf[off:], e.V1)
		}
		if header&changedV2 != 0 {
			off += putVarint32(buf[off:], e.V2)
		}
		if header&changedV3 != 0 {
			off += putVarint32(buf[off:], e.V3)
		}
		prev = e
		n++
	}
	return n
}

func (factCodec) Unpack(buf []byte) []Entry {
	var out []Entry
	var prev Entry
	off := 0
	for off < len(buf) {
		header := buf[off]
		if header == 0 {
			break // padding / unused tail
		}
		off++
		cur := prev
		if header&changedV1 != 0 {
			v, n := getVarint32(buf[off:])
			cur.V1 = v
			off += n
		}
		if header&changedV2 != 0 {
			v, n := getVarint32(buf[off:])
			cur.V2 = v
			off += n
		}
		if header&changedV3 != 0 {
			v, n := getVarint32(buf[off:])
			cur.V3 = v
			off += n
		}
		out = append(out, cur)
		prev = cur
	}
	return out
}

// aggCodec delta-compresses AggEntry runs the same way, keyed on (v1,v2).
type aggCodec struct{}

func (aggCodec) DeriveKey(e AggEntry) Key2 { return Key2{e.V1, e.V2} }
func (aggCodec) Equal(a, b AggEntry) bool  { return a == b }

// ConflictsWith: a second AggEntry for the same (v1,v2) with a different
// count is a genuine conflict -- aggregates must be rebuilt, not merged
// blindly, so the caller (sync path) can decide whether to add or replace.
func (aggCodec) ConflictsWith(newE, old AggEntry) bool {
	return newE.Count != old.Count
}

func (aggCodec) Pack(buf []byte, entries []AggEntry) int {
	off, n := 0, 0
	var prev AggEntry
	for i, e := range entries {
		var header byte
		var need int
		if i == 0 {
			header = changedV1 | changedV2
			need = 1 + varintSize32(e.V1) + varintSize32(e.V2) + varintSize32(e.Count)
		} else {
			if e.V1 != prev.V1 {
				header |= changedV1
			}
			if e.V2 != prev.V2 {
				header |= changedV2
			}
			need = 1 + varintSize32(e.Count)
			if header&changedV1 != 0 {
				need += varintSize32(e.V1)
			}
			if header&changedV2 != 0 {
				need += varintSize32(e.V2)
			}
		}
		if off+need > len(buf) {
			break
		}
		buf[off] = header
		off++
		if header&changedV1 != 0 {
			off += putVarint32(buf[off:], e.V1)
		}
		if header&changedV2 != 0 {
			off += putVarint32(buf[off:], e.V2)
		}
		off += putVarint32(buf[off:], e.Count)
		prev = e
		n++
	}
	return n
}

func (aggCodec) Unpack(buf []byte) []AggEntry {
	var out []AggEntry
	var prev AggEntry
	off := 0
	for off < len(buf) {
		header := buf[off]
		if header == 0 {
			break
		}
		off++
		cur := prev
		if header&changedV1 != 0 {
			v, n := getVarint32(buf[off:])
			cur.V1 = v
			off += n
		}
		if header&changedV2 != 0 {
			v, n := getVarint32(buf[off:])
			cur.V2 = v
			off += n
		}
		v, n := getVarint32(buf[off:])
		cur.Count = v
		off += n
		out = append(out, cur)
		prev = cur
	}
	return out
}

// fullAggCodec delta-compresses FullAggEntry runs, keyed on v1.
type fullAggCodec struct{}

func (fullAggCodec) DeriveKey(e FullAggEntry) Key1 { return Key1{e.V1} }
func (fullAggCodec) Equal(a, b FullAggEntry) bool  { return a == b }
func (fullAggCodec) ConflictsWith(newE, old FullAggEntry) bool {
	return newE.Count != old.Count
}

func (fullAggCodec) Pack(buf []byte, entries []FullAggEntry) int {
	off, n := 0, 0
	var prev FullAggEntry
	for i, e := range entries {
		var header byte
		var need int
		if i == 0 {
			header = changedV1
			need = 1 + varintSize32(e.V1) + varintSize32(e.Count)
		} else {
			if e.V1 != prev.V1 {
				header |= changedV1
			}
			need = 1 + varintSize32(e.Count)
			if header&changedV1 != 0 {
				need += varintSize32(e.V1)
			}
		}
		if off+need > len(buf) {
			break
		}
		buf[off] = header
		off++
		if header&changedV1 != 0 {
			off += putVarint32(buf[off:], e.V1)
		}
		off += putVarint32(buf[off:], e.Count)
		prev = e
		n++
	}
	return n
}

func (fullAggCodec) Unpack(buf []byte) []FullAggEntry {
	var out []FullAggEntry
	var prev FullAggEntry
	off := 0
	for off < len(buf) {
		header := buf[off]
		if header == 0 {
			break
		}
		off++
		cur := prev
		if header&changedV1 != 0 {
			v, n := getVarint32(buf[off:])
			cur.V1 = v
			off += n
		}
		v, n := getVarint32(buf[off:])
		cur.Count = v
		off += n
		out = append(out, cur)
		prev = cur
	}
	return out
}

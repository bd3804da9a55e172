package pagefile

import (
	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/storage/page"
)

// Magic and format version stamped into page 0's first 8 bytes.
var Magic = [4]byte{'R', 'D', 'F', 0}

const FormatVersion uint32 = 1

const (
	dirOffMagic   = 0
	dirOffVersion = 4

	// Six 36-byte permutation records starting at byte 8.
	dirOffPerms    = 8
	permRecordSize = 36

	// Three 8-byte fully-aggregated records right after the permutations.
	dirOffFullAgg    = dirOffPerms + 6*permRecordSize // 224
	fullAggRecordSize = 8

	// Dictionary triad plus next_id: strings_start | mapping_root |
	// hash_index_root | next_id.
	dirOffDict = dirOffFullAgg + 3*fullAggRecordSize // 248

	// Six statistics_page pointers, 4 bytes each.
	dirOffStats = dirOffDict + 16 // 264

	// Two path_statistics_page pointers, 4 bytes each.
	dirOffPathStats = dirOffStats + 6*4 // 288

	dirSize = dirOffPathStats + 2*4 // 296
)

// PermRecord is one permutation's directory entry: the Facts and
// AggregatedFacts root pointers plus the bookkeeping spec §6 names.
type PermRecord struct {
	FactsStart    uint32
	FactsRoot     uint32
	AggStart      uint32
	AggRoot       uint32
	FactPages     uint32
	AggPages      uint32
	Groups1       uint32
	Groups2       uint32
	Cardinality   uint32
}

// Directory is the byte-exact page-0 layout spec §6 describes: six
// permutation records, three fully-aggregated roots, the dictionary
// triad, six statistics pages and two path-statistics pages.
type Directory struct {
	Perms       [6]PermRecord
	FullAggRoot [3]uint32

	DictStringsStart uint32
	DictMappingRoot  uint32
	DictHashRoot     uint32
	DictNextID       common.ID

	StatsPage     [6]uint32
	PathStatsPage [2]uint32
}

// ReadDirectory parses page 0's bytes into a Directory. It does not
// validate magic/version; callers check those explicitly so they can
// report a StorageError with the offending bytes.
func ReadDirectory(buf []byte) (Directory, error) {
	var d Directory
	if len(buf) < dirSize {
		return d, common.ErrCorrupt
	}
	for i := range d.Perms {
		off := dirOffPerms + i*permRecordSize
		d.Perms[i] = PermRecord{
			FactsStart:  page.ReadUint32(buf, off+0),
			FactsRoot:   page.ReadUint32(buf, off+4),
			AggStart:    page.ReadUint32(buf, off+8),
			AggRoot:     page.ReadUint32(buf, off+12),
			FactPages:   page.ReadUint32(buf, off+16),
			AggPages:    page.ReadUint32(buf, off+20),
			Groups1:     page.ReadUint32(buf, off+24),
			Groups2:     page.ReadUint32(buf, off+28),
			Cardinality: page.ReadUint32(buf, off+32),
		}
	}
	for i := range d.FullAggRoot {
		d.FullAggRoot[i] = page.ReadUint32(buf, dirOffFullAgg+i*fullAggRecordSize)
	}
	d.DictStringsStart = page.ReadUint32(buf, dirOffDict+0)
	d.DictMappingRoot = page.ReadUint32(buf, dirOffDict+4)
	d.DictHashRoot = page.ReadUint32(buf, dirOffDict+8)
	d.DictNextID = common.ID(page.ReadUint32(buf, dirOffDict+12))
	for i := range d.StatsPage {
		d.StatsPage[i] = page.ReadUint32(buf, dirOffStats+i*4)
	}
	for i := range d.PathStatsPage {
		d.PathStatsPage[i] = page.ReadUint32(buf, dirOffPathStats+i*4)
	}
	return d, nil
}

// WriteDirectory serializes d into page 0's bytes (magic and version
// included), ready to be written through the page file at page 0.
func WriteDirectory(d Directory) []byte {
	buf := make([]byte, page.Size)
	copy(buf[dirOffMagic:], Magic[:])
	page.WriteUint32(buf, dirOffVersion, FormatVersion)
	for i, p := range d.Perms {
		off := dirOffPerms + i*permRecordSize
		page.WriteUint32(buf, off+0, p.FactsStart)
		page.WriteUint32(buf, off+4, p.FactsRoot)
		page.WriteUint32(buf, off+8, p.AggStart)
		page.WriteUint32(buf, off+12, p.AggRoot)
		page.WriteUint32(buf, off+16, p.FactPages)
		page.WriteUint32(buf, off+20, p.AggPages)
		page.WriteUint32(buf, off+24, p.Groups1)
		page.WriteUint32(buf, off+28, p.Groups2)
		page.WriteUint32(buf, off+32, p.Cardinality)
	}
	for i, r := range d.FullAggRoot {
		page.WriteUint32(buf, dirOffFullAgg+i*fullAggRecordSize, r)
	}
	page.WriteUint32(buf, dirOffDict+0, d.DictStringsStart)
	page.WriteUint32(buf, dirOffDict+4, d.DictMappingRoot)
	page.WriteUint32(buf, dirOffDict+8, d.DictHashRoot)
	page.WriteUint32(buf, dirOffDict+12, uint32(d.DictNextID))
	for i, s := range d.StatsPage {
		page.WriteUint32(buf, dirOffStats+i*4, s)
	}
	for i, s := range d.PathStatsPage {
		page.WriteUint32(buf, dirOffPathStats+i*4, s)
	}
	return buf
}

// CheckMagic reports whether buf opens with the expected magic/version,
// per spec §6's directory page.
func CheckMagic(buf []byte) error {
	if len(buf) < 8 {
		return common.ErrBadMagic
	}
	if buf[0] != Magic[0] || buf[1] != Magic[1] || buf[2] != Magic[2] || buf[3] != Magic[3] {
		return common.ErrBadMagic
	}
	if page.ReadUint32(buf, dirOffVersion) != FormatVersion {
		return common.ErrBadVer
	}
	return nil
}

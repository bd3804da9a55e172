package overlay

import (
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/storage/bptree"
	"github.com/intellect4all/triplecore/storage/buffer"
	"github.com/intellect4all/triplecore/storage/dict"
	"github.com/intellect4all/triplecore/storage/facts"
)

// DifferentialIndex is the query-time view of a store: the six base
// Facts segments (and their aggregated projections) plus an in-memory
// overlay of triples loaded since the last sync().
type DifferentialIndex struct {
	bm   *buffer.Manager
	dict *dict.Dictionary

	base        map[common.Permutation]*facts.Facts
	baseAgg     map[common.Permutation]*facts.AggregatedFacts
	baseFullAgg map[common.Permutation]*facts.FullyAggregatedFacts

	sets map[common.Permutation]*permSet

	dictMu     sync.RWMutex
	pending    []string
	pendingIDs []common.ID

	version uint64 // bumped by every load(), used as the overlay's "created" generation
}

// New wires a differential index over base (one Facts segment, and its
// aggregated projections, per permutation -- spec §3's six SPO
// permutations) and dict.
func New(bm *buffer.Manager, d *dict.Dictionary, base map[common.Permutation]*facts.Facts, baseAgg map[common.Permutation]*facts.AggregatedFacts, baseFullAgg map[common.Permutation]*facts.FullyAggregatedFacts) *DifferentialIndex {
	sets := make(map[common.Permutation]*permSet, len(common.Permutations))
	for _, p := range common.Permutations {
		sets[p] = newPermSet()
	}
	return &DifferentialIndex{bm: bm, dict: d, base: base, baseAgg: baseAgg, baseFullAgg: baseFullAgg, sets: sets, version: 1}
}

// Load inserts triples into all six orders with created = the current
// generation and deleted = the "never" sentinel.
func (d *DifferentialIndex) Load(triples []common.Triple) {
	d.version++
	gen := d.version
	for _, p := range common.Permutations {
		set := d.sets[p]
		for _, t := range triples {
			v1, v2, v3 := t.Permute(p)
			set.insert(VersionedTriple{V1: v1, V2: v2, V3: v3, Created: gen, Deleted: noDeletion})
		}
	}
}

// MapStrings issues new ids for strings not yet in the dictionary,
// starting from dictionary.next_id() + overlay_size, and remembers them
// for the next sync().
func (d *DifferentialIndex) MapStrings(strings []string) []common.ID {
	d.dictMu.Lock()
	defer d.dictMu.Unlock()
	base := d.dict.NextID() + common.ID(len(d.pending))
	ids := make([]common.ID, len(strings))
	for i, s := range strings {
		ids[i] = base + common.ID(i)
		d.pending = append(d.pending, s)
		d.pendingIDs = append(d.pendingIDs, ids[i])
	}
	return ids
}

// Sync takes all seven latches exclusive, appends pending strings to the
// dictionary, then for each permutation runs a B+-tree merge update
// using the overlay as source, and clears the overlay.
func (d *DifferentialIndex) Sync() error {
	for _, p := range common.Permutations {
		d.sets[p].mu.Lock()
		defer d.sets[p].mu.Unlock()
	}
	d.dictMu.Lock()
	defer d.dictMu.Unlock()

	if len(d.pending) > 0 {
		if _, err := d.dict.AppendStrings(d.pending); err != nil {
			return err
		}
		d.pending = nil
		d.pendingIDs = nil
	}

	for _, p := range common.Permutations {
		if err := d.syncPermutation(p); err != nil {
			return err
		}
		d.sets[p] = newPermSet()
	}
	return nil
}

func (d *DifferentialIndex) syncPermutation(p common.Permutation) error {
	set := d.sets[p]
	versioned := set.all()
	if len(versioned) == 0 {
		return nil
	}
	entries := make([]facts.Entry, 0, len(versioned))
	for _, v := range versioned {
		if v.Deleted != noDeletion {
			continue
		}
		entries = append(entries, facts.Entry{V1: v.V1, V2: v.V2, V3: v.V3})
	}
	if len(entries) == 0 {
		return nil
	}
	base, ok := d.base[p]
	if !ok {
		built, err := facts.BulkLoadFacts(d.bm, bptree.NewSliceSource(entries))
		if err != nil {
			return err
		}
		d.base[p] = built
	} else {
		conflicts := roaring.New()
		if err := base.MergeUpdate(d.bm, bptree.NewSliceSource(entries), conflicts); err != nil {
			return err
		}
	}
	return d.rebuildAggregates(p)
}

// rebuildAggregates re-derives baseAgg[p] and baseFullAgg[p] from the
// just-merged base[p] segment, since a merge changes which (v1, v2) and
// v1 prefixes exist and how many triples share them; the aggregated
// projections have no merge of their own to drive off the overlay's raw
// triples the way the plain Facts segment does.
func (d *DifferentialIndex) rebuildAggregates(p common.Permutation) error {
	all, err := scanAllEntries(d.base[p])
	if err != nil {
		return err
	}
	aggEntries := facts.DeriveAggregated(all)
	agg, err := facts.BulkLoadAggregatedFacts(d.bm, bptree.NewSliceSource(aggEntries))
	if err != nil {
		return err
	}
	d.baseAgg[p] = agg

	fullAggEntries := facts.DeriveFullyAggregated(aggEntries)
	fullAgg, err := facts.BulkLoadFullyAggregatedFacts(d.bm, bptree.NewSliceSource(fullAggEntries))
	if err != nil {
		return err
	}
	d.baseFullAgg[p] = fullAgg
	return nil
}

// scanAllEntries walks f's full Scan3 cursor, returning every entry in
// tree order.
func scanAllEntries(f *facts.Facts) ([]facts.Entry, error) {
	scan, err := f.First(common.Unbound, common.Unbound, common.Unbound)
	if err != nil {
		return nil, err
	}
	var out []facts.Entry
	for scan.Valid() {
		out = append(out, facts.Entry{V1: scan.Value1(), V2: scan.Value2(), V3: scan.Value3()})
		more, err := scan.Next()
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}
	return out, nil
}

// Base returns the current base Facts segment for perm, for the merged
// scan to read through.
func (d *DifferentialIndex) Base(perm common.Permutation) *facts.Facts { return d.base[perm] }

package facts

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/storage/bptree"
	"github.com/intellect4all/triplecore/storage/buffer"
)

// Facts is one permutation's full triple index: every (v1, v2, v3) in that
// permutation's sort order.
type Facts struct{ tree *bptree.Tree[Key3, Entry] }

// AggregatedFacts is one permutation's (v1, v2, count) projection: for each
// distinct (v1, v2) prefix, how many base triples share it.
type AggregatedFacts struct{ tree *bptree.Tree[Key2, AggEntry] }

// FullyAggregatedFacts is one permutation's (v1, count) projection: for
// each distinct leading column, how many base triples have it.
type FullyAggregatedFacts struct{ tree *bptree.Tree[Key1, FullAggEntry] }

func OpenFacts(bm *buffer.Manager, root uint32) *Facts {
	return &Facts{tree: bptree.Open[Key3, Entry](bm, root, Key3Codec, factCodec{})}
}

func OpenAggregatedFacts(bm *buffer.Manager, root uint32) *AggregatedFacts {
	return &AggregatedFacts{tree: bptree.Open[Key2, AggEntry](bm, root, Key2Codec, aggCodec{})}
}

func OpenFullyAggregatedFacts(bm *buffer.Manager, root uint32) *FullyAggregatedFacts {
	return &FullyAggregatedFacts{tree: bptree.Open[Key1, FullAggEntry](bm, root, Key1Codec, fullAggCodec{})}
}

func (f *Facts) RootPage() uint32               { return f.tree.RootPage() }
func (a *AggregatedFacts) RootPage() uint32      { return a.tree.RootPage() }
func (a *FullyAggregatedFacts) RootPage() uint32 { return a.tree.RootPage() }

// BulkLoad rebuilds a Facts index in place from a sorted stream of triples.
func BulkLoadFacts(bm *buffer.Manager, src bptree.Source[Entry]) (*Facts, error) {
	root, err := bptree.BulkLoad[Key3, Entry](bm, Key3Codec, factCodec{}, src)
	if err != nil {
		return nil, err
	}
	return OpenFacts(bm, root), nil
}

func BulkLoadAggregatedFacts(bm *buffer.Manager, src bptree.Source[AggEntry]) (*AggregatedFacts, error) {
	root, err := bptree.BulkLoad[Key2, AggEntry](bm, Key2Codec, aggCodec{}, src)
	if err != nil {
		return nil, err
	}
	return OpenAggregatedFacts(bm, root), nil
}

func BulkLoadFullyAggregatedFacts(bm *buffer.Manager, src bptree.Source[FullAggEntry]) (*FullyAggregatedFacts, error) {
	root, err := bptree.BulkLoad[Key1, FullAggEntry](bm, Key1Codec, fullAggCodec{}, src)
	if err != nil {
		return nil, err
	}
	return OpenFullyAggregatedFacts(bm, root), nil
}

// MergeUpdate three-way merges src's sorted new triples into the index,
// rebuilding it in place and returning the new root page. conflicts, if
// non-nil, receives the position of every new entry that lost to a
// conflicting existing one.
func (f *Facts) MergeUpdate(bm *buffer.Manager, src bptree.Source[Entry], conflicts *roaring.Bitmap) error {
	root, err := bptree.MergeUpdate[Key3, Entry](bm, f.tree, Key3Codec, factCodec{}, src, conflicts)
	if err != nil {
		return err
	}
	f.tree = bptree.Open[Key3, Entry](bm, root, Key3Codec, factCodec{})
	return nil
}

func (a *AggregatedFacts) MergeUpdate(bm *buffer.Manager, src bptree.Source[AggEntry], conflicts *roaring.Bitmap) error {
	root, err := bptree.MergeUpdate[Key2, AggEntry](bm, a.tree, Key2Codec, aggCodec{}, src, conflicts)
	if err != nil {
		return err
	}
	a.tree = bptree.Open[Key2, AggEntry](bm, root, Key2Codec, aggCodec{})
	return nil
}

func (a *FullyAggregatedFacts) MergeUpdate(bm *buffer.Manager, src bptree.Source[FullAggEntry], conflicts *roaring.Bitmap) error {
	root, err := bptree.MergeUpdate[Key1, FullAggEntry](bm, a.tree, Key1Codec, fullAggCodec{}, src, conflicts)
	if err != nil {
		return err
	}
	a.tree = bptree.Open[Key1, FullAggEntry](bm, root, Key1Codec, fullAggCodec{})
	return nil
}

// Scan is the volcano-level cursor over a Facts index: first/next plus the
// per-column accessors operator.IndexScan drives directly, and a Hint so a
// merge-join driving this scan from the outside can skip forward past
// values it already knows can't match (spec §4.3's "hint" mechanism).
type Scan struct {
	cur *bptree.Cursor[Key3, Entry]
	mul uint32
}

// First positions a scan at the first triple whose permuted columns are
// >= (v1, v2, v3), treating common.Unbound in any trailing position as "no
// constraint on this column or later ones".
func (f *Facts) First(v1, v2, v3 common.ID) (*Scan, error) {
	from := Key3{V1: v1, V2: v2, V3: v3}
	if v1 == common.Unbound {
		from = Key3{}
	} else if v2 == common.Unbound {
		from = Key3{V1: v1}
	} else if v3 == common.Unbound {
		from = Key3{V1: v1, V2: v2}
	}
	cur, err := f.tree.First(from)
	if err != nil {
		return nil, err
	}
	return &Scan{cur: cur, mul: 1}, nil
}

func (s *Scan) Valid() bool { return s.cur.Valid() }

func (s *Scan) Next() (bool, error) { return s.cur.Next() }

func (s *Scan) Value1() common.ID { return s.cur.Entry().V1 }
func (s *Scan) Value2() common.ID { return s.cur.Entry().V2 }
func (s *Scan) Value3() common.ID { return s.cur.Entry().V3 }

// Hint skips the scan forward to the first entry whose columns are >=
// (v1, v2, v3), used by a driving merge-join to avoid a linear scan past
// values that can't contribute a match.
func (s *Scan) Hint(tree *Facts, v1, v2, v3 common.ID) error {
	cur, err := tree.tree.First(Key3{V1: v1, V2: v2, V3: v3})
	if err != nil {
		return err
	}
	s.cur = cur
	return nil
}

// AggScan is the volcano-level cursor over an AggregatedFacts index.
type AggScan struct{ cur *bptree.Cursor[Key2, AggEntry] }

func (a *AggregatedFacts) First(v1, v2 common.ID) (*AggScan, error) {
	from := Key2{V1: v1, V2: v2}
	if v1 == common.Unbound {
		from = Key2{}
	} else if v2 == common.Unbound {
		from = Key2{V1: v1}
	}
	cur, err := a.tree.First(from)
	if err != nil {
		return nil, err
	}
	return &AggScan{cur: cur}, nil
}

func (s *AggScan) Valid() bool            { return s.cur.Valid() }
func (s *AggScan) Next() (bool, error)    { return s.cur.Next() }
func (s *AggScan) Value1() common.ID      { return s.cur.Entry().V1 }
func (s *AggScan) Value2() common.ID      { return s.cur.Entry().V2 }
func (s *AggScan) Count() uint32          { return s.cur.Entry().Count }

// FullAggScan is the volcano-level cursor over a FullyAggregatedFacts
// index.
type FullAggScan struct{ cur *bptree.Cursor[Key1, FullAggEntry] }

func (a *FullyAggregatedFacts) First(v1 common.ID) (*FullAggScan, error) {
	from := Key1{V1: v1}
	if v1 == common.Unbound {
		from = Key1{}
	}
	cur, err := a.tree.First(from)
	if err != nil {
		return nil, err
	}
	return &FullAggScan{cur: cur}, nil
}

func (s *FullAggScan) Valid() bool         { return s.cur.Valid() }
func (s *FullAggScan) Next() (bool, error) { return s.cur.Next() }
func (s *FullAggScan) Value1() common.ID   { return s.cur.Entry().V1 }
func (s *FullAggScan) Count() uint32       { return s.cur.Entry().Count }

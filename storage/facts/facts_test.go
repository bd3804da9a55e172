package facts

import (
	"path/filepath"
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/require"

	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/storage/bptree"
	"github.com/intellect4all/triplecore/storage/buffer"
	"github.com/intellect4all/triplecore/storage/pagefile"
)

func freshManager(t *testing.T) *buffer.Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "segment.dat")
	pf, err := pagefile.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { pf.Close() })
	return buffer.New(pf, 64)
}

func sampleTriples() []common.Triple {
	return []common.Triple{
		{S: 1, P: 10, O: 100},
		{S: 1, P: 10, O: 101},
		{S: 1, P: 11, O: 100},
		{S: 2, P: 10, O: 100},
	}
}

func TestBulkLoadFactsRoundTrip(t *testing.T) {
	bm := freshManager(t)
	src := NewPermutedSource(sampleTriples(), common.SPO)

	f, err := BulkLoadFacts(bm, src)
	require.NoError(t, err)

	scan, err := f.First(common.Unbound, common.Unbound, common.Unbound)
	require.NoError(t, err)

	var got []Entry
	for scan.Valid() {
		got = append(got, Entry{scan.Value1(), scan.Value2(), scan.Value3()})
		ok, err := scan.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
	}
	require.Equal(t, SortedEntries(sampleTriples(), common.SPO), got)
}

func TestFactsScanHonoursBoundPrefix(t *testing.T) {
	bm := freshManager(t)
	src := NewPermutedSource(sampleTriples(), common.SPO)
	f, err := BulkLoadFacts(bm, src)
	require.NoError(t, err)

	scan, err := f.First(1, 10, common.Unbound)
	require.NoError(t, err)
	require.True(t, scan.Valid())
	require.Equal(t, common.ID(1), scan.Value1())
	require.Equal(t, common.ID(10), scan.Value2())
	require.Equal(t, common.ID(100), scan.Value3())
}

func TestDeriveAggregatedAndFullyAggregated(t *testing.T) {
	entries := SortedEntries(sampleTriples(), common.SPO)
	agg := DeriveAggregated(entries)
	require.Equal(t, []AggEntry{
		{V1: 1, V2: 10, Count: 2},
		{V1: 1, V2: 11, Count: 1},
		{V1: 2, V2: 10, Count: 1},
	}, agg)

	full := DeriveFullyAggregated(agg)
	require.Equal(t, []FullAggEntry{
		{V1: 1, Count: 3},
		{V1: 2, Count: 1},
	}, full)
}

func TestBulkLoadAggregatedAndFullyAggregatedFacts(t *testing.T) {
	bm := freshManager(t)
	entries := SortedEntries(sampleTriples(), common.SPO)
	agg := DeriveAggregated(entries)

	af, err := BulkLoadAggregatedFacts(bm, bptree.NewSliceSource(agg))
	require.NoError(t, err)

	scan, err := af.First(1, common.Unbound)
	require.NoError(t, err)
	require.True(t, scan.Valid())
	require.Equal(t, common.ID(10), scan.Value2())
	require.Equal(t, uint32(2), scan.Count())

	full := DeriveFullyAggregated(agg)
	ff, err := BulkLoadFullyAggregatedFacts(bm, bptree.NewSliceSource(full))
	require.NoError(t, err)

	fscan, err := ff.First(2)
	require.NoError(t, err)
	require.True(t, fscan.Valid())
	require.Equal(t, uint32(1), fscan.Count())
}

func TestFactsMergeUpdateFlagsDuplicates(t *testing.T) {
	bm := freshManager(t)
	f, err := BulkLoadFacts(bm, NewPermutedSource(sampleTriples(), common.SPO))
	require.NoError(t, err)

	conflicts := roaring.New()
	extra := []common.Triple{{S: 1, P: 10, O: 100}, {S: 3, P: 20, O: 200}}
	src := NewPermutedSource(extra, common.SPO)
	require.NoError(t, f.MergeUpdate(bm, src, conflicts))

	scan, err := f.First(3, common.Unbound, common.Unbound)
	require.NoError(t, err)
	require.True(t, scan.Valid())
	require.Equal(t, common.ID(20), scan.Value2())
}

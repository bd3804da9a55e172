package overlay

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/storage/buffer"
	"github.com/intellect4all/triplecore/storage/dict"
	"github.com/intellect4all/triplecore/storage/facts"
	"github.com/intellect4all/triplecore/storage/pagefile"
)

func freshIndex(t *testing.T) *DifferentialIndex {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overlay.dat")
	pf, err := pagefile.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { pf.Close() })
	bm := buffer.New(pf, 64)

	d, err := dict.New(bm)
	require.NoError(t, err)

	base := map[common.Permutation]*facts.Facts{}
	baseAgg := map[common.Permutation]*facts.AggregatedFacts{}
	baseFullAgg := map[common.Permutation]*facts.FullyAggregatedFacts{}
	return New(bm, d, base, baseAgg, baseFullAgg)
}

func TestCreateScanSeesLoadedTriplesBeforeSync(t *testing.T) {
	idx := freshIndex(t)
	idx.Load([]common.Triple{{S: 1, P: 10, O: 100}, {S: 1, P: 10, O: 101}})

	scan, err := idx.CreateScan(common.SPO, common.Unbound, common.Unbound, common.Unbound)
	require.NoError(t, err)

	var got []common.ID
	for scan.Valid() {
		got = append(got, scan.Value3())
		ok, err := scan.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
	}
	require.ElementsMatch(t, []common.ID{100, 101}, got)
}

func TestSyncMovesOverlayIntoBase(t *testing.T) {
	idx := freshIndex(t)
	idx.Load([]common.Triple{{S: 1, P: 10, O: 100}})
	require.NoError(t, idx.Sync())

	require.NotNil(t, idx.Base(common.SPO))

	scan, err := idx.CreateScan(common.SPO, 1, 10, common.Unbound)
	require.NoError(t, err)
	require.True(t, scan.Valid())
	require.Equal(t, common.ID(100), scan.Value3())
}

func TestMapStringsMintsStableIncreasingIDs(t *testing.T) {
	idx := freshIndex(t)
	ids := idx.MapStrings([]string{"alice", "bob"})
	require.Len(t, ids, 2)
	require.Less(t, ids[0], ids[1])

	more := idx.MapStrings([]string{"carol"})
	require.Greater(t, more[0], ids[1])
}

func TestMergedScanHonoursBoundPrefixAfterSync(t *testing.T) {
	idx := freshIndex(t)
	idx.Load([]common.Triple{
		{S: 1, P: 10, O: 100},
		{S: 2, P: 10, O: 100},
	})
	require.NoError(t, idx.Sync())

	scan, err := idx.CreateScan(common.SPO, 2, common.Unbound, common.Unbound)
	require.NoError(t, err)
	require.True(t, scan.Valid())
	require.Equal(t, common.ID(10), scan.Value2())
	ok, err := scan.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

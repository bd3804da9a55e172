package dict

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intellect4all/triplecore/storage/buffer"
	"github.com/intellect4all/triplecore/storage/pagefile"
)

func freshDict(t *testing.T) *Dictionary {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dict.dat")
	pf, err := pagefile.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { pf.Close() })
	bm := buffer.New(pf, 64)
	d, err := New(bm)
	require.NoError(t, err)
	return d
}

func TestAppendStringsAssignsIncreasingIDs(t *testing.T) {
	d := freshDict(t)
	ids, err := d.AppendStrings([]string{"alice", "bob", "carol"})
	require.NoError(t, err)
	require.Len(t, ids, 3)
	require.Less(t, ids[0], ids[1])
	require.Less(t, ids[1], ids[2])
}

func TestLookupRoundTripsBothDirections(t *testing.T) {
	d := freshDict(t)
	ids, err := d.AppendStrings([]string{"alice", "bob"})
	require.NoError(t, err)

	id, ok, err := d.Lookup("alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, ids[0], id)

	text, ok, err := d.LookupByID(ids[1])
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "bob", text)
}

func TestLookupMissReportsNotFound(t *testing.T) {
	d := freshDict(t)
	_, err := d.AppendStrings([]string{"alice"})
	require.NoError(t, err)

	_, ok, err := d.Lookup("nobody")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNextIDAdvancesAcrossAppends(t *testing.T) {
	d := freshDict(t)
	before := d.NextID()
	_, err := d.AppendStrings([]string{"x", "y"})
	require.NoError(t, err)
	require.Equal(t, before+2, d.NextID())
}

func TestReverseIteratorWalksEveryString(t *testing.T) {
	d := freshDict(t)
	want := []string{"alice", "bob", "carol"}
	_, err := d.AppendStrings(want)
	require.NoError(t, err)

	it, err := d.NewReverseIterator()
	require.NoError(t, err)

	seen := map[string]bool{}
	for {
		_, text, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		seen[text] = true
	}
	for _, s := range want {
		require.True(t, seen[s], "expected %q in reverse iteration", s)
	}
}

func TestDictionaryReopensFromHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.dat")
	pf, err := pagefile.Open(path)
	require.NoError(t, err)
	bm := buffer.New(pf, 64)

	d, err := New(bm)
	require.NoError(t, err)
	ids, err := d.AppendStrings([]string{"alice"})
	require.NoError(t, err)
	hdr := d.Header()
	require.NoError(t, pf.Flush())

	reopened := Open(bm, hdr)
	text, ok, err := reopened.LookupByID(ids[0])
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alice", text)
}

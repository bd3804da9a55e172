package triplecore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intellect4all/triplecore/operator"
)

func freshStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.triples")
	store, err := Open(DefaultOptions(path))
	require.NoError(t, err)
	require.False(t, store.Built())
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleTriples() []RawTriple {
	return []RawTriple{
		{S: "alice", P: "knows", O: "bob"},
		{S: "alice", P: "knows", O: "carol"},
		{S: "bob", P: "knows", O: "carol"},
		{S: "carol", P: "likes", O: "cheese"},
	}
}

func TestBulkLoadAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.triples")

	store, err := Open(DefaultOptions(path))
	require.NoError(t, err)
	report, err := store.BulkLoad(sampleTriples())
	require.NoError(t, err)
	require.Equal(t, 4, report.Triples)
	require.Equal(t, 6, report.Terms) // alice, knows, bob, carol, likes, cheese
	require.NoError(t, store.Close())

	reopened, err := Open(DefaultOptions(path))
	require.NoError(t, err)
	defer reopened.Close()
	require.True(t, reopened.Built())

	id, ok, err := reopened.Dict.Lookup("alice")
	require.NoError(t, err)
	require.True(t, ok)
	text, ok, err := reopened.Dict.LookupByID(id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alice", text)
}

func TestBulkLoadRejectsAlreadyBuilt(t *testing.T) {
	store := freshStore(t)
	_, err := store.BulkLoad(sampleTriples())
	require.NoError(t, err)

	_, err = store.BulkLoad(sampleTriples())
	require.Error(t, err)
}

func TestDatabaseScansEveryPermutation(t *testing.T) {
	store := freshStore(t)
	_, err := store.BulkLoad(sampleTriples())
	require.NoError(t, err)

	db := store.Database()
	aliceID, _, err := store.Dict.Lookup("alice")
	require.NoError(t, err)

	scan, err := db.Facts(0).First(aliceID, 0, 0)
	require.NoError(t, err)
	count := 0
	for scan.Valid() {
		count++
		more, err := scan.Next()
		require.NoError(t, err)
		if !more {
			break
		}
	}
	require.Greater(t, count, 0)
}

func TestSyncFlushesOverlay(t *testing.T) {
	store := freshStore(t)
	_, err := store.BulkLoad(sampleTriples())
	require.NoError(t, err)

	var buf bytes.Buffer
	beforeStats := store.Stats()
	require.NoError(t, store.Sync())
	fmt.Fprint(&buf, beforeStats) // touch Stats' Stringer without asserting its shape
	require.NoError(t, store.Sync())
}

func TestStoreSatisfiesOperatorDatabase(t *testing.T) {
	store := freshStore(t)
	var _ operator.Database = store.Database()
}

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}

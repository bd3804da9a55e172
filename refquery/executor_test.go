package refquery_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intellect4all/triplecore"
	"github.com/intellect4all/triplecore/operator"
	"github.com/intellect4all/triplecore/refquery"
	"github.com/intellect4all/triplecore/runtime"
)

func openSampleStore(t *testing.T) *triplecore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.triples")
	store, err := triplecore.Open(triplecore.DefaultOptions(path))
	require.NoError(t, err)
	_, err = store.BulkLoad([]triplecore.RawTriple{
		{S: "alice", P: "knows", O: "bob"},
		{S: "alice", P: "knows", O: "carol"},
		{S: "bob", P: "knows", O: "carol"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestExecuteSelectReturnsBoundTuples(t *testing.T) {
	store := openSampleStore(t)
	resolve := func(s string) uint32 {
		id, ok, err := store.Dict.Lookup(s)
		require.NoError(t, err)
		if !ok {
			return ^uint32(0)
		}
		return id
	}

	q, err := refquery.Parse(`SELECT ?x ?y WHERE { ?x <knows> ?y }`)
	require.NoError(t, err)

	pl := refquery.NewPlanner(refquery.NewConstantStatistics())
	plan, err := pl.Plan(q, resolve)
	require.NoError(t, err)

	rt := runtime.New(store, store.Overlay)
	var out bytes.Buffer
	n, err := refquery.Execute(rt, store.Database(), store.Dict, plan, resolve, &out, operator.ExpandDuplicates)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Contains(t, out.String(), "alice")
}

func TestExecuteUnionCombinesBranches(t *testing.T) {
	store := openSampleStore(t)
	resolve := func(s string) uint32 {
		id, ok, err := store.Dict.Lookup(s)
		require.NoError(t, err)
		if !ok {
			return ^uint32(0)
		}
		return id
	}

	q, err := refquery.Parse(`SELECT ?x WHERE { { ?x <knows> <bob> } UNION { ?x <knows> <carol> } }`)
	require.NoError(t, err)

	pl := refquery.NewPlanner(refquery.NewConstantStatistics())
	plan, err := pl.Plan(q, resolve)
	require.NoError(t, err)

	rt := runtime.New(store, store.Overlay)
	var out bytes.Buffer
	n, err := refquery.Execute(rt, store.Database(), store.Dict, plan, resolve, &out, operator.ExpandDuplicates)
	require.NoError(t, err)
	// alice (via bob), plus alice and bob (via carol) -- UNION concatenates
	// branches rather than deduplicating, as spec.md §8's worked example.
	require.Equal(t, 3, n)
}

func TestExecuteLimitStopsEarly(t *testing.T) {
	store := openSampleStore(t)
	resolve := func(s string) uint32 {
		id, ok, err := store.Dict.Lookup(s)
		require.NoError(t, err)
		if !ok {
			return ^uint32(0)
		}
		return id
	}

	q, err := refquery.Parse(`SELECT ?x ?y WHERE { ?x <knows> ?y } LIMIT 1`)
	require.NoError(t, err)

	pl := refquery.NewPlanner(refquery.NewConstantStatistics())
	plan, err := pl.Plan(q, resolve)
	require.NoError(t, err)

	rt := runtime.New(store, store.Overlay)
	var out bytes.Buffer
	n, err := refquery.Execute(rt, store.Database(), store.Dict, plan, resolve, &out, operator.ExpandDuplicates)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

package refquery_test

// This file drives spec.md §8's six end-to-end scenarios against the same
// library surface cmd/query's session type is built on: a triplecore.Store,
// refquery.Parse/NewPlanner/Plan, a runtime.Runtime, and refquery.Execute.
// cmd/query itself is package main and can't be imported from a test, so
// this exercises its underlying library calls directly instead.

import (
	"bytes"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intellect4all/triplecore"
	"github.com/intellect4all/triplecore/common"
	"github.com/intellect4all/triplecore/operator"
	"github.com/intellect4all/triplecore/refquery"
	"github.com/intellect4all/triplecore/runtime"
)

// scenarioStore opens a fresh store loaded with scenario 1-2's three
// triples: (a knows b), (a knows c), (b knows c).
func scenarioStore(t *testing.T) *triplecore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.triples")
	store, err := triplecore.Open(triplecore.DefaultOptions(path))
	require.NoError(t, err)
	_, err = store.BulkLoad([]triplecore.RawTriple{
		{S: "a", P: "knows", O: "b"},
		{S: "a", P: "knows", O: "c"},
		{S: "b", P: "knows", O: "c"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func resolverFor(t *testing.T, store *triplecore.Store) func(string) common.ID {
	t.Helper()
	return func(s string) common.ID {
		id, ok, err := store.Dict.Lookup(s)
		require.NoError(t, err)
		if !ok {
			return common.Unbound
		}
		return id
	}
}

// parseRows turns ResultsPrinter's fmt.Sprintln([]string)-style output
// ("[a b]\n[a c]\n") into one space-joined string per row, in print order.
func parseRows(out string) []string {
	var rows []string
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		line = strings.TrimSuffix(line, "]")
		line = strings.TrimPrefix(line, "[")
		if bracket := strings.Index(line, "]"); bracket >= 0 {
			line = line[:bracket] // strip a trailing "(x%d)" annotation, if any
		}
		rows = append(rows, line)
	}
	return rows
}

func runQuery(t *testing.T, store *triplecore.Store, query string, policy operator.DuplicatePolicy) (string, int) {
	t.Helper()
	resolve := resolverFor(t, store)

	q, err := refquery.Parse(query)
	require.NoError(t, err)

	pl := refquery.NewPlanner(refquery.NewConstantStatistics())
	plan, err := pl.Plan(q, resolve)
	require.NoError(t, err)

	rt := runtime.New(store, store.Database())
	var out bytes.Buffer
	n, err := refquery.Execute(rt, store.Database(), store.Dict, plan, resolve, &out, policy)
	require.NoError(t, err)
	return out.String(), n
}

// Scenario 1: SELECT ?x WHERE { ?x knows c } with ReduceDuplicates returns
// {a, b}, one row each, in some order.
func TestScenario1SingleVariableSelect(t *testing.T) {
	store := scenarioStore(t)
	out, n := runQuery(t, store, `SELECT ?x WHERE { ?x <knows> <c> }`, operator.ReduceDuplicates)
	require.Equal(t, 2, n)
	rows := parseRows(out)
	sort.Strings(rows)
	require.Equal(t, []string{"a", "b"}, rows)
}

// Scenario 2: SELECT ?x ?y WHERE { ?x knows ?y } ORDER BY ?x ?y returns the
// three tuples in lexicographic order.
func TestScenario2OrderedTwoVariableSelect(t *testing.T) {
	store := scenarioStore(t)
	out, n := runQuery(t, store, `SELECT ?x ?y WHERE { ?x <knows> ?y } ORDER BY ?x ?y`, operator.ReduceDuplicates)
	require.Equal(t, 3, n)
	require.Equal(t, []string{"a b", "a c", "b c"}, parseRows(out))
}

// Scenario 3: a triple inserted into the differential overlay without a
// sync() is already visible to a query over the affected subject.
func TestScenario3UnsyncedOverlayIsVisible(t *testing.T) {
	store := scenarioStore(t)
	resolve := resolverFor(t, store)

	aID := resolve("a")
	knowsID := resolve("knows")
	newIDs := store.Overlay.MapStrings([]string{"d"})
	store.Overlay.Load([]common.Triple{{S: aID, P: knowsID, O: newIDs[0]}})

	out, n := runQuery(t, store, `SELECT ?y WHERE { <a> <knows> ?y }`, operator.ReduceDuplicates)
	require.Equal(t, 3, n)
	rows := parseRows(out)
	sort.Strings(rows)
	require.Equal(t, []string{"b", "c", "d"}, rows)
}

// Scenario 4: after sync(), the same query still returns the same three
// objects, and the fully-aggregated subject index now reports a,knows,* as
// three distinct triples.
func TestScenario4SyncPreservesOverlayData(t *testing.T) {
	store := scenarioStore(t)
	resolve := resolverFor(t, store)

	aID := resolve("a")
	knowsID := resolve("knows")
	newIDs := store.Overlay.MapStrings([]string{"d"})
	store.Overlay.Load([]common.Triple{{S: aID, P: knowsID, O: newIDs[0]}})
	require.NoError(t, store.Sync())

	out, n := runQuery(t, store, `SELECT ?y WHERE { <a> <knows> ?y }`, operator.ReduceDuplicates)
	require.Equal(t, 3, n)
	rows := parseRows(out)
	sort.Strings(rows)
	require.Equal(t, []string{"b", "c", "d"}, rows)

	scan, err := store.Database().FullyAggregated(common.SPO).First(aID)
	require.NoError(t, err)
	require.True(t, scan.Valid())
	require.Equal(t, uint32(3), scan.Count())
}

// Scenario 5: this reference parser has no COUNT(*) aggregate, so
// spec.md §8's "SELECT COUNT(*)" is exercised as the full unbound scan it
// would compile down to: every triple loaded this session (the original
// three plus scenario 3/4's insert), counted by ExpandDuplicates' row
// total and cross-checked per-row by CountDuplicates (each distinct
// triple has multiplicity 1, so four rows each annotated "x1").
func TestScenario5CountStar(t *testing.T) {
	store := scenarioStore(t)
	resolve := resolverFor(t, store)
	aID := resolve("a")
	knowsID := resolve("knows")
	newIDs := store.Overlay.MapStrings([]string{"d"})
	store.Overlay.Load([]common.Triple{{S: aID, P: knowsID, O: newIDs[0]}})
	require.NoError(t, store.Sync())

	_, n := runQuery(t, store, `SELECT ?s ?p ?o WHERE { ?s ?p ?o }`, operator.ExpandDuplicates)
	require.Equal(t, 4, n)

	out, n := runQuery(t, store, `SELECT ?s ?p ?o WHERE { ?s ?p ?o }`, operator.CountDuplicates)
	require.Equal(t, 4, n)
	require.Equal(t, 4, strings.Count(out, "x1"))
}

// Scenario 6: { ?x knows b } UNION { ?x knows c } with ReduceDuplicates
// reports a once from the left branch, and a, b once each from the right.
func TestScenario6UnionOfTwoBranches(t *testing.T) {
	store := scenarioStore(t)
	out, n := runQuery(t, store, `SELECT ?x WHERE { { ?x <knows> <b> } UNION { ?x <knows> <c> } }`, operator.ReduceDuplicates)
	require.Equal(t, 3, n)
	rows := parseRows(out)
	sort.Strings(rows)
	require.Equal(t, []string{"a", "a", "b"}, rows)
}

package refquery

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSimpleSelect(t *testing.T) {
	q, err := Parse(`SELECT ?x ?y WHERE { ?x <http://knows> ?y }`)
	require.NoError(t, err)
	require.Equal(t, ModeSelect, q.Mode)
	require.Equal(t, []string{"x", "y"}, q.Projection)
	require.Len(t, q.Where.Patterns, 1)
	require.Equal(t, "http://knows", q.Where.Patterns[0].P.Value)
}

func TestParseSelectStarDiscoversProjection(t *testing.T) {
	q, err := Parse(`SELECT * WHERE { ?s ?p ?o }`)
	require.NoError(t, err)
	require.Equal(t, []string{"s", "p", "o"}, q.Projection)
}

func TestParseWithPrefix(t *testing.T) {
	q, err := Parse(`PREFIX ex: <http://example.org/> SELECT ?x WHERE { ?x ex:knows ex:bob }`)
	require.NoError(t, err)
	require.Equal(t, "http://example.org/knows", q.Where.Patterns[0].P.Value)
	require.Equal(t, "http://example.org/bob", q.Where.Patterns[0].O.Value)
}

func TestParseFilterEquality(t *testing.T) {
	q, err := Parse(`SELECT ?x WHERE { ?x <http://age> ?a . FILTER(?a != <http://zero>) }`)
	require.NoError(t, err)
	require.Len(t, q.Where.Filters, 1)
	require.Equal(t, OpNotEqual, q.Where.Filters[0].Op)
}

func TestParseFilterWithoutSpacesAroundEquals(t *testing.T) {
	q, err := Parse(`SELECT ?x WHERE { ?x <http://age> ?a . FILTER(?a=<http://zero>) }`)
	require.NoError(t, err)
	require.Len(t, q.Where.Filters, 1)
	require.Equal(t, OpEqual, q.Where.Filters[0].Op)
}

func TestParseUnion(t *testing.T) {
	q, err := Parse(`SELECT ?x WHERE { { ?x <http://a> <http://b> } UNION { ?x <http://c> <http://d> } }`)
	require.NoError(t, err)
	require.Len(t, q.UnionBranches, 2)
	require.Empty(t, q.Where.Patterns)
}

func TestParseOrderByAndLimit(t *testing.T) {
	q, err := Parse(`SELECT ?x WHERE { ?x <http://age> ?a } ORDER BY DESC(?a) LIMIT 5`)
	require.NoError(t, err)
	require.Len(t, q.OrderBy, 1)
	require.True(t, q.OrderBy[0].Descending)
	require.Equal(t, "a", q.OrderBy[0].Var)
	require.Equal(t, 5, q.Limit)
}

func TestParseDescribe(t *testing.T) {
	q, err := Parse(`DESCRIBE ?x WHERE { ?x <http://a> <http://b> }`)
	require.NoError(t, err)
	require.Equal(t, ModeDescribe, q.Mode)
	require.Equal(t, []string{"x"}, q.Projection)
}

func TestParseRejectsUnknownPrefix(t *testing.T) {
	_, err := Parse(`SELECT ?x WHERE { ?x ex:knows ?y }`)
	require.Error(t, err)
}

func TestParseLiteralObject(t *testing.T) {
	q, err := Parse(`SELECT ?x WHERE { ?x <http://name> "Alice" }`)
	require.NoError(t, err)
	require.Equal(t, `"Alice"`, q.Where.Patterns[0].O.Value)
}

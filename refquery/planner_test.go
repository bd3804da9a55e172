package refquery

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intellect4all/triplecore/codegen"
	"github.com/intellect4all/triplecore/common"
)

// idTable is a trivial resolve function for planner tests: every
// distinct string gets a stable id in first-seen order.
func idTable() func(string) common.ID {
	ids := map[string]common.ID{}
	return func(s string) common.ID {
		if id, ok := ids[s]; ok {
			return id
		}
		id := common.ID(len(ids))
		ids[s] = id
		return id
	}
}

func TestPlannerSingleBranch(t *testing.T) {
	q, err := Parse(`SELECT ?x ?y WHERE { ?x <http://knows> ?y }`)
	require.NoError(t, err)

	pl := NewPlanner(NewConstantStatistics())
	plan, err := pl.Plan(q, idTable())
	require.NoError(t, err)
	require.Len(t, plan.Branches, 1)
	require.Equal(t, []string{"x", "y"}, plan.Projection)
}

func TestPlannerUnionProducesTwoBranches(t *testing.T) {
	q, err := Parse(`SELECT ?x WHERE { { ?x <http://a> <http://b> } UNION { ?x <http://c> <http://d> } }`)
	require.NoError(t, err)

	pl := NewPlanner(NewConstantStatistics())
	plan, err := pl.Plan(q, idTable())
	require.NoError(t, err)
	require.Len(t, plan.Branches, 2)
	require.Len(t, plan.BranchFilters, 2)
}

func TestPlannerOrdersCheaperPatternFirst(t *testing.T) {
	q, err := Parse(`SELECT ?x WHERE { ?x ?p ?o . ?x <http://rare> ?z }`)
	require.NoError(t, err)

	stats := NewConstantStatistics()
	resolve := idTable()
	stats.SetCardinality(resolve("http://rare"), 1)

	pl := NewPlanner(stats)
	plan, err := pl.Plan(q, resolve)
	require.NoError(t, err)
	require.Len(t, plan.Branches, 1)
	require.NotNil(t, plan.Branches[0].Root)
}

func TestChooseJoinKindNeverMerge(t *testing.T) {
	q, err := Parse(`SELECT ?x WHERE { ?x <http://a> ?y . ?y <http://b> ?z }`)
	require.NoError(t, err)

	pl := NewPlanner(NewConstantStatistics())
	plan, err := pl.Plan(q, idTable())
	require.NoError(t, err)
	require.NotNil(t, plan.Branches[0].Root.Join)
	require.NotEqual(t, codegen.JoinMerge, plan.Branches[0].Root.Join.Kind)
}

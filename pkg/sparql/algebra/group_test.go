package algebra

import (
	"testing"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/aleksaelezovic/trigo-eval/pkg/store"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func people() *BGP {
	return NewBGP(
		store.NewTriplePattern(v("p"), prop("dept"), v("dept")),
		store.NewTriplePattern(v("p"), prop("age"), v("age")),
		store.NewTriplePattern(v("p"), prop("name"), v("name")),
	)
}

func byDept(aggregates ...AggregateBinding) *GroupBy {
	return &GroupBy{
		Input:      people(),
		Keys:       []GroupKey{{Expr: NewVar("dept")}},
		Aggregates: aggregates,
	}
}

func TestGroupByAggregates(t *testing.T) {
	result := run(t, &OrderBy{
		Input: byDept(
			AggregateBinding{Var: "n", Aggregate: &Count{}},
			AggregateBinding{Var: "total", Aggregate: &Sum{Expr: NewVar("age")}},
			AggregateBinding{Var: "avg", Aggregate: &Avg{Expr: NewVar("age")}},
			AggregateBinding{Var: "youngest", Aggregate: &Min{Expr: NewVar("age")}},
			AggregateBinding{Var: "oldest", Aggregate: &Max{Expr: NewVar("name")}},
			AggregateBinding{Var: "names", Aggregate: &GroupConcat{Expr: NewVar("name"), Separator: ","}},
		),
		Conditions: []OrderCondition{{Expr: NewVar("dept")}},
	})

	assert.Equal(t, []string{"eng", "ops"}, column(t, result, "dept"))
	assert.Equal(t, []string{"2", "1"}, column(t, result, "n"))
	assert.Equal(t, []string{"55", "41"}, column(t, result, "total"))
	assert.Equal(t, []string{"27.5", "41"}, column(t, result, "avg"))
	assert.Equal(t, []string{"25", "41"}, column(t, result, "youngest"))
	assert.Equal(t, []string{"Bob", "Carol"}, column(t, result, "oldest"))
	assert.ElementsMatch(t, []string{"Alice,Bob", "Carol"}, column(t, result, "names"))
}

func TestGroupByOutputsGroups(t *testing.T) {
	result := run(t, byDept(AggregateBinding{Var: "n", Aggregate: &Count{}}))

	groups, ok := result.(*engine.GroupMultiset)
	require.True(t, ok)
	assert.Equal(t, 2, groups.Count())
	assert.ElementsMatch(t, []string{"dept", "n"}, groups.Variables())
	assert.Equal(t, 3, groups.Contents().Count())
}

func TestGroupByWithoutKeysOnEmptyInput(t *testing.T) {
	result := run(t, &GroupBy{
		Input:      NewBGP(store.NewTriplePattern(v("p"), prop("email"), v("m"))),
		Aggregates: []AggregateBinding{{Var: "n", Aggregate: &Count{}}},
	})

	assert.Equal(t, []string{"0"}, column(t, result, "n"))
}

func TestGroupByKeysOnEmptyInput(t *testing.T) {
	result := run(t, &GroupBy{
		Input:      NewBGP(store.NewTriplePattern(v("p"), prop("email"), v("m"))),
		Keys:       []GroupKey{{Expr: NewVar("m")}},
		Aggregates: []AggregateBinding{{Var: "n", Aggregate: &Count{}}},
	})

	assert.True(t, result.IsEmpty())
}

func TestGroupByAliasAndDistinctCount(t *testing.T) {
	result := run(t, &GroupBy{
		Input: people(),
		Keys: []GroupKey{{
			Expr:  &Compare{Op: OpGreaterThan, Left: NewVar("age"), Right: NewConst(rdf.NewIntegerLiteral(28))},
			Alias: "senior",
		}},
		Aggregates: []AggregateBinding{
			{Var: "depts", Aggregate: &Count{Expr: NewVar("dept"), Distinct: true}},
		},
	})

	counts := map[string]string{}
	seniors := column(t, result, "senior")
	for i, depts := range column(t, result, "depts") {
		counts[seniors[i]] = depts
	}
	assert.Equal(t, map[string]string{"true": "2", "false": "1"}, counts)
}

func TestGroupByHaving(t *testing.T) {
	result := run(t, &GroupBy{
		Input:      people(),
		Keys:       []GroupKey{{Expr: NewVar("dept")}},
		Aggregates: []AggregateBinding{{Var: "n", Aggregate: &Count{}}},
		Having: []Expression{
			&Compare{Op: OpGreaterThan, Left: &Count{}, Right: NewConst(rdf.NewIntegerLiteral(1))},
		},
	})

	assert.Equal(t, []string{"eng"}, column(t, result, "dept"))
}

func TestGroupByDuplicateAlias(t *testing.T) {
	_, err := newContext(testData(), engine.DefaultOptions()).Evaluate(&GroupBy{
		Input: people(),
		Keys: []GroupKey{
			{Expr: NewVar("dept")},
			{Expr: NewVar("name"), Alias: "dept"},
		},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrDuplicateGroupAssignment))
	assert.True(t, engine.IsEvaluationError(err))
}

func TestNestedGroupBySubdivides(t *testing.T) {
	inner := &GroupBy{
		Input: people(),
		Keys:  []GroupKey{{Expr: NewVar("dept")}},
	}
	outer := &GroupBy{
		Input:      inner,
		Keys:       []GroupKey{{Expr: NewVar("name")}},
		Aggregates: []AggregateBinding{{Var: "n", Aggregate: &Count{}}},
	}
	result := run(t, outer)

	groups, ok := result.(*engine.GroupMultiset)
	require.True(t, ok)
	require.Equal(t, 3, groups.Count())

	for _, id := range groups.GroupIDs() {
		group, err := groups.Group(id)
		require.NoError(t, err)
		assignments := group.Assignments()
		// inherited from the parent group
		assert.Contains(t, assignments, "dept")
		assert.True(t, assignments["n"].Equals(rdf.NewIntegerLiteral(1)))
	}
}

func TestNestedAggregateRejected(t *testing.T) {
	_, err := newContext(testData(), engine.DefaultOptions()).Evaluate(byDept(
		AggregateBinding{Var: "x", Aggregate: &Max{Expr: &Count{}}},
	))

	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrInvalidGroupContext)
}

func TestAggregateTypeErrorLeavesUnbound(t *testing.T) {
	result := run(t, byDept(AggregateBinding{Var: "s", Aggregate: &Sum{Expr: NewVar("name")}}))
	assert.Equal(t, []string{"", ""}, column(t, result, "s"))
}

func TestSampleAndEmptyAggregates(t *testing.T) {
	result := run(t, &GroupBy{
		Input: NewBGP(store.NewTriplePattern(v("p"), prop("email"), v("m"))),
		Aggregates: []AggregateBinding{
			{Var: "sample", Aggregate: &Sample{Expr: NewVar("m")}},
			{Var: "sum", Aggregate: &Sum{Expr: NewVar("m")}},
			{Var: "avg", Aggregate: &Avg{Expr: NewVar("m")}},
		},
	})

	assert.Equal(t, []string{""}, column(t, result, "sample"))
	assert.Equal(t, []string{"0"}, column(t, result, "sum"))
	assert.Equal(t, []string{"0"}, column(t, result, "avg"))
}

package engine

import (
	"testing"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupedContext(t *testing.T) (*Context, *GroupMultiset) {
	t.Helper()

	contents := general(
		row("x", iri("a"), "n", rdf.NewIntegerLiteral(1)),
		row("x", iri("a"), "n", rdf.NewIntegerLiteral(2)),
	)
	groups := NewGroupMultiset(contents)
	g := NewBindingGroup()
	g.Add(0)
	g.Add(1)
	require.NoError(t, g.AddAssignment("x", iri("a")))
	groups.AddGroup(g)

	ctx := NewContext(nil, store.NewMemoryDataset(), DefaultOptions())
	ctx.SetInput(groups)
	return ctx, groups
}

func TestSetGroupContext(t *testing.T) {
	ctx, groups := groupedContext(t)
	binder := ctx.Binder()

	require.True(t, binder.IsGroup(0))
	assert.Equal(t, []int{0}, binder.GroupIDs())

	require.NoError(t, binder.SetGroupContext(true))
	assert.Same(t, groups.Contents(), ctx.Input())

	value, err := binder.Value("n", 1)
	require.NoError(t, err)
	assert.True(t, value.Equals(rdf.NewIntegerLiteral(2)))

	// groups stay reachable while in contents mode
	group, err := binder.Group(0)
	require.NoError(t, err)
	assert.Equal(t, 2, group.Size())

	err = binder.SetGroupContext(true)
	assert.ErrorIs(t, err, ErrInvalidGroupContext)

	require.NoError(t, binder.SetGroupContext(false))
	assert.Same(t, groups, ctx.Input())
}

func TestRestoreWithoutEnter(t *testing.T) {
	ctx, _ := groupedContext(t)
	assert.ErrorIs(t, ctx.Binder().SetGroupContext(false), ErrInvalidGroupContext)
}

func TestEnterRequiresGroupInput(t *testing.T) {
	ctx := NewContext(nil, store.NewMemoryDataset(), DefaultOptions())
	assert.ErrorIs(t, ctx.Binder().SetGroupContext(true), ErrInvalidGroupContext)

	_, err := ctx.Binder().Group(0)
	assert.ErrorIs(t, err, ErrNoSuchGroup)
}

func TestGroupScope(t *testing.T) {
	ctx, groups := groupedContext(t)

	scope, err := EnterGroupContents(ctx.Binder())
	require.NoError(t, err)
	assert.Same(t, groups.Contents(), ctx.Input())

	require.NoError(t, scope.Close())
	assert.Same(t, groups, ctx.Input())

	// closing twice does nothing
	require.NoError(t, scope.Close())
	assert.Same(t, groups, ctx.Input())

	// the scope is reusable after restore
	scope, err = EnterGroupContents(ctx.Binder())
	require.NoError(t, err)
	require.NoError(t, scope.Close())
}

func TestGroupScopeRestoresOnErrorPath(t *testing.T) {
	ctx, groups := groupedContext(t)

	failing := func() error {
		scope, err := EnterGroupContents(ctx.Binder())
		if err != nil {
			return err
		}
		defer scope.Close()
		return assert.AnError
	}

	require.ErrorIs(t, failing(), assert.AnError)
	assert.Same(t, groups, ctx.Input())
}

func TestLeftJoinBinder(t *testing.T) {
	m := general(row("x", iri("a")), row("x", nil))
	binder := NewLeftJoinBinder(m)

	assert.Equal(t, []string{"x"}, binder.Variables())
	assert.Equal(t, []int{0, 1}, binder.SetIDs())

	value, err := binder.Value("x", 0)
	require.NoError(t, err)
	assert.True(t, value.Equals(iri("a")))

	value, err = binder.Value("x", 1)
	require.NoError(t, err)
	assert.Nil(t, value)

	_, err = binder.Value("x", 7)
	assert.ErrorIs(t, err, ErrUnknownSetID)

	assert.False(t, binder.IsGroup(0))
	assert.ErrorIs(t, binder.SetGroupContext(true), ErrInvalidGroupContext)
}

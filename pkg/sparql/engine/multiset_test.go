package engine

import (
	"testing"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(pairs ...any) *Set {
	s := NewSet()
	for i := 0; i < len(pairs); i += 2 {
		var value rdf.Term
		if pairs[i+1] != nil {
			value = pairs[i+1].(rdf.Term)
		}
		s.Add(pairs[i].(string), value)
	}
	return s
}

func general(sets ...*Set) *General {
	m := NewGeneral()
	for _, s := range sets {
		m.Add(s)
	}
	return m
}

func iri(local string) *rdf.NamedNode {
	return rdf.NewNamedNode("http://example.org/" + local)
}

func TestJoinNeutralAndAbsorbingElements(t *testing.T) {
	m := general(row("x", iri("a")), row("x", iri("b")))

	joined, err := Join(nil, NewIdentity(), m)
	require.NoError(t, err)
	assert.Same(t, m, joined)

	joined, err = Join(nil, m, NewIdentity())
	require.NoError(t, err)
	assert.Same(t, m, joined)

	joined, err = Join(nil, NewNull(), m)
	require.NoError(t, err)
	assert.IsType(t, &Null{}, joined)

	joined, err = Join(nil, m, NewNull())
	require.NoError(t, err)
	assert.True(t, joined.IsEmpty())
}

func TestJoinCompatibleSets(t *testing.T) {
	lhs := general(
		row("x", iri("a"), "y", rdf.NewLiteral("1")),
		row("x", iri("b"), "y", rdf.NewLiteral("2")),
	)
	rhs := general(
		row("x", iri("a"), "z", rdf.NewLiteral("A")),
		row("x", iri("c"), "z", rdf.NewLiteral("C")),
	)

	joined, err := Join(nil, lhs, rhs)
	require.NoError(t, err)
	require.Equal(t, 1, joined.Count())
	assert.Equal(t, []string{"x", "y", "z"}, joined.Variables())

	set, err := joined.Set(joined.SetIDs()[0])
	require.NoError(t, err)
	assert.True(t, set.Value("z").Equals(rdf.NewLiteral("A")))
	assert.True(t, set.Value("y").Equals(rdf.NewLiteral("1")))
}

func TestJoinTreatsUnboundAsCompatible(t *testing.T) {
	lhs := general(row("x", iri("a"), "y", nil))
	rhs := general(row("y", iri("b")))

	joined, err := Join(nil, lhs, rhs)
	require.NoError(t, err)
	require.Equal(t, 1, joined.Count())
	set, _ := joined.Set(joined.SetIDs()[0])
	assert.True(t, set.Value("y").Equals(iri("b")))
}

func TestUnion(t *testing.T) {
	m := general(row("x", iri("a")))

	union, err := Union(NewNull(), m)
	require.NoError(t, err)
	assert.Same(t, m, union)

	union, err = Union(m, general(row("y", iri("b"))))
	require.NoError(t, err)
	assert.Equal(t, 2, union.Count())
	assert.Equal(t, []string{"x", "y"}, union.Variables())

	union, err = Union(NewIdentity(), m)
	require.NoError(t, err)
	assert.Equal(t, 2, union.Count())
}

func TestMinus(t *testing.T) {
	lhs := general(row("x", iri("a")), row("x", iri("b")))

	result, err := Minus(nil, lhs, general(row("x", iri("a"))))
	require.NoError(t, err)
	require.Equal(t, 1, result.Count())
	set, _ := result.Set(result.SetIDs()[0])
	assert.True(t, set.Value("x").Equals(iri("b")))

	// no shared variables removes nothing
	result, err = Minus(nil, lhs, general(row("y", iri("a"))))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count())
}

func TestProduct(t *testing.T) {
	lhs := general(row("x", iri("a")), row("x", iri("b")))
	rhs := general(row("y", iri("c")), row("y", iri("d")), row("y", iri("e")))

	product, err := Product(nil, lhs, rhs)
	require.NoError(t, err)
	assert.Equal(t, 6, product.Count())

	product, err = Product(nil, lhs, NewNull())
	require.NoError(t, err)
	assert.True(t, product.IsEmpty())
}

func TestIdentityAndNullSets(t *testing.T) {
	set, err := NewIdentity().Set(0)
	require.NoError(t, err)
	assert.Zero(t, set.Len())

	_, err = NewIdentity().Set(1)
	assert.ErrorIs(t, err, ErrUnknownSetID)

	_, err = NewNull().Set(0)
	assert.ErrorIs(t, err, ErrUnknownSetID)
	assert.Equal(t, 0, NewNull().Count())
}

func TestGeneralUnknownSetID(t *testing.T) {
	_, err := general(row("x", iri("a"))).Set(42)
	assert.ErrorIs(t, err, ErrUnknownSetID)
}

func TestGroupMultiset(t *testing.T) {
	contents := general(row("x", iri("a")), row("x", iri("a")), row("x", iri("b")))
	groups := NewGroupMultiset(contents)

	first := NewBindingGroup()
	first.Add(0)
	first.Add(1)
	require.NoError(t, first.AddAssignment("x", iri("a")))
	second := NewBindingGroup()
	second.Add(2)
	require.NoError(t, second.AddAssignment("x", iri("b")))

	firstID := groups.AddGroup(first)
	secondID := groups.AddGroup(second)

	assert.Equal(t, []int{firstID, secondID}, groups.SetIDs())
	assert.Equal(t, 2, groups.Count())
	assert.Same(t, contents, groups.Contents())

	set, err := groups.Set(secondID)
	require.NoError(t, err)
	assert.True(t, set.Value("x").Equals(iri("b")))

	_, err = groups.Group(99)
	assert.ErrorIs(t, err, ErrNoSuchGroup)
}

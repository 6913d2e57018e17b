package store_test

import (
	"testing"

	"github.com/aleksaelezovic/trigo-eval/internal/storage"
	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = rdf.NewNamedNode("http://example.org/alice")
	bob   = rdf.NewNamedNode("http://example.org/bob")
	knows = rdf.NewNamedNode("http://xmlns.com/foaf/0.1/knows")
	name  = rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name")
	g1    = rdf.NewNamedNode("http://example.org/g1")
)

func quads() []*rdf.Quad {
	return []*rdf.Quad{
		rdf.NewQuad(alice, knows, bob, rdf.NewDefaultGraph()),
		rdf.NewQuad(alice, name, rdf.NewLiteralWithLanguage("Alice", "en"), rdf.NewDefaultGraph()),
		rdf.NewQuad(bob, name, rdf.NewLiteral("Bob"), rdf.NewDefaultGraph()),
		rdf.NewQuad(bob, name, rdf.NewLiteral("Bob in g1"), g1),
		rdf.NewQuad(rdf.NewBlankNode("b0"), knows, alice, g1),
	}
}

func newTripleStore(t *testing.T) *store.TripleStore {
	t.Helper()
	backend, err := storage.NewInMemoryBadgerStorage()
	require.NoError(t, err)
	ts, err := store.NewTripleStore(backend)
	require.NoError(t, err)
	t.Cleanup(func() { ts.Close() })
	require.NoError(t, ts.InsertQuads(quads()))
	return ts
}

func collect(t *testing.T, data store.Dataset, pattern *store.Pattern) []*rdf.Quad {
	t.Helper()
	iter, err := data.Match(pattern)
	require.NoError(t, err)
	var out []*rdf.Quad
	for iter.Next() {
		quad, err := iter.Quad()
		require.NoError(t, err)
		out = append(out, quad)
	}
	require.NoError(t, iter.Close())
	require.NoError(t, iter.Close())
	return out
}

func datasets(t *testing.T) map[string]store.Dataset {
	return map[string]store.Dataset{
		"memory": store.NewMemoryDataset(quads()...),
		"badger": newTripleStore(t),
	}
}

func TestMatch(t *testing.T) {
	v := store.NewVariable
	tests := []struct {
		name    string
		pattern *store.Pattern
		want    int
	}{
		{"default graph by predicate", store.NewTriplePattern(v("s"), name, v("o")), 2},
		{"bound subject", store.NewTriplePattern(alice, v("p"), v("o")), 2},
		{"bound object", store.NewTriplePattern(v("s"), v("p"), bob), 1},
		{"fully bound", store.NewTriplePattern(alice, knows, bob), 1},
		{"language literal", store.NewTriplePattern(v("s"), name, rdf.NewLiteralWithLanguage("Alice", "en")), 1},
		{"plain literal is not the tagged one", store.NewTriplePattern(v("s"), name, rdf.NewLiteral("Alice")), 0},
		{"named graph", &store.Pattern{Subject: v("s"), Predicate: v("p"), Object: v("o"), Graph: g1}, 2},
		{"graph variable skips the default graph", &store.Pattern{Subject: v("s"), Predicate: name, Object: v("o"), Graph: v("g")}, 1},
	}

	for dataName, data := range datasets(t) {
		for _, tt := range tests {
			t.Run(dataName+"/"+tt.name, func(t *testing.T) {
				assert.Len(t, collect(t, data, tt.pattern), tt.want)
			})
		}
	}
}

func TestTripleStoreRoundTrip(t *testing.T) {
	ts := newTripleStore(t)

	count, err := ts.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	// re-inserting is idempotent
	require.NoError(t, ts.InsertTriple(rdf.NewTriple(alice, knows, bob)))
	count, err = ts.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	got := collect(t, ts, &store.Pattern{Subject: store.NewVariable("s"), Predicate: knows, Object: alice, Graph: g1})
	require.Len(t, got, 1)
	assert.True(t, got[0].Subject.Equals(rdf.NewBlankNode("b0")))
	assert.True(t, got[0].Graph.Equals(g1))
}

func TestPatternVariables(t *testing.T) {
	v := store.NewVariable
	p := &store.Pattern{Subject: v("x"), Predicate: knows, Object: v("x"), Graph: v("g")}
	assert.Equal(t, []string{"x", "g"}, p.Variables())
	assert.False(t, store.IsVariable(knows))
}

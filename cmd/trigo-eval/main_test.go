package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inMemoryConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  in_memory: true\n"), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDemo(t *testing.T) {
	out, err := execute(t, "demo", "--config", inMemoryConfig(t))
	require.NoError(t, err)

	assert.Contains(t, out, "Total triples stored: 11")
	assert.Contains(t, out, "Found 3 results")
	assert.Contains(t, out, "Found 2 results")
	assert.Contains(t, out, "Result: false")
	assert.Contains(t, out, "<http://example.org/carol> <http://example.org/knownBy> <http://example.org/bob> .")
	assert.Contains(t, out, "=== Demo Complete ===")
}

func TestMatchEmptyStore(t *testing.T) {
	out, err := execute(t, "match", "?s", "<http://xmlns.com/foaf/0.1/name>", "?o", "--config", inMemoryConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Found 0 results")
}

func TestMatchArgs(t *testing.T) {
	_, err := execute(t, "match", "?s", "?p")
	assert.Error(t, err)

	_, err = execute(t, "describe", "?s", "--config", inMemoryConfig(t))
	assert.Error(t, err)
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		arg  string
		want any
	}{
		{"?x", store.NewVariable("x")},
		{"<http://example.org/a>", rdf.NewNamedNode("http://example.org/a")},
		{"http://example.org/a", rdf.NewNamedNode("http://example.org/a")},
		{"_:b1", rdf.NewBlankNode("b1")},
		{"42", rdf.NewIntegerLiteral(42)},
		{`"Alice"`, rdf.NewLiteral("Alice")},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parsePosition(tt.arg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parsePosition("?")
	assert.Error(t, err)
}

func TestMatchQuery(t *testing.T) {
	q, err := matchQuery([]string{"?s", "<http://example.org/p>", "?o"}, &matchOptions{limit: 2, graph: "?g"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "o", "g"}, q.Variables)
}

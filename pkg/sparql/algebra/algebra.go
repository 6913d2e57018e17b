// Package algebra implements the SPARQL algebra operators and expressions
// evaluated by the engine.
package algebra

import (
	"strings"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/zeebo/xxh3"
)

// evaluate evaluates node against the current input, leaving the input as it was
func evaluate(ctx *engine.Context, node engine.Algebra) (engine.Multiset, error) {
	input := ctx.Input()
	defer ctx.SetInput(input)
	return ctx.Evaluate(node)
}

// withInput runs fn with m as the context input
func withInput(ctx *engine.Context, m engine.Multiset, fn func() error) error {
	input := ctx.Input()
	ctx.SetInput(m)
	defer ctx.SetInput(input)
	return fn()
}

// rowSignature hashes the values of vars in set
func rowSignature(set *engine.Set, vars []string) xxh3.Uint128 {
	var b strings.Builder
	for _, v := range vars {
		b.WriteString(v)
		b.WriteByte(0)
		b.WriteString(rdf.SerializeTermCanonical(set.Value(v)))
		b.WriteByte(0)
	}
	return xxh3.HashString128(b.String())
}

func mergeVariables(lists ...[]string) []string {
	var vars []string
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, v := range list {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	return vars
}

// normalize turns an empty result into the Null multiset
func normalize(m *engine.General) engine.Multiset {
	if m.IsEmpty() {
		return engine.NewNull()
	}
	return m
}

package results

import (
	"slices"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/zeebo/xxh3"
)

// Graph is the triple set produced by CONSTRUCT and DESCRIBE. Duplicate
// triples are asserted once.
type Graph struct {
	triples []*rdf.Triple
	seen    map[xxh3.Uint128]bool
}

// NewGraph creates a graph holding the given triples
func NewGraph(triples ...*rdf.Triple) *Graph {
	g := &Graph{seen: make(map[xxh3.Uint128]bool)}
	for _, t := range triples {
		g.Assert(t)
	}
	return g
}

func (g *Graph) resultType() {}

// Assert adds a triple and reports whether it was new
func (g *Graph) Assert(t *rdf.Triple) bool {
	key := xxh3.HashString128(rdf.SerializeTriplesCanonical([]*rdf.Triple{t}))
	if g.seen[key] {
		return false
	}
	g.seen[key] = true
	g.triples = append(g.triples, t)
	return true
}

// Triples returns the triples in assertion order
func (g *Graph) Triples() []*rdf.Triple {
	return slices.Clone(g.triples)
}

func (g *Graph) Count() int {
	return len(g.triples)
}

// IsEmpty reports whether the graph has no triples
func (g *Graph) IsEmpty() bool {
	return len(g.triples) == 0
}

// Equals compares two graphs up to blank node relabelling
func (g *Graph) Equals(other *Graph) bool {
	if other == nil {
		return false
	}
	return rdf.AreGraphsIsomorphic(g.triples, other.triples)
}

package rdf

import (
	"testing"
)

var (
	exKnows = &NamedNode{IRI: "http://example.org/knows"}
	exName  = &NamedNode{IRI: "http://example.org/name"}
	rdfType = &NamedNode{IRI: "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"}
	rdfBag  = &NamedNode{IRI: "http://www.w3.org/1999/02/22-rdf-syntax-ns#Bag"}
)

func bnode(id string) *BlankNode {
	return &BlankNode{ID: id}
}

func str(s string) *Literal {
	return &Literal{Value: s, Datatype: XSDString}
}

func TestAreGraphsIsomorphic_EmptyGraphs(t *testing.T) {
	if !AreGraphsIsomorphic([]*Triple{}, []*Triple{}) {
		t.Error("Empty graphs should be isomorphic")
	}
}

func TestAreGraphsIsomorphic_NoBlankNodes(t *testing.T) {
	alice := NewNamedNode("http://example.org/alice")
	bob := NewNamedNode("http://example.org/bob")

	expected := []*Triple{NewTriple(alice, exName, str("Alice"))}
	same := []*Triple{NewTriple(alice, exName, NewLiteral("Alice"))}
	different := []*Triple{NewTriple(bob, exName, str("Alice"))}

	if !AreGraphsIsomorphic(expected, same) {
		t.Error("Identical graphs without blank nodes should be isomorphic")
	}
	if AreGraphsIsomorphic(expected, different) {
		t.Error("Different graphs should not be isomorphic")
	}
}

func TestAreGraphsIsomorphic_SingleBlankNode(t *testing.T) {
	expected := []*Triple{NewTriple(bnode("j0"), exName, str("value"))}
	actual := []*Triple{NewTriple(bnode("b1"), exName, str("value"))}
	other := []*Triple{NewTriple(bnode("b1"), exKnows, str("value"))}

	if !AreGraphsIsomorphic(expected, actual) {
		t.Error("Graphs with single blank node should be isomorphic despite different labels")
	}
	if AreGraphsIsomorphic(expected, other) {
		t.Error("Graphs with different predicates should not be isomorphic")
	}
}

func TestAreGraphsIsomorphic_SharedBlankNode(t *testing.T) {
	item1 := NewNamedNode("http://example.org/item1")
	item2 := NewNamedNode("http://example.org/item2")
	li1 := NewNamedNode("http://www.w3.org/1999/02/22-rdf-syntax-ns#_1")
	li2 := NewNamedNode("http://www.w3.org/1999/02/22-rdf-syntax-ns#_2")

	expected := []*Triple{
		NewTriple(bnode("bag"), rdfType, rdfBag),
		NewTriple(bnode("bag"), li1, item1),
		NewTriple(bnode("bag"), li2, item2),
	}
	actual := []*Triple{
		NewTriple(bnode("b1"), li2, item2),
		NewTriple(bnode("b1"), rdfType, rdfBag),
		NewTriple(bnode("b1"), li1, item1),
	}

	if !AreGraphsIsomorphic(expected, actual) {
		t.Error("Graphs with same blank node used multiple times should be isomorphic")
	}
}

func TestAreGraphsIsomorphic_TwoDistinctBlankNodes(t *testing.T) {
	expected := []*Triple{
		NewTriple(bnode("a"), exKnows, bnode("b")),
		NewTriple(bnode("a"), exName, str("Alice")),
		NewTriple(bnode("b"), exName, str("Bob")),
	}
	actual := []*Triple{
		NewTriple(bnode("x"), exKnows, bnode("y")),
		NewTriple(bnode("x"), exName, str("Alice")),
		NewTriple(bnode("y"), exName, str("Bob")),
	}
	swapped := []*Triple{
		NewTriple(bnode("x"), exKnows, bnode("y")),
		NewTriple(bnode("x"), exName, str("Bob")),
		NewTriple(bnode("y"), exName, str("Alice")),
	}

	if !AreGraphsIsomorphic(expected, actual) {
		t.Error("Graphs with two distinct blank nodes should be isomorphic")
	}
	if AreGraphsIsomorphic(expected, swapped) {
		t.Error("Graphs with swapped blank node associations should not be isomorphic")
	}
}

func TestAreGraphsIsomorphic_DifferentNumberOfTriples(t *testing.T) {
	expected := []*Triple{NewTriple(bnode("a"), exName, str("Alice"))}
	actual := []*Triple{
		NewTriple(bnode("a"), exName, str("Alice")),
		NewTriple(bnode("a"), exKnows, bnode("a")),
	}

	if AreGraphsIsomorphic(expected, actual) {
		t.Error("Graphs with different triple counts should not be isomorphic")
	}
}

func TestAreGraphsIsomorphic_CycleVersusChains(t *testing.T) {
	// A three-cycle and a three-chain plus self loop have the same
	// triple count and blank node count but different structure.
	cycle := []*Triple{
		NewTriple(bnode("a"), exKnows, bnode("b")),
		NewTriple(bnode("b"), exKnows, bnode("c")),
		NewTriple(bnode("c"), exKnows, bnode("a")),
	}
	rotated := []*Triple{
		NewTriple(bnode("z"), exKnows, bnode("x")),
		NewTriple(bnode("x"), exKnows, bnode("y")),
		NewTriple(bnode("y"), exKnows, bnode("z")),
	}
	chain := []*Triple{
		NewTriple(bnode("x"), exKnows, bnode("y")),
		NewTriple(bnode("y"), exKnows, bnode("z")),
		NewTriple(bnode("z"), exKnows, bnode("z")),
	}

	if !AreGraphsIsomorphic(cycle, rotated) {
		t.Error("Relabelled cycle should be isomorphic")
	}
	if AreGraphsIsomorphic(cycle, chain) {
		t.Error("Cycle and chain should not be isomorphic")
	}
}

func TestBlankColors_InvariantUnderRelabelling(t *testing.T) {
	g1 := []*Triple{
		NewTriple(bnode("a"), exKnows, bnode("b")),
		NewTriple(bnode("b"), exName, str("Bob")),
	}
	g2 := []*Triple{
		NewTriple(bnode("q"), exKnows, bnode("p")),
		NewTriple(bnode("p"), exName, str("Bob")),
	}

	c1 := blankColors(g1, extractBlankNodeLabels(g1))
	c2 := blankColors(g2, extractBlankNodeLabels(g2))

	if c1["a"] != c2["q"] || c1["b"] != c2["p"] {
		t.Errorf("colours should follow structure, got %v and %v", c1, c2)
	}
	if c1["a"] == c1["b"] {
		t.Error("structurally different blank nodes should get different colours")
	}
}

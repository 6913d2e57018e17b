package store

import (
	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
)

// Pattern represents a triple or quad pattern with optional variables
type Pattern struct {
	Subject   any // rdf.Term or *Variable
	Predicate any // rdf.Term or *Variable
	Object    any // rdf.Term or *Variable
	Graph     any // rdf.Term or *Variable (nil means the default graph)
}

// NewTriplePattern creates a pattern over the default graph
func NewTriplePattern(subject, predicate, object any) *Pattern {
	return &Pattern{Subject: subject, Predicate: predicate, Object: object}
}

// Positions returns the pattern positions in S, P, O, G order
func (p *Pattern) Positions() [4]any {
	graph := p.Graph
	if graph == nil {
		graph = rdf.NewDefaultGraph()
	}
	return [4]any{p.Subject, p.Predicate, p.Object, graph}
}

// Variables returns the names of the variables used in the pattern, in position order
func (p *Pattern) Variables() []string {
	var names []string
	seen := make(map[string]bool)
	for _, pos := range p.Positions() {
		if v, ok := pos.(*Variable); ok && !seen[v.Name] {
			seen[v.Name] = true
			names = append(names, v.Name)
		}
	}
	return names
}

// Matches reports whether a quad satisfies the constant positions of the pattern
func (p *Pattern) Matches(quad *rdf.Quad) bool {
	terms := [4]rdf.Term{quad.Subject, quad.Predicate, quad.Object, quad.Graph}
	for i, pos := range p.Positions() {
		if IsVariable(pos) {
			// graph variables range over named graphs only
			if i == 3 && terms[i].Type() == rdf.TermTypeDefaultGraph {
				return false
			}
			continue
		}
		if !pos.(rdf.Term).Equals(terms[i]) {
			return false
		}
	}
	return true
}

// Variable represents a SPARQL variable
type Variable struct {
	Name string
}

// NewVariable creates a new variable
func NewVariable(name string) *Variable {
	return &Variable{Name: name}
}

func (v *Variable) String() string {
	return "?" + v.Name
}

// IsVariable checks if a pattern position is a variable
func IsVariable(v any) bool {
	_, ok := v.(*Variable)
	return ok
}

// QuadIterator iterates over quads matching a pattern.
// Close reports any error that ended the iteration early.
type QuadIterator interface {
	Next() bool
	Quad() (*rdf.Quad, error)
	Close() error
}

// Dataset is the read-only capability query evaluation matches patterns against
type Dataset interface {
	Match(pattern *Pattern) (QuadIterator, error)
}

// MemoryDataset is an unindexed in-memory dataset
type MemoryDataset struct {
	quads []*rdf.Quad
}

// NewMemoryDataset creates a dataset holding the given quads
func NewMemoryDataset(quads ...*rdf.Quad) *MemoryDataset {
	return &MemoryDataset{quads: quads}
}

// AddTriple adds a triple to the default graph
func (d *MemoryDataset) AddTriple(triple *rdf.Triple) {
	d.quads = append(d.quads, rdf.NewQuad(triple.Subject, triple.Predicate, triple.Object, rdf.NewDefaultGraph()))
}

// AddQuad adds a quad
func (d *MemoryDataset) AddQuad(quad *rdf.Quad) {
	d.quads = append(d.quads, quad)
}

// Match returns the quads satisfying the pattern
func (d *MemoryDataset) Match(pattern *Pattern) (QuadIterator, error) {
	var matched []*rdf.Quad
	for _, quad := range d.quads {
		if pattern.Matches(quad) {
			matched = append(matched, quad)
		}
	}
	return &sliceIterator{quads: matched, pos: -1}, nil
}

type sliceIterator struct {
	quads []*rdf.Quad
	pos   int
}

func (it *sliceIterator) Next() bool {
	if it.pos+1 >= len(it.quads) {
		it.pos = len(it.quads)
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Quad() (*rdf.Quad, error) {
	if it.pos < 0 || it.pos >= len(it.quads) {
		return nil, ErrNotFound
	}
	return it.quads[it.pos], nil
}

func (it *sliceIterator) Close() error {
	it.pos = len(it.quads)
	return nil
}

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/results"
)

// tablePrinter streams results as a text table
type tablePrinter struct {
	out  io.Writer
	vars []string
	rows int
}

func newTablePrinter(out io.Writer) *tablePrinter {
	return &tablePrinter{out: out}
}

func (p *tablePrinter) StartResults() error {
	p.vars, p.rows = nil, 0
	return nil
}

func (p *tablePrinter) HandleVariable(name string) (bool, error) {
	p.vars = append(p.vars, name)
	return true, nil
}

func (p *tablePrinter) HandleResult(r *results.Result) (bool, error) {
	if p.rows == 0 {
		p.header()
	}
	p.rows++

	var b strings.Builder
	b.WriteString("| ")
	for _, v := range p.vars {
		fmt.Fprintf(&b, "%-20s | ", formatTerm(r.Value(v)))
	}
	_, err := fmt.Fprintln(p.out, b.String())
	return err == nil, err
}

func (p *tablePrinter) header() {
	var b strings.Builder
	b.WriteString("| ")
	for _, v := range p.vars {
		fmt.Fprintf(&b, "%-20s | ", v)
	}
	fmt.Fprintln(p.out, b.String())
	fmt.Fprintln(p.out, "|"+strings.Repeat("----------------------|", len(p.vars)))
}

func (p *tablePrinter) HandleBooleanResult(value bool) error {
	_, err := fmt.Fprintf(p.out, "Result: %t\n", value)
	return err
}

func (p *tablePrinter) EndResults(ok bool) error {
	if !ok {
		_, err := fmt.Fprintln(p.out, "(evaluation failed)")
		return err
	}
	if p.vars != nil {
		_, err := fmt.Fprintf(p.out, "\nFound %d results\n", p.rows)
		return err
	}
	return nil
}

// triplePrinter streams triples as N-Triples
type triplePrinter struct {
	out     io.Writer
	triples int
}

func newTriplePrinter(out io.Writer) *triplePrinter {
	return &triplePrinter{out: out}
}

func (p *triplePrinter) StartRDF() error {
	p.triples = 0
	return nil
}

func (p *triplePrinter) HandleTriple(t *rdf.Triple) (bool, error) {
	p.triples++
	_, err := fmt.Fprint(p.out, rdf.SerializeTriplesCanonical([]*rdf.Triple{t}))
	return err == nil, err
}

func (p *triplePrinter) EndRDF(ok bool) error {
	if !ok {
		_, err := fmt.Fprintln(p.out, "(evaluation failed)")
		return err
	}
	_, err := fmt.Fprintf(p.out, "\n%d triples\n", p.triples)
	return err
}

func formatTerm(term rdf.Term) string {
	switch t := term.(type) {
	case nil:
		return ""
	case *rdf.NamedNode:
		// local name when the IRI has one
		if i := strings.LastIndexAny(t.IRI, "/#"); i >= 0 && i < len(t.IRI)-1 {
			return t.IRI[i+1:]
		}
		return t.IRI
	case *rdf.Literal:
		return t.Value
	default:
		return term.String()
	}
}

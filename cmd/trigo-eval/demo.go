package main

import (
	"fmt"
	"io"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/algebra"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/processor"
	"github.com/aleksaelezovic/trigo-eval/pkg/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const (
	exNS   = "http://example.org/"
	foafNS = "http://xmlns.com/foaf/0.1/"
)

func newDemoCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Load sample data and evaluate a few queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := opts.openStore()
			if err != nil {
				return err
			}
			defer ts.Close()
			return runDemo(cmd.OutOrStdout(), ts, opts.newProcessor(ts))
		},
	}
}

func demoTriples() []*rdf.Triple {
	alice := rdf.NewNamedNode(exNS + "alice")
	bob := rdf.NewNamedNode(exNS + "bob")
	carol := rdf.NewNamedNode(exNS + "carol")

	knows := rdf.NewNamedNode(foafNS + "knows")
	name := rdf.NewNamedNode(foafNS + "name")
	age := rdf.NewNamedNode(foafNS + "age")
	dept := rdf.NewNamedNode(exNS + "dept")

	return []*rdf.Triple{
		rdf.NewTriple(alice, name, rdf.NewLiteral("Alice")),
		rdf.NewTriple(alice, age, rdf.NewIntegerLiteral(30)),
		rdf.NewTriple(alice, knows, bob),
		rdf.NewTriple(alice, dept, rdf.NewLiteral("eng")),

		rdf.NewTriple(bob, name, rdf.NewLiteral("Bob")),
		rdf.NewTriple(bob, age, rdf.NewIntegerLiteral(25)),
		rdf.NewTriple(bob, knows, carol),
		rdf.NewTriple(bob, dept, rdf.NewLiteral("eng")),

		rdf.NewTriple(carol, name, rdf.NewLiteral("Carol")),
		rdf.NewTriple(carol, age, rdf.NewIntegerLiteral(28)),
		rdf.NewTriple(carol, dept, rdf.NewLiteral("ops")),
	}
}

// demoQueries are the queries the demo evaluates, with their SPARQL form
func demoQueries() []struct {
	sparql string
	query  *engine.Query
} {
	v := store.NewVariable
	foaf := func(local string) *rdf.NamedNode { return rdf.NewNamedNode(foafNS + local) }
	people := algebra.NewBGP(
		store.NewTriplePattern(v("person"), foaf("name"), v("name")),
		store.NewTriplePattern(v("person"), foaf("age"), v("age")),
	)

	return []struct {
		sparql string
		query  *engine.Query
	}{
		{
			sparql: "SELECT ?person ?name ?age WHERE { ?person foaf:name ?name ; foaf:age ?age } ORDER BY DESC(?age)",
			query: &engine.Query{
				Type:      engine.QueryTypeSelect,
				Variables: []string{"person", "name", "age"},
				Algebra: &algebra.OrderBy{
					Input:      people,
					Conditions: []algebra.OrderCondition{{Expr: algebra.NewVar("age"), Descending: true}},
				},
			},
		},
		{
			sparql: "SELECT ?dept (COUNT(*) AS ?n) (AVG(?age) AS ?avg) WHERE { ?p ex:dept ?dept ; foaf:age ?age } GROUP BY ?dept",
			query: &engine.Query{
				Type:      engine.QueryTypeSelect,
				Variables: []string{"dept", "n", "avg"},
				Algebra: &algebra.GroupBy{
					Input: algebra.NewBGP(
						store.NewTriplePattern(v("p"), rdf.NewNamedNode(exNS+"dept"), v("dept")),
						store.NewTriplePattern(v("p"), foaf("age"), v("age")),
					),
					Keys: []algebra.GroupKey{{Expr: algebra.NewVar("dept")}},
					Aggregates: []algebra.AggregateBinding{
						{Var: "n", Aggregate: &algebra.Count{}},
						{Var: "avg", Aggregate: &algebra.Avg{Expr: algebra.NewVar("age")}},
					},
				},
			},
		},
		{
			sparql: "ASK { ?a foaf:knows ?b . ?b foaf:knows ?a }",
			query: &engine.Query{
				Type: engine.QueryTypeAsk,
				Algebra: algebra.NewBGP(
					store.NewTriplePattern(v("a"), foaf("knows"), v("b")),
					store.NewTriplePattern(v("b"), foaf("knows"), v("a")),
				),
			},
		},
		{
			sparql: "CONSTRUCT { ?b ex:knownBy ?a } WHERE { ?a foaf:knows ?b }",
			query: &engine.Query{
				Type:    engine.QueryTypeConstruct,
				Algebra: algebra.NewBGP(store.NewTriplePattern(v("a"), foaf("knows"), v("b"))),
				Template: []*store.Pattern{
					store.NewTriplePattern(v("b"), rdf.NewNamedNode(exNS+"knownBy"), v("a")),
				},
			},
		},
	}
}

func runDemo(out io.Writer, ts *store.TripleStore, p *processor.Processor) error {
	fmt.Fprintln(out, "=== trigo-eval demo ===")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Inserting sample data...")
	for _, triple := range demoTriples() {
		if err := ts.InsertTriple(triple); err != nil {
			return errors.Wrap(err, "insert triple")
		}
	}
	count, err := ts.Count()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Total triples stored: %d\n", count)

	for _, demo := range demoQueries() {
		fmt.Fprintf(out, "\nQuery: %s\n\n", demo.sparql)
		if err := p.ProcessQueryWithHandlers(newTriplePrinter(out), newTablePrinter(out), demo.query); err != nil {
			return err
		}
		if elapsed, ok := demo.query.ExecutionTime(); ok {
			fmt.Fprintf(out, "(%s)\n", elapsed)
		}
	}

	fmt.Fprintln(out, "\n=== Demo Complete ===")
	return nil
}

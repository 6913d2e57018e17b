package main

import (
	"strconv"
	"strings"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/algebra"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/aleksaelezovic/trigo-eval/pkg/store"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type matchOptions struct {
	graph    string
	limit    int
	offset   int
	distinct bool
}

func newMatchCommand(opts *rootOptions) *cobra.Command {
	mopts := &matchOptions{}

	cmd := &cobra.Command{
		Use:   "match <subject> <predicate> <object>",
		Short: "Select the solutions of one triple pattern",
		Long: `Select the solutions of one triple pattern.

Positions are written as ?var, <iri>, _:label or a literal; integer
literals are typed as xsd:integer.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := matchQuery(args, mopts)
			if err != nil {
				return err
			}

			ts, err := opts.openStore()
			if err != nil {
				return err
			}
			defer ts.Close()

			out := cmd.OutOrStdout()
			return opts.newProcessor(ts).ProcessQueryWithHandlers(newTriplePrinter(out), newTablePrinter(out), q)
		},
	}

	cmd.Flags().StringVarP(&mopts.graph, "graph", "g", "", "graph to match in (IRI or ?var); default graph when empty")
	cmd.Flags().IntVar(&mopts.limit, "limit", -1, "maximum number of solutions")
	cmd.Flags().IntVar(&mopts.offset, "offset", 0, "number of solutions to skip")
	cmd.Flags().BoolVar(&mopts.distinct, "distinct", false, "remove duplicate solutions")

	return cmd
}

func matchQuery(args []string, mopts *matchOptions) (*engine.Query, error) {
	var positions [3]any
	for i, arg := range args {
		pos, err := parsePosition(arg)
		if err != nil {
			return nil, err
		}
		positions[i] = pos
	}
	pattern := store.NewTriplePattern(positions[0], positions[1], positions[2])
	if mopts.graph != "" {
		graph, err := parsePosition(mopts.graph)
		if err != nil {
			return nil, err
		}
		pattern.Graph = graph
	}

	var node engine.Algebra = algebra.NewBGP(pattern)
	vars := pattern.Variables()
	node = &algebra.Project{Input: node, Vars: vars}
	if mopts.distinct {
		node = &algebra.Distinct{Input: node}
	}
	if mopts.limit >= 0 || mopts.offset > 0 {
		node = &algebra.Slice{Input: node, Offset: mopts.offset, Limit: mopts.limit}
	}

	return &engine.Query{
		Type:      engine.QueryTypeSelect,
		Algebra:   node,
		Variables: vars,
	}, nil
}

// parsePosition reads one pattern position from the command line
func parsePosition(arg string) (any, error) {
	switch {
	case strings.HasPrefix(arg, "?"):
		if len(arg) == 1 {
			return nil, errors.New("empty variable name")
		}
		return store.NewVariable(arg[1:]), nil
	case strings.HasPrefix(arg, "<") && strings.HasSuffix(arg, ">"):
		return rdf.NewNamedNode(arg[1 : len(arg)-1]), nil
	case strings.HasPrefix(arg, "_:"):
		return rdf.NewBlankNode(arg[2:]), nil
	case strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") || strings.HasPrefix(arg, "urn:"):
		return rdf.NewNamedNode(arg), nil
	}
	if n, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return rdf.NewIntegerLiteral(n), nil
	}
	return rdf.NewLiteral(strings.Trim(arg, `"`)), nil
}

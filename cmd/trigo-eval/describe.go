package main

import (
	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newDescribeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <iri>...",
		Short: "Print the concise description of resources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := &engine.Query{Type: engine.QueryTypeDescribe}
			for _, arg := range args {
				pos, err := parsePosition(arg)
				if err != nil {
					return err
				}
				term, ok := pos.(*rdf.NamedNode)
				if !ok {
					return errors.Errorf("%s is not an IRI", arg)
				}
				q.Describe = append(q.Describe, term)
			}

			ts, err := opts.openStore()
			if err != nil {
				return err
			}
			defer ts.Close()

			return opts.newProcessor(ts).ProcessQueryWithHandlers(newTriplePrinter(cmd.OutOrStdout()), nil, q)
		},
	}
}

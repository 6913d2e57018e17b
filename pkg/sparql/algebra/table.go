package algebra

import (
	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/pkg/errors"
)

// Table is an inline VALUES block. A nil entry in a row leaves its variable undefined.
type Table struct {
	Vars []string
	Rows [][]rdf.Term
}

func (t *Table) Variables() []string {
	return t.Vars
}

func (t *Table) Evaluate(ctx *engine.Context) (engine.Multiset, error) {
	data := engine.NewGeneral(t.Vars...)
	for i, row := range t.Rows {
		if len(row) != len(t.Vars) {
			return nil, &engine.EvaluationError{
				Msg: "malformed VALUES block",
				Err: errors.Errorf("row %d has %d values for %d variables", i, len(row), len(t.Vars)),
			}
		}
		set := engine.NewSet()
		for j, value := range row {
			if value != nil {
				set.Add(t.Vars[j], value)
			}
		}
		data.Add(set)
	}
	return engine.Join(ctx, ctx.Input(), normalize(data))
}

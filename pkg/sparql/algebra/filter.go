package algebra

import (
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/pkg/errors"
)

// Filter keeps the sets for which Expr has a true effective boolean value.
// Sets raising an expression error are dropped.
type Filter struct {
	Input engine.Algebra
	Expr  Expression
}

func (f *Filter) Variables() []string {
	return f.Input.Variables()
}

func (f *Filter) Evaluate(ctx *engine.Context) (engine.Multiset, error) {
	in, err := evaluate(ctx, f.Input)
	if err != nil {
		return nil, err
	}
	if in.IsEmpty() {
		return in, nil
	}

	result := engine.NewGeneral(in.Variables()...)
	err = withInput(ctx, in, func() error {
		for _, id := range in.SetIDs() {
			if err := ctx.CheckTimeout(); err != nil {
				return err
			}
			ok, err := evaluateBool(ctx, f.Expr, id)
			if err != nil {
				if IsExpressionError(err) {
					continue
				}
				return err
			}
			if !ok {
				continue
			}
			set, err := in.Set(id)
			if err != nil {
				return err
			}
			result.Add(set.Copy())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return normalize(result), nil
}

// Extend binds Var to the value of Expr (BIND). An expression error leaves
// Var unbound.
type Extend struct {
	Input engine.Algebra
	Var   string
	Expr  Expression
}

func (e *Extend) Variables() []string {
	return mergeVariables(e.Input.Variables(), []string{e.Var})
}

func (e *Extend) Evaluate(ctx *engine.Context) (engine.Multiset, error) {
	in, err := evaluate(ctx, e.Input)
	if err != nil {
		return nil, err
	}
	if in.IsEmpty() {
		return in, nil
	}

	result := engine.NewGeneral(mergeVariables(in.Variables(), []string{e.Var})...)
	err = withInput(ctx, in, func() error {
		for _, id := range in.SetIDs() {
			set, err := in.Set(id)
			if err != nil {
				return err
			}
			if set.Bound(e.Var) {
				return &engine.EvaluationError{
					Msg: "cannot extend",
					Err: errors.Errorf("variable ?%s is already bound", e.Var),
				}
			}

			value, err := e.Expr.Evaluate(ctx, id)
			if err != nil && !IsExpressionError(err) {
				return err
			}
			extended := set.Copy()
			extended.Add(e.Var, value)
			result.Add(extended)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

package algebra

import (
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"golang.org/x/sync/errgroup"
)

// Join is the conjunction of two patterns
type Join struct {
	Left, Right engine.Algebra
}

func (j *Join) Variables() []string {
	return mergeVariables(j.Left.Variables(), j.Right.Variables())
}

func (j *Join) Evaluate(ctx *engine.Context) (engine.Multiset, error) {
	lhs, err := evaluate(ctx, j.Left)
	if err != nil {
		return nil, err
	}
	if lhs.IsEmpty() {
		return engine.NewNull(), nil
	}
	rhs, err := evaluate(ctx, j.Right)
	if err != nil {
		return nil, err
	}
	return engine.Join(ctx, lhs, rhs)
}

// LeftJoin is OPTIONAL: every left set is kept, extended by the compatible
// right sets that satisfy Filter
type LeftJoin struct {
	Left, Right engine.Algebra
	Filter      Expression
}

func (j *LeftJoin) Variables() []string {
	return mergeVariables(j.Left.Variables(), j.Right.Variables())
}

func (j *LeftJoin) Evaluate(ctx *engine.Context) (engine.Multiset, error) {
	lhs, err := evaluate(ctx, j.Left)
	if err != nil {
		return nil, err
	}
	if lhs.IsEmpty() {
		return engine.NewNull(), nil
	}
	rhs, err := evaluate(ctx, j.Right)
	if err != nil {
		return nil, err
	}
	if rhs.IsEmpty() {
		return lhs, nil
	}

	rightSets, err := engine.Sets(rhs)
	if err != nil {
		return nil, err
	}

	result := engine.NewGeneral(mergeVariables(lhs.Variables(), rhs.Variables())...)
	for _, id := range lhs.SetIDs() {
		if err := ctx.CheckTimeout(); err != nil {
			return nil, err
		}
		left, err := lhs.Set(id)
		if err != nil {
			return nil, err
		}

		candidates := engine.NewGeneral()
		for _, right := range rightSets {
			if left.Compatible(right) {
				candidates.Add(left.Join(right))
			}
		}

		extended := false
		for _, cid := range candidates.SetIDs() {
			ok, err := j.accept(ctx, candidates, cid)
			if err != nil {
				return nil, err
			}
			if ok {
				candidate, _ := candidates.Set(cid)
				result.Add(candidate.Copy())
				extended = true
			}
		}
		if !extended {
			result.Add(left.Copy())
		}
	}
	return result, nil
}

// accept evaluates the filter over a joined candidate
func (j *LeftJoin) accept(ctx *engine.Context, candidates engine.Multiset, id int) (bool, error) {
	if j.Filter == nil {
		return true, nil
	}

	prev := ctx.SetBinder(engine.NewLeftJoinBinder(candidates))
	defer ctx.SetBinder(prev)

	ok, err := evaluateBool(ctx, j.Filter, id)
	if err != nil {
		if IsExpressionError(err) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// Union is the bag union of two patterns. With parallel evaluation enabled
// both sides are evaluated concurrently in forked contexts.
type Union struct {
	Left, Right engine.Algebra
}

func (u *Union) Variables() []string {
	return mergeVariables(u.Left.Variables(), u.Right.Variables())
}

func (u *Union) Evaluate(ctx *engine.Context) (engine.Multiset, error) {
	if !ctx.Options().ParallelEvaluation {
		lhs, err := evaluate(ctx, u.Left)
		if err != nil {
			return nil, err
		}
		rhs, err := evaluate(ctx, u.Right)
		if err != nil {
			return nil, err
		}
		return engine.Union(lhs, rhs)
	}

	var lhs, rhs engine.Multiset
	left, right := ctx.Fork(), ctx.Fork()

	var g errgroup.Group
	g.Go(func() error {
		var err error
		lhs, err = left.Evaluate(u.Left)
		return err
	})
	g.Go(func() error {
		var err error
		rhs, err = right.Evaluate(u.Right)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	ctx.Logger().V(2).Info("evaluated union branches in parallel", "left", lhs.Count(), "right", rhs.Count())
	return engine.Union(lhs, rhs)
}

// Minus removes the left sets compatible with some right set
type Minus struct {
	Left, Right engine.Algebra
}

func (m *Minus) Variables() []string {
	return m.Left.Variables()
}

func (m *Minus) Evaluate(ctx *engine.Context) (engine.Multiset, error) {
	lhs, err := evaluate(ctx, m.Left)
	if err != nil {
		return nil, err
	}
	rhs, err := evaluate(ctx, m.Right)
	if err != nil {
		return nil, err
	}
	return engine.Minus(ctx, lhs, rhs)
}

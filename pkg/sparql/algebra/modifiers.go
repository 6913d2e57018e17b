package algebra

import (
	"sort"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/zeebo/xxh3"
)

// Project restricts every set to Vars
type Project struct {
	Input engine.Algebra
	Vars  []string
}

func (p *Project) Variables() []string {
	return p.Vars
}

func (p *Project) Evaluate(ctx *engine.Context) (engine.Multiset, error) {
	in, err := evaluate(ctx, p.Input)
	if err != nil {
		return nil, err
	}
	if in.IsEmpty() {
		return in, nil
	}

	result := engine.NewGeneral(p.Vars...)
	for _, id := range in.SetIDs() {
		set, err := in.Set(id)
		if err != nil {
			return nil, err
		}
		projected := engine.NewSet()
		for _, v := range p.Vars {
			if value := set.Value(v); value != nil {
				projected.Add(v, value)
			}
		}
		result.Add(projected)
	}
	return result, nil
}

// Distinct removes duplicate sets
type Distinct struct {
	Input engine.Algebra
}

func (d *Distinct) Variables() []string {
	return d.Input.Variables()
}

func (d *Distinct) Evaluate(ctx *engine.Context) (engine.Multiset, error) {
	in, err := evaluate(ctx, d.Input)
	if err != nil {
		return nil, err
	}
	if in.IsEmpty() {
		return in, nil
	}

	vars := in.Variables()
	sort.Strings(vars)

	result := engine.NewGeneral(in.Variables()...)
	seen := make(map[xxh3.Uint128]bool)
	for _, id := range in.SetIDs() {
		set, err := in.Set(id)
		if err != nil {
			return nil, err
		}
		signature := rowSignature(set, vars)
		if seen[signature] {
			continue
		}
		seen[signature] = true
		result.Add(set.Copy())
	}
	return result, nil
}

// OrderCondition is one ORDER BY key
type OrderCondition struct {
	Expr       Expression
	Descending bool
}

// OrderBy sorts the sets using the context order comparer. The sort is
// stable and an expression error sorts as unbound.
type OrderBy struct {
	Input      engine.Algebra
	Conditions []OrderCondition
}

func (o *OrderBy) Variables() []string {
	return o.Input.Variables()
}

func (o *OrderBy) Evaluate(ctx *engine.Context) (engine.Multiset, error) {
	in, err := evaluate(ctx, o.Input)
	if err != nil {
		return nil, err
	}
	if in.Count() < 2 {
		return in, nil
	}

	type keyed struct {
		set  *engine.Set
		keys []rdf.Term
	}
	var rows []keyed
	err = withInput(ctx, in, func() error {
		for _, id := range in.SetIDs() {
			set, err := in.Set(id)
			if err != nil {
				return err
			}
			keys := make([]rdf.Term, len(o.Conditions))
			for i, cond := range o.Conditions {
				value, err := cond.Expr.Evaluate(ctx, id)
				if err != nil && !IsExpressionError(err) {
					return err
				}
				keys[i] = value
			}
			rows = append(rows, keyed{set: set, keys: keys})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	comparer := ctx.OrderComparer()
	sort.SliceStable(rows, func(i, j int) bool {
		for k, cond := range o.Conditions {
			c := comparer.Compare(rows[i].keys[k], rows[j].keys[k])
			if c == 0 {
				continue
			}
			if cond.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	result := engine.NewGeneral(in.Variables()...)
	for _, row := range rows {
		result.Add(row.set.Copy())
	}
	return result, nil
}

// Slice applies OFFSET and LIMIT. A negative Limit means no limit.
type Slice struct {
	Input  engine.Algebra
	Offset int
	Limit  int
}

func (s *Slice) Variables() []string {
	return s.Input.Variables()
}

func (s *Slice) Evaluate(ctx *engine.Context) (engine.Multiset, error) {
	in, err := evaluate(ctx, s.Input)
	if err != nil {
		return nil, err
	}

	ids := in.SetIDs()
	start := min(max(s.Offset, 0), len(ids))
	end := len(ids)
	if s.Limit >= 0 {
		end = min(start+s.Limit, end)
	}

	result := engine.NewGeneral(in.Variables()...)
	for _, id := range ids[start:end] {
		set, err := in.Set(id)
		if err != nil {
			return nil, err
		}
		result.Add(set.Copy())
	}
	return normalize(result), nil
}

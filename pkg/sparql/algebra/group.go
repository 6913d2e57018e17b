package algebra

import (
	"strings"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/zeebo/xxh3"
)

// GroupKey is one GROUP BY expression. The key value is assigned to Alias,
// or to the variable itself when Expr is a bare *Var without an alias.
type GroupKey struct {
	Expr  Expression
	Alias string
}

func (k GroupKey) variable() string {
	if k.Alias != "" {
		return k.Alias
	}
	if v, ok := k.Expr.(*Var); ok {
		return v.Name
	}
	return ""
}

// AggregateBinding assigns the value of an aggregate to a variable
type AggregateBinding struct {
	Var       string
	Aggregate Expression
}

// GroupBy partitions its input by the key values, computes the aggregates
// for every group and keeps the groups passing Having. The output is a
// group multiset whose sets are the group assignments. Grouping an already
// grouped input subdivides each existing group.
type GroupBy struct {
	Input      engine.Algebra
	Keys       []GroupKey
	Aggregates []AggregateBinding
	Having     []Expression
}

func (g *GroupBy) Variables() []string {
	var vars []string
	for _, key := range g.Keys {
		if v := key.variable(); v != "" {
			vars = append(vars, v)
		}
	}
	for _, agg := range g.Aggregates {
		vars = append(vars, agg.Var)
	}
	return mergeVariables(vars)
}

func (g *GroupBy) Evaluate(ctx *engine.Context) (engine.Multiset, error) {
	in, err := evaluate(ctx, g.Input)
	if err != nil {
		return nil, err
	}

	var grouped *engine.GroupMultiset
	if parent, ok := in.(*engine.GroupMultiset); ok {
		grouped, err = g.subdivide(ctx, parent)
	} else {
		grouped, err = g.partition(ctx, in, []*engine.BindingGroup{memberGroup(in)})
	}
	if err != nil {
		return nil, err
	}

	if err := g.aggregate(ctx, grouped); err != nil {
		return nil, err
	}
	return g.having(ctx, grouped)
}

// memberGroup returns a group holding every set of m
func memberGroup(m engine.Multiset) *engine.BindingGroup {
	group := engine.NewBindingGroup()
	for _, id := range m.SetIDs() {
		group.Add(id)
	}
	return group
}

func (g *GroupBy) subdivide(ctx *engine.Context, parent *engine.GroupMultiset) (*engine.GroupMultiset, error) {
	parents := make([]*engine.BindingGroup, 0, parent.Count())
	for _, id := range parent.GroupIDs() {
		group, err := parent.Group(id)
		if err != nil {
			return nil, err
		}
		parents = append(parents, group)
	}
	return g.partition(ctx, parent.Contents(), parents)
}

// partition splits every parent group of contents by the key values
func (g *GroupBy) partition(ctx *engine.Context, contents engine.Multiset, parents []*engine.BindingGroup) (*engine.GroupMultiset, error) {
	grouped := engine.NewGroupMultiset(contents)

	err := withInput(ctx, contents, func() error {
		for _, parent := range parents {
			if len(g.Keys) == 0 {
				// the whole input is one group, even when empty
				group := engine.NewBindingGroupFrom(parent)
				for id := range parent.MemberIDs() {
					group.Add(id)
				}
				grouped.AddGroup(group)
				continue
			}

			var order []xxh3.Uint128
			groups := make(map[xxh3.Uint128]*engine.BindingGroup)
			for id := range parent.MemberIDs() {
				if err := ctx.CheckTimeout(); err != nil {
					return err
				}
				values, err := g.keyValues(ctx, id)
				if err != nil {
					return err
				}
				signature := keySignature(values)

				group, ok := groups[signature]
				if !ok {
					group = engine.NewBindingGroupFrom(parent)
					for i, key := range g.Keys {
						if v := key.variable(); v != "" {
							if err := group.AddAssignment(v, values[i]); err != nil {
								return err
							}
						}
					}
					groups[signature] = group
					order = append(order, signature)
				}
				group.Add(id)
			}
			for _, signature := range order {
				grouped.AddGroup(groups[signature])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grouped, nil
}

func (g *GroupBy) keyValues(ctx *engine.Context, id int) ([]rdf.Term, error) {
	values := make([]rdf.Term, len(g.Keys))
	for i, key := range g.Keys {
		value, err := key.Expr.Evaluate(ctx, id)
		if err != nil && !IsExpressionError(err) {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

func keySignature(values []rdf.Term) xxh3.Uint128 {
	var b strings.Builder
	for _, value := range values {
		b.WriteString(rdf.SerializeTermCanonical(value))
		b.WriteByte(0)
	}
	return xxh3.HashString128(b.String())
}

// aggregate computes the aggregates of every group and records them as
// group assignments
func (g *GroupBy) aggregate(ctx *engine.Context, grouped *engine.GroupMultiset) error {
	if len(g.Aggregates) == 0 {
		return nil
	}
	return withInput(ctx, grouped, func() error {
		for _, id := range grouped.GroupIDs() {
			group, err := grouped.Group(id)
			if err != nil {
				return err
			}
			values := make([]rdf.Term, len(g.Aggregates))
			for i, agg := range g.Aggregates {
				value, err := agg.Aggregate.Evaluate(ctx, id)
				if err != nil && !IsExpressionError(err) {
					return err
				}
				values[i] = value
			}
			for i, agg := range g.Aggregates {
				if err := group.AddAssignment(agg.Var, values[i]); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (g *GroupBy) having(ctx *engine.Context, grouped *engine.GroupMultiset) (engine.Multiset, error) {
	if len(g.Having) == 0 {
		return grouped, nil
	}

	kept := engine.NewGroupMultiset(grouped.Contents())
	err := withInput(ctx, grouped, func() error {
		for _, id := range grouped.GroupIDs() {
			pass := true
			for _, cond := range g.Having {
				ok, err := evaluateBool(ctx, cond, id)
				if err != nil && !IsExpressionError(err) {
					return err
				}
				if err != nil || !ok {
					pass = false
					break
				}
			}
			if pass {
				group, err := grouped.Group(id)
				if err != nil {
					return err
				}
				kept.AddGroup(group)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return kept, nil
}

package algebra

import (
	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/aleksaelezovic/trigo-eval/pkg/store"
)

// BGP is a basic graph pattern: a conjunction of triple or quad patterns
// matched against the dataset and joined with the input
type BGP struct {
	Patterns []*store.Pattern
}

func NewBGP(patterns ...*store.Pattern) *BGP {
	return &BGP{Patterns: patterns}
}

func (b *BGP) Variables() []string {
	lists := make([][]string, 0, len(b.Patterns))
	for _, p := range b.Patterns {
		lists = append(lists, p.Variables())
	}
	return mergeVariables(lists...)
}

func (b *BGP) Evaluate(ctx *engine.Context) (engine.Multiset, error) {
	if len(b.Patterns) == 0 {
		return ctx.Input(), nil
	}

	solutions, err := engine.Sets(ctx.Input())
	if err != nil {
		return nil, err
	}

	for _, pattern := range b.Patterns {
		var next []*engine.Set
		for _, solution := range solutions {
			matches, err := b.matchPattern(ctx, pattern, solution)
			if err != nil {
				return nil, err
			}
			next = append(next, matches...)
		}
		solutions = next
		if len(solutions) == 0 {
			return engine.NewNull(), nil
		}
	}

	result := engine.NewGeneral(mergeVariables(ctx.Input().Variables(), b.Variables())...)
	for _, solution := range solutions {
		result.Add(solution.Copy())
	}
	return normalize(result), nil
}

// matchPattern extends solution with every match of pattern, after
// substituting the variables solution already binds
func (b *BGP) matchPattern(ctx *engine.Context, pattern *store.Pattern, solution *engine.Set) ([]*engine.Set, error) {
	bound := substitute(pattern, solution)

	iter, err := ctx.Data().Match(bound)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var matches []*engine.Set
	for iter.Next() {
		if err := ctx.CheckTimeout(); err != nil {
			return nil, err
		}
		quad, err := iter.Quad()
		if err != nil {
			return nil, err
		}
		if extended, ok := bind(bound, quad, solution); ok {
			matches = append(matches, extended)
		}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return matches, nil
}

func substitute(pattern *store.Pattern, solution *engine.Set) *store.Pattern {
	resolve := func(pos any) any {
		if v, ok := pos.(*store.Variable); ok {
			if value := solution.Value(v.Name); value != nil {
				return value
			}
		}
		return pos
	}
	bound := &store.Pattern{
		Subject:   resolve(pattern.Subject),
		Predicate: resolve(pattern.Predicate),
		Object:    resolve(pattern.Object),
	}
	if pattern.Graph != nil {
		bound.Graph = resolve(pattern.Graph)
	}
	return bound
}

// bind assigns the quad's terms to the pattern variables, rejecting quads
// that give one variable two different values
func bind(pattern *store.Pattern, quad *rdf.Quad, solution *engine.Set) (*engine.Set, bool) {
	extended := solution.Copy()
	terms := [4]rdf.Term{quad.Subject, quad.Predicate, quad.Object, quad.Graph}
	for i, pos := range pattern.Positions() {
		v, ok := pos.(*store.Variable)
		if !ok {
			continue
		}
		if existing := extended.Value(v.Name); existing != nil {
			if !existing.Equals(terms[i]) {
				return nil, false
			}
			continue
		}
		extended.Add(v.Name, terms[i])
	}
	return extended, true
}

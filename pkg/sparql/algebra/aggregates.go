package algebra

import (
	"math/big"
	"strings"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/zeebo/xxh3"
)

// Aggregates are expressions evaluated for a group id. They switch the
// binder to the group contents for the duration of the evaluation, so an
// aggregate nested inside another fails with engine.ErrInvalidGroupContext.

// memberValues evaluates expr over every member of group id. Members for
// which expr raises a type error are counted in skipped.
func memberValues(ctx *engine.Context, id int, expr Expression, distinct bool) (values []rdf.Term, skipped int, err error) {
	scope, err := engine.EnterGroupContents(ctx.Binder())
	if err != nil {
		return nil, 0, err
	}
	defer scope.Close()
	group, err := ctx.Binder().Group(id)
	if err != nil {
		return nil, 0, err
	}

	seen := make(map[xxh3.Uint128]bool)
	for member := range group.MemberIDs() {
		value, err := expr.Evaluate(ctx, member)
		if err != nil {
			if IsExpressionError(err) {
				skipped++
				continue
			}
			return nil, 0, err
		}
		if distinct {
			key := xxh3.HashString128(rdf.SerializeTermCanonical(value))
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		values = append(values, value)
	}
	return values, skipped, nil
}

// Count counts the members of a group. A nil Expr counts rows (COUNT(*)).
type Count struct {
	Expr     Expression
	Distinct bool
}

func (c *Count) Evaluate(ctx *engine.Context, id int) (rdf.Term, error) {
	if c.Expr != nil {
		values, _, err := memberValues(ctx, id, c.Expr, c.Distinct)
		if err != nil {
			return nil, err
		}
		return rdf.NewIntegerLiteral(int64(len(values))), nil
	}

	scope, err := engine.EnterGroupContents(ctx.Binder())
	if err != nil {
		return nil, err
	}
	defer scope.Close()
	group, err := ctx.Binder().Group(id)
	if err != nil {
		return nil, err
	}
	if !c.Distinct {
		return rdf.NewIntegerLiteral(int64(group.Size())), nil
	}

	vars := ctx.Input().Variables()
	seen := make(map[xxh3.Uint128]bool)
	for member := range group.MemberIDs() {
		set, err := ctx.Input().Set(member)
		if err != nil {
			return nil, err
		}
		seen[rowSignature(set, vars)] = true
	}
	return rdf.NewIntegerLiteral(int64(len(seen))), nil
}

func (c *Count) Variables() []string {
	return variablesOf(c.Expr)
}

// Sum adds the numeric values of a group
type Sum struct {
	Expr     Expression
	Distinct bool
}

func (s *Sum) Evaluate(ctx *engine.Context, id int) (rdf.Term, error) {
	values, total, err := numericMembers(ctx, id, s.Expr, s.Distinct)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return rdf.NewIntegerLiteral(0), nil
	}
	if sum, ok := integerSum(values); ok {
		return integerLiteral(sum), nil
	}
	return numericLiteral(total, nil, values...), nil
}

func (s *Sum) Variables() []string {
	return variablesOf(s.Expr)
}

// Avg averages the numeric values of a group
type Avg struct {
	Expr     Expression
	Distinct bool
}

func (a *Avg) Evaluate(ctx *engine.Context, id int) (rdf.Term, error) {
	values, total, err := numericMembers(ctx, id, a.Expr, a.Distinct)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return rdf.NewIntegerLiteral(0), nil
	}
	return numericLiteral(total/float64(len(values)), rdf.XSDDecimal, values...), nil
}

func (a *Avg) Variables() []string {
	return variablesOf(a.Expr)
}

func numericMembers(ctx *engine.Context, id int, expr Expression, distinct bool) ([]rdf.Term, float64, error) {
	values, skipped, err := memberValues(ctx, id, expr, distinct)
	if err != nil {
		return nil, 0, err
	}
	if skipped > 0 {
		return nil, 0, typeError("aggregate over %d member(s) without a value", skipped)
	}

	var total float64
	for _, value := range values {
		v, ok := numericValue(value)
		if !ok {
			return nil, 0, typeError("aggregate over non-numeric value %s", value)
		}
		total += v
	}
	return values, total, nil
}

// integerSum adds the values exactly when every one is an integer
func integerSum(values []rdf.Term) (*big.Int, bool) {
	sum := new(big.Int)
	for _, value := range values {
		n, ok := integerValue(value)
		if !ok {
			return nil, false
		}
		sum.Add(sum, n)
	}
	return sum, true
}

// Min selects the least value of a group in ORDER BY order
type Min struct {
	Expr Expression
}

func (m *Min) Evaluate(ctx *engine.Context, id int) (rdf.Term, error) {
	return extreme(ctx, id, m.Expr, -1)
}

func (m *Min) Variables() []string {
	return variablesOf(m.Expr)
}

// Max selects the greatest value of a group in ORDER BY order
type Max struct {
	Expr Expression
}

func (m *Max) Evaluate(ctx *engine.Context, id int) (rdf.Term, error) {
	return extreme(ctx, id, m.Expr, 1)
}

func (m *Max) Variables() []string {
	return variablesOf(m.Expr)
}

func extreme(ctx *engine.Context, id int, expr Expression, sign int) (rdf.Term, error) {
	values, _, err := memberValues(ctx, id, expr, false)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, typeError("aggregate over an empty group")
	}

	best := values[0]
	for _, value := range values[1:] {
		if ctx.OrderComparer().Compare(value, best)*sign > 0 {
			best = value
		}
	}
	return best, nil
}

// Sample picks an arbitrary value of a group, here the first
type Sample struct {
	Expr Expression
}

func (s *Sample) Evaluate(ctx *engine.Context, id int) (rdf.Term, error) {
	values, _, err := memberValues(ctx, id, s.Expr, false)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, typeError("aggregate over an empty group")
	}
	return values[0], nil
}

func (s *Sample) Variables() []string {
	return variablesOf(s.Expr)
}

// GroupConcat joins the lexical forms of a group's values
type GroupConcat struct {
	Expr      Expression
	Separator string
	Distinct  bool
}

func (g *GroupConcat) Evaluate(ctx *engine.Context, id int) (rdf.Term, error) {
	values, _, err := memberValues(ctx, id, g.Expr, g.Distinct)
	if err != nil {
		return nil, err
	}

	separator := g.Separator
	if separator == "" {
		separator = " "
	}

	parts := make([]string, 0, len(values))
	for _, value := range values {
		s, err := lexicalForm(value)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	return rdf.NewLiteral(strings.Join(parts, separator)), nil
}

func (g *GroupConcat) Variables() []string {
	return variablesOf(g.Expr)
}

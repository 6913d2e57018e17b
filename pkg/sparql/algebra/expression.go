package algebra

import (
	"fmt"
	"math"
	"strconv"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/pkg/errors"
)

// Expression is evaluated against one binding set of the context's input
type Expression interface {
	Evaluate(ctx *engine.Context, id int) (rdf.Term, error)
	Variables() []string
}

// ExpressionError is a SPARQL expression type error. FILTER treats it as
// false, BIND and aggregates leave their variable unbound.
type ExpressionError struct {
	Msg string
}

func (e *ExpressionError) Error() string {
	return e.Msg
}

func typeError(format string, args ...any) error {
	return &ExpressionError{Msg: fmt.Sprintf(format, args...)}
}

// IsExpressionError reports whether err is an expression type error
func IsExpressionError(err error) bool {
	var exprErr *ExpressionError
	return errors.As(err, &exprErr)
}

// Var references a variable
type Var struct {
	Name string
}

func NewVar(name string) *Var {
	return &Var{Name: name}
}

func (v *Var) Evaluate(ctx *engine.Context, id int) (rdf.Term, error) {
	value, err := ctx.Binder().Value(v.Name, id)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, typeError("unbound variable: ?%s", v.Name)
	}
	return value, nil
}

func (v *Var) Variables() []string {
	return []string{v.Name}
}

// Const is a constant term
type Const struct {
	Term rdf.Term
}

func NewConst(term rdf.Term) *Const {
	return &Const{Term: term}
}

func (c *Const) Evaluate(ctx *engine.Context, id int) (rdf.Term, error) {
	return c.Term, nil
}

func (c *Const) Variables() []string {
	return nil
}

// Bound tests whether a variable has a value
type Bound struct {
	Var string
}

func (b *Bound) Evaluate(ctx *engine.Context, id int) (rdf.Term, error) {
	value, err := ctx.Binder().Value(b.Var, id)
	if err != nil {
		return nil, err
	}
	return rdf.NewBooleanLiteral(value != nil), nil
}

func (b *Bound) Variables() []string {
	return []string{b.Var}
}

// Exists tests whether a graph pattern has solutions compatible with the current set
type Exists struct {
	Pattern engine.Algebra
	Not     bool
}

func (e *Exists) Evaluate(ctx *engine.Context, id int) (rdf.Term, error) {
	seed := engine.NewSet()
	binder := ctx.Binder()
	for _, v := range binder.Variables() {
		value, err := binder.Value(v, id)
		if err != nil {
			return nil, err
		}
		if value != nil {
			seed.Add(v, value)
		}
	}
	input := engine.NewGeneral()
	input.Add(seed)

	fork := ctx.Fork()
	fork.SetInput(input)
	result, err := fork.Evaluate(e.Pattern)
	if err != nil {
		return nil, err
	}
	return rdf.NewBooleanLiteral(result.IsEmpty() == e.Not), nil
}

func (e *Exists) Variables() []string {
	return nil
}

// EffectiveBooleanValue computes the EBV of a term
func EffectiveBooleanValue(term rdf.Term) (bool, error) {
	if term == nil {
		return false, typeError("cannot compute EBV of an unbound value")
	}

	lit, ok := term.(*rdf.Literal)
	if !ok {
		return false, typeError("cannot compute EBV of %s", term)
	}

	switch {
	case lit.Datatype != nil && lit.Datatype.Equals(rdf.XSDBoolean):
		return lit.Value == "true" || lit.Value == "1", nil

	case lit.IsInteger():
		val, err := strconv.ParseInt(lit.Value, 10, 64)
		if err != nil {
			return false, typeError("invalid integer literal %q", lit.Value)
		}
		return val != 0, nil

	case lit.IsNumeric():
		val, ok := lit.Float()
		if !ok {
			return false, typeError("invalid numeric literal %q", lit.Value)
		}
		return val != 0 && !math.IsNaN(val), nil

	case lit.Datatype == nil || lit.Datatype.Equals(rdf.XSDString):
		return lit.Value != "", nil
	}

	return false, typeError("cannot compute EBV of literal with datatype %s", lit.Datatype.IRI)
}

// evaluateBool evaluates expr to its effective boolean value
func evaluateBool(ctx *engine.Context, expr Expression, id int) (bool, error) {
	term, err := expr.Evaluate(ctx, id)
	if err != nil {
		return false, err
	}
	return EffectiveBooleanValue(term)
}

func variablesOf(exprs ...Expression) []string {
	var vars []string
	seen := make(map[string]bool)
	for _, expr := range exprs {
		if expr == nil {
			continue
		}
		for _, v := range expr.Variables() {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	return vars
}

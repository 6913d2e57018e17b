package algebra

import (
	"cmp"
	"math"
	"math/big"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
)

// CompareOp is a relational operator
type CompareOp int

const (
	OpEqual CompareOp = iota
	OpNotEqual
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual
)

func (op CompareOp) String() string {
	switch op {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	default:
		return "?"
	}
}

// Compare applies a relational operator to two operands
type Compare struct {
	Op          CompareOp
	Left, Right Expression
}

func (c *Compare) Evaluate(ctx *engine.Context, id int) (rdf.Term, error) {
	left, err := c.Left.Evaluate(ctx, id)
	if err != nil {
		return nil, err
	}
	right, err := c.Right.Evaluate(ctx, id)
	if err != nil {
		return nil, err
	}

	switch c.Op {
	case OpEqual:
		return rdf.NewBooleanLiteral(ctx.ValueComparer().Equal(left, right)), nil
	case OpNotEqual:
		return rdf.NewBooleanLiteral(!ctx.ValueComparer().Equal(left, right)), nil
	}

	order, err := compareValues(ctx, left, right)
	if err != nil {
		return nil, err
	}
	switch c.Op {
	case OpLessThan:
		return rdf.NewBooleanLiteral(order < 0), nil
	case OpLessThanOrEqual:
		return rdf.NewBooleanLiteral(order <= 0), nil
	case OpGreaterThan:
		return rdf.NewBooleanLiteral(order > 0), nil
	case OpGreaterThanOrEqual:
		return rdf.NewBooleanLiteral(order >= 0), nil
	default:
		return nil, typeError("unsupported comparison operator %s", c.Op)
	}
}

func (c *Compare) Variables() []string {
	return variablesOf(c.Left, c.Right)
}

// compareValues orders two literals of comparable types
func compareValues(ctx *engine.Context, left, right rdf.Term) (int, error) {
	ll, okL := left.(*rdf.Literal)
	rl, okR := right.(*rdf.Literal)
	if !okL || !okR {
		return 0, typeError("cannot order %s and %s", left, right)
	}

	if lv, ok := ll.Float(); ok {
		rv, ok := rl.Float()
		if !ok {
			return 0, typeError("cannot order numeric %s and %s", left, right)
		}
		return cmp.Compare(lv, rv), nil
	}
	if rl.IsNumeric() {
		return 0, typeError("cannot order %s and numeric %s", left, right)
	}
	if datatypeOf(ll) != datatypeOf(rl) {
		return 0, typeError("cannot order literals of datatypes %s and %s", datatypeOf(ll), datatypeOf(rl))
	}
	return ctx.OrderComparer().Compare(left, right), nil
}

func datatypeOf(l *rdf.Literal) string {
	if l.Language != "" {
		return "rdf:langString"
	}
	if l.Datatype == nil {
		return rdf.XSDString.IRI
	}
	return l.Datatype.IRI
}

// And is logical conjunction with SPARQL error semantics: an error on one
// side is masked when the other side is false
type And struct {
	Left, Right Expression
}

func (a *And) Evaluate(ctx *engine.Context, id int) (rdf.Term, error) {
	left, leftErr := evaluateBool(ctx, a.Left, id)
	if leftErr == nil && !left {
		return rdf.NewBooleanLiteral(false), nil
	}
	right, rightErr := evaluateBool(ctx, a.Right, id)
	switch {
	case rightErr == nil && !right:
		return rdf.NewBooleanLiteral(false), nil
	case leftErr != nil:
		return nil, leftErr
	case rightErr != nil:
		return nil, rightErr
	}
	return rdf.NewBooleanLiteral(true), nil
}

func (a *And) Variables() []string {
	return variablesOf(a.Left, a.Right)
}

// Or is logical disjunction with SPARQL error semantics: an error on one
// side is masked when the other side is true
type Or struct {
	Left, Right Expression
}

func (o *Or) Evaluate(ctx *engine.Context, id int) (rdf.Term, error) {
	left, leftErr := evaluateBool(ctx, o.Left, id)
	if leftErr == nil && left {
		return rdf.NewBooleanLiteral(true), nil
	}
	right, rightErr := evaluateBool(ctx, o.Right, id)
	switch {
	case rightErr == nil && right:
		return rdf.NewBooleanLiteral(true), nil
	case leftErr != nil:
		return nil, leftErr
	case rightErr != nil:
		return nil, rightErr
	}
	return rdf.NewBooleanLiteral(false), nil
}

func (o *Or) Variables() []string {
	return variablesOf(o.Left, o.Right)
}

// Not is logical negation
type Not struct {
	Operand Expression
}

func (n *Not) Evaluate(ctx *engine.Context, id int) (rdf.Term, error) {
	value, err := evaluateBool(ctx, n.Operand, id)
	if err != nil {
		return nil, err
	}
	return rdf.NewBooleanLiteral(!value), nil
}

func (n *Not) Variables() []string {
	return variablesOf(n.Operand)
}

// ArithmeticOp is a numeric operator
type ArithmeticOp int

const (
	OpAdd ArithmeticOp = iota
	OpSubtract
	OpMultiply
	OpDivide
)

// Arithmetic applies a numeric operator to two operands
type Arithmetic struct {
	Op          ArithmeticOp
	Left, Right Expression
}

func (a *Arithmetic) Evaluate(ctx *engine.Context, id int) (rdf.Term, error) {
	left, err := a.Left.Evaluate(ctx, id)
	if err != nil {
		return nil, err
	}
	right, err := a.Right.Evaluate(ctx, id)
	if err != nil {
		return nil, err
	}

	if li, ok := integerValue(left); ok && a.Op != OpDivide {
		if ri, ok := integerValue(right); ok {
			return integerLiteral(integerArithmetic(a.Op, li, ri)), nil
		}
	}

	lv, okL := numericValue(left)
	rv, okR := numericValue(right)
	if !okL || !okR {
		return nil, typeError("arithmetic on non-numeric terms %s and %s", left, right)
	}

	var result float64
	switch a.Op {
	case OpAdd:
		result = lv + rv
	case OpSubtract:
		result = lv - rv
	case OpMultiply:
		result = lv * rv
	case OpDivide:
		if rv == 0 {
			return nil, typeError("division by zero")
		}
		return numericLiteral(lv/rv, rdf.XSDDecimal, left, right), nil
	}
	return numericLiteral(result, nil, left, right), nil
}

func (a *Arithmetic) Variables() []string {
	return variablesOf(a.Left, a.Right)
}

// integerArithmetic computes an exact integer result; xsd:integer is unbounded
func integerArithmetic(op ArithmeticOp, l, r *big.Int) *big.Int {
	result := new(big.Int)
	switch op {
	case OpAdd:
		result.Add(l, r)
	case OpSubtract:
		result.Sub(l, r)
	case OpMultiply:
		result.Mul(l, r)
	}
	return result
}

// integerValue returns the exact value of an integer literal
func integerValue(term rdf.Term) (*big.Int, bool) {
	lit, ok := term.(*rdf.Literal)
	if !ok || !lit.IsInteger() {
		return nil, false
	}
	return new(big.Int).SetString(lit.Value, 10)
}

func integerLiteral(value *big.Int) rdf.Term {
	return rdf.NewLiteralWithDatatype(value.String(), rdf.XSDInteger)
}

func numericValue(term rdf.Term) (float64, bool) {
	lit, ok := term.(*rdf.Literal)
	if !ok {
		return 0, false
	}
	return lit.Float()
}

// numericLiteral builds the result of an arithmetic operation, keeping
// integers integral. floor is the least datatype the result may have.
func numericLiteral(value float64, floor *rdf.NamedNode, operands ...rdf.Term) rdf.Term {
	rank := 0
	if floor != nil && floor.Equals(rdf.XSDDecimal) {
		rank = 1
	}
	for _, op := range operands {
		lit := op.(*rdf.Literal)
		switch {
		case lit.IsInteger():
		case lit.Datatype.Equals(rdf.XSDDecimal):
			rank = max(rank, 1)
		default:
			rank = max(rank, 2)
		}
	}

	switch {
	case rank == 0 && value == math.Trunc(value) && !math.IsInf(value, 0):
		integral, _ := big.NewFloat(value).Int(nil)
		return integerLiteral(integral)
	case rank <= 1:
		return rdf.NewDecimalLiteral(value)
	default:
		return rdf.NewDoubleLiteral(value)
	}
}

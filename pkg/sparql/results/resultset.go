package results

import (
	"slices"
	"strconv"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/pkg/errors"
)

// QueryResult is the outcome of a query: a *ResultSet for ASK and SELECT,
// a *Graph for CONSTRUCT and DESCRIBE
type QueryResult interface {
	resultType()
}

// ResultSetType is the state of a result set
type ResultSetType int

const (
	ResultSetUnknown ResultSetType = iota
	ResultSetBoolean
	ResultSetVariableBindings
)

func (t ResultSetType) String() string {
	switch t {
	case ResultSetBoolean:
		return "boolean"
	case ResultSetVariableBindings:
		return "bindings"
	default:
		return "unknown"
	}
}

// ResultSet holds either an ASK outcome or SELECT rows. It starts Unknown
// and is fixed to one kind by the first result it receives.
type ResultSet struct {
	kind      ResultSetType
	boolean   bool
	variables []string
	results   []*Result
}

// NewResultSet creates an empty result set of unknown type
func NewResultSet() *ResultSet {
	return &ResultSet{}
}

// NewBooleanResultSet creates an ASK result set
func NewBooleanResultSet(value bool) *ResultSet {
	return &ResultSet{kind: ResultSetBoolean, boolean: value}
}

// NewBindingsResultSet creates a SELECT result set
func NewBindingsResultSet(vars []string, rows ...*Result) *ResultSet {
	return &ResultSet{
		kind:      ResultSetVariableBindings,
		variables: slices.Clone(vars),
		results:   rows,
	}
}

func (rs *ResultSet) resultType() {}

func (rs *ResultSet) Type() ResultSetType { return rs.kind }

// Boolean returns the ASK outcome, false for other result sets
func (rs *ResultSet) Boolean() bool { return rs.boolean }

func (rs *ResultSet) Variables() []string { return slices.Clone(rs.variables) }

func (rs *ResultSet) Results() []*Result { return slices.Clone(rs.results) }

// Count returns the number of rows
func (rs *ResultSet) Count() int { return len(rs.results) }

// SetBoolean records an ASK outcome
func (rs *ResultSet) SetBoolean(value bool) error {
	if rs.kind == ResultSetVariableBindings {
		return errors.Wrap(ErrResultTypeMismatch, "boolean result in a bindings result set")
	}
	rs.kind = ResultSetBoolean
	rs.boolean = value
	return nil
}

// AddVariable declares a result variable
func (rs *ResultSet) AddVariable(variable string) error {
	if err := rs.toBindings(); err != nil {
		return err
	}
	if !slices.Contains(rs.variables, variable) {
		rs.variables = append(rs.variables, variable)
	}
	return nil
}

// AddResult appends a row
func (rs *ResultSet) AddResult(r *Result) error {
	if err := rs.toBindings(); err != nil {
		return err
	}
	rs.results = append(rs.results, r)
	return nil
}

func (rs *ResultSet) toBindings() error {
	if rs.kind == ResultSetBoolean {
		return errors.Wrap(ErrResultTypeMismatch, "bindings result in a boolean result set")
	}
	rs.kind = ResultSetVariableBindings
	return nil
}

// Trim removes unbound entries from every row
func (rs *ResultSet) Trim() {
	for _, r := range rs.results {
		r.Trim()
	}
}

// ToTriples converts the rows into triples using the given subject,
// predicate and object variables ("s", "p" and "o" when empty). Rows that
// leave any of the three unbound are skipped.
func (rs *ResultSet) ToTriples(s, p, o string) []*rdf.Triple {
	s, p, o = orDefault(s, "s"), orDefault(p, "p"), orDefault(o, "o")

	var triples []*rdf.Triple
	for _, r := range rs.results {
		subject, predicate, object := r.Value(s), r.Value(p), r.Value(o)
		if subject == nil || predicate == nil || object == nil {
			continue
		}
		triples = append(triples, rdf.NewTriple(subject, predicate, object))
	}
	return triples
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Equals compares two result sets. Ground rows are matched one to one by
// value; the remaining rows contain blank nodes whose labels are local to
// each result set, so they are compared as graphs up to isomorphism.
func (rs *ResultSet) Equals(other *ResultSet) bool {
	if other == nil {
		return false
	}
	if rs == other {
		return true
	}
	if rs.kind != other.kind {
		return false
	}
	switch rs.kind {
	case ResultSetUnknown:
		return true
	case ResultSetBoolean:
		return rs.boolean == other.boolean
	}

	if len(rs.results) != len(other.results) || !sameVariables(rs.variables, other.variables) {
		return false
	}

	left, leftBlank := splitGround(rs.results)
	right, rightBlank := splitGround(other.results)
	for _, r := range left {
		i := slices.IndexFunc(right, r.Equals)
		if i < 0 {
			return false
		}
		right = slices.Delete(right, i, i+1)
	}
	if len(right) > 0 {
		return false
	}
	if len(leftBlank) == 0 && len(rightBlank) == 0 {
		return true
	}
	return rdf.AreGraphsIsomorphic(rowGraph(leftBlank), rowGraph(rightBlank))
}

func sameVariables(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, v := range a {
		if !slices.Contains(b, v) {
			return false
		}
	}
	return true
}

func splitGround(rows []*Result) (ground, blank []*Result) {
	for _, r := range rows {
		if r.IsGroundResult() {
			ground = append(ground, r)
		} else {
			blank = append(blank, r)
		}
	}
	return ground, blank
}

// rowGraph encodes rows as triples hanging off one blank anchor per row,
// one edge per bound variable. Row blank nodes are relabelled so they
// cannot collide with the anchors.
func rowGraph(rows []*Result) []*rdf.Triple {
	var triples []*rdf.Triple
	for i, r := range rows {
		anchor := rdf.NewBlankNode("r:" + strconv.Itoa(i))
		for _, b := range r.bindings {
			if b.Value == nil {
				continue
			}
			value := b.Value
			if blank, ok := value.(*rdf.BlankNode); ok {
				value = rdf.NewBlankNode("v:" + blank.ID)
			}
			triples = append(triples, rdf.NewTriple(anchor, variablePredicate(b.Variable), value))
		}
	}
	return triples
}

func variablePredicate(variable string) *rdf.NamedNode {
	return rdf.NewNamedNode("urn:trigo-eval:variable:" + variable)
}

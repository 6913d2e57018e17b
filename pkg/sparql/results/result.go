// Package results materialises evaluation output into client facing
// results: rows, result sets and graphs, plus the streaming handlers the
// query processor feeds.
package results

import (
	"slices"
	"strings"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/pkg/errors"
)

var (
	// ErrIncompleteVariableOrdering is returned when a requested variable
	// ordering omits a variable the row binds
	ErrIncompleteVariableOrdering = errors.New("incomplete variable ordering")

	// ErrResultTypeMismatch is returned when boolean and binding results are
	// mixed in one result set
	ErrResultTypeMismatch = errors.New("result type mismatch")
)

// Binding is one entry of a result row. A nil Value is present but unbound.
type Binding struct {
	Variable string
	Value    rdf.Term
}

// Result is a materialised row. It keeps its own copy of the bindings so
// later changes to the source set are not visible.
type Result struct {
	bindings []Binding
}

// NewResult copies a set into a row, variables in name order
func NewResult(set *engine.Set) *Result {
	r := &Result{}
	for _, v := range set.Variables() {
		r.bindings = append(r.bindings, Binding{Variable: v, Value: set.Value(v)})
	}
	return r
}

// NewOrderedResult copies a set into a row whose entries follow vars.
// Variables in vars the set does not bind are present but unbound.
func NewOrderedResult(set *engine.Set, vars []string) (*Result, error) {
	if bound := boundCount(set); len(vars) < bound {
		return nil, errors.Wrapf(ErrIncompleteVariableOrdering, "%d variable(s) for %d bound", len(vars), bound)
	}
	for _, v := range set.Variables() {
		if set.Bound(v) && !slices.Contains(vars, v) {
			return nil, errors.Wrapf(ErrIncompleteVariableOrdering, "ordering omits ?%s", v)
		}
	}

	r := &Result{bindings: make([]Binding, 0, len(vars))}
	for _, v := range vars {
		r.bindings = append(r.bindings, Binding{Variable: v, Value: set.Value(v)})
	}
	return r, nil
}

func boundCount(set *engine.Set) int {
	n := 0
	for _, v := range set.Variables() {
		if set.Bound(v) {
			n++
		}
	}
	return n
}

// Variables returns the variables present in the row, in row order
func (r *Result) Variables() []string {
	vars := make([]string, len(r.bindings))
	for i, b := range r.bindings {
		vars[i] = b.Variable
	}
	return vars
}

// Bindings returns a copy of the row entries
func (r *Result) Bindings() []Binding {
	return slices.Clone(r.bindings)
}

func (r *Result) index(variable string) int {
	return slices.IndexFunc(r.bindings, func(b Binding) bool { return b.Variable == variable })
}

// Value returns the value of a variable, nil when unbound or absent
func (r *Result) Value(variable string) rdf.Term {
	if i := r.index(variable); i >= 0 {
		return r.bindings[i].Value
	}
	return nil
}

// HasValue reports whether the variable is present in the row, bound or not
func (r *Result) HasValue(variable string) bool {
	return r.index(variable) >= 0
}

// Bound reports whether the variable has a value
func (r *Result) Bound(variable string) bool {
	return r.Value(variable) != nil
}

// SetValue sets the value of a variable, appending it when absent
func (r *Result) SetValue(variable string, value rdf.Term) {
	if i := r.index(variable); i >= 0 {
		r.bindings[i].Value = value
		return
	}
	r.bindings = append(r.bindings, Binding{Variable: variable, Value: value})
}

// Count returns the number of entries, bound or not
func (r *Result) Count() int {
	return len(r.bindings)
}

// Trim removes the entries whose value is unbound
func (r *Result) Trim() {
	r.bindings = slices.DeleteFunc(r.bindings, func(b Binding) bool { return b.Value == nil })
}

// IsGroundResult reports whether no value of the row is a blank node
func (r *Result) IsGroundResult() bool {
	for _, b := range r.bindings {
		if rdf.IsBlank(b.Value) {
			return false
		}
	}
	return true
}

// Equals compares two rows by value. An unbound entry matches an unbound or
// absent one; a bound entry only matches an equal value.
func (r *Result) Equals(other *Result) bool {
	if other == nil {
		return false
	}
	for _, b := range r.bindings {
		if !sameValue(b.Value, other.Value(b.Variable)) {
			return false
		}
	}
	for _, b := range other.bindings {
		if !sameValue(b.Value, r.Value(b.Variable)) {
			return false
		}
	}
	return true
}

func sameValue(a, b rdf.Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equals(b)
}

func (r *Result) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, binding := range r.bindings {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("?" + binding.Variable + " = ")
		if binding.Value == nil {
			b.WriteString("UNDEF")
		} else {
			b.WriteString(binding.Value.String())
		}
	}
	b.WriteByte('}')
	return b.String()
}

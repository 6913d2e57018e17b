package engine

import (
	"iter"
	"maps"
	"slices"
	"sort"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/pkg/errors"
)

// BindingGroup is a set of member set ids plus the variable assignments
// shared by the group (the GROUP BY key values)
type BindingGroup struct {
	members     []int
	assignments map[string]rdf.Term
}

// NewBindingGroup creates an empty group
func NewBindingGroup() *BindingGroup {
	return &BindingGroup{assignments: make(map[string]rdf.Term)}
}

// NewBindingGroupFrom creates a group carrying a copy of the parent's
// assignments and no members
func NewBindingGroupFrom(parent *BindingGroup) *BindingGroup {
	g := NewBindingGroup()
	maps.Copy(g.assignments, parent.assignments)
	return g
}

// Add appends a member set id
func (g *BindingGroup) Add(id int) {
	g.members = append(g.members, id)
}

// AddAssignment assigns a value to a variable for the whole group.
// A variable can be assigned at most once.
func (g *BindingGroup) AddAssignment(variable string, value rdf.Term) error {
	if _, exists := g.assignments[variable]; exists {
		return errors.Wrapf(ErrDuplicateGroupAssignment, "variable ?%s", variable)
	}
	g.assignments[variable] = value
	return nil
}

// Assignments returns a copy of the group assignments
func (g *BindingGroup) Assignments() map[string]rdf.Term {
	return maps.Clone(g.assignments)
}

// AssignedVariables returns the assigned variable names, sorted
func (g *BindingGroup) AssignedVariables() []string {
	vars := slices.Collect(maps.Keys(g.assignments))
	sort.Strings(vars)
	return vars
}

// MemberIDs iterates over member set ids in insertion order
func (g *BindingGroup) MemberIDs() iter.Seq[int] {
	return slices.Values(g.members)
}

// Members returns the member set ids in insertion order
func (g *BindingGroup) Members() []int {
	return slices.Clone(g.members)
}

// Size returns the number of members
func (g *BindingGroup) Size() int {
	return len(g.members)
}

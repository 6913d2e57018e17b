package engine

import (
	"sort"
	"strings"

	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/pkg/errors"
)

// Set is one binding set (row): variable name to value, where a nil value
// records a variable that is present but unbound
type Set struct {
	id     int
	values map[string]rdf.Term
}

// NewSet creates an empty set
func NewSet() *Set {
	return &Set{values: make(map[string]rdf.Term)}
}

// ID returns the id the owning multiset assigned to this set
func (s *Set) ID() int {
	return s.id
}

// Add assigns a value to a variable, nil marks it unbound
func (s *Set) Add(variable string, value rdf.Term) {
	s.values[variable] = value
}

// Remove deletes a variable from the set
func (s *Set) Remove(variable string) {
	delete(s.values, variable)
}

// Value returns the value of a variable, nil when unbound or absent
func (s *Set) Value(variable string) rdf.Term {
	return s.values[variable]
}

// Lookup returns the value of a variable and whether the variable is present at all
func (s *Set) Lookup(variable string) (rdf.Term, bool) {
	value, ok := s.values[variable]
	return value, ok
}

// Bound reports whether the variable has a non-nil value
func (s *Set) Bound(variable string) bool {
	return s.values[variable] != nil
}

// Variables returns the variables present in the set, sorted
func (s *Set) Variables() []string {
	vars := make([]string, 0, len(s.values))
	for v := range s.values {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}

// Len returns the number of variables present in the set
func (s *Set) Len() int {
	return len(s.values)
}

// Copy returns a detached copy of the set without an id
func (s *Set) Copy() *Set {
	c := &Set{values: make(map[string]rdf.Term, len(s.values))}
	for k, v := range s.values {
		c.values[k] = v
	}
	return c
}

// Compatible reports whether the two sets agree on every variable both bind
func (s *Set) Compatible(other *Set) bool {
	for k, v := range s.values {
		if v == nil {
			continue
		}
		if ov := other.values[k]; ov != nil && !ov.Equals(v) {
			return false
		}
	}
	return true
}

// Disjoint reports whether the sets share no bound variable
func (s *Set) Disjoint(other *Set) bool {
	for k, v := range s.values {
		if v != nil && other.values[k] != nil {
			return false
		}
	}
	return true
}

// Join merges two compatible sets into a new one
func (s *Set) Join(other *Set) *Set {
	joined := s.Copy()
	for k, v := range other.values {
		if v != nil || !joined.Bound(k) {
			joined.values[k] = v
		}
	}
	return joined
}

func (s *Set) String() string {
	parts := make([]string, 0, len(s.values))
	for _, v := range s.Variables() {
		value := "unbound"
		if term := s.values[v]; term != nil {
			value = term.String()
		}
		parts = append(parts, "?"+v+" = "+value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Multiset is the unit of data flowing between algebra operators.
// The variants are closed: *Identity, *Null, *General and *GroupMultiset.
type Multiset interface {
	// Variables returns the declared variables in declaration order
	Variables() []string

	// SetIDs returns the ids of the sets in insertion order
	SetIDs() []int

	// Set returns the set with the given id
	Set(id int) (*Set, error)

	// ContainsVariable reports whether the variable is declared
	ContainsVariable(variable string) bool

	// IsEmpty reports whether the multiset has no sets
	IsEmpty() bool

	// Count returns the number of sets
	Count() int

	isMultiset()
}

// Identity holds exactly one set with no variables; the neutral element of join
type Identity struct{}

// NewIdentity returns the identity multiset
func NewIdentity() *Identity {
	return &Identity{}
}

func (m *Identity) Variables() []string                   { return nil }
func (m *Identity) SetIDs() []int                         { return []int{0} }
func (m *Identity) ContainsVariable(variable string) bool { return false }
func (m *Identity) IsEmpty() bool                         { return false }
func (m *Identity) Count() int                            { return 1 }
func (m *Identity) isMultiset()                           {}

func (m *Identity) Set(id int) (*Set, error) {
	if id != 0 {
		return nil, errors.Wrapf(ErrUnknownSetID, "identity multiset has no set %d", id)
	}
	return NewSet(), nil
}

// Null holds no sets; the neutral element of union and absorbing element of join
type Null struct{}

// NewNull returns the null multiset
func NewNull() *Null {
	return &Null{}
}

func (m *Null) Variables() []string                   { return nil }
func (m *Null) SetIDs() []int                         { return nil }
func (m *Null) ContainsVariable(variable string) bool { return false }
func (m *Null) IsEmpty() bool                         { return true }
func (m *Null) Count() int                            { return 0 }
func (m *Null) isMultiset()                           {}

func (m *Null) Set(id int) (*Set, error) {
	return nil, errors.Wrapf(ErrUnknownSetID, "null multiset has no set %d", id)
}

// variableList keeps declared variables in declaration order
type variableList struct {
	names []string
	index map[string]bool
}

func (l *variableList) add(name string) {
	if l.index == nil {
		l.index = make(map[string]bool)
	}
	if !l.index[name] {
		l.index[name] = true
		l.names = append(l.names, name)
	}
}

func (l *variableList) contains(name string) bool {
	return l.index[name]
}

func (l *variableList) list() []string {
	return append([]string(nil), l.names...)
}

// General is an explicit collection of sets addressable by id.
// Operators populate a General and return it; it must not be modified afterwards.
type General struct {
	vars   variableList
	sets   map[int]*Set
	order  []int
	nextID int
}

// NewGeneral creates an empty multiset declaring the given variables
func NewGeneral(variables ...string) *General {
	m := &General{sets: make(map[int]*Set)}
	for _, v := range variables {
		m.vars.add(v)
	}
	return m
}

// Add takes ownership of the set, assigns it a fresh id and declares its variables
func (m *General) Add(set *Set) int {
	set.id = m.nextID
	m.nextID++
	m.sets[set.id] = set
	m.order = append(m.order, set.id)
	for _, v := range set.Variables() {
		m.vars.add(v)
	}
	return set.id
}

// AddVariable declares a variable without binding it
func (m *General) AddVariable(variable string) {
	m.vars.add(variable)
}

func (m *General) Variables() []string                   { return m.vars.list() }
func (m *General) SetIDs() []int                         { return append([]int(nil), m.order...) }
func (m *General) ContainsVariable(variable string) bool { return m.vars.contains(variable) }
func (m *General) IsEmpty() bool                         { return len(m.order) == 0 }
func (m *General) Count() int                            { return len(m.order) }
func (m *General) isMultiset()                           {}

func (m *General) Set(id int) (*Set, error) {
	set, ok := m.sets[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSetID, "set %d", id)
	}
	return set, nil
}

// GroupMultiset wraps the ungrouped contents together with the groups built over them.
// Its own sets are the group assignments, addressed by group id.
type GroupMultiset struct {
	contents Multiset
	groups   map[int]*BindingGroup
	order    []int
	nextID   int
}

// NewGroupMultiset creates a group multiset over contents
func NewGroupMultiset(contents Multiset) *GroupMultiset {
	return &GroupMultiset{
		contents: contents,
		groups:   make(map[int]*BindingGroup),
	}
}

// AddGroup adds a group and returns its id
func (m *GroupMultiset) AddGroup(group *BindingGroup) int {
	id := m.nextID
	m.nextID++
	m.groups[id] = group
	m.order = append(m.order, id)
	return id
}

// Contents returns the wrapped ungrouped multiset
func (m *GroupMultiset) Contents() Multiset {
	return m.contents
}

// Group returns the group with the given id
func (m *GroupMultiset) Group(id int) (*BindingGroup, error) {
	group, ok := m.groups[id]
	if !ok {
		return nil, errors.Wrapf(ErrNoSuchGroup, "group %d", id)
	}
	return group, nil
}

// GroupIDs returns the group ids in insertion order
func (m *GroupMultiset) GroupIDs() []int {
	return append([]int(nil), m.order...)
}

func (m *GroupMultiset) SetIDs() []int { return m.GroupIDs() }
func (m *GroupMultiset) IsEmpty() bool { return len(m.order) == 0 }
func (m *GroupMultiset) Count() int    { return len(m.order) }
func (m *GroupMultiset) isMultiset()   {}

// Variables returns the variables assigned by any group. Groups may gain
// assignments after being added, so the list is computed on each call.
func (m *GroupMultiset) Variables() []string {
	var vars variableList
	for _, id := range m.order {
		for _, v := range m.groups[id].AssignedVariables() {
			vars.add(v)
		}
	}
	return vars.list()
}

func (m *GroupMultiset) ContainsVariable(variable string) bool {
	for _, group := range m.groups {
		if _, ok := group.assignments[variable]; ok {
			return true
		}
	}
	return false
}

func (m *GroupMultiset) Set(id int) (*Set, error) {
	group, ok := m.groups[id]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSetID, "group %d", id)
	}
	set := NewSet()
	for v, value := range group.Assignments() {
		set.Add(v, value)
	}
	set.id = id
	return set, nil
}

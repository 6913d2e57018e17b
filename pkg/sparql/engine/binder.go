package engine

import (
	"github.com/aleksaelezovic/trigo-eval/pkg/rdf"
	"github.com/pkg/errors"
)

// Binder resolves variable values for set ids during expression evaluation
type Binder interface {
	Variables() []string
	SetIDs() []int

	// Value returns the value of variable in set id, nil when unbound
	Value(variable string, id int) (rdf.Term, error)

	IsGroup(id int) bool
	Group(id int) (*BindingGroup, error)
	GroupIDs() []int

	// SetGroupContext switches between the group multiset (false) and the
	// contents the groups were built over (true)
	SetGroupContext(accessContents bool) error
}

// ContextBinder binds against the input multiset of a Context
type ContextBinder struct {
	ctx *Context

	// the group multiset displaced while evaluating over group contents
	groups *GroupMultiset
}

// NewContextBinder creates a binder over ctx
func NewContextBinder(ctx *Context) *ContextBinder {
	return &ContextBinder{ctx: ctx}
}

func (b *ContextBinder) Variables() []string {
	return b.ctx.Input().Variables()
}

func (b *ContextBinder) SetIDs() []int {
	return b.ctx.Input().SetIDs()
}

func (b *ContextBinder) Value(variable string, id int) (rdf.Term, error) {
	set, err := b.ctx.Input().Set(id)
	if err != nil {
		return nil, err
	}
	return set.Value(variable), nil
}

func (b *ContextBinder) activeGroups() *GroupMultiset {
	if b.groups != nil {
		return b.groups
	}
	groups, _ := b.ctx.Input().(*GroupMultiset)
	return groups
}

func (b *ContextBinder) IsGroup(id int) bool {
	groups := b.activeGroups()
	if groups == nil {
		return false
	}
	_, err := groups.Group(id)
	return err == nil
}

func (b *ContextBinder) Group(id int) (*BindingGroup, error) {
	groups := b.activeGroups()
	if groups == nil {
		return nil, errors.Wrapf(ErrNoSuchGroup, "group %d requested without grouping", id)
	}
	return groups.Group(id)
}

func (b *ContextBinder) GroupIDs() []int {
	groups := b.activeGroups()
	if groups == nil {
		return nil
	}
	return groups.GroupIDs()
}

func (b *ContextBinder) SetGroupContext(accessContents bool) error {
	if accessContents {
		if b.groups != nil {
			return errors.Wrap(ErrInvalidGroupContext, "illegal nested aggregate")
		}
		groups, ok := b.ctx.Input().(*GroupMultiset)
		if !ok {
			return errors.Wrapf(ErrInvalidGroupContext, "input is %T, not a group multiset", b.ctx.Input())
		}
		b.groups = groups
		b.ctx.SetInput(groups.Contents())
		return nil
	}

	if b.groups == nil {
		return errors.Wrap(ErrInvalidGroupContext, "no group context to restore")
	}
	b.ctx.SetInput(b.groups)
	b.groups = nil
	return nil
}

// EnterGroupContents switches to the group contents and returns a scope
// whose Close restores the group multiset
func (b *ContextBinder) EnterGroupContents() (*GroupScope, error) {
	return EnterGroupContents(b)
}

// EnterGroupContents switches b to the group contents and returns a scope
// whose Close restores the group multiset:
//
//	scope, err := engine.EnterGroupContents(ctx.Binder())
//	if err != nil {
//		return nil, err
//	}
//	defer scope.Close()
func EnterGroupContents(b Binder) (*GroupScope, error) {
	if err := b.SetGroupContext(true); err != nil {
		return nil, err
	}
	return &GroupScope{binder: b}, nil
}

// GroupScope restores the group multiset when closed
type GroupScope struct {
	binder Binder
	closed bool
}

// Close restores the group multiset; later calls do nothing
func (s *GroupScope) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.binder.SetGroupContext(false)
}

// LeftJoinBinder binds directly against a multiset, without grouping
type LeftJoinBinder struct {
	multiset Multiset
}

// NewLeftJoinBinder creates a binder over m
func NewLeftJoinBinder(m Multiset) *LeftJoinBinder {
	return &LeftJoinBinder{multiset: m}
}

func (b *LeftJoinBinder) Variables() []string {
	return b.multiset.Variables()
}

func (b *LeftJoinBinder) SetIDs() []int {
	return b.multiset.SetIDs()
}

func (b *LeftJoinBinder) Value(variable string, id int) (rdf.Term, error) {
	set, err := b.multiset.Set(id)
	if err != nil {
		return nil, err
	}
	return set.Value(variable), nil
}

func (b *LeftJoinBinder) IsGroup(id int) bool {
	return false
}

func (b *LeftJoinBinder) Group(id int) (*BindingGroup, error) {
	return nil, errors.Wrapf(ErrNoSuchGroup, "left join binder has no group %d", id)
}

func (b *LeftJoinBinder) GroupIDs() []int {
	return nil
}

func (b *LeftJoinBinder) SetGroupContext(accessContents bool) error {
	return errors.Wrap(ErrInvalidGroupContext, "left join binder does not support grouping")
}

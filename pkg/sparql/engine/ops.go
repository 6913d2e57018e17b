package engine

import (
	"fmt"
)

// Join computes the multiset join of lhs and rhs. ctx may be nil, in which
// case no timeout checks are made.
func Join(ctx *Context, lhs, rhs Multiset) (Multiset, error) {
	switch lhs.(type) {
	case *Null:
		return lhs, nil
	case *Identity:
		return rhs, nil
	case *General, *GroupMultiset:
	default:
		return nil, unknownVariant(lhs)
	}

	switch rhs.(type) {
	case *Null:
		return rhs, nil
	case *Identity:
		return lhs, nil
	case *General, *GroupMultiset:
	default:
		return nil, unknownVariant(rhs)
	}

	joined := NewGeneral(lhs.Variables()...)
	for _, v := range rhs.Variables() {
		joined.AddVariable(v)
	}

	rhsSets, err := Sets(rhs)
	if err != nil {
		return nil, err
	}
	for _, id := range lhs.SetIDs() {
		if err := ctx.check(); err != nil {
			return nil, err
		}
		left, err := lhs.Set(id)
		if err != nil {
			return nil, err
		}
		for _, right := range rhsSets {
			if left.Compatible(right) {
				joined.Add(left.Join(right))
			}
		}
	}
	if joined.IsEmpty() {
		return NewNull(), nil
	}
	return joined, nil
}

// Union computes the bag union of lhs and rhs
func Union(lhs, rhs Multiset) (Multiset, error) {
	for _, m := range []Multiset{lhs, rhs} {
		switch m.(type) {
		case *Null, *Identity, *General, *GroupMultiset:
		default:
			return nil, unknownVariant(m)
		}
	}
	if lhs.IsEmpty() {
		return rhs, nil
	}
	if rhs.IsEmpty() {
		return lhs, nil
	}

	union := NewGeneral(lhs.Variables()...)
	for _, m := range []Multiset{lhs, rhs} {
		for _, v := range m.Variables() {
			union.AddVariable(v)
		}
		for _, id := range m.SetIDs() {
			set, err := m.Set(id)
			if err != nil {
				return nil, err
			}
			union.Add(set.Copy())
		}
	}
	return union, nil
}

// Minus removes from lhs every set that is compatible with some set of rhs
// sharing at least one bound variable with it
func Minus(ctx *Context, lhs, rhs Multiset) (Multiset, error) {
	switch lhs.(type) {
	case *Null:
		return lhs, nil
	case *Identity, *General, *GroupMultiset:
	default:
		return nil, unknownVariant(lhs)
	}
	switch rhs.(type) {
	case *Null, *Identity:
		// neither shares a variable with any lhs set
		return lhs, nil
	case *General, *GroupMultiset:
	default:
		return nil, unknownVariant(rhs)
	}

	rhsSets, err := Sets(rhs)
	if err != nil {
		return nil, err
	}
	result := NewGeneral(lhs.Variables()...)
	for _, id := range lhs.SetIDs() {
		if err := ctx.check(); err != nil {
			return nil, err
		}
		left, err := lhs.Set(id)
		if err != nil {
			return nil, err
		}
		keep := true
		for _, right := range rhsSets {
			if !left.Disjoint(right) && left.Compatible(right) {
				keep = false
				break
			}
		}
		if keep {
			result.Add(left.Copy())
		}
	}
	if result.IsEmpty() {
		return NewNull(), nil
	}
	return result, nil
}

// Product computes the cross product of two multisets with disjoint variables
func Product(ctx *Context, lhs, rhs Multiset) (Multiset, error) {
	for _, m := range []Multiset{lhs, rhs} {
		switch m.(type) {
		case *Null:
			return m, nil
		case *Identity, *General, *GroupMultiset:
		default:
			return nil, unknownVariant(m)
		}
	}
	if _, ok := lhs.(*Identity); ok {
		return rhs, nil
	}
	if _, ok := rhs.(*Identity); ok {
		return lhs, nil
	}

	rhsSets, err := Sets(rhs)
	if err != nil {
		return nil, err
	}
	product := NewGeneral(lhs.Variables()...)
	for _, v := range rhs.Variables() {
		product.AddVariable(v)
	}
	for _, id := range lhs.SetIDs() {
		if err := ctx.check(); err != nil {
			return nil, err
		}
		left, err := lhs.Set(id)
		if err != nil {
			return nil, err
		}
		for _, right := range rhsSets {
			product.Add(left.Join(right))
		}
	}
	return product, nil
}

// Sets returns the sets of m in id order
func Sets(m Multiset) ([]*Set, error) {
	ids := m.SetIDs()
	out := make([]*Set, 0, len(ids))
	for _, id := range ids {
		set, err := m.Set(id)
		if err != nil {
			return nil, err
		}
		out = append(out, set)
	}
	return out, nil
}

func unknownVariant(m Multiset) error {
	return fmt.Errorf("unsupported multiset variant %T", m)
}

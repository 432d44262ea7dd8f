// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

package access

import (
	"slices"
)

// Set is an unordered collection of roles or permissions.
// The zero value is an empty, read-only set; use NewSet before adding.
type Set[T ~string] map[T]struct{}

// NewSet returns a set holding items.
func NewSet[T ~string](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set[T]) Has(item T) bool {
	_, ok := s[item]
	return ok
}

// HasAny reports whether at least one item is in s. False for no items.
func (s Set[T]) HasAny(items ...T) bool {
	for _, item := range items {
		if s.Has(item) {
			return true
		}
	}
	return false
}

// HasAll reports whether every item is in s. True for no items.
func (s Set[T]) HasAll(items ...T) bool {
	for _, item := range items {
		if !s.Has(item) {
			return false
		}
	}
	return true
}

// Add inserts item and reports whether it was absent.
func (s Set[T]) Add(item T) bool {
	if s.Has(item) {
		return false
	}
	s[item] = struct{}{}
	return true
}

// Remove deletes item and reports whether it was present.
func (s Set[T]) Remove(item T) bool {
	if !s.Has(item) {
		return false
	}
	delete(s, item)
	return true
}

// Clone returns an independent copy.
func (s Set[T]) Clone() Set[T] {
	out := make(Set[T], len(s))
	for item := range s {
		out[item] = struct{}{}
	}
	return out
}

// Union returns a new set containing the items of s and every other set.
func (s Set[T]) Union(others ...Set[T]) Set[T] {
	out := s.Clone()
	for _, other := range others {
		for item := range other {
			out[item] = struct{}{}
		}
	}
	return out
}

// Difference returns the items of s not present in other.
func (s Set[T]) Difference(other Set[T]) Set[T] {
	out := make(Set[T], len(s))
	for item := range s {
		if !other.Has(item) {
			out[item] = struct{}{}
		}
	}
	return out
}

// IsSuperset reports whether s contains every item of other.
func (s Set[T]) IsSuperset(other Set[T]) bool {
	for item := range other {
		if !s.Has(item) {
			return false
		}
	}
	return true
}

// Equal reports whether both sets hold the same items.
func (s Set[T]) Equal(other Set[T]) bool {
	return len(s) == len(other) && s.IsSuperset(other)
}

// Slice returns the items in unspecified order.
func (s Set[T]) Slice() []T {
	out := make([]T, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	return out
}

// Sorted returns the items in lexical order.
func (s Set[T]) Sorted() []T {
	out := s.Slice()
	slices.Sort(out)
	return out
}

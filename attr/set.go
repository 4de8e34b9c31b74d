/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package attr

import (
	"cmp"
	"slices"
)

// Set is an unordered collection of distinct values.
type Set[T cmp.Ordered] map[T]struct{}

type (
	// TextSet holds the values of a TextSet attribute.
	TextSet = Set[string]
	// NumberSet holds the values of a NumberSet attribute.
	NumberSet = Set[float64]
	// ByteSet holds the values of a ByteSet attribute, each member being raw bytes.
	ByteSet = Set[string]
)

// NewSet builds a set from its members.
func NewSet[T cmp.Ordered](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// NewByteSet builds a ByteSet from byte slices.
func NewByteSet(items ...[]byte) ByteSet {
	s := make(ByteSet, len(items))
	for _, it := range items {
		s[string(it)] = struct{}{}
	}
	return s
}

func (s Set[T]) Add(v T) { s[v] = struct{}{} }

func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the members in ascending order.
func (s Set[T]) Sorted() []T {
	out := make([]T, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

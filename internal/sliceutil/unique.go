// Package sliceutil holds small generic slice helpers.
package sliceutil

// UniqueBy returns items with later entries dropped when key maps them to a
// key already seen. Order is preserved and items is not modified.
func UniqueBy[T any, K comparable](items []T, key func(T) K) []T {
	if len(items) < 2 {
		return items
	}
	seen := make(map[K]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Unique is UniqueBy with the identity key.
func Unique[T comparable](items []T) []T {
	return UniqueBy(items, func(v T) T { return v })
}

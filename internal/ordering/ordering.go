// Package ordering keeps sibling collections densely ordered.
//
// Every operation renormalizes the whole sibling set: after any call the
// order indexes are exactly 0..n-1, with the relative order of untouched
// items preserved. Inputs are never mutated; a fresh slice is returned.
package ordering

import (
	"fmt"
	"sort"

	"opsmap/internal/domain"
)

// Entry is an item of a sibling collection.
type Entry interface {
	Key() string
	Position() int
	SetPosition(int)
}

// Child is an Entry that knows its parent key.
type Child interface {
	Entry
	Parent() string
	SetParent(string)
}

// Sorted returns a copy of items ordered by position, ties broken by key.
func Sorted[T any, P interface {
	*T
	Entry
}](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := P(&out[i]), P(&out[j])
		if a.Position() != b.Position() {
			return a.Position() < b.Position()
		}
		return a.Key() < b.Key()
	})
	return out
}

// Reindex returns items sorted and renumbered 0..n-1.
func Reindex[T any, P interface {
	*T
	Entry
}](items []T) []T {
	out := Sorted[T, P](items)
	for i := range out {
		P(&out[i]).SetPosition(i)
	}
	return out
}

// Dense reports whether positions are exactly 0..n-1 without duplicates.
func Dense[T any, P interface {
	*T
	Entry
}](items []T) bool {
	seen := make([]bool, len(items))
	for i := range items {
		pos := P(&items[i]).Position()
		if pos < 0 || pos >= len(items) || seen[pos] {
			return false
		}
		seen[pos] = true
	}
	return true
}

// IndexOf returns the ordered index of key, or -1.
func IndexOf[T any, P interface {
	*T
	Entry
}](items []T, key string) int {
	sorted := Sorted[T, P](items)
	for i := range sorted {
		if P(&sorted[i]).Key() == key {
			return i
		}
	}
	return -1
}

// InsertAt places item at index (clamped to 0..n) and renumbers the set.
func InsertAt[T any, P interface {
	*T
	Entry
}](items []T, item T, index int) []T {
	sorted := Reindex[T, P](items)
	index = clamp(index, len(sorted))
	out := make([]T, 0, len(sorted)+1)
	out = append(out, sorted[:index]...)
	out = append(out, item)
	out = append(out, sorted[index:]...)
	for i := range out {
		P(&out[i]).SetPosition(i)
	}
	return out
}

// Append places item last.
func Append[T any, P interface {
	*T
	Entry
}](items []T, item T) []T {
	return InsertAt[T, P](items, item, len(items))
}

// RemoveAt drops the item at the ordered index and closes the gap.
func RemoveAt[T any, P interface {
	*T
	Entry
}](items []T, index int) ([]T, error) {
	sorted := Reindex[T, P](items)
	if index < 0 || index >= len(sorted) {
		return nil, domain.InvalidInput("index %d out of range [0,%d)", index, len(sorted))
	}
	out := make([]T, 0, len(sorted)-1)
	out = append(out, sorted[:index]...)
	out = append(out, sorted[index+1:]...)
	for i := range out {
		P(&out[i]).SetPosition(i)
	}
	return out, nil
}

// Remove drops the item with key and closes the gap.
func Remove[T any, P interface {
	*T
	Entry
}](items []T, key string) ([]T, error) {
	idx := IndexOf[T, P](items, key)
	if idx < 0 {
		return nil, fmt.Errorf("entry %s: %w", key, domain.ErrNotFound)
	}
	return RemoveAt[T, P](items, idx)
}

// MoveTo repositions the item with key to newIndex (clamped) within the same set.
func MoveTo[T any, P interface {
	*T
	Entry
}](items []T, key string, newIndex int) ([]T, error) {
	idx := IndexOf[T, P](items, key)
	if idx < 0 {
		return nil, fmt.Errorf("entry %s: %w", key, domain.ErrNotFound)
	}
	sorted := Reindex[T, P](items)
	moved := sorted[idx]
	rest, err := RemoveAt[T, P](sorted, idx)
	if err != nil {
		return nil, err
	}
	return InsertAt[T, P](rest, moved, newIndex), nil
}

// MoveAcross removes key from src (closing its gap), re-parents it and inserts it
// into dst at newIndex (opening a slot). Both returned sets are dense.
func MoveAcross[T any, P interface {
	*T
	Child
}](src, dst []T, key, newParent string, newIndex int) ([]T, []T, error) {
	idx := IndexOf[T, P](src, key)
	if idx < 0 {
		return nil, nil, fmt.Errorf("entry %s: %w", key, domain.ErrNotFound)
	}
	moved := Sorted[T, P](src)[idx]
	rest, err := RemoveAt[T, P](src, idx)
	if err != nil {
		return nil, nil, err
	}
	P(&moved).SetParent(newParent)
	return rest, InsertAt[T, P](dst, moved, newIndex), nil
}

// Split partitions all into the siblings under parent and everything else.
func Split[T any, P interface {
	*T
	Child
}](all []T, parent string) (siblings, rest []T) {
	for i := range all {
		if P(&all[i]).Parent() == parent {
			siblings = append(siblings, all[i])
		} else {
			rest = append(rest, all[i])
		}
	}
	return siblings, rest
}

// Siblings returns the ordered siblings under parent.
func Siblings[T any, P interface {
	*T
	Child
}](all []T, parent string) []T {
	siblings, _ := Split[T, P](all, parent)
	return Sorted[T, P](siblings)
}

// ReindexGroups renumbers every parent group of all. The result is ordered by
// parent then position; changed holds the keys whose position moved.
func ReindexGroups[T any, P interface {
	*T
	Child
}](all []T) (out []T, changed map[string]bool) {
	groups := map[string][]T{}
	var parents []string
	for i := range all {
		parent := P(&all[i]).Parent()
		if _, ok := groups[parent]; !ok {
			parents = append(parents, parent)
		}
		groups[parent] = append(groups[parent], all[i])
	}
	sort.Strings(parents)
	changed = map[string]bool{}
	out = make([]T, 0, len(all))
	for _, parent := range parents {
		group := Sorted[T, P](groups[parent])
		for i := range group {
			p := P(&group[i])
			if p.Position() != i {
				changed[p.Key()] = true
				p.SetPosition(i)
			}
		}
		out = append(out, group...)
	}
	return out, changed
}

func clamp(index, n int) int {
	if index < 0 {
		return 0
	}
	if index > n {
		return n
	}
	return index
}

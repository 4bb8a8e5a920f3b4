package store

import (
	"strings"

	"opsmap/internal/domain"
	"opsmap/internal/ordering"
)

type keyed interface {
	Key() string
}

type record interface {
	keyed
	Touch(string)
}

type orderedRecord interface {
	ordering.Child
	Touch(string)
}

func indexOf[T any, P interface {
	*T
	keyed
}](all []T, key string) int {
	for i := range all {
		if P(&all[i]).Key() == key {
			return i
		}
	}
	return -1
}

func has[T any, P interface {
	*T
	keyed
}](all []T, key string) bool {
	return indexOf[T, P](all, key) >= 0
}

// lookup returns a pointer into all for key, or a NotFoundError.
func lookup[T any, P interface {
	*T
	keyed
}](all []T, kind domain.EntityKind, key string) (P, error) {
	idx := indexOf[T, P](all, key)
	if idx < 0 {
		return nil, domain.NotFoundError{Kind: kind, ID: key}
	}
	return P(&all[idx]), nil
}

// insertOrdered places item under parent at index (nil appends) and renumbers the sibling set.
func insertOrdered[T any, P interface {
	*T
	orderedRecord
}](all []T, item T, parent string, index *int, now string) []T {
	siblings, rest := ordering.Split[T, P](all, parent)
	P(&item).SetParent(parent)
	P(&item).Touch(now)
	pos := len(siblings)
	if index != nil {
		pos = *index
	}
	after := ordering.InsertAt[T, P](siblings, item, pos)
	touchMoved[T, P](siblings, after, now)
	return append(rest, after...)
}

// removeOrdered drops key and closes the gap in its sibling set.
func removeOrdered[T any, P interface {
	*T
	orderedRecord
}](all []T, key string, now string) ([]T, bool) {
	idx := indexOf[T, P](all, key)
	if idx < 0 {
		return all, false
	}
	parent := P(&all[idx]).Parent()
	siblings, rest := ordering.Split[T, P](all, parent)
	after, err := ordering.Remove[T, P](siblings, key)
	if err != nil {
		return all, false
	}
	touchMoved[T, P](siblings, after, now)
	return append(rest, after...), true
}

// removeWhere drops every item matching pred and renumbers the affected sibling sets.
func removeWhere[T any, P interface {
	*T
	orderedRecord
}](all []T, pred func(P) bool, now string) (out []T, removed []string) {
	for i := range all {
		if pred(P(&all[i])) {
			removed = append(removed, P(&all[i]).Key())
		}
	}
	out = all
	for _, key := range removed {
		out, _ = removeOrdered[T, P](out, key, now)
	}
	return out, removed
}

// moveOrdered repositions key to index under newParent, closing and opening slots as needed.
func moveOrdered[T any, P interface {
	*T
	orderedRecord
}](all []T, key, newParent string, index int, now string) ([]T, error) {
	idx := indexOf[T, P](all, key)
	if idx < 0 {
		return nil, domain.NotFoundError{ID: key}
	}
	oldParent := P(&all[idx]).Parent()
	if oldParent == newParent {
		siblings, rest := ordering.Split[T, P](all, oldParent)
		after, err := ordering.MoveTo[T, P](siblings, key, index)
		if err != nil {
			return nil, err
		}
		touchMoved[T, P](siblings, after, now)
		return append(rest, after...), nil
	}
	src, rest := ordering.Split[T, P](all, oldParent)
	dst, rest := ordering.Split[T, P](rest, newParent)
	srcAfter, dstAfter, err := ordering.MoveAcross[T, P](src, dst, key, newParent, index)
	if err != nil {
		return nil, err
	}
	touchMoved[T, P](src, srcAfter, now)
	touchMoved[T, P](dst, dstAfter, now)
	out := append(rest, srcAfter...)
	return append(out, dstAfter...), nil
}

// touchMoved stamps every item of after whose position or parent differs from before.
func touchMoved[T any, P interface {
	*T
	orderedRecord
}](before, after []T, now string) {
	type slot struct {
		parent string
		pos    int
	}
	prev := make(map[string]slot, len(before))
	for i := range before {
		p := P(&before[i])
		prev[p.Key()] = slot{p.Parent(), p.Position()}
	}
	for i := range after {
		p := P(&after[i])
		if old, ok := prev[p.Key()]; !ok || old.parent != p.Parent() || old.pos != p.Position() {
			p.Touch(now)
		}
	}
}

// removeRecords drops every item matching pred from an unordered collection.
func removeRecords[T any, P interface {
	*T
	record
}](all []T, pred func(P) bool) (out []T, removed []string) {
	out = make([]T, 0, len(all))
	for i := range all {
		if pred(P(&all[i])) {
			removed = append(removed, P(&all[i]).Key())
			continue
		}
		out = append(out, all[i])
	}
	return out, removed
}

func intPtr(v int) *int { return &v }

// get returns a copy of the item with key.
func get[T any, P interface {
	*T
	keyed
}](all []T, key string) (T, bool) {
	idx := indexOf[T, P](all, key)
	if idx < 0 {
		var zero T
		return zero, false
	}
	return all[idx], true
}

func requireText(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", domain.InvalidInput("%s is required", field)
	}
	return v, nil
}

package model

import (
	"fmt"
	"strings"
)

type SortOrder string

const (
	ByName SortOrder = "BY_NAME"
	ByDate SortOrder = "BY_DATE"
)

func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case ByName, ByDate:
		return SortOrder(s), nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

type FilterPreferences struct {
	SortOrder     SortOrder `json:"sort_order"`
	HideCompleted bool      `json:"hide_completed"`
}

func DefaultPreferences() FilterPreferences {
	return FilterPreferences{SortOrder: ByDate, HideCompleted: false}
}

// Query is the parameter tuple of a live task query.
type Query struct {
	Search        string
	SortOrder     SortOrder
	HideCompleted bool
}

// Matches reports whether t belongs in the result of q.
func (q Query) Matches(t Task) bool {
	if t.Completed && q.HideCompleted {
		return false
	}
	return strings.Contains(t.Name, q.Search)
}

// Less orders important tasks first, then by the sort order's key.
func (q Query) Less(a, b Task) bool {
	if a.Important != b.Important {
		return a.Important
	}
	switch q.SortOrder {
	case ByName:
		if a.Name != b.Name {
			return a.Name < b.Name
		}
	default:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	return a.ID < b.ID
}

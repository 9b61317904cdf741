package task

import (
	"fmt"
	"sort"
	"strings"
)

// Filter selects tasks by completion.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// Filters lists filters in the order the dashboard cycles through them.
var Filters = []Filter{FilterAll, FilterActive, FilterCompleted}

// ParseFilter parses a filter name. Empty input yields FilterAll.
func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch Filter(s) {
	case "":
		return FilterAll, nil
	case FilterAll, FilterActive, FilterCompleted:
		return Filter(s), nil
	}
	return "", fmt.Errorf("invalid filter: %s (want all, active or completed)", s)
}

// Next returns the following filter, wrapping around.
func (f Filter) Next() Filter {
	for i, g := range Filters {
		if g == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}

// Match reports whether t passes the completion filter.
func (f Filter) Match(t Task) bool {
	switch f {
	case FilterActive:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	}
	return true
}

// MatchesSearch reports whether query is a case-insensitive substring of the
// title or the description. An empty query matches everything.
func MatchesSearch(t Task, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}

// View is the presentation-time selection over the task list.
type View struct {
	Filter Filter
	Search string
}

// Apply returns the tasks passing both the filter and the search, in input order.
// The input slice is not modified.
func (v View) Apply(items []Task) []Task {
	out := make([]Task, 0, len(items))
	for _, t := range items {
		if v.Filter.Match(t) && MatchesSearch(t, v.Search) {
			out = append(out, t)
		}
	}
	return out
}

// Counts tallies active and completed tasks.
func Counts(items []Task) (active, completed int) {
	for _, t := range items {
		if t.Completed {
			completed++
		} else {
			active++
		}
	}
	return active, completed
}

// SortNewestFirst orders tasks by creation time, newest first.
// Tasks without a creation time sort last; ties keep their store order.
func SortNewestFirst(items []Task) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].CreatedAt, items[j].CreatedAt
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.After(*b)
	})
}

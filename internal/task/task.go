// Package task defines the to-do item model, its validated wire codec and derived views.
package task

import (
	"fmt"
	"strings"
	"time"
)

// Collection is the document collection tasks are stored in.
const Collection = "tasks"

// Priority is the task urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DefaultPriority is used when a form leaves priority empty.
const DefaultPriority = PriorityMedium

// Priorities lists priorities in display order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority parses a priority name (case-insensitive, trimmed).
// Empty input yields DefaultPriority.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultPriority, nil
	}
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority: %s (want low, medium or high)", s)
	}
	return p, nil
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Next returns the following priority, wrapping around.
func (p Priority) Next() Priority {
	for i, q := range Priorities {
		if q == p {
			return Priorities[(i+1)%len(Priorities)]
		}
	}
	return DefaultPriority
}

// Task is the local mirror of a stored task document.
type Task struct {
	ID          string
	Title       string
	Description string
	Completed   bool
	Priority    Priority
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
	OwnerID     string
}

// Draft holds the user-editable fields of a new task.
type Draft struct {
	Title       string
	Description string
	Priority    Priority
}

// Normalize trims text fields and applies the default priority.
func (d Draft) Normalize() Draft {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	if d.Priority == "" {
		d.Priority = DefaultPriority
	}
	return d
}

// Validate checks the draft the way the edit form does before any remote call.
func (d Draft) Validate() error {
	var errs ValidationError
	if strings.TrimSpace(d.Title) == "" {
		errs.add("title", "title required")
	}
	if d.Priority != "" && !d.Priority.Valid() {
		errs.add("priority", fmt.Sprintf("invalid priority: %s", d.Priority))
	}
	return errs.orNil()
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title       *string
	Description *string
	Completed   *bool
	Priority    *Priority
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil && p.Priority == nil
}

// Validate rejects patches that would break the task's invariants.
func (p Patch) Validate() error {
	var errs ValidationError
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		errs.add("title", "title required")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		errs.add("priority", fmt.Sprintf("invalid priority: %s", *p.Priority))
	}
	return errs.orNil()
}

// Apply merges the patch into t and returns the result. Only patched fields change.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	return t
}

// SetCompleted returns a patch that only changes the completion flag.
func SetCompleted(done bool) Patch {
	return Patch{Completed: &done}
}

// ValidationError collects per-field form errors.
type ValidationError struct {
	Fields map[string]string
	order  []string
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.order = append(e.order, field)
	}
	e.Fields[field] = msg
}

func (e ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return &e
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.order))
	for _, f := range e.order {
		msgs = append(msgs, e.Fields[f])
	}
	return strings.Join(msgs, "; ")
}

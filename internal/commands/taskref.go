package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"todo/internal/task"
)

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// RefError reports a task reference that names no task or more than one.
type RefError struct {
	Ref    string
	Reason string
}

func (e *RefError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Ref)
}

// ResolveTaskRef finds the task named by ref in items.
//
// A reference is either the 1-based position shown by list (newest first, before
// any filter) or a prefix of the task ID that matches exactly one task.
// All-digit references are positions.
func ResolveTaskRef(items []task.Task, args []string) (task.Task, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return task.Task{}, ErrTaskRefRequired
	}
	if len(args) > 1 {
		return task.Task{}, &RefError{Ref: strings.Join(args, " "), Reason: "too many task references"}
	}
	ref := strings.TrimSpace(args[0])

	if isAllDigits(ref) {
		n, err := strconv.Atoi(ref)
		if err != nil || n < 1 || n > len(items) {
			return task.Task{}, &RefError{Ref: ref, Reason: "task number out of range"}
		}
		return items[n-1], nil
	}

	var match *task.Task
	for i := range items {
		if !strings.HasPrefix(items[i].ID, ref) {
			continue
		}
		if items[i].ID == ref {
			return items[i], nil
		}
		if match != nil {
			return task.Task{}, &RefError{Ref: ref, Reason: "ambiguous task reference"}
		}
		match = &items[i]
	}
	if match == nil {
		return task.Task{}, &RefError{Ref: ref, Reason: "no task matches"}
	}
	return *match, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

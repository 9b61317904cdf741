// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"todo/internal/task"
)

// IDWidth is how many characters of a task ID are shown by FormatTask.
const IDWidth = 8

// FormatTask formats a task line.
// Format: "{N:>4}  [{x| }]  {PRIORITY:<6}  {TITLE}\n", with an ID column after the number
// when showID is set and the description on an indented second line.
func FormatTask(w io.Writer, num int, t task.Task, showID bool) {
	check := " "
	if t.Completed {
		check = "x"
	}
	if showID {
		fmt.Fprintf(w, "%4d  %-*s  [%s]  %-6s  %s\n", num, IDWidth, shortID(t.ID), check, t.Priority, normalizeTitle(t.Title))
	} else {
		fmt.Fprintf(w, "%4d  [%s]  %-6s  %s\n", num, check, t.Priority, normalizeTitle(t.Title))
	}
	if desc := normalizeText(t.Description); desc != "" {
		fmt.Fprintf(w, "%*s%s\n", descIndent(showID), "", desc)
	}
}

// FormatSummary formats the counts line printed after a listing.
func FormatSummary(w io.Writer, items []task.Task, v task.View) {
	active, completed := task.Counts(items)
	fmt.Fprintf(w, "%d active, %d completed", active, completed)
	if v.Filter != "" && v.Filter != task.FilterAll {
		fmt.Fprintf(w, " (showing %s)", v.Filter)
	}
	if q := strings.TrimSpace(v.Search); q != "" {
		fmt.Fprintf(w, " matching %q", q)
	}
	fmt.Fprintln(w)
}

// FormatAccount formats the signed-in account for whoami.
func FormatAccount(w io.Writer, label, id string) {
	fmt.Fprintf(w, "%s (%s)\n", label, id)
}

func descIndent(showID bool) int {
	// number column + gap + checkbox + gap + priority + gap
	n := 4 + 2 + 3 + 2 + 6 + 2
	if showID {
		n += IDWidth + 2
	}
	return n
}

func shortID(id string) string {
	if len(id) > IDWidth {
		return id[:IDWidth]
	}
	return id
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = normalizeText(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"todo/internal/store"
)

// NoTasks is printed when the collection is empty.
const NoTasks = "no tasks found"

// FormatTask formats a task line.
// Format: "{N:>4}  {TITLE}\n" (4-wide right-aligned number, two spaces, title)
func FormatTask(w io.Writer, num int, task store.Task) {
	fmt.Fprintf(w, "%4d  %s\n", num, NormalizeTitle(task.Title))
}

// FormatTasks writes every task numbered from 1.
func FormatTasks(w io.Writer, tasks []store.Task) {
	for i, task := range tasks {
		FormatTask(w, i+1, task)
	}
}

// NormalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func NormalizeTitle(title string) string {
	// Replace newlines with spaces
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	// Trim and check for empty
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

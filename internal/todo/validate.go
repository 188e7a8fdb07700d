package todo

import (
	"errors"
	"strings"

	"todo/internal/notify"
	"todo/internal/store"
)

// Reason says why a title was rejected.
type Reason int

const (
	EmptyTitle Reason = iota + 1
	DuplicateTitle
)

var (
	// ErrEmptyTitle matches a ValidationError for an empty title.
	ErrEmptyTitle = errors.New("task title cannot be empty")

	// ErrDuplicateTitle matches a ValidationError for a duplicate title.
	ErrDuplicateTitle = errors.New("task title must be unique")
)

// ValidationError is returned when a title is rejected before any store call.
type ValidationError struct {
	Reason Reason
	Title  string
}

func (e *ValidationError) Error() string {
	if e.Reason == DuplicateTitle {
		return ErrDuplicateTitle.Error() + ": " + e.Title
	}
	return ErrEmptyTitle.Error()
}

// Is matches ErrEmptyTitle or ErrDuplicateTitle according to the reason.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrEmptyTitle:
		return e.Reason == EmptyTitle
	case ErrDuplicateTitle:
		return e.Reason == DuplicateTitle
	}
	return false
}

func (e *ValidationError) notification() notify.Kind {
	if e.Reason == DuplicateTitle {
		return notify.DuplicateTitle
	}
	return notify.EmptyTitle
}

func normalizeTitle(s string) string {
	return strings.TrimSpace(s)
}

// validateTitle checks, in order, that title is non-empty and that no cached
// task other than exceptID has the same title under case folding.
func validateTitle(tasks []store.Task, title, exceptID string) *ValidationError {
	if title == "" {
		return &ValidationError{Reason: EmptyTitle}
	}
	for _, t := range tasks {
		if t.ID == exceptID {
			continue
		}
		if strings.EqualFold(normalizeTitle(t.Title), title) {
			return &ValidationError{Reason: DuplicateTitle, Title: title}
		}
	}
	return nil
}

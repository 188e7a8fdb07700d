// Package store defines the backend-agnostic contract for the task collection.
package store

import "context"

// Store defines the remote operations on the task collection.
// Backends never mutate local state; callers mirror successful writes themselves.
type Store interface {
	// ListAll returns every task in store order.
	// Failures are reported as *FetchError.
	ListAll(ctx context.Context) ([]Task, error)

	// Create persists a new task and returns the id assigned by the store.
	// Failures are reported as *WriteError.
	Create(ctx context.Context, title string) (string, error)

	// Update overwrites the title of an existing task.
	// Returns *NotFoundError if the id no longer exists, *WriteError otherwise.
	Update(ctx context.Context, id, title string) error

	// Remove deletes a task.
	// Returns *NotFoundError if the id no longer exists, *WriteError otherwise.
	Remove(ctx context.Context, id string) error
}

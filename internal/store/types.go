package store

// Task is a single to-do item as held by the store.
type Task struct {
	ID    string
	Title string
}

// Operation names used in WriteError.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpRemove = "remove"
)

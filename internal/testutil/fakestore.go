// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"todo/internal/notify"
	"todo/internal/store"
)

// ErrBackend is a generic injected backend failure.
var ErrBackend = errors.New("backend unavailable")

// FakeStore is an in-memory implementation of store.Store for testing.
// Injected errors are returned verbatim so tests control their type.
type FakeStore struct {
	mu    sync.RWMutex
	tasks []store.Task

	// Error injection for testing
	ListAllErr error
	CreateErr  error
	UpdateErr  error
	RemoveErr  error

	// Block, when set, is received from before each write so tests can hold a
	// call in flight.
	Block chan struct{}

	calls map[string]int
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{calls: make(map[string]int)}
}

// Seed appends a task with a fixed id.
func (f *FakeStore) Seed(id, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, store.Task{ID: id, Title: title})
}

// Tasks returns a copy of the stored tasks.
func (f *FakeStore) Tasks() []store.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	result := make([]store.Task, len(f.tasks))
	copy(result, f.tasks)
	return result
}

// Calls returns how many times the named method was invoked.
func (f *FakeStore) Calls(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[method]
}

// TotalCalls returns the number of store calls of any kind.
func (f *FakeStore) TotalCalls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *FakeStore) record(method string) {
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()
}

func (f *FakeStore) wait(ctx context.Context) error {
	if f.Block == nil {
		return nil
	}
	select {
	case <-f.Block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListAll implements store.Store.
func (f *FakeStore) ListAll(ctx context.Context) ([]store.Task, error) {
	f.record("ListAll")
	if f.ListAllErr != nil {
		return nil, f.ListAllErr
	}
	return f.Tasks(), nil
}

// Create implements store.Store.
func (f *FakeStore) Create(ctx context.Context, title string) (string, error) {
	f.record("Create")
	if err := f.wait(ctx); err != nil {
		return "", &store.WriteError{Op: store.OpCreate, Err: err}
	}
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	id := uuid.NewString()
	f.tasks = append(f.tasks, store.Task{ID: id, Title: title})
	return id, nil
}

// Update implements store.Store.
func (f *FakeStore) Update(ctx context.Context, id, title string) error {
	f.record("Update")
	if err := f.wait(ctx); err != nil {
		return &store.WriteError{Op: store.OpUpdate, ID: id, Err: err}
	}
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks[i].Title = title
			return nil
		}
	}
	return &store.NotFoundError{ID: id}
}

// Remove implements store.Store.
func (f *FakeStore) Remove(ctx context.Context, id string) error {
	f.record("Remove")
	if err := f.wait(ctx); err != nil {
		return &store.WriteError{Op: store.OpRemove, ID: id, Err: err}
	}
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return &store.NotFoundError{ID: id}
}

// Recorder is a notify.Sink that keeps every message.
type Recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
}

// Notify implements notify.Sink.
func (r *Recorder) Notify(m notify.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

// Kinds returns the kinds received so far, in order.
func (r *Recorder) Kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]notify.Kind, len(r.msgs))
	for i, m := range r.msgs {
		kinds[i] = m.Kind
	}
	return kinds
}

// Last returns the most recent message.
func (r *Recorder) Last() (notify.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return notify.Message{}, false
	}
	return r.msgs[len(r.msgs)-1], true
}

// Package todo holds the local mirror of the task collection and the
// add/edit/remove state machine that keeps it in sync with the store.
package todo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"todo/internal/notify"
	"todo/internal/store"
)

// State is the edit state of a ViewModel.
type State int

const (
	// Idle means the input holds a new task title.
	Idle State = iota
	// Editing means the input holds a replacement title for the task under edit.
	Editing
	// Submitting means a store call is pending.
	Submitting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrBusy is returned when an intent arrives while a store call is pending.
	ErrBusy = errors.New("another operation is in progress")

	// ErrIndexOutOfRange is returned for a task index outside the cache.
	ErrIndexOutOfRange = errors.New("task index out of range")
)

// Snapshot is an immutable copy of the view-model state for rendering.
type Snapshot struct {
	Tasks     []store.Task
	Input     string
	EditIndex int // -1 when no edit is in progress
	State     State
}

// Editing reports whether an edit cursor is set.
func (s Snapshot) Editing() bool {
	return s.EditIndex >= 0
}

// ViewModel owns the task cache, the input text and the edit cursor.
// The cursor holds a task id and is resolved to a position on use, so removals
// elsewhere in the list never retarget it.
type ViewModel struct {
	store  store.Store
	sink   notify.Sink
	logger *slog.Logger

	mu      sync.Mutex
	tasks   []store.Task
	input   string
	editID  string
	pending bool

	nextSub int
	subs    map[int]func(Snapshot)
}

// Option configures a ViewModel.
type Option func(*ViewModel)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(vm *ViewModel) {
		if l != nil {
			vm.logger = l
		}
	}
}

// New creates a ViewModel with an empty cache.
func New(st store.Store, sink notify.Sink, opts ...Option) *ViewModel {
	if sink == nil {
		sink = notify.Discard
	}
	vm := &ViewModel{
		store:  st,
		sink:   sink,
		logger: slog.New(slog.DiscardHandler),
		subs:   make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Subscribe registers fn to receive a snapshot after every change.
// fn runs on the goroutine that made the change and must not call back into
// the ViewModel synchronously. The returned func cancels the subscription.
func (vm *ViewModel) Subscribe(fn func(Snapshot)) func() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	id := vm.nextSub
	vm.nextSub++
	vm.subs[id] = fn
	return func() {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		delete(vm.subs, id)
	}
}

// Snapshot returns a copy of the current state.
func (vm *ViewModel) Snapshot() Snapshot {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.snapshotLocked()
}

func (vm *ViewModel) snapshotLocked() Snapshot {
	tasks := make([]store.Task, len(vm.tasks))
	copy(tasks, vm.tasks)
	return Snapshot{
		Tasks:     tasks,
		Input:     vm.input,
		EditIndex: vm.indexLocked(vm.editID),
		State:     vm.stateLocked(),
	}
}

func (vm *ViewModel) stateLocked() State {
	switch {
	case vm.pending:
		return Submitting
	case vm.editID != "":
		return Editing
	default:
		return Idle
	}
}

// indexLocked resolves an id to its current position, or -1.
func (vm *ViewModel) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, t := range vm.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// publish sends snapshot to subscribers outside the lock.
func (vm *ViewModel) publish() {
	vm.mu.Lock()
	snap := vm.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(vm.subs))
	for _, fn := range vm.subs {
		subs = append(subs, fn)
	}
	vm.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (vm *ViewModel) notify(k notify.Kind) {
	vm.sink.Notify(notify.New(k))
}

// Load replaces the cache with the full collection from the store.
// On failure the cache is left empty and a *store.FetchError is returned.
func (vm *ViewModel) Load(ctx context.Context) error {
	if !vm.begin() {
		return ErrBusy
	}

	tasks, err := vm.store.ListAll(ctx)

	vm.mu.Lock()
	vm.pending = false
	if err != nil {
		vm.tasks = nil
	} else {
		vm.tasks = tasks
	}
	if vm.editID != "" && vm.indexLocked(vm.editID) < 0 {
		// The edit text belongs to a task no longer in the cache.
		vm.editID = ""
		vm.input = ""
	}
	vm.mu.Unlock()

	if err != nil {
		vm.logger.Warn("load tasks failed", "error", err)
		vm.notify(notify.FetchFailed)
		vm.publish()
		return asFetchError(err)
	}
	vm.logger.Debug("tasks loaded", "count", len(tasks))
	vm.publish()
	return nil
}

// SetInput replaces the input text.
func (vm *ViewModel) SetInput(s string) {
	vm.mu.Lock()
	vm.input = s
	vm.mu.Unlock()
	vm.publish()
}

// Input returns the current input text.
func (vm *ViewModel) Input() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.input
}

// BeginEdit moves the cursor to the task at index and copies its title into the input.
func (vm *ViewModel) BeginEdit(index int) error {
	vm.mu.Lock()
	if vm.pending {
		vm.mu.Unlock()
		return ErrBusy
	}
	if index < 0 || index >= len(vm.tasks) {
		vm.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index+1)
	}
	vm.editID = vm.tasks[index].ID
	vm.input = vm.tasks[index].Title
	vm.mu.Unlock()

	vm.publish()
	return nil
}

// CancelEdit clears the cursor and the input.
func (vm *ViewModel) CancelEdit() {
	vm.mu.Lock()
	if vm.pending {
		vm.mu.Unlock()
		return
	}
	vm.editID = ""
	vm.input = ""
	vm.mu.Unlock()
	vm.publish()
}

// begin enters the Submitting state. It reports false if a call is already pending.
func (vm *ViewModel) begin() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.pending {
		return false
	}
	vm.pending = true
	return true
}

// Submit adds a new task when idle, or updates the task under edit.
// Validation runs against the cache before any store call.
func (vm *ViewModel) Submit(ctx context.Context) error {
	vm.mu.Lock()
	if vm.pending {
		vm.mu.Unlock()
		return ErrBusy
	}
	title := normalizeTitle(vm.input)
	editID := vm.editID
	if err := validateTitle(vm.tasks, title, editID); err != nil {
		vm.mu.Unlock()
		vm.logger.Debug("title rejected", "title", title, "error", err)
		vm.notify(err.notification())
		return err
	}
	if editID != "" && vm.indexLocked(editID) < 0 {
		// The task under edit vanished from the cache.
		vm.editID = ""
		vm.mu.Unlock()
		vm.notify(notify.UpdateFailed)
		vm.publish()
		return &store.NotFoundError{ID: editID}
	}
	vm.pending = true
	vm.mu.Unlock()
	vm.publish()

	if editID == "" {
		return vm.create(ctx, title)
	}
	return vm.update(ctx, editID, title)
}

func (vm *ViewModel) create(ctx context.Context, title string) error {
	id, err := vm.store.Create(ctx, title)

	vm.mu.Lock()
	vm.pending = false
	if err == nil {
		vm.tasks = append(vm.tasks, store.Task{ID: id, Title: title})
		vm.input = ""
	}
	vm.mu.Unlock()

	if err != nil {
		vm.logger.Warn("create task failed", "title", title, "error", err)
		vm.notify(notify.AddFailed)
		vm.publish()
		return asWriteError(store.OpCreate, "", err)
	}
	vm.logger.Info("task created", "id", id)
	vm.notify(notify.Added)
	vm.publish()
	return nil
}

func (vm *ViewModel) update(ctx context.Context, id, title string) error {
	err := vm.store.Update(ctx, id, title)

	vm.mu.Lock()
	vm.pending = false
	if err == nil {
		if i := vm.indexLocked(id); i >= 0 {
			vm.tasks[i].Title = title
		}
		vm.input = ""
		vm.editID = ""
	}
	vm.mu.Unlock()

	if err != nil {
		vm.logger.Warn("update task failed", "id", id, "error", err)
		vm.notify(notify.UpdateFailed)
		vm.publish()
		return asWriteError(store.OpUpdate, id, err)
	}
	vm.logger.Info("task updated", "id", id)
	vm.notify(notify.Updated)
	vm.publish()
	return nil
}

// Remove deletes the task with id remotely, then drops it from the cache.
// If it was under edit the view-model returns to Idle.
func (vm *ViewModel) Remove(ctx context.Context, id string) error {
	if !vm.begin() {
		return ErrBusy
	}
	vm.publish()

	err := vm.store.Remove(ctx, id)

	vm.mu.Lock()
	vm.pending = false
	if err == nil {
		kept := vm.tasks[:0:0]
		for _, t := range vm.tasks {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		vm.tasks = kept
		if vm.editID == id {
			vm.editID = ""
			vm.input = ""
		}
	}
	vm.mu.Unlock()

	if err != nil {
		vm.logger.Warn("remove task failed", "id", id, "error", err)
		vm.notify(notify.RemoveFailed)
		vm.publish()
		return asWriteError(store.OpRemove, id, err)
	}
	vm.logger.Info("task removed", "id", id)
	vm.notify(notify.Removed)
	vm.publish()
	return nil
}

// RemoveAt removes the task at index.
func (vm *ViewModel) RemoveAt(ctx context.Context, index int) error {
	vm.mu.Lock()
	if index < 0 || index >= len(vm.tasks) {
		vm.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index+1)
	}
	id := vm.tasks[index].ID
	vm.mu.Unlock()
	return vm.Remove(ctx, id)
}

// asFetchError keeps backend errors that already carry the taxonomy.
func asFetchError(err error) error {
	var fe *store.FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &store.FetchError{Err: err}
}

func asWriteError(op, id string, err error) error {
	var we *store.WriteError
	if errors.As(err, &we) || store.IsNotFound(err) {
		return err
	}
	return &store.WriteError{Op: op, ID: id, Err: err}
}

package todo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo/internal/notify"
	"todo/internal/store"
	"todo/internal/testutil"
	"todo/internal/todo"
)

// newLoaded returns a view-model loaded from a fake store seeded with titles,
// using ids "1", "2", ...
func newLoaded(t *testing.T, titles ...string) (*todo.ViewModel, *testutil.FakeStore, *testutil.Recorder) {
	t.Helper()
	st := testutil.NewFakeStore()
	for i, title := range titles {
		st.Seed(string(rune('1'+i)), title)
	}
	rec := &testutil.Recorder{}
	vm := todo.New(st, rec)
	require.NoError(t, vm.Load(context.Background()))
	return vm, st, rec
}

func titles(tasks []store.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func TestLoad_MirrorsStore(t *testing.T) {
	vm, _, rec := newLoaded(t, "A", "B")

	snap := vm.Snapshot()
	assert.Equal(t, []store.Task{{ID: "1", Title: "A"}, {ID: "2", Title: "B"}}, snap.Tasks)
	assert.Equal(t, todo.Idle, snap.State)
	assert.Equal(t, -1, snap.EditIndex)
	assert.Empty(t, rec.Kinds())
}

func TestLoad_FailureLeavesCacheEmpty(t *testing.T) {
	st := testutil.NewFakeStore()
	st.Seed("1", "A")
	rec := &testutil.Recorder{}
	vm := todo.New(st, rec)
	require.NoError(t, vm.Load(context.Background()))

	st.ListAllErr = testutil.ErrBackend
	err := vm.Load(context.Background())

	var fe *store.FetchError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, testutil.ErrBackend)
	assert.Empty(t, vm.Snapshot().Tasks)
	assert.Equal(t, []notify.Kind{notify.FetchFailed}, rec.Kinds())
}

func TestLoad_FailureDuringEditClearsInput(t *testing.T) {
	vm, st, rec := newLoaded(t, "A")
	require.NoError(t, vm.BeginEdit(0))
	vm.SetInput("A2")

	st.ListAllErr = testutil.ErrBackend
	require.Error(t, vm.Load(context.Background()))

	snap := vm.Snapshot()
	assert.Equal(t, todo.Idle, snap.State)
	assert.Empty(t, snap.Input)

	// Nothing left to submit as a new task.
	st.ListAllErr = nil
	err := vm.Submit(context.Background())
	assert.ErrorIs(t, err, todo.ErrEmptyTitle)
	assert.Zero(t, st.Calls("Create"))
	assert.Equal(t, []notify.Kind{notify.FetchFailed, notify.EmptyTitle}, rec.Kinds())
}

func TestLoad_EditedTaskGoneClearsInput(t *testing.T) {
	vm, st, _ := newLoaded(t, "A", "B")
	require.NoError(t, vm.BeginEdit(1))

	require.NoError(t, st.Remove(context.Background(), "2"))
	require.NoError(t, vm.Load(context.Background()))

	snap := vm.Snapshot()
	assert.Equal(t, todo.Idle, snap.State)
	assert.Equal(t, -1, snap.EditIndex)
	assert.Empty(t, snap.Input)
}

func TestLoad_EditSurvivesReload(t *testing.T) {
	vm, _, _ := newLoaded(t, "A", "B")
	require.NoError(t, vm.BeginEdit(1))
	vm.SetInput("B2")

	require.NoError(t, vm.Load(context.Background()))

	snap := vm.Snapshot()
	assert.Equal(t, todo.Editing, snap.State)
	assert.Equal(t, 1, snap.EditIndex)
	assert.Equal(t, "B2", snap.Input)
}

func TestSubmit_CreateThenListIncludesTitleOnce(t *testing.T) {
	for _, title := range []string{"Buy milk", "Call mom", "x", "Ünïcode ✓"} {
		t.Run(title, func(t *testing.T) {
			vm, st, rec := newLoaded(t, "Existing")

			vm.SetInput(title)
			require.NoError(t, vm.Submit(context.Background()))

			listed, err := st.ListAll(context.Background())
			require.NoError(t, err)
			count := 0
			for _, task := range listed {
				if task.Title == title {
					count++
				}
			}
			assert.Equal(t, 1, count)

			snap := vm.Snapshot()
			assert.Equal(t, []string{"Existing", title}, titles(snap.Tasks))
			assert.Equal(t, "", snap.Input)
			assert.Equal(t, []notify.Kind{notify.Added}, rec.Kinds())
			assert.NotEmpty(t, snap.Tasks[1].ID)
		})
	}
}

func TestSubmit_TitleIsTrimmed(t *testing.T) {
	vm, st, _ := newLoaded(t)

	vm.SetInput("  Buy milk \t")
	require.NoError(t, vm.Submit(context.Background()))

	assert.Equal(t, []string{"Buy milk"}, titles(st.Tasks()))
}

func TestSubmit_EmptyTitleNeverCallsStore(t *testing.T) {
	for _, input := range []string{"", " ", "\t\n  "} {
		vm, st, rec := newLoaded(t, "A")
		before := st.TotalCalls()

		vm.SetInput(input)
		err := vm.Submit(context.Background())

		assert.ErrorIs(t, err, todo.ErrEmptyTitle)
		var ve *todo.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, todo.EmptyTitle, ve.Reason)
		assert.Equal(t, before, st.TotalCalls())
		assert.Equal(t, []string{"A"}, titles(vm.Snapshot().Tasks))
		assert.Equal(t, []notify.Kind{notify.EmptyTitle}, rec.Kinds())
	}
}

func TestSubmit_EmptyTitleWhileEditing(t *testing.T) {
	vm, st, _ := newLoaded(t, "A")
	require.NoError(t, vm.BeginEdit(0))

	vm.SetInput("   ")
	assert.ErrorIs(t, vm.Submit(context.Background()), todo.ErrEmptyTitle)
	assert.Equal(t, 0, st.Calls("Update"))
	assert.Equal(t, todo.Editing, vm.Snapshot().State)
}

func TestSubmit_DuplicateNewTaskRejected(t *testing.T) {
	vm, st, rec := newLoaded(t, "Buy milk")
	before := st.TotalCalls()

	vm.SetInput("buy milk")
	err := vm.Submit(context.Background())

	assert.ErrorIs(t, err, todo.ErrDuplicateTitle)
	assert.Equal(t, before, st.TotalCalls())
	assert.Equal(t, []store.Task{{ID: "1", Title: "Buy milk"}}, vm.Snapshot().Tasks)
	assert.Equal(t, []notify.Kind{notify.DuplicateTitle}, rec.Kinds())
	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.LevelInfo, last.Level)
}

func TestSubmit_DuplicateOfOtherTaskWhileEditing(t *testing.T) {
	vm, st, rec := newLoaded(t, "A", "B")

	require.NoError(t, vm.BeginEdit(1))
	assert.Equal(t, "B", vm.Input())

	vm.SetInput("A")
	err := vm.Submit(context.Background())

	assert.ErrorIs(t, err, todo.ErrDuplicateTitle)
	assert.Equal(t, 0, st.Calls("Update"))
	snap := vm.Snapshot()
	assert.Equal(t, []string{"A", "B"}, titles(snap.Tasks))
	assert.Equal(t, 1, snap.EditIndex)
	assert.Equal(t, []notify.Kind{notify.DuplicateTitle}, rec.Kinds())
}

func TestSubmit_EditUnchangedTitleIsAllowed(t *testing.T) {
	vm, st, rec := newLoaded(t, "A", "B")

	require.NoError(t, vm.BeginEdit(0))
	require.NoError(t, vm.Submit(context.Background()))

	assert.Equal(t, 1, st.Calls("Update"))
	snap := vm.Snapshot()
	assert.Equal(t, []string{"A", "B"}, titles(snap.Tasks))
	assert.Equal(t, -1, snap.EditIndex)
	assert.Equal(t, todo.Idle, snap.State)
	assert.Equal(t, "", snap.Input)
	assert.Equal(t, []notify.Kind{notify.Updated}, rec.Kinds())
}

func TestSubmit_EditChangesCaseOfOwnTitle(t *testing.T) {
	vm, st, _ := newLoaded(t, "a", "b")

	require.NoError(t, vm.BeginEdit(0))
	vm.SetInput("A")
	require.NoError(t, vm.Submit(context.Background()))

	assert.Equal(t, []string{"A", "b"}, titles(st.Tasks()))
	assert.Equal(t, []string{"A", "b"}, titles(vm.Snapshot().Tasks))
}

func TestSubmit_UpdateFailureKeepsState(t *testing.T) {
	vm, st, rec := newLoaded(t, "A")
	st.UpdateErr = errors.New("quota exceeded")

	require.NoError(t, vm.BeginEdit(0))
	vm.SetInput("A2")
	err := vm.Submit(context.Background())

	var we *store.WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, store.OpUpdate, we.Op)
	snap := vm.Snapshot()
	assert.Equal(t, []string{"A"}, titles(snap.Tasks))
	assert.Equal(t, "A2", snap.Input)
	assert.Equal(t, 0, snap.EditIndex)
	assert.Equal(t, []notify.Kind{notify.UpdateFailed}, rec.Kinds())
}

func TestSubmit_UpdateNotFound(t *testing.T) {
	vm, st, rec := newLoaded(t, "A")
	require.NoError(t, vm.BeginEdit(0))

	// Deleted by another client.
	require.NoError(t, st.Remove(context.Background(), "1"))

	vm.SetInput("A2")
	err := vm.Submit(context.Background())

	assert.True(t, store.IsNotFound(err))
	assert.Equal(t, []notify.Kind{notify.UpdateFailed}, rec.Kinds())
}

func TestSubmit_CreateFailureLeavesCache(t *testing.T) {
	vm, st, rec := newLoaded(t, "A")
	st.CreateErr = testutil.ErrBackend

	vm.SetInput("B")
	err := vm.Submit(context.Background())

	var we *store.WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, store.OpCreate, we.Op)
	assert.ErrorIs(t, err, testutil.ErrBackend)
	assert.Equal(t, []string{"A"}, titles(vm.Snapshot().Tasks))
	assert.Equal(t, "B", vm.Input())
	assert.Equal(t, []notify.Kind{notify.AddFailed}, rec.Kinds())
}

func TestSubmit_BusyWhilePending(t *testing.T) {
	vm, st, _ := newLoaded(t)
	st.Block = make(chan struct{})

	vm.SetInput("A")
	done := make(chan error, 1)
	go func() { done <- vm.Submit(context.Background()) }()

	require.Eventually(t, func() bool {
		return vm.Snapshot().State == todo.Submitting
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, vm.Submit(context.Background()), todo.ErrBusy)
	assert.ErrorIs(t, vm.Remove(context.Background(), "x"), todo.ErrBusy)
	assert.ErrorIs(t, vm.BeginEdit(0), todo.ErrBusy)

	close(st.Block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, st.Calls("Create"))
	assert.Equal(t, []string{"A"}, titles(vm.Snapshot().Tasks))
}

func TestBeginEdit_OutOfRange(t *testing.T) {
	vm, _, _ := newLoaded(t, "A")

	assert.ErrorIs(t, vm.BeginEdit(1), todo.ErrIndexOutOfRange)
	assert.ErrorIs(t, vm.BeginEdit(-1), todo.ErrIndexOutOfRange)
	assert.Equal(t, todo.Idle, vm.Snapshot().State)
}

func TestCancelEdit(t *testing.T) {
	vm, _, _ := newLoaded(t, "A")
	require.NoError(t, vm.BeginEdit(0))

	vm.CancelEdit()

	snap := vm.Snapshot()
	assert.Equal(t, todo.Idle, snap.State)
	assert.Equal(t, "", snap.Input)
	assert.False(t, snap.Editing())
}

func TestRemove_PreservesOrder(t *testing.T) {
	vm, st, rec := newLoaded(t, "A", "B", "C", "D")

	require.NoError(t, vm.Remove(context.Background(), "2"))

	assert.Equal(t, []string{"A", "C", "D"}, titles(vm.Snapshot().Tasks))
	assert.Equal(t, []string{"A", "C", "D"}, titles(st.Tasks()))
	assert.Equal(t, []notify.Kind{notify.Removed}, rec.Kinds())
}

func TestRemove_FailureLeavesCache(t *testing.T) {
	vm, st, rec := newLoaded(t, "A", "B")
	st.RemoveErr = &store.WriteError{Op: store.OpRemove, ID: "1", Err: testutil.ErrBackend}

	err := vm.Remove(context.Background(), "1")

	var we *store.WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, []string{"A", "B"}, titles(vm.Snapshot().Tasks))
	assert.Equal(t, []notify.Kind{notify.RemoveFailed}, rec.Kinds())
}

func TestRemove_EarlierTaskKeepsEditCursorOnSameTask(t *testing.T) {
	vm, st, _ := newLoaded(t, "A", "B", "C")
	require.NoError(t, vm.BeginEdit(2))

	require.NoError(t, vm.RemoveAt(context.Background(), 0))

	snap := vm.Snapshot()
	assert.Equal(t, 1, snap.EditIndex)
	assert.Equal(t, "C", snap.Tasks[snap.EditIndex].Title)

	vm.SetInput("C2")
	require.NoError(t, vm.Submit(context.Background()))
	assert.Equal(t, []string{"B", "C2"}, titles(st.Tasks()))
}

func TestRemove_TaskUnderEditReturnsToIdle(t *testing.T) {
	vm, _, _ := newLoaded(t, "A", "B")
	require.NoError(t, vm.BeginEdit(1))

	require.NoError(t, vm.Remove(context.Background(), "2"))

	snap := vm.Snapshot()
	assert.Equal(t, todo.Idle, snap.State)
	assert.Equal(t, -1, snap.EditIndex)
	assert.Equal(t, "", snap.Input)
}

func TestRemoveAt_OutOfRange(t *testing.T) {
	vm, st, _ := newLoaded(t, "A")

	assert.ErrorIs(t, vm.RemoveAt(context.Background(), 3), todo.ErrIndexOutOfRange)
	assert.Equal(t, 0, st.Calls("Remove"))
}

func TestSubscribe(t *testing.T) {
	vm, _, _ := newLoaded(t, "A")

	var got []todo.Snapshot
	cancel := vm.Subscribe(func(s todo.Snapshot) { got = append(got, s) })

	vm.SetInput("B")
	require.NoError(t, vm.Submit(context.Background()))

	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, []string{"A", "B"}, titles(last.Tasks))
	assert.Equal(t, todo.Idle, last.State)

	sawSubmitting := false
	for _, s := range got {
		if s.State == todo.Submitting {
			sawSubmitting = true
		}
	}
	assert.True(t, sawSubmitting)

	cancel()
	n := len(got)
	vm.SetInput("C")
	assert.Len(t, got, n)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", todo.Idle.String())
	assert.Equal(t, "editing", todo.Editing.String())
	assert.Equal(t, "submitting", todo.Submitting.String())
}

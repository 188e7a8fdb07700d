package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/notify"
	"todo/internal/store"
	"todo/internal/todo"
)

// ErrTaskNumRequired indicates no task number was provided.
var ErrTaskNumRequired = errors.New("task number required")

// ParseTaskNum parses a 1-based task number from the first argument.
func ParseTaskNum(args []string) (int, error) {
	if len(args) == 0 {
		return 0, ErrTaskNumRequired
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid task number: %s", args[0])
	}
	if n < 1 {
		return 0, fmt.Errorf("task number out of range: %d", n)
	}
	return n, nil
}

// openSession creates a view-model that reports to out/errOut and loads it.
// The second result is the exit code to return when loading failed.
func openSession(ctx context.Context, cfg *config.Config, st store.Store, out, errOut io.Writer) (*todo.ViewModel, int, bool) {
	sink := &notify.WriterSink{Out: out, ErrOut: errOut, Quiet: cfg.Quiet}
	vm := todo.New(st, sink, todo.WithLogger(cfg.Logger))
	if err := vm.Load(ctx); err != nil {
		return nil, exitCodeFor(err), false
	}
	return vm, exitcode.Success, true
}

// exitCodeFor maps an operation error to an exit code.
// The user has already been notified; this only classifies.
func exitCodeFor(err error) int {
	var ve *todo.ValidationError
	switch {
	case err == nil:
		return exitcode.Success
	case errors.As(err, &ve),
		errors.Is(err, todo.ErrIndexOutOfRange),
		errors.Is(err, todo.ErrBusy),
		store.IsNotFound(err):
		return exitcode.UserError
	default:
		// *store.FetchError, *store.WriteError
		return exitcode.BackendError
	}
}

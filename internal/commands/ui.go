package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/logging"
	"todo/internal/store"
	"todo/internal/tui"
)

// uiLogFile receives debug logs while the form owns the terminal.
const uiLogFile = "ui.log"

func init() {
	Register(&UICmd{})
}

// UICmd opens the interactive form.
type UICmd struct{}

func (c *UICmd) Name() string      { return "ui" }
func (c *UICmd) Aliases() []string { return nil }
func (c *UICmd) Synopsis() string  { return "Open the interactive task form" }
func (c *UICmd) Usage() string     { return "todo ui [common flags]" }
func (c *UICmd) NeedsStore() bool  { return true }

func (c *UICmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UICmd) Run(ctx context.Context, cfg *config.Config, st store.Store, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	// stderr shares the terminal with the form, so logs go to a file or nowhere.
	logger := slog.New(slog.DiscardHandler)
	if cfg.Debug {
		if err := cfg.EnsureDir(); err != nil {
			fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
			return exitcode.UserError
		}
		f, err := os.OpenFile(filepath.Join(cfg.Dir, uiLogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			fmt.Fprintf(errOut, "error: failed to open log file: %v\n", err)
			return exitcode.UserError
		}
		defer f.Close()
		logger = logging.New(f, cfg.Settings.LogLevel, true)
	}

	if err := tui.Run(ctx, st, logger, out); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}

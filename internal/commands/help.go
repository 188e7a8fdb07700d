package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todo/internal/config"
	"todo/internal/exitcode"
	"todo/internal/store"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "todo help" }
func (c *HelpCmd) NeedsStore() bool  { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, st store.Store, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	fmt.Fprintf(out, "\nCommands:\n%s", DefaultRegistry.Summary())
	return exitcode.Success
}

const helpText = `Usage:
  todo                                   List all tasks
  todo list [common flags]               List all tasks
  todo add [common flags] <title...>     Create a task
  todo edit [common flags] <n> <title...>
  todo rm [common flags] <n>
  todo ui [common flags]                 Open the interactive form
  todo login [common flags]
  todo logout [common flags]
  todo help
  todo version

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr

Settings are read from <config dir>/config.yaml and TODO_* environment
variables (for example TODO_BACKEND=mysql, TODO_FIRESTORE_PROJECT_ID=my-project).
`

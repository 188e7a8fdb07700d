// Package tui is the interactive task form: one input, an Add/Update button,
// the task list and a toast line.
package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"todo/internal/notify"
	"todo/internal/output"
	"todo/internal/store"
	"todo/internal/todo"
)

// ToastTTL is how long a notification stays on screen.
const ToastTTL = 3 * time.Second

var (
	colorAccent  = lipgloss.Color("69")
	colorMuted   = lipgloss.Color("241")
	colorSuccess = lipgloss.Color("42")
	colorInfo    = lipgloss.Color("39")
	colorError   = lipgloss.Color("196")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	buttonStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1).Background(colorAccent).Foreground(lipgloss.Color("230"))
	busyStyle     = buttonStyle.Background(colorMuted)
	selectedStyle = lipgloss.NewStyle().Bold(true)
	editingStyle  = lipgloss.NewStyle().Foreground(colorAccent)
	helpStyle     = lipgloss.NewStyle().Foreground(colorMuted)
)

// opDoneMsg reports that a store-backed intent finished.
type opDoneMsg struct{ err error }

// toastExpiredMsg clears the toast it was scheduled for.
type toastExpiredMsg struct{ seq int }

// Model is the bubbletea model of the form.
type Model struct {
	ctx   context.Context
	vm    *todo.ViewModel
	sink  *notify.ChanSink
	input textinput.Model

	snap   todo.Snapshot
	cursor int
	busy   bool
	err    error // result of the last intent; already reported by a toast

	toast    *notify.Message
	toastSeq int
}

// New creates the form over vm. sink must be the sink vm reports to.
func New(ctx context.Context, vm *todo.ViewModel, sink *notify.ChanSink) Model {
	ti := textinput.New()
	ti.Placeholder = "Enter a task"
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Width = 48
	ti.Focus()

	return Model{
		ctx:   ctx,
		vm:    vm,
		sink:  sink,
		input: ti,
		snap:  vm.Snapshot(),
		busy:  true,
	}
}

// Run loads the collection and runs the form until the user quits or ctx is cancelled.
func Run(ctx context.Context, st store.Store, logger *slog.Logger, out io.Writer) error {
	sink := notify.NewChanSink(16)
	vm := todo.New(st, sink, todo.WithLogger(logger))

	p := tea.NewProgram(New(ctx, vm, sink),
		tea.WithContext(ctx),
		tea.WithOutput(out),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), textinput.Blink)
}

func (m Model) load() tea.Cmd {
	return m.run(m.vm.Load)
}

// run executes a view-model intent off the UI goroutine.
func (m Model) run(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{err: fn(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case opDoneMsg:
		return m.finish(msg)

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.snap.Editing() {
				m.vm.CancelEdit()
				m.refresh()
				return m, nil
			}
			return m, tea.Quit
		case "up":
			m.move(-1)
			return m, nil
		case "down":
			m.move(1)
			return m, nil
		case "enter":
			return m.submit()
		case "ctrl+e":
			return m.beginEdit()
		case "ctrl+d":
			return m.remove()
		}
		if m.busy {
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.vm.SetInput(m.input.Value())
	m.busy = true
	return m, m.run(m.vm.Submit)
}

func (m Model) beginEdit() (tea.Model, tea.Cmd) {
	if m.busy || len(m.snap.Tasks) == 0 {
		return m, nil
	}
	if err := m.vm.BeginEdit(m.cursor); err != nil {
		return m, nil
	}
	m.refresh()
	return m, nil
}

func (m Model) remove() (tea.Model, tea.Cmd) {
	if m.busy || len(m.snap.Tasks) == 0 {
		return m, nil
	}
	id := m.snap.Tasks[m.cursor].ID
	m.vm.SetInput(m.input.Value())
	m.busy = true
	return m, m.run(func(ctx context.Context) error {
		return m.vm.Remove(ctx, id)
	})
}

// finish picks up the view-model state and the newest notification after an intent.
func (m Model) finish(msg opDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.err = msg.err
	m.refresh()

	var latest *notify.Message
drain:
	for {
		select {
		case n := <-m.sink.C():
			latest = &n
		default:
			break drain
		}
	}
	if latest == nil {
		return m, nil
	}

	m.toast = latest
	m.toastSeq++
	seq := m.toastSeq
	return m, tea.Tick(ToastTTL, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

// refresh copies the view-model state into the form.
func (m *Model) refresh() {
	m.snap = m.vm.Snapshot()
	m.input.SetValue(m.snap.Input)
	m.input.CursorEnd()
	m.move(0)
}

// move shifts the selection by delta, keeping it inside the list.
func (m *Model) move(delta int) {
	m.cursor += delta
	if m.cursor >= len(m.snap.Tasks) {
		m.cursor = len(m.snap.Tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// ButtonLabel is the label of the submit button for the current state.
func (m Model) ButtonLabel() string {
	switch {
	case m.busy:
		return "Saving…"
	case m.snap.Editing():
		return "Update"
	default:
		return "Add"
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Todo"))
	b.WriteString("\n\n")

	button := buttonStyle
	if m.busy {
		button = busyStyle
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, m.input.View(), " ", button.Render(m.ButtonLabel())))
	b.WriteString("\n\n")

	if len(m.snap.Tasks) == 0 {
		b.WriteString(helpStyle.Render(output.NoTasks))
		b.WriteString("\n")
	}
	for i, t := range m.snap.Tasks {
		line := output.NormalizeTitle(t.Title)
		if i == m.snap.EditIndex {
			line = editingStyle.Render(line + " (editing)")
		}
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("› " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.toast != nil {
		b.WriteString(toastStyle(m.toast.Level).Render(m.toast.Text))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter: save • ↑/↓: select • ctrl+e: edit • ctrl+d: delete • esc: cancel • ctrl+c: quit"))
	b.WriteString("\n")
	return b.String()
}

func toastStyle(l notify.Level) lipgloss.Style {
	switch l {
	case notify.LevelSuccess:
		return lipgloss.NewStyle().Foreground(colorSuccess)
	case notify.LevelInfo:
		return lipgloss.NewStyle().Foreground(colorInfo)
	default:
		return lipgloss.NewStyle().Bold(true).Foreground(colorError)
	}
}

// Package notify surfaces the outcome of each task operation to the user.
package notify

// Kind identifies which operation outcome a message reports.
type Kind int

const (
	Added Kind = iota
	Updated
	Removed
	EmptyTitle
	DuplicateTitle
	FetchFailed
	AddFailed
	UpdateFailed
	RemoveFailed
)

// Level is the severity a sink should render a message with.
type Level int

const (
	LevelSuccess Level = iota
	LevelInfo
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelInfo:
		return "info"
	default:
		return "error"
	}
}

var texts = map[Kind]string{
	Added:          "Task added successfully!",
	Updated:        "Task updated successfully!",
	Removed:        "Task removed successfully!",
	EmptyTitle:     "Task title cannot be empty!",
	DuplicateTitle: "Task title must be unique!",
	FetchFailed:    "Error fetching todos",
	AddFailed:      "Error adding task",
	UpdateFailed:   "Error updating task",
	RemoveFailed:   "Error removing task",
}

// Text returns the fixed user-facing text for the kind.
func (k Kind) Text() string {
	if s, ok := texts[k]; ok {
		return s
	}
	return "Unknown notification"
}

// Level returns the severity of the kind.
func (k Kind) Level() Level {
	switch k {
	case Added, Updated, Removed:
		return LevelSuccess
	case DuplicateTitle:
		return LevelInfo
	default:
		return LevelError
	}
}

// Message is one notification.
type Message struct {
	Kind  Kind
	Level Level
	Text  string
}

// New builds the message for a kind.
func New(k Kind) Message {
	return Message{Kind: k, Level: k.Level(), Text: k.Text()}
}

// Sink receives one message per completed or failed operation.
// Implementations must not block the caller.
type Sink interface {
	Notify(Message)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Message)

// Notify implements Sink.
func (f SinkFunc) Notify(m Message) { f(m) }

// Discard drops every message.
var Discard Sink = SinkFunc(func(Message) {})

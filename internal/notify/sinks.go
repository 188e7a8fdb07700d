package notify

import (
	"fmt"
	"io"
)

// WriterSink prints messages for the command line.
// Success and info go to Out unless Quiet; errors always go to ErrOut.
type WriterSink struct {
	Out    io.Writer
	ErrOut io.Writer
	Quiet  bool
}

// Notify implements Sink.
func (s *WriterSink) Notify(m Message) {
	if m.Level == LevelError {
		fmt.Fprintf(s.ErrOut, "error: %s\n", m.Text)
		return
	}
	if !s.Quiet {
		fmt.Fprintln(s.Out, m.Text)
	}
}

// ChanSink forwards messages on a buffered channel and drops them when the
// channel is full.
type ChanSink struct {
	ch chan Message
}

// NewChanSink creates a ChanSink with the given buffer size.
func NewChanSink(size int) *ChanSink {
	return &ChanSink{ch: make(chan Message, size)}
}

// Notify implements Sink.
func (s *ChanSink) Notify(m Message) {
	select {
	case s.ch <- m:
	default:
	}
}

// C returns the receive side of the channel.
func (s *ChanSink) C() <-chan Message {
	return s.ch
}

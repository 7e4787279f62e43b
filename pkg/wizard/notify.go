package wizard

import (
	"fmt"
	"io"
)

// Notifier shows transient messages to the user
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

// WriterNotifier prints notifications as lines to a writer
type WriterNotifier struct {
	w io.Writer
}

// NewWriterNotifier creates a notifier writing to w
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Info(msg string) {
	fmt.Fprintf(n.w, "ℹ %s\n", msg)
}

func (n *WriterNotifier) Error(msg string) {
	fmt.Fprintf(n.w, "✗ %s\n", msg)
}

type discardNotifier struct{}

func (discardNotifier) Info(string)  {}
func (discardNotifier) Error(string) {}

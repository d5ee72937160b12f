// Package notify carries user-facing notices from the core to whatever
// surface is presenting them. The store never prints; it notifies.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Kind classifies a notice.
type Kind int

const (
	KindSuccess Kind = iota
	KindError
)

func (k Kind) String() string {
	if k == KindError {
		return "error"
	}
	return "success"
}

// Notifier receives user-visible notices.
type Notifier interface {
	Notify(kind Kind, message string)
}

// Logger routes notices into structured logs. Used when no terminal
// surface is attached.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (l *Logger) Notify(kind Kind, message string) {
	if kind == KindError {
		l.logger.Error(message)
		return
	}
	l.logger.Info(message)
}

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// Terminal prints styled notices to a writer, usually stderr so list
// output stays pipeable.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
}

func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

func (t *Terminal) Notify(kind Kind, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	marker := successStyle.Render("✓")
	if kind == KindError {
		marker = errorStyle.Render("✗")
	}
	fmt.Fprintf(t.out, "%s %s\n", marker, message)
}

// Multi fans one notice out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(kind Kind, message string) {
	for _, n := range m {
		n.Notify(kind, message)
	}
}

// Recorder captures notices in order. Used by tests.
type Recorder struct {
	mu      sync.Mutex
	Notices []Notice
}

// Notice is one recorded notification.
type Notice struct {
	Kind    Kind
	Message string
}

func (r *Recorder) Notify(kind Kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notices = append(r.Notices, Notice{Kind: kind, Message: message})
}

// Recorded returns a copy of the captured notices.
func (r *Recorder) Recorded() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.Notices))
	copy(out, r.Notices)
	return out
}

// Package notify surfaces submission outcomes to the user.
package notify

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"docflow/internal/docflow/domain"
	"docflow/pkg/logger"
)

// Console prints notifications as colored lines, like a toast.
type Console struct {
	mu  sync.Mutex
	out io.Writer

	success *color.Color
	failure *color.Color
	info    *color.Color
}

var _ domain.Notifier = (*Console)(nil)

// NewConsole writes to out, or stdout when out is nil. Color is disabled
// automatically when out is not a terminal.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{
		out:     out,
		success: color.New(color.FgGreen, color.Bold),
		failure: color.New(color.FgRed, color.Bold),
		info:    color.New(color.FgCyan),
	}
}

// DisableColor forces plain output.
func (c *Console) DisableColor() {
	c.success.DisableColor()
	c.failure.DisableColor()
	c.info.DisableColor()
}

func (c *Console) Notify(kind domain.NotificationKind, message, icon string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if icon == "" {
		icon = defaultIcon(kind)
	}

	var paint *color.Color
	switch kind {
	case domain.NotifySuccess:
		paint = c.success
	case domain.NotifyError:
		paint = c.failure
	default:
		paint = c.info
	}

	_, _ = paint.Fprintf(c.out, "%s %s\n", icon, message)
}

func defaultIcon(kind domain.NotificationKind) string {
	switch kind {
	case domain.NotifySuccess:
		return "✔"
	case domain.NotifyError:
		return "✖"
	default:
		return "ℹ"
	}
}

// Log records notifications in the structured log.
type Log struct {
	logger *logger.Logger
}

var _ domain.Notifier = (*Log)(nil)

func NewLog(l *logger.Logger) *Log {
	if l == nil {
		l = logger.New()
	}
	return &Log{logger: l.WithField("component", "notifier")}
}

func (n *Log) Notify(kind domain.NotificationKind, message, icon string) {
	if kind == domain.NotifyError {
		n.logger.Warn("notification", "kind", string(kind), "message", message)
		return
	}
	n.logger.Info("notification", "kind", string(kind), "message", message)
}

// Multi fans a notification out to several notifiers in order.
type Multi []domain.Notifier

var _ domain.Notifier = Multi(nil)

func (m Multi) Notify(kind domain.NotificationKind, message, icon string) {
	for _, n := range m {
		if n != nil {
			n.Notify(kind, message, icon)
		}
	}
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

type Entry struct {
	Kind    domain.NotificationKind
	Message string
	Icon    string
}

func (e Entry) String() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

var _ domain.Notifier = (*Recorder)(nil)

func (r *Recorder) Notify(kind domain.NotificationKind, message, icon string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Kind: kind, Message: message, Icon: icon})
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Last returns the most recent entry and whether there was one.
func (r *Recorder) Last() (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return Entry{}, false
	}
	return r.entries[len(r.entries)-1], true
}

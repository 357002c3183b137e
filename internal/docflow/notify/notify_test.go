package notify

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/docflow/domain"
	"docflow/pkg/logger"
)

func TestConsole_Notify(t *testing.T) {
	tests := []struct {
		kind    domain.NotificationKind
		message string
		icon    string
		want    string
	}{
		{domain.NotifySuccess, "Document uploaded and processed successfully!", "🎉", "🎉 Document uploaded and processed successfully!\n"},
		{domain.NotifyError, "Upload failed: disk full", "", "✖ Upload failed: disk full\n"},
		{domain.NotifyInfo, "Uploading report.pdf", "", "ℹ Uploading report.pdf\n"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			var buf bytes.Buffer
			c := NewConsole(&buf)
			c.DisableColor()

			c.Notify(tt.kind, tt.message, tt.icon)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestLog_Notify(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithConfig(logger.Config{Level: logger.INFO, Output: &buf})

	n := NewLog(l)
	n.Notify(domain.NotifyError, "Upload failed: boom", "")
	n.Notify(domain.NotifySuccess, "done", "🎉")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[WARN]")
	assert.Contains(t, lines[0], `message="Upload failed: boom"`)
	assert.Contains(t, lines[0], "component=notifier")
	assert.Contains(t, lines[1], "[INFO]")
	assert.Contains(t, lines[1], "kind=success")
}

func TestMulti_FansOutInOrder(t *testing.T) {
	first, second := &Recorder{}, &Recorder{}
	m := Multi{first, nil, second}

	m.Notify(domain.NotifyInfo, "hello", "")
	m.Notify(domain.NotifyError, "bad", "")

	for _, r := range []*Recorder{first, second} {
		entries := r.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, "info: hello", entries[0].String())
		assert.Equal(t, "error: bad", entries[1].String())
	}
}

func TestRecorder_Last(t *testing.T) {
	r := &Recorder{}
	_, ok := r.Last()
	assert.False(t, ok)

	r.Notify(domain.NotifySuccess, "ok", "🎉")
	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, Entry{Kind: domain.NotifySuccess, Message: "ok", Icon: "🎉"}, last)
}

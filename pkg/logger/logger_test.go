package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_TextFormatSortsFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(Config{Level: DEBUG, Output: &buf})

	l.WithField("component", "orchestrator").Info("state changed", "to", "READY", "from", "IDLE")

	line := buf.String()
	assert.Contains(t, line, "[INFO] state changed")
	assert.Contains(t, line, "| component=orchestrator from=IDLE to=READY")
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(Config{Level: WARN, Output: &buf})

	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogger_DerivedLoggersShareLevel(t *testing.T) {
	var buf bytes.Buffer
	root := NewWithConfig(Config{Level: ERROR, Output: &buf})
	child := root.WithField("component", "transport")

	root.SetLevel(DEBUG)
	child.Debug("visible after level change")

	assert.Contains(t, buf.String(), "visible after level change")
}

func TestLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithConfig(Config{Level: INFO, Output: &buf, Format: "json"})

	l.Error("phase failed", "phase", "upload", "error", errors.New("status 500"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "phase failed", entry["message"])
	assert.Equal(t, "upload", entry["phase"])
	assert.Equal(t, "status 500", entry["error"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{"debug", DEBUG, false},
		{"INFO", INFO, false},
		{"warning", WARN, false},
		{"Error", ERROR, false},
		{"verbose", INFO, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		assert.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

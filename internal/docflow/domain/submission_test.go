package domain

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionState(t *testing.T) {
	tests := []struct {
		state    SubmissionState
		busy     bool
		terminal bool
	}{
		{StateIdle, false, false},
		{StateDragging, false, false},
		{StateReady, false, false},
		{StateUploading, true, false},
		{StateProcessing, true, false},
		{StateSucceeded, false, true},
		{StateFailed, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.busy, tt.state.IsBusy())
			assert.Equal(t, tt.terminal, tt.state.IsTerminal())
		})
	}
}

func TestCandidateFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7"), 0644))

	c, err := CandidateFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", c.Name)
	assert.EqualValues(t, 8, c.SizeBytes)

	f := NewSelectedFile(c, "application/pdf")
	r, err := f.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, r.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))

	_, err = CandidateFromPath(dir)
	assert.Error(t, err)
	_, err = CandidateFromPath(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestPhaseTiming_String(t *testing.T) {
	upload := 1.234
	assert.Equal(t, "upload=- process=-", PhaseTiming{}.String())
	assert.Equal(t, "upload=1.23s process=-", PhaseTiming{UploadSeconds: &upload}.String())
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name string
		err  *TransportError
		want string
	}{
		{"status and message", &TransportError{Phase: PhaseUpload, StatusCode: 500, Message: "disk full"}, "upload: status 500: disk full"},
		{"status only", &TransportError{Phase: PhaseProcess, StatusCode: 502}, "process: status 502"},
		{"no response", &TransportError{Phase: PhaseUpload, Err: cause}, "upload: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}

	assert.ErrorIs(t, &TransportError{Phase: PhaseUpload, Err: cause}, cause)
}

func TestSubmissionError(t *testing.T) {
	err := &SubmissionError{Phase: PhaseProcess, Message: "driver crashed"}
	assert.Equal(t, "process failed: driver crashed", err.Error())
}

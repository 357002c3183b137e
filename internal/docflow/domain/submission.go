package domain

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type SubmissionState string

const (
	StateIdle       SubmissionState = "IDLE"
	StateDragging   SubmissionState = "DRAGGING"
	StateReady      SubmissionState = "READY"
	StateUploading  SubmissionState = "UPLOADING"
	StateProcessing SubmissionState = "PROCESSING"
	StateSucceeded  SubmissionState = "SUCCEEDED"
	StateFailed     SubmissionState = "FAILED"
)

// IsBusy reports whether a submission is in flight in this state.
func (s SubmissionState) IsBusy() bool {
	return s == StateUploading || s == StateProcessing
}

// IsTerminal reports whether the state ends a submission cycle.
func (s SubmissionState) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Phase names the step of a submission an error belongs to.
type Phase string

const (
	PhaseValidation Phase = "validation"
	PhaseUpload     Phase = "upload"
	PhaseProcess    Phase = "process"
)

// OpenFunc opens the content of a file for reading.
type OpenFunc func() (io.ReadCloser, error)

// Candidate is a file offered for selection. A nil *Candidate means nothing was supplied.
type Candidate struct {
	Name        string
	SizeBytes   int64
	ContentType string // declared type, may be empty
	Open        OpenFunc
}

// CandidateFromPath stats a local file and returns a candidate that reads it lazily.
func CandidateFromPath(path string) (*Candidate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("expected file but got directory: %s", path)
	}

	return &Candidate{
		Name:      filepath.Base(path),
		SizeBytes: info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// SelectedFile is an accepted candidate held by the orchestrator.
type SelectedFile struct {
	Name        string
	SizeBytes   int64
	ContentType string
	open        OpenFunc
}

// NewSelectedFile wraps an accepted candidate.
func NewSelectedFile(c *Candidate, contentType string) *SelectedFile {
	if contentType == "" {
		contentType = c.ContentType
	}
	return &SelectedFile{
		Name:        c.Name,
		SizeBytes:   c.SizeBytes,
		ContentType: contentType,
		open:        c.Open,
	}
}

// Open returns a fresh reader over the file content.
func (f *SelectedFile) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, fmt.Errorf("file %s has no content source", f.Name)
	}
	return f.open()
}

// PhaseTiming records how long each transport call took, in seconds.
type PhaseTiming struct {
	UploadSeconds  *float64
	ProcessSeconds *float64
}

func (t PhaseTiming) String() string {
	return fmt.Sprintf("upload=%s process=%s", formatSeconds(t.UploadSeconds), formatSeconds(t.ProcessSeconds))
}

func formatSeconds(s *float64) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%.2fs", *s)
}

// SubmissionError is the user-facing failure of one submission attempt.
type SubmissionError struct {
	Phase   Phase
	Message string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Phase, e.Message)
}

// Result summarizes a finished submission.
type Result struct {
	Succeeded bool
	Timing    PhaseTiming
	Err       *SubmissionError
}

// Event is a snapshot published on every state change and progress tick.
type Event struct {
	State    SubmissionState
	Progress float64
	File     *SelectedFile
	Timing   PhaseTiming
}

package errors

import "errors"

var (
	ErrNotReady       = errors.New("no file ready for submission")
	ErrBusy           = errors.New("submission already in flight")
	ErrClosed         = errors.New("orchestrator is closed")
	ErrNotDragging    = errors.New("no drag in progress")
	ErrNoPendingInput = errors.New("no uploaded document to process")
)

// IsRefusal reports whether err means the orchestrator declined an event
// without touching its state.
func IsRefusal(err error) bool {
	return errors.Is(err, ErrNotReady) ||
		errors.Is(err, ErrBusy) ||
		errors.Is(err, ErrClosed) ||
		errors.Is(err, ErrNotDragging)
}

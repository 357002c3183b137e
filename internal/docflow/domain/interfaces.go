package domain

import (
	"context"
	"fmt"
)

// Reply is what the backend answered to a successful call.
type Reply struct {
	StatusCode int
	Message    string
	Body       map[string]interface{}
}

// Transport performs the two remote calls of a submission. Each call is made
// once per attempt; implementations must not retry.
type Transport interface {
	// Store sends the file content to the backend.
	Store(ctx context.Context, file *SelectedFile) (*Reply, error)
	// Trigger asks the backend to process what was stored.
	Trigger(ctx context.Context) (*Reply, error)
}

// TransportError is returned by Transport implementations for a failed call.
// Message holds the server-supplied explanation when the reply carried one.
type TransportError struct {
	Phase      Phase
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Phase, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Phase, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Phase, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Phase, e.Message)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
	NotifyInfo    NotificationKind = "info"
)

// Notifier surfaces messages to the user.
type Notifier interface {
	Notify(kind NotificationKind, message, icon string)
}

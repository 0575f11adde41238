// Package hexerr defines the runtime's component-tagged error types and
// sentinel errors: component + action + message + wrapped cause, with
// refused operations returned as values rather than thrown.
package hexerr

import (
	"errors"
	"fmt"
)

// Sentinel errors so callers can errors.Is against a refused operation
// without string matching.
var (
	ErrFileBusy       = errors.New("file is claimed by another agent")
	ErrReadRequired   = errors.New("file must be read before it can be written")
	ErrNotOwner       = errors.New("caller does not own this claim")
	ErrBudgetExceeded = errors.New("budget limit exceeded")
	ErrUnknownEvent   = errors.New("unknown event type")
	ErrNotFound       = errors.New("not found")
)

// ComponentError is the common shape of every CORE error: the component
// that raised it, the action being attempted, a human-readable message,
// and an optional wrapped cause.
type ComponentError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *ComponentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Action, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Action, e.Message)
}

func (e *ComponentError) Unwrap() error { return e.Err }

func newComponentError(component, action, message string, err error) *ComponentError {
	return &ComponentError{Component: component, Action: action, Message: message, Err: err}
}

// BoardError reports a board-lifecycle failure (start/stop/route).
type BoardError struct{ *ComponentError }

func NewBoardError(action, message string, err error) *BoardError {
	return &BoardError{newComponentError("board", action, message, err)}
}

// RBACError reports a permission evaluation or configuration failure.
type RBACError struct{ *ComponentError }

func NewRBACError(action, message string, err error) *RBACError {
	return &RBACError{newComponentError("rbac", action, message, err)}
}

// FileClaimError reports a file-reservation refusal (busy, not-owner).
type FileClaimError struct {
	*ComponentError
	Path          string
	ClaimantID    string
	ClaimantName  string
	ClaimAgeSec   float64
}

func NewFileClaimError(action, message, path, claimantID, claimantName string, claimAgeSec float64, err error) *FileClaimError {
	return &FileClaimError{
		ComponentError: newComponentError("reservation", action, message, err),
		Path:           path,
		ClaimantID:     claimantID,
		ClaimantName:   claimantName,
		ClaimAgeSec:    claimAgeSec,
	}
}

// TaskQueueError reports a tasklist queue invariant violation.
type TaskQueueError struct{ *ComponentError }

func NewTaskQueueError(action, message string, err error) *TaskQueueError {
	return &TaskQueueError{newComponentError("tasklist", action, message, err)}
}

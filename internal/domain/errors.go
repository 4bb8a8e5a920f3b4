package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidInput      = errors.New("invalid input")
	ErrSync              = errors.New("sync failed")
	ErrNotConfigured     = errors.New("remote store not configured")
)

// NotFoundError reports a reference to a missing entity.
type NotFoundError struct {
	Kind EntityKind
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// TransitionError reports a (status, action) pair outside the lifecycle table.
type TransitionError struct {
	Kind   EntityKind
	From   Status
	Action string
}

func (e TransitionError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("invalid status transition: %s from %s", e.Action, e.From)
	}
	return fmt.Sprintf("invalid %s status transition: %s from %s", e.Kind, e.Action, e.From)
}

func (e TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// SyncError wraps a remote-store failure. It is recoverable: local editing keeps working.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	if e.Err == nil {
		return "sync " + e.Op + " failed"
	}
	return fmt.Sprintf("sync %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

func (e *SyncError) Is(target error) bool {
	return target == ErrSync
}

// ConfigurationError disables sync for the session.
type ConfigurationError struct {
	Reason string
}

func (e ConfigurationError) Error() string {
	return "remote store not configured: " + e.Reason
}

func (e ConfigurationError) Is(target error) bool {
	return target == ErrNotConfigured
}

// InvalidInput builds an ErrInvalidInput-wrapping error.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrConflict           = errors.New("entity already bound elsewhere")
	ErrUnsupportedContent = errors.New("unsupported content shape")
	ErrTransport          = errors.New("transport failure")
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidExecContext = errors.New("invalid execution context")
)

// ConflictError reports that a gateway instance is already bound to another account.
type ConflictError struct {
	InstanceID int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("instance %d is already bound to another account", e.InstanceID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

type TransportKind string

const (
	TransportUnreachable TransportKind = "unreachable"
	TransportRejected    TransportKind = "rejected"
	TransportTimedOut    TransportKind = "timed_out"
)

// TransportError wraps a failed outbound call to either platform.
type TransportError struct {
	Kind       TransportKind
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Unreachable is true for connection failures and timeouts alike.
func (e *TransportError) Unreachable() bool {
	return e.Kind == TransportUnreachable || e.Kind == TransportTimedOut
}

// ValidationError reports malformed command arguments or input fields.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// TransportKindOf returns the kind of the first TransportError in err's chain.
func TransportKindOf(err error) (TransportKind, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}

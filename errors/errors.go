// Package errors defines the failure taxonomy shared by the bridge core.
// Services never panic across their public boundary; every operation
// returns a value or one of these typed failures, which callers fold into
// redirects, JSON envelopes, or skip-and-log behavior.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the shared API key was missing or wrong. It is
	// returned before any token inspection happens.
	ErrUnauthorized = errors.New("unauthorized: missing or incorrect api key")

	// ErrInvalidToken covers an expired token, a token that no longer
	// matches the stored current value, or a subject that does not exist.
	ErrInvalidToken = errors.New("invalid token")

	// ErrNotFound is the repository-level miss for any entity.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials covers a failed local sign-in: unknown email,
	// wrong password, or a locked account. Callers present all three the
	// same way.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports a malformed or missing required field in a payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}

// NewValidation builds a ValidationError.
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// RemoteKind classifies a failed remote call.
type RemoteKind string

const (
	// RemoteTransport is a connection error, timeout, or non-2xx status.
	RemoteTransport RemoteKind = "transport"
	// RemoteFault is a structured error envelope in a 2xx response body.
	RemoteFault RemoteKind = "fault"
)

// RemoteError is a failed call to an external system.
type RemoteError struct {
	Kind     RemoteKind
	Function string
	Message  string
	Err      error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote %s error in %s: %s: %v", e.Kind, e.Function, e.Message, e.Err)
	}
	return fmt.Sprintf("remote %s error in %s: %s", e.Kind, e.Function, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// NewTransport wraps a network-level failure for the named remote function.
func NewTransport(function string, err error) *RemoteError {
	return &RemoteError{Kind: RemoteTransport, Function: function, Message: "transport failure", Err: err}
}

// NewFault wraps a structured fault envelope returned by the remote API.
func NewFault(function, message string) *RemoteError {
	return &RemoteError{Kind: RemoteFault, Function: function, Message: message}
}

// IsTransport reports whether err is a transport-class remote failure.
func IsTransport(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Kind == RemoteTransport
}

// IsFault reports whether err is a fault-class remote failure.
func IsFault(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Kind == RemoteFault
}

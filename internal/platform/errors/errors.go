// Package errors provides the typed error classification shared by every
// job management subsystem component, and its mapping to HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for FSM and API handling purposes.
type Kind string

const (
	// KindInvalidTransition: caller attempted a state change the FSM forbids.
	KindInvalidTransition Kind = "invalid_transition"
	// KindNotFound: job/schedule not owned by the caller, or does not exist.
	KindNotFound Kind = "not_found"
	// KindStoreUnavailable: State Store or Ephemeral Store I/O failure.
	KindStoreUnavailable Kind = "store_unavailable"
	// KindExecTransient: external execution hiccup, retryable via the FSM.
	KindExecTransient Kind = "exec_transient"
	// KindExecPermanent: bad input or unrecoverable external condition.
	KindExecPermanent Kind = "exec_permanent"
	// KindTimeout: deadline exceeded; treated as KindExecTransient.
	KindTimeout Kind = "timeout"
	// KindConflict: an optimistic concurrency check found the row already
	// changed underneath the caller.
	KindConflict Kind = "conflict"
)

// Error is a classified error carrying a Kind alongside its message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New constructs a classified Error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies an existing error, preserving it as the cause.
func Wrap(kind Kind, err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, returning ok=false if err is not (or
// does not wrap) a classified Error.
func KindOf(err error) (Kind, bool) {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind, true
	}
	return "", false
}

// StatusCode maps a classified error to the HTTP status the API layer should
// return. Errors that are not classified map to 500.
func StatusCode(err error) int {
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case KindInvalidTransition:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case KindExecTransient, KindTimeout:
		return http.StatusInternalServerError
	case KindExecPermanent:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Treated as KindExecTransient per the error handling design: deadline
// exceeded is retryable, not a permanent failure classification.
func ClassifyTimeout(err error) *Error {
	return Wrap(KindExecTransient, err, "deadline exceeded")
}

// Common sentinel errors used where a Kind would be redundant with the
// calling package's own context.
var (
	ErrAlreadyTerminal = errors.New("job already in a terminal state")
	ErrRetriesExhausted = errors.New("retry_count >= max_retries")
)

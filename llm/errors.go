package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthFailure is returned when the credential is missing or the
	// backend rejects it. It is never retried.
	ErrAuthFailure = errors.New("authentication failed")

	// ErrNetworkFailure covers transport errors and non-success responses
	// other than authentication rejections.
	ErrNetworkFailure = errors.New("backend request failed")

	// ErrExhaustedRetries is matched by *ExhaustedRetriesError.
	ErrExhaustedRetries = errors.New("retries exhausted")
)

// BackendError is a failed call to a provider.
type BackendError struct {
	Provider string
	// StatusCode is 0 for transport failures.
	StatusCode int
	// Message is the backend's error.message, surfaced verbatim.
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
	if e.Message == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Unwrap exposes the failure class alongside the underlying error.
func (e *BackendError) Unwrap() []error {
	errs := []error{e.class()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *BackendError) class() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrAuthFailure
	}
	return ErrNetworkFailure
}

// ExhaustedRetriesError is returned after the final attempt fails.
type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() []error {
	return []error{ErrExhaustedRetries, e.Last}
}

// Retryable reports whether another attempt could succeed after err.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrAuthFailure):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}

// newBackendError wraps a provider failure. Context errors pass through
// unchanged so cancellation stays recognizable to callers.
func newBackendError(provider string, status int, message string, err error) error {
	if status == 0 && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return err
	}
	return &BackendError{Provider: provider, StatusCode: status, Message: message, Err: err}
}

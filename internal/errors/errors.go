// Package errors holds the error values shared by the record store, the
// curation workflow and the HTTP layer. The HTTP layer maps them to status
// codes: ErrNotFound to 404, invalid input to 400, ErrAlreadyResolved to 409.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrAlreadyResolved   = errors.New("unanswered query already resolved")
	ErrUnknownUploadKind = errors.New("unknown upload kind")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidInput also matches a ValidationError, which unwraps to
// ErrInvalidInput.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// ValidationError names the request field that was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// FetchError is a failed page download. StatusCode is zero when no
// response arrived.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func NewFetchError(url string, statusCode int, err error) *FetchError {
	return &FetchError{URL: url, StatusCode: statusCode, Err: err}
}

func (e *FetchError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Temporary reports whether the server asked to be retried later: a 429
// or any 5xx. Without a status it returns false; the transport error
// decides.
func (e *FetchError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

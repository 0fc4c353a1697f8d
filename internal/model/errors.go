package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for API failure classes.
// Use errors.Is() to check against these.
var (
	ErrNetwork        = errors.New("network error")
	ErrTimeout        = fmt.Errorf("%w: request timed out", ErrNetwork)
	ErrServer         = errors.New("server error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid request")
)

// Engine errors returned by the session, checkout and commit operations.
var (
	ErrCommitInProgress = errors.New("an order is already being placed")
	ErrWrongStep        = errors.New("operation not allowed in the current checkout step")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrNotRestored      = errors.New("session has not been restored")
	ErrNoCheckout       = errors.New("no checkout in progress")
)

// ErrorKind classifies remote call failures.
type ErrorKind string

const (
	KindNetwork        ErrorKind = "NETWORK"
	KindServer         ErrorKind = "SERVER"
	KindUnauthorized   ErrorKind = "UNAUTHORIZED"
	KindInvalidRequest ErrorKind = "INVALID_REQUEST"
)

// APIError represents a failed call to the remote service.
// Implements error interface and supports unwrapping.
type APIError struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"` // 0 for transport failures
	IsTimeout  bool      `json:"-"`
	Err        error     `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates an error for DNS/connection level failures.
func NewNetworkError(message string, err error) *APIError {
	return &APIError{
		Kind:    KindNetwork,
		Message: message,
		Err:     fmt.Errorf("%w: %v", ErrNetwork, err),
	}
}

// NewTimeoutError creates a network error for a call that exceeded its deadline.
// The cancellation cause is intentionally not wrapped.
func NewTimeoutError() *APIError {
	return &APIError{
		Kind:      KindNetwork,
		Message:   "Request timeout. Please check your connection.",
		IsTimeout: true,
		Err:       ErrTimeout,
	}
}

// NewServerError creates an error for 5xx responses and unreadable bodies.
func NewServerError(message string, status int) *APIError {
	return &APIError{
		Kind:       KindServer,
		Message:    message,
		StatusCode: status,
		Err:        ErrServer,
	}
}

// NewUnauthorizedError creates an error for 401/403 responses.
// Callers should treat it as a signal to drop the local session.
func NewUnauthorizedError(message string, status int) *APIError {
	return &APIError{
		Kind:       KindUnauthorized,
		Message:    message,
		StatusCode: status,
		Err:        ErrUnauthorized,
	}
}

// NewInvalidRequestError creates an error for 400 and other client-side statuses.
func NewInvalidRequestError(message string, status int) *APIError {
	return &APIError{
		Kind:       KindInvalidRequest,
		Message:    message,
		StatusCode: status,
		Err:        ErrInvalidRequest,
	}
}

// IsUnauthorized reports whether err carries an Unauthorized API failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// ValidationErrors maps form field names to user-facing messages.
// An empty map means the form is valid.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + v[f]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// OrNil returns nil for an empty map so callers can return it as an error.
func (v ValidationErrors) OrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// PersistenceError reports a local storage failure for one key.
type PersistenceError struct {
	Op  string // "load", "save", "remove"
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "without wrapped error",
			err: &APIError{
				Kind:    KindServer,
				Message: "something went wrong",
			},
			want: "SERVER: something went wrong",
		},
		{
			name: "with wrapped error",
			err: &APIError{
				Kind:    KindNetwork,
				Message: "something went wrong",
				Err:     errors.New("underlying cause"),
			},
			want: "NETWORK: something went wrong (underlying cause)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewTimeoutError(t *testing.T) {
	err := NewTimeoutError()

	if err.Kind != KindNetwork {
		t.Errorf("Kind = %q, want %q", err.Kind, KindNetwork)
	}
	if !err.IsTimeout {
		t.Error("IsTimeout should be true")
	}
	if !errors.Is(err, ErrTimeout) {
		t.Error("error should wrap ErrTimeout sentinel")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("timeout should also classify as ErrNetwork")
	}
}

func TestNewNetworkError(t *testing.T) {
	err := NewNetworkError("Network error", errors.New("connection refused"))

	if err.Kind != KindNetwork {
		t.Errorf("Kind = %q, want %q", err.Kind, KindNetwork)
	}
	if err.IsTimeout {
		t.Error("IsTimeout should be false for plain network errors")
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("plain network error should not match ErrTimeout")
	}
	if err.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", err.StatusCode)
	}
}

// TestErrorsIs verifies that errors.Is() works with all sentinel errors.
func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		sentinel error
	}{
		{"Network", NewNetworkError("x", nil), ErrNetwork},
		{"Timeout", NewTimeoutError(), ErrTimeout},
		{"Server", NewServerError("x", 503), ErrServer},
		{"Unauthorized", NewUnauthorizedError("x", 401), ErrUnauthorized},
		{"InvalidRequest", NewInvalidRequestError("x", 400), ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%T, %v) = false, want true", tt.err, tt.sentinel)
			}
		})
	}
}

func TestIsUnauthorized(t *testing.T) {
	wrapped := fmt.Errorf("updating profile: %w", NewUnauthorizedError("Session expired", 401))
	if !IsUnauthorized(wrapped) {
		t.Error("IsUnauthorized should see through wrapping")
	}
	if IsUnauthorized(NewServerError("x", 500)) {
		t.Error("server error should not be unauthorized")
	}
}

func TestAPIErrorAs(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewServerError("down", 502))
	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("errors.As should find *APIError in wrapped error")
	}
	if apiErr.StatusCode != 502 {
		t.Errorf("StatusCode = %d, want 502", apiErr.StatusCode)
	}
}

func TestValidationErrors(t *testing.T) {
	var empty ValidationErrors
	if empty.OrNil() != nil {
		t.Error("empty ValidationErrors should convert to nil error")
	}

	v := ValidationErrors{"phone": "Invalid phone number", "email": "Email is required"}
	err := v.OrNil()
	if err == nil {
		t.Fatal("non-empty ValidationErrors should be an error")
	}

	want := "validation failed: email: Email is required; phone: Invalid phone number"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var got ValidationErrors
	if !errors.As(fmt.Errorf("step: %w", err), &got) {
		t.Fatal("errors.As should find ValidationErrors")
	}
	if got["phone"] != "Invalid phone number" {
		t.Errorf("fields[phone] = %q", got["phone"])
	}
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("disk full")
	err := &PersistenceError{Op: "save", Key: "orderData", Err: cause}

	if err.Error() != `storage save "orderData": disk full` {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("PersistenceError should unwrap to its cause")
	}
}

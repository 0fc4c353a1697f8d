package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"shop-session/internal/cart"
	"shop-session/internal/model"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failed (validation, remote service, empty cart, etc.)
	ExitCommandError = 2 // Command error (bad flags, unreadable config)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set once the formatter has printed the error.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// asExitError marks err as already printed, keeping an existing exit code.
func asExitError(err error, code int) *ExitError {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		exitErr.Reported = true
		return exitErr
	}
	return &ExitError{Code: code, Message: "command failed", Err: err, Reported: true}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E_VALIDATION", "E_NETWORK", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
// Text output uses the value's String method when it has one.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if fields, ok := details.(model.ValidationErrors); ok {
		for _, name := range sortedKeys(fields) {
			fmt.Fprintf(f.Writer, "  %s: %s\n", name, fields[name])
		}
	} else if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// describeError maps an engine error to a CLI error code, message and details.
func describeError(err error) (string, string, any) {
	var (
		verrs   model.ValidationErrors
		apiErr  *model.APIError
		perr    *model.PersistenceError
		exitErr *ExitError
	)

	switch {
	case errors.As(err, &verrs):
		return "E_VALIDATION", "please correct the highlighted fields", verrs
	case errors.As(err, &apiErr):
		code := "E_" + string(apiErr.Kind)
		if apiErr.IsTimeout {
			code = "E_TIMEOUT"
		}
		return code, apiErr.Message, nil
	case errors.Is(err, model.ErrNotAuthenticated):
		return "E_AUTH", "not logged in, run 'shopctl login' first", nil
	case errors.Is(err, model.ErrEmptyCart):
		return "E_EMPTY_CART", "your cart is empty", nil
	case errors.Is(err, model.ErrCommitInProgress):
		return "E_BUSY", err.Error(), nil
	case errors.Is(err, model.ErrWrongStep), errors.Is(err, model.ErrNoCheckout):
		return "E_CHECKOUT", err.Error(), nil
	case errors.Is(err, cart.ErrInvalidProduct):
		return "E_PRODUCT", err.Error(), nil
	case errors.As(err, &perr):
		return "E_STORAGE", err.Error(), nil
	case errors.As(err, &exitErr):
		return "E_USAGE", exitErr.Error(), nil
	}
	return "E_INTERNAL", err.Error(), nil
}

func exitCodeFor(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"shop-session/internal/cart"
	"shop-session/internal/model"
)

// badRequest is a malformed request that never reached the engine.
type badRequest string

func (e badRequest) Error() string { return string(e) }

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// errorStatus maps an engine or API error to an HTTP status and error body.
// ok is false for errors with no known mapping.
func errorStatus(err error) (int, errorBody, bool) {
	var (
		verrs  model.ValidationErrors
		apiErr *model.APIError
		perr   *model.PersistenceError
		bad    badRequest
	)

	switch {
	case errors.As(err, &verrs):
		return http.StatusUnprocessableEntity, errorBody{
			Code:    "validation_failed",
			Message: "Please correct the highlighted fields",
			Fields:  verrs,
		}, true
	case errors.As(err, &bad):
		return http.StatusBadRequest, errorBody{Code: "bad_request", Message: bad.Error()}, true
	case errors.Is(err, model.ErrCommitInProgress):
		return http.StatusConflict, errorBody{Code: "commit_in_progress", Message: "An order is already being placed"}, true
	case errors.Is(err, model.ErrWrongStep):
		return http.StatusConflict, errorBody{Code: "wrong_step", Message: err.Error()}, true
	case errors.Is(err, model.ErrEmptyCart):
		return http.StatusConflict, errorBody{Code: "cart_empty", Message: "Your cart is empty"}, true
	case errors.Is(err, model.ErrNoCheckout):
		return http.StatusNotFound, errorBody{Code: "no_checkout", Message: "No checkout in progress"}, true
	case errors.Is(err, model.ErrNotAuthenticated):
		return http.StatusUnauthorized, errorBody{Code: "not_authenticated", Message: "Please login first"}, true
	case errors.Is(err, model.ErrNotRestored):
		return http.StatusServiceUnavailable, errorBody{Code: "not_restored", Message: "Session is still loading"}, true
	case errors.Is(err, cart.ErrInvalidProduct):
		return http.StatusBadRequest, errorBody{Code: "invalid_product", Message: err.Error()}, true
	case errors.As(err, &apiErr):
		return apiStatus(apiErr), errorBody{Code: apiCode(apiErr), Message: apiErr.Message}, true
	case errors.As(err, &perr):
		return http.StatusInternalServerError, errorBody{Code: "persistence_error", Message: "Failed to save session data"}, true
	}
	return http.StatusInternalServerError, errorBody{Code: "internal_error", Message: "an internal error occurred"}, false
}

// apiStatus converts a remote failure into the status this server answers with.
func apiStatus(e *model.APIError) int {
	switch e.Kind {
	case model.KindNetwork:
		if e.IsTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusServiceUnavailable
	case model.KindServer:
		return http.StatusBadGateway
	case model.KindUnauthorized:
		return http.StatusUnauthorized
	case model.KindInvalidRequest:
		if e.StatusCode == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func apiCode(e *model.APIError) string {
	if e.IsTimeout {
		return "timeout"
	}
	switch e.Kind {
	case model.KindNetwork:
		return "network_error"
	case model.KindServer:
		return "server_error"
	case model.KindUnauthorized:
		return "unauthorized"
	default:
		return "invalid_request"
	}
}

// writeError sends an error response in the standard envelope.
// Unmapped errors are logged and answered with a generic 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body, ok := errorStatus(err)
	if !ok || status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	h.writeJSON(w, status, errorResponse{Error: body})
}

// Package handler exposes the session engine over local HTTP: a REST API on
// a chi router and an MCP endpoint for agent clients.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"shop-session/internal/middleware"
	"shop-session/internal/negotiation"
	"shop-session/internal/session"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	engine *session.Engine
	logger *slog.Logger
}

// New creates a new Handler driving the given engine.
func New(engine *session.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

// Router builds the full HTTP surface with the middleware chain
// recovery → request id → logging → client-agent gate.
// An empty minClientVersion disables the version gate.
func (h *Handler) Router(minClientVersion string) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recovery(h.logger),
		chimw.RequestID,
		middleware.Logging(h.logger),
		negotiation.Middleware(minClientVersion, h.logger),
	)
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers all HTTP routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Get("/healthz", h.handleHealth)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.handleGetSession)
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)
	})

	r.Get("/products", h.handleListProducts)
	r.Get("/products/{id}", h.handleGetProduct)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.handleGetCart)
		r.Delete("/", h.handleClearCart)
		r.Post("/items", h.handleAddItem)
		r.Put("/items/{id}", h.handleSetQuantity)
		r.Delete("/items/{id}", h.handleRemoveItem)
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Post("/", h.handleBeginCheckout)
		r.Get("/", h.handleGetCheckout)
		r.Put("/shipping", h.handleSetShipping)
		r.Put("/payment", h.handleSetPayment)
		r.Post("/next", h.handleNext)
		r.Post("/back", h.handleBack)
		r.Post("/confirm", h.handleConfirm)
	})

	r.Get("/order", h.handleGetOrder)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	r.Handle("/mcp", h.NewMCPHandler())
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return badRequest("invalid JSON body")
	}
	return nil
}

package handler

import (
	"log/slog"
	"net/http"

	"shop-session/internal/model"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          *model.User `json:"user,omitempty"`
}

// handleGetSession reports the current identity.
// GET /session
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	u := h.engine.User()
	h.writeJSON(w, http.StatusOK, sessionResponse{Authenticated: u != nil, User: u})
}

// handleLogin authenticates against the remote service.
// POST /session/login
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	u, err := h.engine.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "logged in", slog.Int("user_id", u.ID))
	h.writeJSON(w, http.StatusOK, sessionResponse{Authenticated: true, User: u})
}

// handleLogout clears every session slot.
// POST /session/logout
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Logout(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

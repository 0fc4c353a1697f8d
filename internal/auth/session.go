// Package auth keeps the authenticated user and access token for one
// session, mirrored into the token and user storage slots.
package auth

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"shop-session/internal/apiclient"
	"shop-session/internal/model"
	"shop-session/internal/storage"
)

// Session holds the current credentials. The zero state is logged out.
type Session struct {
	api    apiclient.API
	kv     storage.KV
	logger *slog.Logger

	mu    sync.RWMutex
	user  *model.User
	token string
}

// NewSession creates a logged-out session.
func NewSession(api apiclient.API, kv storage.KV, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{api: api, kv: kv, logger: logger}
}

// Restore loads persisted credentials. Both the token and the user must be
// present and readable, otherwise the session stays logged out.
func (s *Session) Restore(ctx context.Context) bool {
	token, okToken := storage.Load[string](ctx, s.kv, storage.KeyToken, s.logger)
	user, okUser := storage.Load[model.User](ctx, s.kv, storage.KeyUser, s.logger)
	if !okToken || !okUser || token == "" {
		return false
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.mu.Unlock()

	s.logger.Debug("session restored", slog.Int("user_id", user.ID))
	return true
}

// Login authenticates with the remote service and stores the credentials.
// Blank input is rejected before any call is made.
func (s *Session) Login(ctx context.Context, username, password string) (*model.User, error) {
	errs := model.ValidationErrors{}
	if strings.TrimSpace(username) == "" {
		errs["username"] = "Username is required"
	}
	if password == "" {
		errs["password"] = "Password is required"
	}
	if err := errs.OrNil(); err != nil {
		return nil, err
	}

	creds, err := s.api.Login(ctx, strings.TrimSpace(username), password)
	if err != nil {
		return nil, err
	}

	user := creds.User
	s.mu.Lock()
	s.token = creds.AccessToken
	s.user = &user
	s.mu.Unlock()

	// Storage failures leave a working in-memory session.
	if err := storage.Save(ctx, s.kv, storage.KeyToken, creds.AccessToken); err != nil {
		s.logger.Warn("token not persisted", slog.String("error", err.Error()))
	}
	if err := storage.Save(ctx, s.kv, storage.KeyUser, user); err != nil {
		s.logger.Warn("user not persisted", slog.String("error", err.Error()))
	}

	s.logger.Info("logged in", slog.Int("user_id", user.ID), slog.String("username", user.Username))
	out := user
	return &out, nil
}

// Logout drops the credentials from memory and storage.
func (s *Session) Logout(ctx context.Context) error {
	s.Forget()
	return storage.Remove(ctx, s.kv, storage.KeyToken, storage.KeyUser)
}

// Invalidate is Logout triggered by the remote service rejecting the token.
func (s *Session) Invalidate(ctx context.Context) {
	s.mu.RLock()
	var id int
	if s.user != nil {
		id = s.user.ID
	}
	s.mu.RUnlock()

	s.logger.Warn("session invalidated by remote service", slog.Int("user_id", id))
	if err := s.Logout(ctx); err != nil {
		s.logger.Warn("credentials not removed from storage", slog.String("error", err.Error()))
	}
}

// Forget drops the in-memory credentials without touching storage.
func (s *Session) Forget() {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.mu.Unlock()
}

// User returns a copy of the current user, or nil when logged out.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Token returns the current access token, or "" when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether credentials are held.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.token != ""
}

// SetUser replaces the held profile and persists it.
// The in-memory profile is updated even when persisting fails.
func (s *Session) SetUser(ctx context.Context, u model.User) error {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return model.ErrNotAuthenticated
	}
	s.user = &u
	s.mu.Unlock()

	return storage.Save(ctx, s.kv, storage.KeyUser, u)
}

// Package storage is the session persistence layer: a small key/value contract
// with typed JSON helpers on top. Backends are in-memory, SQLite and Redis.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"shop-session/internal/model"
)

// Logical slots written by the engine. All four are cleared together on logout.
const (
	KeyToken = "token"
	KeyUser  = "user"
	KeyCart  = "cart"
	KeyOrder = "orderData"
)

// SessionKeys lists every slot owned by a session.
var SessionKeys = []string{KeyToken, KeyUser, KeyCart, KeyOrder}

// KV is a durable key/value store for serialized session state.
// Implementations must be safe for concurrent use.
type KV interface {
	// Get returns the stored bytes and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// Close releases backend resources.
	Close() error
}

// Load reads key and decodes it as T.
// Absent, unreadable, or malformed values all come back as (zero, false);
// failures are logged at WARN and never propagated.
func Load[T any](ctx context.Context, kv KV, key string, logger *slog.Logger) (T, bool) {
	var zero T
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	data, ok, err := kv.Get(ctx, key)
	if err != nil {
		logger.Warn("storage read failed, treating as absent",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return zero, false
	}
	if !ok {
		return zero, false
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		logger.Warn("discarding corrupt stored value",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return zero, false
	}
	return v, true
}

// Save encodes v as JSON and writes it under key.
// Failures are returned as *model.PersistenceError.
func Save(ctx context.Context, kv KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &model.PersistenceError{Op: "save", Key: key, Err: fmt.Errorf("encoding: %w", err)}
	}
	if err := kv.Set(ctx, key, data); err != nil {
		return &model.PersistenceError{Op: "save", Key: key, Err: err}
	}
	return nil
}

// Remove deletes keys, reporting failure as *model.PersistenceError.
func Remove(ctx context.Context, kv KV, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := kv.Delete(ctx, keys...); err != nil {
		key := keys[0]
		if len(keys) > 1 {
			key = fmt.Sprintf("%v", keys)
		}
		return &model.PersistenceError{Op: "remove", Key: key, Err: err}
	}
	return nil
}

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Backend names accepted by OpenBackend.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend   string
	Path      string // sqlite file
	RedisAddr string
	Namespace string
}

const redisPingTimeout = 2 * time.Second

// OpenBackend opens the configured backend. When it cannot be opened the
// session degrades to in-memory storage instead of failing, and the returned
// bool reports whether state will be durable.
func OpenBackend(ctx context.Context, opts Options, logger *slog.Logger) (KV, bool) {
	kv, err := open(ctx, opts)
	if err != nil {
		logger.Warn("storage unavailable, session state will not survive restarts",
			slog.String("backend", opts.Backend),
			slog.String("error", err.Error()),
		)
		return NewMemory(), false
	}
	logger.Debug("storage opened", slog.String("backend", opts.Backend))
	return kv, opts.Backend != BackendMemory
}

func open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendSQLite, "":
		return OpenSQLite(opts.Path)
	case BackendRedis:
		r := NewRedis(opts.RedisAddr, opts.Namespace)
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := r.Ping(pingCtx); err != nil {
			r.Close()
			return nil, fmt.Errorf("pinging redis at %s: %w", opts.RedisAddr, err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

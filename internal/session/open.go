package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"shop-session/internal/apiclient"
	"shop-session/internal/config"
	"shop-session/internal/storage"
	"shop-session/internal/transport"
)

// Open builds a restored engine from configuration. The returned closer
// releases the storage backend.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Engine, io.Closer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var rt http.RoundTripper
	if cfg.API.ChromeTLS {
		rt = transport.NewChromeTransport(cfg.API.Timeout)
	}

	api, err := apiclient.New(apiclient.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		TokenTTL:  cfg.API.TokenTTLMinutes,
		Transport: rt,
		Logger:    logger.With(slog.String("component", "apiclient")),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating api client: %w", err)
	}

	kv, durable := storage.OpenBackend(ctx, cfg.StorageOptions(), logger)
	logger.Info("session storage ready",
		slog.String("backend", cfg.Storage.Backend),
		slog.Bool("durable", durable),
	)

	e := New(Config{API: api, KV: kv, Logger: logger})
	e.Restore(ctx)
	return e, kv, nil
}

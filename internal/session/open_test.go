package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-session/internal/config"
	"shop-session/internal/model"
	"shop-session/internal/storage"
)

func testConfig(backend, path string) *config.Config {
	return &config.Config{
		API: config.APIConfig{BaseURL: "http://127.0.0.1:1", TokenTTLMinutes: 60},
		Storage: config.StorageConfig{
			Backend:   backend,
			Path:      path,
			Namespace: "shop",
		},
	}
}

func TestOpen_RestoresPersistedSession(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	db, err := storage.OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, storage.Save(ctx, db, storage.KeyToken, "tok-1"))
	require.NoError(t, storage.Save(ctx, db, storage.KeyUser, model.User{ID: 3, Username: "emilys"}))
	require.NoError(t, storage.Save(ctx, db, storage.KeyCart, []model.CartLine{
		{Product: model.Product{ID: 2, Title: "Lamp", Price: 5}, Quantity: 2},
	}))
	require.NoError(t, db.Close())

	e, closer, err := Open(ctx, testConfig(storage.BackendSQLite, path), nil)
	require.NoError(t, err)
	defer closer.Close()

	assert.True(t, e.Authenticated())
	assert.Equal(t, 2, e.Cart().Totals().TotalItems)
}

func TestOpen_InvalidBaseURL(t *testing.T) {
	cfg := testConfig(storage.BackendMemory, "")
	cfg.API.BaseURL = "not a url"

	_, _, err := Open(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestOpen_ChromeTransport(t *testing.T) {
	cfg := testConfig(storage.BackendMemory, "")
	cfg.API.ChromeTLS = true

	e, closer, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer closer.Close()

	// Port 1 refuses connections, so the call surfaces as a network error.
	_, err = e.Products(context.Background(), model.ProductQuery{})
	assert.ErrorIs(t, err, model.ErrNetwork)
}

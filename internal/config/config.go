// Package config handles loading and validation of service configuration.
// Supports both development (env vars or a config file) and production
// (Secret Manager for the shop credentials) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"shop-session/internal/storage"
)

const (
	defaultPort        = "8080"
	defaultEnvironment = "development"
	defaultLogLevel    = "info"
	defaultBaseURL     = "https://dummyjson.com"
	defaultTimeout     = 10 * time.Second
	defaultTokenTTL    = 60
	defaultStoragePath = "shop-session.db"
	defaultNamespace   = "shop"
	defaultSecretName  = "shop-credentials"
)

// Config holds all service configuration.
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject        string
	CredentialsSecret string

	API     APIConfig
	Storage StorageConfig

	// MinClientVersion rejects Client-Agent versions below it. Empty disables the gate.
	MinClientVersion string

	// Credentials are optional demo/login credentials used by the CLI.
	Credentials Credentials
}

// APIConfig configures the remote catalog/user service client.
type APIConfig struct {
	BaseURL         string        `json:"base_url" yaml:"base_url"`
	Timeout         time.Duration `json:"-" yaml:"-"`
	TokenTTLMinutes int           `json:"token_ttl_minutes" yaml:"token_ttl_minutes"`
	ChromeTLS       bool          `json:"chrome_tls" yaml:"chrome_tls"`
}

// StorageConfig selects the session persistence backend.
type StorageConfig struct {
	Backend   string `json:"backend" yaml:"backend"`
	Path      string `json:"path" yaml:"path"`
	RedisAddr string `json:"redis_addr" yaml:"redis_addr"`
	Namespace string `json:"namespace" yaml:"namespace"`
}

// Credentials for the remote service. In production these come from Secret Manager.
type Credentials struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
func Load(ctx context.Context) (*Config, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return LoadFile(configPath)
	}

	timeout, err := envDuration("API_TIMEOUT", defaultTimeout)
	if err != nil {
		return nil, err
	}
	ttl, err := envInt("API_TOKEN_TTL_MINUTES", defaultTokenTTL)
	if err != nil {
		return nil, err
	}
	chromeTLS, err := envBool("API_CHROME_TLS", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:              envOrDefault("PORT", defaultPort),
		Environment:       envOrDefault("ENVIRONMENT", defaultEnvironment),
		LogLevel:          envOrDefault("LOG_LEVEL", defaultLogLevel),
		GCPProject:        os.Getenv("GCP_PROJECT"),
		CredentialsSecret: envOrDefault("CREDENTIALS_SECRET", defaultSecretName),
		API: APIConfig{
			BaseURL:         envOrDefault("API_BASE_URL", defaultBaseURL),
			Timeout:         timeout,
			TokenTTLMinutes: ttl,
			ChromeTLS:       chromeTLS,
		},
		Storage: StorageConfig{
			Backend:   envOrDefault("STORAGE_BACKEND", storage.BackendSQLite),
			Path:      envOrDefault("STORAGE_PATH", defaultStoragePath),
			RedisAddr: os.Getenv("REDIS_ADDR"),
			Namespace: envOrDefault("STORAGE_NAMESPACE", defaultNamespace),
		},
		MinClientVersion: os.Getenv("MIN_CLIENT_VERSION"),
	}

	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		if err := cfg.loadFromSecretManager(ctx); err != nil {
			return nil, fmt.Errorf("loading credentials: %w", err)
		}
	} else {
		cfg.Credentials = Credentials{
			Username: os.Getenv("SHOP_USERNAME"),
			Password: os.Getenv("SHOP_PASSWORD"),
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fileConfig mirrors the config file layout. Timeout is a Go duration string.
type fileConfig struct {
	Port             string        `json:"port" yaml:"port"`
	Environment      string        `json:"environment" yaml:"environment"`
	LogLevel         string        `json:"log_level" yaml:"log_level"`
	API              APIConfig     `json:"api" yaml:"api"`
	Timeout          string        `json:"api_timeout" yaml:"api_timeout"`
	Storage          StorageConfig `json:"storage" yaml:"storage"`
	MinClientVersion string        `json:"min_client_version" yaml:"min_client_version"`
	Credentials      Credentials   `json:"credentials" yaml:"credentials"`
}

// LoadFile reads all configuration from a JSON or YAML file.
// The format is chosen by extension: .yaml/.yml are YAML, anything else JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	timeout := defaultTimeout
	if fc.Timeout != "" {
		if timeout, err = time.ParseDuration(fc.Timeout); err != nil {
			return nil, fmt.Errorf("invalid api_timeout: %w", err)
		}
	}

	cfg := &Config{
		Port:        withDefault(fc.Port, defaultPort),
		Environment: withDefault(fc.Environment, defaultEnvironment),
		LogLevel:    withDefault(fc.LogLevel, defaultLogLevel),
		API: APIConfig{
			BaseURL:         withDefault(fc.API.BaseURL, defaultBaseURL),
			Timeout:         timeout,
			TokenTTLMinutes: fc.API.TokenTTLMinutes,
			ChromeTLS:       fc.API.ChromeTLS,
		},
		Storage: StorageConfig{
			Backend:   withDefault(fc.Storage.Backend, storage.BackendSQLite),
			Path:      withDefault(fc.Storage.Path, defaultStoragePath),
			RedisAddr: fc.Storage.RedisAddr,
			Namespace: withDefault(fc.Storage.Namespace, defaultNamespace),
		},
		MinClientVersion: fc.MinClientVersion,
		Credentials:      fc.Credentials,
	}
	if cfg.API.TokenTTLMinutes == 0 {
		cfg.API.TokenTTLMinutes = defaultTokenTTL
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromSecretManager fetches the shop credentials from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{secret}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.CredentialsSecret)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Credentials); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	return nil
}

// validate checks that all configuration values are usable.
func (c *Config) validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api base url %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive, got %s", c.API.Timeout)
	}
	if c.API.TokenTTLMinutes < 0 {
		return fmt.Errorf("token ttl must not be negative, got %d", c.API.TokenTTLMinutes)
	}

	switch c.Storage.Backend {
	case storage.BackendSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for sqlite backend")
		}
	case storage.BackendRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for redis backend")
		}
	case storage.BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q (sqlite, redis or memory)", c.Storage.Backend)
	}

	if c.MinClientVersion != "" && !semver.IsValid(canonicalVersion(c.MinClientVersion)) {
		return fmt.Errorf("invalid MIN_CLIENT_VERSION %q", c.MinClientVersion)
	}
	return nil
}

// StorageOptions converts the storage settings for storage.OpenBackend.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:   c.Storage.Backend,
		Path:      c.Storage.Path,
		RedisAddr: c.Storage.RedisAddr,
		Namespace: c.Storage.Namespace,
	}
}

// ParseLogLevel maps a LOG_LEVEL value to a slog level. Unknown values are info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// canonicalVersion adds the "v" prefix semver expects.
func canonicalVersion(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// Package apiclient talks to the remote catalog/user service.
// Every call is bounded by a fixed timeout and every failure is classified
// into a *model.APIError. Nothing is retried automatically; callers decide.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shop-session/internal/model"
)

// =============================================================================
// REMOTE SERVICE CONTRACT
// =============================================================================
//
//   POST /auth/login          {username, password, expiresInMins} → user + accessToken
//   GET  /products            ?limit&skip                         → product page
//   GET  /products/search     ?q&limit&skip                       → product page
//   GET  /products/{id}                                           → product
//   PUT  /users/{id}          Authorization: Bearer <token>       → updated user
//
// Status classification (see classify):
//
//   400, other 4xx → InvalidRequest
//   401, 403       → Unauthorized (caller should drop the local session)
//   >= 500         → Server
//   transport      → Network
//   deadline       → Network + IsTimeout
//
// =============================================================================

const (
	// DefaultTimeout bounds each call end to end, including reading the body.
	DefaultTimeout = 10 * time.Second

	// DefaultTokenTTL is sent as expiresInMins on login.
	DefaultTokenTTL = 60

	pathLogin          = "/auth/login"
	pathProducts       = "/products"
	pathProductsSearch = "/products/search"
	pathUsers          = "/users"

	userAgent = "shop-session/1.0"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 4 << 20
)

// Config holds client settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration     // 0 = DefaultTimeout
	TokenTTL  int               // minutes, 0 = DefaultTokenTTL
	Transport http.RoundTripper // nil = http.DefaultTransport
	Logger    *slog.Logger
}

// Client is the remote service HTTP client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	tokenTTL   int
	logger     *slog.Logger
}

// New creates a client with the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	// No http.Client.Timeout: the per-call context deadline is the only bound,
	// so a timeout is always observed as context.DeadlineExceeded.
	return &Client{
		httpClient: &http.Client{Transport: transport},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		timeout:    timeout,
		tokenTTL:   ttl,
		logger:     logger,
	}, nil
}

// messages holds the user-facing text for one operation.
type messages struct {
	badRequest   string
	unauthorized string
	server       string
	fallback     string
}

var (
	loginMessages = messages{
		badRequest:   "Invalid username or password",
		unauthorized: "Authentication failed",
		server:       "Server error. Please try again later.",
		fallback:     "Login failed",
	}
	productMessages = messages{
		badRequest:   "Failed to load products",
		unauthorized: "Not allowed to load products",
		server:       "Server error. Unable to load products.",
		fallback:     "Failed to load products",
	}
	profileMessages = messages{
		badRequest:   "Failed to update user information",
		unauthorized: "Session expired. Please login again.",
		server:       "Server error. Unable to update information.",
		fallback:     "Failed to update user information",
	}
)

const networkMessage = "Network error. Please check your internet connection."

// loginRequest is the body of POST /auth/login.
type loginRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	ExpiresInMins int    `json:"expiresInMins"`
}

// loginResponse is the subset of the login response the engine keeps.
type loginResponse struct {
	model.User
	AccessToken string `json:"accessToken"`
}

// Login authenticates and returns the user profile with an access token.
func (c *Client) Login(ctx context.Context, username, password string) (*model.Credentials, error) {
	body := &loginRequest{
		Username:      username,
		Password:      password,
		ExpiresInMins: c.tokenTTL,
	}

	var resp loginResponse
	if err := c.call(ctx, http.MethodPost, pathLogin, nil, body, "", &resp, loginMessages); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, model.NewServerError("Login failed: no access token returned", http.StatusOK)
	}

	// Only identity fields are kept from login; phone/address arrive via profile sync.
	return &model.Credentials{
		User: model.User{
			ID:        resp.ID,
			Username:  resp.Username,
			Email:     resp.Email,
			FirstName: resp.FirstName,
			LastName:  resp.LastName,
		},
		AccessToken: resp.AccessToken,
	}, nil
}

// FetchProducts returns one page of the catalog, searching when q.Query is set.
func (c *Client) FetchProducts(ctx context.Context, q model.ProductQuery) (*model.ProductPage, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("skip", strconv.Itoa(q.Skip))

	path := pathProducts
	if query := strings.TrimSpace(q.Query); query != "" {
		path = pathProductsSearch
		params.Set("q", query)
	}

	var page model.ProductPage
	if err := c.call(ctx, http.MethodGet, path, params, nil, "", &page, productMessages); err != nil {
		return nil, err
	}
	if page.Products == nil {
		page.Products = []model.Product{}
	}
	return &page, nil
}

// FetchProduct returns a single catalog product.
func (c *Client) FetchProduct(ctx context.Context, id int) (*model.Product, error) {
	path := pathProducts + "/" + strconv.Itoa(id)

	var p model.Product
	if err := c.call(ctx, http.MethodGet, path, nil, nil, "", &p, productMessages); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateUserProfile sends a partial profile update authenticated with token.
func (c *Client) UpdateUserProfile(ctx context.Context, id int, patch model.ProfilePatch, token string) (*model.User, error) {
	if token == "" {
		return nil, model.NewUnauthorizedError(profileMessages.unauthorized, 0)
	}
	path := pathUsers + "/" + strconv.Itoa(id)

	var u model.User
	if err := c.call(ctx, http.MethodPut, path, nil, patch, token, &u, profileMessages); err != nil {
		return nil, err
	}
	return &u, nil
}

// === HTTP Helpers ===

// call runs one bounded request: build, send, read, classify, decode.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body interface{}, token string, result interface{}, msgs messages) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(callCtx, method, path, query, body, token)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", method, path, err)
	}

	start := time.Now()
	status, respBody, err := c.do(req)
	if err != nil {
		apiErr := c.transportError(ctx, callCtx, err)
		c.logger.Warn("remote call failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Bool("timeout", apiErr.IsTimeout),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return apiErr
	}

	c.logger.Debug("remote call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
	)

	if status < 200 || status >= 300 {
		return classify(status, msgs)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return model.NewServerError(msgs.fallback+": unexpected response", status)
		}
	}
	return nil
}

// newRequest creates a JSON request, adding Bearer auth when token is set.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body interface{}, token string) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do executes the request and reads the whole body under the same deadline.
func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// transportError classifies a failure that produced no HTTP status.
// A deadline hit by the per-call timeout becomes a timeout error; a caller
// cancellation keeps context.Canceled in the chain so it can be told apart.
func (c *Client) transportError(parent, callCtx context.Context, err error) *model.APIError {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(parent.Err(), context.Canceled) {
		return model.NewTimeoutError()
	}
	if parentErr := parent.Err(); parentErr != nil {
		return &model.APIError{
			Kind:    model.KindNetwork,
			Message: "Request cancelled",
			Err:     fmt.Errorf("%w: %w", model.ErrNetwork, parentErr),
		}
	}
	return model.NewNetworkError(networkMessage, err)
}

// classify converts a non-2xx status into a typed APIError.
func classify(status int, msgs messages) *model.APIError {
	switch {
	case status == http.StatusBadRequest:
		return model.NewInvalidRequestError(msgs.badRequest, status)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return model.NewUnauthorizedError(msgs.unauthorized, status)
	case status >= 500:
		return model.NewServerError(msgs.server, status)
	default:
		return model.NewInvalidRequestError(msgs.fallback, status)
	}
}

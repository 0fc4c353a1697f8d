package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shop-session/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"empty", "", true},
		{"no scheme", "dummyjson.com", true},
		{"valid", "https://dummyjson.com", false},
		{"trailing slash", "https://dummyjson.com/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Config{BaseURL: tt.baseURL})
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%q) error = %v, wantErr %v", tt.baseURL, err, tt.wantErr)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{BaseURL: "https://dummyjson.com/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", c.timeout, DefaultTimeout)
	}
	if c.tokenTTL != DefaultTokenTTL {
		t.Errorf("tokenTTL = %d, want %d", c.tokenTTL, DefaultTokenTTL)
	}
	if c.baseURL != "https://dummyjson.com" {
		t.Errorf("baseURL = %q", c.baseURL)
	}
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("request = %s %s, want POST /auth/login", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}

		var body loginRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Username != "emilys" || body.Password != "emilyspass" {
			t.Errorf("credentials = %q/%q", body.Username, body.Password)
		}
		if body.ExpiresInMins != 60 {
			t.Errorf("expiresInMins = %d, want 60", body.ExpiresInMins)
		}

		w.Write([]byte(`{
			"id": 1, "username": "emilys", "email": "emily@x.dummyjson.com",
			"firstName": "Emily", "lastName": "Johnson", "gender": "female",
			"accessToken": "tok-123", "refreshToken": "ref-456"
		}`))
	})

	creds, err := c.Login(context.Background(), "emilys", "emilyspass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if creds.AccessToken != "tok-123" {
		t.Errorf("AccessToken = %q", creds.AccessToken)
	}
	if creds.User.ID != 1 || creds.User.FullName() != "Emily Johnson" {
		t.Errorf("User = %+v", creds.User)
	}
	if creds.User.Phone != nil || creds.User.Address != nil {
		t.Error("login should not populate optional profile fields")
	}
}

func TestLogin_MissingToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 1, "username": "emilys"}`))
	})

	_, err := c.Login(context.Background(), "emilys", "pw")
	if !errors.Is(err, model.ErrServer) {
		t.Errorf("err = %v, want ErrServer", err)
	}
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantKind    model.ErrorKind
		wantMessage string
	}{
		{"400", 400, model.KindInvalidRequest, "Invalid username or password"},
		{"401", 401, model.KindUnauthorized, "Authentication failed"},
		{"403", 403, model.KindUnauthorized, "Authentication failed"},
		{"404", 404, model.KindInvalidRequest, "Login failed"},
		{"500", 500, model.KindServer, "Server error. Please try again later."},
		{"503", 503, model.KindServer, "Server error. Please try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"message":"nope"}`))
			})

			_, err := c.Login(context.Background(), "u", "p")
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *APIError", err)
			}
			if apiErr.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", apiErr.Kind, tt.wantKind)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
		})
	}
}

func TestFetchProducts(t *testing.T) {
	tests := []struct {
		name      string
		query     model.ProductQuery
		wantPath  string
		wantQuery string
	}{
		{
			name:      "list",
			query:     model.ProductQuery{Skip: 20, Limit: 10},
			wantPath:  "/products",
			wantQuery: "limit=10&skip=20",
		},
		{
			name:      "search",
			query:     model.ProductQuery{Skip: 0, Limit: 5, Query: " phone "},
			wantPath:  "/products/search",
			wantQuery: "limit=5&q=phone&skip=0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != tt.wantPath {
					t.Errorf("path = %s, want %s", r.URL.Path, tt.wantPath)
				}
				if r.URL.RawQuery != tt.wantQuery {
					t.Errorf("query = %s, want %s", r.URL.RawQuery, tt.wantQuery)
				}
				w.Write([]byte(`{"products":[{"id":1,"title":"Essence Mascara","price":9.99,"stock":5}],"total":194,"skip":0,"limit":1}`))
			})

			page, err := c.FetchProducts(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("FetchProducts: %v", err)
			}
			if len(page.Products) != 1 || page.Products[0].Title != "Essence Mascara" {
				t.Errorf("Products = %+v", page.Products)
			}
			if page.Total != 194 {
				t.Errorf("Total = %d, want 194", page.Total)
			}
		})
	}
}

func TestFetchProducts_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.FetchProducts(context.Background(), model.ProductQuery{Limit: 10})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Message != "Server error. Unable to load products." {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestFetchProducts_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"products": "not-a-list"`))
	})

	_, err := c.FetchProducts(context.Background(), model.ProductQuery{Limit: 10})
	if !errors.Is(err, model.ErrServer) {
		t.Errorf("err = %v, want ErrServer", err)
	}
}

func TestFetchProduct(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/7" {
			t.Errorf("path = %s, want /products/7", r.URL.Path)
		}
		w.Write([]byte(`{"id":7,"title":"Lamp","price":25.5}`))
	})

	p, err := c.FetchProduct(context.Background(), 7)
	if err != nil {
		t.Fatalf("FetchProduct: %v", err)
	}
	if p.ID != 7 || p.Price != 25.5 {
		t.Errorf("product = %+v", p)
	}
}

func TestUpdateUserProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/users/1" {
			t.Errorf("request = %s %s, want PUT /users/1", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok-123" {
			t.Errorf("Authorization = %q", auth)
		}

		var patch model.ProfilePatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			t.Errorf("decode: %v", err)
		}
		if patch.Address.City != "Apt 4" {
			t.Errorf("city = %q", patch.Address.City)
		}

		w.Write([]byte(`{"id":1,"firstName":"Emily","phone":"+1 555 123 4567","address":{"address":"1 Main St","city":"Apt 4","postalCode":"12345"}}`))
	})

	patch := model.ProfilePatch{
		Phone:   "+1 555 123 4567",
		Address: model.UserAddress{Address: "1 Main St", City: "Apt 4", PostalCode: "12345"},
	}
	u, err := c.UpdateUserProfile(context.Background(), 1, patch, "tok-123")
	if err != nil {
		t.Fatalf("UpdateUserProfile: %v", err)
	}
	if u.Phone == nil || *u.Phone != "+1 555 123 4567" {
		t.Errorf("Phone = %v", u.Phone)
	}
}

func TestUpdateUserProfile_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.UpdateUserProfile(context.Background(), 1, model.ProfilePatch{}, "expired")
	if !model.IsUnauthorized(err) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
	var apiErr *model.APIError
	errors.As(err, &apiErr)
	if apiErr.Message != "Session expired. Please login again." {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestUpdateUserProfile_NoToken(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.UpdateUserProfile(context.Background(), 1, model.ProfilePatch{}, "")
	if !model.IsUnauthorized(err) {
		t.Errorf("err = %v, want unauthorized", err)
	}
	if called {
		t.Error("request should not be sent without a token")
	}
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.FetchProducts(context.Background(), model.ProductQuery{Limit: 10})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Kind != model.KindNetwork || !apiErr.IsTimeout {
		t.Errorf("err = %+v, want network timeout", apiErr)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		t.Error("timeout should not leak context.DeadlineExceeded")
	}
	if apiErr.Message != "Request timeout. Please check your connection." {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, Timeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = c.FetchProduct(context.Background(), 1)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Kind != model.KindNetwork || apiErr.IsTimeout {
		t.Errorf("err = %+v, want plain network error", apiErr)
	}
	if apiErr.Message != "Network error. Please check your internet connection." {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestCallerCancellation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchProduct(ctx, 1)
	if !errors.Is(err, model.ErrNetwork) {
		t.Errorf("err = %v, want ErrNetwork", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, should wrap context.Canceled", err)
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.IsTimeout {
		t.Error("caller cancellation is not a timeout")
	}
}

func TestMockDefaults(t *testing.T) {
	m := &Mock{}
	ctx := context.Background()

	if _, err := m.Login(ctx, "u", "p"); !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("Login err = %v, want ErrInvalidRequest", err)
	}
	page, err := m.FetchProducts(ctx, model.ProductQuery{Limit: 3})
	if err != nil || page.Limit != 3 {
		t.Errorf("FetchProducts = %+v, %v", page, err)
	}
	u, err := m.UpdateUserProfile(ctx, 9, model.ProfilePatch{Phone: "123"}, "tok")
	if err != nil || u.ID != 9 || *u.Phone != "123" {
		t.Errorf("UpdateUserProfile = %+v, %v", u, err)
	}
}

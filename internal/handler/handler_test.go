package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shop-session/internal/apiclient"
	"shop-session/internal/model"
	"shop-session/internal/negotiation"
	"shop-session/internal/order"
	"shop-session/internal/session"
	"shop-session/internal/storage"
)

var testCatalog = map[int]model.Product{
	1: {ID: 1, Title: "Essence Mascara", Price: 10},
	2: {ID: 2, Title: "Lamp", Price: 5},
}

func testAPI() *apiclient.Mock {
	phone := "+1 555-000-1111"
	return &apiclient.Mock{
		LoginFunc: func(_ context.Context, username, password string) (*model.Credentials, error) {
			if password != "pw" {
				return nil, model.NewInvalidRequestError("Invalid username or password", 400)
			}
			return &model.Credentials{
				User: model.User{
					ID: 1, Username: username, Email: "emily@example.com",
					FirstName: "Emily", LastName: "Johnson",
					Phone:   &phone,
					Address: &model.UserAddress{Address: "1 Main St", PostalCode: "12345"},
				},
				AccessToken: "tok-123",
			}, nil
		},
		FetchProductsFunc: func(_ context.Context, q model.ProductQuery) (*model.ProductPage, error) {
			return &model.ProductPage{
				Products: []model.Product{testCatalog[1], testCatalog[2]},
				Total:    2,
				Skip:     q.Skip,
				Limit:    q.Limit,
			}, nil
		},
		FetchProductFunc: func(_ context.Context, id int) (*model.Product, error) {
			p, ok := testCatalog[id]
			if !ok {
				return nil, model.NewInvalidRequestError("Failed to load products", 404)
			}
			return &p, nil
		},
	}
}

func testHandler(t *testing.T, api apiclient.API) (*session.Engine, http.Handler) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := session.New(session.Config{
		API:    api,
		KV:     storage.NewMemory(),
		Logger: logger,
		OrderOptions: []order.Option{
			order.WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }),
			order.WithIDGenerator(func() string { return "ORD-test" }),
		},
	})
	engine.Restore(context.Background())
	return engine, New(engine, logger).Router("")
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		if s, ok := body.(string); ok {
			r = strings.NewReader(s)
		} else {
			b, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			r = bytes.NewReader(b)
		}
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, w.Body.String())
	}
	return resp.Error
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var resp cartResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	return resp
}

func login(t *testing.T, h http.Handler) {
	t.Helper()
	w := do(t, h, "POST", "/session/login", loginRequest{Username: "emilys", Password: "pw"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	_, h := testHandler(t, testAPI())

	w := do(t, h, "GET", "/health", nil)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp healthResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Status != "ok" {
		t.Errorf("Status = %s, want ok", resp.Status)
	}
}

func TestSessionLifecycle(t *testing.T) {
	_, h := testHandler(t, testAPI())

	w := do(t, h, "GET", "/session", nil)
	var s sessionResponse
	json.NewDecoder(w.Body).Decode(&s)
	if s.Authenticated {
		t.Error("should start logged out")
	}

	login(t, h)

	w = do(t, h, "GET", "/session", nil)
	s = sessionResponse{}
	json.NewDecoder(w.Body).Decode(&s)
	if !s.Authenticated || s.User == nil || s.User.Username != "emilys" {
		t.Errorf("session = %+v", s)
	}

	w = do(t, h, "POST", "/session/logout", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("logout Status = %d, want %d", w.Code, http.StatusNoContent)
	}

	w = do(t, h, "GET", "/session", nil)
	s = sessionResponse{}
	json.NewDecoder(w.Body).Decode(&s)
	if s.Authenticated {
		t.Error("should be logged out")
	}
}

func TestHandleLoginErrors(t *testing.T) {
	_, h := testHandler(t, testAPI())

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"invalid json", `{"username":`, http.StatusBadRequest, "bad_request"},
		{"blank fields", loginRequest{Username: " "}, http.StatusUnprocessableEntity, "validation_failed"},
		{"wrong password", loginRequest{Username: "emilys", Password: "nope"}, http.StatusBadRequest, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", "/session/login", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := decodeError(t, w); got.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", got.Code, tt.wantCode)
			}
		})
	}
}

func TestHandleProducts(t *testing.T) {
	var got model.ProductQuery
	api := testAPI()
	inner := api.FetchProductsFunc
	api.FetchProductsFunc = func(ctx context.Context, q model.ProductQuery) (*model.ProductPage, error) {
		got = q
		return inner(ctx, q)
	}
	_, h := testHandler(t, api)

	w := do(t, h, "GET", "/products?q=lamp&skip=10&limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if got != (model.ProductQuery{Query: "lamp", Skip: 10, Limit: 5}) {
		t.Errorf("query = %+v", got)
	}

	var page model.ProductPage
	json.NewDecoder(w.Body).Decode(&page)
	if len(page.Products) != 2 {
		t.Errorf("Products = %d, want 2", len(page.Products))
	}

	w = do(t, h, "GET", "/products?limit=ten", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleGetProduct(t *testing.T) {
	_, h := testHandler(t, testAPI())

	w := do(t, h, "GET", "/products/2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	var p model.Product
	json.NewDecoder(w.Body).Decode(&p)
	if p.Title != "Lamp" {
		t.Errorf("Title = %s, want Lamp", p.Title)
	}

	if w := do(t, h, "GET", "/products/99", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing product Status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if w := do(t, h, "GET", "/products/abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad id Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCartEndpoints(t *testing.T) {
	_, h := testHandler(t, testAPI())

	do(t, h, "POST", "/cart/items", addItemRequest{ProductID: 1})
	do(t, h, "POST", "/cart/items", addItemRequest{ProductID: 1})
	w := do(t, h, "POST", "/cart/items", addItemRequest{ProductID: 2})
	if w.Code != http.StatusOK {
		t.Fatalf("add Status = %d: %s", w.Code, w.Body.String())
	}

	c := decodeCart(t, w)
	if c.TotalItems != 3 || c.TotalPrice != "25.00" {
		t.Errorf("totals = %d / %s, want 3 / 25.00", c.TotalItems, c.TotalPrice)
	}
	if len(c.Items) != 2 || c.Items[0].Subtotal != "20.00" {
		t.Errorf("items = %+v", c.Items)
	}

	w = do(t, h, "PUT", "/cart/items/2", map[string]int{"quantity": 3})
	c = decodeCart(t, w)
	if c.TotalPrice != "35.00" {
		t.Errorf("after set TotalPrice = %s, want 35.00", c.TotalPrice)
	}

	w = do(t, h, "PUT", "/cart/items/2", map[string]int{"quantity": 0})
	c = decodeCart(t, w)
	if len(c.Items) != 1 {
		t.Errorf("quantity 0 should remove the line, items = %+v", c.Items)
	}

	w = do(t, h, "DELETE", "/cart/items/42", nil)
	if w.Code != http.StatusOK {
		t.Errorf("removing absent id Status = %d, want %d", w.Code, http.StatusOK)
	}

	w = do(t, h, "DELETE", "/cart", nil)
	c = decodeCart(t, w)
	if len(c.Items) != 0 || c.TotalItems != 0 || c.TotalPrice != "0.00" {
		t.Errorf("cleared cart = %+v", c)
	}
	if !strings.Contains(do(t, h, "GET", "/cart", nil).Body.String(), `"items":[]`) {
		t.Error("empty cart should encode items as []")
	}
}

func TestCartEndpointErrors(t *testing.T) {
	_, h := testHandler(t, testAPI())

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{"missing product id", "POST", "/cart/items", map[string]int{}, http.StatusBadRequest},
		{"unknown product", "POST", "/cart/items", addItemRequest{ProductID: 404}, http.StatusNotFound},
		{"missing quantity", "PUT", "/cart/items/1", map[string]int{}, http.StatusBadRequest},
		{"bad path id", "DELETE", "/cart/items/0", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestCheckoutFlow(t *testing.T) {
	engine, h := testHandler(t, testAPI())

	w := do(t, h, "POST", "/checkout", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("checkout without login Status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	login(t, h)

	w = do(t, h, "POST", "/checkout", nil)
	if w.Code != http.StatusConflict || decodeError(t, w).Code != "cart_empty" {
		t.Errorf("empty cart Status = %d, want %d", w.Code, http.StatusConflict)
	}

	do(t, h, "POST", "/cart/items", addItemRequest{ProductID: 1})
	do(t, h, "POST", "/cart/items", addItemRequest{ProductID: 2})

	w = do(t, h, "POST", "/checkout", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("begin Status = %d: %s", w.Code, w.Body.String())
	}
	var co checkoutResponse
	json.NewDecoder(w.Body).Decode(&co)
	if co.Step != "shipping" || co.Shipping.FullName != "Emily Johnson" {
		t.Errorf("checkout = %+v", co)
	}

	// detailedAddress is still missing
	w = do(t, h, "POST", "/checkout/next", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("next Status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	if e := decodeError(t, w); e.Fields["detailedAddress"] == "" {
		t.Errorf("fields = %v, want detailedAddress", e.Fields)
	}

	ship := co.Shipping
	ship.DetailedAddress = "Apt 4"
	if w := do(t, h, "PUT", "/checkout/shipping", ship); w.Code != http.StatusOK {
		t.Fatalf("shipping Status = %d: %s", w.Code, w.Body.String())
	}
	if w := do(t, h, "POST", "/checkout/next", nil); w.Code != http.StatusOK {
		t.Fatalf("next Status = %d: %s", w.Code, w.Body.String())
	}

	w = do(t, h, "PUT", "/checkout/shipping", ship)
	if w.Code != http.StatusConflict || decodeError(t, w).Code != "wrong_step" {
		t.Errorf("editing shipping on payment step Status = %d, want %d", w.Code, http.StatusConflict)
	}

	w = do(t, h, "PUT", "/checkout/payment", model.PaymentInfo{
		PaymentMethod: model.PaymentCard,
		CardNumber:    "4111111111111234",
		ExpiryDate:    "1229",
		CVV:           "123",
		CardName:      "EMILY JOHNSON",
	})
	json.NewDecoder(w.Body).Decode(&co)
	if co.Payment.CardNumber != "**** **** **** 1234" || co.Payment.CVV != "" {
		t.Errorf("payment not masked: %+v", co.Payment)
	}
	if co.Payment.ExpiryDate != "12/29" {
		t.Errorf("ExpiryDate = %s, want 12/29", co.Payment.ExpiryDate)
	}

	w = do(t, h, "POST", "/checkout/next", nil)
	co = checkoutResponse{}
	json.NewDecoder(w.Body).Decode(&co)
	if co.Step != "review" || co.TotalPrice != "15.00" {
		t.Errorf("review = %+v", co)
	}

	if w := do(t, h, "GET", "/order", nil); w.Code != http.StatusNotFound {
		t.Errorf("order before confirm Status = %d, want %d", w.Code, http.StatusNotFound)
	}

	w = do(t, h, "POST", "/checkout/confirm", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("confirm Status = %d: %s", w.Code, w.Body.String())
	}
	var o orderResponse
	json.NewDecoder(w.Body).Decode(&o)
	if o.OrderID != "ORD-test" || o.Total != "15.00" || len(o.Items) != 2 {
		t.Errorf("order = %+v", o)
	}
	if o.Date != "2026-01-02T03:04:05Z" {
		t.Errorf("Date = %s", o.Date)
	}
	if o.Payment.CardNumber != "**** **** **** 1234" {
		t.Errorf("order card = %s", o.Payment.CardNumber)
	}
	if len(engine.Cart().Lines()) != 0 {
		t.Error("cart should be cleared after confirm")
	}

	w = do(t, h, "GET", "/order", nil)
	if w.Code != http.StatusOK {
		t.Errorf("order Status = %d", w.Code)
	}

	w = do(t, h, "POST", "/checkout/confirm", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("second confirm Status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestCheckoutBack(t *testing.T) {
	_, h := testHandler(t, testAPI())
	login(t, h)
	do(t, h, "POST", "/cart/items", addItemRequest{ProductID: 1})

	if w := do(t, h, "GET", "/checkout", nil); w.Code != http.StatusNotFound {
		t.Errorf("no checkout Status = %d, want %d", w.Code, http.StatusNotFound)
	}

	do(t, h, "POST", "/checkout", nil)
	w := do(t, h, "POST", "/checkout/back", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("back from shipping Status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestConfirmErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"timeout", model.NewTimeoutError(), http.StatusGatewayTimeout, "timeout"},
		{"network", model.NewNetworkError("Network error. Please check your internet connection.", io.EOF), http.StatusServiceUnavailable, "network_error"},
		{"server", model.NewServerError("Server error. Unable to update information.", 500), http.StatusBadGateway, "server_error"},
		{"unauthorized", model.NewUnauthorizedError("Session expired. Please login again.", 401), http.StatusUnauthorized, "unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := testAPI()
			api.UpdateUserProfileFunc = func(context.Context, int, model.ProfilePatch, string) (*model.User, error) {
				return nil, tt.err
			}
			engine, h := testHandler(t, api)
			login(t, h)
			do(t, h, "POST", "/cart/items", addItemRequest{ProductID: 1})
			do(t, h, "POST", "/checkout", nil)
			do(t, h, "PUT", "/checkout/shipping", model.ShippingInfo{
				FullName: "Emily Johnson", Phone: "+1 555-000-1111", Email: "emily@example.com",
				PostalCode: "12345", Address: "1 Main St", DetailedAddress: "Apt 4",
			})
			do(t, h, "POST", "/checkout/next", nil)
			do(t, h, "PUT", "/checkout/payment", model.PaymentInfo{PaymentMethod: model.PaymentCashOnDelivery})
			do(t, h, "POST", "/checkout/next", nil)

			w := do(t, h, "POST", "/checkout/confirm", nil)
			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := decodeError(t, w); got.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", got.Code, tt.wantCode)
			}
			if len(engine.Cart().Lines()) != 1 {
				t.Error("cart must survive a failed confirm")
			}
		})
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantOK     bool
	}{
		{"validation", model.ValidationErrors{"email": "Invalid email"}, http.StatusUnprocessableEntity, "validation_failed", true},
		{"commit in progress", model.ErrCommitInProgress, http.StatusConflict, "commit_in_progress", true},
		{"not restored", model.ErrNotRestored, http.StatusServiceUnavailable, "not_restored", true},
		{"persistence", &model.PersistenceError{Op: "save", Key: "orderData", Err: io.ErrShortWrite}, http.StatusInternalServerError, "persistence_error", true},
		{"invalid request", model.NewInvalidRequestError("Invalid input.", 422), http.StatusBadRequest, "invalid_request", true},
		{"unknown", io.ErrUnexpectedEOF, http.StatusInternalServerError, "internal_error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body, ok := errorStatus(tt.err)
			if status != tt.wantStatus || body.Code != tt.wantCode || ok != tt.wantOK {
				t.Errorf("errorStatus() = %d %s %v, want %d %s %v",
					status, body.Code, ok, tt.wantStatus, tt.wantCode, tt.wantOK)
			}
		})
	}
}

func TestRouterClientAgentGate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := session.New(session.Config{API: testAPI()})
	engine.Restore(context.Background())
	h := New(engine, logger).Router("2.0.0")

	req := httptest.NewRequest("GET", "/cart", nil)
	req.Header.Set(negotiation.ClientAgentHeader, `version="1.0.0"`)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUpgradeRequired {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusUpgradeRequired)
	}

	req = httptest.NewRequest("GET", "/cart", nil)
	req.Header.Set(negotiation.ClientAgentHeader, `version="2.1.0"`)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %s", w.Header().Get("Content-Type"))
	}
}

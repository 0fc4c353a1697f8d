package apiclient

import (
	"context"

	"shop-session/internal/model"
)

// Mock implements API for testing.
// Each method can be configured via function fields.
type Mock struct {
	LoginFunc             func(ctx context.Context, username, password string) (*model.Credentials, error)
	FetchProductsFunc     func(ctx context.Context, q model.ProductQuery) (*model.ProductPage, error)
	FetchProductFunc      func(ctx context.Context, id int) (*model.Product, error)
	UpdateUserProfileFunc func(ctx context.Context, id int, patch model.ProfilePatch, token string) (*model.User, error)
}

// Login calls the configured LoginFunc or fails as a bad login.
func (m *Mock) Login(ctx context.Context, username, password string) (*model.Credentials, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, username, password)
	}
	return nil, model.NewInvalidRequestError(loginMessages.badRequest, 400)
}

// FetchProducts calls the configured FetchProductsFunc or returns an empty page.
func (m *Mock) FetchProducts(ctx context.Context, q model.ProductQuery) (*model.ProductPage, error) {
	if m.FetchProductsFunc != nil {
		return m.FetchProductsFunc(ctx, q)
	}
	return &model.ProductPage{Products: []model.Product{}, Skip: q.Skip, Limit: q.Limit}, nil
}

// FetchProduct calls the configured FetchProductFunc or returns a 404-style error.
func (m *Mock) FetchProduct(ctx context.Context, id int) (*model.Product, error) {
	if m.FetchProductFunc != nil {
		return m.FetchProductFunc(ctx, id)
	}
	return nil, model.NewInvalidRequestError(productMessages.fallback, 404)
}

// UpdateUserProfile calls the configured UpdateUserProfileFunc or echoes the patch.
func (m *Mock) UpdateUserProfile(ctx context.Context, id int, patch model.ProfilePatch, token string) (*model.User, error) {
	if m.UpdateUserProfileFunc != nil {
		return m.UpdateUserProfileFunc(ctx, id, patch, token)
	}
	u := patch.Apply(model.User{ID: id})
	return &u, nil
}

// Verify Mock implements API interface at compile time.
var _ API = (*Mock)(nil)

package apiclient

import (
	"context"

	"shop-session/internal/model"
)

// API abstracts the remote catalog/user service.
// *Client is the HTTP implementation; Mock is used in tests.
//
// Every method returns a *model.APIError on failure, so callers can branch
// with errors.Is against the model sentinels.
type API interface {
	// Login exchanges username/password for a user profile and access token.
	Login(ctx context.Context, username, password string) (*model.Credentials, error)

	// FetchProducts returns one catalog page. A non-empty query searches.
	FetchProducts(ctx context.Context, q model.ProductQuery) (*model.ProductPage, error)

	// FetchProduct returns one product by id.
	FetchProduct(ctx context.Context, id int) (*model.Product, error)

	// UpdateUserProfile persists phone and address on the remote profile.
	// An Unauthorized error means the token is no longer accepted.
	UpdateUserProfile(ctx context.Context, id int, patch model.ProfilePatch, token string) (*model.User, error)
}

var _ API = (*Client)(nil)

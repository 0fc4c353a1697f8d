// Package session owns one shopping session: credentials, cart, the current
// checkout and the last order. Every outer surface (HTTP, MCP, CLI) drives
// the engine rather than the parts directly.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"shop-session/internal/apiclient"
	"shop-session/internal/auth"
	"shop-session/internal/cart"
	"shop-session/internal/checkout"
	"shop-session/internal/model"
	"shop-session/internal/order"
	"shop-session/internal/storage"
)

// DefaultPageSize is used when a product query has no limit.
const DefaultPageSize = 20

// Engine is the explicitly owned session object.
type Engine struct {
	api    apiclient.API
	kv     storage.KV
	logger *slog.Logger

	auth   *auth.Session
	cart   *cart.Store
	orders *order.Committer

	restored atomic.Bool

	mu       sync.Mutex
	checkout *checkout.Machine
	// checkoutUser is the user the current checkout was started for.
	checkoutUser int
}

// Config holds the engine's collaborators.
type Config struct {
	API    apiclient.API
	KV     storage.KV
	Logger *slog.Logger

	// OrderOptions are passed to the order committer (clock, id generator).
	OrderOptions []order.Option
}

// New creates an engine. Call Restore before serving any session operation.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	kv := cfg.KV
	if kv == nil {
		kv = storage.NewMemory()
	}

	a := auth.NewSession(cfg.API, kv, logger.With(slog.String("component", "auth")))
	c := cart.NewStore(kv, logger.With(slog.String("component", "cart")))
	o := order.NewCommitter(cfg.API, a, c, kv, logger.With(slog.String("component", "order")), cfg.OrderOptions...)

	return &Engine{
		api:    cfg.API,
		kv:     kv,
		logger: logger,
		auth:   a,
		cart:   c,
		orders: o,
	}
}

// Restore loads credentials, cart and last order from storage.
// It runs once; later calls are no-ops.
func (e *Engine) Restore(ctx context.Context) {
	if !e.restored.CompareAndSwap(false, true) {
		return
	}
	// The slots are independent; a remote backend loads them in parallel.
	var (
		g             errgroup.Group
		authenticated bool
	)
	g.Go(func() error {
		authenticated = e.auth.Restore(ctx)
		return nil
	})
	g.Go(func() error {
		e.cart.Restore(ctx)
		return nil
	})
	g.Go(func() error {
		e.orders.Restore(ctx)
		return nil
	})
	_ = g.Wait()

	e.logger.Info("session restored",
		slog.Bool("authenticated", authenticated),
		slog.Int("cart_items", e.cart.Totals().TotalItems),
		slog.Bool("has_order", e.orders.Last() != nil),
	)
}

// Cart returns the cart store. Its mutations are safe at any time.
func (e *Engine) Cart() *cart.Store { return e.cart }

// User returns the authenticated user, or nil.
func (e *Engine) User() *model.User { return e.auth.User() }

// Authenticated reports whether credentials are held.
func (e *Engine) Authenticated() bool { return e.auth.Authenticated() }

// LastOrder returns the most recent committed order, or nil.
func (e *Engine) LastOrder() *model.Order { return e.orders.Last() }

// Login authenticates and persists the credentials.
func (e *Engine) Login(ctx context.Context, username, password string) (*model.User, error) {
	if !e.restored.Load() {
		return nil, model.ErrNotRestored
	}
	u, err := e.auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	// A checkout kept from an expired session resumes only for the same user.
	e.mu.Lock()
	if e.checkout != nil && e.checkoutUser != u.ID {
		e.checkout = nil
	}
	e.mu.Unlock()
	return u, nil
}

// Logout removes every session slot and resets the in-memory state.
func (e *Engine) Logout(ctx context.Context) error {
	if e.orders.InFlight() {
		return model.ErrCommitInProgress
	}

	e.auth.Forget()
	e.cart.Reset()
	e.orders.Forget()
	e.mu.Lock()
	e.checkout = nil
	e.mu.Unlock()

	if err := storage.Remove(ctx, e.kv, storage.SessionKeys...); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	e.logger.Info("logged out")
	return nil
}

// Products returns one catalog page.
func (e *Engine) Products(ctx context.Context, q model.ProductQuery) (*model.ProductPage, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Skip < 0 {
		q.Skip = 0
	}
	return e.api.FetchProducts(ctx, q)
}

// Product returns one catalog product.
func (e *Engine) Product(ctx context.Context, id int) (*model.Product, error) {
	return e.api.FetchProduct(ctx, id)
}

// AddProduct adds one unit of a product to the cart. A product already in
// the cart is incremented from the cart copy without a catalog call.
func (e *Engine) AddProduct(ctx context.Context, id int) (model.Totals, error) {
	p, ok := e.cartProduct(id)
	if !ok {
		fetched, err := e.api.FetchProduct(ctx, id)
		if err != nil {
			return model.Totals{}, err
		}
		p = *fetched
	}
	if err := e.cart.Add(ctx, p); err != nil {
		return model.Totals{}, err
	}
	return e.cart.Totals(), nil
}

func (e *Engine) cartProduct(id int) (model.Product, bool) {
	for _, l := range e.cart.Lines() {
		if l.ID == id {
			return l.Product, true
		}
	}
	return model.Product{}, false
}

// BeginCheckout starts a new checkout, replacing any unfinished one.
// Shipping is prefilled from the user profile.
func (e *Engine) BeginCheckout() (*checkout.Machine, error) {
	if !e.restored.Load() {
		return nil, model.ErrNotRestored
	}
	if e.orders.InFlight() {
		return nil, model.ErrCommitInProgress
	}
	user := e.auth.User()
	if user == nil {
		return nil, model.ErrNotAuthenticated
	}
	if e.cart.Totals().TotalItems == 0 {
		return nil, model.ErrEmptyCart
	}

	m := checkout.New(PrefillShipping(user))

	e.mu.Lock()
	e.checkout = m
	e.checkoutUser = user.ID
	e.mu.Unlock()
	return m, nil
}

// Checkout returns the current checkout.
func (e *Engine) Checkout() (*checkout.Machine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.checkout == nil {
		return nil, model.ErrNoCheckout
	}
	return e.checkout, nil
}

// EditCheckout runs fn against the current checkout unless a commit is running.
func (e *Engine) EditCheckout(fn func(*checkout.Machine) error) error {
	m, err := e.Checkout()
	if err != nil {
		return err
	}
	if e.orders.InFlight() {
		return model.ErrCommitInProgress
	}
	return fn(m)
}

// Commit confirms the current checkout. An Unauthorized failure drops the
// local credentials; the cart and the reviewed checkout are kept so the
// customer can log in again and retry.
func (e *Engine) Commit(ctx context.Context) (*model.Order, error) {
	if !e.restored.Load() {
		return nil, model.ErrNotRestored
	}
	m, err := e.Checkout()
	if err != nil {
		return nil, err
	}

	o, err := e.orders.Commit(ctx, m)
	if err != nil {
		if model.IsUnauthorized(err) {
			e.auth.Invalidate(ctx)
		}
		return nil, err
	}
	return o, nil
}

// PrefillShipping derives the initial shipping draft from the profile.
func PrefillShipping(u *model.User) model.ShippingInfo {
	if u == nil {
		return model.ShippingInfo{}
	}
	s := model.ShippingInfo{
		FullName: u.FullName(),
		Email:    u.Email,
	}
	if u.Phone != nil {
		s.Phone = *u.Phone
	}
	if u.Address != nil {
		s.PostalCode = u.Address.PostalCode
		s.Address = u.Address.Address
	}
	return s
}

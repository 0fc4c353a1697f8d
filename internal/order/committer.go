// Package order turns a reviewed checkout into a persisted Order.
package order

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"shop-session/internal/apiclient"
	"shop-session/internal/auth"
	"shop-session/internal/cart"
	"shop-session/internal/checkout"
	"shop-session/internal/model"
	"shop-session/internal/storage"
)

// =============================================================================
// COMMIT SEQUENCE
// =============================================================================
//
//   1. sync-profile    PUT phone + address to the remote profile, then update
//                      the local user. Any API error aborts with no state change.
//   2. assemble-order  snapshot the cart, compute the total, stamp id and time.
//   3. persist-order   write orderData. Failure aborts; the cart is kept.
//   4. clear-cart      only reached once the order is durable. Takes the
//                      ordered quantities out of the cart; lines added
//                      meanwhile stay.
//
// Only one commit runs at a time; a second trigger gets ErrCommitInProgress.
//
// =============================================================================

// Committer is the only writer of Order records.
type Committer struct {
	api    apiclient.API
	auth   *auth.Session
	cart   *cart.Store
	kv     storage.KV
	logger *slog.Logger

	now   func() time.Time
	newID func() string

	inFlight atomic.Bool

	mu   sync.RWMutex
	last *model.Order
}

// Option customizes a Committer.
type Option func(*Committer)

// WithClock overrides the order timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Committer) { c.now = now }
}

// WithIDGenerator overrides order id generation.
func WithIDGenerator(newID func() string) Option {
	return func(c *Committer) { c.newID = newID }
}

// NewCommitter wires a committer to the session's collaborators.
func NewCommitter(api apiclient.API, authSession *auth.Session, cartStore *cart.Store, kv storage.KV, logger *slog.Logger, opts ...Option) *Committer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Committer{
		api:    api,
		auth:   authSession,
		cart:   cartStore,
		kv:     kv,
		logger: logger,
		now:    time.Now,
		newID:  NewOrderID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewOrderID returns "ORD-" followed by a time-ordered UUID.
func NewOrderID() string {
	return "ORD-" + uuid.Must(uuid.NewV7()).String()
}

// step is one stage of the commit sequence.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// Commit runs the commit sequence for co, which must be on the review step.
func (c *Committer) Commit(ctx context.Context, co *checkout.Machine) (*model.Order, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, model.ErrCommitInProgress
	}
	defer c.inFlight.Store(false)

	if co == nil {
		return nil, model.ErrNoCheckout
	}
	if s := co.Step(); s != checkout.StepReview {
		return nil, fmt.Errorf("commit from %s step: %w", s, model.ErrWrongStep)
	}

	user := c.auth.User()
	token := c.auth.Token()
	if user == nil || token == "" {
		return nil, model.ErrNotAuthenticated
	}
	if len(c.cart.Lines()) == 0 {
		return nil, model.ErrEmptyCart
	}

	shipping, payment := co.Drafts()
	patch := ProfilePatchFrom(shipping)

	var order *model.Order
	steps := []step{
		{"sync-profile", func(ctx context.Context) error {
			if _, err := c.api.UpdateUserProfile(ctx, user.ID, patch, token); err != nil {
				return err
			}
			if err := c.auth.SetUser(ctx, patch.Apply(*user)); err != nil {
				c.logger.Warn("local profile not updated", slog.String("error", err.Error()))
			}
			return nil
		}},
		{"assemble-order", func(ctx context.Context) error {
			o, err := c.assemble(shipping, payment)
			order = o
			return err
		}},
		{"persist-order", func(ctx context.Context) error {
			return storage.Save(ctx, c.kv, storage.KeyOrder, order)
		}},
		{"clear-cart", func(ctx context.Context) error {
			if err := c.cart.Settle(ctx, order.Items); err != nil {
				c.logger.Error("ordered lines still in stored cart",
					slog.String("order_id", order.OrderID),
					slog.String("error", err.Error()),
				)
			}
			return nil
		}},
	}

	if err := c.run(ctx, steps); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.last = order
	c.mu.Unlock()

	if err := co.MarkCommitted(); err != nil {
		c.logger.Warn("checkout left review during commit", slog.String("error", err.Error()))
	}

	c.logger.Info("order committed",
		slog.String("order_id", order.OrderID),
		slog.Int("items", len(order.Items)),
		slog.String("total", model.FormatAmount(order.Total)),
	)
	return cloneOrder(order), nil
}

// run executes steps in order and stops at the first failure.
func (c *Committer) run(ctx context.Context, steps []step) error {
	for _, s := range steps {
		c.logger.Debug("commit step", slog.String("step", s.name))
		if err := s.run(ctx); err != nil {
			c.logger.Warn("commit aborted",
				slog.String("step", s.name),
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// assemble builds the immutable order from the current cart.
// Only the last four card digits are kept and the CVV is never stored;
// cash payments carry no card data at all.
func (c *Committer) assemble(shipping model.ShippingInfo, payment model.PaymentInfo) (*model.Order, error) {
	lines := c.cart.Lines()
	if len(lines) == 0 {
		return nil, model.ErrEmptyCart
	}

	if payment.PaymentMethod == model.PaymentCard {
		payment.CVV = ""
		payment.CardNumber = checkout.MaskCardNumber(payment.CardNumber)
	} else {
		payment = payment.WithoutCard()
	}

	return &model.Order{
		OrderID:  c.newID(),
		Date:     c.now().UTC(),
		Items:    lines,
		Total:    model.ComputeTotals(lines).TotalPrice,
		Shipping: shipping,
		Payment:  payment,
	}, nil
}

// InFlight reports whether a commit is running.
func (c *Committer) InFlight() bool {
	return c.inFlight.Load()
}

// Restore loads the last persisted order, if any.
func (c *Committer) Restore(ctx context.Context) {
	o, ok := storage.Load[model.Order](ctx, c.kv, storage.KeyOrder, c.logger)
	if !ok || o.OrderID == "" {
		return
	}
	c.mu.Lock()
	c.last = &o
	c.mu.Unlock()
}

// Last returns a copy of the most recent order, or nil.
func (c *Committer) Last() *model.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return nil
	}
	return cloneOrder(c.last)
}

// cloneOrder copies o including its lines, so callers can never reach the
// committed record.
func cloneOrder(o *model.Order) *model.Order {
	out := *o
	out.Items = slices.Clone(o.Items)
	return &out
}

// Forget drops the in-memory order without touching storage.
func (c *Committer) Forget() {
	c.mu.Lock()
	c.last = nil
	c.mu.Unlock()
}

// ProfilePatchFrom maps the shipping form onto the remote profile shape.
// The detailed address travels as the profile's city line.
func ProfilePatchFrom(s model.ShippingInfo) model.ProfilePatch {
	return model.ProfilePatch{
		Phone: s.Phone,
		Address: model.UserAddress{
			Address:    s.Address,
			City:       s.DetailedAddress,
			PostalCode: s.PostalCode,
		},
	}
}

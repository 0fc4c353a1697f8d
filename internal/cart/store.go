// Package cart holds the shopping cart: an ordered list of product lines with
// merge-on-add semantics, write-through persistence, and change events.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"shop-session/internal/model"
	"shop-session/internal/reconcile"
	"shop-session/internal/storage"
)

// ErrInvalidProduct is returned when a product cannot be placed in the cart.
var ErrInvalidProduct = errors.New("invalid product")

// EventKind names the mutation that produced an Event.
type EventKind string

const (
	EventRestored    EventKind = "restored"
	EventAdded       EventKind = "added"
	EventRemoved     EventKind = "removed"
	EventQuantitySet EventKind = "quantity_set"
	EventCleared     EventKind = "cleared"
	EventSettled     EventKind = "settled"
	EventReset       EventKind = "reset"
)

// Event describes one applied mutation. Lines and Totals are the state right
// after the mutation; Diff is relative to the state right before it.
type Event struct {
	Kind   EventKind
	Lines  []model.CartLine
	Totals model.Totals
	Diff   *reconcile.LineDiff
}

// Store owns the cart for one session.
//
// Every mutation is a single read-modify-write under the store mutex, so
// rapid repeated adds never lose increments. Until Restore has run,
// mutations apply in memory only and are never written through; this keeps
// an empty default from overwriting the persisted cart.
//
// Listeners are called synchronously after the mutation, outside the store
// mutex, in mutation order. Events carry the full cart state, and a listener
// must not call back into the store.
type Store struct {
	kv     storage.KV
	logger *slog.Logger

	mu       sync.Mutex
	lines    []model.CartLine
	restored bool

	// notifyMu is taken before mu is released so events are delivered in
	// the same order mutations were applied.
	notifyMu  sync.Mutex
	subMu     sync.Mutex
	listeners map[int]func(Event)
	nextSub   int
}

// NewStore creates an empty, not-yet-restored store. kv may be nil, in which
// case the cart lives in memory only.
func NewStore(kv storage.KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		kv:        kv,
		logger:    logger,
		listeners: make(map[int]func(Event)),
	}
}

// Restore loads the persisted cart and enables write-through.
// A missing or corrupt cart leaves the in-memory lines untouched.
// Calling Restore again is a no-op.
func (s *Store) Restore(ctx context.Context) {
	s.mu.Lock()
	if s.restored {
		s.mu.Unlock()
		return
	}

	before := s.lines
	if s.kv != nil {
		if saved, ok := storage.Load[[]model.CartLine](ctx, s.kv, storage.KeyCart, s.logger); ok {
			s.lines = normalize(saved)
		}
	}
	s.restored = true

	s.logger.Debug("cart restored", slog.Int("lines", len(s.lines)))
	s.commit(EventRestored, before)
}

// Restored reports whether Restore has completed.
func (s *Store) Restored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restored
}

// Add puts one unit of p in the cart: an existing line is incremented,
// otherwise a new line with quantity 1 is appended.
func (s *Store) Add(ctx context.Context, p model.Product) error {
	if p.ID <= 0 {
		return fmt.Errorf("%w: id %d", ErrInvalidProduct, p.ID)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: negative price for product %d", ErrInvalidProduct, p.ID)
	}

	s.mu.Lock()
	before := s.lines
	next := cloneLines(before)

	if i := indexOf(next, p.ID); i >= 0 {
		next[i].Quantity++
	} else {
		next = append(next, model.CartLine{Product: p, Quantity: 1})
	}

	s.lines = next
	s.save(ctx)
	s.commit(EventAdded, before)
	return nil
}

// Remove deletes the line for id. Removing an absent id is a no-op.
func (s *Store) Remove(ctx context.Context, id int) {
	s.mu.Lock()
	i := indexOf(s.lines, id)
	if i < 0 {
		s.mu.Unlock()
		return
	}

	before := s.lines
	next := make([]model.CartLine, 0, len(before)-1)
	next = append(next, before[:i]...)
	next = append(next, before[i+1:]...)

	s.lines = next
	s.save(ctx)
	s.commit(EventRemoved, before)
}

// SetQuantity replaces the quantity for id. q <= 0 removes the line.
// Setting a quantity for an absent id is a no-op.
func (s *Store) SetQuantity(ctx context.Context, id, q int) {
	if q <= 0 {
		s.Remove(ctx, id)
		return
	}

	s.mu.Lock()
	i := indexOf(s.lines, id)
	if i < 0 || s.lines[i].Quantity == q {
		s.mu.Unlock()
		return
	}

	before := s.lines
	next := cloneLines(before)
	next[i].Quantity = q

	s.lines = next
	s.save(ctx)
	s.commit(EventQuantitySet, before)
}

// Clear empties the cart and persists the empty cart.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	before := s.lines
	s.lines = nil
	s.save(ctx)
	s.commit(EventCleared, before)
}

// Settle takes the ordered lines out of the cart: each ordered quantity is
// subtracted from the matching line and lines that reach zero are dropped.
// Anything added after the order snapshot stays in the cart. The returned
// error reports whether the settled cart reached storage.
func (s *Store) Settle(ctx context.Context, ordered []model.CartLine) error {
	s.mu.Lock()
	before := s.lines
	next := make([]model.CartLine, 0, len(before))
	for _, l := range before {
		for _, o := range ordered {
			if o.ID == l.ID {
				l.Quantity -= o.Quantity
				break
			}
		}
		if l.Quantity > 0 {
			next = append(next, l)
		}
	}

	s.lines = next
	err := s.save(ctx)
	s.commit(EventSettled, before)
	return err
}

// Reset empties the in-memory cart without writing to storage.
// Used on logout, after the session slots have been removed.
func (s *Store) Reset() {
	s.mu.Lock()
	before := s.lines
	s.lines = nil
	s.commit(EventReset, before)
}

// Lines returns a copy of the current lines in first-add order.
func (s *Store) Lines() []model.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLines(s.lines)
}

// Totals recomputes totals from the current lines.
func (s *Store) Totals() model.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.ComputeTotals(s.lines)
}

// Snapshot returns lines and totals read under one lock.
func (s *Store) Snapshot() ([]model.CartLine, model.Totals) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLines(s.lines), model.ComputeTotals(s.lines)
}

// Subscribe registers fn for change events and returns a function that
// unregisters it.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.listeners, id)
			s.subMu.Unlock()
		})
	}
}

// save writes the current lines through. Caller holds s.mu.
// Failures are logged; the in-memory cart stays authoritative.
func (s *Store) save(ctx context.Context) error {
	if s.kv == nil || !s.restored {
		return nil
	}
	lines := s.lines
	if lines == nil {
		lines = []model.CartLine{}
	}
	if err := storage.Save(ctx, s.kv, storage.KeyCart, lines); err != nil {
		s.logger.Warn("cart not persisted", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// commit builds the event for the mutation from before to s.lines, releases
// s.mu, and delivers the event. Caller holds s.mu; it is released on return.
func (s *Store) commit(kind EventKind, before []model.CartLine) {
	ev := Event{
		Kind:   kind,
		Lines:  cloneLines(s.lines),
		Totals: model.ComputeTotals(s.lines),
		Diff:   reconcile.DiffLines(before, s.lines),
	}

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.listeners))
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func indexOf(lines []model.CartLine, id int) int {
	for i := range lines {
		if lines[i].ID == id {
			return i
		}
	}
	return -1
}

// cloneLines never returns nil, so an empty cart encodes as [].
func cloneLines(lines []model.CartLine) []model.CartLine {
	out := make([]model.CartLine, len(lines))
	copy(out, lines)
	return out
}

// normalize repairs a persisted cart: lines with non-positive quantity or id
// are dropped and duplicate ids are merged into the first occurrence.
func normalize(lines []model.CartLine) []model.CartLine {
	var out []model.CartLine
	for _, l := range lines {
		if l.ID <= 0 || l.Quantity <= 0 {
			continue
		}
		if i := indexOf(out, l.ID); i >= 0 {
			out[i].Quantity += l.Quantity
			continue
		}
		out = append(out, l)
	}
	return out
}

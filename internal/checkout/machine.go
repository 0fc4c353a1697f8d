// Package checkout drives the customer through the ordered checkout steps,
// gating each forward transition on validation of the step's form.
package checkout

import (
	"fmt"
	"sync"

	"shop-session/internal/model"
)

// Step is a position in the checkout flow.
type Step string

const (
	StepShipping  Step = "shipping"
	StepPayment   Step = "payment"
	StepReview    Step = "review"
	StepCommitted Step = "committed"
)

// =============================================================================
// CHECKOUT FLOW
// =============================================================================
//
//   shipping ──Next──▶ payment ──Next──▶ review ──MarkCommitted──▶ committed
//       ▲                 │  ▲              │
//       └──────Back───────┘  └─────Back─────┘
//
// Next validates the current step's form and stays put on failure.
// Back never validates and keeps every draft.
// committed is terminal; only the order committer moves there.
//
// =============================================================================

// Machine holds the checkout step and the shipping/payment drafts.
// It is safe for concurrent use.
type Machine struct {
	mu       sync.Mutex
	step     Step
	shipping model.ShippingInfo
	payment  model.PaymentInfo
	errors   model.ValidationErrors
}

// View is a read-only copy of the machine state.
type View struct {
	Step     Step                   `json:"step"`
	Shipping model.ShippingInfo     `json:"shipping"`
	Payment  model.PaymentInfo      `json:"payment"`
	Errors   model.ValidationErrors `json:"errors,omitempty"`
}

// New starts a checkout at the shipping step with the given prefill.
// Payment defaults to card.
func New(prefill model.ShippingInfo) *Machine {
	return &Machine{
		step:     StepShipping,
		shipping: prefill,
		payment:  model.PaymentInfo{PaymentMethod: model.PaymentCard},
	}
}

// Step returns the current step.
func (m *Machine) Step() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.step
}

// View returns a copy of the current state.
func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return View{
		Step:     m.step,
		Shipping: m.shipping,
		Payment:  m.payment,
		Errors:   copyErrors(m.errors),
	}
}

// Drafts returns the shipping and payment drafts.
func (m *Machine) Drafts() (model.ShippingInfo, model.PaymentInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shipping, m.payment
}

// SetShipping replaces the shipping draft. Allowed only on the shipping step.
func (m *Machine) SetShipping(s model.ShippingInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.step != StepShipping {
		return fmt.Errorf("editing shipping on %s step: %w", m.step, model.ErrWrongStep)
	}
	m.shipping = s
	return nil
}

// SetPayment replaces the payment draft. Allowed only on the payment step.
// Card numbers and expiry dates are stored in display format.
func (m *Machine) SetPayment(p model.PaymentInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.step != StepPayment {
		return fmt.Errorf("editing payment on %s step: %w", m.step, model.ErrWrongStep)
	}
	// Input with no digits is kept as typed so validation reports the bad
	// format rather than a missing field.
	if f := FormatCardNumber(p.CardNumber); f != "" {
		p.CardNumber = f
	}
	if f := FormatExpiryDate(p.ExpiryDate); f != "" {
		p.ExpiryDate = f
	}
	m.payment = p
	return nil
}

// Next validates the current step and advances on success.
// On failure the step is unchanged and the field errors are returned as
// model.ValidationErrors. Next from review or committed is ErrWrongStep;
// leaving review requires a commit.
func (m *Machine) Next() (Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs model.ValidationErrors
	var next Step

	switch m.step {
	case StepShipping:
		errs = ValidateShipping(m.shipping)
		next = StepPayment
	case StepPayment:
		errs = ValidatePayment(m.payment)
		next = StepReview
	default:
		return m.step, fmt.Errorf("next from %s step: %w", m.step, model.ErrWrongStep)
	}

	if len(errs) > 0 {
		m.errors = errs
		return m.step, errs
	}

	if m.step == StepPayment && m.payment.PaymentMethod == model.PaymentCashOnDelivery {
		m.payment = m.payment.WithoutCard()
	}

	m.errors = nil
	m.step = next
	return m.step, nil
}

// Back moves one step backwards without validating. Drafts are kept.
func (m *Machine) Back() (Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.step {
	case StepPayment:
		m.step = StepShipping
	case StepReview:
		m.step = StepPayment
	default:
		return m.step, fmt.Errorf("back from %s step: %w", m.step, model.ErrWrongStep)
	}
	m.errors = nil
	return m.step, nil
}

// MarkCommitted moves review to the terminal committed step.
func (m *Machine) MarkCommitted() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.step != StepReview {
		return fmt.Errorf("commit from %s step: %w", m.step, model.ErrWrongStep)
	}
	m.step = StepCommitted
	return nil
}

func copyErrors(errs model.ValidationErrors) model.ValidationErrors {
	if len(errs) == 0 {
		return nil
	}
	out := make(model.ValidationErrors, len(errs))
	for k, v := range errs {
		out[k] = v
	}
	return out
}

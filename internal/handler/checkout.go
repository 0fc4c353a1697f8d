package handler

import (
	"log/slog"
	"net/http"
	"time"

	"shop-session/internal/checkout"
	"shop-session/internal/model"
)

// checkoutResponse is the checkout state as shown to clients.
// Card numbers are masked and the CVV is never echoed.
type checkoutResponse struct {
	Step       checkout.Step          `json:"step"`
	Shipping   model.ShippingInfo     `json:"shipping"`
	Payment    model.PaymentInfo      `json:"payment"`
	Errors     model.ValidationErrors `json:"errors,omitempty"`
	TotalItems int                    `json:"totalItems"`
	TotalPrice string                 `json:"totalPrice"`
}

func (h *Handler) newCheckoutResponse(m *checkout.Machine) checkoutResponse {
	v := m.View()
	totals := h.engine.Cart().Totals()
	return checkoutResponse{
		Step:       v.Step,
		Shipping:   v.Shipping,
		Payment:    maskPayment(v.Payment),
		Errors:     v.Errors,
		TotalItems: totals.TotalItems,
		TotalPrice: model.FormatAmount(totals.TotalPrice),
	}
}

// orderResponse is a committed order as shown to clients.
type orderResponse struct {
	OrderID  string             `json:"orderId"`
	Date     string             `json:"date"`
	Items    []lineView         `json:"items"`
	Total    string             `json:"total"`
	Shipping model.ShippingInfo `json:"shipping"`
	Payment  model.PaymentInfo  `json:"payment"`
}

func newOrderResponse(o *model.Order) orderResponse {
	return orderResponse{
		OrderID:  o.OrderID,
		Date:     o.Date.Format(time.RFC3339),
		Items:    newLineViews(o.Items),
		Total:    model.FormatAmount(o.Total),
		Shipping: o.Shipping,
		Payment:  maskPayment(o.Payment),
	}
}

func maskPayment(p model.PaymentInfo) model.PaymentInfo {
	p.CVV = ""
	if p.CardNumber != "" {
		p.CardNumber = checkout.MaskCardNumber(p.CardNumber)
	}
	return p
}

// handleBeginCheckout starts a checkout prefilled from the profile.
// POST /checkout
func (h *Handler) handleBeginCheckout(w http.ResponseWriter, r *http.Request) {
	m, err := h.engine.BeginCheckout()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "checkout started")
	h.writeJSON(w, http.StatusCreated, h.newCheckoutResponse(m))
}

// handleGetCheckout returns the current checkout.
// GET /checkout
func (h *Handler) handleGetCheckout(w http.ResponseWriter, r *http.Request) {
	m, err := h.engine.Checkout()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.newCheckoutResponse(m))
}

// handleSetShipping replaces the shipping draft.
// PUT /checkout/shipping
func (h *Handler) handleSetShipping(w http.ResponseWriter, r *http.Request) {
	var s model.ShippingInfo
	if err := decodeJSON(w, r, &s); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.editCheckout(w, r, func(m *checkout.Machine) error { return m.SetShipping(s) })
}

// handleSetPayment replaces the payment draft.
// PUT /checkout/payment
func (h *Handler) handleSetPayment(w http.ResponseWriter, r *http.Request) {
	var p model.PaymentInfo
	if err := decodeJSON(w, r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.editCheckout(w, r, func(m *checkout.Machine) error { return m.SetPayment(p) })
}

// handleNext validates the current step and advances.
// POST /checkout/next
func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	h.editCheckout(w, r, func(m *checkout.Machine) error {
		_, err := m.Next()
		return err
	})
}

// handleBack moves one step backwards.
// POST /checkout/back
func (h *Handler) handleBack(w http.ResponseWriter, r *http.Request) {
	h.editCheckout(w, r, func(m *checkout.Machine) error {
		_, err := m.Back()
		return err
	})
}

func (h *Handler) editCheckout(w http.ResponseWriter, r *http.Request, fn func(*checkout.Machine) error) {
	var current *checkout.Machine
	err := h.engine.EditCheckout(func(m *checkout.Machine) error {
		current = m
		return fn(m)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.newCheckoutResponse(current))
}

// handleConfirm commits the checkout and places the order.
// POST /checkout/confirm
func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	o, err := h.engine.Commit(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "order placed",
		slog.String("order_id", o.OrderID),
		slog.String("total", model.FormatAmount(o.Total)),
	)
	h.writeJSON(w, http.StatusCreated, newOrderResponse(o))
}

// handleGetOrder returns the most recent order.
// GET /order
func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o := h.engine.LastOrder()
	if o == nil {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{
			Code:    "no_order",
			Message: "No order has been placed",
		}})
		return
	}
	h.writeJSON(w, http.StatusOK, newOrderResponse(o))
}

package handler

import (
	"log/slog"
	"net/http"

	"shop-session/internal/model"
)

type addItemRequest struct {
	ProductID int `json:"productId"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// lineView is a cart line as shown to clients.
type lineView struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Quantity  int     `json:"quantity"`
	Subtotal  string  `json:"subtotal"`
}

func newLineViews(lines []model.CartLine) []lineView {
	out := make([]lineView, len(lines))
	for i, l := range lines {
		out[i] = lineView{
			ID:        l.ID,
			Title:     l.Title,
			Price:     l.Price,
			Thumbnail: l.Thumbnail,
			Quantity:  l.Quantity,
			Subtotal:  model.FormatAmount(l.Subtotal()),
		}
	}
	return out
}

// cartResponse is the cart plus its derived totals.
type cartResponse struct {
	Items      []lineView `json:"items"`
	TotalItems int        `json:"totalItems"`
	TotalPrice string     `json:"totalPrice"`
}

func newCartResponse(lines []model.CartLine, t model.Totals) cartResponse {
	return cartResponse{
		Items:      newLineViews(lines),
		TotalItems: t.TotalItems,
		TotalPrice: model.FormatAmount(t.TotalPrice),
	}
}

func (h *Handler) writeCart(w http.ResponseWriter) {
	lines, totals := h.engine.Cart().Snapshot()
	h.writeJSON(w, http.StatusOK, newCartResponse(lines, totals))
}

// handleGetCart returns the cart.
// GET /cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w)
}

// handleAddItem adds one unit of a product.
// POST /cart/items
func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.ProductID <= 0 {
		h.writeError(w, r, badRequest("productId must be a positive integer"))
		return
	}

	if _, err := h.engine.AddProduct(r.Context(), req.ProductID); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "cart item added", slog.Int("product_id", req.ProductID))
	h.writeCart(w)
}

// handleSetQuantity sets a line quantity; zero or less removes the line.
// PUT /cart/items/{id}
func (h *Handler) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req setQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Quantity == nil {
		h.writeError(w, r, badRequest("quantity is required"))
		return
	}

	h.engine.Cart().SetQuantity(r.Context(), id, *req.Quantity)
	h.writeCart(w)
}

// handleRemoveItem removes a line. Removing an absent id is not an error.
// DELETE /cart/items/{id}
func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.engine.Cart().Remove(r.Context(), id)
	h.writeCart(w)
}

// handleClearCart empties the cart.
// DELETE /cart
func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	h.engine.Cart().Clear(r.Context())
	h.writeCart(w)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"shop-session/internal/model"
)

// handleListProducts returns one catalog page.
// GET /products?q=&skip=&limit=
func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := model.ProductQuery{Query: r.URL.Query().Get("q")}

	var err error
	if q.Skip, err = queryInt(r, "skip"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if q.Limit, err = queryInt(r, "limit"); err != nil {
		h.writeError(w, r, err)
		return
	}

	page, err := h.engine.Products(r.Context(), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// handleGetProduct returns one product.
// GET /products/{id}
func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	p, err := h.engine.Product(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// pathID parses the {id} URL parameter as a positive product id.
func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, badRequest("id must be a positive integer")
	}
	return id, nil
}

// queryInt parses an optional integer query parameter; absent means 0.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest(key + " must be an integer")
	}
	return n, nil
}

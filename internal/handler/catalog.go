package handler

import (
	"net/http"

	"github.com/go-faster/errors"
)

// listOffers handles GET /api/offers.
func (h *Handler) listOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.offers.ListActive(r.Context())
	if err != nil {
		fail(w, r, errors.Wrap(err, "list offers"))
		return
	}
	out := make([]offerResponse, len(offers))
	for i, o := range offers {
		out[i] = newOfferResponse(o)
	}
	writeJSON(w, http.StatusOK, out)
}

// listProducts handles GET /api/products[?category=].
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		fail(w, r, errors.Wrap(err, "list products"))
		return
	}
	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = newProductResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}

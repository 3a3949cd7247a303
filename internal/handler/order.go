package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/xenking/choco-orders/internal/domain/order"
)

// createOrder handles POST /api/orders.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := optionalUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	if userID == nil && !h.cfg.GuestCheckout {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, errNoUser.Error())
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}

	o, err := h.orders.CreateOrder(r.Context(), req.toDomain(userID))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newOrderResponse(o))
}

// listOwnOrders handles GET /api/orders.
func (h *Handler) listOwnOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	orders, err := h.orders.ListOrders(r.Context(), &userID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderListResponse(orders))
}

// getOrder handles GET /api/orders/{id}. Customers only see their own
// orders; anonymous callers only see guest orders. Anything else is 404.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, err := optionalUser(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	if !ownedBy(o, userID) {
		fail(w, r, order.ErrOrderNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

func ownedBy(o *order.Order, userID *int64) bool {
	if o.UserID == nil || userID == nil {
		return o.UserID == nil && userID == nil
	}
	return *o.UserID == *userID
}

// adminListOrders handles GET /api/admin/orders[?userId=].
func (h *Handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	var userID *int64
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid userId")
			return
		}
		userID = &id
	}

	orders, err := h.orders.ListOrders(r.Context(), userID)
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(orders)))
	writeJSON(w, http.StatusOK, newOrderListResponse(orders))
}

// adminGetOrder handles GET /api/admin/orders/{id}.
func (h *Handler) adminGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

// updateStatus handles PATCH /api/admin/orders/{id}/status.
func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(o))
}

package handler

import (
	"net/http"
	"strconv"
)

// balance handles GET /api/points.
func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	points, err := h.orders.Balance(r.Context(), userID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{UserID: userID, Points: points})
}

// pointsHistory handles GET /api/points/history[?limit=].
func (h *Handler) pointsHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit := h.cfg.HistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid limit")
			return
		}
		limit = min(n, h.cfg.HistoryLimit)
	}

	entries, err := h.orders.PointsHistory(r.Context(), userID, limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newHistoryResponse(entries))
}

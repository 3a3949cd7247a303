package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/choco-orders/internal/domain/order"
)

const (
	codeUnauthorized = "unauthorized"
	codeForbidden    = "forbidden"
	codeBadRequest   = "bad_request"
	codeStorage      = order.CodeStorage
)

// statusByCode maps engine error codes to HTTP statuses.
var statusByCode = map[string]int{
	order.CodeInsufficientPoints: http.StatusUnprocessableEntity,
	order.CodeOfferUnavailable:   http.StatusUnprocessableEntity,
	order.CodeEmptyCart:          http.StatusBadRequest,
	order.CodeInvalidItem:        http.StatusBadRequest,
	order.CodeInvalidShipping:    http.StatusBadRequest,
	order.CodeOrderNotFound:      http.StatusNotFound,
	order.CodeInvalidStatus:      http.StatusBadRequest,
	order.CodeUnknownUser:        http.StatusUnauthorized,
	order.CodeStorage:            http.StatusServiceUnavailable,
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// fail writes the engine error err. Storage failures are logged and their
// details withheld from the client.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	code := order.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	msg := err.Error()
	if code == order.CodeStorage {
		zctx.From(r.Context()).Error("Storage failure", zap.Error(err))
		msg = "storage unavailable, try again"
	}
	writeError(w, status, code, msg)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/choco-orders/internal/domain/auth"
)

// HeaderAPIKey carries the operator API key.
const HeaderAPIKey = "api_key"

// requireAPIKey rejects requests without a valid key carrying scope.
func (h *Handler) requireAPIKey(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, err := h.authn.Authenticate(r.Context(), r.Header.Get(HeaderAPIKey), scope)
			switch {
			case err == nil:
				ctx := zctx.With(r.Context(), zap.String("api_key_id", info.ID))
				next.ServeHTTP(w, r.WithContext(ctx))
			case errors.Is(err, auth.ErrForbidden):
				writeError(w, http.StatusForbidden, codeForbidden, "api key lacks scope "+scope)
			case errors.Is(err, auth.ErrUnauthorized):
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing or invalid api key")
			default:
				zctx.From(r.Context()).Error("Authenticate api key", zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, codeStorage, "authentication unavailable")
			}
		})
	}
}

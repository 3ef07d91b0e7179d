package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-garment/internal/common"
)

type Handler struct {
	Svc *Service
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	identity, ok := common.IdentityFrom(r.Context())
	if !ok || identity.ID == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	var payload Input
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	// the token, not the body, says who is running the sale
	payload.CurrentUser = User{ID: identity.ID, Name: identity.Name}

	out, err := h.Svc.Checkout(r.Context(), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("operator.id", identity.ID),
		attribute.String("batch.number", out.BatchNumber),
		attribute.Int("sale.lines_sold", len(out.SoldProducts)),
	)
	common.JSON(w, http.StatusOK, out)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	var allFailed *AllFailedError
	if errors.As(err, &allFailed) {
		common.JSONError(w, http.StatusUnprocessableEntity, "ALL_LINES_FAILED", "no lines could be sold", allFailed.Errors)
		return
	}
	if errors.Is(err, ErrUserOrOrderNotFound) {
		common.JSONError(w, http.StatusNotFound, "USER_OR_ORDER_NOT_FOUND", err.Error(), nil)
		return
	}
	if errors.Is(err, ErrTxTimeout) {
		common.JSONError(w, http.StatusRequestTimeout, "CHECKOUT_TIMEOUT", "checkout timed out, retry with fewer lines", nil)
		return
	}
	common.Fail(w, err)
}

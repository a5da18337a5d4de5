package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/quillcart/bookstore/internal/domain/auth"
	"github.com/quillcart/bookstore/internal/domain/book"
	"github.com/quillcart/bookstore/internal/domain/cart"
	"github.com/quillcart/bookstore/internal/domain/coupon"
	"github.com/quillcart/bookstore/internal/domain/order"
	"github.com/quillcart/bookstore/internal/domain/payment"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a domain error to an HTTP status and a structured reason.
// Infrastructure errors are logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeJSON(w, status, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	var stockErr *book.InsufficientStockError

	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, order.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, book.ErrNotFound),
		errors.Is(err, payment.ErrTempOrderNotFound):
		return http.StatusNotFound
	case errors.As(err, &stockErr),
		errors.Is(err, cart.ErrEmpty),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrMinimumOrderNotMet),
		errors.Is(err, coupon.ErrNotEligible),
		errors.Is(err, coupon.ErrUsageLimitReached),
		errors.Is(err, order.ErrInvalidState),
		errors.Is(err, order.ErrCancelledOrderImmutable),
		errors.Is(err, order.ErrDeliveredOrderImmutable),
		errors.Is(err, order.ErrAlreadyCancelled),
		errors.Is(err, order.ErrCannotCancelPaidOrder),
		errors.Is(err, order.ErrInvalidStateForCancel),
		errors.Is(err, order.ErrCancellationWindowExpired),
		errors.Is(err, payment.ErrGatewayInit):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quillcart/bookstore/internal/domain/auth"
	"github.com/quillcart/bookstore/internal/domain/order"
	"github.com/quillcart/bookstore/internal/domain/payment"
)

type initPaymentRequest struct {
	CartItems       []orderItemJSON `json:"cartItems"`
	ShippingAddress order.Address   `json:"shippingAddress"`
	CouponName      string          `json:"couponName"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	CustomerEmail   string          `json:"customerEmail"`
}

func (h *Handler) initPayment(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req initPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	url, err := h.session.Init(r.Context(), payment.InitRequest{
		UserID:          id.UserID,
		Items:           toDomainItems(req.CartItems),
		ShippingAddress: req.ShippingAddress,
		CouponCode:      req.CouponName,
		TotalPrice:      req.TotalPrice,
		Customer: payment.Customer{
			Name:  req.ShippingAddress.Name,
			Email: req.CustomerEmail,
			Phone: req.ShippingAddress.Phone,
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		GatewayPageURL string `json:"GatewayPageURL"`
	}{GatewayPageURL: url})
}

// paymentSuccess is the browser coming back from the gateway. It races with
// the IPN on the same tran_id; the reconciler makes that race safe, and a
// lost race still lands the user on the confirmation page.
func (h *Handler) paymentSuccess(w http.ResponseWriter, r *http.Request) {
	tranID := r.PathValue("tran_id")
	lg := zctx.From(r.Context())

	orderID, err := h.reconciler.Success(r.Context(), tranID, gatewayMethod(r))
	switch {
	case err == nil:
		http.Redirect(w, r, fmt.Sprintf("%s?order_id=%d", h.cfg.ConfirmURL, orderID), http.StatusSeeOther)
	case errors.Is(err, payment.ErrTempOrderNotFound):
		// Already reconciled (usually by the IPN). Nothing to do.
		http.Redirect(w, r, h.cfg.ConfirmURL, http.StatusSeeOther)
	default:
		// Gateway users never see raw errors; send them back to checkout.
		lg.Error("payment reconciliation failed",
			zap.String("tran_id", tranID), zap.Error(err))
		http.Redirect(w, r, h.cfg.CheckoutURL, http.StatusSeeOther)
	}
}

// paymentFailed and paymentCancelled create no state: the temp order stays
// until the user retries or the sweeper reclaims it.
func (h *Handler) paymentFailed(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.cfg.CheckoutURL, http.StatusSeeOther)
}

func (h *Handler) paymentCancelled(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.cfg.CheckoutURL, http.StatusSeeOther)
}

// paymentIPN is the gateway's server-to-server notification. A repeated or
// late notification is acknowledged without effect.
func (h *Handler) paymentIPN(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		badRequest(w, "invalid form body")
		return
	}
	tranID := r.PostForm.Get("tran_id")
	if tranID == "" {
		badRequest(w, "tran_id is required")
		return
	}

	orderID, err := h.reconciler.Success(r.Context(), tranID, gatewayMethod(r))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, struct {
			OrderID int64 `json:"order_id"`
		}{OrderID: orderID})
	case errors.Is(err, payment.ErrTempOrderNotFound):
		writeJSON(w, http.StatusOK, struct {
			Status string `json:"status"`
		}{Status: "already reconciled"})
	default:
		writeError(w, r, err)
	}
}

// gatewayMethod extracts the gateway-reported payment instrument, if any.
func gatewayMethod(r *http.Request) string {
	if err := r.ParseForm(); err != nil {
		return ""
	}
	return r.Form.Get("card_type")
}

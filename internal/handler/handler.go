// Package handler exposes the checkout engine over JSON HTTP. It converts
// requests to domain calls, maps domain errors to statuses, and owns no
// business logic of its own.
package handler

import (
	"net/http"

	"github.com/quillcart/bookstore/internal/domain/cart"
	"github.com/quillcart/bookstore/internal/domain/coupon"
	"github.com/quillcart/bookstore/internal/domain/order"
	"github.com/quillcart/bookstore/internal/domain/payment"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ConfirmURL is where the browser lands after a reconciled payment.
	ConfirmURL string
	// CheckoutURL is where failed or cancelled payments send the browser.
	CheckoutURL string
}

// Handler wires the HTTP surface to the domain services.
type Handler struct {
	cfg        Config
	carts      *cart.Service
	coupons    *coupon.Evaluator
	committer  *order.Committer
	lifecycle  *order.Lifecycle
	orders     order.Reader
	session    *payment.Session
	reconciler *payment.Reconciler
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	carts *cart.Service,
	coupons *coupon.Evaluator,
	committer *order.Committer,
	lifecycle *order.Lifecycle,
	orders order.Reader,
	session *payment.Session,
	reconciler *payment.Reconciler,
) *Handler {
	return &Handler{
		cfg:        cfg,
		carts:      carts,
		coupons:    coupons,
		committer:  committer,
		lifecycle:  lifecycle,
		orders:     orders,
		session:    session,
		reconciler: reconciler,
	}
}

// Register mounts all routes on the mux. sec guards the authenticated
// surface; payment callbacks stay open because the gateway cannot present a
// user session.
func (h *Handler) Register(mux *http.ServeMux, sec *Security) {
	user := sec.RequireUser
	admin := sec.RequireAdmin

	mux.Handle("GET /cart", user(h.getCart))
	mux.Handle("POST /cart", user(h.addToCart))
	mux.Handle("DELETE /cart", user(h.clearCart))
	mux.Handle("DELETE /cart/{book_id}", user(h.removeFromCart))

	mux.Handle("POST /orders/validateCoupon", user(h.validateCoupon))
	mux.Handle("POST /orders", user(h.createOrder))
	mux.Handle("GET /orders/mine", user(h.listMyOrders))
	mux.Handle("GET /orders/{id}", user(h.getOrder))
	mux.Handle("PUT /orders/{id}/cancel", user(h.cancelOrder))
	mux.Handle("PUT /orders/{id}/state", admin(h.setOrderState))
	mux.Handle("GET /orders", admin(h.listAllOrders))

	mux.Handle("POST /payment/init", user(h.initPayment))
	mux.HandleFunc("GET /payment/success/{tran_id}", h.paymentSuccess)
	mux.HandleFunc("POST /payment/success/{tran_id}", h.paymentSuccess)
	mux.HandleFunc("GET /payment/fail/{tran_id}", h.paymentFailed)
	mux.HandleFunc("POST /payment/fail/{tran_id}", h.paymentFailed)
	mux.HandleFunc("GET /payment/cancel/{tran_id}", h.paymentCancelled)
	mux.HandleFunc("POST /payment/cancel/{tran_id}", h.paymentCancelled)
	mux.HandleFunc("POST /payment/ipn", h.paymentIPN)
}

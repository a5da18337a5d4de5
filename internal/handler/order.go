package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quillcart/bookstore/internal/domain/auth"
	"github.com/quillcart/bookstore/internal/domain/order"
)

type orderItemJSON struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

type createOrderRequest struct {
	CartItems       []orderItemJSON `json:"cartItems"`
	ShippingAddress order.Address   `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	CouponName      string          `json:"couponName"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	TranID          string          `json:"tran_id"`
	IsPaid          bool            `json:"is_paid"`
}

type orderResponse struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	TotalItems      int             `json:"total_item"`
	ShippingAddress order.Address   `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	TranID          string          `json:"tran_id"`
	IsPaid          bool            `json:"is_paid"`
	State           string          `json:"state"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []orderItemJSON `json:"items"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemJSON, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemJSON{BookID: it.BookID, Quantity: it.Quantity}
	}
	return orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		TotalPrice:      o.TotalPrice,
		TotalItems:      o.TotalItems,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		TranID:          o.TranID,
		IsPaid:          o.IsPaid,
		State:           string(o.State),
		CreatedAt:       o.CreatedAt,
		Items:           items,
	}
}

func toDomainItems(items []orderItemJSON) []order.Item {
	out := make([]order.Item, len(items))
	for i, it := range items {
		out[i] = order.Item{BookID: it.BookID, Quantity: it.Quantity}
	}
	return out
}

func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Code == "" {
		badRequest(w, "coupon code is required")
		return
	}

	breakdown, err := h.coupons.Evaluate(r.Context(), id.UserID, req.Code)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			writeError(w, r, err)
			return
		}
		// Rejection reasons surface as a structured "not valid" answer.
		writeJSON(w, http.StatusBadRequest, struct {
			Valid bool   `json:"valid"`
			Error string `json:"error"`
		}{Valid: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Valid    bool            `json:"valid"`
		Discount decimal.Decimal `json:"discount"`
		NewTotal decimal.Decimal `json:"new_total"`
	}{Valid: true, Discount: breakdown.Discount, NewTotal: breakdown.NewTotal})
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	method := req.PaymentMethod
	if method == "" {
		method = order.MethodCashOnDelivery
	}

	orderID, err := h.committer.Commit(r.Context(), order.CommitRequest{
		UserID:          id.UserID,
		Items:           toDomainItems(req.CartItems),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   method,
		CouponCode:      req.CouponName,
		TotalPrice:      req.TotalPrice,
		TranID:          req.TranID,
		Paid:            req.IsPaid,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		ID int64 `json:"id"`
	}{ID: orderID})
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	orders, err := h.orders.ListByUser(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderListResponse(orders))
}

func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderListResponse(orders))
}

func toOrderListResponse(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	return out
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	orderID, ok := orderIDFromPath(w, r)
	if !ok {
		return
	}

	o, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	// Non-admins may only see their own orders.
	if !id.Admin && o.UserID != id.UserID {
		writeError(w, r, order.ErrNotAuthorized)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	orderID, ok := orderIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.lifecycle.Cancel(r.Context(), orderID, id.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		ID    int64  `json:"id"`
		State string `json:"state"`
	}{ID: orderID, State: string(order.StateCancelled)})
}

func (h *Handler) setOrderState(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	orderID, ok := orderIDFromPath(w, r)
	if !ok {
		return
	}

	var req struct {
		State string `json:"state"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	tr, err := h.lifecycle.SetState(r.Context(), orderID, req.State)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		ID       int64  `json:"id"`
		Previous string `json:"previous_state"`
		Current  string `json:"current_state"`
	}{ID: tr.OrderID, Previous: string(tr.Previous), Current: string(tr.Current)})
}

func orderIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		badRequest(w, "invalid order id")
		return 0, false
	}
	return id, true
}

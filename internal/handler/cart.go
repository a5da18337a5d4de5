package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/quillcart/bookstore/internal/domain/auth"
	"github.com/quillcart/bookstore/internal/domain/cart"
	"github.com/quillcart/bookstore/internal/domain/pricing"
)

type cartLineResponse struct {
	BookID     int64           `json:"book_id"`
	Quantity   int             `json:"quantity"`
	FinalPrice decimal.Decimal `json:"final_price"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

type cartResponse struct {
	Items         []cartLineResponse `json:"items"`
	ItemsSubtotal decimal.Decimal    `json:"items_subtotal"`
	ShippingFee   decimal.Decimal    `json:"shipping_fee"`
	GrandTotal    decimal.Decimal    `json:"grand_total"`
}

func toCartResponse(q pricing.Quote) cartResponse {
	resp := cartResponse{
		Items:         make([]cartLineResponse, len(q.Lines)),
		ItemsSubtotal: q.ItemsSubtotal,
		ShippingFee:   q.ShippingFee,
		GrandTotal:    q.GrandTotal,
	}
	for i, l := range q.Lines {
		resp.Items[i] = cartLineResponse{
			BookID:     l.BookID,
			Quantity:   l.Quantity,
			FinalPrice: l.FinalPrice,
			LineTotal:  l.LineTotal,
		}
	}
	return resp
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	quote, err := h.carts.Quote(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, cart.ErrEmpty) {
			writeJSON(w, http.StatusOK, cartResponse{
				Items:         []cartLineResponse{},
				ItemsSubtotal: decimal.Zero,
				ShippingFee:   decimal.Zero,
				GrandTotal:    decimal.Zero,
			})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(quote))
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req struct {
		BookID   int64 `json:"book_id"`
		Quantity int   `json:"quantity"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := h.carts.Add(r.Context(), id.UserID, req.BookID, req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	bookID, err := strconv.ParseInt(r.PathValue("book_id"), 10, 64)
	if err != nil {
		badRequest(w, "invalid book id")
		return
	}

	if err := h.carts.Remove(r.Context(), id.UserID, bookID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	if err := h.carts.Clear(r.Context(), id.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

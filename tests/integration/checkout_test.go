//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
)

// Seeded catalog (db/seed/books.json): book 6 is "A Philosophy of Software
// Design" at 21.00 with no discount and plenty of stock; book 5 has 9 in
// stock.

type addToCartRequest struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

type orderItemRequest struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity"`
}

type createOrderRequest struct {
	CartItems       []orderItemRequest `json:"cartItems"`
	ShippingAddress shippingAddress    `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	CouponName      string             `json:"couponName,omitempty"`
}

type shippingAddress struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Street   string `json:"street"`
	City     string `json:"city"`
	PostCode string `json:"post_code"`
	Country  string `json:"country"`
}

func testAddress() shippingAddress {
	return shippingAddress{
		Name:     "Test Reader",
		Phone:    "+8801700000000",
		Street:   "1 Library Lane",
		City:     "Dhaka",
		PostCode: "1207",
		Country:  "BD",
	}
}

func clearCart(t *testing.T) {
	t.Helper()
	resp := do(t, http.MethodDelete, "/cart", userToken, nil)
	resp.Body.Close()
}

func TestCart_AddAndQuote(t *testing.T) {
	clearCart(t)

	resp := do(t, http.MethodPost, "/cart", userToken, addToCartRequest{BookID: 6, Quantity: 2})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("add to cart: expected 204, got %d", resp.StatusCode)
	}

	resp = doGet(t, "/cart", userToken)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get cart: expected 200, got %d", resp.StatusCode)
	}

	cart := decodeJSON[cartResponse](t, resp)
	if len(cart.Items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(cart.Items))
	}
	if cart.ItemsSubtotal != 42 {
		t.Errorf("subtotal: got %v, want 42", cart.ItemsSubtotal)
	}
	// Below the free-shipping threshold, so the flat fee applies.
	if cart.ShippingFee != 5 {
		t.Errorf("shipping: got %v, want 5", cart.ShippingFee)
	}
	if cart.GrandTotal != 47 {
		t.Errorf("grand total: got %v, want 47", cart.GrandTotal)
	}
}

func TestCart_EmptyQuoteIsZero(t *testing.T) {
	clearCart(t)

	resp := doGet(t, "/cart", userToken)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cart := decodeJSON[cartResponse](t, resp)
	if len(cart.Items) != 0 || cart.GrandTotal != 0 {
		t.Errorf("expected zeroed cart, got %+v", cart)
	}
}

func TestValidateCoupon(t *testing.T) {
	clearCart(t)
	resp := do(t, http.MethodPost, "/cart", userToken, addToCartRequest{BookID: 6, Quantity: 2})
	resp.Body.Close()

	// WELCOME10: 10% of the 42.00 subtotal.
	resp = do(t, http.MethodPost, "/orders/validateCoupon", userToken, map[string]string{"code": "WELCOME10"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	v := decodeJSON[couponValidationResponse](t, resp)
	if !v.Valid || v.Discount != 4.2 || v.NewTotal != 37.8 {
		t.Errorf("got %+v, want valid with discount 4.2 and new total 37.8", v)
	}
}

func TestValidateCoupon_BelowMinimum(t *testing.T) {
	clearCart(t)
	resp := do(t, http.MethodPost, "/cart", userToken, addToCartRequest{BookID: 6, Quantity: 2})
	resp.Body.Close()

	// BOOKWORM requires a 100.00 minimum order.
	resp = do(t, http.MethodPost, "/orders/validateCoupon", userToken, map[string]string{"code": "BOOKWORM"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	v := decodeJSON[couponValidationResponse](t, resp)
	if v.Valid || v.Error == "" {
		t.Errorf("expected invalid with reason, got %+v", v)
	}
}

func TestValidateCoupon_Unknown(t *testing.T) {
	clearCart(t)
	resp := do(t, http.MethodPost, "/cart", userToken, addToCartRequest{BookID: 6, Quantity: 1})
	resp.Body.Close()

	resp = do(t, http.MethodPost, "/orders/validateCoupon", userToken, map[string]string{"code": "NOPE"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func placeOrder(t *testing.T, req createOrderRequest) int64 {
	t.Helper()

	resp := do(t, http.MethodPost, "/orders", userToken, req)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("place order: expected 201, got %d", resp.StatusCode)
	}
	return decodeJSON[createOrderResponse](t, resp).ID
}

func TestPlaceOrder_CashOnDelivery(t *testing.T) {
	orderID := placeOrder(t, createOrderRequest{
		CartItems:       []orderItemRequest{{BookID: 6, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})

	resp := doGet(t, fmt.Sprintf("/orders/%d", orderID), userToken)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get order: expected 200, got %d", resp.StatusCode)
	}

	o := decodeJSON[orderResponse](t, resp)
	if o.State != "pending" {
		t.Errorf("state: got %q, want pending", o.State)
	}
	if o.IsPaid {
		t.Error("cod order must not be paid")
	}
	if o.PaymentMethod != "cod" {
		t.Errorf("payment method: got %q, want cod", o.PaymentMethod)
	}
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	resp := do(t, http.MethodPost, "/orders", userToken, createOrderRequest{
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	// Book 5 is seeded with 9 in stock.
	resp := do(t, http.MethodPost, "/orders", userToken, createOrderRequest{
		CartItems:       []orderItemRequest{{BookID: 5, Quantity: 100}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	e := decodeJSON[errorResponse](t, resp)
	if e.Error == "" {
		t.Error("expected an error message")
	}
}

func TestCancelOrder(t *testing.T) {
	orderID := placeOrder(t, createOrderRequest{
		CartItems:       []orderItemRequest{{BookID: 6, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})

	resp := do(t, http.MethodPut, fmt.Sprintf("/orders/%d/cancel", orderID), userToken, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", resp.StatusCode)
	}

	// Cancelling again must be rejected.
	again := do(t, http.MethodPut, fmt.Sprintf("/orders/%d/cancel", orderID), userToken, nil)
	defer again.Body.Close()
	if again.StatusCode != http.StatusBadRequest {
		t.Fatalf("double cancel: expected 400, got %d", again.StatusCode)
	}
}

func TestAdminLifecycle(t *testing.T) {
	orderID := placeOrder(t, createOrderRequest{
		CartItems:       []orderItemRequest{{BookID: 6, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})

	for _, state := range []string{"processing", "shipped", "delivered"} {
		resp := do(t, http.MethodPut, fmt.Sprintf("/orders/%d/state", orderID), adminToken,
			map[string]string{"state": state})
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("set state %s: expected 200, got %d", state, resp.StatusCode)
		}
	}

	// Delivered is terminal.
	resp := do(t, http.MethodPut, fmt.Sprintf("/orders/%d/state", orderID), adminToken,
		map[string]string{"state": "processing"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("terminal transition: expected 400, got %d", resp.StatusCode)
	}
}

func TestGetOrder_OtherUserForbidden(t *testing.T) {
	orderID := placeOrder(t, createOrderRequest{
		CartItems:       []orderItemRequest{{BookID: 6, Quantity: 1}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "cod",
	})

	// The admin session belongs to a different user id but has the admin
	// flag, so it may read any order.
	resp := doGet(t, fmt.Sprintf("/orders/%d", orderID), adminToken)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin read: expected 200, got %d", resp.StatusCode)
	}
}

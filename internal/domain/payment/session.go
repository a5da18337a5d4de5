package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quillcart/bookstore/internal/domain/order"
)

// InitRequest is the caller-side input for starting a gateway payment.
type InitRequest struct {
	UserID          int64
	Items           []order.Item
	ShippingAddress order.Address
	CouponCode      string
	TotalPrice      decimal.Decimal
	Customer        Customer
}

// Session starts gateway-hosted payments.
type Session struct {
	tempOrders TempOrderRepository
	gateway    Gateway
}

// NewSession creates a Session.
func NewSession(tempOrders TempOrderRepository, gateway Gateway) *Session {
	return &Session{tempOrders: tempOrders, gateway: gateway}
}

// Init stages the checkout intent durably, then asks the gateway for a
// hosted-payment URL carrying the fresh tran_id. The TempOrder is written in
// its own transaction before the gateway round-trip: the gateway call can
// take arbitrary wall-clock time and must not hold a database transaction
// open. A failed init leaves the TempOrder behind for the sweeper.
func (s *Session) Init(ctx context.Context, req InitRequest) (redirectURL string, err error) {
	if len(req.Items) == 0 {
		return "", order.ErrEmptyItems
	}

	tranID := uuid.New().String()

	if err := s.tempOrders.Create(ctx, &TempOrder{
		TranID:          tranID,
		UserID:          req.UserID,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		CouponCode:      req.CouponCode,
		TotalPrice:      req.TotalPrice,
	}); err != nil {
		return "", errors.Wrap(err, "stage temp order")
	}

	url, err := s.gateway.CreateSession(ctx, SessionRequest{
		TranID:   tranID,
		Amount:   req.TotalPrice,
		Customer: req.Customer,
		Address:  req.ShippingAddress,
	})
	if err != nil {
		return "", errors.Wrap(ErrGatewayInit, err.Error())
	}
	if url == "" {
		return "", ErrGatewayInit
	}
	return url, nil
}

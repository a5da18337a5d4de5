package payment

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/quillcart/bookstore/internal/domain/order"
)

// Reconciler consumes gateway callbacks. The browser redirect and the
// server-to-server notification can both arrive for the same tran_id, in any
// order; reconciliation must therefore execute effectively once.
type Reconciler struct {
	store     Store
	committer *order.Committer
}

// NewReconciler creates a Reconciler.
func NewReconciler(store Store, committer *order.Committer) *Reconciler {
	return &Reconciler{store: store, committer: committer}
}

// Success reconciles a successful payment: consume the TempOrder, commit the
// order as paid, and append the audit log row, all in one transaction. The
// temp order delete serializes concurrent attempts — whichever transaction
// loses the race sees no row and returns ErrTempOrderNotFound without
// creating anything.
//
// method is the gateway-reported payment instrument; an empty value is
// recorded as the generic gateway method.
func (r *Reconciler) Success(ctx context.Context, tranID, method string) (int64, error) {
	if method == "" {
		method = order.MethodGateway
	}

	var orderID int64
	err := r.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		tmp, err := tx.ConsumeTempOrder(ctx, tranID)
		if err != nil {
			return err
		}

		id, err := r.committer.CommitIn(ctx, tx, order.CommitRequest{
			UserID:          tmp.UserID,
			Items:           tmp.Items,
			ShippingAddress: tmp.ShippingAddress,
			PaymentMethod:   method,
			CouponCode:      tmp.CouponCode,
			TotalPrice:      tmp.TotalPrice,
			TranID:          tranID,
			Paid:            true,
		})
		if err != nil {
			return errors.Wrap(err, "commit order")
		}

		if err := tx.InsertPaymentLog(ctx, &Log{
			TranID:        tranID,
			UserID:        tmp.UserID,
			Amount:        tmp.TotalPrice,
			PaymentMethod: method,
			OrderID:       id,
		}); err != nil {
			return errors.Wrap(err, "insert payment log")
		}

		orderID = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	return orderID, nil
}

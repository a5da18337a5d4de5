package app

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/quillcart/bookstore/internal/domain/payment"
)

// runSweeper periodically deletes temp orders older than the configured TTL.
// Temp orders reserve nothing, so reclamation is just cleanup: a user who
// abandoned the gateway page and never came back leaves one row behind.
func runSweeper(ctx context.Context, tempOrders payment.TempOrderRepository, cfg TempOrderConfig) error {
	lg := zctx.From(ctx).Named("sweeper")

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cutoff := time.Now().Add(-cfg.TTL)
			n, err := tempOrders.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				lg.Error("Sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				lg.Info("Reclaimed abandoned temp orders", zap.Int64("count", n))
			}
		}
	}
}

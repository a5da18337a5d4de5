package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quillcart/bookstore/internal/domain/cart"
	"github.com/quillcart/bookstore/internal/domain/coupon"
	"github.com/quillcart/bookstore/internal/domain/order"
	"github.com/quillcart/bookstore/internal/domain/payment"
	"github.com/quillcart/bookstore/internal/gateway"
	"github.com/quillcart/bookstore/internal/handler"
	"github.com/quillcart/bookstore/internal/repository"
	"github.com/quillcart/bookstore/pkg/health"
	"github.com/quillcart/bookstore/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server and the temp order
// sweeper, and handles graceful shutdown. It is the single wiring point for
// the application.
func Run(ctx context.Context, lg *zap.Logger, _ *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", pool.Ping)

	// Repositories.
	bookRepo := repository.NewBookRepository(pool)
	cartRepo := repository.NewCartRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	tempOrderRepo := repository.NewTempOrderRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	orderStore := repository.NewOrderStore(pool)
	paymentStore := repository.NewPaymentStore(pool)

	// Domain services.
	cartSvc := cart.NewService(cartRepo, bookRepo)
	evaluator := coupon.NewEvaluator(couponRepo, cartSvc)
	committer := order.NewCommitter(orderStore)
	lifecycle := order.NewLifecycle(orderStore)
	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:         cfg.Gateway.BaseURL,
		StoreID:         cfg.Gateway.StoreID,
		StorePassword:   cfg.Gateway.StorePassword,
		CallbackBaseURL: cfg.Gateway.CallbackBaseURL,
		Timeout:         cfg.Gateway.Timeout,
	})
	paySession := payment.NewSession(tempOrderRepo, gatewayClient)
	reconciler := payment.NewReconciler(paymentStore, committer)

	// HTTP surface.
	h := handler.New(
		handler.Config{ConfirmURL: cfg.ConfirmURL, CheckoutURL: cfg.CheckoutURL},
		cartSvc, evaluator, committer, lifecycle, orderRepo, paySession, reconciler,
	)
	sec := handler.NewSecurity(sessionRepo, []byte(cfg.SessionPepper))

	mux := http.NewServeMux()
	mux.Handle("GET /livez", healthSvc.LiveHandler())
	mux.Handle("GET /readyz", healthSvc.ReadyHandler())
	h.Register(mux, sec)

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimit.Rate, cfg.RateLimit.Burst)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			limiter.Middleware(),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runSweeper(ctx, tempOrderRepo, cfg.TempOrders)
	})
	g.Go(func() error {
		runLimiterCleanup(ctx, limiter)
		return nil
	})
	g.Go(func() error {
		// Graceful shutdown: wait for cancellation, drain, then stop.
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		healthSvc.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	return g.Wait()
}

func runLimiterCleanup(ctx context.Context, limiter *httpmiddleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Cleanup()
		}
	}
}

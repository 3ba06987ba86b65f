package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/lazzat-eats/order-engine/internal/domain/delivery"
	"github.com/lazzat-eats/order-engine/internal/domain/loyalty"
	"github.com/lazzat-eats/order-engine/internal/domain/order"
	"github.com/lazzat-eats/order-engine/internal/domain/promotion"
	"github.com/lazzat-eats/order-engine/internal/geocode"
	"github.com/lazzat-eats/order-engine/internal/handler"
	"github.com/lazzat-eats/order-engine/internal/repository"
	"github.com/lazzat-eats/order-engine/pkg/health"
	"github.com/lazzat-eats/order-engine/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
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
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := repository.NewProductRepository(pool)
	promotionRepo := repository.NewPromotionRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	loyaltyRepo := repository.NewLoyaltyRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	deliveryCfgRepo := repository.NewDeliveryConfigRepository(pool)
	apikeyRepo := repository.NewAPIKeyRepository(pool)

	// Checkout metrics.
	meter := m.MeterProvider().Meter("order-engine")
	committed, err := meter.Int64Counter("orders_committed_total")
	if err != nil {
		return errors.Wrap(err, "create committed counter")
	}
	sideEffectFailures, err := meter.Int64Counter("order_side_effect_failures_total")
	if err != nil {
		return errors.Wrap(err, "create side effect counter")
	}

	// Domain services.
	promotionEngine := promotion.NewEngine(promotionRepo)
	ledger := loyalty.NewLedger(loyaltyRepo)
	calculator := delivery.NewCalculator(delivery.Coordinates{Lat: cfg.Store.Lat, Lng: cfg.Store.Lng})
	geocoder := geocode.New(cfg.Geocode.BaseURL, cfg.Geocode.Timeout)
	assembler := order.NewAssembler(
		productRepo, promotionEngine, ledger, calculator, deliveryCfgRepo,
		customerRepo, orderRepo, geocoder,
		order.Metrics{Committed: committed, SideEffectFailures: sideEffectFailures},
	)

	// HTTP handlers.
	h := handler.New(productRepo, assembler, calculator, deliveryCfgRepo)
	security := handler.APIKeySecurity(apikeyRepo, []byte(cfg.APIKeyPepper))

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", h.Routes(security)))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
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
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dinehall/orderd/internal/api"
	"github.com/dinehall/orderd/internal/domain/order"
	"github.com/dinehall/orderd/internal/events"
	"github.com/dinehall/orderd/internal/storage/postgres"
	"github.com/dinehall/orderd/pkg/health"
	"github.com/dinehall/orderd/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	maxAmount, err := decimal.NewFromString(cfg.MaxOrderAmount)
	if err != nil {
		return errors.Wrap(err, "parse max order amount")
	}

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Lifecycle event sink: AMQP when configured, log otherwise.
	var sink order.EventSink
	if cfg.AMQPURL != "" {
		amqpSink, err := events.NewAMQPSink(cfg.AMQPURL)
		if err != nil {
			return errors.Wrap(err, "create amqp sink")
		}
		defer amqpSink.Close()
		sink = amqpSink
	} else {
		lg.Info("No AMQP URL configured, logging lifecycle events")
		sink = events.NewLogSink(lg)
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.SetReady(true)

	// Domain services.
	store := postgres.NewStore(pool)
	orderSvc := order.NewService(store, sink, order.ServiceConfig{MaxOrderAmount: maxAmount})
	queries := order.NewQueries(postgres.NewOrderQueryRepository(pool), nil)

	// HTTP surface: health endpoints + instrumented API routes on one server.
	apiMux := http.NewServeMux()
	api.NewHandler(orderSvc, queries).Register(apiMux)

	apiHandler := otelhttp.NewHandler(apiMux, "orderd-api",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", apiHandler)
	// Customer self-service routes carry a per-client rate limit on top of
	// the shared API chain.
	mux.Handle("/api/public/", httpmiddleware.Wrap(apiHandler,
		httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
	))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORSAllowOrigins,
			}),
		),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		// Graceful shutdown: stop advertising readiness, drain, then stop.
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

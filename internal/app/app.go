// Package app wires the storefront dependencies and runs the service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/order"
	"github.com/utafrali/storefront/internal/pricing"
	"github.com/utafrali/storefront/internal/repository/postgres"
	redisrepo "github.com/utafrali/storefront/internal/repository/redis"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/tracing"
)

const (
	serviceName = "storefront"

	fulfillmentGroup = "storefront-fulfillment-status"
	idempotencyTTL   = 24 * time.Hour
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	fulfillment    *pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.Init(ctx, cfg.Tracing(serviceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	engine, err := pricing.NewEngine(cfg.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("pricing engine: %w", err)
	}

	// PostgreSQL holds placed orders.
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}
	if err := database.Migrate(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if cfg.SlowQuery > 0 {
		database.SetSlowQueryLogging(cfg.SlowQuery, logger)
	}

	// Redis holds cart snapshots and consumed event ids.
	rdb, err := database.NewRedisClient(ctx, cfg.Redis(), logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// Kafka producer. A broker outage degrades event delivery but does not
	// stop the storefront from taking orders.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	if err := producer.Ping(ctx); err != nil {
		logger.Warn("kafka unreachable, continuing in degraded mode", slog.String("error", err.Error()))
	} else {
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	products := newCatalog(cfg, logger)

	// Build the dependency graph.
	orderRepo := postgres.NewOrderRepository(pool)
	sessionRepo := redisrepo.NewCartSessionRepository(rdb, cfg.CartTTL())
	eventProducer := event.NewProducer(producer, logger)
	assembler := order.NewAssembler(engine, order.WithCurrency(cfg.Currency))

	sessions := service.NewSessions(sessionRepo, cfg.CartTTL(), logger)
	cartService := service.NewCartService(sessions, products, engine, eventProducer, logger, cfg.Currency)
	checkoutService := service.NewCheckoutService(sessions, assembler, orderRepo, eventProducer, logger)
	orderService := service.NewOrderService(orderRepo, eventProducer, logger)

	// Fulfillment status updates arrive over Kafka as well as HTTP.
	var fulfillment *pkgkafka.Consumer
	var dlq *pkgkafka.DLQProducer
	if cfg.FulfillmentConsumerEnabled {
		dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		seen := pkgkafka.NewRedisIdempotencyStore(rdb, fulfillmentGroup, idempotencyTTL)
		consumer := event.NewConsumer(orderService, logger)
		fulfillment = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  fulfillmentGroup,
			Topic:    event.TopicFulfillmentStatusChanged,
			MinBytes: 1,
			MaxBytes: 10e6,
		}, pkgkafka.IdempotentHandler(seen, consumer.HandleFulfillmentStatusChanged, logger), logger).WithDeadLetter(dlq)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", sessionRepo.Ping)
	healthHandler.RegisterNonCritical("kafka", producer.Ping)

	// HTTP router.
	router := handler.NewRouter(handler.Services{
		Cart:     cartService,
		Checkout: checkoutService,
		Orders:   orderService,
	}, healthHandler, logger, handler.RouterOptions{
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
		RateLimit:         cfg.RateLimit,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		rdb:            rdb,
		producer:       producer,
		dlq:            dlq,
		fulfillment:    fulfillment,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// newCatalog returns the remote catalog client, or the demo in-memory
// catalog when no catalog URL is configured.
func newCatalog(cfg *config.Config, logger *slog.Logger) catalog.Catalog {
	if cfg.CatalogURL == "" {
		logger.Warn("CATALOG_SERVICE_URL not set, serving the demo catalog")
		return catalog.NewMemoryCatalog(catalog.DemoProducts()...)
	}

	client := httpclient.NewCircuitBreakerClient(httpclient.New(cfg.CatalogHTTP), cfg.CircuitBreaker(), logger).
		WithFallback(catalog.CircuitOpenFallback)
	logger.Info("using remote catalog", slog.String("url", cfg.CatalogURL))
	return catalog.NewHTTPCatalog(client, cfg.CatalogURL, logger)
}

// Run starts the HTTP server and the fulfillment consumer, then blocks until
// the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.fulfillment != nil {
		go func() {
			if err := a.fulfillment.Start(ctx); err != nil {
				errCh <- fmt.Errorf("fulfillment consumer: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka consumer, Kafka producers, Redis, PostgreSQL.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// Flush spans after the HTTP drain so in-flight request spans are kept.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.fulfillment != nil {
		if err := a.fulfillment.Close(); err != nil {
			a.logger.Error("fulfillment consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

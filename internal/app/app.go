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

	"github.com/utafrali/reviewfeed/internal/augment"
	"github.com/utafrali/reviewfeed/internal/augment/gemini"
	"github.com/utafrali/reviewfeed/internal/augment/template"
	"github.com/utafrali/reviewfeed/internal/config"
	"github.com/utafrali/reviewfeed/internal/event"
	handler "github.com/utafrali/reviewfeed/internal/handler/http"
	"github.com/utafrali/reviewfeed/internal/repository"
	"github.com/utafrali/reviewfeed/internal/repository/memory"
	"github.com/utafrali/reviewfeed/internal/repository/postgres"
	redisrepo "github.com/utafrali/reviewfeed/internal/repository/redis"
	"github.com/utafrali/reviewfeed/internal/service"
	"github.com/utafrali/reviewfeed/internal/stats"
	"github.com/utafrali/reviewfeed/migrations"
	"github.com/utafrali/reviewfeed/pkg/database"
	"github.com/utafrali/reviewfeed/pkg/health"
	"github.com/utafrali/reviewfeed/pkg/httpclient"
	pkgkafka "github.com/utafrali/reviewfeed/pkg/kafka"
	"github.com/utafrali/reviewfeed/pkg/middleware"
	"github.com/utafrali/reviewfeed/pkg/tracing"
)

// App wires together all dependencies and runs the review service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	reviews        *service.ReviewService
	limiter        *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing(handler.ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		tracerShutdown: tracerShutdown,
	}
	healthHandler := health.NewHandler(handler.ServiceName)

	repo, err := a.openStore(ctx, healthHandler)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	augmenter, err := newAugmenter(cfg, logger)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	// Kafka is optional; events are dropped when it is disabled.
	var events service.EventPublisher = event.Noop{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		events = event.NewProducer(a.producer, logger)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	a.reviews = service.NewReviewService(
		repo,
		augmenter,
		stats.NewAggregator(),
		events,
		logger,
		service.Options{AugmentTimeout: cfg.AugmentTimeout()},
	)

	// Seed the stats rollup from the durable store.
	if err := a.reviews.RefreshStats(ctx); err != nil {
		a.closeResources()
		return nil, fmt.Errorf("load review stats: %w", err)
	}
	snap := a.reviews.Stats()
	logger.Info("review stats loaded",
		slog.Int64("total_reviews", snap.TotalReviews),
		slog.Float64("avg_rating", snap.AvgRating),
	)

	logger.Info("readiness checks registered", slog.Any("checks", healthHandler.Names()))

	a.limiter = middleware.NewRateLimiter(cfg.SubmitRateLimitRPS, cfg.SubmitRateLimitBurst, logger)

	// HTTP router.
	router := handler.NewRouter(a.reviews, healthHandler, handler.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		PprofAllowedCIDRs:  cfg.PprofAllowedCIDRs,
		TrustedProxyCIDRs:  cfg.TrustedProxyCIDRs,
		SubmitLimiter:      a.limiter,
	}, logger)

	// WriteTimeout leaves room for a full augmentation round trip.
	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.AugmentTimeout() + 10*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// openStore connects the configured backend and registers its health check.
func (a *App) openStore(ctx context.Context, hh *health.Handler) (repository.ReviewRepository, error) {
	cfg, logger := a.cfg, a.logger

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, handler.ServiceName); err != nil {
			logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}

		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")

		if threshold := cfg.SlowQueryThreshold(); threshold > 0 {
			database.SetSlowQueryLogging(threshold, logger)
		}

		hh.RegisterCritical("postgres", pool.Ping)
		return postgres.NewReviewRepository(pool), nil

	case config.BackendRedis:
		rdb, err := database.NewRedisClient(ctx, cfg.Redis(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.rdb = rdb
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		hh.RegisterCritical("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		return redisrepo.NewReviewRepository(rdb), nil

	case config.BackendMemory:
		logger.Warn("using in-memory review store, data is lost on restart")
		return memory.NewReviewRepository(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// newAugmenter builds the configured provider wrapped with metrics and tracing.
func newAugmenter(cfg *config.Config, logger *slog.Logger) (augment.Augmenter, error) {
	switch cfg.AugmentProvider {
	case config.ProviderTemplate:
		return augment.Instrument(config.ProviderTemplate, template.New()), nil

	case config.ProviderGemini:
		cbCfg := cfg.CircuitBreaker(config.ProviderGemini)
		doer := httpclient.NewCircuitBreakerClient(httpclient.New(httpclient.DefaultConfig()), cbCfg, logger)
		logger.Info("circuit breaker initialized",
			slog.String("name", cbCfg.Name),
			slog.Uint64("max_requests", uint64(cbCfg.MaxRequests)),
			slog.Int("timeout_seconds", cfg.CBTimeout),
			slog.Uint64("min_requests", uint64(cbCfg.MinRequests)),
		)

		client, err := gemini.New(gemini.Config{
			APIKey:  cfg.GeminiAPIKey,
			BaseURL: cfg.GeminiBaseURL,
			Model:   cfg.GeminiModel,
		}, doer, logger)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		return augment.Instrument(config.ProviderGemini, client), nil
	}
	return nil, fmt.Errorf("unknown augmentation provider %q", cfg.AugmentProvider)
}

// Run starts the HTTP server and background workers and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go a.limiter.Run(ctx)
	if interval := a.cfg.StatsRefreshInterval(); interval > 0 {
		go a.reviews.RunStatsRefresh(ctx, interval)
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka producer, then the store connection.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests, which may be waiting on augmentation.
	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.AugmentTimeout()+5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources flushes spans and closes the producer and store clients.
func (a *App) closeResources() error {
	var errs []error

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.tracerShutdown = nil
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.producer = nil
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.rdb = nil
	}

	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}

	return errors.Join(errs...)
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/reviewfeed/internal/service"
	"github.com/utafrali/reviewfeed/pkg/health"
	"github.com/utafrali/reviewfeed/pkg/middleware"
)

// ServiceName labels metrics and spans emitted by the router.
const ServiceName = "review-service"

// RouterConfig carries the HTTP-facing settings of the service.
type RouterConfig struct {
	CORSAllowedOrigins []string
	PprofAllowedCIDRs  []string
	TrustedProxyCIDRs  []string
	// SubmitLimiter throttles POST /api/reviews per client. Nil disables it.
	SubmitLimiter *middleware.RateLimiter
}

// NewRouter creates a chi router with all review service routes registered.
func NewRouter(
	reviewService *service.ReviewService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	probes := []string{"/health", "/health/live", "/health/ready", "/metrics"}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.TrustedProxies(cfg.TrustedProxyCIDRs, logger))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins...))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger, probes...))
	r.Use(middleware.Tracing(ServiceName, probes...))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))

	// Health check endpoints
	r.Get("/health", healthHandler.ServiceHandler())
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	reviewHandler := NewReviewHandler(reviewService, logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NoStore())

		r.Group(func(r chi.Router) {
			if cfg.SubmitLimiter != nil {
				r.Use(cfg.SubmitLimiter.Middleware)
			}
			r.Post("/reviews", reviewHandler.Submit)
		})
		r.Get("/reviews", reviewHandler.List)

		// Admin
		r.Get("/admin/stats", reviewHandler.Stats)
	})

	return r
}

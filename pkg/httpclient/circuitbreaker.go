package httpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without contacting the upstream while the
// breaker is open or its half-open probe quota is used up.
var ErrCircuitOpen = gobreaker.ErrOpenState

// CircuitBreakerConfig tunes the breaker in front of one upstream.
type CircuitBreakerConfig struct {
	// Name labels logs and metrics.
	Name string

	// MaxRequests probes are let through while half-open.
	MaxRequests uint32

	// Interval clears failure counts while closed. 0 never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// The breaker trips once at least MinRequests calls were counted and
	// FailureRatio of them failed.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultCircuitBreakerConfig returns the settings used for model APIs.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

func (c CircuitBreakerConfig) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < c.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

var (
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "upstream_circuit_breaker_state",
			Help: "Breaker state per upstream (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	breakerRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_circuit_breaker_rejected_total",
			Help: "Calls failed fast without reaching the upstream",
		},
		[]string{"name"},
	)
)

// CircuitBreakerClient sends requests through a Client guarded by a
// circuit breaker. 5xx and 429 responses count as failures.
type CircuitBreakerClient struct {
	client  *Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	name    string
	logger  *slog.Logger
}

// NewCircuitBreakerClient wraps client with a breaker configured by cfg.
func NewCircuitBreakerClient(client *Client, cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	c := &CircuitBreakerClient{client: client, name: cfg.Name, logger: logger}
	c.breaker = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   cfg.readyToTrip,
		IsSuccessful:  countsAsSuccess,
		OnStateChange: c.onStateChange,
	})
	breakerState.WithLabelValues(cfg.Name).Set(float64(gobreaker.StateClosed))
	return c
}

// countsAsSuccess does not hold a caller hanging up against the upstream.
func countsAsSuccess(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

func (c *CircuitBreakerClient) onStateChange(name string, from, to gobreaker.State) {
	level := slog.LevelWarn
	if to == gobreaker.StateClosed {
		level = slog.LevelInfo
	}
	c.logger.Log(context.Background(), level, "circuit breaker state change",
		slog.String("breaker", name),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
	breakerState.WithLabelValues(name).Set(float64(to))
}

// Do executes req through the breaker. Failing responses are returned as
// *UpstreamError with the body consumed; rejected calls wrap ErrCircuitOpen.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if shouldRetryStatus(resp.StatusCode) {
			return nil, ParseResponseError(resp, c.name)
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		breakerRejected.WithLabelValues(c.name).Inc()
		return nil, fmt.Errorf("%s: %w", c.name, ErrCircuitOpen)
	}
	return resp, err
}

// State returns the current breaker state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}

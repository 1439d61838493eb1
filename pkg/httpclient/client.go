package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Config tunes retries and pooling for calls to one upstream API.
type Config struct {
	Timeout         time.Duration // per attempt
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration // also caps an upstream Retry-After
	MaxConnsPerHost int
}

// DefaultConfig suits a hosted model API answering in seconds.
func DefaultConfig() Config {
	return Config{
		Timeout:         15 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    500 * time.Millisecond,
		RetryWaitMax:    4 * time.Second,
		MaxConnsPerHost: 32,
	}
}

// Client retries transient upstream failures with jittered exponential
// backoff over a pooled transport.
type Client struct {
	hc  *http.Client
	cfg Config
}

// New builds a Client with its own transport.
func New(cfg Config) *Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return NewWithHTTPClient(&http.Client{Transport: transport, Timeout: cfg.Timeout}, cfg)
}

// NewWithHTTPClient retries over hc, such as an httptest.Server's client.
func NewWithHTTPClient(hc *http.Client, cfg Config) *Client {
	return &Client{hc: hc, cfg: cfg}
}

// Do sends req under ctx. Network errors, 429 and 5xx other than 501 are
// retried up to MaxRetries times; the body is replayed through req.GetBody.
// Once retries run out the last response is returned as is, so callers
// still see the upstream status.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)

	var wait time.Duration
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
			if err := rewindBody(req); err != nil {
				return nil, err
			}
		}
		final := attempt >= c.cfg.MaxRetries

		resp, err := c.hc.Do(req)
		switch {
		case err != nil:
			if final || !isRetryableError(ctx, err) {
				return nil, fmt.Errorf("%s %s: giving up after %d attempts: %w", req.Method, req.URL.Host, attempt+1, err)
			}
			wait = c.backoff(attempt + 1)
		case !final && shouldRetryStatus(resp.StatusCode):
			wait = c.retryAfter(resp, attempt+1)
			drain(resp)
		default:
			return resp, nil
		}
	}
}

// backoff is RetryWaitMin doubled per attempt, capped at RetryWaitMax, with
// up to 25% jitter either way so concurrent callers spread out.
func (c *Client) backoff(attempt int) time.Duration {
	wait := c.cfg.RetryWaitMin << (attempt - 1)
	if wait <= 0 || wait > c.cfg.RetryWaitMax {
		wait = c.cfg.RetryWaitMax
	}
	jitter := time.Duration(float64(wait) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- retry jitter
	return wait + jitter
}

// retryAfter honors an upstream Retry-After given in seconds, capped at
// RetryWaitMax, and falls back to backoff.
func (c *Client) retryAfter(resp *http.Response, attempt int) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return c.backoff(attempt)
	}
	return min(time.Duration(secs)*time.Second, c.cfg.RetryWaitMax)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func rewindBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	if req.GetBody == nil {
		return errors.New("request body cannot be replayed for retry")
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("rewind request body: %w", err)
	}
	req.Body = body
	return nil
}

func shouldRetryStatus(status int) bool {
	return status == http.StatusTooManyRequests ||
		(status >= 500 && status != http.StatusNotImplemented)
}

// isRetryableError accepts network errors while the caller is still waiting.
func isRetryableError(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

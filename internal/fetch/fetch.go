// Package fetch provides the resilient HTTP GET client used for both
// listing and detail pages: bounded retries, status-based exponential
// backoff, and configurable headers.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/smorales/jobharvester/internal/metrics"
)

// Client fetches one URL and returns the response body. Implementations
// retry transient failures internally; an error means the URL could not
// be fetched within the retry budget.
type Client interface {
	Get(ctx context.Context, url string, headers http.Header) ([]byte, error)
}

// Error is the single failure kind surfaced by the client. Transport
// failures and HTTP status failures collapse into it so callers never
// need to distinguish the two. StatusCode is zero for transport faults.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// page is one raw HTTP exchange before the retry policy has judged it.
type page struct {
	status int
	body   []byte
}

// rawFetcher performs a single HTTP GET with no retry logic.
type rawFetcher interface {
	fetch(ctx context.Context, url string, headers http.Header) (page, error)
}

// Config tunes the retrying client.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int
	BackoffBase time.Duration
}

// HTTPClient is the retrying Client implementation backed by Colly.
type HTTPClient struct {
	raw         rawFetcher
	maxAttempts int
	backoffBase time.Duration
	logger      *zap.Logger
}

// New constructs an HTTPClient from config.
func New(cfg Config, logger *zap.Logger) (*HTTPClient, error) {
	raw, err := newCollyFetcher(cfg)
	if err != nil {
		return nil, fmt.Errorf("init colly fetcher: %w", err)
	}
	return newWithRaw(raw, cfg, logger), nil
}

func newWithRaw(raw rawFetcher, cfg Config, logger *zap.Logger) *HTTPClient {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 5
	}
	base := cfg.BackoffBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	return &HTTPClient{
		raw:         raw,
		maxAttempts: attempts,
		backoffBase: base,
		logger:      logger,
	}
}

// Get fetches url, retrying on 429/500/502/503/504 and transport
// failures with exponential backoff. Any other non-200 status fails
// immediately.
func (c *HTTPClient) Get(ctx context.Context, url string, headers http.Header) ([]byte, error) {
	var lastErr error
	var lastStatus int

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			metrics.ObserveRetry()
			if err := sleep(ctx, c.backoff(attempt)); err != nil {
				return nil, &Error{URL: url, Err: err}
			}
		}

		pg, err := c.raw.fetch(ctx, url, headers)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &Error{URL: url, Err: ctx.Err()}
			}
			lastErr = err
			lastStatus = 0
			metrics.ObservePage(0)
			c.logger.Warn("fetch transport failure",
				zap.String("url", url),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}

		metrics.ObservePage(pg.status)
		if pg.status == http.StatusOK {
			return pg.body, nil
		}
		if !retryableStatus(pg.status) {
			return nil, &Error{URL: url, StatusCode: pg.status}
		}
		lastErr = nil
		lastStatus = pg.status
		c.logger.Warn("fetch retryable status",
			zap.String("url", url),
			zap.Int("status", pg.status),
			zap.Int("attempt", attempt+1),
		)
	}

	return nil, &Error{URL: url, StatusCode: lastStatus, Err: lastErr}
}

// backoff returns the wait before the given attempt: base, doubling.
func (c *HTTPClient) backoff(attempt int) time.Duration {
	return c.backoffBase << (attempt - 1)
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

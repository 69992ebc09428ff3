package social

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hpungsan/remixer/internal/cache"
	"github.com/hpungsan/remixer/internal/errors"
	"github.com/hpungsan/remixer/internal/logging"
	"github.com/hpungsan/remixer/internal/metrics"
)

// serviceName labels upstream errors.
const serviceName = "Twitter"

// Rate limit headers sent with 429 responses.
const (
	HeaderRateLimitReset     = "x-rate-limit-reset"
	HeaderRateLimitRemaining = "x-rate-limit-remaining"
)

// Retry defaults.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// maxDiagnosticBytes bounds upstream error bodies copied into logs.
const maxDiagnosticBytes = 512

// FetcherConfig configures the retry policy.
type FetcherConfig struct {
	// MaxRetries is the total number of attempts.
	MaxRetries int

	// BaseDelay is the delay after the first failed attempt; attempt i
	// waits BaseDelay * 2^i.
	BaseDelay time.Duration
}

// Fetcher wraps a Client with the response cache and a bounded
// exponential-backoff retry policy.
type Fetcher struct {
	client     *Client
	cache      *cache.TTLCache
	maxRetries int
	baseDelay  time.Duration

	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *zap.Logger
	metrics *metrics.Metrics

	// inflight collapses concurrent fetches of the same URL.
	inflight singleflight.Group
}

// FetcherOption customizes a Fetcher.
type FetcherOption func(*Fetcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = logging.OrNop(l) }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) FetcherOption {
	return func(f *Fetcher) { f.metrics = m }
}

// WithClock replaces time.Now for rate limit reset arithmetic.
func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) { f.now = now }
}

// WithSleep replaces the backoff sleep (tests record delays instead).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) FetcherOption {
	return func(f *Fetcher) { f.sleep = sleep }
}

// NewFetcher creates a Fetcher. Zero config values fall back to defaults.
func NewFetcher(client *Client, c *cache.TTLCache, cfg FetcherConfig, opts ...FetcherOption) *Fetcher {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BaseDelay < 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}

	f := &Fetcher{
		client:     client,
		cache:      c,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		now:        time.Now,
		sleep:      sleepContext,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Post returns the raw lookup payload for a post. An upstream 404 is
// reported as NOT_FOUND.
func (f *Fetcher) Post(ctx context.Context, id string) ([]byte, error) {
	payload, err := f.FetchWithPolicy(ctx, f.client.PostURL(id))
	if err != nil {
		return nil, notFoundAs(err, id)
	}
	return payload, nil
}

// Conversation returns the raw conversation search payload.
func (f *Fetcher) Conversation(ctx context.Context, conversationID string) ([]byte, error) {
	return f.FetchWithPolicy(ctx, f.client.ConversationURL(conversationID))
}

// FetchWithPolicy returns the JSON payload for rawURL.
//
// A cached payload younger than the cache TTL is returned without any
// network call. Otherwise up to MaxRetries attempts are made. A 429 on the
// final attempt fails with RATE_LIMIT_EXCEEDED and is never retried further;
// other failures fail with UPSTREAM_ERROR after the last attempt. Successful
// payloads are cached under the exact URL.
func (f *Fetcher) FetchWithPolicy(ctx context.Context, rawURL string) ([]byte, error) {
	if payload, ok := f.cache.Get(rawURL); ok {
		f.metrics.CacheHit()
		f.logger.Debug("returning cached data", zap.String("url", rawURL))
		return payload, nil
	}
	f.metrics.CacheMiss()

	// The shared fetch outlives any single caller; each caller stops waiting
	// on its own cancellation.
	detached := context.WithoutCancel(ctx)
	ch := f.inflight.DoChan(rawURL, func() (any, error) {
		return f.fetch(detached, rawURL)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			f.logger.Debug("joined in-flight fetch", zap.String("url", rawURL))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error

	for i := 0; i < f.maxRetries; i++ {
		last := i == f.maxRetries-1
		delay := f.backoff(i)

		resp, err := f.client.Get(ctx, rawURL)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			f.metrics.UpstreamRequest(0)
			f.logger.Warn("upstream request failed",
				zap.String("url", rawURL),
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			lastErr = errors.NewUpstreamError(serviceName, 0)

		case resp.Status == 429:
			f.metrics.UpstreamRequest(resp.Status)
			reset, hasReset := parseReset(resp.Header)
			waitMinutes := f.waitMinutes(reset, hasReset)
			f.logger.Warn("rate limit hit",
				zap.String("url", rawURL),
				zap.String("remaining", resp.Header.Get(HeaderRateLimitRemaining)),
				zap.Int("reset_in_minutes", waitMinutes),
				zap.Int("attempt", i+1),
			)
			if last {
				f.metrics.RateLimited()
				return nil, errors.NewRateLimitExceeded(waitMinutes)
			}
			if hasReset {
				if untilReset := max(reset.Sub(f.now()), 0); untilReset < delay {
					delay = untilReset
				}
			}
			lastErr = errors.NewRateLimitExceeded(waitMinutes)

		case resp.Status < 200 || resp.Status > 299:
			f.metrics.UpstreamRequest(resp.Status)
			f.logger.Error("upstream API error",
				zap.String("url", rawURL),
				zap.Int("status", resp.Status),
				zap.Int("attempt", i+1),
				zap.String("body", diagnostic(resp.Body)),
			)
			lastErr = errors.NewUpstreamError(serviceName, resp.Status)

		case !json.Valid(resp.Body):
			f.metrics.UpstreamRequest(resp.Status)
			f.logger.Error("upstream returned invalid JSON",
				zap.String("url", rawURL),
				zap.Int("attempt", i+1),
				zap.String("body", diagnostic(resp.Body)),
			)
			lastErr = errors.NewMalformedResponse(serviceName + " API returned invalid JSON")

		default:
			f.metrics.UpstreamRequest(resp.Status)
			f.cache.Put(rawURL, resp.Body)
			return resp.Body, nil
		}

		if last {
			break
		}

		f.metrics.Retry()
		f.logger.Info("retrying upstream request",
			zap.String("url", rawURL),
			zap.Duration("delay", delay),
		)
		if err := f.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// backoff returns BaseDelay * 2^attempt.
func (f *Fetcher) backoff(attempt int) time.Duration {
	return f.baseDelay * time.Duration(1<<attempt)
}

// waitMinutes computes ceil((reset - now) / 1m) in milliseconds, never
// negative. A missing reset header yields 0.
func (f *Fetcher) waitMinutes(reset time.Time, ok bool) int {
	if !ok {
		return 0
	}
	diffMs := reset.UnixMilli() - f.now().UnixMilli()
	minutes := int(math.Ceil(float64(diffMs) / 60000))
	return max(minutes, 0)
}

// parseReset reads the unix-seconds reset header.
func parseReset(h http.Header) (time.Time, bool) {
	raw := h.Get(HeaderRateLimitReset)
	if raw == "" {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}

// notFoundAs turns an upstream 404 into NOT_FOUND for the post id.
func notFoundAs(err error, id string) error {
	if status, ok := errors.UpstreamStatus(err); ok && status == 404 {
		return errors.NewNotFound("Tweet", id)
	}
	return err
}

func diagnostic(body []byte) string {
	if len(body) > maxDiagnosticBytes {
		return string(body[:maxDiagnosticBytes]) + "..."
	}
	return string(body)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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

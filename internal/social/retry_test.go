package social

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hpungsan/remixer/internal/errors"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestFetchWithPolicy_Success(t *testing.T) {
	api := newFakeAPI(t)
	f, rec := newTestFetcher(t, api)

	payload, err := f.Post(context.Background(), "123456789")
	require.NoError(t, err)

	assert.Contains(t, string(payload), "This is a test tweet")
	assert.Equal(t, 1, api.Calls("post:123456789"))
	assert.Empty(t, rec.Delays())
}

func TestFetchWithPolicy_CacheHitSkipsNetwork(t *testing.T) {
	api := newFakeAPI(t)
	f, _ := newTestFetcher(t, api)
	ctx := context.Background()

	first, err := f.Post(ctx, "123456789")
	require.NoError(t, err)
	second, err := f.Post(ctx, "123456789")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, api.Total())
}

func TestFetchWithPolicy_CacheKeyedByExactURL(t *testing.T) {
	api := newFakeAPI(t)
	f, _ := newTestFetcher(t, api)
	ctx := context.Background()

	_, err := f.Post(ctx, "123456789")
	require.NoError(t, err)
	_, err = f.Conversation(ctx, "thread123")
	require.NoError(t, err)

	assert.Equal(t, 1, api.Calls("post:123456789"))
	assert.Equal(t, 1, api.Calls("search"))
}

func TestFetchWithPolicy_RateLimitExhausted(t *testing.T) {
	now := time.Date(2024, 1, 19, 10, 0, 0, 0, time.UTC)
	api := newFakeAPI(t)
	api.resetHeader = strconv.FormatInt(now.Add(150*time.Second).Unix(), 10)
	f, rec := newTestFetcher(t, api, WithClock(fixedClock(now)))

	_, err := f.Post(context.Background(), "rate-limited")
	require.Error(t, err)

	assert.True(t, errors.Is(err, errors.ErrRateLimitExceeded))
	assert.Contains(t, err.Error(), "Rate limit exceeded")

	// ceil(150s / 60s)
	minutes, ok := errors.WaitMinutes(err)
	require.True(t, ok)
	assert.Equal(t, 3, minutes)

	assert.Equal(t, 3, api.Calls("post:rate-limited"))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.Delays())
}

func TestFetchWithPolicy_RateLimitDelayCappedByReset(t *testing.T) {
	now := time.Date(2024, 1, 19, 10, 0, 0, 500*int(time.Millisecond), time.UTC)
	reset := time.Date(2024, 1, 19, 10, 0, 2, 0, time.UTC)
	api := newFakeAPI(t)
	api.resetHeader = strconv.FormatInt(reset.Unix(), 10)
	f, rec := newTestFetcher(t, api, WithClock(fixedClock(now)))

	_, err := f.Post(context.Background(), "rate-limited")
	require.Error(t, err)

	// Second backoff (2s) is longer than the 1.5s until reset.
	assert.Equal(t, []time.Duration{time.Second, 1500 * time.Millisecond}, rec.Delays())

	minutes, ok := errors.WaitMinutes(err)
	require.True(t, ok)
	assert.Equal(t, 1, minutes)
}

func TestFetchWithPolicy_RateLimitResetInPast(t *testing.T) {
	now := time.Date(2024, 1, 19, 10, 0, 0, 0, time.UTC)
	api := newFakeAPI(t)
	api.resetHeader = strconv.FormatInt(now.Add(-time.Minute).Unix(), 10)
	f, rec := newTestFetcher(t, api, WithClock(fixedClock(now)))

	_, err := f.Post(context.Background(), "rate-limited")
	require.Error(t, err)

	minutes, ok := errors.WaitMinutes(err)
	require.True(t, ok)
	assert.Equal(t, 0, minutes, "wait is never negative")
	assert.Equal(t, []time.Duration{0, 0}, rec.Delays())
}

func TestFetchWithPolicy_RateLimitWithoutResetHeader(t *testing.T) {
	api := newFakeAPI(t)
	f, rec := newTestFetcher(t, api)

	_, err := f.Post(context.Background(), "rate-limited")
	require.Error(t, err)

	minutes, ok := errors.WaitMinutes(err)
	require.True(t, ok)
	assert.Equal(t, 0, minutes)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.Delays())
}

func TestFetchWithPolicy_UpstreamErrorRetried(t *testing.T) {
	api := newFakeAPI(t)
	f, rec := newTestFetcher(t, api)

	_, err := f.Post(context.Background(), "server-error")
	require.Error(t, err)

	assert.True(t, errors.Is(err, errors.ErrUpstream))
	status, ok := errors.UpstreamStatus(err)
	require.True(t, ok)
	assert.Equal(t, 500, status)

	assert.Equal(t, 3, api.Calls("post:server-error"))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.Delays())
}

func TestFetchWithPolicy_FailuresNotCached(t *testing.T) {
	api := newFakeAPI(t)
	f, _ := newTestFetcher(t, api)
	ctx := context.Background()

	_, err := f.Post(ctx, "server-error")
	require.Error(t, err)
	_, err = f.Post(ctx, "server-error")
	require.Error(t, err)

	assert.Equal(t, 6, api.Calls("post:server-error"))
}

func TestFetchWithPolicy_NotFound(t *testing.T) {
	api := newFakeAPI(t)
	f, _ := newTestFetcher(t, api)

	_, err := f.Post(context.Background(), "invalid-id")
	require.Error(t, err)

	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Contains(t, err.Error(), "Tweet not found")
}

func TestFetchWithPolicy_InvalidJSON(t *testing.T) {
	api := newFakeAPI(t)
	f, _ := newTestFetcher(t, api)

	_, err := f.Post(context.Background(), "garbled")
	require.Error(t, err)

	assert.True(t, errors.Is(err, errors.ErrMalformedResponse))
	assert.Equal(t, 3, api.Calls("post:garbled"))
}

func TestFetchWithPolicy_Unreachable(t *testing.T) {
	api := newFakeAPI(t)
	f, _ := newTestFetcher(t, api)
	api.srv.Close()

	_, err := f.Post(context.Background(), "123456789")
	require.Error(t, err)

	status, ok := errors.UpstreamStatus(err)
	require.True(t, ok)
	assert.Equal(t, 0, status)
}

func TestFetchWithPolicy_SingleAttempt(t *testing.T) {
	api := newFakeAPI(t)
	c, rec := newTestFetcher(t, api)
	c.maxRetries = 1

	_, err := c.Post(context.Background(), "rate-limited")
	require.Error(t, err)

	assert.True(t, errors.Is(err, errors.ErrRateLimitExceeded))
	assert.Equal(t, 1, api.Calls("post:rate-limited"))
	assert.Empty(t, rec.Delays())
}

// blockingSleep parks the first backoff until release is closed.
func blockingSleep(entered chan<- struct{}, release <-chan struct{}) func(context.Context, time.Duration) error {
	var once sync.Once
	return func(context.Context, time.Duration) error {
		first := false
		once.Do(func() { first = true })
		if first {
			close(entered)
			<-release
		}
		return nil
	}
}

func TestFetchWithPolicy_CancelDuringBackoff(t *testing.T) {
	api := newFakeAPI(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	f, _ := newTestFetcher(t, api, WithSleep(blockingSleep(entered, release)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := f.Post(ctx, "server-error")
		done <- err
	}()

	<-entered
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestFetchWithPolicy_JoinedCallerIgnoresOtherCancellation(t *testing.T) {
	api := newFakeAPI(t)
	entered := make(chan struct{})
	release := make(chan struct{})

	f, _ := newTestFetcher(t, api, WithSleep(blockingSleep(entered, release)))

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()

	errA := make(chan error, 1)
	go func() {
		_, err := f.Post(ctxA, "server-error")
		errA <- err
	}()
	<-entered

	errB := make(chan error, 1)
	go func() {
		_, err := f.Post(context.Background(), "server-error")
		errB <- err
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	close(release)
	err := <-errB
	require.Error(t, err)
	assert.NotErrorIs(t, err, context.Canceled)
	status, ok := errors.UpstreamStatus(err)
	require.True(t, ok)
	assert.Equal(t, 500, status)
}

func TestFetchWithPolicy_LogsRateLimit(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	api := newFakeAPI(t)
	f, _ := newTestFetcher(t, api, WithLogger(zap.New(core)))

	_, err := f.Post(context.Background(), "rate-limited")
	require.Error(t, err)

	hits := logs.FilterMessage("rate limit hit").All()
	require.Len(t, hits, 3)
	assert.Equal(t, "0", hits[0].ContextMap()["remaining"])
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), 0))
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

func TestBackoff(t *testing.T) {
	f := &Fetcher{baseDelay: time.Second}
	assert.Equal(t, time.Second, f.backoff(0))
	assert.Equal(t, 2*time.Second, f.backoff(1))
	assert.Equal(t, 4*time.Second, f.backoff(2))
}

package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 19, 10, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, clock *fakeClock) *TTLCache {
	t.Helper()
	c, err := New(DefaultTTL, 16, WithClock(clock.Now))
	require.NoError(t, err)
	return c
}

func TestPutThenGet(t *testing.T) {
	c := newTestCache(t, newFakeClock())

	keys := []string{
		"https://api.twitter.com/2/tweets/1",
		"https://api.twitter.com/2/tweets/search/recent?query=conversation_id%3A1",
		"",
	}
	for _, k := range keys {
		c.Put(k, []byte(`{"k":"`+k+`"}`))
		got, ok := c.Get(k)
		require.True(t, ok, "key %q", k)
		assert.Equal(t, `{"k":"`+k+`"}`, string(got))
	}
}

func TestGet_Missing(t *testing.T) {
	c := newTestCache(t, newFakeClock())

	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestGet_ExpiresAfterTTL(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, clock)

	c.Put("k", []byte("v"))

	clock.Advance(DefaultTTL - time.Millisecond)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry should be live just before the TTL")

	clock.Advance(time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry must be absent once now - storedAt reaches the TTL")
	assert.Equal(t, 0, c.Len(), "stale entry is dropped on read")
}

func TestGet_StaleEvictionKeepsConcurrentPut(t *testing.T) {
	clock := newFakeClock()
	var (
		hookMu sync.Mutex
		hook   func()
	)
	now := func() time.Time {
		hookMu.Lock()
		h := hook
		hook = nil
		hookMu.Unlock()
		if h != nil {
			h()
		}
		return clock.Now()
	}

	c, err := New(DefaultTTL, 16, WithClock(now))
	require.NoError(t, err)

	c.Put("k", []byte("old"))
	clock.Advance(DefaultTTL + time.Second)

	// A Put for the same key arrives while Get is deciding the entry is stale.
	done := make(chan struct{})
	hookMu.Lock()
	hook = func() {
		go func() {
			c.Put("k", []byte("fresh"))
			close(done)
		}()
		time.Sleep(20 * time.Millisecond)
	}
	hookMu.Unlock()

	_, ok := c.Get("k")
	assert.False(t, ok)
	<-done

	got, ok := c.Get("k")
	require.True(t, ok, "fresh entry must survive the stale eviction")
	assert.Equal(t, []byte("fresh"), got)
}

func TestPut_Overwrites(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, clock)

	c.Put("k", []byte("old"))
	clock.Advance(4 * time.Minute)
	c.Put("k", []byte("new"))
	clock.Advance(4 * time.Minute)

	// Overwrite refreshed storedAt
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", string(got))
	assert.Equal(t, 1, c.Len())
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	clock := newFakeClock()
	c, err := New(DefaultTTL, 2, WithClock(clock.Now))
	require.NoError(t, err)

	c.Put("a", []byte("1"))
	c.Put("b", []byte("2"))
	_, _ = c.Get("a")
	c.Put("c", []byte("3"))

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestNew_InvalidArgs(t *testing.T) {
	_, err := New(0, 10)
	assert.Error(t, err)

	_, err = New(time.Minute, 0)
	assert.Error(t, err)
}

func TestConcurrentAccess(t *testing.T) {
	c, err := New(time.Minute, 64)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Put("shared", []byte("v"))
				_, _ = c.Get("shared")
			}
		}()
	}
	wg.Wait()

	got, ok := c.Get("shared")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))
}

package social

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/remixer/internal/cache"
)

const singlePostJSON = `{
  "data": {
    "id": "123456789",
    "text": "This is a test tweet",
    "conversation_id": null,
    "created_at": "2024-01-19T10:00:00.000Z",
    "author_id": "user123",
    "public_metrics": {"retweet_count": 5, "reply_count": 2, "like_count": 10, "quote_count": 1}
  },
  "includes": {"users": [{"id": "user123", "name": "Test User", "username": "testuser"}]}
}`

const threadRootJSON = `{
  "data": {
    "id": "987654321",
    "text": "This is tweet 1 in the thread",
    "conversation_id": "thread123",
    "created_at": "2024-01-19T10:00:00.000Z",
    "author_id": "user123",
    "referenced_tweets": []
  }
}`

// Second reply listed first: arrival order is not creation order.
const threadSearchJSON = `{
  "data": [
    {
      "id": "987654322",
      "text": "This is tweet 2 in the thread",
      "created_at": "2024-01-19T10:01:00.000Z",
      "author_id": "user123",
      "referenced_tweets": [{"type": "replied_to", "id": "thread123"}]
    },
    {
      "id": "987654321",
      "text": "This is tweet 1 in the thread",
      "created_at": "2024-01-19T10:00:00.000Z",
      "author_id": "user123",
      "referenced_tweets": [{"type": "replied_to", "id": "thread123"}]
    },
    {
      "id": "555",
      "text": "someone else quoting",
      "created_at": "2024-01-19T09:59:00.000Z",
      "author_id": "user999",
      "referenced_tweets": [{"type": "quoted", "id": "thread123"}]
    }
  ]
}`

// fakeAPI stands in for the social v2 API.
type fakeAPI struct {
	t   *testing.T
	srv *httptest.Server

	mu    sync.Mutex
	calls map[string]int

	// searchStatus overrides the conversation search response status.
	searchStatus int
	// searchBody overrides the conversation search response body.
	searchBody string
	// resetHeader is sent as x-rate-limit-reset with 429 responses.
	resetHeader string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{t: t, calls: map[string]int{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /2/tweets/search/recent", api.handleSearch)
	mux.HandleFunc("GET /2/tweets/{id}", api.handlePost)
	api.srv = httptest.NewServer(api.auth(mux))
	t.Cleanup(api.srv.Close)
	return api
}

func (a *fakeAPI) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *fakeAPI) record(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls[key]++
}

// Calls returns how many requests hit key ("post:<id>" or "search").
func (a *fakeAPI) Calls(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[key]
}

// Total returns the number of requests served.
func (a *fakeAPI) Total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		n += c
	}
	return n
}

func (a *fakeAPI) handlePost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	a.record("post:" + id)

	w.Header().Set("Content-Type", "application/json")
	switch id {
	case "123456789":
		_, _ = w.Write([]byte(singlePostJSON))
	case "987654321":
		_, _ = w.Write([]byte(threadRootJSON))
	case "invalid-id":
		w.WriteHeader(http.StatusNotFound)
	case "rate-limited":
		w.Header().Set(HeaderRateLimitRemaining, "0")
		if a.resetHeader != "" {
			w.Header().Set(HeaderRateLimitReset, a.resetHeader)
		}
		w.WriteHeader(http.StatusTooManyRequests)
	case "server-error":
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"title":"Internal Error"}`))
	case "garbled":
		_, _ = w.Write([]byte(`{"data": {`))
	case "no-timestamp":
		_, _ = w.Write([]byte(`{"data": {"id": "no-timestamp", "text": "Undated tweet", "created_at": ""}}`))
	default:
		_, _ = w.Write([]byte(`{"data": null}`))
	}
}

func (a *fakeAPI) handleSearch(w http.ResponseWriter, r *http.Request) {
	a.record("search")

	if a.searchStatus != 0 {
		w.WriteHeader(a.searchStatus)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if a.searchBody != "" {
		_, _ = w.Write([]byte(a.searchBody))
		return
	}
	if strings.Contains(r.URL.Query().Get("query"), "conversation_id:thread123") {
		_, _ = w.Write([]byte(threadSearchJSON))
		return
	}
	_, _ = w.Write([]byte(`{"data": []}`))
}

// sleepRecorder replaces real backoff sleeps.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// newTestFetcher wires a Fetcher to api with a fresh cache and recorded sleeps.
func newTestFetcher(t *testing.T, api *fakeAPI, opts ...FetcherOption) (*Fetcher, *sleepRecorder) {
	t.Helper()

	c, err := cache.New(cache.DefaultTTL, 64)
	require.NoError(t, err)

	client := NewClient(ClientConfig{
		APIBase:     api.srv.URL + "/2",
		BearerToken: "test-token",
		Timeout:     5 * time.Second,
	})

	rec := &sleepRecorder{}
	opts = append([]FetcherOption{WithSleep(rec.Sleep)}, opts...)
	return NewFetcher(client, c, FetcherConfig{MaxRetries: 3, BaseDelay: time.Second}, opts...), rec
}

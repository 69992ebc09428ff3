// Package social talks to the social-media v2 API: an authenticated fetch
// client, a cached retry policy in front of it, and thread resolution.
package social

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultAPIBase is the public v2 endpoint.
const DefaultAPIBase = "https://api.twitter.com/2"

const maxResponseBytes = 8 << 20

// Field expansions requested for a single post lookup.
const postQuery = "tweet.fields=conversation_id,created_at,text,entities,public_metrics,referenced_tweets" +
	"&expansions=referenced_tweets.id,author_id,attachments.media_keys,entities.mentions.username,referenced_tweets.id.author_id" +
	"&user.fields=name,username,profile_image_url" +
	"&media.fields=url,preview_image_url,type"

// Field expansions requested for a conversation search.
const conversationQuery = "tweet.fields=conversation_id,created_at,text,referenced_tweets,author_id" +
	"&expansions=referenced_tweets.id,author_id" +
	"&max_results=100"

// ClientConfig configures a Client.
type ClientConfig struct {
	APIBase     string
	BearerToken string
	Timeout     time.Duration

	// RequestsPerSecond paces outbound calls. 0 disables pacing.
	RequestsPerSecond float64

	// HTTPClient overrides the underlying client (tests).
	HTTPClient *http.Client
}

// Client issues bearer-authenticated GET requests. It does no retrying or
// caching; see Fetcher.
type Client struct {
	base    string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

// Response is a fully read upstream response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = DefaultAPIBase
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		base:    base,
		token:   cfg.BearerToken,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// PostURL returns the lookup URL for a single post with field expansions.
func (c *Client) PostURL(id string) string {
	return fmt.Sprintf("%s/tweets/%s?%s", c.base, url.PathEscape(id), postQuery)
}

// ConversationURL returns the recent-search URL for a conversation.
func (c *Client) ConversationURL(conversationID string) string {
	return fmt.Sprintf("%s/tweets/search/recent?query=%s&%s",
		c.base, url.QueryEscape("conversation_id:"+conversationID), conversationQuery)
}

// Get performs one GET and reads the whole body. Non-2xx statuses are not
// errors here; only transport failures are.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, nil
}

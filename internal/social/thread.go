package social

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/remixer/internal/errors"
	"github.com/hpungsan/remixer/internal/logging"
	"github.com/hpungsan/remixer/internal/metrics"
)

// Kind tells how a Resolution's text was produced.
type Kind string

const (
	// KindSingle is a post outside any conversation.
	KindSingle Kind = "single"
	// KindJoined is a reconstructed thread.
	KindJoined Kind = "joined"
	// KindFallback is a post whose thread could not be reconstructed.
	KindFallback Kind = "fallback"
)

// Resolution is the plain text resolved for a post.
type Resolution struct {
	PostID string `json:"postId"`
	Text   string `json:"text"`
	Kind   Kind   `json:"kind"`

	// Posts is the number of posts joined into Text.
	Posts int `json:"posts"`

	// Cause is the thread reconstruction failure for KindFallback.
	Cause error `json:"-"`
}

// Resolver turns a post reference into plain text, joining the author's
// thread when the post belongs to one.
type Resolver struct {
	fetcher *Fetcher
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger.
func WithResolverLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = logging.OrNop(l) }
}

// WithResolverMetrics sets the metrics sink.
func WithResolverMetrics(m *metrics.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver creates a Resolver over f.
func NewResolver(f *Fetcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		fetcher: f,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveText returns the resolved text for ref.
func (r *Resolver) ResolveText(ctx context.Context, ref string) (string, error) {
	res, err := r.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Resolve fetches the post named by ref (an id or post URL). Failures
// fetching the post itself are returned; failures reconstructing its thread
// degrade to a KindFallback resolution carrying the post's own text.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*Resolution, error) {
	id, err := ParsePostID(ref)
	if err != nil {
		return nil, err
	}

	payload, err := r.fetcher.Post(ctx, id)
	if err != nil {
		return nil, err
	}

	var env postEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, errors.NewMalformedResponse(fmt.Sprintf("decode post %s: %v", id, err))
	}
	if env.Data == nil {
		return nil, errors.NewNotFound("Tweet", id)
	}
	post := *env.Data

	if post.ConversationID == "" {
		return r.done(&Resolution{PostID: id, Text: post.Text, Kind: KindSingle, Posts: 1}), nil
	}

	text, n, err := r.joinThread(ctx, post)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Warn("thread reconstruction failed, using single post",
			zap.String("post_id", id),
			zap.String("conversation_id", post.ConversationID),
			zap.Error(err),
		)
		return r.done(&Resolution{PostID: id, Text: post.Text, Kind: KindFallback, Posts: 1, Cause: err}), nil
	}
	return r.done(&Resolution{PostID: id, Text: text, Kind: KindJoined, Posts: n}), nil
}

func (r *Resolver) done(res *Resolution) *Resolution {
	r.metrics.ThreadResolved(string(res.Kind))
	return res
}

// joinThread searches post's conversation and joins the replies to it, with
// post itself, in ascending creation order.
func (r *Resolver) joinThread(ctx context.Context, post Post) (string, int, error) {
	payload, err := r.fetcher.Conversation(ctx, post.ConversationID)
	if err != nil {
		return "", 0, err
	}

	var env conversationEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", 0, fmt.Errorf("decode conversation %s: %w", post.ConversationID, err)
	}

	posts := ThreadPosts(post, env.Data)
	texts := make([]string, len(posts))
	for i, p := range posts {
		texts[i] = p.Text
	}
	return strings.Join(texts, ThreadSeparator), len(posts), nil
}

// ThreadPosts returns root followed by every post in bundle that replies to
// root's conversation, without duplicate ids, sorted ascending by creation
// time. Posts with equal timestamps keep their arrival order.
func ThreadPosts(root Post, bundle []Post) []Post {
	seen := map[string]bool{root.ID: true}
	posts := []Post{root}
	for _, p := range bundle {
		if seen[p.ID] || !p.RepliesTo(root.ConversationID) {
			continue
		}
		seen[p.ID] = true
		posts = append(posts, p)
	}

	slices.SortStableFunc(posts, func(a, b Post) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return posts
}

package social

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/hpungsan/remixer/internal/errors"
)

// ReferenceRepliedTo marks a post written as a reply.
const ReferenceRepliedTo = "replied_to"

// ThreadSeparator joins post texts of a resolved thread.
const ThreadSeparator = "\n\n---\n\n"

// Post is a single social-media post as returned by the v2 API.
type Post struct {
	ID              string           `json:"id"`
	Text            string           `json:"text"`
	CreatedAt       time.Time        `json:"created_at"`
	ConversationID  string           `json:"conversation_id,omitempty"`
	AuthorID        string           `json:"author_id,omitempty"`
	ReferencedPosts []ReferencedPost `json:"referenced_tweets,omitempty"`
}

// UnmarshalJSON decodes p, leaving CreatedAt zero when created_at is absent
// or not an RFC 3339 timestamp. A post with a bad timestamp still carries
// usable text.
func (p *Post) UnmarshalJSON(data []byte) error {
	type plain Post
	aux := struct {
		*plain
		CreatedAt json.RawMessage `json:"created_at"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	p.CreatedAt = time.Time{}
	var raw string
	if json.Unmarshal(aux.CreatedAt, &raw) != nil {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		p.CreatedAt = t
	}
	return nil
}

// ReferencedPost links a post to another (reply, quote, retweet).
type ReferencedPost struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// RepliesTo reports whether p carries a replied_to reference to id.
func (p Post) RepliesTo(id string) bool {
	for _, ref := range p.ReferencedPosts {
		if ref.Type == ReferenceRepliedTo && ref.ID == id {
			return true
		}
	}
	return false
}

// postEnvelope is the single-post lookup response. Data is nil when the
// API reports the post as absent.
type postEnvelope struct {
	Data *Post `json:"data"`
}

// conversationEnvelope is the conversation search response.
type conversationEnvelope struct {
	Data []Post `json:"data"`
}

var (
	statusPathRe = regexp.MustCompile(`^/(?:[A-Za-z0-9_]+|i(?:/web)?)/status(?:es)?/(\d+)`)
	postIDRe     = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

var postHosts = map[string]bool{
	"twitter.com":        true,
	"www.twitter.com":    true,
	"mobile.twitter.com": true,
	"x.com":              true,
	"www.x.com":          true,
	"mobile.x.com":       true,
}

// ParsePostID extracts a post id from a bare id or a post URL such as
// https://x.com/user/status/123.
func ParsePostID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.NewInvalidRequest("post id or URL is required")
	}

	if !strings.Contains(ref, "/") {
		if !postIDRe.MatchString(ref) {
			return "", errors.NewInvalidRequest("invalid post id: " + ref)
		}
		return ref, nil
	}

	if !strings.Contains(ref, "://") {
		ref = "https://" + ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", errors.NewInvalidRequest("invalid post URL: " + err.Error())
	}
	if !postHosts[strings.ToLower(u.Hostname())] {
		return "", errors.NewInvalidRequest("unsupported post URL host: " + u.Hostname())
	}
	m := statusPathRe.FindStringSubmatch(u.Path)
	if m == nil {
		return "", errors.NewInvalidRequest("post URL has no status id: " + ref)
	}
	return m[1], nil
}

// IsPostURL reports whether s looks like a post URL rather than free text.
func IsPostURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \n\t") || !strings.Contains(s, "/") {
		return false
	}
	_, err := ParsePostID(s)
	return err == nil
}

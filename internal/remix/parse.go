package remix

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Tweet is one generated tweet.
type Tweet struct {
	Content  string `json:"content"`
	IsThread bool   `json:"isThread"`

	// ThreadPosition is 1-based and set only for thread tweets.
	ThreadPosition *int `json:"threadPosition"`
}

// BlogPost is a generated blog post.
type BlogPost struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Output is the parsed view of generated text.
type Output struct {
	Type     OutputType `json:"type"`
	Tweets   []Tweet    `json:"tweets,omitempty"`
	BlogPost *BlogPost  `json:"blogPost,omitempty"`

	// Malformed is set when the text did not match the requested shape;
	// Raw still carries the text for display.
	Malformed bool   `json:"malformed"`
	Problem   string `json:"problem,omitempty"`
	Raw       string `json:"-"`
}

// Parse decodes raw generated text as output of type t. It never fails:
// shape problems are reported through Malformed and Problem.
func Parse(raw string, t OutputType) *Output {
	out := &Output{Type: t, Raw: raw}

	body := stripFence(raw)
	if body == "" {
		return out.malformed("response is empty")
	}

	var doc struct {
		Tweets   []Tweet   `json:"tweets"`
		BlogPost *BlogPost `json:"blogPost"`
	}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return out.malformed("response is not valid JSON: " + err.Error())
	}

	switch t {
	case OutputTweets:
		if len(doc.Tweets) == 0 {
			return out.malformed(`response has no "tweets"`)
		}
		for i, tw := range doc.Tweets {
			if strings.TrimSpace(tw.Content) == "" {
				return out.malformed(fmt.Sprintf("tweet %d has no content", i+1))
			}
			if tw.ThreadPosition != nil && *tw.ThreadPosition < 1 {
				return out.malformed(fmt.Sprintf("tweet %d has threadPosition %d", i+1, *tw.ThreadPosition))
			}
		}
		out.Tweets = doc.Tweets
	case OutputBlog:
		if doc.BlogPost == nil {
			return out.malformed(`response has no "blogPost"`)
		}
		if strings.TrimSpace(doc.BlogPost.Title) == "" || strings.TrimSpace(doc.BlogPost.Content) == "" {
			return out.malformed("blog post needs a title and content")
		}
		out.BlogPost = doc.BlogPost
	default:
		return out.malformed(fmt.Sprintf("unknown output type %q", t))
	}
	return out
}

func (o *Output) malformed(problem string) *Output {
	o.Malformed = true
	o.Problem = problem
	o.Tweets = nil
	o.BlogPost = nil
	return o
}

// Threads returns the thread tweets ordered by position. Tweets without a
// position sort last in their original order.
func (o *Output) Threads() []Tweet {
	var thread []Tweet
	for _, tw := range o.Tweets {
		if tw.IsThread {
			thread = append(thread, tw)
		}
	}
	slices.SortStableFunc(thread, func(a, b Tweet) int {
		return cmp.Compare(position(a), position(b))
	})
	return thread
}

// Singles returns the standalone tweets in generated order.
func (o *Output) Singles() []Tweet {
	var singles []Tweet
	for _, tw := range o.Tweets {
		if !tw.IsThread {
			singles = append(singles, tw)
		}
	}
	return singles
}

func position(t Tweet) int {
	if t.ThreadPosition == nil {
		return math.MaxInt
	}
	return *t.ThreadPosition
}

// stripFence removes a surrounding Markdown code fence, if any.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

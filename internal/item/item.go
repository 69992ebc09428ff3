// Package item defines saved remix outputs.
package item

// SavedItem is a generated tweet or blog post kept by the user.
type SavedItem struct {
	// ID is a ULID that uniquely identifies this item
	ID string `json:"id"`

	// Content is the saved text (tweet body or blog post Markdown)
	Content string `json:"content"`

	// ContentChars is the character count (runes, not bytes)
	ContentChars int `json:"contentChars"`

	// IsThread marks a tweet that belongs to a generated thread
	IsThread bool `json:"isThread"`

	// ThreadPosition is the 1-based position within the thread (nullable)
	ThreadPosition *int `json:"threadPosition,omitempty"`

	// Title is an optional heading, set for blog posts
	Title *string `json:"title,omitempty"`

	// Kind is the output type the item came from ("tweets" or "blog")
	Kind string `json:"kind,omitempty"`

	// SourceURL is the post the item was remixed from (nullable)
	SourceURL *string `json:"sourceUrl,omitempty"`

	// CreatedAt is the Unix timestamp when the item was saved
	CreatedAt int64 `json:"createdAt"`

	// UpdatedAt is the Unix timestamp when the item was last edited
	UpdatedAt int64 `json:"updatedAt"`
}

// Item kinds.
const (
	KindTweet = "tweets"
	KindBlog  = "blog"
)

package item

// Summary is an item without its full content, used by list views.
type Summary struct {
	ID             string  `json:"id"`
	Title          *string `json:"title,omitempty"`
	Snippet        string  `json:"snippet"`
	ContentChars   int     `json:"contentChars"`
	IsThread       bool    `json:"isThread"`
	ThreadPosition *int    `json:"threadPosition,omitempty"`
	Kind           string  `json:"kind,omitempty"`
	CreatedAt      int64   `json:"createdAt"`
	UpdatedAt      int64   `json:"updatedAt"`
}

// SnippetChars bounds Summary.Snippet.
const SnippetChars = 140

// ToSummary converts an item to a Summary, truncating its content.
func (s *SavedItem) ToSummary() Summary {
	return Summary{
		ID:             s.ID,
		Title:          s.Title,
		Snippet:        Snippet(s.Content, SnippetChars),
		ContentChars:   s.ContentChars,
		IsThread:       s.IsThread,
		ThreadPosition: s.ThreadPosition,
		Kind:           s.Kind,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

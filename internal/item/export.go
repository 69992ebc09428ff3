package item

// ExportRecord is one saved item line in a JSONL export. The first line of
// a file is a header with RemixerExport set.
type ExportRecord struct {
	// Header detection field - true only for header line
	RemixerExport bool `json:"_remixer_export,omitempty"`

	// Header fields (only present in header line)
	SchemaVersion string `json:"schema_version,omitempty"`
	ExportedAt    int64  `json:"exported_at,omitempty"`

	ID             string  `json:"id"`
	Content        string  `json:"content"`
	ContentChars   int     `json:"content_chars"` // IGNORED on import, recomputed
	IsThread       bool    `json:"is_thread"`
	ThreadPosition *int    `json:"thread_position"`
	Title          *string `json:"title"`
	Kind           string  `json:"kind"`
	SourceURL      *string `json:"source_url"`
	CreatedAt      int64   `json:"created_at"`
	UpdatedAt      int64   `json:"updated_at"`
}

// ToItem converts a record to an item, recomputing derived fields.
func (r *ExportRecord) ToItem() *SavedItem {
	return &SavedItem{
		ID:             r.ID,
		Content:        r.Content,
		ContentChars:   CountChars(r.Content),
		IsThread:       r.IsThread,
		ThreadPosition: r.ThreadPosition,
		Title:          r.Title,
		Kind:           r.Kind,
		SourceURL:      r.SourceURL,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// ToExportRecord converts an item for export.
func ToExportRecord(s *SavedItem) *ExportRecord {
	return &ExportRecord{
		ID:             s.ID,
		Content:        s.Content,
		ContentChars:   s.ContentChars,
		IsThread:       s.IsThread,
		ThreadPosition: s.ThreadPosition,
		Title:          s.Title,
		Kind:           s.Kind,
		SourceURL:      s.SourceURL,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

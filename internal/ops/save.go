package ops

import (
	"context"
	"strings"
	"time"

	"github.com/hpungsan/remixer/internal/config"
	"github.com/hpungsan/remixer/internal/errors"
	"github.com/hpungsan/remixer/internal/item"
	"github.com/hpungsan/remixer/internal/remix"
)

// SaveInput contains parameters for the Save operation.
type SaveInput struct {
	Content        string // required
	IsThread       bool
	ThreadPosition *int    // 1-based, only with IsThread
	Title          *string // optional
	Kind           string  // default: "tweets"
	SourceURL      *string // optional
}

// SaveOutput contains the result of the Save operation.
type SaveOutput struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"createdAt"`
}

// Save stores a new saved item.
func Save(ctx context.Context, store Store, cfg *config.Config, input SaveInput) (*SaveOutput, error) {
	it, err := newItem(cfg, input)
	if err != nil {
		return nil, err
	}

	if err := store.Insert(ctx, it); err != nil {
		return nil, err
	}

	return &SaveOutput{ID: it.ID, CreatedAt: it.CreatedAt}, nil
}

// newItem validates input and builds an item with a fresh ULID.
func newItem(cfg *config.Config, input SaveInput) (*item.SavedItem, error) {
	if err := checkContent(cfg, input.Content, input.IsThread, input.ThreadPosition); err != nil {
		return nil, err
	}

	kind := strings.TrimSpace(input.Kind)
	if kind == "" {
		kind = item.KindTweet
	}
	if kind != item.KindTweet && kind != item.KindBlog {
		return nil, errors.NewInvalidRequest(`kind must be one of: tweets, blog`)
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	now := time.Now().Unix()
	return &item.SavedItem{
		ID:             id,
		Content:        input.Content,
		ContentChars:   item.CountChars(input.Content),
		IsThread:       input.IsThread,
		ThreadPosition: input.ThreadPosition,
		Title:          cleanOptionalString(input.Title),
		Kind:           kind,
		SourceURL:      cleanOptionalString(input.SourceURL),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// checkContent maps item.Check failures onto errors.
func checkContent(cfg *config.Config, content string, isThread bool, pos *int) error {
	maxChars := 0
	if cfg != nil {
		maxChars = cfg.Store.MaxContentChars
	}

	result := item.Check(item.CheckInput{
		Content:        content,
		IsThread:       isThread,
		ThreadPosition: pos,
		MaxChars:       maxChars,
	})
	switch {
	case result.Empty:
		return errors.NewInvalidRequest("content is required")
	case result.TooLarge:
		return errors.NewContentTooLarge(result.MaxChars, result.ActualChars)
	case len(result.Problems) > 0:
		return errors.NewInvalidRequest(strings.Join(result.Problems, "; "))
	}
	return nil
}

// SaveRemixInput contains parameters for the SaveRemix operation.
type SaveRemixInput struct {
	Output    *remix.Output // parsed generation output, required
	SourceURL *string
}

// SaveRemixOutput contains the result of the SaveRemix operation.
type SaveRemixOutput struct {
	IDs []string `json:"ids"`
}

// SaveRemix stores every tweet of a parsed output, or its blog post, as
// saved items. Malformed output is refused. Items are validated first and
// stored in one transaction, so a failure leaves nothing behind.
func SaveRemix(ctx context.Context, store Store, cfg *config.Config, input SaveRemixInput) (*SaveRemixOutput, error) {
	out := input.Output
	if out == nil {
		return nil, errors.NewInvalidRequest("output is required")
	}
	if out.Malformed {
		return nil, errors.NewMalformedResponse("cannot save malformed output: " + out.Problem)
	}

	var inputs []SaveInput
	switch {
	case out.BlogPost != nil:
		title := out.BlogPost.Title
		inputs = append(inputs, SaveInput{
			Content:   out.BlogPost.Content,
			Title:     &title,
			Kind:      item.KindBlog,
			SourceURL: input.SourceURL,
		})
	default:
		for _, tw := range out.Tweets {
			inputs = append(inputs, SaveInput{
				Content:        tw.Content,
				IsThread:       tw.IsThread,
				ThreadPosition: threadPosition(tw),
				Kind:           item.KindTweet,
				SourceURL:      input.SourceURL,
			})
		}
	}
	if len(inputs) == 0 {
		return nil, errors.NewInvalidRequest("output has nothing to save")
	}

	items := make([]*item.SavedItem, 0, len(inputs))
	for _, in := range inputs {
		it, err := newItem(cfg, in)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	if err := store.InsertAll(ctx, items); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return &SaveRemixOutput{IDs: ids}, nil
}

// threadPosition drops positions on standalone tweets.
func threadPosition(tw remix.Tweet) *int {
	if !tw.IsThread {
		return nil
	}
	return tw.ThreadPosition
}

// cleanOptionalString trims s and maps blank to nil.
func cleanOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

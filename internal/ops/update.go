package ops

import (
	"context"

	"github.com/hpungsan/remixer/internal/config"
	"github.com/hpungsan/remixer/internal/errors"
	"github.com/hpungsan/remixer/internal/item"
)

// UpdateInput contains parameters for the Update operation.
type UpdateInput struct {
	ID string

	// Editable fields (nil = don't change)
	Content        *string
	IsThread       *bool
	ThreadPosition *int // 0 clears the position
	Title          *string
}

// Update modifies an existing saved item and returns it.
func Update(ctx context.Context, store Store, cfg *config.Config, input UpdateInput) (*item.SavedItem, error) {
	if err := ValidateID(input.ID); err != nil {
		return nil, err
	}
	if input.Content == nil && input.IsThread == nil && input.ThreadPosition == nil && input.Title == nil {
		return nil, errors.NewInvalidRequest("at least one editable field must be provided")
	}

	it, err := store.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Content != nil {
		it.Content = *input.Content
	}
	if input.IsThread != nil {
		it.IsThread = *input.IsThread
		if !it.IsThread {
			it.ThreadPosition = nil
		}
	}
	if input.ThreadPosition != nil {
		if *input.ThreadPosition == 0 {
			it.ThreadPosition = nil
		} else {
			pos := *input.ThreadPosition
			it.ThreadPosition = &pos
		}
	}
	if input.Title != nil {
		it.Title = cleanOptionalString(input.Title)
	}

	if err := checkContent(cfg, it.Content, it.IsThread, it.ThreadPosition); err != nil {
		return nil, err
	}
	it.ContentChars = item.CountChars(it.Content)

	if err := store.Update(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

package ops

import (
	"context"

	"github.com/hpungsan/remixer/internal/item"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID string
}

// Fetch retrieves a saved item by ID.
func Fetch(ctx context.Context, store Store, input FetchInput) (*item.SavedItem, error) {
	if err := ValidateID(input.ID); err != nil {
		return nil, err
	}
	return store.Get(ctx, input.ID)
}

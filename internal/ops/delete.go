package ops

import "context"

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	ID string
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// Delete permanently removes a saved item.
func Delete(ctx context.Context, store Store, input DeleteInput) (*DeleteOutput, error) {
	if err := ValidateID(input.ID); err != nil {
		return nil, err
	}
	if err := store.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	return &DeleteOutput{Deleted: true, ID: input.ID}, nil
}

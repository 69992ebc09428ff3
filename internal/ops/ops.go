package ops

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/remixer/internal/errors"
	"github.com/hpungsan/remixer/internal/item"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
	Total   int  `json:"total"`
}

// Store persists saved items. *db.SavedItems implements it.
type Store interface {
	Insert(ctx context.Context, it *item.SavedItem) error
	// InsertAll stores every item or none of them.
	InsertAll(ctx context.Context, items []*item.SavedItem) error
	Get(ctx context.Context, id string) (*item.SavedItem, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListRecent(ctx context.Context, limit, offset int) ([]item.SavedItem, int, error)
	Update(ctx context.Context, it *item.SavedItem) error
	Delete(ctx context.Context, id string) error
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// generateULID generates a new ULID. IDs from one process increase strictly,
// so ties on created_at still sort by insertion order.
func generateULID() (string, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ValidateID checks that id is a well-formed ULID.
func ValidateID(id string) error {
	if id == "" {
		return errors.NewInvalidRequest("id is required")
	}
	if _, err := ulid.ParseStrict(id); err != nil {
		return errors.NewInvalidRequest("id must be a ULID")
	}
	return nil
}

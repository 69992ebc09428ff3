package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/remixer/internal/config"
	"github.com/hpungsan/remixer/internal/db"
	"github.com/hpungsan/remixer/internal/errors"
)

func stringPtr(s string) *string {
	return &s
}

func intPtr(n int) *int {
	return &n
}

func boolPtr(b bool) *bool {
	return &b
}

// newTestEnv returns a store backed by a fresh database and a default config.
func newTestEnv(t *testing.T) (*db.SavedItems, *config.Config, string) {
	t.Helper()
	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return db.NewSavedItems(database), config.DefaultConfig(), baseDir
}

// mustSave stores content and returns its id.
func mustSave(t *testing.T, store Store, cfg *config.Config, content string) string {
	t.Helper()
	out, err := Save(context.Background(), store, cfg, SaveInput{Content: content})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return out.ID
}

func TestGenerateULID(t *testing.T) {
	a, err := generateULID()
	if err != nil {
		t.Fatalf("generateULID failed: %v", err)
	}
	b, err := generateULID()
	if err != nil {
		t.Fatalf("generateULID failed: %v", err)
	}
	if len(a) != 26 {
		t.Errorf("len = %d, want 26", len(a))
	}
	if a == b {
		t.Error("consecutive ULIDs should differ")
	}
}

func TestValidateID(t *testing.T) {
	id, _ := generateULID()
	if err := ValidateID(id); err != nil {
		t.Errorf("ValidateID(%q) = %v", id, err)
	}

	for _, bad := range []string{"", "abc", "01ARZ3NDEKTSV4RRFFQ69G5FA!"} {
		if err := ValidateID(bad); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("ValidateID(%q) = %v, want ErrInvalidRequest", bad, err)
		}
	}
}

package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/hpungsan/remixer/internal/errors"
	"github.com/hpungsan/remixer/internal/item"
)

// newTestItem creates an item with default values for testing.
func newTestItem(id, content string) *item.SavedItem {
	now := time.Now().Unix()
	return &item.SavedItem{
		ID:           id,
		Content:      content,
		ContentChars: item.CountChars(content),
		Kind:         item.KindTweet,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// stringPtr returns a pointer to the given string.
func stringPtr(s string) *string {
	return &s
}

func intPtr(n int) *int {
	return &n
}

func newTestStore(t *testing.T) *SavedItems {
	t.Helper()
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewSavedItems(database)
}

func TestInsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	it := newTestItem("01ABC123", "Part one of the thread")
	it.IsThread = true
	it.ThreadPosition = intPtr(1)
	it.SourceURL = stringPtr("https://x.com/u/status/1")

	if err := store.Insert(ctx, it); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.Get(ctx, "01ABC123")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.Content != it.Content {
		t.Errorf("Content = %q, want %q", got.Content, it.Content)
	}
	if got.ContentChars != it.ContentChars {
		t.Errorf("ContentChars = %d, want %d", got.ContentChars, it.ContentChars)
	}
	if !got.IsThread {
		t.Error("IsThread = false, want true")
	}
	if got.ThreadPosition == nil || *got.ThreadPosition != 1 {
		t.Errorf("ThreadPosition = %v, want 1", got.ThreadPosition)
	}
	if got.Title != nil {
		t.Errorf("Title = %q, want nil", *got.Title)
	}
	if got.SourceURL == nil || *got.SourceURL != *it.SourceURL {
		t.Errorf("SourceURL = %v, want %q", got.SourceURL, *it.SourceURL)
	}
	if got.Kind != item.KindTweet {
		t.Errorf("Kind = %q, want %q", got.Kind, item.KindTweet)
	}
	if got.CreatedAt != it.CreatedAt {
		t.Errorf("CreatedAt = %d, want %d", got.CreatedAt, it.CreatedAt)
	}
}

func TestGet_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "nonexistent")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Get should return ErrNotFound, got: %v", err)
	}
}

func TestInsert_Duplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, newTestItem("01DUP", "a")); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	err := store.Insert(ctx, newTestItem("01DUP", "b"))
	if !errors.Is(err, errors.ErrConflict) {
		t.Errorf("second Insert should return ErrConflict, got: %v", err)
	}
}

func TestInsertAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	items := []*item.SavedItem{newTestItem("01A", "a"), newTestItem("01B", "b")}
	if err := store.InsertAll(ctx, items); err != nil {
		t.Fatalf("InsertAll failed: %v", err)
	}

	_, total, err := store.ListRecent(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
}

func TestInsertAll_RollsBackOnConflict(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, newTestItem("01B", "existing")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	err := store.InsertAll(ctx, []*item.SavedItem{newTestItem("01A", "a"), newTestItem("01B", "b")})
	if !errors.Is(err, errors.ErrConflict) {
		t.Fatalf("InsertAll should return ErrConflict, got: %v", err)
	}

	if ok, _ := store.Exists(ctx, "01A"); ok {
		t.Error("01A should have been rolled back")
	}
	got, err := store.Get(ctx, "01B")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Content != "existing" {
		t.Errorf("Content = %q, want existing", got.Content)
	}
}

func TestReplace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	original := newTestItem("01R", "old")
	if err := store.Replace(ctx, original); err != nil {
		t.Fatalf("Replace (insert) failed: %v", err)
	}

	updated := newTestItem("01R", "new body")
	updated.Kind = item.KindBlog
	updated.Title = stringPtr("Title")
	updated.CreatedAt = 100
	updated.UpdatedAt = 200
	if err := store.Replace(ctx, updated); err != nil {
		t.Fatalf("Replace (overwrite) failed: %v", err)
	}

	got, err := store.Get(ctx, "01R")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Content != "new body" || got.Kind != item.KindBlog {
		t.Errorf("got %q/%q, want new body/blog", got.Content, got.Kind)
	}
	if got.Title == nil || *got.Title != "Title" {
		t.Errorf("Title = %v, want Title", got.Title)
	}
	if got.CreatedAt != 100 || got.UpdatedAt != 200 {
		t.Errorf("timestamps = %d/%d, want 100/200", got.CreatedAt, got.UpdatedAt)
	}
}

func TestExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, newTestItem("01E", "a")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if ok, err := store.Exists(ctx, "01E"); err != nil || !ok {
		t.Errorf("Exists(01E) = %v, %v; want true", ok, err)
	}
	if ok, err := store.Exists(ctx, "01NOPE"); err != nil || ok {
		t.Errorf("Exists(01NOPE) = %v, %v; want false", ok, err)
	}
}

func TestUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	it := newTestItem("01UPD", "draft")
	it.CreatedAt = 100
	it.UpdatedAt = 100
	if err := store.Insert(ctx, it); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	it.Content = "final"
	it.ContentChars = item.CountChars("final")
	it.Title = stringPtr("Final")
	if err := store.Update(ctx, it); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if it.UpdatedAt <= 100 {
		t.Errorf("UpdatedAt = %d, want refreshed", it.UpdatedAt)
	}

	got, err := store.Get(ctx, "01UPD")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Content != "final" || got.Title == nil || *got.Title != "Final" {
		t.Errorf("after Update: %+v", got)
	}
	if got.CreatedAt != 100 {
		t.Errorf("CreatedAt = %d, want unchanged 100", got.CreatedAt)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.Update(context.Background(), newTestItem("ghost", "x"))
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Update should return ErrNotFound, got: %v", err)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, newTestItem("01DEL", "bye")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Delete(ctx, "01DEL"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := store.Get(ctx, "01DEL"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Get after Delete should return ErrNotFound, got: %v", err)
	}
	if err := store.Delete(ctx, "01DEL"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second Delete should return ErrNotFound, got: %v", err)
	}
}

func TestListRecent_Ordering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Same timestamp for B and C: id breaks the tie
	for _, tc := range []struct {
		id string
		at int64
	}{
		{"01A", 100},
		{"01B", 200},
		{"01C", 200},
		{"01D", 50},
	} {
		it := newTestItem(tc.id, "content "+tc.id)
		it.CreatedAt = tc.at
		if err := store.Insert(ctx, it); err != nil {
			t.Fatalf("Insert %s failed: %v", tc.id, err)
		}
	}

	items, total, err := store.ListRecent(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}

	want := []string{"01C", "01B", "01A", "01D"}
	if len(items) != len(want) {
		t.Fatalf("len(items) = %d, want %d", len(items), len(want))
	}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("items[%d].ID = %q, want %q", i, items[i].ID, id)
		}
	}
}

func TestListRecent_Pagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"01A", "01B", "01C", "01D", "01E"} {
		it := newTestItem(id, "x")
		it.CreatedAt = int64(i)
		if err := store.Insert(ctx, it); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	page, total, err := store.ListRecent(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(page) != 2 || page[0].ID != "01C" || page[1].ID != "01B" {
		t.Errorf("page = %v", page)
	}
}

func TestListRecent_Empty(t *testing.T) {
	store := newTestStore(t)

	items, total, err := store.ListRecent(context.Background(), 20, 0)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Errorf("got %d items (total %d), want none", len(items), total)
	}
}

func TestStreamAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"01B", "01A"} {
		it := newTestItem(id, "x")
		it.CreatedAt = int64(10 - i)
		if err := store.Insert(ctx, it); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	rows, err := store.StreamAll(ctx)
	if err != nil {
		t.Fatalf("StreamAll failed: %v", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		it, err := ScanItemFromRows(rows)
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		ids = append(ids, it.ID)
	}
	if len(ids) != 2 || ids[0] != "01A" || ids[1] != "01B" {
		t.Errorf("stream order = %v, want oldest first", ids)
	}
}

func TestNullHelpers(t *testing.T) {
	if got := fromNullInt(toNullInt(nil)); got != nil {
		t.Errorf("nil int round trip = %v", *got)
	}
	if got := fromNullInt(toNullInt(intPtr(3))); got == nil || *got != 3 {
		t.Errorf("int round trip = %v", got)
	}
	if got := fromNullString(sql.NullString{}); got != nil {
		t.Errorf("invalid NullString = %q, want nil", *got)
	}
}

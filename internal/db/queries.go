package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/remixer/internal/errors"
	"github.com/hpungsan/remixer/internal/item"
)

// notFoundKind names saved items in NOT_FOUND errors.
const notFoundKind = "Saved item"

const itemColumns = `id, content, content_chars, is_thread, thread_position,
	title, kind, source_url, created_at, updated_at`

// SavedItems is the SQLite store for saved items.
type SavedItems struct {
	db *sql.DB
}

// NewSavedItems wraps an initialized database.
func NewSavedItems(db *sql.DB) *SavedItems {
	return &SavedItems{db: db}
}

// Insert stores a new item.
func (s *SavedItems) Insert(ctx context.Context, it *item.SavedItem) error {
	query := `
		INSERT INTO saved_items (
			id, content, content_chars, is_thread, thread_position,
			title, kind, source_url, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		it.ID, it.Content, it.ContentChars, it.IsThread, toNullInt(it.ThreadPosition),
		toNullString(it.Title), it.Kind, toNullString(it.SourceURL), it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewConflict(it.ID)
		}
		return errors.NewInternal(err)
	}

	return nil
}

// InsertAll stores items in one transaction. A duplicate id rolls back the
// whole batch with a CONFLICT error.
func (s *SavedItems) InsertAll(ctx context.Context, items []*item.SavedItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO saved_items (
			id, content, content_chars, is_thread, thread_position,
			title, kind, source_url, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for _, it := range items {
		_, err := stmt.ExecContext(ctx,
			it.ID, it.Content, it.ContentChars, it.IsThread, toNullInt(it.ThreadPosition),
			toNullString(it.Title), it.Kind, toNullString(it.SourceURL), it.CreatedAt, it.UpdatedAt,
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return errors.NewConflict(it.ID)
			}
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Replace inserts it, or overwrites every column of the row with the same id.
// Timestamps are taken from it as-is.
func (s *SavedItems) Replace(ctx context.Context, it *item.SavedItem) error {
	query := `
		INSERT INTO saved_items (
			id, content, content_chars, is_thread, thread_position,
			title, kind, source_url, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			content_chars = excluded.content_chars,
			is_thread = excluded.is_thread,
			thread_position = excluded.thread_position,
			title = excluded.title,
			kind = excluded.kind,
			source_url = excluded.source_url,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		it.ID, it.Content, it.ContentChars, it.IsThread, toNullInt(it.ThreadPosition),
		toNullString(it.Title), it.Kind, toNullString(it.SourceURL), it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite reports both UNIQUE and PRIMARY KEY violations this way
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Get retrieves an item by its ULID.
func (s *SavedItems) Get(ctx context.Context, id string) (*item.SavedItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM saved_items WHERE id = ?`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(notFoundKind, id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return it, nil
}

// Exists reports whether an item with id is stored.
func (s *SavedItems) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM saved_items WHERE id = ? LIMIT 1`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// ListRecent returns a page of items, newest first, with the total count.
// Ties on created_at are broken by id (ULIDs sort by creation time).
func (s *SavedItems) ListRecent(ctx context.Context, limit, offset int) ([]item.SavedItem, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM saved_items`).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM saved_items
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var items []item.SavedItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return items, total, nil
}

// Update writes the mutable fields of an existing item and sets updated_at.
// Does NOT change: id, kind, source_url, created_at
func (s *SavedItems) Update(ctx context.Context, it *item.SavedItem) error {
	now := time.Now().Unix()

	query := `
		UPDATE saved_items
		SET content = ?, content_chars = ?, is_thread = ?, thread_position = ?,
			title = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		it.Content, it.ContentChars, it.IsThread, toNullInt(it.ThreadPosition),
		toNullString(it.Title), now,
		it.ID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(notFoundKind, it.ID)
	}

	it.UpdatedAt = now
	return nil
}

// Delete removes an item.
func (s *SavedItems) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM saved_items WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(notFoundKind, id)
	}
	return nil
}

// StreamAll returns every item oldest first for export. The caller closes
// the rows and scans them with ScanItemFromRows.
func (s *SavedItems) StreamAll(ctx context.Context) (*sql.Rows, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM saved_items
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rows, nil
}

// ScanItemFromRows scans the current row of a StreamAll result.
func ScanItemFromRows(rows *sql.Rows) (*item.SavedItem, error) {
	return scanItem(rows)
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanItem scans a single row into a SavedItem.
func scanItem(row scanner) (*item.SavedItem, error) {
	var (
		it             item.SavedItem
		threadPosition sql.NullInt64
		title          sql.NullString
		sourceURL      sql.NullString
	)

	err := row.Scan(
		&it.ID, &it.Content, &it.ContentChars, &it.IsThread, &threadPosition,
		&title, &it.Kind, &sourceURL, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	it.ThreadPosition = fromNullInt(threadPosition)
	it.Title = fromNullString(title)
	it.SourceURL = fromNullString(sourceURL)

	return &it, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func toNullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func fromNullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

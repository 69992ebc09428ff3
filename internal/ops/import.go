package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hpungsan/remixer/internal/config"
	"github.com/hpungsan/remixer/internal/db"
	"github.com/hpungsan/remixer/internal/errors"
	"github.com/hpungsan/remixer/internal/item"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on collision (atomic)
	ImportModeReplace ImportMode = "replace" // overwrite on collision
	ImportModeRename  ImportMode = "rename"  // fresh ULID on collision
)

// maxImportLine caps one JSONL line; content is bounded by MaxContentChars
// so this only guards against garbage files.
const maxImportLine = 4 * 1024 * 1024

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path       string     // required
	Mode       ImportMode // default: error
	ExportsDir string     // required, normally <base>/exports
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one line that could not be imported.
type ImportError struct {
	Line    int    `json:"line,omitempty"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Import loads saved items from a JSONL export file.
func Import(ctx context.Context, store *db.SavedItems, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeReplace && input.Mode != ImportModeRename {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, rename")
	}

	if err := ValidatePath(input.Path, PathCheckRead, input.ExportsDir, cfg); err != nil {
		return nil, err
	}

	file, err := openImportFile(input.Path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, parseErrors := parseExportFile(file, cfg)

	// mode:error is all-or-nothing
	if input.Mode == ImportModeError && len(parseErrors) > 0 {
		return &ImportOutput{Errors: parseErrors}, nil
	}

	switch input.Mode {
	case ImportModeError:
		return importModeError(ctx, store, records)
	case ImportModeReplace:
		return importModeReplace(ctx, store, records, parseErrors)
	default:
		return importModeRename(ctx, store, records, parseErrors)
	}
}

// parsedRecord is a validated item with its source line.
type parsedRecord struct {
	line int
	item *item.SavedItem
}

// parseExportFile decodes and validates every record line. The header line
// is skipped.
func parseExportFile(r io.Reader, cfg *config.Config) ([]parsedRecord, []ImportError) {
	var records []parsedRecord
	var parseErrors []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var record item.ExportRecord
		if err := json.Unmarshal(line, &record); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		if record.RemixerExport {
			continue
		}

		it, err := recordToItem(cfg, &record)
		if err != nil {
			code := "INVALID_RECORD"
			if e, ok := errors.As(err); ok && e.Code == errors.ErrContentTooLarge {
				code = string(errors.ErrContentTooLarge)
			}
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				ID:      record.ID,
				Code:    code,
				Message: err.Error(),
			})
			continue
		}

		records = append(records, parsedRecord{line: lineNum, item: it})
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, parseErrors
}

// recordToItem applies the same checks Save does.
func recordToItem(cfg *config.Config, record *item.ExportRecord) (*item.SavedItem, error) {
	if err := ValidateID(record.ID); err != nil {
		return nil, err
	}
	if record.Kind == "" {
		record.Kind = item.KindTweet
	}
	if record.Kind != item.KindTweet && record.Kind != item.KindBlog {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown kind %q", record.Kind))
	}
	if err := checkContent(cfg, record.Content, record.IsThread, record.ThreadPosition); err != nil {
		return nil, err
	}
	return record.ToItem(), nil
}

// importModeError inserts every record in one transaction; any collision
// aborts the import with nothing written.
func importModeError(ctx context.Context, store *db.SavedItems, records []parsedRecord) (*ImportOutput, error) {
	items := make([]*item.SavedItem, 0, len(records))
	for _, r := range records {
		items = append(items, r.item)
	}

	if err := store.InsertAll(ctx, items); err != nil {
		e, ok := errors.As(err)
		if !ok || e.Code != errors.ErrConflict {
			return nil, err
		}
		importErr := ImportError{
			Code:    "ID_COLLISION",
			Message: e.Message,
		}
		id, _ := e.Details["identifier"].(string)
		for _, r := range records {
			if r.item.ID == id {
				importErr.Line = r.line
				importErr.ID = r.item.ID
				break
			}
		}
		return &ImportOutput{Errors: []ImportError{importErr}}, nil
	}

	return &ImportOutput{Imported: len(items), Errors: []ImportError{}}, nil
}

// importModeReplace overwrites existing items with the same id.
func importModeReplace(ctx context.Context, store *db.SavedItems, records []parsedRecord, parseErrors []ImportError) (*ImportOutput, error) {
	out := &ImportOutput{Skipped: len(parseErrors), Errors: append([]ImportError{}, parseErrors...)}

	for _, r := range records {
		if err := store.Replace(ctx, r.item); err != nil {
			return nil, err
		}
		out.Imported++
	}
	return out, nil
}

// importModeRename keeps existing items and stores colliding records under
// a fresh ULID.
func importModeRename(ctx context.Context, store *db.SavedItems, records []parsedRecord, parseErrors []ImportError) (*ImportOutput, error) {
	out := &ImportOutput{Skipped: len(parseErrors), Errors: append([]ImportError{}, parseErrors...)}

	for _, r := range records {
		exists, err := store.Exists(ctx, r.item.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			id, err := generateULID()
			if err != nil {
				return nil, errors.NewInternal(err)
			}
			r.item.ID = id
		}

		if err := store.Insert(ctx, r.item); err != nil {
			out.Errors = append(out.Errors, ImportError{
				Line:    r.line,
				ID:      r.item.ID,
				Code:    "INSERT_FAILED",
				Message: fmt.Sprintf("failed to insert: %v", err),
			})
			out.Skipped++
			continue
		}
		out.Imported++
	}
	return out, nil
}

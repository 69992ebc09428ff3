//go:build windows

package ops

import (
	stderrors "errors"
	"io/fs"
	"os"

	"github.com/hpungsan/remixer/internal/errors"
)

// createExportFile creates (or truncates) an export temp file. There is no
// O_NOFOLLOW here; ValidatePath has refused symlinks.
func createExportFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
}

func openImportFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, errors.NewNotFound("File", path)
	}
	return f, err
}

//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/remixer/internal/errors"
)

// createExportFile creates (or truncates) an export temp file. O_NOFOLLOW
// refuses a symlink planted at path after ValidatePath ran.
func createExportFile(path string) (*os.File, error) {
	return openNoFollow(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600, "cannot write to symlink")
}

// openImportFile opens an import file read-only without following symlinks.
func openImportFile(path string) (*os.File, error) {
	f, err := openNoFollow(path, os.O_RDONLY, 0, "cannot read from symlink")
	if stderrors.Is(err, syscall.ENOENT) {
		return nil, errors.NewNotFound("File", path)
	}
	return f, err
}

func openNoFollow(path string, flag int, perm os.FileMode, symlinkMsg string) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if stderrors.Is(err, syscall.ELOOP) {
		return nil, errors.NewInvalidRequest(symlinkMsg)
	}
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}

package ops

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hpungsan/remixer/internal/config"
	"github.com/hpungsan/remixer/internal/errors"
)

// exportExt is the only extension accepted for export and import files.
const exportExt = ".jsonl"

// PathCheckMode selects the checks for an import (read) or export (write).
type PathCheckMode int

const (
	PathCheckRead PathCheckMode = iota
	PathCheckWrite
)

// ExportsDir returns <baseDir>/exports, the default home of export files.
func ExportsDir(baseDir string) string {
	return filepath.Join(baseDir, "exports")
}

// ValidatePath accepts a .jsonl file sitting directly in exportsDir or in an
// absolute store.allowed_paths entry. Neither the file nor its directory may
// be a symlink. store.allow_unsafe_paths lifts the directory rule only.
// In read mode the file must already exist.
func ValidatePath(path string, mode PathCheckMode, exportsDir string, cfg *config.Config) error {
	abs, err := resolveExportPath(path)
	if err != nil {
		return err
	}

	if cfg == nil || !cfg.Store.AllowUnsafePaths {
		if err := checkExportDir(filepath.Dir(abs), exportsDir, cfg); err != nil {
			return err
		}
	}

	if mode == PathCheckRead {
		if _, err := os.Stat(abs); stderrors.Is(err, fs.ErrNotExist) {
			return errors.NewNotFound("File", path)
		}
	}

	if isSymlink(abs) {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

// resolveExportPath checks the shape of path and makes it absolute.
func resolveExportPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.NewInvalidRequest("path is required")
	}
	if hasParentRef(path) {
		return "", errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if filepath.Ext(cleaned) != exportExt {
		return "", errors.NewInvalidRequest("path must have " + exportExt + " extension")
	}

	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}
	return abs, nil
}

// checkExportDir requires dir to be one of the export roots itself;
// subdirectories of a root do not qualify.
func checkExportDir(dir, exportsDir string, cfg *config.Config) error {
	roots, err := exportRoots(exportsDir, cfg)
	if err != nil {
		return err
	}
	if !slices.Contains(roots, filepath.Clean(dir)) {
		return errors.NewInvalidRequest(fmt.Sprintf(
			"file must be directly in an allowed directory (no subdirectories); allowed: %v", roots))
	}
	if isSymlink(dir) {
		return errors.NewInvalidRequest("parent directory must not be a symlink")
	}
	return nil
}

// exportRoots lists exportsDir and the absolute allowed_paths entries.
// A root that is itself a symlink is replaced by its target.
func exportRoots(exportsDir string, cfg *config.Config) ([]string, error) {
	candidates := []string{exportsDir}
	if cfg != nil {
		for _, p := range cfg.Store.AllowedPaths {
			if filepath.IsAbs(p) {
				candidates = append(candidates, p)
			}
		}
	}

	roots := make([]string, 0, len(candidates))
	for _, c := range candidates {
		root, err := filepath.Abs(filepath.Clean(c))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if isSymlink(root) {
			if root, err = filepath.EvalSymlinks(root); err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
		}
		roots = append(roots, root)
	}
	return roots, nil
}

// hasParentRef reports whether any path component is "..".
func hasParentRef(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&fs.ModeSymlink != 0
}

package file

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const dirPerm = 0o755

// Storage provides a simple file-based storage backend for derivatives.
// Relative paths are resolved against basePath; an empty basePath means the
// working directory.
type Storage struct {
	basePath string
}

// NewStorage creates a new Storage instance rooted at basePath.
func NewStorage(basePath string) *Storage {
	return &Storage{basePath: basePath}
}

func (s *Storage) resolve(path string) string {
	if s.basePath == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.basePath, path)
}

// IsRegular reports whether path exists and is a regular file.
func (s *Storage) IsRegular(path string) (bool, error) {
	info, err := os.Stat(s.resolve(path))
	if err != nil {
		return false, err
	}

	return info.Mode().IsRegular(), nil
}

// EnsureDir creates dir and its parents. An existing directory is not an error,
// so concurrent callers may race on the same tree.
func (s *Storage) EnsureDir(dir string) error {
	dir = s.resolve(dir)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return nil
}

// Save writes src to dir/filename, truncating an existing file. The file is
// written in place; a crash mid-write leaves a partial file behind.
func (s *Storage) Save(dir, filename string, src io.Reader) (string, error) {
	dstPath := filepath.Join(s.resolve(dir), filename)

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", dstPath, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("failed to save file %s: %w", dstPath, err)
	}

	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to close file %s: %w", dstPath, err)
	}

	return dstPath, nil
}

// Load opens the file and returns a reader.
func (s *Storage) Load(path string) (io.ReadCloser, error) {
	return os.Open(s.resolve(path))
}

package infrastructure

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/yourusername/halftunes/internal/domain"
)

// LocalStore keeps completed previews in a single library directory.
//
// Files are named after the last path segment of their source URL, so two
// URLs that share a filename map to the same file and the most recent
// download overwrites the earlier one.
type LocalStore struct {
	dir string
}

var _ domain.LocalStore = (*LocalStore)(nil)

// NewLocalStore creates a store rooted at dir. The directory is created lazily by Place.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir}
}

// Dir returns the library directory
func (s *LocalStore) Dir() string {
	return s.dir
}

// PathFor returns the destination of sourceURL inside the library
func (s *LocalStore) PathFor(sourceURL string) (string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse source url: %w", err)
	}

	name := path.Base(u.Path)
	switch name {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: %s", domain.ErrNoFilename, sourceURL)
	}

	return filepath.Join(s.dir, name), nil
}

// Exists reports whether a regular file is present at p
func (s *LocalStore) Exists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// Place moves a completed temporary file into the library, replacing any previous copy
func (s *LocalStore) Place(temporaryPath, sourceURL string) (string, error) {
	dest, err := s.PathFor(sourceURL)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create library directory: %w", err)
	}

	// A completed re-download always wins over a stale copy
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to remove previous file: %w", err)
	}

	if err := os.Rename(temporaryPath, dest); err != nil {
		// If rename fails (e.g. across devices), try copy and delete
		if err := copyFile(temporaryPath, dest); err != nil {
			return "", fmt.Errorf("failed to move %s: %w", temporaryPath, err)
		}
		os.Remove(temporaryPath)
	}

	return dest, nil
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		os.Remove(dst)
		return err
	}
	return destFile.Close()
}

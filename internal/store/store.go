// Package store keeps generated audio as flat files in a single directory.
//
// The store holds no index. Callers group files by a shared name prefix and
// recover the group with ListByPrefix.
package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File and directory permissions.
const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

// Static errors.
var (
	ErrDirEmpty = errors.New("output directory cannot be empty")
	ErrNotFound = errors.New("file not found")
)

// FileStore implements core.AudioStore on the local filesystem.
type FileStore struct {
	dir string
}

// New returns a store rooted at dir, creating the directory if needed.
func New(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, ErrDirEmpty
	}

	err := os.MkdirAll(dir, dirPermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return &FileStore{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (s *FileStore) Dir() string {
	return s.dir
}

// Write creates or overwrites name with data.
func (s *FileStore) Write(name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	err = os.WriteFile(path, data, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	return nil
}

// Read returns the full contents of name.
func (s *FileStore) Read(name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapMissing(name, err)
	}

	return data, nil
}

// Open returns a reader for name. The caller closes it.
func (s *FileStore) Open(name string) (io.ReadCloser, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, wrapMissing(name, err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("failed to stat %s: %w", name, err)
	}

	if info.IsDir() {
		_ = file.Close()

		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return file, nil
}

// ListByPrefix returns the names of the regular files whose name starts with
// prefix, sorted.
func (s *FileStore) ListByPrefix(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	var names []string

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		if strings.HasPrefix(entry.Name(), prefix) {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)

	return names, nil
}

func (s *FileStore) path(name string) (string, error) {
	err := ValidateName(name)
	if err != nil {
		return "", err
	}

	return filepath.Join(s.dir, name), nil
}

func wrapMissing(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return fmt.Errorf("failed to read %s: %w", name, err)
}

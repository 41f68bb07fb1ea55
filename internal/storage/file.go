package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// File implements TokenStore as a single file holding the raw token.
type File struct {
	path string // absolute path to the token file
}

// NewFile creates a File store at path. The parent directory is created
// on first write, not here.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("storage: token path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve path: %w", err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return nil, fmt.Errorf("storage: token path is a directory: %s", abs)
	}
	return &File{path: abs}, nil
}

// Path returns the absolute token file path.
func (f *File) Path() string { return f.path }

// Load reads the token. A missing file yields "".
func (f *File) Load() (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("storage: read token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save atomically writes the token: tmp file → fsync → rename.
func (f *File) Save(token string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".foodly-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(0o600); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if _, err := tmp.WriteString(token); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes the token file.
func (f *File) Delete() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete token: %w", err)
	}
	return nil
}

// Close is a no-op.
func (f *File) Close() error { return nil }

package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore stores a document in a local file.
type FileStore struct {
	Path string

	// Mode is the permission of newly written files; 0 means 0o600.
	Mode os.FileMode

	// Logger receives Watch events. Nil uses slog.Default.
	Logger *slog.Logger
}

// NewFileStore returns a FileStore for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (f *FileStore) Load(context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save writes data to a temp file in the same directory and renames it over Path.
func (f *FileStore) Save(_ context.Context, data []byte) error {
	mode := f.Mode
	if mode == 0 {
		mode = 0o600
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("docstore: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("docstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("docstore: write %s: %w", f.Path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("docstore: sync %s: %w", f.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("docstore: close %s: %w", f.Path, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("docstore: chmod %s: %w", f.Path, err)
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		return fmt.Errorf("docstore: rename into %s: %w", f.Path, err)
	}
	return nil
}

func (f *FileStore) Location() string { return f.Path }

func (f *FileStore) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"linkpost/internal/models"
)

// fileStore persists a single JSON document as a whole file. Every write
// replaces the full document; there is no partial update. A missing file is
// the first-run case and reads as an empty document. Any other read failure
// is reported as models.ErrStorage, never as an empty store.
type fileStore struct {
	path string
}

func newFileStore(dir, name string) (*fileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error(err.Error())
		return nil, fmt.Errorf("%w: creating data directory: %v", models.ErrStorage, err)
	}
	return &fileStore{path: filepath.Join(dir, name)}, nil
}

func (f *fileStore) read(v any) error {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		slog.Error(err.Error())
		return fmt.Errorf("%w: reading %s: %v", models.ErrStorage, f.path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		slog.Error(err.Error())
		return fmt.Errorf("%w: decoding %s: %v", models.ErrStorage, f.path, err)
	}
	return nil
}

func (f *fileStore) write(v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		slog.Error(err.Error())
		return fmt.Errorf("%w: encoding %s: %v", models.ErrStorage, f.path, err)
	}

	// Write to a temp file in the same directory and rename over the
	// document so readers never observe a torn write.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		slog.Error(err.Error())
		return fmt.Errorf("%w: writing %s: %v", models.ErrStorage, tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		slog.Error(err.Error())
		return fmt.Errorf("%w: replacing %s: %v", models.ErrStorage, f.path, err)
	}
	return nil
}

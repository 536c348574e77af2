package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileGateway stores each slot as a file named after the slot inside Dir.
// Writes use the temp-file, fsync, rename pattern so a slot file is never
// observed half-written.
type FileGateway struct {
	dir string
}

var _ Gateway = (*FileGateway)(nil)

// OpenFile returns a FileGateway rooted at dir, creating dir if needed.
func OpenFile(dir string) (*FileGateway, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create slot dir: %w", err)
	}
	return &FileGateway{dir: dir}, nil
}

// Dir returns the directory holding the slot files.
func (g *FileGateway) Dir() string {
	return g.dir
}

func (g *FileGateway) path(slot Slot) string {
	return filepath.Join(g.dir, string(slot)+".json")
}

// Read returns the contents of the slot file, or ok=false if it does not exist.
func (g *FileGateway) Read(_ context.Context, slot Slot) (string, bool, error) {
	if err := checkSlot("file", "read", slot); err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(g.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, newStorageError("file", "read", slot, err)
	}
	return string(data), true, nil
}

// Write atomically replaces the slot file.
func (g *FileGateway) Write(_ context.Context, slot Slot, text string) error {
	if err := checkSlot("file", "write", slot); err != nil {
		return err
	}
	if err := writeAtomic(g.path(slot), []byte(text)); err != nil {
		return newStorageError("file", "write", slot, err)
	}
	return nil
}

// Clear removes every slot file. Missing files are ignored.
func (g *FileGateway) Clear(_ context.Context) error {
	for _, slot := range Slots {
		if err := os.Remove(g.path(slot)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return newStorageError("file", "clear", slot, err)
		}
	}
	return nil
}

// writeAtomic writes data to path via a temp file in the same directory.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".slot-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

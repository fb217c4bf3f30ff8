package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warekit/punchd/internal/model"
)

// FileBackend is the primary store: one JSON document per entry at
// <base>/queue/<localId>.json, written atomically via temp file + rename.
type FileBackend struct {
	dir string
}

func NewFileBackend(baseDir string) (*FileBackend, error) {
	dir := filepath.Join(baseDir, "queue")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating queue directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) Name() string { return "file" }

func (b *FileBackend) path(localID string) string {
	return filepath.Join(b.dir, localID+".json")
}

func (b *FileBackend) Enqueue(e model.QueuedEntry) (string, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshalling entry %s: %w", e.LocalID, err)
	}
	path := b.path(e.LocalID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return "", fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}
	return e.LocalID, nil
}

func (b *FileBackend) ListPending() ([]model.QueuedEntry, error) {
	dirEntries, err := os.ReadDir(b.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading queue directory: %w", err)
	}
	var entries []model.QueuedEntry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		path := filepath.Join(b.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var e model.QueuedEntry
		if err := json.Unmarshal(data, &e); err != nil {
			// Back up the corrupt file and keep listing; one damaged
			// entry must not hide the rest of the queue.
			backupPath := path + ".corrupt"
			_ = os.Rename(path, backupPath)
			fmt.Fprintf(os.Stderr, "Warning: corrupt queue entry %s (backed up to %s): %v\n", path, backupPath, err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (b *FileBackend) Remove(localID string) (bool, error) {
	err := os.Remove(b.path(localID))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("removing entry %s: %w", localID, err)
	}
	return true, nil
}

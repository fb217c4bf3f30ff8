package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/warekit/punchd/internal/model"
)

const textKeyPrefix = "attendance_"

// TextBackend is the fallback store used when the primary backend is
// unavailable: a flat directory of files keyed attendance_<epoch-millis>,
// each holding the JSON-serialized capture record. There is no index; the
// pending set is found by scanning for the key prefix.
type TextBackend struct {
	dir string
}

func NewTextBackend(baseDir string) (*TextBackend, error) {
	dir := filepath.Join(baseDir, "fallback")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating fallback directory: %w", err)
	}
	return &TextBackend{dir: dir}, nil
}

func (b *TextBackend) Name() string { return "text" }

// textValue is the stored payload: the capture record plus queue metadata.
type textValue struct {
	SavedAt  time.Time           `json:"saved_at"`
	Attempts int                 `json:"attempts"`
	Record   model.CaptureRecord `json:"record"`
}

func (b *TextBackend) Enqueue(e model.QueuedEntry) (string, error) {
	key := e.LocalID
	if !strings.HasPrefix(key, textKeyPrefix) {
		key = fmt.Sprintf("%s%d", textKeyPrefix, e.EnqueuedAt.UnixMilli())
		// Keep keys unique if two captures land in the same millisecond.
		for i := 1; ; i++ {
			if _, err := os.Stat(filepath.Join(b.dir, key)); os.IsNotExist(err) {
				break
			}
			key = fmt.Sprintf("%s%d_%d", textKeyPrefix, e.EnqueuedAt.UnixMilli(), i)
		}
	}
	data, err := json.Marshal(textValue{SavedAt: e.EnqueuedAt, Attempts: e.AttemptCount, Record: e.Record})
	if err != nil {
		return "", fmt.Errorf("marshalling fallback entry: %w", err)
	}
	if err := os.WriteFile(filepath.Join(b.dir, key), data, 0o600); err != nil {
		return "", fmt.Errorf("writing fallback entry: %w", err)
	}
	return key, nil
}

func (b *TextBackend) ListPending() ([]model.QueuedEntry, error) {
	dirEntries, err := os.ReadDir(b.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading fallback directory: %w", err)
	}
	var entries []model.QueuedEntry
	for _, de := range dirEntries {
		key := de.Name()
		if de.IsDir() || !strings.HasPrefix(key, textKeyPrefix) {
			continue
		}
		// Backed-up corrupt entries keep the key prefix; never rescan them.
		if strings.Contains(key, ".corrupt") {
			continue
		}
		path := filepath.Join(b.dir, key)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var v textValue
		if err := json.Unmarshal(data, &v); err != nil {
			backupPath := path + ".corrupt"
			_ = os.Rename(path, backupPath)
			fmt.Fprintf(os.Stderr, "Warning: corrupt fallback entry %s (backed up to %s): %v\n", path, backupPath, err)
			continue
		}
		entries = append(entries, model.QueuedEntry{
			LocalID:      key,
			EnqueuedAt:   v.SavedAt,
			AttemptCount: v.Attempts,
			Record:       v.Record,
		})
	}
	return entries, nil
}

func (b *TextBackend) Remove(localID string) (bool, error) {
	if !strings.HasPrefix(localID, textKeyPrefix) {
		return false, nil
	}
	err := os.Remove(filepath.Join(b.dir, localID))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("removing fallback entry %s: %w", localID, err)
	}
	return true, nil
}

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

var ErrEmptyPayload = errors.New("storage: refusing to store empty payload")

// Store persists photos under a date-partitioned directory tree:
// <root>/YYYY-MM-DD/HHMMSS.mmm-<id>.jpg. Files are never mutated after
// creation.
type Store struct {
	Root string
}

func NewStore(root string) *Store {
	return &Store{Root: root}
}

// Save writes payload to its date-partitioned location and returns the final
// path. The write goes to a temporary name in the same directory and is
// renamed into place, so no external reader ever observes a partial file.
func (s *Store) Save(payload []byte, taken time.Time) (string, error) {
	if len(payload) == 0 {
		return "", ErrEmptyPayload
	}
	dir, err := s.EnsureDateDir(taken)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s-%s.jpg", taken.Format("150405.000"), shortID())
	final := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("storage: create temp in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("storage: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("storage: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("storage: finalize %s: %w", final, err)
	}
	return final, nil
}

// EnsureDateDir creates the directory for taken's date if absent. Safe to
// call redundantly, including concurrently for the same date.
func (s *Store) EnsureDateDir(taken time.Time) (string, error) {
	dir := filepath.Join(s.Root, taken.Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure %s: %w", dir, err)
	}
	return dir, nil
}

// shortID disambiguates filenames within the same millisecond, so rapid
// successive transfers never collide without needing a lock.
func shortID() string {
	return uuid.NewString()[:8]
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/bbernstein/flowebb/tideclock/internal/models"
	"github.com/rs/zerolog/log"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps the extrema cache in a JSON file on local storage.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save replaces the cache file. The new content is written to a temporary
// file in the same directory and renamed over the old one.
func (s *FileStore) Save(_ context.Context, set *models.ExtremaSet) error {
	data, err := json.Marshal(NewExtremaRecord(set))
	if err != nil {
		return fmt.Errorf("encoding cache record: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}

	log.Debug().
		Str("path", s.path).
		Int("extremes", set.Count()).
		Msg("Saved tide cache")
	return nil
}

func (s *FileStore) Load(_ context.Context) (*models.ExtremaSet, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	var record ExtremaRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, NewCorruptError("decoding JSON", err)
	}

	set, err := record.ToSet()
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("path", s.path).
		Int("extremes", set.Count()).
		Int64("fetched_at", set.FetchedAtUTC).
		Msg("Loaded tide cache")
	return set, nil
}

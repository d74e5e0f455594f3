package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/NiceTop1027/file.dyhs.kr/internal/models"
)

// Store is the durable backing of the metadata store: an ordered
// sequence of file records serialized as JSON in a single local file.
// It is the Go rendition of the browser's local storage area the
// original client persisted into.
type Store struct {
	path string
}

// New creates the store, making sure the parent directory exists.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	return &Store{path: path}, nil
}

// Load reads all persisted records. A missing or unreadable file and a
// corrupted payload both yield an empty sequence: the caller should
// never crash on stale local state, so corruption is logged and
// swallowed here.
func (s *Store) Load() []*models.FileRecord {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", s.path).Msg("metadata file unreadable, starting empty")
		}
		return nil
	}

	var records []*models.FileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("metadata file corrupted, starting empty")
		return nil
	}

	return records
}

// Save writes the full record sequence. The file is replaced via a
// temp-file rename so a crash mid-write never leaves a torn payload.
func (s *Store) Save(records []*models.FileRecord) error {
	if records == nil {
		records = []*models.FileRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing metadata file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing metadata file: %w", err)
	}

	return nil
}

// Health reports whether the backing file is usable.
func (s *Store) Health() map[string]string {
	stats := map[string]string{"status": "up"}

	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		stats["state"] = "empty"
		return stats
	}
	if err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		return stats
	}

	stats["state"] = "ready"
	stats["size"] = fmt.Sprintf("%d", info.Size())
	return stats
}

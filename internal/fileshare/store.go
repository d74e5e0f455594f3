package fileshare

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NiceTop1027/file.dyhs.kr/internal/models"
)

// Backend is the durable persistence behind the metadata store. Load
// must recover from missing or corrupted state by returning an empty
// sequence, never an error.
type Backend interface {
	Load() []*models.FileRecord
	Save([]*models.FileRecord) error
}

// Store is the single source of truth for file metadata. A mutex
// serializes every read-modify-write of the record set, which keeps
// the id-uniqueness and ownership invariants intact under concurrent
// handlers and the cleanup sweep.
type Store struct {
	mu      sync.Mutex
	backend Backend
	records []*models.FileRecord
	now     func() time.Time
}

// NewStore loads the persisted records through the backend. Corrupt or
// missing state comes back as an empty store by the Backend contract.
func NewStore(backend Backend) *Store {
	records := backend.Load()
	log.Info().Int("count", len(records)).Msg("metadata store loaded")

	return &Store{
		backend: backend,
		records: records,
		now:     time.Now,
	}
}

// SaveFileMetadata inserts a new record. A record with the same id
// already in the store rejects the save and leaves the existing record
// untouched.
func (s *Store) SaveFileMetadata(rec *models.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records {
		if existing.ID == rec.ID {
			return ErrDuplicateID
		}
	}

	s.records = append(s.records, rec)
	if err := s.backend.Save(s.records); err != nil {
		s.records = s.records[:len(s.records)-1]
		return err
	}

	return nil
}

// GetStoredFiles returns a snapshot of the live, non-expired records,
// most recent first. Mutating the returned records has no effect on
// the store.
func (s *Store) GetStoredFiles() []*models.FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	files := make([]*models.FileRecord, 0, len(s.records))
	for _, rec := range s.records {
		if rec.ExpiresAt.After(now) {
			clone := *rec
			files = append(files, &clone)
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].UploadedAt.After(files[j].UploadedAt)
	})

	return files
}

// Has reports whether any record, expired or not, holds the id. Used
// by the id allocator: an expired record still blocks its id until the
// sweep removes it.
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.ID == id {
			return true
		}
	}
	return false
}

// GetFileByID returns the record for id, or ErrNotFound when it is
// absent or already expired.
func (s *Store) GetFileByID(id string) (*models.FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.ID == id && rec.ExpiresAt.After(s.now()) {
			clone := *rec
			return &clone, nil
		}
	}

	return nil, ErrNotFound
}

// DeleteFileMetadata deletes the record iff the caller's session
// matches the uploader's. This is a soft ownership check over the
// client's own data, not an authentication boundary. Reports whether
// the record was removed.
func (s *Store) DeleteFileMetadata(id, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range s.records {
		if rec.ID != id {
			continue
		}
		if rec.UserID != sessionID {
			return false
		}

		s.records = append(s.records[:i], s.records[i+1:]...)
		s.persist()
		return true
	}

	return false
}

// UpdateDownloadCount increments the download counter. An unknown id
// is a no-op, not an error: the download itself already succeeded.
func (s *Store) UpdateDownloadCount(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.ID == id {
			rec.DownloadCount++
			s.persist()
			return
		}
	}
}

// DeleteExpired physically removes every record whose expiry has
// passed and returns the removed records so the caller can drop the
// stored bytes too. Running with nothing expired is a no-op.
func (s *Store) DeleteExpired() []*models.FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []*models.FileRecord
	live := s.records[:0]
	for _, rec := range s.records {
		if rec.ExpiresAt.After(now) {
			live = append(live, rec)
		} else {
			expired = append(expired, rec)
		}
	}

	if len(expired) == 0 {
		return nil
	}

	s.records = live
	s.persist()
	return expired
}

// persist writes the current record set through the backend. Callers
// hold the mutex. A failed write keeps the in-memory state, the next
// successful mutation rewrites the full sequence anyway.
func (s *Store) persist() {
	if err := s.backend.Save(s.records); err != nil {
		log.Error().Err(err).Msg("failed to persist metadata store")
	}
}

package fileshare

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/NiceTop1027/file.dyhs.kr/internal/config"
	"github.com/NiceTop1027/file.dyhs.kr/internal/models"
	"github.com/NiceTop1027/file.dyhs.kr/internal/storage"
	"github.com/NiceTop1027/file.dyhs.kr/internal/validation"
)

// Attempts to find a free file id before an upload fails. The id space
// (36^4) is large relative to live files, collisions are rare.
const maxIDAttempts = 5

// RateLimitedError carries the wait hint of a rejected upload attempt.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%v: retry after %s", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }

// Service ties the file lifecycle together: rate limiting, id
// allocation, byte storage, metadata persistence and the cleanup
// worker.
type Service struct {
	store    *Store
	provider storage.Provider
	limiter  *RateLimiter
	config   *config.Config

	mu      sync.Mutex
	cleanup *CleanupWorker
}

func NewService(store *Store, provider storage.Provider, cfg *config.Config) *Service {
	return &Service{
		store:    store,
		provider: provider,
		limiter:  NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow),
		config:   cfg,
	}
}

// UploadRequest represents file upload parameters
type UploadRequest struct {
	File         multipart.File
	Header       *multipart.FileHeader
	SessionID    string
	SecurityMode bool
}

// UploadFile runs one upload: rate limit first (before any storage
// work), then validation, id allocation, byte upload and metadata
// persistence. A metadata failure rolls the stored object back.
func (s *Service) UploadFile(ctx context.Context, req *UploadRequest) (*models.CreateFileResponse, error) {
	if result := s.limiter.Check(req.SessionID); !result.Allowed {
		return nil, &RateLimitedError{RetryAfter: result.RetryAfter}
	}

	if req.Header.Size > s.config.UploadMaxSize {
		return nil, ErrFileTooLarge
	}
	if err := validation.ValidateUpload(req.Header.Filename, req.Header.Size, req.SessionID); err != nil {
		return nil, fmt.Errorf("invalid upload request: %w", err)
	}

	contentType, err := detectContentType(req.File, req.Header)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	ext := filepath.Ext(req.Header.Filename)

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		fileID, err := GenerateFileID()
		if err != nil {
			return nil, fmt.Errorf("generating file id: %w", err)
		}
		if s.store.Has(fileID) {
			continue
		}

		filename := fileID + ext
		objectName := storage.ObjectPrefix + filename

		url, err := s.provider.Upload(ctx, req.File, objectName, contentType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
		}

		now := time.Now()
		rec := &models.FileRecord{
			ID:           fileID,
			Filename:     filename,
			OriginalName: req.Header.Filename,
			Size:         req.Header.Size,
			Type:         contentType,
			URL:          url,
			UploadedAt:   now,
			ExpiresAt:    now.Add(s.config.FileTTL),
			UserID:       req.SessionID,
			SecurityMode: req.SecurityMode,
		}

		if err := s.store.SaveFileMetadata(rec); err != nil {
			// Roll back the stored bytes, then retry on a lost id race.
			if delErr := s.provider.Delete(ctx, objectName); delErr != nil {
				log.Error().Err(delErr).Str("object", objectName).Msg("failed to roll back stored object")
			}
			if err == ErrDuplicateID {
				if _, seekErr := req.File.Seek(0, 0); seekErr != nil {
					return nil, fmt.Errorf("rewinding file: %w", seekErr)
				}
				continue
			}
			return nil, fmt.Errorf("saving metadata: %w", err)
		}

		log.Info().
			Str("id", fileID).
			Str("original_name", rec.OriginalName).
			Str("size", humanize.Bytes(uint64(rec.Size))).
			Str("type", contentType).
			Time("expires_at", rec.ExpiresAt).
			Msg("file uploaded")

		return &models.CreateFileResponse{
			File:     rec,
			ShareURL: fmt.Sprintf("%s/share/%s", s.config.BaseURL, fileID),
		}, nil
	}

	return nil, fmt.Errorf("%w: gave up after %d attempts", ErrDuplicateID, maxIDAttempts)
}

// BulkUpload uploads a batch of files. Individual failures are tallied
// and the batch continues.
func (s *Service) BulkUpload(ctx context.Context, reqs []*UploadRequest) *models.BulkUploadResult {
	result := &models.BulkUploadResult{
		BatchID: uuid.New(),
		Total:   len(reqs),
	}

	for _, req := range reqs {
		resp, err := s.UploadFile(ctx, req)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", req.Header.Filename, err))
			log.Warn().
				Err(err).
				Str("batch_id", result.BatchID.String()).
				Str("original_name", req.Header.Filename).
				Msg("bulk upload entry failed")
			continue
		}
		result.Completed++
		result.Files = append(result.Files, resp)
	}

	return result
}

// GetFile retrieves the metadata record for a share code.
func (s *Service) GetFile(id string) (*models.FileRecord, error) {
	return s.store.GetFileByID(id)
}

// GetStoredFiles returns the live records, most recent first.
func (s *Service) GetStoredFiles() []*models.FileRecord {
	return s.store.GetStoredFiles()
}

// StreamFile writes the record's stored bytes to the response.
func (s *Service) StreamFile(ctx context.Context, rec *models.FileRecord, w http.ResponseWriter) error {
	return s.provider.Stream(ctx, storage.ObjectPrefix+rec.Filename, w)
}

// StreamObject writes a raw stored object to the response. Only
// objects under the upload prefix are reachable.
func (s *Service) StreamObject(ctx context.Context, objectName string, w http.ResponseWriter) error {
	if !strings.HasPrefix(objectName, storage.ObjectPrefix) {
		return ErrNotFound
	}
	return s.provider.Stream(ctx, objectName, w)
}

// RecordDownload bumps the download counter after a successful
// download. Unknown ids are ignored.
func (s *Service) RecordDownload(id string) {
	s.store.UpdateDownloadCount(id)
}

// DeleteFile removes a record and its stored bytes when the session
// matches the uploader. Byte deletion is best-effort: the metadata is
// gone either way.
func (s *Service) DeleteFile(ctx context.Context, id, sessionID string) error {
	rec, err := s.store.GetFileByID(id)
	if err != nil {
		return err
	}

	if !s.store.DeleteFileMetadata(id, sessionID) {
		return ErrUnauthorized
	}

	if err := s.provider.Delete(ctx, storage.ObjectPrefix+rec.Filename); err != nil {
		log.Warn().Err(err).Str("id", id).Msg("failed to delete stored bytes")
	}

	return nil
}

// Stats derives upload statistics from the current store.
func (s *Service) Stats() *models.UploadStatistics {
	return AggregateStatistics(s.store.GetStoredFiles(), time.Now())
}

// CleanupExpired is one sweep: expired records are removed from the
// store and their stored bytes are deleted. Idle rate limiter sessions
// are pruned on the same tick.
func (s *Service) CleanupExpired(ctx context.Context) error {
	expired := s.store.DeleteExpired()
	if len(expired) > 0 {
		log.Info().Int("count", len(expired)).Msg("cleanup removed expired files")
	}

	for _, rec := range expired {
		if err := s.provider.Delete(ctx, storage.ObjectPrefix+rec.Filename); err != nil {
			log.Warn().
				Err(err).
				Str("id", rec.ID).
				Str("filename", rec.Filename).
				Msg("failed to delete expired object")
		}
	}

	s.limiter.Prune()
	return nil
}

// SyncStorage deletes stored objects that no live record points at,
// e.g. leftovers of an upload that crashed between the byte write and
// the metadata write.
func (s *Service) SyncStorage(ctx context.Context) error {
	objects, err := s.provider.ListObjects(ctx)
	if err != nil {
		return fmt.Errorf("listing stored objects: %w", err)
	}

	known := make(map[string]bool)
	for _, rec := range s.store.GetStoredFiles() {
		known[storage.ObjectPrefix+rec.Filename] = true
	}

	var deleted int
	for _, obj := range objects {
		if known[obj.Name] {
			continue
		}
		if err := s.provider.Delete(ctx, obj.Name); err != nil {
			log.Warn().Err(err).Str("object", obj.Name).Msg("failed to delete orphaned object")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		log.Info().Int("count", deleted).Msg("storage sync removed orphaned objects")
	}
	return nil
}

// StartAutoCleanup starts the recurring sweep. Calling it again
// replaces the previous schedule instead of stacking a second one.
func (s *Service) StartAutoCleanup(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cleanup != nil {
		s.cleanup.Stop()
	}
	s.cleanup = NewCleanupWorker(s, interval)
	s.cleanup.Start(ctx)
}

// StopAutoCleanup stops the recurring sweep. No further ticks run; an
// in-flight sweep completes.
func (s *Service) StopAutoCleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cleanup != nil {
		s.cleanup.Stop()
		s.cleanup = nil
	}
}

// detectContentType sniffs the MIME type from the first 512 bytes,
// falling back to the client-declared type, then to a generic binary
// type. The file is rewound afterwards.
func detectContentType(file multipart.File, header *multipart.FileHeader) (string, error) {
	buff := make([]byte, 512)
	n, err := file.Read(buff)
	if err != nil && n == 0 {
		if declared := header.Header.Get("Content-Type"); declared != "" {
			return declared, nil
		}
		return "application/octet-stream", nil
	}

	if _, err := file.Seek(0, 0); err != nil {
		return "", err
	}

	contentType := http.DetectContentType(buff[:n])
	if contentType == "application/octet-stream" {
		if declared := header.Header.Get("Content-Type"); declared != "" {
			return declared, nil
		}
	}
	return contentType, nil
}

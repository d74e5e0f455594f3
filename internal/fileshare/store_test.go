package fileshare

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NiceTop1027/file.dyhs.kr/internal/models"
)

// memoryBackend is an in-memory Backend for store tests.
type memoryBackend struct {
	records []*models.FileRecord
	saveErr error
	saves   int
}

func (b *memoryBackend) Load() []*models.FileRecord {
	return b.records
}

func (b *memoryBackend) Save(records []*models.FileRecord) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	b.records = append([]*models.FileRecord(nil), records...)
	b.saves++
	return nil
}

func testRecord(id, userID string, uploadedAt time.Time) *models.FileRecord {
	return &models.FileRecord{
		ID:           id,
		Filename:     id + ".pdf",
		OriginalName: "report.pdf",
		Size:         2000000,
		Type:         "application/pdf",
		UploadedAt:   uploadedAt,
		ExpiresAt:    uploadedAt.Add(5 * time.Minute),
		UserID:       userID,
	}
}

func TestSaveFileMetadataRejectsDuplicateID(t *testing.T) {
	store := NewStore(&memoryBackend{})
	now := time.Now()

	first := testRecord("ab12", "user-1", now)
	require.NoError(t, store.SaveFileMetadata(first))

	second := testRecord("ab12", "user-2", now)
	second.OriginalName = "other.pdf"
	err := store.SaveFileMetadata(second)
	assert.ErrorIs(t, err, ErrDuplicateID)

	// First record remains unchanged.
	got, err := store.GetFileByID("ab12")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", got.OriginalName)
	assert.Equal(t, "user-1", got.UserID)
}

func TestSaveFileMetadataRollsBackOnPersistFailure(t *testing.T) {
	backend := &memoryBackend{saveErr: errors.New("disk full")}
	store := NewStore(backend)

	err := store.SaveFileMetadata(testRecord("ab12", "user-1", time.Now()))
	assert.Error(t, err)

	_, err = store.GetFileByID("ab12")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetStoredFilesMostRecentFirst(t *testing.T) {
	store := NewStore(&memoryBackend{})
	now := time.Now()

	require.NoError(t, store.SaveFileMetadata(testRecord("old1", "u", now.Add(-2*time.Minute))))
	require.NoError(t, store.SaveFileMetadata(testRecord("new1", "u", now)))
	require.NoError(t, store.SaveFileMetadata(testRecord("mid1", "u", now.Add(-time.Minute))))

	files := store.GetStoredFiles()
	require.Len(t, files, 3)
	assert.Equal(t, "new1", files[0].ID)
	assert.Equal(t, "mid1", files[1].ID)
	assert.Equal(t, "old1", files[2].ID)
}

func TestGetStoredFilesExcludesExpired(t *testing.T) {
	store := NewStore(&memoryBackend{})
	now := time.Now()

	require.NoError(t, store.SaveFileMetadata(testRecord("live", "u", now)))
	require.NoError(t, store.SaveFileMetadata(testRecord("dead", "u", now.Add(-10*time.Minute))))

	files := store.GetStoredFiles()
	require.Len(t, files, 1)
	assert.Equal(t, "live", files[0].ID)

	_, err := store.GetFileByID("dead")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetStoredFilesReturnsSnapshot(t *testing.T) {
	store := NewStore(&memoryBackend{})
	require.NoError(t, store.SaveFileMetadata(testRecord("ab12", "u", time.Now())))

	files := store.GetStoredFiles()
	files[0].DownloadCount = 99

	got, err := store.GetFileByID("ab12")
	require.NoError(t, err)
	assert.Equal(t, 0, got.DownloadCount)
}

func TestDeleteFileMetadataOwnership(t *testing.T) {
	store := NewStore(&memoryBackend{})
	require.NoError(t, store.SaveFileMetadata(testRecord("ab12", "owner-session", time.Now())))

	assert.False(t, store.DeleteFileMetadata("ab12", "other-session"))
	_, err := store.GetFileByID("ab12")
	assert.NoError(t, err, "record must stay intact after a mismatched delete")

	assert.True(t, store.DeleteFileMetadata("ab12", "owner-session"))
	_, err = store.GetFileByID("ab12")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.False(t, store.DeleteFileMetadata("ab12", "owner-session"), "deleting twice reports false")
}

func TestUpdateDownloadCount(t *testing.T) {
	store := NewStore(&memoryBackend{})
	require.NoError(t, store.SaveFileMetadata(testRecord("ab12", "u", time.Now())))

	store.UpdateDownloadCount("ab12")
	store.UpdateDownloadCount("ab12")

	got, err := store.GetFileByID("ab12")
	require.NoError(t, err)
	assert.Equal(t, 2, got.DownloadCount)

	// Unknown id is a no-op.
	store.UpdateDownloadCount("zzzz")
}

func TestDeleteExpired(t *testing.T) {
	backend := &memoryBackend{}
	store := NewStore(backend)
	now := time.Now()

	require.NoError(t, store.SaveFileMetadata(testRecord("live", "u", now)))
	require.NoError(t, store.SaveFileMetadata(testRecord("dea1", "u", now.Add(-10*time.Minute))))
	require.NoError(t, store.SaveFileMetadata(testRecord("dea2", "u", now.Add(-6*time.Minute))))

	expired := store.DeleteExpired()
	require.Len(t, expired, 2)

	files := store.GetStoredFiles()
	require.Len(t, files, 1)
	assert.Equal(t, "live", files[0].ID)

	// Idempotent: a second sweep with nothing expired does nothing.
	savesBefore := backend.saves
	assert.Nil(t, store.DeleteExpired())
	assert.Equal(t, savesBefore, backend.saves)
}

func TestExpiryBoundary(t *testing.T) {
	store := NewStore(&memoryBackend{})
	uploadedAt := time.Now()
	rec := testRecord("ab12", "u", uploadedAt)
	require.NoError(t, store.SaveFileMetadata(rec))

	assert.True(t, rec.ExpiresAt.Equal(uploadedAt.Add(5*time.Minute)))

	// Just past expiry the sweep removes it and lookups miss.
	store.now = func() time.Time { return uploadedAt.Add(5*time.Minute + time.Millisecond) }
	expired := store.DeleteExpired()
	require.Len(t, expired, 1)

	_, err := store.GetFileByID("ab12")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreLoadsExistingBackendState(t *testing.T) {
	backend := &memoryBackend{records: []*models.FileRecord{testRecord("ab12", "u", time.Now())}}
	store := NewStore(backend)

	got, err := store.GetFileByID("ab12")
	require.NoError(t, err)
	assert.Equal(t, "ab12", got.ID)
}

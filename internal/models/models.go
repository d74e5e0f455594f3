package models

import (
	"time"

	"github.com/google/uuid"
)

// FileRecord represents the metadata of one uploaded file. The byte
// content itself lives behind URL and is owned by the storage provider.
type FileRecord struct {
	ID string `json:"id"` // Short public identifier used in share URLs

	Filename     string `json:"filename"`      // Storage-side name: id + original extension
	OriginalName string `json:"original_name"` // User-supplied display name, used for downloads
	Size         int64  `json:"size"`          // Size of the uploaded file in bytes
	Type         string `json:"type"`          // MIME type, application/octet-stream when unknown
	URL          string `json:"url"`           // Retrieval location of the stored bytes

	UploadedAt    time.Time `json:"uploaded_at"`    // Timestamp when the file was uploaded
	ExpiresAt     time.Time `json:"expires_at"`     // Timestamp after which the record is eligible for deletion
	DownloadCount int       `json:"download_count"` // Number of times the file has been downloaded
	UserID        string    `json:"user_id"`        // Session id of the uploader, soft ownership only
	SecurityMode  bool      `json:"security_mode"`  // Whether additional verification was requested at upload
}

// CreateFileResponse is returned to the client after a successful upload.
type CreateFileResponse struct {
	File     *FileRecord `json:"file"`
	ShareURL string      `json:"share_url"`
}

// BulkUploadResult tallies the outcome of a multi-file upload batch.
type BulkUploadResult struct {
	BatchID   uuid.UUID             `json:"batch_id"`
	Total     int                   `json:"total"`
	Completed int                   `json:"completed"`
	Failed    int                   `json:"failed"`
	Files     []*CreateFileResponse `json:"files"`
	Errors    []string              `json:"errors,omitempty"`
}

// UploadStatistics represents statistics derived from the current store.
type UploadStatistics struct {
	TotalUploads     int    `json:"total_uploads"`      // Total number of live records
	UploadsToday     int    `json:"uploads_today"`      // Records uploaded on the current calendar day
	TotalSize        int64  `json:"total_size"`         // Total size of all files in bytes
	AverageFileSize  int64  `json:"average_file_size"`  // TotalSize / TotalUploads, 0 on empty store
	MostUploadedType string `json:"most_uploaded_type"` // MIME type with the highest count, "none" when empty
}

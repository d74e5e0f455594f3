package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/NiceTop1027/file.dyhs.kr/internal/config"
)

// ObjectPrefix namespaces every uploaded object inside the provider.
const ObjectPrefix = "files/"

type FileInfo struct {
	Name         string
	Size         int64
	ContentType  string
	ModifiedTime time.Time
}

// Provider is the external storage collaborator: it owns the uploaded
// bytes, the metadata store only holds pointers to them.
type Provider interface {
	// Upload saves a file to storage and returns its public URL
	Upload(ctx context.Context, file io.Reader, objectName, contentType string) (string, error)

	// Delete removes a file from storage
	Delete(ctx context.Context, objectName string) error

	// Stream serves the file directly to an http.ResponseWriter
	Stream(ctx context.Context, objectName string, w http.ResponseWriter) error

	// Exists checks if a file exists in storage
	Exists(ctx context.Context, objectName string) (bool, error)

	// ListObjects lists the stored objects under the upload prefix
	ListObjects(ctx context.Context) ([]FileInfo, error)

	// Close cleans up any resources
	Close() error
}

// NewProvider creates a storage provider based on configuration.
// baseURL is used by the local provider to build retrieval URLs.
func NewProvider(cfg config.StorageConfig, baseURL string) (Provider, error) {
	switch cfg.Provider {
	case "local":
		return NewLocalStorage(cfg.LocalPath, baseURL)
	case "gcs":
		return NewGCSStorage(cfg.ProjectID, cfg.BucketName)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
}

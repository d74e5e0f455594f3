package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSStorageProvider struct {
	client     *storage.Client
	bucket     *storage.BucketHandle
	bucketName string
}

func NewGCSStorage(projectID, bucketName string) (*GCSStorageProvider, error) {
	ctx := context.Background()
	var client *storage.Client
	var err error

	if emulatorHost := os.Getenv("STORAGE_EMULATOR_HOST"); emulatorHost != "" {
		log.Debug().
			Str("emulator_host", emulatorHost).
			Msg("using GCS emulator")
		client, err = storage.NewClient(
			ctx,
			option.WithEndpoint(fmt.Sprintf("http://%s", emulatorHost)),
			option.WithoutAuthentication(),
		)
	} else {
		if creds := os.Getenv("GOOGLE_CLOUD_CREDENTIALS"); creds != "" {
			decodedCreds, decodeErr := base64.StdEncoding.DecodeString(creds)
			if decodeErr != nil {
				return nil, fmt.Errorf("invalid base64 credentials: %w", decodeErr)
			}
			client, err = storage.NewClient(ctx, option.WithCredentialsJSON(decodedCreds))
		} else {
			client, err = storage.NewClient(ctx)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	bucket := client.Bucket(bucketName)

	_, err = bucket.Attrs(ctx)
	if errors.Is(err, storage.ErrBucketNotExist) {
		log.Info().
			Str("bucket", bucketName).
			Msg("bucket does not exist, creating...")
		if err := bucket.Create(ctx, projectID, &storage.BucketAttrs{
			Location: "US-CENTRAL1",
		}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}

	return &GCSStorageProvider{
		client:     client,
		bucket:     bucket,
		bucketName: bucketName,
	}, nil
}

// Upload writes the object, makes it publicly readable and returns the
// storage.googleapis.com URL, matching how share links resolve.
func (g *GCSStorageProvider) Upload(ctx context.Context, file io.Reader, objectName, contentType string) (string, error) {
	obj := g.bucket.Object(objectName)
	writer := obj.NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, file); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("failed to copy file to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		log.Warn().
			Err(err).
			Str("object", objectName).
			Msg("failed to make object public, falling back to proxied downloads")
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucketName, objectName), nil
}

func (g *GCSStorageProvider) Stream(ctx context.Context, objectName string, w http.ResponseWriter) error {
	obj := g.bucket.Object(objectName)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get object attributes: %w", err)
	}

	reader, err := obj.NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to create reader: %w", err)
	}
	defer reader.Close()

	w.Header().Set("Content-Type", attrs.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(attrs.Size, 10))

	bytesWritten, err := io.Copy(w, reader)
	if err != nil {
		log.Error().
			Err(err).
			Str("object", objectName).
			Int64("bytes_written", bytesWritten).
			Msg("failed to stream object")
		return fmt.Errorf("failed to stream file: %w", err)
	}

	return nil
}

func (g *GCSStorageProvider) Exists(ctx context.Context, objectName string) (bool, error) {
	_, err := g.bucket.Object(objectName).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("error checking object existence: %w", err)
}

func (g *GCSStorageProvider) Delete(ctx context.Context, objectName string) error {
	if err := g.bucket.Object(objectName).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (g *GCSStorageProvider) ListObjects(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo
	it := g.bucket.Objects(ctx, &storage.Query{
		Prefix: ObjectPrefix,
	})

	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating objects: %w", err)
		}
		files = append(files, FileInfo{
			Name:         attrs.Name,
			Size:         attrs.Size,
			ContentType:  attrs.ContentType,
			ModifiedTime: attrs.Updated,
		})
	}

	return files, nil
}

func (g *GCSStorageProvider) Close() error {
	return g.client.Close()
}

package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type LocalStorageProvider struct {
	baseDir string
	baseURL string
}

func NewLocalStorage(baseDir, baseURL string) (*LocalStorageProvider, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, ObjectPrefix), 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &LocalStorageProvider{
		baseDir: baseDir,
		baseURL: baseURL,
	}, nil
}

// objectPath maps an object name onto the base directory, refusing
// names that would escape it.
func (l *LocalStorageProvider) objectPath(objectName string) (string, error) {
	fullPath := filepath.Join(l.baseDir, filepath.FromSlash(objectName))
	if !strings.HasPrefix(fullPath, filepath.Clean(l.baseDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid object name: %s", objectName)
	}
	return fullPath, nil
}

func (l *LocalStorageProvider) Upload(ctx context.Context, file io.Reader, objectName, contentType string) (string, error) {
	fullPath, err := l.objectPath(objectName)
	if err != nil {
		return "", err
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return fmt.Sprintf("%s/f/%s", l.baseURL, objectName), nil
}

func (l *LocalStorageProvider) Stream(ctx context.Context, objectName string, w http.ResponseWriter) error {
	fullPath, err := l.objectPath(objectName)
	if err != nil {
		return err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}

	// Detect content type from the first 512 bytes
	buffer := make([]byte, 512)
	_, err = file.Read(buffer)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file header: %w", err)
	}
	contentType := http.DetectContentType(buffer)

	if _, err := file.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to reset file pointer: %w", err)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(fileInfo.Size(), 10))

	if _, err := io.Copy(w, file); err != nil {
		return fmt.Errorf("failed to stream file: %w", err)
	}

	return nil
}

func (l *LocalStorageProvider) Exists(ctx context.Context, objectName string) (bool, error) {
	fullPath, err := l.objectPath(objectName)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("error checking file existence: %w", err)
}

func (l *LocalStorageProvider) Delete(ctx context.Context, objectName string) error {
	fullPath, err := l.objectPath(objectName)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (l *LocalStorageProvider) ListObjects(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo
	basePath := filepath.Join(l.baseDir, ObjectPrefix)

	err := filepath.Walk(basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(l.baseDir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}

		files = append(files, FileInfo{
			Name:         filepath.ToSlash(relPath),
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
		})

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	return files, nil
}

func (l *LocalStorageProvider) Close() error {
	return nil
}

package fileshare

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NiceTop1027/file.dyhs.kr/internal/config"
	"github.com/NiceTop1027/file.dyhs.kr/internal/models"
)

const testSession = "deadbeefdeadbeef"

func newTestRouter(t *testing.T, cfg *config.Config) (*chi.Mux, *Service) {
	t.Helper()

	svc, _, _ := newTestService(t, cfg)
	handler := NewHandler(svc)

	r := chi.NewRouter()
	r.Post("/upload", handler.HandleUpload)
	r.Post("/upload/bulk", handler.HandleBulkUpload)
	r.Get("/download/{fileID}", handler.HandleDownload)
	r.Get("/share/{fileID}", handler.HandleShare)
	r.Get("/f/*", handler.HandleServeObject)
	r.Get("/files", handler.HandleListFiles)
	r.Delete("/files/{fileID}", handler.HandleDeleteFile)
	r.Get("/stats", handler.HandleStats)
	return r, svc
}

// multipartBody builds an upload request body with the given file parts
// and a userId field carrying the session.
func multipartBody(t *testing.T, field string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("userId", testSession))
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func uploadViaHTTP(t *testing.T, router *chi.Mux, name string, content []byte) *models.CreateFileResponse {
	t.Helper()

	body, contentType := multipartBody(t, "file", map[string][]byte{name: content})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp models.CreateFileResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return &resp
}

func TestHandleUploadAndShare(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	resp := uploadViaHTTP(t, router, "notes.txt", []byte("hello world"))
	require.NotNil(t, resp.File)
	assert.Equal(t, "http://localhost/share/"+resp.File.ID, resp.ShareURL)
	assert.Equal(t, testSession, resp.File.UserID)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/share/"+resp.File.ID, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var view struct {
		models.FileRecord
		ExpiresIn     int64  `json:"expires_in_ms"`
		ExpiresInText string `json:"expires_in_text"`
		ExpiringSoon  bool   `json:"expiring_soon"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, resp.File.ID, view.ID)
	assert.Equal(t, "notes.txt", view.OriginalName)
	assert.Greater(t, view.ExpiresIn, int64(0))
	assert.NotEmpty(t, view.ExpiresInText)
	assert.False(t, view.ExpiringSoon)
}

func TestHandleShareDownload(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	content := []byte("shared file content")
	resp := uploadViaHTTP(t, router, "notes.txt", content)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/share/"+resp.File.ID+"?download=true", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `attachment; filename="notes.txt"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, content, rr.Body.Bytes())

	// The proxied download counted.
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/share/"+resp.File.ID, nil))
	var view models.FileRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, 1, view.DownloadCount)
}

func TestHandleShareNotFound(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/share/zzzz", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "파일을 찾을 수 없습니다.")

	// Malformed ids get the same answer as missing ones.
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/share/ZZZZ", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleShareMissingID(t *testing.T) {
	handler := NewHandler(mustService(t))

	req := httptest.NewRequest(http.MethodGet, "/share/", nil)
	rctx := chi.NewRouteContext()
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rr := httptest.NewRecorder()
	handler.HandleShare(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "파일 ID가 제공되지 않았습니다.")
}

func mustService(t *testing.T) *Service {
	t.Helper()
	svc, _, _ := newTestService(t, testConfig())
	return svc
}

func TestHandleUploadMissingFile(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	body, contentType := multipartBody(t, "file", nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleUploadRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitMax = 1
	router, _ := newTestRouter(t, cfg)

	uploadViaHTTP(t, router, "a.txt", []byte("first"))

	body, contentType := multipartBody(t, "file", map[string][]byte{"b.txt": []byte("second")})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), "잠시 후 다시 시도해주세요.")
}

func TestHandleUploadTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.UploadMaxSize = 4
	router, _ := newTestRouter(t, cfg)

	body, contentType := multipartBody(t, "file", map[string][]byte{"big.bin": []byte("well over four bytes")})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestHandleDownload(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	content := []byte("download me")
	resp := uploadViaHTTP(t, router, "file.bin", content)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/download/"+resp.File.ID, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `attachment; filename="file.bin"`, rr.Header().Get("Content-Disposition"))
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Equal(t, content, body)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/download/zzzz", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleServeObject(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	content := []byte("raw object bytes")
	resp := uploadViaHTTP(t, router, "pic.png", content)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/f/files/"+resp.File.Filename, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, content, rr.Body.Bytes())

	// Objects outside the upload prefix are unreachable.
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/f/secrets/creds.txt", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleDeleteFile(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	resp := uploadViaHTTP(t, router, "mine.txt", []byte("hi"))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/files/"+resp.File.ID+"?userId=0123456789abcdef", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/files/"+resp.File.ID+"?userId="+testSession, nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"deleted":true`)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/files/"+resp.File.ID+"?userId="+testSession, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleListFilesAndStats(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	listURL := "/files?userId=" + testSession

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, listURL, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())

	uploadViaHTTP(t, router, "a.txt", []byte("hello"))
	time.Sleep(time.Millisecond)
	uploadViaHTTP(t, router, "b.txt", []byte("world!"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, listURL, nil))
	var views []models.FileRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "b.txt", views[0].OriginalName, "most recent upload listed first")

	// Another session sees none of them.
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/files?userId=0123456789abcdef", nil))
	assert.JSONEq(t, "[]", rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats", nil))
	var stats models.UploadStatistics
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalUploads)
	assert.Equal(t, 2, stats.UploadsToday)
	assert.Equal(t, int64(11), stats.TotalSize)
}

func TestHandleBulkUpload(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	body, contentType := multipartBody(t, "files", map[string][]byte{
		"one.txt": []byte("one"),
		"two.txt": []byte("two"),
	})
	req := httptest.NewRequest(http.MethodPost, "/upload/bulk", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var result models.BulkUploadResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Completed)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, result.Files, 2)
}

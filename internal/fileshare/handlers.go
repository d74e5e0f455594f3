package fileshare

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	sessionctx "github.com/NiceTop1027/file.dyhs.kr/internal/context"
	"github.com/NiceTop1027/file.dyhs.kr/internal/models"
	"github.com/NiceTop1027/file.dyhs.kr/internal/validation"
)

// Korean user-facing messages on the share surface, matching what the
// share page shows.
const (
	msgMissingFileID = "파일 ID가 제공되지 않았습니다."
	msgFileNotFound  = "파일을 찾을 수 없습니다."
	msgServerError   = "서버 오류가 발생했습니다."
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

// fileView wraps a record with its countdown for list/share responses.
type fileView struct {
	*models.FileRecord
	ExpiresIn     int64  `json:"expires_in_ms"`
	ExpiresInText string `json:"expires_in_text"`
	ExpiringSoon  bool   `json:"expiring_soon"`
}

func newFileView(rec *models.FileRecord) *fileView {
	remaining := TimeUntilExpiry(rec.ExpiresAt)
	return &fileView{
		FileRecord:    rec,
		ExpiresIn:     remaining.Milliseconds(),
		ExpiresInText: FormatExpiryTime(remaining),
		ExpiringSoon:  ExpiringSoon(remaining),
	}
}

// sendJSON handles JSON response formatting consistently
func sendJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("error encoding JSON response")
	}
}

func sendError(w http.ResponseWriter, status int, message string) {
	sendJSON(w, status, map[string]string{"error": message})
}

// sessionID resolves the caller's session: an explicit userId form
// field wins, otherwise the session cookie assigned by the middleware.
func sessionID(r *http.Request) string {
	if id := r.FormValue("userId"); id != "" {
		return id
	}
	return sessionctx.GetSessionFromContext(r.Context())
}

// HandleUpload handles POST /upload
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		sendError(w, http.StatusBadRequest, ErrNoFile.Error())
		return
	}
	defer closeFile(file)

	req := &UploadRequest{
		File:         file,
		Header:       header,
		SessionID:    sessionID(r),
		SecurityMode: r.FormValue("securityMode") == "true",
	}

	response, err := h.service.UploadFile(r.Context(), req)
	if err != nil {
		h.sendUploadError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, response)
}

// HandleBulkUpload handles POST /upload/bulk. Individual failures are
// tallied, the batch continues.
func (h *Handler) HandleBulkUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		sendError(w, http.StatusBadRequest, ErrNoFile.Error())
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		sendError(w, http.StatusBadRequest, ErrNoFile.Error())
		return
	}

	session := sessionID(r)
	securityMode := r.FormValue("securityMode") == "true"

	var reqs []*UploadRequest
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			sendError(w, http.StatusBadRequest, fmt.Sprintf("unreadable file: %s", header.Filename))
			return
		}
		defer closeFile(file)

		reqs = append(reqs, &UploadRequest{
			File:         file,
			Header:       header,
			SessionID:    session,
			SecurityMode: securityMode,
		})
	}

	result := h.service.BulkUpload(r.Context(), reqs)
	sendJSON(w, http.StatusOK, result)
}

// HandleDownload handles GET /download/{fileID}: streams the bytes as
// an attachment and bumps the download counter.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if validation.ValidateFileID(fileID) != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	rec, err := h.service.GetFile(fileID)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, rec.OriginalName))
	w.Header().Set("Content-Type", contentTypeOf(rec))
	w.Header().Set("Content-Length", strconv.FormatInt(rec.Size, 10))

	if err := h.service.StreamFile(r.Context(), rec, w); err != nil {
		log.Error().Err(err).Str("id", fileID).Msg("error streaming download")
		http.Error(w, "Failed to fetch file", http.StatusInternalServerError)
		return
	}

	h.service.RecordDownload(fileID)
}

// HandleShare handles GET /share/{fileID}: JSON metadata by default, a
// proxied attachment download with ?download=true.
func (h *Handler) HandleShare(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if fileID == "" {
		sendError(w, http.StatusBadRequest, msgMissingFileID)
		return
	}
	if validation.ValidateFileID(fileID) != nil {
		sendError(w, http.StatusNotFound, msgFileNotFound)
		return
	}

	rec, err := h.service.GetFile(fileID)
	if err != nil {
		sendError(w, http.StatusNotFound, msgFileNotFound)
		return
	}

	if r.URL.Query().Get("download") == "true" {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, rec.OriginalName))
		w.Header().Set("Content-Type", contentTypeOf(rec))
		w.Header().Set("Content-Length", strconv.FormatInt(rec.Size, 10))

		if err := h.service.StreamFile(r.Context(), rec, w); err != nil {
			log.Error().Err(err).Str("id", fileID).Msg("error streaming shared file")
			sendError(w, http.StatusInternalServerError, msgServerError)
			return
		}

		h.service.RecordDownload(fileID)
		return
	}

	sendJSON(w, http.StatusOK, newFileView(rec))
}

// HandleListFiles handles GET /files. Only the caller's own uploads
// are listed.
func (h *Handler) HandleListFiles(w http.ResponseWriter, r *http.Request) {
	session := sessionID(r)
	files := h.service.GetStoredFiles()

	views := make([]*fileView, 0, len(files))
	for _, rec := range files {
		if rec.UserID != session {
			continue
		}
		views = append(views, newFileView(rec))
	}

	sendJSON(w, http.StatusOK, views)
}

// HandleDeleteFile handles DELETE /files/{fileID}. Deletion requires
// the caller's session to match the uploader's.
func (h *Handler) HandleDeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if validation.ValidateFileID(fileID) != nil {
		sendError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	err := h.service.DeleteFile(r.Context(), fileID, sessionID(r))
	switch {
	case err == nil:
		sendJSON(w, http.StatusOK, map[string]bool{"deleted": true})
	case errors.Is(err, ErrNotFound):
		sendError(w, http.StatusNotFound, msgFileNotFound)
	case errors.Is(err, ErrUnauthorized):
		sendError(w, http.StatusForbidden, "unauthorized")
	default:
		log.Error().Err(err).Str("id", fileID).Msg("error deleting file")
		sendError(w, http.StatusInternalServerError, msgServerError)
	}
}

// HandleStats handles GET /stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, h.service.Stats())
}

// HandleServeObject handles GET /f/* — the raw byte route the local
// storage provider builds its URLs against.
func (h *Handler) HandleServeObject(w http.ResponseWriter, r *http.Request) {
	objectName := chi.URLParam(r, "*")
	if objectName == "" {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	if err := h.service.StreamObject(r.Context(), objectName, w); err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
	}
}

// sendUploadError maps service errors onto the HTTP surface.
func (h *Handler) sendUploadError(w http.ResponseWriter, err error) {
	var rateLimited *RateLimitedError
	switch {
	case errors.As(err, &rateLimited):
		retryAfter := int(rateLimited.RetryAfter.Seconds()) + 1
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		sendError(w, http.StatusTooManyRequests, "잠시 후 다시 시도해주세요.")
	case errors.Is(err, ErrFileTooLarge):
		sendError(w, http.StatusRequestEntityTooLarge, ErrFileTooLarge.Error())
	case errors.Is(err, ErrNoFile):
		sendError(w, http.StatusBadRequest, ErrNoFile.Error())
	default:
		log.Error().Err(err).Msg("upload failed")
		sendError(w, http.StatusInternalServerError, "upload failed")
	}
}

func contentTypeOf(rec *models.FileRecord) string {
	if rec.Type == "" {
		return "application/octet-stream"
	}
	return rec.Type
}

func closeFile(file multipart.File) {
	if err := file.Close(); err != nil {
		log.Error().Err(err).Msg("error closing uploaded file")
	}
}

package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mpratt/folio-api/internal/auth"
	"github.com/mpratt/folio-api/internal/filetype"
	"github.com/mpratt/folio-api/internal/imgproc"
	"github.com/mpratt/folio-api/internal/repository"
	"github.com/mpratt/folio-api/internal/storage"
	"github.com/mpratt/folio-api/models"
)

const (
	maxCaptionLen = 500
	maxFormMemory = 10 << 20
	defaultLimit  = 20
	maxLimit      = 50
)

// uploadVariant selects the limits and behavior of the two upload routes:
// the plain route stores bytes as received, the v2 route accepts the extended
// format list and runs the processing pipeline first.
type uploadVariant struct {
	maxBytes     int64
	extendedList bool
	process      bool
}

// PhotoHandlers owns the upload pipeline, the public feed and deletion.
type PhotoHandlers struct {
	photos repository.PhotoRepository
	store  storage.ObjectStore
	proc   imgproc.Processor
	logger *zap.Logger

	maxBytes   int64
	maxBytesV2 int64
	processV2  bool
}

func NewPhotoHandlers(photos repository.PhotoRepository, store storage.ObjectStore, proc imgproc.Processor, logger *zap.Logger, maxBytes, maxBytesV2 int64, processV2 bool) *PhotoHandlers {
	return &PhotoHandlers{
		photos:     photos,
		store:      store,
		proc:       proc,
		logger:     logger,
		maxBytes:   maxBytes,
		maxBytesV2: maxBytesV2,
		processV2:  processV2,
	}
}

func (h *PhotoHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, uploadVariant{maxBytes: h.maxBytes})
}

func (h *PhotoHandlers) UploadV2(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, uploadVariant{maxBytes: h.maxBytesV2, extendedList: true, process: h.processV2})
}

func (h *PhotoHandlers) upload(w http.ResponseWriter, r *http.Request, variant uploadVariant) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	// Bound the whole request body; multipart framing needs a little slack
	// beyond the file ceiling.
	r.Body = http.MaxBytesReader(w, r.Body, variant.maxBytes+maxFormMemory)

	file, header, err := r.FormFile("photo")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, tooLargeMessage(variant.maxBytes))
			return
		}
		writeError(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	if header.Size > variant.maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, tooLargeMessage(variant.maxBytes))
		return
	}

	if !filetype.Allowed(header.Filename, header.Header.Get("Content-Type"), variant.extendedList) {
		writeError(w, http.StatusBadRequest, unsupportedTypeMessage(variant.extendedList))
		return
	}

	caption := sanitizeCaption(r.FormValue("caption"))
	if utf8.RuneCountInString(caption) > maxCaptionLen {
		writeError(w, http.StatusBadRequest, "caption too long (max 500 characters)")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("failed to read upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}

	// The extension and declared type are caller-controlled; the leading
	// bytes are not.
	if err := filetype.CheckContent(data); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fileName := header.Filename
	contentType := resolveContentType(header.Filename, header.Header.Get("Content-Type"), data)
	width, height := 0, 0

	if variant.process && h.proc != nil {
		res, perr := h.proc.Process(data, fileName, contentType)
		if perr != nil {
			// Processing is best effort: store the original bytes.
			h.logger.Warn("image processing failed, storing original",
				zap.String("file", fileName), zap.Error(perr))
		} else {
			data = res.Data
			fileName = res.FileName
			contentType = res.Mime
			width, height = res.Width, res.Height
		}
	} else if h.proc != nil {
		// Unprocessed uploads still get their dimensions recorded when the
		// bytes are probeable.
		if pw, ph, perr := h.proc.Probe(data); perr == nil {
			width, height = pw, ph
		}
	}

	key := storage.ObjectKey(user.ID, fileName)
	if err := h.store.Put(r.Context(), key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		h.logger.Error("storage upload failed",
			zap.String("key", key), zap.Int("size", len(data)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, friendlyStorageError(err))
		return
	}

	photo := &models.Photo{
		UserID:      user.ID,
		FileName:    header.Filename,
		StoragePath: key,
		PublicURL:   h.store.PublicURL(key),
		Caption:     caption,
		FileSize:    int64(len(data)),
		MimeType:    contentType,
		Width:       width,
		Height:      height,
	}

	if err := h.photos.Create(r.Context(), photo); err != nil {
		h.logger.Error("failed to save photo metadata",
			zap.String("key", key), zap.String("user_id", user.ID), zap.Error(err))

		// Compensating delete so no record-less object lingers. A crash
		// right here still leaves an orphan; there is no durable log of
		// the pending cleanup and no retry.
		if derr := h.store.Delete(r.Context(), key); derr != nil {
			h.logger.Error("compensating delete failed, object orphaned",
				zap.String("key", key), zap.Error(derr))
		}

		writeError(w, http.StatusInternalServerError, "failed to save photo metadata")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]*models.Photo{"photo": photo})
}

func (h *PhotoHandlers) Feed(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}

	photos, total, err := h.photos.List(r.Context(), page, limit)
	if err != nil {
		h.logger.Error("failed to list photos",
			zap.Int("page", page), zap.Int("limit", limit), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get photos")
		return
	}
	if photos == nil {
		photos = []models.Photo{}
	}

	writeJSON(w, http.StatusOK, models.PhotoFeed{
		Photos:     photos,
		Page:       page,
		Limit:      limit,
		TotalCount: total,
		HasMore:    int64(page*limit) < total,
	})
}

func (h *PhotoHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "photo id is required")
		return
	}

	photo, err := h.photos.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrPhotoNotFound) {
			writeError(w, http.StatusNotFound, "photo not found")
			return
		}
		h.logger.Error("failed to get photo", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get photo")
		return
	}

	writeJSON(w, http.StatusOK, map[string]*models.Photo{"photo": photo})
}

func (h *PhotoHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "photo id is required")
		return
	}

	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	photo, err := h.photos.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrPhotoNotFound) {
			writeError(w, http.StatusNotFound, "photo not found")
			return
		}
		h.logger.Error("failed to get photo", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get photo")
		return
	}

	if photo.UserID != user.ID {
		writeError(w, http.StatusForbidden, "cannot delete another user's photo")
		return
	}

	// Storage first, best effort: a leftover object is preferable to a
	// metadata row pointing at nothing.
	if err := h.store.Delete(r.Context(), photo.StoragePath); err != nil {
		h.logger.Warn("storage delete failed",
			zap.String("key", photo.StoragePath), zap.Error(err))
	}

	if err := h.photos.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrPhotoNotFound) {
			writeError(w, http.StatusNotFound, "photo not found")
			return
		}
		h.logger.Error("failed to delete photo", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete photo")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// resolveContentType prefers the declared type, then the extension table,
// then content sniffing.
func resolveContentType(fileName, declared string, data []byte) string {
	ct := filetype.ContentType(fileName, declared)
	if ct != "application/octet-stream" {
		return ct
	}
	if len(data) > 0 {
		return http.DetectContentType(data[:min(len(data), 512)])
	}
	return ct
}

// Captions are rendered in HTML contexts downstream; markup-significant
// characters are stripped rather than escaped.
var captionStripper = strings.NewReplacer("<", "", ">", "", "&", "", `"`, "", "'", "")

func sanitizeCaption(caption string) string {
	return strings.TrimSpace(captionStripper.Replace(caption))
}

func tooLargeMessage(maxBytes int64) string {
	return fmt.Sprintf("file too large (max %dMB)", maxBytes/(1<<20))
}

func unsupportedTypeMessage(extended bool) string {
	if extended {
		return "invalid file type, supported formats: JPEG, PNG, WebP, GIF, HEIC, HEIF, TIFF, BMP"
	}
	return "invalid file type, supported formats: JPEG, PNG, WebP, GIF"
}

// friendlyStorageError remaps known upstream failure substrings to clearer
// text; anything unrecognized passes through as a generic message.
func friendlyStorageError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "EntityTooLarge"), strings.Contains(msg, "row too large"):
		return "file too large for storage"
	case strings.Contains(msg, "ExpiredToken"), strings.Contains(msg, "Invalid JWT"):
		return "authentication expired, please refresh and try again"
	default:
		return "failed to upload file"
	}
}

package api

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bumothekid/clothing-booth-api-v2/internal/blob"
)

// multipartOverhead is the allowance for form boundaries and headers on top
// of the file size limit.
const multipartOverhead = 64 << 10

type UploadHandler struct {
	blobs *blob.Service
}

func NewUploadHandler(blobs *blob.Service) *UploadHandler {
	return &UploadHandler{blobs: blobs}
}

// GET /uploads/{area}/{imageID}
func (h *UploadHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	area := blob.Area(chi.URLParam(r, "area"))
	imageID := strings.TrimSpace(chi.URLParam(r, "imageID"))
	if !blob.ValidArea(area) || imageID == "" {
		notFound(w, "Image not found")
		return
	}

	file, err := h.blobs.OpenObject(area, imageID)
	if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrInvalidPath) {
		notFound(w, "Image not found")
		return
	}
	if err != nil {
		slog.Error("error opening stored image", "error", err, "area", area, "image_id", imageID)
		internalError(w)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		slog.Error("error reading stored image info", "error", err, "area", area, "image_id", imageID)
		internalError(w)
		return
	}

	if area == blob.AreaTemp {
		w.Header().Set("Cache-Control", "private, no-store")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Header().Set("ETag", fmt.Sprintf("\"%s\"", imageID))
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"%s.png\"", imageID))

	http.ServeContent(w, r, imageID+".png", info.ModTime(), file)
}

func readSingleFileUpload(
	w http.ResponseWriter,
	r *http.Request,
	maxBytes int64,
) (multipart.File, *multipart.FileHeader, func(), bool) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	}

	err := r.ParseMultipartForm(1 << 20)
	if err != nil {
		if isBodyTooLargeError(err) {
			payloadTooLarge(w, "File exceeds maximum upload size")
		} else {
			badRequest(w, "Invalid multipart upload")
		}
		return nil, nil, func() {}, false
	}

	cleanup := func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "File field 'file' is required")
		cleanup()
		return nil, nil, func() {}, false
	}

	if fileHeader == nil || strings.TrimSpace(fileHeader.Filename) == "" {
		file.Close()
		cleanup()
		badRequest(w, "File name is required")
		return nil, nil, func() {}, false
	}

	return file, fileHeader, cleanup, true
}

func isBodyTooLargeError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}

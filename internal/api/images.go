package api

import (
	"net/http"

	"github.com/bumothekid/clothing-booth-api-v2/internal/imaging"
)

type ImageHandler struct {
	pipeline    *imaging.Pipeline
	uploadLimit int64
}

func NewImageHandler(pipeline *imaging.Pipeline, uploadMaxBytes int64) *ImageHandler {
	return &ImageHandler{pipeline: pipeline, uploadLimit: uploadMaxBytes + multipartOverhead}
}

// POST /api/v1/images/preview
func (h *ImageHandler) Preview(w http.ResponseWriter, r *http.Request) {
	file, fileHeader, cleanup, ok := readSingleFileUpload(w, r, h.uploadLimit)
	if !ok {
		return
	}
	defer cleanup()
	defer file.Close()

	preview, err := h.pipeline.StagePreview(r.Context(), fileHeader.Filename, file)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, preview)
}

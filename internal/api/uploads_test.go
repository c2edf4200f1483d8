package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/bumothekid/clothing-booth-api-v2/internal/blob"
	"github.com/bumothekid/clothing-booth-api-v2/internal/constants"
)

func TestReadSingleFileUploadReturnsJSON413OnOversizeBody(t *testing.T) {
	body := bytes.NewBuffer(nil)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "large.png")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write(bytes.Repeat([]byte{'a'}, 2048)); err != nil {
		t.Fatalf("part.Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("writer.Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images/preview", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()

	file, header, cleanup, ok := readSingleFileUpload(rr, req, 1024)
	if cleanup != nil {
		cleanup()
	}
	if file != nil {
		_ = file.Close()
	}
	if ok {
		t.Fatalf("readSingleFileUpload() ok = true, want false")
	}
	if header != nil {
		t.Fatalf("readSingleFileUpload() header = %#v, want nil", header)
	}

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusRequestEntityTooLarge)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, body=%q", err, rr.Body.String())
	}
	if resp.Code != constants.ErrCodePayloadTooLarge {
		t.Fatalf("code = %q, want %q", resp.Code, constants.ErrCodePayloadTooLarge)
	}
}

func TestServeImage(t *testing.T) {
	blobs, err := blob.NewService(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatalf("blob.NewService() error = %v", err)
	}
	png := []byte("\x89PNG\r\n\x1a\nstored")
	if err := blobs.Put(blob.AreaClothingImages, "img-1", png); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	r := chi.NewRouter()
	r.Get("/uploads/{area}/{imageID}", NewUploadHandler(blobs).ServeImage)

	tests := []struct {
		name string
		path string
		want int
	}{
		{name: "stored", path: "/uploads/clothing_images/img-1", want: http.StatusOK},
		{name: "missing", path: "/uploads/clothing_images/img-2", want: http.StatusNotFound},
		{name: "wrong_area", path: "/uploads/outfit_collages/img-1", want: http.StatusNotFound},
		{name: "unknown_area", path: "/uploads/secrets/img-1", want: http.StatusNotFound},
		{name: "bad_id", path: "/uploads/clothing_images/..%2Fimg-1", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusOK {
				if got := rr.Header().Get("Content-Type"); got != "image/png" {
					t.Fatalf("Content-Type = %q, want image/png", got)
				}
				if !bytes.Equal(rr.Body.Bytes(), png) {
					t.Fatalf("body = %q, want stored bytes", rr.Body.Bytes())
				}
			}
		})
	}
}

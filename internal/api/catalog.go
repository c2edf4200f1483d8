package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bumothekid/clothing-booth-api-v2/internal/blob"
	"github.com/bumothekid/clothing-booth-api-v2/internal/catalog"
	"github.com/bumothekid/clothing-booth-api-v2/internal/constants"
	"github.com/bumothekid/clothing-booth-api-v2/internal/mediaurl"
)

// pageParams reads ?limit and ?offset. Absent values take the defaults; the
// managers range-check the result.
func pageParams(r *http.Request) (limit, offset int, err error) {
	limit, offset = constants.DefaultPageLimit, 0

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return 0, 0, catalog.ErrLimitInvalid
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil {
			return 0, 0, catalog.ErrOffsetInvalid
		}
	}
	return limit, offset, nil
}

// stagedImageID accepts either a bare image id or the temp URL returned by
// the preview endpoint.
func stagedImageID(id, url string) (string, error) {
	if id = strings.TrimSpace(id); id != "" {
		return id, nil
	}
	if strings.TrimSpace(url) == "" {
		return "", nil
	}
	area, imageID, ok := mediaurl.ParseImage(url)
	if !ok || area != string(blob.AreaTemp) {
		return "", catalog.ErrImageInvalid
	}
	return imageID, nil
}

type ClothingHandler struct {
	clothing *catalog.ClothingManager
}

func NewClothingHandler(clothing *catalog.ClothingManager) *ClothingHandler {
	return &ClothingHandler{clothing: clothing}
}

type CreateClothingRequest struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Color       string   `json:"color"`
	ImageID     string   `json:"image_id"`
	ImageURL    string   `json:"image_url"`
	Seasons     []string `json:"seasons" validate:"max=16"`
	Tags        []string `json:"tags" validate:"max=32"`
	Description *string  `json:"description"`
	IsPublic    *bool    `json:"is_public"`
}

// POST /api/v1/clothing
func (h *ClothingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateClothingRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeAppError(w, r, err)
		return
	}

	imageID, err := stagedImageID(req.ImageID, req.ImageURL)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	c, err := h.clothing.Create(r.Context(), GetUserID(r), catalog.ClothingInput{
		Name:        req.Name,
		Category:    req.Category,
		Color:       req.Color,
		ImageID:     imageID,
		Seasons:     req.Seasons,
		Tags:        req.Tags,
		Description: req.Description,
		IsPublic:    isPublic,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// GET /api/v1/clothing/{clothingID}
func (h *ClothingHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.clothing.Get(r.Context(), GetUserID(r), chi.URLParam(r, "clothingID"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GET /api/v1/users/{userID}/clothing
func (h *ClothingHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	ownerID := chi.URLParam(r, "userID")
	if ownerID == "me" {
		ownerID = GetUserID(r)
	}

	items, err := h.clothing.List(r.Context(), GetUserID(r), ownerID, limit, offset)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clothing": items})
}

type UpdateClothingRequest struct {
	Name        *string   `json:"name"`
	Category    *string   `json:"category"`
	Color       *string   `json:"color"`
	ImageID     *string   `json:"image_id"`
	ImageURL    *string   `json:"image_url"`
	Seasons     *[]string `json:"seasons"`
	Tags        *[]string `json:"tags"`
	Description *string   `json:"description"`
	IsPublic    *bool     `json:"is_public"`
}

// PATCH /api/v1/clothing/{clothingID}
func (h *ClothingHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateClothingRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeAppError(w, r, err)
		return
	}

	patch := catalog.ClothingPatch{
		Name:        req.Name,
		Category:    req.Category,
		Color:       req.Color,
		Seasons:     req.Seasons,
		Tags:        req.Tags,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}
	if req.ImageID != nil || req.ImageURL != nil {
		imageID, err := stagedImageID(deref(req.ImageID), deref(req.ImageURL))
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		patch.ImageID = &imageID
	}

	c, err := h.clothing.Update(r.Context(), GetUserID(r), chi.URLParam(r, "clothingID"), patch)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DELETE /api/v1/clothing/{clothingID}
func (h *ClothingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.clothing.Delete(r.Context(), GetUserID(r), chi.URLParam(r, "clothingID")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

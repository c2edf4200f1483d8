package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bumothekid/clothing-booth-api-v2/internal/catalog"
	"github.com/bumothekid/clothing-booth-api-v2/internal/imaging"
)

type OutfitHandler struct {
	outfits *catalog.OutfitManager
}

func NewOutfitHandler(outfits *catalog.OutfitManager) *OutfitHandler {
	return &OutfitHandler{outfits: outfits}
}

type CreateOutfitRequest struct {
	Name        string   `json:"name"`
	ClothingIDs []string `json:"clothing_ids" validate:"max=64"`
	Seasons     []string `json:"seasons" validate:"max=16"`
	Tags        []string `json:"tags" validate:"max=32"`
	Description *string  `json:"description"`
	IsPublic    *bool    `json:"is_public"`
	IsFavorite  bool     `json:"is_favorite"`
}

// POST /api/v1/outfits
func (h *OutfitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOutfitRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeAppError(w, r, err)
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	o, err := h.outfits.Create(r.Context(), GetUserID(r), catalog.OutfitInput{
		Name:        req.Name,
		ClothingIDs: req.ClothingIDs,
		Seasons:     req.Seasons,
		Tags:        req.Tags,
		Description: req.Description,
		IsPublic:    isPublic,
		IsFavorite:  req.IsFavorite,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// GET /api/v1/outfits/{outfitID}
func (h *OutfitHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.outfits.Get(r.Context(), GetUserID(r), chi.URLParam(r, "outfitID"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// GET /api/v1/users/{userID}/outfits
func (h *OutfitHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	ownerID := chi.URLParam(r, "userID")
	if ownerID == "me" {
		ownerID = GetUserID(r)
	}

	items, err := h.outfits.List(r.Context(), GetUserID(r), ownerID, limit, offset)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outfits": items})
}

type UpdateOutfitRequest struct {
	Name        *string   `json:"name"`
	ClothingIDs *[]string `json:"clothing_ids"`
	Seasons     *[]string `json:"seasons"`
	Tags        *[]string `json:"tags"`
	Description *string   `json:"description"`
	IsPublic    *bool     `json:"is_public"`
	IsFavorite  *bool     `json:"is_favorite"`
}

// PATCH /api/v1/outfits/{outfitID}
func (h *OutfitHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateOutfitRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeAppError(w, r, err)
		return
	}

	o, err := h.outfits.Update(r.Context(), GetUserID(r), chi.URLParam(r, "outfitID"), catalog.OutfitPatch{
		Name:        req.Name,
		ClothingIDs: req.ClothingIDs,
		Seasons:     req.Seasons,
		Tags:        req.Tags,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		IsFavorite:  req.IsFavorite,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// DELETE /api/v1/outfits/{outfitID}
func (h *OutfitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.outfits.Delete(r.Context(), GetUserID(r), chi.URLParam(r, "outfitID")); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type CollagePlacementRequest struct {
	ClothingID string `json:"clothing_id" validate:"required"`
	imaging.Placement
}

type ComposeCollageRequest struct {
	Placements []CollagePlacementRequest `json:"placements" validate:"max=12,dive"`
}

// POST /api/v1/outfits/{outfitID}/collage
//
// An empty body or placement list uses the default grid layout.
func (h *OutfitHandler) ComposeCollage(w http.ResponseWriter, r *http.Request) {
	var req ComposeCollageRequest
	if r.ContentLength != 0 {
		if err := decodeAndValidate(r.Body, &req); err != nil {
			writeAppError(w, r, err)
			return
		}
	}

	placements := make([]catalog.CollagePlacement, len(req.Placements))
	for i, p := range req.Placements {
		placements[i] = catalog.CollagePlacement{ClothingID: p.ClothingID, Placement: p.Placement}
	}

	o, err := h.outfits.ComposeCollage(r.Context(), GetUserID(r), chi.URLParam(r, "outfitID"), placements)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bumothekid/clothing-booth-api-v2/internal/blob"
	"github.com/bumothekid/clothing-booth-api-v2/internal/db"
	"github.com/bumothekid/clothing-booth-api-v2/internal/imaging"
	"github.com/bumothekid/clothing-booth-api-v2/internal/models"
)

type OutfitStore interface {
	Create(ctx context.Context, o *models.Outfit) error
	FindByID(ctx context.Context, id string) (*models.Outfit, error)
	ListByUser(ctx context.Context, userID string, includePrivate bool, limit, offset int) ([]*models.Outfit, error)
	Update(ctx context.Context, o *models.Outfit) error
	SetCollage(ctx context.Context, id string, imageID *string) error
	Delete(ctx context.Context, id string) error
}

type OutfitInput struct {
	Name        string
	ClothingIDs []string
	Seasons     []string
	Tags        []string
	Description *string
	IsPublic    bool
	IsFavorite  bool
}

// OutfitPatch holds the fields to change; nil fields stay as they are.
type OutfitPatch struct {
	Name        *string
	ClothingIDs *[]string
	Seasons     *[]string
	Tags        *[]string
	Description *string
	IsPublic    *bool
	IsFavorite  *bool
}

// CollagePlacement positions one of the outfit's clothing items.
type CollagePlacement struct {
	ClothingID string
	Placement  imaging.Placement
}

type OutfitManager struct {
	store    OutfitStore
	clothing ClothingStore
	images   Images
	now      func() time.Time
}

func NewOutfitManager(store OutfitStore, clothing ClothingStore, images Images) *OutfitManager {
	return &OutfitManager{
		store:    store,
		clothing: clothing,
		images:   images,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new outfit. Every clothing id must exist and belong to
// userID; a single foreign or unknown id rejects the whole request.
func (m *OutfitManager) Create(ctx context.Context, userID string, in OutfitInput) (*models.Outfit, error) {
	o := &models.Outfit{
		ID:         db.NewID(),
		IsPublic:   in.IsPublic,
		IsFavorite: in.IsFavorite,
		UserID:     userID,
		CreatedAt:  m.now(),
	}

	var err error
	if o.Name, err = checkName(in.Name, ErrOutfitNameInvalid); err != nil {
		return nil, err
	}
	if o.Seasons, err = parseSeasons(in.Seasons); err != nil {
		return nil, err
	}
	if o.Tags, err = parseTags(in.Tags); err != nil {
		return nil, err
	}
	if o.Description, err = checkDescription(in.Description, ErrOutfitDescriptionTooLong); err != nil {
		return nil, err
	}
	if o.ClothingIDs, err = m.ownedClothing(ctx, userID, in.ClothingIDs); err != nil {
		return nil, err
	}

	if err := m.store.Create(ctx, o); err != nil {
		if errors.Is(err, db.ErrMissingReference) {
			return nil, ErrOutfitClothingIDInvalid
		}
		return nil, err
	}

	m.decorate(o)
	return o, nil
}

// Get returns the outfit when it is public or owned by viewerID. A private
// outfit of another user fails with ErrOutfitPermission.
func (m *OutfitManager) Get(ctx context.Context, viewerID, outfitID string) (*models.Outfit, error) {
	o, err := m.find(ctx, outfitID)
	if err != nil {
		return nil, err
	}
	if !o.IsPublic && o.UserID != viewerID {
		return nil, ErrOutfitPermission
	}
	m.decorate(o)
	return o, nil
}

func (m *OutfitManager) List(ctx context.Context, viewerID, ownerID string, limit, offset int) ([]*models.Outfit, error) {
	if err := checkPage(limit, offset); err != nil {
		return nil, err
	}

	outfits, err := m.store.ListByUser(ctx, ownerID, viewerID == ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	for _, o := range outfits {
		m.decorate(o)
	}
	return outfits, nil
}

// Update applies patch to an outfit the user owns. Clothing, seasons and
// tags are written as deltas; added clothing must belong to the user.
func (m *OutfitManager) Update(ctx context.Context, userID, outfitID string, patch OutfitPatch) (*models.Outfit, error) {
	o, err := m.findOwned(ctx, userID, outfitID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if o.Name, err = checkName(*patch.Name, ErrOutfitNameInvalid); err != nil {
			return nil, err
		}
	}
	if patch.Seasons != nil {
		if o.Seasons, err = parseSeasons(*patch.Seasons); err != nil {
			return nil, err
		}
	}
	if patch.Tags != nil {
		if o.Tags, err = parseTags(*patch.Tags); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		if o.Description, err = checkDescription(patch.Description, ErrOutfitDescriptionTooLong); err != nil {
			return nil, err
		}
	}
	if patch.ClothingIDs != nil {
		if o.ClothingIDs, err = m.ownedClothing(ctx, userID, *patch.ClothingIDs); err != nil {
			return nil, err
		}
	}
	if patch.IsPublic != nil {
		o.IsPublic = *patch.IsPublic
	}
	if patch.IsFavorite != nil {
		o.IsFavorite = *patch.IsFavorite
	}

	if err := m.store.Update(ctx, o); err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			return nil, ErrOutfitNotFound
		case errors.Is(err, db.ErrMissingReference):
			return nil, ErrOutfitClothingIDInvalid
		}
		return nil, err
	}

	updated, err := m.find(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	m.decorate(updated)
	return updated, nil
}

// Delete removes the outfit and its associations, then its collage.
func (m *OutfitManager) Delete(ctx context.Context, userID, outfitID string) error {
	o, err := m.findOwned(ctx, userID, outfitID)
	if err != nil {
		return err
	}

	if err := m.store.Delete(ctx, o.ID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrOutfitNotFound
		}
		return err
	}

	if o.CollageImageID != nil {
		collectImage(ctx, m.images, blob.AreaOutfitCollages, *o.CollageImageID)
	}
	return nil
}

// ComposeCollage renders the outfit's clothing into a new collage and
// replaces the previous one. Without placements the first four items are
// laid out on a grid.
func (m *OutfitManager) ComposeCollage(ctx context.Context, userID, outfitID string, placements []CollagePlacement) (*models.Outfit, error) {
	o, err := m.findOwned(ctx, userID, outfitID)
	if err != nil {
		return nil, err
	}
	if len(o.ClothingIDs) == 0 {
		return nil, ErrOutfitClothingIDsMissing
	}

	if len(placements) == 0 {
		layout := imaging.DefaultLayout(len(o.ClothingIDs))
		placements = make([]CollagePlacement, len(layout))
		for i, p := range layout {
			placements[i] = CollagePlacement{ClothingID: o.ClothingIDs[i], Placement: p}
		}
	}

	inOutfit := make(map[string]bool, len(o.ClothingIDs))
	for _, id := range o.ClothingIDs {
		inOutfit[id] = true
	}

	items := make([]imaging.CollageItem, 0, len(placements))
	for _, p := range placements {
		if !inOutfit[p.ClothingID] {
			return nil, ErrCollagePlacementsWrong
		}
		c, err := m.clothing.FindByID(ctx, p.ClothingID)
		if err != nil {
			return nil, fmt.Errorf("loading collage clothing %s: %w", p.ClothingID, err)
		}
		items = append(items, imaging.CollageItem{ImageID: c.ImageID, Placement: p.Placement})
	}

	collageID, err := m.images.ComposeCollage(ctx, items)
	if err != nil {
		return nil, err
	}

	if err := m.store.SetCollage(ctx, o.ID, &collageID); err != nil {
		collectImage(ctx, m.images, blob.AreaOutfitCollages, collageID)
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrOutfitNotFound
		}
		return nil, err
	}

	if o.CollageImageID != nil {
		collectImage(ctx, m.images, blob.AreaOutfitCollages, *o.CollageImageID)
	}
	slog.Debug("outfit collage composed", "outfit_id", o.ID, "image_id", collageID, "layers", len(items))

	o.CollageImageID = &collageID
	m.decorate(o)
	return o, nil
}

// ownedClothing rejects the list unless every id exists and belongs to
// userID. Duplicates collapse to their first position.
func (m *OutfitManager) ownedClothing(ctx context.Context, userID string, raw []string) ([]string, error) {
	ids := uniqueIDs(raw)
	if len(ids) == 0 {
		return nil, ErrOutfitClothingIDsMissing
	}

	owned, err := m.clothing.FilterOwned(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if !owned[id] {
			return nil, ErrOutfitClothingIDInvalid.WithMessagef("The clothing_id %q does not reference your clothing.", id)
		}
	}
	return ids, nil
}

func (m *OutfitManager) find(ctx context.Context, outfitID string) (*models.Outfit, error) {
	if strings.TrimSpace(outfitID) == "" {
		return nil, ErrOutfitNotFound
	}
	o, err := m.store.FindByID(ctx, outfitID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrOutfitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding outfit %s: %w", outfitID, err)
	}
	return o, nil
}

// findOwned reports ErrOutfitPermission when the outfit belongs to someone
// else.
func (m *OutfitManager) findOwned(ctx context.Context, userID, outfitID string) (*models.Outfit, error) {
	o, err := m.find(ctx, outfitID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrOutfitPermission
	}
	return o, nil
}

func (m *OutfitManager) decorate(o *models.Outfit) {
	if o.CollageImageID != nil {
		o.CollageURL = m.images.URL(blob.AreaOutfitCollages, *o.CollageImageID)
	}
}

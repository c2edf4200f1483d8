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
	"github.com/bumothekid/clothing-booth-api-v2/internal/models"
)

type ClothingStore interface {
	Create(ctx context.Context, c *models.Clothing) error
	FindByID(ctx context.Context, id string) (*models.Clothing, error)
	ListByUser(ctx context.Context, userID string, includePrivate bool, limit, offset int) ([]*models.Clothing, error)
	Update(ctx context.Context, c *models.Clothing) error
	Delete(ctx context.Context, id string) error
	FilterOwned(ctx context.Context, userID string, ids []string) (map[string]bool, error)
}

type ClothingInput struct {
	Name        string
	Category    string
	Color       string
	ImageID     string
	Seasons     []string
	Tags        []string
	Description *string
	IsPublic    bool
}

// ClothingPatch holds the fields to change; nil fields stay as they are. An
// empty Description clears it.
type ClothingPatch struct {
	Name        *string
	Category    *string
	Color       *string
	ImageID     *string
	Seasons     *[]string
	Tags        *[]string
	Description *string
	IsPublic    *bool
}

type ClothingManager struct {
	store  ClothingStore
	images Images
	now    func() time.Time
}

func NewClothingManager(store ClothingStore, images Images) *ClothingManager {
	return &ClothingManager{
		store:  store,
		images: images,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create validates the input, inserts the row with its associations and
// only then promotes the staged image. A failed insert leaves the image in
// temp storage where the reaper collects it.
func (m *ClothingManager) Create(ctx context.Context, userID string, in ClothingInput) (*models.Clothing, error) {
	c := &models.Clothing{
		ID:        db.NewID(),
		IsPublic:  in.IsPublic,
		UserID:    userID,
		CreatedAt: m.now(),
	}

	var err error
	if c.Name, err = checkName(in.Name, ErrNameInvalid); err != nil {
		return nil, err
	}
	if c.Category, err = parseCategory(in.Category); err != nil {
		return nil, err
	}
	if c.Color, err = normalizeColor(in.Color); err != nil {
		return nil, err
	}
	if c.Seasons, err = parseSeasons(in.Seasons); err != nil {
		return nil, err
	}
	if c.Tags, err = parseTags(in.Tags); err != nil {
		return nil, err
	}
	if c.Description, err = checkDescription(in.Description, ErrDescriptionTooLong); err != nil {
		return nil, err
	}

	c.ImageID = strings.TrimSpace(in.ImageID)
	if c.ImageID == "" {
		return nil, ErrImageMissing
	}
	if err := m.requireStaged(c.ImageID); err != nil {
		return nil, err
	}

	if err := m.store.Create(ctx, c); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrImageClaimed
		}
		return nil, err
	}

	if err := m.images.Promote(c.ImageID, blob.AreaClothingImages); err != nil {
		slog.Error("error promoting clothing image", "error", err, "clothing_id", c.ID, "image_id", c.ImageID)
		return nil, err
	}

	m.decorate(c)
	return c, nil
}

// Get returns a clothing item the viewer may see. Private items of other
// users are reported as missing.
func (m *ClothingManager) Get(ctx context.Context, viewerID, clothingID string) (*models.Clothing, error) {
	c, err := m.find(ctx, clothingID)
	if err != nil {
		return nil, err
	}
	if !c.IsPublic && c.UserID != viewerID {
		return nil, ErrClothingNotFound
	}
	m.decorate(c)
	return c, nil
}

// List returns ownerID's clothing newest first. Only the owner sees private
// items.
func (m *ClothingManager) List(ctx context.Context, viewerID, ownerID string, limit, offset int) ([]*models.Clothing, error) {
	if err := checkPage(limit, offset); err != nil {
		return nil, err
	}

	items, err := m.store.ListByUser(ctx, ownerID, viewerID == ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	for _, c := range items {
		m.decorate(c)
	}
	return items, nil
}

// Update applies patch to an item the user owns. Seasons and tags are
// written as deltas. A new image is promoted after the row commits and the
// old one is collected once unreferenced.
func (m *ClothingManager) Update(ctx context.Context, userID, clothingID string, patch ClothingPatch) (*models.Clothing, error) {
	c, err := m.findOwned(ctx, userID, clothingID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if c.Name, err = checkName(*patch.Name, ErrNameInvalid); err != nil {
			return nil, err
		}
	}
	if patch.Category != nil {
		if c.Category, err = parseCategory(*patch.Category); err != nil {
			return nil, err
		}
	}
	if patch.Color != nil {
		if c.Color, err = normalizeColor(*patch.Color); err != nil {
			return nil, err
		}
	}
	if patch.Seasons != nil {
		if c.Seasons, err = parseSeasons(*patch.Seasons); err != nil {
			return nil, err
		}
	}
	if patch.Tags != nil {
		if c.Tags, err = parseTags(*patch.Tags); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		if c.Description, err = checkDescription(patch.Description, ErrDescriptionTooLong); err != nil {
			return nil, err
		}
	}
	if patch.IsPublic != nil {
		c.IsPublic = *patch.IsPublic
	}

	oldImage := c.ImageID
	if patch.ImageID != nil {
		newImage := strings.TrimSpace(*patch.ImageID)
		if newImage == "" {
			return nil, ErrImageMissing
		}
		if newImage != oldImage {
			if err := m.requireStaged(newImage); err != nil {
				return nil, err
			}
			c.ImageID = newImage
		}
	}

	if err := m.store.Update(ctx, c); err != nil {
		switch {
		case errors.Is(err, db.ErrDuplicate):
			return nil, ErrImageClaimed
		case errors.Is(err, db.ErrNotFound):
			return nil, ErrClothingNotFound
		}
		return nil, err
	}

	if c.ImageID != oldImage {
		if err := m.images.Promote(c.ImageID, blob.AreaClothingImages); err != nil {
			slog.Error("error promoting clothing image", "error", err, "clothing_id", c.ID, "image_id", c.ImageID)
			return nil, err
		}
		collectImage(ctx, m.images, blob.AreaClothingImages, oldImage)
	}

	updated, err := m.find(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	m.decorate(updated)
	return updated, nil
}

// Delete removes the item and its associations, then its image.
func (m *ClothingManager) Delete(ctx context.Context, userID, clothingID string) error {
	c, err := m.findOwned(ctx, userID, clothingID)
	if err != nil {
		return err
	}

	if err := m.store.Delete(ctx, c.ID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrClothingNotFound
		}
		return err
	}

	collectImage(ctx, m.images, blob.AreaClothingImages, c.ImageID)
	return nil
}

func (m *ClothingManager) requireStaged(imageID string) error {
	ok, err := m.images.Staged(imageID)
	if err != nil {
		return fmt.Errorf("checking staged image %s: %w", imageID, err)
	}
	if !ok {
		return ErrImageInvalid
	}
	return nil
}

func (m *ClothingManager) find(ctx context.Context, clothingID string) (*models.Clothing, error) {
	if strings.TrimSpace(clothingID) == "" {
		return nil, ErrClothingIDMissing
	}
	c, err := m.store.FindByID(ctx, clothingID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrClothingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding clothing %s: %w", clothingID, err)
	}
	return c, nil
}

// findOwned hides other users' items behind ErrClothingNotFound.
func (m *ClothingManager) findOwned(ctx context.Context, userID, clothingID string) (*models.Clothing, error) {
	c, err := m.find(ctx, clothingID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, ErrClothingNotFound
	}
	return c, nil
}

func (m *ClothingManager) decorate(c *models.Clothing) {
	c.ImageURL = m.images.URL(blob.AreaClothingImages, c.ImageID)
}

package db

import (
	"context"
	"database/sql"
	"fmt"
)

// ImageRef is a catalog row that points at a stored image.
type ImageRef struct {
	Area    string
	ImageID string
	OwnerID string
}

const (
	AreaClothingImages  = "clothing_images"
	AreaProfilePictures = "profile_pictures"
	AreaOutfitCollages  = "outfit_collages"
)

type ImageRepository struct {
	db *DB
}

func NewImageRepository(db *DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// CountReferences reports how many rows across clothing, outfit collages and
// profile pictures still point at imageID.
func (r *ImageRepository) CountReferences(ctx context.Context, imageID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM clothing WHERE image_id = ?)
              + (SELECT COUNT(*) FROM outfit WHERE collage_image_id = ?)
              + (SELECT COUNT(*) FROM users WHERE profile_picture = ?)`,
		imageID, imageID, imageID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting image references: %w", err)
	}
	return count, nil
}

// ListReferences returns every image reference held by catalog rows.
func (r *ImageRepository) ListReferences(ctx context.Context) ([]ImageRef, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ?, image_id, clothing_id FROM clothing
          UNION ALL
         SELECT ?, collage_image_id, outfit_id FROM outfit WHERE collage_image_id IS NOT NULL
          UNION ALL
         SELECT ?, profile_picture, user_id FROM users WHERE profile_picture IS NOT NULL`,
		AreaClothingImages, AreaOutfitCollages, AreaProfilePictures,
	)
	if err != nil {
		return nil, fmt.Errorf("querying image references: %w", err)
	}
	return scanImageRefs(rows)
}

// ListReferencesByOwner returns the image references held by rows a user
// owns, including their profile picture.
func (r *ImageRepository) ListReferencesByOwner(ctx context.Context, userID string) ([]ImageRef, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ?, image_id, clothing_id FROM clothing WHERE user_id = ?
          UNION ALL
         SELECT ?, collage_image_id, outfit_id FROM outfit WHERE user_id = ? AND collage_image_id IS NOT NULL
          UNION ALL
         SELECT ?, profile_picture, user_id FROM users WHERE user_id = ? AND profile_picture IS NOT NULL`,
		AreaClothingImages, userID, AreaOutfitCollages, userID, AreaProfilePictures, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying image references for %s: %w", userID, err)
	}
	return scanImageRefs(rows)
}

func scanImageRefs(rows *sql.Rows) ([]ImageRef, error) {
	defer rows.Close()

	var refs []ImageRef
	for rows.Next() {
		var ref ImageRef
		if err := rows.Scan(&ref.Area, &ref.ImageID, &ref.OwnerID); err != nil {
			return nil, fmt.Errorf("scanning image reference: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

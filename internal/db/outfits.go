package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bumothekid/clothing-booth-api-v2/internal/models"
)

const outfitColumns = `outfit_id, is_public, is_favorite, name, user_id, description, collage_image_id, created_at`

type OutfitRepository struct {
	db *DB
}

func NewOutfitRepository(db *DB) *OutfitRepository {
	return &OutfitRepository{db: db}
}

func (r *OutfitRepository) Create(ctx context.Context, o *models.Outfit) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO outfit (`+outfitColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.IsPublic, o.IsFavorite, o.Name, o.UserID, o.Description, o.CollageImageID, o.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting outfit: %w", err)
		}

		if err := insertOutfitClothing(ctx, tx, o.ID, o.ClothingIDs, 0); err != nil {
			return err
		}
		if err := insertLinks(ctx, tx, "outfit_seasons", "outfit_id", "season", o.ID, o.Seasons); err != nil {
			return err
		}
		return insertLinks(ctx, tx, "outfit_tags", "outfit_id", "tag", o.ID, o.Tags)
	})
}

func (r *OutfitRepository) FindByID(ctx context.Context, id string) (*models.Outfit, error) {
	o, err := scanOutfit(r.db.QueryRowContext(ctx,
		`SELECT `+outfitColumns+` FROM outfit WHERE outfit_id = ?`, id,
	))
	if err != nil {
		return nil, err
	}
	if err := loadOutfitLinks(ctx, r.db, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OutfitRepository) ListByUser(ctx context.Context, userID string, includePrivate bool, limit, offset int) ([]*models.Outfit, error) {
	query := `SELECT ` + outfitColumns + ` FROM outfit WHERE user_id = ?`
	if !includePrivate {
		query += ` AND is_public = 1`
	}
	query += ` ORDER BY created_at DESC, outfit_id LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying outfits: %w", err)
	}
	defer rows.Close()

	outfits := []*models.Outfit{}
	for rows.Next() {
		o, err := scanOutfit(rows)
		if err != nil {
			return nil, err
		}
		outfits = append(outfits, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outfits: %w", err)
	}

	for _, o := range outfits {
		if err := loadOutfitLinks(ctx, r.db, o); err != nil {
			return nil, err
		}
	}
	return outfits, nil
}

// Update writes the scalar columns and applies the clothing, season and tag
// deltas. New clothing ids are appended after the existing ones.
func (r *OutfitRepository) Update(ctx context.Context, o *models.Outfit) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE outfit SET is_public = ?, is_favorite = ?, name = ?, description = ? WHERE outfit_id = ?`,
			o.IsPublic, o.IsFavorite, o.Name, o.Description, o.ID,
		)
		if err != nil {
			return fmt.Errorf("updating outfit: %w", err)
		}
		if err := checkRowsAffected(result); err != nil {
			return err
		}

		current := &models.Outfit{ID: o.ID}
		if err := loadOutfitLinks(ctx, tx, current); err != nil {
			return err
		}

		addClothing, removeClothing := setDiff(current.ClothingIDs, o.ClothingIDs)
		if err := deleteLinks(ctx, tx, "outfit_clothing", "outfit_id", "clothing_id", o.ID, removeClothing); err != nil {
			return err
		}
		if err := insertOutfitClothing(ctx, tx, o.ID, addClothing, len(current.ClothingIDs)); err != nil {
			return err
		}

		addSeasons, removeSeasons := setDiff(current.Seasons, o.Seasons)
		if err := deleteLinks(ctx, tx, "outfit_seasons", "outfit_id", "season", o.ID, removeSeasons); err != nil {
			return err
		}
		if err := insertLinks(ctx, tx, "outfit_seasons", "outfit_id", "season", o.ID, addSeasons); err != nil {
			return err
		}

		addTags, removeTags := setDiff(current.Tags, o.Tags)
		if err := deleteLinks(ctx, tx, "outfit_tags", "outfit_id", "tag", o.ID, removeTags); err != nil {
			return err
		}
		return insertLinks(ctx, tx, "outfit_tags", "outfit_id", "tag", o.ID, addTags)
	})
}

// SetCollage points the outfit at a new collage image, or clears it.
func (r *OutfitRepository) SetCollage(ctx context.Context, id string, imageID *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE outfit SET collage_image_id = ? WHERE outfit_id = ?`, imageID, id,
	)
	if err != nil {
		return fmt.Errorf("setting outfit collage: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *OutfitRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM outfit_seasons WHERE outfit_id = ?`,
			`DELETE FROM outfit_tags WHERE outfit_id = ?`,
			`DELETE FROM outfit_clothing WHERE outfit_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("deleting outfit associations: %w", err)
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM outfit WHERE outfit_id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting outfit: %w", err)
		}
		return checkRowsAffected(result)
	})
}

func insertOutfitClothing(ctx context.Context, q execer, outfitID string, clothingIDs []string, startPos int) error {
	for i, id := range clothingIDs {
		_, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO outfit_clothing (outfit_id, clothing_id, position) VALUES (?, ?, ?)`,
			outfitID, id, startPos+i,
		)
		if IsForeignKeyConstraintError(err) {
			return fmt.Errorf("inserting outfit clothing %s: %w", id, ErrMissingReference)
		}
		if err != nil {
			return fmt.Errorf("inserting outfit clothing: %w", err)
		}
	}
	return nil
}

func loadOutfitLinks(ctx context.Context, q execer, o *models.Outfit) error {
	clothingIDs, err := queryStrings(ctx, q,
		`SELECT clothing_id FROM outfit_clothing WHERE outfit_id = ? ORDER BY position, clothing_id`, o.ID)
	if err != nil {
		return fmt.Errorf("loading outfit clothing: %w", err)
	}
	seasons, err := queryLinks[models.Season](ctx, q, `SELECT season FROM outfit_seasons WHERE outfit_id = ? ORDER BY season`, o.ID)
	if err != nil {
		return fmt.Errorf("loading outfit seasons: %w", err)
	}
	tags, err := queryLinks[models.Tag](ctx, q, `SELECT tag FROM outfit_tags WHERE outfit_id = ? ORDER BY tag`, o.ID)
	if err != nil {
		return fmt.Errorf("loading outfit tags: %w", err)
	}
	o.ClothingIDs = clothingIDs
	o.Seasons = seasons
	o.Tags = tags
	return nil
}

func queryStrings(ctx context.Context, q execer, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanOutfit(row rowScanner) (*models.Outfit, error) {
	var o models.Outfit
	err := row.Scan(
		&o.ID,
		&o.IsPublic,
		&o.IsFavorite,
		&o.Name,
		&o.UserID,
		&o.Description,
		&o.CollageImageID,
		&o.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning outfit: %w", err)
	}
	o.CreatedAt = o.CreatedAt.UTC()
	return &o, nil
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bumothekid/clothing-booth-api-v2/internal/models"
)

const clothingColumns = `clothing_id, is_public, name, category, color, image_id, user_id, description, created_at`

type ClothingRepository struct {
	db *DB
}

func NewClothingRepository(db *DB) *ClothingRepository {
	return &ClothingRepository{db: db}
}

// Create inserts the row and its season and tag associations in one
// transaction. A second claim on the same image yields a *DuplicateError
// for column image_id.
func (r *ClothingRepository) Create(ctx context.Context, c *models.Clothing) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO clothing (`+clothingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.IsPublic, c.Name, c.Category, c.Color, c.ImageID, c.UserID, c.Description, c.CreatedAt.UTC(),
		)
		if err != nil {
			if err := translateWriteError(err); errors.Is(err, ErrDuplicate) {
				return err
			}
			return fmt.Errorf("inserting clothing: %w", err)
		}

		if err := insertLinks(ctx, tx, "clothing_seasons", "clothing_id", "season", c.ID, c.Seasons); err != nil {
			return err
		}
		return insertLinks(ctx, tx, "clothing_tags", "clothing_id", "tag", c.ID, c.Tags)
	})
}

func (r *ClothingRepository) FindByID(ctx context.Context, id string) (*models.Clothing, error) {
	c, err := scanClothing(r.db.QueryRowContext(ctx,
		`SELECT `+clothingColumns+` FROM clothing WHERE clothing_id = ?`, id,
	))
	if err != nil {
		return nil, err
	}
	if err := r.loadLinks(ctx, r.db, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListByUser returns newest first. Private rows are skipped unless
// includePrivate is set.
func (r *ClothingRepository) ListByUser(ctx context.Context, userID string, includePrivate bool, limit, offset int) ([]*models.Clothing, error) {
	query := `SELECT ` + clothingColumns + ` FROM clothing WHERE user_id = ?`
	if !includePrivate {
		query += ` AND is_public = 1`
	}
	query += ` ORDER BY created_at DESC, clothing_id LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying clothing: %w", err)
	}
	defer rows.Close()

	items := []*models.Clothing{}
	for rows.Next() {
		c, err := scanClothing(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating clothing: %w", err)
	}

	for _, c := range items {
		if err := r.loadLinks(ctx, r.db, c); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// Update writes the scalar columns of c and applies only the season and tag
// deltas against what is stored.
func (r *ClothingRepository) Update(ctx context.Context, c *models.Clothing) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE clothing
                SET is_public = ?, name = ?, category = ?, color = ?, image_id = ?, description = ?
              WHERE clothing_id = ?`,
			c.IsPublic, c.Name, c.Category, c.Color, c.ImageID, c.Description, c.ID,
		)
		if err != nil {
			if err := translateWriteError(err); errors.Is(err, ErrDuplicate) {
				return err
			}
			return fmt.Errorf("updating clothing: %w", err)
		}
		if err := checkRowsAffected(result); err != nil {
			return err
		}

		current := &models.Clothing{ID: c.ID}
		if err := r.loadLinks(ctx, tx, current); err != nil {
			return err
		}

		addSeasons, removeSeasons := setDiff(current.Seasons, c.Seasons)
		if err := deleteLinks(ctx, tx, "clothing_seasons", "clothing_id", "season", c.ID, removeSeasons); err != nil {
			return err
		}
		if err := insertLinks(ctx, tx, "clothing_seasons", "clothing_id", "season", c.ID, addSeasons); err != nil {
			return err
		}

		addTags, removeTags := setDiff(current.Tags, c.Tags)
		if err := deleteLinks(ctx, tx, "clothing_tags", "clothing_id", "tag", c.ID, removeTags); err != nil {
			return err
		}
		return insertLinks(ctx, tx, "clothing_tags", "clothing_id", "tag", c.ID, addTags)
	})
}

// Delete removes the associations and then the row.
func (r *ClothingRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM clothing_seasons WHERE clothing_id = ?`,
			`DELETE FROM clothing_tags WHERE clothing_id = ?`,
			`DELETE FROM outfit_clothing WHERE clothing_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return fmt.Errorf("deleting clothing associations: %w", err)
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM clothing WHERE clothing_id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting clothing: %w", err)
		}
		return checkRowsAffected(result)
	})
}

// FilterOwned returns the subset of ids that exist and belong to userID.
func (r *ClothingRepository) FilterOwned(ctx context.Context, userID string, ids []string) (map[string]bool, error) {
	owned := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return owned, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT clothing_id FROM clothing WHERE user_id = ? AND clothing_id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("checking clothing ownership: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning clothing id: %w", err)
		}
		owned[id] = true
	}
	return owned, rows.Err()
}

func (r *ClothingRepository) loadLinks(ctx context.Context, q execer, c *models.Clothing) error {
	seasons, err := queryLinks[models.Season](ctx, q, `SELECT season FROM clothing_seasons WHERE clothing_id = ? ORDER BY season`, c.ID)
	if err != nil {
		return fmt.Errorf("loading clothing seasons: %w", err)
	}
	tags, err := queryLinks[models.Tag](ctx, q, `SELECT tag FROM clothing_tags WHERE clothing_id = ? ORDER BY tag`, c.ID)
	if err != nil {
		return fmt.Errorf("loading clothing tags: %w", err)
	}
	c.Seasons = seasons
	c.Tags = tags
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClothing(row rowScanner) (*models.Clothing, error) {
	var c models.Clothing
	err := row.Scan(
		&c.ID,
		&c.IsPublic,
		&c.Name,
		&c.Category,
		&c.Color,
		&c.ImageID,
		&c.UserID,
		&c.Description,
		&c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning clothing: %w", err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// scanPtr is implemented by the pointer form of the enum types.
type scanPtr[T any] interface {
	*T
	Scan(src any) error
}

func queryLinks[T any, PT scanPtr[T]](ctx context.Context, q execer, query, id string) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var v T
		if err := rows.Scan(PT(&v)); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func insertLinks[T any](ctx context.Context, q execer, table, ownerCol, valueCol, ownerID string, values []T) error {
	for _, v := range values {
		_, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO `+table+` (`+ownerCol+`, `+valueCol+`) VALUES (?, ?)`,
			ownerID, v,
		)
		if err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}
	return nil
}

func deleteLinks[T any](ctx context.Context, q execer, table, ownerCol, valueCol, ownerID string, values []T) error {
	for _, v := range values {
		_, err := q.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE `+ownerCol+` = ? AND `+valueCol+` = ?`,
			ownerID, v,
		)
		if err != nil {
			return fmt.Errorf("deleting from %s: %w", table, err)
		}
	}
	return nil
}

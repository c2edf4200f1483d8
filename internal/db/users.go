package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bumothekid/clothing-booth-api-v2/internal/models"
)

const userColumns = `user_id, is_guest, username, email, password, profile_picture, created_at, updated_at`

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateGuest inserts a credential-less user.
func (r *UserRepository) CreateGuest(ctx context.Context) (*models.User, error) {
	id := NewID()
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (user_id, is_guest, created_at) VALUES (?, 1, ?)`,
		id, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating guest user: %w", err)
	}

	return &models.User{ID: id, IsGuest: true, CreatedAt: now}, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

// UpgradeParams carries the credentials a guest row receives on upgrade.
// When SessionExpiresAt is set, the user's non-expiring refresh tokens get
// that expiry in the same transaction.
type UpgradeParams struct {
	Email            *string
	Username         *string
	PasswordHash     string
	ProfilePicture   *string
	SessionExpiresAt time.Time
}

// Upgrade converts a guest row into a full account in place. It returns
// ErrNotFound when the row is missing or no longer a guest, and a
// *DuplicateError naming the column on a uniqueness conflict.
func (r *UserRepository) Upgrade(ctx context.Context, id string, p UpgradeParams) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE users
                SET is_guest = 0,
                    email = ?,
                    username = ?,
                    password = ?,
                    profile_picture = COALESCE(?, profile_picture),
                    updated_at = ?
              WHERE user_id = ? AND is_guest = 1`,
			p.Email, p.Username, p.PasswordHash, p.ProfilePicture, time.Now().UTC(), id,
		)
		if err != nil {
			if err := translateWriteError(err); errors.Is(err, ErrDuplicate) {
				return err
			}
			return fmt.Errorf("upgrading user: %w", err)
		}
		if err := checkRowsAffected(result); err != nil {
			return err
		}

		if p.SessionExpiresAt.IsZero() {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE refresh_tokens SET expires_at = ? WHERE user_id = ? AND expires_at IS NULL`,
			p.SessionExpiresAt.UTC(), id,
		); err != nil {
			return fmt.Errorf("bounding refresh tokens: %w", err)
		}
		return nil
	})
}

func (r *UserRepository) UpdateUsername(ctx context.Context, id, username string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET username = ?, updated_at = ? WHERE user_id = ?`,
		username, time.Now().UTC(), id,
	)
	if err != nil {
		if err := translateWriteError(err); errors.Is(err, ErrDuplicate) {
			return err
		}
		return fmt.Errorf("updating username: %w", err)
	}
	return checkRowsAffected(result)
}

// UpdateProfilePicture sets or clears the user's picture reference.
func (r *UserRepository) UpdateProfilePicture(ctx context.Context, id string, picture *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET profile_picture = ?, updated_at = ? WHERE user_id = ?`,
		picture, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating profile picture: %w", err)
	}
	return checkRowsAffected(result)
}

// Delete removes the user; clothing, outfits and refresh tokens cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var u models.User
	var updatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID,
		&u.IsGuest,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.ProfilePicture,
		&u.CreatedAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = nullTimeToPtr(updatedAt)

	return &u, nil
}

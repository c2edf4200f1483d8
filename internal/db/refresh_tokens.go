package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bumothekid/clothing-booth-api-v2/internal/models"
)

type RefreshTokenRepository struct {
	db *DB
}

func NewRefreshTokenRepository(db *DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

// CreateCapped stores a new token for userID after evicting the oldest
// tokens (by expiry ascending, NULL first) so that at most maxPerUser remain.
func (r *RefreshTokenRepository) CreateCapped(ctx context.Context, userID, tokenHash string, expiresAt *time.Time, maxPerUser int) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM refresh_tokens WHERE user_id = ?`, userID,
		).Scan(&count); err != nil {
			return fmt.Errorf("counting refresh tokens: %w", err)
		}

		if excess := count - maxPerUser + 1; excess > 0 {
			_, err := tx.ExecContext(ctx,
				`DELETE FROM refresh_tokens
                  WHERE token_hash IN (
                        SELECT token_hash FROM refresh_tokens
                         WHERE user_id = ?
                         ORDER BY expires_at ASC, created_at ASC
                         LIMIT ?)`,
				userID, excess,
			)
			if err != nil {
				return fmt.Errorf("evicting refresh tokens: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO refresh_tokens (token_hash, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
			tokenHash, userID, timePtrToArg(expiresAt), time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("creating refresh token: %w", err)
		}
		return nil
	})
}

func (r *RefreshTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	var expiresAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, token_hash, expires_at, created_at FROM refresh_tokens WHERE token_hash = ?`,
		tokenHash,
	).Scan(&t.UserID, &t.TokenHash, &expiresAt, &t.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying refresh token: %w", err)
	}

	t.ExpiresAt = nullTimeToPtr(expiresAt)

	return &t, nil
}

// ListForUser returns the user's tokens in eviction order.
func (r *RefreshTokenRepository) ListForUser(ctx context.Context, userID string) ([]*models.RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, token_hash, expires_at, created_at FROM refresh_tokens
          WHERE user_id = ?
          ORDER BY expires_at ASC, created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying refresh tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*models.RefreshToken
	for rows.Next() {
		var t models.RefreshToken
		var expiresAt sql.NullTime
		if err := rows.Scan(&t.UserID, &t.TokenHash, &expiresAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning refresh token: %w", err)
		}
		t.ExpiresAt = nullTimeToPtr(expiresAt)
		tokens = append(tokens, &t)
	}
	return tokens, rows.Err()
}

// Replace substitutes newHash for oldHash in place. The expiry column is
// only written when updateExpiry is set.
func (r *RefreshTokenRepository) Replace(ctx context.Context, oldHash, newHash string, expiresAt *time.Time, updateExpiry bool) error {
	var (
		result sql.Result
		err    error
	)
	if updateExpiry {
		result, err = r.db.ExecContext(ctx,
			`UPDATE refresh_tokens SET token_hash = ?, expires_at = ? WHERE token_hash = ?`,
			newHash, timePtrToArg(expiresAt), oldHash,
		)
	} else {
		result, err = r.db.ExecContext(ctx,
			`UPDATE refresh_tokens SET token_hash = ? WHERE token_hash = ?`,
			newHash, oldHash,
		)
	}
	if err != nil {
		return fmt.Errorf("replacing refresh token: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *RefreshTokenRepository) DeleteByHash(ctx context.Context, tokenHash string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return fmt.Errorf("deleting refresh token: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at IS NOT NULL AND expires_at < ?`,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting expired tokens: %w", err)
	}

	return result.RowsAffected()
}

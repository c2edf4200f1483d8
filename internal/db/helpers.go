package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewID() string {
	return uuid.NewString()
}

// nullTimeToPtr converts a sql.NullTime to *time.Time.
func nullTimeToPtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func timePtrToArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// checkRowsAffected verifies at least one row was affected, returns ErrNotFound if not
func checkRowsAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// setDiff returns the members of want missing from have, and the members of
// have missing from want.
func setDiff[T comparable](have, want []T) (add, remove []T) {
	haveSet := make(map[T]struct{}, len(have))
	for _, v := range have {
		haveSet[v] = struct{}{}
	}
	wantSet := make(map[T]struct{}, len(want))
	for _, v := range want {
		if _, dup := wantSet[v]; dup {
			continue
		}
		wantSet[v] = struct{}{}
		if _, ok := haveSet[v]; !ok {
			add = append(add, v)
		}
	}
	for _, v := range have {
		if _, ok := wantSet[v]; !ok {
			remove = append(remove, v)
		}
	}
	return add, remove
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*2-1)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}

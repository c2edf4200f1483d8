package db

import (
	"errors"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
	// ErrMissingReference reports a write pointing at a row that no longer
	// exists.
	ErrMissingReference = errors.New("referenced row does not exist")
)

// DuplicateError reports which column rejected a write.
type DuplicateError struct {
	Column string
}

func (e *DuplicateError) Error() string {
	if e.Column == "" {
		return ErrDuplicate.Error()
	}
	return "duplicate entry for " + e.Column
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

func IsUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	if sqliteErr.Code != sqlite3.ErrConstraint {
		return false
	}

	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func IsForeignKeyConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrConstraint &&
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

// translateWriteError turns a unique violation into a *DuplicateError naming
// the column, e.g. "UNIQUE constraint failed: users.email" -> "email".
func translateWriteError(err error) error {
	if !IsUniqueConstraintError(err) {
		return err
	}

	msg := err.Error()
	idx := strings.LastIndex(msg, ": ")
	if idx < 0 {
		return &DuplicateError{}
	}

	// Composite keys list every column; the first one is enough for callers.
	cols := strings.Split(msg[idx+2:], ",")
	col := strings.TrimSpace(cols[0])
	if dot := strings.LastIndex(col, "."); dot >= 0 {
		col = col[dot+1:]
	}
	return &DuplicateError{Column: col}
}

package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	sentinel := New(KindValidation, "SEASON_INVALID", "season is invalid")
	derived := sentinel.WithMessage("The provided season (monsoon) is not valid.")

	assert.True(t, errors.Is(derived, sentinel))
	assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", derived), sentinel))
	assert.False(t, errors.Is(derived, New(KindValidation, "TAG_INVALID", "tag is invalid")))
}

func TestKindOf(t *testing.T) {
	notFound := New(KindNotFound, "X_NOT_FOUND", "missing")

	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("loading: %w", notFound)))
	assert.Equal(t, KindUnexpected, KindOf(errors.New("disk on fire")))
	assert.Equal(t, KindUnexpected, KindOf(nil))
}

func TestWithKeyDoesNotMutateSentinel(t *testing.T) {
	sentinel := New(KindConflict, "EMAIL_IN_USE", "The provided email is already in use.")
	keyed := sentinel.WithKey("email")

	assert.Equal(t, "email", keyed.Key)
	assert.Empty(t, sentinel.Key)
}

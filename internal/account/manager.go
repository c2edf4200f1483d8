package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/bumothekid/clothing-booth-api-v2/internal/auth"
	"github.com/bumothekid/clothing-booth-api-v2/internal/blob"
	"github.com/bumothekid/clothing-booth-api-v2/internal/constants"
	"github.com/bumothekid/clothing-booth-api-v2/internal/db"
	"github.com/bumothekid/clothing-booth-api-v2/internal/imaging"
	"github.com/bumothekid/clothing-booth-api-v2/internal/models"
)

type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	Upgrade(ctx context.Context, id string, p db.UpgradeParams) error
	UpdateUsername(ctx context.Context, id, username string) error
	UpdateProfilePicture(ctx context.Context, id string, picture *string) error
	Delete(ctx context.Context, id string) error
}

type ImageRefStore interface {
	ListReferencesByOwner(ctx context.Context, userID string) ([]db.ImageRef, error)
}

// Manager owns the account lifecycle after a session exists: upgrading a
// guest, renaming, profile pictures and deletion.
type Manager struct {
	users      UserStore
	refs       ImageRefStore
	blobs      *blob.Service
	images     *imaging.Pipeline
	pictures   *DefaultPictures
	refreshTTL time.Duration
	maxPicture int64
	validate   *validator.Validate
	now        func() time.Time
}

func NewManager(
	users UserStore,
	refs ImageRefStore,
	blobs *blob.Service,
	images *imaging.Pipeline,
	pictures *DefaultPictures,
	refreshTTL time.Duration,
) *Manager {
	return &Manager{
		users:      users,
		refs:       refs,
		blobs:      blobs,
		images:     images,
		pictures:   pictures,
		refreshTTL: refreshTTL,
		maxPicture: constants.ProfileUploadMaxBytes,
		validate:   validator.New(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithProfilePictureLimit overrides the upload size ceiling for custom
// profile pictures.
func (m *Manager) WithProfilePictureLimit(maxBytes int64) *Manager {
	if maxBytes > 0 {
		m.maxPicture = maxBytes
	}
	return m
}

type UpgradeInput struct {
	Email          *string
	Username       *string
	Password       string
	ProfilePicture *string
}

// UpgradeGuest gives a guest row credentials in place. The user id and every
// refresh token issued to the guest stay valid; tokens without an expiry are
// given one so a full account never holds a permanent session.
func (m *Manager) UpgradeGuest(ctx context.Context, userID string, in UpgradeInput) (*models.User, error) {
	email := normalize(in.Email)
	username := normalize(in.Username)
	if email == nil && username == nil {
		return nil, ErrNameMissing
	}
	if email != nil {
		if err := m.validate.Var(*email, fmt.Sprintf("email,max=%d", constants.EmailMaxLength)); err != nil {
			return nil, ErrEmailInvalid
		}
	}
	if username != nil {
		if err := checkUsername(*username, constants.UpgradeUsernameMaxLength); err != nil {
			return nil, err
		}
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}

	var picture *string
	if in.ProfilePicture != nil {
		id, ok := m.pictures.Resolve(*in.ProfilePicture)
		if !ok {
			return nil, ErrProfilePictureInvalid.WithMessagef(
				"The profile picture must be one of: %s.", strings.Join(m.pictures.Names(), ", "))
		}
		picture = &id
	}

	user, err := m.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsGuest {
		return nil, ErrAccountAlreadyUpgraded
	}
	if picture == nil && user.ProfilePicture == nil {
		id := m.pictures.Random()
		picture = &id
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	err = m.users.Upgrade(ctx, userID, db.UpgradeParams{
		Email:            email,
		Username:         username,
		PasswordHash:     hash,
		ProfilePicture:   picture,
		SessionExpiresAt: m.now().Add(m.refreshTTL),
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrAccountAlreadyUpgraded
		}
		return nil, conflictError(err)
	}

	slog.Info("guest upgraded", "user_id", userID)
	return m.findUser(ctx, userID)
}

// UpdateUsername lowercases and trims the name before storing it.
func (m *Manager) UpdateUsername(ctx context.Context, userID, username string) error {
	name := strings.ToLower(strings.TrimSpace(username))
	if err := checkUsername(name, constants.UsernameMaxLength); err != nil {
		return err
	}

	err := m.users.UpdateUsername(ctx, userID, name)
	if errors.Is(err, db.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return conflictError(err)
	}
	return nil
}

// DeleteAccount removes the user and everything it owns. Full accounts must
// confirm with their password; guests have none. Images the user's rows
// referenced are removed once nothing else points at them.
func (m *Manager) DeleteAccount(ctx context.Context, userID, password string) error {
	user, err := m.findUser(ctx, userID)
	if err != nil {
		return err
	}

	if !user.IsGuest {
		if password == "" {
			return ErrPasswordMissing
		}
		if user.PasswordHash == nil {
			return ErrPasswordWrong
		}
		ok, err := auth.VerifyPassword(*user.PasswordHash, password)
		if err != nil {
			return fmt.Errorf("verifying password for %s: %w", userID, err)
		}
		if !ok {
			return ErrPasswordWrong
		}
	}

	refs, err := m.refs.ListReferencesByOwner(ctx, userID)
	if err != nil {
		return err
	}

	if err := m.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	for _, ref := range refs {
		if ref.Area == db.AreaProfilePictures && IsDefaultPicture(ref.ImageID) {
			continue
		}
		if _, err := m.images.DeleteIfOrphaned(ctx, blob.Area(ref.Area), ref.ImageID); err != nil {
			slog.Error("error removing image of deleted account", "error", err, "user_id", userID, "image_id", ref.ImageID)
		}
	}

	slog.Info("account deleted", "user_id", userID, "guest", user.IsGuest)
	return nil
}

func (m *Manager) GetMe(ctx context.Context, userID string) (*models.User, error) {
	return m.findUser(ctx, userID)
}

func (m *Manager) GetUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := m.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (m *Manager) findUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := m.users.FindByID(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding user %s: %w", userID, err)
	}
	return user, nil
}

func conflictError(err error) error {
	var dup *db.DuplicateError
	if errors.As(err, &dup) {
		switch dup.Column {
		case "email":
			return ErrEmailInUse
		case "username":
			return ErrUsernameInUse
		}
	}
	return err
}

func checkUsername(name string, maxLen int) error {
	n := utf8.RuneCountInString(name)
	switch {
	case n < constants.UsernameMinLength:
		return ErrUsernameTooShort.WithMessagef("The username must be at least %d characters long.", constants.UsernameMinLength)
	case n > maxLen:
		return ErrUsernameTooLong.WithMessagef("The username must be at most %d characters long.", maxLen)
	}
	return nil
}

func checkPassword(password string) error {
	if password == "" {
		return ErrPasswordMissing
	}
	if utf8.RuneCountInString(password) < constants.PasswordMinLength {
		return ErrPasswordTooShort.WithMessagef("The password must be at least %d characters long.", constants.PasswordMinLength)
	}
	return nil
}

func normalize(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.ToLower(strings.TrimSpace(*v))
	if s == "" {
		return nil
	}
	return &s
}

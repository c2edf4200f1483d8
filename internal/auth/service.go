package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bumothekid/clothing-booth-api-v2/internal/constants"
	"github.com/bumothekid/clothing-booth-api-v2/internal/db"
	"github.com/bumothekid/clothing-booth-api-v2/internal/models"
)

type UserStore interface {
	CreateGuest(ctx context.Context) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type RefreshTokenStore interface {
	CreateCapped(ctx context.Context, userID, tokenHash string, expiresAt *time.Time, maxPerUser int) error
	FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Replace(ctx context.Context, oldHash, newHash string, expiresAt *time.Time, updateExpiry bool) error
	DeleteByHash(ctx context.Context, tokenHash string) error
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// TokenService owns the access/refresh token lifecycle.
type TokenService struct {
	users           UserStore
	tokens          RefreshTokenStore
	jwt             *JWTService
	refreshTokenTTL time.Duration
	maxSessions     int
	now             func() time.Time
}

func NewTokenService(users UserStore, tokens RefreshTokenStore, jwt *JWTService, refreshTTL time.Duration, maxSessions int) *TokenService {
	if maxSessions <= 0 {
		maxSessions = constants.MaxSessionsPerUser
	}
	return &TokenService{
		users:           users,
		tokens:          tokens,
		jwt:             jwt,
		refreshTokenTTL: refreshTTL,
		maxSessions:     maxSessions,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *TokenService) RefreshTokenTTL() time.Duration {
	return s.refreshTokenTTL
}

// IssueGuestSession creates a credential-less user and returns its first
// token pair. Guest refresh tokens carry no expiry.
func (s *TokenService) IssueGuestSession(ctx context.Context) (*TokenPair, error) {
	user, err := s.users.CreateGuest(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating guest: %w", err)
	}
	return s.mintPair(ctx, user.ID, true)
}

// SignIn resolves the account by email and/or username and verifies the
// password. Every failure reason surfaces as ErrCredentialsWrong.
func (s *TokenService) SignIn(ctx context.Context, email, username *string, password string) (*TokenPair, error) {
	email = normalizeOptional(email)
	username = normalizeOptional(username)
	if email == nil && username == nil {
		return nil, ErrSignInNameMissing
	}
	if password == "" {
		return nil, ErrPasswordMissing
	}

	user, err := s.resolveSignInUser(ctx, email, username)
	if err != nil {
		if errors.Is(err, ErrCredentialsWrong) {
			burnPasswordCheck(password)
		}
		return nil, err
	}

	if user.IsGuest || user.PasswordHash == nil {
		burnPasswordCheck(password)
		return nil, ErrCredentialsWrong
	}

	ok, err := VerifyPassword(*user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("verifying password for %s: %w", user.ID, err)
	}
	if !ok {
		return nil, ErrCredentialsWrong
	}

	return s.mintPair(ctx, user.ID, false)
}

func (s *TokenService) resolveSignInUser(ctx context.Context, email, username *string) (*models.User, error) {
	var byEmail, byUsername *models.User
	var err error

	if email != nil {
		byEmail, err = s.users.FindByEmail(ctx, *email)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("looking up user by email: %w", err)
		}
	}
	if username != nil {
		byUsername, err = s.users.FindByUsername(ctx, *username)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("looking up user by username: %w", err)
		}
	}

	switch {
	case email != nil && username != nil:
		if byEmail == nil || byUsername == nil || byEmail.ID != byUsername.ID {
			return nil, ErrCredentialsWrong
		}
		return byEmail, nil
	case byEmail != nil:
		return byEmail, nil
	case byUsername != nil:
		return byUsername, nil
	default:
		return nil, ErrCredentialsWrong
	}
}

// Refresh exchanges a live refresh token for a new pair. The stored row is
// replaced in place; its expiry slides forward only for full accounts.
func (s *TokenService) Refresh(ctx context.Context, oldAccessToken, refreshToken string) (*TokenPair, error) {
	if strings.TrimSpace(oldAccessToken) == "" {
		return nil, ErrAccessTokenMissing
	}
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrRefreshTokenMissing
	}

	oldHash := HashRefreshToken(refreshToken)
	stored, err := s.tokens.FindByHash(ctx, oldHash)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrRefreshTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("looking up refresh token: %w", err)
	}

	now := s.now()
	if stored.Expired(now) {
		return nil, ErrTokenExpired
	}

	// Privilege comes from the user row, never from the presented token.
	user, err := s.users.FindByID(ctx, stored.UserID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrRefreshTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("looking up token owner: %w", err)
	}

	access, err := s.jwt.IssueAccessToken(user.ID, user.IsGuest, now)
	if err != nil {
		return nil, err
	}
	newRefresh, err := generateSecureToken(constants.RefreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	var expiresAt *time.Time
	if !user.IsGuest {
		exp := now.Add(s.refreshTokenTTL)
		expiresAt = &exp
	}

	err = s.tokens.Replace(ctx, oldHash, HashRefreshToken(newRefresh), expiresAt, !user.IsGuest)
	if errors.Is(err, db.ErrNotFound) {
		// Lost a race with a concurrent refresh or sign-out.
		return nil, ErrRefreshTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("replacing refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		ExpiresIn:    int64(s.jwt.AccessTokenTTL() / time.Second),
		RefreshToken: newRefresh,
	}, nil
}

// Revoke deletes the refresh token. A token that matches no row is invalid,
// including one that was already revoked.
func (s *TokenService) Revoke(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return ErrRefreshTokenMissing
	}

	err := s.tokens.DeleteByHash(ctx, HashRefreshToken(refreshToken))
	if errors.Is(err, db.ErrNotFound) {
		return ErrRefreshTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("revoking refresh token: %w", err)
	}
	return nil
}

// VerifyAndExtractIdentity returns the user id of a valid access token. Any
// decoding failure, expiry included, is ErrAccessTokenInvalid.
func (s *TokenService) VerifyAndExtractIdentity(accessToken string) (string, error) {
	if strings.TrimSpace(accessToken) == "" {
		return "", ErrAccessTokenMissing
	}
	claims, err := s.jwt.ValidateAccessToken(accessToken)
	if err != nil {
		return "", ErrAccessTokenInvalid
	}
	return claims.Subject, nil
}

func (s *TokenService) mintPair(ctx context.Context, userID string, isGuest bool) (*TokenPair, error) {
	now := s.now()

	refresh, err := generateSecureToken(constants.RefreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	var expiresAt *time.Time
	if !isGuest {
		exp := now.Add(s.refreshTokenTTL)
		expiresAt = &exp
	}

	if err := s.tokens.CreateCapped(ctx, userID, HashRefreshToken(refresh), expiresAt, s.maxSessions); err != nil {
		return nil, fmt.Errorf("storing refresh token: %w", err)
	}

	access, err := s.jwt.IssueAccessToken(userID, isGuest, now)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		ExpiresIn:    int64(s.jwt.AccessTokenTTL() / time.Second),
		RefreshToken: refresh,
	}, nil
}

func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.ToLower(strings.TrimSpace(*v))
	if s == "" {
		return nil
	}
	return &s
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnPasswordCheck runs one verification against a fixed hash when no
// account matched.
func burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = HashPassword("clothing-booth-dummy-password")
	})
	if dummyHash != "" {
		_, _ = VerifyPassword(dummyHash, password)
	}
}

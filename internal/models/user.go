package models

import "time"

type User struct {
	ID             string     `json:"user_id"`
	IsGuest        bool       `json:"is_guest"`
	Username       *string    `json:"username,omitempty"`
	Email          *string    `json:"email,omitempty"`
	PasswordHash   *string    `json:"-"`
	ProfilePicture *string    `json:"profile_picture,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

func (u *User) GetUsername() string {
	if u.Username != nil {
		return *u.Username
	}
	return ""
}

func (u *User) GetProfilePicture() string {
	if u.ProfilePicture != nil {
		return *u.ProfilePicture
	}
	return ""
}

// PublicUser is the view of a user shown to other accounts.
type PublicUser struct {
	ID             string    `json:"user_id"`
	Username       *string   `json:"username,omitempty"`
	ProfilePicture *string   `json:"profile_picture,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:             u.ID,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
	}
}

// RefreshToken is a stored session. ExpiresAt is nil for guest sessions.
type RefreshToken struct {
	UserID    string
	TokenHash string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

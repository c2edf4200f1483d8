package api

import (
	"time"

	"github.com/bumothekid/clothing-booth-api-v2/internal/blob"
	"github.com/bumothekid/clothing-booth-api-v2/internal/mediaurl"
	"github.com/bumothekid/clothing-booth-api-v2/internal/models"
)

type UserResponse struct {
	ID                string     `json:"user_id"`
	IsGuest           bool       `json:"is_guest"`
	Username          *string    `json:"username"`
	Email             *string    `json:"email"`
	ProfilePictureURL string     `json:"profile_picture_url,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

type PublicUserResponse struct {
	ID                string    `json:"user_id"`
	Username          *string   `json:"username"`
	ProfilePictureURL string    `json:"profile_picture_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func userResponseFromModel(u *models.User, baseURL string) *UserResponse {
	return &UserResponse{
		ID:                u.ID,
		IsGuest:           u.IsGuest,
		Username:          u.Username,
		Email:             u.Email,
		ProfilePictureURL: profilePictureURL(baseURL, u.GetProfilePicture()),
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func publicUserResponseFromModel(u *models.PublicUser, baseURL string) *PublicUserResponse {
	picture := ""
	if u.ProfilePicture != nil {
		picture = *u.ProfilePicture
	}
	return &PublicUserResponse{
		ID:                u.ID,
		Username:          u.Username,
		ProfilePictureURL: profilePictureURL(baseURL, picture),
		CreatedAt:         u.CreatedAt,
	}
}

func profilePictureURL(baseURL, imageID string) string {
	return mediaurl.Image(baseURL, string(blob.AreaProfilePictures), imageID)
}

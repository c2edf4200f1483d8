package constants

import "time"

const (
	AccessTokenTTL        = time.Hour
	RefreshTokenTTL       = 90 * 24 * time.Hour
	MaxSessionsPerUser    = 5
	RefreshTokenBytes     = 32
	UploadMaxBytes        = 4 << 20
	ProfileUploadMaxBytes = 2 << 20
	ProfilePictureMaxEdge = 300

	UsernameMinLength        = 3
	UpgradeUsernameMaxLength = 20
	UsernameMaxLength        = 32
	PasswordMinLength        = 8
	EmailMaxLength           = 254

	NameMinLength        = 3
	NameMaxLength        = 50
	DescriptionMaxLength = 255

	DefaultPageLimit = 1000
	MaxPageLimit     = 1000
)

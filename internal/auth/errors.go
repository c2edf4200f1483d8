package auth

import (
	"github.com/bumothekid/clothing-booth-api-v2/internal/apperr"
	"github.com/bumothekid/clothing-booth-api-v2/internal/constants"
)

var (
	ErrCredentialsWrong    = apperr.New(apperr.KindUnauthorized, constants.ErrCodeCredentialsWrong, "The provided sign in credentials are wrong.")
	ErrTokenExpired        = apperr.New(apperr.KindUnauthorized, constants.ErrCodeTokenExpired, "The provided refresh token is expired.")
	ErrAccessTokenMissing  = apperr.New(apperr.KindValidation, constants.ErrCodeAccessTokenMissing, "The access_token is missing.")
	ErrAccessTokenInvalid  = apperr.New(apperr.KindUnauthorized, constants.ErrCodeAccessTokenInvalid, "Access token is invalid. Please refresh the token.")
	ErrRefreshTokenMissing = apperr.New(apperr.KindValidation, constants.ErrCodeRefreshTokenMissing, "The refresh_token is missing.")
	ErrRefreshTokenInvalid = apperr.New(apperr.KindUnauthorized, constants.ErrCodeRefreshTokenInvalid, "The provided refresh token is invalid.")
	ErrSignInNameMissing   = apperr.New(apperr.KindValidation, constants.ErrCodeSignInNameMissing, "Either an email or a username is required to sign in.")
	ErrPasswordMissing     = apperr.New(apperr.KindValidation, constants.ErrCodePasswordMissing, "The password is missing.")
)

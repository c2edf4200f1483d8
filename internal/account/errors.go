package account

import (
	"github.com/bumothekid/clothing-booth-api-v2/internal/apperr"
	"github.com/bumothekid/clothing-booth-api-v2/internal/constants"
)

var (
	ErrNameMissing            = apperr.New(apperr.KindValidation, constants.ErrCodeSignInNameMissing, "Either an email or a username is required.")
	ErrEmailInvalid           = apperr.New(apperr.KindValidation, constants.ErrCodeEmailInvalid, "The provided email is invalid.")
	ErrUsernameTooShort       = apperr.New(apperr.KindValidation, constants.ErrCodeUsernameTooShort, "The provided username is too short.")
	ErrUsernameTooLong        = apperr.New(apperr.KindValidation, constants.ErrCodeUsernameTooLong, "The provided username is too long.")
	ErrPasswordMissing        = apperr.New(apperr.KindValidation, constants.ErrCodePasswordMissing, "The password is missing.")
	ErrPasswordTooShort       = apperr.New(apperr.KindValidation, constants.ErrCodePasswordTooShort, "The provided password is too short.")
	ErrPasswordWrong          = apperr.New(apperr.KindUnauthorized, constants.ErrCodeCredentialsWrong, "The provided password is wrong.")
	ErrProfilePictureInvalid  = apperr.New(apperr.KindValidation, constants.ErrCodeProfilePictureInvalid, "The profile picture must be one of the default options.")
	ErrProfilePictureNotSet   = apperr.New(apperr.KindNotFound, constants.ErrCodeProfilePictureNotSet, "No custom profile picture is set.")
	ErrEmailInUse             = apperr.New(apperr.KindConflict, constants.ErrCodeEmailInUse, "The provided email is already in use.").WithKey("email")
	ErrUsernameInUse          = apperr.New(apperr.KindConflict, constants.ErrCodeUsernameInUse, "The provided username is already in use.").WithKey("username")
	ErrAccountAlreadyUpgraded = apperr.New(apperr.KindConflict, constants.ErrCodeAccountAlreadyUpgraded, "This account already has credentials.")
	ErrUserNotFound           = apperr.New(apperr.KindNotFound, constants.ErrCodeUserNotFound, "The requested user does not exist.")
)

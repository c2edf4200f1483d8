package constants

const (
	// Shared transport-agnostic errors
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// Authentication
	ErrCodeCredentialsWrong    = "CREDENTIALS_WRONG"
	ErrCodeTokenExpired        = "TOKEN_EXPIRED"
	ErrCodeAccessTokenMissing  = "ACCESS_TOKEN_MISSING"
	ErrCodeAccessTokenInvalid  = "ACCESS_TOKEN_INVALID"
	ErrCodeRefreshTokenMissing = "REFRESH_TOKEN_MISSING"
	ErrCodeRefreshTokenInvalid = "REFRESH_TOKEN_INVALID"

	// Accounts
	ErrCodeSignInNameMissing      = "SIGN_IN_NAME_MISSING"
	ErrCodeEmailInvalid           = "EMAIL_INVALID"
	ErrCodeUsernameTooShort       = "USERNAME_TOO_SHORT"
	ErrCodeUsernameTooLong        = "USERNAME_TOO_LONG"
	ErrCodePasswordMissing        = "PASSWORD_MISSING"
	ErrCodePasswordTooShort       = "PASSWORD_TOO_SHORT"
	ErrCodeProfilePictureInvalid  = "PROFILE_PICTURE_INVALID"
	ErrCodeProfilePictureNotSet   = "PROFILE_PICTURE_NOT_SET"
	ErrCodeEmailInUse             = "EMAIL_IN_USE"
	ErrCodeUsernameInUse          = "USERNAME_IN_USE"
	ErrCodeAccountAlreadyUpgraded = "ACCOUNT_ALREADY_UPGRADED"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"

	// Images
	ErrCodeUnsupportedFileType = "UNSUPPORTED_FILE_TYPE"
	ErrCodeFileTooLarge        = "FILE_TOO_LARGE"
	ErrCodeImageUnclear        = "IMAGE_UNCLEAR"
	ErrCodeImageNotFound       = "IMAGE_NOT_FOUND"
	ErrCodeInferenceTimeout    = "INFERENCE_TIMEOUT"

	// Clothing
	ErrCodeClothingNotFound           = "CLOTHING_NOT_FOUND"
	ErrCodeClothingIDMissing          = "CLOTHING_ID_MISSING"
	ErrCodeClothingNameInvalid        = "CLOTHING_NAME_INVALID"
	ErrCodeClothingCategoryInvalid    = "CLOTHING_CATEGORY_INVALID"
	ErrCodeClothingColorInvalid       = "CLOTHING_COLOR_INVALID"
	ErrCodeClothingImageMissing       = "CLOTHING_IMAGE_MISSING"
	ErrCodeClothingImageInvalid       = "CLOTHING_IMAGE_INVALID"
	ErrCodeClothingDescriptionTooLong = "CLOTHING_DESCRIPTION_TOO_LONG"
	ErrCodeSeasonInvalid              = "SEASON_INVALID"
	ErrCodeTagInvalid                 = "TAG_INVALID"
	ErrCodeLimitInvalid               = "LIMIT_INVALID"
	ErrCodeOffsetInvalid              = "OFFSET_INVALID"

	// Outfits
	ErrCodeOutfitNotFound           = "OUTFIT_NOT_FOUND"
	ErrCodeOutfitPermission         = "OUTFIT_PERMISSION"
	ErrCodeOutfitNameInvalid        = "OUTFIT_NAME_INVALID"
	ErrCodeOutfitDescriptionTooLong = "OUTFIT_DESCRIPTION_TOO_LONG"
	ErrCodeOutfitClothingIDsMissing = "OUTFIT_CLOTHING_IDS_MISSING"
	ErrCodeOutfitClothingIDInvalid  = "OUTFIT_CLOTHING_ID_INVALID"
	ErrCodeCollageInvalid           = "COLLAGE_INVALID"
)

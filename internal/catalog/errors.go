package catalog

import (
	"github.com/bumothekid/clothing-booth-api-v2/internal/apperr"
	"github.com/bumothekid/clothing-booth-api-v2/internal/constants"
)

var (
	ErrClothingNotFound         = apperr.New(apperr.KindNotFound, constants.ErrCodeClothingNotFound, "The requested clothing does not exist.")
	ErrClothingIDMissing        = apperr.New(apperr.KindValidation, constants.ErrCodeClothingIDMissing, "The clothing_id is missing.")
	ErrNameInvalid              = apperr.New(apperr.KindValidation, constants.ErrCodeClothingNameInvalid, "The name must be between 3 and 50 characters long.")
	ErrCategoryInvalid          = apperr.New(apperr.KindValidation, constants.ErrCodeClothingCategoryInvalid, "The provided category is invalid.")
	ErrColorInvalid             = apperr.New(apperr.KindValidation, constants.ErrCodeClothingColorInvalid, "The color must be a hex code like #A1B2C3.")
	ErrImageMissing             = apperr.New(apperr.KindValidation, constants.ErrCodeClothingImageMissing, "The image_id is missing.")
	ErrImageInvalid             = apperr.New(apperr.KindValidation, constants.ErrCodeClothingImageInvalid, "The provided image_id does not reference a staged image.")
	ErrImageClaimed             = apperr.New(apperr.KindConflict, constants.ErrCodeClothingImageInvalid, "The provided image_id is already in use.")
	ErrDescriptionTooLong       = apperr.New(apperr.KindValidation, constants.ErrCodeClothingDescriptionTooLong, "The description must be at most 255 characters long.")
	ErrSeasonInvalid            = apperr.New(apperr.KindValidation, constants.ErrCodeSeasonInvalid, "The provided season is invalid.")
	ErrTagInvalid               = apperr.New(apperr.KindValidation, constants.ErrCodeTagInvalid, "The provided tag is invalid.")
	ErrLimitInvalid             = apperr.New(apperr.KindValidation, constants.ErrCodeLimitInvalid, "The limit must be between 1 and 1000.")
	ErrOffsetInvalid            = apperr.New(apperr.KindValidation, constants.ErrCodeOffsetInvalid, "The offset must not be negative.")
	ErrOutfitNotFound           = apperr.New(apperr.KindNotFound, constants.ErrCodeOutfitNotFound, "The requested outfit does not exist.")
	ErrOutfitPermission         = apperr.New(apperr.KindPermission, constants.ErrCodeOutfitPermission, "You do not have permission to access this outfit.")
	ErrOutfitNameInvalid        = apperr.New(apperr.KindValidation, constants.ErrCodeOutfitNameInvalid, "The name must be between 3 and 50 characters long.")
	ErrOutfitDescriptionTooLong = apperr.New(apperr.KindValidation, constants.ErrCodeOutfitDescriptionTooLong, "The description must be at most 255 characters long.")
	ErrOutfitClothingIDsMissing = apperr.New(apperr.KindValidation, constants.ErrCodeOutfitClothingIDsMissing, "An outfit needs at least one clothing_id.")
	ErrOutfitClothingIDInvalid  = apperr.New(apperr.KindValidation, constants.ErrCodeOutfitClothingIDInvalid, "A clothing_id does not reference your clothing.")
	ErrCollagePlacementsWrong   = apperr.New(apperr.KindValidation, constants.ErrCodeCollageInvalid, "Every collage placement must reference clothing in the outfit.")
)

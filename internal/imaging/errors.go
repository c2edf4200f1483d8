package imaging

import (
	"time"

	"github.com/bumothekid/clothing-booth-api-v2/internal/apperr"
	"github.com/bumothekid/clothing-booth-api-v2/internal/constants"
)

var (
	ErrUnsupportedFileType = apperr.New(apperr.KindValidation, constants.ErrCodeUnsupportedFileType, "The provided file type is not supported. Use png, jpg or jpeg.")
	ErrFileTooLarge        = apperr.New(apperr.KindPayloadTooLarge, constants.ErrCodeFileTooLarge, "The provided file is too large.")
	ErrImageUnclear        = apperr.New(apperr.KindUnprocessable, constants.ErrCodeImageUnclear, "No clothing could be detected in the provided image.")
	ErrImageNotFound       = apperr.New(apperr.KindNotFound, constants.ErrCodeImageNotFound, "The provided image_id does not reference a staged image.")
	ErrInferenceTimeout    = apperr.New(apperr.KindUnavailable, constants.ErrCodeInferenceTimeout, "Image analysis took too long. Please try again.").
				WithRetryAfter(5 * time.Second)
	ErrCollageInvalid = apperr.New(apperr.KindValidation, constants.ErrCodeCollageInvalid, "The collage layout is invalid.")
)

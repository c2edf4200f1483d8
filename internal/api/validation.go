package api

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bumothekid/clothing-booth-api-v2/internal/apperr"
	"github.com/bumothekid/clothing-booth-api-v2/internal/constants"
)

var requestValidator = validator.New()

var errInvalidRequest = apperr.New(apperr.KindValidation, constants.ErrCodeInvalidRequest, "Invalid JSON body")

// decodeAndValidate reads exactly one JSON object into dst and runs its
// validate tags. Only shape checks live in tags; domain rules stay in the
// managers so their error codes reach the client.
func decodeAndValidate(body io.Reader, dst any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if isBodyTooLargeError(err) {
			return apperr.New(apperr.KindPayloadTooLarge, constants.ErrCodePayloadTooLarge, "Request body too large")
		}
		return errInvalidRequest
	}

	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errInvalidRequest
	}

	if err := requestValidator.Struct(dst); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
			first := validationErrors[0]
			field := strings.ToLower(first.Field())
			switch first.Tag() {
			case "required":
				return errInvalidRequest.WithMessagef("%s is required", field)
			case "max":
				return errInvalidRequest.WithMessagef("%s is too long", field)
			default:
				return errInvalidRequest.WithMessagef("invalid %s", field)
			}
		}
		return errInvalidRequest.WithMessage("invalid request payload")
	}

	return nil
}

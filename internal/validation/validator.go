package validation

import (
	validator "github.com/go-playground/validator/v10"
)

// NewValidator returns the validator used for all request payloads.
// Required-struct mode is enabled so that non-pointer nested structs with
// required fields are validated as well.
func NewValidator() (*validator.Validate, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate, nil
}

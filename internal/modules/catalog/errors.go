package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound indicates that no product has the given id.
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidVariantIndex indicates a variant index outside the product's variants.
	ErrInvalidVariantIndex = errors.New("invalid variant index")

	// ErrMalformedVariants indicates the variants payload is not a JSON array of variants.
	ErrMalformedVariants = errors.New("invalid variants JSON")
)

// ValidationError reports a single field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for intent validation.
var (
	ErrUnknownIntentKind       = errors.New("unknown intent kind")
	ErrMissingAggregationType  = errors.New("aggregation type is required")
	ErrMissingAggregationField = errors.New("aggregation requires a field or canonical_field")
	ErrMissingComparisonSpec   = errors.New("comparison spec is required")
)

// ErrMissingQuestion indicates an ask request without question text.
var ErrMissingQuestion = errors.New("question is required")

// ErrUnknownAPIKey indicates an API key with no matching tenant.
var ErrUnknownAPIKey = errors.New("unknown API key")

// Sentinel errors for canonical field mappings.
var (
	ErrMissingCanonicalName = errors.New("canonical_name is required")
	ErrMissingFieldMappings = errors.New("field_mappings must not be empty")
	ErrEmptyFieldMapping    = errors.New("field_mappings keys and values must not be empty")
	ErrEmptyAlias           = errors.New("aliases must not be empty strings")
	ErrMappingNotFound      = errors.New("canonical field mapping not found")
	ErrSystemMapping        = errors.New("system mappings cannot be deleted")
	ErrNameTaken            = errors.New("canonical name or alias already in use")
)

// ErrDuplicateKey indicates a unique constraint violation (maps to HTTP 409 Conflict).
var ErrDuplicateKey = errors.New("duplicate key")

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%s exceeds maximum length of %d", field, maxLen)
}

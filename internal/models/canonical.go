package models

import (
	"strings"
	"time"
)

// CanonicalFieldMapping binds one semantic field name (plus aliases) to the
// actual extracted field name in each document template, so aggregations can
// span templates that disagree on naming.
type CanonicalFieldMapping struct {
	ID              string            `json:"id"`
	TenantID        string            `json:"-"`
	CanonicalName   string            `json:"canonical_name"`
	FieldMappings   map[string]string `json:"field_mappings"`
	AggregationType string            `json:"aggregation_type"`
	Aliases         []string          `json:"aliases,omitempty"`
	IsSystem        bool              `json:"is_system"`
	IsActive        bool              `json:"is_active"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Names returns the canonical name plus all aliases, lowercased.
func (m *CanonicalFieldMapping) Names() []string {
	names := make([]string, 0, len(m.Aliases)+1)
	names = append(names, strings.ToLower(m.CanonicalName))
	for _, a := range m.Aliases {
		names = append(names, strings.ToLower(a))
	}
	return names
}

// CreateCanonicalFieldRequest is the payload for registering a mapping.
type CreateCanonicalFieldRequest struct {
	CanonicalName   string            `json:"canonical_name"`
	FieldMappings   map[string]string `json:"field_mappings"`
	AggregationType string            `json:"aggregation_type"`
	Aliases         []string          `json:"aliases,omitempty"`
}

// Validate checks CreateCanonicalFieldRequest fields.
func (r *CreateCanonicalFieldRequest) Validate() error {
	if r.CanonicalName == "" {
		return ErrMissingCanonicalName
	}

	if len(r.CanonicalName) > 100 {
		return ErrFieldTooLong("canonical_name", 100)
	}

	if len(r.FieldMappings) == 0 {
		return ErrMissingFieldMappings
	}

	for template, field := range r.FieldMappings {
		if template == "" || field == "" {
			return ErrEmptyFieldMapping
		}
	}

	if r.AggregationType == "" {
		r.AggregationType = AggSum
	}

	for _, a := range r.Aliases {
		if a == "" {
			return ErrEmptyAlias
		}
		if len(a) > 100 {
			return ErrFieldTooLong("alias", 100)
		}
	}

	return nil
}

// UpdateCanonicalFieldRequest is the payload for editing a mapping. Nil
// fields are left unchanged. System mappings accept only alias and field
// mapping extensions.
type UpdateCanonicalFieldRequest struct {
	FieldMappings   map[string]string `json:"field_mappings,omitempty"`
	AggregationType *string           `json:"aggregation_type,omitempty"`
	Aliases         []string          `json:"aliases,omitempty"`
	IsActive        *bool             `json:"is_active,omitempty"`
}

// Validate checks UpdateCanonicalFieldRequest fields.
func (r *UpdateCanonicalFieldRequest) Validate() error {
	for template, field := range r.FieldMappings {
		if template == "" || field == "" {
			return ErrEmptyFieldMapping
		}
	}

	if r.AggregationType != nil && *r.AggregationType == "" {
		return ErrMissingAggregationType
	}

	for _, a := range r.Aliases {
		if a == "" {
			return ErrEmptyAlias
		}
	}

	return nil
}

package client

import (
	"context"
	"fmt"
)

// CanonicalFieldService manages canonical field mappings.
type CanonicalFieldService struct {
	c *Client
}

// canonicalListResponse wraps the list endpoint payload.
type canonicalListResponse struct {
	CanonicalFields []CanonicalField `json:"canonical_fields"`
	Total           int              `json:"total"`
}

// List returns all active canonical field mappings visible to the tenant,
// system mappings included.
func (s *CanonicalFieldService) List(ctx context.Context) ([]CanonicalField, error) {
	var resp canonicalListResponse
	if err := s.c.get(ctx, "/api/v1/canonical-fields", nil, &resp); err != nil {
		return nil, err
	}
	return resp.CanonicalFields, nil
}

// Create adds a new canonical field mapping.
func (s *CanonicalFieldService) Create(ctx context.Context, req CreateCanonicalFieldRequest) (*CanonicalField, error) {
	var created CanonicalField
	if err := s.c.post(ctx, "/api/v1/canonical-fields", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update modifies an existing canonical field mapping.
func (s *CanonicalFieldService) Update(ctx context.Context, id string, req UpdateCanonicalFieldRequest) (*CanonicalField, error) {
	var updated CanonicalField
	if err := s.c.put(ctx, fmt.Sprintf("/api/v1/canonical-fields/%s", id), req, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a canonical field mapping. System mappings cannot be deleted.
func (s *CanonicalFieldService) Delete(ctx context.Context, id string) error {
	return s.c.del(ctx, fmt.Sprintf("/api/v1/canonical-fields/%s", id), nil, nil)
}

// Refresh forces the server to reload the tenant's canonical field registry.
func (s *CanonicalFieldService) Refresh(ctx context.Context) error {
	return s.c.post(ctx, "/api/v1/canonical-fields/refresh", nil, nil)
}

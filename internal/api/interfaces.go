package api

import (
	"context"

	"github.com/doclens/doclens/internal/models"
)

// AskRunner answers natural-language questions; implemented by service.AskService.
type AskRunner interface {
	Ask(ctx context.Context, tenantID string, req models.AskRequest) (*models.Answer, error)
}

// CanonicalRepository defines canonical field mapping operations used by
// CanonicalHandler; implemented by canonical.Resolver.
type CanonicalRepository interface {
	List(ctx context.Context, tenantID string) ([]models.CanonicalFieldMapping, error)
	Create(ctx context.Context, tenantID string, req models.CreateCanonicalFieldRequest) (*models.CanonicalFieldMapping, error)
	Update(ctx context.Context, tenantID, id string, req models.UpdateCanonicalFieldRequest) (*models.CanonicalFieldMapping, error)
	Delete(ctx context.Context, tenantID, id string) error
	Refresh(ctx context.Context, tenantID string) error
}

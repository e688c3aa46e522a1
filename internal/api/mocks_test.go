package api_test

import (
	"context"

	"github.com/doclens/doclens/internal/models"
)

// mockAskRunner implements api.AskRunner for testing.
type mockAskRunner struct {
	askFn func(ctx context.Context, tenantID string, req models.AskRequest) (*models.Answer, error)
}

func (m *mockAskRunner) Ask(ctx context.Context, tenantID string, req models.AskRequest) (*models.Answer, error) {
	return m.askFn(ctx, tenantID, req)
}

// mockCanonicalRepo implements api.CanonicalRepository for testing.
type mockCanonicalRepo struct {
	listFn    func(ctx context.Context, tenantID string) ([]models.CanonicalFieldMapping, error)
	createFn  func(ctx context.Context, tenantID string, req models.CreateCanonicalFieldRequest) (*models.CanonicalFieldMapping, error)
	updateFn  func(ctx context.Context, tenantID, id string, req models.UpdateCanonicalFieldRequest) (*models.CanonicalFieldMapping, error)
	deleteFn  func(ctx context.Context, tenantID, id string) error
	refreshFn func(ctx context.Context, tenantID string) error
}

func (m *mockCanonicalRepo) List(ctx context.Context, tenantID string) ([]models.CanonicalFieldMapping, error) {
	return m.listFn(ctx, tenantID)
}

func (m *mockCanonicalRepo) Create(ctx context.Context, tenantID string, req models.CreateCanonicalFieldRequest) (*models.CanonicalFieldMapping, error) {
	return m.createFn(ctx, tenantID, req)
}

func (m *mockCanonicalRepo) Update(ctx context.Context, tenantID, id string, req models.UpdateCanonicalFieldRequest) (*models.CanonicalFieldMapping, error) {
	return m.updateFn(ctx, tenantID, id, req)
}

func (m *mockCanonicalRepo) Delete(ctx context.Context, tenantID, id string) error {
	return m.deleteFn(ctx, tenantID, id)
}

func (m *mockCanonicalRepo) Refresh(ctx context.Context, tenantID string) error {
	return m.refreshFn(ctx, tenantID)
}

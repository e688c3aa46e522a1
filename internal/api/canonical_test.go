package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/doclens/doclens/internal/api"
	"github.com/doclens/doclens/internal/models"
)

func TestCanonicalList_OK(t *testing.T) {
	t.Parallel()

	repo := &mockCanonicalRepo{
		listFn: func(_ context.Context, _ string) ([]models.CanonicalFieldMapping, error) {
			return []models.CanonicalFieldMapping{
				{ID: "m1", CanonicalName: "revenue", IsSystem: true},
				{ID: "m2", CanonicalName: "shipping_cost"},
			}, nil
		},
	}

	r := newTestRouter()
	h := api.NewCanonicalHandler(repo, testLogger())
	r.GET("/canonical-fields", h.List)

	w := doRequest(r, http.MethodGet, "/canonical-fields", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		CanonicalFields []models.CanonicalFieldMapping `json:"canonical_fields"`
		Total           int                            `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if body.Total != 2 {
		t.Errorf("expected total 2, got %d", body.Total)
	}
}

func TestCanonicalCreate_Valid(t *testing.T) {
	t.Parallel()

	repo := &mockCanonicalRepo{
		createFn: func(_ context.Context, _ string, req models.CreateCanonicalFieldRequest) (*models.CanonicalFieldMapping, error) {
			return &models.CanonicalFieldMapping{
				ID:              "m1",
				CanonicalName:   req.CanonicalName,
				FieldMappings:   req.FieldMappings,
				AggregationType: req.AggregationType,
				CreatedAt:       time.Now(),
				UpdatedAt:       time.Now(),
			}, nil
		},
	}

	r := newTestRouter()
	h := api.NewCanonicalHandler(repo, testLogger())
	r.POST("/canonical-fields", h.Create)

	w := doRequest(r, http.MethodPost, "/canonical-fields",
		`{"canonical_name":"shipping_cost","field_mappings":{"invoice":"freight_total"},"aggregation_type":"sum"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var mapping models.CanonicalFieldMapping
	if err := json.Unmarshal(w.Body.Bytes(), &mapping); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if mapping.CanonicalName != "shipping_cost" {
		t.Errorf("expected canonical name 'shipping_cost', got %q", mapping.CanonicalName)
	}
}

func TestCanonicalCreate_MissingName(t *testing.T) {
	t.Parallel()

	repo := &mockCanonicalRepo{
		createFn: func(_ context.Context, _ string, _ models.CreateCanonicalFieldRequest) (*models.CanonicalFieldMapping, error) {
			return nil, models.ErrMissingCanonicalName
		},
	}

	r := newTestRouter()
	h := api.NewCanonicalHandler(repo, testLogger())
	r.POST("/canonical-fields", h.Create)

	w := doRequest(r, http.MethodPost, "/canonical-fields", `{"field_mappings":{"invoice":"freight_total"}}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCanonicalCreate_NameTaken(t *testing.T) {
	t.Parallel()

	repo := &mockCanonicalRepo{
		createFn: func(_ context.Context, _ string, _ models.CreateCanonicalFieldRequest) (*models.CanonicalFieldMapping, error) {
			return nil, models.ErrNameTaken
		},
	}

	r := newTestRouter()
	h := api.NewCanonicalHandler(repo, testLogger())
	r.POST("/canonical-fields", h.Create)

	w := doRequest(r, http.MethodPost, "/canonical-fields",
		`{"canonical_name":"revenue","field_mappings":{"invoice":"total"},"aggregation_type":"sum"}`)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCanonicalUpdate_NotFound(t *testing.T) {
	t.Parallel()

	repo := &mockCanonicalRepo{
		updateFn: func(_ context.Context, _, _ string, _ models.UpdateCanonicalFieldRequest) (*models.CanonicalFieldMapping, error) {
			return nil, models.ErrMappingNotFound
		},
	}

	r := newTestRouter()
	h := api.NewCanonicalHandler(repo, testLogger())
	r.PUT("/canonical-fields/:id", h.Update)

	w := doRequest(r, http.MethodPut, "/canonical-fields/missing", `{"aliases":["freight"]}`)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCanonicalDelete_OK(t *testing.T) {
	t.Parallel()

	deleted := ""
	repo := &mockCanonicalRepo{
		deleteFn: func(_ context.Context, _, id string) error {
			deleted = id

			return nil
		},
	}

	r := newTestRouter()
	h := api.NewCanonicalHandler(repo, testLogger())
	r.DELETE("/canonical-fields/:id", h.Delete)

	w := doRequest(r, http.MethodDelete, "/canonical-fields/m1", "")

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}

	if deleted != "m1" {
		t.Errorf("expected delete of 'm1', got %q", deleted)
	}
}

func TestCanonicalDelete_SystemMapping(t *testing.T) {
	t.Parallel()

	repo := &mockCanonicalRepo{
		deleteFn: func(_ context.Context, _, _ string) error {
			return models.ErrSystemMapping
		},
	}

	r := newTestRouter()
	h := api.NewCanonicalHandler(repo, testLogger())
	r.DELETE("/canonical-fields/:id", h.Delete)

	w := doRequest(r, http.MethodDelete, "/canonical-fields/sys1", "")

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCanonicalRefresh_OK(t *testing.T) {
	t.Parallel()

	refreshed := false
	repo := &mockCanonicalRepo{
		refreshFn: func(_ context.Context, _ string) error {
			refreshed = true

			return nil
		},
	}

	r := newTestRouter()
	h := api.NewCanonicalHandler(repo, testLogger())
	r.POST("/canonical-fields/refresh", h.Refresh)

	w := doRequest(r, http.MethodPost, "/canonical-fields/refresh", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if !refreshed {
		t.Error("expected refresh to be called")
	}
}

package aggregate

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/doclens/doclens/internal/models"
)

// mockDocumentStore records calls and returns configured responses.
type mockDocumentStore struct {
	mu    sync.Mutex
	calls []string

	search      func(ctx context.Context, tenantID string, query models.QueryNode, filters models.SearchFilters, page, size int) ([]models.Document, int, error)
	fieldValues func(ctx context.Context, tenantID string, fields []string, filters models.SearchFilters) ([]models.FieldValue, error)
}

func (m *mockDocumentStore) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockDocumentStore) Search(
	ctx context.Context, tenantID string, query models.QueryNode, filters models.SearchFilters, page, size int,
) ([]models.Document, int, error) {
	m.record("Search")
	return m.search(ctx, tenantID, query, filters, page, size)
}

func (m *mockDocumentStore) FieldValues(
	ctx context.Context, tenantID string, fields []string, filters models.SearchFilters,
) ([]models.FieldValue, error) {
	m.record("FieldValues")
	return m.fieldValues(ctx, tenantID, fields, filters)
}

// mockResolver resolves canonical fields from a static table.
type mockResolver struct {
	mappings map[string][]string
}

func (m *mockResolver) Resolve(_ context.Context, _, name string) (string, error) {
	if _, ok := m.mappings[name]; ok {
		return name, nil
	}
	return "", nil
}

func (m *mockResolver) FieldsFor(_ context.Context, _, name string) ([]string, error) {
	return m.mappings[name], nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

// valuesStore builds a store that serves the given field values, filtered to
// the requested field names.
func valuesStore(values []models.FieldValue) *mockDocumentStore {
	return &mockDocumentStore{
		fieldValues: func(_ context.Context, _ string, fields []string, _ models.SearchFilters) ([]models.FieldValue, error) {
			want := map[string]struct{}{}
			for _, f := range fields {
				want[f] = struct{}{}
			}
			var out []models.FieldValue
			for _, v := range values {
				if _, ok := want[v.Field]; ok {
					out = append(out, v)
				}
			}
			return out, nil
		},
		search: func(_ context.Context, _ string, _ models.QueryNode, _ models.SearchFilters, _, _ int) ([]models.Document, int, error) {
			return nil, len(values), nil
		},
	}
}

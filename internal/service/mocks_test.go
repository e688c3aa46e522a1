package service

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/doclens/doclens/internal/models"
)

type mockTranslator struct {
	translateFunc func(ctx context.Context, tenantID, question string, availableFields []string) (*models.QueryIntent, error)
	questions     []string
}

func (m *mockTranslator) Translate(ctx context.Context, tenantID, question string, availableFields []string) (*models.QueryIntent, error) {
	m.questions = append(m.questions, question)
	return m.translateFunc(ctx, tenantID, question, availableFields)
}

type mockSearcher struct {
	searchFunc     func(ctx context.Context, tenantID string, query models.QueryNode, filters models.SearchFilters, page, size int) ([]models.Document, int, error)
	fieldNamesFunc func(ctx context.Context, tenantID string) ([]string, error)
	searchCalls    int
}

func (m *mockSearcher) Search(ctx context.Context, tenantID string, query models.QueryNode, filters models.SearchFilters, page, size int) ([]models.Document, int, error) {
	m.searchCalls++
	if m.searchFunc == nil {
		return nil, 0, nil
	}
	return m.searchFunc(ctx, tenantID, query, filters, page, size)
}

func (m *mockSearcher) FieldNames(ctx context.Context, tenantID string) ([]string, error) {
	if m.fieldNamesFunc == nil {
		return []string{"vendor_name", "invoice_total"}, nil
	}
	return m.fieldNamesFunc(ctx, tenantID)
}

type mockAggregator struct {
	aggregateFunc func(ctx context.Context, tenantID string, spec models.AggregationSpec, filters models.SearchFilters) (*models.AggregationResult, error)
}

func (m *mockAggregator) Aggregate(ctx context.Context, tenantID string, spec models.AggregationSpec, filters models.SearchFilters) (*models.AggregationResult, error) {
	return m.aggregateFunc(ctx, tenantID, spec, filters)
}

type mockComparer struct {
	periodsFunc func(ctx context.Context, tenantID string, spec models.ComparisonSpec, filters models.SearchFilters) (*models.ComparisonResult, error)
	groupsFunc  func(ctx context.Context, tenantID string, spec models.ComparisonSpec, filters models.SearchFilters) (*models.ComparisonResult, error)
}

func (m *mockComparer) ComparePeriods(ctx context.Context, tenantID string, spec models.ComparisonSpec, filters models.SearchFilters) (*models.ComparisonResult, error) {
	return m.periodsFunc(ctx, tenantID, spec, filters)
}

func (m *mockComparer) CompareGroups(ctx context.Context, tenantID string, spec models.ComparisonSpec, filters models.SearchFilters) (*models.ComparisonResult, error) {
	return m.groupsFunc(ctx, tenantID, spec, filters)
}

type mockAuditSource struct {
	items []models.LowConfidenceField
	err   error
}

func (m *mockAuditSource) LowConfidenceFields(_ context.Context, _ string, _ []string, _ float64) ([]models.LowConfidenceField, error) {
	return m.items, m.err
}

// mapCache is a plain map-backed AnswerCache for orchestration tests.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]*models.Answer
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]*models.Answer)}
}

func (c *mapCache) Get(_ context.Context, key string) (*models.Answer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.entries[key]
	return a, ok
}

func (c *mapCache) Set(_ context.Context, key string, answer *models.Answer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = answer
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func searchIntent(field, value string) *models.QueryIntent {
	return &models.QueryIntent{
		Kind: models.IntentSearch,
		StructuredQuery: models.QueryNode{
			Kind:  models.KindMatch,
			Field: field,
			Value: value,
		},
	}
}

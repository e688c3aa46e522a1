package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/doclens/doclens/internal/aggregate"
	"github.com/doclens/doclens/internal/cache"
	"github.com/doclens/doclens/internal/lineage"
	"github.com/doclens/doclens/internal/metrics"
	"github.com/doclens/doclens/internal/models"
)

// QueryTranslator turns a free-text question into a validated intent.
type QueryTranslator interface {
	Translate(ctx context.Context, tenantID, question string, availableFields []string) (*models.QueryIntent, error)
}

// DocumentSearcher defines the document store methods AskService depends on.
type DocumentSearcher interface {
	Search(ctx context.Context, tenantID string, query models.QueryNode, filters models.SearchFilters, page, size int) ([]models.Document, int, error)
	FieldNames(ctx context.Context, tenantID string) ([]string, error)
}

// Aggregator executes one aggregation spec over the document corpus.
type Aggregator interface {
	Aggregate(ctx context.Context, tenantID string, spec models.AggregationSpec, filters models.SearchFilters) (*models.AggregationResult, error)
}

// Comparer runs both sides of a two-sided comparison.
type Comparer interface {
	ComparePeriods(ctx context.Context, tenantID string, spec models.ComparisonSpec, filters models.SearchFilters) (*models.ComparisonResult, error)
	CompareGroups(ctx context.Context, tenantID string, spec models.ComparisonSpec, filters models.SearchFilters) (*models.ComparisonResult, error)
}

// AuditSource supplies the extracted fields whose confidence fell below the
// configured threshold, for the documents an answer actually returned.
type AuditSource interface {
	LowConfidenceFields(ctx context.Context, tenantID string, documentIDs []string, threshold float64) ([]models.LowConfidenceField, error)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AskService orchestrates one question end to end: translation, execution,
// lineage, audit annotation and caching.
type AskService struct {
	translator QueryTranslator
	searcher   DocumentSearcher
	aggregator Aggregator
	comparer   Comparer
	audit      AuditSource
	answers    cache.AnswerCache
	threshold  float64
	log        *logrus.Logger
}

// NewAskService creates an AskService.
func NewAskService(
	translator QueryTranslator, searcher DocumentSearcher, aggregator Aggregator,
	comparer Comparer, audit AuditSource, answers cache.AnswerCache,
	lowConfidenceThreshold float64, log *logrus.Logger,
) *AskService {
	return &AskService{
		translator: translator,
		searcher:   searcher,
		aggregator: aggregator,
		comparer:   comparer,
		audit:      audit,
		answers:    answers,
		threshold:  lowConfidenceThreshold,
		log:        log,
	}
}

// Ask answers one question. A zero-result search is retried exactly once with
// a synonym-expanded question before the empty answer is returned; the answer
// reports the retry either way. Aggregations and comparisons never carry audit
// items but are cached like any other answer.
func (s *AskService) Ask(ctx context.Context, tenantID string, req models.AskRequest) (*models.Answer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := cache.Key(tenantID, req.Question, req.Filters, req.DocumentIDs)
	if cached, ok := s.answers.Get(ctx, key); ok {
		hit := *cached
		hit.CacheHit = true
		return &hit, nil
	}

	availableFields, err := s.searcher.FieldNames(ctx, tenantID)
	if err != nil {
		s.log.WithError(err).Warn("listing field names for translation prompt")
		availableFields = nil
	}

	intent, err := s.translator.Translate(ctx, tenantID, req.Question, availableFields)
	if err != nil {
		return nil, err
	}

	answer, err := s.execute(ctx, tenantID, req, intent)
	if err != nil {
		return nil, err
	}

	if intent.Kind == models.IntentSearch && answer.Total == 0 {
		if expanded, ok := expandSynonyms(req.Question); ok {
			answer.ExpansionAttempted = true
			metrics.ExpansionRetries.Inc()

			if retried := s.retryExpanded(ctx, tenantID, req, expanded, availableFields); retried != nil {
				retried.ExpansionAttempted = true
				answer = retried
			}
		}
	}

	answer.Question = req.Question
	s.answers.Set(ctx, key, answer)

	return answer, nil
}

// retryExpanded re-runs translation and search with the expanded question.
// Any failure, or a second empty result, leaves the original answer standing.
func (s *AskService) retryExpanded(
	ctx context.Context, tenantID string, req models.AskRequest, expanded string, availableFields []string,
) *models.Answer {
	intent, err := s.translator.Translate(ctx, tenantID, expanded, availableFields)
	if err != nil {
		s.log.WithError(err).WithField("expanded", expanded).Warn("synonym retry translation failed")
		return nil
	}

	answer, err := s.execute(ctx, tenantID, req, intent)
	if err != nil {
		s.log.WithError(err).WithField("expanded", expanded).Warn("synonym retry execution failed")
		return nil
	}
	if answer.Total == 0 {
		return nil
	}

	s.log.WithFields(logrus.Fields{"expanded": expanded, "total": answer.Total}).
		Info("synonym expansion recovered results")

	return answer
}

func (s *AskService) execute(
	ctx context.Context, tenantID string, req models.AskRequest, intent *models.QueryIntent,
) (*models.Answer, error) {
	filters := buildFilters(intent.Filters, req)

	answer := &models.Answer{
		Intent:       intent.Kind,
		FieldLineage: lineage.Extract(intent.StructuredQuery),
	}

	switch intent.Kind {
	case models.IntentAggregation:
		result, err := s.aggregator.Aggregate(ctx, tenantID, *intent.Aggregation, filters)
		if errors.Is(err, aggregate.ErrInvalidSpec) {
			s.log.WithError(err).Warn("unexecutable aggregation spec, answering with plain search")
			answer.Intent = models.IntentSearch
			return s.runSearch(ctx, tenantID, req, intent, filters, answer)
		}
		if err != nil {
			return nil, err
		}

		answer.AggregationResult = result
		return answer, nil

	case models.IntentComparison:
		result, err := s.runComparison(ctx, tenantID, *intent.Comparison, filters)
		if errors.Is(err, aggregate.ErrInvalidSpec) {
			s.log.WithError(err).Warn("unexecutable comparison spec, answering with plain search")
			answer.Intent = models.IntentSearch
			return s.runSearch(ctx, tenantID, req, intent, filters, answer)
		}
		if err != nil {
			return nil, err
		}

		answer.ComparisonResult = result
		return answer, nil

	default:
		return s.runSearch(ctx, tenantID, req, intent, filters, answer)
	}
}

func (s *AskService) runSearch(
	ctx context.Context, tenantID string, req models.AskRequest,
	intent *models.QueryIntent, filters models.SearchFilters, answer *models.Answer,
) (*models.Answer, error) {
	page, size := pagination(req)

	docs, total, err := s.searcher.Search(ctx, tenantID, intent.StructuredQuery, filters, page, size)
	if err != nil {
		return nil, fmt.Errorf("document search: %w", err)
	}

	answer.Documents = docs
	answer.Total = total
	s.annotateAudit(ctx, tenantID, answer, docs)

	return answer, nil
}

// annotateAudit attaches the low-confidence fields that contributed to the
// answer. Best-effort: a failing audit lookup degrades to an unannotated
// answer rather than failing the request.
func (s *AskService) annotateAudit(ctx context.Context, tenantID string, answer *models.Answer, docs []models.Document) {
	if len(docs) == 0 {
		return
	}

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}

	items, err := s.audit.LowConfidenceFields(ctx, tenantID, ids, s.threshold)
	if err != nil {
		s.log.WithError(err).Warn("loading low-confidence fields, returning answer unannotated")
		return
	}

	filtered, filteredCount, totalCount := lineage.FilterAuditItems(answer.FieldLineage, items)
	answer.AuditItems = filtered
	answer.AuditItemsFilteredCount = filteredCount
	answer.AuditItemsTotalCount = totalCount
}

func (s *AskService) runComparison(
	ctx context.Context, tenantID string, spec models.ComparisonSpec, filters models.SearchFilters,
) (*models.ComparisonResult, error) {
	mode := spec.Mode
	if mode == "" {
		switch {
		case spec.Period1 != nil && spec.Period2 != nil:
			mode = models.ComparePeriods
		case spec.GroupField != "":
			mode = models.CompareGroups
		}
	}

	switch mode {
	case models.ComparePeriods:
		return s.comparer.ComparePeriods(ctx, tenantID, spec, filters)
	case models.CompareGroups:
		return s.comparer.CompareGroups(ctx, tenantID, spec, filters)
	default:
		return nil, fmt.Errorf("%w: unknown comparison mode %q", aggregate.ErrInvalidSpec, spec.Mode)
	}
}

// buildFilters folds the intent's derived filters and the request's explicit
// ones into one SearchFilters. Explicit request filters win on conflict.
func buildFilters(intentFilters map[string]any, req models.AskRequest) models.SearchFilters {
	var f models.SearchFilters

	applyFilterMap(&f, intentFilters)
	applyFilterMap(&f, req.Filters)

	if len(req.DocumentIDs) > 0 {
		f.DocumentIDs = req.DocumentIDs
	}

	return f
}

func applyFilterMap(f *models.SearchFilters, m map[string]any) {
	for k, v := range m {
		if v == nil {
			continue
		}

		switch k {
		case "template_name":
			if s, ok := v.(string); ok && s != "" {
				f.TemplateName = s
			}
		case "date_from":
			if t, ok := toFilterTime(v); ok {
				f.DateFrom = &t
			}
		case "date_to":
			if t, ok := toFilterTime(v); ok {
				f.DateTo = &t
			}
		default:
			if f.FieldEquals == nil {
				f.FieldEquals = make(map[string]any)
			}
			f.FieldEquals[k] = v
		}
	}
}

func toFilterTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func pagination(req models.AskRequest) (page, size int) {
	page = req.Page
	if page < 1 {
		page = 1
	}

	size = req.Size
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	return page, size
}

// Package aggregate computes aggregations and comparisons over document
// field values. The document store supplies raw (document, field, value)
// tuples; all aggregation math — cross-template merging, bucketing,
// zero-fill, percentile interpolation — lives here.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/doclens/doclens/internal/metrics"
	"github.com/doclens/doclens/internal/models"
)

// DocumentStore defines the data access methods the engine depends on.
type DocumentStore interface {
	Search(ctx context.Context, tenantID string, query models.QueryNode, filters models.SearchFilters, page, size int) ([]models.Document, int, error)
	FieldValues(ctx context.Context, tenantID string, fields []string, filters models.SearchFilters) ([]models.FieldValue, error)
}

// CanonicalResolver resolves semantic field names to per-template fields.
type CanonicalResolver interface {
	Resolve(ctx context.Context, tenantID, nameOrAlias string) (string, error)
	FieldsFor(ctx context.Context, tenantID, nameOrAlias string) ([]string, error)
}

// ErrInvalidSpec marks an aggregation spec that cannot be executed. Callers
// fall back to plain search instead of failing the request.
var ErrInvalidSpec = errors.New("invalid aggregation spec")

// defaultTermsSize is the bucket count for terms aggregations when the spec
// does not set one.
const defaultTermsSize = 10

// Engine executes aggregation specs against the document store.
type Engine struct {
	store    DocumentStore
	resolver CanonicalResolver
	log      *logrus.Logger
}

// NewEngine creates an aggregation Engine.
func NewEngine(store DocumentStore, resolver CanonicalResolver, log *logrus.Logger) *Engine {
	return &Engine{store: store, resolver: resolver, log: log}
}

// ValidateSpec checks that a spec is executable: a type must be present, and
// every type except count needs a field or canonical_field. A nil error means
// Aggregate will not reject the spec.
func ValidateSpec(spec *models.AggregationSpec) error {
	if spec == nil || spec.Type == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidSpec)
	}

	if spec.Type != models.AggCount && spec.Field == "" && spec.CanonicalField == "" {
		return fmt.Errorf("%w: type %q requires a field or canonical_field", ErrInvalidSpec, spec.Type)
	}

	return nil
}

// Aggregate executes the spec over the filtered document set and returns a
// typed result. Canonical fields expand to the union of per-template fields;
// an unknown type degrades to stats with a logged warning rather than
// failing.
func (e *Engine) Aggregate(
	ctx context.Context, tenantID string, spec models.AggregationSpec, filters models.SearchFilters,
) (*models.AggregationResult, error) {
	if err := ValidateSpec(&spec); err != nil {
		return nil, err
	}

	fields, err := e.resolveFields(ctx, tenantID, &spec)
	if err != nil {
		return nil, err
	}

	metrics.AggregationsTotal.WithLabelValues(spec.Type).Inc()

	// Plain document count needs no field values.
	if spec.Type == models.AggCount && len(fields) == 0 {
		_, total, err := e.store.Search(ctx, tenantID, models.QueryNode{}, filters, 1, 0)
		if err != nil {
			return nil, fmt.Errorf("counting documents: %w", err)
		}
		count := int64(total)
		return &models.AggregationResult{Type: models.AggCount, Cardinality: &count}, nil
	}

	values, err := e.store.FieldValues(ctx, tenantID, fields, filters)
	if err != nil {
		return nil, fmt.Errorf("loading field values: %w", err)
	}

	switch spec.Type {
	case models.AggStats, models.AggSum, models.AggAvg, models.AggMin, models.AggMax:
		return statsResult(spec.Type, values), nil
	case models.AggCount:
		return countResult(values), nil
	case models.AggTerms:
		return termsResult(&spec, values), nil
	case models.AggCardinality:
		return cardinalityResult(values), nil
	case models.AggDateHistogram:
		return dateHistogramResult(&spec, values)
	case models.AggRange:
		return rangeResult(&spec, values), nil
	case models.AggPercentiles:
		return percentilesResult(&spec, values), nil
	default:
		// Documented incorrect-input policy: never crash on an unknown
		// type, compute stats and log it.
		e.log.WithFields(logrus.Fields{
			"tenant_id": tenantID,
			"agg_type":  spec.Type,
		}).Warn("unknown aggregation type, defaulting to stats")

		return statsResult(models.AggStats, values), nil
	}
}

// resolveFields expands the spec's target into concrete field names. A
// canonical field that does not resolve is treated as a literal field name.
func (e *Engine) resolveFields(
	ctx context.Context, tenantID string, spec *models.AggregationSpec,
) ([]string, error) {
	if spec.CanonicalField != "" {
		fields, err := e.resolver.FieldsFor(ctx, tenantID, spec.CanonicalField)
		if err != nil {
			return nil, fmt.Errorf("resolving canonical field %q: %w", spec.CanonicalField, err)
		}

		if len(fields) > 0 {
			return fields, nil
		}

		e.log.WithField("canonical_field", spec.CanonicalField).
			Debug("canonical field unknown, using it as a literal field")

		return []string{spec.CanonicalField}, nil
	}

	if spec.Field != "" {
		return []string{spec.Field}, nil
	}

	return nil, nil
}

// countResult counts values that are present, whatever their type. A text
// field counts every document that carries it; only explicit nulls are
// skipped.
func countResult(values []models.FieldValue) *models.AggregationResult {
	var count int64
	for _, v := range values {
		if v.Value == nil {
			continue
		}
		count++
	}
	return &models.AggregationResult{Type: models.AggCount, Cardinality: &count}
}

// statsResult folds numeric values into a stats summary. Values that do not
// parse as numbers are skipped; a field missing from a document contributes
// nothing (the cross-template sum behaves like SUM(COALESCE(field, 0))).
func statsResult(aggType string, values []models.FieldValue) *models.AggregationResult {
	stats := &models.StatsResult{Min: math.Inf(1), Max: math.Inf(-1)}

	for _, v := range values {
		n, ok := toFloat(v.Value)
		if !ok {
			continue
		}

		stats.Sum += n
		stats.Count++
		if n < stats.Min {
			stats.Min = n
		}
		if n > stats.Max {
			stats.Max = n
		}
	}

	if stats.Count == 0 {
		stats.Min, stats.Max = 0, 0
	} else {
		stats.Avg = stats.Sum / float64(stats.Count)
	}

	return &models.AggregationResult{Type: aggType, Stats: stats}
}

// termsResult groups values by their string form, merging group keys across
// templates, and returns the top buckets. Default order is descending by
// count.
func termsResult(spec *models.AggregationSpec, values []models.FieldValue) *models.AggregationResult {
	counts := map[string]int64{}
	for _, v := range values {
		key := toKeyString(v.Value)
		if key == "" {
			continue
		}
		counts[key]++
	}

	buckets := make([]models.Bucket, 0, len(counts))
	for key, count := range counts {
		buckets = append(buckets, models.Bucket{Key: key, DocCount: count})
	}

	ascending := spec.Order == "asc"
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].DocCount != buckets[j].DocCount {
			if ascending {
				return buckets[i].DocCount < buckets[j].DocCount
			}
			return buckets[i].DocCount > buckets[j].DocCount
		}
		return buckets[i].Key < buckets[j].Key
	})

	size := spec.Size
	if size <= 0 {
		size = defaultTermsSize
	}
	if len(buckets) > size {
		buckets = buckets[:size]
	}

	return &models.AggregationResult{Type: models.AggTerms, Buckets: buckets}
}

// cardinalityResult counts exact distinct values.
func cardinalityResult(values []models.FieldValue) *models.AggregationResult {
	distinct := map[string]struct{}{}
	for _, v := range values {
		if key := toKeyString(v.Value); key != "" {
			distinct[key] = struct{}{}
		}
	}

	n := int64(len(distinct))

	return &models.AggregationResult{Type: models.AggCardinality, Cardinality: &n}
}

// rangeResult assigns each value to exactly one bucket: the first bucket
// where from <= v < to. Bucket order follows the spec.
func rangeResult(spec *models.AggregationSpec, values []models.FieldValue) *models.AggregationResult {
	buckets := make([]models.Bucket, len(spec.Ranges))
	for i, r := range spec.Ranges {
		buckets[i] = models.Bucket{Key: rangeKey(r), From: r.From, To: r.To}
	}

	for _, v := range values {
		n, ok := toFloat(v.Value)
		if !ok {
			continue
		}

		for i, r := range spec.Ranges {
			if r.From != nil && n < *r.From {
				continue
			}
			if r.To != nil && n >= *r.To {
				continue
			}
			buckets[i].DocCount++
			break
		}
	}

	return &models.AggregationResult{Type: models.AggRange, Buckets: buckets}
}

func rangeKey(r models.RangeBound) string {
	if r.Key != "" {
		return r.Key
	}

	from, to := "*", "*"
	if r.From != nil {
		from = strconv.FormatFloat(*r.From, 'f', -1, 64)
	}
	if r.To != nil {
		to = strconv.FormatFloat(*r.To, 'f', -1, 64)
	}

	return from + "-" + to
}

// percentilesResult computes the requested percentiles with linear
// interpolation between closest ranks, matching the common
// numpy/Elasticsearch default.
func percentilesResult(spec *models.AggregationSpec, values []models.FieldValue) *models.AggregationResult {
	ps := spec.Percentiles
	if len(ps) == 0 {
		ps = []float64{25, 50, 75, 95, 99}
	}

	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if n, ok := toFloat(v.Value); ok {
			nums = append(nums, n)
		}
	}
	sort.Float64s(nums)

	out := make(map[string]float64, len(ps))
	for _, p := range ps {
		key := strconv.FormatFloat(p, 'f', 1, 64)
		out[key] = percentile(nums, p)
	}

	return &models.AggregationResult{Type: models.AggPercentiles, Percentiles: out}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}

	frac := rank - float64(lo)

	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// toFloat coerces common JSON value shapes into a float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// toKeyString renders a value as a group key. Nil and empty values group
// nowhere.
func toKeyString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case time.Time:
		return s.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", s)
	}
}

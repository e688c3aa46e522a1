package models

import (
	"strings"
	"time"
)

// AskRequest is one natural-language question plus an optional document scope.
// Filters apply on top of whatever the translated intent derives from the
// question text.
type AskRequest struct {
	Question    string         `json:"question"`
	Filters     map[string]any `json:"filters,omitempty"`
	DocumentIDs []string       `json:"document_ids,omitempty"`
	Page        int            `json:"page,omitempty"`
	Size        int            `json:"size,omitempty"`
}

// Validate checks the request invariants.
func (r *AskRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return ErrMissingQuestion
	}
	return nil
}

// Document is one indexed document with its extracted field values.
type Document struct {
	ID           string         `json:"id"`
	TenantID     string         `json:"-"`
	TemplateName string         `json:"template_name"`
	Title        string         `json:"title,omitempty"`
	Fields       map[string]any `json:"fields"`
	DocumentDate *time.Time     `json:"document_date,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// SearchFilters narrow a search or aggregation to a document scope.
type SearchFilters struct {
	TemplateName string     `json:"template_name,omitempty"`
	DateFrom     *time.Time `json:"date_from,omitempty"`
	DateTo       *time.Time `json:"date_to,omitempty"`
	DocumentIDs  []string   `json:"document_ids,omitempty"`

	// FieldEquals matches extracted field values exactly; used by group
	// comparisons to pin each side to one group value.
	FieldEquals map[string]any `json:"field_equals,omitempty"`
}

// FieldValue is one (document, field, value) tuple streamed out of the
// document store for the aggregation engine to fold over.
type FieldValue struct {
	DocumentID   string `json:"document_id"`
	TemplateName string `json:"template_name"`
	Field        string `json:"field"`
	Value        any    `json:"value"`
}

// StatsResult carries the numeric summary of a stats aggregation.
type StatsResult struct {
	Sum   float64 `json:"sum"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int64   `json:"count"`
}

// Bucket is one group of a terms, date_histogram or range aggregation.
type Bucket struct {
	Key         string   `json:"key"`
	KeyAsString string   `json:"key_as_string,omitempty"`
	From        *float64 `json:"from,omitempty"`
	To          *float64 `json:"to,omitempty"`
	DocCount    int64    `json:"doc_count"`
}

// AggregationResult is the discriminated result of one aggregation; Type
// selects which of the payload fields is populated.
type AggregationResult struct {
	Type        string             `json:"type"`
	Stats       *StatsResult       `json:"stats,omitempty"`
	Buckets     []Bucket           `json:"buckets,omitempty"`
	Percentiles map[string]float64 `json:"values,omitempty"`
	Cardinality *int64             `json:"value,omitempty"`
}

// Trend classifications for comparisons.
const (
	TrendUp   = "up"
	TrendDown = "down"
	TrendFlat = "flat"
)

// PeriodValue is one side of a comparison.
type PeriodValue struct {
	Name  string  `json:"name"`
	Range string  `json:"range,omitempty"`
	Value float64 `json:"value"`
	Count int64   `json:"count"`
}

// Change describes the delta between the two sides of a comparison.
// Percentage is nil when the baseline is zero and the absolute change is not,
// since a percentage is undefined there.
type Change struct {
	Absolute   float64  `json:"absolute"`
	Percentage *float64 `json:"percentage"`
	Trend      string   `json:"trend"`
}

// ComparisonResult is the outcome of a period or group comparison.
type ComparisonResult struct {
	Period1 PeriodValue `json:"period1"`
	Period2 PeriodValue `json:"period2"`
	Change  Change      `json:"change"`
}

// Answer is the caller-facing result of one question.
type Answer struct {
	Question                string               `json:"question"`
	Intent                  IntentKind           `json:"intent"`
	Documents               []Document           `json:"documents,omitempty"`
	Total                   int                  `json:"total"`
	AggregationResult       *AggregationResult   `json:"aggregation_result,omitempty"`
	ComparisonResult        *ComparisonResult    `json:"comparison_result,omitempty"`
	FieldLineage            FieldLineage         `json:"field_lineage"`
	AuditItems              []LowConfidenceField `json:"audit_items,omitempty"`
	AuditItemsFilteredCount int                  `json:"audit_items_filtered_count"`
	AuditItemsTotalCount    int                  `json:"audit_items_total_count"`
	ExpansionAttempted      bool                 `json:"expansion_attempted,omitempty"`
	CacheHit                bool                 `json:"cache_hit"`
}

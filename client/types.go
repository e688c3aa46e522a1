package client

import "time"

// HealthResponse is the liveness endpoint payload.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	Translation   string  `json:"translation"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ReadinessResponse is the readiness endpoint payload.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// AskRequest is a natural-language question with optional scoping.
type AskRequest struct {
	Question    string         `json:"question"`
	Filters     map[string]any `json:"filters,omitempty"`
	DocumentIDs []string       `json:"document_ids,omitempty"`
	Page        int            `json:"page,omitempty"`
	Size        int            `json:"size,omitempty"`
}

// Document is a stored document with its extracted fields.
type Document struct {
	ID           string         `json:"id"`
	TemplateName string         `json:"template_name"`
	Title        string         `json:"title,omitempty"`
	Fields       map[string]any `json:"fields"`
	DocumentDate *time.Time     `json:"document_date,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// StatsResult holds numeric summary statistics.
type StatsResult struct {
	Sum   float64 `json:"sum"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int64   `json:"count"`
}

// Bucket is one group in a bucketed aggregation.
type Bucket struct {
	Key         string   `json:"key"`
	KeyAsString string   `json:"key_as_string,omitempty"`
	From        *float64 `json:"from,omitempty"`
	To          *float64 `json:"to,omitempty"`
	DocCount    int64    `json:"doc_count"`
}

// AggregationResult is the outcome of an aggregation intent.
type AggregationResult struct {
	Type        string             `json:"type"`
	Stats       *StatsResult       `json:"stats,omitempty"`
	Buckets     []Bucket           `json:"buckets,omitempty"`
	Percentiles map[string]float64 `json:"values,omitempty"`
	Cardinality *int64             `json:"value,omitempty"`
}

// PeriodValue is one side of a comparison.
type PeriodValue struct {
	Name  string  `json:"name"`
	Range string  `json:"range,omitempty"`
	Value float64 `json:"value"`
	Count int64   `json:"count"`
}

// Change describes the delta between two compared values.
type Change struct {
	Absolute   float64  `json:"absolute"`
	Percentage *float64 `json:"percentage"`
	Trend      string   `json:"trend"`
}

// ComparisonResult is the outcome of a comparison intent.
type ComparisonResult struct {
	Period1 PeriodValue `json:"period1"`
	Period2 PeriodValue `json:"period2"`
	Change  Change      `json:"change"`
}

// FieldLineage records which data fields a structured query referenced.
type FieldLineage struct {
	QueriedFields   []string            `json:"queried_fields"`
	FieldContexts   map[string][]string `json:"field_contexts"`
	SyntheticFields []string            `json:"synthetic_fields"`
	RealFieldCount  int                 `json:"real_field_count"`
}

// LowConfidenceField is an extracted field flagged for human review.
type LowConfidenceField struct {
	DocumentID   string  `json:"document_id"`
	FieldName    string  `json:"field_name"`
	FieldValue   string  `json:"field_value,omitempty"`
	Confidence   float64 `json:"confidence"`
	TemplateName string  `json:"template_name,omitempty"`
}

// Answer is the full response to an ask request.
type Answer struct {
	Question                string               `json:"question"`
	Intent                  string               `json:"intent"`
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

// CanonicalField is a canonical field mapping as returned by the API.
type CanonicalField struct {
	ID              string            `json:"id"`
	CanonicalName   string            `json:"canonical_name"`
	FieldMappings   map[string]string `json:"field_mappings"`
	AggregationType string            `json:"aggregation_type"`
	Aliases         []string          `json:"aliases,omitempty"`
	IsSystem        bool              `json:"is_system"`
	IsActive        bool              `json:"is_active"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// CreateCanonicalFieldRequest creates a new canonical field mapping.
type CreateCanonicalFieldRequest struct {
	CanonicalName   string            `json:"canonical_name"`
	FieldMappings   map[string]string `json:"field_mappings"`
	AggregationType string            `json:"aggregation_type"`
	Aliases         []string          `json:"aliases,omitempty"`
}

// UpdateCanonicalFieldRequest updates an existing canonical field mapping.
// Nil fields are left unchanged.
type UpdateCanonicalFieldRequest struct {
	FieldMappings   map[string]string `json:"field_mappings,omitempty"`
	AggregationType *string           `json:"aggregation_type,omitempty"`
	Aliases         []string          `json:"aliases,omitempty"`
	IsActive        *bool             `json:"is_active,omitempty"`
}

// Package models defines data types for the doclens query engine.
package models

import (
	"time"
)

// IntentKind classifies what a translated question asks for.
type IntentKind string

// Intent kinds produced by the translator.
const (
	IntentSearch      IntentKind = "search"
	IntentAggregation IntentKind = "aggregation"
	IntentComparison  IntentKind = "comparison"
)

// QueryIntent is the structured form of a natural-language question.
// Produced once by the translator and consumed read-only downstream.
type QueryIntent struct {
	Kind            IntentKind       `json:"kind"`
	Filters         map[string]any   `json:"filters,omitempty"`
	Aggregation     *AggregationSpec `json:"aggregation,omitempty"`
	Comparison      *ComparisonSpec  `json:"comparison,omitempty"`
	StructuredQuery QueryNode        `json:"structured_query"`
}

// Validate enforces the intent invariants: an aggregation intent needs an
// aggregation type, and any non-count aggregation needs a target field.
func (q *QueryIntent) Validate() error {
	switch q.Kind {
	case IntentSearch, IntentAggregation, IntentComparison:
	default:
		return ErrUnknownIntentKind
	}

	if q.Kind == IntentAggregation {
		if q.Aggregation == nil || q.Aggregation.Type == "" {
			return ErrMissingAggregationType
		}
		if q.Aggregation.Type != AggCount && q.Aggregation.Field == "" && q.Aggregation.CanonicalField == "" {
			return ErrMissingAggregationField
		}
	}

	if q.Kind == IntentComparison && q.Comparison == nil {
		return ErrMissingComparisonSpec
	}

	return nil
}

// Aggregation type names understood by the aggregation engine.
const (
	AggStats         = "stats"
	AggSum           = "sum"
	AggAvg           = "avg"
	AggMin           = "min"
	AggMax           = "max"
	AggCount         = "count"
	AggTerms         = "terms"
	AggCardinality   = "cardinality"
	AggDateHistogram = "date_histogram"
	AggRange         = "range"
	AggPercentiles   = "percentiles"
)

// AggregationSpec describes a single aggregation request. Either Field or
// CanonicalField is set; canonical fields expand to the union of per-template
// fields before execution.
type AggregationSpec struct {
	Type           string       `json:"type"`
	Field          string       `json:"field,omitempty"`
	CanonicalField string       `json:"canonical_field,omitempty"`
	Interval       string       `json:"interval,omitempty"`
	Size           int          `json:"size,omitempty"`
	Order          string       `json:"order,omitempty"`
	Percentiles    []float64    `json:"percentiles,omitempty"`
	Ranges         []RangeBound `json:"ranges,omitempty"`
}

// RangeBound is one explicit bucket boundary for a range aggregation.
// From is inclusive, To is exclusive; either may be open.
type RangeBound struct {
	Key  string   `json:"key,omitempty"`
	From *float64 `json:"from,omitempty"`
	To   *float64 `json:"to,omitempty"`
}

// Comparison modes.
const (
	ComparePeriods = "periods"
	CompareGroups  = "groups"
)

// PeriodRange is a named half-open time window [From, To).
type PeriodRange struct {
	Name string    `json:"name,omitempty"`
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ComparisonSpec describes a two-sided comparison request.
type ComparisonSpec struct {
	Mode           string       `json:"mode"`
	Field          string       `json:"field,omitempty"`
	CanonicalField string       `json:"canonical_field,omitempty"`
	AggType        string       `json:"agg_type,omitempty"`
	Period1        *PeriodRange `json:"period1,omitempty"`
	Period2        *PeriodRange `json:"period2,omitempty"`
	GroupField     string       `json:"group_field,omitempty"`
	Group1         string       `json:"group1,omitempty"`
	Group2         string       `json:"group2,omitempty"`
}

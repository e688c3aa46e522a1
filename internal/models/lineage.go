package models

import "sort"

// FieldLineage records which data fields a structured query references and
// how each one is used. Derived per query; cached only alongside the answer.
type FieldLineage struct {
	// QueriedFields is the sorted set of real (user data) field names the
	// query touches.
	QueriedFields []string `json:"queried_fields"`

	// FieldContexts maps each field to the contexts it appears in, e.g.
	// "filter:range" for a range clause under a filter combinator. A field
	// that appears in several places accumulates several contexts.
	FieldContexts map[string][]string `json:"field_contexts"`

	// SyntheticFields collects internal helper fields (catch-all text
	// fields, index plumbing) that were referenced but are not user data.
	SyntheticFields []string `json:"synthetic_fields"`

	// RealFieldCount is len(QueriedFields), kept explicit for API payloads.
	RealFieldCount int `json:"real_field_count"`
}

// HasField reports whether the lineage references the given real field.
func (l FieldLineage) HasField(name string) bool {
	i := sort.SearchStrings(l.QueriedFields, name)
	return i < len(l.QueriedFields) && l.QueriedFields[i] == name
}

// LowConfidenceField is one extracted field value flagged below the
// confidence threshold, pending human review.
type LowConfidenceField struct {
	DocumentID   string  `json:"document_id"`
	FieldName    string  `json:"field_name"`
	FieldValue   string  `json:"field_value,omitempty"`
	Confidence   float64 `json:"confidence"`
	TemplateName string  `json:"template_name,omitempty"`
}

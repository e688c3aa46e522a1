package lineage

import (
	"testing"

	"github.com/doclens/doclens/internal/models"
)

func TestFilterAuditItems(t *testing.T) {
	items := []models.LowConfidenceField{
		{DocumentID: "d1", FieldName: "vendor_name", Confidence: 0.42},
		{DocumentID: "d1", FieldName: "tax_amount", Confidence: 0.61},
		{DocumentID: "d2", FieldName: "invoice_total", Confidence: 0.55},
	}

	l := ExtractRaw(map[string]any{
		"bool": map[string]any{
			"must": []any{
				map[string]any{"match": map[string]any{"vendor_name": "Acme"}},
			},
			"filter": []any{
				map[string]any{"range": map[string]any{"invoice_total": map[string]any{"gte": 1000}}},
			},
		},
	})

	filtered, filteredCount, totalCount := FilterAuditItems(l, items)

	if totalCount != 3 {
		t.Errorf("total = %d, want 3", totalCount)
	}
	if filteredCount != 2 || len(filtered) != 2 {
		t.Fatalf("filtered = %d, want 2", filteredCount)
	}

	// Subset invariant: every kept item's field must be in the lineage.
	seen := map[string]bool{}
	for _, item := range filtered {
		if !l.HasField(item.FieldName) {
			t.Errorf("filtered item %q not in queried fields", item.FieldName)
		}
		seen[item.FieldName] = true
	}
	if seen["tax_amount"] {
		t.Error("tax_amount should have been filtered out")
	}
}

func TestFilterAuditItems_EmptyLineagePassesNothing(t *testing.T) {
	items := []models.LowConfidenceField{
		{DocumentID: "d1", FieldName: "vendor_name", Confidence: 0.42},
	}

	filtered, filteredCount, totalCount := FilterAuditItems(models.FieldLineage{}, items)

	if filtered != nil || filteredCount != 0 {
		t.Errorf("empty lineage passed %d items", filteredCount)
	}
	if totalCount != 1 {
		t.Errorf("total = %d, want 1", totalCount)
	}
}

func TestFilterAuditItems_NoItems(t *testing.T) {
	l := ExtractRaw(map[string]any{"match": map[string]any{"vendor_name": "Acme"}})

	filtered, filteredCount, totalCount := FilterAuditItems(l, nil)

	if len(filtered) != 0 || filteredCount != 0 || totalCount != 0 {
		t.Errorf("unexpected result: %v %d %d", filtered, filteredCount, totalCount)
	}
}

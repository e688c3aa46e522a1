package store

import (
	"context"
	"fmt"

	"github.com/doclens/doclens/internal/models"
)

// ExtractionStore reads the per-field extraction confidence records the
// ingestion pipeline writes alongside each document.
type ExtractionStore struct {
	Base
}

// NewExtractionStore creates a new ExtractionStore.
func NewExtractionStore(base Base) *ExtractionStore {
	return &ExtractionStore{Base: base}
}

// LowConfidenceFields returns the extracted fields of the given documents
// whose confidence fell below the threshold, worst first.
func (s *ExtractionStore) LowConfidenceFields(
	ctx context.Context,
	tenantID string,
	documentIDs []string,
	threshold float64,
) ([]models.LowConfidenceField, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("low-confidence fields: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	sql := `SELECT document_id, field_name, COALESCE(field_value, ''), confidence, template_name
		FROM extracted_fields
		WHERE tenant_id = current_setting('app.tenant_id')::uuid
			AND document_id = ANY($1)
			AND confidence < $2
		ORDER BY confidence, document_id, field_name`

	rows, err := tx.Query(ctx, sql, documentIDs, threshold)
	if err != nil {
		return nil, fmt.Errorf("querying low-confidence fields: %w", err)
	}
	defer rows.Close()

	items := make([]models.LowConfidenceField, 0, 8)

	for rows.Next() {
		var item models.LowConfidenceField

		err := rows.Scan(&item.DocumentID, &item.FieldName, &item.FieldValue, &item.Confidence, &item.TemplateName)
		if err != nil {
			return nil, fmt.Errorf("scanning low-confidence field: %w", err)
		}

		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating low-confidence fields: %w", err)
	}

	return items, nil
}

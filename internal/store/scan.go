package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/doclens/doclens/internal/models"
)

// documentColumns lists the columns selected for document queries.
const documentColumns = `id, tenant_id, template_name, title, fields,
	document_date, created_at`

// mappingColumns lists the columns selected for canonical mapping queries.
const mappingColumns = `id, tenant_id, canonical_name, field_mappings,
	aggregation_type, aliases, is_system, is_active, created_at, updated_at`

// scanDocument scans a single row into a models.Document.
func scanDocument(scan func(dest ...any) error) (*models.Document, error) {
	var d models.Document
	var fields []byte
	var documentDate *time.Time

	err := scan(
		&d.ID,
		&d.TenantID,
		&d.TemplateName,
		&d.Title,
		&fields,
		&documentDate,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.DocumentDate = documentDate

	if err := json.Unmarshal(fields, &d.Fields); err != nil {
		return nil, fmt.Errorf("unmarshalling document fields: %w", err)
	}

	return &d, nil
}

// collectDocuments scans all rows into a document slice.
func collectDocuments(rows pgx.Rows) ([]models.Document, error) {
	docs := make([]models.Document, 0, 16)

	for rows.Next() {
		d, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}

		docs = append(docs, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}

	return docs, nil
}

// scanMapping scans a single row into a models.CanonicalFieldMapping.
// System rows carry a NULL tenant_id.
func scanMapping(scan func(dest ...any) error) (*models.CanonicalFieldMapping, error) {
	var m models.CanonicalFieldMapping
	var tenantID *string
	var fieldMappings []byte

	err := scan(
		&m.ID,
		&tenantID,
		&m.CanonicalName,
		&fieldMappings,
		&m.AggregationType,
		&m.Aliases,
		&m.IsSystem,
		&m.IsActive,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if tenantID != nil {
		m.TenantID = *tenantID
	}

	if err := json.Unmarshal(fieldMappings, &m.FieldMappings); err != nil {
		return nil, fmt.Errorf("unmarshalling field mappings: %w", err)
	}

	return &m, nil
}

// collectMappings scans all rows into a mapping slice.
func collectMappings(rows pgx.Rows) ([]models.CanonicalFieldMapping, error) {
	mappings := make([]models.CanonicalFieldMapping, 0, 8)

	for rows.Next() {
		m, err := scanMapping(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning mapping row: %w", err)
		}

		mappings = append(mappings, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mapping rows: %w", err)
	}

	return mappings, nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/doclens/doclens/internal/models"
)

// CanonicalStore handles canonical field mapping CRUD. System mappings are
// shared rows with a NULL tenant_id; every tenant sees them alongside its own.
type CanonicalStore struct {
	Base
}

// NewCanonicalStore creates a new CanonicalStore.
func NewCanonicalStore(base Base) *CanonicalStore {
	return &CanonicalStore{Base: base}
}

// ListMappings returns the tenant's active mappings plus the system ones.
func (s *CanonicalStore) ListMappings(ctx context.Context, tenantID string) ([]models.CanonicalFieldMapping, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := uuid.Parse(tenantID); err != nil {
		return nil, fmt.Errorf("invalid tenant ID format: %w", err)
	}

	sql := `SELECT ` + mappingColumns + `
		FROM canonical_field_mappings
		WHERE (tenant_id = $1 OR is_system)
			AND is_active
		ORDER BY is_system DESC, canonical_name`

	rows, err := s.Pool.Query(ctx, sql, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing canonical mappings: %w", err)
	}
	defer rows.Close()

	return collectMappings(rows)
}

// CreateMapping inserts a tenant mapping and returns the created record.
func (s *CanonicalStore) CreateMapping(
	ctx context.Context, tenantID string, m models.CanonicalFieldMapping,
) (*models.CanonicalFieldMapping, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := uuid.Parse(tenantID); err != nil {
		return nil, fmt.Errorf("invalid tenant ID format: %w", err)
	}

	fieldMappings, err := json.Marshal(m.FieldMappings)
	if err != nil {
		return nil, fmt.Errorf("marshalling field mappings: %w", err)
	}

	sql := `INSERT INTO canonical_field_mappings
		(id, tenant_id, canonical_name, field_mappings, aggregation_type, aliases, is_system, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, false, true)
		RETURNING ` + mappingColumns

	row := s.Pool.QueryRow(ctx, sql,
		uuid.New().String(), tenantID, m.CanonicalName, fieldMappings, m.AggregationType, m.Aliases)

	created, err := scanMapping(row.Scan)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, models.ErrDuplicateKey
		}

		return nil, fmt.Errorf("scanning created mapping: %w", err)
	}

	s.notify("canonical_field_mappings", "insert", tenantID)

	return created, nil
}

// UpdateMapping rewrites a mapping's mutable columns and returns the updated
// record. The resolver enforces the system-mapping edit rules before calling.
func (s *CanonicalStore) UpdateMapping(
	ctx context.Context, tenantID string, m models.CanonicalFieldMapping,
) (*models.CanonicalFieldMapping, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := uuid.Parse(tenantID); err != nil {
		return nil, fmt.Errorf("invalid tenant ID format: %w", err)
	}

	fieldMappings, err := json.Marshal(m.FieldMappings)
	if err != nil {
		return nil, fmt.Errorf("marshalling field mappings: %w", err)
	}

	sql := `UPDATE canonical_field_mappings
		SET field_mappings = $1, aggregation_type = $2, aliases = $3, is_active = $4, updated_at = now()
		WHERE id = $5 AND (tenant_id = $6 OR is_system)
		RETURNING ` + mappingColumns

	row := s.Pool.QueryRow(ctx, sql,
		fieldMappings, m.AggregationType, m.Aliases, m.IsActive, m.ID, tenantID)

	updated, err := scanMapping(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrMappingNotFound
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, models.ErrDuplicateKey
		}

		return nil, fmt.Errorf("scanning updated mapping: %w", err)
	}

	s.notify("canonical_field_mappings", "update", tenantID)

	return updated, nil
}

// DeleteMapping removes a tenant mapping. System rows are never deleted here;
// the resolver rejects those before the store is reached, and the predicate
// keeps a stale caller from removing one anyway.
func (s *CanonicalStore) DeleteMapping(ctx context.Context, tenantID, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := uuid.Parse(tenantID); err != nil {
		return fmt.Errorf("invalid tenant ID format: %w", err)
	}

	tag, err := s.Pool.Exec(ctx,
		"DELETE FROM canonical_field_mappings WHERE id = $1 AND tenant_id = $2 AND NOT is_system",
		id, tenantID)
	if err != nil {
		return fmt.Errorf("deleting canonical mapping: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrMappingNotFound
	}

	s.notify("canonical_field_mappings", "delete", tenantID)

	return nil
}

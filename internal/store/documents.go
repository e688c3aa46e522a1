package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/doclens/doclens/internal/models"
)

// fieldNameLimit caps the distinct field names surfaced to the translator
// prompt.
const fieldNameLimit = 200

// DocumentStore handles document search and field value retrieval.
type DocumentStore struct {
	Base
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(base Base) *DocumentStore {
	return &DocumentStore{Base: base}
}

// Search runs a structured query against the document corpus. A query that
// compiles to nothing (unknown clauses, empty tree) matches every document
// within the filters. The second return is the total match count before
// pagination.
func (s *DocumentStore) Search(
	ctx context.Context,
	tenantID string,
	query models.QueryNode,
	filters models.SearchFilters,
	page, size int,
) ([]models.Document, int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, tenantID)
	if err != nil {
		return nil, 0, fmt.Errorf("document search: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	b := &condBuilder{}
	where := buildWhere(b, query, filters)

	countSQL := "SELECT COUNT(*) FROM documents d WHERE " + where

	var total int
	if err := tx.QueryRow(ctx, countSQL, b.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting search matches: %w", err)
	}

	if total == 0 {
		return nil, 0, nil
	}

	listSQL := "SELECT " + documentColumns + " FROM documents d WHERE " + where +
		" ORDER BY d.created_at DESC, d.id" +
		" LIMIT " + b.bind(size) + " OFFSET " + b.bind((page-1)*size)

	rows, err := tx.Query(ctx, listSQL, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("executing document search: %w", err)
	}
	defer rows.Close()

	docs, err := collectDocuments(rows)
	if err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

// FieldValues streams (document, template, field, value) tuples for the given
// extracted field names. The aggregation engine owns all math over them.
func (s *DocumentStore) FieldValues(
	ctx context.Context,
	tenantID string,
	fields []string,
	filters models.SearchFilters,
) ([]models.FieldValue, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("field values: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	b := &condBuilder{}
	where := buildWhere(b, models.QueryNode{}, filters)

	sql := `SELECT d.id, d.template_name, f.key, f.value
		FROM documents d, jsonb_each(d.fields) AS f(key, value)
		WHERE ` + where + ` AND f.key = ANY(` + b.bind(fields) + `)
		ORDER BY d.created_at, d.id`

	rows, err := tx.Query(ctx, sql, b.args...)
	if err != nil {
		return nil, fmt.Errorf("executing field value query: %w", err)
	}
	defer rows.Close()

	values := make([]models.FieldValue, 0, 64)

	for rows.Next() {
		var fv models.FieldValue
		var raw []byte

		if err := rows.Scan(&fv.DocumentID, &fv.TemplateName, &fv.Field, &raw); err != nil {
			return nil, fmt.Errorf("scanning field value row: %w", err)
		}

		if err := json.Unmarshal(raw, &fv.Value); err != nil {
			return nil, fmt.Errorf("unmarshalling field value: %w", err)
		}

		values = append(values, fv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating field value rows: %w", err)
	}

	return values, nil
}

// FieldNames lists the distinct extracted field names across the tenant's
// corpus, for the translation prompt.
func (s *DocumentStore) FieldNames(ctx context.Context, tenantID string) ([]string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("field names: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	sql := `SELECT DISTINCT f.key
		FROM documents d, jsonb_object_keys(d.fields) AS f(key)
		WHERE d.tenant_id = current_setting('app.tenant_id')::uuid
		ORDER BY f.key
		LIMIT ` + strconv.Itoa(fieldNameLimit)

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("listing field names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0, 32)

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning field name: %w", err)
		}

		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating field names: %w", err)
	}

	return names, nil
}

// buildWhere combines the tenant guard, the compiled query condition and the
// scalar filters into one WHERE body.
func buildWhere(b *condBuilder, query models.QueryNode, filters models.SearchFilters) string {
	conds := []string{"d.tenant_id = current_setting('app.tenant_id')::uuid"}

	if cond := b.compile(query, 0); cond != "" {
		conds = append(conds, cond)
	}

	if filters.TemplateName != "" {
		conds = append(conds, "d.template_name = "+b.bind(filters.TemplateName))
	}

	if filters.DateFrom != nil {
		conds = append(conds, "d.document_date >= "+b.bind(*filters.DateFrom))
	}

	if filters.DateTo != nil {
		conds = append(conds, "d.document_date < "+b.bind(*filters.DateTo))
	}

	if len(filters.DocumentIDs) > 0 {
		conds = append(conds, "d.id = ANY("+b.bind(filters.DocumentIDs)+")")
	}

	for _, field := range sortedKeys(filters.FieldEquals) {
		conds = append(conds, fmt.Sprintf("d.fields->>%s = %s",
			b.bind(field), b.bind(valueText(filters.FieldEquals[field]))))
	}

	return strings.Join(conds, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package lineage

import "github.com/doclens/doclens/internal/models"

// FilterAuditItems keeps only low-confidence fields whose name appears in the
// query's lineage, so callers can show "N of M" audit transparency. An empty
// lineage (free-text-only queries) passes nothing through: relevance cannot
// be established, so no field is flagged.
func FilterAuditItems(
	l models.FieldLineage, items []models.LowConfidenceField,
) (filtered []models.LowConfidenceField, filteredCount, totalCount int) {
	totalCount = len(items)

	if len(l.QueriedFields) == 0 {
		return nil, 0, totalCount
	}

	queried := make(map[string]struct{}, len(l.QueriedFields))
	for _, f := range l.QueriedFields {
		queried[f] = struct{}{}
	}

	for _, item := range items {
		if _, ok := queried[item.FieldName]; ok {
			filtered = append(filtered, item)
		}
	}

	return filtered, len(filtered), totalCount
}

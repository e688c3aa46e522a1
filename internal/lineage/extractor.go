// Package lineage derives field lineage from structured query trees and
// intersects it with low-confidence extraction flags.
//
// Extraction is a pure function: it never fails, never panics, and treats
// any node shape it does not recognize as contributing no fields.
package lineage

import (
	"sort"
	"strings"

	"github.com/doclens/doclens/internal/models"
)

// rootContext labels clauses that sit at the top of the tree, outside any
// boolean combinator.
const rootContext = "query"

// syntheticPrefixes and syntheticNames identify internal helper fields that
// are excluded from queried_fields: catch-all text fields and index plumbing,
// not user data.
var (
	syntheticPrefixes = []string{"_"}
	syntheticSuffixes = []string{"_tsv", ".keyword"}
	syntheticNames    = map[string]struct{}{
		"full_text":  {},
		"all_text":   {},
		"all_fields": {},
	}
)

// isSynthetic reports whether a field name matches a known internal pattern.
func isSynthetic(field string) bool {
	for _, p := range syntheticPrefixes {
		if strings.HasPrefix(field, p) {
			return true
		}
	}
	for _, s := range syntheticSuffixes {
		if strings.HasSuffix(field, s) {
			return true
		}
	}
	_, ok := syntheticNames[field]
	return ok
}

// Extract walks a query tree and returns the set of fields it references,
// with a usage context per occurrence ("<combinator>:<clause>"). Synthetic
// fields are reported separately and excluded from queried_fields. The same
// input always yields the same output.
func Extract(query models.QueryNode) models.FieldLineage {
	acc := &accumulator{
		contexts:  map[string][]string{},
		synthetic: map[string]struct{}{},
	}
	acc.visit(query, rootContext, 0)
	return acc.lineage()
}

// ExtractRaw decodes an arbitrary JSON-shaped query and extracts its lineage.
// Malformed input degrades to empty lineage.
func ExtractRaw(raw any) models.FieldLineage {
	return Extract(models.DecodeQueryNode(raw))
}

type accumulator struct {
	contexts  map[string][]string
	synthetic map[string]struct{}
}

// visit dispatches on the node's clause kind. The default arm contributes
// nothing, so unrecognized or zero nodes are simply skipped.
func (a *accumulator) visit(node models.QueryNode, combinator string, depth int) {
	if depth > models.MaxQueryDepth {
		return
	}

	switch node.Kind {
	case models.KindBool:
		for _, occur := range []string{
			models.OccurMust, models.OccurShould, models.OccurFilter, models.OccurMustNot,
		} {
			for _, child := range node.Clauses[occur] {
				a.visit(child, occur, depth+1)
			}
		}
	case models.KindMatch, models.KindTerm, models.KindRange, models.KindExists, models.KindPrefix:
		a.record(node.Field, combinator+":"+node.Kind.String())
	case models.KindMultiMatch:
		for _, f := range node.Fields {
			a.record(f, combinator+":"+node.Kind.String())
		}
	case models.KindFreeText:
		// Free text targets no concrete field; nothing to record.
	default:
	}
}

func (a *accumulator) record(field, context string) {
	if field == "" {
		return
	}

	if isSynthetic(field) {
		a.synthetic[field] = struct{}{}
		return
	}

	a.contexts[field] = append(a.contexts[field], context)
}

func (a *accumulator) lineage() models.FieldLineage {
	l := models.FieldLineage{
		QueriedFields:   make([]string, 0, len(a.contexts)),
		FieldContexts:   a.contexts,
		SyntheticFields: make([]string, 0, len(a.synthetic)),
	}

	for f := range a.contexts {
		l.QueriedFields = append(l.QueriedFields, f)
	}
	sort.Strings(l.QueriedFields)

	for f := range a.synthetic {
		l.SyntheticFields = append(l.SyntheticFields, f)
	}
	sort.Strings(l.SyntheticFields)

	l.RealFieldCount = len(l.QueriedFields)

	return l
}

package models

import "sort"

// ClauseKind tags the shape of a query tree node. Unknown shapes decode to
// KindUnknown and contribute nothing downstream.
type ClauseKind int

// Clause kinds for the query node tagged union.
const (
	KindUnknown ClauseKind = iota
	KindBool
	KindMatch
	KindMultiMatch
	KindTerm
	KindRange
	KindExists
	KindPrefix
	KindFreeText
)

// String returns the wire name of the clause kind.
func (k ClauseKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindMatch:
		return "match"
	case KindMultiMatch:
		return "multi_match"
	case KindTerm:
		return "term"
	case KindRange:
		return "range"
	case KindExists:
		return "exists"
	case KindPrefix:
		return "prefix"
	case KindFreeText:
		return "query_string"
	default:
		return "unknown"
	}
}

// Boolean combinator occurrence names within a bool node.
const (
	OccurMust    = "must"
	OccurShould  = "should"
	OccurFilter  = "filter"
	OccurMustNot = "must_not"
)

// MaxQueryDepth bounds query tree traversal. Nodes nested deeper than this
// are dropped during decoding so a malformed tree can never loop or recurse
// without bound.
const MaxQueryDepth = 10

// QueryNode is one node of a structured boolean query tree. Exactly the
// fields relevant to Kind are populated; the rest stay zero.
type QueryNode struct {
	Kind ClauseKind `json:"kind"`

	// Field carries the target field for match, term, range, exists and
	// prefix clauses.
	Field string `json:"field,omitempty"`

	// Fields carries the target fields for multi_match clauses.
	Fields []string `json:"fields,omitempty"`

	// Value is the match/term/prefix value, or the raw text of a free-text
	// clause.
	Value any `json:"value,omitempty"`

	// Bounds holds range bounds keyed by operator (gte, gt, lte, lt).
	Bounds map[string]any `json:"bounds,omitempty"`

	// Clauses holds sub-clauses of a bool node keyed by occurrence
	// (must, should, filter, must_not).
	Clauses map[string][]QueryNode `json:"clauses,omitempty"`
}

// IsZero reports whether the node carries no query at all.
func (n QueryNode) IsZero() bool {
	return n.Kind == KindUnknown && n.Field == "" && len(n.Fields) == 0 &&
		n.Value == nil && len(n.Bounds) == 0 && len(n.Clauses) == 0
}

// DecodeQueryNode converts an arbitrary JSON-shaped value (as produced by the
// LLM or an API caller) into a typed query tree. It never fails: any shape it
// does not recognize becomes a KindUnknown node, and nesting beyond
// MaxQueryDepth is dropped.
func DecodeQueryNode(raw any) QueryNode {
	return decodeNode(raw, 0)
}

func decodeNode(raw any, depth int) QueryNode {
	if depth > MaxQueryDepth {
		return QueryNode{}
	}

	m, ok := raw.(map[string]any)
	if !ok || len(m) == 0 {
		return QueryNode{}
	}

	// A node is a single-key object: {"bool": {...}}, {"match": {...}}, etc.
	// Multi-key objects are ambiguous; the first recognized key wins so
	// decoding stays deterministic (map iteration order is not relied on —
	// keys are probed in a fixed order).
	if b, ok := m["bool"]; ok {
		return decodeBool(b, depth)
	}
	if c, ok := m["match"]; ok {
		return decodeFieldClause(KindMatch, c)
	}
	if c, ok := m["multi_match"]; ok {
		return decodeMultiMatch(c)
	}
	if c, ok := m["term"]; ok {
		return decodeFieldClause(KindTerm, c)
	}
	if c, ok := m["range"]; ok {
		return decodeRange(c)
	}
	if c, ok := m["exists"]; ok {
		return decodeExists(c)
	}
	if c, ok := m["prefix"]; ok {
		return decodeFieldClause(KindPrefix, c)
	}
	if c, ok := m["query_string"]; ok {
		return decodeFreeText(c)
	}

	return QueryNode{}
}

func decodeBool(raw any, depth int) QueryNode {
	body, ok := raw.(map[string]any)
	if !ok {
		return QueryNode{}
	}

	node := QueryNode{Kind: KindBool, Clauses: map[string][]QueryNode{}}

	for _, occur := range []string{OccurMust, OccurShould, OccurFilter, OccurMustNot} {
		sub, ok := body[occur]
		if !ok {
			continue
		}

		// A combinator may hold a list of clauses or a single clause object.
		var items []any
		switch v := sub.(type) {
		case []any:
			items = v
		case map[string]any:
			items = []any{v}
		default:
			continue
		}

		for _, item := range items {
			child := decodeNode(item, depth+1)
			if !child.IsZero() {
				node.Clauses[occur] = append(node.Clauses[occur], child)
			}
		}
	}

	if len(node.Clauses) == 0 {
		return QueryNode{}
	}

	return node
}

// sortedKeys returns the map's keys in lexical order so leaf decoding does
// not depend on map iteration order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// isClauseOption reports whether a leaf-body key is a query option rather
// than a field name. Options ride alongside the field in some producers'
// output and must never be mistaken for the target field.
func isClauseOption(key string) bool {
	switch key {
	case "boost", "operator", "fuzziness", "analyzer", "minimum_should_match", "case_insensitive":
		return true
	}
	return false
}

// decodeFieldClause handles the common {"<field>": <value>} and
// {"<field>": {"value": ...}} leaf shapes used by match, term and prefix.
// The first non-option key in sorted order is the target field.
func decodeFieldClause(kind ClauseKind, raw any) QueryNode {
	body, ok := raw.(map[string]any)
	if !ok {
		return QueryNode{}
	}

	for _, field := range sortedKeys(body) {
		if field == "" || isClauseOption(field) {
			continue
		}

		value := body[field]
		if inner, ok := value.(map[string]any); ok {
			if q, ok := inner["query"]; ok {
				value = q
			} else if q, ok := inner["value"]; ok {
				value = q
			}
		}

		return QueryNode{Kind: kind, Field: field, Value: value}
	}

	return QueryNode{}
}

func decodeMultiMatch(raw any) QueryNode {
	body, ok := raw.(map[string]any)
	if !ok {
		return QueryNode{}
	}

	node := QueryNode{Kind: KindMultiMatch}

	if q, ok := body["query"]; ok {
		node.Value = q
	}

	rawFields, ok := body["fields"].([]any)
	if !ok {
		return QueryNode{}
	}

	for _, f := range rawFields {
		if s, ok := f.(string); ok && s != "" {
			node.Fields = append(node.Fields, s)
		}
	}

	if len(node.Fields) == 0 {
		return QueryNode{}
	}

	return node
}

func decodeRange(raw any) QueryNode {
	body, ok := raw.(map[string]any)
	if !ok {
		return QueryNode{}
	}

	for _, field := range sortedKeys(body) {
		bounds, ok := body[field].(map[string]any)
		if !ok || field == "" || isClauseOption(field) {
			continue
		}

		kept := map[string]any{}
		for _, op := range []string{"gte", "gt", "lte", "lt"} {
			if b, ok := bounds[op]; ok {
				kept[op] = b
			}
		}

		if len(kept) == 0 {
			continue
		}

		return QueryNode{Kind: KindRange, Field: field, Bounds: kept}
	}

	return QueryNode{}
}

func decodeExists(raw any) QueryNode {
	body, ok := raw.(map[string]any)
	if !ok {
		return QueryNode{}
	}

	if field, ok := body["field"].(string); ok && field != "" {
		return QueryNode{Kind: KindExists, Field: field}
	}

	return QueryNode{}
}

func decodeFreeText(raw any) QueryNode {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return QueryNode{}
		}
		return QueryNode{Kind: KindFreeText, Value: v}
	case map[string]any:
		if q, ok := v["query"].(string); ok && q != "" {
			return QueryNode{Kind: KindFreeText, Value: q}
		}
	}

	return QueryNode{}
}

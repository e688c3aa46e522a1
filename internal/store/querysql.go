package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/doclens/doclens/internal/models"
)

// condBuilder compiles a query tree into a SQL condition over the documents
// table. Arguments accumulate positionally; the caller seeds the builder with
// any arguments already bound.
type condBuilder struct {
	args []any
}

func (b *condBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// compile returns the SQL condition for a node, or "" when the node
// contributes nothing (unknown shapes, empty bool nodes, depth overflow).
// Callers treat "" as match-all.
func (b *condBuilder) compile(n models.QueryNode, depth int) string {
	if depth > models.MaxQueryDepth {
		return ""
	}

	switch n.Kind {
	case models.KindBool:
		return b.compileBool(n, depth)
	case models.KindMatch:
		return fmt.Sprintf("d.fields->>%s ILIKE %s",
			b.bind(n.Field), b.bind("%"+valueText(n.Value)+"%"))
	case models.KindMultiMatch:
		return b.compileMultiMatch(n)
	case models.KindTerm:
		return fmt.Sprintf("d.fields->>%s = %s", b.bind(n.Field), b.bind(valueText(n.Value)))
	case models.KindRange:
		return b.compileRange(n)
	case models.KindExists:
		return fmt.Sprintf("d.fields ? %s", b.bind(n.Field))
	case models.KindPrefix:
		return fmt.Sprintf("d.fields->>%s ILIKE %s",
			b.bind(n.Field), b.bind(valueText(n.Value)+"%"))
	case models.KindFreeText:
		return fmt.Sprintf("d.search_tsv @@ plainto_tsquery('english', %s)",
			b.bind(valueText(n.Value)))
	default:
		return ""
	}
}

func (b *condBuilder) compileBool(n models.QueryNode, depth int) string {
	groups := make([]string, 0, 4)

	for _, occur := range []string{models.OccurMust, models.OccurFilter} {
		for _, child := range n.Clauses[occur] {
			if cond := b.compile(child, depth+1); cond != "" {
				groups = append(groups, cond)
			}
		}
	}

	if should := b.compileAny(n.Clauses[models.OccurShould], depth); should != "" {
		groups = append(groups, should)
	}

	if negated := b.compileAny(n.Clauses[models.OccurMustNot], depth); negated != "" {
		groups = append(groups, "NOT "+negated)
	}

	if len(groups) == 0 {
		return ""
	}
	if len(groups) == 1 {
		return groups[0]
	}

	return "(" + strings.Join(groups, " AND ") + ")"
}

// compileAny ORs the compiled children together.
func (b *condBuilder) compileAny(children []models.QueryNode, depth int) string {
	conds := make([]string, 0, len(children))

	for _, child := range children {
		if cond := b.compile(child, depth+1); cond != "" {
			conds = append(conds, cond)
		}
	}

	if len(conds) == 0 {
		return ""
	}
	if len(conds) == 1 {
		return conds[0]
	}

	return "(" + strings.Join(conds, " OR ") + ")"
}

func (b *condBuilder) compileMultiMatch(n models.QueryNode) string {
	conds := make([]string, 0, len(n.Fields))
	pattern := "%" + valueText(n.Value) + "%"

	for _, field := range n.Fields {
		conds = append(conds, fmt.Sprintf("d.fields->>%s ILIKE %s", b.bind(field), b.bind(pattern)))
	}

	if len(conds) == 0 {
		return ""
	}

	return "(" + strings.Join(conds, " OR ") + ")"
}

var rangeOps = map[string]string{
	"gte": ">=",
	"gt":  ">",
	"lte": "<=",
	"lt":  "<",
}

func (b *condBuilder) compileRange(n models.QueryNode) string {
	conds := make([]string, 0, len(n.Bounds))

	// Fixed operator order keeps the generated SQL stable for a given tree.
	for _, op := range []string{"gte", "gt", "lte", "lt"} {
		bound, ok := n.Bounds[op]
		if !ok {
			continue
		}

		if num, isNum := toNumeric(bound); isNum {
			conds = append(conds, fmt.Sprintf("(d.fields->>%s)::numeric %s %s",
				b.bind(n.Field), rangeOps[op], b.bind(num)))
		} else {
			conds = append(conds, fmt.Sprintf("d.fields->>%s %s %s",
				b.bind(n.Field), rangeOps[op], b.bind(valueText(bound))))
		}
	}

	if len(conds) == 0 {
		return ""
	}
	if len(conds) == 1 {
		return conds[0]
	}

	return "(" + strings.Join(conds, " AND ") + ")"
}

// valueText renders a clause value the way ->> renders the stored one.
func valueText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func toNumeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

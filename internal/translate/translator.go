package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/doclens/doclens/internal/metrics"
	"github.com/doclens/doclens/internal/models"
)

// ErrTranslationUnavailable marks a failed round-trip to the language model.
// Retryable; handlers surface it as an upstream failure.
var ErrTranslationUnavailable = errors.New("translation service unavailable")

// LLM is the completion interface the translator depends on.
type LLM interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// CanonicalCatalog supplies the known canonical names for the prompt.
type CanonicalCatalog interface {
	CanonicalNames(ctx context.Context, tenantID string) ([]string, error)
}

// Translator turns free-text questions into validated QueryIntents.
type Translator struct {
	llm     LLM
	catalog CanonicalCatalog
	log     *logrus.Logger
}

// NewTranslator creates a Translator.
func NewTranslator(llm LLM, catalog CanonicalCatalog, log *logrus.Logger) *Translator {
	return &Translator{llm: llm, catalog: catalog, log: log}
}

const systemPrompt = `You translate questions about a document corpus into a JSON query intent.
Respond with a single JSON object and nothing else:
{
  "kind": "search" | "aggregation" | "comparison",
  "filters": {"template_name": string|null, "date_from": string|null, "date_to": string|null},
  "aggregation": {"type": "stats|sum|avg|min|max|count|terms|cardinality|date_histogram|range|percentiles",
                  "field": string, "canonical_field": string, "interval": string, "size": number},
  "comparison": {"mode": "periods"|"groups", "field": string, "canonical_field": string, "agg_type": string,
                 "period1": {"name": string, "from": RFC3339, "to": RFC3339},
                 "period2": {"name": string, "from": RFC3339, "to": RFC3339},
                 "group_field": string, "group1": string, "group2": string},
  "structured_query": an Elasticsearch-style bool query over the available fields
}
Prefer "canonical_field" over "field" when the question names a quantity in the canonical list.
Omit "aggregation" and "comparison" unless the kind requires them.`

// Translate converts a question into a QueryIntent. The LLM's output is
// validated against the intent schema before it is trusted; any failure
// degrades to a plain free-text search intent rather than an error, so a
// misbehaving model can never break question answering.
func (t *Translator) Translate(
	ctx context.Context, tenantID, question string, availableFields []string,
) (*models.QueryIntent, error) {
	canonicalNames, err := t.catalog.CanonicalNames(ctx, tenantID)
	if err != nil {
		t.log.WithError(err).Warn("loading canonical names for prompt")
		canonicalNames = nil
	}

	raw, err := t.llm.Complete(ctx, systemPrompt, t.userPrompt(question, availableFields, canonicalNames))
	if err != nil {
		// External-service failure is retryable and user-visible; the
		// caller decides whether to surface it or fall back.
		return nil, fmt.Errorf("%w: %s", ErrTranslationUnavailable, err)
	}

	intent, ok := t.parseIntent(raw)
	if !ok {
		metrics.TranslationFallbacks.WithLabelValues("parse_error").Inc()
		t.log.WithField("question", question).Warn("unparseable llm output, falling back to free-text search")

		return FallbackIntent(question), nil
	}

	// The keyword classifier is a safety net: when the model's own
	// classification is missing or inconsistent with its payload, classify
	// from the question text and degrade to search if the payload cannot
	// support the classified kind.
	if intent.Kind == "" {
		intent.Kind = ClassifyKind(question)
	}

	if err := intent.Validate(); err != nil {
		metrics.TranslationFallbacks.WithLabelValues("invalid_intent").Inc()
		t.log.WithError(err).WithField("question", question).
			Warn("llm intent failed validation, falling back to free-text search")

		fallback := FallbackIntent(question)
		if !intent.StructuredQuery.IsZero() {
			fallback.StructuredQuery = intent.StructuredQuery
		}

		return fallback, nil
	}

	if intent.StructuredQuery.IsZero() && intent.Kind == models.IntentSearch {
		intent.StructuredQuery = freeTextNode(question)
	}

	return intent, nil
}

func (t *Translator) userPrompt(question string, availableFields, canonicalNames []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Available fields: %s\n", strings.Join(availableFields, ", "))
	fmt.Fprintf(&b, "Canonical fields: %s\n", strings.Join(canonicalNames, ", "))
	fmt.Fprintf(&b, "Question: %s\n", question)

	return b.String()
}

// llmIntent is the wire shape the model is asked to produce. StructuredQuery
// stays untyped here; it is decoded defensively into the tagged tree.
type llmIntent struct {
	Kind            string                  `json:"kind"`
	Filters         map[string]any          `json:"filters"`
	Aggregation     *models.AggregationSpec `json:"aggregation"`
	Comparison      *models.ComparisonSpec  `json:"comparison"`
	StructuredQuery any                     `json:"structured_query"`
}

// parseIntent extracts and validates the JSON object from the model output.
func (t *Translator) parseIntent(raw string) (*models.QueryIntent, bool) {
	jsonText := extractJSONObject(raw)
	if jsonText == "" {
		return nil, false
	}

	var wire llmIntent
	if err := json.Unmarshal([]byte(jsonText), &wire); err != nil {
		return nil, false
	}

	intent := &models.QueryIntent{
		Kind:            models.IntentKind(wire.Kind),
		Filters:         wire.Filters,
		Aggregation:     wire.Aggregation,
		Comparison:      wire.Comparison,
		StructuredQuery: models.DecodeQueryNode(wire.StructuredQuery),
	}

	return intent, true
}

// extractJSONObject returns the first balanced {...} block in the text.
// Models occasionally wrap their JSON in prose or markdown fences.
func extractJSONObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		ch := raw[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}

	return ""
}

// FallbackIntent builds the plain free-text search intent used whenever
// translation cannot be trusted.
func FallbackIntent(question string) *models.QueryIntent {
	return &models.QueryIntent{
		Kind:            models.IntentSearch,
		StructuredQuery: freeTextNode(question),
	}
}

func freeTextNode(question string) models.QueryNode {
	return models.QueryNode{Kind: models.KindFreeText, Value: question}
}

// Keyword groups for the defensive intent classifier.
var (
	comparisonKeywords = []string{
		"compare", " vs ", "versus", "than last", "than previous",
		"difference between", "change from", "compared to",
	}
	aggregationKeywords = []string{
		"sum", "total", "average", "avg", "mean", "count", "how many",
		"how much", "distinct", "unique", "breakdown", "group by", "per ",
		"trend", "over time", "top ", "highest", "lowest", "percentile",
	}
)

// ClassifyKind classifies a question by aggregation-pattern keywords. Used
// when the LLM leaves the kind ambiguous.
func ClassifyKind(question string) models.IntentKind {
	q := " " + strings.ToLower(question) + " "

	for _, kw := range comparisonKeywords {
		if strings.Contains(q, kw) {
			return models.IntentComparison
		}
	}

	for _, kw := range aggregationKeywords {
		if strings.Contains(q, kw) {
			return models.IntentAggregation
		}
	}

	return models.IntentSearch
}

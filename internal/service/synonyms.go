package service

import "strings"

// synonyms maps common question vocabulary to the terms the extraction
// pipeline actually produces. Used once per question, only after a search
// comes back empty.
var synonyms = map[string]string{
	"bill":     "invoice",
	"bills":    "invoices",
	"supplier": "vendor",
	"provider": "vendor",
	"cost":     "amount",
	"price":    "amount",
	"income":   "revenue",
	"earnings": "revenue",
	"client":   "customer",
	"buyer":    "customer",
	"receipt":  "payment",
	"deal":     "contract",
}

// expandSynonyms rewrites question words through the synonym table. The
// second return reports whether anything changed; an unchanged question is
// not worth a second translation round-trip.
func expandSynonyms(question string) (string, bool) {
	words := strings.Fields(question)
	changed := false

	for i, w := range words {
		lower := strings.ToLower(strings.Trim(w, ".,;:?!\"'"))
		if repl, ok := synonyms[lower]; ok {
			words[i] = repl
			changed = true
		}
	}

	if !changed {
		return question, false
	}
	return strings.Join(words, " "), true
}

// Package cache provides the answer cache: normalized question + filters +
// document scope mapped to a previously computed answer, with TTL expiry and
// bounded eviction. A miss is always safe; callers recompute.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/doclens/doclens/internal/models"
)

// AnswerCache is the storage interface shared by the memory and Redis
// backends. Get returns ok=false on miss, expiry, or any backend failure.
type AnswerCache interface {
	Get(ctx context.Context, key string) (*models.Answer, bool)
	Set(ctx context.Context, key string, answer *models.Answer)
}

// Key derives the cache key from the normalized question text, the non-null
// filter values, and the document scope. Filters with nil values are dropped
// before hashing, so two requests differing only in an absent-vs-null filter
// share a key, while a present value always produces a distinct one.
func Key(tenantID, question string, filters map[string]any, scope []string) string {
	var b strings.Builder

	b.WriteString(tenantID)
	b.WriteByte('\n')
	b.WriteString(normalizeQuestion(question))
	b.WriteByte('\n')

	keys := make([]string, 0, len(filters))
	for k, v := range filters {
		if v == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%v\n", k, filters[k])
	}

	scoped := append([]string(nil), scope...)
	sort.Strings(scoped)
	for _, id := range scoped {
		b.WriteString("doc:")
		b.WriteString(id)
		b.WriteByte('\n')
	}

	sum := sha256.Sum256([]byte(b.String()))

	return hex.EncodeToString(sum[:])
}

// normalizeQuestion lowercases and collapses runs of whitespace so trivially
// reworded questions share a cache entry.
func normalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

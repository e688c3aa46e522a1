package store_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/doclens/doclens/internal/dbpool"
	"github.com/doclens/doclens/internal/store"
)

// testEnv holds shared test infrastructure (single pool across all tests).
type testEnv struct {
	pool *dbpool.Pool
	log  *logrus.Logger
}

var sharedEnv *testEnv

func getTestEnv(t *testing.T) *testEnv {
	t.Helper()

	if sharedEnv != nil {
		return sharedEnv
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	pool, err := dbpool.NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("connecting to test DB: %v", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	sharedEnv = &testEnv{
		pool: pool,
		log:  log,
	}

	return sharedEnv
}

// setupTestBase creates a Base with a fresh test tenant, cleaned up after the test.
func setupTestBase(t *testing.T) (_ store.Base, _ string) {
	t.Helper()

	env := getTestEnv(t)
	tenantID := uuid.New().String()
	ctx := context.Background()

	apiKey := "test-key-" + tenantID
	hash := sha256.Sum256([]byte(apiKey))
	apiKeyHash := hex.EncodeToString(hash[:])

	_, err := env.pool.Exec(ctx,
		"INSERT INTO tenants (id, name, api_key_hash) VALUES ($1, $2, $3)",
		tenantID, fmt.Sprintf("test-tenant-%s", tenantID[:8]), apiKeyHash,
	)
	if err != nil {
		t.Fatalf("creating test tenant: %v", err)
	}

	t.Cleanup(func() {
		cleanCtx := context.Background()
		// Delete in dependency order: extracted fields, documents, mappings, tenant.
		env.pool.Exec(cleanCtx, "DELETE FROM extracted_fields WHERE tenant_id = $1", tenantID)         //nolint:errcheck // best-effort cleanup
		env.pool.Exec(cleanCtx, "DELETE FROM documents WHERE tenant_id = $1", tenantID)                //nolint:errcheck // best-effort cleanup
		env.pool.Exec(cleanCtx, "DELETE FROM canonical_field_mappings WHERE tenant_id = $1", tenantID) //nolint:errcheck // best-effort cleanup
		env.pool.Exec(cleanCtx, "DELETE FROM tenants WHERE id = $1", tenantID)                         //nolint:errcheck // best-effort cleanup
	})

	base := store.Base{Pool: env.pool, Log: env.log}

	return base, tenantID
}

// insertDocument seeds one document row directly.
func insertDocument(
	t *testing.T, tenantID, templateName, title string, fields map[string]any, documentDate time.Time,
) string {
	t.Helper()

	env := getTestEnv(t)
	id := uuid.New().String()

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshalling fields: %v", err)
	}

	_, err = env.pool.Exec(context.Background(),
		`INSERT INTO documents (id, tenant_id, template_name, title, fields, document_date)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, tenantID, templateName, title, fieldsJSON, documentDate,
	)
	if err != nil {
		t.Fatalf("inserting test document: %v", err)
	}

	return id
}

// insertExtractedField seeds one extraction confidence record.
func insertExtractedField(t *testing.T, tenantID, documentID, templateName, fieldName, fieldValue string, confidence float64) {
	t.Helper()

	env := getTestEnv(t)

	_, err := env.pool.Exec(context.Background(),
		`INSERT INTO extracted_fields (id, tenant_id, document_id, template_name, field_name, field_value, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New().String(), tenantID, documentID, templateName, fieldName, fieldValue, confidence,
	)
	if err != nil {
		t.Fatalf("inserting extracted field: %v", err)
	}
}

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/doclens/doclens/internal/models"
	"github.com/doclens/doclens/internal/store"
)

func TestCanonicalMappingCRUD(t *testing.T) {
	base, tenantID := setupTestBase(t)

	s := store.NewCanonicalStore(base)
	ctx := context.Background()

	created, err := s.CreateMapping(ctx, tenantID, models.CanonicalFieldMapping{
		CanonicalName:   "shipping_cost",
		FieldMappings:   map[string]string{"Invoice": "shipping_total", "Receipt": "delivery_fee"},
		AggregationType: models.AggSum,
		Aliases:         []string{"freight"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.IsSystem || !created.IsActive {
		t.Errorf("created = %+v", created)
	}

	t.Run("list includes system and tenant rows", func(t *testing.T) {
		mappings, err := s.ListMappings(ctx, tenantID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}

		var sawOwn, sawSystem bool
		for _, m := range mappings {
			if m.ID == created.ID {
				sawOwn = true
			}
			if m.IsSystem {
				sawSystem = true
			}
		}
		if !sawOwn || !sawSystem {
			t.Errorf("sawOwn=%v sawSystem=%v over %d mappings", sawOwn, sawSystem, len(mappings))
		}
	})

	t.Run("update", func(t *testing.T) {
		created.Aliases = append(created.Aliases, "postage")

		updated, err := s.UpdateMapping(ctx, tenantID, *created)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if len(updated.Aliases) != 2 {
			t.Errorf("aliases = %v", updated.Aliases)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.DeleteMapping(ctx, tenantID, created.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := s.DeleteMapping(ctx, tenantID, created.ID); !errors.Is(err, models.ErrMappingNotFound) {
			t.Errorf("second delete err = %v, want ErrMappingNotFound", err)
		}
	})
}

func TestCanonicalMappingDuplicateName(t *testing.T) {
	base, tenantID := setupTestBase(t)

	s := store.NewCanonicalStore(base)
	ctx := context.Background()

	m := models.CanonicalFieldMapping{
		CanonicalName:   "handling_fee",
		FieldMappings:   map[string]string{"Invoice": "handling"},
		AggregationType: models.AggSum,
	}

	if _, err := s.CreateMapping(ctx, tenantID, m); err != nil {
		t.Fatalf("first create: %v", err)
	}

	if _, err := s.CreateMapping(ctx, tenantID, m); !errors.Is(err, models.ErrDuplicateKey) {
		t.Errorf("duplicate create err = %v, want ErrDuplicateKey", err)
	}
}

func TestLowConfidenceFields(t *testing.T) {
	base, tenantID := setupTestBase(t)

	docID := insertDocument(t, tenantID, "Invoice", "Acme invoice", map[string]any{
		"vendor_name": "Acme Corp",
	}, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))

	insertExtractedField(t, tenantID, docID, "Invoice", "vendor_name", "Acme Corp", 0.45)
	insertExtractedField(t, tenantID, docID, "Invoice", "invoice_total", "1500", 0.95)

	s := store.NewExtractionStore(base)

	items, err := s.LowConfidenceFields(context.Background(), tenantID, []string{docID}, 0.7)
	if err != nil {
		t.Fatalf("low-confidence fields: %v", err)
	}

	if len(items) != 1 || items[0].FieldName != "vendor_name" || items[0].Confidence != 0.45 {
		t.Errorf("items = %+v, want only the low-confidence vendor_name", items)
	}
}

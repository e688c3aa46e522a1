package aggregate

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/doclens/doclens/internal/models"
)

// periodStore serves different field values depending on the date filter.
func periodStore(byFrom map[string][]models.FieldValue) *mockDocumentStore {
	return &mockDocumentStore{
		fieldValues: func(_ context.Context, _ string, _ []string, filters models.SearchFilters) ([]models.FieldValue, error) {
			if filters.DateFrom == nil {
				return nil, nil
			}
			return byFrom[filters.DateFrom.Format(time.DateOnly)], nil
		},
	}
}

func values(field string, nums ...float64) []models.FieldValue {
	out := make([]models.FieldValue, len(nums))
	for i, n := range nums {
		out[i] = models.FieldValue{Field: field, Value: n}
	}
	return out
}

func TestComparePeriods(t *testing.T) {
	// Period 1 sums to 15234.50 over 45 values; period 2 to 12450.00 over 38.
	p1 := values("invoice_total", 15234.50-44*100)
	for i := 0; i < 44; i++ {
		p1 = append(p1, models.FieldValue{Field: "invoice_total", Value: 100.0})
	}
	p2 := values("invoice_total", 12450.00-37*100)
	for i := 0; i < 37; i++ {
		p2 = append(p2, models.FieldValue{Field: "invoice_total", Value: 100.0})
	}

	store := periodStore(map[string][]models.FieldValue{
		"2025-04-01": p1,
		"2025-01-01": p2,
	})
	c := NewComparer(NewEngine(store, &mockResolver{}, testLogger()), testLogger())

	result, err := c.ComparePeriods(context.Background(), "t1", models.ComparisonSpec{
		Mode:    models.ComparePeriods,
		Field:   "invoice_total",
		AggType: models.AggSum,
		Period1: &models.PeriodRange{
			Name: "Q2",
			From: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		},
		Period2: &models.PeriodRange{
			Name: "Q1",
			From: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	}, models.SearchFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(result.Period1.Value-15234.50) > 1e-6 || result.Period1.Count != 45 {
		t.Errorf("period1 = %+v", result.Period1)
	}
	if math.Abs(result.Period2.Value-12450.00) > 1e-6 || result.Period2.Count != 38 {
		t.Errorf("period2 = %+v", result.Period2)
	}

	if math.Abs(result.Change.Absolute-2784.50) > 1e-6 {
		t.Errorf("absolute = %v, want 2784.50", result.Change.Absolute)
	}
	if result.Change.Percentage == nil || math.Abs(*result.Change.Percentage-22.37) > 0.01 {
		t.Errorf("percentage = %v, want ~22.37", result.Change.Percentage)
	}
	if result.Change.Trend != models.TrendUp {
		t.Errorf("trend = %q, want up", result.Change.Trend)
	}
}

func TestClassifyChange_ZeroBaseline(t *testing.T) {
	tests := []struct {
		name      string
		v1, v2    float64
		wantTrend string
		wantPct   *float64
	}{
		{name: "both zero is flat at 0%", v1: 0, v2: 0, wantTrend: models.TrendFlat, wantPct: ptr(0.0)},
		{name: "growth from zero has no percentage", v1: 100, v2: 0, wantTrend: models.TrendUp, wantPct: nil},
		{name: "drop to negative from zero", v1: -5, v2: 0, wantTrend: models.TrendDown, wantPct: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			change := classifyChange(tc.v1, tc.v2)
			if change.Trend != tc.wantTrend {
				t.Errorf("trend = %q, want %q", change.Trend, tc.wantTrend)
			}
			if (change.Percentage == nil) != (tc.wantPct == nil) {
				t.Errorf("percentage = %v, want %v", change.Percentage, tc.wantPct)
			}
			if change.Percentage != nil && tc.wantPct != nil && *change.Percentage != *tc.wantPct {
				t.Errorf("percentage = %v, want %v", *change.Percentage, *tc.wantPct)
			}
		})
	}
}

func TestClassifyChange_Down(t *testing.T) {
	change := classifyChange(80, 100)

	if change.Trend != models.TrendDown {
		t.Errorf("trend = %q, want down", change.Trend)
	}
	if change.Percentage == nil || math.Abs(*change.Percentage+20) > 1e-9 {
		t.Errorf("percentage = %v, want -20", change.Percentage)
	}
}

func TestCompareGroups(t *testing.T) {
	store := &mockDocumentStore{
		fieldValues: func(_ context.Context, _ string, _ []string, filters models.SearchFilters) ([]models.FieldValue, error) {
			switch filters.FieldEquals["vendor"] {
			case "Acme":
				return values("invoice_total", 100, 200), nil
			case "Globex":
				return values("invoice_total", 50), nil
			}
			return nil, nil
		},
	}
	c := NewComparer(NewEngine(store, &mockResolver{}, testLogger()), testLogger())

	result, err := c.CompareGroups(context.Background(), "t1", models.ComparisonSpec{
		Mode:       models.CompareGroups,
		Field:      "invoice_total",
		AggType:    models.AggSum,
		GroupField: "vendor",
		Group1:     "Acme",
		Group2:     "Globex",
	}, models.SearchFilters{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Period1.Value != 300 || result.Period2.Value != 50 {
		t.Errorf("sides = %v / %v", result.Period1.Value, result.Period2.Value)
	}
	if result.Change.Absolute != 250 || result.Change.Trend != models.TrendUp {
		t.Errorf("change = %+v", result.Change)
	}
}

func TestComparePeriods_MissingPeriods(t *testing.T) {
	c := NewComparer(NewEngine(valuesStore(nil), &mockResolver{}, testLogger()), testLogger())

	_, err := c.ComparePeriods(context.Background(), "t1", models.ComparisonSpec{
		Mode:  models.ComparePeriods,
		Field: "invoice_total",
	}, models.SearchFilters{})
	if err == nil {
		t.Error("expected error for missing periods")
	}
}

func ptr(f float64) *float64 { return &f }

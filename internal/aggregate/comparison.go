package aggregate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/doclens/doclens/internal/models"
)

// absoluteEpsilon and percentEpsilon bound what counts as "no change".
const (
	absoluteEpsilon = 1e-9
	percentEpsilon  = 0.001
)

// Comparer computes two-sided comparisons on top of the aggregation engine.
type Comparer struct {
	engine *Engine
	log    *logrus.Logger
}

// NewComparer creates a Comparer.
func NewComparer(engine *Engine, log *logrus.Logger) *Comparer {
	return &Comparer{engine: engine, log: log}
}

// ComparePeriods aggregates the same field over two time windows and
// classifies the change. The two sides run concurrently.
func (c *Comparer) ComparePeriods(
	ctx context.Context, tenantID string, spec models.ComparisonSpec, filters models.SearchFilters,
) (*models.ComparisonResult, error) {
	if spec.Period1 == nil || spec.Period2 == nil {
		return nil, fmt.Errorf("%w: period comparison requires two periods", ErrInvalidSpec)
	}

	aggSpec := c.sideSpec(spec)

	f1 := filters
	f1.DateFrom, f1.DateTo = &spec.Period1.From, &spec.Period1.To
	f2 := filters
	f2.DateFrom, f2.DateTo = &spec.Period2.From, &spec.Period2.To

	side1 := models.PeriodValue{Name: periodName(spec.Period1, "period1"), Range: periodRange(spec.Period1)}
	side2 := models.PeriodValue{Name: periodName(spec.Period2, "period2"), Range: periodRange(spec.Period2)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.runSide(gctx, tenantID, aggSpec, f1, &side1)
	})
	g.Go(func() error {
		return c.runSide(gctx, tenantID, aggSpec, f2, &side2)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.ComparisonResult{
		Period1: side1,
		Period2: side2,
		Change:  classifyChange(side1.Value, side2.Value),
	}, nil
}

// CompareGroups aggregates the same field for two values of a grouping field
// and classifies the change.
func (c *Comparer) CompareGroups(
	ctx context.Context, tenantID string, spec models.ComparisonSpec, filters models.SearchFilters,
) (*models.ComparisonResult, error) {
	if spec.GroupField == "" || spec.Group1 == "" || spec.Group2 == "" {
		return nil, fmt.Errorf("%w: group comparison requires group_field, group1 and group2", ErrInvalidSpec)
	}

	aggSpec := c.sideSpec(spec)

	f1 := filters
	f1.FieldEquals = withFieldEqual(filters.FieldEquals, spec.GroupField, spec.Group1)
	f2 := filters
	f2.FieldEquals = withFieldEqual(filters.FieldEquals, spec.GroupField, spec.Group2)

	side1 := models.PeriodValue{Name: spec.Group1}
	side2 := models.PeriodValue{Name: spec.Group2}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.runSide(gctx, tenantID, aggSpec, f1, &side1)
	})
	g.Go(func() error {
		return c.runSide(gctx, tenantID, aggSpec, f2, &side2)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.ComparisonResult{
		Period1: side1,
		Period2: side2,
		Change:  classifyChange(side1.Value, side2.Value),
	}, nil
}

// Trend returns a date histogram of the field over the filtered range, for
// "over time" questions.
func (c *Comparer) Trend(
	ctx context.Context, tenantID string, spec models.ComparisonSpec, interval string, filters models.SearchFilters,
) (*models.AggregationResult, error) {
	return c.engine.Aggregate(ctx, tenantID, models.AggregationSpec{
		Type:           models.AggDateHistogram,
		Field:          spec.Field,
		CanonicalField: spec.CanonicalField,
		Interval:       interval,
	}, filters)
}

func (c *Comparer) sideSpec(spec models.ComparisonSpec) models.AggregationSpec {
	aggType := spec.AggType
	if aggType == "" {
		aggType = models.AggSum
	}

	return models.AggregationSpec{
		Type:           aggType,
		Field:          spec.Field,
		CanonicalField: spec.CanonicalField,
	}
}

func (c *Comparer) runSide(
	ctx context.Context, tenantID string, spec models.AggregationSpec, filters models.SearchFilters, side *models.PeriodValue,
) error {
	result, err := c.engine.Aggregate(ctx, tenantID, spec, filters)
	if err != nil {
		return fmt.Errorf("aggregating %s: %w", side.Name, err)
	}

	side.Value, side.Count = sideValue(spec.Type, result)

	return nil
}

// sideValue extracts the scalar a comparison side contributes, by
// aggregation type.
func sideValue(aggType string, result *models.AggregationResult) (float64, int64) {
	if result.Stats != nil {
		s := result.Stats
		switch aggType {
		case models.AggAvg:
			return s.Avg, s.Count
		case models.AggMin:
			return s.Min, s.Count
		case models.AggMax:
			return s.Max, s.Count
		case models.AggCount:
			return float64(s.Count), s.Count
		default:
			return s.Sum, s.Count
		}
	}

	if result.Cardinality != nil {
		return float64(*result.Cardinality), *result.Cardinality
	}

	return 0, 0
}

// classifyChange computes absolute and percentage change of value1 against
// the value2 baseline. A zero baseline with a zero absolute change is flat at
// 0%; a zero baseline with a real change has no defined percentage
// (reported as null) and trends by the sign of the absolute change.
func classifyChange(value1, value2 float64) models.Change {
	absolute := value1 - value2

	if value2 == 0 {
		if math.Abs(absolute) <= absoluteEpsilon {
			zero := 0.0
			return models.Change{Absolute: 0, Percentage: &zero, Trend: models.TrendFlat}
		}

		return models.Change{Absolute: absolute, Percentage: nil, Trend: trendOf(absolute)}
	}

	pct := absolute / value2 * 100

	change := models.Change{Absolute: absolute, Percentage: &pct}
	if math.Abs(pct) <= percentEpsilon {
		change.Trend = models.TrendFlat
	} else {
		change.Trend = trendOf(absolute)
	}

	return change
}

func trendOf(absolute float64) string {
	if absolute > 0 {
		return models.TrendUp
	}
	if absolute < 0 {
		return models.TrendDown
	}
	return models.TrendFlat
}

func periodName(p *models.PeriodRange, fallback string) string {
	if p.Name != "" {
		return p.Name
	}
	return fallback
}

func periodRange(p *models.PeriodRange) string {
	return p.From.UTC().Format(time.DateOnly) + ".." + p.To.UTC().Format(time.DateOnly)
}

func withFieldEqual(base map[string]any, field string, value any) map[string]any {
	out := make(map[string]any, len(base)+1)
	for k, v := range base {
		out[k] = v
	}
	out[field] = value
	return out
}

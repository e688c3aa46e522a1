package aggregate

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/doclens/doclens/internal/models"
)

// Supported date histogram intervals.
const (
	IntervalDay     = "day"
	IntervalWeek    = "week"
	IntervalMonth   = "month"
	IntervalQuarter = "quarter"
	IntervalYear    = "year"
)

// dateHistogramResult buckets date values by a fixed interval. Buckets are
// contiguous from the earliest to the latest observed period, with empty
// periods zero-filled so charts render gap-free.
func dateHistogramResult(spec *models.AggregationSpec, values []models.FieldValue) (*models.AggregationResult, error) {
	interval := spec.Interval
	if interval == "" {
		interval = IntervalMonth
	}

	switch interval {
	case IntervalDay, IntervalWeek, IntervalMonth, IntervalQuarter, IntervalYear:
	default:
		return nil, fmt.Errorf("%w: unsupported interval %q", ErrInvalidSpec, spec.Interval)
	}

	counts := map[time.Time]int64{}
	for _, v := range values {
		ts, ok := toTime(v.Value)
		if !ok {
			continue
		}
		counts[truncateTo(ts, interval)]++
	}

	if len(counts) == 0 {
		return &models.AggregationResult{Type: models.AggDateHistogram, Buckets: []models.Bucket{}}, nil
	}

	starts := make([]time.Time, 0, len(counts))
	for t := range counts {
		starts = append(starts, t)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	var buckets []models.Bucket
	for t := starts[0]; !t.After(starts[len(starts)-1]); t = nextPeriod(t, interval) {
		buckets = append(buckets, models.Bucket{
			Key:         strconv.FormatInt(t.UnixMilli(), 10),
			KeyAsString: formatPeriod(t, interval),
			DocCount:    counts[t],
		})
	}

	return &models.AggregationResult{Type: models.AggDateHistogram, Buckets: buckets}, nil
}

// truncateTo snaps a timestamp to the start of its period, in UTC.
func truncateTo(ts time.Time, interval string) time.Time {
	ts = ts.UTC()

	switch interval {
	case IntervalDay:
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	case IntervalWeek:
		// ISO weeks start on Monday.
		offset := (int(ts.Weekday()) + 6) % 7
		d := ts.AddDate(0, 0, -offset)
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	case IntervalMonth:
		return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
	case IntervalQuarter:
		q := (int(ts.Month()) - 1) / 3
		return time.Date(ts.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
	case IntervalYear:
		return time.Date(ts.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return ts
	}
}

func nextPeriod(t time.Time, interval string) time.Time {
	switch interval {
	case IntervalDay:
		return t.AddDate(0, 0, 1)
	case IntervalWeek:
		return t.AddDate(0, 0, 7)
	case IntervalMonth:
		return t.AddDate(0, 1, 0)
	case IntervalQuarter:
		return t.AddDate(0, 3, 0)
	case IntervalYear:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}

func formatPeriod(t time.Time, interval string) string {
	switch interval {
	case IntervalDay, IntervalWeek:
		return t.Format("2006-01-02")
	case IntervalMonth:
		return t.Format("2006-01")
	case IntervalQuarter:
		return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
	case IntervalYear:
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}

// toTime coerces common value shapes into a timestamp: time.Time, RFC 3339
// strings, bare dates, and epoch milliseconds.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	case float64:
		// Epoch milliseconds, the shape JSON numbers arrive in.
		return time.UnixMilli(int64(t)), true
	case int64:
		return time.UnixMilli(t), true
	default:
		return time.Time{}, false
	}
}

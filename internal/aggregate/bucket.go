package aggregate

import (
	"sort"
	"time"

	"github.com/postpulse/postpulse/internal/domain"
)

// BucketByPeriod groups items into time buckets of the given width and
// computes per-bucket sentiment ratios. Items must already be scoped to one
// subject and validated by the caller.
//
// Bucket boundaries are UTC: day buckets start at midnight, week buckets on
// Monday 00:00, month buckets on the 1st. Only buckets with at least one item
// are materialized, so ratios never divide by zero. The result is sorted
// ascending by period start, which downstream charting relies on.
func BucketByPeriod(items []domain.ClassifiedItem, period domain.Period) []domain.TimeBucket {
	type counts struct {
		total    int
		positive int
		neutral  int
		negative int
	}

	groups := make(map[time.Time]*counts)
	for _, item := range items {
		start := truncateToPeriod(item.CreatedAt, period)
		c, ok := groups[start]
		if !ok {
			c = &counts{}
			groups[start] = c
		}
		c.total++
		switch item.Label {
		case domain.LabelPositive:
			c.positive++
		case domain.LabelNeutral:
			c.neutral++
		case domain.LabelNegative:
			c.negative++
		}
	}

	buckets := make([]domain.TimeBucket, 0, len(groups))
	for start, c := range groups {
		total := float64(c.total)
		buckets = append(buckets, domain.TimeBucket{
			PeriodStart:   start,
			PeriodEnd:     nextPeriod(start, period),
			TotalCount:    c.total,
			PositiveRatio: float64(c.positive) / total,
			NeutralRatio:  float64(c.neutral) / total,
			NegativeRatio: float64(c.negative) / total,
		})
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].PeriodStart.Before(buckets[j].PeriodStart)
	})

	return buckets
}

// truncateToPeriod maps a timestamp to the start of its bucket. Weeks start
// Monday 00:00 UTC.
func truncateToPeriod(t time.Time, period domain.Period) time.Time {
	t = t.UTC()
	switch period {
	case domain.PeriodWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		// time.Weekday numbers Sunday as 0; shift so Monday is the origin.
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case domain.PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

func nextPeriod(start time.Time, period domain.Period) time.Time {
	switch period {
	case domain.PeriodWeek:
		return start.AddDate(0, 0, 7)
	case domain.PeriodMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

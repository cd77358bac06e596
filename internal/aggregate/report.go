package aggregate

import (
	"sort"

	"github.com/postpulse/postpulse/internal/domain"
)

// BuildReport computes the overall summary counts for one subject's items and
// selects the topN highest-scoring exemplars per label.
//
// Within a label, items sort by score descending. Equal scores tie-break on
// the later CreatedAt so fresh evidence surfaces first; items still tied keep
// their input order (stable sort). Groups smaller than topN come back short,
// never padded. Empty input yields a zero summary and empty lists.
func BuildReport(items []domain.ClassifiedItem, topN int) domain.SentimentReport {
	report := domain.SentimentReport{
		TopPositive: []domain.ClassifiedItem{},
		TopNeutral:  []domain.ClassifiedItem{},
		TopNegative: []domain.ClassifiedItem{},
	}

	var positive, neutral, negative []domain.ClassifiedItem
	for _, item := range items {
		switch item.Label {
		case domain.LabelPositive:
			positive = append(positive, item)
		case domain.LabelNeutral:
			neutral = append(neutral, item)
		case domain.LabelNegative:
			negative = append(negative, item)
		}
	}

	report.Summary = domain.SentimentSummary{
		Positive: len(positive),
		Neutral:  len(neutral),
		Negative: len(negative),
	}
	report.TopPositive = topItems(positive, topN)
	report.TopNeutral = topItems(neutral, topN)
	report.TopNegative = topItems(negative, topN)

	return report
}

func topItems(items []domain.ClassifiedItem, topN int) []domain.ClassifiedItem {
	if topN < 0 {
		topN = 0
	}

	sorted := make([]domain.ClassifiedItem, len(items))
	copy(sorted, items)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	if len(sorted) > topN {
		sorted = sorted[:topN]
	}
	return sorted
}

package classifier

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/jonreiter/govader"

	"github.com/postpulse/postpulse/internal/domain"
	"github.com/postpulse/postpulse/internal/metrics"
)

// Compound-score cutoffs for mapping VADER output onto the label enum.
const (
	positiveThreshold = 0.20
	negativeThreshold = -0.20
)

var (
	markdownLinkPattern = regexp.MustCompile(`\[(.*?)\]\((https?://[^\s)]+\)?)`)
	urlPattern          = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

// Vader classifies text locally with the VADER rule-based analyzer. No network
// access, no model download; scores are signed compound values in [-1, 1].
type Vader struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVader() *Vader {
	return &Vader{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *Vader) Classify(_ context.Context, texts []string) ([]domain.Prediction, error) {
	start := time.Now()
	predictions := make([]domain.Prediction, len(texts))
	for i, text := range texts {
		scores := v.analyzer.PolarityScores(stripLinks(text))
		predictions[i] = domain.Prediction{
			Label: labelForCompound(scores.Compound),
			Score: scores.Compound,
		}
	}
	metrics.ClassifyDuration.WithLabelValues("vader", "ok").Observe(time.Since(start).Seconds())
	return predictions, nil
}

func labelForCompound(compound float64) domain.Label {
	switch {
	case compound >= positiveThreshold:
		return domain.LabelPositive
	case compound <= negativeThreshold:
		return domain.LabelNegative
	default:
		return domain.LabelNeutral
	}
}

// stripLinks removes URLs before scoring; raw links skew the lexicon lookup.
func stripLinks(text string) string {
	text = markdownLinkPattern.ReplaceAllString(text, "$1")
	text = urlPattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

package domain

import "fmt"

// Label is a sentiment class assigned by the classifier.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

// ParseLabel validates a raw label value from an untrusted boundary (storage
// row, classifier response, query parameter).
func ParseLabel(s string) (Label, error) {
	switch Label(s) {
	case LabelPositive, LabelNeutral, LabelNegative:
		return Label(s), nil
	}
	return "", fmt.Errorf("%w: unknown label %q", ErrInvalidItem, s)
}

// Kind distinguishes original posts from replies.
type Kind string

const (
	KindPost  Kind = "post"
	KindReply Kind = "reply"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPost, KindReply:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidItem, s)
}

// Period selects the bucket width for timeline aggregation. Week buckets start
// Monday 00:00 UTC.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return Period(s), nil
	}
	return "", fmt.Errorf("invalid period %q (want day, week or month)", s)
}

// Scores are signed polarity values: the remote model emits confidences in
// [0, 1], VADER emits compound scores in [-1, 1]. Both rank by descending score.
const (
	MinScore = -1.0
	MaxScore = 1.0
)

// Validate checks the fields the aggregation core relies on. It runs where
// items are constructed, never inside aggregation.
func (i ClassifiedItem) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("%w: empty item id", ErrInvalidItem)
	}
	if _, err := ParseLabel(string(i.Label)); err != nil {
		return err
	}
	if _, err := ParseKind(string(i.Kind)); err != nil {
		return err
	}
	if i.Score < MinScore || i.Score > MaxScore {
		return fmt.Errorf("%w: score %v outside [%v, %v]", ErrInvalidItem, i.Score, MinScore, MaxScore)
	}
	return nil
}

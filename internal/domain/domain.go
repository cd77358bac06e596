package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// --- Model types ---

// ClassifiedItem is one analyzed post or reply. Label and Score are assigned
// once by the classifier and never rewritten; a fresh analysis run produces
// fresh items instead.
type ClassifiedItem struct {
	ID            string    `json:"id" db:"id"`
	RunID         uuid.UUID `json:"run_id" db:"run_id"`
	SubjectHandle string    `json:"subject_handle" db:"subject_handle"`
	Kind          Kind      `json:"kind" db:"kind"`
	Text          string    `json:"text" db:"text"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	Label         Label     `json:"label" db:"label"`
	Score         float64   `json:"score" db:"score"`
}

// AnalysisRun groups the batch of items produced by one invocation against one
// subject. The summary counters are written exactly once when the run
// completes and are immutable afterwards.
type AnalysisRun struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	SubjectHandle  string     `json:"subject_handle" db:"subject_handle"`
	RequestedCount int        `json:"requested_count" db:"requested_count"`
	ItemCount      int        `json:"item_count" db:"item_count"`
	PositiveCount  int        `json:"positive_count" db:"positive_count"`
	NeutralCount   int        `json:"neutral_count" db:"neutral_count"`
	NegativeCount  int        `json:"negative_count" db:"negative_count"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// TimeBucket is a derived aggregate over the items whose CreatedAt falls in
// [PeriodStart, PeriodEnd). Buckets reference items, they never copy or mutate
// them.
type TimeBucket struct {
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	TotalCount    int       `json:"total_count"`
	PositiveRatio float64   `json:"positive_ratio"`
	NeutralRatio  float64   `json:"neutral_ratio"`
	NegativeRatio float64   `json:"negative_ratio"`
}

// SentimentSummary holds raw per-label counts so callers can derive either
// counts or ratios.
type SentimentSummary struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// SentimentReport is the derived top-N view over one subject's items.
type SentimentReport struct {
	Summary     SentimentSummary `json:"summary"`
	TopPositive []ClassifiedItem `json:"top_positive"`
	TopNeutral  []ClassifiedItem `json:"top_neutral"`
	TopNegative []ClassifiedItem `json:"top_negative"`
}

// Prediction is one classifier output for one input text.
type Prediction struct {
	Label Label
	Score float64
}

// RawItem is an unclassified post or reply as returned by the source API.
type RawItem struct {
	ID        string
	Author    string
	Kind      Kind
	Text      string
	CreatedAt time.Time
}

// --- Interfaces ---

// Classifier assigns a sentiment label and score to each input text.
// Implementations must return exactly one prediction per input, in order.
type Classifier interface {
	Classify(ctx context.Context, texts []string) ([]Prediction, error)
}

// SourceClient fetches a subject's posts and their replies from the scrape API.
type SourceClient interface {
	FetchPosts(ctx context.Context, handle string, limit int) ([]RawItem, error)
	FetchReplies(ctx context.Context, postID string, limit int) ([]RawItem, error)
}

// RunRepository abstracts analysis run persistence.
type RunRepository interface {
	Create(ctx context.Context, subjectHandle string, requestedCount int) (*AnalysisRun, error)
	CompleteSummary(ctx context.Context, runID uuid.UUID, itemCount int, summary SentimentSummary) (*AnalysisRun, error)
	GetByID(ctx context.Context, runID uuid.UUID) (*AnalysisRun, error)
	GetLatestBySubject(ctx context.Context, subjectHandle string) (*AnalysisRun, error)
	ListBySubject(ctx context.Context, subjectHandle string) ([]AnalysisRun, error)
}

// ItemFilter narrows item queries. Zero values mean "no filter".
type ItemFilter struct {
	Label Label
	Kind  Kind
	Limit int
}

// ItemRepository abstracts classified item persistence. Implementations
// validate items on the way out (scan boundary) so the aggregation core can
// assume a validated collection.
type ItemRepository interface {
	InsertBatch(ctx context.Context, items []ClassifiedItem) (int, error)
	ListBySubject(ctx context.Context, subjectHandle string) ([]ClassifiedItem, error)
	ListByRun(ctx context.Context, runID uuid.UUID, filter ItemFilter) ([]ClassifiedItem, error)
	TopBySubject(ctx context.Context, subjectHandle string, label Label, limit int) ([]ClassifiedItem, error)
}

// TimelineCache stores computed bucket series keyed by subject, period and
// snapshot version. A cache miss is (nil, false, nil), never an error.
type TimelineCache interface {
	Get(ctx context.Context, subjectHandle string, period Period, snapshot uuid.UUID) ([]TimeBucket, bool, error)
	Set(ctx context.Context, subjectHandle string, period Period, snapshot uuid.UUID, buckets []TimeBucket) error
}

// AppService is the application layer contract. HTTP handlers route all
// operations through here.
type AppService interface {
	RunAnalysis(ctx context.Context, subjectHandle string, maxItems int, force bool) (*AnalysisRun, *SentimentReport, error)
	Timeline(ctx context.Context, subjectHandle string, period Period) ([]TimeBucket, error)
	Report(ctx context.Context, subjectHandle string, topN int) (*SentimentReport, error)
	TopItems(ctx context.Context, subjectHandle string, label Label, limit int) ([]ClassifiedItem, error)
	ListRuns(ctx context.Context, subjectHandle string) ([]AnalysisRun, error)
	RunItems(ctx context.Context, runID uuid.UUID, filter ItemFilter) ([]ClassifiedItem, error)
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/postpulse/postpulse/internal/aggregate"
	"github.com/postpulse/postpulse/internal/domain"
	apperrors "github.com/postpulse/postpulse/internal/errors"
	"github.com/postpulse/postpulse/internal/logging"
	"github.com/postpulse/postpulse/internal/metrics"
)

// Service implements domain.AppService. It owns the fetch-classify-persist
// flow and the read paths on top of the stored items. All asynchronous work
// (scraping, classification) happens before the single synchronous call into
// the aggregation core.
type Service struct {
	runs           domain.RunRepository
	items          domain.ItemRepository
	cache          domain.TimelineCache
	classifier     domain.Classifier
	source         domain.SourceClient
	clock          clockwork.Clock
	repliesPerPost int
	topN           int
}

func NewService(
	runs domain.RunRepository,
	items domain.ItemRepository,
	cache domain.TimelineCache,
	classifier domain.Classifier,
	source domain.SourceClient,
	clock clockwork.Clock,
	repliesPerPost, topN int,
) *Service {
	return &Service{
		runs:           runs,
		items:          items,
		cache:          cache,
		classifier:     classifier,
		source:         source,
		clock:          clock,
		repliesPerPost: repliesPerPost,
		topN:           topN,
	}
}

// RunAnalysis fetches a subject's recent posts and replies, classifies them
// and persists the batch as one analysis run. A subject already analyzed
// within the current UTC day is not re-fetched unless force is set; the
// existing run and its report come back instead.
func (s *Service) RunAnalysis(ctx context.Context, subjectHandle string, maxItems int, force bool) (*domain.AnalysisRun, *domain.SentimentReport, error) {
	log := logging.WithSubject(subjectHandle)

	if !force {
		latest, err := s.runs.GetLatestBySubject(ctx, subjectHandle)
		switch {
		case errors.Is(err, domain.ErrSubjectNotFound):
			// first analysis for this subject
		case err != nil:
			return nil, nil, fmt.Errorf("failed to look up latest run: %w", err)
		case sameUTCDay(latest.CreatedAt, s.clock.Now()):
			if latest.CompletedAt == nil {
				return nil, nil, domain.ErrRunInProgress
			}
			log.Info("Reusing today's analysis run", "run_id", latest.ID)
			report, err := s.reportForRun(ctx, latest.ID)
			if err != nil {
				return nil, nil, err
			}
			return latest, report, nil
		}
	}

	raw, err := s.fetchItems(ctx, subjectHandle, maxItems)
	if err != nil {
		metrics.AnalysisRunsTotal.WithLabelValues("fetch_error").Inc()
		return nil, nil, err
	}

	classified, err := s.classifyItems(ctx, subjectHandle, raw)
	if err != nil {
		metrics.AnalysisRunsTotal.WithLabelValues("classify_error").Inc()
		return nil, nil, err
	}

	run, err := s.runs.Create(ctx, subjectHandle, maxItems)
	if err != nil {
		metrics.AnalysisRunsTotal.WithLabelValues("store_error").Inc()
		return nil, nil, fmt.Errorf("failed to create run: %w", err)
	}
	for i := range classified {
		classified[i].RunID = run.ID
	}

	inserted, err := s.items.InsertBatch(ctx, classified)
	if err != nil {
		metrics.AnalysisRunsTotal.WithLabelValues("store_error").Inc()
		return nil, nil, fmt.Errorf("failed to store items: %w", err)
	}
	if inserted < len(classified) {
		log.Info("Skipped previously stored items", "skipped", len(classified)-inserted)
	}

	report := aggregate.BuildReport(classified, s.topN)
	completed, err := s.runs.CompleteSummary(ctx, run.ID, len(classified), report.Summary)
	if err != nil {
		metrics.AnalysisRunsTotal.WithLabelValues("store_error").Inc()
		return nil, nil, fmt.Errorf("failed to complete run: %w", err)
	}

	metrics.AnalysisRunsTotal.WithLabelValues("ok").Inc()
	log.Info("Analysis run completed", "run_id", completed.ID, "items", completed.ItemCount)
	return completed, &report, nil
}

func (s *Service) fetchItems(ctx context.Context, subjectHandle string, maxItems int) ([]domain.RawItem, error) {
	posts, err := s.source.FetchPosts(ctx, subjectHandle, maxItems)
	if err != nil {
		if errors.Is(err, domain.ErrSubjectNotFound) {
			return nil, err
		}
		return nil, apperrors.Upstream("failed to fetch posts", err).
			WithField("subject", subjectHandle)
	}

	all := make([]domain.RawItem, 0, len(posts))
	for _, post := range posts {
		all = append(all, post)

		replies, err := s.source.FetchReplies(ctx, post.ID, s.repliesPerPost)
		if err != nil {
			return nil, apperrors.Upstream("failed to fetch replies", err).
				WithField("post_id", post.ID)
		}
		all = append(all, replies...)
	}
	return all, nil
}

func (s *Service) classifyItems(ctx context.Context, subjectHandle string, raw []domain.RawItem) ([]domain.ClassifiedItem, error) {
	if len(raw) == 0 {
		return []domain.ClassifiedItem{}, nil
	}

	texts := make([]string, len(raw))
	for i, r := range raw {
		texts[i] = r.Text
	}

	predictions, err := s.classifier.Classify(ctx, texts)
	if err != nil {
		return nil, apperrors.Upstream("sentiment classification failed", err)
	}
	if len(predictions) != len(raw) {
		return nil, apperrors.Upstream(
			fmt.Sprintf("classifier returned %d predictions for %d texts", len(predictions), len(raw)), nil)
	}

	items := make([]domain.ClassifiedItem, len(raw))
	for i, r := range raw {
		items[i] = domain.ClassifiedItem{
			ID:            r.ID,
			SubjectHandle: subjectHandle,
			Kind:          r.Kind,
			Text:          r.Text,
			CreatedAt:     r.CreatedAt,
			Label:         predictions[i].Label,
			Score:         predictions[i].Score,
		}
		if err := items[i].Validate(); err != nil {
			return nil, err
		}
		metrics.ItemsClassifiedTotal.WithLabelValues(string(items[i].Label)).Inc()
	}
	return items, nil
}

// Timeline returns the bucketed sentiment series for a subject, consulting
// the cache first. The cache key carries the latest run ID as snapshot
// version, so results stay consistent with the newest completed run.
func (s *Service) Timeline(ctx context.Context, subjectHandle string, period domain.Period) ([]domain.TimeBucket, error) {
	latest, err := s.runs.GetLatestBySubject(ctx, subjectHandle)
	if err != nil {
		return nil, err
	}

	if cached, ok, err := s.cache.Get(ctx, subjectHandle, period, latest.ID); err == nil && ok {
		return cached, nil
	}

	items, err := s.items.ListBySubject(ctx, subjectHandle)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	buckets := aggregate.BucketByPeriod(items, period)

	if err := s.cache.Set(ctx, subjectHandle, period, latest.ID, buckets); err != nil {
		slog.Warn("Failed to cache timeline",
			"subject_handle", subjectHandle, "period", period, "error", err)
	}

	return buckets, nil
}

// Report builds the top-N sentiment report over all of a subject's stored items.
func (s *Service) Report(ctx context.Context, subjectHandle string, topN int) (*domain.SentimentReport, error) {
	if _, err := s.runs.GetLatestBySubject(ctx, subjectHandle); err != nil {
		return nil, err
	}

	items, err := s.items.ListBySubject(ctx, subjectHandle)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	if topN <= 0 {
		topN = s.topN
	}
	report := aggregate.BuildReport(items, topN)
	return &report, nil
}

// TopItems returns a subject's highest scoring items for one label, sorted in
// the database rather than in memory.
func (s *Service) TopItems(ctx context.Context, subjectHandle string, label domain.Label, limit int) ([]domain.ClassifiedItem, error) {
	if _, err := s.runs.GetLatestBySubject(ctx, subjectHandle); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.topN
	}
	return s.items.TopBySubject(ctx, subjectHandle, label, limit)
}

func (s *Service) ListRuns(ctx context.Context, subjectHandle string) ([]domain.AnalysisRun, error) {
	return s.runs.ListBySubject(ctx, subjectHandle)
}

func (s *Service) RunItems(ctx context.Context, runID uuid.UUID, filter domain.ItemFilter) ([]domain.ClassifiedItem, error) {
	if _, err := s.runs.GetByID(ctx, runID); err != nil {
		return nil, err
	}
	return s.items.ListByRun(ctx, runID, filter)
}

func (s *Service) reportForRun(ctx context.Context, runID uuid.UUID) (*domain.SentimentReport, error) {
	items, err := s.items.ListByRun(ctx, runID, domain.ItemFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load run items: %w", err)
	}
	report := aggregate.BuildReport(items, s.topN)
	return &report, nil
}

func sameUTCDay(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

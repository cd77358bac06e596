package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postpulse/postpulse/internal/config"
	"github.com/postpulse/postpulse/internal/domain"
	apperrors "github.com/postpulse/postpulse/internal/errors"
)

type stubApp struct {
	runAnalysis func(ctx context.Context, handle string, maxItems int, force bool) (*domain.AnalysisRun, *domain.SentimentReport, error)
	timeline    func(ctx context.Context, handle string, period domain.Period) ([]domain.TimeBucket, error)
	report      func(ctx context.Context, handle string, topN int) (*domain.SentimentReport, error)
	topItems    func(ctx context.Context, handle string, label domain.Label, limit int) ([]domain.ClassifiedItem, error)
	listRuns    func(ctx context.Context, handle string) ([]domain.AnalysisRun, error)
	runItems    func(ctx context.Context, runID uuid.UUID, filter domain.ItemFilter) ([]domain.ClassifiedItem, error)
}

func (s *stubApp) RunAnalysis(ctx context.Context, handle string, maxItems int, force bool) (*domain.AnalysisRun, *domain.SentimentReport, error) {
	return s.runAnalysis(ctx, handle, maxItems, force)
}

func (s *stubApp) Timeline(ctx context.Context, handle string, period domain.Period) ([]domain.TimeBucket, error) {
	return s.timeline(ctx, handle, period)
}

func (s *stubApp) Report(ctx context.Context, handle string, topN int) (*domain.SentimentReport, error) {
	return s.report(ctx, handle, topN)
}

func (s *stubApp) TopItems(ctx context.Context, handle string, label domain.Label, limit int) ([]domain.ClassifiedItem, error) {
	return s.topItems(ctx, handle, label, limit)
}

func (s *stubApp) ListRuns(ctx context.Context, handle string) ([]domain.AnalysisRun, error) {
	return s.listRuns(ctx, handle)
}

func (s *stubApp) RunItems(ctx context.Context, runID uuid.UUID, filter domain.ItemFilter) ([]domain.ClassifiedItem, error) {
	return s.runItems(ctx, runID, filter)
}

func newTestServer(app domain.AppService) *Server {
	s := &Server{
		echo: echo.New(),
		cfg:  &config.Config{DefaultItemCount: 50, MaxItemCount: 200, TopN: 5},
		app:  app,
		checkDB: func(context.Context) error {
			return nil
		},
		checkRedis: func(context.Context) error {
			return nil
		},
	}
	s.echo.Use(apperrors.Middleware())
	s.registerRoutes()
	return s
}

func doRequest(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func sampleRun(handle string) *domain.AnalysisRun {
	completed := time.Date(2025, 3, 10, 12, 0, 5, 0, time.UTC)
	return &domain.AnalysisRun{
		ID:            uuid.New(),
		SubjectHandle: handle,
		ItemCount:     3,
		PositiveCount: 2,
		NegativeCount: 1,
		CreatedAt:     time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		CompletedAt:   &completed,
	}
}

func TestCreateAnalysis(t *testing.T) {
	var gotHandle string
	var gotMax int
	var gotForce bool

	app := &stubApp{
		runAnalysis: func(_ context.Context, handle string, maxItems int, force bool) (*domain.AnalysisRun, *domain.SentimentReport, error) {
			gotHandle, gotMax, gotForce = handle, maxItems, force
			return sampleRun(handle), &domain.SentimentReport{}, nil
		},
	}
	s := newTestServer(app)

	rec := doRequest(s, http.MethodPost, "/api/analyses",
		`{"handle":"acme","max_items":25,"force":true}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "acme", gotHandle)
	assert.Equal(t, 25, gotMax)
	assert.True(t, gotForce)

	var resp analysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "acme", resp.Run.SubjectHandle)
	assert.Equal(t, 2, resp.Run.PositiveCount)
}

func TestCreateAnalysis_DefaultsAndCapsMaxItems(t *testing.T) {
	var gotMax int
	app := &stubApp{
		runAnalysis: func(_ context.Context, handle string, maxItems int, _ bool) (*domain.AnalysisRun, *domain.SentimentReport, error) {
			gotMax = maxItems
			return sampleRun(handle), &domain.SentimentReport{}, nil
		},
	}
	s := newTestServer(app)

	rec := doRequest(s, http.MethodPost, "/api/analyses", `{"handle":"acme"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 50, gotMax, "zero max_items falls back to the default")

	rec = doRequest(s, http.MethodPost, "/api/analyses", `{"handle":"acme","max_items":9999}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 200, gotMax, "max_items is capped")
}

func TestCreateAnalysis_MissingHandle(t *testing.T) {
	s := newTestServer(&stubApp{})

	rec := doRequest(s, http.MethodPost, "/api/analyses", `{"max_items":10}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp apperrors.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.TypeValidation, resp.Type)
}

func TestCreateAnalysis_UnknownSubject(t *testing.T) {
	app := &stubApp{
		runAnalysis: func(context.Context, string, int, bool) (*domain.AnalysisRun, *domain.SentimentReport, error) {
			return nil, nil, domain.ErrSubjectNotFound
		},
	}
	s := newTestServer(app)

	rec := doRequest(s, http.MethodPost, "/api/analyses", `{"handle":"ghost"}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp apperrors.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.TypeNotFound, resp.Type)
}

func TestCreateAnalysis_SourceOutageMapsTo502(t *testing.T) {
	app := &stubApp{
		runAnalysis: func(context.Context, string, int, bool) (*domain.AnalysisRun, *domain.SentimentReport, error) {
			return nil, nil, apperrors.Upstream("failed to fetch posts", errors.New("connection refused"))
		},
	}
	s := newTestServer(app)

	rec := doRequest(s, http.MethodPost, "/api/analyses", `{"handle":"acme"}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var resp apperrors.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.TypeUpstream, resp.Type)
}

func TestCreateAnalysis_RunInProgressMapsTo409(t *testing.T) {
	app := &stubApp{
		runAnalysis: func(context.Context, string, int, bool) (*domain.AnalysisRun, *domain.SentimentReport, error) {
			return nil, nil, domain.ErrRunInProgress
		},
	}
	s := newTestServer(app)

	rec := doRequest(s, http.MethodPost, "/api/analyses", `{"handle":"acme"}`)

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp apperrors.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.TypeConflict, resp.Type)
}

func TestTimeline(t *testing.T) {
	var gotPeriod domain.Period
	app := &stubApp{
		timeline: func(_ context.Context, _ string, period domain.Period) ([]domain.TimeBucket, error) {
			gotPeriod = period
			start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
			return []domain.TimeBucket{{
				PeriodStart:   start,
				PeriodEnd:     start.AddDate(0, 0, 7),
				TotalCount:    5,
				PositiveRatio: 0.6,
				NeutralRatio:  0.2,
				NegativeRatio: 0.2,
			}}, nil
		},
	}
	s := newTestServer(app)

	rec := doRequest(s, http.MethodGet, "/api/subjects/acme/timeline?period=month", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PeriodMonth, gotPeriod)

	var resp timelineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "acme", resp.SubjectHandle)
	require.Len(t, resp.Buckets, 1)
	assert.Equal(t, 5, resp.Buckets[0].TotalCount)
}

func TestTimeline_DefaultsToWeek(t *testing.T) {
	var gotPeriod domain.Period
	app := &stubApp{
		timeline: func(_ context.Context, _ string, period domain.Period) ([]domain.TimeBucket, error) {
			gotPeriod = period
			return []domain.TimeBucket{}, nil
		},
	}
	s := newTestServer(app)

	rec := doRequest(s, http.MethodGet, "/api/subjects/acme/timeline", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PeriodWeek, gotPeriod)
}

func TestTimeline_InvalidPeriod(t *testing.T) {
	s := newTestServer(&stubApp{})

	rec := doRequest(s, http.MethodGet, "/api/subjects/acme/timeline?period=fortnight", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReport_PassesTopN(t *testing.T) {
	var gotTopN int
	app := &stubApp{
		report: func(_ context.Context, _ string, topN int) (*domain.SentimentReport, error) {
			gotTopN = topN
			return &domain.SentimentReport{
				Summary:     domain.SentimentSummary{Positive: 1},
				TopPositive: []domain.ClassifiedItem{},
				TopNeutral:  []domain.ClassifiedItem{},
				TopNegative: []domain.ClassifiedItem{},
			}, nil
		},
	}
	s := newTestServer(app)

	rec := doRequest(s, http.MethodGet, "/api/subjects/acme/report?top_n=3", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, gotTopN)

	var resp domain.SentimentReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Summary.Positive)
}

func TestReport_InvalidTopN(t *testing.T) {
	s := newTestServer(&stubApp{})

	rec := doRequest(s, http.MethodGet, "/api/subjects/acme/report?top_n=lots", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTopItems(t *testing.T) {
	var gotLabel domain.Label
	var gotLimit int
	app := &stubApp{
		topItems: func(_ context.Context, _ string, label domain.Label, limit int) ([]domain.ClassifiedItem, error) {
			gotLabel, gotLimit = label, limit
			return []domain.ClassifiedItem{{ID: "p1", Text: "great", Label: label, Score: 0.9}}, nil
		},
	}
	s := newTestServer(app)

	rec := doRequest(s, http.MethodGet, "/api/subjects/acme/top?label=positive&limit=3", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.LabelPositive, gotLabel)
	assert.Equal(t, 3, gotLimit)

	var resp itemsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "p1", resp.Items[0].ID)
}

func TestTopItems_InvalidLabel(t *testing.T) {
	s := newTestServer(&stubApp{})

	rec := doRequest(s, http.MethodGet, "/api/subjects/acme/top?label=meh", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRuns(t *testing.T) {
	app := &stubApp{
		listRuns: func(_ context.Context, handle string) ([]domain.AnalysisRun, error) {
			return []domain.AnalysisRun{*sampleRun(handle)}, nil
		},
	}
	s := newTestServer(app)

	rec := doRequest(s, http.MethodGet, "/api/subjects/acme/runs", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp runsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, "acme", resp.Runs[0].SubjectHandle)
}

func TestRunItems_ParsesFilter(t *testing.T) {
	runID := uuid.New()
	var gotID uuid.UUID
	var gotFilter domain.ItemFilter
	app := &stubApp{
		runItems: func(_ context.Context, id uuid.UUID, filter domain.ItemFilter) ([]domain.ClassifiedItem, error) {
			gotID, gotFilter = id, filter
			return []domain.ClassifiedItem{}, nil
		},
	}
	s := newTestServer(app)

	rec := doRequest(s, http.MethodGet,
		"/api/analyses/"+runID.String()+"/items?label=negative&kind=reply&limit=10", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, runID, gotID)
	assert.Equal(t, domain.LabelNegative, gotFilter.Label)
	assert.Equal(t, domain.KindReply, gotFilter.Kind)
	assert.Equal(t, 10, gotFilter.Limit)
}

func TestRunItems_InvalidRunID(t *testing.T) {
	s := newTestServer(&stubApp{})

	rec := doRequest(s, http.MethodGet, "/api/analyses/not-a-uuid/items", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunItems_UnknownRun(t *testing.T) {
	app := &stubApp{
		runItems: func(context.Context, uuid.UUID, domain.ItemFilter) ([]domain.ClassifiedItem, error) {
			return nil, domain.ErrRunNotFound
		},
	}
	s := newTestServer(app)

	rec := doRequest(s, http.MethodGet, "/api/analyses/"+uuid.NewString()+"/items", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

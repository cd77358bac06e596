package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/postpulse/postpulse/internal/domain"
	apperrors "github.com/postpulse/postpulse/internal/errors"
)

type createAnalysisRequest struct {
	Handle   string `json:"handle"`
	MaxItems int    `json:"max_items"`
	Force    bool   `json:"force"`
}

type analysisResponse struct {
	Run    *domain.AnalysisRun     `json:"run"`
	Report *domain.SentimentReport `json:"report"`
}

type timelineResponse struct {
	SubjectHandle string              `json:"subject_handle"`
	Period        domain.Period       `json:"period"`
	Buckets       []domain.TimeBucket `json:"buckets"`
}

type itemsResponse struct {
	Items []domain.ClassifiedItem `json:"items"`
}

type runsResponse struct {
	Runs []domain.AnalysisRun `json:"runs"`
}

func (s *Server) handleCreateAnalysis(c echo.Context) error {
	var req createAnalysisRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid request body")
	}
	if req.Handle == "" {
		return apperrors.Validation("handle is required")
	}
	if req.MaxItems < 0 {
		return apperrors.Validation("max_items must not be negative").
			WithField("max_items", req.MaxItems)
	}
	if req.MaxItems == 0 {
		req.MaxItems = s.cfg.DefaultItemCount
	}
	if req.MaxItems > s.cfg.MaxItemCount {
		req.MaxItems = s.cfg.MaxItemCount
	}

	run, report, err := s.app.RunAnalysis(c.Request().Context(), req.Handle, req.MaxItems, req.Force)
	if err != nil {
		return mapDomainError(err, req.Handle)
	}

	return c.JSON(http.StatusCreated, analysisResponse{Run: run, Report: report})
}

func (s *Server) handleTimeline(c echo.Context) error {
	handle := c.Param("handle")

	period := domain.PeriodWeek
	if raw := c.QueryParam("period"); raw != "" {
		parsed, err := domain.ParsePeriod(raw)
		if err != nil {
			return apperrors.Validation("period must be day, week or month").
				WithField("period", raw)
		}
		period = parsed
	}

	buckets, err := s.app.Timeline(c.Request().Context(), handle, period)
	if err != nil {
		return mapDomainError(err, handle)
	}

	return c.JSON(http.StatusOK, timelineResponse{
		SubjectHandle: handle,
		Period:        period,
		Buckets:       buckets,
	})
}

func (s *Server) handleReport(c echo.Context) error {
	handle := c.Param("handle")

	topN, err := intQueryParam(c, "top_n")
	if err != nil {
		return err
	}

	report, err := s.app.Report(c.Request().Context(), handle, topN)
	if err != nil {
		return mapDomainError(err, handle)
	}

	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleTopItems(c echo.Context) error {
	handle := c.Param("handle")

	label, err := domain.ParseLabel(c.QueryParam("label"))
	if err != nil {
		return apperrors.Validation("label must be positive, neutral or negative").
			WithField("label", c.QueryParam("label"))
	}

	limit, err := intQueryParam(c, "limit")
	if err != nil {
		return err
	}

	items, err := s.app.TopItems(c.Request().Context(), handle, label, limit)
	if err != nil {
		return mapDomainError(err, handle)
	}

	return c.JSON(http.StatusOK, itemsResponse{Items: items})
}

func (s *Server) handleListRuns(c echo.Context) error {
	handle := c.Param("handle")

	runs, err := s.app.ListRuns(c.Request().Context(), handle)
	if err != nil {
		return mapDomainError(err, handle)
	}

	return c.JSON(http.StatusOK, runsResponse{Runs: runs})
}

func (s *Server) handleRunItems(c echo.Context) error {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.Validation("id must be a valid run UUID").
			WithField("id", c.Param("id"))
	}

	var filter domain.ItemFilter
	if raw := c.QueryParam("label"); raw != "" {
		label, err := domain.ParseLabel(raw)
		if err != nil {
			return apperrors.Validation("label must be positive, neutral or negative").
				WithField("label", raw)
		}
		filter.Label = label
	}
	if raw := c.QueryParam("kind"); raw != "" {
		kind, err := domain.ParseKind(raw)
		if err != nil {
			return apperrors.Validation("kind must be post or reply").
				WithField("kind", raw)
		}
		filter.Kind = kind
	}
	if filter.Limit, err = intQueryParam(c, "limit"); err != nil {
		return err
	}

	items, err := s.app.RunItems(c.Request().Context(), runID, filter)
	if err != nil {
		return mapDomainError(err, runID.String())
	}

	return c.JSON(http.StatusOK, itemsResponse{Items: items})
}

func intQueryParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.Validation(name + " must be a non-negative integer").
			WithField(name, raw)
	}
	return n, nil
}

func mapDomainError(err error, subject string) error {
	switch {
	case errors.Is(err, domain.ErrSubjectNotFound):
		return apperrors.NotFound("subject not found").WithField("subject", subject)
	case errors.Is(err, domain.ErrRunNotFound):
		return apperrors.NotFound("analysis run not found").WithField("run", subject)
	case errors.Is(err, domain.ErrRunInProgress):
		return apperrors.Conflict("an analysis run is already in progress").
			WithField("subject", subject)
	case errors.Is(err, domain.ErrInvalidItem):
		return apperrors.Internal("classifier produced an invalid item", err)
	default:
		return err
	}
}

package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
}

// handleReadiness reports whether the service can do useful work: both
// postgres and redis have to answer within the readiness timeout.
func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	checks := map[string]string{"postgres": "ok", "redis": "ok"}
	healthy := true

	if err := s.checkDB(ctx); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	}
	if err := s.checkRedis(ctx); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	}

	if !healthy {
		return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "degraded", Checks: checks})
	}
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", Checks: checks})
}

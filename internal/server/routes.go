package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")
	api.POST("/analyses", s.handleCreateAnalysis)
	api.GET("/analyses/:id/items", s.handleRunItems)
	api.GET("/subjects/:handle/timeline", s.handleTimeline)
	api.GET("/subjects/:handle/report", s.handleReport)
	api.GET("/subjects/:handle/top", s.handleTopItems)
	api.GET("/subjects/:handle/runs", s.handleListRuns)
}

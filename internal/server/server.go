package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/postpulse/postpulse/internal/config"
	"github.com/postpulse/postpulse/internal/domain"
	apperrors "github.com/postpulse/postpulse/internal/errors"
)

const readinessTimeout = 2 * time.Second

// Server is the HTTP layer. It owns the echo instance and translates between
// JSON and domain values; all behavior lives behind domain.AppService.
type Server struct {
	echo *echo.Echo
	cfg  *config.Config
	app  domain.AppService

	checkDB    func(ctx context.Context) error
	checkRedis func(ctx context.Context) error
}

func New(cfg *config.Config, app domain.AppService, pool *pgxpool.Pool, rdb *goredis.Client) *Server {
	s := &Server{
		echo: echo.New(),
		cfg:  cfg,
		app:  app,
		checkDB: func(ctx context.Context) error {
			return pool.Ping(ctx)
		},
		checkRedis: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())
	s.echo.Use(requestLogger())
	s.echo.Use(apperrors.Middleware())

	s.registerRoutes()
	return s
}

// Start blocks serving HTTP until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	addr := ":" + s.cfg.Port
	slog.Info("HTTP server listening", "addr", addr)

	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("Request handled",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			)
			return nil
		},
	})
}

package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/johnbyeon/feelscore-sub000/internal/adapter/metrics"
	"github.com/johnbyeon/feelscore-sub000/internal/app"
	"github.com/johnbyeon/feelscore-sub000/internal/domain"
	"github.com/johnbyeon/feelscore-sub000/internal/platform/config"
)

type statsService interface {
	ApplyAnalysis(ctx context.Context, categoryID int64, v domain.Vector) error
	RevertAnalysis(ctx context.Context, categoryID int64, v domain.Vector) error
	ApplyReaction(ctx context.Context, categoryID int64, e domain.Emotion) error
	RevertReaction(ctx context.Context, categoryID int64, e domain.Emotion) error
	SwitchReaction(ctx context.Context, categoryID int64, from, to domain.Emotion) error
	RankByCount(ctx context.Context) ([]domain.EmotionRank, error)
	RankByScore(ctx context.Context) ([]domain.EmotionRank, error)
	CategoryRanking(ctx context.Context, categoryID int64) ([]domain.EmotionRank, error)
}

type dashboardService interface {
	Stats(ctx context.Context, window domain.Window) ([]*domain.DashboardNode, error)
}

type analysisRecorder interface {
	Record(ctx context.Context, postID uuid.UUID, categoryID int64, v domain.Vector) error
	Remove(ctx context.Context, postID uuid.UUID) error
}

type reactionToggler interface {
	Toggle(ctx context.Context, postID, userID uuid.UUID, categoryID int64, e domain.Emotion) (app.ReactionAction, error)
}

// Services groups the application services the HTTP layer exposes.
type Services struct {
	Stats     statsService
	Dashboard dashboardService
	Analyses  analysisRecorder
	Reactions reactionToggler
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	stats     statsService
	dashboard dashboardService
	analyses  analysisRecorder
	reactions reactionToggler

	httpMetrics    *metrics.HTTPMetrics
	metricsHandler http.Handler
	healthChecks   []HealthCheck
	startTime      time.Time
}

func NewServer(cfg *config.Config, svc Services, httpMetrics *metrics.HTTPMetrics, metricsHandler http.Handler, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:           e,
		config:         cfg,
		stats:          svc.Stats,
		dashboard:      svc.Dashboard,
		analyses:       svc.Analyses,
		reactions:      svc.Reactions,
		httpMetrics:    httpMetrics,
		metricsHandler: metricsHandler,
		healthChecks:   healthChecks,
		startTime:      time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

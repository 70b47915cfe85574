package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/johnbyeon/feelscore-sub000/internal/adapter/metrics"
	"github.com/johnbyeon/feelscore-sub000/internal/app"
	"github.com/johnbyeon/feelscore-sub000/internal/domain"
	"github.com/johnbyeon/feelscore-sub000/internal/platform/config"
	apperrors "github.com/johnbyeon/feelscore-sub000/internal/platform/errors"
)

// --- Mock implementations ---

type mockStatsService struct {
	applyAnalysisFn   func(ctx context.Context, categoryID int64, v domain.Vector) error
	revertAnalysisFn  func(ctx context.Context, categoryID int64, v domain.Vector) error
	applyReactionFn   func(ctx context.Context, categoryID int64, e domain.Emotion) error
	revertReactionFn  func(ctx context.Context, categoryID int64, e domain.Emotion) error
	switchReactionFn  func(ctx context.Context, categoryID int64, from, to domain.Emotion) error
	rankByCountFn     func(ctx context.Context) ([]domain.EmotionRank, error)
	rankByScoreFn     func(ctx context.Context) ([]domain.EmotionRank, error)
	categoryRankingFn func(ctx context.Context, categoryID int64) ([]domain.EmotionRank, error)
}

func (m *mockStatsService) ApplyAnalysis(ctx context.Context, categoryID int64, v domain.Vector) error {
	if m.applyAnalysisFn != nil {
		return m.applyAnalysisFn(ctx, categoryID, v)
	}
	return errors.New("not implemented")
}

func (m *mockStatsService) RevertAnalysis(ctx context.Context, categoryID int64, v domain.Vector) error {
	if m.revertAnalysisFn != nil {
		return m.revertAnalysisFn(ctx, categoryID, v)
	}
	return errors.New("not implemented")
}

func (m *mockStatsService) ApplyReaction(ctx context.Context, categoryID int64, e domain.Emotion) error {
	if m.applyReactionFn != nil {
		return m.applyReactionFn(ctx, categoryID, e)
	}
	return errors.New("not implemented")
}

func (m *mockStatsService) RevertReaction(ctx context.Context, categoryID int64, e domain.Emotion) error {
	if m.revertReactionFn != nil {
		return m.revertReactionFn(ctx, categoryID, e)
	}
	return errors.New("not implemented")
}

func (m *mockStatsService) SwitchReaction(ctx context.Context, categoryID int64, from, to domain.Emotion) error {
	if m.switchReactionFn != nil {
		return m.switchReactionFn(ctx, categoryID, from, to)
	}
	return errors.New("not implemented")
}

func (m *mockStatsService) RankByCount(ctx context.Context) ([]domain.EmotionRank, error) {
	if m.rankByCountFn != nil {
		return m.rankByCountFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockStatsService) RankByScore(ctx context.Context) ([]domain.EmotionRank, error) {
	if m.rankByScoreFn != nil {
		return m.rankByScoreFn(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockStatsService) CategoryRanking(ctx context.Context, categoryID int64) ([]domain.EmotionRank, error) {
	if m.categoryRankingFn != nil {
		return m.categoryRankingFn(ctx, categoryID)
	}
	return nil, errors.New("not implemented")
}

type mockDashboard struct {
	statsFn func(ctx context.Context, window domain.Window) ([]*domain.DashboardNode, error)
}

func (m *mockDashboard) Stats(ctx context.Context, window domain.Window) ([]*domain.DashboardNode, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx, window)
	}
	return nil, errors.New("not implemented")
}

type mockAnalysisRecorder struct {
	recordFn func(ctx context.Context, postID uuid.UUID, categoryID int64, v domain.Vector) error
	removeFn func(ctx context.Context, postID uuid.UUID) error
}

func (m *mockAnalysisRecorder) Record(ctx context.Context, postID uuid.UUID, categoryID int64, v domain.Vector) error {
	if m.recordFn != nil {
		return m.recordFn(ctx, postID, categoryID, v)
	}
	return errors.New("not implemented")
}

func (m *mockAnalysisRecorder) Remove(ctx context.Context, postID uuid.UUID) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, postID)
	}
	return errors.New("not implemented")
}

type mockReactionToggler struct {
	toggleFn func(ctx context.Context, postID, userID uuid.UUID, categoryID int64, e domain.Emotion) (app.ReactionAction, error)
}

func (m *mockReactionToggler) Toggle(ctx context.Context, postID, userID uuid.UUID, categoryID int64, e domain.Emotion) (app.ReactionAction, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, postID, userID, categoryID, e)
	}
	return "", errors.New("not implemented")
}

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{Port: "0", WriteRateLimit: 1000, WriteRateBurst: 1000}
}

func newTestServer(t *testing.T, svc Services, opts ...func(*Server)) *Server {
	t.Helper()

	if svc.Stats == nil {
		svc.Stats = &mockStatsService{}
	}
	if svc.Dashboard == nil {
		svc.Dashboard = &mockDashboard{}
	}
	if svc.Analyses == nil {
		svc.Analyses = &mockAnalysisRecorder{}
	}
	if svc.Reactions == nil {
		svc.Reactions = &mockReactionToggler{}
	}

	srv := &Server{
		echo:        echo.New(),
		config:      testConfig(),
		stats:       svc.Stats,
		dashboard:   svc.Dashboard,
		analyses:    svc.Analyses,
		reactions:   svc.Reactions,
		httpMetrics: metrics.NewHTTPMetrics(prometheus.NewRegistry()),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withConfig(cfg *config.Config) func(*Server) {
	return func(s *Server) {
		s.config = cfg
	}
}

// serve runs a request through the full middleware chain.
func serve(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(srv *Server, handler echo.HandlerFunc, c echo.Context) error {
	return apperrors.Middleware(srv.httpMetrics.ErrorsTotal, translateDomainError)(handler)(c)
}

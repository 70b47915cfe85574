package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/johnbyeon/feelscore-sub000/internal/domain"
	apperrors "github.com/johnbyeon/feelscore-sub000/internal/platform/errors"
)

type dashboardResponse struct {
	Window     domain.Window           `json:"window"`
	Categories []*domain.DashboardNode `json:"categories"`
}

func (s *Server) registerDashboardRoutes() {
	s.echo.GET("/api/dashboard", s.handleDashboard)
}

func (s *Server) handleDashboard(c echo.Context) error {
	raw := c.QueryParam("window")
	window, err := domain.ParseWindow(raw)
	if err != nil {
		return apperrors.ValidationError("window must be one of ALL, DAY, WEEK, MONTH").WithField("window", raw)
	}

	forest, err := s.dashboard.Stats(c.Request().Context(), window)
	if err != nil {
		return err
	}
	if forest == nil {
		forest = []*domain.DashboardNode{}
	}

	if err := c.JSON(http.StatusOK, dashboardResponse{Window: window, Categories: forest}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

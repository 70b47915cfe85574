package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnbyeon/feelscore-sub000/internal/domain"
	"github.com/johnbyeon/feelscore-sub000/internal/platform/correlation"
	apperrors "github.com/johnbyeon/feelscore-sub000/internal/platform/errors"
)

func TestCorrelationMiddleware_PropagatesCallerID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(correlation.Header, "abc123")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	err := correlationMiddleware(func(c echo.Context) error {
		seen, _ = correlation.ID(c.Request().Context())
		return nil
	})(c)

	require.NoError(t, err)
	assert.Equal(t, "abc123", seen)
	assert.Equal(t, "abc123", rec.Header().Get(correlation.Header))
}

func TestCorrelationMiddleware_GeneratesID(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"oversized", strings.Repeat("x", correlation.MaxLength+1)},
		{"log injection", "abc\r\nlevel=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(correlation.Header, tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var seen string
			err := correlationMiddleware(func(c echo.Context) error {
				seen, _ = correlation.ID(c.Request().Context())
				return nil
			})(c)

			require.NoError(t, err)
			assert.Len(t, seen, 8)
			assert.Equal(t, seen, rec.Header().Get(correlation.Header))
		})
	}
}

func TestTranslateDomainError(t *testing.T) {
	tests := []struct {
		err      error
		wantType apperrors.ErrorType
	}{
		{fmt.Errorf("category 9: %w", domain.ErrCategoryNotFound), apperrors.TypeNotFound},
		{domain.ErrAnalysisNotFound, apperrors.TypeNotFound},
		{fmt.Errorf("%w: 42", domain.ErrUnknownEmotion), apperrors.TypeValidation},
		{domain.ErrUnknownWindow, apperrors.TypeValidation},
		{domain.ErrInvalidScores, apperrors.TypeValidation},
		{fmt.Errorf("revert: %w", domain.ErrConsistencyViolation), apperrors.TypeConflict},
		{fmt.Errorf("toggle: %w", domain.ErrReactionConflict), apperrors.TypeConflict},
		{fmt.Errorf("dial: %w", circuitbreaker.ErrOpen), apperrors.TypeExternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got := translateDomainError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantType, got.Type)
		})
	}

	assert.Nil(t, translateDomainError(errors.New("unrelated")))
	assert.Nil(t, translateDomainError(domain.ErrCategoryCycle), "corrupt trees surface as internal errors")
}

func TestErrorMiddleware_CountsByType(t *testing.T) {
	srv := newTestServer(t, Services{})
	e := echo.New()

	for range 2 {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/test", nil), rec)
		err := callHandler(srv, func(echo.Context) error { return domain.ErrConsistencyViolation }, c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(srv.httpMetrics.ErrorsTotal.WithLabelValues(string(apperrors.TypeConflict))))
}

func TestRoutes_UnknownPathIs404(t *testing.T) {
	srv := newTestServer(t, Services{})

	rec := serve(srv, http.MethodGet, "/api/nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(correlation.Header))
}

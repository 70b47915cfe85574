package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	apperrors "github.com/johnbyeon/feelscore-sub000/internal/platform/errors"
)

const (
	rateLimiterExpiry = 5 * time.Minute
	rateLimitedType   = apperrors.ErrorType("rate_limited")
)

// newRateLimiter limits each client IP to ratePerSecond with the given burst.
// Rejections are counted per route in rejected.
func newRateLimiter(ratePerSecond float64, burst int, rejected *prometheus.CounterVec) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(ratePerSecond),
			Burst:     burst,
			ExpiresIn: rateLimiterExpiry,
		},
	)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			rejected.WithLabelValues(c.Path()).Inc()
			return c.JSON(http.StatusTooManyRequests, apperrors.ErrorResponse{
				Error: "rate limit exceeded",
				Type:  rateLimitedType,
			})
		},
	})
}

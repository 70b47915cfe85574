package httpserver

import (
	"errors"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/labstack/echo/v4"

	"github.com/johnbyeon/feelscore-sub000/internal/domain"
	"github.com/johnbyeon/feelscore-sub000/internal/platform/correlation"
	apperrors "github.com/johnbyeon/feelscore-sub000/internal/platform/errors"
)

// correlationMiddleware tags the request context with the caller's correlation
// ID, or a fresh one when the caller's is missing or unusable, and echoes it
// back in the response.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromHeader(c.Request().Header.Get(correlation.Header))
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlation.Header, id)
		return next(c)
	}
}

// translateDomainError maps domain and infrastructure sentinels to structured errors.
func translateDomainError(err error) *apperrors.Error {
	switch {
	case errors.Is(err, domain.ErrCategoryNotFound):
		return apperrors.NotFoundError("category not found")
	case errors.Is(err, domain.ErrAnalysisNotFound):
		return apperrors.NotFoundError("post analysis not found")
	case errors.Is(err, domain.ErrUnknownEmotion),
		errors.Is(err, domain.ErrUnknownWindow),
		errors.Is(err, domain.ErrInvalidScores):
		return apperrors.ValidationError(err.Error())
	case errors.Is(err, domain.ErrConsistencyViolation):
		return apperrors.ConflictError("no matching prior contribution to revert", err)
	case errors.Is(err, domain.ErrReactionConflict):
		return apperrors.ConflictError("reaction changed concurrently, retry", err)
	case errors.Is(err, circuitbreaker.ErrOpen):
		return apperrors.ExternalError("stats store unavailable", err)
	default:
		return nil
	}
}

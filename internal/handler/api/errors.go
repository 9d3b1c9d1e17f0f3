package api

import (
	"context"
	"errors"
	"net/http"

	domrepo "AstroPull/internal/domain/repository"
	"AstroPull/internal/domain/service"
	"AstroPull/internal/usecase"
	xhttp "AstroPull/pkg/http"
	xlogger "AstroPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// toAppError maps domain errors onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, domrepo.ErrRecordNotFound):
		return xhttp.NotFoundError("User not found").WithError(err)
	case errors.Is(err, usecase.ErrJobNotFound):
		return xhttp.NotFoundError("Job not found").WithError(err)
	case errors.Is(err, service.ErrExtractionFailed):
		return xhttp.UnprocessableError("Could not extract birth data from text").WithError(err)
	case errors.Is(err, service.ErrInvalidBirthData):
		return xhttp.BadRequestError("Invalid birth data").WithError(err)
	case errors.Is(err, service.ErrProviderUnavailable), errors.Is(err, context.DeadlineExceeded):
		return xhttp.BadGatewayError("Ephemeris provider unavailable").WithError(err)
	case errors.Is(err, service.ErrExtractorUnavailable):
		return xhttp.BadGatewayError("Extraction model unavailable").WithError(err)
	case errors.Is(err, usecase.ErrStatsUnavailable):
		return xhttp.UnavailableError("Chart statistics are not enabled").WithError(err)
	case errors.Is(err, usecase.ErrJobsUnavailable):
		return xhttp.UnavailableError("Extraction jobs are not enabled").WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}

// respondError logs server-side failures and writes the mapped error.
func respondError(c echo.Context, l *xlogger.Logger, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		l.Error(op+" failed", xlogger.Error(err), xlogger.Int("status", appErr.Status))
	} else {
		l.Debug(op+" rejected", xlogger.Error(err), xlogger.Int("status", appErr.Status))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

package api

import (
	models "AstroPull/internal/domain/models"
	"AstroPull/internal/usecase"
	xhttp "AstroPull/pkg/http"
	xlogger "AstroPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StatsHandler serves aggregates over stored chart events.
type StatsHandler struct {
	logger *xlogger.Logger
	stats  *usecase.ChartStatsUseCase
}

func NewStatsHandler(logger *xlogger.Logger, stats *usecase.ChartStatsUseCase) *StatsHandler {
	return &StatsHandler{logger: logger, stats: stats}
}

func (h *StatsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/stats")
	g.GET("/aspects", instrument("stats_aspects", h.Aspects))
	g.GET("/elements", instrument("stats_elements", h.Elements))
}

func (h *StatsHandler) Aspects(c echo.Context) error {
	req := &models.StatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.stats.Aspects(c.Request().Context(), *req)
	if err != nil {
		return respondError(c, h.logger, "aspect stats", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *StatsHandler) Elements(c echo.Context) error {
	req := &models.StatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.stats.Elements(c.Request().Context(), *req)
	if err != nil {
		return respondError(c, h.logger, "element stats", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

package api

import (
	"net/http"

	models "AstroPull/internal/domain/models"
	"AstroPull/internal/usecase"
	xhttp "AstroPull/pkg/http"
	xlogger "AstroPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AstroHandler serves chart endpoints.
type AstroHandler struct {
	logger *xlogger.Logger
	charts *usecase.ChartUseCase
	guard  *rateGuard
}

func NewAstroHandler(logger *xlogger.Logger, charts *usecase.ChartUseCase, guard *rateGuard) *AstroHandler {
	return &AstroHandler{logger: logger, charts: charts, guard: guard}
}

func (h *AstroHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/astro")
	g.POST("/chart-json", instrument("chart_json", h.ChartJSON))
	g.POST("/chart-svg", instrument("chart_svg", h.ChartSVG), h.guard.middleware)
	g.POST("/report", instrument("report", h.Report))
	g.POST("/synastry", instrument("synastry", h.Synastry))
	g.POST("/relationship-score", instrument("relationship_score", h.RelationshipScore))
	g.POST("/composite", instrument("composite", h.Composite))
	g.GET("/today", instrument("today", h.Today))
}

func (h *AstroHandler) ChartJSON(c echo.Context) error {
	req := &models.BirthData{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.charts.NatalChart(c.Request().Context(), *req)
	if err != nil {
		return respondError(c, h.logger, "chart", err)
	}
	return xhttp.SuccessResponse(c, models.ChartEnvelope{Chart: res})
}

func (h *AstroHandler) ChartSVG(c echo.Context) error {
	req := &models.BirthData{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	svg, err := h.charts.ChartSVG(c.Request().Context(), *req)
	if err != nil {
		return respondError(c, h.logger, "chart svg", err)
	}
	return c.Blob(http.StatusOK, "image/svg+xml", svg)
}

func (h *AstroHandler) Report(c echo.Context) error {
	req := &models.BirthData{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rep, err := h.charts.Report(c.Request().Context(), *req)
	if err != nil {
		return respondError(c, h.logger, "report", err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"report": rep})
}

func (h *AstroHandler) Synastry(c echo.Context) error {
	req := &models.PairInput{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	out, err := h.charts.Synastry(c.Request().Context(), *req)
	if err != nil {
		return respondError(c, h.logger, "synastry", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"aspects": out})
}

func (h *AstroHandler) RelationshipScore(c echo.Context) error {
	req := &models.PairInput{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	out, err := h.charts.RelationshipScore(c.Request().Context(), *req)
	if err != nil {
		return respondError(c, h.logger, "relationship score", err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"score": out})
}

func (h *AstroHandler) Composite(c echo.Context) error {
	req := &models.PairInput{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	out, err := h.charts.Composite(c.Request().Context(), *req)
	if err != nil {
		return respondError(c, h.logger, "composite", err)
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *AstroHandler) Today(c echo.Context) error {
	res, err := h.charts.Today(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, "today", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=30")
	return xhttp.SuccessResponse(c, models.ChartEnvelope{Chart: res})
}

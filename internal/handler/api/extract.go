package api

import (
	"net/http"

	models "AstroPull/internal/domain/models"
	"AstroPull/internal/usecase"
	xhttp "AstroPull/pkg/http"
	xlogger "AstroPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ExtractHandler serves free-text birth data extraction.
type ExtractHandler struct {
	logger  *xlogger.Logger
	extract *usecase.ExtractionUseCase
	guard   *rateGuard
}

func NewExtractHandler(logger *xlogger.Logger, extract *usecase.ExtractionUseCase, guard *rateGuard) *ExtractHandler {
	return &ExtractHandler{logger: logger, extract: extract, guard: guard}
}

func (h *ExtractHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/extract", h.guard.middleware)
	g.POST("", instrument("extract", h.Extract))
	g.POST("/jobs", instrument("extract_submit", h.Submit))
	g.GET("/jobs/:id", instrument("extract_status", h.Status))
}

type extractResponse struct {
	Data     *models.BirthData `json:"data"`
	RecordID int64             `json:"record_id,omitempty"`
}

func (h *ExtractHandler) Extract(c echo.Context) error {
	req := &models.ExtractRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.extract.Extract(c.Request().Context(), req.Text, req.Save)
	if err != nil {
		return respondError(c, h.logger, "extract", err)
	}
	out := extractResponse{Data: res.Data}
	if res.Record != nil {
		out.RecordID = res.Record.ID
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *ExtractHandler) Submit(c echo.Context) error {
	req := &models.ExtractRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	job, err := h.extract.Submit(c.Request().Context(), req.Text, req.Save)
	if err != nil {
		return respondError(c, h.logger, "submit extraction", err)
	}
	return xhttp.DataResponse(c, http.StatusAccepted, job)
}

func (h *ExtractHandler) Status(c echo.Context) error {
	job, err := h.extract.Status(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, "extraction status", err)
	}
	return xhttp.SuccessResponse(c, job)
}

package api

import (
	"net/http"
	"strconv"

	models "AstroPull/internal/domain/models"
	"AstroPull/internal/usecase"
	xhttp "AstroPull/pkg/http"
	xlogger "AstroPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// UsersHandler serves birth record CRUD.
type UsersHandler struct {
	logger  *xlogger.Logger
	records *usecase.BirthRecordUseCase
}

func NewUsersHandler(logger *xlogger.Logger, records *usecase.BirthRecordUseCase) *UsersHandler {
	return &UsersHandler{logger: logger, records: records}
}

func (h *UsersHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/users")
	g.POST("", instrument("users_create", h.Create))
	g.GET("", instrument("users_list", h.List))
	g.GET("/:id", instrument("users_get", h.Get))
	g.PUT("/:id", instrument("users_update", h.Update))
	g.DELETE("/:id", instrument("users_delete", h.Delete))
	g.GET("/:id/chart", instrument("users_chart", h.Chart))
}

func (h *UsersHandler) Create(c echo.Context) error {
	req := &models.BirthRecordRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, err := h.records.Create(c.Request().Context(), *req)
	if err != nil {
		return respondError(c, h.logger, "create user", err)
	}
	return xhttp.CreatedResponse(c, models.NewBirthRecordResponse(r))
}

func (h *UsersHandler) List(c echo.Context) error {
	rows, err := h.records.List(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, "list users", err)
	}
	out := make([]models.BirthRecordResponse, len(rows))
	for i, r := range rows {
		out[i] = models.NewBirthRecordResponse(r)
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

func (h *UsersHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	r, err := h.records.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, "get user", err)
	}
	return xhttp.SuccessResponse(c, models.NewBirthRecordResponse(r))
}

func (h *UsersHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	req := &models.BirthRecordRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, err := h.records.Update(c.Request().Context(), id, *req)
	if err != nil {
		return respondError(c, h.logger, "update user", err)
	}
	return xhttp.SuccessResponse(c, models.NewBirthRecordResponse(r))
}

func (h *UsersHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	if err := h.records.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, h.logger, "delete user", err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"detail": "User deleted"})
}

func (h *UsersHandler) Chart(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	res, err := h.records.Chart(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, "user chart", err)
	}
	return xhttp.SuccessResponse(c, models.ChartEnvelope{Chart: res})
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, xhttp.NewAppError("ERR_INVALID_ID", "id", "id must be a positive integer", http.StatusBadRequest)
	}
	return id, nil
}

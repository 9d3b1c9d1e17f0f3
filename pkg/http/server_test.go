package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routes func(e *echo.Echo)

func (r routes) RegisterRoutes(e *echo.Echo) { r(e) }

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func serve(t *testing.T, s *Server, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

type chartRequest struct {
	Name   string `json:"name" validate:"required,max=8"`
	Month  int    `json:"month" validate:"gte=1,lte=12"`
	TZStr  string `json:"tz_str" validate:"required,timezone"`
	System string `json:"houses_system" default:"P"`
}

func TestServerEnvelopesErrors(t *testing.T) {
	s := NewServer(routes(func(e *echo.Echo) {
		e.GET("/boom", func(echo.Context) error { panic("kaboom") })
		e.GET("/gone", func(echo.Context) error { return NotFoundError("User not found") })
		e.GET("/raw", func(echo.Context) error { return errors.New("db down") })
	}))

	rec, env := serve(t, s, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.Status)

	rec, env = serve(t, s, http.MethodGet, "/gone", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `[{"code":"ERR_NOT_FOUND","message":"User not found"}]`, string(env.Data))

	rec, env = serve(t, s, http.MethodGet, "/raw", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, string(env.Data), "db down")

	rec, _ = serve(t, s, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReadAndValidateRequest(t *testing.T) {
	var got chartRequest
	s := NewServer(routes(func(e *echo.Echo) {
		e.POST("/chart", func(c echo.Context) error {
			req := new(chartRequest)
			if verr := ReadAndValidateRequest(c, req); verr != nil {
				return BadRequestResponse(c, verr)
			}
			got = *req
			return CreatedResponse(c, req)
		})
	}))

	rec, _ := serve(t, s, http.MethodPost, "/chart", `{"name":"Ada","month":3,"tz_str":"Asia/Tehran"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "P", got.System)

	rec, env := serve(t, s, http.MethodPost, "/chart", `{"name":"Ada Lovelace","month":13,"tz_str":"Mars/Olympus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errs []ValidationError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.Code
	}
	assert.Equal(t, map[string]string{"name": "ERR_MAX", "month": "ERR_LTE", "tz_str": "ERR_TIMEZONE"}, fields)

	rec, env = serve(t, s, http.MethodPost, "/chart", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_MALFORMED", errs[0].Code)
}

func TestCORSPreflight(t *testing.T) {
	s := NewServer(routes(func(e *echo.Echo) {
		e.POST("/chart", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	}), WithCORS("https://astro.example"))

	req := httptest.NewRequest(http.MethodOptions, "/chart", nil)
	req.Header.Set(echo.HeaderOrigin, "https://astro.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://astro.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

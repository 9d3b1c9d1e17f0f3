package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	xhttp "AstroPull/pkg/http"

	"github.com/labstack/echo/v4"
)

// Check is one readiness probe.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// HealthHandler serves liveness and readiness.
type HealthHandler struct {
	checks  []Check
	timeout time.Duration
}

func NewHealthHandler(checks ...Check) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 3 * time.Second}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Live)
	e.GET("/ready", h.Ready)
}

func (h *HealthHandler) Live(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Ready runs every probe concurrently and reports 503 if any fails.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]string, len(h.checks))
		ok  = true
	)
	for _, chk := range h.checks {
		wg.Add(1)
		go func(chk Check) {
			defer wg.Done()
			status := "ok"
			if err := chk.Probe(ctx); err != nil {
				status = err.Error()
			}
			mu.Lock()
			out[chk.Name] = status
			if status != "ok" {
				ok = false
			}
			mu.Unlock()
		}(chk)
	}
	wg.Wait()

	if !ok {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, out)
	}
	return xhttp.SuccessResponse(c, out)
}

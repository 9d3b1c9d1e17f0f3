package api

import (
	"time"

	servicemetrics "AstroPull/internal/service/metrics"
	"AstroPull/internal/service/ratelimit"
	"AstroPull/internal/usecase"
	xhttp "AstroPull/pkg/http"
	xlogger "AstroPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Router registers every API handler on one Echo instance.
type Router struct {
	handlers []xhttp.Handler
}

// RouterDeps are the usecases behind the HTTP surface.
type RouterDeps struct {
	Logger        *xlogger.Logger
	Charts        *usecase.ChartUseCase
	Records       *usecase.BirthRecordUseCase
	Extraction    *usecase.ExtractionUseCase
	Stats         *usecase.ChartStatsUseCase
	Limiter       *ratelimit.Limiter
	RateLimit     RateLimit
	TodayInterval time.Duration
	Checks        []Check
}

func NewRouter(d RouterDeps) *Router {
	servicemetrics.Register()
	guard := newRateGuard(d.Limiter, d.RateLimit)
	return &Router{handlers: []xhttp.Handler{
		NewHealthHandler(d.Checks...),
		NewAstroHandler(d.Logger, d.Charts, guard),
		NewTodayStream(d.Logger, d.Charts, d.TodayInterval),
		NewUsersHandler(d.Logger, d.Records),
		NewExtractHandler(d.Logger, d.Extraction, guard),
		NewStatsHandler(d.Logger, d.Stats),
	}}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	for _, h := range r.handlers {
		h.RegisterRoutes(e)
	}
}

var _ xhttp.Handler = (*Router)(nil)

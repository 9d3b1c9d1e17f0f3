package api

import (
	"math"
	"strconv"
	"time"

	servicemetrics "AstroPull/internal/service/metrics"
	"AstroPull/internal/service/ratelimit"
	xhttp "AstroPull/pkg/http"

	"github.com/labstack/echo/v4"
)

// RateLimit is the per-client token bucket applied to expensive endpoints.
type RateLimit struct {
	Capacity     float64
	RefillPerSec float64
}

type rateGuard struct {
	limiter *ratelimit.Limiter
}

func newRateGuard(limiter *ratelimit.Limiter, cfg RateLimit) *rateGuard {
	if limiter == nil {
		limiter = ratelimit.New(cfg.RefillPerSec, cfg.Capacity)
	}
	return &rateGuard{limiter: limiter}
}

// middleware keys buckets by route and client IP.
func (g *rateGuard) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ok, wait := g.limiter.Allow(c.Path() + "|" + c.RealIP())
		if !ok {
			secs := int(math.Ceil(wait.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("Too many requests"))
		}
		return next(c)
	}
}

// instrument records endpoint latency and error classes.
func instrument(endpoint string, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		servicemetrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		if status := c.Response().Status; status >= 400 {
			servicemetrics.EndpointErrors.WithLabelValues(endpoint, strconv.Itoa(status/100)+"xx").Inc()
		}
		return err
	}
}

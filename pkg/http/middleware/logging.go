package middleware

import (
	"time"

	applogger "AstroPull/pkg/logger"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestLogging writes one entry per request. Server errors log at error
// level, slower-than-threshold requests at warn.
func RequestLogging(l *applogger.Logger, slow time.Duration) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomw.RequestLoggerValues) error {
			fields := []applogger.Field{
				applogger.String("method", v.Method),
				applogger.String("uri", v.URI),
				applogger.String("route", v.RoutePath),
				applogger.Int("status", v.Status),
				applogger.Duration("latency_ms", v.Latency),
				applogger.String("remote", v.RemoteIP),
			}
			if v.RequestID != "" {
				fields = append(fields, applogger.String("request_id", v.RequestID))
			}
			switch {
			case v.Status >= 500:
				if v.Error != nil {
					fields = append(fields, applogger.Error(v.Error))
				}
				l.Error("http request failed", fields...)
			case slow > 0 && v.Latency >= slow:
				l.Warn("http request slow", fields...)
			default:
				l.Info("http request", fields...)
			}
			return nil
		},
	})
}

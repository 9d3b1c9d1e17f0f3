package middleware

import (
	applogger "AstroPull/pkg/logger"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Recover turns handler panics into 500s and logs the stack.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	return echomw.RecoverWithConfig(echomw.RecoverConfig{
		StackSize: 8 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			l.Error("panic recovered",
				applogger.Error(err),
				applogger.String("route", c.Path()),
				applogger.String("stack", string(stack)))
			return err
		},
	})
}

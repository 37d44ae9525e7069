package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	applogger "TrendCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover returns recovery middleware. A panic becomes a 500 envelope with the `internal` code.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	if l == nil {
		l = applogger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					perr, ok := r.(error)
					if !ok {
						perr = fmt.Errorf("%v", r)
					}
					l.Error("http handler panic",
						applogger.String("route", c.Path()),
						applogger.Error(perr),
						applogger.String("stack", string(debug.Stack())),
					)
					err = c.JSON(http.StatusInternalServerError, map[string]interface{}{
						"status":  http.StatusInternalServerError,
						"message": "Internal Server Error",
						"error":   "internal",
					})
				}
			}()
			return next(c)
		}
	}
}

package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"FinAdvisor/pkg/logger"
)

// RequestLogging logs one line per request. 5xx responses log at error,
// requests slower than slow at warn, everything else at debug.
func RequestLogging(log *logger.Logger, slow time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			elapsed := time.Since(start)
			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("route", c.Path()),
				logger.String("uri", req.RequestURI),
				logger.Int("status", status),
				logger.Duration("duration_ms", elapsed),
				logger.Int64("bytes", c.Response().Size),
			}
			switch {
			case status >= 500:
				log.Error("http request failed", fields...)
			case slow > 0 && elapsed >= slow:
				log.Warn("http request slow", fields...)
			default:
				log.Debug("http request", fields...)
			}
			return nil
		}
	}
}

package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

// Timeout caps the wall-clock time of a single request. Claim operations are
// synchronous and must never block indefinitely; the deadline propagates
// through the request context into the database driver.
func Timeout(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), d)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

package middleware

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/claimsure/claimsure/internal/platform/auth"
)

// Logger emits one structured line per request, tagged with the request id
// and, once auth has run, the acting address.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			// Auth runs after this middleware, so the actor is read back off
			// the request the inner chain left behind.
			if actor := auth.AddressFromContext(c.Request().Context()); actor != (common.Address{}) {
				evt = evt.Str("actor", actor.Hex())
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}

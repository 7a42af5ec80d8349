package logger

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Middleware derives a child of base per request carrying request_id, method
// and path, stores it in the request context and logs one line per request.
// Register it after echo's RequestID middleware.
func Middleware(base zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			reqID := c.Response().Header().Get(echo.HeaderXRequestID)
			if reqID == "" {
				reqID = req.Header.Get(echo.HeaderXRequestID)
			}

			l := base.With().
				Str("request_id", reqID).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Logger()
			c.SetRequest(req.WithContext(l.WithContext(req.Context())))

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			evt := l.Info()
			if status >= http.StatusInternalServerError {
				evt = l.Error().Err(err)
			}
			evt.Int("status", status).
				Dur("latency", time.Since(start)).
				Msg("request handled")
			return err
		}
	}
}

// Ctx returns the logger stored in ctx by Middleware, falling back to the
// process logger (or a no-op logger before Init).
func Ctx(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

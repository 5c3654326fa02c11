// Package webmiddleware holds the Echo middleware the hot tub controller's
// HTTP surface installs, grounded on the teacher's shared/middleware but
// constructed against an explicit logger rather than a package singleton.
package webmiddleware

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestLogger logs each request's method, path, status and latency.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			res := c.Response()

			err := next(c)
			duration := time.Since(start)

			fields := []zap.Field{
				zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.String("remote_ip", c.RealIP()),
				zap.Int("status", res.Status),
				zap.Int64("bytes_out", res.Size),
				zap.Duration("latency", duration),
			}

			if err != nil {
				fields = append(fields, zap.Error(err))
				logger.Error("request failed", fields...)
				return err
			}

			switch {
			case res.Status >= 500:
				logger.Error("server error", fields...)
			case res.Status >= 400:
				logger.Warn("client error", fields...)
			default:
				logger.Info("request completed", fields...)
			}
			return nil
		}
	}
}

// Recovery recovers panics, logs them with a stack trace, and converts them
// into a 500 rather than crashing the process — heating cycle ticks and
// cron-runner callbacks cannot be allowed to take the whole server down.
func Recovery(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				if r := recover(); r != nil {
					err, ok := r.(error)
					if !ok {
						err = fmt.Errorf("%v", r)
					}
					logger.Error("panic recovered",
						zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
						zap.String("method", c.Request().Method),
						zap.String("uri", c.Request().RequestURI),
						zap.Error(err),
						zap.String("stack", string(debug.Stack())),
					)
					c.Error(echo.NewHTTPError(500, "internal server error"))
				}
			}()
			return next(c)
		}
	}
}

// RequestID stamps every request/response pair with an id, generated from
// the clock when the caller didn't supply one.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqID := c.Request().Header.Get(echo.HeaderXRequestID)
			if reqID == "" {
				reqID = fmt.Sprintf("%d", time.Now().UnixNano())
			}
			c.Request().Header.Set(echo.HeaderXRequestID, reqID)
			c.Response().Header().Set(echo.HeaderXRequestID, reqID)
			return next(c)
		}
	}
}

// Timeout bounds request processing, per spec.md §5's requirement that no
// handler block indefinitely on a collaborator.
func Timeout(logger *zap.Logger, duration time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), duration)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() { done <- next(c) }()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				logger.Warn("request timeout",
					zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
					zap.String("method", c.Request().Method),
					zap.String("uri", c.Request().RequestURI),
					zap.Duration("timeout", duration),
				)
				return echo.NewHTTPError(408, "request timeout")
			}
		}
	}
}

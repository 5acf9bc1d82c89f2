package loggingmw

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bookly/bookly/internal/errs"
	"github.com/bookly/bookly/internal/logging"
)

// RequestLogger puts a request-scoped logger into the context and logs one
// line per request once the error handler has written the response.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			l := base.With(requestAttrs(c)...)
			if rid := requestID(c); rid != "" {
				l = l.With("request_id", rid)
				c.Response().Header().Set(echo.HeaderXRequestID, rid)
			}
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
			}

			status := c.Response().Status
			attrs := []slog.Attr{
				slog.Int("status", status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.Int64("bytes", c.Response().Size),
			}
			if uid, ok := c.Get("user_id").(string); ok {
				attrs = append(attrs, slog.String("user_id", uid))
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				if e, ok := errs.As(err); ok {
					attrs = append(attrs, slog.String("error_code", e.Code))
				}
			}
			l.LogAttrs(context.Background(), levelFor(c.Path(), status), "request completed", attrs...)
			return nil
		}
	}
}

func requestAttrs(c echo.Context) []any {
	req := c.Request()
	return []any{
		"method", req.Method,
		"path", c.Path(),
		"url", req.URL.Path,
		"remote_ip", c.RealIP(),
		"user_agent", req.UserAgent(),
	}
}

// requestID prefers the inbound header, then whatever echo's RequestID
// middleware already put on the response.
func requestID(c echo.Context) string {
	if rid := c.Request().Header.Get(echo.HeaderXRequestID); rid != "" {
		return rid
	}
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

func levelFor(path string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case strings.HasPrefix(path, "/health/"):
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

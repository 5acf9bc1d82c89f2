package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookly/bookly/internal/errs"
	"github.com/bookly/bookly/internal/logging"
)

// ErrorHandler renders every error as {message, error_code, resolution?,
// details?}. Errors outside the errs taxonomy are logged and collapsed to
// a generic 500 so internals never reach the client.
func ErrorHandler(base *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		l := logging.FromContext(c.Request().Context())
		if l == slog.Default() && base != nil {
			l = base
		}

		e := toError(err)
		if e.Kind == errs.KindInternal {
			l.Error("unhandled_error", "error", err)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(e.Status())
		} else {
			writeErr = c.JSON(e.Status(), e)
		}
		if writeErr != nil {
			l.Error("write_error_response", "error", writeErr)
		}
	}
}

func toError(err error) *errs.Error {
	if e, ok := errs.As(err); ok {
		return e
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return fromHTTPError(he)
	}
	return errs.ErrInternal.Wrap(err)
}

// fromHTTPError maps echo's own errors (routing, binding, middleware).
func fromHTTPError(he *echo.HTTPError) *errs.Error {
	msg := http.StatusText(he.Code)
	if m, ok := he.Message.(string); ok && m != "" {
		msg = m
	}

	switch he.Code {
	case http.StatusNotFound:
		return errs.New(errs.KindNotFound, "not_found", msg)
	case http.StatusMethodNotAllowed:
		return errs.New(errs.KindBadRequest, "method_not_allowed", msg).WithStatus(he.Code)
	case http.StatusUnauthorized:
		return errs.ErrInvalidToken.Wrap(he)
	case http.StatusTooManyRequests:
		return errs.ErrRateLimited
	}
	if he.Code >= 500 {
		return errs.ErrInternal.Wrap(he)
	}
	return errs.ErrBadRequest.WithMessage(msg).WithStatus(he.Code).Wrap(he)
}

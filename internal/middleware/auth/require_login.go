package auth

import (
	"errors"
	"fmt"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/bookly/bookly/internal/errs"
	"github.com/bookly/bookly/internal/logging"
	"github.com/bookly/bookly/internal/tokens"
)

// Gate authenticates the bearer token as the given kind: signature,
// revocation, expiry, then kind. On success the claims are stored on the
// context for ClaimsFrom.
func Gate(ts *tokens.Service, kind tokens.Kind) echo.MiddlewareFunc {
	missing := errs.ErrAccessTokenRequired
	if kind == tokens.KindRefresh {
		missing = errs.ErrRefreshTokenRequired
	}

	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  claimsKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, raw string) (any, error) {
			return ts.Authorize(c.Request().Context(), raw, kind)
		},
		SuccessHandler: func(c echo.Context) {
			if claims, ok := ClaimsFrom(c); ok {
				setClaims(c, claims)
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			l := logging.FromContext(c.Request().Context()).With("mw", "auth.gate")
			if e, ok := errs.As(err); ok {
				l.Warn("auth_failed", "status", e.Status(), "error", err)
				return e
			}
			var extractErr *echojwt.TokenExtractionError
			if errors.As(err, &extractErr) {
				l.Warn("auth_failed", "status", missing.Status(), "reason", "missing bearer token", "error", err)
				return missing
			}
			l.Error("auth_failed", "status", errs.StatusOf(err), "error", err)
			return fmt.Errorf("authorize bearer token: %w", err)
		},
	})
}

// RequireAccess is Gate for access tokens.
func RequireAccess(ts *tokens.Service) echo.MiddlewareFunc {
	return Gate(ts, tokens.KindAccess)
}

// RequireRefresh is Gate for refresh tokens.
func RequireRefresh(ts *tokens.Service) echo.MiddlewareFunc {
	return Gate(ts, tokens.KindRefresh)
}

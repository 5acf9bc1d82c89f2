package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bookly/bookly/internal/errs"
	"github.com/bookly/bookly/internal/logging"
	"github.com/bookly/bookly/internal/models"
	"github.com/bookly/bookly/internal/tokens"
)

// UserLoader fetches the account behind a token.
type UserLoader interface {
	GetByUID(ctx context.Context, uid uuid.UUID) (*models.User, error)
}

// RequireRoles runs after Gate. It loads the current user, rejects
// unverified accounts and checks the role against allowed. The role is
// read from the store so a demotion takes effect before the token expires.
func RequireRoles(users UserLoader, allowed ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("mw", "auth.roles")

			claims, ok := ClaimsFrom(c)
			if !ok {
				return errs.ErrAccessTokenRequired
			}

			user, err := users.GetByUID(ctx, claims.UID())
			if err != nil {
				l.Warn("auth_failed", "status", errs.StatusOf(err), "error", err)
				return err
			}
			if !user.IsVerified {
				l.Warn("auth_failed", "status", 403, "reason", "account not verified", "user_uid", user.UID)
				return errs.ErrAccountNotVerified
			}
			if !tokens.Authorize(user.Role, allowed) {
				l.Warn("auth_failed", "status", 401, "reason", "role not allowed", "role", user.Role)
				return errs.ErrInsufficientPermission
			}

			c.Set(userKey, user)
			return next(c)
		}
	}
}

// RequireAdmin allows only admins.
func RequireAdmin(users UserLoader) echo.MiddlewareFunc {
	return RequireRoles(users, models.RoleAdmin)
}

// Package auth holds the echo middleware that guards protected routes.
package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/bookly/bookly/internal/models"
	"github.com/bookly/bookly/internal/tokens"
)

const (
	claimsKey = "auth.claims"
	userKey   = "auth.user"
)

func setClaims(c echo.Context, claims *tokens.Claims) {
	c.Set("user_id", claims.User.UserUID)
	c.Set("role", claims.User.Role)
}

// ClaimsFrom returns the claims stored by Gate.
func ClaimsFrom(c echo.Context) (*tokens.Claims, bool) {
	claims, ok := c.Get(claimsKey).(*tokens.Claims)
	return claims, ok && claims != nil
}

// UserFrom returns the user loaded by RequireRoles.
func UserFrom(c echo.Context) (*models.User, bool) {
	u, ok := c.Get(userKey).(*models.User)
	return u, ok && u != nil
}

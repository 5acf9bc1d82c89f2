package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookly/bookly/internal/errs"
	"github.com/bookly/bookly/internal/logging"
	authmw "github.com/bookly/bookly/internal/middleware/auth"
	"github.com/bookly/bookly/internal/service"
	"github.com/bookly/bookly/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AccountService
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.signup")

	var req transport.SignupRequest
	if err := bind(c, &req); err != nil {
		l.Warn("signup_error", "status", errs.StatusOf(err), "reason", "invalid body", "error", err)
		return err
	}

	user, err := h.Svc.Signup(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Account Created! Check email to verify your account",
		"user":    user,
	})
}

func (h *AuthHTTP) Verify(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.verify")

	if err := h.Svc.Verify(ctx, c.Param("token")); err != nil {
		l.Warn("verify_failed", "status", errs.StatusOf(err), "error", err)
		return err
	}

	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Account verified successfully"})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := bind(c, &req); err != nil {
		l.Warn("login_error", "status", errs.StatusOf(err), "reason", "invalid body", "error", err)
		return err
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, transport.LoginResponse{
		Message:      "Login successful",
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		User: transport.UserSummary{
			Email: res.User.Email,
			UID:   res.User.UID.String(),
		},
	})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	claims, ok := authmw.ClaimsFrom(c)
	if !ok {
		return errs.ErrRefreshTokenRequired
	}

	access, err := h.Svc.Refresh(ctx, claims)
	if err != nil {
		l.Warn("refresh_failed", "status", errs.StatusOf(err), "error", err)
		return err
	}

	l.Info("refresh_successful")
	return c.JSON(http.StatusOK, echo.Map{"access_token": access})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()

	claims, ok := authmw.ClaimsFrom(c)
	if !ok {
		return errs.ErrAccessTokenRequired
	}

	user, err := h.Svc.Me(ctx, claims.UID())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	claims, ok := authmw.ClaimsFrom(c)
	if !ok {
		return errs.ErrAccessTokenRequired
	}
	if err := h.Svc.Logout(ctx, claims); err != nil {
		return err
	}

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Logged Out Successfully"})
}

func (h *AuthHTTP) PasswordResetRequest(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.PasswordResetRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Svc.RequestPasswordReset(ctx, req.Email); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, transport.MessageResponse{
		Message: "Please check your email for instructions to reset your password",
	})
}

func (h *AuthHTTP) PasswordResetConfirm(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.password_reset_confirm")

	var req transport.PasswordResetConfirm
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.Svc.ConfirmPasswordReset(ctx, c.Param("token"), req.NewPassword, req.ConfirmNewPassword); err != nil {
		l.Warn("password_reset_failed", "status", errs.StatusOf(err), "error", err)
		return err
	}

	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Password reset Successfully"})
}

func (h *AuthHTTP) SendMail(c echo.Context) error {
	ctx := c.Request().Context()

	var req transport.EmailRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	h.Svc.SendMail(ctx, req.Addresses)

	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Email sent successfully"})
}

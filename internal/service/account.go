package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bookly/bookly/internal/errs"
	"github.com/bookly/bookly/internal/hash"
	"github.com/bookly/bookly/internal/logging"
	"github.com/bookly/bookly/internal/models"
	"github.com/bookly/bookly/internal/repo"
	"github.com/bookly/bookly/internal/tokens"
	"github.com/bookly/bookly/internal/transport"
)

// Mailer is the part of mail.Dispatcher the account flows use.
type Mailer interface {
	SendVerification(ctx context.Context, email, name, token string)
	SendPasswordReset(ctx context.Context, email, token string)
	SendWelcome(ctx context.Context, addresses []string)
}

type AccountService struct {
	Repo   *repo.GormRepo
	Tokens *tokens.Service
	Mailer Mailer
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

func (s *AccountService) Exists(ctx context.Context, email string) (bool, error) {
	ok, err := s.Repo.UserExists(ctx, email)
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return ok, nil
}

// Create stores a new unverified user. An existing email fails with
// UserAlreadyExists and leaves the store untouched.
func (s *AccountService) Create(ctx context.Context, req transport.SignupRequest) (*models.User, error) {
	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         models.RoleUser,
		PasswordHash: pwHash,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			return nil, errs.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *AccountService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.Repo.GetUserByEmail(ctx, email)
	return user, userErr(err)
}

func (s *AccountService) GetByUID(ctx context.Context, uid uuid.UUID) (*models.User, error) {
	user, err := s.Repo.GetUserByUID(ctx, uid)
	return user, userErr(err)
}

func (s *AccountService) SetVerified(ctx context.Context, email string) error {
	return userErr(s.Repo.SetVerified(ctx, email))
}

func (s *AccountService) SetPassword(ctx context.Context, email, newHash string) error {
	return userErr(s.Repo.SetPassword(ctx, email, newHash))
}

func userErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return errs.ErrUserNotFound
	default:
		return fmt.Errorf("user store: %w", err)
	}
}

// Signup creates the account and queues the verification email.
func (s *AccountService) Signup(ctx context.Context, req transport.SignupRequest) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "account.signup")

	user, err := s.Create(ctx, req)
	if err != nil {
		if errors.Is(err, errs.ErrUserAlreadyExists) {
			l.Warn("signup_failed", "status", 403, "reason", "user already exists")
		} else {
			l.Error("signup_failed", "status", 500, "error", err)
		}
		return nil, err
	}

	link, err := s.Tokens.Links.Encode(user.Email, tokens.PurposeVerifyEmail)
	if err != nil {
		l.Error("verification_link_failed", "error", err)
		return user, nil
	}
	s.Mailer.SendVerification(ctx, user.Email, user.FirstName, link)

	l.Info("signup_successful", "user_uid", user.UID)
	return user, nil
}

// Login never reveals whether the email exists: unknown users and wrong
// passwords both fail with InvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "account.login")

	user, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("load user: %w", err)
	}

	storedHash := ""
	if user != nil {
		storedHash = user.PasswordHash
	}
	if !hash.CheckPassword(storedHash, password) {
		l.Warn("login_failed", "status", 400, "reason", "invalid email or password")
		return nil, errs.ErrInvalidCredentials
	}

	id := identity(user)
	access, err := s.Tokens.Manager.IssueAccess(id)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.Tokens.Manager.IssueRefresh(id)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	l.Info("login_successful", "user_uid", user.UID)
	return &LoginResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

func identity(u *models.User) tokens.Identity {
	return tokens.Identity{Email: u.Email, UserUID: u.UID.String(), Role: u.Role}
}

// Verify redeems a verification link and marks the account verified.
func (s *AccountService) Verify(ctx context.Context, token string) error {
	claims, err := s.Tokens.Redeem(ctx, token, tokens.PurposeVerifyEmail)
	if err != nil {
		return err
	}
	if err := s.SetVerified(ctx, claims.Email); err != nil {
		return s.keepLinkOnFailure(ctx, claims, err)
	}
	logging.FromContext(ctx).Info("account_verified", "svc", "account.verify")
	return nil
}

// RequestPasswordReset queues a reset link when the account exists and
// succeeds either way.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	l := logging.FromContext(ctx).With("svc", "account.password_reset_request")

	ok, err := s.Exists(ctx, email)
	if err != nil {
		l.Error("password_reset_request_failed", "status", 500, "error", err)
		return err
	}
	if !ok {
		return nil
	}

	link, err := s.Tokens.Links.Encode(email, tokens.PurposePasswordReset)
	if err != nil {
		return fmt.Errorf("reset link: %w", err)
	}
	s.Mailer.SendPasswordReset(ctx, email, link)
	return nil
}

// ConfirmPasswordReset checks the pair matches before spending the token.
func (s *AccountService) ConfirmPasswordReset(ctx context.Context, token, newPassword, confirm string) error {
	if newPassword != confirm {
		return errs.ErrPasswordMismatch
	}
	claims, err := s.Tokens.Redeem(ctx, token, tokens.PurposePasswordReset)
	if err != nil {
		return err
	}
	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.SetPassword(ctx, claims.Email, pwHash); err != nil {
		return s.keepLinkOnFailure(ctx, claims, err)
	}
	return nil
}

// keepLinkOnFailure hands a redeemed link back when err is not a domain
// error, so a transient store failure does not cost the user their link.
func (s *AccountService) keepLinkOnFailure(ctx context.Context, claims *tokens.ActionClaims, err error) error {
	if _, ok := errs.As(err); ok {
		return err
	}
	if rerr := s.Tokens.Unredeem(ctx, claims); rerr != nil {
		logging.FromContext(ctx).Error("link_release_failed", "svc", "account", "purpose", claims.Purpose, "error", rerr)
	}
	return err
}

// Me returns the current user with books and reviews.
func (s *AccountService) Me(ctx context.Context, uid uuid.UUID) (*models.User, error) {
	user, err := s.Repo.GetUserWithRelations(ctx, uid)
	return user, userErr(err)
}

// Logout revokes the presented token for the rest of its lifetime.
func (s *AccountService) Logout(ctx context.Context, claims *tokens.Claims) error {
	if err := s.Tokens.RevokeClaims(ctx, claims); err != nil {
		logging.FromContext(ctx).Error("logout_failed", "status", 500, "reason", "cannot revoke token", "error", err)
		return err
	}
	return nil
}

func (s *AccountService) Refresh(ctx context.Context, claims *tokens.Claims) (string, error) {
	return s.Tokens.RefreshAccess(ctx, claims)
}

func (s *AccountService) SendMail(ctx context.Context, addresses []string) {
	s.Mailer.SendWelcome(ctx, addresses)
}

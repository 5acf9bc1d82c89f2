// Package errs holds the domain error taxonomy shared by services, the
// authorization gate and the HTTP error handler.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindInvalidToken           Kind = "InvalidToken"
	KindAccessTokenRequired    Kind = "AccessTokenRequired"
	KindRefreshTokenRequired   Kind = "RefreshTokenRequired"
	KindInsufficientPermission Kind = "InsufficientPermission"
	KindAccountNotVerified     Kind = "AccountNotVerified"
	KindUserAlreadyExists      Kind = "UserAlreadyExists"
	KindUserNotFound           Kind = "UserNotFound"
	KindInvalidCredentials     Kind = "InvalidCredentials"
	KindNotFound               Kind = "NotFound"
	KindAlreadyExists          Kind = "AlreadyExists"
	KindForbidden              Kind = "Forbidden"
	KindValidation             Kind = "Validation"
	KindBadRequest             Kind = "BadRequest"
	KindRateLimited            Kind = "RateLimited"
	KindInternal               Kind = "Internal"
)

// Status returns the HTTP status a kind is reported with.
func (k Kind) Status() int {
	switch k {
	case KindInvalidToken, KindAccessTokenRequired, KindInsufficientPermission:
		return http.StatusUnauthorized
	case KindRefreshTokenRequired, KindAccountNotVerified, KindUserAlreadyExists, KindAlreadyExists, KindForbidden:
		return http.StatusForbidden
	case KindUserNotFound, KindNotFound:
		return http.StatusNotFound
	case KindInvalidCredentials, KindBadRequest:
		return http.StatusBadRequest
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a typed domain error. Two errors match under errors.Is when
// their kinds are equal.
type Error struct {
	Kind       Kind   `json:"-"`
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	Resolution string `json:"resolution,omitempty"`
	Details    any    `json:"details,omitempty"`
	cause      error
	status     int
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Status is the HTTP status for e: an override set by WithStatus, else the
// status of its kind.
func (e *Error) Status() int {
	if e.status != 0 {
		return e.status
	}
	return e.Kind.Status()
}

// Wrap returns a copy of e carrying cause. The cause is logged, never sent
// to the client.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func (e *Error) WithStatus(status int) *Error {
	cp := *e
	cp.status = status
	return &cp
}

func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrInvalidToken = &Error{
		Kind: KindInvalidToken, Code: "invalid_token",
		Message: "Token is invalid or expired", Resolution: "Please get new token",
	}
	ErrAccessTokenRequired = &Error{
		Kind: KindAccessTokenRequired, Code: "access_token_required",
		Message: "Please provide a valid access token", Resolution: "Please get an access token",
	}
	ErrRefreshTokenRequired = &Error{
		Kind: KindRefreshTokenRequired, Code: "refresh_token_required",
		Message: "Please provide a valid refresh token", Resolution: "Please get a refresh token",
	}
	ErrInsufficientPermission = &Error{
		Kind: KindInsufficientPermission, Code: "insufficient_permissions",
		Message: "You do not have enough permissions to perform this action",
	}
	ErrAccountNotVerified = &Error{
		Kind: KindAccountNotVerified, Code: "account_not_verified",
		Message: "Account not verified", Resolution: "Please check your email for verification details",
	}
	ErrUserAlreadyExists = &Error{
		Kind: KindUserAlreadyExists, Code: "user_exists",
		Message: "User with email already exists",
	}
	ErrUserNotFound = &Error{
		Kind: KindUserNotFound, Code: "user_not_found",
		Message: "User not found",
	}
	ErrInvalidCredentials = &Error{
		Kind: KindInvalidCredentials, Code: "invalid_email_or_password",
		Message: "Invalid email or password",
	}
	ErrBookNotFound     = New(KindNotFound, "book_not_found", "Book not found")
	ErrReviewNotFound   = New(KindNotFound, "review_not_found", "Review not found")
	ErrTagNotFound      = New(KindNotFound, "tag_not_found", "Tag not found")
	ErrTagExists        = New(KindAlreadyExists, "tag_exists", "Tag already exists")
	ErrForbidden        = New(KindForbidden, "forbidden", "Cannot delete this review")
	ErrValidation       = New(KindValidation, "validation_error", "validation failed")
	ErrPasswordMismatch = New(KindBadRequest, "password_mismatch", "Passwords do not match")
	ErrBadRequest       = New(KindBadRequest, "bad_request", "Malformed request")
	ErrRateLimited      = New(KindRateLimited, "too_many_requests", "Too many requests")
	ErrInternal         = New(KindInternal, "server_error", "Oops! Something went wrong")
)

// As reports whether err carries a domain error and returns it.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// StatusOf returns the HTTP status err maps to; unknown errors are 500.
func StatusOf(err error) int {
	if e, ok := As(err); ok {
		return e.Status()
	}
	return http.StatusInternalServerError
}

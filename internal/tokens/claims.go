package tokens

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

func (k Kind) Valid() bool { return k == KindAccess || k == KindRefresh }

// Identity is the user data embedded in session tokens.
type Identity struct {
	Email   string `json:"email"`
	UserUID string `json:"user_uid"`
	Role    string `json:"role"`
}

// Claims is the payload of an access or refresh token.
type Claims struct {
	User Identity `json:"user"`
	Kind Kind     `json:"kind"`
	jwt.RegisteredClaims
}

// UnmarshalJSON rejects payloads carrying fields Claims does not declare.
func (c *Claims) UnmarshalJSON(b []byte) error {
	type plain Claims
	var p plain
	if err := decodeStrict(b, &p); err != nil {
		return err
	}
	*c = Claims(p)
	return nil
}

func (c *Claims) validate() error {
	switch {
	case c.User.Email == "":
		return errors.New("missing user.email")
	case c.User.Role == "":
		return errors.New("missing user.role")
	case !c.Kind.Valid():
		return fmt.Errorf("unknown kind %q", c.Kind)
	case c.ID == "":
		return errors.New("missing jti")
	case c.ExpiresAt == nil:
		return errors.New("missing exp")
	case c.IssuedAt == nil:
		return errors.New("missing iat")
	}
	if _, err := uuid.Parse(c.User.UserUID); err != nil {
		return fmt.Errorf("bad user.user_uid: %w", err)
	}
	return nil
}

// UID returns the user id; validate has already checked it parses.
func (c *Claims) UID() uuid.UUID {
	id, _ := uuid.Parse(c.User.UserUID)
	return id
}

type Purpose string

const (
	PurposeVerifyEmail   Purpose = "email_verification"
	PurposePasswordReset Purpose = "password_reset"
)

// ActionClaims is the payload of a verification or password-reset link.
type ActionClaims struct {
	Email   string  `json:"email"`
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

func (c *ActionClaims) UnmarshalJSON(b []byte) error {
	type plain ActionClaims
	var p plain
	if err := decodeStrict(b, &p); err != nil {
		return err
	}
	*c = ActionClaims(p)
	return nil
}

func (c *ActionClaims) validate(want Purpose) error {
	switch {
	case c.Email == "":
		return errors.New("missing email")
	case c.Purpose != want:
		return fmt.Errorf("purpose %q, want %q", c.Purpose, want)
	case c.ID == "":
		return errors.New("missing jti")
	case c.ExpiresAt == nil:
		return errors.New("missing exp")
	}
	return nil
}

func decodeStrict(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

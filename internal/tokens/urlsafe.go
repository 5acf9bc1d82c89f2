package tokens

import (
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/bookly/bookly/internal/errs"
)

const linkKeySalt = "bookly-urlsafe-link"

// URLSafe encodes an email into signed, time-limited link tokens. Each
// purpose signs with its own key derived from the session secret, so a
// session token can never be replayed as a link and vice versa.
type URLSafe struct {
	keys   map[Purpose][]byte
	ttls   map[Purpose]time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

func NewURLSafe(secret []byte, verifyTTL, resetTTL time.Duration) (*URLSafe, error) {
	u := &URLSafe{
		keys: make(map[Purpose][]byte, 2),
		ttls: map[Purpose]time.Duration{
			PurposeVerifyEmail:   verifyTTL,
			PurposePasswordReset: resetTTL,
		},
		now: time.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for p := range u.ttls {
		key := make([]byte, 32)
		if _, err := io.ReadFull(hkdf.New(sha256.New, secret, []byte(linkKeySalt), []byte(p)), key); err != nil {
			return nil, fmt.Errorf("derive %s key: %w", p, err)
		}
		u.keys[p] = key
	}
	return u, nil
}

func (u *URLSafe) WithClock(now func() time.Time) *URLSafe {
	cp := *u
	cp.now = now
	return &cp
}

func (u *URLSafe) Encode(email string, p Purpose) (string, error) {
	key, ok := u.keys[p]
	if !ok {
		return "", fmt.Errorf("encode link: unknown purpose %q", p)
	}
	now := u.now()
	claims := ActionClaims{
		Email:   email,
		Purpose: p,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(u.ttls[p])),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s link: %w", p, err)
	}
	return signed, nil
}

// Decode verifies a link token for purpose p, including its expiry.
func (u *URLSafe) Decode(raw string, p Purpose) (*ActionClaims, error) {
	key, ok := u.keys[p]
	if !ok {
		return nil, errs.ErrInvalidToken.Wrap(fmt.Errorf("unknown purpose %q", p))
	}
	claims := &ActionClaims{}
	_, err := u.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return key, nil })
	if err != nil {
		return nil, errs.ErrInvalidToken.Wrap(err)
	}
	if err := claims.validate(p); err != nil {
		return nil, errs.ErrInvalidToken.Wrap(err)
	}
	if !u.now().Before(claims.ExpiresAt.Time) {
		return nil, errs.ErrInvalidToken.Wrap(jwt.ErrTokenExpired)
	}
	return claims, nil
}

// Remaining is the validity left on c, never negative.
func (u *URLSafe) Remaining(c *ActionClaims) time.Duration {
	if d := c.ExpiresAt.Sub(u.now()); d > 0 {
		return d
	}
	return 0
}

package tokens

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bookly/bookly/internal/errs"
)

const (
	DefaultAccessTTL  = 60 * time.Minute
	DefaultRefreshTTL = 48 * time.Hour
)

// Manager signs and decodes session tokens. It holds no mutable state and is
// safe for concurrent use.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

func NewManager(secret []byte, accessTTL, refreshTTL time.Duration) *Manager {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Manager{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// WithClock replaces the wall clock, for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	cp := *m
	cp.now = now
	return &cp
}

func (m *Manager) Now() time.Time { return m.now() }

func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

// Issue signs a token of the given kind for id, valid for ttl from now.
func (m *Manager) Issue(id Identity, kind Kind, ttl time.Duration) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("issue token: unknown kind %q", kind)
	}
	now := m.now()
	claims := Claims{
		User: id,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.UserUID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

func (m *Manager) IssueAccess(id Identity) (string, error) {
	return m.Issue(id, KindAccess, m.accessTTL)
}

func (m *Manager) IssueRefresh(id Identity) (string, error) {
	return m.Issue(id, KindRefresh, m.refreshTTL)
}

// Decode checks signature, algorithm and payload shape. Expiry and
// revocation are left to the caller.
func (m *Manager) Decode(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, err := m.parser.ParseWithClaims(raw, claims, m.keyFunc); err != nil {
		return nil, errs.ErrInvalidToken.Wrap(err)
	}
	if err := claims.validate(); err != nil {
		return nil, errs.ErrInvalidToken.Wrap(err)
	}
	return claims, nil
}

// IsExpired reports whether now is at or past the expiry instant.
func (m *Manager) IsExpired(c *Claims) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !m.now().Before(c.ExpiresAt.Time)
}

// Remaining is the validity left on c, never negative.
func (m *Manager) Remaining(c *Claims) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	if d := c.ExpiresAt.Sub(m.now()); d > 0 {
		return d
	}
	return 0
}

func (m *Manager) keyFunc(*jwt.Token) (any, error) {
	return m.secret, nil
}

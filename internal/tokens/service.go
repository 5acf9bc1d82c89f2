package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/bookly/bookly/internal/blocklist"
	"github.com/bookly/bookly/internal/errs"
)

// Service layers revocation on top of the stateless Manager and URLSafe
// codecs.
type Service struct {
	Manager *Manager
	Links   *URLSafe
	Store   blocklist.Store
	// Ceiling caps how long a revocation entry lives. It must be at least
	// the longest token lifetime or a revoked token could become valid again.
	Ceiling time.Duration
}

func NewService(m *Manager, links *URLSafe, store blocklist.Store, ceiling time.Duration) *Service {
	if ceiling < m.RefreshTTL() {
		ceiling = m.RefreshTTL()
	}
	return &Service{Manager: m, Links: links, Store: store, Ceiling: ceiling}
}

func (s *Service) IsRevoked(ctx context.Context, jti string) (bool, error) {
	ok, err := s.Store.Contains(ctx, jti)
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return ok, nil
}

func (s *Service) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := s.Store.Add(ctx, jti, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// RevokeClaims revokes c for the rest of its validity.
func (s *Service) RevokeClaims(ctx context.Context, c *Claims) error {
	return s.Revoke(ctx, c.ID, s.revocationTTL(s.Manager.Remaining(c)))
}

func (s *Service) revocationTTL(remaining time.Duration) time.Duration {
	if remaining < blocklist.MinTTL {
		remaining = blocklist.MinTTL
	}
	if s.Ceiling > 0 && remaining > s.Ceiling {
		remaining = s.Ceiling
	}
	return remaining
}

// Authorize runs the gate checks in order: signature and shape, revocation,
// expiry, then token kind.
func (s *Service) Authorize(ctx context.Context, raw string, want Kind) (*Claims, error) {
	claims, err := s.Manager.Decode(raw)
	if err != nil {
		return nil, err
	}

	revoked, err := s.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, errs.ErrInvalidToken.Wrap(fmt.Errorf("jti %s revoked", claims.ID))
	}

	if s.Manager.IsExpired(claims) {
		return nil, errs.ErrInvalidToken.Wrap(fmt.Errorf("jti %s expired", claims.ID))
	}

	if claims.Kind != want {
		if want == KindAccess {
			return nil, errs.ErrAccessTokenRequired
		}
		return nil, errs.ErrRefreshTokenRequired
	}
	return claims, nil
}

// RefreshAccess mints a new access token for the identity in a refresh
// token's claims. Expiry is checked again here.
func (s *Service) RefreshAccess(_ context.Context, c *Claims) (string, error) {
	if c.Kind != KindRefresh {
		return "", errs.ErrRefreshTokenRequired
	}
	if s.Manager.IsExpired(c) {
		return "", errs.ErrInvalidToken.Wrap(fmt.Errorf("jti %s expired", c.ID))
	}
	return s.Manager.IssueAccess(c.User)
}

// Redeem decodes a link token and marks it used. A second redemption of the
// same link fails with InvalidToken.
func (s *Service) Redeem(ctx context.Context, raw string, p Purpose) (*ActionClaims, error) {
	claims, err := s.Links.Decode(raw, p)
	if err != nil {
		return nil, err
	}
	first, err := s.Store.Consume(ctx, claims.ID, s.revocationTTL(s.Links.Remaining(claims)))
	if err != nil {
		return nil, fmt.Errorf("consume link token: %w", err)
	}
	if !first {
		return nil, errs.ErrInvalidToken.Wrap(fmt.Errorf("link %s already used", claims.ID))
	}
	return claims, nil
}

// Unredeem makes a redeemed link usable again.
func (s *Service) Unredeem(ctx context.Context, c *ActionClaims) error {
	if err := s.Store.Release(ctx, c.ID); err != nil {
		return fmt.Errorf("release link token: %w", err)
	}
	return nil
}

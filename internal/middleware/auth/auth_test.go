package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookly/bookly/internal/blocklist"
	"github.com/bookly/bookly/internal/errs"
	"github.com/bookly/bookly/internal/models"
	"github.com/bookly/bookly/internal/testutil"
	"github.com/bookly/bookly/internal/tokens"
)

type fakeUsers map[uuid.UUID]*models.User

func (f fakeUsers) GetByUID(_ context.Context, uid uuid.UUID) (*models.User, error) {
	u, ok := f[uid]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	return u, nil
}

func newTokenService(t *testing.T) *tokens.Service {
	t.Helper()

	ts, _ := newTokenServiceWithRedis(t)
	return ts
}

func newTokenServiceWithRedis(t *testing.T) (*tokens.Service, *miniredis.Miniredis) {
	t.Helper()

	rdb, mr := testutil.NewRedis(t)
	secret := []byte("middleware-test-secret-123456")
	links, err := tokens.NewURLSafe(secret, time.Hour, time.Hour)
	require.NoError(t, err)
	return tokens.NewService(tokens.NewManager(secret, time.Minute, time.Hour), links, blocklist.NewRedisStore(rdb), 0), mr
}

func identityOf(u *models.User) tokens.Identity {
	return tokens.Identity{Email: u.Email, UserUID: u.UID.String(), Role: u.Role}
}

func run(mw []echo.MiddlewareFunc, authz string) (*echo.Echo, echo.Context, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/books", nil)
	if authz != "" {
		req.Header.Set(echo.HeaderAuthorization, authz)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	h := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return e, c, h(c)
}

func TestGate(t *testing.T) {
	t.Parallel()

	ts := newTokenService(t)
	u := &models.User{UID: uuid.New(), Email: "a@x.com", Role: models.RoleUser}

	access, err := ts.Manager.IssueAccess(identityOf(u))
	require.NoError(t, err)
	refresh, err := ts.Manager.IssueRefresh(identityOf(u))
	require.NoError(t, err)

	tests := []struct {
		name    string
		kind    tokens.Kind
		authz   string
		wantErr error
	}{
		{"access ok", tokens.KindAccess, "Bearer " + access, nil},
		{"lowercase scheme", tokens.KindAccess, "bearer " + access, nil},
		{"refresh ok", tokens.KindRefresh, "Bearer " + refresh, nil},
		{"missing header wants access", tokens.KindAccess, "", errs.ErrAccessTokenRequired},
		{"missing header wants refresh", tokens.KindRefresh, "", errs.ErrRefreshTokenRequired},
		{"basic scheme", tokens.KindAccess, "Basic abc", errs.ErrAccessTokenRequired},
		{"garbage token", tokens.KindAccess, "Bearer nope", errs.ErrInvalidToken},
		{"refresh where access wanted", tokens.KindAccess, "Bearer " + refresh, errs.ErrAccessTokenRequired},
		{"access where refresh wanted", tokens.KindRefresh, "Bearer " + access, errs.ErrRefreshTokenRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, c, err := run([]echo.MiddlewareFunc{Gate(ts, tt.kind)}, tt.authz)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			claims, ok := ClaimsFrom(c)
			require.True(t, ok)
			assert.Equal(t, u.UID, claims.UID())
			assert.Equal(t, u.UID.String(), c.Get("user_id"))
		})
	}
}

func TestGate_RevokedToken(t *testing.T) {
	t.Parallel()

	ts := newTokenService(t)
	u := &models.User{UID: uuid.New(), Email: "a@x.com", Role: models.RoleUser}
	access, err := ts.Manager.IssueAccess(identityOf(u))
	require.NoError(t, err)

	claims, err := ts.Manager.Decode(access)
	require.NoError(t, err)
	require.NoError(t, ts.RevokeClaims(context.Background(), claims))

	_, _, err = run([]echo.MiddlewareFunc{RequireAccess(ts)}, "Bearer "+access)
	assert.ErrorIs(t, err, errs.ErrInvalidToken)
}

func TestGate_RevocationStoreDown(t *testing.T) {
	t.Parallel()

	ts, mr := newTokenServiceWithRedis(t)
	u := &models.User{UID: uuid.New(), Email: "a@x.com", Role: models.RoleUser}
	access, err := ts.Manager.IssueAccess(identityOf(u))
	require.NoError(t, err)

	mr.Close()

	_, _, err = run([]echo.MiddlewareFunc{RequireAccess(ts)}, "Bearer "+access)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errs.ErrAccessTokenRequired)
	_, isDomain := errs.As(err)
	assert.False(t, isDomain)
	assert.Equal(t, http.StatusInternalServerError, errs.StatusOf(err))
}

func TestRequireRoles(t *testing.T) {
	t.Parallel()

	ts := newTokenService(t)
	verified := &models.User{UID: uuid.New(), Email: "v@x.com", Role: models.RoleUser, IsVerified: true}
	unverified := &models.User{UID: uuid.New(), Email: "u@x.com", Role: models.RoleUser}
	admin := &models.User{UID: uuid.New(), Email: "root@x.com", Role: models.RoleAdmin, IsVerified: true}
	ghost := &models.User{UID: uuid.New(), Email: "g@x.com", Role: models.RoleUser}
	users := fakeUsers{verified.UID: verified, unverified.UID: unverified, admin.UID: admin}

	tests := []struct {
		name    string
		user    *models.User
		allowed []string
		wantErr error
	}{
		{"verified user", verified, []string{models.RoleAdmin, models.RoleUser}, nil},
		{"admin on admin route", admin, []string{models.RoleAdmin}, nil},
		{"user on admin route", verified, []string{models.RoleAdmin}, errs.ErrInsufficientPermission},
		{"unverified user", unverified, []string{models.RoleAdmin, models.RoleUser}, errs.ErrAccountNotVerified},
		{"deleted user", ghost, []string{models.RoleUser}, errs.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			access, err := ts.Manager.IssueAccess(identityOf(tt.user))
			require.NoError(t, err)

			mw := []echo.MiddlewareFunc{RequireAccess(ts), RequireRoles(users, tt.allowed...)}
			_, c, err := run(mw, "Bearer "+access)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			got, ok := UserFrom(c)
			require.True(t, ok)
			assert.Equal(t, tt.user.UID, got.UID)
		})
	}
}

func TestRequireRoles_WithoutGate(t *testing.T) {
	t.Parallel()

	_, _, err := run([]echo.MiddlewareFunc{RequireAdmin(fakeUsers{})}, "")
	assert.ErrorIs(t, err, errs.ErrAccessTokenRequired)
}

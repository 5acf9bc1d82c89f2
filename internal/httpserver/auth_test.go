package httpserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookly/bookly/internal/ratelimit"
)

func TestSignup(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	rec := env.doJSONRequest(http.MethodPost, "/api/v1/auth/signup", signupBody("a@x.com"), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	type signupResponse struct {
		Message string `json:"message"`
		User    struct {
			Email      string `json:"email"`
			IsVerified bool   `json:"is_verified"`
			Password   string `json:"password_hash"`
		} `json:"user"`
	}
	res := decode[signupResponse](t, rec)
	assert.NotEmpty(t, res.Message)
	assert.Equal(t, "a@x.com", res.User.Email)
	assert.False(t, res.User.IsVerified)
	assert.Empty(t, res.User.Password, "password hash is never serialized")

	rec = env.doJSONRequest(http.MethodPost, "/api/v1/auth/signup", signupBody("a@x.com"), "")
	requireError(t, rec, http.StatusForbidden, "user_exists")
}

func TestSignup_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	body := signupBody("not-an-email")
	body["username"] = "much-too-long"
	rec := env.doJSONRequest(http.MethodPost, "/api/v1/auth/signup", body, "")
	res := requireError(t, rec, http.StatusUnprocessableEntity, "validation_error")
	assert.Contains(t, res.Details, "email")
	assert.Contains(t, res.Details, "username")

	rec = env.doJSONRequest(http.MethodPost, "/api/v1/auth/signup", "{not json", "")
	requireError(t, rec, http.StatusBadRequest, "bad_request")
}

func TestLogin(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	s := env.registerUser(t, "a@x.com")
	assert.NotEmpty(t, s.Access)
	assert.NotEmpty(t, s.Refresh)
	assert.NotEmpty(t, s.UID)

	tests := []struct {
		name  string
		email string
		pw    string
	}{
		{"wrong password", "a@x.com", "wrong-pw"},
		{"unknown email", "b@x.com", "pw123456"},
	}
	for _, tt := range tests {
		rec := env.doJSONRequest(http.MethodPost, "/api/v1/auth/login",
			map[string]string{"email": tt.email, "password": tt.pw}, "")
		requireError(t, rec, http.StatusBadRequest, "invalid_email_or_password")
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	rec := env.doJSONRequest(http.MethodPost, "/api/v1/auth/signup", signupBody("a@x.com"), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	s := env.login(t, "a@x.com", "pw123456")

	rec = env.doJSONRequest(http.MethodGet, "/api/v1/auth/me", nil, s.Access)
	requireError(t, rec, http.StatusForbidden, "account_not_verified")

	link := env.Mailer.get("verify:a@x.com")
	rec = env.doJSONRequest(http.MethodGet, "/api/v1/auth/verify/"+link, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSONRequest(http.MethodGet, "/api/v1/auth/verify/"+link, nil, "")
	requireError(t, rec, http.StatusUnauthorized, "invalid_token")

	rec = env.doJSONRequest(http.MethodGet, "/api/v1/auth/verify/garbage", nil, "")
	requireError(t, rec, http.StatusUnauthorized, "invalid_token")

	rec = env.doJSONRequest(http.MethodGet, "/api/v1/auth/me", nil, s.Access)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMe(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	s := env.registerUser(t, "a@x.com")

	rec := env.doJSONRequest(http.MethodGet, "/api/v1/auth/me", nil, "")
	requireError(t, rec, http.StatusUnauthorized, "access_token_required")

	rec = env.doJSONRequest(http.MethodGet, "/api/v1/auth/me", nil, s.Refresh)
	requireError(t, rec, http.StatusUnauthorized, "access_token_required")

	rec = env.doJSONRequest(http.MethodGet, "/api/v1/auth/me", nil, s.Access)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	assert.Equal(t, "a@x.com", me["email"])
	assert.Equal(t, true, me["is_verified"])
	assert.NotContains(t, me, "password_hash")
}

func TestRefreshToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	s := env.registerUser(t, "a@x.com")

	rec := env.doJSONRequest(http.MethodGet, "/api/v1/auth/refresh_token", nil, s.Access)
	requireError(t, rec, http.StatusForbidden, "refresh_token_required")

	rec = env.doJSONRequest(http.MethodGet, "/api/v1/auth/refresh_token", nil, "")
	requireError(t, rec, http.StatusForbidden, "refresh_token_required")

	rec = env.doJSONRequest(http.MethodGet, "/api/v1/auth/refresh_token", nil, s.Refresh)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[map[string]string](t, rec)
	require.NotEmpty(t, res["access_token"])

	rec = env.doJSONRequest(http.MethodGet, "/api/v1/auth/me", nil, res["access_token"])
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogout(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	s := env.registerUser(t, "a@x.com")

	rec := env.doJSONRequest(http.MethodGet, "/api/v1/auth/logout", nil, s.Access)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSONRequest(http.MethodGet, "/api/v1/auth/me", nil, s.Access)
	requireError(t, rec, http.StatusUnauthorized, "invalid_token")

	rec = env.doJSONRequest(http.MethodGet, "/api/v1/auth/logout", nil, s.Access)
	requireError(t, rec, http.StatusUnauthorized, "invalid_token")
}

func TestPasswordReset(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	env.registerUser(t, "a@x.com")

	rec := env.doJSONRequest(http.MethodPost, "/api/v1/auth/password-reset-request",
		map[string]string{"email": "nobody@x.com"}, "")
	require.Equal(t, http.StatusOK, rec.Code, "unknown emails are not revealed")
	assert.Empty(t, env.Mailer.get("reset:nobody@x.com"))

	rec = env.doJSONRequest(http.MethodPost, "/api/v1/auth/password-reset-request",
		map[string]string{"email": "a@x.com"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	link := env.Mailer.get("reset:a@x.com")
	require.NotEmpty(t, link)

	rec = env.doJSONRequest(http.MethodPost, "/api/v1/auth/password-reset-confirm/"+link,
		map[string]string{"new_password": "newpass1", "confirm_new_password": "other11"}, "")
	requireError(t, rec, http.StatusBadRequest, "password_mismatch")

	rec = env.doJSONRequest(http.MethodPost, "/api/v1/auth/password-reset-confirm/"+link,
		map[string]string{"new_password": "newpass1", "confirm_new_password": "newpass1"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env.login(t, "a@x.com", "newpass1")

	rec = env.doJSONRequest(http.MethodPost, "/api/v1/auth/password-reset-confirm/"+link,
		map[string]string{"new_password": "again123", "confirm_new_password": "again123"}, "")
	requireError(t, rec, http.StatusUnauthorized, "invalid_token")
}

func TestSendMail(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	rec := env.doJSONRequest(http.MethodPost, "/api/v1/auth/send_mail",
		map[string][]string{"addresses": {"a@x.com", "b@x.com"}}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSONRequest(http.MethodPost, "/api/v1/auth/send_mail",
		map[string][]string{"addresses": {"bad"}}, "")
	requireError(t, rec, http.StatusUnprocessableEntity, "validation_error")
}

func TestSendMail_RateLimited(t *testing.T) {
	t.Parallel()

	limiter := ratelimit.New(0.001, 2)
	t.Cleanup(limiter.Stop)
	env := newTestEnv(t, limiter)

	body := map[string][]string{"addresses": {"a@x.com"}}
	for i := 0; i < 2; i++ {
		rec := env.doJSONRequest(http.MethodPost, "/api/v1/auth/send_mail", body, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec := env.doJSONRequest(http.MethodPost, "/api/v1/auth/send_mail", body, "")
	requireError(t, rec, http.StatusTooManyRequests, "too_many_requests")
}

func TestLogin_RateLimited(t *testing.T) {
	t.Parallel()

	limiter := ratelimit.New(0.001, 2)
	t.Cleanup(limiter.Stop)
	env := newTestEnv(t, limiter)

	body := map[string]string{"email": "a@x.com", "password": "pw123456"}
	for i := 0; i < 2; i++ {
		rec := env.doJSONRequest(http.MethodPost, "/api/v1/auth/login", body, "")
		requireError(t, rec, http.StatusBadRequest, "invalid_email_or_password")
	}
	rec := env.doJSONRequest(http.MethodPost, "/api/v1/auth/login", body, "")
	requireError(t, rec, http.StatusTooManyRequests, "too_many_requests")
}

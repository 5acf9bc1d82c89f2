package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bookly/bookly/internal/blocklist"
	"github.com/bookly/bookly/internal/logging"
	"github.com/bookly/bookly/internal/models"
	"github.com/bookly/bookly/internal/ratelimit"
	"github.com/bookly/bookly/internal/repo"
	"github.com/bookly/bookly/internal/search"
	"github.com/bookly/bookly/internal/service"
	"github.com/bookly/bookly/internal/testutil"
	"github.com/bookly/bookly/internal/tokens"
)

type captureMailer struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *captureMailer) SendVerification(_ context.Context, email, _ string, token string) {
	m.put("verify:"+email, token)
}

func (m *captureMailer) SendPasswordReset(_ context.Context, email, token string) {
	m.put("reset:"+email, token)
}

func (m *captureMailer) SendWelcome(context.Context, []string) {}

func (m *captureMailer) put(k, v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[k] = v
}

func (m *captureMailer) get(k string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[k]
}

type testEnv struct {
	E      *echo.Echo
	DB     *gorm.DB
	Mailer *captureMailer
	Tokens *tokens.Service
}

func newTestEnv(t *testing.T, limiter *ratelimit.KeyedRateLimiter) *testEnv {
	t.Helper()

	gdb := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)

	secret := []byte("http-test-secret-0123456789")
	links, err := tokens.NewURLSafe(secret, time.Hour, time.Hour)
	require.NoError(t, err)
	ts := tokens.NewService(tokens.NewManager(secret, time.Minute, time.Hour), links, blocklist.NewRedisStore(rdb), 0)

	r := &repo.GormRepo{DB: gdb}
	mailer := &captureMailer{tokens: map[string]string{}}
	accounts := &service.AccountService{Repo: r, Tokens: ts, Mailer: mailer}

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(logging.Discard())
	Register(e, &Deps{
		AuthHandler:   &AuthHTTP{Svc: accounts},
		BookHandler:   &BookHTTP{Svc: &service.BookService{Repo: r, Index: &search.DBIndex{DB: gdb}}},
		ReviewHandler: &ReviewHTTP{Svc: &service.ReviewService{Repo: r}},
		TagHandler:    &TagHTTP{Svc: &service.TagService{Repo: r}},
		Tokens:        ts,
		Users:         accounts,
		Limiter:       limiter,
		Checks: []HealthCheck{
			{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
	})

	return &testEnv{E: e, DB: gdb, Mailer: mailer, Tokens: ts}
}

func (env *testEnv) doJSONRequest(method, path string, body any, bearer string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Message    string            `json:"message"`
	ErrorCode  string            `json:"error_code"`
	Resolution string            `json:"resolution"`
	Details    map[string]string `json:"details"`
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) errorBody {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[errorBody](t, rec)
	require.Equal(t, code, body.ErrorCode)
	return body
}

func signupBody(email string) map[string]string {
	return map[string]string{
		"username":   "reader",
		"email":      email,
		"first_name": "Ann",
		"last_name":  "Lee",
		"password":   "pw123456",
	}
}

type session struct {
	Access  string
	Refresh string
	UID     string
}

// registerUser signs up, verifies and logs in.
func (env *testEnv) registerUser(t *testing.T, email string) session {
	t.Helper()

	rec := env.doJSONRequest(http.MethodPost, "/api/v1/auth/signup", signupBody(email), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	link := env.Mailer.get("verify:" + email)
	require.NotEmpty(t, link)
	rec = env.doJSONRequest(http.MethodGet, "/api/v1/auth/verify/"+link, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	return env.login(t, email, "pw123456")
}

func (env *testEnv) login(t *testing.T, email, password string) session {
	t.Helper()

	rec := env.doJSONRequest(http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		User         struct {
			UID string `json:"uid"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return session{Access: res.AccessToken, Refresh: res.RefreshToken, UID: res.User.UID}
}

func (env *testEnv) promote(t *testing.T, email string) {
	t.Helper()
	require.NoError(t, env.DB.Model(&models.User{}).Where("email = ?", email).Update("role", models.RoleAdmin).Error)
}

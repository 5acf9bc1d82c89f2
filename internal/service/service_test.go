package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bookly/bookly/internal/blocklist"
	"github.com/bookly/bookly/internal/models"
	"github.com/bookly/bookly/internal/repo"
	"github.com/bookly/bookly/internal/search"
	"github.com/bookly/bookly/internal/testutil"
	"github.com/bookly/bookly/internal/tokens"
	"github.com/bookly/bookly/internal/transport"
)

type sentMail struct {
	Kind  string
	To    []string
	Token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) SendVerification(_ context.Context, email, _ string, token string) {
	m.add(sentMail{Kind: "verification", To: []string{email}, Token: token})
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, email, token string) {
	m.add(sentMail{Kind: "password_reset", To: []string{email}, Token: token})
}

func (m *fakeMailer) SendWelcome(_ context.Context, addresses []string) {
	m.add(sentMail{Kind: "welcome", To: addresses})
}

func (m *fakeMailer) add(s sentMail) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, s)
}

func (m *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

type testEnv struct {
	repo     *repo.GormRepo
	tokens   *tokens.Service
	mailer   *fakeMailer
	accounts *AccountService
	books    *BookService
	reviews  *ReviewService
	tags     *TagService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)

	secret := []byte("test-jwt-secret-0123456789")
	links, err := tokens.NewURLSafe(secret, 24*time.Hour, time.Hour)
	require.NoError(t, err)
	m := tokens.NewManager(secret, time.Minute, time.Hour)
	ts := tokens.NewService(m, links, blocklist.NewRedisStore(rdb), time.Hour)

	r := &repo.GormRepo{DB: gdb}
	mailer := &fakeMailer{}
	return &testEnv{
		repo:     r,
		tokens:   ts,
		mailer:   mailer,
		accounts: &AccountService{Repo: r, Tokens: ts, Mailer: mailer},
		books:    &BookService{Repo: r, Index: &search.DBIndex{DB: gdb}},
		reviews:  &ReviewService{Repo: r},
		tags:     &TagService{Repo: r},
	}
}

func (env *testEnv) signup(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := env.accounts.Signup(context.Background(), transport.SignupRequest{
		Username: "reader", Email: email, FirstName: "Ann", LastName: "Lee", Password: "pw123456",
	})
	require.NoError(t, err)
	return u
}

func (env *testEnv) createBook(t *testing.T, owner uuid.UUID, title string) *models.Book {
	t.Helper()
	b, err := env.books.CreateBook(context.Background(), owner, transport.CreateBookRequest{
		Title: title, Author: "Frank Herbert", Publisher: "Chilton",
		PublishedDate: models.NewDate(1965, time.August, 1), PageCount: 412, Language: "en",
	})
	require.NoError(t, err)
	return b
}

package mail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookly/bookly/internal/logging"
)

type captureQueue struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (q *captureQueue) Enqueue(_ context.Context, m Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, m)
	return nil
}

type captureSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (s *captureSender) Send(_ context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, m)
	return s.err
}

func (s *captureSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func newDispatcher(t *testing.T, q Queue) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(q, DispatcherConfig{Domain: "bookly.test", VerifyTTL: 24 * time.Hour, ResetTTL: time.Hour})
	require.NoError(t, err)
	return d
}

func TestDispatcher_SendVerification(t *testing.T) {
	t.Parallel()

	q := &captureQueue{}
	d := newDispatcher(t, q)

	d.SendVerification(context.Background(), "a@x.com", "ann", "tok.en.sig")

	require.Len(t, q.msgs, 1)
	m := q.msgs[0]
	assert.Equal(t, KindVerification, m.Kind)
	assert.Equal(t, []string{"a@x.com"}, m.To)
	assert.Equal(t, "Verify your email", m.Subject)
	assert.Contains(t, m.HTML, "http://bookly.test/api/v1/auth/verify/tok.en.sig")
	assert.Contains(t, m.HTML, "1 day")
}

func TestDispatcher_SendPasswordReset(t *testing.T) {
	t.Parallel()

	q := &captureQueue{}
	newDispatcher(t, q).SendPasswordReset(context.Background(), "a@x.com", "tok")

	require.Len(t, q.msgs, 1)
	assert.Contains(t, q.msgs[0].HTML, "http://bookly.test/api/v1/auth/password-reset-confirm/tok")
	assert.Contains(t, q.msgs[0].HTML, "1 hour")
}

func TestDispatcher_EnqueueFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	q := &captureQueue{err: errors.New("broker down")}
	assert.NotPanics(t, func() {
		newDispatcher(t, q).SendWelcome(context.Background(), []string{"a@x.com", "b@x.com"})
	})
	assert.Empty(t, q.msgs)
}

func TestTemplates_EscapeLinks(t *testing.T) {
	t.Parallel()

	r, err := newRenderer()
	require.NoError(t, err)
	html, err := r.render(KindVerification, templateData{Name: "<script>", Link: "http://x/verify/abc"})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestMessage_EncodeDecode(t *testing.T) {
	t.Parallel()

	in := Message{Kind: KindWelcome, To: []string{"a@x.com"}, Subject: "hi", HTML: "<h1>hi</h1>"}
	b, err := in.Encode()
	require.NoError(t, err)
	out, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = Decode([]byte(`{"kind":"welcome","to":[]}`))
	require.Error(t, err)
}

func TestBuildMessage(t *testing.T) {
	t.Parallel()

	body := buildMessage(SMTPConfig{From: "noreply@bookly.test", FromName: "Bookly"}, Message{
		To: []string{"a@x.com", "b@x.com"}, Subject: "Hello", HTML: "<p>x</p>",
	})
	assert.Contains(t, body, "From: Bookly <noreply@bookly.test>\r\n")
	assert.Contains(t, body, "To: a@x.com, b@x.com\r\n")
	assert.Contains(t, body, "Content-Type: text/html; charset=UTF-8\r\n\r\n<p>x</p>")
}

func TestHumanize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2 days", humanize(48*time.Hour))
	assert.Equal(t, "3 hours", humanize(3*time.Hour))
	assert.Equal(t, "15 minutes", humanize(15*time.Minute))
	assert.Equal(t, "a limited time", humanize(0))
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaQueue_Enqueue(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	q := &KafkaQueue{writer: w, topic: "mail_jobs"}

	require.NoError(t, q.Enqueue(context.Background(), Message{Kind: KindWelcome, To: []string{"a@x.com"}}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "welcome", string(w.msgs[0].Key))

	m, err := Decode(w.msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com"}, m.To)
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func TestWorker_DeliversAndCommits(t *testing.T) {
	t.Parallel()

	good, err := Message{Kind: KindWelcome, To: []string{"a@x.com"}, Subject: "hi"}.Encode()
	require.NoError(t, err)

	r := &fakeReader{queue: []kafka.Message{
		{Offset: 1, Value: good},
		{Offset: 2, Value: []byte("not json")},
		{Offset: 3, Value: good},
	}}
	s := &captureSender{err: errors.New("smtp down")}
	w := newWorker(r, s, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(r.commits()) == 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{1, 2, 3}, r.commits(), "failed sends and bad payloads are committed")
	assert.Equal(t, 2, s.count())
}

func TestLocalQueue(t *testing.T) {
	t.Parallel()

	s := &captureSender{}
	q := NewLocalQueue(1, s, logging.Discard())

	require.NoError(t, q.Enqueue(context.Background(), Message{Kind: KindWelcome, To: []string{"a@x.com"}}))
	assert.ErrorIs(t, q.Enqueue(context.Background(), Message{Kind: KindWelcome, To: []string{"b@x.com"}}), ErrQueueFull)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	require.Eventually(t, func() bool { return s.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

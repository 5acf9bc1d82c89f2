package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/bookly/bookly/internal/logging"
)

// Dispatcher builds account emails and hands them to a Queue. Enqueue
// failures are logged and never returned: mail is fire-and-forget from the
// caller's point of view.
type Dispatcher struct {
	queue    Queue
	render   *renderer
	domain   string
	appName  string
	verifyIn time.Duration
	resetIn  time.Duration
}

type DispatcherConfig struct {
	Domain    string
	AppName   string
	VerifyTTL time.Duration
	ResetTTL  time.Duration
}

func NewDispatcher(q Queue, cfg DispatcherConfig) (*Dispatcher, error) {
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}
	if cfg.AppName == "" {
		cfg.AppName = "Bookly"
	}
	return &Dispatcher{
		queue:    q,
		render:   r,
		domain:   cfg.Domain,
		appName:  cfg.AppName,
		verifyIn: cfg.VerifyTTL,
		resetIn:  cfg.ResetTTL,
	}, nil
}

func (d *Dispatcher) VerificationLink(token string) string {
	return fmt.Sprintf("http://%s/api/v1/auth/verify/%s", d.domain, token)
}

func (d *Dispatcher) ResetLink(token string) string {
	return fmt.Sprintf("http://%s/api/v1/auth/password-reset-confirm/%s", d.domain, token)
}

func (d *Dispatcher) SendVerification(ctx context.Context, email, name, token string) {
	d.dispatch(ctx, KindVerification, []string{email}, templateData{
		Name:     name,
		Link:     d.VerificationLink(token),
		ValidFor: humanize(d.verifyIn),
	})
}

func (d *Dispatcher) SendPasswordReset(ctx context.Context, email, token string) {
	d.dispatch(ctx, KindPasswordReset, []string{email}, templateData{
		Link:     d.ResetLink(token),
		ValidFor: humanize(d.resetIn),
	})
}

func (d *Dispatcher) SendWelcome(ctx context.Context, addresses []string) {
	d.dispatch(ctx, KindWelcome, addresses, templateData{})
}

func (d *Dispatcher) dispatch(ctx context.Context, kind Kind, to []string, data templateData) {
	l := logging.FromContext(ctx).With("mail", string(kind))
	data.AppName = d.appName

	html, err := d.render.render(kind, data)
	if err != nil {
		l.Error("mail_render_failed", "error", err)
		return
	}
	msg := Message{Kind: kind, To: to, Subject: subjects[kind], HTML: html}
	if err := d.queue.Enqueue(ctx, msg); err != nil {
		l.Error("mail_enqueue_failed", "recipients", len(to), "error", err)
		return
	}
	l.Info("mail_enqueued", "recipients", len(to))
}

func humanize(d time.Duration) string {
	switch {
	case d <= 0:
		return "a limited time"
	case d%(24*time.Hour) == 0:
		n := int(d / (24 * time.Hour))
		if n == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", n)
	case d%time.Hour == 0:
		n := int(d / time.Hour)
		if n == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", n)
	default:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
}

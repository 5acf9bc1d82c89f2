package mail

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var ErrQueueFull = errors.New("mail: local queue is full")

// LocalQueue is an in-process queue used when no kafka brokers are
// configured. Messages still in the buffer at shutdown are dropped.
type LocalQueue struct {
	jobs   chan Message
	sender Sender
	log    *slog.Logger
}

func NewLocalQueue(size int, sender Sender, log *slog.Logger) *LocalQueue {
	if size <= 0 {
		size = 64
	}
	return &LocalQueue{jobs: make(chan Message, size), sender: sender, log: log.With("component", "mail_local")}
}

func (q *LocalQueue) Enqueue(_ context.Context, m Message) error {
	select {
	case q.jobs <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers queued messages until ctx is cancelled.
func (q *LocalQueue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-q.jobs:
			sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			if err := q.sender.Send(sendCtx, m); err != nil {
				q.log.Error("mail_send_failed", "kind", m.Kind, "recipients", len(m.To), "error", err)
			} else {
				q.log.Info("mail_sent", "kind", m.Kind, "recipients", len(m.To))
			}
			cancel()
		}
	}
}

package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaQueue publishes mail jobs to a topic with an async writer, so
// Enqueue returns before the broker acknowledges.
type KafkaQueue struct {
	writer messageWriter
	topic  string
}

func NewKafkaQueue(brokers []string, topic string, log *slog.Logger) *KafkaQueue {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		Async:                  true,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Error("mail_publish_failed", "topic", topic, "messages", len(msgs), "error", err)
			}
		},
	}
	return &KafkaQueue{writer: w, topic: topic}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, m Message) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	msg := kafka.Message{Key: []byte(string(m.Kind)), Value: data}
	if err := q.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write to %s failed: %w", q.topic, err)
	}
	return nil
}

func (q *KafkaQueue) Close() error {
	return q.writer.Close()
}

// Worker consumes mail jobs from a consumer group and delivers them. A job
// that fails to send is logged and committed; there are no retries.
type Worker struct {
	reader      messageReader
	sender      Sender
	log         *slog.Logger
	sendTimeout time.Duration
}

func NewKafkaWorker(brokers []string, topic, group string, sender Sender, log *slog.Logger) *Worker {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	return newWorker(r, sender, log)
}

func newWorker(r messageReader, sender Sender, log *slog.Logger) *Worker {
	return &Worker{reader: r, sender: sender, log: log.With("component", "mail_worker"), sendTimeout: 30 * time.Second}
}

// Run blocks until ctx is cancelled or the reader fails.
func (w *Worker) Run(ctx context.Context) error {
	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("kafka: fetch failed: %w", err)
		}

		w.handle(ctx, msg)

		if err := w.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka: commit failed: %w", err)
		}
	}
}

func (w *Worker) handle(ctx context.Context, raw kafka.Message) {
	l := w.log.With("partition", raw.Partition, "offset", raw.Offset)

	m, err := Decode(raw.Value)
	if err != nil {
		l.Error("mail_decode_failed", "error", err)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()
	if err := w.sender.Send(sendCtx, m); err != nil {
		l.Error("mail_send_failed", "kind", m.Kind, "recipients", len(m.To), "error", err)
		return
	}
	l.Info("mail_sent", "kind", m.Kind, "recipients", len(m.To))
}

func (w *Worker) Close() error {
	return w.reader.Close()
}

// EnsureTopic creates topic on the cluster controller if it does not exist.
func EnsureTopic(ctx context.Context, broker, topic string) error {
	var d kafka.Dialer
	conn, err := d.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("kafka: dial %s: %w", broker, err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("kafka: controller: %w", err)
	}

	admin, err := d.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("kafka: dial controller: %w", err)
	}
	defer admin.Close()

	err = admin.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("kafka: create topic %s: %w", topic, err)
	}
	return nil
}

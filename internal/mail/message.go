// Package mail renders account emails and moves them off the request path:
// handlers enqueue, a worker delivers.
package mail

import (
	"context"
	"encoding/json"
	"fmt"
)

type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
	KindWelcome       Kind = "welcome"
)

// Message is one queued email job.
type Message struct {
	Kind    Kind     `json:"kind"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m Message) Encode() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("mail: json.Marshal failed: %w", err)
	}
	return b, nil
}

func Decode(b []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Message{}, fmt.Errorf("mail: json.Unmarshal failed: %w", err)
	}
	if len(m.To) == 0 {
		return Message{}, fmt.Errorf("mail: message has no recipients")
	}
	return m, nil
}

// Queue accepts messages for asynchronous delivery. Enqueue must not wait
// for the message to be sent.
type Queue interface {
	Enqueue(ctx context.Context, m Message) error
}

// Sender delivers a message synchronously.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

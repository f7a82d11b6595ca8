package mailer

import (
	"context"
	"errors"
	"strings"
)

var ErrQueueFull = errors.New("mail queue full")

type Message struct {
	To        string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errors.New("recipient is required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("subject is required")
	}
	if m.PlainText == "" && m.HTML == "" {
		return errors.New("message body is required")
	}
	return nil
}

// Sender delivers a single message. Implementations must be safe for
// concurrent use by the pool workers.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Queue is what notification producers depend on.
type Queue interface {
	Enqueue(msg Message) error
}

package mailer

import (
	"context"
	"log/slog"
)

// ConsoleSender logs messages instead of delivering them. It is used when no
// SendGrid key is configured.
type ConsoleSender struct {
	fromEmail string
	logger    *slog.Logger
}

func NewConsoleSender(fromEmail string, logger *slog.Logger) *ConsoleSender {
	return &ConsoleSender{fromEmail: fromEmail, logger: logger}
}

func (s *ConsoleSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "email not sent (development mode)",
		"from", s.fromEmail,
		"to", msg.To,
		"to_name", msg.ToName,
		"subject", msg.Subject,
		"body", msg.PlainText)
	return nil
}

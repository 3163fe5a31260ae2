package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Message is one transactional email. HTML is optional when Text is set.
type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
	ReplyTo string
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errors.New("missing recipient email")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("missing subject")
	}
	if strings.TrimSpace(m.Text) == "" && strings.TrimSpace(m.HTML) == "" {
		return errors.New("missing body")
	}
	return nil
}

// Sender delivers a message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// LogSender writes messages to the log instead of sending them. Used in
// development and whenever no provider is configured.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) (string, error) {
	if err := msg.validate(); err != nil {
		return "", err
	}
	id := "log-" + uuid.NewString()
	s.log.InfoContext(ctx, "mail send: logged",
		slog.String("message_id", id),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("reply_to", msg.ReplyTo),
		slog.String("text", msg.Text),
	)
	return id, nil
}

// NewSender picks the provider named by MAIL_PROVIDER. A provider without
// credentials falls back to the log sender.
func NewSender(provider, brevoKey, mailerSendKey, fromEmail, fromName string, sandbox bool, log *slog.Logger) Sender {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "brevo":
		if c := NewBrevoClient(brevoKey, fromEmail, fromName, sandbox); c != nil {
			return c
		}
		log.Warn("mail provider: brevo not configured, falling back to log")
	case "mailersend":
		if c := NewMailerSendClient(mailerSendKey, fromEmail, fromName); c != nil {
			return c
		}
		log.Warn("mail provider: mailersend not configured, falling back to log")
	}
	return NewLogSender(log)
}

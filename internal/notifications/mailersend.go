package notifications

import (
	"context"
	"errors"
	"strings"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

func NewMailerSendClient(apiKey, fromEmail, fromName string) *MailerSendClient {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(fromEmail) == "" {
		return nil
	}
	return &MailerSendClient{
		client: mailersend.NewMailersend(apiKey),
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}
}

func (m *MailerSendClient) Send(ctx context.Context, msg Message) (string, error) {
	if m == nil {
		return "", errors.New("mailersend client is nil")
	}
	if err := msg.validate(); err != nil {
		return "", err
	}

	out := m.client.Email.NewMessage()
	out.SetFrom(m.from)
	out.SetRecipients([]mailersend.Recipient{{Name: msg.ToName, Email: msg.To}})
	out.SetSubject(msg.Subject)
	if strings.TrimSpace(msg.Text) != "" {
		out.SetText(msg.Text)
	}
	if strings.TrimSpace(msg.HTML) != "" {
		out.SetHTML(msg.HTML)
	}
	if msg.ReplyTo != "" {
		out.SetReplyTo(mailersend.ReplyTo{Email: msg.ReplyTo})
	}

	res, err := m.client.Email.Send(ctx, out)
	if err != nil {
		return "", err
	}
	return res.Header.Get("X-Message-Id"), nil
}

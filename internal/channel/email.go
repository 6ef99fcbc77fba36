package channel

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/omnidesk/inbox-gateway/internal/config"
	"github.com/omnidesk/inbox-gateway/internal/model"
)

// EmailAdapter delivers messages over SMTP. The channel ships disabled:
// with no SMTP host configured every send returns a failure result, so
// email messages land in status failed instead of erroring out.
type EmailAdapter struct {
	host     string
	port     int
	username string
	password string
	from     string

	// sendMail is swappable for tests; defaults to smtp.SendMail.
	sendMail func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmail(cfg config.EmailConfig) *EmailAdapter {
	return &EmailAdapter{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		sendMail: smtp.SendMail,
	}
}

func (a *EmailAdapter) Channel() model.Channel { return model.ChannelEmail }

func (a *EmailAdapter) Destination(c model.Contact) (string, bool) {
	return c.Email.String, c.Email.Valid && c.Email.String != ""
}

func (a *EmailAdapter) Send(ctx context.Context, dest, text, mediaURL string) (SendResult, error) {
	if a.host == "" {
		return SendResult{Success: false, ErrorDetail: "email channel not configured"}, nil
	}

	body := text
	if mediaURL != "" {
		body += "\r\n\r\nAttachment: " + mediaURL
	}

	var sb strings.Builder
	sb.WriteString("From: " + a.from + "\r\n")
	sb.WriteString("To: " + dest + "\r\n")
	sb.WriteString("Subject: New message\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)

	var auth smtp.Auth
	if a.username != "" {
		auth = smtp.PlainAuth("", a.username, a.password, a.host)
	}

	addr := fmt.Sprintf("%s:%d", a.host, a.port)

	done := make(chan error, 1)
	go func() {
		done <- a.sendMail(addr, auth, a.from, []string{dest}, []byte(sb.String()))
	}()

	select {
	case <-ctx.Done():
		return SendResult{}, ctx.Err()
	case err := <-done:
		if err != nil {
			return SendResult{Success: false, ErrorDetail: err.Error()}, nil
		}
	}

	return SendResult{Success: true}, nil
}

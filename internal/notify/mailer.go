package notify

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/ikkim/bizreview-backend/config"
	"github.com/ikkim/bizreview-backend/pkg/logger"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Message is a rendered plain-text email.
type Message struct {
	ToAddress string
	ToName    string
	Subject   string
	Body      string
}

// Mailer delivers one message. Errors wrapped with backoff.Permanent are not retried.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer picks the provider named in config; unknown names fall back to logging.
func NewMailer(cfg config.MailConfig) Mailer {
	switch cfg.Provider {
	case "sendgrid":
		return NewSendGridMailer(cfg.SendGridAPIKey, cfg.FromAddress, cfg.FromName)
	case "smtp":
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.FromAddress, cfg.FromName)
	default:
		return LogMailer{}
	}
}

// SendGridMailer sends through the SendGrid v3 API.
type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridMailer(apiKey, fromAddress, fromName string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddress),
	}
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	to := mail.NewEmail(msg.ToName, msg.ToAddress)
	email := mail.NewSingleEmail(m.from, msg.Subject, to, msg.Body, "")

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	return classifyStatus(resp.StatusCode, resp.Body)
}

// classifyStatus treats 429 and 5xx as transient; other non-2xx codes are permanent.
func classifyStatus(status int, body string) error {
	if status >= 200 && status < 300 {
		return nil
	}
	err := fmt.Errorf("sendgrid responded %d: %s", status, body)
	if status == 429 || status >= 500 {
		return err
	}
	return backoff.Permanent(err)
}

// SMTPMailer sends with PLAIN auth over net/smtp.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
	fromName string
}

func NewSMTPMailer(host, port, username, password, from, fromName string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, username: username, password: password, from: from, fromName: fromName}
}

func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	if msg.ToAddress == "" {
		return backoff.Permanent(errors.New("recipient address is empty"))
	}

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	if err := smtp.SendMail(addr, auth, m.from, []string{msg.ToAddress}, buildMIME(m.from, m.fromName, msg)); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

func buildMIME(from, fromName string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", mime.QEncoding.Encode("utf-8", fromName), from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.ToAddress)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

// LogMailer only logs messages (development).
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	logger.Info("Email (log mailer)", map[string]interface{}{
		"to":      msg.ToAddress,
		"subject": msg.Subject,
	})
	return nil
}

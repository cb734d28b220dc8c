// Package mail renders the notification templates and delivers them over SMTP.
package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	gomail "gopkg.in/mail.v2"

	"opalestay/internal/app/policies"
)

const (
	FromName   = "Opale Stay"
	maxRetries = 3
)

//go:embed "templates"
var templateFS embed.FS

var ErrUnknownTemplate = errors.New("mail: unknown template")

// Rendered is one message ready to send.
type Rendered struct {
	Subject string
	Body    string
}

// Render executes the "subject" and "plainBody" blocks of templates/<name>.tmpl.
func Render(name string, data any) (Rendered, error) {
	tmpl, err := template.New("email").ParseFS(templateFS, "templates/"+name+".tmpl")
	if err != nil {
		return Rendered{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	var subject, body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&subject, "subject", data); err != nil {
		return Rendered{}, err
	}
	if err := tmpl.ExecuteTemplate(&body, "plainBody", data); err != nil {
		return Rendered{}, err
	}
	return Rendered{Subject: strings.TrimSpace(subject.String()), Body: strings.TrimSpace(body.String()) + "\n"}, nil
}

// Sender is the part of *gomail.Dialer the notifier uses.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier implements policies.Notifier on top of gopkg.in/mail.v2.
type SMTPNotifier struct {
	Sender  Sender
	From    string
	Backoff time.Duration
	Logger  *slog.Logger
}

func NewSMTPNotifier(cfg SMTPConfig, logger *slog.Logger) *SMTPNotifier {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.Timeout = 10 * time.Second
	return &SMTPNotifier{Sender: dialer, From: cfg.From, Backoff: time.Second, Logger: logger}
}

func (n *SMTPNotifier) Send(ctx context.Context, to, templateName string, data any) error {
	msg, err := Render(templateName, data)
	if err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", n.From, FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	for attempt := 1; ; attempt++ {
		err = n.Sender.DialAndSend(m)
		if err == nil {
			return nil
		}
		if attempt == maxRetries {
			return fmt.Errorf("mail: send %s to %s after %d attempts: %w", templateName, to, attempt, err)
		}
		if n.Logger != nil {
			n.Logger.WarnContext(ctx, "mail send failed, retrying", "template", templateName, "attempt", attempt, "error", err)
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(n.Backoff * time.Duration(attempt)):
		}
	}
}

// LogNotifier renders messages and logs them instead of sending. Used when SMTP is not
// configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, to, templateName string, data any) error {
	msg, err := Render(templateName, data)
	if err != nil {
		return err
	}
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "mail not sent, smtp disabled", "to", to, "template", templateName, "subject", msg.Subject, "body", msg.Body)
	return nil
}

var (
	_ policies.Notifier = (*SMTPNotifier)(nil)
	_ policies.Notifier = LogNotifier{}
)

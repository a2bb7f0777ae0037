// Package notify delivers messages left through the site's contact section
// to the owner's inbox.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/go-logr/logr"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// ErrNotConfigured is returned by mailers missing credentials.
var ErrNotConfigured = errors.New("notify: mailer not configured")

// Message is an email to the site owner.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	Body    string
}

// Mailer sends a Message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ContactMessage formats a contact-section submission.
func ContactMessage(to, name, email, message string) Message {
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, name, email, message)
	return Message{
		To:      to,
		ReplyTo: email,
		Subject: fmt.Sprintf("Portfolio Contact: %s", name),
		Body:    body,
	}
}

// SendGridMailer sends through the SendGrid v3 API.
type SendGridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    logr.Logger
}

// NewSendGridMailer returns nil when apiKey is empty.
func NewSendGridMailer(apiKey, fromEmail, fromName string, logger logr.Logger) *SendGridMailer {
	if apiKey == "" {
		return nil
	}
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
		logger:    logger,
	}
}

func (s *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if s == nil || s.client == nil {
		return ErrNotConfigured
	}
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", msg.To)
	m := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, msg.Body)
	if msg.ReplyTo != "" {
		m.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Info("sendgrid returned error status", "status", resp.StatusCode)
		return fmt.Errorf("notify: sendgrid returned status %d", resp.StatusCode)
	}
	s.logger.Info("contact email sent via sendgrid", "status", resp.StatusCode)
	return nil
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	Host     string
	Port     string
	User     string
	Password string

	send SendFunc
}

// NewSMTPMailer returns a mailer using smtp.SendMail.
func NewSMTPMailer(host, port, user, password string) *SMTPMailer {
	return &SMTPMailer{Host: host, Port: port, User: user, Password: password, send: smtp.SendMail}
}

func (s *SMTPMailer) Send(_ context.Context, msg Message) error {
	if s.User == "" || s.Password == "" {
		return fmt.Errorf("%w: SMTP credentials missing", ErrNotConfigured)
	}
	if strings.ContainsAny(msg.To+msg.ReplyTo+msg.Subject, "\r\n") {
		return fmt.Errorf("notify: header injection rejected")
	}

	raw := []byte("To: " + msg.To + "\r\n" +
		"Subject: " + msg.Subject + "\r\n" +
		"From: " + s.User + "\r\n" +
		"Reply-To: " + msg.ReplyTo + "\r\n" +
		"\r\n" +
		msg.Body + "\r\n")

	auth := smtp.PlainAuth("", s.User, s.Password, s.Host)
	if err := s.send(s.Host+":"+s.Port, auth, s.User, []string{msg.To}, raw); err != nil {
		return fmt.Errorf("notify: smtp send: %w", err)
	}
	return nil
}

// LogMailer records messages instead of sending them.
type LogMailer struct {
	Logger logr.Logger
}

func (l LogMailer) Send(_ context.Context, msg Message) error {
	l.Logger.Info("mail delivery disabled; dropping message", "subject", msg.Subject)
	return nil
}

// UnavailableMailer stands in when no delivery is configured and the
// message must not be reported as sent.
type UnavailableMailer struct {
	Logger logr.Logger
}

func (u UnavailableMailer) Send(_ context.Context, msg Message) error {
	u.Logger.Error(ErrNotConfigured, "cannot deliver message", "subject", msg.Subject)
	return ErrNotConfigured
}

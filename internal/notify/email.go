// Package notify sends email notifications for question-intake events.
//
// The Mailer is constructed once in the wiring code and injected into the
// services that need it — there is no package-level singleton. When email
// is not configured (no SMTP host), the constructor returns a disabled
// Mailer whose send methods are no-ops, so callers never need to branch
// on configuration.
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/phm-oh/chatqa-backend/internal/model"
)

// Mailer delivers notification emails over SMTP.
type Mailer struct {
	client     *mail.Client
	from       string
	adminEmail string
	logger     *slog.Logger
}

// Config holds the SMTP settings for the Mailer.
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string // sender address; defaults to Username
	AdminEmail string // recipient of new-question alerts
}

// NewMailer builds a Mailer from cfg. An empty Host yields a disabled
// Mailer (Enabled() == false) that silently drops sends.
func NewMailer(cfg Config, logger *slog.Logger) (*Mailer, error) {
	if cfg.Host == "" {
		logger.Info("email notifications disabled: no SMTP host configured")
		return &Mailer{logger: logger}, nil
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: creating SMTP client: %w", err)
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &Mailer{
		client:     client,
		from:       from,
		adminEmail: cfg.AdminEmail,
		logger:     logger,
	}, nil
}

// Enabled reports whether the Mailer will actually deliver anything.
func (m *Mailer) Enabled() bool {
	return m.client != nil
}

// SendNewQuestionAlert notifies the admin mailbox that a visitor filed a
// new question.
func (m *Mailer) SendNewQuestionAlert(ctx context.Context, q *model.Question) error {
	if !m.Enabled() || m.adminEmail == "" {
		return nil
	}

	subject := fmt.Sprintf("New question submitted: %s", q.Category)
	body := fmt.Sprintf(
		"<h2>New question received</h2>"+
			"<p><strong>From:</strong> %s (%s)</p>"+
			"<p><strong>Category:</strong> %s</p>"+
			"<p><strong>Question:</strong></p><blockquote>%s</blockquote>",
		html.EscapeString(q.Name),
		html.EscapeString(q.Email),
		html.EscapeString(string(q.Category)),
		html.EscapeString(q.Question),
	)
	text := fmt.Sprintf("New question from %s (%s)\nCategory: %s\n\n%s",
		q.Name, q.Email, q.Category, q.Question)

	return m.send(ctx, m.adminEmail, subject, body, text)
}

// SendQuestionAnsweredNotification tells the submitter their question has
// been answered.
func (m *Mailer) SendQuestionAnsweredNotification(ctx context.Context, q *model.Question) error {
	if !m.Enabled() || q.Email == "" {
		return nil
	}

	subject := "Your question has been answered"
	body := fmt.Sprintf(
		"<h2>Your question has been answered</h2>"+
			"<p><strong>Your question:</strong></p><blockquote>%s</blockquote>"+
			"<p><strong>Answer:</strong></p><blockquote>%s</blockquote>",
		html.EscapeString(q.Question),
		html.EscapeString(q.Answer),
	)
	text := fmt.Sprintf("Your question:\n%s\n\nAnswer:\n%s", q.Question, q.Answer)

	return m.send(ctx, q.Email, subject, body, text)
}

func (m *Mailer) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("notify: setting sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("notify: setting recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, textBody)
	msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("notify: sending to %s: %w", to, err)
	}
	m.logger.Info("notification email sent",
		slog.String("to", to),
		slog.String("subject", subject),
	)
	return nil
}

// Package mailer delivers outreach emails over SMTP.
package mailer

import (
	"context"
	"fmt"
	"os"

	"github.com/reacher-cli/reacher/internal/draft"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Config carries SMTP settings and sender identity.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	FromName  string
	FromEmail string
	ReplyTo   string

	// ResumePDF is attached to every outreach when set.
	ResumePDF string
}

// Mailer implements draft.Transport over SMTP with STARTTLS.
type Mailer struct {
	cfg    Config
	dial   func(m *gomail.Message) error
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) (*Mailer, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, fmt.Errorf("smtp host and port are required")
	}
	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.Username
	}
	if cfg.ResumePDF != "" {
		if _, err := os.Stat(cfg.ResumePDF); err != nil {
			return nil, fmt.Errorf("resume attachment: %w", err)
		}
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &Mailer{
		cfg:    cfg,
		dial:   func(m *gomail.Message) error { return d.DialAndSend(m) },
		logger: logger,
	}, nil
}

// Send delivers one draft. The context is honored up front only; gomail has
// no context support once dialing starts.
func (m *Mailer) Send(ctx context.Context, d *draft.Draft) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.ToEmail == "" {
		return fmt.Errorf("draft %d has no recipient", d.ID)
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.FromEmail, m.cfg.FromName)
	msg.SetHeader("To", d.ToEmail)
	msg.SetHeader("Subject", d.Subject)
	if m.cfg.ReplyTo != "" {
		msg.SetHeader("Reply-To", m.cfg.ReplyTo)
	}
	msg.SetBody("text/plain", d.Body)
	if m.cfg.ResumePDF != "" {
		msg.Attach(m.cfg.ResumePDF)
	}

	if err := m.dial(msg); err != nil {
		return fmt.Errorf("send to %s: %w", d.ToEmail, err)
	}

	m.logger.Debug("email delivered",
		zap.String("to", d.ToEmail),
		zap.String("subject", d.Subject))
	return nil
}

// DryRun is a Transport that logs instead of dialing, for --dry-run.
type DryRun struct {
	Logger *zap.Logger
}

func (d *DryRun) Send(_ context.Context, dr *draft.Draft) error {
	d.Logger.Info("dry run, not sending",
		zap.Int64("id", dr.ID),
		zap.String("company", dr.Company),
		zap.String("to", dr.ToEmail),
		zap.String("subject", dr.Subject))
	return nil
}

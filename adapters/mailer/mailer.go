// Package mailer delivers notification emails. The provider is an explicit
// strategy constructed once at startup from typed configuration; there is no
// runtime provider probing.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/geogift/geogift/ports"
)

// Config selects and configures the mail provider.
type Config struct {
	Provider string `env:"MAIL_PROVIDER" envDefault:"log"` // "smtp" or "log"
	From     string `env:"MAIL_FROM" envDefault:"noreply@geogift.xyz"`
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
}

// New builds the mailer named by cfg.Provider.
func New(cfg Config, log zerolog.Logger) (ports.Mailer, error) {
	switch cfg.Provider {
	case "smtp":
		if cfg.Host == "" {
			return nil, fmt.Errorf("smtp provider requires SMTP_HOST")
		}
		return &smtpMailer{cfg: cfg}, nil
	case "log", "":
		return &logMailer{log: log}, nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

type smtpMailer struct {
	cfg Config
}

func (m *smtpMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// logMailer records outbound mail instead of delivering it, for development
// and environments without SMTP credentials.
type logMailer struct {
	log zerolog.Logger
}

func (m *logMailer) Send(_ context.Context, to, subject, _ string) error {
	m.log.Info().Str("to", to).Str("subject", subject).Msg("mail delivery skipped (log provider)")
	return nil
}

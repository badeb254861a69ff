package alert

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/soundprediction/zonegraph/pkg/config"
)

// Alerter defines an interface for sending alerts
type Alerter interface {
	Alert(subject, message string) error
}

// New returns an EmailAlerter when alerting is enabled and a LogAlerter otherwise.
func New(cfg config.AlertConfig, logger *slog.Logger) Alerter {
	if cfg.Enabled && cfg.SMTPHost != "" && len(cfg.To) > 0 {
		return NewEmailAlerter(cfg)
	}
	return NewLogAlerter(logger)
}

// EmailAlerter implements Alerter using SMTP
type EmailAlerter struct {
	cfg config.AlertConfig
}

// NewEmailAlerter creates a new email alerter
func NewEmailAlerter(cfg config.AlertConfig) *EmailAlerter {
	return &EmailAlerter{
		cfg: cfg,
	}
}

// Alert sends an email with the given subject and message
func (a *EmailAlerter) Alert(subject, message string) error {
	if !a.cfg.Enabled {
		return nil
	}

	auth := smtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", a.cfg.SMTPHost, a.cfg.SMTPPort)

	if err := smtp.SendMail(addr, auth, a.cfg.From, a.cfg.To, buildMessage(a.cfg.To, subject, message)); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	return nil
}

func buildMessage(to []string, subject, message string) []byte {
	return []byte(fmt.Sprintf("To: %s\r\n"+
		"Subject: [zonegraph] %s\r\n"+
		"\r\n"+
		"%s\r\n", strings.Join(to, ","), subject, message))
}

// LogAlerter writes alerts to a structured logger
type LogAlerter struct {
	logger *slog.Logger
}

// NewLogAlerter creates an alerter that logs at error level
func NewLogAlerter(logger *slog.Logger) *LogAlerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogAlerter{logger: logger}
}

// Alert logs the alert
func (l *LogAlerter) Alert(subject, message string) error {
	l.logger.Error(subject, "alert", message)
	return nil
}

// NoOpAlerter is a dummy alerter for when alerting is disabled
type NoOpAlerter struct{}

func (n *NoOpAlerter) Alert(subject, message string) error {
	return nil
}

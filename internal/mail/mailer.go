// Package mail delivers outbound notification email over SMTP. When no SMTP
// host is configured the log-only notifier is used instead so the rest of the
// system never needs to care whether delivery is real.
package mail

import (
	"context"

	"go.uber.org/zap"
	gomail "gopkg.in/mail.v2"

	"github.com/spec-kit/complaint-portal/internal/config"
)

// Notifier sends a notification message to a recipient address.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewNotifier picks the SMTP notifier when a host is configured, otherwise a
// log-only fallback.
func NewNotifier(cfg config.MailConfig, logger *zap.Logger) Notifier {
	if cfg.Host == "" {
		return &logNotifier{logger: logger}
	}
	return &smtpNotifier{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

type smtpNotifier struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

func (n *smtpNotifier) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := n.dialer.DialAndSend(msg); err != nil {
		n.logger.Error("failed to send notification email",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return err
	}
	n.logger.Info("notification email sent",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}

// logNotifier records notifications without delivering them.
type logNotifier struct {
	logger *zap.Logger
}

func (n *logNotifier) Send(_ context.Context, to, subject, body string) error {
	n.logger.Info("notification (email disabled)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}

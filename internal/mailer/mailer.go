// Package mailer sends transactional email (password reset links, signup
// confirmation links). The auth plugin depends only on the MailSender
// interface; the SMTP implementation lives in smtp.go and a logging fallback
// is used in development when no mail host is configured.
package mailer

import (
	"context"
	"log/slog"
)

// MailSender is the contract the auth plugin uses to send email.
type MailSender interface {
	SendMail(ctx context.Context, to []string, subject, body string) error
	IsConfigured(ctx context.Context) bool
}

// LogSender is the development fallback when SMTP is not configured. It
// logs the message body (which contains the reset/confirmation link) so the
// flow stays testable without a mail server.
type LogSender struct{}

// NewLogSender creates a LogSender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

// SendMail logs the would-be message instead of sending it.
func (s *LogSender) SendMail(ctx context.Context, to []string, subject, body string) error {
	slog.Info("mail delivery skipped (SMTP not configured)",
		slog.Any("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}

// IsConfigured always returns false for the logging fallback.
func (s *LogSender) IsConfigured(ctx context.Context) bool {
	return false
}

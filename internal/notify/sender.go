package notify

import (
	"context"

	"go.uber.org/zap"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// LogSender writes messages to zap instead of delivering them.
// Used when SMTP is not configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender backed by the given logger.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message and returns nil.
func (l *LogSender) Send(_ context.Context, m Message) error {
	l.logger.Info("notification (not sent, smtp disabled)",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
	)
	return nil
}

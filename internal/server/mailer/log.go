package mailer

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// LogSender writes messages to the log. Meant for local development.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger.With("module", "mailer")}
}

func (s *LogSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	s.logger.Info(ctx, "email", "to", to, "subject", subject, "body", htmlBody)
	return nil
}

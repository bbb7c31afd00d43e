// Package mailer delivers the verification emails produced by the user
// service. The transport is chosen by configuration: a real SMTP relay, an
// S3 bucket acting as a mail drop, or the server log.
package mailer

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/telemetry"
)

// Sender delivers a single HTML message.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// New builds the Sender selected by cfg.MailTransport. Every send is counted
// in telemetry.EmailsSent under the transport name.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (Sender, error) {
	var (
		s   Sender
		err error
	)

	switch cfg.MailTransport {
	case config.MailTransportSMTP:
		s, err = NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	case config.MailTransportS3:
		s, err = NewS3Drop(ctx, cfg)
	case config.MailTransportLog, "":
		s = NewLogSender(logger)
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.MailTransport)
	}
	if err != nil {
		return nil, err
	}

	transport := cfg.MailTransport
	if transport == "" {
		transport = config.MailTransportLog
	}
	return &instrumented{next: s, transport: transport}, nil
}

type instrumented struct {
	next      Sender
	transport string
}

func (m *instrumented) Send(ctx context.Context, to, subject, htmlBody string) error {
	err := m.next.Send(ctx, to, subject, htmlBody)
	telemetry.ObserveEmail(m.transport, err)
	return err
}

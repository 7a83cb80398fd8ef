// Package mail provides outbound email transports.
//
// Every transport returns an explicit error. Callers that treat email as
// best-effort (see the notify package) decide what to do with it.
package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/famsplit/internal/config"
)

// ErrNotConfigured is returned by the transport used when no mail
// settings are present.
var ErrNotConfigured = errors.New("mail: email settings not configured")

// Sender sends a single plain-text email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, to, subject, body string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}

// Unconfigured fails every send with ErrNotConfigured.
type Unconfigured struct{}

// Send always returns ErrNotConfigured.
func (Unconfigured) Send(context.Context, string, string, string) error {
	return ErrNotConfigured
}

// New builds the transport selected by cfg.Transport.
func New(cfg config.Mail) (Sender, error) {
	switch cfg.Transport {
	case config.TransportSMTP:
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.From), nil
	case config.TransportSendGrid:
		return NewSendGridSender(cfg.SendGridURL, cfg.SendGridAPIKey, cfg.From, nil), nil
	case config.TransportNone, "":
		return Unconfigured{}, nil
	default:
		return nil, fmt.Errorf("mail: unknown transport %q", cfg.Transport)
	}
}

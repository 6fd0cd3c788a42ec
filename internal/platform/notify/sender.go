// Package notify delivers staff email notifications. Deliveries are always
// best-effort: the mutation that triggered a mail has already been
// persisted, so failures are logged and swallowed.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Sender sends one message to a list of recipients.
type Sender interface {
	Send(ctx context.Context, to []string, subject, text, html string) error
}

// SMTPConfig carries the connection settings for the outbound mail relay.
type SMTPConfig struct {
	Host        string
	Port        string
	Username    string
	Password    string
	FromAddress string
}

// Configured reports whether enough settings are present to attempt
// delivery.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.FromAddress != ""
}

// SMTPSender delivers mail through a plain SMTP relay as a
// multipart/alternative message with text and HTML parts.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

const mimeBoundary = "reserve-mail-boundary"

func (s *SMTPSender) Send(ctx context.Context, to []string, subject, text, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(to) == 0 {
		return errors.New("no recipients")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.FromAddress)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", mimeBoundary)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(text)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(html)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)

	addr := s.cfg.Host + ":" + s.cfg.Port
	var a smtp.Auth
	if s.cfg.Username != "" {
		a = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	return smtp.SendMail(addr, a, s.cfg.FromAddress, to, []byte(b.String()))
}

// LogSender stands in when no SMTP relay is configured. It logs each
// would-be delivery so local development still shows what went out.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, to []string, subject, text, _ string) error {
	s.logger.Info().
		Strs("to", to).
		Str("subject", subject).
		Str("body", text).
		Msg("mail delivery skipped (smtp not configured)")
	return nil
}

// SentMail records a single call to Send.
type SentMail struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// MockSender is a test double for Sender.
type MockSender struct {
	mu         sync.Mutex
	calls      []SentMail
	ShouldFail bool
	FailError  string
}

// Send records the call and optionally returns an error.
func (m *MockSender) Send(_ context.Context, to []string, subject, text, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, SentMail{To: to, Subject: subject, Text: text, HTML: html})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded deliveries.
func (m *MockSender) Calls() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMail, len(m.calls))
	copy(out, m.calls)
	return out
}

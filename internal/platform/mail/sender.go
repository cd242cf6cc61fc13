package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sender delivers a rendered email.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers mail through an SMTP relay with PLAIN auth.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}
}

func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return errors.New("header values must not contain line breaks")
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if err := s.send(addr, auth, s.cfg.From, []string{to}, buildMessage(s.cfg.From, to, subject, body)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", addr, err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogSender writes a line per email instead of delivering it. Bodies carry
// PINs and links, so only the recipient and subject are logged.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "mail").Logger()}
}

func (s *LogSender) SendEmail(_ context.Context, to, subject, _ string) error {
	s.logger.Info().Str("to", to).Str("subject", subject).Msg("email not delivered: SMTP is not configured")
	return nil
}

// SentEmail records a single call to RecordingSender.
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// RecordingSender keeps every email in memory.
type RecordingSender struct {
	mu         sync.Mutex
	sent       []SentEmail
	ShouldFail bool
}

func (r *RecordingSender) SendEmail(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ShouldFail {
		return errors.New("mail transport unavailable")
	}
	r.sent = append(r.sent, SentEmail{To: to, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of the recorded emails.
func (r *RecordingSender) Sent() []SentEmail {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SentEmail, len(r.sent))
	copy(out, r.sent)
	return out
}

// Package mailer delivers transactional email over SMTP.
package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/SAP-F-2025/course-marketplace/internal/config"
)

// Message is a single outbound email
type Message struct {
	To          []string
	Subject     string
	Body        string
	ContentType string
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// NewSender returns an SMTP client when SMTP is configured and a logging
// no-op sender otherwise
func NewSender(cfg config.SMTPConfig, logger *slog.Logger) Sender {
	if !cfg.Enabled() {
		return NewNoopSender(logger)
	}
	return NewSMTPClient(cfg)
}

// ===== SMTP =====

// SMTPClient sends mail through an SMTP relay
type SMTPClient struct {
	config config.SMTPConfig
	dial   func(ctx context.Context, addr string) (net.Conn, error)
}

func NewSMTPClient(cfg config.SMTPConfig) *SMTPClient {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	return &SMTPClient{
		config: cfg,
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp", addr)
		},
	}
}

func (c *SMTPClient) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return errors.New("mail recipient is required")
	}
	if msg.Subject == "" {
		return errors.New("mail subject is required")
	}

	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	conn, err := c.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, c.config.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer client.Close()

	if c.config.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: c.config.Host}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if c.config.Username != "" {
		auth := smtp.PlainAuth("", c.config.Username, c.config.Password, c.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(c.config.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range msg.To {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open message body: %w", err)
	}
	if _, err := w.Write(buildMessage(c.config.From, msg)); err != nil {
		return fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message body: %w", err)
	}

	return client.Quit()
}

func buildMessage(from string, msg *Message) []byte {
	contentType := msg.ContentType
	if contentType == "" {
		contentType = "text/plain; charset=UTF-8"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

// ===== NO-OP AND IN-MEMORY =====

// NoopSender drops messages, logging only the recipient count and subject
type NoopSender struct {
	logger *slog.Logger
}

func NewNoopSender(logger *slog.Logger) *NoopSender {
	return &NoopSender{logger: logger}
}

func (s *NoopSender) Send(ctx context.Context, msg *Message) error {
	s.logger.InfoContext(ctx, "SMTP not configured, mail dropped",
		"subject", msg.Subject,
		"recipients", len(msg.To))
	return nil
}

// MemorySender keeps every message it is given
type MemorySender struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

// FailWith makes subsequent sends return err
func (s *MemorySender) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemorySender) Send(_ context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *MemorySender) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"signalx/internal/common/config"
)

// SMTPMailer sends through a plain or STARTTLS SMTP relay.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Provider() string { return "smtp" }

func (m *SMTPMailer) Send(ctx context.Context, msg Message) (string, error) {
	if !isValidEmail(msg.To) {
		return "", fmt.Errorf("invalid recipient address: %q", msg.To)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled before sending email: %w", err)
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), m.cfg.Host)
	raw := m.buildMessage(msg, messageID, time.Now())

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	var err error
	if m.cfg.UseTLS {
		err = m.sendWithTLS(addr, auth, []string{msg.To}, raw)
	} else {
		err = smtp.SendMail(addr, auth, m.cfg.From, []string{msg.To}, raw)
	}
	if err != nil {
		return "", err
	}
	return messageID, nil
}

func (m *SMTPMailer) buildMessage(msg Message, messageID string, now time.Time) []byte {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("From: %s\r\n", m.cfg.From))
	b.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	if msg.ReplyTo != "" {
		b.WriteString(fmt.Sprintf("Reply-To: %s\r\n", msg.ReplyTo))
	}
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", mimeHeader(msg.Subject)))
	b.WriteString(fmt.Sprintf("Message-ID: %s\r\n", messageID))
	b.WriteString(fmt.Sprintf("Date: %s\r\n", now.Format(time.RFC1123Z)))
	b.WriteString("MIME-Version: 1.0\r\n")

	if msg.HTML != "" {
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
		b.WriteString("\r\n")
		b.WriteString(msg.HTML)
	} else {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		b.WriteString("\r\n")
		b.WriteString(msg.Text)
	}

	return []byte(b.String())
}

// mimeHeader Q-encodes subjects carrying non-ASCII text such as alert emoji.
func mimeHeader(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.QEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

func (m *SMTPMailer) sendWithTLS(addr string, auth smtp.Auth, to []string, raw []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if err = client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err = client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range to {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err = w.Write(raw); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

// Verify dials the relay and negotiates TLS when configured.
func (m *SMTPMailer) Verify(ctx context.Context) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("smtp host is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := smtp.Dial(fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if m.cfg.UseTLS {
		if err = client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	return client.Quit()
}

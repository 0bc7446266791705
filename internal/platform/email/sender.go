package email

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"leadflow/internal/platform/config"
)

// Sender is the email-delivery collaborator. The engine hands off a
// resolved recipient/subject/body and nothing more.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewSender returns nil when no provider is configured; the send_email
// action treats a nil sender as a configuration error.
func NewSender(cfg config.EmailConfig) Sender {
	if cfg.Provider != "smtp" || cfg.SMTP.Host == "" {
		return nil
	}
	return &smtpSender{cfg: cfg.SMTP}
}

type smtpSender struct {
	cfg config.SMTPConfig
}

// Send drives the SMTP conversation over a connection bounded by the
// caller's context: the dial honors ctx and the ctx deadline becomes
// the connection deadline, so a hung server surfaces as a timeout
// error instead of blocking the action indefinitely.
func (s *smtpSender) Send(ctx context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if s.cfg.Username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}

	if err := client.Mail(s.cfg.FromAddress); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(s.message(to, subject, body))); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return client.Quit()
}

func (s *smtpSender) message(to, subject, body string) string {
	from := s.cfg.FromAddress
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromAddress)
	}

	var msg strings.Builder
	msg.WriteString("From: " + from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)
	return msg.String()
}

// Package smtp доставляет готовые письма на SMTP-релей через STARTTLS.
package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/magabrotheeeer/edu-identity/internal/config"
	"github.com/magabrotheeeer/edu-identity/internal/lib/sl"
)

// ErrNoStartTLS релей не предлагает STARTTLS; без шифрования письма не отправляются.
var ErrNoStartTLS = errors.New("smtp: relay does not offer STARTTLS")

// session шаги SMTP-диалога после авторизации. *smtp.Client подходит без обёртки.
type session interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Mailbox отправляет письма от имени настроенного ящика.
type Mailbox struct {
	cfg         config.SMTP
	dialTimeout time.Duration
	log         *slog.Logger
	open        func(ctx context.Context) (session, error)
}

// NewMailbox создаёт Mailbox; dialTimeout ограничивает установку соединения.
func NewMailbox(cfg config.SMTP, dialTimeout time.Duration, log *slog.Logger) *Mailbox {
	m := &Mailbox{cfg: cfg, dialTimeout: dialTimeout, log: log}
	m.open = m.dial
	return m
}

// From адрес отправителя: from из конфига, иначе пользователь SMTP.
func (m *Mailbox) From() string {
	if m.cfg.From != "" {
		return m.cfg.From
	}
	return m.cfg.User
}

// Send доставляет msg всем получателям одной SMTP-сессией.
func (m *Mailbox) Send(ctx context.Context, to []string, msg []byte) error {
	const op = "smtp.Send"
	if len(to) == 0 {
		return fmt.Errorf("%s: no recipients", op)
	}
	s, err := m.open(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			m.log.Debug("smtp session close", sl.Err(err))
		}
	}()
	if err := deliver(s, m.From(), to, msg); err != nil {
		m.log.Error("smtp delivery failed", sl.Op(op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func deliver(s session, from string, to []string, msg []byte) error {
	if err := s.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM %s: %w", from, err)
	}
	for _, rcpt := range to {
		if err := s.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := s.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("end of data: %w", err)
	}
	return s.Quit()
}

func (m *Mailbox) dial(ctx context.Context) (session, error) {
	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	d := net.Dialer{Timeout: m.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("greeting from %s: %w", addr, err)
	}
	if ok, _ := c.Extension("STARTTLS"); !ok {
		_ = c.Close()
		return nil, ErrNoStartTLS
	}
	if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("starttls: %w", err)
	}
	if err := c.Auth(smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("auth as %s: %w", m.cfg.User, err)
	}
	return c, nil
}

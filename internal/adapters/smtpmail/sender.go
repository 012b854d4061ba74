package smtpmail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/mikey/mail-gatekeeper/internal/config"
	"github.com/mikey/mail-gatekeeper/internal/core"
	"go.uber.org/zap"
)

// Sender is an SMTP submission implementation of the core.MailSender
// interface. Each send dials a fresh connection; challenge volume is low
// enough that connection reuse isn't worth the state.
type Sender struct {
	cfg    config.SMTPConfig
	from   string
	logger *zap.Logger
}

// NewSender creates a new SMTP sender. from is the mailbox owner's address.
func NewSender(cfg config.SMTPConfig, from string, logger *zap.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		from:   from,
		logger: logger,
	}
}

// Send submits one message. All failures are TransportErrors.
func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	dialer := &net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.cfg.Server)
	if err != nil {
		return &core.TransportError{Op: "send connect", Err: err}
	}
	if s.cfg.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(s.cfg.Timeout))
	}

	client := smtp.NewClient(conn)
	defer client.Close()

	host := s.cfg.Server
	if h, _, err := net.SplitHostPort(s.cfg.Server); err == nil {
		host = h
	}
	if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
		return &core.TransportError{Op: "send starttls", Err: err}
	}
	if err := client.Auth(sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)); err != nil {
		return &core.TransportError{Op: "send auth", Err: err}
	}

	if err := client.Mail(s.from, nil); err != nil {
		return &core.TransportError{Op: "send mail", Err: err}
	}
	if err := client.Rcpt(to, nil); err != nil {
		return &core.TransportError{Op: "send rcpt", Err: err}
	}

	wc, err := client.Data()
	if err != nil {
		return &core.TransportError{Op: "send data", Err: err}
	}
	if _, err := wc.Write([]byte(composeMessage(s.from, to, subject, body))); err != nil {
		wc.Close()
		return &core.TransportError{Op: "send write", Err: err}
	}
	if err := wc.Close(); err != nil {
		return &core.TransportError{Op: "send close", Err: err}
	}

	if err := client.Quit(); err != nil {
		s.logger.Debug("SMTP quit failed", zap.Error(err))
	}

	s.logger.Info("Sent message",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}

// composeMessage renders a minimal RFC822 text message
func composeMessage(from, to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Auto-Submitted: auto-replied\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.String()
}

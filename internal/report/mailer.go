package report

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/wneessen/go-mail"
)

// Sender delivers a report message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds SMTP submission settings. Credentials come from
// configuration, never from code.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
	// TLSConfig overrides the default TLS settings; nil verifies against Host
	TLSConfig *tls.Config
}

// Mailer sends messages over SMTP with implicit TLS (SMTPS)
type Mailer struct {
	cfg SMTPConfig
}

// NewMailer creates a new Mailer
func NewMailer(cfg SMTPConfig) *Mailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Mailer{cfg: cfg}
}

// Send delivers msg to every recipient in msg.To
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("report has no recipients")
	}

	out, err := msg.Msg()
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to configure SMTP client: %w", err)
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer func() { _ = client.Close() }()

	if err := client.Send(out); err != nil {
		return fmt.Errorf("failed to deliver report via %s: %w", addr, err)
	}
	return nil
}

func (m *Mailer) clientOptions() []mail.Option {
	tlsConfig := m.cfg.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}
	}

	opts := []mail.Option{
		mail.WithSSL(),
		mail.WithPort(m.cfg.Port),
		mail.WithTLSConfig(tlsConfig),
		mail.WithTimeout(m.cfg.Timeout),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}

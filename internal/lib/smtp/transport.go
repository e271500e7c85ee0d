package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/magabrotheeeer/venture-billing/internal/config"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
)

var (
	// ErrNotConfigured возвращается, если SMTP хост не задан.
	ErrNotConfigured = errors.New("smtp is not configured")
	// ErrTLSUnavailable возвращается, если сервер не поддерживает STARTTLS, а TLS обязателен.
	ErrTLSUnavailable = errors.New("smtp server does not support STARTTLS")
)

const (
	dialTimeout = 10 * time.Second
	// implicitTLSPort — порт SMTPS, где TLS начинается до приветствия сервера.
	implicitTLSPort = "465"
)

// Transport открывает сессии с SMTP сервером: SMTPS на порту 465,
// STARTTLS на остальных.
type Transport struct {
	cfg config.SMTP
	log *slog.Logger
}

// NewTransport создает Transport.
func NewTransport(cfg config.SMTP, log *slog.Logger) *Transport {
	return &Transport{cfg: cfg, log: log}
}

// Connect устанавливает соединение, шифрует его и авторизуется, если задан пользователь.
func (t *Transport) Connect(ctx context.Context) (Client, error) {
	const op = "smtp.Connect"
	if t.cfg.SMTPHost == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}
	log := t.log.With(slog.String("op", op), slog.String("host", t.cfg.SMTPHost))

	conn, err := t.dial(ctx)
	if err != nil {
		log.Error("failed to dial SMTP server", sl.Err(err))
		return nil, fmt.Errorf("%s: failed to dial SMTP server: %w", op, err)
	}

	client, err := smtp.NewClient(conn, t.cfg.SMTPHost)
	if err != nil {
		_ = conn.Close()
		log.Error("failed to create SMTP client", sl.Err(err))
		return nil, fmt.Errorf("%s: failed to create SMTP client: %w", op, err)
	}

	if err := t.secure(client); err != nil {
		_ = client.Close()
		log.Error("failed to secure SMTP session", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if t.cfg.SMTPUser != "" {
		auth := smtp.PlainAuth("", t.cfg.SMTPUser, t.cfg.SMTPPass, t.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			_ = client.Close()
			log.Error("smtp auth failed", sl.Err(err))
			return nil, fmt.Errorf("%s: smtp auth failed: %w", op, err)
		}
	}
	return client, nil
}

// From возвращает адрес отправителя: явно заданный или имя пользователя SMTP.
func (t *Transport) From() string {
	if t.cfg.SMTPFrom != "" {
		return t.cfg.SMTPFrom
	}
	return t.cfg.SMTPUser
}

func (t *Transport) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName: t.cfg.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
}

func (t *Transport) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(t.cfg.SMTPHost, t.cfg.SMTPPort)
	dialer := &net.Dialer{Timeout: dialTimeout}
	if t.cfg.SMTPPort == implicitTLSPort {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: t.tlsConfig()}
		return tlsDialer.DialContext(ctx, "tcp", addr)
	}
	return dialer.DialContext(ctx, "tcp", addr)
}

// secure включает STARTTLS, если соединение еще не зашифровано.
func (t *Transport) secure(client *smtp.Client) error {
	if t.cfg.SMTPPort == implicitTLSPort {
		return nil
	}
	if ok, _ := client.Extension("STARTTLS"); !ok {
		if t.cfg.SMTPRequireTLS {
			return ErrTLSUnavailable
		}
		t.log.Warn("smtp server does not support STARTTLS, sending in plain text", slog.String("host", t.cfg.SMTPHost))
		return nil
	}
	if err := client.StartTLS(t.tlsConfig()); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}
	return nil
}

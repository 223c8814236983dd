package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	applogger "CrossWatch/pkg/logger"
)

var ErrInvalidRecipient = errors.New("notify: invalid recipient")

// SMTPConfig describes the mail relay. TLS selects implicit TLS (port 465);
// otherwise STARTTLS is used when the server offers it.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      bool
}

// SMTPNotifier sends plain-text mail.
type SMTPNotifier struct {
	cfg SMTPConfig
	log *applogger.Logger
	now func() time.Time
}

func NewSMTPNotifier(cfg SMTPConfig, log *applogger.Logger) *SMTPNotifier {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &SMTPNotifier{cfg: cfg, log: log, now: time.Now}
}

func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	to = strings.TrimSpace(to)
	if to == "" || strings.ContainsAny(to, "\r\n") {
		return ErrInvalidRecipient
	}
	msg := buildMessage(n.cfg.From, to, subject, body, n.now())

	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	c, err := n.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	defer c.Close()

	if !n.cfg.TLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if n.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(n.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	n.log.Debug("email sent", applogger.String("to", to), applogger.String("subject", subject))
	return c.Quit()
}

func (n *SMTPNotifier) dial(ctx context.Context, addr string) (*smtp.Client, error) {
	d := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	if n.cfg.TLS {
		tc := tls.Client(conn, &tls.Config{ServerName: n.cfg.Host})
		if err := tc.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, err
		}
		conn = tc
	}
	c, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

func buildMessage(from, to, subject, body string, at time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", at.Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}

// Package mail delivers notifications over SMTP.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/ports"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Notifier sends multipart plain/HTML mail through an SMTP relay.
type Notifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	send     sendFunc
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier uses PLAIN auth when a username is set.
func NewNotifier(host string, port int, username, password, from string) *Notifier {
	if from == "" {
		from = username
	}
	return &Notifier{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		send:     smtp.SendMail,
	}
}

// Deliver sends the message to msg.Recipient.
func (n *Notifier) Deliver(ctx context.Context, msg domain.Message) error {
	if n.host == "" || n.from == "" {
		return fmt.Errorf("smtp notifier misconfigured")
	}
	if msg.Recipient == "" {
		return fmt.Errorf("smtp notifier: message has no recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := buildMessage(n.from, msg, time.Now())
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}

	addr := net.JoinHostPort(n.host, strconv.Itoa(n.port))
	if err := n.send(addr, auth, n.from, []string{msg.Recipient}, body); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func buildMessage(from string, msg domain.Message, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	headers := []struct{ key, value string }{
		{"From", from},
		{"To", msg.Recipient},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", now.Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", writer.Boundary())},
	}
	var head bytes.Buffer
	for _, h := range headers {
		fmt.Fprintf(&head, "%s: %s\r\n", h.key, h.value)
	}
	head.WriteString("\r\n")

	parts := []struct{ contentType, content string }{
		{"text/plain; charset=utf-8", msg.Text},
	}
	if msg.HTML != "" {
		parts = append(parts, struct{ contentType, content string }{"text/html; charset=utf-8", msg.HTML})
	}

	for _, p := range parts {
		w, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, fmt.Errorf("create part: %w", err)
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, fmt.Errorf("write part: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	return append(head.Bytes(), buf.Bytes()...), nil
}

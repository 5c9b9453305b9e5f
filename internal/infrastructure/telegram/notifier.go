package telegram

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/ports"
)

const defaultAPIURL = "https://api.telegram.org"

// Notifier sends job alerts to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiURL   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiURL:   defaultAPIURL,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// WithAPIURL points the notifier at another Bot API host.
func (n *Notifier) WithAPIURL(apiURL string) *Notifier {
	n.apiURL = strings.TrimSuffix(apiURL, "/")
	return n
}

// Deliver posts the message as HTML. The recipient is the configured chat.
func (n *Notifier) Deliver(ctx context.Context, msg domain.Message) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiURL, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", render(msg))
	form.Set("parse_mode", "HTML")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	return nil
}

// render builds the Telegram text: bold subject, then the escaped plain body.
// Telegram accepts only a small HTML subset, so the mail HTML body is not reused.
func render(msg domain.Message) string {
	var b strings.Builder
	if msg.Subject != "" {
		b.WriteString("<b>")
		b.WriteString(html.EscapeString(msg.Subject))
		b.WriteString("</b>\n")
	}
	b.WriteString(html.EscapeString(msg.Text))
	return b.String()
}

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultTelegramAPI = "https://api.telegram.org"

// Telegram sends messages to a single chat through the Bot API.
type Telegram struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
}

// NewTelegram creates a sender. An empty token disables sending; Send
// becomes a no-op so callers never need to branch on configuration.
func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		baseURL: defaultTelegramAPI,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether a bot token is configured.
func (t *Telegram) Enabled() bool {
	return t.token != "" && t.chatID != ""
}

// Send delivers one message. HTML markup is allowed.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Enabled() {
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("marshal telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram api returned %d", resp.StatusCode)
	}
	return nil
}

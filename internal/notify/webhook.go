package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kmares/internal/reminder"
	"kmares/pkg/x/httpx"
)

// WebhookPayload is POSTed for each reminder. It plays the role of a
// platform notification: a fixed heading plus the reminder text.
type WebhookPayload struct {
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Subject     string    `json:"subject"`
	Session     string    `json:"session"`
	StartsAt    time.Time `json:"startsAt"`
	MinutesLeft int       `json:"minutesLeft"`
	EntryID     string    `json:"entryId"`
}

type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

func NewWebhookNotifier(url, proxy string) (*WebhookNotifier, error) {
	client, err := httpx.NewClient(httpx.ClientOptions{Timeout: 10 * time.Second, Proxy: proxy})
	if err != nil {
		return nil, fmt.Errorf("webhook client: %w", err)
	}
	return &WebhookNotifier{URL: strings.TrimSpace(url), Client: client}, nil
}

func (w *WebhookNotifier) Notify(ctx context.Context, ev reminder.Event) error {
	body, err := json.Marshal(WebhookPayload{
		Title:       reminder.PlatformTitle,
		Body:        ev.Body,
		Subject:     ev.Subject,
		Session:     ev.SlotLabel,
		StartsAt:    ev.StartsAt,
		MinutesLeft: ev.MinutesLeft,
		EntryID:     ev.EntryID,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook status=%d body=%q", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

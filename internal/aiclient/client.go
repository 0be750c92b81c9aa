// Package aiclient calls the assistant endpoint the way the web client
// does: typed JSON requests plus an incrementally decoded chat stream.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kmares/pkg/sse"
	"kmares/pkg/x/httpx"
	"kmares/pkg/x/llm"
)

const defaultCallTimeout = 90 * time.Second

type Options struct {
	// URL is the full assistant endpoint, e.g. http://127.0.0.1:8787/functions/v1/ai-assistant.
	URL string
	// Token is sent as a bearer token when set.
	Token string
	Proxy string
}

type Client struct {
	url    string
	token  string
	http   *http.Client
	stream *http.Client
}

func New(opts Options) (*Client, error) {
	u := strings.TrimSpace(opts.URL)
	if u == "" {
		return nil, fmt.Errorf("assistant url is required")
	}
	callClient, err := httpx.NewClient(httpx.ClientOptions{Timeout: defaultCallTimeout, Proxy: opts.Proxy})
	if err != nil {
		return nil, err
	}
	streamClient, err := httpx.NewClient(httpx.ClientOptions{Timeout: -1, Proxy: opts.Proxy})
	if err != nil {
		return nil, err
	}
	return &Client{url: u, token: strings.TrimSpace(opts.Token), http: callClient, stream: streamClient}, nil
}

// APIError is a non-2xx reply from the assistant endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

type request struct {
	Type     string        `json:"type"`
	Messages []llm.Message `json:"messages,omitempty"`
	Data     any           `json:"data,omitempty"`
}

func (c *Client) newRequest(ctx context.Context, body request) (*http.Request, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func call[T any](ctx context.Context, c *Client, body request) (T, error) {
	var zero T
	req, err := c.newRequest(ctx, body)
	if err != nil {
		return zero, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return zero, fmt.Errorf("assistant %s: %w", body.Type, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return zero, fmt.Errorf("assistant %s: read: %w", body.Type, err)
	}

	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	decodeErr := json.Unmarshal(raw, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Message = envelope.Error
		} else {
			apiErr.Message = "Unknown error"
		}
		return zero, apiErr
	}
	if decodeErr != nil {
		return zero, fmt.Errorf("assistant %s: decode response: %w", body.Type, decodeErr)
	}
	if envelope.Error != "" {
		return zero, &APIError{StatusCode: resp.StatusCode, Message: envelope.Error}
	}
	var out T
	if err := json.Unmarshal(envelope.Data, &out); err != nil {
		return zero, fmt.Errorf("assistant %s: unexpected data shape: %w", body.Type, err)
	}
	return out, nil
}

// StreamChat sends a chat conversation and reports text deltas as they
// arrive. Roles other than "user" are sent as "assistant". OnDone is
// called exactly once unless ctx is cancelled mid-stream.
func (c *Client) StreamChat(ctx context.Context, messages []llm.Message, h sse.Handlers) {
	norm := make([]llm.Message, len(messages))
	for i, m := range messages {
		role := "assistant"
		if m.Role == "user" {
			role = "user"
		}
		norm[i] = llm.Message{Role: role, Content: m.Content}
	}

	req, err := c.newRequest(ctx, request{Type: "chat", Messages: norm})
	if err != nil {
		failStream(h, err)
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		failStream(h, err)
		return
	}
	sse.ConsumeResponse(ctx, resp, h)
}

func failStream(h sse.Handlers, err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
	if h.OnDone != nil {
		h.OnDone()
	}
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	DefaultBaseURL           = "https://ai.gateway.lovable.dev/v1"
	DefaultModel             = "google/gemini-3-flash-preview"
	DefaultMaxRetries        = 0
	DefaultRequestTimeout    = 75 * time.Second
	DefaultHTTPClientTimeout = 75 * time.Second
)

var ErrMissingAPIKey = errors.New("api key is required")

type ChatConfig struct {
	BaseURL string
	APIKey  string
	Model   string

	// SDK client options. Retries default to none so that rate-limit and
	// quota statuses reach the caller unchanged.
	MaxRetries     int
	RequestTimeout time.Duration
}

func (c ChatConfig) WithDefaults() ChatConfig {
	out := c
	out.BaseURL = strings.TrimRight(strings.TrimSpace(out.BaseURL), "/")
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	out.APIKey = strings.TrimSpace(out.APIKey)
	out.Model = strings.TrimSpace(out.Model)
	if out.Model == "" {
		out.Model = DefaultModel
	}
	if out.MaxRetries < 0 {
		out.MaxRetries = DefaultMaxRetries
	}
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = DefaultRequestTimeout
	}
	return out
}

// CompletionsURL is the upstream chat completions endpoint.
func (c ChatConfig) CompletionsURL() string {
	return c.WithDefaults().BaseURL + "/chat/completions"
}

func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultHTTPClientTimeout}
}

// Message is a role/content pair as sent by the browser client.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToParams converts messages to SDK message params. Unknown roles are sent
// as user messages.
func ToParams(messages []Message) []openaigo.ChatCompletionMessageParamUnion {
	out := make([]openaigo.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case "system":
			out = append(out, openaigo.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openaigo.AssistantMessage(m.Content))
		default:
			out = append(out, openaigo.UserMessage(m.Content))
		}
	}
	return out
}

// NewParams builds completion params for cfg's model.
func NewParams(cfg ChatConfig, messages []Message) openaigo.ChatCompletionNewParams {
	cfg = cfg.WithDefaults()
	return openaigo.ChatCompletionNewParams{
		Model:    openaigo.ChatModel(cfg.Model),
		Messages: ToParams(messages),
	}
}

func CallChatCompletion(
	ctx context.Context,
	httpClient *http.Client,
	cfg ChatConfig,
	messages []Message,
) (*openaigo.ChatCompletion, error) {
	cfg = cfg.WithDefaults()
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}

	client := openaigo.NewClient(
		option.WithBaseURL(cfg.BaseURL),
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithRequestTimeout(cfg.RequestTimeout),
	)

	return client.Chat.Completions.New(ctx, NewParams(cfg, messages))
}

// FirstContent returns the first choice's message text.
func FirstContent(resp *openaigo.ChatCompletion) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("llm returned nil response")
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// StatusCode extracts the upstream HTTP status from an SDK error, or 0.
func StatusCode(err error) int {
	var apiErr *openaigo.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.StatusCode
	}
	return 0
}

// IsRetryable reports whether err is worth another attempt. Client errors,
// including 429 and 402, are not: the caller maps them to user messages.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrMissingAPIKey) {
		return false
	}
	code := StatusCode(err)
	if code == 0 {
		return true
	}
	return code >= 500
}

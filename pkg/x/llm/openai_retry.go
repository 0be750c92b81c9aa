package llm

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
)

type RetryOptions struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	LogPrefix      string
	// Label identifies the request in logs, e.g. the request type.
	Label string
}

func CallChatCompletionWithRetry(
	ctx context.Context,
	httpClient *http.Client,
	cfg ChatConfig,
	messages []Message,
	opts RetryOptions,
) (*openaigo.ChatCompletion, error) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 250 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 5 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt < opts.MaxAttempts; attempt++ {
		resp, err := CallChatCompletion(ctx, httpClient, cfg, messages)
		if err == nil && resp != nil && len(resp.Choices) > 0 {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else if resp == nil {
			lastErr = fmt.Errorf("llm returned nil response")
		} else {
			lastErr = fmt.Errorf("llm returned empty choices")
		}

		if err != nil && !IsRetryable(err) {
			return nil, lastErr
		}
		if attempt >= opts.MaxAttempts-1 {
			return nil, lastErr
		}

		backoff := Backoff{Initial: opts.InitialBackoff, Max: opts.MaxBackoff}.Delay(attempt)
		if strings.TrimSpace(opts.LogPrefix) != "" {
			log.Printf("%s llm transient failure: label=%s retry=%d/%d err=%v backoff=%s",
				opts.LogPrefix, opts.Label, attempt+1, opts.MaxAttempts, lastErr, backoff,
			)
		}
		if !Wait(ctx, backoff) {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// Package assistant serves the AI assistant endpoint: an authenticated
// proxy in front of an OpenAI-compatible chat completions API.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kmares/internal/content"
	"kmares/internal/metrics"
	"kmares/pkg/x/httpx"
	"kmares/pkg/x/llm"
)

const (
	Path       = "/functions/v1/ai-assistant"
	ShortPath  = "/ai-assistant"
	maxReqBody = 1 << 20

	msgRateLimited  = "Đã vượt quá giới hạn yêu cầu, vui lòng thử lại sau."
	msgNeedsCredits = "Vui lòng nạp thêm credits để tiếp tục sử dụng AI."
)

var errMissingKey = errors.New("AI API key is not configured (set KMARES_AI_API_KEY or LOVABLE_API_KEY)")

type Options struct {
	LLM llm.ChatConfig
	// HTTPProxy routes upstream and content requests; see httpx.ClientOptions.
	HTTPProxy string
	// Loader resolves summary requests that carry data.url. Nil disables it.
	Loader    *content.Loader
	Metrics   *metrics.Metrics
	LogPrefix string
}

type Handler struct {
	cfg        llm.ChatConfig
	client     *http.Client
	streamer   *http.Client
	loader     *content.Loader
	metrics    *metrics.Metrics
	logPrefix  string
	retryTries int
}

func NewHandler(opts Options) (*Handler, error) {
	cfg := opts.LLM.WithDefaults()
	client, err := httpx.NewClient(httpx.ClientOptions{Timeout: cfg.RequestTimeout, Proxy: opts.HTTPProxy})
	if err != nil {
		return nil, fmt.Errorf("assistant http client: %w", err)
	}
	// Streams stay open as long as the model writes; only the dial and
	// headers are bounded.
	transport, err := httpx.NewTransport(nil, opts.HTTPProxy)
	if err != nil {
		return nil, fmt.Errorf("assistant stream transport: %w", err)
	}
	transport.ResponseHeaderTimeout = cfg.RequestTimeout

	prefix := strings.TrimSpace(opts.LogPrefix)
	if prefix == "" {
		prefix = "[ai-assistant]"
	}
	return &Handler{
		cfg:        cfg,
		client:     client,
		streamer:   &http.Client{Transport: transport},
		loader:     opts.Loader,
		metrics:    opts.Metrics,
		logPrefix:  prefix,
		retryTries: 2,
	}, nil
}

// Register mounts the handler on both endpoint paths.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle(Path, h)
	mux.Handle(ShortPath, h)
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		h.writeError(w, "", http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req Request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxReqBody))
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, "", http.StatusInternalServerError, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if h.cfg.APIKey == "" {
		h.writeError(w, string(req.Type), http.StatusInternalServerError, errMissingKey.Error())
		return
	}
	log.Printf("%s processing request: type=%s", h.logPrefix, req.Type)

	if req.Type == TypeSummary {
		if err := h.resolveSummaryURL(r.Context(), &req); err != nil {
			h.writeError(w, string(req.Type), http.StatusInternalServerError, err.Error())
			return
		}
	}

	messages, err := BuildMessages(req)
	if err != nil {
		h.writeError(w, string(req.Type), http.StatusInternalServerError, err.Error())
		return
	}
	log.Printf("%s calling AI gateway: type=%s messages=%d model=%s", h.logPrefix, req.Type, len(messages), h.cfg.Model)

	if req.Type.Streams() {
		h.relayStream(w, r, messages)
		return
	}
	h.complete(r.Context(), w, req.Type, messages)
}

// resolveSummaryURL fills data.content from data.url when no inline
// content was sent.
func (h *Handler) resolveSummaryURL(ctx context.Context, req *Request) error {
	rawURL, _ := req.Data["url"].(string)
	if strings.TrimSpace(rawURL) == "" || h.loader == nil {
		return nil
	}
	if existing, _ := req.Data["content"].(string); strings.TrimSpace(existing) != "" {
		return nil
	}
	doc, err := h.loader.Load(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("load summary url: %w", err)
	}
	log.Printf("%s loaded summary source: url=%s kind=%s runes=%d", h.logPrefix, doc.URL, doc.Kind, len([]rune(doc.Text)))
	req.Data["content"] = doc.ForPrompt()
	return nil
}

func (h *Handler) complete(ctx context.Context, w http.ResponseWriter, t RequestType, messages []llm.Message) {
	resp, err := llm.CallChatCompletionWithRetry(ctx, h.client, h.cfg, messages, llm.RetryOptions{
		MaxAttempts: h.retryTries,
		LogPrefix:   h.logPrefix,
		Label:       string(t),
	})
	if err != nil {
		code := llm.StatusCode(err)
		log.Printf("%s AI gateway error: type=%s status=%d err=%v", h.logPrefix, t, code, err)
		h.writeUpstreamError(w, string(t), code, err)
		return
	}
	text, err := llm.FirstContent(resp)
	if err != nil {
		h.writeError(w, string(t), http.StatusInternalServerError, err.Error())
		return
	}

	data := ResponseData(text)
	if len(data) > 0 && data[0] == '"' {
		log.Printf("%s response is not JSON, returning as text: type=%s", h.logPrefix, t)
	} else {
		log.Printf("%s got response: type=%s bytes=%d", h.logPrefix, t, len(data))
	}
	h.writeJSON(w, string(t), http.StatusOK, struct {
		Data json.RawMessage `json:"data"`
	}{Data: data})
}

// writeUpstreamError maps rate-limit and quota statuses to user messages;
// everything else becomes a 500.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, reqType string, status int, err error) {
	switch status {
	case http.StatusTooManyRequests:
		h.writeError(w, reqType, http.StatusTooManyRequests, msgRateLimited)
	case http.StatusPaymentRequired:
		h.writeError(w, reqType, http.StatusPaymentRequired, msgNeedsCredits)
	case 0:
		msg := "AI gateway error"
		if err != nil {
			msg = err.Error()
		}
		h.writeError(w, reqType, http.StatusInternalServerError, msg)
	default:
		h.writeError(w, reqType, http.StatusInternalServerError, fmt.Sprintf("AI gateway error: %d", status))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, reqType string, status int, msg string) {
	if status >= 500 {
		log.Printf("%s error: type=%s status=%d msg=%s", h.logPrefix, reqType, status, msg)
	}
	h.writeJSON(w, reqType, status, map[string]string{"error": msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, reqType string, status int, v any) {
	h.metrics.AIRequest(reqType, strconv.Itoa(status))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("%s write response failed: %v", h.logPrefix, err)
	}
}

func since(start time.Time) string {
	return time.Since(start).Truncate(time.Millisecond).String()
}

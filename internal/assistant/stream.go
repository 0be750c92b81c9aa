package assistant

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"kmares/pkg/sse"
	"kmares/pkg/x/htmlutil"
	"kmares/pkg/x/llm"
)

const relayBufferSize = 32 * 1024

// streamBody encodes the completion request with stream enabled.
func (h *Handler) streamBody(messages []llm.Message) ([]byte, error) {
	body, err := json.Marshal(llm.NewParams(h.cfg, messages))
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return sjson.SetBytes(body, "stream", true)
}

// relayStream forwards the upstream event stream to the client unchanged,
// flushing after every read. A Reassembler observes the same bytes to count
// deltas for logs and metrics.
func (h *Handler) relayStream(w http.ResponseWriter, r *http.Request, messages []llm.Message) {
	const reqType = string(TypeChat)
	start := time.Now()

	body, err := h.streamBody(messages)
	if err != nil {
		h.writeError(w, reqType, http.StatusInternalServerError, err.Error())
		return
	}
	upReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.cfg.CompletionsURL(), bytes.NewReader(body))
	if err != nil {
		h.writeError(w, reqType, http.StatusInternalServerError, err.Error())
		return
	}
	upReq.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	upReq.Header.Set("Content-Type", "application/json")
	upReq.Header.Set("Accept", "text/event-stream")

	resp, err := h.streamer.Do(upReq)
	if err != nil {
		h.writeError(w, reqType, http.StatusInternalServerError, fmt.Sprintf("AI gateway request failed: %v", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		detail := gjson.GetBytes(raw, "error.message").String()
		if detail == "" {
			detail = htmlutil.PreviewString(string(raw), 200)
		}
		log.Printf("%s AI gateway error: type=%s status=%d detail=%q", h.logPrefix, reqType, resp.StatusCode, detail)
		h.writeUpstreamError(w, reqType, resp.StatusCode, nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	h.metrics.AIRequest(reqType, strconv.Itoa(http.StatusOK))
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	deltas := 0
	observer := sse.NewReassembler(func(string) { deltas++ }, nil)
	buf := make([]byte, relayBufferSize)
	var relayed int64
	var relayErr error
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			observer.Feed(buf[:n])
			if _, werr := w.Write(buf[:n]); werr != nil {
				relayErr = fmt.Errorf("client write: %w", werr)
				break
			}
			relayed += int64(n)
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				relayErr = err
			}
			break
		}
	}
	observer.Flush()
	h.metrics.StreamDeltas(deltas)

	if relayErr != nil && r.Context().Err() == nil {
		log.Printf("%s stream relay ended early: bytes=%d deltas=%d err=%v elapsed=%s", h.logPrefix, relayed, deltas, relayErr, since(start))
		return
	}
	log.Printf("%s stream relayed: bytes=%d deltas=%d done=%t elapsed=%s", h.logPrefix, relayed, deltas, observer.Finished(), since(start))
}
